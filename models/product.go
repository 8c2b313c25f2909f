package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultPrepSeconds is used for products without a configured preparation time.
const DefaultPrepSeconds = 60

type Product struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	Name        string          `gorm:"type:varchar(255);not null" json:"name"`
	Category    string          `gorm:"type:varchar(100);index" json:"category"`
	Price       decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"price"`
	PrepSeconds int             `gorm:"not null;default:60" json:"prep_seconds"`
	Ingredients Ingredients     `gorm:"type:text" json:"ingredients"`
	CreatedAt   time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"not null" json:"updated_at"`
}

// BasePrepSeconds returns the time to cook the first unit of this product.
func (p Product) BasePrepSeconds() int {
	if p.PrepSeconds <= 0 {
		return DefaultPrepSeconds
	}
	return p.PrepSeconds
}
