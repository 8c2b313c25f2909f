package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type StockItem struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	Name             string          `gorm:"type:varchar(255);not null;uniqueIndex:idx_stock_name_unit" json:"name"`
	Unit             string          `gorm:"type:varchar(20);not null;uniqueIndex:idx_stock_name_unit" json:"unit"`
	Quantity         decimal.Decimal `gorm:"type:decimal(12,3);not null;default:0" json:"quantity"`
	CriticalQuantity decimal.Decimal `gorm:"type:decimal(12,3);not null;default:0" json:"critical_quantity"`
	UpdatedAt        time.Time       `gorm:"not null" json:"updated_at"`
}

func (StockItem) TableName() string {
	return "stock"
}

// IsLow reports whether the item is at or below its critical level.
func (s StockItem) IsLow() bool {
	return s.CriticalQuantity.IsPositive() && s.Quantity.LessThanOrEqual(s.CriticalQuantity)
}
