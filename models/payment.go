package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment records one full settlement of an order.
type Payment struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	OrderID       uint            `gorm:"not null;index" json:"order_id"`
	Amount        decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	PaymentMethod string          `gorm:"type:varchar(100);not null" json:"payment_method"`
	CreatedAt     time.Time       `gorm:"not null" json:"created_at"`
}

// PaymentMethodChange is the audit trail of an order's payment method.
type PaymentMethodChange struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	OrderID   uint      `gorm:"not null;index" json:"order_id"`
	OldMethod *string   `gorm:"type:varchar(100)" json:"old_method"`
	NewMethod string    `gorm:"type:varchar(100);not null" json:"new_method"`
	ChangedBy string    `gorm:"type:varchar(100);not null;default:'system'" json:"changed_by"`
	ChangedAt time.Time `gorm:"not null;autoCreateTime" json:"changed_at"`
}
