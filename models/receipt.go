package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SubOrder is one partial-bill payment against an order.
type SubOrder struct {
	ID            uint            `gorm:"primaryKey" json:"sub_order_id"`
	OrderID       uint            `gorm:"not null;index" json:"order_id"`
	Total         decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total"`
	PaymentMethod string          `gorm:"type:varchar(100);not null" json:"payment_method"`
	CreatedAt     time.Time       `gorm:"not null" json:"created_at"`
	Items         []OrderItem     `gorm:"foreignKey:SubOrderID" json:"items,omitempty"`
}

// ReceiptMethod is one payment-method share of a receipt. A receipt's rows are
// always replaced as a set.
type ReceiptMethod struct {
	ID            uint            `gorm:"primaryKey" json:"-"`
	ReceiptID     string          `gorm:"type:varchar(36);not null;index" json:"-"`
	PaymentMethod string          `gorm:"type:varchar(50);not null" json:"payment_method"`
	Amount        decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
}
