package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kitchen statuses, in pipeline order.
const (
	KitchenStatusNew       = "new"
	KitchenStatusPreparing = "preparing"
	KitchenStatusReady     = "ready"
	KitchenStatusDelivered = "delivered"
)

var kitchenRank = map[string]int{
	KitchenStatusNew:       0,
	KitchenStatusPreparing: 1,
	KitchenStatusReady:     2,
	KitchenStatusDelivered: 3,
}

type OrderItem struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	OrderID         uint            `gorm:"not null;uniqueIndex:idx_order_unique" json:"order_id"`
	ProductID       *uint           `gorm:"index" json:"product_id"`
	Name            string          `gorm:"type:varchar(255)" json:"name"`
	Quantity        int             `gorm:"not null" json:"quantity"`
	Price           decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"price"`
	Ingredients     Ingredients     `gorm:"type:text" json:"ingredients"`
	Extras          Ingredients     `gorm:"type:text" json:"extras"`
	UniqueID        string          `gorm:"type:varchar(64);not null;uniqueIndex:idx_order_unique" json:"unique_id"`
	Confirmed       bool            `gorm:"not null;default:false" json:"confirmed"`
	KitchenStatus   string          `gorm:"type:varchar(15);not null;default:'new';index" json:"kitchen_status"`
	PaidAt          *time.Time      `json:"paid_at"`
	ReceiptID       *string         `gorm:"type:varchar(36);index" json:"receipt_id"`
	SubOrderID      *uint           `gorm:"index" json:"sub_order_id"`
	PaymentMethod   *string         `gorm:"type:varchar(100)" json:"payment_method"`
	Note            string          `gorm:"type:text" json:"note"`
	DiscountType    *string         `gorm:"type:varchar(20)" json:"discount_type"`
	DiscountValue   decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"discount_value"`
	StockDeductedAt *time.Time      `json:"-"`
	CreatedAt       time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"not null" json:"updated_at"`
}

func ValidKitchenStatus(status string) bool {
	_, ok := kitchenRank[status]
	return ok
}

// KitchenRank orders kitchen statuses new < preparing < ready < delivered.
// Unknown statuses rank -1.
func KitchenRank(status string) int {
	if r, ok := kitchenRank[status]; ok {
		return r
	}
	return -1
}
