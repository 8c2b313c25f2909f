package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order kinds
const (
	OrderKindTable  = "table"
	OrderKindPhone  = "phone"
	OrderKindPacket = "packet"
)

// Order statuses
const (
	OrderStatusOccupied  = "occupied"
	OrderStatusConfirmed = "confirmed"
	OrderStatusPaid      = "paid"
	OrderStatusClosed    = "closed"
)

// Driver statuses
const (
	DriverStatusAssigned  = "assigned"
	DriverStatusPickedUp  = "picked_up"
	DriverStatusDelivered = "delivered"
)

type Order struct {
	ID                 uint            `gorm:"primaryKey" json:"id"`
	Kind               string          `gorm:"type:varchar(10);not null;default:'table';index" json:"order_type"`
	TableNumber        *string         `gorm:"type:varchar(20);index" json:"table_number"`
	Status             string          `gorm:"type:varchar(15);not null;default:'occupied';index" json:"status"`
	Total              decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"total"`
	PaymentMethod      *string         `gorm:"type:varchar(100)" json:"payment_method"`
	IsPaid             bool            `gorm:"not null;default:false" json:"is_paid"`
	ReceiptID          *string         `gorm:"type:varchar(36);index" json:"receipt_id"`
	PrepStartedAt      *time.Time      `json:"prep_started_at"`
	EstimatedReadyAt   *time.Time      `json:"estimated_ready_at"`
	KitchenDeliveredAt *time.Time      `json:"kitchen_delivered_at"`
	DriverID           *uint           `gorm:"index" json:"driver_id"`
	DriverStatus       *string         `gorm:"type:varchar(20)" json:"driver_status"`
	PickedUpAt         *time.Time      `json:"picked_up_at"`
	DeliveredAt        *time.Time      `json:"delivered_at"`
	CustomerName       *string         `gorm:"type:varchar(255)" json:"customer_name"`
	CustomerPhone      *string         `gorm:"type:varchar(50)" json:"customer_phone"`
	CustomerAddress    *string         `gorm:"type:text" json:"customer_address"`
	CreatedAt          time.Time       `gorm:"not null;index" json:"created_at"`
	UpdatedAt          time.Time       `gorm:"not null" json:"updated_at"`
	Items              []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"items,omitempty"`
	ReceiptMethods     []ReceiptMethod `gorm:"-" json:"receipt_methods,omitempty"`
}

// IsOnline reports whether the order came in by phone or as a packet delivery.
func (o *Order) IsOnline() bool {
	return o.Kind == OrderKindPhone || o.Kind == OrderKindPacket
}

func (o *Order) HasTable() bool {
	return o.TableNumber != nil && *o.TableNumber != ""
}

func ValidOrderKind(kind string) bool {
	switch kind {
	case OrderKindTable, OrderKindPhone, OrderKindPacket:
		return true
	}
	return false
}

func ValidOrderStatus(status string) bool {
	switch status {
	case OrderStatusOccupied, OrderStatusConfirmed, OrderStatusPaid, OrderStatusClosed:
		return true
	}
	return false
}
