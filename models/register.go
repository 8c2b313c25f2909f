package models

import "time"

// Cash register log types
const (
	RegisterOpen  = "open"
	RegisterClose = "close"
)

// CashRegisterLog marks the opening or closing of an accounting session.
type CashRegisterLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Type      string    `gorm:"type:varchar(10);not null;index" json:"type"`
	OpenedBy  *uint     `json:"opened_by"`
	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}
