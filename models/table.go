package models

import "time"

type Table struct {
	Number     string    `gorm:"primaryKey;type:varchar(20)" json:"number"`
	IsOccupied bool      `gorm:"not null;default:false" json:"is_occupied"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time `gorm:"not null" json:"updated_at"`
}
