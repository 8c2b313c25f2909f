package services

import (
	"context"

	"github.com/yeremiapane/restaurant-pos/database"
	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/utils"
	"gorm.io/gorm"
)

// CashRegister tracks accounting sessions. Orders can only be created while
// a session is open.
type CashRegister struct {
	db *gorm.DB
}

func NewCashRegister(db *gorm.DB) *CashRegister {
	return &CashRegister{db: db}
}

func (r *CashRegister) IsOpen(ctx context.Context) (bool, error) {
	return registerOpen(r.db.WithContext(ctx))
}

func (r *CashRegister) Open(ctx context.Context, userID *uint) (*models.CashRegisterLog, error) {
	return r.record(ctx, models.RegisterOpen, userID)
}

func (r *CashRegister) Close(ctx context.Context, userID *uint) (*models.CashRegisterLog, error) {
	return r.record(ctx, models.RegisterClose, userID)
}

func (r *CashRegister) record(ctx context.Context, kind string, userID *uint) (*models.CashRegisterLog, error) {
	entry := models.CashRegisterLog{Type: kind, OpenedBy: userID}
	err := database.Transact(ctx, r.db, func(tx *gorm.DB) error {
		open, err := registerOpen(tx)
		if err != nil {
			return err
		}
		if kind == models.RegisterOpen && open {
			return ErrRegisterOpen
		}
		if kind == models.RegisterClose && !open {
			return ErrRegisterClosed
		}
		if err := tx.Create(&entry).Error; err != nil {
			return storeError("write register log", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	utils.InfoLogger.WithField("type", kind).Info("Cash register session changed")
	return &entry, nil
}

// registerOpen reports whether the latest register log is an "open" with no
// later "close".
func registerOpen(tx *gorm.DB) (bool, error) {
	var last models.CashRegisterLog
	err := tx.Order("created_at DESC").Order("id DESC").First(&last).Error
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, storeError("read register log", err)
	}
	return last.Type == models.RegisterOpen, nil
}
