package services

import (
	"context"
	"time"

	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/utils"
	"gorm.io/gorm"
)

// TabSweeper periodically closes tabs that were opened but never got an item.
type TabSweeper struct {
	DB       *gorm.DB
	Ledger   *OrderLedger
	StopChan chan struct{}
	Interval time.Duration
	Grace    time.Duration
	now      func() time.Time
}

func NewTabSweeper(db *gorm.DB, ledger *OrderLedger) *TabSweeper {
	return &TabSweeper{
		DB:       db,
		Ledger:   ledger,
		StopChan: make(chan struct{}),
		Interval: 1 * time.Minute,
		Grace:    2 * time.Hour,
		now:      time.Now,
	}
}

func (ts *TabSweeper) Start() {
	go func() {
		ticker := time.NewTicker(ts.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if _, err := ts.Sweep(context.Background()); err != nil {
					utils.ErrorLogger.Errorf("Error sweeping empty tabs: %v", err)
				}
			case <-ts.StopChan:
				return
			}
		}
	}()
}

func (ts *TabSweeper) Stop() {
	close(ts.StopChan)
}

// Sweep closes every occupied order older than Grace that has no items and
// returns how many were closed.
func (ts *TabSweeper) Sweep(ctx context.Context) (int, error) {
	cutoff := ts.now().Add(-ts.Grace)

	var ids []uint
	if err := ts.DB.WithContext(ctx).Model(&models.Order{}).
		Where("status = ? AND created_at < ?", models.OrderStatusOccupied, cutoff).
		Where("NOT EXISTS (SELECT 1 FROM order_items oi WHERE oi.order_id = orders.id)").
		Order("id ASC").
		Pluck("id", &ids).Error; err != nil {
		return 0, storeError("find empty tabs", err)
	}

	closed := 0
	for _, id := range ids {
		ok, err := ts.Ledger.ResetIfEmpty(ctx, id)
		if err != nil {
			return closed, err
		}
		if ok {
			closed++
		}
	}
	if closed > 0 {
		utils.InfoLogger.Printf("Closed %d abandoned empty tabs", closed)
	}
	return closed, nil
}
