package services

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/utils"
	"gorm.io/gorm"
)

// StockLedger deducts recipe ingredients from stock when an order is paid or
// closed.
type StockLedger struct{}

func NewStockLedger() *StockLedger {
	return &StockLedger{}
}

// StockChanges lists the stock rows touched by a deduction.
type StockChanges struct {
	Updated []uint
	Low     []uint
}

func (c StockChanges) emit(e *emitter) {
	for _, id := range c.Updated {
		e.add(EventStockUpdated, StockPayload{StockID: id})
	}
	for _, id := range c.Low {
		e.add(EventStockLow, StockPayload{StockID: id})
	}
}

// DeductForOrder runs DeductForItems over every item of the order that has not
// been deducted yet.
func (s *StockLedger) DeductForOrder(tx *gorm.DB, orderID uint, now time.Time) (StockChanges, error) {
	var items []models.OrderItem
	if err := tx.Where("order_id = ? AND stock_deducted_at IS NULL", orderID).Find(&items).Error; err != nil {
		return StockChanges{}, storeError("load items for stock", err)
	}
	return s.DeductForItems(tx, items, now)
}

// DeductForItems subtracts ingredient quantity × item quantity for every
// ingredient and extra of each item, then stamps the item so repeated calls
// are no-ops. Ingredients without a matching stock row are skipped.
func (s *StockLedger) DeductForItems(tx *gorm.DB, items []models.OrderItem, now time.Time) (StockChanges, error) {
	var changes StockChanges
	seen := make(map[uint]bool)

	for _, item := range items {
		if item.StockDeductedAt != nil {
			continue
		}
		multiplier := decimal.NewFromInt(int64(item.Quantity))
		lines := append(append(models.Ingredients{}, item.Ingredients...), item.Extras...)

		for _, ing := range lines {
			used := ing.Quantity.Mul(multiplier)
			if !used.IsPositive() {
				continue
			}

			var stock models.StockItem
			err := tx.Where("LOWER(name) = LOWER(?) AND unit = ?", ing.Name, ing.Unit).First(&stock).Error
			if err != nil {
				if isNotFound(err) {
					utils.InfoLogger.WithFields(logrus.Fields{
						"ingredient": ing.Name,
						"unit":       ing.Unit,
					}).Warn("No matching stock found for ingredient")
					continue
				}
				return changes, storeError("find stock", err)
			}

			if err := tx.Model(&stock).Update("quantity", gorm.Expr("quantity - ?", used)).Error; err != nil {
				return changes, storeError("deduct stock", err)
			}
			if err := tx.First(&stock, stock.ID).Error; err != nil {
				return changes, storeError("reload stock", err)
			}

			if !seen[stock.ID] {
				seen[stock.ID] = true
				changes.Updated = append(changes.Updated, stock.ID)
			}
			if stock.IsLow() && !containsID(changes.Low, stock.ID) {
				changes.Low = append(changes.Low, stock.ID)
			}
		}

		if err := tx.Model(&models.OrderItem{}).Where("id = ? AND stock_deducted_at IS NULL", item.ID).
			Update("stock_deducted_at", now).Error; err != nil {
			return changes, storeError("stamp stock deduction", err)
		}
	}
	return changes, nil
}

func containsID(ids []uint, id uint) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
