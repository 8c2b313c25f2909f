package services

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restaurant-pos/database"
	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/utils"
	"gorm.io/gorm"
)

// TableAllocator moves and merges table tabs and hands delivery orders to drivers.
type TableAllocator struct {
	db        *gorm.DB
	publisher Publisher
}

func NewTableAllocator(db *gorm.DB, publisher Publisher) *TableAllocator {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	return &TableAllocator{db: db, publisher: publisher}
}

// Move puts the order on newTable. An occupied destination is rejected and
// nothing changes.
func (a *TableAllocator) Move(ctx context.Context, orderID uint, newTable string) (*models.Order, error) {
	newTable = strings.TrimSpace(newTable)
	if newTable == "" {
		return nil, validationError("new table number is required")
	}

	var order *models.Order
	err := database.Transact(ctx, a.db, func(tx *gorm.DB) error {
		var err error
		order, err = loadOrder(tx, orderID)
		if err != nil {
			return err
		}
		if order.Status == models.OrderStatusClosed {
			return ErrOrderClosed
		}
		if order.HasTable() && *order.TableNumber == newTable {
			return nil
		}

		dest, err := lockTable(tx, newTable)
		if err != nil {
			return err
		}
		if dest.IsOccupied {
			return ErrTableOccupied
		}
		if err := occupyTable(tx, newTable, order.ID); err != nil {
			return err
		}

		if order.HasTable() {
			if err := freeTable(tx, *order.TableNumber); err != nil {
				return err
			}
		}
		if err := tx.Model(order).Update("table_number", newTable).Error; err != nil {
			return storeError("move order", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	utils.InfoLogger.WithFields(logrus.Fields{
		"order_id": orderID,
		"table":    newTable,
	}).Info("Order moved")
	a.publisher.Publish(EventOrdersUpdated, struct{}{})
	return order, nil
}

// Merge folds the source order into the open order of targetTable. Items with
// the same unique id are combined by quantity; the rest are re-parented. The
// source is closed and its table freed.
func (a *TableAllocator) Merge(ctx context.Context, sourceOrderID uint, targetTable string) (*models.Order, error) {
	targetTable = strings.TrimSpace(targetTable)
	if targetTable == "" {
		return nil, validationError("target table number is required")
	}

	var target models.Order
	err := database.Transact(ctx, a.db, func(tx *gorm.DB) error {
		source, err := loadOrder(tx, sourceOrderID)
		if err != nil {
			return err
		}
		if source.HasTable() && *source.TableNumber == targetTable {
			return validationError("cannot merge an order into its own table")
		}
		if source.Status == models.OrderStatusClosed {
			return ErrOrderClosed
		}

		err = tx.Where("table_number = ? AND status <> ? AND id <> ?", targetTable, models.OrderStatusClosed, sourceOrderID).
			Order("created_at DESC").Order("id DESC").First(&target).Error
		if err != nil {
			if isNotFound(err) {
				return ErrNoOpenOrder
			}
			return storeError("find target order", err)
		}

		var items []models.OrderItem
		if err := tx.Where("order_id = ?", sourceOrderID).Find(&items).Error; err != nil {
			return storeError("load source items", err)
		}
		for _, item := range items {
			var dup models.OrderItem
			err := tx.Where("order_id = ? AND unique_id = ?", target.ID, item.UniqueID).First(&dup).Error
			switch {
			case err == nil:
				if err := tx.Model(&dup).Update("quantity", gorm.Expr("quantity + ?", item.Quantity)).Error; err != nil {
					return storeError("combine items", err)
				}
				if err := tx.Delete(&models.OrderItem{}, item.ID).Error; err != nil {
					return storeError("delete merged item", err)
				}
			case isNotFound(err):
				if err := tx.Model(&item).Update("order_id", target.ID).Error; err != nil {
					return storeError("move item", err)
				}
			default:
				return storeError("find target item", err)
			}
		}

		if err := tx.Model(source).Update("status", models.OrderStatusClosed).Error; err != nil {
			return storeError("close source order", err)
		}
		if source.HasTable() {
			if err := freeTable(tx, *source.TableNumber); err != nil {
				return err
			}
		}
		return reloadOrder(tx, &target)
	})
	if err != nil {
		return nil, err
	}

	utils.InfoLogger.WithFields(logrus.Fields{
		"source_order_id": sourceOrderID,
		"target_order_id": target.ID,
		"table":           targetTable,
	}).Info("Orders merged")
	a.publisher.Publish(EventOrdersUpdated, struct{}{})
	return &target, nil
}

// ClaimDriver assigns the order to driverID unless another driver got it first.
func (a *TableAllocator) ClaimDriver(ctx context.Context, orderID, driverID uint) error {
	if driverID == 0 {
		return validationError("driver_id is required")
	}

	db := a.db.WithContext(ctx)
	res := db.Model(&models.Order{}).
		Where("id = ? AND driver_id IS NULL", orderID).
		Updates(map[string]interface{}{
			"driver_id":     driverID,
			"driver_status": models.DriverStatusAssigned,
		})
	if res.Error != nil {
		return storeError("claim order", res.Error)
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := db.Model(&models.Order{}).Where("id = ?", orderID).Count(&count).Error; err != nil {
			return storeError("find order", err)
		}
		if count == 0 {
			return ErrOrderNotFound
		}
		return ErrAlreadyClaimed
	}

	utils.InfoLogger.WithFields(logrus.Fields{
		"order_id":  orderID,
		"driver_id": driverID,
	}).Info("Order claimed by driver")
	a.publisher.Publish(EventOrdersUpdated, struct{}{})
	return nil
}
