package services

import (
	"context"
	"math"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restaurant-pos/database"
	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/utils"
	"gorm.io/gorm"
)

const (
	extraUnitSeconds     = 120
	batchPenaltySeconds  = 120
	manyProductsCount    = 3
	manyProductsSlowdown = 1.2
)

// PrepLine is one item as seen by the estimator.
type PrepLine struct {
	ProductID   uint
	PrepSeconds int
	Quantity    int
}

// EstimateOrderSeconds returns the expected cooking time of one order when
// batchSize orders were sent to the kitchen together. Quantities are summed
// per product; each unit after the first costs extraUnitSeconds. The slowest
// product sets the pace, stretched by 1.2 once the order spans three or more
// products, plus batchPenaltySeconds for every other order in the batch.
func EstimateOrderSeconds(lines []PrepLine, batchSize int) int {
	quantities := make(map[uint]int)
	prep := make(map[uint]int)
	for _, l := range lines {
		if l.Quantity <= 0 {
			continue
		}
		quantities[l.ProductID] += l.Quantity
		seconds := l.PrepSeconds
		if seconds <= 0 {
			seconds = models.DefaultPrepSeconds
		}
		prep[l.ProductID] = seconds
	}

	orderTime := 0
	for id, qty := range quantities {
		productTime := prep[id] + (qty-1)*extraUnitSeconds
		if productTime > orderTime {
			orderTime = productTime
		}
	}
	if len(quantities) >= manyProductsCount {
		orderTime = int(math.Round(float64(orderTime) * manyProductsSlowdown))
	}
	if batchSize > 1 {
		orderTime += (batchSize - 1) * batchPenaltySeconds
	}
	return orderTime
}

// KitchenScheduler moves items through new → preparing → ready → delivered and
// keeps each order's ready estimate current.
type KitchenScheduler struct {
	db        *gorm.DB
	publisher Publisher
	now       func() time.Time
}

func NewKitchenScheduler(db *gorm.DB, publisher Publisher) *KitchenScheduler {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	return &KitchenScheduler{db: db, publisher: publisher, now: time.Now}
}

// SetKitchenStatus moves the given items forward to status and returns how
// many items changed. Items already at or past status are left alone. An
// unknown item id aborts the whole call.
func (k *KitchenScheduler) SetKitchenStatus(ctx context.Context, itemIDs []uint, status string) (int, error) {
	if !models.ValidKitchenStatus(status) {
		return 0, validationError("invalid kitchen status %q", status)
	}
	ids := uniqueIDs(itemIDs)
	if len(ids) == 0 {
		return 0, validationError("no item ids given")
	}

	var (
		updated   int
		orderIDs  []uint
		delivered []uint
	)
	err := database.Transact(ctx, k.db, func(tx *gorm.DB) error {
		items, err := loadItems(tx, ids)
		if err != nil {
			return err
		}

		target := models.KitchenRank(status)
		var (
			move  []uint
			batch []uint
		)
		for _, item := range items {
			batch = appendUnique(batch, item.OrderID)
			if models.KitchenRank(item.KitchenStatus) >= target {
				continue
			}
			move = append(move, item.ID)
			orderIDs = appendUnique(orderIDs, item.OrderID)
		}
		if len(move) == 0 {
			return nil
		}

		if err := tx.Model(&models.OrderItem{}).Where("id IN ?", move).
			Update("kitchen_status", status).Error; err != nil {
			return storeError("update kitchen status", err)
		}
		updated = len(move)

		delivered, err = k.refreshOrders(tx, orderIDs, len(batch))
		return err
	})
	if err != nil {
		return 0, err
	}
	if updated == 0 {
		return 0, nil
	}

	utils.InfoLogger.WithFields(logrus.Fields{
		"status": status,
		"items":  updated,
		"orders": orderIDs,
	}).Info("Kitchen status updated")

	k.publisher.Publish(EventOrdersUpdated, struct{}{})
	if status == models.KitchenStatusReady {
		k.publisher.Publish(EventOrderReady, OrderIDsPayload{OrderIDs: orderIDs})
	}
	if len(delivered) > 0 {
		k.publisher.Publish(EventOrderDelivered, OrderIDsPayload{OrderIDs: delivered})
	}
	return updated, nil
}

// ResetKitchenStatus puts items back to new. Administrative correction only.
func (k *KitchenScheduler) ResetKitchenStatus(ctx context.Context, itemIDs []uint) (int, error) {
	ids := uniqueIDs(itemIDs)
	if len(ids) == 0 {
		return 0, validationError("no item ids given")
	}

	var updated int
	err := database.Transact(ctx, k.db, func(tx *gorm.DB) error {
		items, err := loadItems(tx, ids)
		if err != nil {
			return err
		}
		var orderIDs []uint
		for _, item := range items {
			orderIDs = appendUnique(orderIDs, item.OrderID)
		}

		res := tx.Model(&models.OrderItem{}).Where("id IN ? AND kitchen_status <> ?", ids, models.KitchenStatusNew).
			Update("kitchen_status", models.KitchenStatusNew)
		if res.Error != nil {
			return storeError("reset kitchen status", res.Error)
		}
		updated = int(res.RowsAffected)

		if err := tx.Model(&models.Order{}).Where("id IN ?", orderIDs).
			Update("kitchen_delivered_at", nil).Error; err != nil {
			return storeError("clear delivery stamp", err)
		}
		_, err = k.refreshOrders(tx, orderIDs, len(orderIDs))
		return err
	})
	if err != nil {
		return 0, err
	}

	utils.InfoLogger.WithField("items", updated).Warn("Kitchen status reset")
	k.publisher.Publish(EventOrdersUpdated, struct{}{})
	return updated, nil
}

// refreshOrders recomputes the timing fields of orderIDs and returns the ids
// of orders whose items are now all delivered. batchSize counts every order
// named in the call, including those with nothing left to move.
func (k *KitchenScheduler) refreshOrders(tx *gorm.DB, orderIDs []uint, batchSize int) ([]uint, error) {
	now := k.now()
	var delivered []uint

	for _, orderID := range orderIDs {
		order, err := loadOrder(tx, orderID)
		if err != nil {
			return nil, err
		}
		var items []models.OrderItem
		if err := tx.Where("order_id = ?", orderID).Find(&items).Error; err != nil {
			return nil, storeError("load order items", err)
		}

		preparing := false
		allDelivered := len(items) > 0
		for _, item := range items {
			if item.KitchenStatus == models.KitchenStatusPreparing {
				preparing = true
			}
			if item.KitchenStatus != models.KitchenStatusDelivered {
				allDelivered = false
			}
		}

		fields := map[string]interface{}{}
		if preparing {
			lines, err := prepLines(tx, items)
			if err != nil {
				return nil, err
			}
			seconds := EstimateOrderSeconds(lines, batchSize)
			fields["estimated_ready_at"] = now.Add(time.Duration(seconds) * time.Second)
			if order.PrepStartedAt == nil {
				fields["prep_started_at"] = now
			}
		} else {
			fields["estimated_ready_at"] = nil
		}
		if allDelivered {
			fields["kitchen_delivered_at"] = now
			delivered = append(delivered, orderID)
		}

		if err := tx.Model(order).Updates(fields).Error; err != nil {
			return nil, storeError("update order timing", err)
		}
	}
	return delivered, nil
}

// prepLines pairs each product-backed item with its product's prep time.
// Items without a product are not part of the estimate.
func prepLines(tx *gorm.DB, items []models.OrderItem) ([]PrepLine, error) {
	var productIDs []uint
	for _, item := range items {
		if item.ProductID != nil {
			productIDs = appendUnique(productIDs, *item.ProductID)
		}
	}
	if len(productIDs) == 0 {
		return nil, nil
	}

	var products []models.Product
	if err := tx.Where("id IN ?", productIDs).Find(&products).Error; err != nil {
		return nil, storeError("load products", err)
	}
	prep := make(map[uint]int, len(products))
	for _, p := range products {
		prep[p.ID] = p.BasePrepSeconds()
	}

	lines := make([]PrepLine, 0, len(items))
	for _, item := range items {
		if item.ProductID == nil {
			continue
		}
		lines = append(lines, PrepLine{
			ProductID:   *item.ProductID,
			PrepSeconds: prep[*item.ProductID],
			Quantity:    item.Quantity,
		})
	}
	return lines, nil
}

// Queue lists confirmed, not yet delivered items of active orders, oldest
// order first.
func (k *KitchenScheduler) Queue(ctx context.Context) ([]models.Order, error) {
	active := []string{models.OrderStatusOccupied, models.OrderStatusConfirmed, models.OrderStatusPaid}
	pending := []string{models.KitchenStatusNew, models.KitchenStatusPreparing, models.KitchenStatusReady}

	var orders []models.Order
	err := k.db.WithContext(ctx).
		Where("status IN ?", active).
		Where("EXISTS (SELECT 1 FROM order_items oi WHERE oi.order_id = orders.id AND oi.confirmed = ? AND oi.kitchen_status IN ?)", true, pending).
		Preload("Items", func(q *gorm.DB) *gorm.DB {
			return q.Where("confirmed = ? AND kitchen_status IN ?", true, pending).Order("id ASC")
		}).
		Order("created_at ASC").Order("id ASC").
		Find(&orders).Error
	if err != nil {
		return nil, storeError("load kitchen queue", err)
	}
	return orders, nil
}

// Preparing returns the unique ids of items currently being cooked.
func (k *KitchenScheduler) Preparing(ctx context.Context) ([]string, error) {
	var ids []string
	if err := k.db.WithContext(ctx).Model(&models.OrderItem{}).
		Where("kitchen_status = ?", models.KitchenStatusPreparing).
		Order("id ASC").
		Pluck("unique_id", &ids).Error; err != nil {
		return nil, storeError("load preparing items", err)
	}
	return ids, nil
}

func loadItems(tx *gorm.DB, ids []uint) ([]models.OrderItem, error) {
	var items []models.OrderItem
	if err := tx.Where("id IN ?", ids).Order("id ASC").Find(&items).Error; err != nil {
		return nil, storeError("load order items", err)
	}
	if len(items) != len(ids) {
		return nil, ErrItemNotFound
	}
	return items, nil
}

func uniqueIDs(ids []uint) []uint {
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		out = appendUnique(out, id)
	}
	return out
}

func appendUnique(ids []uint, id uint) []uint {
	if containsID(ids, id) {
		return ids
	}
	return append(ids, id)
}
