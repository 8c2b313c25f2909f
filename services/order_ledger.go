package services

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restaurant-pos/database"
	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/utils"
	"gorm.io/gorm"
)

// OrderLedger owns the order and order-item lifecycle.
type OrderLedger struct {
	db        *gorm.DB
	publisher Publisher
	stock     *StockLedger
	now       func() time.Time
}

func NewOrderLedger(db *gorm.DB, publisher Publisher, stock *StockLedger) *OrderLedger {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	if stock == nil {
		stock = NewStockLedger()
	}
	return &OrderLedger{db: db, publisher: publisher, stock: stock, now: time.Now}
}

type NewOrder struct {
	Kind            string          `json:"order_type"`
	TableNumber     *string         `json:"table_number"`
	CustomerName    *string         `json:"customer_name"`
	CustomerPhone   *string         `json:"customer_phone"`
	CustomerAddress *string         `json:"customer_address"`
	Total           decimal.Decimal `json:"total"`
	PaymentMethod   *string         `json:"payment_method"`
	Items           []ItemInput     `json:"items"`
}

type StatusUpdate struct {
	Status        string           `json:"status"`
	Total         *decimal.Decimal `json:"total"`
	PaymentMethod *string          `json:"payment_method"`
}

type OrderFilter struct {
	TableNumber *string
	Kind        string
	Status      string
	OpenOnly    bool
}

type PurgeResult struct {
	Orders    int64 `json:"orders"`
	Items     int64 `json:"items"`
	SubOrders int64 `json:"sub_orders"`
}

func (l *OrderLedger) CreateOrder(ctx context.Context, in NewOrder) (*models.Order, error) {
	if in.Kind == "" {
		in.Kind = models.OrderKindTable
	}
	if !models.ValidOrderKind(in.Kind) {
		return nil, validationError("invalid order type %q", in.Kind)
	}
	if in.TableNumber != nil {
		trimmed := strings.TrimSpace(*in.TableNumber)
		in.TableNumber = &trimmed
		if trimmed == "" {
			in.TableNumber = nil
		}
	}
	if in.Kind == models.OrderKindTable && in.TableNumber == nil {
		return nil, validationError("table_number is required for table orders")
	}
	if err := validateItems(in.Items); err != nil {
		return nil, err
	}

	order := models.Order{
		Kind:            in.Kind,
		TableNumber:     in.TableNumber,
		Status:          models.OrderStatusOccupied,
		Total:           in.Total,
		PaymentMethod:   in.PaymentMethod,
		CustomerName:    in.CustomerName,
		CustomerPhone:   in.CustomerPhone,
		CustomerAddress: in.CustomerAddress,
	}
	if len(in.Items) > 0 {
		order.Status = models.OrderStatusConfirmed
	}

	err := database.Transact(ctx, l.db, func(tx *gorm.DB) error {
		open, err := registerOpen(tx)
		if err != nil {
			return err
		}
		if !open {
			return ErrRegisterClosed
		}

		if err := tx.Create(&order).Error; err != nil {
			return storeError("create order", err)
		}
		if order.HasTable() {
			if err := occupyTable(tx, *order.TableNumber, order.ID); err != nil {
				return err
			}
		}
		if _, err := upsertItems(tx, order.ID, in.Items); err != nil {
			return err
		}
		return reloadOrder(tx, &order)
	})
	if err != nil {
		return nil, err
	}

	utils.InfoLogger.WithFields(logrus.Fields{
		"order_id": order.ID,
		"kind":     order.Kind,
		"items":    len(order.Items),
	}).Info("Order created")
	l.publisher.Publish(EventOrdersUpdated, struct{}{})
	return &order, nil
}

// UpsertItems adds or refreshes items on an order. A closed or occupied order
// is promoted to confirmed.
func (l *OrderLedger) UpsertItems(ctx context.Context, orderID uint, items []ItemInput) (*models.Order, error) {
	if len(items) == 0 {
		return nil, validationError("no items given")
	}
	if err := validateItems(items); err != nil {
		return nil, err
	}

	var order *models.Order
	err := database.Transact(ctx, l.db, func(tx *gorm.DB) error {
		var err error
		order, err = loadOrder(tx, orderID)
		if err != nil {
			return err
		}
		if _, err := upsertItems(tx, orderID, items); err != nil {
			return err
		}
		if err := promote(tx, order); err != nil {
			return err
		}
		return reloadOrder(tx, order)
	})
	if err != nil {
		return nil, err
	}

	l.publisher.Publish(EventOrdersUpdated, struct{}{})
	return order, nil
}

// promote moves a closed or occupied order to confirmed, re-occupying its
// table when it was closed.
func promote(tx *gorm.DB, order *models.Order) error {
	if order.Status != models.OrderStatusClosed && order.Status != models.OrderStatusOccupied {
		return nil
	}
	if order.Status == models.OrderStatusClosed && order.HasTable() {
		if err := occupyTable(tx, *order.TableNumber, order.ID); err != nil {
			return err
		}
	}
	if err := tx.Model(order).Update("status", models.OrderStatusConfirmed).Error; err != nil {
		return storeError("promote order", err)
	}
	return nil
}

// SetStatus moves the order to upd.Status, applying the optional total and
// payment method. paid stamps the items and deducts stock; closed behaves like
// Close.
func (l *OrderLedger) SetStatus(ctx context.Context, orderID uint, upd StatusUpdate) (*models.Order, error) {
	if !models.ValidOrderStatus(upd.Status) {
		return nil, validationError("invalid status %q", upd.Status)
	}
	if upd.Total != nil && upd.Total.IsNegative() {
		return nil, validationError("total must not be negative")
	}

	var (
		order  *models.Order
		events emitter
	)
	err := database.Transact(ctx, l.db, func(tx *gorm.DB) error {
		var err error
		order, err = loadOrder(tx, orderID)
		if err != nil {
			return err
		}

		fields := map[string]interface{}{}
		if upd.Total != nil {
			fields["total"] = *upd.Total
		}
		if upd.PaymentMethod != nil {
			fields["payment_method"] = *upd.PaymentMethod
		}

		if upd.Status == models.OrderStatusClosed {
			if len(fields) > 0 {
				if err := tx.Model(order).Updates(fields).Error; err != nil {
					return storeError("update order", err)
				}
			}
			if order.Status != models.OrderStatusClosed {
				if err := l.closeInTx(tx, order, &events); err != nil {
					return err
				}
			}
			return reloadOrder(tx, order)
		}

		if order.Status == models.OrderStatusClosed && order.HasTable() {
			if err := occupyTable(tx, *order.TableNumber, order.ID); err != nil {
				return err
			}
		}
		fields["status"] = upd.Status
		if upd.Status == models.OrderStatusPaid {
			now := l.now()
			fields["is_paid"] = true
			if err := stampPaid(tx, orderID, now); err != nil {
				return err
			}
			changes, err := l.stock.DeductForOrder(tx, orderID, now)
			if err != nil {
				return err
			}
			changes.emit(&events)
		}
		if err := tx.Model(order).Updates(fields).Error; err != nil {
			return storeError("update order status", err)
		}
		events.add(EventOrdersUpdated, struct{}{})
		if upd.Status == models.OrderStatusConfirmed {
			events.add(EventOrderConfirmed, OrderPayload{OrderID: orderID})
		}
		return reloadOrder(tx, order)
	})
	if err != nil {
		return nil, err
	}

	events.flush(l.publisher)
	return order, nil
}

// Close marks the order closed, frees its table and deducts stock for items
// not yet deducted. Closing a closed order does nothing.
func (l *OrderLedger) Close(ctx context.Context, orderID uint) error {
	var events emitter
	err := database.Transact(ctx, l.db, func(tx *gorm.DB) error {
		order, err := loadOrder(tx, orderID)
		if err != nil {
			return err
		}
		if order.Status == models.OrderStatusClosed {
			return nil
		}
		return l.closeInTx(tx, order, &events)
	})
	if err != nil {
		return err
	}

	events.flush(l.publisher)
	return nil
}

func (l *OrderLedger) closeInTx(tx *gorm.DB, order *models.Order, events *emitter) error {
	if err := tx.Model(order).Update("status", models.OrderStatusClosed).Error; err != nil {
		return storeError("close order", err)
	}
	if order.HasTable() {
		if err := freeTable(tx, *order.TableNumber); err != nil {
			return err
		}
	}
	changes, err := l.stock.DeductForOrder(tx, order.ID, l.now())
	if err != nil {
		return err
	}

	utils.InfoLogger.WithField("order_id", order.ID).Info("Order closed")
	events.add(EventOrdersUpdated, struct{}{})
	changes.emit(events)
	return nil
}

// Reopen turns a closed order back into an occupied tab so clients can
// rehydrate the cart.
func (l *OrderLedger) Reopen(ctx context.Context, orderID uint) (*models.Order, error) {
	var order *models.Order
	err := database.Transact(ctx, l.db, func(tx *gorm.DB) error {
		var err error
		order, err = loadOrder(tx, orderID)
		if err != nil {
			return err
		}
		if order.Status != models.OrderStatusClosed {
			return nil
		}
		if order.HasTable() {
			if err := occupyTable(tx, *order.TableNumber, order.ID); err != nil {
				return err
			}
		}
		if err := tx.Model(order).Update("status", models.OrderStatusOccupied).Error; err != nil {
			return storeError("reopen order", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.publisher.Publish(EventOrdersUpdated, struct{}{})
	return order, nil
}

// ResetIfEmpty closes an order that has no items. It reports whether the order
// was closed by this call.
func (l *OrderLedger) ResetIfEmpty(ctx context.Context, orderID uint) (bool, error) {
	var events emitter
	closed := false
	err := database.Transact(ctx, l.db, func(tx *gorm.DB) error {
		order, err := loadOrder(tx, orderID)
		if err != nil {
			return err
		}
		var count int64
		if err := tx.Model(&models.OrderItem{}).Where("order_id = ?", orderID).Count(&count).Error; err != nil {
			return storeError("count items", err)
		}
		if count > 0 || order.Status == models.OrderStatusClosed {
			return nil
		}
		closed = true
		return l.closeInTx(tx, order, &events)
	})
	if err != nil {
		return false, err
	}

	events.flush(l.publisher)
	return closed, nil
}

// ConfirmOnline confirms a phone or packet order that has not been confirmed yet.
func (l *OrderLedger) ConfirmOnline(ctx context.Context, orderID uint) (*models.Order, error) {
	var order *models.Order
	err := database.Transact(ctx, l.db, func(tx *gorm.DB) error {
		var err error
		order, err = loadOrder(tx, orderID)
		if err != nil {
			return err
		}
		if !order.IsOnline() {
			return ErrNotOnlineOrder
		}
		if order.Status == models.OrderStatusConfirmed || order.Status == models.OrderStatusClosed {
			return ErrAlreadyConfirmed
		}
		if err := tx.Model(order).Update("status", models.OrderStatusConfirmed).Error; err != nil {
			return storeError("confirm order", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.publisher.Publish(EventOrderConfirmed, OrderPayload{OrderID: orderID})
	l.publisher.Publish(EventOrdersUpdated, struct{}{})
	return order, nil
}

func (l *OrderLedger) GetOrder(ctx context.Context, orderID uint) (*models.Order, error) {
	db := l.db.WithContext(ctx)
	var order models.Order
	if err := db.Preload("Items", func(q *gorm.DB) *gorm.DB {
		return q.Order("id ASC")
	}).First(&order, orderID).Error; err != nil {
		if isNotFound(err) {
			return nil, ErrOrderNotFound
		}
		return nil, storeError("find order", err)
	}
	if err := attachReceiptMethods(db, []*models.Order{&order}); err != nil {
		return nil, err
	}
	return &order, nil
}

func (l *OrderLedger) ListOrders(ctx context.Context, filter OrderFilter) ([]models.Order, error) {
	db := l.db.WithContext(ctx)
	q := db.Model(&models.Order{}).Preload("Items", func(q *gorm.DB) *gorm.DB {
		return q.Order("id ASC")
	})
	if filter.TableNumber != nil {
		q = q.Where("table_number = ?", *filter.TableNumber)
	}
	if filter.Kind != "" {
		q = q.Where("kind = ?", filter.Kind)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.OpenOnly {
		q = q.Where("status <> ?", models.OrderStatusClosed)
	}

	var orders []models.Order
	if err := q.Order("created_at DESC").Order("id DESC").Find(&orders).Error; err != nil {
		return nil, storeError("list orders", err)
	}

	ptrs := make([]*models.Order, len(orders))
	for i := range orders {
		ptrs[i] = &orders[i]
	}
	if err := attachReceiptMethods(db, ptrs); err != nil {
		return nil, err
	}
	return orders, nil
}

func attachReceiptMethods(db *gorm.DB, orders []*models.Order) error {
	receiptIDs := make([]string, 0)
	for _, o := range orders {
		if o.ReceiptID != nil {
			receiptIDs = append(receiptIDs, *o.ReceiptID)
		}
	}
	if len(receiptIDs) == 0 {
		return nil
	}

	var rows []models.ReceiptMethod
	if err := db.Where("receipt_id IN ?", receiptIDs).Order("payment_method ASC").Find(&rows).Error; err != nil {
		return storeError("load receipt methods", err)
	}
	byReceipt := make(map[string][]models.ReceiptMethod)
	for _, r := range rows {
		byReceipt[r.ReceiptID] = append(byReceipt[r.ReceiptID], r)
	}
	for _, o := range orders {
		if o.ReceiptID != nil {
			o.ReceiptMethods = byReceipt[*o.ReceiptID]
		}
	}
	return nil
}

// PurgeSettled deletes paid and closed orders with their items, and every
// sub-order. Administrative use only.
func (l *OrderLedger) PurgeSettled(ctx context.Context) (PurgeResult, error) {
	var result PurgeResult
	settled := []string{models.OrderStatusPaid, models.OrderStatusClosed}

	err := database.Transact(ctx, l.db, func(tx *gorm.DB) error {
		settledIDs := tx.Model(&models.Order{}).Select("id").Where("status IN ?", settled)

		res := tx.Where("order_id IN (?)", settledIDs).Delete(&models.OrderItem{})
		if res.Error != nil {
			return storeError("delete settled items", res.Error)
		}
		result.Items = res.RowsAffected

		if err := tx.Model(&models.OrderItem{}).Where("sub_order_id IS NOT NULL").
			Update("sub_order_id", nil).Error; err != nil {
			return storeError("detach sub-orders", err)
		}
		res = tx.Where("1 = 1").Delete(&models.SubOrder{})
		if res.Error != nil {
			return storeError("delete sub-orders", res.Error)
		}
		result.SubOrders = res.RowsAffected

		res = tx.Where("status IN ?", settled).Delete(&models.Order{})
		if res.Error != nil {
			return storeError("delete settled orders", res.Error)
		}
		result.Orders = res.RowsAffected
		return nil
	})
	if err != nil {
		return result, err
	}

	utils.InfoLogger.WithFields(logrus.Fields{
		"orders":     result.Orders,
		"items":      result.Items,
		"sub_orders": result.SubOrders,
	}).Warn("Settled orders purged")
	l.publisher.Publish(EventOrdersUpdated, struct{}{})
	return result, nil
}
