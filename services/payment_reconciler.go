package services

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restaurant-pos/database"
	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/utils"
	"gorm.io/gorm"
)

const defaultChangedBy = "system"

// PaymentReconciler records payments, split receipts and partial bills.
type PaymentReconciler struct {
	db        *gorm.DB
	publisher Publisher
	stock     *StockLedger
	now       func() time.Time
}

func NewPaymentReconciler(db *gorm.DB, publisher Publisher, stock *StockLedger) *PaymentReconciler {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	if stock == nil {
		stock = NewStockLedger()
	}
	return &PaymentReconciler{db: db, publisher: publisher, stock: stock, now: time.Now}
}

type SplitPayment struct {
	ReceiptID *string                    `json:"receipt_id"`
	OrderID   *uint                      `json:"order_id"`
	Methods   map[string]decimal.Decimal `json:"methods"`
	ChangedBy string                     `json:"changed_by"`
}

type NewSubOrder struct {
	OrderID       uint            `json:"order_id"`
	Total         decimal.Decimal `json:"total"`
	PaymentMethod string          `json:"payment_method"`
	Items         []ItemInput     `json:"items"`
	ReceiptID     *string         `json:"receipt_id"`
}

// PayFull settles the whole order with one method. Kitchen status is not touched.
func (p *PaymentReconciler) PayFull(ctx context.Context, orderID uint, method string, total decimal.Decimal) (*models.Order, error) {
	method = strings.TrimSpace(method)
	if method == "" {
		return nil, validationError("payment_method is required")
	}
	if total.IsNegative() {
		return nil, validationError("total must not be negative")
	}

	var (
		order  *models.Order
		events emitter
	)
	err := database.Transact(ctx, p.db, func(tx *gorm.DB) error {
		var err error
		order, err = loadOrder(tx, orderID)
		if err != nil {
			return err
		}

		payment := models.Payment{OrderID: orderID, Amount: total, PaymentMethod: method}
		if err := tx.Create(&payment).Error; err != nil {
			return storeError("record payment", err)
		}
		if err := tx.Model(order).Updates(map[string]interface{}{
			"payment_method": method,
			"total":          total,
			"is_paid":        true,
		}).Error; err != nil {
			return storeError("update order payment", err)
		}

		now := p.now()
		if err := stampPaid(tx, orderID, now); err != nil {
			return err
		}
		changes, err := p.stock.DeductForOrder(tx, orderID, now)
		if err != nil {
			return err
		}
		events.add(EventOrdersUpdated, struct{}{})
		changes.emit(&events)
		return reloadOrder(tx, order)
	})
	if err != nil {
		return nil, err
	}

	utils.InfoLogger.WithFields(logrus.Fields{
		"order_id": orderID,
		"method":   method,
		"total":    total.String(),
	}).Info("Order paid")
	events.flush(p.publisher)
	return order, nil
}

// PaySplit replaces the method breakdown of a receipt and returns the receipt
// id, minting one for the order when none is given.
func (p *PaymentReconciler) PaySplit(ctx context.Context, in SplitPayment) (string, error) {
	receiptID := ""
	if in.ReceiptID != nil {
		receiptID = strings.TrimSpace(*in.ReceiptID)
	}
	if receiptID == "" && in.OrderID == nil {
		return "", validationError("receipt_id or order_id is required")
	}
	rows, err := receiptRows(in.Methods)
	if err != nil {
		return "", err
	}
	changedBy := in.ChangedBy
	if changedBy == "" {
		changedBy = defaultChangedBy
	}

	err = database.Transact(ctx, p.db, func(tx *gorm.DB) error {
		if in.OrderID != nil {
			order, err := loadOrder(tx, *in.OrderID)
			if err != nil {
				return err
			}
			if receiptID == "" {
				if order.ReceiptID != nil && *order.ReceiptID != "" {
					receiptID = *order.ReceiptID
				} else {
					receiptID = uuid.NewString()
				}
			}
			if err := tx.Model(order).Update("receipt_id", receiptID).Error; err != nil {
				return storeError("bind receipt", err)
			}
		}

		if err := ReplaceAll(tx, receiptID, rows); err != nil {
			return err
		}

		composite := compositeMethod(rows)
		if composite == "" {
			return nil
		}
		var orders []models.Order
		if err := tx.Where("receipt_id = ?", receiptID).Find(&orders).Error; err != nil {
			return storeError("load receipt orders", err)
		}
		for i := range orders {
			if err := setPaymentMethod(tx, &orders[i], composite, changedBy); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	utils.InfoLogger.WithFields(logrus.Fields{
		"receipt_id": receiptID,
		"methods":    len(rows),
	}).Info("Split payment recorded")
	p.publisher.Publish(EventOrdersUpdated, struct{}{})
	return receiptID, nil
}

// ReplaceAll swaps every method row of the receipt for rows.
func ReplaceAll(tx *gorm.DB, receiptID string, rows []models.ReceiptMethod) error {
	if err := tx.Where("receipt_id = ?", receiptID).Delete(&models.ReceiptMethod{}).Error; err != nil {
		return storeError("clear receipt methods", err)
	}
	if len(rows) == 0 {
		return nil
	}
	for i := range rows {
		rows[i].ID = 0
		rows[i].ReceiptID = receiptID
	}
	if err := tx.Create(&rows).Error; err != nil {
		return storeError("insert receipt methods", err)
	}
	return nil
}

// receiptRows keeps methods with a positive amount, sorted by name.
func receiptRows(methods map[string]decimal.Decimal) ([]models.ReceiptMethod, error) {
	rows := make([]models.ReceiptMethod, 0, len(methods))
	for name, amount := range methods {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, validationError("payment method name is required")
		}
		if amount.IsNegative() {
			return nil, validationError("amount for %s must not be negative", name)
		}
		if !amount.IsPositive() {
			continue
		}
		rows = append(rows, models.ReceiptMethod{PaymentMethod: name, Amount: amount})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].PaymentMethod < rows[j].PaymentMethod })
	return rows, nil
}

func compositeMethod(rows []models.ReceiptMethod) string {
	names := make([]string, 0, len(rows))
	for _, r := range rows {
		names = append(names, r.PaymentMethod)
	}
	sort.Strings(names)
	return strings.Join(names, "+")
}

// setPaymentMethod writes method to the order, auditing the change when it differs.
func setPaymentMethod(tx *gorm.DB, order *models.Order, method, changedBy string) error {
	if order.PaymentMethod != nil && *order.PaymentMethod == method {
		return nil
	}
	// Update writes the new value back into order, so keep a copy of the old one.
	var previous *string
	if order.PaymentMethod != nil {
		v := *order.PaymentMethod
		previous = &v
	}
	change := models.PaymentMethodChange{
		OrderID:   order.ID,
		OldMethod: previous,
		NewMethod: method,
		ChangedBy: changedBy,
	}
	if err := tx.Create(&change).Error; err != nil {
		return storeError("audit payment method", err)
	}
	if err := tx.Model(order).Update("payment_method", method).Error; err != nil {
		return storeError("update payment method", err)
	}
	return nil
}

// CreateSubOrder records a partial bill: the items are upserted onto the parent
// order, marked paid under the sub-order and its total added to the order.
func (p *PaymentReconciler) CreateSubOrder(ctx context.Context, in NewSubOrder) (*models.SubOrder, error) {
	in.PaymentMethod = strings.TrimSpace(in.PaymentMethod)
	if in.PaymentMethod == "" {
		return nil, validationError("payment_method is required")
	}
	if in.Total.IsNegative() {
		return nil, validationError("total must not be negative")
	}
	if len(in.Items) == 0 {
		return nil, validationError("sub-order needs at least one item")
	}
	if err := validateItems(in.Items); err != nil {
		return nil, err
	}

	sub := models.SubOrder{OrderID: in.OrderID, Total: in.Total, PaymentMethod: in.PaymentMethod}
	err := database.Transact(ctx, p.db, func(tx *gorm.DB) error {
		order, err := loadOrder(tx, in.OrderID)
		if err != nil {
			return err
		}
		if err := tx.Create(&sub).Error; err != nil {
			return storeError("create sub-order", err)
		}

		uniqueIDs, err := upsertItems(tx, in.OrderID, in.Items)
		if err != nil {
			return err
		}
		fields := map[string]interface{}{
			"sub_order_id":   sub.ID,
			"paid_at":        p.now(),
			"confirmed":      true,
			"payment_method": in.PaymentMethod,
		}
		if in.ReceiptID != nil {
			fields["receipt_id"] = *in.ReceiptID
		}
		if err := tx.Model(&models.OrderItem{}).
			Where("order_id = ? AND unique_id IN ?", in.OrderID, uniqueIDs).
			Updates(fields).Error; err != nil {
			return storeError("mark sub-order items", err)
		}

		if err := tx.Model(order).Update("total", gorm.Expr("total + ?", in.Total)).Error; err != nil {
			return storeError("add sub-order total", err)
		}
		if err := promote(tx, order); err != nil {
			return err
		}
		if err := tx.Preload("Items").First(&sub, sub.ID).Error; err != nil {
			return storeError("reload sub-order", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	utils.InfoLogger.WithFields(logrus.Fields{
		"order_id":     in.OrderID,
		"sub_order_id": sub.ID,
		"total":        in.Total.String(),
	}).Info("Sub-order created")
	p.publisher.Publish(EventOrdersUpdated, struct{}{})
	return &sub, nil
}

func (p *PaymentReconciler) GetReceiptMethods(ctx context.Context, receiptID string) ([]models.ReceiptMethod, error) {
	var rows []models.ReceiptMethod
	if err := p.db.WithContext(ctx).Where("receipt_id = ?", receiptID).
		Order("payment_method ASC").Find(&rows).Error; err != nil {
		return nil, storeError("load receipt methods", err)
	}
	return rows, nil
}

// ChangePaymentMethod corrects an order's payment method by hand.
func (p *PaymentReconciler) ChangePaymentMethod(ctx context.Context, orderID uint, method, changedBy string) (*models.Order, error) {
	method = strings.TrimSpace(method)
	if method == "" {
		return nil, validationError("payment_method is required")
	}
	if changedBy == "" {
		changedBy = defaultChangedBy
	}

	var order *models.Order
	err := database.Transact(ctx, p.db, func(tx *gorm.DB) error {
		var err error
		order, err = loadOrder(tx, orderID)
		if err != nil {
			return err
		}
		return setPaymentMethod(tx, order, method, changedBy)
	})
	if err != nil {
		return nil, err
	}

	p.publisher.Publish(EventOrdersUpdated, struct{}{})
	return order, nil
}

func (p *PaymentReconciler) PaymentChanges(ctx context.Context, orderID uint) ([]models.PaymentMethodChange, error) {
	var changes []models.PaymentMethodChange
	if err := p.db.WithContext(ctx).Where("order_id = ?", orderID).
		Order("changed_at DESC").Order("id DESC").Find(&changes).Error; err != nil {
		return nil, storeError("load payment changes", err)
	}
	return changes, nil
}

func (p *PaymentReconciler) SubOrders(ctx context.Context, orderID uint) ([]models.SubOrder, error) {
	var subs []models.SubOrder
	if err := p.db.WithContext(ctx).Preload("Items").Where("order_id = ?", orderID).
		Order("created_at ASC").Order("id ASC").Find(&subs).Error; err != nil {
		return nil, storeError("load sub-orders", err)
	}
	return subs, nil
}
