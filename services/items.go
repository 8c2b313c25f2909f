package services

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/yeremiapane/restaurant-pos/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ItemInput is one cart line as submitted by a client. UniqueID is the
// client's idempotency key; a missing key is minted on insert.
type ItemInput struct {
	UniqueID      string             `json:"unique_id"`
	ProductID     *uint              `json:"product_id"`
	Name          string             `json:"name"`
	Quantity      int                `json:"quantity"`
	Price         decimal.Decimal    `json:"price"`
	Ingredients   models.Ingredients `json:"ingredients"`
	Extras        models.Ingredients `json:"extras"`
	Confirmed     bool               `json:"confirmed"`
	PaidAt        *time.Time         `json:"paid_at"`
	KitchenStatus string             `json:"kitchen_status"`
	Note          string             `json:"note"`
	DiscountType  *string            `json:"discount_type"`
	DiscountValue decimal.Decimal    `json:"discount_value"`
}

func validateItems(items []ItemInput) error {
	for i, item := range items {
		if item.Quantity <= 0 {
			return validationError("item %d: quantity must be positive", i)
		}
		if item.KitchenStatus != "" && !models.ValidKitchenStatus(item.KitchenStatus) {
			return validationError("item %d: invalid kitchen status %q", i, item.KitchenStatus)
		}
		if item.Price.IsNegative() {
			return validationError("item %d: price must not be negative", i)
		}
	}
	return nil
}

// upsertItems inserts or updates items of orderID keyed on (order_id,
// unique_id). Existing rows only take the discount fields. The resolved
// unique ids are returned in input order.
func upsertItems(tx *gorm.DB, orderID uint, items []ItemInput) ([]string, error) {
	uniqueIDs := make([]string, 0, len(items))
	for _, in := range items {
		uniqueID := strings.TrimSpace(in.UniqueID)
		if uniqueID == "" {
			uniqueID = uuid.NewString()
		}

		var existing models.OrderItem
		err := tx.Where("order_id = ? AND unique_id = ?", orderID, uniqueID).First(&existing).Error
		switch {
		case err == nil:
			if err := tx.Model(&existing).Updates(map[string]interface{}{
				"discount_type":  in.DiscountType,
				"discount_value": in.DiscountValue,
			}).Error; err != nil {
				return nil, storeError("update order item", err)
			}
		case isNotFound(err):
			status := in.KitchenStatus
			if status == "" || (in.Confirmed && in.PaidAt == nil) {
				status = models.KitchenStatusNew
			}
			item := models.OrderItem{
				OrderID:       orderID,
				ProductID:     in.ProductID,
				Name:          in.Name,
				Quantity:      in.Quantity,
				Price:         in.Price,
				Ingredients:   in.Ingredients,
				Extras:        in.Extras,
				UniqueID:      uniqueID,
				Confirmed:     in.Confirmed,
				KitchenStatus: status,
				PaidAt:        in.PaidAt,
				Note:          in.Note,
				DiscountType:  in.DiscountType,
				DiscountValue: in.DiscountValue,
			}
			if err := tx.Create(&item).Error; err != nil {
				return nil, storeError("insert order item", err)
			}
		default:
			return nil, storeError("find order item", err)
		}
		uniqueIDs = append(uniqueIDs, uniqueID)
	}
	return uniqueIDs, nil
}

func loadOrder(tx *gorm.DB, orderID uint) (*models.Order, error) {
	var order models.Order
	if err := tx.First(&order, orderID).Error; err != nil {
		if isNotFound(err) {
			return nil, ErrOrderNotFound
		}
		return nil, storeError("find order", err)
	}
	return &order, nil
}

// lockTable returns the tables row for number, creating it when missing, and
// holds a row lock on it until the transaction ends.
func lockTable(tx *gorm.DB, number string) (*models.Table, error) {
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Table{Number: number}).Error; err != nil {
		return nil, storeError("create table", err)
	}
	var table models.Table
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&table, "number = ?", number).Error; err != nil {
		return nil, storeError("lock table", err)
	}
	return &table, nil
}

// occupyTable marks the table taken by orderID, creating the row if needed.
// Any other open order on the same table is a conflict.
func occupyTable(tx *gorm.DB, number string, orderID uint) error {
	table, err := lockTable(tx, number)
	if err != nil {
		return err
	}

	// Locking read, so a snapshot taken earlier in the transaction can't hide
	// an order committed by whoever held the table lock before us.
	var others []uint
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Model(&models.Order{}).
		Where("table_number = ? AND status <> ? AND id <> ?", number, models.OrderStatusClosed, orderID).
		Limit(1).Pluck("id", &others).Error; err != nil {
		return storeError("check table", err)
	}
	if len(others) > 0 {
		return ErrTableOccupied
	}

	if !table.IsOccupied {
		if err := tx.Model(table).Update("is_occupied", true).Error; err != nil {
			return storeError("occupy table", err)
		}
	}
	return nil
}

func freeTable(tx *gorm.DB, number string) error {
	if err := tx.Model(&models.Table{}).Where("number = ?", number).Update("is_occupied", false).Error; err != nil {
		return storeError("free table", err)
	}
	return nil
}

// stampPaid marks every unpaid item of the order as paid and confirmed.
func stampPaid(tx *gorm.DB, orderID uint, now time.Time) error {
	if err := tx.Model(&models.OrderItem{}).
		Where("order_id = ? AND paid_at IS NULL", orderID).
		Updates(map[string]interface{}{"paid_at": now, "confirmed": true}).Error; err != nil {
		return storeError("mark items paid", err)
	}
	return nil
}

func reloadOrder(tx *gorm.DB, order *models.Order) error {
	order.Items = nil
	if err := tx.Preload("Items", func(q *gorm.DB) *gorm.DB {
		return q.Order("id ASC")
	}).First(order, order.ID).Error; err != nil {
		return storeError("reload order", err)
	}
	return nil
}
