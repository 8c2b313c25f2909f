package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/restaurant-pos/database"
	"github.com/yeremiapane/restaurant-pos/kds"
	"github.com/yeremiapane/restaurant-pos/models"
	"gorm.io/gorm"
)

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.Open(database.DriverSQLite, "file:"+name+"?mode=memory&cache=shared")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

type harness struct {
	db       *gorm.DB
	rec      *kds.Recorder
	ledger   *OrderLedger
	kitchen  *KitchenScheduler
	payments *PaymentReconciler
	tables   *TableAllocator
	drivers  *DriverDesk
	register *CashRegister
	clock    time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := newTestDB(t)
	rec := &kds.Recorder{}
	stock := NewStockLedger()

	h := &harness{
		db:       db,
		rec:      rec,
		ledger:   NewOrderLedger(db, rec, stock),
		kitchen:  NewKitchenScheduler(db, rec),
		payments: NewPaymentReconciler(db, rec, stock),
		tables:   NewTableAllocator(db, rec),
		drivers:  NewDriverDesk(db, rec, NewTTLLocationCache(time.Minute, 10)),
		register: NewCashRegister(db),
		clock:    testNow,
	}
	now := func() time.Time { return h.clock }
	h.ledger.now = now
	h.kitchen.now = now
	h.payments.now = now
	h.drivers.now = now

	_, err := h.register.Open(context.Background(), nil)
	require.NoError(t, err)
	return h
}

func strPtr(s string) *string { return &s }

func uintPtr(v uint) *uint { return &v }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func item(uniqueID string, qty int) ItemInput {
	return ItemInput{UniqueID: uniqueID, Name: uniqueID, Quantity: qty, Price: dec("10")}
}

func (h *harness) tableOrder(t *testing.T, table string, items ...ItemInput) *models.Order {
	t.Helper()
	order, err := h.ledger.CreateOrder(context.Background(), NewOrder{
		Kind:        models.OrderKindTable,
		TableNumber: strPtr(table),
		Items:       items,
	})
	require.NoError(t, err)
	return order
}

func (h *harness) reload(t *testing.T, id uint) models.Order {
	t.Helper()
	var order models.Order
	require.NoError(t, h.db.Preload("Items").First(&order, id).Error)
	return order
}

func (h *harness) table(t *testing.T, number string) models.Table {
	t.Helper()
	var table models.Table
	require.NoError(t, h.db.First(&table, "number = ?", number).Error)
	return table
}

func (h *harness) product(t *testing.T, name string, prepSeconds int) uint {
	t.Helper()
	p := models.Product{Name: name, PrepSeconds: prepSeconds, Price: dec("10")}
	require.NoError(t, h.db.Create(&p).Error)
	return p.ID
}

func (h *harness) itemsOf(t *testing.T, orderID uint) []models.OrderItem {
	t.Helper()
	var items []models.OrderItem
	require.NoError(t, h.db.Where("order_id = ?", orderID).Order("id ASC").Find(&items).Error)
	return items
}
