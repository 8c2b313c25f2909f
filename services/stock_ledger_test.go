package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/restaurant-pos/database"
	"github.com/yeremiapane/restaurant-pos/models"
	"gorm.io/gorm"
)

func TestDeductForItems(t *testing.T) {
	h := newHarness(t)
	cheese := models.StockItem{Name: "Cheese", Unit: "g", Quantity: dec("500"), CriticalQuantity: dec("300")}
	require.NoError(t, h.db.Create(&cheese).Error)

	pizza := item("pizza", 2)
	pizza.Ingredients = models.Ingredients{
		{Name: "cheese", Quantity: dec("100"), Unit: "g"},
		{Name: "basil", Quantity: dec("2"), Unit: "g"},
	}
	pizza.Extras = models.Ingredients{{Name: "CHEESE", Quantity: dec("25"), Unit: "g"}}
	order := h.tableOrder(t, "T1", pizza)

	ledger := NewStockLedger()
	var changes StockChanges
	err := database.Transact(context.Background(), h.db, func(tx *gorm.DB) error {
		var err error
		changes, err = ledger.DeductForOrder(tx, order.ID, testNow)
		return err
	})
	require.NoError(t, err)

	assert.Equal(t, []uint{cheese.ID}, changes.Updated)
	assert.Equal(t, []uint{cheese.ID}, changes.Low)

	var stock models.StockItem
	require.NoError(t, h.db.First(&stock, cheese.ID).Error)
	assert.True(t, dec("250").Equal(stock.Quantity), "got %s", stock.Quantity)
	assert.True(t, stock.IsLow())

	items := h.itemsOf(t, order.ID)
	require.NotNil(t, items[0].StockDeductedAt)

	err = database.Transact(context.Background(), h.db, func(tx *gorm.DB) error {
		var err error
		changes, err = ledger.DeductForOrder(tx, order.ID, testNow)
		return err
	})
	require.NoError(t, err)
	assert.Empty(t, changes.Updated)
}

func TestPayThenCloseDeductsOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	rice := models.StockItem{Name: "rice", Unit: "kg", Quantity: dec("5")}
	require.NoError(t, h.db.Create(&rice).Error)

	bowl := item("bowl", 1)
	bowl.Ingredients = models.Ingredients{{Name: "Rice", Quantity: dec("1"), Unit: "kg"}}
	order := h.tableOrder(t, "T1", bowl)

	_, err := h.payments.PayFull(ctx, order.ID, "cash", dec("10"))
	require.NoError(t, err)
	require.NoError(t, h.ledger.Close(ctx, order.ID))

	var stock models.StockItem
	require.NoError(t, h.db.First(&stock, rice.ID).Error)
	assert.True(t, dec("4").Equal(stock.Quantity), "got %s", stock.Quantity)
}

func TestSetStatusPaidDeductsStock(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	rice := models.StockItem{Name: "rice", Unit: "kg", Quantity: dec("5")}
	require.NoError(t, h.db.Create(&rice).Error)

	bowl := item("bowl", 1)
	bowl.Ingredients = models.Ingredients{{Name: "Rice", Quantity: dec("1"), Unit: "kg"}}
	order := h.tableOrder(t, "T1", bowl)
	h.rec.Reset()

	_, err := h.ledger.SetStatus(ctx, order.ID, StatusUpdate{Status: models.OrderStatusPaid})
	require.NoError(t, err)

	var stock models.StockItem
	require.NoError(t, h.db.First(&stock, rice.ID).Error)
	assert.True(t, dec("4").Equal(stock.Quantity), "got %s", stock.Quantity)
	msg, ok := h.rec.Find(EventStockUpdated)
	require.True(t, ok)
	assert.Equal(t, StockPayload{StockID: rice.ID}, msg.Data)

	_, err = h.ledger.SetStatus(ctx, order.ID, StatusUpdate{Status: models.OrderStatusClosed})
	require.NoError(t, err)
	require.NoError(t, h.db.First(&stock, rice.ID).Error)
	assert.True(t, dec("4").Equal(stock.Quantity), "got %s", stock.Quantity)
}
