package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/restaurant-pos/models"
)

func TestEstimateOrderSeconds(t *testing.T) {
	tests := []struct {
		name  string
		lines []PrepLine
		batch int
		want  int
	}{
		{
			name:  "slowest product sets the pace",
			lines: []PrepLine{{ProductID: 1, PrepSeconds: 300, Quantity: 1}, {ProductID: 2, PrepSeconds: 180, Quantity: 2}},
			batch: 1,
			want:  300,
		},
		{
			name:  "quantities are summed per product",
			lines: []PrepLine{{ProductID: 1, PrepSeconds: 100, Quantity: 1}, {ProductID: 1, PrepSeconds: 100, Quantity: 2}},
			batch: 1,
			want:  340,
		},
		{
			name: "three products stretch by 1.2",
			lines: []PrepLine{
				{ProductID: 1, PrepSeconds: 300, Quantity: 1},
				{ProductID: 2, PrepSeconds: 60, Quantity: 1},
				{ProductID: 3, PrepSeconds: 60, Quantity: 1},
			},
			batch: 1,
			want:  360,
		},
		{
			name:  "batch penalty per other order",
			lines: []PrepLine{{ProductID: 1, PrepSeconds: 300, Quantity: 1}},
			batch: 3,
			want:  540,
		},
		{
			name:  "missing prep time counts as a minute",
			lines: []PrepLine{{ProductID: 1, PrepSeconds: 0, Quantity: 1}},
			batch: 1,
			want:  60,
		},
		{
			name:  "rounding to the nearest second",
			lines: []PrepLine{{ProductID: 1, PrepSeconds: 101, Quantity: 1}, {ProductID: 2, PrepSeconds: 1, Quantity: 1}, {ProductID: 3, PrepSeconds: 1, Quantity: 1}},
			batch: 1,
			want:  121,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EstimateOrderSeconds(tt.lines, tt.batch))
		})
	}
}

func TestSetKitchenStatusEstimatesReadyTime(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a := h.product(t, "Lasagna", 300)
	b := h.product(t, "Salad", 180)

	itemA := item("a", 1)
	itemA.ProductID = &a
	itemB := item("b", 2)
	itemB.ProductID = &b
	order := h.tableOrder(t, "T1", itemA, itemB, item("bread", 1))
	items := h.itemsOf(t, order.ID)

	n, err := h.kitchen.SetKitchenStatus(ctx, []uint{items[0].ID, items[1].ID}, models.KitchenStatusPreparing)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got := h.reload(t, order.ID)
	require.NotNil(t, got.EstimatedReadyAt)
	require.NotNil(t, got.PrepStartedAt)
	assert.WithinDuration(t, testNow.Add(300*time.Second), *got.EstimatedReadyAt, time.Second)
	assert.WithinDuration(t, testNow, *got.PrepStartedAt, time.Second)

	h.clock = testNow.Add(time.Minute)
	n, err = h.kitchen.SetKitchenStatus(ctx, []uint{items[2].ID}, models.KitchenStatusPreparing)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got = h.reload(t, order.ID)
	assert.WithinDuration(t, testNow, *got.PrepStartedAt, time.Second, "first start is kept")
	assert.WithinDuration(t, h.clock.Add(300*time.Second), *got.EstimatedReadyAt, time.Second)
}

func TestSetKitchenStatusBatchPenalty(t *testing.T) {
	h := newHarness(t)
	p := h.product(t, "Steak", 300)

	first := item("s1", 1)
	first.ProductID = &p
	second := item("s2", 1)
	second.ProductID = &p
	o1 := h.tableOrder(t, "T1", first)
	o2 := h.tableOrder(t, "T2", second)

	ids := []uint{h.itemsOf(t, o1.ID)[0].ID, h.itemsOf(t, o2.ID)[0].ID}
	_, err := h.kitchen.SetKitchenStatus(context.Background(), ids, models.KitchenStatusPreparing)
	require.NoError(t, err)

	for _, id := range []uint{o1.ID, o2.ID} {
		got := h.reload(t, id)
		require.NotNil(t, got.EstimatedReadyAt)
		assert.WithinDuration(t, testNow.Add(420*time.Second), *got.EstimatedReadyAt, time.Second)
	}
}

func TestSetKitchenStatusBatchCountsUnmovedOrders(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.product(t, "Steak", 300)

	first := item("s1", 1)
	first.ProductID = &p
	second := item("s2", 1)
	second.ProductID = &p
	o1 := h.tableOrder(t, "T1", first)
	o2 := h.tableOrder(t, "T2", second)

	firstID := h.itemsOf(t, o1.ID)[0].ID
	_, err := h.kitchen.SetKitchenStatus(ctx, []uint{firstID}, models.KitchenStatusPreparing)
	require.NoError(t, err)

	n, err := h.kitchen.SetKitchenStatus(ctx, []uint{firstID, h.itemsOf(t, o2.ID)[0].ID}, models.KitchenStatusPreparing)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got := h.reload(t, o2.ID)
	require.NotNil(t, got.EstimatedReadyAt)
	assert.WithinDuration(t, testNow.Add(420*time.Second), *got.EstimatedReadyAt, time.Second)
	got = h.reload(t, o1.ID)
	assert.WithinDuration(t, testNow.Add(300*time.Second), *got.EstimatedReadyAt, time.Second, "unmoved order keeps its estimate")
}

func TestSetKitchenStatusNeverMovesBackwards(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	order := h.tableOrder(t, "T1", item("a", 1))
	id := h.itemsOf(t, order.ID)[0].ID

	n, err := h.kitchen.SetKitchenStatus(ctx, []uint{id}, models.KitchenStatusReady)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	h.rec.Reset()
	n, err = h.kitchen.SetKitchenStatus(ctx, []uint{id}, models.KitchenStatusPreparing)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Empty(t, h.rec.Events())
	assert.Equal(t, models.KitchenStatusReady, h.itemsOf(t, order.ID)[0].KitchenStatus)

	n, err = h.kitchen.SetKitchenStatus(ctx, []uint{id}, models.KitchenStatusReady)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestSetKitchenStatusUnknownItemAbortsAll(t *testing.T) {
	h := newHarness(t)
	order := h.tableOrder(t, "T1", item("a", 1))
	id := h.itemsOf(t, order.ID)[0].ID

	_, err := h.kitchen.SetKitchenStatus(context.Background(), []uint{id, 9999}, models.KitchenStatusPreparing)
	assert.ErrorIs(t, err, ErrItemNotFound)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Equal(t, models.KitchenStatusNew, h.itemsOf(t, order.ID)[0].KitchenStatus)
	assert.Nil(t, h.reload(t, order.ID).EstimatedReadyAt)
}

func TestSetKitchenStatusValidation(t *testing.T) {
	h := newHarness(t)
	_, err := h.kitchen.SetKitchenStatus(context.Background(), []uint{1}, "burnt")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = h.kitchen.SetKitchenStatus(context.Background(), nil, models.KitchenStatusReady)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSetKitchenStatusReadyAndDeliveredEvents(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	order := h.tableOrder(t, "T1", item("a", 1), item("b", 1))
	items := h.itemsOf(t, order.ID)
	ids := []uint{items[0].ID, items[1].ID}

	_, err := h.kitchen.SetKitchenStatus(ctx, ids, models.KitchenStatusPreparing)
	require.NoError(t, err)
	require.NotNil(t, h.reload(t, order.ID).EstimatedReadyAt)

	h.rec.Reset()
	_, err = h.kitchen.SetKitchenStatus(ctx, ids, models.KitchenStatusReady)
	require.NoError(t, err)
	assert.Equal(t, []string{EventOrdersUpdated, EventOrderReady}, h.rec.Events())
	msg, _ := h.rec.Find(EventOrderReady)
	assert.Equal(t, OrderIDsPayload{OrderIDs: []uint{order.ID}}, msg.Data)
	assert.Nil(t, h.reload(t, order.ID).EstimatedReadyAt)

	h.rec.Reset()
	_, err = h.kitchen.SetKitchenStatus(ctx, ids[:1], models.KitchenStatusDelivered)
	require.NoError(t, err)
	assert.Equal(t, []string{EventOrdersUpdated}, h.rec.Events())
	assert.Nil(t, h.reload(t, order.ID).KitchenDeliveredAt)

	h.rec.Reset()
	_, err = h.kitchen.SetKitchenStatus(ctx, ids[1:], models.KitchenStatusDelivered)
	require.NoError(t, err)
	assert.Equal(t, []string{EventOrdersUpdated, EventOrderDelivered}, h.rec.Events())
	assert.NotNil(t, h.reload(t, order.ID).KitchenDeliveredAt)
}

func TestResetKitchenStatus(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	order := h.tableOrder(t, "T1", item("a", 1))
	id := h.itemsOf(t, order.ID)[0].ID

	_, err := h.kitchen.SetKitchenStatus(ctx, []uint{id}, models.KitchenStatusDelivered)
	require.NoError(t, err)
	require.NotNil(t, h.reload(t, order.ID).KitchenDeliveredAt)

	n, err := h.kitchen.ResetKitchenStatus(ctx, []uint{id})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, models.KitchenStatusNew, h.itemsOf(t, order.ID)[0].KitchenStatus)
	assert.Nil(t, h.reload(t, order.ID).KitchenDeliveredAt)
}

func TestQueueAndPreparing(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	cooked := item("cooked", 1)
	cooked.Confirmed = true
	draft := item("draft", 1)
	first := h.tableOrder(t, "T1", cooked, draft)

	other := item("other", 1)
	other.Confirmed = true
	second := h.tableOrder(t, "T2", other)

	queue, err := h.kitchen.Queue(ctx)
	require.NoError(t, err)
	require.Len(t, queue, 2)
	assert.Equal(t, first.ID, queue[0].ID)
	require.Len(t, queue[0].Items, 1)
	assert.Equal(t, "cooked", queue[0].Items[0].UniqueID)
	assert.Equal(t, second.ID, queue[1].ID)

	_, err = h.kitchen.SetKitchenStatus(ctx, []uint{h.itemsOf(t, second.ID)[0].ID}, models.KitchenStatusPreparing)
	require.NoError(t, err)
	preparing, err := h.kitchen.Preparing(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"other"}, preparing)
}
