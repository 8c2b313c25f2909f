package controllers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/services"
)

func TestKitchenFlowThroughAPI(t *testing.T) {
	env := setupRouterForTest(t)
	env.openRegister(t)
	chef := tokenFor(t, 7, models.RoleChef)
	order := env.createOrder(t, map[string]interface{}{
		"order_type":   "table",
		"table_number": "K1",
		"items":        []interface{}{lineItem("k-1", 1, true), lineItem("k-2", 1, true)},
	})
	ids := []uint{order.Items[0].ID, order.Items[1].ID}

	w, resp := env.do(t, http.MethodGet, "/api/kitchen/queue", chef, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var queue []models.Order
	decode(t, resp, &queue)
	require.Len(t, queue, 1)
	assert.Len(t, queue[0].Items, 2)

	w, resp = env.do(t, http.MethodPatch, "/api/kitchen/items/status", chef, map[string]interface{}{
		"item_ids": ids,
		"status":   models.KitchenStatusPreparing,
	})
	require.Equal(t, http.StatusOK, w.Code, resp.Message)
	var res struct {
		Updated int `json:"updated"`
	}
	decode(t, resp, &res)
	assert.Equal(t, 2, res.Updated)

	w, resp = env.do(t, http.MethodGet, "/api/kitchen/preparing", chef, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var preparing []string
	decode(t, resp, &preparing)
	assert.ElementsMatch(t, []string{"k-1", "k-2"}, preparing)

	// moving backwards is ignored
	w, resp = env.do(t, http.MethodPatch, "/api/kitchen/items/status", chef, map[string]interface{}{
		"item_ids": ids,
		"status":   models.KitchenStatusNew,
	})
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, resp, &res)
	assert.Equal(t, 0, res.Updated)

	w, _ = env.do(t, http.MethodPatch, "/api/kitchen/items/status", chef, map[string]interface{}{
		"item_ids": ids,
		"status":   models.KitchenStatusReady,
	})
	require.Equal(t, http.StatusOK, w.Code)
	msg, ok := env.rec.Find(services.EventOrderReady)
	require.True(t, ok)
	assert.Equal(t, services.OrderIDsPayload{OrderIDs: []uint{order.ID}}, msg.Data)

	w, resp = env.do(t, http.MethodPatch, "/api/kitchen/items/reset", chef, map[string]interface{}{"item_ids": ids})
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, resp, &res)
	assert.Equal(t, 2, res.Updated)
}

func TestKitchenStatusErrors(t *testing.T) {
	env := setupRouterForTest(t)
	chef := tokenFor(t, 7, models.RoleChef)

	w, _ := env.do(t, http.MethodPatch, "/api/kitchen/items/status", chef, map[string]interface{}{
		"item_ids": []uint{1},
		"status":   "burnt",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = env.do(t, http.MethodPatch, "/api/kitchen/items/status", chef, map[string]interface{}{
		"item_ids": []uint{424242},
		"status":   models.KitchenStatusReady,
	})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = env.do(t, http.MethodGet, "/api/kitchen/queue", tokenFor(t, 3, models.RoleDriver), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
