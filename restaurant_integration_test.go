package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/restaurant-pos/database"
	"github.com/yeremiapane/restaurant-pos/kds"
	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/router"
	"github.com/yeremiapane/restaurant-pos/services"
	"github.com/yeremiapane/restaurant-pos/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func TestMain(m *testing.M) {
	utils.InitLogger()
	utils.SetLevel("error")
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type apiResponse struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// TestEndToEndIntegration walks one table order through the whole flow:
// login, register open, order with recipe, kitchen, payment, close.
func TestEndToEndIntegration(t *testing.T) {
	db := setupTestDB(t)
	rec := &kds.Recorder{}
	r := setupRouter(db, rec)

	cashier := loginTest(t, r, db, "kasir@resto.test", models.RoleCashier)
	chef := loginTest(t, r, db, "chef@resto.test", models.RoleChef)

	call(t, r, http.MethodPost, "/api/register/open", cashier, nil, http.StatusCreated, nil)

	rice := models.StockItem{Name: "Rice", Unit: "kg", Quantity: decimal.NewFromInt(1), CriticalQuantity: decimal.RequireFromString("0.5")}
	require.NoError(t, db.Create(&rice).Error)
	product := models.Product{Name: "Nasi Goreng", Category: "main", Price: decimal.NewFromInt(25000), PrepSeconds: 300}
	require.NoError(t, db.Create(&product).Error)

	// create order
	var order models.Order
	call(t, r, http.MethodPost, "/api/orders", cashier, map[string]interface{}{
		"order_type":   "table",
		"table_number": "12",
		"items": []interface{}{map[string]interface{}{
			"unique_id":   "ng-1",
			"product_id":  product.ID,
			"name":        product.Name,
			"quantity":    2,
			"price":       "25000",
			"confirmed":   true,
			"ingredients": []interface{}{map[string]string{"ingredient": "rice", "quantity": "0.3", "unit": "kg"}},
		}},
	}, http.StatusCreated, &order)
	require.Len(t, order.Items, 1)
	assert.Equal(t, models.OrderStatusConfirmed, order.Status)

	var table models.Table
	require.NoError(t, db.First(&table, "number = ?", "12").Error)
	assert.True(t, table.IsOccupied)

	// kitchen
	itemIDs := []uint{order.Items[0].ID}
	for _, status := range []string{models.KitchenStatusPreparing, models.KitchenStatusReady, models.KitchenStatusDelivered} {
		call(t, r, http.MethodPatch, "/api/kitchen/items/status", chef, map[string]interface{}{
			"item_ids": itemIDs,
			"status":   status,
		}, http.StatusOK, nil)
	}
	for _, event := range []string{services.EventOrderReady, services.EventOrderDelivered} {
		_, ok := rec.Find(event)
		assert.True(t, ok, event)
	}

	var cooked models.Order
	call(t, r, http.MethodGet, fmt.Sprintf("/api/orders/%d", order.ID), cashier, nil, http.StatusOK, &cooked)
	assert.NotNil(t, cooked.PrepStartedAt)
	assert.NotNil(t, cooked.KitchenDeliveredAt)
	assert.Nil(t, cooked.EstimatedReadyAt)

	// payment deducts stock once
	call(t, r, http.MethodPost, fmt.Sprintf("/api/orders/%d/pay", order.ID), cashier, map[string]interface{}{
		"payment_method": "cash",
		"total":          "50000",
	}, http.StatusOK, nil)
	call(t, r, http.MethodPost, fmt.Sprintf("/api/orders/%d/close", order.ID), cashier, nil, http.StatusOK, nil)

	require.NoError(t, db.First(&rice, rice.ID).Error)
	assert.True(t, decimal.RequireFromString("0.4").Equal(rice.Quantity), rice.Quantity.String())
	low, ok := rec.Find(services.EventStockLow)
	require.True(t, ok)
	assert.Equal(t, services.StockPayload{StockID: rice.ID}, low.Data)

	require.NoError(t, db.First(&table, "number = ?", "12").Error)
	assert.False(t, table.IsOccupied)

	// the table can be used again
	call(t, r, http.MethodPost, "/api/orders", cashier, map[string]interface{}{
		"order_type":   "table",
		"table_number": "12",
	}, http.StatusCreated, nil)
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(database.DriverSQLite, "file:"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func setupRouter(db *gorm.DB, pub services.Publisher) *gin.Engine {
	stock := services.NewStockLedger()
	return router.SetupRouter(router.Deps{
		DB:       db,
		Ledger:   services.NewOrderLedger(db, pub, stock),
		Kitchen:  services.NewKitchenScheduler(db, pub),
		Payments: services.NewPaymentReconciler(db, pub, stock),
		Tables:   services.NewTableAllocator(db, pub),
		Drivers:  services.NewDriverDesk(db, pub, services.NewTTLLocationCache(time.Minute, 10)),
		Register: services.NewCashRegister(db),
	})
}

// loginTest seeds a user and logs in through the API.
func loginTest(t *testing.T, r *gin.Engine, db *gorm.DB, email, role string) string {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, db.Create(&models.User{Name: role, Email: email, Password: string(hashed), Role: role}).Error)

	var login struct {
		Token string `json:"token"`
	}
	call(t, r, http.MethodPost, "/api/login", "", map[string]string{
		"email":    email,
		"password": "password123",
	}, http.StatusOK, &login)
	require.NotEmpty(t, login.Token)
	return login.Token
}

func call(t *testing.T, r *gin.Engine, method, path, token string, body interface{}, wantCode int, out interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, wantCode, w.Code, "%s %s: %s", method, path, w.Body.String())

	if out != nil {
		var resp apiResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.NoError(t, json.Unmarshal(resp.Data, out))
	}
}
