package controllers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/restaurant-pos/database"
	"github.com/yeremiapane/restaurant-pos/kds"
	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/router"
	"github.com/yeremiapane/restaurant-pos/services"
	"github.com/yeremiapane/restaurant-pos/utils"
	"gorm.io/gorm"
)

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testEnv struct {
	db     *gorm.DB
	rec    *kds.Recorder
	router *gin.Engine
}

// setupTestDB opens a private in-memory SQLite database per test.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.Open(database.DriverSQLite, "file:ctl_"+name+"?mode=memory&cache=shared")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func setupRouterForTest(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	utils.SetLevel("error")

	db := setupTestDB(t)
	rec := &kds.Recorder{}
	stock := services.NewStockLedger()
	r := router.SetupRouter(router.Deps{
		DB:       db,
		Ledger:   services.NewOrderLedger(db, rec, stock),
		Kitchen:  services.NewKitchenScheduler(db, rec),
		Payments: services.NewPaymentReconciler(db, rec, stock),
		Tables:   services.NewTableAllocator(db, rec),
		Drivers:  services.NewDriverDesk(db, rec, services.NewTTLLocationCache(time.Minute, 10)),
		Register: services.NewCashRegister(db),
	})
	return &testEnv{db: db, rec: rec, router: r}
}

func tokenFor(t *testing.T, userID uint, role string) string {
	t.Helper()
	token, err := utils.GenerateToken(userID, role)
	require.NoError(t, err)
	return token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
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
	e.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func decode(t *testing.T, env envelope, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.Data, v), string(env.Data))
}

// openRegister opens the cash register as a cashier.
func (e *testEnv) openRegister(t *testing.T) {
	t.Helper()
	w, _ := e.do(t, http.MethodPost, "/api/register/open", tokenFor(t, 1, models.RoleCashier), nil)
	require.Equal(t, http.StatusCreated, w.Code)
}

func (e *testEnv) createOrder(t *testing.T, body map[string]interface{}) models.Order {
	t.Helper()
	w, env := e.do(t, http.MethodPost, "/api/orders", tokenFor(t, 1, models.RoleCashier), body)
	require.Equal(t, http.StatusCreated, w.Code, env.Message)
	var order models.Order
	decode(t, env, &order)
	return order
}

func lineItem(uniqueID string, qty int, confirmed bool) map[string]interface{} {
	return map[string]interface{}{
		"unique_id": uniqueID,
		"name":      "Nasi Goreng",
		"quantity":  qty,
		"price":     "25000",
		"confirmed": confirmed,
	}
}
