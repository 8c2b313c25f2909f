package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-pos/controllers"
	"github.com/yeremiapane/restaurant-pos/kds"
	"github.com/yeremiapane/restaurant-pos/middlewares"
	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/services"
	"gorm.io/gorm"
)

// Deps is everything the HTTP layer needs, built once in main.
type Deps struct {
	DB          *gorm.DB
	Hub         *kds.Hub
	Ledger      *services.OrderLedger
	Kitchen     *services.KitchenScheduler
	Payments    *services.PaymentReconciler
	Tables      *services.TableAllocator
	Drivers     *services.DriverDesk
	Register    *services.CashRegister
	RateLimiter *middlewares.RateLimiter
	CORSOrigin  string
}

const (
	admin   = models.RoleAdmin
	cashier = models.RoleCashier
	chef    = models.RoleChef
	driver  = models.RoleDriver
)

func SetupRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middlewares.LoggerMiddleware())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddlewares(d.CORSOrigin))
	if d.RateLimiter != nil {
		r.Use(d.RateLimiter.RateLimit())
	}

	userCtrl := controllers.NewUserController(d.DB)
	orderCtrl := controllers.NewOrderController(d.Ledger)
	kitchenCtrl := controllers.NewKitchenController(d.Kitchen)
	paymentCtrl := controllers.NewPaymentController(d.Payments)
	tableCtrl := controllers.NewTableController(d.Tables)
	driverCtrl := controllers.NewDriverController(d.Tables, d.Drivers)
	registerCtrl := controllers.NewRegisterController(d.Register)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": true, "message": "ok"})
	})

	if d.Hub != nil {
		kdsCtrl := controllers.NewKDSController(d.Hub)
		r.GET("/ws", middlewares.WebSocketAuthMiddleware(), kdsCtrl.Connect)
	}

	api := r.Group("/api")
	api.POST("/login", middlewares.NewStrictRateLimiter().RateLimit(), userCtrl.Login)

	auth := api.Group("")
	auth.Use(middlewares.AuthMiddleware())
	{
		auth.POST("/logout", userCtrl.Logout)
		auth.GET("/profile", userCtrl.GetProfile)

		// Users
		auth.GET("/users", middlewares.RoleCheck(admin), userCtrl.GetAllUsers)
		auth.POST("/users", middlewares.RoleCheck(admin), userCtrl.Register)

		// Cash register
		auth.GET("/register", middlewares.RoleCheck(cashier), registerCtrl.Status)
		auth.POST("/register/open", middlewares.RoleCheck(cashier), registerCtrl.Open)
		auth.POST("/register/close", middlewares.RoleCheck(cashier), registerCtrl.Close)

		// Orders
		orders := auth.Group("/orders")
		orders.GET("", middlewares.RoleCheck(cashier, chef, driver), orderCtrl.GetAllOrders)
		orders.POST("", middlewares.RoleCheck(cashier), orderCtrl.CreateOrder)
		orders.DELETE("/settled", middlewares.RoleCheck(admin), orderCtrl.PurgeSettled)
		orders.GET("/:order_id", middlewares.RoleCheck(cashier, chef, driver), orderCtrl.GetOrderByID)
		orders.PUT("/:order_id/items", middlewares.RoleCheck(cashier), orderCtrl.UpsertItems)
		orders.PATCH("/:order_id/status", middlewares.RoleCheck(cashier), orderCtrl.UpdateOrderStatus)
		orders.POST("/:order_id/close", middlewares.RoleCheck(cashier), orderCtrl.CloseOrder)
		orders.POST("/:order_id/reopen", middlewares.RoleCheck(cashier), orderCtrl.ReopenOrder)
		orders.POST("/:order_id/reset-if-empty", middlewares.RoleCheck(cashier), orderCtrl.ResetIfEmpty)
		orders.POST("/:order_id/confirm-online", middlewares.RoleCheck(cashier), orderCtrl.ConfirmOnline)

		// Payments
		orders.POST("/:order_id/pay", middlewares.RoleCheck(cashier, driver), paymentCtrl.PayOrder)
		orders.POST("/:order_id/sub-orders", middlewares.RoleCheck(cashier), paymentCtrl.CreateSubOrder)
		orders.GET("/:order_id/sub-orders", middlewares.RoleCheck(cashier), paymentCtrl.GetSubOrders)
		orders.PATCH("/:order_id/payment-method", middlewares.RoleCheck(cashier), paymentCtrl.ChangePaymentMethod)
		orders.GET("/:order_id/payment-changes", middlewares.RoleCheck(cashier), paymentCtrl.GetPaymentChanges)
		auth.POST("/payments/split", middlewares.RoleCheck(cashier), paymentCtrl.SplitPayment)
		auth.GET("/receipts/:receipt_id/methods", middlewares.RoleCheck(cashier), paymentCtrl.GetReceiptMethods)

		// Tables
		orders.POST("/:order_id/move", middlewares.RoleCheck(cashier), tableCtrl.MoveTable)
		orders.POST("/:order_id/merge", middlewares.RoleCheck(cashier), tableCtrl.MergeTable)

		// Kitchen
		kitchen := auth.Group("/kitchen", middlewares.RoleCheck(chef))
		kitchen.GET("/queue", kitchenCtrl.GetQueue)
		kitchen.GET("/preparing", kitchenCtrl.GetPreparing)
		kitchen.PATCH("/items/status", kitchenCtrl.UpdateItemsStatus)
		kitchen.PATCH("/items/reset", kitchenCtrl.ResetItemsStatus)

		// Drivers
		orders.POST("/:order_id/claim", middlewares.RoleCheck(driver), driverCtrl.ClaimOrder)
		orders.PATCH("/:order_id/driver-status", middlewares.RoleCheck(driver), driverCtrl.UpdateDriverStatus)
		drivers := auth.Group("/drivers")
		drivers.POST("/location", middlewares.RoleCheck(driver), driverCtrl.UpdateLocation)
		drivers.GET("/locations", middlewares.RoleCheck(cashier), driverCtrl.GetLocations)
		drivers.GET("/:driver_id/location", middlewares.RoleCheck(cashier, driver), driverCtrl.GetLocation)
		drivers.GET("/:driver_id/report", middlewares.RoleCheck(cashier, driver), driverCtrl.GetReport)
	}

	return r
}
