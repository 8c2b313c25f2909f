package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-pos/broker"
	"github.com/yeremiapane/restaurant-pos/config"
	"github.com/yeremiapane/restaurant-pos/database"
	"github.com/yeremiapane/restaurant-pos/kds"
	"github.com/yeremiapane/restaurant-pos/middlewares"
	"github.com/yeremiapane/restaurant-pos/router"
	"github.com/yeremiapane/restaurant-pos/services"
	"github.com/yeremiapane/restaurant-pos/utils"
)

func main() {
	cfg := config.Load()
	utils.SetLevel(cfg.LogLevel)
	utils.ConfigureJWT(cfg.JWTSecret, cfg.TokenExpires)

	if cfg.GinMode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		utils.ErrorLogger.Fatalf("Failed to AutoMigrate: %v", err)
	}
	utils.InfoLogger.Println("AutoMigrate completed.")

	hub := kds.NewHub()
	publishers := services.Publishers{hub}
	if cfg.AMQPURL != "" {
		pub, err := broker.Dial(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			utils.ErrorLogger.Errorf("Broker unavailable, events stay local: %v", err)
		} else {
			defer pub.Close()
			publishers = append(publishers, pub)
			utils.InfoLogger.Printf("Publishing events to exchange %s", cfg.AMQPExchange)
		}
	}

	stock := services.NewStockLedger()
	ledger := services.NewOrderLedger(db, publishers, stock)
	locations := services.NewTTLLocationCache(cfg.LocationTTL, cfg.LocationCapacity)

	locations.StartJanitor(time.Minute)
	defer locations.Stop()

	sweeper := services.NewTabSweeper(db, ledger)
	sweeper.Interval = cfg.TabSweepInterval
	sweeper.Grace = cfg.TabSweepGrace
	sweeper.Start()
	defer sweeper.Stop()

	rateLimiter := middlewares.NewRateLimiter(cfg.RateLimitPerSecond, cfg.RateLimitBurst)
	stopHousekeeping := startHousekeeping(rateLimiter)
	defer close(stopHousekeeping)

	r := router.SetupRouter(router.Deps{
		DB:          db,
		Hub:         hub,
		Ledger:      ledger,
		Kitchen:     services.NewKitchenScheduler(db, publishers),
		Payments:    services.NewPaymentReconciler(db, publishers, stock),
		Tables:      services.NewTableAllocator(db, publishers),
		Drivers:     services.NewDriverDesk(db, publishers, locations),
		Register:    services.NewCashRegister(db),
		RateLimiter: rateLimiter,
		CORSOrigin:  cfg.CORSOrigin,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}
	go func() {
		utils.InfoLogger.Printf("Listening on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.ErrorLogger.Fatal(err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	utils.InfoLogger.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		utils.ErrorLogger.Errorf("Server forced to shutdown: %v", err)
	}
}

// startHousekeeping prunes expired blacklisted tokens and idle rate-limit
// buckets every few minutes.
func startHousekeeping(limiter *middlewares.RateLimiter) chan struct{} {
	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				tokens := utils.PruneBlacklist()
				clients := limiter.Cleanup()
				utils.InfoLogger.WithField("tokens", tokens).WithField("clients", clients).Debug("housekeeping done")
			case <-stop:
				return
			}
		}
	}()
	return stop
}
