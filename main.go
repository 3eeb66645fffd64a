package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"food-marketplace-api/cart"
	"food-marketplace-api/config"
	"food-marketplace-api/geocode"
	"food-marketplace-api/handlers"
	"food-marketplace-api/notify"
	"food-marketplace-api/orders"
	"food-marketplace-api/pricing"
	"food-marketplace-api/promotions"
	"food-marketplace-api/routes"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	config.Load()
	config.InitLogger()
	defer config.Log.Sync()
	log := config.Log

	// Set Gin mode
	if os.Getenv("GIN_MODE") == "" && os.Getenv("ENV") != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	config.InitDB()

	// Notification transport is optional: without REDIS_ADDR the dispatcher
	// drops events and the order path keeps working.
	var publisher notify.Publisher
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		redisDB, _ := strconv.Atoi(config.GetEnv("REDIS_DB", "0"))
		rp, err := notify.NewRedisPublisher(addr, os.Getenv("REDIS_PASSWORD"), redisDB, log)
		if err != nil {
			log.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer rp.Close()
		publisher = rp
	} else {
		log.Warn("REDIS_ADDR not set, order notifications disabled")
	}
	dispatcher := notify.NewDispatcher(publisher, log)

	resolver := pricing.NewResolver(config.DB)
	cartSvc := cart.NewService(config.DB, resolver, log)

	// Geocoding is optional too: nil disables the delivery-address lookup.
	var geoSvc *geocode.Service
	if base := os.Getenv("GEOCODER_BASE_URL"); base != "" {
		rps, _ := strconv.ParseFloat(config.GetEnv("GEOCODER_RPS", "1"), 64)
		geoSvc = geocode.NewService(geocode.NewNominatimResolver(base), rps, log)
	}

	orderSvc := orders.NewService(config.DB, resolver, dispatcher, geoSvc, log)
	handlers.Init(cartSvc, orderSvc)

	// Daily promotion-expiry sweep, non-overlapping
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sweeper := promotions.NewSweeper(config.DB, 24*time.Hour, log)
	sweeper.Start(ctx)
	defer sweeper.Stop()

	r := gin.Default()

	// CORS middleware for frontend integration
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "Food Marketplace API",
			"version": "1.0.0",
		})
	})

	routes.SetupRoutes(r)

	port := config.GetEnv("PORT", "8080")
	srv := &http.Server{Addr: ":" + port, Handler: r}

	go func() {
		log.Info("server running", zap.String("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown failed", zap.Error(err))
	}
	log.Info("server stopped gracefully")
}
