package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"booking_app_echo/internal/config"
	"booking_app_echo/internal/handlers"
	appMiddleware "booking_app_echo/internal/middleware"
	"booking_app_echo/internal/services"
)

func main() {
	cfg := config.Load()

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL not set")
	}

	// Initialize Database
	db, err := services.InitDB(cfg.DatabaseDriver, cfg.DatabaseURL, cfg.IsDev())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer services.CloseDB(db)

	if err := services.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run database migrations: %v", err)
	}

	// Redis is optional: without it event lookups hit the database and polling is not rate limited
	var cache *services.RedisCache
	if cfg.RedisURL != "" {
		cache, err = services.NewRedisCache(cfg.RedisURL)
		if err != nil {
			log.Printf("Warning: Redis unavailable, continuing without cache: %v", err)
			cache = nil
		} else {
			defer cache.Close()
		}
	}

	// Firebase is optional: without it operators authenticate with bearer tokens only
	deps := handlers.Deps{Config: cfg, DB: db, Cache: cache}
	authClient, err := services.InitFirebase(context.Background(), cfg.FirebaseCredentialsPath)
	if err != nil {
		log.Printf("Warning: Firebase initialization failed: %v", err)
		log.Println("Session login will not work until valid credentials are provided")
	} else {
		deps.Issuer = authClient
		deps.Verifier = authClient
	}

	gateway, err := services.NewGateway(cfg)
	if err != nil {
		log.Fatalf("Failed to configure payment provider: %v", err)
	}

	store := services.NewPaymentStore(db)
	events := services.NewEventLookup(store, cache)
	reconciler := services.NewReconciler(store, gateway, services.NewNotifier(cfg), events, cfg.GatewayTimeout)
	deps.Payments = services.NewPaymentService(store, reconciler, events, cfg)

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = appMiddleware.CustomErrorHandler

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	handlers.RegisterRoutes(e, deps)

	go func() {
		log.Printf("Server starting on port %s (payment provider: %s)", cfg.Port, gateway.Name())
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
}
