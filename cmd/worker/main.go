package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"booking_app_echo/internal/config"
	"booking_app_echo/internal/services"
	"booking_app_echo/internal/tasks"
)

func main() {
	cfg := config.Load()

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL not set")
	}

	db, err := services.InitDB(cfg.DatabaseDriver, cfg.DatabaseURL, cfg.IsDev())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer services.CloseDB(db)

	gateway, err := services.NewGateway(cfg)
	if err != nil {
		log.Fatalf("Failed to configure payment provider: %v", err)
	}

	var cache *services.RedisCache
	if cfg.RedisURL != "" {
		if cache, err = services.NewRedisCache(cfg.RedisURL); err != nil {
			log.Printf("Warning: Redis unavailable, continuing without cache: %v", err)
			cache = nil
		} else {
			defer cache.Close()
		}
	}

	store := services.NewPaymentStore(db)
	reconciler := services.NewReconciler(store, gateway, services.NewNotifier(cfg), services.NewEventLookup(store, cache), cfg.GatewayTimeout)

	registry := tasks.NewRegistry()
	tasks.DefineTasks(registry, tasks.Deps{DB: db, Store: store, Reconciler: reconciler})
	runner := tasks.NewRunner(db, registry)

	interval := cfg.WorkerInterval
	if interval <= 0 {
		interval = time.Minute
	}

	log.Printf("[Worker] started, tasks: %v, interval %s", registry.Names(), interval)

	// Create context that cancels on interrupt
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	runner.ProcessDue(ctx)

	for {
		select {
		case <-ticker.C:
			runner.ProcessDue(ctx)
		case <-ctx.Done():
			log.Println("[Worker] Shutting down worker...")
			return
		}
	}
}
