package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"booking_app_echo/internal/config"
	"booking_app_echo/internal/services"
)

// reconcile re-synchronizes checkouts with the payment provider from the command line.
//
//	reconcile -checkout ck_123
//	reconcile -stale 30m
//	reconcile -resend ck_123
func main() {
	checkoutID := flag.String("checkout", "", "Checkout id to reconcile")
	stale := flag.Duration("stale", 0, "Reconcile every active checkout older than this duration")
	resend := flag.String("resend", "", "Checkout id whose confirmation should be sent again")
	timeout := flag.Duration("timeout", 2*time.Minute, "Overall timeout")
	flag.Parse()

	if *checkoutID == "" && *stale == 0 && *resend == "" {
		fmt.Println("Usage: reconcile -checkout <id> | -stale <duration> | -resend <id>")
		flag.PrintDefaults()
		os.Exit(1)
	}

	cfg := config.Load()
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	db, err := services.InitDB(cfg.DatabaseDriver, cfg.DatabaseURL, false)
	if err != nil {
		log.Fatalf("Failed to connect DB: %v", err)
	}
	defer services.CloseDB(db)

	gateway, err := services.NewGateway(cfg)
	if err != nil {
		log.Fatalf("Failed to configure payment provider: %v", err)
	}

	store := services.NewPaymentStore(db)
	reconciler := services.NewReconciler(store, gateway, services.NewNotifier(cfg), nil, cfg.GatewayTimeout)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	ids := []string{}
	if *checkoutID != "" {
		ids = append(ids, *checkoutID)
	}
	if *stale > 0 {
		staleIDs, err := store.StaleCheckoutIDs(ctx, time.Now().UTC().Add(-*stale), 0)
		if err != nil {
			log.Fatalf("Failed to list stale checkouts: %v", err)
		}
		ids = append(ids, staleIDs...)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	failed := 0
	for _, id := range ids {
		res, err := reconciler.Reconcile(ctx, id)
		if err != nil {
			log.Printf("[Reconcile] %s: %v", id, err)
			failed++
			continue
		}
		_ = enc.Encode(res)
	}

	if *resend != "" {
		if err := reconciler.ResendConfirmation(ctx, *resend); err != nil {
			log.Printf("[Notify] resend %s: %v", *resend, err)
			failed++
		} else {
			fmt.Printf("Confirmation of %s sent\n", *resend)
		}
	}

	if failed > 0 {
		os.Exit(1)
	}
}
