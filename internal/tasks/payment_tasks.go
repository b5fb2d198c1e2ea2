package tasks

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"booking_app_echo/internal/models"
	"booking_app_echo/internal/services"
)

// ReconcileStaleCheckoutsTaskDef re-asks the provider about checkouts whose webhook
// never arrived and whose customer never came back to the return page
type ReconcileStaleCheckoutsTaskDef struct {
	store      *services.PaymentStore
	reconciler *services.Reconciler
}

// ReconcileStaleCheckoutsArgs defines the arguments of the sweep
type ReconcileStaleCheckoutsArgs struct {
	OlderThanMinutes int `json:"older_than_minutes"`
	Limit            int `json:"limit"`
}

// TaskID returns the unique identifier for this task
func (t *ReconcileStaleCheckoutsTaskDef) TaskID() string {
	return "reconcile_stale_checkouts"
}

// CreateTask builds a recurring ScheduledTask for the sweep, e.g. rule "FREQ=MINUTELY;INTERVAL=15"
func (t *ReconcileStaleCheckoutsTaskDef) CreateTask(args ReconcileStaleCheckoutsArgs, rule string) (*models.ScheduledTask, error) {
	return BuildScheduledTask(t.TaskID(), args, time.Now(), &rule, models.ScheduledTaskTypeRecurring, 1)
}

// HandleExecution reconciles every stale checkout. Per-checkout failures are counted, not fatal.
func (t *ReconcileStaleCheckoutsTaskDef) HandleExecution(ctx context.Context, task models.ScheduledTask) (map[string]interface{}, error) {
	olderThan := argInt(task, "older_than_minutes", 15)
	limit := argInt(task, "limit", 100)
	cutoff := time.Now().UTC().Add(-time.Duration(olderThan) * time.Minute)

	ids, err := t.store.StaleCheckoutIDs(ctx, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("list stale checkouts: %w", err)
	}

	var (
		paid, unchanged, failed int
		failures                []string
	)
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		res, err := t.reconciler.Reconcile(ctx, id)
		if err != nil {
			log.Printf("[Task: %s] checkout %s: %v", t.TaskID(), id, err)
			failed++
			failures = append(failures, fmt.Sprintf("%s: %v", id, err))
			continue
		}
		if res.Updated {
			paid++
		} else {
			unchanged++
		}
	}

	result := map[string]interface{}{
		"status":    "success",
		"checked":   len(ids),
		"paid":      paid,
		"unchanged": unchanged,
		"failed":    failed,
	}
	if failed > 0 {
		result["errors"] = failures
	}
	return result, nil
}

// ResendConfirmationTaskDef re-delivers the confirmation of a paid checkout on operator request
type ResendConfirmationTaskDef struct {
	db         *gorm.DB
	reconciler *services.Reconciler
}

// ResendConfirmationArgs defines the arguments of a resend
type ResendConfirmationArgs struct {
	CheckoutID   string `json:"checkout_id"`
	AttemptCount int    `json:"attempt_count"`
}

// TaskID returns the unique identifier for this task
func (t *ResendConfirmationTaskDef) TaskID() string {
	return "resend_payment_confirmation"
}

// CreateTask builds a one-time ScheduledTask due now
func (t *ResendConfirmationTaskDef) CreateTask(args ResendConfirmationArgs, maxAttempt int) (*models.ScheduledTask, error) {
	return BuildScheduledTask(t.TaskID(), args, time.Now(), nil, models.ScheduledTaskTypeOneTime, maxAttempt)
}

// HandleExecution sends the confirmation again. A delivery failure reschedules the task
// five minutes later until attempt_count reaches MaxAttempt; an unknown or unpaid
// checkout fails at once.
func (t *ResendConfirmationTaskDef) HandleExecution(ctx context.Context, task models.ScheduledTask) (map[string]interface{}, error) {
	checkoutID := argString(task, "checkout_id")
	if checkoutID == "" {
		return nil, fmt.Errorf("checkout_id not provided")
	}
	attempt := argInt(task, "attempt_count", 0)

	err := t.reconciler.ResendConfirmation(ctx, checkoutID)
	if err == nil {
		return map[string]interface{}{
			"status":      "success",
			"checkout_id": checkoutID,
		}, nil
	}
	if errors.Is(err, services.ErrUnknownCheckout) || errors.Is(err, services.ErrNotPaid) {
		return nil, err
	}

	maxRetries := task.MaxAttempt
	if attempt+1 >= maxRetries {
		log.Printf("Max attempts (%d) reached resending confirmation of %s", maxRetries, checkoutID)
		return nil, fmt.Errorf("max attempts reached: %w", err)
	}

	log.Printf("Resending confirmation of %s failed: %v. Rescheduling for attempt %d", checkoutID, err, attempt+1)
	retry, buildErr := BuildScheduledTask(t.TaskID(), ResendConfirmationArgs{
		CheckoutID:   checkoutID,
		AttemptCount: attempt + 1,
	}, time.Now().Add(5*time.Minute), nil, models.ScheduledTaskTypeOneTime, maxRetries)
	if buildErr == nil {
		buildErr = t.db.WithContext(ctx).Create(retry).Error
	}
	if buildErr != nil {
		log.Printf("Failed to create retry task: %v", buildErr)
	}

	return map[string]interface{}{
		"status":        "rescheduled",
		"checkout_id":   checkoutID,
		"attempt_count": attempt,
		"error":         err.Error(),
	}, nil
}
