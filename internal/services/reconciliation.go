package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"booking_app_echo/internal/models"
)

// EventSource resolves the event a group was booked for
type EventSource interface {
	Event(ctx context.Context, id string) (*models.Event, error)
}

// NotificationOutcome records what happened to the confirmation of a winning reconciliation
type NotificationOutcome struct {
	Sent bool  `json:"sent"`
	Err  error `json:"-"`
}

// ReconciliationResult is returned by every trigger (webhook, poll, operator, sweep)
type ReconciliationResult struct {
	CheckoutID        string               `json:"checkoutId"`
	Status            GatewayStatus        `json:"status"`
	AlreadyProcessed  bool                 `json:"alreadyProcessed"`
	Updated           bool                 `json:"updated"`
	ReservationsCount int                  `json:"reservationsCount"`
	Notification      *NotificationOutcome `json:"notification,omitempty"`
}

// Reconciler brings a reservation group in line with the provider's view of a checkout.
// It holds no lock: the conditional PAID update in the store decides which caller
// performed the transition and therefore sends the confirmation.
type Reconciler struct {
	store    *PaymentStore
	gateway  PaymentGateway
	notifier Notifier
	events   EventSource
	timeout  time.Duration
	now      func() time.Time
}

func NewReconciler(store *PaymentStore, gateway PaymentGateway, notifier Notifier, events EventSource, timeout time.Duration) *Reconciler {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if events == nil {
		events = store
	}
	return &Reconciler{
		store:    store,
		gateway:  gateway,
		notifier: notifier,
		events:   events,
		timeout:  timeout,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Event lets the store act as an EventSource
func (s *PaymentStore) Event(ctx context.Context, id string) (*models.Event, error) {
	return s.FindEvent(ctx, id)
}

// Gateway returns the provider this reconciler asks
func (r *Reconciler) Gateway() PaymentGateway {
	return r.gateway
}

// Reconcile fetches the authoritative status of a checkout and applies it at most once
func (r *Reconciler) Reconcile(ctx context.Context, checkoutID string) (*ReconciliationResult, error) {
	rows, err := r.store.TransactionsByCheckout(ctx, checkoutID)
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrUnknownCheckout
	}

	ids := reservationIDs(rows)
	reservations, err := r.store.ReservationsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load reservations: %w", err)
	}

	result := &ReconciliationResult{
		CheckoutID:        checkoutID,
		ReservationsCount: len(reservations),
	}

	if allPaid(reservations) {
		result.Status = GatewayStatusPaid
		result.AlreadyProcessed = true
		return result, nil
	}

	gctx, cancel := context.WithTimeout(ctx, r.timeout)
	details, err := r.gateway.GetCheckout(gctx, checkoutID)
	cancel()
	if err != nil {
		log.Printf("[Reconcile] gateway %s failed for %s: %v", r.gateway.Name(), checkoutID, err)
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	result.Status = details.Status

	tr, changes := MapGatewayStatus(details.Status)
	if !changes {
		return result, nil
	}

	at := r.now()
	var updated int64
	err = r.store.Transaction(ctx, func(tx *PaymentStore) error {
		if _, err := tx.ApplyCheckoutTransition(ctx, checkoutID, tr, details.TransactionID, []byte(details.Raw), at); err != nil {
			return fmt.Errorf("update transactions: %w", err)
		}
		if details.Status != GatewayStatusPaid {
			return nil
		}
		n, err := tx.MarkReservationsPaid(ctx, ids, checkoutID, details.TransactionID, at)
		if err != nil {
			return fmt.Errorf("mark reservations paid: %w", err)
		}
		updated = n
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[Reconcile] checkout %s -> %s (%d reservation(s) updated)", checkoutID, details.Status, updated)

	if updated > 0 {
		result.Updated = true
		result.Notification = r.notify(ctx, checkoutID, ids, details.TransactionID, at)
	}
	return result, nil
}

// notify sends the group confirmation. Failures are reported in the outcome only.
func (r *Reconciler) notify(ctx context.Context, checkoutID string, ids []string, transactionID string, paidAt time.Time) *NotificationOutcome {
	if r.notifier == nil {
		return &NotificationOutcome{}
	}

	confirmation, err := r.Confirmation(ctx, checkoutID, ids, transactionID, paidAt)
	if err == nil {
		err = r.notifier.NotifyPaymentConfirmed(ctx, confirmation)
	}
	if err != nil {
		log.Printf("[Notify] confirmation for checkout %s failed: %v", checkoutID, err)
		return &NotificationOutcome{Err: err}
	}
	return &NotificationOutcome{Sent: true}
}

// Confirmation builds the aggregated group message for a checkout
func (r *Reconciler) Confirmation(ctx context.Context, checkoutID string, ids []string, transactionID string, paidAt time.Time) (PaymentConfirmation, error) {
	reservations, err := r.store.ReservationsByIDs(ctx, ids)
	if err != nil {
		return PaymentConfirmation{}, fmt.Errorf("load reservations: %w", err)
	}
	if len(reservations) == 0 {
		return PaymentConfirmation{}, ErrUnknownReservation
	}
	reservations = paidBy(reservations, checkoutID)
	if len(reservations) == 0 {
		return PaymentConfirmation{}, fmt.Errorf("%w: %s", ErrNotPaid, checkoutID)
	}

	event, err := r.events.Event(ctx, reservations[0].EventID)
	if err != nil {
		log.Printf("[Notify] event %s not found for checkout %s: %v", reservations[0].EventID, checkoutID, err)
		event = nil
	}
	return NewPaymentConfirmation(checkoutID, reservations, event, transactionID, paidAt), nil
}

// ResendConfirmation re-delivers the confirmation of a paid checkout
func (r *Reconciler) ResendConfirmation(ctx context.Context, checkoutID string) error {
	rows, err := r.store.TransactionsByCheckout(ctx, checkoutID)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return ErrUnknownCheckout
	}
	ids := reservationIDs(rows)
	reservations, err := r.store.ReservationsByIDs(ctx, ids)
	if err != nil {
		return err
	}
	paid := paidBy(reservations, checkoutID)
	if len(paid) == 0 {
		return fmt.Errorf("%w: %s", ErrNotPaid, checkoutID)
	}

	first := paid[0]
	var txID string
	if first.GatewayTransactionID != nil {
		txID = *first.GatewayTransactionID
	}
	paidAt := r.now()
	if first.PaidAt != nil {
		paidAt = *first.PaidAt
	}

	confirmation, err := r.Confirmation(ctx, checkoutID, ids, txID, paidAt)
	if err != nil {
		return err
	}
	if r.notifier == nil {
		return fmt.Errorf("no notifier configured")
	}
	return r.notifier.NotifyPaymentConfirmed(ctx, confirmation)
}

func reservationIDs(rows []models.PaymentTransaction) []string {
	seen := make(map[string]bool, len(rows))
	var ids []string
	for _, row := range rows {
		if !seen[row.ReservationID] {
			seen[row.ReservationID] = true
			ids = append(ids, row.ReservationID)
		}
	}
	return ids
}

// paidBy keeps the reservations this checkout actually paid. Members cancelled or
// failed before the payment landed stay out of the confirmation.
func paidBy(reservations []models.Reservation, checkoutID string) []models.Reservation {
	var out []models.Reservation
	for _, r := range reservations {
		if r.PaymentStatus == models.PaymentStatusPaid && r.GatewayCheckoutID != nil && *r.GatewayCheckoutID == checkoutID {
			out = append(out, r)
		}
	}
	return out
}

func allPaid(reservations []models.Reservation) bool {
	if len(reservations) == 0 {
		return false
	}
	for _, r := range reservations {
		if r.PaymentStatus != models.PaymentStatusPaid {
			return false
		}
	}
	return true
}
