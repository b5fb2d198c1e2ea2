package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"booking_app_echo/internal/config"
	"booking_app_echo/internal/models"
)

// GroupRef designates a reservation group, either by group id or by a lone reservation id
type GroupRef struct {
	GroupID       string
	ReservationID string
}

// ParseGroupRef validates the ids a client sent. With exclusive set, exactly one of
// them must be present; otherwise the group id wins when both are.
func ParseGroupRef(groupID, reservationID string, exclusive bool) (GroupRef, error) {
	groupID = strings.TrimSpace(groupID)
	reservationID = strings.TrimSpace(reservationID)

	switch {
	case groupID == "" && reservationID == "":
		return GroupRef{}, fmt.Errorf("%w: groupId or reservationId is required", ErrInvalidReference)
	case groupID != "" && reservationID != "":
		if exclusive {
			return GroupRef{}, fmt.Errorf("%w: provide either groupId or reservationId, not both", ErrInvalidReference)
		}
		reservationID = ""
	}

	id := groupID
	if id == "" {
		id = reservationID
	}
	if _, err := uuid.Parse(id); err != nil {
		return GroupRef{}, fmt.Errorf("%w: %q is not a valid UUID", ErrInvalidReference, id)
	}
	return GroupRef{GroupID: groupID, ReservationID: reservationID}, nil
}

// Key is the id used as checkout reference
func (g GroupRef) Key() string {
	if g.GroupID != "" {
		return g.GroupID
	}
	return g.ReservationID
}

// ReturnQuery is the query string of the browser return page
func (g GroupRef) ReturnQuery() string {
	if g.GroupID != "" {
		return "groupId=" + g.GroupID
	}
	return "reservationId=" + g.ReservationID
}

// CheckoutResult is the answer to a checkout initiation
type CheckoutResult struct {
	Success           bool   `json:"success"`
	CheckoutURL       string `json:"checkoutUrl"`
	CheckoutID        string `json:"checkoutId"`
	Existing          bool   `json:"existing,omitempty"`
	ReservationsCount int    `json:"reservationsCount"`
}

// PollResult is the answer to a client status poll
type PollResult struct {
	Status            string `json:"status"`
	Message           string `json:"message"`
	Updated           bool   `json:"updated"`
	ReservationsCount int    `json:"reservationsCount"`
}

// StatusUpdate is an operator's manual payment status change
type StatusUpdate struct {
	PaymentStatus models.PaymentStatus `json:"paymentStatus"`
	TransactionID *string              `json:"sumupTransactionId"`
	Notes         *string              `json:"notes"`
}

type PaymentService struct {
	store      *PaymentStore
	reconciler *Reconciler
	gateway    PaymentGateway
	events     EventSource

	appURL    string
	currency  string
	timeout   time.Duration
	freshness time.Duration
	now       func() time.Time
}

func NewPaymentService(store *PaymentStore, reconciler *Reconciler, events EventSource, cfg config.Config) *PaymentService {
	if events == nil {
		events = store
	}
	freshness := cfg.CheckoutFreshness
	if freshness <= 0 {
		freshness = time.Hour
	}
	currency := cfg.Currency
	if currency == "" {
		currency = "EUR"
	}
	return &PaymentService{
		store:      store,
		reconciler: reconciler,
		gateway:    reconciler.Gateway(),
		events:     events,
		appURL:     cfg.AppURL,
		currency:   currency,
		timeout:    cfg.GatewayTimeout,
		freshness:  freshness,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Reconciler exposes the engine shared by every trigger
func (s *PaymentService) Reconciler() *Reconciler {
	return s.reconciler
}

// Resolve loads the reservations a reference designates
func (s *PaymentService) Resolve(ctx context.Context, ref GroupRef) ([]models.Reservation, error) {
	var (
		reservations []models.Reservation
		err          error
	)
	if ref.GroupID != "" {
		reservations, err = s.store.ReservationsByGroup(ctx, ref.GroupID)
	} else {
		reservations, err = s.store.ReservationsByIDs(ctx, []string{ref.ReservationID})
	}
	if err != nil {
		return nil, err
	}
	if len(reservations) == 0 {
		return nil, ErrUnknownReservation
	}
	return reservations, nil
}

// InitiateCheckout starts a provider checkout for a whole group, or hands back the
// one already in flight when it is still fresh
func (s *PaymentService) InitiateCheckout(ctx context.Context, ref GroupRef) (*CheckoutResult, error) {
	reservations, err := s.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	for _, r := range reservations {
		if r.PaymentStatus == models.PaymentStatusPaid {
			return nil, ErrAlreadyPaid
		}
	}

	ids := make([]string, len(reservations))
	for i, r := range reservations {
		ids[i] = r.ID
	}

	active, err := s.store.ActiveTransactions(ctx, ids)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if len(active) > 0 && s.isFresh(active[0], now) {
		return &CheckoutResult{
			Success:           true,
			CheckoutURL:       active[0].CheckoutURL,
			CheckoutID:        active[0].CheckoutID,
			Existing:          true,
			ReservationsCount: len(reservations),
		}, nil
	}

	total := decimal.Zero
	for _, r := range reservations {
		total = total.Add(r.Amount)
	}

	first := reservations[0]
	req := CheckoutRequest{
		Reference:     ref.Key(),
		Amount:        total,
		Currency:      s.currency,
		Description:   s.describe(ctx, reservations),
		RedirectURL:   fmt.Sprintf("%s/payment/return?%s", s.appURL, ref.ReturnQuery()),
		ReturnURL:     fmt.Sprintf("%s/api/webhooks/%s", s.appURL, s.gateway.Name()),
		CustomerName:  first.CustomerName(),
		CustomerEmail: first.Email,
	}

	gctx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		gctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	session, err := s.gateway.CreateCheckout(gctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	rows := make([]models.PaymentTransaction, len(reservations))
	for i, r := range reservations {
		rows[i] = models.PaymentTransaction{
			ReservationID:   r.ID,
			CheckoutID:      session.ID,
			CheckoutURL:     session.CheckoutURL,
			Amount:          r.Amount,
			Currency:        s.currency,
			Status:          models.TransactionStatusInitiated,
			GatewayResponse: []byte(session.Raw),
			InitiatedAt:     now,
		}
	}

	// A concurrent submission may have recorded its checkout while the gateway was
	// answering us. Under the reservation locks, the first fresh one wins.
	var winner *models.PaymentTransaction
	err = s.store.Transaction(ctx, func(tx *PaymentStore) error {
		if err := tx.LockReservations(ctx, ids); err != nil {
			return err
		}
		current, err := tx.ActiveTransactions(ctx, ids)
		if err != nil {
			return err
		}
		if len(current) > 0 && s.isFresh(current[0], now) {
			winner = &current[0]
			return nil
		}
		if _, err := tx.ExpireActiveTransactions(ctx, ids, now); err != nil {
			return err
		}
		return tx.CreateTransactions(ctx, rows)
	})
	if err != nil {
		return nil, fmt.Errorf("record checkout %s: %w", session.ID, err)
	}

	if winner != nil {
		log.Printf("[Checkout] %s discarded, %s was recorded first for %s", session.ID, winner.CheckoutID, ref.Key())
		return &CheckoutResult{
			Success:           true,
			CheckoutURL:       winner.CheckoutURL,
			CheckoutID:        winner.CheckoutID,
			Existing:          true,
			ReservationsCount: len(reservations),
		}, nil
	}

	log.Printf("[Checkout] %s created for %s (%d reservation(s), %s %s)", session.ID, ref.Key(), len(reservations), total.StringFixed(2), s.currency)
	return &CheckoutResult{
		Success:           true,
		CheckoutURL:       session.CheckoutURL,
		CheckoutID:        session.ID,
		ReservationsCount: len(reservations),
	}, nil
}

// isFresh reports whether an active row can still be handed back to the customer
func (s *PaymentService) isFresh(t models.PaymentTransaction, now time.Time) bool {
	return t.CheckoutURL != "" && now.Sub(t.InitiatedAt) < s.freshness
}

// describe builds "<event> - <activities> - <first> <last>"
func (s *PaymentService) describe(ctx context.Context, reservations []models.Reservation) string {
	first := reservations[0]

	var eventName string
	if ev, err := s.events.Event(ctx, first.EventID); err == nil {
		eventName = ev.Name
	}

	seen := make(map[string]bool)
	var activities []string
	for _, r := range reservations {
		if r.ActivityName != "" && !seen[r.ActivityName] {
			seen[r.ActivityName] = true
			activities = append(activities, r.ActivityName)
		}
	}

	return fmt.Sprintf("%s - %s - %s %s", eventName, strings.Join(activities, ", "), first.FirstName, first.LastName)
}

// PollStatus reconciles the group's in-flight checkout, if any
func (s *PaymentService) PollStatus(ctx context.Context, ref GroupRef) (*PollResult, error) {
	reservations, err := s.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(reservations))
	for i, r := range reservations {
		ids[i] = r.ID
	}
	active, err := s.store.ActiveTransactions(ctx, ids)
	if err != nil {
		return nil, err
	}

	if len(active) == 0 {
		status := groupStatus(reservations)
		msg := "Aucune transaction en cours"
		if status == models.PaymentStatusPaid {
			msg = "Paiement confirmé"
		}
		return &PollResult{
			Status:            string(status),
			Message:           msg,
			ReservationsCount: len(reservations),
		}, nil
	}

	res, err := s.reconciler.Reconcile(ctx, active[0].CheckoutID)
	if err != nil {
		return nil, err
	}

	msg := fmt.Sprintf("Statut : %s", res.Status)
	if res.Status == GatewayStatusPaid {
		msg = "Paiement confirmé"
	}
	return &PollResult{
		Status:            string(res.Status),
		Message:           msg,
		Updated:           res.Updated,
		ReservationsCount: len(reservations),
	}, nil
}

// groupStatus folds the stored statuses: PAID only when every reservation is
func groupStatus(reservations []models.Reservation) models.PaymentStatus {
	if allPaid(reservations) {
		return models.PaymentStatusPaid
	}
	for _, r := range reservations {
		if r.PaymentStatus == models.PaymentStatusPending {
			return models.PaymentStatusPending
		}
	}
	return reservations[0].PaymentStatus
}

// UpdatePaymentStatus applies an operator's manual override to one reservation.
// It bypasses the gateway but refuses PAID while a gateway checkout is in flight.
func (s *PaymentService) UpdatePaymentStatus(ctx context.Context, id string, u StatusUpdate) (*models.Reservation, error) {
	if !u.PaymentStatus.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, u.PaymentStatus)
	}

	current, err := s.store.FindReservation(ctx, id)
	if err != nil {
		return nil, err
	}
	if !current.PaymentStatus.CanTransitionTo(u.PaymentStatus) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.PaymentStatus, u.PaymentStatus)
	}

	updates := map[string]interface{}{
		"payment_status": u.PaymentStatus,
	}
	if u.Notes != nil {
		updates["notes"] = *u.Notes
	}
	// PAID fields are written once
	if u.PaymentStatus == models.PaymentStatusPaid && current.PaymentStatus != models.PaymentStatusPaid {
		updates["paid_at"] = s.now()
		if u.TransactionID != nil && *u.TransactionID != "" {
			updates["gateway_transaction_id"] = *u.TransactionID
		}
	}

	markPaid := u.PaymentStatus == models.PaymentStatusPaid
	n, err := s.store.UpdatePaymentStatus(ctx, id, current.PaymentStatus, markPaid, updates)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		if markPaid {
			active, err := s.store.ActiveTransactions(ctx, []string{id})
			if err != nil {
				return nil, err
			}
			if len(active) > 0 {
				return nil, ErrConflictingActiveCheckout
			}
		}
		return nil, ErrConcurrentUpdate
	}

	log.Printf("[Admin] reservation %s payment status %s -> %s", id, current.PaymentStatus, u.PaymentStatus)
	return s.store.FindReservation(ctx, id)
}

// SetArchived archives or restores a reservation for display purposes
func (s *PaymentService) SetArchived(ctx context.Context, id string, archived bool, by string) (*models.Reservation, error) {
	return s.store.SetArchived(ctx, id, archived, by, s.now())
}

// DeleteReservation removes a reservation and its checkout history
func (s *PaymentService) DeleteReservation(ctx context.Context, id string) error {
	return s.store.DeleteReservation(ctx, id)
}

// RecordCallback stores a webhook body for operator inspection
func (s *PaymentService) RecordCallback(ctx context.Context, checkoutID string, payload []byte) error {
	return s.store.RecordCallback(ctx, s.gateway.Name(), checkoutID, payload)
}
