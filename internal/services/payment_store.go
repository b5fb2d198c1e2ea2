package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"booking_app_echo/internal/models"
)

// PaymentStore is the persistence layer for reservation groups and their payment
// transaction ledger. Every write that decides a payment outcome is a single
// predicate-guarded UPDATE, so concurrent callers never need a lock.
type PaymentStore struct {
	db *gorm.DB
}

func NewPaymentStore(db *gorm.DB) *PaymentStore {
	return &PaymentStore{db: db}
}

// Transaction runs fn against a store bound to one database transaction.
// fn must only use the store it receives.
func (s *PaymentStore) Transaction(ctx context.Context, fn func(tx *PaymentStore) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&PaymentStore{db: tx})
	})
}

// --- transaction log ---

// TransactionsByCheckout returns every ledger row sharing a provider checkout id
func (s *PaymentStore) TransactionsByCheckout(ctx context.Context, checkoutID string) ([]models.PaymentTransaction, error) {
	var rows []models.PaymentTransaction
	err := s.db.WithContext(ctx).
		Where("checkout_id = ?", checkoutID).
		Order("created_at asc").
		Find(&rows).Error
	return rows, err
}

// TransactionsForReservation returns the ledger of one reservation, newest first
func (s *PaymentStore) TransactionsForReservation(ctx context.Context, reservationID string) ([]models.PaymentTransaction, error) {
	var rows []models.PaymentTransaction
	err := s.db.WithContext(ctx).
		Where("reservation_id = ?", reservationID).
		Order("created_at desc").
		Find(&rows).Error
	return rows, err
}

// ActiveTransactions returns the INITIATED/PENDING rows of the given reservations, newest first
func (s *PaymentStore) ActiveTransactions(ctx context.Context, reservationIDs []string) ([]models.PaymentTransaction, error) {
	var rows []models.PaymentTransaction
	if len(reservationIDs) == 0 {
		return rows, nil
	}
	err := s.db.WithContext(ctx).
		Where("reservation_id IN ? AND status IN ?", reservationIDs, models.ActiveTransactionStatuses).
		Order("created_at desc").
		Find(&rows).Error
	return rows, err
}

// ApplyCheckoutTransition moves every row of a checkout to the transition's status.
// Rows already COMPLETED, or already in the target status, are left alone so that
// completedAt/expiredAt are written once and a paid checkout is never downgraded.
func (s *PaymentStore) ApplyCheckoutTransition(ctx context.Context, checkoutID string, tr TransactionTransition, transactionID string, response datatypes.JSON, at time.Time) (int64, error) {
	updates := map[string]interface{}{
		"status": tr.Status,
	}
	if len(response) > 0 {
		updates["gateway_response"] = response
	}
	if tr.Completes {
		updates["completed_at"] = at
		if transactionID != "" {
			updates["transaction_id"] = transactionID
		}
	}
	if tr.Expires {
		updates["expired_at"] = at
	}

	res := s.db.WithContext(ctx).
		Model(&models.PaymentTransaction{}).
		Where("checkout_id = ? AND status NOT IN ?", checkoutID, []models.TransactionStatus{models.TransactionStatusCompleted, tr.Status}).
		Updates(updates)
	return res.RowsAffected, res.Error
}

// ExpireActiveTransactions marks EXPIRED every active row of the given reservations
func (s *PaymentStore) ExpireActiveTransactions(ctx context.Context, reservationIDs []string, at time.Time) (int64, error) {
	if len(reservationIDs) == 0 {
		return 0, nil
	}
	res := s.db.WithContext(ctx).
		Model(&models.PaymentTransaction{}).
		Where("reservation_id IN ? AND status IN ?", reservationIDs, models.ActiveTransactionStatuses).
		Updates(map[string]interface{}{
			"status":     models.TransactionStatusExpired,
			"expired_at": at,
		})
	return res.RowsAffected, res.Error
}

// CreateTransactions inserts the ledger rows of a freshly created checkout
func (s *PaymentStore) CreateTransactions(ctx context.Context, rows []models.PaymentTransaction) error {
	if len(rows) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Create(&rows).Error
}

// StaleCheckoutIDs lists distinct checkouts that still have an active row initiated before the cutoff
func (s *PaymentStore) StaleCheckoutIDs(ctx context.Context, before time.Time, limit int) ([]string, error) {
	var ids []string
	q := s.db.WithContext(ctx).
		Model(&models.PaymentTransaction{}).
		Distinct("checkout_id").
		Where("status IN ? AND initiated_at < ?", models.ActiveTransactionStatuses, before)
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Pluck("checkout_id", &ids).Error
	return ids, err
}

// --- reservations ---

// FindReservation loads one reservation or returns ErrUnknownReservation
func (s *PaymentStore) FindReservation(ctx context.Context, id string) (*models.Reservation, error) {
	var r models.Reservation
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&r).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnknownReservation
		}
		return nil, err
	}
	return &r, nil
}

// ReservationsByIDs loads reservations in creation order
func (s *PaymentStore) ReservationsByIDs(ctx context.Context, ids []string) ([]models.Reservation, error) {
	var rows []models.Reservation
	if len(ids) == 0 {
		return rows, nil
	}
	err := s.db.WithContext(ctx).
		Where("id IN ?", ids).
		Order("created_at asc, id asc").
		Find(&rows).Error
	return rows, err
}

// ReservationsByGroup loads every reservation sharing a group id, in creation order
func (s *PaymentStore) ReservationsByGroup(ctx context.Context, groupID string) ([]models.Reservation, error) {
	var rows []models.Reservation
	err := s.db.WithContext(ctx).
		Where("group_id = ?", groupID).
		Order("created_at asc, id asc").
		Find(&rows).Error
	return rows, err
}

// LockReservations takes row locks on the given reservations until the surrounding
// transaction ends. sqlite has no row locks and serializes writers instead.
func (s *PaymentStore) LockReservations(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	var locked []string
	return s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Model(&models.Reservation{}).
		Where("id IN ?", ids).
		Order("id asc").
		Pluck("id", &locked).Error
}

// MarkReservationsPaid is the single serialization point of reconciliation: it flips
// to PAID only the rows still PENDING and reports how many it actually changed.
// A zero count means another caller already won the transition.
func (s *PaymentStore) MarkReservationsPaid(ctx context.Context, ids []string, checkoutID, transactionID string, paidAt time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var txID interface{}
	if transactionID != "" {
		txID = transactionID
	}
	res := s.db.WithContext(ctx).
		Model(&models.Reservation{}).
		Where("id IN ? AND payment_status = ?", ids, models.PaymentStatusPending).
		Updates(map[string]interface{}{
			"payment_status":         models.PaymentStatusPaid,
			"paid_at":                paidAt,
			"gateway_checkout_id":    checkoutID,
			"gateway_transaction_id": txID,
		})
	return res.RowsAffected, res.Error
}

// UpdatePaymentStatus applies updates to one reservation only if its status is still
// `from`. With idle set, the write also requires that no checkout of the reservation
// is active. It returns the number of rows changed (0 or 1).
func (s *PaymentStore) UpdatePaymentStatus(ctx context.Context, id string, from models.PaymentStatus, idle bool, updates map[string]interface{}) (int64, error) {
	q := s.db.WithContext(ctx).
		Model(&models.Reservation{}).
		Where("id = ? AND payment_status = ?", id, from)
	if idle {
		active := s.db.Session(&gorm.Session{NewDB: true}).
			Model(&models.PaymentTransaction{}).
			Select("1").
			Where("payment_transactions.reservation_id = reservations.id AND payment_transactions.status IN ?", models.ActiveTransactionStatuses)
		q = q.Where("NOT EXISTS (?)", active)
	}
	res := q.Updates(updates)
	return res.RowsAffected, res.Error
}

// SetArchived toggles the display-only archive flag
func (s *PaymentStore) SetArchived(ctx context.Context, id string, archived bool, by string, at time.Time) (*models.Reservation, error) {
	updates := map[string]interface{}{
		"archived":    archived,
		"archived_at": nil,
		"archived_by": nil,
	}
	if archived {
		updates["archived_at"] = at
		updates["archived_by"] = by
	}

	res := s.db.WithContext(ctx).Model(&models.Reservation{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrUnknownReservation
	}
	return s.FindReservation(ctx, id)
}

// DeleteReservation removes a reservation together with its ledger rows
func (s *PaymentStore) DeleteReservation(ctx context.Context, id string) error {
	return s.Transaction(ctx, func(tx *PaymentStore) error {
		if err := tx.db.WithContext(ctx).Where("reservation_id = ?", id).Delete(&models.PaymentTransaction{}).Error; err != nil {
			return err
		}
		res := tx.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Reservation{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrUnknownReservation
		}
		return nil
	})
}

// --- events & callbacks ---

// FindEvent loads the event a reservation group belongs to
func (s *PaymentStore) FindEvent(ctx context.Context, id string) (*models.Event, error) {
	var ev models.Event
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&ev).Error; err != nil {
		return nil, fmt.Errorf("load event %s: %w", id, err)
	}
	return &ev, nil
}

// RecordCallback stores a raw webhook body. Bodies that are not JSON are wrapped.
func (s *PaymentStore) RecordCallback(ctx context.Context, gateway models.PaymentGateway, checkoutID string, payload []byte) error {
	metadata := datatypes.JSON(payload)
	if !json.Valid(payload) {
		wrapped, err := json.Marshal(map[string]string{"raw": string(payload)})
		if err != nil {
			return err
		}
		metadata = datatypes.JSON(wrapped)
	}

	history := models.PaymentCallbackHistory{
		PaymentGateway: gateway,
		CheckoutID:     checkoutID,
		Metadata:       metadata,
	}
	return s.db.WithContext(ctx).Create(&history).Error
}
