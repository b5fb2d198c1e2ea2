// Package testutil provides an isolated sqlite database and fixtures for tests.
package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"booking_app_echo/internal/models"
)

// NewDB opens a fresh in-memory database with every table migrated.
// A single connection keeps the shared-cache database alive and serializes writers.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	err = db.AutoMigrate(
		&models.Event{},
		&models.Reservation{},
		&models.PaymentTransaction{},
		&models.PaymentCallbackHistory{},
		&models.ScheduledTask{},
		&models.ScheduledTaskHistory{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// CreateEvent inserts an event
func CreateEvent(t testing.TB, db *gorm.DB, name string) models.Event {
	t.Helper()
	ev := models.Event{
		ID:   uuid.NewString(),
		Name: name,
		Slug: uuid.NewString(),
		Date: time.Date(2025, time.June, 14, 10, 0, 0, 0, time.UTC),
	}
	if err := db.Create(&ev).Error; err != nil {
		t.Fatalf("create event: %v", err)
	}
	return ev
}

// ReservationSpec describes one reservation of a group fixture. CheckoutID, when set,
// is stored as the gateway checkout that paid it.
type ReservationSpec struct {
	Activity   string
	Amount     string
	Status     models.PaymentStatus
	CheckoutID string
}

// CreateGroup inserts reservations sharing one group id and customer identity.
// groupID may be empty for a lone reservation.
func CreateGroup(t testing.TB, db *gorm.DB, eventID, groupID string, specs ...ReservationSpec) []models.Reservation {
	t.Helper()

	var gid *string
	if groupID != "" {
		gid = &groupID
	}

	out := make([]models.Reservation, 0, len(specs))
	for i, s := range specs {
		status := s.Status
		if status == "" {
			status = models.PaymentStatusPending
		}
		r := models.Reservation{
			ID:            uuid.NewString(),
			CreatedAt:     time.Now().UTC().Add(time.Duration(i) * time.Millisecond),
			GroupID:       gid,
			EventID:       eventID,
			ActivityName:  s.Activity,
			FirstName:     "Marie",
			LastName:      "Dupont",
			Email:         "marie@example.com",
			Phone:         "0612345678",
			Participants:  map[string]int{"adulte": 2, "enfant": 1},
			Amount:        decimal.RequireFromString(s.Amount),
			PaymentStatus: status,
		}
		if s.CheckoutID != "" {
			checkoutID := s.CheckoutID
			r.GatewayCheckoutID = &checkoutID
		}
		if err := db.Create(&r).Error; err != nil {
			t.Fatalf("create reservation: %v", err)
		}
		out = append(out, r)
	}
	return out
}

// CreateCheckout inserts one ledger row per reservation, all sharing checkoutID
func CreateCheckout(t testing.TB, db *gorm.DB, checkoutID string, status models.TransactionStatus, initiatedAt time.Time, reservations ...models.Reservation) []models.PaymentTransaction {
	t.Helper()

	out := make([]models.PaymentTransaction, 0, len(reservations))
	for _, r := range reservations {
		tx := models.PaymentTransaction{
			ReservationID: r.ID,
			CheckoutID:    checkoutID,
			CheckoutURL:   "https://pay.example.com/" + checkoutID,
			Amount:        r.Amount,
			Currency:      "EUR",
			Status:        status,
			InitiatedAt:   initiatedAt,
		}
		if err := db.Create(&tx).Error; err != nil {
			t.Fatalf("create transaction: %v", err)
		}
		out = append(out, tx)
	}
	return out
}

// Reload fetches a reservation by id
func Reload(t testing.TB, db *gorm.DB, id string) models.Reservation {
	t.Helper()
	var r models.Reservation
	if err := db.Where("id = ?", id).First(&r).Error; err != nil {
		t.Fatalf("reload reservation %s: %v", id, err)
	}
	return r
}

// Transactions returns the ledger rows of a checkout
func Transactions(t testing.TB, db *gorm.DB, checkoutID string) []models.PaymentTransaction {
	t.Helper()
	var rows []models.PaymentTransaction
	if err := db.Where("checkout_id = ?", checkoutID).Find(&rows).Error; err != nil {
		t.Fatalf("load transactions: %v", err)
	}
	return rows
}
