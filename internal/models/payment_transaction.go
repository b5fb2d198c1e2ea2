package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// TransactionStatus tracks one checkout attempt, independently from the reservation status
type TransactionStatus string

const (
	TransactionStatusInitiated TransactionStatus = "INITIATED"
	TransactionStatusPending   TransactionStatus = "PENDING"
	TransactionStatusCompleted TransactionStatus = "COMPLETED"
	TransactionStatusFailed    TransactionStatus = "FAILED"
	TransactionStatusExpired   TransactionStatus = "EXPIRED"
	TransactionStatusCancelled TransactionStatus = "CANCELLED"
)

// ActiveTransactionStatuses are the non-terminal checkout states
var ActiveTransactionStatuses = []TransactionStatus{TransactionStatusInitiated, TransactionStatusPending}

// IsActive reports whether the checkout attempt is still in flight
func (s TransactionStatus) IsActive() bool {
	return s == TransactionStatusInitiated || s == TransactionStatusPending
}

// PaymentTransaction is one checkout attempt for one reservation. All reservations
// paid through the same provider checkout share its CheckoutID.
type PaymentTransaction struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	ReservationID string            `gorm:"type:varchar(36);index;not null" json:"reservationId"`
	CheckoutID    string            `gorm:"type:varchar(100);index;not null" json:"checkoutId"`
	CheckoutURL   string            `gorm:"type:text" json:"checkoutUrl"`
	Amount        decimal.Decimal   `gorm:"type:decimal(10,2)" json:"amount"`
	Currency      string            `gorm:"type:varchar(3);default:'EUR'" json:"currency"`
	Status        TransactionStatus `gorm:"type:varchar(20);index" json:"status"`
	TransactionID *string           `gorm:"type:varchar(100)" json:"transactionId"`

	// Last provider answer that changed this row
	GatewayResponse datatypes.JSON `json:"sumupResponse"`

	InitiatedAt time.Time  `json:"initiatedAt"`
	CompletedAt *time.Time `json:"completedAt"`
	ExpiredAt   *time.Time `json:"expiredAt"`
}

// BeforeCreate assigns a UUID and the initiation defaults
func (t *PaymentTransaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Status == "" {
		t.Status = TransactionStatusInitiated
	}
	if t.InitiatedAt.IsZero() {
		t.InitiatedAt = time.Now().UTC()
	}
	return nil
}
