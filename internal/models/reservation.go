package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PaymentStatus is the lifecycle state of a single reservation
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusPaid      PaymentStatus = "PAID"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusRefunded  PaymentStatus = "REFUNDED"
	PaymentStatusCancelled PaymentStatus = "CANCELLED"
)

// paymentTransitions lists the allowed moves out of each status.
var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending: {PaymentStatusPaid, PaymentStatusFailed, PaymentStatusCancelled},
	PaymentStatusPaid:    {PaymentStatusRefunded},
}

// Valid reports whether s is one of the known payment statuses
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed, PaymentStatusRefunded, PaymentStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether a reservation may move from s to next.
// Staying on the same status is always allowed.
func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	if s == next {
		return true
	}
	for _, allowed := range paymentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Reservation is one booked activity inside a reservation group.
// Rows sharing a GroupID were created together from one booking form.
type Reservation struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	GroupID      *string `gorm:"type:varchar(36);index" json:"groupId"`
	EventID      string  `gorm:"type:varchar(36);index" json:"eventId"`
	ActivityID   *string `gorm:"type:varchar(36)" json:"activityId"`
	ActivityName string  `gorm:"type:varchar(255)" json:"activityName"`

	// Customer identity, identical across a group
	FirstName string `gorm:"type:varchar(255)" json:"prenom"`
	LastName  string `gorm:"type:varchar(255)" json:"nom"`
	Email     string `gorm:"type:varchar(255);index" json:"email"`
	Phone     string `gorm:"type:varchar(50)" json:"telephone"`

	// Participants maps a participant label to its count, e.g. {"adulte": 2, "enfant": 1}
	Participants map[string]int  `gorm:"type:text;serializer:json" json:"participants"`
	Amount       decimal.Decimal `gorm:"type:decimal(10,2)" json:"amount"`

	PaymentStatus        PaymentStatus `gorm:"type:varchar(20);default:'PENDING';index" json:"paymentStatus"`
	PaidAt               *time.Time    `json:"paidAt"`
	GatewayCheckoutID    *string       `gorm:"type:varchar(100)" json:"sumupCheckoutId"`
	GatewayTransactionID *string       `gorm:"type:varchar(100)" json:"sumupTransactionId"`
	Notes                *string       `gorm:"type:text" json:"notes"`

	Archived   bool       `gorm:"default:false;index" json:"archived"`
	ArchivedAt *time.Time `json:"archivedAt"`
	ArchivedBy *string    `gorm:"type:varchar(255)" json:"archivedBy"`

	// Relationships
	Event               Event                `gorm:"foreignKey:EventID" json:"event,omitempty"`
	PaymentTransactions []PaymentTransaction `gorm:"foreignKey:ReservationID;constraint:OnDelete:CASCADE" json:"paymentTransactions,omitempty"`
}

// BeforeCreate assigns a UUID when the caller did not provide one
func (r *Reservation) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.PaymentStatus == "" {
		r.PaymentStatus = PaymentStatusPending
	}
	return nil
}

// GroupKey returns the group id, or the reservation's own id for a lone reservation
func (r Reservation) GroupKey() string {
	if r.GroupID != nil && *r.GroupID != "" {
		return *r.GroupID
	}
	return r.ID
}

// CustomerName returns "first last"
func (r Reservation) CustomerName() string {
	if r.FirstName == "" {
		return r.LastName
	}
	if r.LastName == "" {
		return r.FirstName
	}
	return r.FirstName + " " + r.LastName
}
