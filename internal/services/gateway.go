package services

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"

	"booking_app_echo/internal/models"
)

// GatewayStatus is the provider-side status of a checkout
type GatewayStatus string

const (
	GatewayStatusPending   GatewayStatus = "PENDING"
	GatewayStatusPaid      GatewayStatus = "PAID"
	GatewayStatusFailed    GatewayStatus = "FAILED"
	GatewayStatusExpired   GatewayStatus = "EXPIRED"
	GatewayStatusCancelled GatewayStatus = "CANCELLED"
)

// NormalizeGatewayStatus upper-cases a provider status; anything unknown counts as PENDING
func NormalizeGatewayStatus(raw string) GatewayStatus {
	switch s := GatewayStatus(strings.ToUpper(strings.TrimSpace(raw))); s {
	case GatewayStatusPaid, GatewayStatusFailed, GatewayStatusExpired, GatewayStatusCancelled:
		return s
	case "CANCELED":
		return GatewayStatusCancelled
	}
	return GatewayStatusPending
}

// CheckoutDetails is the authoritative status of a checkout as reported by the provider
type CheckoutDetails struct {
	ID            string
	Status        GatewayStatus
	TransactionID string
	Amount        decimal.Decimal
	Currency      string
	Raw           json.RawMessage
}

// CheckoutRequest describes a hosted checkout to create
type CheckoutRequest struct {
	Reference     string
	Amount        decimal.Decimal
	Currency      string
	Description   string
	RedirectURL   string // browser return page
	ReturnURL     string // provider webhook
	CustomerName  string
	CustomerEmail string
}

// CheckoutSession is a created hosted checkout
type CheckoutSession struct {
	ID          string
	CheckoutURL string
	Status      GatewayStatus
	Raw         json.RawMessage
}

// PaymentGateway is the external payment provider. Calls may fail or be slow and
// are safe to repeat.
type PaymentGateway interface {
	Name() models.PaymentGateway
	GetCheckout(ctx context.Context, checkoutID string) (*CheckoutDetails, error)
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
}

// TransactionTransition is the ledger change implied by a gateway status
type TransactionTransition struct {
	Status    models.TransactionStatus
	Completes bool // record completedAt and the provider transaction id
	Expires   bool // record expiredAt
}

// MapGatewayStatus maps a provider status to the ledger transition it implies.
// ok is false while the checkout is still pending: the ledger is left untouched.
func MapGatewayStatus(status GatewayStatus) (tr TransactionTransition, ok bool) {
	switch status {
	case GatewayStatusPaid:
		return TransactionTransition{Status: models.TransactionStatusCompleted, Completes: true}, true
	case GatewayStatusFailed:
		return TransactionTransition{Status: models.TransactionStatusFailed}, true
	case GatewayStatusCancelled:
		return TransactionTransition{Status: models.TransactionStatusCancelled}, true
	case GatewayStatusExpired:
		return TransactionTransition{Status: models.TransactionStatusExpired, Expires: true}, true
	}
	return TransactionTransition{}, false
}
