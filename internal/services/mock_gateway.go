package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"time"

	"github.com/google/uuid"

	"booking_app_echo/internal/models"
)

// MockGateway is the development provider. Every checkout is reported PAID on the
// first status query, so the whole flow can be exercised without credentials.
type MockGateway struct {
	appURL string
}

func NewMockGateway(appURL string) *MockGateway {
	return &MockGateway{appURL: appURL}
}

func (g *MockGateway) Name() models.PaymentGateway {
	return models.PaymentGatewayMock
}

func (g *MockGateway) CreateCheckout(ctx context.Context, r CheckoutRequest) (*CheckoutSession, error) {
	id := "mock_checkout_" + uuid.NewString()

	raw, _ := json.Marshal(map[string]interface{}{
		"id":                 id,
		"checkout_reference": r.Reference,
		"amount":             r.Amount,
		"currency":           r.Currency,
		"status":             GatewayStatusPending,
		"date":               time.Now().UTC(),
	})
	log.Printf("[Mock] checkout %s created for %s (%s %s)", id, r.Reference, r.Amount.StringFixed(2), r.Currency)

	return &CheckoutSession{
		ID:          id,
		CheckoutURL: fmt.Sprintf("%s/payment/mock-checkout?checkoutId=%s&reference=%s&redirect=%s", g.appURL, url.QueryEscape(id), url.QueryEscape(r.Reference), url.QueryEscape(r.RedirectURL)),
		Status:      GatewayStatusPending,
		Raw:         raw,
	}, nil
}

func (g *MockGateway) GetCheckout(ctx context.Context, checkoutID string) (*CheckoutDetails, error) {
	return &CheckoutDetails{
		ID:            checkoutID,
		Status:        GatewayStatusPaid,
		TransactionID: "mock_tx_" + checkoutID,
	}, nil
}
