package services

import (
	"context"
	"errors"
	"sync"

	"booking_app_echo/internal/models"
)

type fakeGateway struct {
	mu       sync.Mutex
	statuses map[string]*CheckoutDetails
	err      error
	calls    int
	created  []CheckoutRequest
	nextID   string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{statuses: make(map[string]*CheckoutDetails)}
}

func (g *fakeGateway) set(checkoutID string, status GatewayStatus, transactionID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.statuses[checkoutID] = &CheckoutDetails{
		ID:            checkoutID,
		Status:        status,
		TransactionID: transactionID,
		Raw:           []byte(`{"status":"` + string(status) + `"}`),
	}
}

func (g *fakeGateway) Name() models.PaymentGateway { return models.PaymentGatewaySumUp }

func (g *fakeGateway) GetCheckout(ctx context.Context, checkoutID string) (*CheckoutDetails, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	if d, ok := g.statuses[checkoutID]; ok {
		cp := *d
		return &cp, nil
	}
	return &CheckoutDetails{ID: checkoutID, Status: GatewayStatusPending}, nil
}

func (g *fakeGateway) CreateCheckout(ctx context.Context, r CheckoutRequest) (*CheckoutSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	g.created = append(g.created, r)
	id := g.nextID
	if id == "" {
		id = "ck_new"
	}
	return &CheckoutSession{
		ID:          id,
		CheckoutURL: "https://pay.example.com/" + id,
		Status:      GatewayStatusPending,
		Raw:         []byte(`{"id":"` + id + `"}`),
	}, nil
}

func (g *fakeGateway) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []PaymentConfirmation
	err  error
}

func (n *fakeNotifier) NotifyPaymentConfirmed(ctx context.Context, c PaymentConfirmation) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, c)
	return n.err
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

var errGatewayDown = errors.New("connection refused")
