package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/coreapi"
	"github.com/midtrans/midtrans-go/snap"
	"github.com/shopspring/decimal"

	"booking_app_echo/internal/config"
	"booking_app_echo/internal/models"
)

// MidtransService is the Snap/Core API implementation of PaymentGateway.
// The checkout id is the Midtrans order id.
type MidtransService struct {
	SnapClient snap.Client
	CoreClient coreapi.Client
	serverKey  string
}

func NewMidtransService(cfg config.MidtransConfig) *MidtransService {
	env := midtrans.Sandbox
	if cfg.IsProduction {
		env = midtrans.Production
	}

	var s snap.Client
	s.New(cfg.ServerKey, env)

	var c coreapi.Client
	c.New(cfg.ServerKey, env)

	return &MidtransService{
		SnapClient: s,
		CoreClient: c,
		serverKey:  cfg.ServerKey,
	}
}

func (s *MidtransService) Name() models.PaymentGateway {
	return models.PaymentGatewayMidtrans
}

// CreateCheckout creates a Snap transaction and returns its redirect URL
func (s *MidtransService) CreateCheckout(ctx context.Context, r CheckoutRequest) (*CheckoutSession, error) {
	if s.serverKey == "" {
		return nil, fmt.Errorf("MIDTRANS_SERVER_KEY is not configured")
	}

	orderID := fmt.Sprintf("%s-%d", r.Reference, time.Now().Unix())
	amount := r.Amount.Round(0).IntPart()

	req := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  orderID,
			GrossAmt: amount,
		},
		CustomerDetail: &midtrans.CustomerDetails{
			FName: r.CustomerName,
			Email: r.CustomerEmail,
		},
		Items: &[]midtrans.ItemDetails{
			{
				ID:    r.Reference,
				Name:  truncate(r.Description, 50),
				Price: amount,
				Qty:   1,
			},
		},
		Callbacks: &snap.Callbacks{
			Finish: r.RedirectURL,
		},
	}

	type result struct {
		resp *snap.Response
		err  *midtrans.Error
	}
	done := make(chan result, 1)
	go func() {
		resp, err := s.SnapClient.CreateTransaction(req)
		done <- result{resp, err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-done:
		if res.err != nil {
			return nil, fmt.Errorf("midtrans create transaction error: %s", res.err.Message)
		}
		raw, _ := json.Marshal(res.resp)
		return &CheckoutSession{
			ID:          orderID,
			CheckoutURL: res.resp.RedirectURL,
			Status:      GatewayStatusPending,
			Raw:         raw,
		}, nil
	}
}

// GetCheckout asks the Core API for the status of an order
func (s *MidtransService) GetCheckout(ctx context.Context, orderID string) (*CheckoutDetails, error) {
	if s.serverKey == "" {
		return nil, fmt.Errorf("MIDTRANS_SERVER_KEY is not configured")
	}

	type result struct {
		resp *coreapi.TransactionStatusResponse
		err  *midtrans.Error
	}
	done := make(chan result, 1)
	go func() {
		resp, err := s.CoreClient.CheckTransaction(orderID)
		done <- result{resp, err}
	}()

	var res result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-done:
	}

	if res.err != nil {
		// the payer has not picked a payment method yet
		if res.err.StatusCode == http.StatusNotFound {
			return &CheckoutDetails{ID: orderID, Status: GatewayStatusPending}, nil
		}
		return nil, fmt.Errorf("midtrans check transaction error: %s", res.err.Message)
	}

	raw, _ := json.Marshal(res.resp)
	amount, _ := decimal.NewFromString(res.resp.GrossAmount)
	details := &CheckoutDetails{
		ID:       orderID,
		Status:   MidtransStatus(res.resp.TransactionStatus, res.resp.FraudStatus),
		Amount:   amount,
		Currency: "IDR",
		Raw:      raw,
	}
	if details.Status == GatewayStatusPaid {
		details.TransactionID = res.resp.TransactionID
	}
	return details, nil
}

// MidtransStatus maps a Midtrans transaction_status/fraud_status pair to a gateway status
func MidtransStatus(transactionStatus, fraudStatus string) GatewayStatus {
	switch transactionStatus {
	case "settlement":
		return GatewayStatusPaid
	case "capture":
		if fraudStatus == "" || fraudStatus == "accept" {
			return GatewayStatusPaid
		}
		return GatewayStatusPending
	case "deny", "failure":
		return GatewayStatusFailed
	case "cancel":
		return GatewayStatusCancelled
	case "expire":
		return GatewayStatusExpired
	}
	return GatewayStatusPending
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
