package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"booking_app_echo/internal/config"
	"booking_app_echo/internal/models"
)

// SumUpService talks to the SumUp hosted checkout API
type SumUpService struct {
	baseURL      string
	apiKey       string
	merchantCode string
	payToEmail   string
	client       *http.Client
}

func NewSumUpService(cfg config.SumUpConfig) *SumUpService {
	return &SumUpService{
		baseURL:      cfg.BaseURL,
		apiKey:       cfg.APIKey,
		merchantCode: cfg.MerchantCode,
		payToEmail:   cfg.PayToEmail,
		client:       &http.Client{Timeout: 15 * time.Second},
	}
}

func (s *SumUpService) Name() models.PaymentGateway {
	return models.PaymentGatewaySumUp
}

type sumUpCheckoutPayload struct {
	Amount            float64               `json:"amount"`
	Currency          string                `json:"currency"`
	CheckoutReference string                `json:"checkout_reference"`
	Description       string                `json:"description"`
	MerchantCode      string                `json:"merchant_code,omitempty"`
	PayToEmail        string                `json:"pay_to_email,omitempty"`
	RedirectURL       string                `json:"redirect_url,omitempty"`
	ReturnURL         string                `json:"return_url,omitempty"`
	HostedCheckout    sumUpHostedCheckoutOn `json:"hosted_checkout"`
}

type sumUpHostedCheckoutOn struct {
	Enabled bool `json:"enabled"`
}

type sumUpCheckoutResponse struct {
	ID                string          `json:"id"`
	Status            string          `json:"status"`
	Amount            decimal.Decimal `json:"amount"`
	Currency          string          `json:"currency"`
	CheckoutReference string          `json:"checkout_reference"`
	HostedCheckoutURL string          `json:"hosted_checkout_url"`
	TransactionID     string          `json:"transaction_id"`
	Transactions      []struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	} `json:"transactions"`
}

func (s *SumUpService) validateConfig() error {
	if s.apiKey == "" {
		return fmt.Errorf("SUMUP_API_KEY is not configured")
	}
	if s.merchantCode == "" && s.payToEmail == "" {
		return fmt.Errorf("SUMUP_MERCHANT_CODE or SUMUP_PAY_TO_EMAIL is required")
	}
	return nil
}

func (s *SumUpService) makeRequest(ctx context.Context, method, endpoint string, payload interface{}) ([]byte, error) {
	var bodyReader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal payload: %w", err)
		}
		bodyReader = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+endpoint, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(body, &apiErr)
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return nil, fmt.Errorf("sumup api error: %d - %s", resp.StatusCode, apiErr.Message)
	}
	return body, nil
}

// CreateCheckout creates a hosted checkout and returns its id and URL
func (s *SumUpService) CreateCheckout(ctx context.Context, r CheckoutRequest) (*CheckoutSession, error) {
	if err := s.validateConfig(); err != nil {
		return nil, err
	}

	payload := sumUpCheckoutPayload{
		Amount:            r.Amount.Round(2).InexactFloat64(),
		Currency:          r.Currency,
		CheckoutReference: r.Reference,
		Description:       r.Description,
		RedirectURL:       r.RedirectURL,
		ReturnURL:         r.ReturnURL,
		HostedCheckout:    sumUpHostedCheckoutOn{Enabled: true},
	}
	// merchant_code wins over pay_to_email
	if s.merchantCode != "" {
		payload.MerchantCode = s.merchantCode
	} else {
		payload.PayToEmail = s.payToEmail
	}

	body, err := s.makeRequest(ctx, http.MethodPost, "/checkouts", payload)
	if err != nil {
		log.Printf("[SumUp] create checkout failed for %s: %v", r.Reference, err)
		return nil, err
	}

	var resp sumUpCheckoutResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("invalid sumup response: %w", err)
	}
	if resp.ID == "" || resp.HostedCheckoutURL == "" {
		return nil, fmt.Errorf("invalid sumup response: missing id or hosted_checkout_url")
	}

	return &CheckoutSession{
		ID:          resp.ID,
		CheckoutURL: resp.HostedCheckoutURL,
		Status:      NormalizeGatewayStatus(resp.Status),
		Raw:         body,
	}, nil
}

// GetCheckout fetches the current status of a checkout
func (s *SumUpService) GetCheckout(ctx context.Context, checkoutID string) (*CheckoutDetails, error) {
	if err := s.validateConfig(); err != nil {
		return nil, err
	}

	body, err := s.makeRequest(ctx, http.MethodGet, "/checkouts/"+url.PathEscape(checkoutID), nil)
	if err != nil {
		return nil, err
	}

	var resp sumUpCheckoutResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("invalid sumup response: %w", err)
	}

	details := &CheckoutDetails{
		ID:            resp.ID,
		Status:        NormalizeGatewayStatus(resp.Status),
		TransactionID: resp.TransactionID,
		Amount:        resp.Amount,
		Currency:      resp.Currency,
		Raw:           body,
	}
	// older API versions only list the transaction
	if details.TransactionID == "" && details.Status == GatewayStatusPaid {
		for _, tx := range resp.Transactions {
			if tx.ID != "" {
				details.TransactionID = tx.ID
				break
			}
		}
	}
	return details, nil
}
