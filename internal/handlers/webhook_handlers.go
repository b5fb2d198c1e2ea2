package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cast"

	"booking_app_echo/internal/services"
)

const maxWebhookBody = 1 << 20

// checkoutIDFields are tried in order; the first non-empty value wins.
// order_id is where Midtrans notifications carry it.
var checkoutIDFields = []string{"checkout_id", "checkoutId", "id", "data.id", "event_data.id", "order_id"}

// WebhookHandler receives provider notifications
type WebhookHandler struct {
	payments *services.PaymentService
}

func NewWebhookHandler(payments *services.PaymentService) *WebhookHandler {
	return &WebhookHandler{payments: payments}
}

// WebhookResponse is returned for every recognized checkout, whatever its status
type WebhookResponse struct {
	Success    bool   `json:"success"`
	CheckoutID string `json:"checkoutId"`
	Status     string `json:"status"`
}

// Receive stores the raw notification, then reconciles the checkout it names.
// The provider's payload is only trusted for the id; the status is always re-read
// from the provider.
func (h *WebhookHandler) Receive(c echo.Context) error {
	ctx := c.Request().Context()

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Unreadable body")
	}

	payload, decodeErr := decodePayload(body)
	checkoutID := ExtractCheckoutID(payload)

	if err := h.payments.RecordCallback(ctx, checkoutID, body); err != nil {
		log.Printf("[Webhook] failed to store callback for %q: %v", checkoutID, err)
	}

	if decodeErr != nil || checkoutID == "" {
		log.Printf("[Webhook] no checkout id in payload: %s", snippet(body))
		return fmt.Errorf("%w: no checkout id found", services.ErrMalformedPayload)
	}

	result, err := h.payments.Reconciler().Reconcile(ctx, checkoutID)
	if err != nil {
		log.Printf("[Webhook] reconcile %s failed: %v", checkoutID, err)
		return err
	}

	return c.JSON(http.StatusOK, WebhookResponse{
		Success:    true,
		CheckoutID: checkoutID,
		Status:     string(result.Status),
	})
}

// ExtractCheckoutID looks the checkout id up in the known payload fields.
// Dotted names walk into nested objects. Numbers are accepted.
func ExtractCheckoutID(payload map[string]interface{}) string {
	for _, field := range checkoutIDFields {
		if id := strings.TrimSpace(cast.ToString(lookup(payload, field))); id != "" {
			return id
		}
	}
	return ""
}

// decodePayload keeps numbers as json.Number so long numeric ids survive intact
func decodePayload(body []byte) (map[string]interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var payload map[string]interface{}
	if err := dec.Decode(&payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func lookup(payload map[string]interface{}, path string) interface{} {
	var cur interface{} = payload
	for _, key := range strings.Split(path, ".") {
		m, err := cast.ToStringMapE(cur)
		if err != nil {
			return nil
		}
		cur = m[key]
	}
	return cur
}

func snippet(b []byte) string {
	const max = 200
	if len(b) > max {
		return string(b[:max]) + "..."
	}
	return string(b)
}
