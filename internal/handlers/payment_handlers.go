package handlers

import (
	"log"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"booking_app_echo/internal/models"
	"booking_app_echo/internal/services"
)

// PaymentHandler serves the customer-facing payment endpoints
type PaymentHandler struct {
	payments *services.PaymentService
	appURL   string
}

func NewPaymentHandler(payments *services.PaymentService, appURL string) *PaymentHandler {
	return &PaymentHandler{payments: payments, appURL: appURL}
}

type checkoutRequest struct {
	GroupID       string `json:"groupId" form:"groupId"`
	ReservationID string `json:"reservationId" form:"reservationId"`
}

// InitiateCheckout starts (or resumes) the checkout of a reservation group
func (h *PaymentHandler) InitiateCheckout(c echo.Context) error {
	var req checkoutRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	ref, err := services.ParseGroupRef(req.GroupID, req.ReservationID, false)
	if err != nil {
		return err
	}

	result, err := h.payments.InitiateCheckout(c.Request().Context(), ref)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// PollStatus is the fallback used by the return page while the webhook is late
func (h *PaymentHandler) PollStatus(c echo.Context) error {
	ref, err := services.ParseGroupRef(c.QueryParam("groupId"), c.QueryParam("reservationId"), true)
	if err != nil {
		return err
	}

	result, err := h.payments.PollStatus(c.Request().Context(), ref)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// ReturnPage is where the provider sends the customer back. It only renders;
// the page polls PollStatus until the payment settles.
func (h *PaymentHandler) ReturnPage(c echo.Context) error {
	ref, err := services.ParseGroupRef(c.QueryParam("groupId"), c.QueryParam("reservationId"), true)
	if err != nil {
		return err
	}
	return PaymentReturnPage(ref).Render(c.Request().Context(), c.Response())
}

// MockCheckout stands in for the hosted payment page of the mock provider:
// it settles the checkout right away and sends the customer back.
func (h *PaymentHandler) MockCheckout(c echo.Context) error {
	if h.payments.Reconciler().Gateway().Name() != models.PaymentGatewayMock {
		return echo.NewHTTPError(http.StatusNotFound, "Not Found")
	}

	checkoutID := c.QueryParam("checkoutId")
	if checkoutID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "checkoutId is required")
	}

	result, err := h.payments.Reconciler().Reconcile(c.Request().Context(), checkoutID)
	if err != nil {
		return err
	}
	log.Printf("[Mock] checkout %s settled with status %s", checkoutID, result.Status)

	redirect := c.QueryParam("redirect")
	if redirect == "" || !strings.HasPrefix(redirect, h.appURL+"/") {
		return c.JSON(http.StatusOK, result)
	}
	return c.Redirect(http.StatusSeeOther, redirect)
}
