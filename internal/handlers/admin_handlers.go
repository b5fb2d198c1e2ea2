package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"booking_app_echo/internal/middleware"
	"booking_app_echo/internal/services"
)

// AdminHandler serves the operator endpoints. Every route sits behind RequireOperator.
type AdminHandler struct {
	payments *services.PaymentService
}

func NewAdminHandler(payments *services.PaymentService) *AdminHandler {
	return &AdminHandler{payments: payments}
}

// UpdatePaymentStatus applies an operator's manual status change
func (h *AdminHandler) UpdatePaymentStatus(c echo.Context) error {
	var update services.StatusUpdate
	if err := c.Bind(&update); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if update.PaymentStatus == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "paymentStatus is required")
	}

	reservation, err := h.payments.UpdatePaymentStatus(c.Request().Context(), c.Param("id"), update)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, reservation)
}

type archiveRequest struct {
	Archived *bool `json:"archived"`
}

// SetArchived archives or restores a reservation
func (h *AdminHandler) SetArchived(c echo.Context) error {
	var req archiveRequest
	if err := c.Bind(&req); err != nil || req.Archived == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "archived (boolean) is required")
	}

	reservation, err := h.payments.SetArchived(c.Request().Context(), c.Param("id"), *req.Archived, middleware.OperatorName(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, reservation)
}

// DeleteReservation removes a reservation with its checkout history
func (h *AdminHandler) DeleteReservation(c echo.Context) error {
	if err := h.payments.DeleteReservation(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

// Reconcile re-synchronizes a checkout with the provider on demand
func (h *AdminHandler) Reconcile(c echo.Context) error {
	result, err := h.payments.Reconciler().Reconcile(c.Request().Context(), c.Param("checkoutId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}
