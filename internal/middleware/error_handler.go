package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"booking_app_echo/internal/services"
)

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// StatusFor maps domain errors to an HTTP status code
func StatusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrUnknownCheckout), errors.Is(err, services.ErrUnknownReservation):
		return http.StatusNotFound
	case errors.Is(err, services.ErrConflictingActiveCheckout),
		errors.Is(err, services.ErrAlreadyPaid),
		errors.Is(err, services.ErrInvalidTransition),
		errors.Is(err, services.ErrNotPaid),
		errors.Is(err, services.ErrInvalidReference),
		errors.Is(err, services.ErrMalformedPayload):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrConcurrentUpdate):
		return http.StatusConflict
	case errors.Is(err, services.ErrGatewayUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// CustomErrorHandler renders every error as {"error", "message"} JSON
func CustomErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := StatusFor(err)
	message := err.Error()

	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if msg, ok := he.Message.(string); ok {
			message = msg
		} else {
			message = http.StatusText(code)
		}
	}

	if code >= http.StatusInternalServerError {
		c.Logger().Error(err)
		if code == http.StatusInternalServerError {
			message = "Something went wrong. Please try again later."
		}
	}

	body := errorBody{Error: http.StatusText(code), Message: message}
	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, body)
	}
	if err != nil {
		c.Logger().Error(err)
	}
}
