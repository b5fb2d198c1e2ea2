package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/labstack/echo/v4"
)

const sessionDuration = time.Hour * 24 * 5

// SessionIssuer exchanges Firebase ID tokens for session cookies. *auth.Client satisfies it.
type SessionIssuer interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
	SessionCookie(ctx context.Context, idToken string, expiresIn time.Duration) (string, error)
}

// AuthHandler handles operator authentication endpoints
type AuthHandler struct {
	issuer SessionIssuer
	secure bool
}

// NewAuthHandler creates a new AuthHandler. issuer may be nil when Firebase is not configured.
func NewAuthHandler(issuer SessionIssuer, secure bool) *AuthHandler {
	return &AuthHandler{issuer: issuer, secure: secure}
}

// HandleLogin verifies the Firebase ID token and creates a session cookie
func (h *AuthHandler) HandleLogin(c echo.Context) error {
	if h.issuer == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Firebase not initialized")
	}

	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "Missing authorization header")
	}

	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	if tokenString == authHeader {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid authorization format")
	}

	if _, err := h.issuer.VerifyIDToken(c.Request().Context(), tokenString); err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
	}

	cookieValue, err := h.issuer.SessionCookie(c.Request().Context(), tokenString, sessionDuration)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create session")
	}

	c.SetCookie(&http.Cookie{
		Name:     "session",
		Value:    cookieValue,
		MaxAge:   int(sessionDuration.Seconds()),
		HttpOnly: true,
		Secure:   h.secure,
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
	})

	return c.JSON(http.StatusOK, map[string]string{
		"status": "success",
	})
}

// HandleLogout clears the session cookie
func (h *AuthHandler) HandleLogout(c echo.Context) error {
	c.SetCookie(&http.Cookie{
		Name:     "session",
		Value:    "",
		MaxAge:   -1,
		HttpOnly: true,
		Path:     "/",
	})

	return c.JSON(http.StatusOK, map[string]string{
		"status": "logged out",
	})
}
