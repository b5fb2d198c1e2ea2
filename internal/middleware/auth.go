package middleware

import (
	"context"
	"net/http"
	"strings"

	"firebase.google.com/go/v4/auth"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// SessionVerifier verifies Firebase session cookies. *auth.Client satisfies it.
type SessionVerifier interface {
	VerifySessionCookie(ctx context.Context, sessionCookie string) (*auth.Token, error)
}

const operatorNameKey = "operatorName"

var operatorRoles = map[string]bool{"admin": true, "operator": true}

// RequireOperator accepts either a Firebase session cookie or an HS256 bearer token
// carrying an admin/operator role. verifier and secret may be unset to disable a path.
func RequireOperator(verifier SessionVerifier, secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if header := c.Request().Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
				if secret == "" {
					return echo.NewHTTPError(http.StatusUnauthorized, "bearer tokens are not accepted")
				}
				name, err := verifyOperatorToken(strings.TrimPrefix(header, "Bearer "), secret)
				if err != nil {
					return err
				}
				c.Set(operatorNameKey, name)
				return next(c)
			}

			if verifier == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication not configured")
			}

			cookie, err := c.Cookie("session")
			if err != nil || cookie.Value == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}

			decodedToken, err := verifier.VerifySessionCookie(c.Request().Context(), cookie.Value)
			if err != nil {
				c.SetCookie(&http.Cookie{
					Name:     "session",
					Value:    "",
					MaxAge:   -1,
					HttpOnly: true,
					Path:     "/",
				})
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid session")
			}

			name := decodedToken.UID
			if email, ok := decodedToken.Claims["email"].(string); ok && email != "" {
				name = email
			}
			if n, ok := decodedToken.Claims["name"].(string); ok && n != "" {
				name = n
			}
			c.Set(operatorNameKey, name)
			return next(c)
		}
	}
}

func verifyOperatorToken(raw, secret string) (string, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !tok.Valid {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}

	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "invalid claims")
	}
	if role, _ := claims["role"].(string); !operatorRoles[role] {
		return "", echo.NewHTTPError(http.StatusForbidden, "operator role required")
	}

	if name, _ := claims["name"].(string); name != "" {
		return name, nil
	}
	sub, _ := claims.GetSubject()
	return sub, nil
}

// OperatorName returns the authenticated operator, or "" outside RequireOperator
func OperatorName(c echo.Context) string {
	if name, ok := c.Get(operatorNameKey).(string); ok {
		return name
	}
	return ""
}
