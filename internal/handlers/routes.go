package handlers

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"booking_app_echo/internal/config"
	"booking_app_echo/internal/middleware"
	"booking_app_echo/internal/services"
)

// Deps is everything the HTTP layer needs. Cache, Issuer and Verifier are optional.
type Deps struct {
	Config   config.Config
	DB       *gorm.DB
	Payments *services.PaymentService
	Cache    *services.RedisCache
	Issuer   SessionIssuer
	Verifier middleware.SessionVerifier
}

// RegisterRoutes mounts every route on e
func RegisterRoutes(e *echo.Echo, d Deps) {
	var rdb *redis.Client
	if d.Cache != nil {
		rdb = d.Cache.Client()
	}

	health := NewHealthHandler(d.DB, d.Cache)
	auth := NewAuthHandler(d.Issuer, !d.Config.IsDev())
	payment := NewPaymentHandler(d.Payments, d.Config.AppURL)
	webhook := NewWebhookHandler(d.Payments)
	admin := NewAdminHandler(d.Payments)

	e.GET("/healthz", health.Health)

	e.POST("/auth/login", auth.HandleLogin)
	e.POST("/auth/logout", auth.HandleLogout)

	// Customer flow
	e.GET("/payment/return", payment.ReturnPage)
	e.GET("/payment/mock-checkout", payment.MockCheckout)
	e.POST("/api/payments/checkout", payment.InitiateCheckout)
	e.GET("/api/payments/status", payment.PollStatus, middleware.RateLimit(d.Config.RateLimit, rdb))

	// Provider notifications
	e.POST("/api/webhooks/payment", webhook.Receive)
	e.POST("/api/webhooks/"+string(d.Payments.Reconciler().Gateway().Name()), webhook.Receive)

	// Operators
	ops := e.Group("/api/admin")
	ops.Use(middleware.RequireOperator(d.Verifier, d.Config.OperatorJWTSecret))
	ops.PUT("/reservations/:id", admin.UpdatePaymentStatus)
	ops.PATCH("/reservations/:id", admin.SetArchived)
	ops.DELETE("/reservations/:id", admin.DeleteReservation)
	ops.POST("/payments/:checkoutId/reconcile", admin.Reconcile)
}
