package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"booking_app_echo/internal/services"
)

// HealthHandler reports whether the database and, when configured, redis answer
type HealthHandler struct {
	db    *gorm.DB
	cache *services.RedisCache
}

func NewHealthHandler(db *gorm.DB, cache *services.RedisCache) *HealthHandler {
	return &HealthHandler{db: db, cache: cache}
}

func (h *HealthHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	checks := map[string]string{"database": "ok"}
	healthy := true

	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		checks["database"] = err.Error()
		healthy = false
	}

	if h.cache != nil {
		checks["redis"] = "ok"
		if err := h.cache.Client().Ping(ctx).Err(); err != nil {
			checks["redis"] = err.Error()
			healthy = false
		}
	}

	code := http.StatusOK
	status := "ok"
	if !healthy {
		code = http.StatusServiceUnavailable
		status = "degraded"
	}
	return c.JSON(code, map[string]interface{}{"status": status, "checks": checks})
}
