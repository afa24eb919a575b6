package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler serves liveness and readiness checks.
type HealthHandler struct {
	db    Pinger
	redis *redis.Client
	log   *zap.Logger
}

// NewHealthHandler builds the health checks. rdb may be nil when Redis is not
// configured.
func NewHealthHandler(db Pinger, rdb *redis.Client, log *zap.Logger) *HealthHandler {
	return &HealthHandler{db: db, redis: rdb, log: log}
}

// Health reports that the process is up.
func (h *HealthHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}

// Ready reports whether MySQL, and Redis when configured, answer a ping.
func (h *HealthHandler) Ready(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	checks := echo.Map{}
	ready := true
	if err := h.db.PingContext(ctx); err != nil {
		h.log.Warn("readiness: mysql ping failed", zap.Error(err))
		checks["mysql"] = "down"
		ready = false
	} else {
		checks["mysql"] = "up"
	}
	if h.redis != nil {
		if err := h.redis.Ping(ctx).Err(); err != nil {
			h.log.Warn("readiness: redis ping failed", zap.Error(err))
			checks["redis"] = "down"
			ready = false
		} else {
			checks["redis"] = "up"
		}
	}
	if !ready {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "unavailable", "checks": checks})
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "ready", "checks": checks})
}
