package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Pinger is a dependency that can report its own liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check endpoints
type HealthHandler struct {
	redis     Pinger
	logger    *zap.Logger
	version   string
	startTime time.Time
}

// NewHealthHandler creates a new health handler. redis may be nil when the
// cache is not deployed; readiness then skips it.
func NewHealthHandler(redis Pinger, logger *zap.Logger, version string) *HealthHandler {
	return &HealthHandler{
		redis:     redis,
		logger:    logger,
		version:   version,
		startTime: time.Now(),
	}
}

// Liveness handles the liveness probe. The process serving the request is
// proof enough.
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"version": h.version,
	})
}

// Readiness handles the readiness probe.
func (h *HealthHandler) Readiness(c *gin.Context) {
	checks := h.check(c.Request.Context())

	statusCode := http.StatusOK
	status := "healthy"
	for name, ok := range checks {
		if !ok {
			statusCode = http.StatusServiceUnavailable
			status = "unhealthy"
			h.logger.Warn("Readiness check failed", zap.String("check", name))
		}
	}

	c.JSON(statusCode, gin.H{
		"status":  status,
		"version": h.version,
		"checks":  checks,
	})
}

// Health handles the general health endpoint.
func (h *HealthHandler) Health(c *gin.Context) {
	checks := h.check(c.Request.Context())

	status := "healthy"
	statusCode := http.StatusOK
	for _, ok := range checks {
		if !ok {
			status = "degraded"
		}
	}

	c.JSON(statusCode, gin.H{
		"status":         status,
		"version":        h.version,
		"uptime_seconds": int(time.Since(h.startTime).Seconds()),
		"checks":         checks,
	})
}

// Ping handles simple ping endpoint (no checks, always returns 200)
func (h *HealthHandler) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"time":    time.Now().Unix(),
		"version": h.version,
	})
}

func (h *HealthHandler) check(ctx context.Context) map[string]bool {
	checks := make(map[string]bool)
	if h.redis != nil {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		checks["redis"] = h.redis.Ping(ctx) == nil
	}
	return checks
}
