package handlers

import (
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/pulseboard/covid-dashboard/internal/models"
)

// Version is reported by the health endpoints
const Version = "1.0.0"

var startTime = time.Now()

// HealthHandler provides health check endpoints
type HealthHandler struct {
	directory Directory
	redis     *redis.Client
	logger    *zap.SugaredLogger
}

// NewHealthHandler creates a new health handler. rdb may be nil when rate
// limiting runs in memory.
func NewHealthHandler(dir Directory, rdb *redis.Client, logger *zap.SugaredLogger) *HealthHandler {
	return &HealthHandler{directory: dir, redis: rdb, logger: logger}
}

// Check handles GET /api/v1/health (liveness)
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, models.HealthStatus{
		Status:  "ok",
		Version: Version,
		Uptime:  time.Since(startTime).String(),
	})
}

// Ready handles GET /api/v1/health/ready (readiness)
// Ready once the directory load has finished, successfully or not.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	status := models.HealthStatus{
		Status:    "ready",
		Version:   Version,
		Uptime:    time.Since(startTime).String(),
		Directory: "loaded",
		Countries: len(h.directory.Countries()),
	}
	code := http.StatusOK

	switch {
	case !h.directory.Loaded():
		status.Directory = "loading"
		status.Status = "not ready"
		code = http.StatusServiceUnavailable
	case h.directory.Err() != nil:
		status.Directory = "unavailable"
	}

	if h.redis != nil {
		status.Redis = "connected"
		if err := h.redis.Ping(r.Context()).Err(); err != nil {
			h.logger.Warnw("Redis ping failed", "error", err)
			status.Redis = "disconnected"
			status.Status = "not ready"
			code = http.StatusServiceUnavailable
		}
	}

	respondJSON(w, code, status)
}
