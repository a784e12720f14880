package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"notification-service/internal/engine"
	"notification-service/internal/telemetry"
)

// HealthChecker reports backing-store health for the ops endpoint.
type HealthChecker interface {
	Ping() error
}

// OpsHandler serves the operational HTTP surface. It never touches the
// engine's registry; only the atomic stats counters cross the goroutine
// boundary.
type OpsHandler struct {
	stats   *engine.Stats
	health  HealthChecker
	emitter *telemetry.AuditEmitter
}

// NewOpsHandler constructs an OpsHandler.
func NewOpsHandler(stats *engine.Stats, health HealthChecker, emitter *telemetry.AuditEmitter) *OpsHandler {
	return &OpsHandler{stats: stats, health: health, emitter: emitter}
}

// Healthz reports process and database health.
func (h *OpsHandler) Healthz(c *gin.Context) {
	if h.health != nil {
		if err := h.health.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Stats returns the engine counters.
func (h *OpsHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.stats.Snapshot())
}

// Metrics serves the Prometheus registry.
func (h *OpsHandler) Metrics() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

// RegisterDebugRoutes wires debug-only endpoints.
func (h *OpsHandler) RegisterDebugRoutes(router *gin.Engine, authMiddleware gin.HandlerFunc, enabled bool) {
	if !enabled {
		return
	}

	router.GET("/debug/stats", authMiddleware, h.Stats)
	router.GET("/debug/audit-test", authMiddleware, func(c *gin.Context) {
		if h.emitter == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audit emitter not configured"})
			return
		}
		h.emitter.Emit(c.Request.Context(), "INFO", "audit test")
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
