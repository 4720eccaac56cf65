package handlers

import (
	"net/http"
	"runtime"

	"github.com/gin-gonic/gin"

	"github.com/amawa/backend/internal/metrics"
	"github.com/amawa/backend/internal/tracing"
)

// MetricsHandler serves the /metrics snapshot and the /health probe
type MetricsHandler struct {
	metrics *metrics.Metrics
	tracer  tracing.Tracer
}

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler(metricsCollector *metrics.Metrics, tracer tracing.Tracer) *MetricsHandler {
	return &MetricsHandler{
		metrics: metricsCollector,
		tracer:  tracer,
	}
}

// HandleGetMetrics returns the current metrics snapshot
func (h *MetricsHandler) HandleGetMetrics(c *gin.Context) {
	txn := h.tracer.StartTransaction("get-metrics")
	defer h.tracer.EndTransaction(txn)

	h.metrics.SetGauge("goroutines", int64(runtime.NumGoroutine()))

	c.JSON(http.StatusOK, gin.H{
		"uptime_seconds": h.metrics.UptimeSeconds(),
		"counters":       h.metrics.Counters(),
		"gauges":         h.metrics.Gauges(),
		"outcomes":       h.metrics.Outcomes(),
		"health_checks":  h.metrics.HealthChecks(),
	})
}

// HandleGetHealthCheck reports component health. The database is the only
// required component; cache, search and queue run degraded when down.
func (h *MetricsHandler) HandleGetHealthCheck(c *gin.Context) {
	checks := h.metrics.HealthChecks()

	status := "ok"
	code := http.StatusOK
	if up, tracked := checks["database"]; tracked && !up {
		status = "unavailable"
		code = http.StatusServiceUnavailable
	} else {
		for _, up := range checks {
			if !up {
				status = "degraded"
				break
			}
		}
	}

	c.JSON(code, gin.H{
		"status":     status,
		"components": checks,
	})
}

// RegisterRoutes registers the handler's routes
func (h *MetricsHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/metrics", h.HandleGetMetrics)
	router.GET("/health", h.HandleGetHealthCheck)
}
