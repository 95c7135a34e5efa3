package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/caselog-api/internal/service"
	appErrors "github.com/noah-isme/caselog-api/pkg/errors"
	"github.com/noah-isme/caselog-api/pkg/response"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// MetricsHandler exposes observability endpoints.
type MetricsHandler struct {
	metrics *service.MetricsService
	store   pinger
}

// NewMetricsHandler constructs a metrics handler. store backs the readiness probe.
func NewMetricsHandler(metrics *service.MetricsService, store pinger) *MetricsHandler {
	return &MetricsHandler{metrics: metrics, store: store}
}

// Prometheus serves the Prometheus metrics endpoint.
func (h *MetricsHandler) Prometheus(c *gin.Context) {
	if h.metrics == nil {
		c.AbortWithStatus(http.StatusServiceUnavailable)
		return
	}
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Health responds with a generic OK payload for liveness usage.
func (h *MetricsHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready checks the connection to the case store.
func (h *MetricsHandler) Ready(c *gin.Context) {
	if h.store != nil {
		if err := h.store.Ping(c.Request.Context()); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrPersistence.Code, http.StatusServiceUnavailable, "case store unreachable"))
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
