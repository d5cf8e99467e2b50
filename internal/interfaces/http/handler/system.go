package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/storefront/backend/internal/interfaces/http/dto"
)

// StoreSizer reports the number of stored orders
type StoreSizer interface {
	StoreSize(ctx context.Context) (int, error)
}

// SchedulerStatus reports the refresh scheduler state; it may be absent
// when the scheduler is disabled.
type SchedulerStatus interface {
	StatusSnapshot() any
}

// SchedulerStatusFunc adapts a function to SchedulerStatus
type SchedulerStatusFunc func() any

// StatusSnapshot implements SchedulerStatus
func (f SchedulerStatusFunc) StatusSnapshot() any { return f() }

// SystemHandler serves the banner and health endpoints
type SystemHandler struct {
	BaseHandler
	startTime time.Time
	store     StoreSizer
	scheduler SchedulerStatus
}

// NewSystemHandler creates a new SystemHandler. scheduler may be nil.
func NewSystemHandler(store StoreSizer, scheduler SchedulerStatus) *SystemHandler {
	return &SystemHandler{
		startTime: time.Now(),
		store:     store,
		scheduler: scheduler,
	}
}

// Banner handles GET /
func (h *SystemHandler) Banner(c *gin.Context) {
	c.String(http.StatusOK, "Orders API is running. Use /api/orders to list orders.")
}

// Health handles GET /health. A store that cannot be read answers 503.
func (h *SystemHandler) Health(c *gin.Context) {
	resp := dto.HealthResponse{
		Status:    "ok",
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		GoVersion: runtime.Version(),
	}
	if h.scheduler != nil {
		resp.Scheduler = h.scheduler.StatusSnapshot()
	}

	size, err := h.store.StoreSize(c.Request.Context())
	if err != nil {
		resp.Status = "degraded"
		resp.StoreError = "order store unavailable"
		c.JSON(http.StatusServiceUnavailable, dto.Response{Success: false, Data: resp})
		return
	}
	resp.StoreSize = size
	h.Success(c, resp)
}

// NoRoute answers unknown paths
func (h *SystemHandler) NoRoute(c *gin.Context) {
	h.NotFound(c, dto.MsgResourceNotFound)
}
