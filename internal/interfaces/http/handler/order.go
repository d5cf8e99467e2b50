package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/storefront/backend/internal/application/ordersync"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/infrastructure/export"
	"github.com/storefront/backend/internal/interfaces/http/dto"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
)

// OrderService is the application surface used by OrderHandler
type OrderService interface {
	ListOrders(ctx context.Context, q ordersync.ListQuery) ([]order.Order, error)
	GetOrder(ctx context.Context, id string) (order.Order, error)
	Summarize(ctx context.Context, filter order.Filter) (order.Summary, error)
	Refresh(ctx context.Context, trigger ordersync.Trigger) (ordersync.RefreshStats, error)
}

// OrderHandler serves the order query, export and refresh endpoints
type OrderHandler struct {
	BaseHandler
	service OrderService
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(service OrderService) *OrderHandler {
	return &OrderHandler{service: service}
}

// List handles GET /api/orders
func (h *OrderHandler) List(c *gin.Context) {
	q, ok := h.bindListQuery(c)
	if !ok {
		return
	}

	orders, err := h.service.ListOrders(c.Request.Context(), q)
	if err != nil {
		h.InternalError(c, dto.MsgFetchOrdersFailed, err)
		return
	}
	if orders == nil {
		orders = []order.Order{}
	}
	h.SuccessList(c, orders, len(orders))
}

// Get handles GET /api/orders/:id
func (h *OrderHandler) Get(c *gin.Context) {
	o, err := h.service.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			h.NotFound(c, dto.MsgOrderNotFound)
			return
		}
		h.InternalError(c, dto.MsgFetchOrdersFailed, err)
		return
	}
	h.Success(c, o)
}

// Summary handles GET /api/orders/summary
func (h *OrderHandler) Summary(c *gin.Context) {
	q, ok := h.bindListQuery(c)
	if !ok {
		return
	}

	summary, err := h.service.Summarize(c.Request.Context(), q.Filter)
	if err != nil {
		h.InternalError(c, dto.MsgFetchOrdersFailed, err)
		return
	}
	h.Success(c, summary)
}

// ExportCSV handles GET /api/orders/csv. It accepts the list filters plus
// an optional encoding.
func (h *OrderHandler) ExportCSV(c *gin.Context) {
	q, ok := h.bindListQuery(c)
	if !ok {
		return
	}
	enc, ok := h.bindEncoding(c)
	if !ok {
		return
	}

	orders, err := h.service.ListOrders(c.Request.Context(), q)
	if err != nil {
		h.InternalError(c, dto.MsgGenerateCSVFailed, err)
		return
	}
	body, err := export.Orders(orders, enc)
	if err != nil {
		h.InternalError(c, dto.MsgGenerateCSVFailed, err)
		return
	}
	h.Attachment(c, "orders.csv", enc.ContentType(), body)
}

// ExportOrderCSV handles GET /api/orders/:id/csv
func (h *OrderHandler) ExportOrderCSV(c *gin.Context) {
	enc, ok := h.bindEncoding(c)
	if !ok {
		return
	}

	id := c.Param("id")
	o, err := h.service.GetOrder(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			h.NotFound(c, dto.MsgOrderNotFound)
			return
		}
		h.InternalError(c, dto.MsgGenerateCSVFailed, err)
		return
	}
	body, err := export.OrderDetail(o, enc)
	if err != nil {
		h.InternalError(c, dto.MsgGenerateCSVFailed, err)
		return
	}
	h.Attachment(c, export.DetailFilename(id), enc.ContentType(), body)
}

// Refresh handles POST /api/orders/refresh by running one refresh cycle
// synchronously.
func (h *OrderHandler) Refresh(c *gin.Context) {
	stats, err := h.service.Refresh(c.Request.Context(), ordersync.TriggerManual)
	if err != nil {
		h.InternalError(c, dto.MsgRefreshFailed, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewRefreshResponse(dto.RefreshStats{
		Total:     stats.Total,
		Added:     stats.Added,
		Updated:   stats.Updated,
		Unchanged: stats.Unchanged,
	}))
}

func (h *OrderHandler) bindListQuery(c *gin.Context) (ordersync.ListQuery, bool) {
	var raw dto.OrderListQuery
	if err := c.ShouldBindQuery(&raw); err != nil {
		middleware.HandleValidationError(c, err)
		return ordersync.ListQuery{}, false
	}
	sortBy, err := order.ParseSortField(raw.SortBy)
	if err != nil {
		middleware.HandleValidationError(c, err)
		return ordersync.ListQuery{}, false
	}
	return ordersync.ListQuery{
		Filter: order.Filter{
			MinWorth:  raw.MinWorth,
			MaxWorth:  raw.MaxWorth,
			ProductID: raw.ProductID,
		},
		SortBy: sortBy,
		Desc:   raw.Order == "desc",
	}, true
}

func (h *OrderHandler) bindEncoding(c *gin.Context) (export.Encoding, bool) {
	var raw dto.CSVQuery
	if err := c.ShouldBindQuery(&raw); err != nil {
		middleware.HandleValidationError(c, err)
		return "", false
	}
	enc, err := export.ParseEncoding(raw.Encoding)
	if err != nil {
		middleware.HandleValidationError(c, err)
		return "", false
	}
	return enc, true
}
