package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storefront-svc/models"
	"storefront-svc/orders"
	"storefront-svc/store"
)

type OrderService interface {
	Get(ctx context.Context, orderID, shopID int) (*models.Order, []models.OrderItem, error)
	Transition(ctx context.Context, orderID, shopID int, newStatus models.OrderStatus, trackingCode string) (*models.Order, error)
}

type OrderHandler struct {
	service OrderService
	logger  *zap.Logger
}

func NewOrderHandler(service OrderService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{service: service, logger: logger}
}

// shopID reads the authenticated merchant's shop from the X-Shop-ID
// header. Authentication itself is upstream; this service only scopes.
func shopID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.GetHeader("X-Shop-ID"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing shop context"})
		return 0, false
	}
	return id, true
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	sid, ok := shopID(c)
	if !ok {
		return
	}
	orderID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order ID"})
		return
	}

	order, items, err := h.service.Get(c.Request.Context(), orderID, sid)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			return
		}
		h.logger.Error("Failed to get order", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": order, "items": items})
}

type updateStatusRequest struct {
	Status       models.OrderStatus `json:"status" binding:"required"`
	TrackingCode string             `json:"tracking_code"`
}

func (h *OrderHandler) UpdateOrderStatus(c *gin.Context) {
	sid, ok := shopID(c)
	if !ok {
		return
	}
	orderID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order ID"})
		return
	}

	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.service.Transition(c.Request.Context(), orderID, sid, req.Status, req.TrackingCode)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			// Same response for "no such order" and "someone else's
			// order": don't leak tenant information.
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		case errors.Is(err, orders.ErrInvalidStatus):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			h.logger.Error("Failed to update order status", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		}
		return
	}

	c.JSON(http.StatusOK, order)
}
