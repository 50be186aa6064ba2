package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storefront-svc/checkout"
	"storefront-svc/gateway"
	"storefront-svc/middleware"
	"storefront-svc/models"
	"storefront-svc/pricing"
)

type SessionBuilder interface {
	BuildSession(ctx context.Context, req models.CheckoutRequest) (string, error)
}

type CheckoutHandler struct {
	builder SessionBuilder
	logger  *zap.Logger
}

func NewCheckoutHandler(builder SessionBuilder, logger *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{builder: builder, logger: logger}
}

func (h *CheckoutHandler) CreateCheckout(c *gin.Context) {
	var req models.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	initPoint, err := h.builder.BuildSession(c.Request.Context(), req)
	if err != nil {
		h.respondCheckoutError(c, err)
		return
	}

	middleware.RecordCheckoutCreated()
	c.JSON(http.StatusOK, gin.H{"init_point": initPoint})
}

// Validation and conflict errors go back verbatim; upstream failures get a
// generic message with the detail kept in the logs.
func (h *CheckoutHandler) respondCheckoutError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, checkout.ErrShopNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "shop not found"})
	case errors.Is(err, checkout.ErrMissingCustomerFields),
		errors.Is(err, pricing.ErrEmptyCart),
		errors.Is(err, pricing.ErrItemNotFound),
		errors.Is(err, pricing.ErrInsufficientStock),
		errors.Is(err, pricing.ErrCouponNotFound),
		errors.Is(err, pricing.ErrCouponInactive),
		errors.Is(err, pricing.ErrCouponExpired),
		errors.Is(err, pricing.ErrCouponDepleted),
		errors.Is(err, pricing.ErrCouponMinAmount):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, gateway.ErrUnavailable), errors.Is(err, gateway.ErrBreakerOpen):
		h.logger.Error("Payment gateway unavailable during checkout", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "payment gateway unavailable"})
	default:
		h.logger.Error("Failed to build checkout session", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
