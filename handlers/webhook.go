package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storefront-svc/gateway"
	"storefront-svc/middleware"
	"storefront-svc/models"
	"storefront-svc/webhook"
)

type PaymentReconciler interface {
	Reconcile(ctx context.Context, shopID int, n webhook.Notification) (*webhook.Result, error)
}

type WebhookHandler struct {
	reconciler PaymentReconciler
	logger     *zap.Logger
}

func NewWebhookHandler(reconciler PaymentReconciler, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{reconciler: reconciler, logger: logger}
}

// HandlePaymentWebhook acknowledges with 200 whenever the commit step
// succeeded or the notification was deliberately ignored; any non-2xx
// tells the gateway to redeliver.
func (h *WebhookHandler) HandlePaymentWebhook(c *gin.Context) {
	shopID, err := strconv.Atoi(c.Query("shop_id"))
	if err != nil || shopID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid shop_id"})
		return
	}

	var n webhook.Notification
	if err := c.ShouldBindJSON(&n); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.reconciler.Reconcile(c.Request.Context(), shopID, n)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrIncompleteIntent):
			// Manual recovery case: the payment is real but its metadata
			// is unusable. Retrying won't help.
			middleware.RecordWebhookProcessed("integrity_error")
			c.JSON(http.StatusBadRequest, gin.H{"error": "unprocessable payment metadata"})
		case errors.Is(err, gateway.ErrUnavailable), errors.Is(err, gateway.ErrBreakerOpen):
			middleware.RecordWebhookProcessed("gateway_error")
			c.JSON(http.StatusBadGateway, gin.H{"error": "payment gateway unavailable"})
		default:
			middleware.RecordWebhookProcessed("error")
			h.logger.Error("Webhook reconciliation failed",
				zap.Int("shop_id", shopID),
				zap.Error(err),
			)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		}
		return
	}

	middleware.RecordWebhookProcessed(string(result.Outcome))
	if result.Outcome == webhook.OutcomeCommitted {
		middleware.RecordOrderCreated()
	}

	resp := gin.H{"status": string(result.Outcome)}
	if result.OrderID != 0 {
		resp["order_id"] = result.OrderID
	}
	c.JSON(http.StatusOK, resp)
}
