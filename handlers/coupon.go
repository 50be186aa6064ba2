package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storefront-svc/models"
	"storefront-svc/pricing"
	"storefront-svc/store"
)

type CouponLoader interface {
	GetCouponByCode(ctx context.Context, shopID int, code string) (*models.Coupon, error)
}

type CouponHandler struct {
	coupons CouponLoader
	logger  *zap.Logger
}

func NewCouponHandler(coupons CouponLoader, logger *zap.Logger) *CouponHandler {
	return &CouponHandler{coupons: coupons, logger: logger}
}

type validateCouponRequest struct {
	ShopID    int    `json:"shop_id" binding:"required"`
	Code      string `json:"code" binding:"required"`
	CartTotal int64  `json:"cart_total" binding:"required,gt=0"`
}

// ValidateCoupon is the informational pre-checkout preview. It never
// consumes a redemption; uses_count only moves on confirmed payment.
func (h *CouponHandler) ValidateCoupon(c *gin.Context) {
	var req validateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"valid": false, "error": err.Error()})
		return
	}

	coupon, err := h.coupons.GetCouponByCode(c.Request.Context(), req.ShopID, req.Code)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		h.logger.Error("Failed to load coupon", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"valid": false, "error": "internal server error"})
		return
	}

	discount, err := pricing.ValidateCoupon(coupon, req.CartTotal, time.Now())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"valid": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"valid":           true,
		"discount_amount": discount,
		"total":           req.CartTotal - discount,
	})
}
