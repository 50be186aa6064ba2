package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storefront-svc/models"
	"storefront-svc/store"
)

type ProductLoader interface {
	GetProduct(ctx context.Context, shopID, productID int) (*models.Product, error)
}

type ProductCache interface {
	Get(ctx context.Context, shopID, productID int) (*models.Product, error)
	Set(ctx context.Context, p *models.Product) error
}

type ProductHandler struct {
	products ProductLoader
	cache    ProductCache // may be nil
	logger   *zap.Logger
}

func NewProductHandler(products ProductLoader, cache ProductCache, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{products: products, cache: cache, logger: logger}
}

// GetProduct serves storefront product reads, cache-first. Cache misses
// and cache errors both fall through to the database.
func (h *ProductHandler) GetProduct(c *gin.Context) {
	sid, err := strconv.Atoi(c.Param("shop_id"))
	if err != nil || sid <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid shop ID"})
		return
	}
	productID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product ID"})
		return
	}

	ctx := c.Request.Context()
	if h.cache != nil {
		if p, err := h.cache.Get(ctx, sid, productID); err == nil {
			c.JSON(http.StatusOK, p)
			return
		}
	}

	p, err := h.products.GetProduct(ctx, sid, productID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
			return
		}
		h.logger.Error("Failed to get product", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	if h.cache != nil {
		if err := h.cache.Set(ctx, p); err != nil {
			h.logger.Warn("Failed to cache product", zap.Error(err))
		}
	}
	c.JSON(http.StatusOK, p)
}
