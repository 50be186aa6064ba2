package checkout

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"storefront-svc/gateway"
	"storefront-svc/models"
	"storefront-svc/pricing"
)

var (
	ErrShopNotFound          = errors.New("shop not found")
	ErrMissingCustomerFields = errors.New("missing customer fields")
)

type Storage interface {
	GetShop(ctx context.Context, shopID int) (*models.Shop, error)
	GetShopSettings(ctx context.Context, shopID int) (*models.ShopSettings, error)
	GetProductsByIDs(ctx context.Context, shopID int, ids []int) ([]models.Product, error)
	GetCouponByCode(ctx context.Context, shopID int, code string) (*models.Coupon, error)
}

type PreferenceCreator interface {
	CreatePreference(ctx context.Context, creds gateway.Credentials, pref gateway.Preference) (*gateway.PreferenceResponse, error)
}

type Builder struct {
	store    Storage
	gw       PreferenceCreator
	platform gateway.Credentials
	baseURL  string
	currency string
	logger   *zap.Logger
}

func NewBuilder(st Storage, gw PreferenceCreator, platform gateway.Credentials, logger *zap.Logger) *Builder {
	return &Builder{
		store:    st,
		gw:       gw,
		platform: platform,
		baseURL:  getEnv("PUBLIC_BASE_URL", "http://localhost:8080"),
		currency: getEnv("GATEWAY_CURRENCY", "ARS"),
		logger:   logger,
	}
}

// BuildSession validates the cart against the catalog, registers a gateway
// preference carrying the full CheckoutIntent, and returns the redirect
// target. It creates no order row: order creation waits for a confirmed
// payment, so abandoned checkouts leave nothing behind.
func (b *Builder) BuildSession(ctx context.Context, req models.CheckoutRequest) (string, error) {
	ctx, span := otel.Tracer("storefront-service").Start(ctx, "BuildCheckoutSession")
	defer span.End()

	span.SetAttributes(
		attribute.Int("shop.id", req.ShopID),
		attribute.Int("cart.items", len(req.Items)),
	)

	if req.CustomerInfo.Name == "" || req.CustomerInfo.Email == "" {
		return "", ErrMissingCustomerFields
	}
	if len(req.Items) == 0 {
		return "", pricing.ErrEmptyCart
	}

	if _, err := b.store.GetShop(ctx, req.ShopID); err != nil {
		return "", fmt.Errorf("%w: shop %d", ErrShopNotFound, req.ShopID)
	}

	settings, err := b.store.GetShopSettings(ctx, req.ShopID)
	if err != nil {
		return "", err
	}
	creds := b.platform.Resolve(settings)

	ids := make([]int, 0, len(req.Items))
	for _, it := range req.Items {
		ids = append(ids, it.ProductID)
	}
	catalog, err := b.store.GetProductsByIDs(ctx, req.ShopID, ids)
	if err != nil {
		return "", err
	}

	var coupon *models.Coupon
	if req.CouponCode != "" {
		coupon, err = b.store.GetCouponByCode(ctx, req.ShopID, req.CouponCode)
		if err != nil {
			return "", err
		}
	}

	// Authoritative quote; client-sent prices and totals never matter.
	quote, err := pricing.Compute(pricing.Input{
		Catalog:    catalog,
		Items:      req.Items,
		CouponCode: req.CouponCode,
		Coupon:     coupon,
		Now:        time.Now(),
	})
	if err != nil {
		return "", err
	}

	intent := buildIntent(req, quote)

	prefItems := make([]gateway.PreferenceItem, 0, len(quote.Lines))
	for _, line := range quote.Lines {
		prefItems = append(prefItems, gateway.PreferenceItem{
			ID:         fmt.Sprintf("%d", line.ProductID),
			Title:      line.ProductName,
			Quantity:   line.Quantity,
			UnitPrice:  line.UnitPrice,
			CurrencyID: b.currency,
		})
	}

	pref := gateway.Preference{
		Items: prefItems,
		Payer: gateway.PreferencePayer{
			Name:  req.CustomerInfo.Name,
			Email: req.CustomerInfo.Email,
		},
		BackURLs: gateway.BackURLs{
			Success: b.baseURL + "/checkout/success",
			Failure: b.baseURL + "/checkout/failure",
			Pending: b.baseURL + "/checkout/pending",
		},
		// The gateway's notification carries no shop context of its own;
		// the shop id rides on the callback URL.
		NotificationURL:   fmt.Sprintf("%s/webhooks/payments?shop_id=%d", b.baseURL, req.ShopID),
		ExternalReference: uuid.NewString(),
		Metadata:          intent,
	}

	resp, err := b.gw.CreatePreference(ctx, creds, pref)
	if err != nil {
		span.RecordError(err)
		return "", err
	}

	b.logger.Info("Checkout session created",
		zap.Int("shop_id", req.ShopID),
		zap.Int64("total", quote.Total),
		zap.String("preference_id", resp.ID),
	)
	return resp.InitPoint, nil
}

func buildIntent(req models.CheckoutRequest, quote *pricing.Quote) models.CheckoutIntent {
	intent := models.CheckoutIntent{
		Version:         models.CheckoutIntentVersion,
		ShopID:          req.ShopID,
		CustomerName:    req.CustomerInfo.Name,
		CustomerEmail:   req.CustomerInfo.Email,
		CustomerPhone:   req.CustomerInfo.Phone,
		ShippingAddress: req.CustomerInfo.Address(),
		Discount:        quote.Discount,
		Total:           quote.Total,
	}
	for _, line := range quote.Lines {
		intent.Items = append(intent.Items, models.IntentItem{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			Price:     line.UnitPrice,
		})
	}
	if quote.Coupon != nil {
		intent.CouponID = quote.Coupon.ID
	}
	return intent
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
