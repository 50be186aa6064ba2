package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"storefront-svc/models"
	"storefront-svc/pricing"
)

// ErrNotFound covers both "no such row" and "row belongs to another shop".
// The two cases are deliberately indistinguishable to callers.
var ErrNotFound = errors.New("not found")

const uniqueViolation = "23505"

// Invalidator is called after a product's stock changes so read caches can
// drop the stale row. Best effort.
type Invalidator func(ctx context.Context, shopID, productID int)

type Store struct {
	db         *sql.DB
	logger     *zap.Logger
	invalidate Invalidator
}

func New(db *sql.DB, logger *zap.Logger, invalidate Invalidator) *Store {
	if invalidate == nil {
		invalidate = func(context.Context, int, int) {}
	}
	return &Store{db: db, logger: logger, invalidate: invalidate}
}

func (s *Store) GetShop(ctx context.Context, shopID int) (*models.Shop, error) {
	var shop models.Shop
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, created_at FROM shops WHERE id = $1",
		shopID,
	).Scan(&shop.ID, &shop.Name, &shop.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get shop: %w", err)
	}
	return &shop, nil
}

// GetShopSettings returns nil without error when the shop has no settings
// row; callers fall back to platform defaults.
func (s *Store) GetShopSettings(ctx context.Context, shopID int) (*models.ShopSettings, error) {
	var st models.ShopSettings
	err := s.db.QueryRowContext(ctx,
		`SELECT shop_id, gateway_access_token, telegram_bot_token, telegram_chat_id, low_stock_threshold
		 FROM shop_settings WHERE shop_id = $1`,
		shopID,
	).Scan(&st.ShopID, &st.GatewayAccessToken, &st.TelegramBotToken, &st.TelegramChatID, &st.LowStockThreshold)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get shop settings: %w", err)
	}
	return &st, nil
}

func (s *Store) GetProduct(ctx context.Context, shopID, productID int) (*models.Product, error) {
	var p models.Product
	err := s.db.QueryRowContext(ctx,
		`SELECT id, shop_id, name, price, stock, created_at, updated_at
		 FROM products WHERE id = $1 AND shop_id = $2`,
		productID, shopID,
	).Scan(&p.ID, &p.ShopID, &p.Name, &p.Price, &p.Stock, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return &p, nil
}

// GetProductsByIDs loads the shop's catalog rows for a cart. Products of
// other shops simply don't come back; the pricing validator reports them
// as not found.
func (s *Store) GetProductsByIDs(ctx context.Context, shopID int, ids []int) ([]models.Product, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, shop_id, name, price, stock, created_at, updated_at
		 FROM products WHERE shop_id = $1 AND id = ANY($2)`,
		shopID, pq.Array(ids),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(&p.ID, &p.ShopID, &p.Name, &p.Price, &p.Stock, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// GetCouponByCode resolves a code case-insensitively within the shop.
// Returns nil without error when no coupon matches.
func (s *Store) GetCouponByCode(ctx context.Context, shopID int, code string) (*models.Coupon, error) {
	var c models.Coupon
	err := s.db.QueryRowContext(ctx,
		`SELECT id, shop_id, code, type, value, min_amount, max_uses, uses_count, expires_at, is_active
		 FROM coupons WHERE shop_id = $1 AND LOWER(code) = $2`,
		shopID, pricing.NormalizeCode(code),
	).Scan(&c.ID, &c.ShopID, &c.Code, &c.Type, &c.Value, &c.MinAmount, &c.MaxUses, &c.UsesCount, &c.ExpiresAt, &c.IsActive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get coupon: %w", err)
	}
	return &c, nil
}

func (s *Store) GetOrder(ctx context.Context, orderID, shopID int) (*models.Order, error) {
	var o models.Order
	err := s.db.QueryRowContext(ctx,
		`SELECT id, shop_id, gateway_payment_id, customer_name, customer_email, customer_phone,
		        shipping_address, total_amount, status, tracking_code, created_at, updated_at
		 FROM orders WHERE id = $1 AND shop_id = $2`,
		orderID, shopID,
	).Scan(&o.ID, &o.ShopID, &o.GatewayPaymentID, &o.CustomerName, &o.CustomerEmail, &o.CustomerPhone,
		&o.ShippingAddress, &o.TotalAmount, &o.Status, &o.TrackingCode, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return &o, nil
}

func (s *Store) GetOrderItems(ctx context.Context, orderID int) ([]models.OrderItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, order_id, product_id, quantity, price_at_time
		 FROM order_items WHERE order_id = $1 ORDER BY id`,
		orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	var items []models.OrderItem
	for rows.Next() {
		var it models.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &it.PriceAtTime); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation
}
