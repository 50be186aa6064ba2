package pricing

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront-svc/models"
)

var (
	ErrEmptyCart         = errors.New("cart is empty")
	ErrItemNotFound      = errors.New("item not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrCouponNotFound    = errors.New("coupon not found")
	ErrCouponInactive    = errors.New("coupon is not active")
	ErrCouponExpired     = errors.New("coupon has expired")
	ErrCouponDepleted    = errors.New("coupon usage limit reached")
	ErrCouponMinAmount   = errors.New("cart total below coupon minimum")
)

type Line struct {
	ProductID   int    `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	UnitPrice   int64  `json:"unit_price"`
	LineTotal   int64  `json:"line_total"`
}

type Quote struct {
	Lines    []Line         `json:"line_items"`
	Subtotal int64          `json:"subtotal"`
	Discount int64          `json:"discount"`
	Total    int64          `json:"total"`
	Coupon   *models.Coupon `json:"-"`
}

// Input carries everything a quote depends on. Catalog rows and the coupon
// are loaded by the caller so that the computation itself is a pure
// function of catalog + coupon state: the informational preview endpoint
// and the authoritative checkout builder both call Compute and must agree.
type Input struct {
	Catalog    []models.Product
	Items      []models.CartItem
	CouponCode string
	Coupon     *models.Coupon // nil when CouponCode did not resolve
	Now        time.Time
}

// Compute prices the cart from trusted catalog data and applies the coupon
// under its eligibility rules. Client-submitted prices never enter here.
func Compute(in Input) (*Quote, error) {
	if len(in.Items) == 0 {
		return nil, ErrEmptyCart
	}

	byID := make(map[int]models.Product, len(in.Catalog))
	for _, p := range in.Catalog {
		byID[p.ID] = p
	}

	q := &Quote{}
	for _, it := range in.Items {
		p, ok := byID[it.ProductID]
		if !ok {
			return nil, fmt.Errorf("%w: product %d", ErrItemNotFound, it.ProductID)
		}
		if p.Stock < it.Quantity {
			return nil, fmt.Errorf("%w: %s has %d left", ErrInsufficientStock, p.Name, p.Stock)
		}
		lineTotal := p.Price * int64(it.Quantity)
		q.Lines = append(q.Lines, Line{
			ProductID:   p.ID,
			ProductName: p.Name,
			Quantity:    it.Quantity,
			UnitPrice:   p.Price,
			LineTotal:   lineTotal,
		})
		q.Subtotal += lineTotal
	}

	if in.CouponCode != "" {
		coupon, err := checkCoupon(in.Coupon, q.Subtotal, in.Now)
		if err != nil {
			return nil, err
		}
		q.Coupon = coupon
		q.Discount = Discount(coupon, q.Subtotal)
	}

	q.Total = q.Subtotal - q.Discount
	return q, nil
}

// ValidateCoupon checks eligibility against a known cart subtotal and
// returns the discount it would grant. Used by the informational preview
// endpoint; the checkout builder goes through Compute instead.
func ValidateCoupon(c *models.Coupon, subtotal int64, now time.Time) (int64, error) {
	coupon, err := checkCoupon(c, subtotal, now)
	if err != nil {
		return 0, err
	}
	return Discount(coupon, subtotal), nil
}

// checkCoupon walks the eligibility rules in a fixed order; the first
// failure wins so callers always report one deterministic reason.
func checkCoupon(c *models.Coupon, subtotal int64, now time.Time) (*models.Coupon, error) {
	if c == nil {
		return nil, ErrCouponNotFound
	}
	if !c.IsActive {
		return nil, ErrCouponInactive
	}
	if c.ExpiresAt != nil && now.After(*c.ExpiresAt) {
		return nil, ErrCouponExpired
	}
	if c.MaxUses != nil && c.UsesCount >= *c.MaxUses {
		return nil, ErrCouponDepleted
	}
	if c.MinAmount != nil && subtotal < *c.MinAmount {
		return nil, ErrCouponMinAmount
	}
	return c, nil
}

// Discount computes the coupon's discount on a subtotal of minor currency
// units. Percentage discounts round half up; fixed discounts clamp at the
// subtotal so the total never goes negative.
func Discount(c *models.Coupon, subtotal int64) int64 {
	switch c.Type {
	case models.CouponTypePercentage:
		return (subtotal*c.Value + 50) / 100
	case models.CouponTypeFixed:
		if c.Value > subtotal {
			return subtotal
		}
		return c.Value
	}
	return 0
}

// NormalizeCode lowercases a coupon code for the case-insensitive per-shop
// uniqueness lookup.
func NormalizeCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}
