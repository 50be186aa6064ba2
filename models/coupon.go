package models

import "time"

type CouponType string

const (
	CouponTypePercentage CouponType = "percentage"
	CouponTypeFixed      CouponType = "fixed"
)

type Coupon struct {
	ID        int        `json:"id"`
	ShopID    int        `json:"shop_id"`
	Code      string     `json:"code"`
	Type      CouponType `json:"type"`
	Value     int64      `json:"value"` // percent for percentage, minor units for fixed
	MinAmount *int64     `json:"min_amount,omitempty"`
	MaxUses   *int       `json:"max_uses,omitempty"`
	UsesCount int        `json:"uses_count"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	IsActive  bool       `json:"is_active"`
}
