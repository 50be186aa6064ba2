package models

import (
	"errors"
	"fmt"
)

type CustomerInfo struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Phone    string `json:"phone"`
	Street   string `json:"street"`
	City     string `json:"city"`
	Province string `json:"province"`
	ZipCode  string `json:"zip_code"`
}

// Address joins the optional shipping fields into a single line, empty when
// none were provided.
func (c CustomerInfo) Address() string {
	addr := ""
	for _, part := range []string{c.Street, c.City, c.Province, c.ZipCode} {
		if part == "" {
			continue
		}
		if addr != "" {
			addr += ", "
		}
		addr += part
	}
	return addr
}

type CartItem struct {
	ProductID int `json:"id" binding:"required"`
	Quantity  int `json:"quantity" binding:"required,gt=0"`
}

type CheckoutRequest struct {
	ShopID       int          `json:"shop_id" binding:"required"`
	CustomerInfo CustomerInfo `json:"customer_info" binding:"required"`
	Items        []CartItem   `json:"items" binding:"required"`
	CouponCode   string       `json:"coupon_code"`
}

const CheckoutIntentVersion = 1

// IntentItem is a frozen line: the price is the catalog price at
// checkout-build time and is never re-read later.
type IntentItem struct {
	ProductID int   `json:"product_id"`
	Quantity  int   `json:"quantity"`
	Price     int64 `json:"price"`
}

// CheckoutIntent is the full snapshot of a to-be-created order, carried
// opaquely through the payment gateway's metadata field between checkout
// and webhook reconciliation.
type CheckoutIntent struct {
	Version         int          `json:"version"`
	ShopID          int          `json:"shop_id"`
	CustomerName    string       `json:"customer_name"`
	CustomerEmail   string       `json:"customer_email"`
	CustomerPhone   string       `json:"customer_phone,omitempty"`
	ShippingAddress string       `json:"shipping_address,omitempty"`
	Items           []IntentItem `json:"items"`
	CouponID        int          `json:"coupon_id,omitempty"`
	Discount        int64        `json:"discount,omitempty"`
	Total           int64        `json:"total"`
}

var ErrIncompleteIntent = errors.New("checkout intent metadata incomplete")

// Validate rejects structurally incomplete intents before any database
// write happens on their behalf.
func (i *CheckoutIntent) Validate() error {
	if i.Version != CheckoutIntentVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrIncompleteIntent, i.Version)
	}
	if i.ShopID <= 0 {
		return fmt.Errorf("%w: missing shop id", ErrIncompleteIntent)
	}
	if i.CustomerName == "" || i.CustomerEmail == "" {
		return fmt.Errorf("%w: missing customer fields", ErrIncompleteIntent)
	}
	if len(i.Items) == 0 {
		return fmt.Errorf("%w: no items", ErrIncompleteIntent)
	}
	for _, it := range i.Items {
		if it.ProductID <= 0 || it.Quantity <= 0 || it.Price < 0 {
			return fmt.Errorf("%w: bad item for product %d", ErrIncompleteIntent, it.ProductID)
		}
	}
	if i.Total < 0 {
		return fmt.Errorf("%w: negative total", ErrIncompleteIntent)
	}
	return nil
}
