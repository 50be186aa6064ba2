package models

import "time"

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusPaid       OrderStatus = "paid"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCanceled   OrderStatus = "canceled"
	OrderStatusReturned   OrderStatus = "returned"
)

// IsValidOrderStatus reports whether s is one of the known statuses.
func IsValidOrderStatus(s OrderStatus) bool {
	switch s {
	case OrderStatusPending, OrderStatusPaid, OrderStatusProcessing,
		OrderStatusShipped, OrderStatusDelivered, OrderStatusCanceled,
		OrderStatusReturned:
		return true
	}
	return false
}

// StockRestored reports whether s belongs to the class of statuses in
// which the order's stock has been returned to the catalog.
func StockRestored(s OrderStatus) bool {
	return s == OrderStatusCanceled || s == OrderStatusReturned
}

type Order struct {
	ID               int         `json:"id"`
	ShopID           int         `json:"shop_id"`
	GatewayPaymentID string      `json:"gateway_payment_id"`
	CustomerName     string      `json:"customer_name"`
	CustomerEmail    string      `json:"customer_email"`
	CustomerPhone    string      `json:"customer_phone,omitempty"`
	ShippingAddress  string      `json:"shipping_address,omitempty"`
	TotalAmount      int64       `json:"total_amount"`
	Status           OrderStatus `json:"status"`
	TrackingCode     string      `json:"tracking_code,omitempty"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

type OrderItem struct {
	ID          int   `json:"id"`
	OrderID     int   `json:"order_id"`
	ProductID   int   `json:"product_id"`
	Quantity    int   `json:"quantity"`
	PriceAtTime int64 `json:"price_at_time"`
}
