package models

// Event types published to the shop_events topic. Notification senders
// subscribe to these; the order commit transaction never waits on them.
const (
	EventOrderCreated = "order_created"
	EventOrderShipped = "order_shipped"
	EventLowStock     = "low_stock"
)

type OrderEvent struct {
	EventID       string      `json:"event_id"`
	EventType     string      `json:"event_type"`
	ShopID        int         `json:"shop_id"`
	OrderID       int         `json:"order_id"`
	CustomerName  string      `json:"customer_name,omitempty"`
	CustomerEmail string      `json:"customer_email,omitempty"`
	TotalAmount   int64       `json:"total_amount,omitempty"`
	Status        OrderStatus `json:"status,omitempty"`
	TrackingCode  string      `json:"tracking_code,omitempty"`
}

type LowStockEvent struct {
	EventID     string `json:"event_id"`
	EventType   string `json:"event_type"`
	ShopID      int    `json:"shop_id"`
	ProductID   int    `json:"product_id"`
	ProductName string `json:"product_name"`
	Remaining   int    `json:"remaining"`
	Threshold   int    `json:"threshold"`
}
