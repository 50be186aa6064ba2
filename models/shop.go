package models

import "time"

type Shop struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// ShopSettings carries the per-tenant overrides. GatewayAccessToken empty
// means the platform default credentials apply.
type ShopSettings struct {
	ShopID             int    `json:"shop_id"`
	GatewayAccessToken string `json:"gateway_access_token"`
	TelegramBotToken   string `json:"telegram_bot_token"`
	TelegramChatID     string `json:"telegram_chat_id"`
	LowStockThreshold  int    `json:"low_stock_threshold"`
}

type Product struct {
	ID        int       `json:"id"`
	ShopID    int       `json:"shop_id"`
	Name      string    `json:"name"`
	Price     int64     `json:"price"` // minor currency units
	Stock     int       `json:"stock"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
