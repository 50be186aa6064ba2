package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"storefront-svc/middleware"
	"storefront-svc/models"
)

type SettingsLoader interface {
	GetShopSettings(ctx context.Context, shopID int) (*models.ShopSettings, error)
}

type Telegram interface {
	Send(ctx context.Context, botToken, chatID, text string) error
}

type Email interface {
	Send(to, subject, body string) error
}

// Hub consumes shop events and fans them out to the notification channels.
// Every delivery is best effort: a send failure is logged and counted,
// never propagated back to the order pipeline.
type Hub struct {
	settings SettingsLoader
	telegram Telegram
	email    Email
	logger   *zap.Logger
}

func NewHub(settings SettingsLoader, telegram Telegram, email Email, logger *zap.Logger) *Hub {
	return &Hub{settings: settings, telegram: telegram, email: email, logger: logger}
}

func (h *Hub) Dispatch(ctx context.Context, eventType string, payload []byte) error {
	switch eventType {
	case models.EventOrderCreated:
		var event models.OrderEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			return fmt.Errorf("failed to unmarshal order event: %w", err)
		}
		h.handleOrderCreated(ctx, event)
	case models.EventOrderShipped:
		var event models.OrderEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			return fmt.Errorf("failed to unmarshal order event: %w", err)
		}
		h.handleOrderShipped(event)
	case models.EventLowStock:
		var event models.LowStockEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			return fmt.Errorf("failed to unmarshal low stock event: %w", err)
		}
		h.handleLowStock(ctx, event)
	default:
		h.logger.Debug("Unknown event type", zap.String("event_type", eventType))
	}
	return nil
}

func (h *Hub) handleOrderCreated(ctx context.Context, event models.OrderEvent) {
	text := fmt.Sprintf("New order #%d from %s for %d. Paid and ready to fulfill.",
		event.OrderID, event.CustomerName, event.TotalAmount)
	h.sendTelegram(ctx, event.ShopID, "order_created", text)
}

func (h *Hub) handleLowStock(ctx context.Context, event models.LowStockEvent) {
	text := fmt.Sprintf("Low stock: %s is down to %d (threshold %d).",
		event.ProductName, event.Remaining, event.Threshold)
	h.sendTelegram(ctx, event.ShopID, "low_stock", text)
}

func (h *Hub) handleOrderShipped(event models.OrderEvent) {
	if event.CustomerEmail == "" {
		return
	}
	subject := fmt.Sprintf("Your order #%d is on its way", event.OrderID)
	body := fmt.Sprintf("Hi %s,\n\nYour order #%d has shipped. Tracking code: %s.\n",
		event.CustomerName, event.OrderID, event.TrackingCode)

	if err := h.email.Send(event.CustomerEmail, subject, body); err != nil {
		middleware.RecordNotificationSent("email", "error")
		h.logger.Error("Failed to send shipment email",
			zap.Int("order_id", event.OrderID),
			zap.Error(err),
		)
		return
	}
	middleware.RecordNotificationSent("email", "ok")
	h.logger.Info("Shipment email sent", zap.Int("order_id", event.OrderID))
}

func (h *Hub) sendTelegram(ctx context.Context, shopID int, kind, text string) {
	settings, err := h.settings.GetShopSettings(ctx, shopID)
	if err != nil {
		h.logger.Error("Failed to load shop settings for notification",
			zap.Int("shop_id", shopID),
			zap.Error(err),
		)
		return
	}
	if settings == nil || settings.TelegramBotToken == "" || settings.TelegramChatID == "" {
		// Shop has not connected Telegram.
		return
	}

	if err := h.telegram.Send(ctx, settings.TelegramBotToken, settings.TelegramChatID, text); err != nil {
		middleware.RecordNotificationSent("telegram", "error")
		h.logger.Error("Failed to send telegram notification",
			zap.Int("shop_id", shopID),
			zap.String("kind", kind),
			zap.Error(err),
		)
		return
	}
	middleware.RecordNotificationSent("telegram", "ok")
	h.logger.Info("Telegram notification sent",
		zap.Int("shop_id", shopID),
		zap.String("kind", kind),
	)
}
