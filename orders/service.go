package orders

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"storefront-svc/models"
)

var ErrInvalidStatus = errors.New("invalid order status")

type Storage interface {
	GetOrder(ctx context.Context, orderID, shopID int) (*models.Order, error)
	GetOrderItems(ctx context.Context, orderID int) ([]models.OrderItem, error)
	TransitionOrder(ctx context.Context, orderID, shopID int, newStatus models.OrderStatus, trackingCode string) (*models.Order, models.OrderStatus, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, event any) error
}

// Service is the merchant-facing order state machine. The transition graph
// is free: merchants can move any order to any state to correct mistakes,
// including reopening a canceled order. Inventory bookkeeping follows the
// restored-class rule inside the store transaction.
type Service struct {
	store  Storage
	events EventPublisher
	logger *zap.Logger
}

func NewService(st Storage, events EventPublisher, logger *zap.Logger) *Service {
	return &Service{store: st, events: events, logger: logger}
}

func (s *Service) Get(ctx context.Context, orderID, shopID int) (*models.Order, []models.OrderItem, error) {
	o, err := s.store.GetOrder(ctx, orderID, shopID)
	if err != nil {
		return nil, nil, err
	}
	items, err := s.store.GetOrderItems(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	return o, items, nil
}

// Transition moves the order to newStatus within its owning shop. A move
// to shipped that supplies a tracking code and wasn't already shipped
// publishes a shipment event; the email behind it is best effort.
func (s *Service) Transition(ctx context.Context, orderID, shopID int, newStatus models.OrderStatus, trackingCode string) (*models.Order, error) {
	ctx, span := otel.Tracer("storefront-service").Start(ctx, "TransitionOrder")
	defer span.End()

	span.SetAttributes(
		attribute.Int("order.id", orderID),
		attribute.Int("shop.id", shopID),
		attribute.String("order.status", string(newStatus)),
	)

	if !models.IsValidOrderStatus(newStatus) {
		return nil, ErrInvalidStatus
	}

	order, oldStatus, err := s.store.TransitionOrder(ctx, orderID, shopID, newStatus, trackingCode)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.logger.Info("Order status updated",
		zap.Int("order_id", orderID),
		zap.String("from", string(oldStatus)),
		zap.String("to", string(newStatus)),
	)

	if newStatus == models.OrderStatusShipped && oldStatus != models.OrderStatusShipped && trackingCode != "" {
		event := models.OrderEvent{
			EventID:       uuid.NewString(),
			EventType:     models.EventOrderShipped,
			ShopID:        shopID,
			OrderID:       order.ID,
			CustomerName:  order.CustomerName,
			CustomerEmail: order.CustomerEmail,
			Status:        order.Status,
			TrackingCode:  order.TrackingCode,
		}
		if err := s.events.Publish(ctx, event); err != nil {
			s.logger.Error("Failed to publish order_shipped event",
				zap.Int("order_id", order.ID),
				zap.Error(err),
			)
		}
	}

	return order, nil
}
