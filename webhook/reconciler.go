package webhook

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"storefront-svc/gateway"
	"storefront-svc/models"
	"storefront-svc/store"
)

// Notification is the gateway's callback body. Its status hint is never
// trusted; only the payment id is used, to fetch live state out-of-band.
type Notification struct {
	Type string `json:"type"`
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

type Outcome string

const (
	// OutcomeCommitted: a new order was created for this payment.
	OutcomeCommitted Outcome = "committed"
	// OutcomeDuplicate: the payment had already been reconciled.
	OutcomeDuplicate Outcome = "duplicate"
	// OutcomeIgnored: non-payment notification or non-approved status.
	OutcomeIgnored Outcome = "ignored"
)

type Result struct {
	Outcome Outcome
	OrderID int
}

type Storage interface {
	GetShopSettings(ctx context.Context, shopID int) (*models.ShopSettings, error)
	CreateOrderFromIntent(ctx context.Context, paymentID string, intent *models.CheckoutIntent) (*store.CommitResult, error)
}

type PaymentFetcher interface {
	GetPayment(ctx context.Context, creds gateway.Credentials, paymentID string) (*gateway.Payment, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, event any) error
}

const defaultLowStockThreshold = 5

type Reconciler struct {
	store    Storage
	payments PaymentFetcher
	platform gateway.Credentials
	events   EventPublisher
	logger   *zap.Logger
}

func NewReconciler(st Storage, payments PaymentFetcher, platform gateway.Credentials, events EventPublisher, logger *zap.Logger) *Reconciler {
	return &Reconciler{
		store:    st,
		payments: payments,
		platform: platform,
		events:   events,
		logger:   logger,
	}
}

// Reconcile turns an asynchronous payment notification into a committed
// order. Delivery is at-least-once and unordered, so the whole path is
// idempotent: replaying an approved payment returns the existing order and
// touches nothing else.
func (r *Reconciler) Reconcile(ctx context.Context, shopID int, n Notification) (*Result, error) {
	ctx, span := otel.Tracer("storefront-service").Start(ctx, "Reconcile")
	defer span.End()

	span.SetAttributes(
		attribute.Int("shop.id", shopID),
		attribute.String("notification.type", n.Type),
	)

	if n.Type != "payment" {
		return &Result{Outcome: OutcomeIgnored}, nil
	}
	if n.Data.ID == "" {
		return nil, fmt.Errorf("%w: notification has no payment id", models.ErrIncompleteIntent)
	}

	settings, err := r.store.GetShopSettings(ctx, shopID)
	if err != nil {
		return nil, err
	}
	creds := r.platform.Resolve(settings)

	payment, err := r.payments.GetPayment(ctx, creds, n.Data.ID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(attribute.String("payment.status", payment.Status))
	if payment.Status != gateway.PaymentStatusApproved {
		// Rejected and pending payments never create orders or touch
		// inventory; there is nothing to roll back later.
		r.logger.Info("Ignoring non-approved payment",
			zap.String("payment_id", payment.ID),
			zap.String("status", payment.Status),
		)
		return &Result{Outcome: OutcomeIgnored}, nil
	}

	intent, err := decodeIntent(payment.Metadata)
	if err != nil {
		span.RecordError(err)
		r.logger.Error("Payment metadata unusable, manual recovery required",
			zap.String("payment_id", payment.ID),
			zap.Int("shop_id", shopID),
			zap.Error(err),
		)
		return nil, err
	}
	if intent.ShopID != shopID {
		return nil, fmt.Errorf("%w: intent shop %d does not match callback shop %d",
			models.ErrIncompleteIntent, intent.ShopID, shopID)
	}

	res, err := r.store.CreateOrderFromIntent(ctx, payment.ID, intent)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("order.id", res.OrderID))
	if !res.Created {
		return &Result{Outcome: OutcomeDuplicate, OrderID: res.OrderID}, nil
	}

	r.logger.Info("Order committed from approved payment",
		zap.String("payment_id", payment.ID),
		zap.Int("order_id", res.OrderID),
		zap.Int64("total", intent.Total),
	)

	// Everything past the commit is best effort; the gateway still gets a
	// success acknowledgment.
	r.publishOrderCreated(ctx, res.OrderID, intent)
	r.publishLowStock(ctx, shopID, settings, res.Remaining)

	return &Result{Outcome: OutcomeCommitted, OrderID: res.OrderID}, nil
}

func decodeIntent(metadata json.RawMessage) (*models.CheckoutIntent, error) {
	if len(metadata) == 0 || string(metadata) == "null" {
		return nil, fmt.Errorf("%w: payment has no metadata", models.ErrIncompleteIntent)
	}
	var intent models.CheckoutIntent
	if err := json.Unmarshal(metadata, &intent); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrIncompleteIntent, err)
	}
	if err := intent.Validate(); err != nil {
		return nil, err
	}
	return &intent, nil
}

func (r *Reconciler) publishOrderCreated(ctx context.Context, orderID int, intent *models.CheckoutIntent) {
	event := models.OrderEvent{
		EventID:       uuid.NewString(),
		EventType:     models.EventOrderCreated,
		ShopID:        intent.ShopID,
		OrderID:       orderID,
		CustomerName:  intent.CustomerName,
		CustomerEmail: intent.CustomerEmail,
		TotalAmount:   intent.Total,
		Status:        models.OrderStatusPaid,
	}
	if err := r.events.Publish(ctx, event); err != nil {
		r.logger.Error("Failed to publish order_created event", zap.Error(err))
	}
}

func (r *Reconciler) publishLowStock(ctx context.Context, shopID int, settings *models.ShopSettings, remaining []store.RemainingStock) {
	threshold := defaultLowStockThreshold
	if settings != nil {
		threshold = settings.LowStockThreshold
	}
	for _, rem := range remaining {
		if rem.Stock > threshold {
			continue
		}
		event := models.LowStockEvent{
			EventID:     uuid.NewString(),
			EventType:   models.EventLowStock,
			ShopID:      shopID,
			ProductID:   rem.ProductID,
			ProductName: rem.Name,
			Remaining:   rem.Stock,
			Threshold:   threshold,
		}
		if err := r.events.Publish(ctx, event); err != nil {
			r.logger.Error("Failed to publish low_stock event",
				zap.Int("product_id", rem.ProductID),
				zap.Error(err),
			)
		}
	}
}
