package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"storefront-svc/models"
)

// RemainingStock reports a product's stock level after an order commit so
// the reconciler can raise low-stock alerts without another read.
type RemainingStock struct {
	ProductID int
	Name      string
	Stock     int
}

// CommitResult is the outcome of CreateOrderFromIntent. Created is false
// when the payment id had already been reconciled; in that case OrderID is
// the existing order and no stock or coupon state was touched.
type CommitResult struct {
	OrderID   int
	Created   bool
	Remaining []RemainingStock
}

// CreateOrderFromIntent commits an approved payment exactly once: order
// row, line items, stock decrements, and the coupon increment run in a
// single transaction keyed by the UNIQUE constraint on gateway_payment_id.
// Replayed webhooks either see the existing row up front or lose the
// insert race and read the winner's order id.
func (s *Store) CreateOrderFromIntent(ctx context.Context, paymentID string, intent *models.CheckoutIntent) (*CommitResult, error) {
	if existing, err := s.findOrderByPayment(ctx, paymentID); err != nil {
		return nil, err
	} else if existing != 0 {
		return &CommitResult{OrderID: existing, Created: false}, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	finished := false
	defer func() {
		if !finished {
			_ = tx.Rollback()
		}
	}()

	var orderID int
	err = tx.QueryRowContext(ctx,
		`INSERT INTO orders (shop_id, gateway_payment_id, customer_name, customer_email,
		                     customer_phone, shipping_address, total_amount, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id`,
		intent.ShopID, paymentID, intent.CustomerName, intent.CustomerEmail,
		intent.CustomerPhone, intent.ShippingAddress, intent.Total, models.OrderStatusPaid,
	).Scan(&orderID)
	if err != nil {
		if isUniqueViolation(err) {
			// A concurrent delivery won the race.
			_ = tx.Rollback()
			finished = true
			existing, lookupErr := s.findOrderByPayment(ctx, paymentID)
			if lookupErr != nil {
				return nil, lookupErr
			}
			s.logger.Info("Duplicate webhook delivery deduplicated",
				zap.String("payment_id", paymentID),
				zap.Int("order_id", existing),
			)
			return &CommitResult{OrderID: existing, Created: false}, nil
		}
		return nil, fmt.Errorf("failed to insert order: %w", err)
	}

	result := &CommitResult{OrderID: orderID, Created: true}
	for _, item := range intent.Items {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO order_items (order_id, product_id, quantity, price_at_time)
			 VALUES ($1, $2, $3, $4)`,
			orderID, item.ProductID, item.Quantity, item.Price,
		); err != nil {
			return nil, fmt.Errorf("failed to insert order item: %w", err)
		}

		// Atomic decrement floored at zero; never read-then-write.
		var rem RemainingStock
		err = tx.QueryRowContext(ctx,
			`UPDATE products
			 SET stock = GREATEST(stock - $1, 0), updated_at = CURRENT_TIMESTAMP
			 WHERE id = $2 AND shop_id = $3
			 RETURNING id, name, stock`,
			item.Quantity, item.ProductID, intent.ShopID,
		).Scan(&rem.ProductID, &rem.Name, &rem.Stock)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				// Product deleted between checkout and reconciliation.
				// The sale already happened; keep the order.
				s.logger.Warn("Product missing during stock deduction",
					zap.Int("product_id", item.ProductID),
					zap.Int("order_id", orderID),
				)
				continue
			}
			return nil, fmt.Errorf("failed to deduct stock: %w", err)
		}
		result.Remaining = append(result.Remaining, rem)
	}

	if intent.CouponID != 0 {
		if _, err := tx.ExecContext(ctx,
			`UPDATE coupons SET uses_count = uses_count + 1 WHERE id = $1 AND shop_id = $2`,
			intent.CouponID, intent.ShopID,
		); err != nil {
			return nil, fmt.Errorf("failed to increment coupon usage: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit order: %w", err)
	}
	finished = true

	for _, rem := range result.Remaining {
		s.invalidate(ctx, intent.ShopID, rem.ProductID)
	}
	return result, nil
}

func (s *Store) findOrderByPayment(ctx context.Context, paymentID string) (int, error) {
	var id int
	err := s.db.QueryRowContext(ctx,
		"SELECT id FROM orders WHERE gateway_payment_id = $1", paymentID,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to look up order by payment: %w", err)
	}
	return id, nil
}

// TransitionOrder updates an order's status within its owning shop and
// applies the stock-restore rule: entering the restored class (canceled,
// returned) from an active status adds each line's quantity back, leaving
// it re-deducts floored at zero, and a same-class change touches nothing.
func (s *Store) TransitionOrder(ctx context.Context, orderID, shopID int, newStatus models.OrderStatus, trackingCode string) (*models.Order, models.OrderStatus, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var oldStatus models.OrderStatus
	err = tx.QueryRowContext(ctx,
		"SELECT status FROM orders WHERE id = $1 AND shop_id = $2 FOR UPDATE",
		orderID, shopID,
	).Scan(&oldStatus)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", ErrNotFound
		}
		return nil, "", fmt.Errorf("failed to lock order: %w", err)
	}

	wasRestored := models.StockRestored(oldStatus)
	willRestore := models.StockRestored(newStatus)

	var touched []int
	if wasRestored != willRestore {
		stockSQL := `UPDATE products p
			 SET stock = GREATEST(p.stock - oi.quantity, 0), updated_at = CURRENT_TIMESTAMP
			 FROM order_items oi
			 WHERE oi.order_id = $1 AND p.id = oi.product_id AND p.shop_id = $2
			 RETURNING p.id`
		if willRestore {
			stockSQL = `UPDATE products p
			 SET stock = p.stock + oi.quantity, updated_at = CURRENT_TIMESTAMP
			 FROM order_items oi
			 WHERE oi.order_id = $1 AND p.id = oi.product_id AND p.shop_id = $2
			 RETURNING p.id`
		}
		rows, err := tx.QueryContext(ctx, stockSQL, orderID, shopID)
		if err != nil {
			return nil, "", fmt.Errorf("failed to adjust stock: %w", err)
		}
		for rows.Next() {
			var pid int
			if err := rows.Scan(&pid); err != nil {
				rows.Close()
				return nil, "", fmt.Errorf("failed to scan adjusted product: %w", err)
			}
			touched = append(touched, pid)
		}
		if err := rows.Close(); err != nil {
			return nil, "", fmt.Errorf("failed to adjust stock: %w", err)
		}
	}

	var o models.Order
	err = tx.QueryRowContext(ctx,
		`UPDATE orders
		 SET status = $1,
		     tracking_code = CASE WHEN $2 <> '' THEN $2 ELSE tracking_code END,
		     updated_at = CURRENT_TIMESTAMP
		 WHERE id = $3 AND shop_id = $4
		 RETURNING id, shop_id, gateway_payment_id, customer_name, customer_email, customer_phone,
		           shipping_address, total_amount, status, tracking_code, created_at, updated_at`,
		newStatus, trackingCode, orderID, shopID,
	).Scan(&o.ID, &o.ShopID, &o.GatewayPaymentID, &o.CustomerName, &o.CustomerEmail, &o.CustomerPhone,
		&o.ShippingAddress, &o.TotalAmount, &o.Status, &o.TrackingCode, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, "", fmt.Errorf("failed to update order status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, "", fmt.Errorf("failed to commit status transition: %w", err)
	}
	committed = true

	for _, pid := range touched {
		s.invalidate(ctx, shopID, pid)
	}
	return &o, oldStatus, nil
}
