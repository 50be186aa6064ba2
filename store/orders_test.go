package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"go.uber.org/zap/zaptest"

	"storefront-svc/models"
)

func setupStore(t *testing.T) (*Store, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock database: %v", err)
	}
	invalidated := func(context.Context, int, int) {}
	s := New(db, zaptest.NewLogger(t), invalidated)
	return s, mock, func() { db.Close() }
}

func testIntent() *models.CheckoutIntent {
	return &models.CheckoutIntent{
		Version:       models.CheckoutIntentVersion,
		ShopID:        1,
		CustomerName:  "Ana",
		CustomerEmail: "ana@example.com",
		Items: []models.IntentItem{
			{ProductID: 10, Quantity: 2, Price: 1000},
		},
		CouponID: 3,
		Discount: 200,
		Total:    1800,
	}
}

func TestCreateOrderFromIntent_CommitsOnce(t *testing.T) {
	s, mock, done := setupStore(t)
	defer done()

	intent := testIntent()

	mock.ExpectQuery("SELECT id FROM orders WHERE gateway_payment_id").
		WithArgs("pay-1").
		WillReturnError(sql.ErrNoRows)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO orders").
		WithArgs(1, "pay-1", "Ana", "ana@example.com", "", "", int64(1800), models.OrderStatusPaid).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))
	mock.ExpectExec("INSERT INTO order_items").
		WithArgs(42, 10, 2, int64(1000)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery("UPDATE products").
		WithArgs(2, 10, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "stock"}).AddRow(10, "Mate cup", 3))
	mock.ExpectExec("UPDATE coupons SET uses_count = uses_count \\+ 1").
		WithArgs(3, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := s.CreateOrderFromIntent(context.Background(), "pay-1", intent)
	if err != nil {
		t.Fatalf("CreateOrderFromIntent returned error: %v", err)
	}
	if !res.Created {
		t.Error("Expected Created=true")
	}
	if res.OrderID != 42 {
		t.Errorf("Expected order id 42, got %d", res.OrderID)
	}
	if len(res.Remaining) != 1 || res.Remaining[0].Stock != 3 {
		t.Errorf("Expected remaining stock 3, got %+v", res.Remaining)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func TestCreateOrderFromIntent_DuplicateSeenUpFront(t *testing.T) {
	s, mock, done := setupStore(t)
	defer done()

	mock.ExpectQuery("SELECT id FROM orders WHERE gateway_payment_id").
		WithArgs("pay-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))

	res, err := s.CreateOrderFromIntent(context.Background(), "pay-1", testIntent())
	if err != nil {
		t.Fatalf("CreateOrderFromIntent returned error: %v", err)
	}
	if res.Created {
		t.Error("Expected Created=false for replayed payment")
	}
	if res.OrderID != 42 {
		t.Errorf("Expected existing order id 42, got %d", res.OrderID)
	}

	// Crucially: no transaction, no stock or coupon statements.
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func TestCreateOrderFromIntent_LosesInsertRace(t *testing.T) {
	s, mock, done := setupStore(t)
	defer done()

	mock.ExpectQuery("SELECT id FROM orders WHERE gateway_payment_id").
		WithArgs("pay-1").
		WillReturnError(sql.ErrNoRows)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO orders").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "orders_gateway_payment_id_key"})
	mock.ExpectRollback()

	mock.ExpectQuery("SELECT id FROM orders WHERE gateway_payment_id").
		WithArgs("pay-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))

	res, err := s.CreateOrderFromIntent(context.Background(), "pay-1", testIntent())
	if err != nil {
		t.Fatalf("CreateOrderFromIntent returned error: %v", err)
	}
	if res.Created {
		t.Error("Expected Created=false after losing the race")
	}
	if res.OrderID != 42 {
		t.Errorf("Expected winner's order id 42, got %d", res.OrderID)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func orderRows(status models.OrderStatus, tracking string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "shop_id", "gateway_payment_id", "customer_name", "customer_email", "customer_phone",
		"shipping_address", "total_amount", "status", "tracking_code", "created_at", "updated_at",
	}).AddRow(7, 1, "pay-1", "Ana", "ana@example.com", "", "", 1800, status, tracking, now, now)
}

func TestTransitionOrder_IntoRestoredClassAddsStockBack(t *testing.T) {
	s, mock, done := setupStore(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status FROM orders WHERE id = \\$1 AND shop_id = \\$2 FOR UPDATE").
		WithArgs(7, 1).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(models.OrderStatusPaid))
	mock.ExpectQuery("SET stock = p.stock \\+ oi.quantity").
		WithArgs(7, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(10))
	mock.ExpectQuery("UPDATE orders").
		WithArgs(models.OrderStatusCanceled, "", 7, 1).
		WillReturnRows(orderRows(models.OrderStatusCanceled, ""))
	mock.ExpectCommit()

	o, old, err := s.TransitionOrder(context.Background(), 7, 1, models.OrderStatusCanceled, "")
	if err != nil {
		t.Fatalf("TransitionOrder returned error: %v", err)
	}
	if old != models.OrderStatusPaid {
		t.Errorf("Expected old status paid, got %s", old)
	}
	if o.Status != models.OrderStatusCanceled {
		t.Errorf("Expected canceled, got %s", o.Status)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func TestTransitionOrder_OutOfRestoredClassRededucts(t *testing.T) {
	s, mock, done := setupStore(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status FROM orders WHERE id = \\$1 AND shop_id = \\$2 FOR UPDATE").
		WithArgs(7, 1).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(models.OrderStatusCanceled))
	mock.ExpectQuery("SET stock = GREATEST\\(p.stock - oi.quantity, 0\\)").
		WithArgs(7, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(10))
	mock.ExpectQuery("UPDATE orders").
		WithArgs(models.OrderStatusShipped, "TRACK-9", 7, 1).
		WillReturnRows(orderRows(models.OrderStatusShipped, "TRACK-9"))
	mock.ExpectCommit()

	o, old, err := s.TransitionOrder(context.Background(), 7, 1, models.OrderStatusShipped, "TRACK-9")
	if err != nil {
		t.Fatalf("TransitionOrder returned error: %v", err)
	}
	if old != models.OrderStatusCanceled {
		t.Errorf("Expected old status canceled, got %s", old)
	}
	if o.TrackingCode != "TRACK-9" {
		t.Errorf("Expected tracking code, got %q", o.TrackingCode)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func TestTransitionOrder_SameClassSkipsStock(t *testing.T) {
	s, mock, done := setupStore(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status FROM orders WHERE id = \\$1 AND shop_id = \\$2 FOR UPDATE").
		WithArgs(7, 1).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(models.OrderStatusProcessing))
	// No stock statement between the lock and the status update.
	mock.ExpectQuery("UPDATE orders").
		WithArgs(models.OrderStatusShipped, "TRACK-1", 7, 1).
		WillReturnRows(orderRows(models.OrderStatusShipped, "TRACK-1"))
	mock.ExpectCommit()

	if _, _, err := s.TransitionOrder(context.Background(), 7, 1, models.OrderStatusShipped, "TRACK-1"); err != nil {
		t.Fatalf("TransitionOrder returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func TestTransitionOrder_WrongShopIsNotFound(t *testing.T) {
	s, mock, done := setupStore(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status FROM orders WHERE id = \\$1 AND shop_id = \\$2 FOR UPDATE").
		WithArgs(7, 2).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, _, err := s.TransitionOrder(context.Background(), 7, 2, models.OrderStatusShipped, "")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}
