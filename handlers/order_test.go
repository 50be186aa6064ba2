package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap/zaptest"

	"storefront-svc/models"
	"storefront-svc/orders"
	"storefront-svc/store"
)

type fakeOrderService struct {
	order *models.Order
	items []models.OrderItem
	err   error
}

func (f *fakeOrderService) Get(ctx context.Context, orderID, shopID int) (*models.Order, []models.OrderItem, error) {
	return f.order, f.items, f.err
}

func (f *fakeOrderService) Transition(ctx context.Context, orderID, shopID int, newStatus models.OrderStatus, trackingCode string) (*models.Order, error) {
	if f.err != nil {
		return nil, f.err
	}
	o := *f.order
	o.Status = newStatus
	o.TrackingCode = trackingCode
	return &o, nil
}

func setupOrderRouter(t *testing.T, svc OrderService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	handler := NewOrderHandler(svc, zaptest.NewLogger(t))
	router.GET("/orders/:id", handler.GetOrder)
	router.PATCH("/orders/:id/status", handler.UpdateOrderStatus)
	return router
}

func TestGetOrder_Success(t *testing.T) {
	svc := &fakeOrderService{
		order: &models.Order{ID: 7, ShopID: 1, Status: models.OrderStatusPaid, TotalAmount: 1800},
		items: []models.OrderItem{{ID: 1, OrderID: 7, ProductID: 10, Quantity: 2, PriceAtTime: 1000}},
	}
	router := setupOrderRouter(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/orders/7", nil)
	req.Header.Set("X-Shop-ID", "1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d", http.StatusOK, w.Code)
	}
}

func TestGetOrder_MissingShopHeader(t *testing.T) {
	router := setupOrderRouter(t, &fakeOrderService{})

	req := httptest.NewRequest(http.MethodGet, "/orders/7", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status %d, got %d", http.StatusUnauthorized, w.Code)
	}
}

func TestGetOrder_WrongShopIsNotFound(t *testing.T) {
	router := setupOrderRouter(t, &fakeOrderService{err: store.ErrNotFound})

	req := httptest.NewRequest(http.MethodGet, "/orders/7", nil)
	req.Header.Set("X-Shop-ID", "2")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status %d, got %d", http.StatusNotFound, w.Code)
	}
}

func patchStatus(t *testing.T, router *gin.Engine, orderID, shop string, body any) *httptest.ResponseRecorder {
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("Failed to marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPatch, "/orders/"+orderID+"/status", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if shop != "" {
		req.Header.Set("X-Shop-ID", shop)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestUpdateOrderStatus_Success(t *testing.T) {
	svc := &fakeOrderService{order: &models.Order{ID: 7, ShopID: 1, Status: models.OrderStatusPaid}}
	router := setupOrderRouter(t, svc)

	w := patchStatus(t, router, "7", "1", map[string]string{"status": "shipped", "tracking_code": "TRACK-9"})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}

	var o models.Order
	if err := json.Unmarshal(w.Body.Bytes(), &o); err != nil {
		t.Fatalf("Failed to decode order: %v", err)
	}
	if o.Status != models.OrderStatusShipped || o.TrackingCode != "TRACK-9" {
		t.Errorf("Unexpected order %+v", o)
	}
}

func TestUpdateOrderStatus_InvalidStatus(t *testing.T) {
	router := setupOrderRouter(t, &fakeOrderService{err: orders.ErrInvalidStatus})

	w := patchStatus(t, router, "7", "1", map[string]string{"status": "teleported"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
}

func TestUpdateOrderStatus_WrongShopIsNotFound(t *testing.T) {
	router := setupOrderRouter(t, &fakeOrderService{err: store.ErrNotFound})

	w := patchStatus(t, router, "7", "2", map[string]string{"status": "canceled"})
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status %d, got %d", http.StatusNotFound, w.Code)
	}
}
