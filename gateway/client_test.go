package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"storefront-svc/models"
)

func testClient(t *testing.T, srv *httptest.Server) *Client {
	return &Client{
		baseURL: srv.URL,
		http:    srv.Client(),
		breaker: NewBreaker(5, 30*time.Second),
		logger:  zaptest.NewLogger(t),
	}
}

func TestCreatePreference(t *testing.T) {
	var gotAuth string
	var gotPref Preference

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotPref); err != nil {
			t.Fatalf("Failed to decode preference: %v", err)
		}
		json.NewEncoder(w).Encode(PreferenceResponse{ID: "pref-1", InitPoint: "https://gateway.test/init/pref-1"})
	}))
	defer srv.Close()

	client := testClient(t, srv)
	resp, err := client.CreatePreference(context.Background(), Credentials{AccessToken: "shop-token"}, Preference{
		Items:           []PreferenceItem{{ID: "1", Title: "Mate cup", Quantity: 2, UnitPrice: 1000, CurrencyID: "ARS"}},
		NotificationURL: "https://store.test/webhooks/payments?shop_id=1",
		Metadata:        models.CheckoutIntent{Version: 1, ShopID: 1, Total: 2000},
	})
	if err != nil {
		t.Fatalf("CreatePreference returned error: %v", err)
	}
	if resp.InitPoint != "https://gateway.test/init/pref-1" {
		t.Errorf("Unexpected init point %q", resp.InitPoint)
	}
	if gotAuth != "Bearer shop-token" {
		t.Errorf("Expected shop token in Authorization header, got %q", gotAuth)
	}
	if gotPref.Metadata.ShopID != 1 || gotPref.Metadata.Total != 2000 {
		t.Errorf("Metadata not carried: %+v", gotPref.Metadata)
	}
}

func TestGetPayment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/payments/42" {
			t.Errorf("Unexpected path %q", r.URL.Path)
		}
		w.Write([]byte(`{"id":"42","status":"approved","metadata":{"version":1,"shop_id":1}}`))
	}))
	defer srv.Close()

	client := testClient(t, srv)
	payment, err := client.GetPayment(context.Background(), Credentials{AccessToken: "t"}, "42")
	if err != nil {
		t.Fatalf("GetPayment returned error: %v", err)
	}
	if payment.Status != PaymentStatusApproved {
		t.Errorf("Expected approved, got %q", payment.Status)
	}
	if len(payment.Metadata) == 0 {
		t.Error("Expected raw metadata to be kept")
	}
}

func TestGetPayment_GatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := testClient(t, srv)
	_, err := client.GetPayment(context.Background(), Credentials{}, "42")
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("Expected ErrUnavailable, got %v", err)
	}
}

func TestCredentials_Resolve(t *testing.T) {
	platform := Credentials{AccessToken: "platform"}

	if got := platform.Resolve(nil); got.AccessToken != "platform" {
		t.Errorf("Expected platform token, got %q", got.AccessToken)
	}
	if got := platform.Resolve(&models.ShopSettings{}); got.AccessToken != "platform" {
		t.Errorf("Expected platform fallback for empty override, got %q", got.AccessToken)
	}
	if got := platform.Resolve(&models.ShopSettings{GatewayAccessToken: "shop"}); got.AccessToken != "shop" {
		t.Errorf("Expected shop override, got %q", got.AccessToken)
	}
}

func TestBreaker_OpensAfterFailures(t *testing.T) {
	b := NewBreaker(2, time.Minute)
	boom := errors.New("boom")

	for i := 0; i < 2; i++ {
		if err := b.Do(func() error { return boom }); !errors.Is(err, boom) {
			t.Fatalf("Expected boom, got %v", err)
		}
	}

	calls := 0
	err := b.Do(func() error { calls++; return nil })
	if !errors.Is(err, ErrBreakerOpen) {
		t.Errorf("Expected ErrBreakerOpen, got %v", err)
	}
	if calls != 0 {
		t.Error("Open breaker must not invoke the call")
	}
}

func TestBreaker_RecoversAfterTimeout(t *testing.T) {
	b := NewBreaker(1, 10*time.Millisecond)
	if err := b.Do(func() error { return errors.New("boom") }); err == nil {
		t.Fatal("Expected failure")
	}
	time.Sleep(20 * time.Millisecond)

	if err := b.Do(func() error { return nil }); err != nil {
		t.Errorf("Expected probe to succeed, got %v", err)
	}
	if err := b.Do(func() error { return nil }); err != nil {
		t.Errorf("Expected closed breaker, got %v", err)
	}
}
