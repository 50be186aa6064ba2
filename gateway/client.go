package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"storefront-svc/models"
)

var ErrUnavailable = errors.New("payment gateway unavailable")

// Credentials selects which tenant's gateway account a call runs against.
// The platform default is loaded once at startup; a shop's settings row can
// override it.
type Credentials struct {
	AccessToken string
}

// Resolve returns the shop override when present, else the platform default.
func (c Credentials) Resolve(settings *models.ShopSettings) Credentials {
	if settings != nil && settings.GatewayAccessToken != "" {
		return Credentials{AccessToken: settings.GatewayAccessToken}
	}
	return c
}

func PlatformCredentials() Credentials {
	return Credentials{AccessToken: getEnv("GATEWAY_ACCESS_TOKEN", "")}
}

type PreferenceItem struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Quantity   int    `json:"quantity"`
	UnitPrice  int64  `json:"unit_price"`
	CurrencyID string `json:"currency_id"`
}

type PreferencePayer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type BackURLs struct {
	Success string `json:"success"`
	Failure string `json:"failure"`
	Pending string `json:"pending"`
}

// Preference is the checkout session registered with the gateway. Metadata
// carries the serialized CheckoutIntent; the gateway echoes it back on the
// payment object, which is how reconciliation learns what to create.
type Preference struct {
	Items             []PreferenceItem      `json:"items"`
	Payer             PreferencePayer       `json:"payer"`
	BackURLs          BackURLs              `json:"back_urls"`
	NotificationURL   string                `json:"notification_url"`
	ExternalReference string                `json:"external_reference"`
	Metadata          models.CheckoutIntent `json:"metadata"`
}

type PreferenceResponse struct {
	ID        string `json:"id"`
	InitPoint string `json:"init_point"`
}

// Payment is the authoritative payment state fetched from the gateway.
// Metadata is kept raw so a malformed blob fails at decode time with a
// distinct error instead of silently zeroing fields.
type Payment struct {
	ID       string          `json:"id"`
	Status   string          `json:"status"`
	Metadata json.RawMessage `json:"metadata"`
}

const PaymentStatusApproved = "approved"

type Client struct {
	baseURL string
	http    *http.Client
	breaker *Breaker
	logger  *zap.Logger
}

func NewClient(logger *zap.Logger) *Client {
	return &Client{
		baseURL: getEnv("GATEWAY_BASE_URL", "https://api.mercadopago.com"),
		http:    &http.Client{Timeout: 10 * time.Second},
		breaker: NewBreaker(5, 30*time.Second),
		logger:  logger,
	}
}

// CreatePreference registers a checkout session and returns the redirect
// target for the customer.
func (c *Client) CreatePreference(ctx context.Context, creds Credentials, pref Preference) (*PreferenceResponse, error) {
	var resp PreferenceResponse
	err := c.breaker.Do(func() error {
		return c.doJSON(ctx, http.MethodPost, "/checkout/preferences", creds, pref, &resp)
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetPayment fetches the live status for a payment id. The webhook body's
// own status field is never trusted; this call is.
func (c *Client) GetPayment(ctx context.Context, creds Credentials, paymentID string) (*Payment, error) {
	var payment Payment
	err := c.breaker.Do(func() error {
		return c.doJSON(ctx, http.MethodGet, "/v1/payments/"+paymentID, creds, nil, &payment)
	})
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, creds Credentials, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+creds.AccessToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.Error("Gateway returned error",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", raw),
		)
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: malformed response: %v", ErrUnavailable, err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
