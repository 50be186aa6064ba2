package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"
)

// TelegramSender posts merchant notifications through the Telegram Bot
// API. The bot token and chat id come from the shop's settings row, not
// from process configuration: each tenant talks to its own bot.
type TelegramSender struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

func NewTelegramSender(logger *zap.Logger) *TelegramSender {
	return &TelegramSender{
		baseURL: getEnv("TELEGRAM_API_BASE_URL", "https://api.telegram.org"),
		http:    &http.Client{Timeout: 10 * time.Second},
		logger:  logger,
	}
}

func (t *TelegramSender) Send(ctx context.Context, botToken, chatID, text string) error {
	payload, err := json.Marshal(map[string]string{
		"chat_id": chatID,
		"text":    text,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal telegram message: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("telegram returned status %d: %s", resp.StatusCode, raw)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
