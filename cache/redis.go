package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"storefront-svc/models"
)

func InitRedis(logger *zap.Logger) (*redis.Client, error) {
	host := getEnv("REDIS_HOST", "localhost")
	port := getEnv("REDIS_PORT", "6379")
	password := getEnv("REDIS_PASSWORD", "")

	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", host, port),
		Password: password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Redis connection established")
	return rdb, nil
}

// ProductCache holds catalog rows for the informational read paths. The
// authoritative checkout and webhook paths always read the database, so a
// stale entry can only affect a preview, never a committed order.
type ProductCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewProductCache(rdb *redis.Client) *ProductCache {
	return &ProductCache{rdb: rdb, ttl: 60 * time.Second}
}

func key(shopID, productID int) string {
	return fmt.Sprintf("shop:%d:product:%d", shopID, productID)
}

func (c *ProductCache) Get(ctx context.Context, shopID, productID int) (*models.Product, error) {
	data, err := c.rdb.Get(ctx, key(shopID, productID)).Bytes()
	if err != nil {
		return nil, err
	}
	var p models.Product
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *ProductCache) Set(ctx context.Context, p *models.Product) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key(p.ShopID, p.ID), data, c.ttl).Err()
}

func (c *ProductCache) Invalidate(ctx context.Context, shopID, productID int) error {
	return c.rdb.Del(ctx, key(shopID, productID)).Err()
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
