package database

import (
	"database/sql"
	"fmt"
	"os"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

func InitDB(logger *zap.Logger) (*sql.DB, error) {
	host := getEnv("DB_HOST", "localhost")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "postgres")
	password := getEnv("DB_PASSWORD", "postgres")
	dbname := getEnv("DB_NAME", "storefrontdb")

	psqlInfo := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	db, err := sql.Open("postgres", psqlInfo)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info("Database connection established")
	return db, nil
}

// All money columns are BIGINT minor currency units. The UNIQUE constraint
// on orders.gateway_payment_id is what makes webhook reconciliation
// idempotent under at-least-once delivery.
const schema = `
CREATE TABLE IF NOT EXISTS shops (
	id SERIAL PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS shop_settings (
	shop_id INTEGER PRIMARY KEY REFERENCES shops(id),
	gateway_access_token VARCHAR(255) NOT NULL DEFAULT '',
	telegram_bot_token VARCHAR(255) NOT NULL DEFAULT '',
	telegram_chat_id VARCHAR(255) NOT NULL DEFAULT '',
	low_stock_threshold INTEGER NOT NULL DEFAULT 5
);

CREATE TABLE IF NOT EXISTS products (
	id SERIAL PRIMARY KEY,
	shop_id INTEGER NOT NULL REFERENCES shops(id),
	name VARCHAR(255) NOT NULL,
	price BIGINT NOT NULL CHECK (price >= 0),
	stock INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS coupons (
	id SERIAL PRIMARY KEY,
	shop_id INTEGER NOT NULL REFERENCES shops(id),
	code VARCHAR(64) NOT NULL,
	type VARCHAR(16) NOT NULL,
	value BIGINT NOT NULL CHECK (value >= 0),
	min_amount BIGINT,
	max_uses INTEGER,
	uses_count INTEGER NOT NULL DEFAULT 0,
	expires_at TIMESTAMP,
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	UNIQUE (shop_id, code)
);

CREATE UNIQUE INDEX IF NOT EXISTS coupons_shop_code_lower_idx
	ON coupons (shop_id, LOWER(code));

CREATE TABLE IF NOT EXISTS orders (
	id SERIAL PRIMARY KEY,
	shop_id INTEGER NOT NULL REFERENCES shops(id),
	gateway_payment_id VARCHAR(64) NOT NULL UNIQUE,
	customer_name VARCHAR(255) NOT NULL,
	customer_email VARCHAR(255) NOT NULL,
	customer_phone VARCHAR(64) NOT NULL DEFAULT '',
	shipping_address TEXT NOT NULL DEFAULT '',
	total_amount BIGINT NOT NULL,
	status VARCHAR(32) NOT NULL DEFAULT 'paid',
	tracking_code VARCHAR(128) NOT NULL DEFAULT '',
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS order_items (
	id SERIAL PRIMARY KEY,
	order_id INTEGER NOT NULL REFERENCES orders(id),
	product_id INTEGER NOT NULL REFERENCES products(id),
	quantity INTEGER NOT NULL CHECK (quantity > 0),
	price_at_time BIGINT NOT NULL
);
`

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
