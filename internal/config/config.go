// Package config loads storefront settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	Env      string
	LogLevel string

	HTTPPort           string
	RequestTimeout     time.Duration
	ShutdownTimeout    time.Duration
	MaxRequestBodySize int64

	BackendURL     string
	BackendTimeout time.Duration

	TaxRate                decimal.Decimal
	OrderPollInterval      time.Duration
	PaymentSimulationDelay time.Duration

	RedisAddr     string
	RedisPassword string
	CartMirrorTTL time.Duration
	CartSessionID string

	KafkaBrokers []string
	KafkaTopic   string
}

// Load reads .env when present and then the process environment. Variables
// already set in the environment win over .env entries.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

func FromEnv() (*Config, error) {
	cfg := &Config{
		Env:           getEnv("ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		HTTPPort:      getEnv("HTTP_PORT", "8080"),
		BackendURL:    getEnv("BACKEND_URL", "http://localhost:4000/api"),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		CartSessionID: getEnv("CART_SESSION_ID", "storefront"),
		KafkaBrokers:  splitCSV(getEnv("KAFKA_BROKERS", "")),
		KafkaTopic:    getEnv("KAFKA_TOPIC", "storefront-events"),
	}

	var err error
	durations := []struct {
		key  string
		def  string
		dest *time.Duration
	}{
		{"REQUEST_TIMEOUT", "30s", &cfg.RequestTimeout},
		{"SHUTDOWN_TIMEOUT", "10s", &cfg.ShutdownTimeout},
		{"BACKEND_TIMEOUT", "10s", &cfg.BackendTimeout},
		{"ORDER_POLL_INTERVAL", "30s", &cfg.OrderPollInterval},
		{"PAYMENT_SIMULATION_DELAY", "1500ms", &cfg.PaymentSimulationDelay},
		{"CART_MIRROR_TTL", "24h", &cfg.CartMirrorTTL},
	}
	for _, d := range durations {
		if *d.dest, err = time.ParseDuration(getEnv(d.key, d.def)); err != nil {
			return nil, fmt.Errorf("invalid %s: %w", d.key, err)
		}
	}

	size := getEnv("MAX_REQUEST_BODY_SIZE", "1048576") // 1MB
	if cfg.MaxRequestBodySize, err = strconv.ParseInt(size, 10, 64); err != nil || cfg.MaxRequestBodySize <= 0 {
		return nil, fmt.Errorf("invalid MAX_REQUEST_BODY_SIZE: %q", size)
	}

	if cfg.TaxRate, err = decimal.NewFromString(getEnv("TAX_RATE", "0.02")); err != nil {
		return nil, fmt.Errorf("invalid TAX_RATE: %w", err)
	}
	if cfg.TaxRate.IsNegative() {
		return nil, fmt.Errorf("invalid TAX_RATE: %s is negative", cfg.TaxRate)
	}
	return cfg, nil
}

func (c *Config) Production() bool {
	return strings.EqualFold(c.Env, "production")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
