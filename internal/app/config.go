package app

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/vladislavdragonenkov/deals/internal/gateway"
)

// Поддерживаемые драйверы хранилища.
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

// Config описывает настройки запуска приложения.
// Каждое поле может быть переопределено переменной окружения DEALS_*.
type Config struct {
	HTTPAddr    string
	MetricsAddr string

	StorageDriver string
	PostgresDSN   string
	RedisAddr     string

	KafkaBrokers string
	KafkaTopic   string

	Gateway gateway.Config

	DealTTL                    time.Duration
	MarkupFraction             float64
	FreeShippingThresholdMinor int64
	ShippingFeeMinor           int64
	IdempotencyTTL             time.Duration

	OrderAPIBaseURL string
	OrderAPIKey     string
	OrderAPITimeout time.Duration

	OutboxPollInterval         time.Duration
	IdempotencyCleanupInterval time.Duration
}

// DefaultConfig возвращает конфигурацию для локального запуска.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:      ":8080",
		MetricsAddr:   ":9090",
		StorageDriver: StorageMemory,
		KafkaTopic:    "deals.lifecycle.events",
		Gateway: gateway.Config{
			ProcessURL:      "https://sandbox.payfast.co.za/eng/process",
			ValidateURL:     "https://sandbox.payfast.co.za/eng/query/validate",
			PublicBaseURL:   "http://localhost:8080",
			SkipOriginCheck: true,
		},
		DealTTL:                    24 * time.Hour,
		MarkupFraction:             0.15,
		FreeShippingThresholdMinor: 500000,
		ShippingFeeMinor:           9900,
		IdempotencyTTL:             48 * time.Hour,
		OrderAPITimeout:            10 * time.Second,
		OutboxPollInterval:         time.Second,
		IdempotencyCleanupInterval: time.Hour,
	}
}

// LoadConfig читает конфигурацию из окружения поверх значений по умолчанию.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()

	cfg.HTTPAddr = envString("DEALS_HTTP_ADDR", cfg.HTTPAddr)
	cfg.MetricsAddr = envString("DEALS_METRICS_ADDR", cfg.MetricsAddr)

	cfg.StorageDriver = envString("DEALS_STORAGE_DRIVER", cfg.StorageDriver)
	cfg.PostgresDSN = envString("DEALS_POSTGRES_DSN", cfg.PostgresDSN)
	cfg.RedisAddr = envString("DEALS_REDIS_ADDR", cfg.RedisAddr)

	cfg.KafkaBrokers = envString("DEALS_KAFKA_BROKERS", cfg.KafkaBrokers)
	cfg.KafkaTopic = envString("DEALS_KAFKA_TOPIC", cfg.KafkaTopic)

	cfg.Gateway.MerchantID = envString("DEALS_GATEWAY_MERCHANT_ID", cfg.Gateway.MerchantID)
	cfg.Gateway.MerchantKey = envString("DEALS_GATEWAY_MERCHANT_KEY", cfg.Gateway.MerchantKey)
	cfg.Gateway.Passphrase = envString("DEALS_GATEWAY_PASSPHRASE", cfg.Gateway.Passphrase)
	cfg.Gateway.ProcessURL = envString("DEALS_GATEWAY_PROCESS_URL", cfg.Gateway.ProcessURL)
	cfg.Gateway.ValidateURL = envString("DEALS_GATEWAY_VALIDATE_URL", cfg.Gateway.ValidateURL)
	cfg.Gateway.PublicBaseURL = envString("DEALS_PUBLIC_BASE_URL", cfg.Gateway.PublicBaseURL)
	if hosts := envString("DEALS_GATEWAY_ALLOWED_HOSTS", ""); hosts != "" {
		cfg.Gateway.AllowedHosts = splitList(hosts)
		cfg.Gateway.SkipOriginCheck = false
	}

	var err error
	if cfg.Gateway.SkipOriginCheck, err = envBool("DEALS_GATEWAY_SKIP_ORIGIN_CHECK", cfg.Gateway.SkipOriginCheck); err != nil {
		return Config{}, err
	}
	if cfg.DealTTL, err = envDuration("DEALS_DEAL_TTL", cfg.DealTTL); err != nil {
		return Config{}, err
	}
	if cfg.MarkupFraction, err = envFloat("DEALS_MARKUP_FRACTION", cfg.MarkupFraction); err != nil {
		return Config{}, err
	}
	if cfg.FreeShippingThresholdMinor, err = envInt64("DEALS_FREE_SHIPPING_THRESHOLD_MINOR", cfg.FreeShippingThresholdMinor); err != nil {
		return Config{}, err
	}
	if cfg.ShippingFeeMinor, err = envInt64("DEALS_SHIPPING_FEE_MINOR", cfg.ShippingFeeMinor); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = envDuration("DEALS_IDEMPOTENCY_TTL", cfg.IdempotencyTTL); err != nil {
		return Config{}, err
	}
	if cfg.OutboxPollInterval, err = envDuration("DEALS_OUTBOX_POLL_INTERVAL", cfg.OutboxPollInterval); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyCleanupInterval, err = envDuration("DEALS_IDEMPOTENCY_CLEANUP_INTERVAL", cfg.IdempotencyCleanupInterval); err != nil {
		return Config{}, err
	}
	if cfg.OrderAPITimeout, err = envDuration("DEALS_ORDER_API_TIMEOUT", cfg.OrderAPITimeout); err != nil {
		return Config{}, err
	}

	cfg.OrderAPIBaseURL = envString("DEALS_ORDER_API_BASE_URL", cfg.OrderAPIBaseURL)
	cfg.OrderAPIKey = envString("DEALS_ORDER_API_KEY", cfg.OrderAPIKey)

	return cfg, cfg.Validate()
}

// Validate проверяет согласованность конфигурации.
func (c Config) Validate() error {
	switch c.StorageDriver {
	case StorageMemory:
	case StoragePostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("postgres storage driver requires DEALS_POSTGRES_DSN")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.StorageDriver)
	}

	if c.MarkupFraction < 0 {
		return fmt.Errorf("markup fraction must be non-negative")
	}
	if c.DealTTL <= 0 {
		return fmt.Errorf("deal ttl must be positive")
	}
	return nil
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return parsed, nil
}

func envInt64(key string, fallback int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return parsed, nil
}

func envFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return parsed, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return parsed, nil
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
