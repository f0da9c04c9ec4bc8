package app

import (
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want :8080", cfg.HTTPAddr)
	}
	if cfg.MetricsAddr != ":9090" {
		t.Errorf("MetricsAddr = %q, want :9090", cfg.MetricsAddr)
	}
	if cfg.StorageDriver != StorageMemory {
		t.Errorf("StorageDriver = %q, want memory", cfg.StorageDriver)
	}
	if cfg.DealTTL != 24*time.Hour {
		t.Errorf("DealTTL = %v, want 24h", cfg.DealTTL)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config must validate: %v", err)
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("DEALS_HTTP_ADDR", ":9999")
	t.Setenv("DEALS_DEAL_TTL", "2h")
	t.Setenv("DEALS_MARKUP_FRACTION", "0.25")
	t.Setenv("DEALS_FREE_SHIPPING_THRESHOLD_MINOR", "100000")
	t.Setenv("DEALS_GATEWAY_ALLOWED_HOSTS", "www.payfast.co.za, sandbox.payfast.co.za")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.HTTPAddr != ":9999" {
		t.Errorf("HTTPAddr = %q, want :9999", cfg.HTTPAddr)
	}
	if cfg.DealTTL != 2*time.Hour {
		t.Errorf("DealTTL = %v, want 2h", cfg.DealTTL)
	}
	if cfg.MarkupFraction != 0.25 {
		t.Errorf("MarkupFraction = %v, want 0.25", cfg.MarkupFraction)
	}
	if cfg.FreeShippingThresholdMinor != 100000 {
		t.Errorf("FreeShippingThresholdMinor = %d, want 100000", cfg.FreeShippingThresholdMinor)
	}
	if len(cfg.Gateway.AllowedHosts) != 2 {
		t.Fatalf("AllowedHosts = %v, want 2 hosts", cfg.Gateway.AllowedHosts)
	}
	if cfg.Gateway.AllowedHosts[1] != "sandbox.payfast.co.za" {
		t.Errorf("AllowedHosts[1] = %q", cfg.Gateway.AllowedHosts[1])
	}
	if cfg.Gateway.SkipOriginCheck {
		t.Error("setting allowed hosts must enable the origin check")
	}
}

func TestLoadConfigInvalidDuration(t *testing.T) {
	t.Setenv("DEALS_DEAL_TTL", "not-a-duration")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for invalid duration")
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StorageDriver = "cassandra"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unknown storage driver")
	}

	cfg = DefaultConfig()
	cfg.StorageDriver = StoragePostgres
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for postgres driver without dsn")
	}

	cfg = DefaultConfig()
	cfg.MarkupFraction = -0.1
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for negative markup")
	}
}
