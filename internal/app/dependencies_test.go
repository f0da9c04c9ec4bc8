package app

import (
	"context"
	"testing"

	"github.com/vladislavdragonenkov/deals/internal/domain"
)

func TestNewDependenciesMemory(t *testing.T) {
	cfg := DefaultConfig()

	deps, err := NewDependencies(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("NewDependencies: %v", err)
	}
	defer deps.Close()

	if deps.Lifecycle == nil {
		t.Fatal("expected lifecycle service")
	}
	if deps.Store != nil {
		t.Error("memory driver must not open postgres")
	}
	if deps.RedisClient != nil {
		t.Error("empty redis addr must not open redis")
	}

	// Сервис рабочий end-to-end на демо-каталоге.
	deal, err := deps.Lifecycle.Create(context.Background(), "prod-1", 1)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if deal.Status != domain.DealStatusPending {
		t.Errorf("status = %q, want pending", deal.Status)
	}

	pending, err := deps.PendingOutbox(context.Background())
	if err != nil {
		t.Fatalf("PendingOutbox: %v", err)
	}
	if pending != 1 {
		t.Errorf("pending outbox = %d, want 1 (deal.created)", pending)
	}
}

func TestNewDependenciesPostgresRequiresDSN(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StorageDriver = StoragePostgres

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error without dsn")
	}
}
