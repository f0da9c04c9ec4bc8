package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/vladislavdragonenkov/deals/internal/domain"
)

func seedProduct(stock int32, active bool) domain.Product {
	return domain.Product{
		ID:            "prod-1",
		SKU:           "WID-100",
		Name:          "Widget",
		Stock:         stock,
		BaseCostMinor: 100000,
		Active:        active,
	}
}

func TestFindActiveProduct(t *testing.T) {
	svc := NewMemoryService(seedProduct(5, true))

	product, err := svc.FindActiveProduct(context.Background(), "prod-1")
	if err != nil {
		t.Fatalf("FindActiveProduct: %v", err)
	}
	if product.SKU != "WID-100" {
		t.Fatalf("unexpected product %+v", product)
	}
}

func TestFindActiveProductUnavailable(t *testing.T) {
	cases := map[string]domain.Product{
		"inactive":     seedProduct(5, false),
		"out of stock": seedProduct(0, true),
	}

	for name, product := range cases {
		t.Run(name, func(t *testing.T) {
			svc := NewMemoryService(product)
			if _, err := svc.FindActiveProduct(context.Background(), "prod-1"); !errors.Is(err, domain.ErrProductUnavailable) {
				t.Fatalf("expected ErrProductUnavailable, got %v", err)
			}
		})
	}
}

func TestFindActiveProductUnknown(t *testing.T) {
	svc := NewMemoryService()
	if _, err := svc.FindActiveProduct(context.Background(), "missing"); !errors.Is(err, domain.ErrProductUnavailable) {
		t.Fatalf("expected ErrProductUnavailable, got %v", err)
	}
}

func TestDecrementStock(t *testing.T) {
	svc := NewMemoryService(seedProduct(5, true))

	if err := svc.DecrementStock(context.Background(), "prod-1", 2); err != nil {
		t.Fatalf("DecrementStock: %v", err)
	}
	if got := svc.Stock("prod-1"); got != 3 {
		t.Fatalf("stock = %d, want 3", got)
	}
}

func TestDecrementStockClampsAtZero(t *testing.T) {
	svc := NewMemoryService(seedProduct(1, true))

	if err := svc.DecrementStock(context.Background(), "prod-1", 5); err != nil {
		t.Fatalf("DecrementStock: %v", err)
	}
	if got := svc.Stock("prod-1"); got != 0 {
		t.Fatalf("stock = %d, want 0", got)
	}
}

func TestDecrementStockInvalidQuantity(t *testing.T) {
	svc := NewMemoryService(seedProduct(5, true))
	if err := svc.DecrementStock(context.Background(), "prod-1", 0); !errors.Is(err, domain.ErrQuantityInvalid) {
		t.Fatalf("expected ErrQuantityInvalid, got %v", err)
	}
}
