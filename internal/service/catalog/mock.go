package catalog

import (
	"context"

	"github.com/vladislavdragonenkov/deals/internal/domain"
)

// MockService — конфигурируемая заглушка CatalogService для тестов.
type MockService struct {
	Product      domain.Product
	FindErr      error
	DecrementErr error

	FindCalls      int
	DecrementCalls int
	Decremented    int32
}

// NewMockService возвращает mock с успешным сценарием по умолчанию.
func NewMockService() *MockService {
	return &MockService{
		Product: domain.Product{
			ID:            "prod-1",
			SKU:           "SKU-1",
			Name:          "Test Product",
			Stock:         10,
			BaseCostMinor: 100000,
			Active:        true,
		},
	}
}

// FindActiveProduct возвращает заранее настроенный товар и считает вызовы.
func (m *MockService) FindActiveProduct(_ context.Context, id string) (domain.Product, error) {
	m.FindCalls++
	if m.FindErr != nil {
		return domain.Product{}, m.FindErr
	}
	return m.Product, nil
}

// DecrementStock возвращает настроенную ошибку и считает списанное количество.
func (m *MockService) DecrementStock(_ context.Context, id string, qty int32) error {
	m.DecrementCalls++
	if m.DecrementErr != nil {
		return m.DecrementErr
	}
	m.Decremented += qty
	return nil
}

var _ domain.CatalogService = (*MockService)(nil)
