package orders

import (
	"context"

	"github.com/vladislavdragonenkov/deals/internal/domain"
)

// MockSystem — конфигурируемая заглушка OrderSystem для тестов.
type MockSystem struct {
	OrderID   string
	CreateErr error

	CreateCalls int
	LastLine    domain.OrderLine
	LastMeta    domain.PaymentMeta
}

// NewMockSystem возвращает mock с успешным сценарием по умолчанию.
func NewMockSystem() *MockSystem {
	return &MockSystem{OrderID: "order-1"}
}

// CreateOrder возвращает заранее настроенный результат и считает вызовы.
func (m *MockSystem) CreateOrder(_ context.Context, buyer domain.Buyer, address domain.Address, line domain.OrderLine, meta domain.PaymentMeta) (string, error) {
	m.CreateCalls++
	m.LastLine = line
	m.LastMeta = meta
	if m.CreateErr != nil {
		return "", m.CreateErr
	}
	return m.OrderID, nil
}

var _ domain.OrderSystem = (*MockSystem)(nil)
