// Пакет catalog реализует коллаборатора-каталог товаров.
package catalog

import (
	"context"
	"sync"

	"github.com/vladislavdragonenkov/deals/internal/domain"
)

// MemoryService — потокобезопасный in-memory каталог.
// Модель остатков best-effort: проверка на этапе подтверждения и списание
// при оплате не сериализуются между конкурентными предложениями.
type MemoryService struct {
	mu    sync.RWMutex
	items map[string]domain.Product
}

// NewMemoryService создаёт каталог с начальным набором товаров.
func NewMemoryService(products ...domain.Product) *MemoryService {
	items := make(map[string]domain.Product, len(products))
	for _, p := range products {
		items[p.ID] = p
	}
	return &MemoryService{items: items}
}

// Seed добавляет или заменяет товар в каталоге.
func (s *MemoryService) Seed(product domain.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[product.ID] = product
}

// FindActiveProduct возвращает активный товар с остатком > 0.
func (s *MemoryService) FindActiveProduct(_ context.Context, id string) (domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, ok := s.items[id]
	if !ok || !product.Active || product.Stock <= 0 {
		return domain.Product{}, domain.ErrProductUnavailable
	}
	return product, nil
}

// DecrementStock уменьшает остаток товара; остаток не уходит ниже нуля.
func (s *MemoryService) DecrementStock(_ context.Context, id string, qty int32) error {
	if qty < 1 {
		return domain.ErrQuantityInvalid
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	product, ok := s.items[id]
	if !ok {
		return domain.ErrProductUnavailable
	}

	product.Stock -= qty
	if product.Stock < 0 {
		product.Stock = 0
	}
	s.items[id] = product
	return nil
}

// Stock возвращает текущий остаток товара; для тестов и диагностики.
func (s *MemoryService) Stock(id string) int32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.items[id].Stock
}

var _ domain.CatalogService = (*MemoryService)(nil)
