package memory

import (
	"sync"

	"github.com/vladislavdragonenkov/deals/internal/domain"
)

// dealRepositoryInMemory — простая in-memory реализация DealRepository.
type dealRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.Deal
}

// NewDealRepository возвращает in-memory репозиторий для локальной разработки и тестов.
func NewDealRepository() domain.DealRepository {
	return &dealRepositoryInMemory{
		items: make(map[string]domain.Deal),
	}
}

// Create сохраняет новое предложение, если токен ещё не занят.
func (r *dealRepositoryInMemory) Create(deal domain.Deal) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[deal.Token]; exists {
		return domain.ErrDealExists
	}
	// Сохраняем копию, чтобы избежать непредсказуемых мутаций извне.
	r.items[deal.Token] = deal
	return nil
}

// Get возвращает предложение или ErrDealNotFound, если его нет.
func (r *dealRepositoryInMemory) Get(token string) (domain.Deal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	deal, ok := r.items[token]
	if !ok {
		return domain.Deal{}, domain.ErrDealNotFound
	}
	return deal, nil
}

// Save перезаписывает предложение, проверяя версию (optimistic locking).
func (r *dealRepositoryInMemory) Save(deal domain.Deal) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.items[deal.Token]
	if !ok {
		return domain.ErrDealNotFound
	}
	if current.Version != deal.Version {
		return domain.ErrDealVersionConflict
	}
	// Инкрементируем версию перед сохранением.
	deal.Version++
	r.items[deal.Token] = deal
	return nil
}

var _ domain.DealRepository = (*dealRepositoryInMemory)(nil)
