package memory

import (
	"sort"
	"sync"

	"github.com/vladislavdragonenkov/deals/internal/domain"
)

// journalRepositoryInMemory хранит события в памяти (для разработки/тестов).
type journalRepositoryInMemory struct {
	mu     sync.RWMutex
	events map[string][]domain.JournalEvent
}

// NewJournalRepository создаёт in-memory реализацию JournalRepository.
func NewJournalRepository() domain.JournalRepository {
	return &journalRepositoryInMemory{events: make(map[string][]domain.JournalEvent)}
}

// Append добавляет событие в хранилище.
func (r *journalRepositoryInMemory) Append(event domain.JournalEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events[event.Token] = append(r.events[event.Token], event)

	sort.Slice(r.events[event.Token], func(i, j int) bool {
		return r.events[event.Token][i].Occurred.Before(r.events[event.Token][j].Occurred)
	})

	return nil
}

// List возвращает события предложения в хронологическом порядке.
func (r *journalRepositoryInMemory) List(token string) ([]domain.JournalEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	events := r.events[token]
	result := make([]domain.JournalEvent, len(events))
	copy(result, events)
	return result, nil
}

var _ domain.JournalRepository = (*journalRepositoryInMemory)(nil)
