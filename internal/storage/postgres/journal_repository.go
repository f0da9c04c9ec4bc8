package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/deals/internal/domain"
)

type journalRepository struct {
	db *sql.DB
}

// NewJournalRepository создаёт PostgreSQL-реализацию JournalRepository.
func NewJournalRepository(store *Store) domain.JournalRepository {
	return &journalRepository{db: store.DB()}
}

func (r *journalRepository) Append(event domain.JournalEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if event.Occurred.IsZero() {
		event.Occurred = time.Now().UTC()
	}

	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO journal_events (deal_token, type, reason, occurred)
		VALUES ($1,$2,$3,$4)
	`, event.Token, event.Type, event.Reason, event.Occurred); err != nil {
		return fmt.Errorf("append journal event: %w", err)
	}

	return nil
}

func (r *journalRepository) List(token string) ([]domain.JournalEvent, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT deal_token, type, reason, occurred
		FROM journal_events
		WHERE deal_token = $1
		ORDER BY occurred ASC, id ASC
	`, token)
	if err != nil {
		return nil, fmt.Errorf("list journal events: %w", err)
	}
	defer rows.Close()

	events := make([]domain.JournalEvent, 0)
	for rows.Next() {
		var event domain.JournalEvent
		if err := rows.Scan(&event.Token, &event.Type, &event.Reason, &event.Occurred); err != nil {
			return nil, fmt.Errorf("scan journal event: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate journal events: %w", err)
	}

	return events, nil
}

var _ domain.JournalRepository = (*journalRepository)(nil)
