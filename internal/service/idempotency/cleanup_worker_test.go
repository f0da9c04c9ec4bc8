package idempotency

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/deals/internal/domain"
)

// stubCleanupRepo отдаёт заранее настроенные результаты DeleteExpired.
type stubCleanupRepo struct {
	mu            sync.Mutex
	deleteResults []int
	deleteErrors  []error
	deleteCalls   int
}

func (r *stubCleanupRepo) CreateProcessing(string, string, time.Time) (domain.IdempotencyRecord, error) {
	return domain.IdempotencyRecord{}, nil
}

func (r *stubCleanupRepo) Reclaim(string, string, time.Time) (domain.IdempotencyRecord, error) {
	return domain.IdempotencyRecord{}, nil
}

func (r *stubCleanupRepo) Get(string) (domain.IdempotencyRecord, error) {
	return domain.IdempotencyRecord{}, domain.ErrIdempotencyKeyNotFound
}

func (r *stubCleanupRepo) MarkDone(string, []byte, int) error   { return nil }
func (r *stubCleanupRepo) MarkFailed(string, []byte, int) error { return nil }

func (r *stubCleanupRepo) DeleteExpired(time.Time, int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	call := r.deleteCalls
	r.deleteCalls++

	if call < len(r.deleteErrors) && r.deleteErrors[call] != nil {
		return 0, r.deleteErrors[call]
	}
	if call < len(r.deleteResults) {
		return r.deleteResults[call], nil
	}
	return 0, nil
}

func (r *stubCleanupRepo) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.deleteCalls
}

var _ domain.IdempotencyRepository = (*stubCleanupRepo)(nil)

func TestCleanupWorker_DeleteExpired_Batches(t *testing.T) {
	t.Parallel()

	repo := &stubCleanupRepo{
		deleteResults: []int{2, 2, 1},
	}

	worker := NewCleanupWorker(repo, WithBatchSize(2))

	deleted, err := worker.DeleteExpired(context.Background(), time.Now().UTC())
	if err != nil {
		t.Fatalf("DeleteExpired failed: %v", err)
	}

	if deleted != 5 {
		t.Fatalf("unexpected deleted total: got=%d want=5", deleted)
	}

	if calls := repo.calls(); calls != 3 {
		t.Fatalf("unexpected delete calls: got=%d want=3", calls)
	}
}

func TestCleanupWorker_DeleteExpired_Error(t *testing.T) {
	t.Parallel()

	repo := &stubCleanupRepo{
		deleteErrors: []error{errors.New("boom")},
	}

	worker := NewCleanupWorker(repo, WithBatchSize(10))

	deleted, err := worker.DeleteExpired(context.Background(), time.Now().UTC())
	if err == nil {
		t.Fatal("expected DeleteExpired error")
	}
	if deleted != 0 {
		t.Fatalf("unexpected deleted total: got=%d want=0", deleted)
	}
}

func TestCleanupWorker_Run_StopsOnContextCancel(t *testing.T) {
	t.Parallel()

	repo := &stubCleanupRepo{}
	worker := NewCleanupWorker(repo, WithInterval(5*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		worker.Run(ctx)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after context cancel")
	}

	if repo.calls() == 0 {
		t.Fatal("expected at least one cleanup call")
	}
}
