package domain

import (
	"context"
	"time"
)

// Product — проекция карточки товара из каталога, достаточная для предложения.
type Product struct {
	ID                string
	SKU               string
	Name              string
	Stock             int32
	BaseCostMinor     int64
	SellingPriceMinor int64
	Active            bool
}

// CatalogService описывает взаимодействие с каталогом товаров.
type CatalogService interface {
	// FindActiveProduct возвращает активный товар или ErrProductUnavailable.
	FindActiveProduct(ctx context.Context, id string) (Product, error)
	// DecrementStock уменьшает остаток на qty; остаток не уходит ниже нуля.
	DecrementStock(ctx context.Context, id string, qty int32) error
}

// OrderLine — единственная позиция заказа, передаваемая системе исполнения.
type OrderLine struct {
	SKU       string
	Name      string
	Qty       int32
	UnitMinor int64
}

// PaymentMeta — сведения об оплате, сопровождающие заказ в системе исполнения.
type PaymentMeta struct {
	ExternalRef string
	GrossMinor  int64
	PaidAt      time.Time
}

// OrderSystem описывает внешнюю систему управления заказами.
// Ошибка создания заказа никогда не откатывает оплаченное предложение.
type OrderSystem interface {
	CreateOrder(ctx context.Context, buyer Buyer, address Address, line OrderLine, meta PaymentMeta) (string, error)
}

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(event OutboxMessage) error
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(msg OutboxMessage) (OutboxMessage, error)
	PullPending(limit int) ([]OutboxMessage, error)
	Stats() (OutboxStats, error)
	MarkSent(id string) error
	MarkFailed(id string) error
}

// JournalRepository хранит события жизненного цикла предложения,
// включая отклонённые уведомления для ручной сверки оператором.
type JournalRepository interface {
	Append(event JournalEvent) error
	List(token string) ([]JournalEvent, error)
}

// IdempotencyRepository хранит состояние обработки уведомлений по внешнему id платежа.
type IdempotencyRepository interface {
	CreateProcessing(key, requestHash string, ttlAt time.Time) (IdempotencyRecord, error)
	// Reclaim возвращает failed-ключ в processing для повторной попытки;
	// отсутствующий ключ создаётся заново. Ключ в done или processing
	// перехватить нельзя: возвращается ErrIdempotencyKeyAlreadyExists.
	Reclaim(key, requestHash string, ttlAt time.Time) (IdempotencyRecord, error)
	Get(key string) (IdempotencyRecord, error)
	MarkDone(key string, responseBody []byte, httpStatus int) error
	MarkFailed(key string, responseBody []byte, httpStatus int) error
	DeleteExpired(before time.Time, limit int) (int, error)
}

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}
