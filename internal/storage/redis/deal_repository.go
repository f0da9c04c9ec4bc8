// Пакет redis реализует быстрый слой хранилища предложений поверх Redis.
// Записи кодируются в JSON и живут не дольше срока действия предложения.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/vladislavdragonenkov/deals/internal/domain"
)

const (
	keyPrefix = "deal:"

	defaultOpTimeout = 3 * time.Second
	// Запас сверх срока действия предложения: оплаченные и отменённые
	// записи остаются читаемыми для страницы подтверждения.
	expiryGrace = 48 * time.Hour
)

// commands — подмножество команд Redis-клиента, которым пользуется
// репозиторий. *goredis.Client реализует его напрямую.
type commands interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *goredis.BoolCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *goredis.StatusCmd
	Get(ctx context.Context, key string) *goredis.StringCmd
}

// dealRepositoryRedis — реализация DealRepository поверх Redis.
// Optimistic locking здесь не применяется: авторитетная проверка версий
// выполняется durable-слоем, Redis хранит последний известный снимок.
type dealRepositoryRedis struct {
	client commands
}

// NewDealRepository создаёт Redis-реализацию DealRepository.
func NewDealRepository(client *goredis.Client) domain.DealRepository {
	return &dealRepositoryRedis{client: client}
}

// Open подключается к Redis и проверяет доступность.
func Open(ctx context.Context, addr string) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{Addr: addr})

	pingCtx, cancel := context.WithTimeout(ctx, defaultOpTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func (r *dealRepositoryRedis) Create(deal domain.Deal) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultOpTimeout)
	defer cancel()

	data, err := json.Marshal(deal)
	if err != nil {
		return fmt.Errorf("marshal deal: %w", err)
	}

	ok, err := r.client.SetNX(ctx, keyPrefix+deal.Token, data, r.ttl(deal)).Result()
	if err != nil {
		return fmt.Errorf("setnx deal: %w", err)
	}
	if !ok {
		return domain.ErrDealExists
	}
	return nil
}

func (r *dealRepositoryRedis) Get(token string) (domain.Deal, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultOpTimeout)
	defer cancel()

	data, err := r.client.Get(ctx, keyPrefix+token).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return domain.Deal{}, domain.ErrDealNotFound
		}
		return domain.Deal{}, fmt.Errorf("get deal: %w", err)
	}

	var deal domain.Deal
	if err := json.Unmarshal(data, &deal); err != nil {
		return domain.Deal{}, fmt.Errorf("unmarshal deal: %w", err)
	}
	return deal, nil
}

func (r *dealRepositoryRedis) Save(deal domain.Deal) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultOpTimeout)
	defer cancel()

	// Версию инкрементируем так же, как durable-слой, чтобы снимки совпадали.
	deal.Version++

	data, err := json.Marshal(deal)
	if err != nil {
		return fmt.Errorf("marshal deal: %w", err)
	}
	if err := r.client.Set(ctx, keyPrefix+deal.Token, data, r.ttl(deal)).Err(); err != nil {
		return fmt.Errorf("set deal: %w", err)
	}
	return nil
}

func (r *dealRepositoryRedis) ttl(deal domain.Deal) time.Duration {
	if deal.ExpiresAt.IsZero() {
		return expiryGrace
	}
	ttl := time.Until(deal.ExpiresAt) + expiryGrace
	if ttl < time.Minute {
		ttl = time.Minute
	}
	return ttl
}

var _ domain.DealRepository = (*dealRepositoryRedis)(nil)
