package app

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/deals/internal/domain"
	"github.com/vladislavdragonenkov/deals/internal/gateway"
	"github.com/vladislavdragonenkov/deals/internal/service/catalog"
	"github.com/vladislavdragonenkov/deals/internal/service/lifecycle"
	"github.com/vladislavdragonenkov/deals/internal/service/orders"
	"github.com/vladislavdragonenkov/deals/internal/storage/memory"
	"github.com/vladislavdragonenkov/deals/internal/storage/postgres"
	redisstore "github.com/vladislavdragonenkov/deals/internal/storage/redis"
	"github.com/vladislavdragonenkov/deals/internal/storage/tiered"
)

// Dependencies содержит все зависимости приложения.
type Dependencies struct {
	Deals       domain.DealRepository
	Outbox      domain.OutboxRepository
	Journal     domain.JournalRepository
	Idempotency domain.IdempotencyRepository

	Catalog domain.CatalogService
	Orders  domain.OrderSystem

	Lifecycle *lifecycle.Service

	Store       *postgres.Store
	RedisClient *goredis.Client

	Logger *log.Entry
}

// NewDependencies создаёт и инициализирует зависимости приложения
// согласно выбранному драйверу хранилища.
func NewDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*Dependencies, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	deps := &Dependencies{Logger: logger}

	deps.Deals = memory.NewDealRepository()
	deps.Outbox = memory.NewOutboxRepository()
	deps.Journal = memory.NewJournalRepository()
	deps.Idempotency = memory.NewIdempotencyRepository()

	if cfg.StorageDriver == StoragePostgres {
		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := store.EnsureSchema(ctx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		deps.Store = store

		// Локальный уровень остаётся источником истины для записи,
		// postgres подхватывает промахи чтений после рестарта.
		deps.Deals = tiered.NewRepository(deps.Deals, postgres.NewDealRepository(store), logger.WithField("layer", "tiered"))
		deps.Outbox = postgres.NewOutboxRepository(store)
		deps.Journal = postgres.NewJournalRepository(store)
		deps.Idempotency = postgres.NewIdempotencyRepository(store)
		logger.Info("postgres storage initialized")
	}

	if cfg.RedisAddr != "" {
		client, err := redisstore.Open(ctx, cfg.RedisAddr)
		if err != nil {
			deps.Close()
			return nil, fmt.Errorf("open redis: %w", err)
		}
		deps.RedisClient = client
		// Redis — разделяемый быстрый уровень: записи в него best-effort,
		// читают его и другие процессы (reconcile-worker).
		deps.Deals = tiered.NewRepository(deps.Deals, redisstore.NewDealRepository(client), logger.WithField("layer", "redis-tier"))
		logger.WithField("addr", cfg.RedisAddr).Info("redis cache tier initialized")
	}

	// NOTE: Демо-каталог для локального запуска; в боевом окружении сюда
	// подключается клиент реального каталога.
	deps.Catalog = catalog.NewMemoryService(
		domain.Product{ID: "prod-1", SKU: "WID-100", Name: "Widget", Stock: 100, BaseCostMinor: 100000, SellingPriceMinor: 149900, Active: true},
		domain.Product{ID: "prod-2", SKU: "GAD-200", Name: "Gadget", Stock: 50, BaseCostMinor: 250000, SellingPriceMinor: 329900, Active: true},
		domain.Product{ID: "prod-3", SKU: "TRK-300", Name: "Trinket", Stock: 200, BaseCostMinor: 15000, SellingPriceMinor: 19900, Active: true},
	)

	if cfg.OrderAPIBaseURL != "" {
		deps.Orders = orders.NewClient(cfg.OrderAPIBaseURL, cfg.OrderAPIKey, cfg.OrderAPITimeout, orders.ChainResolver{})
	} else {
		logger.Warn("order api base url is empty, using mock order system")
		deps.Orders = orders.NewMockSystem()
	}

	deps.Lifecycle = lifecycle.NewService(
		lifecycle.Config{
			TTL:                        cfg.DealTTL,
			MarkupFraction:             cfg.MarkupFraction,
			FreeShippingThresholdMinor: cfg.FreeShippingThresholdMinor,
			ShippingFeeMinor:           cfg.ShippingFeeMinor,
			IdempotencyTTL:             cfg.IdempotencyTTL,
		},
		deps.Deals,
		deps.Outbox,
		deps.Journal,
		deps.Idempotency,
		deps.Catalog,
		deps.Orders,
		gateway.NewVerifier(cfg.Gateway),
		logger.WithField("layer", "lifecycle"),
	)

	return deps, nil
}

// Close освобождает внешние подключения.
func (d *Dependencies) Close() {
	if d.RedisClient != nil {
		if err := d.RedisClient.Close(); err != nil {
			d.Logger.WithError(err).Warn("failed to close redis client")
		}
	}
	if d.Store != nil {
		if err := d.Store.Close(); err != nil {
			d.Logger.WithError(err).Warn("failed to close postgres store")
		}
	}
}

// PendingOutbox возвращает размер очереди неопубликованных событий.
func (d *Dependencies) PendingOutbox(_ context.Context) (int, error) {
	stats, err := d.Outbox.Stats()
	if err != nil {
		return 0, err
	}
	return stats.PendingCount, nil
}
