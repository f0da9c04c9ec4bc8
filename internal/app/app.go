package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	healthcheck "github.com/vladislavdragonenkov/deals/internal/health"
	"github.com/vladislavdragonenkov/deals/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/deals/internal/service/httpapi"
	"github.com/vladislavdragonenkov/deals/internal/service/idempotency"
	"github.com/vladislavdragonenkov/deals/internal/service/outbox"
	"github.com/vladislavdragonenkov/deals/internal/version"
)

// outboxBacklogThreshold — порог деградации по очереди неопубликованных событий.
const outboxBacklogThreshold = 1000

// Run собирает зависимости и запускает сервис до отмены контекста.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	deps, err := NewDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.Close()

	// Kafka опционален: без него события копятся в outbox до появления брокера.
	kafkaProducer, _ := initKafkaProducer(cfg.KafkaBrokers, logger)
	defer closeKafka(kafkaProducer, logger)

	workersCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	if kafkaProducer != nil {
		// Задачи сверки уходят в отдельный топик для reconcile-worker.
		publisher := kafka.NewRoutingPublisher(kafkaProducer, map[string]string{
			string(kafka.EventTypeOrderCreateRequested): kafka.TopicReconcile,
		}, cfg.KafkaTopic)

		worker := outbox.NewWorker(
			deps.Outbox,
			publisher,
			outbox.WithLogger(logger.WithField("layer", "outbox")),
			outbox.WithDLQPublisher(kafka.NewOutboxPublisher(kafkaProducer, kafka.TopicDeadLetterQueue)),
			outbox.WithPollInterval(cfg.OutboxPollInterval),
		)
		go worker.Run(workersCtx)
	} else {
		logger.Warn("kafka brokers not configured, outbox worker disabled")
	}

	cleanup := idempotency.NewCleanupWorker(
		deps.Idempotency,
		idempotency.WithLogger(logger.WithField("layer", "idempotency-cleanup")),
		idempotency.WithInterval(cfg.IdempotencyCleanupInterval),
	)
	go cleanup.Run(workersCtx)

	v, _, _ := version.Info()
	healthHandler := healthcheck.NewHandler(v)
	if deps.Store != nil {
		healthHandler.RegisterChecker("postgres", healthcheck.NewPingChecker("postgres", deps.Store.Ping))
	}
	if deps.RedisClient != nil {
		healthHandler.RegisterChecker("redis", healthcheck.NewPingChecker("redis", func(ctx context.Context) error {
			return deps.RedisClient.Ping(ctx).Err()
		}))
	}
	healthHandler.RegisterChecker("outbox", healthcheck.NewBacklogChecker("outbox", outboxBacklogThreshold, deps.PendingOutbox))

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)

	apiMux := http.NewServeMux()
	httpapi.NewHandler(deps.Lifecycle, cfg.Gateway, logger.WithField("layer", "http")).Routes(apiMux)
	apiSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           apiMux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("HTTP API слушает %s", cfg.HTTPAddr)
		errCh <- apiSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем HTTP сервер")
		cancelWorkers()
		shutdownHTTP(apiSrv, logger)
		shutdownHTTP(metricsSrv, logger)
		return ctx.Err()
	case err := <-errCh:
		cancelWorkers()
		shutdownHTTP(metricsSrv, logger)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// startMetricsServer запускает HTTP-обработчик /metrics для Prometheus.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/livez, %s/readyz", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http shutdown with error")
	}
}
