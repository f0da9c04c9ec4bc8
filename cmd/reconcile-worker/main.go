// reconcile-worker дорабатывает оплаченные предложения, для которых не
// удалось создать заказ в системе исполнения: слушает топик сверки и
// повторяет создание заказа.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/deals/internal/app"
	"github.com/vladislavdragonenkov/deals/internal/domain"
	"github.com/vladislavdragonenkov/deals/internal/messaging/kafka"
)

const consumerGroup = "deals-reconcile-worker"

// envelope — конверт outbox-событий в топике сверки.
type envelope struct {
	ID          string          `json:"id"`
	AggregateID string          `json:"aggregate_id"`
	EventType   string          `json:"event_type"`
	Payload     json.RawMessage `json:"payload"`
}

type reconcilePayload struct {
	Token string `json:"token"`
}

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.InfoLevel)

	cfg, err := app.LoadConfig()
	if err != nil {
		log.WithError(err).Fatal("некорректная конфигурация")
	}
	if cfg.KafkaBrokers == "" {
		log.Fatal("DEALS_KAFKA_BROKERS is required for reconcile-worker")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := log.WithField("component", "reconcile-worker")

	deps, err := app.NewDependencies(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to build dependencies")
	}
	defer deps.Close()

	brokers := strings.Split(cfg.KafkaBrokers, ",")

	dlqProducer, err := kafka.NewProducer(brokers)
	if err != nil {
		logger.WithError(err).Fatal("failed to create kafka producer")
	}
	defer func() { _ = dlqProducer.Close() }()

	handler := func(ctx context.Context, message *sarama.ConsumerMessage) error {
		return handleReconcile(ctx, deps, logger, message)
	}

	consumer, err := kafka.NewConsumerWithDLQ(brokers, consumerGroup, []string{kafka.TopicReconcile}, handler, dlqProducer, 3)
	if err != nil {
		logger.WithError(err).Fatal("failed to create kafka consumer")
	}

	if err := consumer.Start(ctx); err != nil {
		logger.WithError(err).Fatal("failed to start kafka consumer")
	}

	logger.WithField("topic", kafka.TopicReconcile).Info("reconcile worker started")

	<-ctx.Done()
	if err := consumer.Stop(); err != nil {
		logger.WithError(err).Warn("consumer stopped with error")
	}
	logger.Info("reconcile worker stopped")
}

// handleReconcile повторяет создание заказа для оплаченного предложения.
func handleReconcile(ctx context.Context, deps *app.Dependencies, logger *log.Entry, message *sarama.ConsumerMessage) error {
	token, err := extractToken(message.Value)
	if err != nil {
		// Нечитаемое сообщение ретраями не лечится.
		logger.WithError(err).WithField("offset", message.Offset).Warn("skip malformed reconcile message")
		return nil
	}

	err = deps.Lifecycle.CreateDownstreamOrder(ctx, token)
	switch {
	case err == nil:
		logger.WithField("token", token).Info("downstream order reconciled")
		return nil
	case errors.Is(err, domain.ErrDealNotFound):
		logger.WithField("token", token).Warn("deal not found, dropping reconcile task")
		return nil
	case errors.Is(err, domain.ErrInvalidTransition):
		// Сделка уже не в состоянии paid, заказ создавать не нужно.
		logger.WithField("token", token).Info("deal no longer payable, dropping reconcile task")
		return nil
	default:
		return fmt.Errorf("reconcile deal %s: %w", token, err)
	}
}

func extractToken(raw []byte) (string, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return "", fmt.Errorf("decode envelope: %w", err)
	}

	token := env.AggregateID
	if len(env.Payload) > 0 {
		var payload reconcilePayload
		if err := json.Unmarshal(env.Payload, &payload); err == nil && payload.Token != "" {
			token = payload.Token
		}
	}

	if token == "" {
		return "", fmt.Errorf("reconcile message has no deal token")
	}
	return token, nil
}
