package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/deals/internal/domain"
)

// OutboxTopicPublisher публикует outbox-сообщения в заданный Kafka topic.
type OutboxTopicPublisher struct {
	producer *Producer
	topic    string
}

// NewOutboxPublisher создаёт Kafka-паблишер для transactional outbox.
func NewOutboxPublisher(producer *Producer, topic string) domain.OutboxPublisher {
	if topic == "" {
		topic = TopicDealEvents
	}
	return &OutboxTopicPublisher{
		producer: producer,
		topic:    topic,
	}
}

func (p *OutboxTopicPublisher) Publish(event domain.OutboxMessage) error {
	if p == nil || p.producer == nil {
		return fmt.Errorf("kafka outbox publisher is not initialized")
	}

	key := event.AggregateID
	if key == "" {
		key = event.ID
	}

	envelope := struct {
		ID            string          `json:"id"`
		AggregateType string          `json:"aggregate_type"`
		AggregateID   string          `json:"aggregate_id"`
		EventType     string          `json:"event_type"`
		Payload       json.RawMessage `json:"payload"`
		PublishedAt   time.Time       `json:"published_at"`
	}{
		ID:            event.ID,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		EventType:     event.EventType,
		Payload:       json.RawMessage(event.Payload),
		PublishedAt:   time.Now().UTC(),
	}

	return p.producer.PublishEvent(p.topic, key, envelope)
}

var _ domain.OutboxPublisher = (*OutboxTopicPublisher)(nil)

// RoutingPublisher направляет outbox-сообщения в топик по их типу события,
// остальные — в fallback.
type RoutingPublisher struct {
	routes   map[string]domain.OutboxPublisher
	fallback domain.OutboxPublisher
}

// NewRoutingPublisher создаёт маршрутизирующий publisher.
// routes сопоставляет event_type с топиком назначения.
func NewRoutingPublisher(producer *Producer, routes map[string]string, fallbackTopic string) domain.OutboxPublisher {
	byEvent := make(map[string]domain.OutboxPublisher, len(routes))
	for eventType, topic := range routes {
		byEvent[eventType] = NewOutboxPublisher(producer, topic)
	}
	return &RoutingPublisher{
		routes:   byEvent,
		fallback: NewOutboxPublisher(producer, fallbackTopic),
	}
}

func (p *RoutingPublisher) Publish(event domain.OutboxMessage) error {
	if target, ok := p.routes[event.EventType]; ok {
		return target.Publish(event)
	}
	return p.fallback.Publish(event)
}

var _ domain.OutboxPublisher = (*RoutingPublisher)(nil)
