package kafka

import "time"

// EventType определяет тип события
type EventType string

const (
	// События жизненного цикла предложения
	EventTypeDealCreated   EventType = "deal.created"
	EventTypeDealAccepted  EventType = "deal.accepted"
	EventTypeDealPaid      EventType = "deal.paid"
	EventTypeDealExpired   EventType = "deal.expired"
	EventTypeDealCancelled EventType = "deal.cancelled"

	// События платёжных уведомлений
	EventTypeNotificationRejected EventType = "notification.rejected"

	// События интеграции с системой исполнения заказов
	EventTypeOrderCreateRequested EventType = "order.create_requested"
	EventTypeOrderCreated         EventType = "order.created"
	EventTypeOrderCreateFailed    EventType = "order.create_failed"
)

// Topics для Kafka
const (
	TopicDealEvents      = "deals.lifecycle.events"
	TopicReconcile       = "deals.reconcile" // Повторная попытка создания заказа в системе исполнения
	TopicDeadLetterQueue = "deals.dlq"       // Dead Letter Queue для failed messages
)

// Kafka headers для retry логики
const (
	HeaderRetryCount    = "x-retry-count"
	HeaderOriginalTopic = "x-original-topic"
	HeaderErrorMessage  = "x-error-message"
	HeaderFailedAt      = "x-failed-at"
)

// DealEvent представляет событие жизненного цикла предложения
type DealEvent struct {
	EventType EventType              `json:"event_type"`
	Token     string                 `json:"token"`
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// ReconcileEvent представляет задание на повторное создание заказа
// в системе исполнения для уже оплаченного предложения.
type ReconcileEvent struct {
	EventType          EventType `json:"event_type"`
	Token              string    `json:"token"`
	ExternalPaymentRef string    `json:"external_payment_ref"`
	GrossMinor         int64     `json:"gross_minor"`
	Timestamp          time.Time `json:"timestamp"`
	Reason             string    `json:"reason,omitempty"`
}

// NewDealEvent создает новое событие предложения
func NewDealEvent(eventType EventType, token, status string, metadata map[string]interface{}) *DealEvent {
	return &DealEvent{
		EventType: eventType,
		Token:     token,
		Status:    status,
		Timestamp: time.Now(),
		Metadata:  metadata,
	}
}

// NewReconcileEvent создает задание на повторную интеграцию с системой заказов
func NewReconcileEvent(token, externalRef string, grossMinor int64, reason string) *ReconcileEvent {
	return &ReconcileEvent{
		EventType:          EventTypeOrderCreateRequested,
		Token:              token,
		ExternalPaymentRef: externalRef,
		GrossMinor:         grossMinor,
		Timestamp:          time.Now(),
		Reason:             reason,
	}
}
