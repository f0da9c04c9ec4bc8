package kafka

import (
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	log "github.com/sirupsen/logrus"
)

func TestProducer_PublishEvent(t *testing.T) {
	mockProducer := mocks.NewSyncProducer(t, nil)

	producer := &Producer{
		producer: mockProducer,
		logger:   log.WithField("component", "kafka-producer-test"),
	}

	mockProducer.ExpectSendMessageAndSucceed()

	event := NewDealEvent(
		EventTypeDealPaid,
		"deal-123",
		"paid",
		map[string]interface{}{
			"external_payment_ref": "pf-1001",
		},
	)

	err := producer.PublishEvent(TopicDealEvents, "deal-123", event)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestProducer_PublishEvent_Error(t *testing.T) {
	mockProducer := mocks.NewSyncProducer(t, nil)

	producer := &Producer{
		producer: mockProducer,
		logger:   log.WithField("component", "kafka-producer-test"),
	}

	mockProducer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	event := NewDealEvent(EventTypeDealCreated, "deal-123", "pending", nil)

	err := producer.PublishEvent(TopicDealEvents, "deal-123", event)
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestNewDealEvent(t *testing.T) {
	metadata := map[string]interface{}{
		"gross_minor": 230000,
	}

	event := NewDealEvent(EventTypeDealAccepted, "deal-123", "accepted", metadata)

	if event.EventType != EventTypeDealAccepted {
		t.Errorf("expected event type %s, got %s", EventTypeDealAccepted, event.EventType)
	}
	if event.Token != "deal-123" {
		t.Errorf("expected token deal-123, got %s", event.Token)
	}
	if event.Status != "accepted" {
		t.Errorf("expected status accepted, got %s", event.Status)
	}
	if event.Metadata["gross_minor"] != 230000 {
		t.Error("metadata not set correctly")
	}
	if event.Timestamp.IsZero() {
		t.Error("timestamp should not be zero")
	}
	if time.Since(event.Timestamp) > time.Second {
		t.Error("timestamp should be close to current time")
	}
}

func TestNewReconcileEvent(t *testing.T) {
	event := NewReconcileEvent("deal-123", "pf-1001", 230000, "order api timeout")

	if event.EventType != EventTypeOrderCreateRequested {
		t.Errorf("expected event type %s, got %s", EventTypeOrderCreateRequested, event.EventType)
	}
	if event.Token != "deal-123" {
		t.Errorf("expected token deal-123, got %s", event.Token)
	}
	if event.ExternalPaymentRef != "pf-1001" {
		t.Errorf("expected ref pf-1001, got %s", event.ExternalPaymentRef)
	}
	if event.GrossMinor != 230000 {
		t.Errorf("expected gross 230000, got %d", event.GrossMinor)
	}
	if event.Reason != "order api timeout" {
		t.Errorf("unexpected reason: %s", event.Reason)
	}
	if event.Timestamp.IsZero() {
		t.Error("timestamp should not be zero")
	}
}
