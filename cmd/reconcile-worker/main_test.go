package main

import (
	"encoding/json"
	"testing"
)

func TestExtractTokenFromPayload(t *testing.T) {
	raw, err := json.Marshal(map[string]any{
		"id":           "outbox-1",
		"aggregate_id": "deal-1",
		"event_type":   "order.create_requested",
		"payload": map[string]any{
			"token":                "deal-1",
			"external_payment_ref": "pf-100",
			"gross_minor":          230000,
		},
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	token, err := extractToken(raw)
	if err != nil {
		t.Fatalf("extractToken: %v", err)
	}
	if token != "deal-1" {
		t.Fatalf("token = %q, want deal-1", token)
	}
}

func TestExtractTokenFallsBackToAggregateID(t *testing.T) {
	raw, err := json.Marshal(map[string]any{
		"id":           "outbox-2",
		"aggregate_id": "deal-2",
		"event_type":   "order.create_requested",
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	token, err := extractToken(raw)
	if err != nil {
		t.Fatalf("extractToken: %v", err)
	}
	if token != "deal-2" {
		t.Fatalf("token = %q, want deal-2", token)
	}
}

func TestExtractTokenRejectsGarbage(t *testing.T) {
	if _, err := extractToken([]byte("not json")); err == nil {
		t.Fatal("expected error for malformed message")
	}

	raw, _ := json.Marshal(map[string]any{"event_type": "order.create_requested"})
	if _, err := extractToken(raw); err == nil {
		t.Fatal("expected error for message without token")
	}
}
