package domain_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/vladislavdragonenkov/deals/internal/domain"
)

func TestIsVersionConflict(t *testing.T) {
	if !domain.IsVersionConflict(domain.ErrDealVersionConflict) {
		t.Fatal("expected version conflict to be detected")
	}
	if !domain.IsVersionConflict(fmt.Errorf("save deal: %w", domain.ErrDealVersionConflict)) {
		t.Fatal("expected wrapped version conflict to be detected")
	}
	if domain.IsVersionConflict(domain.ErrDealNotFound) {
		t.Fatal("unrelated error must not be a version conflict")
	}
	if domain.IsVersionConflict(nil) {
		t.Fatal("nil must not be a version conflict")
	}
}

func TestIsTerminalRejection(t *testing.T) {
	rejections := []error{
		domain.ErrSignatureMismatch,
		domain.ErrAmountMismatch,
		domain.ErrGatewayRejected,
		domain.ErrOriginRejected,
		fmt.Errorf("verify: %w", domain.ErrSignatureMismatch),
	}
	for _, err := range rejections {
		if !domain.IsTerminalRejection(err) {
			t.Errorf("expected %v to be a terminal rejection", err)
		}
	}

	others := []error{
		nil,
		domain.ErrDealExpired,
		domain.ErrIntegrationFailure,
		errors.New("boom"),
	}
	for _, err := range others {
		if domain.IsTerminalRejection(err) {
			t.Errorf("expected %v not to be a terminal rejection", err)
		}
	}
}

func TestIdempotencyStatusValid(t *testing.T) {
	valid := []domain.IdempotencyStatus{
		domain.IdempotencyStatusProcessing,
		domain.IdempotencyStatusDone,
		domain.IdempotencyStatusFailed,
	}
	for _, s := range valid {
		if !s.Valid() {
			t.Errorf("expected %s to be valid", s)
		}
	}

	if domain.IdempotencyStatus("unknown").Valid() {
		t.Error("unknown status must not be valid")
	}
}
