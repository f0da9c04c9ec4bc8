package domain_test

import (
	"testing"
	"time"

	"github.com/vladislavdragonenkov/deals/internal/domain"
)

// helper для создания валидного предложения.
func makeDeal() domain.Deal {
	now := time.Now().UTC()
	return domain.Deal{
		Token:            "token-1",
		ProductID:        "product-1",
		SKU:              "SKU-100",
		ProductName:      "Test Item",
		CostBasisMinor:   100000,
		MarkupFraction:   0.15,
		OfferPriceMinor:  115000,
		Quantity:         2,
		ShippingFeeMinor: 0,
		ExpiresAt:        now.Add(24 * time.Hour),
		Status:           domain.DealStatusPending,
		Version:          0,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func TestOfferPrice(t *testing.T) {
	cases := []struct {
		name   string
		cost   int64
		markup float64
		want   int64
	}{
		{name: "fifteen percent", cost: 100000, markup: 0.15, want: 115000},
		{name: "zero markup", cost: 5000, markup: 0, want: 5000},
		{name: "rounds half up", cost: 333, markup: 0.5, want: 500},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := domain.OfferPrice(tc.cost, tc.markup); got != tc.want {
				t.Fatalf("OfferPrice(%d, %v) = %d, want %d", tc.cost, tc.markup, got, tc.want)
			}
		})
	}
}

func TestDealGrossMinor(t *testing.T) {
	deal := makeDeal()
	deal.ShippingFeeMinor = 2500

	want := int64(115000*2 + 2500)
	if got := deal.GrossMinor(); got != want {
		t.Fatalf("expected gross %d, got %d", want, got)
	}
}

func TestDealStatusTerminal(t *testing.T) {
	terminal := []domain.DealStatus{
		domain.DealStatusPaid,
		domain.DealStatusExpired,
		domain.DealStatusCancelled,
	}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("expected %s to be terminal", s)
		}
	}

	open := []domain.DealStatus{domain.DealStatusPending, domain.DealStatusAccepted}
	for _, s := range open {
		if s.Terminal() {
			t.Errorf("expected %s to be non-terminal", s)
		}
	}
}

func TestDealExpiredAt(t *testing.T) {
	deal := makeDeal()

	if deal.ExpiredAt(deal.ExpiresAt.Add(-time.Second)) {
		t.Fatal("deal must not be expired before its expiry")
	}
	if !deal.ExpiredAt(deal.ExpiresAt) {
		t.Fatal("deal must be expired exactly at its expiry")
	}
	if !deal.ExpiredAt(deal.ExpiresAt.Add(time.Hour)) {
		t.Fatal("deal must be expired after its expiry")
	}
}

func TestDealValidateInvariants_Ok(t *testing.T) {
	deal := makeDeal()
	if errs := deal.ValidateInvariants(); len(errs) != 0 {
		t.Fatalf("expected no validation errors, got %v", errs)
	}
}

func TestDealValidateInvariants_Errors(t *testing.T) {
	cases := []struct {
		name string
		mut  func(d *domain.Deal)
	}{
		{
			name: "no token",
			mut: func(d *domain.Deal) {
				d.Token = ""
			},
		},
		{
			name: "no product",
			mut: func(d *domain.Deal) {
				d.ProductID = ""
			},
		},
		{
			name: "qty below one",
			mut: func(d *domain.Deal) {
				d.Quantity = 0
			},
		},
		{
			name: "negative markup",
			mut: func(d *domain.Deal) {
				d.MarkupFraction = -0.1
				d.OfferPriceMinor = domain.OfferPrice(d.CostBasisMinor, d.MarkupFraction)
			},
		},
		{
			name: "offer price drifted",
			mut: func(d *domain.Deal) {
				d.OfferPriceMinor = 999
			},
		},
		{
			name: "no expiry",
			mut: func(d *domain.Deal) {
				d.ExpiresAt = time.Time{}
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			deal := makeDeal()
			// Изменяем состояние согласно сценарию.
			tc.mut(&deal)

			if len(deal.ValidateInvariants()) == 0 {
				t.Fatalf("expected validation errors for case %s", tc.name)
			}
		})
	}
}
