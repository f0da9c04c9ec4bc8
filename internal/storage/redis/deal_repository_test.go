package redis

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/vladislavdragonenkov/deals/internal/domain"
)

type fakeCommands struct {
	setNXKey   string
	setNXValue []byte
	setNXTTL   time.Duration
	setNXOK    bool
	setNXErr   error

	setKey   string
	setValue []byte
	setTTL   time.Duration
	setErr   error

	getValue string
	getErr   error
}

func (f *fakeCommands) SetNX(_ context.Context, key string, value interface{}, ttl time.Duration) *goredis.BoolCmd {
	f.setNXKey = key
	f.setNXValue = append([]byte(nil), value.([]byte)...)
	f.setNXTTL = ttl
	return goredis.NewBoolResult(f.setNXOK, f.setNXErr)
}

func (f *fakeCommands) Set(_ context.Context, key string, value interface{}, ttl time.Duration) *goredis.StatusCmd {
	f.setKey = key
	f.setValue = append([]byte(nil), value.([]byte)...)
	f.setTTL = ttl
	return goredis.NewStatusResult("OK", f.setErr)
}

func (f *fakeCommands) Get(_ context.Context, key string) *goredis.StringCmd {
	return goredis.NewStringResult(f.getValue, f.getErr)
}

func newTestDeal(token string) domain.Deal {
	return domain.Deal{
		Token:           token,
		ProductID:       "prod-1",
		OfferPriceMinor: 115000,
		Quantity:        1,
		Status:          domain.DealStatusPending,
		ExpiresAt:       time.Now().Add(30 * time.Minute),
		Version:         1,
	}
}

func TestDealRepository_CreateStoresSnapshot(t *testing.T) {
	fake := &fakeCommands{setNXOK: true}
	repo := &dealRepositoryRedis{client: fake}

	deal := newTestDeal("tok-redis-1")
	if err := repo.Create(deal); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if fake.setNXKey != "deal:tok-redis-1" {
		t.Fatalf("unexpected key: %s", fake.setNXKey)
	}

	var stored domain.Deal
	if err := json.Unmarshal(fake.setNXValue, &stored); err != nil {
		t.Fatalf("stored value is not a deal: %v", err)
	}
	if stored.Token != deal.Token || stored.Version != deal.Version {
		t.Fatalf("unexpected stored deal: %+v", stored)
	}

	// TTL = остаток срока действия плюс запас на страницу подтверждения.
	want := 30*time.Minute + expiryGrace
	if fake.setNXTTL < want-time.Minute || fake.setNXTTL > want+time.Minute {
		t.Fatalf("unexpected ttl: got=%s want about %s", fake.setNXTTL, want)
	}
}

func TestDealRepository_CreateDuplicateToken(t *testing.T) {
	fake := &fakeCommands{setNXOK: false}
	repo := &dealRepositoryRedis{client: fake}

	err := repo.Create(newTestDeal("tok-redis-2"))
	if !errors.Is(err, domain.ErrDealExists) {
		t.Fatalf("expected ErrDealExists, got: %v", err)
	}
}

func TestDealRepository_GetMissingDeal(t *testing.T) {
	fake := &fakeCommands{getErr: goredis.Nil}
	repo := &dealRepositoryRedis{client: fake}

	_, err := repo.Get("tok-missing")
	if !errors.Is(err, domain.ErrDealNotFound) {
		t.Fatalf("expected ErrDealNotFound, got: %v", err)
	}
}

func TestDealRepository_GetDecodesDeal(t *testing.T) {
	deal := newTestDeal("tok-redis-3")
	raw, err := json.Marshal(deal)
	if err != nil {
		t.Fatalf("marshal deal: %v", err)
	}

	fake := &fakeCommands{getValue: string(raw)}
	repo := &dealRepositoryRedis{client: fake}

	got, err := repo.Get("tok-redis-3")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Token != deal.Token || got.OfferPriceMinor != deal.OfferPriceMinor {
		t.Fatalf("unexpected deal: %+v", got)
	}
}

func TestDealRepository_GetCorruptedRecord(t *testing.T) {
	fake := &fakeCommands{getValue: "not json"}
	repo := &dealRepositoryRedis{client: fake}

	if _, err := repo.Get("tok-broken"); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestDealRepository_SaveIncrementsVersion(t *testing.T) {
	fake := &fakeCommands{}
	repo := &dealRepositoryRedis{client: fake}

	deal := newTestDeal("tok-redis-4")
	deal.Version = 3
	if err := repo.Save(deal); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	var stored domain.Deal
	if err := json.Unmarshal(fake.setValue, &stored); err != nil {
		t.Fatalf("stored value is not a deal: %v", err)
	}
	if stored.Version != 4 {
		t.Fatalf("version = %d, want 4", stored.Version)
	}
}

func TestDealRepository_TTLBounds(t *testing.T) {
	repo := &dealRepositoryRedis{client: &fakeCommands{}}

	// Просроченное предложение держим минимум минуту: страница
	// подтверждения ещё может его дочитать.
	expired := newTestDeal("tok-expired")
	expired.ExpiresAt = time.Now().Add(-100 * time.Hour)
	if got := repo.ttl(expired); got != time.Minute {
		t.Fatalf("ttl for expired deal = %s, want %s", got, time.Minute)
	}

	noExpiry := newTestDeal("tok-no-expiry")
	noExpiry.ExpiresAt = time.Time{}
	if got := repo.ttl(noExpiry); got != expiryGrace {
		t.Fatalf("ttl without expiry = %s, want %s", got, expiryGrace)
	}
}
