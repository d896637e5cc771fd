package core

import (
	"context"
	"testing"
	"time"
)

type fakePersistentStore struct {
	nowFn func() time.Time
}

func (f *fakePersistentStore) RunInTransaction(_ context.Context, fn func(Transaction) error) (Result, error) {
	return Result{}, fn(nil)
}

func (f *fakePersistentStore) View(_ context.Context, fn func(TransactionView) error) error {
	return fn(nil)
}

type nowStore struct {
	fakePersistentStore
}

func (s *nowStore) NowFunc() func() time.Time { return s.nowFn }

func (s *nowStore) SetNowFunc(fn func() time.Time) { s.nowFn = fn }

func TestSelectNowFunc(t *testing.T) {
	storeTime := time.Date(2024, 1, 1, 0, 0, 0, 0, time.FixedZone("X", 3600))
	clockTime := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	clock := ClockFunc(func() time.Time { return clockTime })

	withNow := &nowStore{fakePersistentStore{nowFn: func() time.Time { return storeTime }}}
	if got := selectNowFunc(withNow, clock)(); !got.Equal(storeTime) || got.Location() != time.UTC {
		t.Fatalf("expected store time in UTC, got %s", got)
	}
	if got := selectNowFunc(&nowStore{}, clock)(); !got.Equal(clockTime) {
		t.Fatalf("expected clock fallback for nil store func, got %s", got)
	}
	if got := selectNowFunc(&fakePersistentStore{}, clock)(); !got.Equal(clockTime) {
		t.Fatalf("expected clock time, got %s", got)
	}
	if got := selectNowFunc(&fakePersistentStore{}, nil)(); got.IsZero() || got.Location() != time.UTC {
		t.Fatalf("expected system time in UTC, got %s", got)
	}
}

func TestWithClockPushesIntoStore(t *testing.T) {
	clockTime := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	store := &nowStore{}
	svc := NewService(store, WithClock(ClockFunc(func() time.Time { return clockTime })))
	if store.nowFn == nil || !store.nowFn().Equal(clockTime) {
		t.Fatalf("expected clock to be installed on the store")
	}
	if !svc.Now().Equal(clockTime) {
		t.Fatalf("expected service time %s, got %s", clockTime, svc.Now())
	}
}

func TestExtractRulesEngine(t *testing.T) {
	if extractRulesEngine(&fakePersistentStore{}) != nil {
		t.Fatalf("expected nil engine for store without provider")
	}
	engine := NewDefaultRulesEngine()
	svc := NewInMemoryService(engine)
	if svc.RulesEngine() != engine {
		t.Fatalf("expected service to expose the store engine")
	}
	if got := engine.Rules(); len(got) != 3 {
		t.Fatalf("expected three default rules, got %v", got)
	}
	if len(NewRulesEngine().Rules()) != 0 {
		t.Fatalf("expected empty engine")
	}
}
