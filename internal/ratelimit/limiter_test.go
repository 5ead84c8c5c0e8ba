package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hitoshi/fasilmap/internal/model"
)

// newTestLimiter は固定時刻を注入したLimiterとMemoryStoreを返すヘルパー。
func newTestLimiter(t *testing.T) (*Limiter, *MemoryStore, *time.Time) {
	t.Helper()

	store := NewMemoryStore(time.Minute)
	t.Cleanup(store.Stop)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l := NewLimiter(store)
	l.nowFn = func() time.Time { return now }

	return l, store, &now
}

// 上限2・ウィンドウ60秒で3回呼ぶと3回目だけ拒否されることを検証
func TestLimiter_FixedWindow(t *testing.T) {
	l, _, _ := newTestLimiter(t)
	ctx := context.Background()

	for i := 1; i <= 2; i++ {
		ok, err := l.Allow(ctx, "203.0.113.1:login", 2, time.Minute)
		if err != nil {
			t.Fatalf("Allow() #%d error = %v", i, err)
		}
		if !ok {
			t.Fatalf("Allow() #%d = false, want true", i)
		}
	}

	ok, err := l.Allow(ctx, "203.0.113.1:login", 2, time.Minute)
	if err != nil {
		t.Fatalf("Allow() #3 error = %v", err)
	}
	if ok {
		t.Fatal("Allow() #3 = true, want false")
	}
}

// ウィンドウ満了後にカウントが1にリセットされて再許可されることを検証
func TestLimiter_WindowReset(t *testing.T) {
	l, store, now := newTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		l.Allow(ctx, "id", 2, time.Minute)
	}

	// 60秒経過でウィンドウ満了
	*now = now.Add(time.Minute)

	ok, err := l.Allow(ctx, "id", 2, time.Minute)
	if err != nil {
		t.Fatalf("Allow() after reset error = %v", err)
	}
	if !ok {
		t.Fatal("Allow() after window expiry = false, want true")
	}

	w, err := store.Get(ctx, "id")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if w.RequestCount != 1 {
		t.Errorf("RequestCount after reset = %d, want 1", w.RequestCount)
	}
	wantReset := now.Add(time.Minute)
	if !w.WindowResetTime.Equal(wantReset) {
		t.Errorf("WindowResetTime = %v, want %v", w.WindowResetTime, wantReset)
	}
}

// 上限到達後は拒否してもカウントが上限を超えて保存されないことを検証
func TestLimiter_NoIncrementPastLimit(t *testing.T) {
	l, store, _ := newTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		l.Allow(ctx, "id", 2, time.Minute)
	}

	w, err := store.Get(ctx, "id")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if w.RequestCount != 2 {
		t.Errorf("RequestCount = %d, want 2 (never past the limit)", w.RequestCount)
	}
}

// identifierごとに独立したカウンタを持つことを検証
func TestLimiter_IndependentIdentifiers(t *testing.T) {
	l, _, _ := newTestLimiter(t)
	ctx := context.Background()

	l.Allow(ctx, "a:login", 1, time.Minute)

	ok, err := l.Allow(ctx, "b:login", 1, time.Minute)
	if err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	if !ok {
		t.Error("identifier b should not be affected by identifier a")
	}
}

// maxRequestsが1未満の場合は常に拒否することを検証
func TestLimiter_ZeroMax(t *testing.T) {
	l, _, _ := newTestLimiter(t)

	ok, err := l.Allow(context.Background(), "id", 0, time.Minute)
	if err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	if ok {
		t.Error("Allow() with max 0 = true, want false")
	}
}

// RetryAfterがウィンドウ残り秒数を返すことを検証
func TestLimiter_RetryAfter(t *testing.T) {
	l, _, _ := newTestLimiter(t)
	ctx := context.Background()

	if got := l.RetryAfter(ctx, "unknown"); got != 0 {
		t.Errorf("RetryAfter for unknown identifier = %d, want 0", got)
	}

	l.Allow(ctx, "id", 2, time.Minute)

	got := l.RetryAfter(ctx, "id")
	if got < 1 || got > 61 {
		t.Errorf("RetryAfter = %d, want within (0, 61]", got)
	}
}

// failingStore はStore障害を模擬するモック実装。
type failingStore struct{}

func (f *failingStore) Get(ctx context.Context, identifier string) (*model.RateWindow, error) {
	return nil, errors.New("store unavailable")
}

func (f *failingStore) Put(ctx context.Context, window *model.RateWindow) error {
	return errors.New("store unavailable")
}

// ストア障害時にエラーが呼び出し側へ伝播することを検証
func TestLimiter_StoreFailure(t *testing.T) {
	l := NewLimiter(&failingStore{})

	_, err := l.Allow(context.Background(), "id", 2, time.Minute)
	if err == nil {
		t.Fatal("expected error when store fails")
	}
}

// MemoryStoreのcleanupが満了済みエントリを削除することを検証
func TestMemoryStore_Cleanup(t *testing.T) {
	store := NewMemoryStore(time.Millisecond)
	defer store.Stop()

	ctx := context.Background()
	store.Put(ctx, &model.RateWindow{
		Identifier:      "stale",
		RequestCount:    3,
		WindowResetTime: time.Now().Add(-time.Hour),
	})
	store.Put(ctx, &model.RateWindow{
		Identifier:      "live",
		RequestCount:    1,
		WindowResetTime: time.Now().Add(time.Hour),
	})

	store.cleanup()

	if w, _ := store.Get(ctx, "stale"); w != nil {
		t.Error("stale entry should be removed by cleanup")
	}
	if w, _ := store.Get(ctx, "live"); w == nil {
		t.Error("live entry should survive cleanup")
	}
}
