package verify_test

import (
	"sync"
	"testing"
	"time"

	"github.com/legendx/enhancebot/modules/verify"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func TestCache_NotVerifiedBeforeMark(t *testing.T) {
	cache := verify.NewCache(newFakeClock())
	for _, id := range []int64{1, 42, 9000000} {
		if cache.IsVerified(id) {
			t.Errorf("user %d verified before any mark", id)
		}
	}
}

func TestCache_VerifiedUntilTTLElapses(t *testing.T) {
	clock := newFakeClock()
	cache := verify.NewCache(clock)

	cache.MarkVerified(42, 12*time.Hour)
	if !cache.IsVerified(42) {
		t.Fatal("expected verified immediately after mark")
	}

	clock.Advance(11 * time.Hour)
	if !cache.IsVerified(42) {
		t.Fatal("expected still verified before ttl elapsed")
	}

	clock.Advance(time.Hour)
	if cache.IsVerified(42) {
		t.Fatal("expected not verified once ttl elapsed")
	}
	// subsequent call after lazy eviction must not blow up
	if cache.IsVerified(42) {
		t.Fatal("expected not verified on repeat lookup")
	}
}

func TestCache_LastWriteWins(t *testing.T) {
	clock := newFakeClock()
	cache := verify.NewCache(clock)

	cache.MarkVerified(7, 12*time.Hour)
	cache.MarkVerified(7, time.Hour) // shorter ttl overwrites, not max-wins

	clock.Advance(2 * time.Hour)
	if cache.IsVerified(7) {
		t.Fatal("expected second mark's shorter ttl to win")
	}
}

func TestCache_LazyEviction(t *testing.T) {
	clock := newFakeClock()
	cache := verify.NewCache(clock)

	cache.MarkVerified(1, time.Minute)
	cache.MarkVerified(2, time.Minute)
	clock.Advance(2 * time.Minute)

	if got := cache.Len(); got != 2 {
		t.Fatalf("expected 2 entries before lookup, got %d", got)
	}
	cache.IsVerified(1)
	if got := cache.Len(); got != 1 {
		t.Fatalf("expected expired entry removed on lookup, got %d entries", got)
	}
}

func TestCache_ExpiryBoundary(t *testing.T) {
	clock := newFakeClock()
	cache := verify.NewCache(clock)

	cache.MarkVerified(5, time.Hour)
	clock.Advance(time.Hour)
	// expiry equal to current time counts as expired
	if cache.IsVerified(5) {
		t.Fatal("expected entry at exact expiry instant to be expired")
	}
}

func TestCache_ConcurrentAccess(t *testing.T) {
	clock := newFakeClock()
	cache := verify.NewCache(clock)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				cache.MarkVerified(id, time.Minute)
				cache.IsVerified(id)
			}
		}(int64(i % 4))
	}
	wg.Wait()
}
