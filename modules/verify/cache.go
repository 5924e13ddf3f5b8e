package verify

import (
	"sync"
	"time"

	"github.com/legendx/enhancebot/common"
)

// Cache holds, per user, the instant until which a successful membership
// check remains valid. Entries are evicted lazily on lookup; there is no
// background sweep and nothing is persisted, so a restart clears all state.
//
// The cache is read and written from concurrent update handlers, so the
// lookup-and-evict and the mark paths share one mutex.
type Cache struct {
	mu      sync.Mutex
	clock   common.Clock
	entries map[int64]time.Time
}

// NewCache returns an empty verification cache using the given clock.
func NewCache(clock common.Clock) *Cache {
	return &Cache{
		clock:   clock,
		entries: make(map[int64]time.Time),
	}
}

// IsVerified reports whether the user has an unexpired entry. An expired
// entry is removed under the same lock, so absence and expiry are the same
// "not verified" state to every caller.
func (c *Cache) IsVerified(userID int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiry, ok := c.entries[userID]
	if !ok {
		return false
	}
	if !c.clock.Now().Before(expiry) {
		delete(c.entries, userID)
		return false
	}
	return true
}

// MarkVerified sets or overwrites the user's expiry to now + ttl.
// Last write wins: a later mark with a shorter ttl shortens the window.
func (c *Cache) MarkVerified(userID int64, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[userID] = c.clock.Now().Add(ttl)
}

// Len returns the number of stored entries, expired or not. Used for metrics.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
