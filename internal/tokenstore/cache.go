package tokenstore

import (
	"sync"
	"time"
)

// expiryBuffer is subtracted from token lifetimes so callers re-authenticate
// before Vault rejects the token.
const expiryBuffer = 5 * time.Second

// Cache keeps one Entry per account in memory for the life of the process.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]Entry
	now     func() time.Time
}

// NewCache creates an empty cache
func NewCache() *Cache {
	return &Cache{entries: make(map[string]Entry), now: time.Now}
}

// Get returns the entry for account if it has not expired
func (c *Cache) Get(account string) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[account]
	if !ok || e.expiredAt(c.now()) {
		return Entry{}, false
	}
	return e, true
}

// Set stores e for account
func (c *Cache) Set(account string, e Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[account] = e
}

// Clear removes the entry for account
func (c *Cache) Clear(account string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, account)
}

// TTL returns the remaining lifetime of account's token. Tokens without an
// expiry report 0 and ok=true.
func (c *Cache) TTL(account string) (time.Duration, bool) {
	e, ok := c.Get(account)
	if !ok {
		return 0, false
	}
	if e.ExpiresAt.IsZero() {
		return 0, true
	}
	return e.ExpiresAt.Sub(c.now()), true
}
