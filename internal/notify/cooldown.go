package notify

import (
	"context"
	"sync"
	"time"
)

// Cooldown admits the first Acquire of a key and refuses repeats until ttl has passed.
// redisclient.Cooldown is the shared implementation; MemoryCooldown serves single
// instances and tests.
type Cooldown interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

type MemoryCooldown struct {
	mu    sync.Mutex
	until map[string]time.Time
	now   func() time.Time
}

func NewMemoryCooldown() *MemoryCooldown {
	return &MemoryCooldown{until: make(map[string]time.Time), now: time.Now}
}

func (c *MemoryCooldown) Acquire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if exp, ok := c.until[key]; ok && now.Before(exp) {
		return false, nil
	}
	c.until[key] = now.Add(ttl)

	// drop expired keys so the map stays bounded by the number of live cooldowns
	for k, exp := range c.until {
		if !now.Before(exp) {
			delete(c.until, k)
		}
	}
	return true, nil
}
