package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cooldown is a shared TTL cache: the first Acquire for a key wins until ttl passes.
// It lets several api-server instances agree on notification dedup.
type Cooldown struct {
	client *redis.Client
	prefix string
}

func NewCooldown(client *redis.Client) *Cooldown {
	return &Cooldown{client: client, prefix: "cooldown:"}
}

func (c *Cooldown) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := c.client.SetNX(ctx, c.prefix+key, time.Now().UnixMilli(), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("cooldown setnx: %w", err)
	}
	return ok, nil
}
