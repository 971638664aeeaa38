// Package cache stores computed dashboard stats for a short TTL, in Redis when
// configured and in process memory otherwise.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"idbcrm/internal/dashboard/models"
)

const keyPrefix = "dashboard:stats:"

// Redis caches stats as JSON under dashboard:stats:<scope key>.
type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

// Get returns (nil, nil) on a miss.
func (c *Redis) Get(ctx context.Context, key string) (*models.Stats, error) {
	raw, err := c.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cached stats: %w", err)
	}
	var st models.Stats
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("decode cached stats: %w", err)
	}
	return &st, nil
}

func (c *Redis) Set(ctx context.Context, key string, st *models.Stats, ttl time.Duration) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode stats: %w", err)
	}
	return c.client.Set(ctx, keyPrefix+key, raw, ttl).Err()
}

type entry struct {
	stats   models.Stats
	expires time.Time
}

// Memory is a process-local cache for single-instance deployments.
type Memory struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[string]entry), now: time.Now}
}

func (c *Memory) Get(_ context.Context, key string) (*models.Stats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, nil
	}
	if !c.now().Before(e.expires) {
		delete(c.entries, key)
		return nil, nil
	}
	st := e.stats
	return &st, nil
}

func (c *Memory) Set(_ context.Context, key string, st *models.Stats, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{stats: *st, expires: c.now().Add(ttl)}
	return nil
}
