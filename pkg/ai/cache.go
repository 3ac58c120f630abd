package ai

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// EndpointCache remembers the last candidate that produced a completion.
// It is advisory: a lost or stale entry only changes which candidate is tried first.
type EndpointCache interface {
	Get(ctx context.Context) (Candidate, bool, error)
	Set(ctx context.Context, candidate Candidate) error
}

// MemoryEndpointCache is a single-slot in-process cache.
type MemoryEndpointCache struct {
	mu        sync.RWMutex
	candidate Candidate
	ok        bool
}

// NewMemoryEndpointCache constructs an empty in-process cache.
func NewMemoryEndpointCache() *MemoryEndpointCache {
	return &MemoryEndpointCache{}
}

func (c *MemoryEndpointCache) Get(context.Context) (Candidate, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.candidate, c.ok, nil
}

func (c *MemoryEndpointCache) Set(_ context.Context, candidate Candidate) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.candidate = candidate
	c.ok = true
	return nil
}

// RedisEndpointCache shares the last good candidate across replicas.
type RedisEndpointCache struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedisEndpointCache builds a cache stored under key. A zero ttl keeps the entry forever.
func NewRedisEndpointCache(client *redis.Client, key string, ttl time.Duration) *RedisEndpointCache {
	if key == "" {
		key = "ai:endpoint:last_good"
	}
	return &RedisEndpointCache{client: client, key: key, ttl: ttl}
}

func (c *RedisEndpointCache) Get(ctx context.Context) (Candidate, bool, error) {
	raw, err := c.client.Get(ctx, c.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Candidate{}, false, nil
		}
		return Candidate{}, false, err
	}

	var candidate Candidate
	if err := json.Unmarshal([]byte(raw), &candidate); err != nil {
		return Candidate{}, false, err
	}
	if candidate.Model == "" {
		return Candidate{}, false, nil
	}
	return candidate, true, nil
}

func (c *RedisEndpointCache) Set(ctx context.Context, candidate Candidate) error {
	payload, err := json.Marshal(candidate)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key, payload, c.ttl).Err()
}
