package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	types "github.com/yungbote/fleetscore-backend/internal/domain"
)

const defaultLeaderboardCacheKey = "fleetscore:leaderboard"

// LeaderboardCache holds the full ranking between ledger writes.
// Get returns ok=false on a miss.
type LeaderboardCache interface {
	Get(ctx context.Context) ([]types.LeaderboardEntry, bool, error)
	Set(ctx context.Context, entries []types.LeaderboardEntry) error
	Invalidate(ctx context.Context) error
}

type redisLeaderboardCache struct {
	rdb redis.UniversalClient
	key string
	ttl time.Duration
}

func NewRedisLeaderboardCache(rdb redis.UniversalClient, key string, ttl time.Duration) (LeaderboardCache, error) {
	if rdb == nil {
		return nil, fmt.Errorf("redis client required")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		key = defaultLeaderboardCacheKey
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &redisLeaderboardCache{rdb: rdb, key: key, ttl: ttl}, nil
}

func (c *redisLeaderboardCache) Get(ctx context.Context) ([]types.LeaderboardEntry, bool, error) {
	raw, err := c.rdb.Get(ctx, c.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var out []types.LeaderboardEntry
	if err := json.Unmarshal(raw, &out); err != nil {
		// unreadable payloads are treated as a miss and overwritten on the next Set
		return nil, false, nil
	}
	return out, true, nil
}

func (c *redisLeaderboardCache) Set(ctx context.Context, entries []types.LeaderboardEntry) error {
	raw, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, c.key, raw, c.ttl).Err()
}

func (c *redisLeaderboardCache) Invalidate(ctx context.Context) error {
	return c.rdb.Del(ctx, c.key).Err()
}

type memoryLeaderboardCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
	entries []types.LeaderboardEntry
	expires time.Time
	valid   bool
}

func NewMemoryLeaderboardCache(ttl time.Duration) LeaderboardCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &memoryLeaderboardCache{ttl: ttl, now: time.Now}
}

func (c *memoryLeaderboardCache) Get(_ context.Context) ([]types.LeaderboardEntry, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.valid || !c.now().Before(c.expires) {
		return nil, false, nil
	}
	out := make([]types.LeaderboardEntry, len(c.entries))
	copy(out, c.entries)
	return out, true, nil
}

func (c *memoryLeaderboardCache) Set(_ context.Context, entries []types.LeaderboardEntry) error {
	cp := make([]types.LeaderboardEntry, len(entries))
	copy(cp, entries)
	c.mu.Lock()
	c.entries = cp
	c.expires = c.now().Add(c.ttl)
	c.valid = true
	c.mu.Unlock()
	return nil
}

func (c *memoryLeaderboardCache) Invalidate(_ context.Context) error {
	c.mu.Lock()
	c.entries = nil
	c.valid = false
	c.mu.Unlock()
	return nil
}
