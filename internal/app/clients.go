package app

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/fleetscore-backend/internal/pkg/logger"
	"github.com/yungbote/fleetscore-backend/internal/realtime/bus"
	"github.com/yungbote/fleetscore-backend/internal/services"
)

type Clients struct {
	Redis            *goredis.Client
	Bus              bus.Bus
	LeaderboardCache services.LeaderboardCache
}

// wireClients connects redis when REDIS_ADDR is set; otherwise the bus and cache stay in-process.
func wireClients(ctx context.Context, log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")

	if cfg.RedisAddr == "" {
		log.Info("REDIS_ADDR not set, using in-process ledger bus and leaderboard cache")
		return Clients{
			Bus:              bus.NewMemoryBus(),
			LeaderboardCache: services.NewMemoryLeaderboardCache(cfg.LeaderboardCacheTTL),
		}, nil
	}

	rdb, err := bus.NewRedisClient(ctx, cfg.RedisAddr)
	if err != nil {
		return Clients{}, fmt.Errorf("init redis: %w", err)
	}
	b, err := bus.NewRedisBus(log, rdb, cfg.RedisChannel)
	if err != nil {
		_ = rdb.Close()
		return Clients{}, fmt.Errorf("init redis ledger bus: %w", err)
	}
	cache, err := services.NewRedisLeaderboardCache(rdb, "", cfg.LeaderboardCacheTTL)
	if err != nil {
		_ = rdb.Close()
		return Clients{}, fmt.Errorf("init leaderboard cache: %w", err)
	}
	return Clients{Redis: rdb, Bus: b, LeaderboardCache: cache}, nil
}

func (c Clients) Close() {
	if c.Bus != nil {
		_ = c.Bus.Close()
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}
