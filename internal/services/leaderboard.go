package services

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/yungbote/fleetscore-backend/internal/data/repos"
	types "github.com/yungbote/fleetscore-backend/internal/domain"
	domainagg "github.com/yungbote/fleetscore-backend/internal/domain/aggregates"
	"github.com/yungbote/fleetscore-backend/internal/observability"
	"github.com/yungbote/fleetscore-backend/internal/pkg/dbctx"
	"github.com/yungbote/fleetscore-backend/internal/pkg/logger"
)

// DefaultCachedTop is how many ranked entries are cached when CachedTop is unset.
const DefaultCachedTop = 1000

type LeaderboardConfig struct {
	BasePoints   int
	DefaultLimit int
	// CachedTop entries are served from the cache; larger limits read the store directly.
	CachedTop    int
}

type LeaderboardService interface {
	// Leaderboard ranks drivers by current score desc, driver id asc. Ranks are 1..n
	// with no gaps, so tied scores still get distinct ranks. limit <= 0 uses the default.
	Leaderboard(ctx context.Context, limit int) ([]types.LeaderboardEntry, error)
	Invalidate(ctx context.Context)
}

type leaderboardService struct {
	log     *logger.Logger
	cfg     LeaderboardConfig
	scores  repos.DriverScoreRepo
	cache   LeaderboardCache
	metrics *observability.Metrics
	group   singleflight.Group
	// gen moves on every Invalidate; a load only fills the cache if it did not move meanwhile.
	gen atomic.Uint64
}

// NewLeaderboardService builds the ranking reader. cache may be nil.
func NewLeaderboardService(log *logger.Logger, cfg LeaderboardConfig, scores repos.DriverScoreRepo, cache LeaderboardCache, metrics *observability.Metrics) LeaderboardService {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 100
	}
	if cfg.CachedTop <= 0 {
		cfg.CachedTop = DefaultCachedTop
	}
	return &leaderboardService{
		log:     log.With("service", "LeaderboardService"),
		cfg:     cfg,
		scores:  scores,
		cache:   cache,
		metrics: metrics,
	}
}

func (s *leaderboardService) Leaderboard(ctx context.Context, limit int) ([]types.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = s.cfg.DefaultLimit
	}
	if limit > s.cfg.CachedTop {
		s.metrics.IncLeaderboardCache("bypass")
		return s.load(ctx, limit)
	}
	all, err := s.ranking(ctx)
	if err != nil {
		return nil, err
	}
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// ranking returns the top CachedTop entries, from cache when possible.
// Concurrent misses share one query.
func (s *leaderboardService) ranking(ctx context.Context) ([]types.LeaderboardEntry, error) {
	if s.cache != nil {
		entries, ok, err := s.cache.Get(ctx)
		if err != nil {
			s.log.Warn("Leaderboard cache read failed", "error", err)
			s.metrics.IncLeaderboardCache("error")
		} else if ok {
			s.metrics.IncLeaderboardCache("hit")
			return entries, nil
		} else {
			s.metrics.IncLeaderboardCache("miss")
		}
	}

	v, err, _ := s.group.Do("leaderboard", func() (any, error) {
		gen := s.gen.Load()
		entries, err := s.load(ctx, s.cfg.CachedTop)
		if err != nil {
			return nil, err
		}
		if s.cache != nil && s.gen.Load() == gen {
			if err := s.cache.Set(ctx, entries); err != nil {
				s.log.Warn("Leaderboard cache write failed", "error", err)
			}
		}
		return entries, nil
	})
	if err != nil {
		return nil, err
	}
	shared := v.([]types.LeaderboardEntry)
	out := make([]types.LeaderboardEntry, len(shared))
	copy(out, shared)
	return out, nil
}

func (s *leaderboardService) load(ctx context.Context, limit int) ([]types.LeaderboardEntry, error) {
	const op = "Scoring.Leaderboard.Rank"
	rows, err := s.scores.Ranked(dbctx.Context{Ctx: ctx}, s.cfg.BasePoints, limit)
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeStoreFailure, op, err)
	}
	out := make([]types.LeaderboardEntry, 0, len(rows))
	for _, r := range rows {
		if r == nil {
			continue
		}
		out = append(out, types.LeaderboardEntry{
			Rank:         len(out) + 1,
			DriverID:     r.DriverID,
			Name:         r.Name,
			CurrentScore: r.CurrentScore,
			LastResetAt:  r.LastResetAt,
			EventsCount:  r.EventsCount,
		})
	}
	return out, nil
}

func (s *leaderboardService) Invalidate(ctx context.Context) {
	s.gen.Add(1)
	s.group.Forget("leaderboard")
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.log.Warn("Leaderboard cache invalidate failed", "error", err)
	}
}
