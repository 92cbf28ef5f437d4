package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/fleetscore-backend/internal/data/aggregates"
	"github.com/yungbote/fleetscore-backend/internal/data/repos"
	"github.com/yungbote/fleetscore-backend/internal/data/repos/testutil"
	types "github.com/yungbote/fleetscore-backend/internal/domain"
	"github.com/yungbote/fleetscore-backend/internal/observability"
	"github.com/yungbote/fleetscore-backend/internal/pkg/ctxutil"
	"github.com/yungbote/fleetscore-backend/internal/pkg/dbctx"
	"github.com/yungbote/fleetscore-backend/internal/realtime/bus"
)

type serviceFixture struct {
	db          *gorm.DB
	repos       repos.Set
	registry    DriverRegistry
	rules       RuleService
	scores      ScoreService
	leaderboard LeaderboardService
	notifier    LedgerNotifier
	bus         bus.Bus
	metrics     *observability.Metrics
}

func newServiceFixture(t *testing.T, basePoints int) *serviceFixture {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	set := repos.NewSet(db, log)
	metrics := observability.New()

	b := bus.NewMemoryBus()
	t.Cleanup(func() { _ = b.Close() })

	lb := NewLeaderboardService(log, LeaderboardConfig{BasePoints: basePoints, DefaultLimit: 100}, set.Scores, NewMemoryLeaderboardCache(time.Minute), metrics)
	notifier := NewLedgerNotifier(log, b, lb, metrics)

	base := aggregates.BaseDeps{DB: db, Log: log, MaxAttempts: 3, RetryBackoff: time.Millisecond}
	ledger := aggregates.NewScoreLedger(aggregates.ScoreLedgerDeps{
		Base:         base,
		Drivers:      set.Drivers,
		Rules:        set.Rules,
		Events:       set.Events,
		Scores:       set.Scores,
		Applications: set.Applications,
		History:      set.History,
		BasePoints:   basePoints,
		Notifier:     notifier,
	})
	catalog := aggregates.NewRuleCatalog(aggregates.RuleCatalogDeps{Base: base, Rules: set.Rules, Applications: set.Applications})

	return &serviceFixture{
		db:          db,
		repos:       set,
		registry:    NewDriverRegistry(log, set.Drivers),
		rules:       NewRuleService(log, set.Rules, catalog),
		scores:      NewScoreService(log, ScoreConfig{BasePoints: basePoints}, set.Drivers, set.Scores, set.Events, set.History, set.Applications, ledger),
		leaderboard: lb,
		notifier:    notifier,
		bus:         b,
		metrics:     metrics,
	}
}

func (f *serviceFixture) register(t *testing.T, id, name string) {
	t.Helper()
	if _, err := f.registry.RegisterDriver(context.Background(), id, name, nil); err != nil {
		t.Fatalf("RegisterDriver(%s): %v", id, err)
	}
}

func managerCtx(id string) context.Context {
	return ctxutil.WithRequestData(context.Background(), &ctxutil.RequestData{ManagerID: id})
}

type changeCollector struct {
	mu      sync.Mutex
	changes []types.ScoreChange
}

func (c *changeCollector) add(ch types.ScoreChange) {
	c.mu.Lock()
	c.changes = append(c.changes, ch)
	c.mu.Unlock()
}

func (c *changeCollector) snapshot() []types.ScoreChange {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]types.ScoreChange, len(c.changes))
	copy(out, c.changes)
	return out
}

func dbcBackground() dbctx.Context {
	return dbctx.Context{Ctx: context.Background()}
}
