package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/fleetscore-backend/internal/data/aggregates"
	domainagg "github.com/yungbote/fleetscore-backend/internal/domain/aggregates"
	"github.com/yungbote/fleetscore-backend/internal/observability"
	"github.com/yungbote/fleetscore-backend/internal/pkg/logger"
	"github.com/yungbote/fleetscore-backend/internal/services"
)

type Services struct {
	Ledger  domainagg.ScoreLedger
	Catalog domainagg.RuleCatalog

	Drivers     services.DriverRegistry
	Rules       services.RuleService
	Scores      services.ScoreService
	Leaderboard services.LeaderboardService
	Notifier    services.LedgerNotifier
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, repos Repos, clients Clients, metrics *observability.Metrics) Services {
	log.Info("Wiring services...")

	leaderboard := services.NewLeaderboardService(log, services.LeaderboardConfig{
		BasePoints:   cfg.BasePoints,
		DefaultLimit: cfg.LeaderboardLimit,
	}, repos.Scores, clients.LeaderboardCache, metrics)
	notifier := services.NewLedgerNotifier(log, clients.Bus, leaderboard, metrics)

	base := aggregates.BaseDeps{
		DB:           db,
		Log:          log,
		Hooks:        aggregates.NewObservabilityHooks(metrics),
		MaxAttempts:  cfg.WriteRetryAttempts,
		RetryBackoff: cfg.WriteRetryBackoff,
		LockTimeout:  cfg.ScoreLockTimeout,
	}
	ledger := aggregates.NewScoreLedger(aggregates.ScoreLedgerDeps{
		Base:         base,
		Drivers:      repos.Drivers,
		Rules:        repos.Rules,
		Events:       repos.Events,
		Scores:       repos.Scores,
		Applications: repos.Applications,
		History:      repos.History,
		BasePoints:   cfg.BasePoints,
		Notifier:     notifier,
	})
	catalog := aggregates.NewRuleCatalog(aggregates.RuleCatalogDeps{
		Base:         base,
		Rules:        repos.Rules,
		Applications: repos.Applications,
	})

	return Services{
		Ledger:      ledger,
		Catalog:     catalog,
		Drivers:     services.NewDriverRegistry(log, repos.Drivers),
		Rules:       services.NewRuleService(log, repos.Rules, catalog),
		Scores:      services.NewScoreService(log, services.ScoreConfig{BasePoints: cfg.BasePoints, RecentEventsLimit: cfg.RecentEventsLimit}, repos.Drivers, repos.Scores, repos.Events, repos.History, repos.Applications, ledger),
		Leaderboard: leaderboard,
		Notifier:    notifier,
	}
}
