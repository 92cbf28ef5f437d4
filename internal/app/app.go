package app

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yungbote/fleetscore-backend/internal/data/db"
	"github.com/yungbote/fleetscore-backend/internal/data/seed"
	fshttp "github.com/yungbote/fleetscore-backend/internal/http"
	"github.com/yungbote/fleetscore-backend/internal/observability"
	"github.com/yungbote/fleetscore-backend/internal/pkg/logger"
)

const serviceNameDefault = "fleetscore"

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Server   *fshttp.Server
	Cfg      Config
	Repos    Repos
	Services Services
	Clients  Clients
	Metrics  *observability.Metrics

	otelShutdown func(context.Context) error
}

func New(ctx context.Context) (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)

	otelShutdown := observability.InitTracing(ctx, log, cfg.Tracing)
	metrics := observability.Init(log, cfg.Metrics)

	store, err := db.Open(log, cfg.DBDriver, cfg.SQLitePath)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init %s: %w", cfg.DBDriver, err)
	}
	theDB := store.DB()

	clients, err := wireClients(ctx, log, cfg)
	if err != nil {
		log.Sync()
		return nil, err
	}

	reposet := wireRepos(theDB, log)
	serviceset := wireServices(theDB, log, cfg, reposet, clients, metrics)
	handlerset := wireHandlers(log, theDB, serviceset, metrics)
	middleware := wireMiddleware(log, cfg)
	server := wireServer(log, cfg, handlerset, middleware, metrics)

	return &App{
		Log:          log,
		DB:           theDB,
		Server:       server,
		Cfg:          cfg,
		Repos:        reposet,
		Services:     serviceset,
		Clients:      clients,
		Metrics:      metrics,
		otelShutdown: otelShutdown,
	}, nil
}

// Seed inserts any default rules missing from the catalog.
func (a *App) Seed(ctx context.Context) error {
	if !a.Cfg.SeedDefaultRules {
		a.Log.Info("Default rule seeding disabled")
		return nil
	}
	rules, err := seed.DefaultRules(a.Log, a.Cfg.DefaultRulesYAML)
	if err != nil {
		return fmt.Errorf("load default rules: %w", err)
	}
	if _, err := a.Services.Rules.SeedDefaultRules(ctx, rules); err != nil {
		return fmt.Errorf("seed default rules: %w", err)
	}
	return nil
}

// Run serves HTTP and the background collectors until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	g, gctx := errgroup.WithContext(ctx)

	a.Metrics.StartPostgresCollector(gctx, a.Log, a.DB)
	if a.Clients.Redis != nil {
		a.Metrics.StartRedisCollector(gctx, a.Log, a.Clients.Redis)
	}
	if err := a.Services.Notifier.StartCacheInvalidation(gctx); err != nil {
		return fmt.Errorf("start ledger forwarder: %w", err)
	}

	g.Go(func() error {
		addr := ":" + a.Cfg.Port
		a.Log.Info("Server listening", "addr", addr)
		return a.Server.Run(gctx, addr)
	})
	return g.Wait()
}

func (a *App) Close() {
	if a == nil {
		return
	}
	a.Clients.Close()
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	if a.otelShutdown != nil {
		_ = a.otelShutdown(context.Background())
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
