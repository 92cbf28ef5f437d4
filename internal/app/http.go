package app

import (
	"gorm.io/gorm"

	fshttp "github.com/yungbote/fleetscore-backend/internal/http"
	httpH "github.com/yungbote/fleetscore-backend/internal/http/handlers"
	httpMW "github.com/yungbote/fleetscore-backend/internal/http/middleware"
	"github.com/yungbote/fleetscore-backend/internal/observability"
	"github.com/yungbote/fleetscore-backend/internal/pkg/logger"
)

type Middleware struct {
	Manager     *httpMW.ManagerMiddleware
	RateLimiter *httpMW.RateLimiter
}

type Handlers struct {
	Health  *httpH.HealthHandler
	Metrics *httpH.MetricsHandler
	Rule    *httpH.RuleHandler
	Driver  *httpH.DriverHandler
	Score   *httpH.ScoreHandler
}

func wireHandlers(log *logger.Logger, db *gorm.DB, services Services, metrics *observability.Metrics) Handlers {
	log.Info("Wiring handlers...")
	h := Handlers{
		Health: httpH.NewHealthHandler(db),
		Rule:   httpH.NewRuleHandler(services.Rules, services.Scores),
		Driver: httpH.NewDriverHandler(services.Drivers, services.Scores),
		Score:  httpH.NewScoreHandler(services.Scores, services.Leaderboard),
	}
	if metrics != nil {
		h.Metrics = httpH.NewMetricsHandler(metrics)
	}
	return h
}

func wireMiddleware(log *logger.Logger, cfg Config) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Manager:     httpMW.NewManagerMiddleware(log, cfg.RequireManagerID),
		RateLimiter: httpMW.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
	}
}

func wireServer(log *logger.Logger, cfg Config, handlers Handlers, middleware Middleware, metrics *observability.Metrics) *fshttp.Server {
	// otelgin is only installed when spans go somewhere
	serviceName := ""
	if cfg.Tracing.Enabled {
		serviceName = cfg.Tracing.ServiceName
	}
	return fshttp.NewServer(fshttp.RouterConfig{
		Log:               log,
		ServiceName:       serviceName,
		CORSOrigins:       cfg.CORSOrigins,
		Metrics:           metrics,
		RateLimiter:       middleware.RateLimiter,
		ManagerMiddleware: middleware.Manager,
		HealthHandler:     handlers.Health,
		MetricsHandler:    handlers.Metrics,
		RuleHandler:       handlers.Rule,
		DriverHandler:     handlers.Driver,
		ScoreHandler:      handlers.Score,
	})
}
