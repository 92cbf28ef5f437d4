package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/fleetscore-backend/internal/http/handlers"
	httpMW "github.com/yungbote/fleetscore-backend/internal/http/middleware"
	"github.com/yungbote/fleetscore-backend/internal/observability"
	"github.com/yungbote/fleetscore-backend/internal/pkg/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	ServiceName string
	CORSOrigins []string
	Metrics     *observability.Metrics
	RateLimiter *httpMW.RateLimiter

	ManagerMiddleware *httpMW.ManagerMiddleware

	HealthHandler  *httpH.HealthHandler
	MetricsHandler *httpH.MetricsHandler
	RuleHandler    *httpH.RuleHandler
	DriverHandler  *httpH.DriverHandler
	ScoreHandler   *httpH.ScoreHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachRequestContext())
	r.Use(httpMW.Observe(cfg.Log, cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins...))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}
	if cfg.MetricsHandler != nil {
		r.GET("/metrics", cfg.MetricsHandler.Serve)
	}

	api := r.Group("/api")
	api.Use(cfg.RateLimiter.Middleware())

	// Reads
	{
		if cfg.RuleHandler != nil {
			api.GET("/rules", cfg.RuleHandler.ListRules)
			api.GET("/rules/:key", cfg.RuleHandler.GetRule)
			api.GET("/default-rules", cfg.RuleHandler.ListDefaultRules)
		}
		if cfg.DriverHandler != nil {
			api.GET("/drivers", cfg.DriverHandler.ListDrivers)
			api.GET("/drivers/:id", cfg.DriverHandler.GetDriver)
			api.GET("/drivers/:id/score", cfg.DriverHandler.GetScore)
			api.GET("/drivers/:id/events", cfg.DriverHandler.RecentEvents)
			api.GET("/drivers/:id/history", cfg.DriverHandler.ScoreHistory)
			api.GET("/drivers/:id/rules", cfg.DriverHandler.RuleApplications)
			api.GET("/drivers/:id/reconcile", cfg.DriverHandler.Reconcile)
		}
		if cfg.ScoreHandler != nil {
			api.GET("/scores", cfg.ScoreHandler.ListAllScores)
			api.GET("/leaderboard", cfg.ScoreHandler.Leaderboard)
		}
	}

	// Writes
	writes := api.Group("/")
	{
		if cfg.ManagerMiddleware != nil {
			writes.Use(cfg.ManagerMiddleware.RequireManager())
		}

		// Rules
		if cfg.RuleHandler != nil {
			writes.POST("/rules", cfg.RuleHandler.CreateCustomRule)
			writes.PATCH("/rules/:key", cfg.RuleHandler.UpdateCustomRule)
			writes.DELETE("/rules/:key", cfg.RuleHandler.DeleteCustomRule)
			writes.POST("/rules/:key/apply", cfg.RuleHandler.ApplyRule)
			writes.PATCH("/default-rules/:key", cfg.RuleHandler.UpdateDefaultRule)
		}

		// Drivers
		if cfg.DriverHandler != nil {
			writes.PUT("/drivers/:id", cfg.DriverHandler.RegisterDriver)
			writes.POST("/drivers/:id/reset", cfg.DriverHandler.ResetScore)
		}

		// Events
		if cfg.ScoreHandler != nil {
			writes.POST("/events", cfg.ScoreHandler.LogGenericEvent)
		}
	}

	return r
}
