package app

import (
	"strings"
	"time"

	"github.com/yungbote/fleetscore-backend/internal/data/db"
	"github.com/yungbote/fleetscore-backend/internal/observability"
	"github.com/yungbote/fleetscore-backend/internal/pkg/logger"
	"github.com/yungbote/fleetscore-backend/internal/utils"
)

type Config struct {
	Port        string
	Environment string
	Version     string

	DBDriver   string
	SQLitePath string

	BasePoints         int
	RecentEventsLimit  int
	LeaderboardLimit   int
	WriteRetryAttempts int
	WriteRetryBackoff  time.Duration
	ScoreLockTimeout   time.Duration

	RedisAddr           string
	RedisChannel        string
	LeaderboardCacheTTL time.Duration

	RateLimitRPS     float64
	RateLimitBurst   int
	RequireManagerID bool
	CORSOrigins      []string

	SeedDefaultRules bool
	DefaultRulesYAML string

	Metrics observability.MetricsConfig
	Tracing observability.TracingConfig
}

func LoadConfig(log *logger.Logger) Config {
	return Config{
		Port:        utils.GetEnv("PORT", "8080", log),
		Environment: utils.GetEnv("APP_ENV", "development", log),
		Version:     utils.GetEnv("SERVICE_VERSION", "dev", log),

		DBDriver:   strings.ToLower(utils.GetEnv("DB_DRIVER", db.DriverPostgres, log)),
		SQLitePath: utils.GetEnv("SQLITE_PATH", "fleetscore.db", log),

		BasePoints:         utils.GetEnvAsInt("BASE_POINTS", 0, log),
		RecentEventsLimit:  utils.GetEnvAsInt("RECENT_EVENTS_LIMIT", 10, log),
		LeaderboardLimit:   utils.GetEnvAsInt("LEADERBOARD_LIMIT", 100, log),
		WriteRetryAttempts: utils.GetEnvAsInt("WRITE_RETRY_ATTEMPTS", 3, log),
		WriteRetryBackoff:  utils.GetEnvAsDuration("WRITE_RETRY_BACKOFF", 10*time.Millisecond, log),
		ScoreLockTimeout:   utils.GetEnvAsDuration("SCORE_LOCK_TIMEOUT", 2*time.Second, log),

		RedisAddr:           strings.TrimSpace(utils.GetEnv("REDIS_ADDR", "", log)),
		RedisChannel:        utils.GetEnv("REDIS_CHANNEL", "", log),
		LeaderboardCacheTTL: utils.GetEnvAsDuration("LEADERBOARD_CACHE_TTL", 30*time.Second, log),

		RateLimitRPS:     utils.GetEnvAsFloat("RATE_LIMIT_RPS", 0, log),
		RateLimitBurst:   utils.GetEnvAsInt("RATE_LIMIT_BURST", 0, log),
		RequireManagerID: utils.GetEnvAsBool("REQUIRE_MANAGER_ID", false, log),
		CORSOrigins:      splitCSV(utils.GetEnv("CORS_ALLOW_ORIGINS", "", log)),

		SeedDefaultRules: utils.GetEnvAsBool("SEED_DEFAULT_RULES", true, log),
		DefaultRulesYAML: utils.GetEnv("DEFAULT_RULES_YAML", "", log),

		Metrics: observability.MetricsConfig{
			Enabled:        utils.GetEnvAsBool("METRICS_ENABLED", false, log),
			ScrapeInterval: utils.GetEnvAsDuration("METRICS_SCRAPE_INTERVAL", 10*time.Second, log),
		},
		Tracing: observability.TracingConfig{
			Enabled:     utils.GetEnvAsBool("OTEL_ENABLED", false, log),
			ServiceName: utils.GetEnv("OTEL_SERVICE_NAME", serviceNameDefault, log),
			Environment: utils.GetEnv("APP_ENV", "development", log),
			Version:     utils.GetEnv("SERVICE_VERSION", "dev", log),
			Endpoint:    strings.TrimSpace(utils.GetEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "", log)),
			Headers:     observability.ParseHeaders(utils.GetEnv("OTEL_EXPORTER_OTLP_HEADERS", "", log)),
			Insecure:    utils.GetEnvAsBool("OTEL_EXPORTER_OTLP_INSECURE", false, log),
			SampleRatio: utils.GetEnvAsFloat("OTEL_SAMPLER_RATIO", 0.1, log),
		},
	}
}

func splitCSV(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
