package observability

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/fleetscore-backend/internal/pkg/logger"
)

const namespace = "fleetscore"

type Metrics struct {
	registry *prometheus.Registry
	interval time.Duration

	apiRequests *prometheus.CounterVec
	apiLatency  *prometheus.HistogramVec
	apiInflight prometheus.Gauge

	aggregateOps       *prometheus.CounterVec
	aggregateLatency   *prometheus.HistogramVec
	aggregateConflicts *prometheus.CounterVec
	aggregateRetries   *prometheus.CounterVec

	scoringEvents    *prometheus.CounterVec
	scoringPoints    *prometheus.CounterVec
	leaderboardCache *prometheus.CounterVec
	busPublish       *prometheus.CounterVec

	pgStats    *prometheus.GaugeVec
	redisUp    prometheus.Gauge
	redisPingS prometheus.Gauge
}

// MetricsConfig comes from METRICS_ENABLED and METRICS_SCRAPE_INTERVAL.
type MetricsConfig struct {
	Enabled bool
	// ScrapeInterval paces the db pool and redis collectors. <= 0 means 10s.
	ScrapeInterval time.Duration
}

// Init returns nil when metrics are disabled; every Metrics method is nil-safe.
func Init(log *logger.Logger, cfg MetricsConfig) *Metrics {
	if !cfg.Enabled {
		return nil
	}
	m := New()
	if cfg.ScrapeInterval > 0 {
		m.interval = cfg.ScrapeInterval
	}
	if log != nil {
		log.Info("prometheus metrics initialized", "scrape_interval", m.interval)
	}
	return m
}

// New builds a metrics set on its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		interval: 10 * time.Second,
		apiRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "api", Name: "requests_total",
			Help: "Total API requests by method/route/status.",
		}, []string{"method", "route", "status"}),
		apiLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "api", Name: "request_duration_seconds",
			Help:    "API request latency in seconds by method/route/status.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}, []string{"method", "route", "status"}),
		apiInflight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "api", Name: "inflight_requests",
			Help: "In-flight API requests.",
		}),
		aggregateOps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "aggregate", Name: "operations_total",
			Help: "Aggregate write operations by name/status.",
		}, []string{"op", "status"}),
		aggregateLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "aggregate", Name: "operation_duration_seconds",
			Help:    "Aggregate write latency including retries.",
			Buckets: prometheus.DefBuckets,
		}, []string{"op", "status"}),
		aggregateConflicts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "aggregate", Name: "conflicts_total",
			Help: "Concurrent update collisions observed by aggregate writes.",
		}, []string{"op"}),
		aggregateRetries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "aggregate", Name: "retries_total",
			Help: "Aggregate write attempts re-run after a conflict.",
		}, []string{"op"}),
		scoringEvents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "ledger", Name: "events_total",
			Help: "Scoring events appended by category and origin.",
		}, []string{"category", "origin"}),
		scoringPoints: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "ledger", Name: "points_total",
			Help: "Absolute points moved by sign.",
		}, []string{"sign"}),
		leaderboardCache: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "leaderboard", Name: "cache_requests_total",
			Help: "Leaderboard cache lookups by result.",
		}, []string{"result"}),
		busPublish: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "bus", Name: "publish_total",
			Help: "Ledger change notifications published by status.",
		}, []string{"status"}),
		pgStats: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "db", Name: "pool",
			Help: "Database connection pool statistics.",
		}, []string{"stat"}),
		redisUp: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "redis", Name: "up",
			Help: "Redis reachability (1 up, 0 down).",
		}),
		redisPingS: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "redis", Name: "ping_seconds",
			Help: "Last redis ping latency.",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	if status == "" {
		status = "0"
	}
	m.apiRequests.WithLabelValues(method, route, status).Inc()
	m.apiLatency.WithLabelValues(method, route, status).Observe(dur.Seconds())
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

func (m *Metrics) ObserveAggregateOperation(op, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if op == "" {
		op = "unknown"
	}
	if status == "" {
		status = "unknown"
	}
	m.aggregateOps.WithLabelValues(op, status).Inc()
	m.aggregateLatency.WithLabelValues(op, status).Observe(dur.Seconds())
}

func (m *Metrics) IncAggregateConflict(op string) {
	if m == nil {
		return
	}
	m.aggregateConflicts.WithLabelValues(op).Inc()
}

func (m *Metrics) IncAggregateRetry(op string) {
	if m == nil {
		return
	}
	m.aggregateRetries.WithLabelValues(op).Inc()
}

// ObserveScoringEvent counts an appended event. origin is "rule", "custom" or "generic".
func (m *Metrics) ObserveScoringEvent(category, origin string, points int) {
	if m == nil {
		return
	}
	m.scoringEvents.WithLabelValues(category, origin).Inc()
	switch {
	case points > 0:
		m.scoringPoints.WithLabelValues("positive").Add(float64(points))
	case points < 0:
		m.scoringPoints.WithLabelValues("negative").Add(float64(-points))
	}
}

func (m *Metrics) IncLeaderboardCache(result string) {
	if m == nil {
		return
	}
	m.leaderboardCache.WithLabelValues(result).Inc()
}

func (m *Metrics) IncBusPublish(status string) {
	if m == nil {
		return
	}
	m.busPublish.WithLabelValues(status).Inc()
}

// StartPostgresCollector samples the gorm pool until ctx ends.
func (m *Metrics) StartPostgresCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	sqlDB, err := db.DB()
	if err != nil {
		if log != nil {
			log.Warn("db pool collector disabled", "error", err)
		}
		return
	}
	go func() {
		t := time.NewTicker(m.interval)
		defer t.Stop()
		for {
			s := sqlDB.Stats()
			m.pgStats.WithLabelValues("open").Set(float64(s.OpenConnections))
			m.pgStats.WithLabelValues("in_use").Set(float64(s.InUse))
			m.pgStats.WithLabelValues("idle").Set(float64(s.Idle))
			m.pgStats.WithLabelValues("wait_count").Set(float64(s.WaitCount))
			m.pgStats.WithLabelValues("wait_seconds").Set(s.WaitDuration.Seconds())
			select {
			case <-ctx.Done():
				return
			case <-t.C:
			}
		}
	}()
}

// StartRedisCollector pings redis on an interval until ctx ends.
func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, rdb redis.UniversalClient) {
	if m == nil || rdb == nil {
		return
	}
	go func() {
		t := time.NewTicker(m.interval)
		defer t.Stop()
		for {
			pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			start := time.Now()
			err := rdb.Ping(pingCtx).Err()
			cancel()
			if err != nil {
				m.redisUp.Set(0)
				if log != nil {
					log.Debug("redis ping failed", "error", err)
				}
			} else {
				m.redisUp.Set(1)
				m.redisPingS.Set(time.Since(start).Seconds())
			}
			select {
			case <-ctx.Done():
				return
			case <-t.C:
			}
		}
	}()
}
