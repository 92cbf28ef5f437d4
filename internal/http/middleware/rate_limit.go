package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/yungbote/fleetscore-backend/internal/pkg/ctxutil"
)

const limiterIdleTTL = 10 * time.Minute

type limiterEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is a token bucket per caller, keyed by manager id, else client IP.
type RateLimiter struct {
	mu      sync.Mutex
	rps     rate.Limit
	burst   int
	buckets map[string]*limiterEntry
	now     func() time.Time
}

// NewRateLimiter returns nil when rps <= 0, which disables limiting.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if rps <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = int(rps) + 1
	}
	return &RateLimiter{
		rps:     rate.Limit(rps),
		burst:   burst,
		buckets: map[string]*limiterEntry{},
		now:     time.Now,
	}
}

func (l *RateLimiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	e, ok := l.buckets[key]
	if !ok {
		if len(l.buckets) > 4096 {
			l.sweepLocked(now)
		}
		e = &limiterEntry{lim: rate.NewLimiter(l.rps, l.burst)}
		l.buckets[key] = e
	}
	e.lastSeen = now
	return e.lim.AllowN(now, 1)
}

func (l *RateLimiter) sweepLocked(now time.Time) {
	for k, e := range l.buckets {
		if now.Sub(e.lastSeen) > limiterIdleTTL {
			delete(l.buckets, k)
		}
	}
}

func (l *RateLimiter) Middleware() gin.HandlerFunc {
	if l == nil {
		return func(c *gin.Context) { c.Next() }
	}
	retryAfter := strconv.Itoa(int(max(1, 1/float64(l.rps))))
	return func(c *gin.Context) {
		key := ctxutil.ManagerID(c.Request.Context())
		if key == "" {
			key = "ip:" + c.ClientIP()
		}
		if !l.allow(key) {
			c.Header("Retry-After", retryAfter)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": gin.H{"message": "rate limit exceeded", "code": "rate_limited"},
			})
			return
		}
		c.Next()
	}
}
