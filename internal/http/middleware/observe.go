package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/fleetscore-backend/internal/observability"
	"github.com/yungbote/fleetscore-backend/internal/pkg/ctxutil"
	"github.com/yungbote/fleetscore-backend/internal/pkg/logger"
)

// Observe records API metrics and writes one log line per request. Either
// dependency may be nil. 5xx logs at error, 4xx at warn.
func Observe(log *logger.Logger, m *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		m.ApiInflightInc()
		defer m.ApiInflightDec()

		c.Next()

		elapsed := time.Since(start)
		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.ObserveAPI(c.Request.Method, route, strconv.Itoa(status), elapsed)

		if log == nil {
			return
		}
		ctx := c.Request.Context()
		fields := []interface{}{
			"method", c.Request.Method,
			"route", route,
			"path", c.Request.URL.Path,
			"status", status,
			"duration_ms", elapsed.Milliseconds(),
		}
		if td := ctxutil.GetTraceData(ctx); td != nil {
			fields = append(fields, "request_id", td.RequestID, "trace_id", td.TraceID)
		}
		if id := ctxutil.ManagerID(ctx); id != "" {
			fields = append(fields, "manager_id", id)
		}
		if len(c.Errors) > 0 {
			fields = append(fields, "error", c.Errors.String())
		}
		switch {
		case status >= 500:
			log.Error("HTTP request", fields...)
		case status >= 400:
			log.Warn("HTTP request", fields...)
		default:
			log.Info("HTTP request", fields...)
		}
	}
}
