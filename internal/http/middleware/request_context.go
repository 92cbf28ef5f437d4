package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/fleetscore-backend/internal/pkg/ctxutil"
)

const (
	headerManagerID = "X-Manager-ID"
	headerRequestID = "X-Request-Id"
	headerTraceID   = "X-Trace-Id"

	maxHeaderIDLen = 128
)

// AttachRequestContext stores request/trace ids and the caller's manager id on the
// request context and echoes the ids back. The manager id is opaque and is not
// authenticated here. An active otelgin span wins over a client supplied trace id.
func AttachRequestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		reqID := headerID(c, headerRequestID)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		traceID := ""
		if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
			traceID = sc.TraceID().String()
		}
		if traceID == "" {
			traceID = headerID(c, headerTraceID)
		}
		if traceID == "" {
			traceID = reqID
		}

		ctx = ctxutil.WithTraceData(ctx, &ctxutil.TraceData{TraceID: traceID, RequestID: reqID})
		ctx = ctxutil.WithRequestData(ctx, &ctxutil.RequestData{ManagerID: headerID(c, headerManagerID)})
		c.Request = c.Request.WithContext(ctx)

		c.Header(headerRequestID, reqID)
		c.Header(headerTraceID, traceID)
		c.Next()
	}
}

func headerID(c *gin.Context, name string) string {
	v := strings.TrimSpace(c.GetHeader(name))
	if len(v) > maxHeaderIDLen {
		v = v[:maxHeaderIDLen]
	}
	return v
}
