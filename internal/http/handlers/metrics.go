package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/fleetscore-backend/internal/observability"
)

type MetricsHandler struct {
	h http.Handler
}

func NewMetricsHandler(m *observability.Metrics) *MetricsHandler {
	return &MetricsHandler{h: m.Handler()}
}

// GET /metrics
func (h *MetricsHandler) Serve(c *gin.Context) {
	h.h.ServeHTTP(c.Writer, c.Request)
}
