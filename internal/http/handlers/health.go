package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yungbote/fleetscore-backend/internal/http/response"
)

type HealthHandler struct {
	db *gorm.DB
}

// NewHealthHandler builds the liveness/readiness handler. db may be nil.
func NewHealthHandler(db *gorm.DB) *HealthHandler { return &HealthHandler{db: db} }

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// GET /readyz
func (h *HealthHandler) Ready(c *gin.Context) {
	if h.db == nil {
		c.String(http.StatusOK, "ok")
		return
	}
	sqlDB, err := h.db.DB()
	if err != nil {
		response.RespondError(c, http.StatusServiceUnavailable, "store_failure", err)
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		response.RespondError(c, http.StatusServiceUnavailable, "store_failure", err)
		return
	}
	c.String(http.StatusOK, "ok")
}
