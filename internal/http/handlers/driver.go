package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/fleetscore-backend/internal/http/response"
	"github.com/yungbote/fleetscore-backend/internal/services"
)

type DriverHandler struct {
	drivers services.DriverRegistry
	scores  services.ScoreService
}

func NewDriverHandler(drivers services.DriverRegistry, scores services.ScoreService) *DriverHandler {
	return &DriverHandler{drivers: drivers, scores: scores}
}

type registerDriverRequest struct {
	Name   string `json:"name" binding:"required"`
	Active *bool  `json:"active"`
}

type resetScoreRequest struct {
	Period string `json:"period"`
}

// PUT /api/drivers/:id
func (h *DriverHandler) RegisterDriver(c *gin.Context) {
	var req registerDriverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	d, err := h.drivers.RegisterDriver(c.Request.Context(), c.Param("id"), req.Name, req.Active)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.RespondOK(c, gin.H{"driver": d})
}

// GET /api/drivers
func (h *DriverHandler) ListDrivers(c *gin.Context) {
	rows, err := h.drivers.ListDrivers(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.RespondOK(c, gin.H{"drivers": rows})
}

// GET /api/drivers/:id
func (h *DriverHandler) GetDriver(c *gin.Context) {
	d, err := h.drivers.GetDriver(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.RespondOK(c, gin.H{"driver": d})
}

// GET /api/drivers/:id/score
func (h *DriverHandler) GetScore(c *gin.Context) {
	view, err := h.scores.GetScore(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.RespondOK(c, gin.H{"score": view})
}

// POST /api/drivers/:id/reset
func (h *DriverHandler) ResetScore(c *gin.Context) {
	var req resetScoreRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
			return
		}
	}
	res, err := h.scores.ResetScore(c.Request.Context(), c.Param("id"), req.Period)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.RespondOK(c, res)
}

// GET /api/drivers/:id/events?limit=
func (h *DriverHandler) RecentEvents(c *gin.Context) {
	limit, ok := queryLimit(c)
	if !ok {
		return
	}
	rows, err := h.scores.RecentEvents(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.RespondOK(c, gin.H{"events": rows})
}

// GET /api/drivers/:id/history?limit=
func (h *DriverHandler) ScoreHistory(c *gin.Context) {
	limit, ok := queryLimit(c)
	if !ok {
		return
	}
	rows, err := h.scores.ScoreHistory(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.RespondOK(c, gin.H{"history": rows})
}

// GET /api/drivers/:id/rules
func (h *DriverHandler) RuleApplications(c *gin.Context) {
	rows, err := h.scores.RuleApplications(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.RespondOK(c, gin.H{"applications": rows})
}

// GET /api/drivers/:id/reconcile
func (h *DriverHandler) Reconcile(c *gin.Context) {
	report, err := h.scores.Reconcile(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.RespondOK(c, gin.H{"report": report})
}

// queryLimit parses ?limit=. Missing means 0 (service default).
func queryLimit(c *gin.Context) (int, bool) {
	raw := strings.TrimSpace(c.Query("limit"))
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		response.RespondError(c, http.StatusBadRequest, "invalid_limit", nil)
		return 0, false
	}
	return n, true
}
