package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"

	domainagg "github.com/yungbote/fleetscore-backend/internal/domain/aggregates"
	"github.com/yungbote/fleetscore-backend/internal/http/response"
	"github.com/yungbote/fleetscore-backend/internal/services"
)

type ScoreHandler struct {
	scores      services.ScoreService
	leaderboard services.LeaderboardService
}

func NewScoreHandler(scores services.ScoreService, leaderboard services.LeaderboardService) *ScoreHandler {
	return &ScoreHandler{scores: scores, leaderboard: leaderboard}
}

type logEventRequest struct {
	DriverID  string         `json:"driver_id"`
	RuleID    *string        `json:"rule_id"`
	Category  string         `json:"category"`
	EventName string         `json:"event_name"`
	Points    *int           `json:"points"`
	Details   datatypes.JSON `json:"details"`
	IsCustom  bool           `json:"is_custom"`
}

// GET /api/scores
func (h *ScoreHandler) ListAllScores(c *gin.Context) {
	rows, err := h.scores.ListAllScores(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.RespondOK(c, gin.H{"scores": rows})
}

// GET /api/leaderboard?limit=
func (h *ScoreHandler) Leaderboard(c *gin.Context) {
	limit, ok := queryLimit(c)
	if !ok {
		return
	}
	rows, err := h.leaderboard.Leaderboard(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.RespondOK(c, gin.H{"leaderboard": rows})
}

// POST /api/events
func (h *ScoreHandler) LogGenericEvent(c *gin.Context) {
	var req logEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	ev, err := h.scores.LogGenericEvent(c.Request.Context(), domainagg.LogEventInput{
		DriverID:  req.DriverID,
		RuleID:    req.RuleID,
		Category:  req.Category,
		EventName: req.EventName,
		Points:    req.Points,
		Details:   nullableJSON(req.Details),
		IsCustom:  req.IsCustom,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"event": ev})
}
