package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"

	domainagg "github.com/yungbote/fleetscore-backend/internal/domain/aggregates"
	"github.com/yungbote/fleetscore-backend/internal/http/response"
	"github.com/yungbote/fleetscore-backend/internal/services"
)

type RuleHandler struct {
	rules  services.RuleService
	scores services.ScoreService
}

func NewRuleHandler(rules services.RuleService, scores services.ScoreService) *RuleHandler {
	return &RuleHandler{rules: rules, scores: scores}
}

type createRuleRequest struct {
	Key              string         `json:"key" binding:"required"`
	Name             string         `json:"name" binding:"required"`
	Description      string         `json:"description"`
	Category         string         `json:"category" binding:"required"`
	Points           *int           `json:"points" binding:"required"`
	TriggerCondition datatypes.JSON `json:"trigger_condition"`
	Active           *bool          `json:"active"`
}

type updateRuleRequest struct {
	Name             *string        `json:"name"`
	Description      *string        `json:"description"`
	Category         *string        `json:"category"`
	Points           *int           `json:"points"`
	TriggerCondition datatypes.JSON `json:"trigger_condition"`
	Active           *bool          `json:"active"`
}

type updateDefaultRuleRequest struct {
	Points *int  `json:"points"`
	Active *bool `json:"active"`
}

type applyRuleRequest struct {
	DriverID string         `json:"driver_id" binding:"required"`
	Details  datatypes.JSON `json:"details"`
}

// GET /api/rules
func (h *RuleHandler) ListRules(c *gin.Context) {
	rules, err := h.rules.ListRules(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.RespondOK(c, gin.H{"rules": rules})
}

// GET /api/default-rules
func (h *RuleHandler) ListDefaultRules(c *gin.Context) {
	rules, err := h.rules.GetDefaultRules(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.RespondOK(c, gin.H{"rules": rules})
}

// GET /api/rules/:key
func (h *RuleHandler) GetRule(c *gin.Context) {
	rule, err := h.rules.GetRule(c.Request.Context(), c.Param("key"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.RespondOK(c, gin.H{"rule": rule})
}

// POST /api/rules
func (h *RuleHandler) CreateCustomRule(c *gin.Context) {
	var req createRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	rule, err := h.rules.CreateCustomRule(c.Request.Context(), domainagg.CreateRuleInput{
		Key:              req.Key,
		Name:             req.Name,
		Description:      req.Description,
		Category:         req.Category,
		Points:           *req.Points,
		TriggerCondition: nullableJSON(req.TriggerCondition),
		Active:           req.Active,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"rule": rule})
}

// PATCH /api/rules/:key
func (h *RuleHandler) UpdateCustomRule(c *gin.Context) {
	var req updateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	rule, err := h.rules.UpdateCustomRule(c.Request.Context(), c.Param("key"), domainagg.RulePatch{
		Name:                  req.Name,
		Description:           req.Description,
		Category:              req.Category,
		Points:                req.Points,
		TriggerCondition:      nullableJSON(req.TriggerCondition),
		ClearTriggerCondition: isJSONNull(req.TriggerCondition),
		Active:                req.Active,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.RespondOK(c, gin.H{"rule": rule})
}

// PATCH /api/default-rules/:key
func (h *RuleHandler) UpdateDefaultRule(c *gin.Context) {
	var req updateDefaultRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	rule, err := h.rules.UpdateDefaultRule(c.Request.Context(), c.Param("key"), domainagg.DefaultRulePatch{
		Points: req.Points,
		Active: req.Active,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.RespondOK(c, gin.H{"rule": rule})
}

// DELETE /api/rules/:key
func (h *RuleHandler) DeleteCustomRule(c *gin.Context) {
	if err := h.rules.DeleteCustomRule(c.Request.Context(), c.Param("key")); err != nil {
		response.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// POST /api/rules/:key/apply
func (h *RuleHandler) ApplyRule(c *gin.Context) {
	var req applyRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	res, err := h.scores.ApplyCustomRule(c.Request.Context(), c.Param("key"), req.DriverID, nullableJSON(req.Details))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.RespondOK(c, res)
}

// nullableJSON drops both an absent field and an explicit JSON null.
func nullableJSON(raw datatypes.JSON) datatypes.JSON {
	if len(raw) == 0 || isJSONNull(raw) {
		return nil
	}
	return raw
}

// isJSONNull reports an explicit null; an absent field decodes to an empty value instead.
func isJSONNull(raw datatypes.JSON) bool {
	return strings.TrimSpace(string(raw)) == "null"
}
