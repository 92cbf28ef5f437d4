package aggregates

import (
	"context"

	"gorm.io/datatypes"

	"github.com/yungbote/fleetscore-backend/internal/domain/scoring"
)

// RuleCatalogContract: default rules only change points/active and are never deleted.
// Deleting a custom rule also drops its tracker rows.
var RuleCatalogContract = Contract{
	Name:   "Scoring.RuleCatalog",
	Tables: []string{"rules", "rule_applications"},
	Lock:   LockNone,
}

// RuleCatalog owns rule definition writes.
type RuleCatalog interface {
	Aggregate

	CreateCustomRule(ctx context.Context, in CreateRuleInput) (scoring.Rule, error)
	// UpdateCustomRule merges the supplied fields; nil fields keep their value.
	UpdateCustomRule(ctx context.Context, key string, patch RulePatch) (scoring.Rule, error)
	UpdateDefaultRule(ctx context.Context, key string, patch DefaultRulePatch) (scoring.Rule, error)
	DeleteCustomRule(ctx context.Context, key string) error
	// SeedDefaultRules inserts missing default rules and leaves existing rows untouched.
	SeedDefaultRules(ctx context.Context, rules []scoring.Rule) (int, error)
}

type CreateRuleInput struct {
	Key              string `validate:"required,max=128,rulekey"`
	Name             string `validate:"required,max=255"`
	Description      string
	Category         string `validate:"required,max=128"`
	Points           int
	TriggerCondition datatypes.JSON
	// Active defaults to true when nil.
	Active    *bool
	CreatedBy string `validate:"max=128"`
}

type RulePatch struct {
	Name             *string `validate:"omitempty,min=1,max=255"`
	Description      *string
	Category         *string `validate:"omitempty,min=1,max=128"`
	Points           *int
	TriggerCondition datatypes.JSON

	// ClearTriggerCondition sets the condition to NULL; it wins over TriggerCondition.
	ClearTriggerCondition bool
	Active                *bool
}

// Empty reports whether no field was supplied.
func (p RulePatch) Empty() bool {
	return p.Name == nil && p.Description == nil && p.Category == nil &&
		p.Points == nil && p.TriggerCondition == nil && !p.ClearTriggerCondition && p.Active == nil
}

type DefaultRulePatch struct {
	Points *int
	Active *bool
}
