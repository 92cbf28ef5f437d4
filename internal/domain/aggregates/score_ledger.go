package aggregates

import (
	"context"

	"gorm.io/datatypes"

	"github.com/yungbote/fleetscore-backend/internal/domain/scoring"
)

// ScoreLedgerContract: one transaction per driver covering the tracker upsert, the
// appended event and the aggregate move, or the history archive plus reset.
var ScoreLedgerContract = Contract{
	Name:   "Scoring.ScoreLedger",
	Tables: []string{"rule_applications", "scoring_events", "driver_scores", "score_history"},
	Lock:   LockDriverScore,
}

// ScoreLedger owns every write that touches a driver's aggregate.
//
// Failures are *aggregates.Error with CodeValidation, CodeNotFound, CodeConflict,
// CodeInvariantViolation or CodeStoreFailure. A failed call leaves no partial state.
type ScoreLedger interface {
	Aggregate

	// ApplyCustomRule flags the rule for the driver, appends an event and moves the score.
	// Re-applying an already flagged rule awards its points again.
	ApplyCustomRule(ctx context.Context, in ApplyRuleInput) (ApplyRuleResult, error)

	// LogGenericEvent appends a one-shot event without touching the rule tracker.
	LogGenericEvent(ctx context.Context, in LogEventInput) (scoring.ScoringEvent, error)

	// ResetScore archives the current aggregate and restores base points.
	ResetScore(ctx context.Context, in ResetScoreInput) (ResetScoreResult, error)
}

type ApplyRuleInput struct {
	RuleID    string `validate:"required,max=128"`
	DriverID  string `validate:"required,max=128"`
	AppliedBy string `validate:"max=128"`

	// Details is stored on the appended event. The rule's trigger condition is not copied.
	Details datatypes.JSON
}

type ApplyRuleResult struct {
	RuleApplied   bool                    `json:"rule_applied"`
	PointsAwarded int                     `json:"points_awarded"`
	Event         scoring.ScoringEvent    `json:"event"`
	Application   scoring.RuleApplication `json:"application"`
}

type LogEventInput struct {
	DriverID  string  `validate:"required,max=128"`
	RuleID    *string `validate:"omitempty,max=128"`
	Category  string  `validate:"required,max=128"`
	EventName string  `validate:"required,max=255"`
	// Points is a pointer so an explicit zero is distinguishable from "missing".
	Points    *int `validate:"required"`
	Details   datatypes.JSON
	IsCustom  bool
	AppliedBy string `validate:"max=128"`
}

type ResetScoreInput struct {
	DriverID string `validate:"required,max=128"`
	// Period labels the archived entry; empty derives "YYYY-M" from the reset time.
	Period string `validate:"max=64"`
}

type ResetScoreResult struct {
	History scoring.ScoreHistory `json:"history"`
	Score   scoring.DriverScore  `json:"score"`
}
