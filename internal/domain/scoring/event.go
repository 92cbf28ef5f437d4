package scoring

import (
	"time"

	"gorm.io/datatypes"
)

// ScoringEvent is one point-delta application to one driver. Rows are append-only;
// ID is the monotonic sequence used for ordering and reset boundaries.
type ScoringEvent struct {
	ID         int64          `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	DriverID   string         `gorm:"column:driver_id;size:128;not null;index:idx_scoring_event_driver_seq,priority:1" json:"driver_id"`
	RuleID     *string        `gorm:"column:rule_id;size:128;index" json:"rule_id,omitempty"`
	Category   string         `gorm:"column:category;not null" json:"category"`
	EventName  string         `gorm:"column:event_name;not null" json:"event_name"`
	Points     int            `gorm:"column:points;not null" json:"points"`
	Details    datatypes.JSON `gorm:"column:details" json:"details,omitempty"`
	IsCustom   bool           `gorm:"column:is_custom;not null" json:"is_custom"`
	AppliedBy  string         `gorm:"column:applied_by;size:128" json:"applied_by,omitempty"`
	ScoreAfter int            `gorm:"column:score_after;not null" json:"score_after"`
	CreatedAt  time.Time      `gorm:"column:created_at;not null;index" json:"created_at"`
}

func (ScoringEvent) TableName() string { return "scoring_events" }
