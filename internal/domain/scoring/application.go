package scoring

import (
	"time"

	"github.com/google/uuid"
)

// RuleApplication marks a standing rule condition as flagged for a driver.
// There is at most one row per (rule, driver).
type RuleApplication struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	RuleID    string    `gorm:"column:rule_id;size:128;not null;uniqueIndex:idx_rule_application_rule_driver,priority:1" json:"rule_id"`
	DriverID  string    `gorm:"column:driver_id;size:128;not null;uniqueIndex:idx_rule_application_rule_driver,priority:2;index" json:"driver_id"`
	Active    bool      `gorm:"column:active;not null" json:"active"`
	AppliedBy string    `gorm:"column:applied_by;size:128" json:"applied_by,omitempty"`
	AppliedAt time.Time `gorm:"column:applied_at;not null" json:"applied_at"`
}

func (RuleApplication) TableName() string { return "rule_applications" }
