package scoring

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

const (
	CategoryGPSMonitoring    = "GPS Monitoring"
	CategoryDriverMonitoring = "Driver Monitoring"
	CategorySafetyEmergency  = "Safety & Emergency"
	CategoryCompliance       = "Compliance"
	CategoryAchievement      = "Achievement"
)

// KnownCategories lists the categories shipped with the default catalog.
// The set is open: custom rules may introduce new categories.
var KnownCategories = []string{
	CategoryGPSMonitoring,
	CategoryDriverMonitoring,
	CategorySafetyEmergency,
	CategoryCompliance,
	CategoryAchievement,
}

// Rule maps a named condition to a point delta. Default rules are seeded by the
// system; custom rules are created by managers.
type Rule struct {
	Key              string         `gorm:"column:rule_key;primaryKey;size:128" json:"key"`
	Name             string         `gorm:"column:name;not null" json:"name"`
	Description      string         `gorm:"column:description;type:text" json:"description"`
	Category         string         `gorm:"column:category;not null;index" json:"category"`
	Points           int            `gorm:"column:points;not null" json:"points"`
	Active           bool           `gorm:"column:active;not null" json:"active"`
	IsDefault        bool           `gorm:"column:is_default;not null;index" json:"is_default"`
	TriggerCondition datatypes.JSON `gorm:"column:trigger_condition" json:"trigger_condition,omitempty"`
	CreatedBy        string         `gorm:"column:created_by;size:128" json:"created_by,omitempty"`
	CreatedAt        time.Time      `gorm:"column:created_at;not null;autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"column:updated_at;not null;autoUpdateTime" json:"updated_at"`
}

func (Rule) TableName() string { return "rules" }

// NormalizeRuleKey trims and lower-cases a rule key.
func NormalizeRuleKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
