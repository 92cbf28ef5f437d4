package scoring

import "time"

const (
	ChangeEventAppended = "event_appended"
	ChangeScoreReset    = "score_reset"
)

// ScoreChange describes a committed ledger write. It is what subscribers see on the bus.
type ScoreChange struct {
	Kind       string    `json:"kind"`
	DriverID   string    `json:"driver_id"`
	EventID    int64     `json:"event_id,omitempty"`
	RuleID     *string   `json:"rule_id,omitempty"`
	Category   string    `json:"category,omitempty"`
	Points     int       `json:"points"`
	ScoreAfter int       `json:"score_after"`
	IsCustom   bool      `json:"is_custom"`
	Period     string    `json:"period,omitempty"`
	At         time.Time `json:"at"`
}
