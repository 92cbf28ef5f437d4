package scoring

import "time"

// DriverScore is the per-driver running aggregate over the event log.
//
// CurrentScore == base points + sum(points of events with ID > LastResetSeq).
// Version is bumped on every write and guards the row with compare-and-set.
type DriverScore struct {
	DriverID     string     `gorm:"column:driver_id;primaryKey;size:128" json:"driver_id"`
	CurrentScore int        `gorm:"column:current_score;not null;index" json:"current_score"`
	LastResetAt  *time.Time `gorm:"column:last_reset_at" json:"last_reset_at,omitempty"`
	LastResetSeq int64      `gorm:"column:last_reset_seq;not null;default:0" json:"-"`
	EventsCount  int        `gorm:"column:events_count;not null;default:0" json:"events_count"`
	Version      int        `gorm:"column:version;not null;default:0" json:"-"`
	CreatedAt    time.Time  `gorm:"column:created_at;not null;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;not null;autoUpdateTime" json:"updated_at"`
}

func (DriverScore) TableName() string { return "driver_scores" }

// ScoreView is a DriverScore joined with the driver's display name.
type ScoreView struct {
	DriverID     string     `json:"driver_id"`
	Name         string     `json:"name"`
	CurrentScore int        `json:"current_score"`
	LastResetAt  *time.Time `json:"last_reset_at,omitempty"`
	EventsCount  int        `json:"events_count"`
}

// LeaderboardEntry is one ranked row. Rank is the 1-based position in the
// ordering, so tied scores still get distinct ranks.
type LeaderboardEntry struct {
	Rank         int        `json:"rank"`
	DriverID     string     `json:"driver_id"`
	Name         string     `json:"name"`
	CurrentScore int        `json:"current_score"`
	LastResetAt  *time.Time `json:"last_reset_at,omitempty"`
	EventsCount  int        `json:"events_count"`
}
