package scoring

import (
	"time"

	"github.com/google/uuid"
)

// ScoreHistory archives a driver's aggregate at reset time.
type ScoreHistory struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	DriverID    string    `gorm:"column:driver_id;size:128;not null;index" json:"driver_id"`
	Period      string    `gorm:"column:period;size:64;not null" json:"period"`
	FinalScore  int       `gorm:"column:final_score;not null" json:"final_score"`
	EventsCount int       `gorm:"column:events_count;not null" json:"events_count"`
	EndDate     time.Time `gorm:"column:end_date;not null;index" json:"end_date"`
}

func (ScoreHistory) TableName() string { return "score_history" }
