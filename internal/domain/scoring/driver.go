package scoring

import "time"

// Driver is the registry entry for a fleet driver. Drivers are never deleted.
// Active is informational: inactive drivers keep their ledger and can still be scored.
type Driver struct {
	ID        string    `gorm:"column:id;primaryKey;size:128" json:"id"`
	Name      string    `gorm:"column:name;not null" json:"name"`
	Active    bool      `gorm:"column:active;not null" json:"active"`
	CreatedAt time.Time `gorm:"column:created_at;not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null;autoUpdateTime" json:"updated_at"`
}

func (Driver) TableName() string { return "drivers" }
