package testutil

import (
	"testing"

	"gorm.io/gorm"

	types "github.com/yungbote/fleetscore-backend/internal/domain"
)

func SeedDriver(tb testing.TB, tx *gorm.DB, id, name string) *types.Driver {
	tb.Helper()
	d := &types.Driver{ID: id, Name: name, Active: true}
	if err := tx.Create(d).Error; err != nil {
		tb.Fatalf("seed driver: %v", err)
	}
	return d
}

// SeedRule inserts an active rule. Default rules are marked by isDefault.
func SeedRule(tb testing.TB, tx *gorm.DB, key, category string, points int, isDefault bool) *types.Rule {
	tb.Helper()
	r := &types.Rule{
		Key:       key,
		Name:      key,
		Category:  category,
		Points:    points,
		Active:    true,
		IsDefault: isDefault,
	}
	if err := tx.Create(r).Error; err != nil {
		tb.Fatalf("seed rule: %v", err)
	}
	return r
}

func SeedEvent(tb testing.TB, tx *gorm.DB, driverID string, points int) *types.ScoringEvent {
	tb.Helper()
	ev := &types.ScoringEvent{
		DriverID:  driverID,
		Category:  "Compliance",
		EventName: "fixture",
		Points:    points,
	}
	if err := tx.Create(ev).Error; err != nil {
		tb.Fatalf("seed event: %v", err)
	}
	return ev
}
