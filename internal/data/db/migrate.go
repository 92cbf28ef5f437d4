package db

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/yungbote/fleetscore-backend/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(types.Models()...)
}

// EnsureLedgerIndexes creates the read-path indexes AutoMigrate cannot express.
// Statements are portable between Postgres and SQLite.
func EnsureLedgerIndexes(db *gorm.DB) error {
	stmts := []struct {
		name string
		sql  string
	}{
		{
			// Leaderboard ordering.
			name: "idx_driver_scores_rank",
			sql:  `CREATE INDEX IF NOT EXISTS idx_driver_scores_rank ON driver_scores (current_score DESC, driver_id ASC);`,
		},
		{
			// Rule catalog listing.
			name: "idx_rules_category_name",
			sql:  `CREATE INDEX IF NOT EXISTS idx_rules_category_name ON rules (category, name);`,
		},
		{
			// History newest-first per driver.
			name: "idx_score_history_driver_end",
			sql:  `CREATE INDEX IF NOT EXISTS idx_score_history_driver_end ON score_history (driver_id, end_date DESC);`,
		},
	}
	for _, st := range stmts {
		if err := db.Exec(st.sql).Error; err != nil {
			return fmt.Errorf("create %s: %w", st.name, err)
		}
	}
	return nil
}
