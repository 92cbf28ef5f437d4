package repos

import (
	"github.com/yungbote/fleetscore-backend/internal/data/repos/scoring"
	"github.com/yungbote/fleetscore-backend/internal/pkg/logger"
	"gorm.io/gorm"
)

type DriverRepo = scoring.DriverRepo
type RuleRepo = scoring.RuleRepo
type ScoringEventRepo = scoring.ScoringEventRepo
type DriverScoreRepo = scoring.DriverScoreRepo
type RuleApplicationRepo = scoring.RuleApplicationRepo
type ScoreHistoryRepo = scoring.ScoreHistoryRepo

func NewDriverRepo(db *gorm.DB, baseLog *logger.Logger) DriverRepo {
	return scoring.NewDriverRepo(db, baseLog)
}
func NewRuleRepo(db *gorm.DB, baseLog *logger.Logger) RuleRepo {
	return scoring.NewRuleRepo(db, baseLog)
}
func NewScoringEventRepo(db *gorm.DB, baseLog *logger.Logger) ScoringEventRepo {
	return scoring.NewScoringEventRepo(db, baseLog)
}
func NewDriverScoreRepo(db *gorm.DB, baseLog *logger.Logger) DriverScoreRepo {
	return scoring.NewDriverScoreRepo(db, baseLog)
}
func NewRuleApplicationRepo(db *gorm.DB, baseLog *logger.Logger) RuleApplicationRepo {
	return scoring.NewRuleApplicationRepo(db, baseLog)
}
func NewScoreHistoryRepo(db *gorm.DB, baseLog *logger.Logger) ScoreHistoryRepo {
	return scoring.NewScoreHistoryRepo(db, baseLog)
}

// Set bundles every table repo over one connection pool.
type Set struct {
	Drivers      DriverRepo
	Rules        RuleRepo
	Events       ScoringEventRepo
	Scores       DriverScoreRepo
	Applications RuleApplicationRepo
	History      ScoreHistoryRepo
}

func NewSet(db *gorm.DB, baseLog *logger.Logger) Set {
	return Set{
		Drivers:      NewDriverRepo(db, baseLog),
		Rules:        NewRuleRepo(db, baseLog),
		Events:       NewScoringEventRepo(db, baseLog),
		Scores:       NewDriverScoreRepo(db, baseLog),
		Applications: NewRuleApplicationRepo(db, baseLog),
		History:      NewScoreHistoryRepo(db, baseLog),
	}
}
