package domain

import "github.com/yungbote/fleetscore-backend/internal/domain/scoring"

type Rule = scoring.Rule
type ScoringEvent = scoring.ScoringEvent
type DriverScore = scoring.DriverScore
type RuleApplication = scoring.RuleApplication
type ScoreHistory = scoring.ScoreHistory
type Driver = scoring.Driver

type ScoreView = scoring.ScoreView
type LeaderboardEntry = scoring.LeaderboardEntry
type ScoreChange = scoring.ScoreChange

// Models lists every persisted table in migration order.
func Models() []any {
	return []any{
		&Driver{},
		&Rule{},
		&DriverScore{},
		&ScoringEvent{},
		&RuleApplication{},
		&ScoreHistory{},
	}
}
