package services

import (
	"context"
	"strings"

	"gorm.io/datatypes"

	"github.com/yungbote/fleetscore-backend/internal/data/repos"
	types "github.com/yungbote/fleetscore-backend/internal/domain"
	domainagg "github.com/yungbote/fleetscore-backend/internal/domain/aggregates"
	"github.com/yungbote/fleetscore-backend/internal/pkg/ctxutil"
	"github.com/yungbote/fleetscore-backend/internal/pkg/dbctx"
	"github.com/yungbote/fleetscore-backend/internal/pkg/logger"
)

const maxRecentEventsLimit = 500

type ScoreConfig struct {
	BasePoints        int
	RecentEventsLimit int
}

// ReconcileReport compares a driver's stored score against a replay of its event log.
type ReconcileReport struct {
	DriverID         string `json:"driver_id"`
	StoredScore      int    `json:"stored_score"`
	ExpectedScore    int    `json:"expected_score"`
	StoredEvents     int    `json:"stored_events_count"`
	EventsSinceReset int    `json:"events_since_reset"`
	LastResetSeq     int64  `json:"last_reset_seq"`
	Consistent       bool   `json:"consistent"`
}

type ScoreService interface {
	// GetScore reports the driver's aggregate, or base points if nothing was ever recorded.
	GetScore(ctx context.Context, driverID string) (*types.ScoreView, error)
	ListAllScores(ctx context.Context) ([]*types.ScoreView, error)
	// RecentEvents is newest first. limit <= 0 uses the configured default.
	RecentEvents(ctx context.Context, driverID string, limit int) ([]*types.ScoringEvent, error)
	ScoreHistory(ctx context.Context, driverID string, limit int) ([]*types.ScoreHistory, error)
	// RuleApplications lists the rules currently flagged on the driver, most recent first.
	RuleApplications(ctx context.Context, driverID string) ([]*types.RuleApplication, error)
	Reconcile(ctx context.Context, driverID string) (*ReconcileReport, error)

	ApplyCustomRule(ctx context.Context, ruleID, driverID string, details datatypes.JSON) (domainagg.ApplyRuleResult, error)
	LogGenericEvent(ctx context.Context, in domainagg.LogEventInput) (*types.ScoringEvent, error)
	ResetScore(ctx context.Context, driverID, period string) (domainagg.ResetScoreResult, error)
}

type scoreService struct {
	log     *logger.Logger
	cfg     ScoreConfig
	drivers repos.DriverRepo
	scores  repos.DriverScoreRepo
	events  repos.ScoringEventRepo
	history repos.ScoreHistoryRepo
	apps    repos.RuleApplicationRepo
	ledger  domainagg.ScoreLedger
}

func NewScoreService(
	log *logger.Logger,
	cfg ScoreConfig,
	drivers repos.DriverRepo,
	scores repos.DriverScoreRepo,
	events repos.ScoringEventRepo,
	history repos.ScoreHistoryRepo,
	apps repos.RuleApplicationRepo,
	ledger domainagg.ScoreLedger,
) ScoreService {
	if cfg.RecentEventsLimit <= 0 {
		cfg.RecentEventsLimit = 10
	}
	return &scoreService{
		log:     log.With("service", "ScoreService"),
		cfg:     cfg,
		drivers: drivers,
		scores:  scores,
		events:  events,
		history: history,
		apps:    apps,
		ledger:  ledger,
	}
}

func (s *scoreService) GetScore(ctx context.Context, driverID string) (*types.ScoreView, error) {
	const op = "Scoring.Scores.Get"
	dbc := dbctx.Context{Ctx: ctx}
	d, err := s.requireDriver(dbc, op, driverID)
	if err != nil {
		return nil, err
	}
	row, err := s.scores.Get(dbc, d.ID)
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeStoreFailure, op, err)
	}
	view := &types.ScoreView{DriverID: d.ID, Name: d.Name, CurrentScore: s.cfg.BasePoints}
	if row != nil {
		view.CurrentScore = row.CurrentScore
		view.LastResetAt = row.LastResetAt
		view.EventsCount = row.EventsCount
	}
	return view, nil
}

func (s *scoreService) ListAllScores(ctx context.Context) ([]*types.ScoreView, error) {
	const op = "Scoring.Scores.List"
	rows, err := s.scores.ListViews(dbctx.Context{Ctx: ctx}, s.cfg.BasePoints)
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeStoreFailure, op, err)
	}
	return rows, nil
}

func (s *scoreService) RecentEvents(ctx context.Context, driverID string, limit int) ([]*types.ScoringEvent, error) {
	const op = "Scoring.Events.Recent"
	dbc := dbctx.Context{Ctx: ctx}
	d, err := s.requireDriver(dbc, op, driverID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = s.cfg.RecentEventsLimit
	}
	if limit > maxRecentEventsLimit {
		limit = maxRecentEventsLimit
	}
	rows, err := s.events.ListRecentByDriver(dbc, d.ID, limit, 0)
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeStoreFailure, op, err)
	}
	return rows, nil
}

func (s *scoreService) ScoreHistory(ctx context.Context, driverID string, limit int) ([]*types.ScoreHistory, error) {
	const op = "Scoring.History.List"
	dbc := dbctx.Context{Ctx: ctx}
	d, err := s.requireDriver(dbc, op, driverID)
	if err != nil {
		return nil, err
	}
	rows, err := s.history.ListByDriver(dbc, d.ID, limit)
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeStoreFailure, op, err)
	}
	return rows, nil
}

func (s *scoreService) RuleApplications(ctx context.Context, driverID string) ([]*types.RuleApplication, error) {
	const op = "Scoring.Applications.List"
	dbc := dbctx.Context{Ctx: ctx}
	d, err := s.requireDriver(dbc, op, driverID)
	if err != nil {
		return nil, err
	}
	rows, err := s.apps.ListByDriver(dbc, d.ID)
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeStoreFailure, op, err)
	}
	return rows, nil
}

func (s *scoreService) Reconcile(ctx context.Context, driverID string) (*ReconcileReport, error) {
	const op = "Scoring.Scores.Reconcile"
	dbc := dbctx.Context{Ctx: ctx}
	d, err := s.requireDriver(dbc, op, driverID)
	if err != nil {
		return nil, err
	}
	row, err := s.scores.Get(dbc, d.ID)
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeStoreFailure, op, err)
	}
	report := &ReconcileReport{DriverID: d.ID, StoredScore: s.cfg.BasePoints}
	if row != nil {
		report.StoredScore = row.CurrentScore
		report.StoredEvents = row.EventsCount
		report.LastResetSeq = row.LastResetSeq
	}
	sum, n, err := s.events.SumSince(dbc, d.ID, report.LastResetSeq)
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeStoreFailure, op, err)
	}
	report.ExpectedScore = s.cfg.BasePoints + sum
	report.EventsSinceReset = n
	report.Consistent = report.ExpectedScore == report.StoredScore && report.EventsSinceReset == report.StoredEvents
	if !report.Consistent {
		s.log.Error("Score aggregate disagrees with event log",
			"driver_id", d.ID,
			"stored", report.StoredScore,
			"expected", report.ExpectedScore,
			"stored_events", report.StoredEvents,
			"events_since_reset", report.EventsSinceReset,
		)
	}
	return report, nil
}

func (s *scoreService) ApplyCustomRule(ctx context.Context, ruleID, driverID string, details datatypes.JSON) (domainagg.ApplyRuleResult, error) {
	res, err := s.ledger.ApplyCustomRule(ctx, domainagg.ApplyRuleInput{
		RuleID:    ruleID,
		DriverID:  driverID,
		AppliedBy: ctxutil.ManagerID(ctx),
		Details:   details,
	})
	if err != nil {
		return res, err
	}
	s.log.Debug("Rule applied",
		"rule_key", ruleID,
		"driver_id", res.Event.DriverID,
		"points", res.PointsAwarded,
		"score_after", res.Event.ScoreAfter,
		"applied_by", res.Event.AppliedBy,
	)
	return res, nil
}

func (s *scoreService) LogGenericEvent(ctx context.Context, in domainagg.LogEventInput) (*types.ScoringEvent, error) {
	if strings.TrimSpace(in.AppliedBy) == "" {
		in.AppliedBy = ctxutil.ManagerID(ctx)
	}
	ev, err := s.ledger.LogGenericEvent(ctx, in)
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

func (s *scoreService) ResetScore(ctx context.Context, driverID, period string) (domainagg.ResetScoreResult, error) {
	res, err := s.ledger.ResetScore(ctx, domainagg.ResetScoreInput{DriverID: driverID, Period: period})
	if err != nil {
		return res, err
	}
	s.log.Info("Score reset",
		"driver_id", res.Score.DriverID,
		"period", res.History.Period,
		"final_score", res.History.FinalScore,
		"manager_id", ctxutil.ManagerID(ctx),
	)
	return res, nil
}

func (s *scoreService) requireDriver(dbc dbctx.Context, op, driverID string) (*types.Driver, error) {
	driverID = strings.TrimSpace(driverID)
	if driverID == "" {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing driver_id", nil)
	}
	d, err := s.drivers.Get(dbc, driverID)
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeStoreFailure, op, err)
	}
	if d == nil {
		return nil, domainagg.DriverNotFound(op, driverID)
	}
	return d, nil
}
