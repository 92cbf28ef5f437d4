package aggregates

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/yungbote/fleetscore-backend/internal/data/repos"
	types "github.com/yungbote/fleetscore-backend/internal/domain"
	domainagg "github.com/yungbote/fleetscore-backend/internal/domain/aggregates"
	"github.com/yungbote/fleetscore-backend/internal/domain/scoring"
	"github.com/yungbote/fleetscore-backend/internal/pkg/dbctx"
)

// ChangeNotifier receives ledger changes after their transaction committed.
type ChangeNotifier interface {
	LedgerChanged(ctx context.Context, change types.ScoreChange)
}

type ScoreLedgerDeps struct {
	Base BaseDeps

	Drivers      repos.DriverRepo
	Rules        repos.RuleRepo
	Events       repos.ScoringEventRepo
	Scores       repos.DriverScoreRepo
	Applications repos.RuleApplicationRepo
	History      repos.ScoreHistoryRepo

	BasePoints int
	Notifier   ChangeNotifier
}

type scoreLedger struct {
	deps ScoreLedgerDeps
}

func NewScoreLedger(deps ScoreLedgerDeps) domainagg.ScoreLedger {
	deps.Base = deps.Base.withDefaults()
	return &scoreLedger{deps: deps}
}

func (a *scoreLedger) Contract() domainagg.Contract {
	return domainagg.ScoreLedgerContract
}

func (a *scoreLedger) ApplyCustomRule(ctx context.Context, in domainagg.ApplyRuleInput) (domainagg.ApplyRuleResult, error) {
	op := domainagg.ScoreLedgerContract.Op("ApplyCustomRule")
	var out domainagg.ApplyRuleResult

	in.RuleID = scoring.NormalizeRuleKey(in.RuleID)
	in.DriverID = strings.TrimSpace(in.DriverID)
	in.AppliedBy = strings.TrimSpace(in.AppliedBy)
	if err := validateInput(op, in); err != nil {
		return out, err
	}
	if err := a.requireRepos(op); err != nil {
		return out, err
	}

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		if err := a.requireDriver(dbc, op, in.DriverID); err != nil {
			return err
		}
		rule, err := a.deps.Rules.GetByKey(dbc, in.RuleID)
		if err != nil {
			return err
		}
		if rule == nil || !rule.Active {
			return domainagg.RuleNotFound(op, in.RuleID)
		}

		now := a.deps.Base.Clock()
		app, err := a.deps.Applications.Upsert(dbc, &types.RuleApplication{
			RuleID:    rule.Key,
			DriverID:  in.DriverID,
			Active:    true,
			AppliedBy: in.AppliedBy,
			AppliedAt: now,
		})
		if err != nil {
			return err
		}
		if app == nil {
			return InvariantError("rule application missing after upsert")
		}

		ruleID := rule.Key
		ev := &types.ScoringEvent{
			DriverID:  in.DriverID,
			RuleID:    &ruleID,
			Category:  rule.Category,
			EventName: rule.Name,
			Points:    rule.Points,
			Details:   in.Details,
			IsCustom:  true,
			AppliedBy: in.AppliedBy,
			CreatedAt: now,
		}
		if _, err := a.appendAndApply(dbc, ev, now); err != nil {
			return err
		}

		out = domainagg.ApplyRuleResult{
			RuleApplied:   true,
			PointsAwarded: rule.Points,
			Event:         *ev,
			Application:   *app,
		}
		return nil
	})
	if err != nil {
		return domainagg.ApplyRuleResult{}, err
	}
	a.notify(ctx, eventChange(out.Event))
	return out, nil
}

func (a *scoreLedger) LogGenericEvent(ctx context.Context, in domainagg.LogEventInput) (types.ScoringEvent, error) {
	op := domainagg.ScoreLedgerContract.Op("LogGenericEvent")
	var out types.ScoringEvent

	in.DriverID = strings.TrimSpace(in.DriverID)
	in.Category = strings.TrimSpace(in.Category)
	in.EventName = strings.TrimSpace(in.EventName)
	in.AppliedBy = strings.TrimSpace(in.AppliedBy)
	if in.RuleID != nil {
		key := scoring.NormalizeRuleKey(*in.RuleID)
		if key == "" {
			in.RuleID = nil
		} else {
			in.RuleID = &key
		}
	}
	if err := validateInput(op, in); err != nil {
		return out, err
	}
	if err := a.requireRepos(op); err != nil {
		return out, err
	}

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		if err := a.requireDriver(dbc, op, in.DriverID); err != nil {
			return err
		}
		now := a.deps.Base.Clock()
		ev := &types.ScoringEvent{
			DriverID:  in.DriverID,
			RuleID:    in.RuleID,
			Category:  in.Category,
			EventName: in.EventName,
			Points:    *in.Points,
			Details:   in.Details,
			IsCustom:  in.IsCustom,
			AppliedBy: in.AppliedBy,
			CreatedAt: now,
		}
		if _, err := a.appendAndApply(dbc, ev, now); err != nil {
			return err
		}
		out = *ev
		return nil
	})
	if err != nil {
		return types.ScoringEvent{}, err
	}
	a.notify(ctx, eventChange(out))
	return out, nil
}

func (a *scoreLedger) ResetScore(ctx context.Context, in domainagg.ResetScoreInput) (domainagg.ResetScoreResult, error) {
	op := domainagg.ScoreLedgerContract.Op("ResetScore")
	var out domainagg.ResetScoreResult

	in.DriverID = strings.TrimSpace(in.DriverID)
	in.Period = strings.TrimSpace(in.Period)
	if err := validateInput(op, in); err != nil {
		return out, err
	}
	if err := a.requireRepos(op); err != nil {
		return out, err
	}

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		if err := a.requireDriver(dbc, op, in.DriverID); err != nil {
			return err
		}
		cur, err := a.lockScore(dbc, in.DriverID)
		if err != nil {
			return err
		}
		lastSeq, err := a.deps.Events.MaxID(dbc, in.DriverID)
		if err != nil {
			return err
		}
		if lastSeq < cur.LastResetSeq {
			return InvariantError(fmt.Sprintf("event sequence %d behind reset boundary %d", lastSeq, cur.LastResetSeq))
		}

		now := a.deps.Base.Clock()
		period := in.Period
		if period == "" {
			period = DefaultPeriod(now)
		}
		hist := &types.ScoreHistory{
			DriverID:    in.DriverID,
			Period:      period,
			FinalScore:  cur.CurrentScore,
			EventsCount: cur.EventsCount,
			EndDate:     now,
		}
		if err := a.deps.History.Create(dbc, hist); err != nil {
			return err
		}

		resetAt := now
		next := *cur
		next.CurrentScore = a.deps.BasePoints
		next.EventsCount = 0
		next.LastResetAt = &resetAt
		next.LastResetSeq = lastSeq
		next.UpdatedAt = now
		if err := a.deps.Base.Guard.Commit(dbc, cur, &next); err != nil {
			return err
		}
		out = domainagg.ResetScoreResult{History: *hist, Score: next}
		return nil
	})
	if err != nil {
		return domainagg.ResetScoreResult{}, err
	}
	a.notify(ctx, types.ScoreChange{
		Kind:       scoring.ChangeScoreReset,
		DriverID:   out.Score.DriverID,
		Points:     out.Score.CurrentScore - out.History.FinalScore,
		ScoreAfter: out.Score.CurrentScore,
		Period:     out.History.Period,
		At:         out.History.EndDate,
	})
	return out, nil
}

// DefaultPeriod labels a reset with its year and unpadded month, e.g. "2024-3".
func DefaultPeriod(t time.Time) string {
	return fmt.Sprintf("%d-%d", t.Year(), int(t.Month()))
}

// appendAndApply writes ev and moves the driver's aggregate by ev.Points under the row lock.
// ev.ScoreAfter and ev.ID are filled in.
func (a *scoreLedger) appendAndApply(dbc dbctx.Context, ev *types.ScoringEvent, now time.Time) (*types.DriverScore, error) {
	cur, err := a.lockScore(dbc, ev.DriverID)
	if err != nil {
		return nil, err
	}
	next := cur.CurrentScore + ev.Points
	ev.ScoreAfter = next
	if err := a.deps.Events.Create(dbc, ev); err != nil {
		return nil, err
	}
	if ev.ID <= cur.LastResetSeq {
		return nil, InvariantError(fmt.Sprintf("event id %d not after reset boundary %d", ev.ID, cur.LastResetSeq))
	}

	moved := *cur
	moved.CurrentScore = next
	moved.EventsCount++
	moved.UpdatedAt = now
	if err := a.deps.Base.Guard.Commit(dbc, cur, &moved); err != nil {
		return nil, err
	}
	return &moved, nil
}

// lockScore materializes the aggregate at base points if needed and locks it.
func (a *scoreLedger) lockScore(dbc dbctx.Context, driverID string) (*types.DriverScore, error) {
	if err := a.deps.Scores.EnsureExists(dbc, driverID, a.deps.BasePoints); err != nil {
		return nil, err
	}
	cur, err := a.deps.Scores.LockByDriverID(dbc, driverID)
	if err != nil {
		return nil, err
	}
	if cur == nil {
		return nil, InvariantError("driver score missing after ensure")
	}
	return cur, nil
}

func (a *scoreLedger) requireDriver(dbc dbctx.Context, op, driverID string) error {
	if a.deps.Drivers == nil {
		return nil
	}
	d, err := a.deps.Drivers.Get(dbc, driverID)
	if err != nil {
		return err
	}
	if d == nil {
		return domainagg.DriverNotFound(op, driverID)
	}
	return nil
}

func (a *scoreLedger) requireRepos(op string) error {
	if a.deps.Rules == nil || a.deps.Events == nil || a.deps.Scores == nil ||
		a.deps.Applications == nil || a.deps.History == nil {
		return domainagg.NewError(domainagg.CodeStoreFailure, op, "score ledger repos not configured", nil)
	}
	return nil
}

func (a *scoreLedger) notify(ctx context.Context, change types.ScoreChange) {
	if a.deps.Notifier == nil {
		return
	}
	a.deps.Notifier.LedgerChanged(ctx, change)
}

func eventChange(ev types.ScoringEvent) types.ScoreChange {
	return types.ScoreChange{
		Kind:       scoring.ChangeEventAppended,
		DriverID:   ev.DriverID,
		EventID:    ev.ID,
		RuleID:     ev.RuleID,
		Category:   ev.Category,
		Points:     ev.Points,
		ScoreAfter: ev.ScoreAfter,
		IsCustom:   ev.IsCustom,
		At:         ev.CreatedAt,
	}
}
