package services

import (
	"context"
	"time"

	types "github.com/yungbote/fleetscore-backend/internal/domain"
	"github.com/yungbote/fleetscore-backend/internal/domain/scoring"
	"github.com/yungbote/fleetscore-backend/internal/observability"
	"github.com/yungbote/fleetscore-backend/internal/pkg/logger"
	"github.com/yungbote/fleetscore-backend/internal/realtime/bus"
)

const publishTimeout = 2 * time.Second

// LedgerNotifier fans committed ledger writes out to the leaderboard, the bus and metrics.
// Failures here are logged only; the write has already committed.
type LedgerNotifier interface {
	LedgerChanged(ctx context.Context, change types.ScoreChange)
	// StartCacheInvalidation drops the local leaderboard on changes published by other instances.
	StartCacheInvalidation(ctx context.Context) error
}

type ledgerNotifier struct {
	log         *logger.Logger
	bus         bus.Bus
	leaderboard LeaderboardService
	metrics     *observability.Metrics
}

// NewLedgerNotifier wires the post-commit fan-out. bus and leaderboard may be nil.
func NewLedgerNotifier(log *logger.Logger, b bus.Bus, leaderboard LeaderboardService, metrics *observability.Metrics) LedgerNotifier {
	return &ledgerNotifier{
		log:         log.With("service", "LedgerNotifier"),
		bus:         b,
		leaderboard: leaderboard,
		metrics:     metrics,
	}
}

func (n *ledgerNotifier) LedgerChanged(ctx context.Context, change types.ScoreChange) {
	// the request may be gone by now
	ctx = context.WithoutCancel(ctx)

	if change.Kind == scoring.ChangeEventAppended {
		n.metrics.ObserveScoringEvent(change.Category, eventOrigin(change), change.Points)
	}
	if n.leaderboard != nil {
		n.leaderboard.Invalidate(ctx)
	}
	if n.bus == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := n.bus.Publish(pubCtx, change); err != nil {
		n.metrics.IncBusPublish("error")
		n.log.Warn("Ledger change publish failed",
			"kind", change.Kind,
			"driver_id", change.DriverID,
			"event_id", change.EventID,
			"error", err,
		)
		return
	}
	n.metrics.IncBusPublish("ok")
}

func (n *ledgerNotifier) StartCacheInvalidation(ctx context.Context) error {
	if n.bus == nil || n.leaderboard == nil {
		return nil
	}
	return n.bus.StartForwarder(ctx, func(c types.ScoreChange) {
		n.log.Debug("Ledger change received", "kind", c.Kind, "driver_id", c.DriverID)
		n.leaderboard.Invalidate(ctx)
	})
}

func eventOrigin(c types.ScoreChange) string {
	switch {
	case c.RuleID == nil:
		return "generic"
	case c.IsCustom:
		return "custom"
	default:
		return "rule"
	}
}
