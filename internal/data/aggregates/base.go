package aggregates

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	domainagg "github.com/yungbote/fleetscore-backend/internal/domain/aggregates"
	"github.com/yungbote/fleetscore-backend/internal/observability"
	"github.com/yungbote/fleetscore-backend/internal/pkg/dbctx"
	"github.com/yungbote/fleetscore-backend/internal/pkg/logger"
)

const defaultRetryBackoff = 10 * time.Millisecond

type BaseDeps struct {
	DB       *gorm.DB
	Log      *logger.Logger
	Runner   TxRunner
	Hooks    Hooks
	Guard    ScoreGuard
	// MaxAttempts bounds how often a write that lost a conflict is re-run. <= 0 means 1.
	MaxAttempts  int
	RetryBackoff time.Duration
	// LockTimeout bounds the wait for a driver's score row lock (Postgres only). 0 waits forever.
	LockTimeout time.Duration
	Clock       func() time.Time
}

func (d BaseDeps) withDefaults() BaseDeps {
	if d.Runner == nil {
		d.Runner = NewGormTxRunner(d.DB, d.LockTimeout)
	}
	if d.Hooks == nil {
		d.Hooks = HookFuncs{}
	}
	if d.Guard.db == nil {
		d.Guard = NewScoreGuard(d.DB)
	}
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	if d.MaxAttempts <= 0 {
		d.MaxAttempts = 1
	}
	if d.RetryBackoff <= 0 {
		d.RetryBackoff = defaultRetryBackoff
	}
	if d.Clock == nil {
		d.Clock = func() time.Time { return time.Now().UTC() }
	}
	return d
}

// executeWrite runs fn in one transaction and re-runs the whole unit on conflict.
// fn must be safe to call more than once: every attempt starts from a clean transaction.
func executeWrite(ctx context.Context, deps BaseDeps, op string, fn func(dbc dbctx.Context) error) error {
	start := time.Now()
	deps = deps.withDefaults()
	op = strings.TrimSpace(op)
	if op == "" {
		op = "aggregate.write"
	}
	ctx, span := observability.StartSpan(ctx, op, attribute.String("aggregate.op", op))

	var mapped error
	attempt := 1
	for ; ; attempt++ {
		mapped = MapError(op, deps.Runner.InTx(ctx, fn))
		if mapped == nil {
			break
		}
		if domainagg.IsCode(mapped, domainagg.CodeConflict) {
			deps.Hooks.IncConflict(op)
		}
		if !domainagg.Retryable(mapped) || attempt >= deps.MaxAttempts {
			break
		}
		if !sleepCtx(ctx, time.Duration(attempt)*deps.RetryBackoff) {
			break
		}
		deps.Hooks.IncRetry(op)
		deps.Log.Debug("retrying aggregate write", "op", op, "attempt", attempt+1, "error", mapped)
	}

	status := aggregateErrorStatus(mapped)
	span.SetAttributes(attribute.Int("aggregate.attempts", attempt))
	deps.Hooks.ObserveOperation(op, status, time.Since(start))
	observability.EndSpan(span, status, mapped)
	return mapped
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func aggregateErrorStatus(err error) string {
	if err == nil {
		return "success"
	}
	code := strings.TrimSpace(string(domainagg.CodeOf(err)))
	if code == "" {
		code = strings.TrimSpace(string(domainagg.CodeOf(MapError("aggregate.status", err))))
	}
	if code == "" {
		return "failure"
	}
	return code
}
