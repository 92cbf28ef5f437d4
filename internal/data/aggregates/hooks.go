package aggregates

import (
	"time"

	"github.com/yungbote/fleetscore-backend/internal/observability"
)

// Hooks receives one signal per finished write unit, per lost version CAS and per
// retry of a unit.
type Hooks interface {
	ObserveOperation(name, status string, dur time.Duration)
	IncConflict(name string)
	IncRetry(name string)
}

// HookFuncs adapts plain functions to Hooks. Nil fields drop the signal, so the
// zero value is a no-op.
type HookFuncs struct {
	Operation func(name, status string, dur time.Duration)
	Conflict  func(name string)
	Retry     func(name string)
}

func (h HookFuncs) ObserveOperation(name, status string, dur time.Duration) {
	if h.Operation != nil {
		h.Operation(name, status, dur)
	}
}

func (h HookFuncs) IncConflict(name string) {
	if h.Conflict != nil {
		h.Conflict(name)
	}
}

func (h HookFuncs) IncRetry(name string) {
	if h.Retry != nil {
		h.Retry(name)
	}
}

// NewObservabilityHooks feeds the fleetscore_aggregate_* Prometheus series.
func NewObservabilityHooks(metrics *observability.Metrics) Hooks {
	if metrics == nil {
		return HookFuncs{}
	}
	return HookFuncs{
		Operation: metrics.ObserveAggregateOperation,
		Conflict:  metrics.IncAggregateConflict,
		Retry:     metrics.IncAggregateRetry,
	}
}
