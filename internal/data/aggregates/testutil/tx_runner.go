package testutil

import (
	"context"
	"sync"

	"github.com/yungbote/fleetscore-backend/internal/data/aggregates"
	"github.com/yungbote/fleetscore-backend/internal/pkg/dbctx"
)

// FaultTxRunner drives ledger write units through Inner and injects failures by
// attempt number. With a nil Inner the body runs against a bare context, which is
// enough for units that never touch the store.
type FaultTxRunner struct {
	Inner aggregates.TxRunner

	// ConflictAttempts fails the first N attempts with a conflict after the body
	// ran, so the inner transaction rolls back exactly like a lost version CAS.
	ConflictAttempts int
	FailBegin        error
	FailCommit       error

	mu        sync.Mutex
	attempts  int
	commits   int
	rollbacks int
}

var _ aggregates.TxRunner = (*FaultTxRunner)(nil)

func (r *FaultTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	r.mu.Lock()
	r.attempts++
	attempt := r.attempts
	failBegin, failCommit := r.FailBegin, r.FailCommit
	conflict := attempt <= r.ConflictAttempts
	r.mu.Unlock()

	if failBegin != nil {
		return failBegin
	}

	unit := func(dbc dbctx.Context) error {
		if fn != nil {
			if err := fn(dbc); err != nil {
				return err
			}
		}
		if conflict {
			return aggregates.ConflictError("injected version conflict")
		}
		return failCommit
	}

	var err error
	if r.Inner != nil {
		err = r.Inner.InTx(ctx, unit)
	} else {
		err = unit(dbctx.Context{Ctx: ctx})
	}

	r.mu.Lock()
	if err != nil {
		r.rollbacks++
	} else {
		r.commits++
	}
	r.mu.Unlock()
	return err
}

// Counts reports attempts, commits and rollbacks seen so far.
func (r *FaultTxRunner) Counts() (attempts, commits, rollbacks int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.attempts, r.commits, r.rollbacks
}
