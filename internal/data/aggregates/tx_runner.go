package aggregates

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	domainagg "github.com/yungbote/fleetscore-backend/internal/domain/aggregates"
	"github.com/yungbote/fleetscore-backend/internal/pkg/dbctx"
)

// TxRunner opens the transaction a ledger write unit runs in.
type TxRunner interface {
	InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error
}

type gormTxRunner struct {
	db          *gorm.DB
	lockTimeout time.Duration
}

// NewGormTxRunner runs units in GORM transactions. On Postgres a positive
// lockTimeout bounds the wait for a driver's score row; the timeout surfaces as
// SQLSTATE 55P03, which MapError turns into a retryable conflict.
func NewGormTxRunner(db *gorm.DB, lockTimeout time.Duration) TxRunner {
	return &gormTxRunner{db: db, lockTimeout: lockTimeout}
}

func (r *gormTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	if fn == nil {
		return nil
	}
	if r == nil || r.db == nil {
		return domainagg.NewError(domainagg.CodeStoreFailure, "ledger.tx", "transaction runner has nil db", nil)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if r.lockTimeout > 0 && tx.Dialector.Name() == "postgres" {
			ms := r.lockTimeout.Milliseconds()
			if ms < 1 {
				ms = 1
			}
			if err := tx.Exec(fmt.Sprintf("SET LOCAL lock_timeout = %d", ms)).Error; err != nil {
				return err
			}
		}
		if err := fn(dbctx.Context{Ctx: ctx, Tx: tx}); err != nil {
			return err
		}
		// a cancelled request must not commit
		return ctx.Err()
	})
}
