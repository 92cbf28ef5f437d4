package aggregates

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/yungbote/fleetscore-backend/internal/domain"
	"github.com/yungbote/fleetscore-backend/internal/pkg/dbctx"
)

// ScoreGuard commits driver_scores moves with a version compare-and-set. The row
// lock taken by lockScore already serializes writers on Postgres; the version check
// is what catches lost updates on stores without row locks.
type ScoreGuard struct {
	db *gorm.DB
}

func NewScoreGuard(db *gorm.DB) ScoreGuard {
	return ScoreGuard{db: db}
}

// Commit persists next over the row read as cur. It fails with a conflict when the
// stored version moved since cur was read. On success next.Version is cur.Version+1.
func (g ScoreGuard) Commit(dbc dbctx.Context, cur *types.DriverScore, next *types.DriverScore) error {
	conn := dbc.Conn(g.db)
	if conn == nil {
		return ValidationError("missing db transaction context")
	}
	if cur == nil || next == nil || cur.DriverID == "" || next.DriverID != cur.DriverID {
		return ValidationError("score commit needs the locked row and its successor")
	}
	if cur.Version < 0 {
		return ValidationError("locked score has negative version")
	}
	if next.LastResetSeq < cur.LastResetSeq {
		return InvariantError(fmt.Sprintf("reset boundary moved backwards %d -> %d", cur.LastResetSeq, next.LastResetSeq))
	}

	res := conn.Model(&types.DriverScore{}).
		Where("driver_id = ? AND version = ?", cur.DriverID, cur.Version).
		Updates(map[string]any{
			"current_score":  next.CurrentScore,
			"events_count":   next.EventsCount,
			"last_reset_at":  next.LastResetAt,
			"last_reset_seq": next.LastResetSeq,
			"version":        cur.Version + 1,
			"updated_at":     next.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ConflictError(fmt.Sprintf("driver score %s changed since version %d", cur.DriverID, cur.Version))
	}
	next.Version = cur.Version + 1
	return nil
}
