package scoring

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/yungbote/fleetscore-backend/internal/domain"
	"github.com/yungbote/fleetscore-backend/internal/pkg/dbctx"
	"github.com/yungbote/fleetscore-backend/internal/pkg/logger"
)

// ScoringEventRepo is append-only: there is deliberately no update or delete.
type ScoringEventRepo interface {
	Create(dbc dbctx.Context, ev *types.ScoringEvent) error
	// ListRecentByDriver pages newest first; beforeID <= 0 starts from the latest event.
	ListRecentByDriver(dbc dbctx.Context, driverID string, limit int, beforeID int64) ([]*types.ScoringEvent, error)
	// SumSince totals points and counts events with ID > afterID.
	SumSince(dbc dbctx.Context, driverID string, afterID int64) (int, int, error)
	MaxID(dbc dbctx.Context, driverID string) (int64, error)
	CountByDriver(dbc dbctx.Context, driverID string) (int64, error)
}

type scoringEventRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewScoringEventRepo(db *gorm.DB, baseLog *logger.Logger) ScoringEventRepo {
	return &scoringEventRepo{db: db, log: baseLog.With("repo", "ScoringEventRepo")}
}

func (r *scoringEventRepo) Create(dbc dbctx.Context, ev *types.ScoringEvent) error {
	if ev == nil || ev.DriverID == "" {
		return fmt.Errorf("missing driver_id")
	}
	if ev.ID != 0 {
		return fmt.Errorf("scoring events are append-only; id must be unset")
	}
	return dbc.Conn(r.db).Create(ev).Error
}

func (r *scoringEventRepo) ListRecentByDriver(dbc dbctx.Context, driverID string, limit int, beforeID int64) ([]*types.ScoringEvent, error) {
	out := []*types.ScoringEvent{}
	if driverID == "" {
		return out, nil
	}
	q := dbc.Conn(r.db).Where("driver_id = ?", driverID)
	if beforeID > 0 {
		q = q.Where("id < ?", beforeID)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Order("id DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *scoringEventRepo) SumSince(dbc dbctx.Context, driverID string, afterID int64) (int, int, error) {
	var agg struct {
		Total int
		N     int
	}
	err := dbc.Conn(r.db).
		Model(&types.ScoringEvent{}).
		Select("COALESCE(SUM(points), 0) AS total, COUNT(*) AS n").
		Where("driver_id = ? AND id > ?", driverID, afterID).
		Scan(&agg).Error
	if err != nil {
		return 0, 0, err
	}
	return agg.Total, agg.N, nil
}

func (r *scoringEventRepo) MaxID(dbc dbctx.Context, driverID string) (int64, error) {
	var max int64
	err := dbc.Conn(r.db).
		Model(&types.ScoringEvent{}).
		Select("COALESCE(MAX(id), 0)").
		Where("driver_id = ?", driverID).
		Scan(&max).Error
	return max, err
}

func (r *scoringEventRepo) CountByDriver(dbc dbctx.Context, driverID string) (int64, error) {
	var n int64
	err := dbc.Conn(r.db).Model(&types.ScoringEvent{}).Where("driver_id = ?", driverID).Count(&n).Error
	return n, err
}
