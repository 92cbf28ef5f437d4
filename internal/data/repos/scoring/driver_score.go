package scoring

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/fleetscore-backend/internal/domain"
	"github.com/yungbote/fleetscore-backend/internal/pkg/dbctx"
	"github.com/yungbote/fleetscore-backend/internal/pkg/logger"
)

type DriverScoreRepo interface {
	// EnsureExists materializes the aggregate at basePoints when the driver has none.
	EnsureExists(dbc dbctx.Context, driverID string, basePoints int) error
	LockByDriverID(dbc dbctx.Context, driverID string) (*types.DriverScore, error)
	Get(dbc dbctx.Context, driverID string) (*types.DriverScore, error)
	// ListViews returns every registered driver with its score; drivers never
	// scored report basePoints.
	ListViews(dbc dbctx.Context, basePoints int) ([]*types.ScoreView, error)
	// Ranked orders views by score desc, driver id asc. limit <= 0 is unbounded.
	Ranked(dbc dbctx.Context, basePoints int, limit int) ([]*types.ScoreView, error)
}

type driverScoreRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDriverScoreRepo(db *gorm.DB, baseLog *logger.Logger) DriverScoreRepo {
	return &driverScoreRepo{db: db, log: baseLog.With("repo", "DriverScoreRepo")}
}

func (r *driverScoreRepo) EnsureExists(dbc dbctx.Context, driverID string, basePoints int) error {
	if driverID == "" {
		return fmt.Errorf("missing driver_id")
	}
	row := &types.DriverScore{
		DriverID:     driverID,
		CurrentScore: basePoints,
	}
	return dbc.Conn(r.db).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "driver_id"}}, DoNothing: true}).
		Create(row).Error
}

func (r *driverScoreRepo) LockByDriverID(dbc dbctx.Context, driverID string) (*types.DriverScore, error) {
	if dbc.Tx == nil {
		return nil, fmt.Errorf("LockByDriverID requires a transaction")
	}
	var rows []*types.DriverScore
	if err := dbc.Conn(r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("driver_id = ?", driverID).
		Limit(1).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *driverScoreRepo) Get(dbc dbctx.Context, driverID string) (*types.DriverScore, error) {
	var rows []*types.DriverScore
	if err := dbc.Conn(r.db).Where("driver_id = ?", driverID).Limit(1).Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *driverScoreRepo) viewQuery(dbc dbctx.Context, basePoints int) *gorm.DB {
	return dbc.Conn(r.db).
		Table("drivers AS d").
		Select(
			"d.id AS driver_id, d.name AS name, COALESCE(ds.current_score, ?) AS current_score, "+
				"ds.last_reset_at AS last_reset_at, COALESCE(ds.events_count, 0) AS events_count",
			basePoints,
		).
		Joins("LEFT JOIN driver_scores AS ds ON ds.driver_id = d.id")
}

func (r *driverScoreRepo) ListViews(dbc dbctx.Context, basePoints int) ([]*types.ScoreView, error) {
	out := []*types.ScoreView{}
	if err := r.viewQuery(dbc, basePoints).Order("d.id ASC").Scan(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *driverScoreRepo) Ranked(dbc dbctx.Context, basePoints int, limit int) ([]*types.ScoreView, error) {
	out := []*types.ScoreView{}
	q := r.viewQuery(dbc, basePoints).
		Order("current_score DESC").
		Order("driver_id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
