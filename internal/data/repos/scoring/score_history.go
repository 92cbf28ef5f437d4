package scoring

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/fleetscore-backend/internal/domain"
	"github.com/yungbote/fleetscore-backend/internal/pkg/dbctx"
	"github.com/yungbote/fleetscore-backend/internal/pkg/logger"
)

type ScoreHistoryRepo interface {
	Create(dbc dbctx.Context, row *types.ScoreHistory) error
	ListByDriver(dbc dbctx.Context, driverID string, limit int) ([]*types.ScoreHistory, error)
}

type scoreHistoryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewScoreHistoryRepo(db *gorm.DB, baseLog *logger.Logger) ScoreHistoryRepo {
	return &scoreHistoryRepo{db: db, log: baseLog.With("repo", "ScoreHistoryRepo")}
}

func (r *scoreHistoryRepo) Create(dbc dbctx.Context, row *types.ScoreHistory) error {
	if row == nil || row.DriverID == "" {
		return fmt.Errorf("missing driver_id")
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	return dbc.Conn(r.db).Create(row).Error
}

func (r *scoreHistoryRepo) ListByDriver(dbc dbctx.Context, driverID string, limit int) ([]*types.ScoreHistory, error) {
	out := []*types.ScoreHistory{}
	q := dbc.Conn(r.db).Where("driver_id = ?", driverID).Order("end_date DESC").Order("id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
