package scoring

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/fleetscore-backend/internal/domain"
	"github.com/yungbote/fleetscore-backend/internal/pkg/dbctx"
	"github.com/yungbote/fleetscore-backend/internal/pkg/logger"
)

// DriverRepo backs the driver registry.
type DriverRepo interface {
	Upsert(dbc dbctx.Context, d *types.Driver) error
	Get(dbc dbctx.Context, id string) (*types.Driver, error)
	List(dbc dbctx.Context) ([]*types.Driver, error)
}

type driverRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDriverRepo(db *gorm.DB, baseLog *logger.Logger) DriverRepo {
	return &driverRepo{db: db, log: baseLog.With("repo", "DriverRepo")}
}

func (r *driverRepo) Upsert(dbc dbctx.Context, d *types.Driver) error {
	if d == nil || d.ID == "" {
		return fmt.Errorf("missing driver id")
	}
	return dbc.Conn(r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "active", "updated_at"}),
		}).
		Create(d).Error
}

func (r *driverRepo) Get(dbc dbctx.Context, id string) (*types.Driver, error) {
	if id == "" {
		return nil, nil
	}
	var rows []*types.Driver
	if err := dbc.Conn(r.db).Where("id = ?", id).Limit(1).Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *driverRepo) List(dbc dbctx.Context) ([]*types.Driver, error) {
	out := []*types.Driver{}
	if err := dbc.Conn(r.db).Order("id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
