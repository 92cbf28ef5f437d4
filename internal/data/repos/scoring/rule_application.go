package scoring

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/fleetscore-backend/internal/domain"
	"github.com/yungbote/fleetscore-backend/internal/pkg/dbctx"
	"github.com/yungbote/fleetscore-backend/internal/pkg/logger"
)

type RuleApplicationRepo interface {
	// Upsert inserts the (rule, driver) record or refreshes active/applied_by/applied_at.
	Upsert(dbc dbctx.Context, row *types.RuleApplication) (*types.RuleApplication, error)
	Get(dbc dbctx.Context, ruleID, driverID string) (*types.RuleApplication, error)
	ListByDriver(dbc dbctx.Context, driverID string) ([]*types.RuleApplication, error)
	DeleteByRule(dbc dbctx.Context, ruleID string) (int64, error)
}

type ruleApplicationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRuleApplicationRepo(db *gorm.DB, baseLog *logger.Logger) RuleApplicationRepo {
	return &ruleApplicationRepo{db: db, log: baseLog.With("repo", "RuleApplicationRepo")}
}

func (r *ruleApplicationRepo) Upsert(dbc dbctx.Context, row *types.RuleApplication) (*types.RuleApplication, error) {
	if row == nil || row.RuleID == "" || row.DriverID == "" {
		return nil, fmt.Errorf("missing rule_id or driver_id")
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	err := dbc.Conn(r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "rule_id"}, {Name: "driver_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"active", "applied_by", "applied_at"}),
		}).
		Create(row).Error
	if err != nil {
		return nil, err
	}
	// On conflict the generated id was discarded; read back the surviving row.
	return r.Get(dbc, row.RuleID, row.DriverID)
}

func (r *ruleApplicationRepo) Get(dbc dbctx.Context, ruleID, driverID string) (*types.RuleApplication, error) {
	var rows []*types.RuleApplication
	if err := dbc.Conn(r.db).
		Where("rule_id = ? AND driver_id = ?", ruleID, driverID).
		Limit(1).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *ruleApplicationRepo) ListByDriver(dbc dbctx.Context, driverID string) ([]*types.RuleApplication, error) {
	out := []*types.RuleApplication{}
	if err := dbc.Conn(r.db).
		Where("driver_id = ?", driverID).
		Order("applied_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ruleApplicationRepo) DeleteByRule(dbc dbctx.Context, ruleID string) (int64, error) {
	res := dbc.Conn(r.db).Where("rule_id = ?", ruleID).Delete(&types.RuleApplication{})
	return res.RowsAffected, res.Error
}
