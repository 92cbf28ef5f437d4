package scoring

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/fleetscore-backend/internal/domain"
	"github.com/yungbote/fleetscore-backend/internal/pkg/dbctx"
	"github.com/yungbote/fleetscore-backend/internal/pkg/logger"
)

type RuleRepo interface {
	Create(dbc dbctx.Context, rule *types.Rule) error
	CreateIfMissing(dbc dbctx.Context, rules []*types.Rule) (int, error)
	GetByKey(dbc dbctx.Context, key string) (*types.Rule, error)
	LockByKey(dbc dbctx.Context, key string) (*types.Rule, error)
	List(dbc dbctx.Context) ([]*types.Rule, error)
	ListDefaults(dbc dbctx.Context) ([]*types.Rule, error)
	UpdateFields(dbc dbctx.Context, key string, updates map[string]interface{}) error
	Delete(dbc dbctx.Context, key string) (int64, error)
}

type ruleRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRuleRepo(db *gorm.DB, baseLog *logger.Logger) RuleRepo {
	return &ruleRepo{db: db, log: baseLog.With("repo", "RuleRepo")}
}

func (r *ruleRepo) Create(dbc dbctx.Context, rule *types.Rule) error {
	if rule == nil || rule.Key == "" {
		return fmt.Errorf("missing rule key")
	}
	return dbc.Conn(r.db).Create(rule).Error
}

// CreateIfMissing inserts rules whose key is not present yet and returns how many were inserted.
func (r *ruleRepo) CreateIfMissing(dbc dbctx.Context, rules []*types.Rule) (int, error) {
	inserted := 0
	for _, rule := range rules {
		if rule == nil || rule.Key == "" {
			continue
		}
		res := dbc.Conn(r.db).
			Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "rule_key"}}, DoNothing: true}).
			Create(rule)
		if res.Error != nil {
			return inserted, res.Error
		}
		inserted += int(res.RowsAffected)
	}
	return inserted, nil
}

func (r *ruleRepo) GetByKey(dbc dbctx.Context, key string) (*types.Rule, error) {
	if key == "" {
		return nil, nil
	}
	var rows []*types.Rule
	if err := dbc.Conn(r.db).Where("rule_key = ?", key).Limit(1).Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *ruleRepo) LockByKey(dbc dbctx.Context, key string) (*types.Rule, error) {
	if dbc.Tx == nil {
		return nil, fmt.Errorf("LockByKey requires a transaction")
	}
	if key == "" {
		return nil, nil
	}
	var rows []*types.Rule
	if err := dbc.Conn(r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("rule_key = ?", key).
		Limit(1).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *ruleRepo) List(dbc dbctx.Context) ([]*types.Rule, error) {
	out := []*types.Rule{}
	if err := dbc.Conn(r.db).
		Order("category ASC").
		Order("name ASC").
		Order("rule_key ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ruleRepo) ListDefaults(dbc dbctx.Context) ([]*types.Rule, error) {
	out := []*types.Rule{}
	if err := dbc.Conn(r.db).
		Where("is_default = ?", true).
		Order("category ASC").
		Order("name ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ruleRepo) UpdateFields(dbc dbctx.Context, key string, updates map[string]interface{}) error {
	if key == "" {
		return fmt.Errorf("missing rule key")
	}
	if len(updates) == 0 {
		return nil
	}
	return dbc.Conn(r.db).Model(&types.Rule{}).Where("rule_key = ?", key).Updates(updates).Error
}

func (r *ruleRepo) Delete(dbc dbctx.Context, key string) (int64, error) {
	if key == "" {
		return 0, nil
	}
	res := dbc.Conn(r.db).Where("rule_key = ?", key).Delete(&types.Rule{})
	return res.RowsAffected, res.Error
}
