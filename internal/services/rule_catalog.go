package services

import (
	"context"
	"strings"

	"github.com/yungbote/fleetscore-backend/internal/data/repos"
	types "github.com/yungbote/fleetscore-backend/internal/domain"
	domainagg "github.com/yungbote/fleetscore-backend/internal/domain/aggregates"
	"github.com/yungbote/fleetscore-backend/internal/domain/scoring"
	"github.com/yungbote/fleetscore-backend/internal/pkg/ctxutil"
	"github.com/yungbote/fleetscore-backend/internal/pkg/dbctx"
	"github.com/yungbote/fleetscore-backend/internal/pkg/logger"
)

type RuleService interface {
	// ListRules returns every rule ordered by category, then name.
	ListRules(ctx context.Context) ([]*types.Rule, error)
	GetDefaultRules(ctx context.Context) ([]*types.Rule, error)
	GetRule(ctx context.Context, key string) (*types.Rule, error)
	CreateCustomRule(ctx context.Context, in domainagg.CreateRuleInput) (*types.Rule, error)
	UpdateCustomRule(ctx context.Context, key string, patch domainagg.RulePatch) (*types.Rule, error)
	UpdateDefaultRule(ctx context.Context, key string, patch domainagg.DefaultRulePatch) (*types.Rule, error)
	DeleteCustomRule(ctx context.Context, key string) error
	SeedDefaultRules(ctx context.Context, rules []types.Rule) (int, error)
}

type ruleService struct {
	log     *logger.Logger
	rules   repos.RuleRepo
	catalog domainagg.RuleCatalog
}

func NewRuleService(log *logger.Logger, rules repos.RuleRepo, catalog domainagg.RuleCatalog) RuleService {
	return &ruleService{
		log:     log.With("service", "RuleService"),
		rules:   rules,
		catalog: catalog,
	}
}

func (s *ruleService) ListRules(ctx context.Context) ([]*types.Rule, error) {
	const op = "Scoring.Rules.List"
	rows, err := s.rules.List(dbctx.Context{Ctx: ctx})
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeStoreFailure, op, err)
	}
	return rows, nil
}

func (s *ruleService) GetDefaultRules(ctx context.Context) ([]*types.Rule, error) {
	const op = "Scoring.Rules.ListDefaults"
	rows, err := s.rules.ListDefaults(dbctx.Context{Ctx: ctx})
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeStoreFailure, op, err)
	}
	return rows, nil
}

func (s *ruleService) GetRule(ctx context.Context, key string) (*types.Rule, error) {
	const op = "Scoring.Rules.Get"
	key = scoring.NormalizeRuleKey(key)
	row, err := s.rules.GetByKey(dbctx.Context{Ctx: ctx}, key)
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeStoreFailure, op, err)
	}
	if row == nil {
		return nil, domainagg.RuleNotFound(op, key)
	}
	return row, nil
}

func (s *ruleService) CreateCustomRule(ctx context.Context, in domainagg.CreateRuleInput) (*types.Rule, error) {
	if strings.TrimSpace(in.CreatedBy) == "" {
		in.CreatedBy = ctxutil.ManagerID(ctx)
	}
	rule, err := s.catalog.CreateCustomRule(ctx, in)
	if err != nil {
		return nil, err
	}
	s.log.Info("Custom rule created", "rule_key", rule.Key, "points", rule.Points, "created_by", rule.CreatedBy)
	return &rule, nil
}

func (s *ruleService) UpdateCustomRule(ctx context.Context, key string, patch domainagg.RulePatch) (*types.Rule, error) {
	rule, err := s.catalog.UpdateCustomRule(ctx, key, patch)
	if err != nil {
		return nil, err
	}
	s.log.Info("Custom rule updated", "rule_key", rule.Key, "manager_id", ctxutil.ManagerID(ctx))
	return &rule, nil
}

func (s *ruleService) UpdateDefaultRule(ctx context.Context, key string, patch domainagg.DefaultRulePatch) (*types.Rule, error) {
	rule, err := s.catalog.UpdateDefaultRule(ctx, key, patch)
	if err != nil {
		return nil, err
	}
	s.log.Info("Default rule updated", "rule_key", rule.Key, "points", rule.Points, "active", rule.Active, "manager_id", ctxutil.ManagerID(ctx))
	return &rule, nil
}

func (s *ruleService) DeleteCustomRule(ctx context.Context, key string) error {
	if err := s.catalog.DeleteCustomRule(ctx, key); err != nil {
		return err
	}
	s.log.Info("Custom rule deleted", "rule_key", scoring.NormalizeRuleKey(key), "manager_id", ctxutil.ManagerID(ctx))
	return nil
}

func (s *ruleService) SeedDefaultRules(ctx context.Context, rules []types.Rule) (int, error) {
	n, err := s.catalog.SeedDefaultRules(ctx, rules)
	if err != nil {
		return 0, err
	}
	s.log.Info("Default rules seeded", "inserted", n, "catalog", len(rules))
	return n, nil
}
