package aggregates

import (
	"context"
	"strings"

	"github.com/yungbote/fleetscore-backend/internal/data/repos"
	types "github.com/yungbote/fleetscore-backend/internal/domain"
	domainagg "github.com/yungbote/fleetscore-backend/internal/domain/aggregates"
	"github.com/yungbote/fleetscore-backend/internal/domain/scoring"
	"github.com/yungbote/fleetscore-backend/internal/pkg/dbctx"
)

type RuleCatalogDeps struct {
	Base BaseDeps

	Rules        repos.RuleRepo
	Applications repos.RuleApplicationRepo
}

type ruleCatalog struct {
	deps RuleCatalogDeps
}

func NewRuleCatalog(deps RuleCatalogDeps) domainagg.RuleCatalog {
	deps.Base = deps.Base.withDefaults()
	return &ruleCatalog{deps: deps}
}

func (a *ruleCatalog) Contract() domainagg.Contract {
	return domainagg.RuleCatalogContract
}

func (a *ruleCatalog) CreateCustomRule(ctx context.Context, in domainagg.CreateRuleInput) (types.Rule, error) {
	op := domainagg.RuleCatalogContract.Op("CreateCustomRule")
	var out types.Rule

	in.Key = scoring.NormalizeRuleKey(in.Key)
	in.Name = strings.TrimSpace(in.Name)
	in.Category = strings.TrimSpace(in.Category)
	in.CreatedBy = strings.TrimSpace(in.CreatedBy)
	if err := validateInput(op, in); err != nil {
		return out, err
	}
	if err := a.requireRepos(op); err != nil {
		return out, err
	}

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		now := a.deps.Base.Clock()
		rule := &types.Rule{
			Key:              in.Key,
			Name:             in.Name,
			Description:      strings.TrimSpace(in.Description),
			Category:         in.Category,
			Points:           in.Points,
			Active:           in.Active == nil || *in.Active,
			IsDefault:        false,
			TriggerCondition: in.TriggerCondition,
			CreatedBy:        in.CreatedBy,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if err := a.deps.Rules.Create(dbc, rule); err != nil {
			return err
		}
		out = *rule
		return nil
	})
	if err != nil {
		return types.Rule{}, err
	}
	return out, nil
}

func (a *ruleCatalog) UpdateCustomRule(ctx context.Context, key string, patch domainagg.RulePatch) (types.Rule, error) {
	op := domainagg.RuleCatalogContract.Op("UpdateCustomRule")
	var out types.Rule

	key = scoring.NormalizeRuleKey(key)
	if key == "" {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing rule key", nil)
	}
	if patch.Name != nil {
		v := strings.TrimSpace(*patch.Name)
		patch.Name = &v
	}
	if patch.Category != nil {
		v := strings.TrimSpace(*patch.Category)
		patch.Category = &v
	}
	if err := validateInput(op, patch); err != nil {
		return out, err
	}
	if err := a.requireRepos(op); err != nil {
		return out, err
	}

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		rule, err := a.deps.Rules.LockByKey(dbc, key)
		if err != nil {
			return err
		}
		if rule == nil || rule.IsDefault {
			return domainagg.RuleNotFound(op, key)
		}
		if patch.Empty() {
			out = *rule
			return nil
		}

		updates := map[string]interface{}{"updated_at": a.deps.Base.Clock()}
		if patch.Name != nil {
			updates["name"] = *patch.Name
		}
		if patch.Description != nil {
			updates["description"] = strings.TrimSpace(*patch.Description)
		}
		if patch.Category != nil {
			updates["category"] = *patch.Category
		}
		if patch.Points != nil {
			updates["points"] = *patch.Points
		}
		switch {
		case patch.ClearTriggerCondition:
			updates["trigger_condition"] = nil
		case patch.TriggerCondition != nil:
			updates["trigger_condition"] = patch.TriggerCondition
		}
		if patch.Active != nil {
			updates["active"] = *patch.Active
		}
		if err := a.deps.Rules.UpdateFields(dbc, key, updates); err != nil {
			return err
		}
		return a.reload(dbc, key, &out)
	})
	if err != nil {
		return types.Rule{}, err
	}
	return out, nil
}

func (a *ruleCatalog) UpdateDefaultRule(ctx context.Context, key string, patch domainagg.DefaultRulePatch) (types.Rule, error) {
	op := domainagg.RuleCatalogContract.Op("UpdateDefaultRule")
	var out types.Rule

	key = scoring.NormalizeRuleKey(key)
	if key == "" {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing rule key", nil)
	}
	if err := a.requireRepos(op); err != nil {
		return out, err
	}

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		rule, err := a.deps.Rules.LockByKey(dbc, key)
		if err != nil {
			return err
		}
		if rule == nil || !rule.IsDefault {
			return domainagg.RuleNotFound(op, key)
		}
		if patch.Points == nil && patch.Active == nil {
			out = *rule
			return nil
		}
		updates := map[string]interface{}{"updated_at": a.deps.Base.Clock()}
		if patch.Points != nil {
			updates["points"] = *patch.Points
		}
		if patch.Active != nil {
			updates["active"] = *patch.Active
		}
		if err := a.deps.Rules.UpdateFields(dbc, key, updates); err != nil {
			return err
		}
		return a.reload(dbc, key, &out)
	})
	if err != nil {
		return types.Rule{}, err
	}
	return out, nil
}

func (a *ruleCatalog) DeleteCustomRule(ctx context.Context, key string) error {
	op := domainagg.RuleCatalogContract.Op("DeleteCustomRule")

	key = scoring.NormalizeRuleKey(key)
	if key == "" {
		return domainagg.NewError(domainagg.CodeValidation, op, "missing rule key", nil)
	}
	if err := a.requireRepos(op); err != nil {
		return err
	}

	return executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		rule, err := a.deps.Rules.LockByKey(dbc, key)
		if err != nil {
			return err
		}
		if rule == nil || rule.IsDefault {
			return domainagg.RuleNotFound(op, key)
		}
		// Events keep their rule_id; only the standing flags go away with the rule.
		if _, err := a.deps.Applications.DeleteByRule(dbc, key); err != nil {
			return err
		}
		n, err := a.deps.Rules.Delete(dbc, key)
		if err != nil {
			return err
		}
		if n != 1 {
			return InvariantError("locked rule vanished before delete")
		}
		return nil
	})
}

func (a *ruleCatalog) SeedDefaultRules(ctx context.Context, rules []types.Rule) (int, error) {
	op := domainagg.RuleCatalogContract.Op("SeedDefaultRules")
	if len(rules) == 0 {
		return 0, nil
	}
	if err := a.requireRepos(op); err != nil {
		return 0, err
	}

	rows := make([]*types.Rule, 0, len(rules))
	for i := range rules {
		r := rules[i]
		r.Key = scoring.NormalizeRuleKey(r.Key)
		if r.Key == "" {
			return 0, domainagg.NewError(domainagg.CodeValidation, op, "default rule without key", nil)
		}
		r.IsDefault = true
		rows = append(rows, &r)
	}

	inserted := 0
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		n, err := a.deps.Rules.CreateIfMissing(dbc, rows)
		if err != nil {
			return err
		}
		inserted = n
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

func (a *ruleCatalog) reload(dbc dbctx.Context, key string, out *types.Rule) error {
	rule, err := a.deps.Rules.GetByKey(dbc, key)
	if err != nil {
		return err
	}
	if rule == nil {
		return InvariantError("rule vanished inside its own transaction")
	}
	*out = *rule
	return nil
}

func (a *ruleCatalog) requireRepos(op string) error {
	if a.deps.Rules == nil || a.deps.Applications == nil {
		return domainagg.NewError(domainagg.CodeStoreFailure, op, "rule catalog repos not configured", nil)
	}
	return nil
}
