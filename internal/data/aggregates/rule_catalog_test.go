package aggregates_test

import (
	"context"
	"testing"

	"gorm.io/datatypes"

	"github.com/yungbote/fleetscore-backend/internal/data/repos/testutil"
	types "github.com/yungbote/fleetscore-backend/internal/domain"
	domainagg "github.com/yungbote/fleetscore-backend/internal/domain/aggregates"
	"github.com/yungbote/fleetscore-backend/internal/pkg/pointers"
)

func TestCreateCustomRule(t *testing.T) {
	f := newLedgerFixture(t, 0, nil)
	ctx := context.Background()

	rule, err := f.catalog.CreateCustomRule(ctx, domainagg.CreateRuleInput{
		Key: " Late_Delivery ", Name: "Late delivery", Category: "Compliance", Points: -7,
		TriggerCondition: datatypes.JSON(`{"minutes_late":30}`),
	})
	if err != nil {
		t.Fatalf("CreateCustomRule: %v", err)
	}
	if rule.Key != "late_delivery" || rule.IsDefault || !rule.Active {
		t.Fatalf("unexpected rule: %+v", rule)
	}

	_, err = f.catalog.CreateCustomRule(ctx, domainagg.CreateRuleInput{Key: "late_delivery", Name: "x", Category: "Compliance"})
	if !domainagg.IsCode(err, domainagg.CodeDuplicateKey) {
		t.Fatalf("expected duplicate_key, got %v", err)
	}
	_, err = f.catalog.CreateCustomRule(ctx, domainagg.CreateRuleInput{Key: "no name", Category: "Compliance"})
	if !domainagg.IsCode(err, domainagg.CodeValidation) {
		t.Fatalf("expected validation, got %v", err)
	}

	off, err := f.catalog.CreateCustomRule(ctx, domainagg.CreateRuleInput{Key: "draft", Name: "Draft", Category: "Compliance", Active: pointers.Bool(false)})
	if err != nil || off.Active {
		t.Fatalf("inactive create: err=%v rule=%+v", err, off)
	}
}

func TestUpdateCustomRuleMergesPatch(t *testing.T) {
	f := newLedgerFixture(t, 0, nil)
	ctx := context.Background()
	testutil.SeedRule(t, f.db, "speeding", "GPS Monitoring", -10, true)
	if _, err := f.catalog.CreateCustomRule(ctx, domainagg.CreateRuleInput{
		Key: "late_delivery", Name: "Late delivery", Description: "late", Category: "Compliance", Points: -7,
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := f.catalog.UpdateCustomRule(ctx, "late_delivery", domainagg.RulePatch{Points: pointers.Int(-9)})
	if err != nil {
		t.Fatalf("UpdateCustomRule: %v", err)
	}
	if got.Points != -9 || got.Name != "Late delivery" || got.Description != "late" || got.Category != "Compliance" {
		t.Fatalf("patch did not merge: %+v", got)
	}

	got, err = f.catalog.UpdateCustomRule(ctx, "late_delivery", domainagg.RulePatch{})
	if err != nil || got.Points != -9 {
		t.Fatalf("empty patch: err=%v rule=%+v", err, got)
	}

	for _, key := range []string{"speeding", "missing"} {
		if _, err := f.catalog.UpdateCustomRule(ctx, key, domainagg.RulePatch{Points: pointers.Int(1)}); !domainagg.IsCode(err, domainagg.CodeNotFound) {
			t.Fatalf("%s: expected not_found, got %v", key, err)
		}
	}
	if _, err := f.catalog.UpdateCustomRule(ctx, "late_delivery", domainagg.RulePatch{Name: pointers.String(" ")}); !domainagg.IsCode(err, domainagg.CodeValidation) {
		t.Fatalf("blank name: expected validation, got %v", err)
	}
}

func TestUpdateDefaultRule(t *testing.T) {
	f := newLedgerFixture(t, 0, nil)
	ctx := context.Background()
	testutil.SeedRule(t, f.db, "speeding", "GPS Monitoring", -10, true)
	testutil.SeedRule(t, f.db, "custom", "Compliance", -1, false)

	got, err := f.catalog.UpdateDefaultRule(ctx, "speeding", domainagg.DefaultRulePatch{Points: pointers.Int(-12), Active: pointers.Bool(false)})
	if err != nil {
		t.Fatalf("UpdateDefaultRule: %v", err)
	}
	if got.Points != -12 || got.Active || got.Category != "GPS Monitoring" || !got.IsDefault {
		t.Fatalf("unexpected default rule: %+v", got)
	}
	if _, err := f.catalog.UpdateDefaultRule(ctx, "custom", domainagg.DefaultRulePatch{Points: pointers.Int(1)}); !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("custom via default path: expected not_found, got %v", err)
	}
}

func TestDeleteCustomRuleProtectsDefaults(t *testing.T) {
	f := newLedgerFixture(t, 0, nil)
	ctx := context.Background()
	testutil.SeedDriver(t, f.db, "d1", "Ana")
	testutil.SeedRule(t, f.db, "speeding", "GPS Monitoring", -10, true)
	testutil.SeedRule(t, f.db, "late_delivery", "Compliance", -7, false)

	if _, err := f.ledger.ApplyCustomRule(ctx, domainagg.ApplyRuleInput{RuleID: "late_delivery", DriverID: "d1"}); err != nil {
		t.Fatalf("apply: %v", err)
	}

	if err := f.catalog.DeleteCustomRule(ctx, "speeding"); !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("delete default: expected not_found, got %v", err)
	}
	if r, _ := f.repos.Rules.GetByKey(f.dbc(), "speeding"); r == nil {
		t.Fatalf("default rule was deleted")
	}

	if err := f.catalog.DeleteCustomRule(ctx, "late_delivery"); err != nil {
		t.Fatalf("DeleteCustomRule: %v", err)
	}
	if app, _ := f.repos.Applications.Get(f.dbc(), "late_delivery", "d1"); app != nil {
		t.Fatalf("tracker row kept after rule delete")
	}
	if n, _ := f.repos.Events.CountByDriver(f.dbc(), "d1"); n != 1 {
		t.Fatalf("events must survive rule delete, got %d", n)
	}
	if err := f.catalog.DeleteCustomRule(ctx, "late_delivery"); !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("second delete: expected not_found, got %v", err)
	}
}

func TestSeedDefaultRulesIsIdempotent(t *testing.T) {
	f := newLedgerFixture(t, 0, nil)
	ctx := context.Background()
	defaults := []types.Rule{
		{Key: "speeding", Name: "Speeding", Category: "GPS Monitoring", Points: -10, Active: true},
		{Key: "safe_week", Name: "Safe week", Category: "Achievement", Points: 15, Active: true},
	}

	n, err := f.catalog.SeedDefaultRules(ctx, defaults)
	if err != nil || n != 2 {
		t.Fatalf("first seed: err=%v n=%d", err, n)
	}
	if _, err := f.catalog.UpdateDefaultRule(ctx, "speeding", domainagg.DefaultRulePatch{Points: pointers.Int(-20)}); err != nil {
		t.Fatalf("edit default: %v", err)
	}
	n, err = f.catalog.SeedDefaultRules(ctx, defaults)
	if err != nil || n != 0 {
		t.Fatalf("second seed: err=%v n=%d", err, n)
	}
	r, _ := f.repos.Rules.GetByKey(f.dbc(), "speeding")
	if r == nil || r.Points != -20 || !r.IsDefault {
		t.Fatalf("seed overwrote edited default: %+v", r)
	}
}
