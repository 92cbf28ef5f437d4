package scoring

import (
	"context"
	"testing"
	"time"

	"github.com/yungbote/fleetscore-backend/internal/data/repos/testutil"
	types "github.com/yungbote/fleetscore-backend/internal/domain"
	"github.com/yungbote/fleetscore-backend/internal/pkg/dbctx"
)

func TestRuleApplicationRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}
	repo := NewRuleApplicationRepo(db, testutil.Logger(t))

	t0 := time.Now().UTC().Add(-time.Hour).Truncate(time.Second)
	first, err := repo.Upsert(dbc, &types.RuleApplication{RuleID: "late_delivery", DriverID: "d1", Active: true, AppliedBy: "m1", AppliedAt: t0})
	if err != nil || first == nil {
		t.Fatalf("Upsert: err=%v row=%v", err, first)
	}

	t1 := t0.Add(30 * time.Minute)
	second, err := repo.Upsert(dbc, &types.RuleApplication{RuleID: "late_delivery", DriverID: "d1", Active: true, AppliedBy: "m2", AppliedAt: t1})
	if err != nil || second == nil {
		t.Fatalf("Upsert again: err=%v row=%v", err, second)
	}
	if second.ID != first.ID {
		t.Fatalf("Upsert: expected the same row, got %s vs %s", first.ID, second.ID)
	}
	if second.AppliedBy != "m2" || !second.AppliedAt.Equal(t1) {
		t.Fatalf("Upsert: expected refreshed row, got %+v", second)
	}

	if _, err := repo.Upsert(dbc, &types.RuleApplication{RuleID: "speeding", DriverID: "d1", Active: true, AppliedAt: t1}); err != nil {
		t.Fatalf("Upsert other rule: %v", err)
	}
	rows, err := repo.ListByDriver(dbc, "d1")
	if err != nil || len(rows) != 2 {
		t.Fatalf("ListByDriver: err=%v len=%d", err, len(rows))
	}

	if n, err := repo.DeleteByRule(dbc, "late_delivery"); err != nil || n != 1 {
		t.Fatalf("DeleteByRule: err=%v n=%d", err, n)
	}
	if got, err := repo.Get(dbc, "late_delivery", "d1"); err != nil || got != nil {
		t.Fatalf("Get after delete: err=%v got=%+v", err, got)
	}
	if _, err := repo.Upsert(dbc, &types.RuleApplication{DriverID: "d1"}); err == nil {
		t.Fatalf("Upsert without rule: expected error")
	}
}
