package scoring

import (
	"context"
	"errors"
	"testing"

	"gorm.io/gorm"

	"github.com/yungbote/fleetscore-backend/internal/data/repos/testutil"
	types "github.com/yungbote/fleetscore-backend/internal/domain"
	"github.com/yungbote/fleetscore-backend/internal/pkg/dbctx"
)

func TestRuleRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}
	repo := NewRuleRepo(db, testutil.Logger(t))

	testutil.SeedRule(t, tx, "speeding", "GPS Monitoring", -10, true)
	testutil.SeedRule(t, tx, "harsh_braking", "Driver Monitoring", -5, true)

	custom := &types.Rule{Key: "late_delivery", Name: "Late delivery", Category: "Compliance", Points: -7, Active: true}
	if err := repo.Create(dbc, custom); err != nil {
		t.Fatalf("Create: %v", err)
	}
	dup := &types.Rule{Key: "late_delivery", Name: "Other", Category: "Compliance", Points: 1, Active: true}
	if err := repo.Create(dbc, dup); !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Fatalf("Create duplicate: expected ErrDuplicatedKey, got %v", err)
	}

	rows, err := repo.List(dbc)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{"late_delivery", "harsh_braking", "speeding"}
	if len(rows) != len(want) {
		t.Fatalf("List: expected %d rows, got %d", len(want), len(rows))
	}
	for i, k := range want {
		if rows[i].Key != k {
			t.Fatalf("List[%d]: expected %s, got %s", i, k, rows[i].Key)
		}
	}

	defaults, err := repo.ListDefaults(dbc)
	if err != nil || len(defaults) != 2 {
		t.Fatalf("ListDefaults: err=%v len=%d", err, len(defaults))
	}

	if err := repo.UpdateFields(dbc, "late_delivery", map[string]interface{}{"points": -9}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	got, err := repo.LockByKey(dbc, "late_delivery")
	if err != nil || got == nil || got.Points != -9 {
		t.Fatalf("LockByKey: err=%v got=%+v", err, got)
	}
	if _, err := repo.LockByKey(dbctx.Context{Ctx: context.Background()}, "late_delivery"); err == nil {
		t.Fatalf("LockByKey without tx: expected error")
	}

	n, err := repo.CreateIfMissing(dbc, []*types.Rule{
		{Key: "speeding", Name: "changed", Category: "GPS Monitoring", Points: 99, Active: true, IsDefault: true},
		{Key: "idle", Name: "Idle", Category: "Compliance", Points: -1, Active: true, IsDefault: true},
	})
	if err != nil || n != 1 {
		t.Fatalf("CreateIfMissing: err=%v n=%d", err, n)
	}
	if speeding, _ := repo.GetByKey(dbc, "speeding"); speeding == nil || speeding.Points != -10 {
		t.Fatalf("CreateIfMissing overwrote existing rule: %+v", speeding)
	}

	if n, err := repo.Delete(dbc, "late_delivery"); err != nil || n != 1 {
		t.Fatalf("Delete: err=%v n=%d", err, n)
	}
	if n, err := repo.Delete(dbc, "late_delivery"); err != nil || n != 0 {
		t.Fatalf("Delete missing: err=%v n=%d", err, n)
	}
	if got, err := repo.GetByKey(dbc, "late_delivery"); err != nil || got != nil {
		t.Fatalf("GetByKey after delete: err=%v got=%+v", err, got)
	}
}
