package aggregates

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	domainagg "github.com/yungbote/fleetscore-backend/internal/domain/aggregates"
)

func TestMapError_Validation(t *testing.T) {
	err := MapError("op", ValidationError("bad input"))
	if !domainagg.IsCode(err, domainagg.CodeValidation) {
		t.Fatalf("expected validation code, got %q (%v)", domainagg.CodeOf(err), err)
	}
}

func TestMapError_Conflict(t *testing.T) {
	err := MapError("op", ConflictError("stale"))
	if !domainagg.IsCode(err, domainagg.CodeConflict) {
		t.Fatalf("expected conflict code, got %q (%v)", domainagg.CodeOf(err), err)
	}
	if !domainagg.Retryable(err) {
		t.Fatalf("conflict should be retryable")
	}
}

func TestMapError_NotFound(t *testing.T) {
	err := MapError("op", gorm.ErrRecordNotFound)
	if !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("expected not_found code, got %q (%v)", domainagg.CodeOf(err), err)
	}
}

func TestMapError_DuplicateKey(t *testing.T) {
	cases := []error{
		gorm.ErrDuplicatedKey,
		fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"}),
		errors.New("UNIQUE constraint failed: rules.rule_key"),
	}
	for _, in := range cases {
		if err := MapError("op", in); !domainagg.IsCode(err, domainagg.CodeDuplicateKey) {
			t.Fatalf("%v: expected duplicate_key, got %q", in, domainagg.CodeOf(err))
		}
	}
}

func TestMapError_LockFailuresAreConflicts(t *testing.T) {
	cases := []error{
		&pgconn.PgError{Code: "40001"},
		&pgconn.PgError{Code: "40P01"},
		&pgconn.PgError{Code: "55P03"},
		errors.New("database is locked"),
	}
	for _, in := range cases {
		if err := MapError("op", in); !domainagg.IsCode(err, domainagg.CodeConflict) {
			t.Fatalf("%v: expected conflict, got %q", in, domainagg.CodeOf(err))
		}
	}
}

func TestMapError_StoreFailure(t *testing.T) {
	for _, in := range []error{context.Canceled, context.DeadlineExceeded, errors.New("connection refused")} {
		if err := MapError("op", in); !domainagg.IsCode(err, domainagg.CodeStoreFailure) {
			t.Fatalf("%v: expected store_failure, got %q", in, domainagg.CodeOf(err))
		}
	}
}

func TestMapError_PassthroughAggregateError(t *testing.T) {
	in := domainagg.NewError(domainagg.CodeConflict, "op", "retry", errors.New("boom"))
	out := MapError("other", in)
	if out != in {
		t.Fatalf("expected passthrough aggregate error")
	}
	if got := MapError("op", domainagg.RuleNotFound("op", "x")); !errors.Is(got, domainagg.ErrRuleNotFound) {
		t.Fatalf("expected rule not found sentinel, got %v", got)
	}
}
