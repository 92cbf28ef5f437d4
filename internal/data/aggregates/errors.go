package aggregates

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	domainagg "github.com/yungbote/fleetscore-backend/internal/domain/aggregates"
)

var (
	ErrValidation = errors.New("ledger validation")
	// ErrInvariant: stored log and aggregate disagree, or a reset boundary moved backwards.
	ErrInvariant = errors.New("ledger invariant violation")
	// ErrConflict: the driver_scores version moved under us.
	ErrConflict = errors.New("ledger conflict")
)

func ValidationError(msg string) error {
	return errors.Join(ErrValidation, errors.New(strings.TrimSpace(msg)))
}

func InvariantError(msg string) error {
	return errors.Join(ErrInvariant, errors.New(strings.TrimSpace(msg)))
}

func ConflictError(msg string) error {
	return errors.Join(ErrConflict, errors.New(strings.TrimSpace(msg)))
}

// sentinelCodes is checked in order with errors.Is.
var sentinelCodes = []struct {
	err  error
	code domainagg.ErrorCode
}{
	{ErrValidation, domainagg.CodeValidation},
	{ErrInvariant, domainagg.CodeInvariantViolation},
	{ErrConflict, domainagg.CodeConflict},
	{gorm.ErrDuplicatedKey, domainagg.CodeDuplicateKey},
	{gorm.ErrRecordNotFound, domainagg.CodeNotFound},
	{context.Canceled, domainagg.CodeStoreFailure},
	{context.DeadlineExceeded, domainagg.CodeStoreFailure},
}

// Postgres SQLSTATEs the ledger treats specially. Lock and serialization failures
// abort the unit before commit, so re-running it is safe.
var sqlStateCodes = map[string]domainagg.ErrorCode{
	"23505": domainagg.CodeDuplicateKey, // unique_violation on rules.rule_key
	"40001": domainagg.CodeConflict,     // serialization_failure
	"40P01": domainagg.CodeConflict,     // deadlock_detected
	"55P03": domainagg.CodeConflict,     // lock_not_available
}

// SQLite reports constraint and lock failures only through the message text.
var messageCodes = []struct {
	fragment string
	code     domainagg.ErrorCode
}{
	{"unique constraint failed", domainagg.CodeDuplicateKey},
	{"duplicate key", domainagg.CodeDuplicateKey},
	{"database is locked", domainagg.CodeConflict},
	{"deadlock", domainagg.CodeConflict},
	{"serialization", domainagg.CodeConflict},
}

// MapError classifies err into a ledger error code. Errors already carrying a
// code pass through untouched; anything unrecognised is a store failure.
func MapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var aggErr *domainagg.Error
	if errors.As(err, &aggErr) {
		return err
	}
	return domainagg.Wrap(classify(err), op, err)
}

func classify(err error) domainagg.ErrorCode {
	for _, s := range sentinelCodes {
		if errors.Is(err, s.err) {
			return s.code
		}
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if code, ok := sqlStateCodes[strings.TrimSpace(pgErr.Code)]; ok {
			return code
		}
	}
	msg := strings.ToLower(err.Error())
	for _, m := range messageCodes {
		if strings.Contains(msg, m.fragment) {
			return m.code
		}
	}
	return domainagg.CodeStoreFailure
}
