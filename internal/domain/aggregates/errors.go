package aggregates

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode standardizes ledger failure semantics for every caller.
type ErrorCode string

const (
	// CodeValidation: missing or malformed input, nothing mutated.
	CodeValidation ErrorCode = "validation"
	// CodeNotFound: rule, driver or record absent, nothing mutated.
	CodeNotFound ErrorCode = "not_found"
	// CodeDuplicateKey: unique constraint on rule creation, nothing mutated.
	CodeDuplicateKey ErrorCode = "duplicate_key"
	// CodeConflict: concurrent update collision; the whole operation may be retried.
	CodeConflict ErrorCode = "conflict"
	// CodeInvariantViolation: the store disagrees with a ledger invariant.
	CodeInvariantViolation ErrorCode = "invariant_violation"
	// CodeStoreFailure: storage unreachable or transaction aborted.
	CodeStoreFailure ErrorCode = "store_failure"
)

var (
	ErrRuleNotFound   = errors.New("rule not found")
	ErrDriverNotFound = errors.New("driver not found")
)

// Error carries a ledger code, the operation that failed and the underlying cause.
type Error struct {
	Code    ErrorCode
	Op      string
	Message string
	Cause   error
}

// Error renders "op: message [code]", dropping whichever parts are empty.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
	}
	if e.Message != "" {
		if b.Len() > 0 {
			b.WriteString(": ")
		}
		b.WriteString(e.Message)
	}
	if b.Len() == 0 {
		return string(e.Code)
	}
	fmt.Fprintf(&b, " [%s]", e.Code)
	return b.String()
}

func (e *Error) Unwrap() error { return e.Cause }

func NewError(code ErrorCode, op, message string, cause error) error {
	return &Error{Code: code, Op: strings.TrimSpace(op), Message: strings.TrimSpace(message), Cause: cause}
}

// Wrap tags err with code, reusing its text as the message. Wrap(code, op, nil) is nil.
func Wrap(code ErrorCode, op string, err error) error {
	if err == nil {
		return nil
	}
	return NewError(code, op, err.Error(), err)
}

// RuleNotFound reports an absent or inactive rule.
func RuleNotFound(op, key string) error {
	return NewError(CodeNotFound, op, fmt.Sprintf("rule %q not found", key), ErrRuleNotFound)
}

// DriverNotFound reports a driver unknown to the registry.
func DriverNotFound(op, driverID string) error {
	return NewError(CodeNotFound, op, fmt.Sprintf("driver %q not found", driverID), ErrDriverNotFound)
}

// CodeOf returns the code of the outermost *Error in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

func IsCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}

// Retryable reports whether the whole operation can be re-run from scratch. Only a
// lost version race qualifies: every other failure would fail the same way again.
func Retryable(err error) bool {
	return IsCode(err, CodeConflict)
}
