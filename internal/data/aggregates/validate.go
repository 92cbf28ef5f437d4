package aggregates

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	domainagg "github.com/yungbote/fleetscore-backend/internal/domain/aggregates"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
	ruleKeyRe    = regexp.MustCompile(`^[a-z0-9][a-z0-9_.\-]*$`)
)

func inputValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New()
		_ = v.RegisterValidation("rulekey", validateRuleKey)
		validate = v
	})
	return validate
}

// validateRuleKey accepts lower-case keys made of letters, digits, '_', '-' and '.'.
func validateRuleKey(fl validator.FieldLevel) bool {
	return ruleKeyRe.MatchString(fl.Field().String())
}

// validateInput runs struct tags and returns a CodeValidation error naming the first bad field.
func validateInput(op string, in any) error {
	err := inputValidator().Struct(in)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return domainagg.NewError(domainagg.CodeValidation, op, describeFieldError(fe), err)
	}
	return domainagg.NewError(domainagg.CodeValidation, op, err.Error(), err)
}

func describeFieldError(fe validator.FieldError) string {
	field := toSnake(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("missing %s", field)
	case "max":
		return fmt.Sprintf("%s exceeds %s characters", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must not be empty", field)
	case "rulekey":
		return fmt.Sprintf("%s must be lower-case letters, digits, '_', '-' or '.'", field)
	default:
		return fmt.Sprintf("invalid %s (%s)", field, fe.Tag())
	}
}

func toSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 && !(s[i-1] >= 'A' && s[i-1] <= 'Z') {
				b.WriteByte('_')
			}
			b.WriteRune(r + ('a' - 'A'))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
