package common

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError is one failed rule on one configuration key.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s=%v %s", e.Field, e.Value, e.Message)
}

// ValidationRule returns nil when value is acceptable.
type ValidationRule func(field string, value any) *ValidationError

// Validator accumulates rule failures so every bad key is reported at once.
type Validator struct {
	failures []ValidationError
}

func NewValidator() *Validator { return &Validator{} }

// Field applies rules to value in order, recording each failure.
func (v *Validator) Field(field string, value any, rules ...ValidationRule) *Validator {
	for _, rule := range rules {
		if f := rule(field, value); f != nil {
			v.failures = append(v.failures, *f)
		}
	}
	return v
}

func (v *Validator) HasErrors() bool { return len(v.failures) > 0 }

func (v *Validator) Errors() []ValidationError { return slices.Clone(v.failures) }

// ErrorMessage joins every failure with "; ".
func (v *Validator) ErrorMessage() string {
	parts := make([]string, len(v.failures))
	for i, f := range v.failures {
		parts[i] = f.Error()
	}
	return strings.Join(parts, "; ")
}

func fail(field string, value any, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: fmt.Sprintf(format, args...)}
}

// Required rejects nil, blank strings and empty slices.
func Required(field string, value any) *ValidationError {
	empty := false
	switch x := value.(type) {
	case nil:
		empty = true
	case string:
		empty = strings.TrimSpace(x) == ""
	case []string:
		empty = len(x) == 0
	case []int:
		empty = len(x) == 0
	}
	if empty {
		return fail(field, value, "is required")
	}
	return nil
}

// UnitInterval requires a float64 in [0,1].
func UnitInterval(field string, value any) *ValidationError {
	f, ok := value.(float64)
	switch {
	case !ok:
		return fail(field, value, "must be a number")
	case f < 0 || f > 1:
		return fail(field, value, "must be within [0,1]")
	}
	return nil
}

// Positive requires an int > 0.
func Positive(field string, value any) *ValidationError {
	n, ok := value.(int)
	switch {
	case !ok:
		return fail(field, value, "must be an integer")
	case n <= 0:
		return fail(field, value, "must be positive")
	}
	return nil
}

// NonNegative requires an int >= 0.
func NonNegative(field string, value any) *ValidationError {
	n, ok := value.(int)
	switch {
	case !ok:
		return fail(field, value, "must be an integer")
	case n < 0:
		return fail(field, value, "must not be negative")
	}
	return nil
}

// OneOf accepts only the listed strings.
func OneOf(allowed ...string) ValidationRule {
	return func(field string, value any) *ValidationError {
		if s, _ := value.(string); slices.Contains(allowed, s) {
			return nil
		}
		return fail(field, value, "must be one of %s", strings.Join(allowed, ", "))
	}
}
