package common

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// ValidationError is one failed rule on one request field.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

// Validator collects rule failures over the fields of a request.
type Validator struct {
	failures []ValidationError
}

func NewValidator() *Validator {
	return &Validator{}
}

// Field runs rules against value and records every failure.
func (v *Validator) Field(fieldName string, value any, rules ...ValidationRule) *Validator {
	for _, rule := range rules {
		if f := rule(fieldName, value); f != nil {
			v.failures = append(v.failures, *f)
		}
	}
	return v
}

func (v *Validator) HasErrors() bool {
	return len(v.failures) > 0
}

// Err joins the recorded failures into an invalid-input AppError, or returns nil.
func (v *Validator) Err() error {
	if !v.HasErrors() {
		return nil
	}
	msgs := make([]string, 0, len(v.failures))
	for _, f := range v.failures {
		msgs = append(msgs, f.Error())
	}
	return InvalidInputError(strings.Join(msgs, "; "))
}

// ValidationRule returns nil when value is acceptable for fieldName.
type ValidationRule func(fieldName string, value any) *ValidationError

// Required rejects nil, blank strings and zero integers.
func Required(fieldName string, value any) *ValidationError {
	missing := false
	switch v := value.(type) {
	case nil:
		missing = true
	case string:
		missing = strings.TrimSpace(v) == ""
	case int:
		missing = v == 0
	case int64:
		missing = v == 0
	}
	if missing {
		return &ValidationError{Field: fieldName, Value: value, Message: "est requis"}
	}
	return nil
}

func MaxLength(max int) ValidationRule {
	return func(fieldName string, value any) *ValidationError {
		str, ok := value.(string)
		if !ok || utf8.RuneCountInString(str) <= max {
			return nil
		}
		return &ValidationError{
			Field:   fieldName,
			Value:   value,
			Message: fmt.Sprintf("doit contenir au plus %d caractères", max),
		}
	}
}

var jobNumberRegex = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// JobNumber accepts the identifiers used as workbook file name prefixes. Path
// separators and glob metacharacters are rejected so a job number can never widen
// the workbook search.
func JobNumber(fieldName string, value any) *ValidationError {
	str, ok := value.(string)
	if ok && jobNumberRegex.MatchString(strings.TrimSpace(str)) {
		return nil
	}
	return &ValidationError{
		Field:   fieldName,
		Value:   value,
		Message: "ne doit contenir que des lettres, des chiffres, '-' ou '_'",
	}
}
