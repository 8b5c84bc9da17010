package criteria

import (
	"errors"
	"strings"
)

var (
	ErrInvalidFieldName     = errors.New("field name must not be empty")
	ErrInvalidRangeValue    = errors.New("unexpected number of values for operator")
	ErrUnknownOperator      = errors.New("unknown operator")
	ErrConflictingEmptiness = errors.New("field is required to be both empty and not empty")
)

const (
	CodeInvalidFieldName     = "invalid_field_name"
	CodeInvalidRangeValue    = "invalid_range_value"
	CodeUnknownOperator      = "unknown_operator"
	CodeConflictingEmptiness = "conflicting_emptiness"
)

type ValidationError struct {
	Field    string
	Operator Operator
	Message  string
	Code     string
	Err      error
}

func (e ValidationError) Error() string {
	return e.Message
}

func (e ValidationError) Unwrap() error {
	return e.Err
}

type ValidationErrors struct {
	Errors []ValidationError
}

func (v *ValidationErrors) Error() string {
	if len(v.Errors) == 0 {
		return "validation failed"
	}

	messages := make([]string, 0, len(v.Errors))
	for _, e := range v.Errors {
		messages = append(messages, e.Message)
	}

	return strings.Join(messages, "; ")
}

// Unwrap exposes every recorded cause to errors.Is and errors.As.
func (v *ValidationErrors) Unwrap() []error {
	errs := make([]error, 0, len(v.Errors))
	for _, e := range v.Errors {
		errs = append(errs, e)
	}

	return errs
}

func (v *ValidationErrors) Add(e ValidationError) {
	v.Errors = append(v.Errors, e)
}

func (v *ValidationErrors) HasErrors() bool {
	return v != nil && len(v.Errors) > 0
}

func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{
		Errors: make([]ValidationError, 0),
	}
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidFieldName):
		return CodeInvalidFieldName
	case errors.Is(err, ErrInvalidRangeValue):
		return CodeInvalidRangeValue
	case errors.Is(err, ErrUnknownOperator):
		return CodeUnknownOperator
	case errors.Is(err, ErrConflictingEmptiness):
		return CodeConflictingEmptiness
	default:
		return ""
	}
}
