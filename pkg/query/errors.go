package query

import (
	"errors"
	"fmt"

	"github.com/Sternrassler/content-cache/pkg/criteria"
)

// Sentinel errors wrapped by ValidationError.
var (
	// ErrUnsupportedCondition is returned for condition types outside the known set.
	ErrUnsupportedCondition = errors.New("unsupported filter condition")

	// ErrUnsupportedValue is returned when a comparison value is neither numeric nor a date.
	ErrUnsupportedValue = errors.New("unsupported filter value")

	// ErrUnsupportedDirection is returned for sort directions other than asc/desc.
	ErrUnsupportedDirection = errors.New("unsupported sort direction")
)

// ValidationError reports criteria that cannot be translated. It is caller-fixable
// and never retried.
type ValidationError struct {
	Field     string
	Condition criteria.ConditionType
	Value     string
	Err       error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	switch {
	case errors.Is(e.Err, ErrUnsupportedValue):
		return fmt.Sprintf("%v (%q) for %s filter on field %q", e.Err, e.Value, e.Condition, e.Field)
	case errors.Is(e.Err, ErrUnsupportedDirection):
		return fmt.Sprintf("%v %q for sort field %q", e.Err, e.Value, e.Field)
	default:
		return fmt.Sprintf("%v %q for field %q", e.Err, e.Condition, e.Field)
	}
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *ValidationError) Unwrap() error {
	return e.Err
}
