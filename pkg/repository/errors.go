package repository

import (
	"errors"
	"fmt"
)

// ErrNotFound is matched by every NotFoundError.
var ErrNotFound = errors.New("story not found")

// NotFoundError reports a lookup that produced no content. Remote failures
// are reported the same way; Err carries the cause when there is one.
type NotFoundError struct {
	Field string
	Value string
	Err   error
}

func (e *NotFoundError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("no story with %s %q: %v", e.Field, e.Value, e.Err)
	}
	return fmt.Sprintf("no story with %s %q", e.Field, e.Value)
}

func (e *NotFoundError) Unwrap() error { return e.Err }

// Is reports every NotFoundError as ErrNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}
