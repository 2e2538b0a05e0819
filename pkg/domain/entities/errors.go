package entities

import (
	"errors"
	"fmt"
)

var (
	ErrNoUsableBOMVersion     = errors.New("no usable bom version")
	ErrItemNotFound           = errors.New("item not found")
	ErrBOMNotFound            = errors.New("bom not found")
	ErrVersionNotFound        = errors.New("bom version not found")
	ErrOrderNotFound          = errors.New("production order not found")
	ErrIssueNotFound          = errors.New("material issue not found")
	ErrConcurrentModification = errors.New("document modified concurrently")
)

// ValidationError rejects malformed input before any state changes
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// Invalid builds a ValidationError
func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// StateError rejects an operation that the entity's current status forbids
type StateError struct {
	Entity string
	ID     int
	From   string
	Op     string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s %s %d in status %q", e.Op, e.Entity, e.ID, e.From)
}

// ResolutionError reports a missing referenced record; it unwraps to a sentinel
type ResolutionError struct {
	Kind string
	ID   int
	Err  error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("%s %d: %v", e.Kind, e.ID, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// NotFound builds a ResolutionError for kind/id wrapping sentinel
func NotFound(kind string, id int, sentinel error) error {
	return &ResolutionError{Kind: kind, ID: id, Err: sentinel}
}

// IsValidation reports whether err carries a ValidationError
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsState reports whether err carries a StateError
func IsState(err error) bool {
	var s *StateError
	return errors.As(err, &s)
}

// IsNotFound reports whether err carries a ResolutionError
func IsNotFound(err error) bool {
	var r *ResolutionError
	return errors.As(err, &r)
}
