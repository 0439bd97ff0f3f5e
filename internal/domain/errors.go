package domain

import "fmt"

// ValidationError reports malformed input: an unknown action kind, a missing
// field, an out-of-range rate. Detected before any simulation work starts.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Reason)
	}
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// NewValidationError builds a ValidationError for a field
func NewValidationError(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// ReferenceError reports a scenario action targeting an entity that does not
// exist in the portfolio. The whole scenario aborts; nothing is partially
// applied.
type ReferenceError struct {
	EntityKind string
	EntityID   string
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("%s %q not found in portfolio", e.EntityKind, e.EntityID)
}

// ComputationError reports a numeric failure during simulation (division by
// zero coefficient, non-finite intermediate). The whole projection request
// fails; no partial series are returned.
type ComputationError struct {
	EntityID string
	Month    string
	Reason   string
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("computation failed for %s at %s: %s", e.EntityID, e.Month, e.Reason)
}
