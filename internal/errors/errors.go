package errors

import (
	"errors"
	"fmt"
)

// Common errors used throughout the application
var (
	// Entity errors
	ErrNoteNotFound      = errors.New("note not found")
	ErrAttributeNotFound = errors.New("attribute not found")
	ErrBranchNotFound    = errors.New("branch not found")

	// Validation errors
	ErrEmptyTitle       = errors.New("title cannot be empty")
	ErrInvalidNoteID    = errors.New("invalid note ID")
	ErrUnknownConfigKey = errors.New("unknown configuration key")

	// Persistence errors
	ErrDatabaseQuery = errors.New("database query failed")
	ErrReadOnly      = errors.New("store is read-only")
)

// ParseError reports malformed query syntax. It carries the offending
// fragment so callers can surface it to the user.
type ParseError struct {
	Fragment string
	Reason   string
}

func (e *ParseError) Error() string {
	if e.Fragment == "" {
		return fmt.Sprintf("query parse error: %s", e.Reason)
	}
	return fmt.Sprintf("query parse error near %q: %s", e.Fragment, e.Reason)
}

// NewParseError creates a ParseError for the given fragment.
func NewParseError(fragment, format string, args ...interface{}) *ParseError {
	return &ParseError{Fragment: fragment, Reason: fmt.Sprintf(format, args...)}
}

// ValidationError reports a mutation rejected before any state change,
// such as a cycle-creating branch move or a relation to a missing target.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", e.Reason)
}

// NewValidationError creates a ValidationError with a formatted reason.
func NewValidationError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsParse reports whether err is (or wraps) a ParseError.
func IsParse(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}
