package engine

import "errors"

// Expected business outcomes. They are deterministic for a given state and
// safe to show to callers verbatim.
var (
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrConflict          = errors.New("conflict")
	ErrNotFound          = errors.New("not found")
	ErrInvalidInput      = errors.New("invalid input")
)

// IsExpected reports whether err is one of the business outcomes above rather
// than a fault.
func IsExpected(err error) bool {
	return errors.Is(err, ErrForbidden) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInvalidInput)
}
