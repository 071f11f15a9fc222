package domain

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrMissingField         = errors.New("missing required field")
	ErrUnknownGame          = errors.New("invalid game slug")
	ErrInvalidName          = errors.New("invalid player name")
	ErrInvalidScore         = errors.New("score must be a positive number")
	ErrScoreCeilingExceeded = errors.New("score exceeds maximum allowed for this game")
	ErrForeignKeyViolation  = errors.New("game no longer exists")
	ErrStoreUnavailable     = errors.New("score store unavailable")
	ErrInvalidRequest       = errors.New("invalid request")
)

// SubmissionError wraps the cause of a failed submission when it is
// surfaced to the boundary. Callers branch on the cause with errors.Is.
type SubmissionError struct {
	Cause error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submission failed: %v", e.Cause)
}

func (e *SubmissionError) Unwrap() error {
	return e.Cause
}

// IsValidationError reports whether an error is one of the submission
// validation failures (detected before any store I/O).
func IsValidationError(err error) bool {
	return errors.Is(err, ErrMissingField) ||
		errors.Is(err, ErrUnknownGame) ||
		errors.Is(err, ErrInvalidName) ||
		errors.Is(err, ErrInvalidScore) ||
		errors.Is(err, ErrScoreCeilingExceeded)
}

// IsStoreError reports whether an error originated in the score store.
func IsStoreError(err error) bool {
	return errors.Is(err, ErrStoreUnavailable) || errors.Is(err, ErrForeignKeyViolation)
}
