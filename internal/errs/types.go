// Package errs classifies failures from the conversation service so the
// send queue can decide between backoff retry and fail-fast, and so the
// error surface can derive a stable code from a rejection.
package errs

import (
	"errors"
	"fmt"
)

// Category determines how a failure is handled by retry logic.
type Category int

const (
	// Recoverable failures are retried with exponential backoff:
	// 5xx responses, network timeouts, connection resets.
	Recoverable Category = iota

	// Irrecoverable failures fail immediately without retry:
	// 401, 403, 400, 404 and other definitive rejections.
	Irrecoverable
)

func (c Category) String() string {
	switch c {
	case Recoverable:
		return "Recoverable"
	case Irrecoverable:
		return "Irrecoverable"
	default:
		return fmt.Sprintf("Unknown(%d)", int(c))
	}
}

// ClassifiedError wraps a failure with categorization metadata.
type ClassifiedError struct {
	Category   Category
	StatusCode int    // HTTP status (0 for non-HTTP failures)
	Code       string // stable identifying name, e.g. "not-found"
	Underlying error
}

func (e *ClassifiedError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("[%s] HTTP %d: %v", e.Category, e.StatusCode, e.Underlying)
	}
	return fmt.Sprintf("[%s] %v", e.Category, e.Underlying)
}

func (e *ClassifiedError) Unwrap() error { return e.Underlying }

// IsIrrecoverable reports whether err should not be retried.
func IsIrrecoverable(err error) bool {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Category == Irrecoverable
	}
	return false
}

// ErrorCode derives the identifying name surfaced on error records. A
// classified error carries its own code; anything else falls back to a
// generic name so the surface never sees raw error prose.
func ErrorCode(err error) string {
	var ce *ClassifiedError
	if errors.As(err, &ce) && ce.Code != "" {
		return ce.Code
	}
	return "unknown-error"
}
