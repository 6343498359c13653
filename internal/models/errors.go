package models

import (
	"context"
	"errors"
	"fmt"
)

// Failure kinds. Callers wrap these with context and match them with errors.Is.
var (
	// ErrTransport means a relay was unreachable or answered with a protocol error.
	ErrTransport = errors.New("transport failure")
	// ErrTimeout means an operation exceeded its deadline.
	ErrTimeout = errors.New("timeout")
	// ErrParse covers malformed cached data and malformed identity strings.
	ErrParse = errors.New("parse failure")
	// ErrConfigMissing means no home or config location could be determined.
	ErrConfigMissing = errors.New("configuration missing")
	// ErrPersistence means writing the cache or session state failed.
	ErrPersistence = errors.New("persistence failure")
)

// Classify returns the failure kind of err, or nil when err is nil.
// Context deadline errors are reported as ErrTimeout; anything unrecognised
// is treated as a transport failure.
func Classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return ErrTimeout
	case errors.Is(err, ErrParse):
		return ErrParse
	case errors.Is(err, ErrConfigMissing):
		return ErrConfigMissing
	case errors.Is(err, ErrPersistence):
		return ErrPersistence
	default:
		return ErrTransport
	}
}

// Kind returns a short label for the failure kind of err, for logs and metrics.
func Kind(err error) string {
	switch Classify(err) {
	case nil:
		return "ok"
	case ErrTimeout:
		return "timeout"
	case ErrParse:
		return "parse"
	case ErrConfigMissing:
		return "config"
	case ErrPersistence:
		return "persistence"
	default:
		return "transport"
	}
}

// WithKind returns err unchanged when it already wraps a failure kind,
// otherwise it wraps err with its classified kind.
func WithKind(err error) error {
	if err == nil {
		return nil
	}
	for _, kind := range []error{ErrTransport, ErrTimeout, ErrParse, ErrConfigMissing, ErrPersistence} {
		if errors.Is(err, kind) {
			return err
		}
	}
	return fmt.Errorf("%w: %w", Classify(err), err)
}
