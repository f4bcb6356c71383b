package models

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound marks a reference to a service, resource, timeslot or add-on
	// that is absent from the supplied reference data.
	ErrNotFound = errors.New("not found")
	// ErrPrecondition marks malformed input that no computation can proceed with.
	ErrPrecondition = errors.New("precondition violated")
	// ErrCurrencyMismatch is returned when money in different currencies is combined.
	ErrCurrencyMismatch = errors.New("currency mismatch")
	// ErrNotAvailable means the requested slot can no longer be resourced.
	ErrNotAvailable = errors.New("slot not available")
	// ErrQuoteExpired means a quote is past its ExpiresAt.
	ErrQuoteExpired = errors.New("quote expired")
	// ErrPriceChanged means re-pricing at order time no longer matches the quote.
	ErrPriceChanged = errors.New("price changed since quote")
	// ErrConflict means the entity changed since the caller read it.
	ErrConflict = errors.New("conflict")
	// ErrRateLimited means a caller exceeded its quota.
	ErrRateLimited = errors.New("rate limit exceeded")
)

// PreconditionError names the offending field of a rejected input.
type PreconditionError struct {
	Field  string
	Reason string
	Err    error
}

func (e *PreconditionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Field, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Is lets errors.Is match both ErrPrecondition and the wrapped cause.
func (e *PreconditionError) Is(target error) bool {
	return target == ErrPrecondition
}

func (e *PreconditionError) Unwrap() error { return e.Err }

// Precondition builds a *PreconditionError.
func Precondition(field, reason string, cause error) error {
	return &PreconditionError{Field: field, Reason: reason, Err: cause}
}

// NotFound wraps ErrNotFound with the kind and id of the missing entity.
func NotFound(kind string, id any) error {
	return fmt.Errorf("%s %q: %w", kind, fmt.Sprint(id), ErrNotFound)
}
