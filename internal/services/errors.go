// Package services defines the business logic of the marketplace: identity,
// the service catalog, the order ledger, technician assignment, the per-order
// chat with its unread accounting, reporting, and contact messages.
//
// This file centralizes the service-level error taxonomy. Every operation
// returns either a value or an *Error carrying one of a closed set of kinds,
// so handlers can map failures to HTTP results consistently. Translation
// into user-facing messages or status codes is performed at the handler
// layer.
package services

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
)

// Kind classifies a service failure.
type Kind int

const (
	// KindValidation: caller-supplied data violates a precondition.
	KindValidation Kind = iota + 1
	// KindNotFound: a referenced order, user or service does not exist.
	KindNotFound
	// KindStorage: the underlying persistence layer failed.
	KindStorage
	// KindAuthorization: the actor lacks the role or relationship required.
	KindAuthorization
	// KindConflict: a concurrent writer changed the row first.
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindStorage:
		return "storage"
	case KindAuthorization:
		return "authorization"
	case KindConflict:
		return "conflict"
	}
	return "unknown"
}

// Error is the typed failure returned by every service operation.
type Error struct {
	Kind   Kind
	Detail string // human-readable, safe to show to the caller
	Err    error  // wrapped cause (a sentinel below or a driver error)
}

func (e *Error) Error() string {
	if e.Err != nil && e.Detail == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is match an *Error against the kind sentinels.
func (e *Error) Is(target error) bool {
	if k, ok := target.(kindSentinel); ok {
		return e.Kind == k.kind
	}
	return false
}

type kindSentinel struct {
	kind Kind
	msg  string
}

func (s kindSentinel) Error() string { return s.msg }

// Kind sentinels; use with errors.Is.
var (
	ErrValidation error = kindSentinel{KindValidation, "validation error"}
	ErrNotFound   error = kindSentinel{KindNotFound, "not found"}
	ErrStorage    error = kindSentinel{KindStorage, "storage error"}
	ErrForbidden  error = kindSentinel{KindAuthorization, "forbidden"}
	ErrConflict   error = kindSentinel{KindConflict, "conflict"}
)

// Specific causes wrapped inside *Error.
var (
	// ErrEmailTaken is returned when registering an email that already exists.
	ErrEmailTaken = errors.New("email already registered")

	// ErrInvalidCredentials covers unknown email, wrong password, and
	// inactive accounts alike.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrIllegalTransition is returned for a status change outside the
	// transition table.
	ErrIllegalTransition = errors.New("illegal status transition")

	// ErrStaleVersion is returned when expectedVersion no longer matches.
	ErrStaleVersion = errors.New("order was modified concurrently")

	// ErrEmptyBody is returned for a blank chat message.
	ErrEmptyBody = errors.New("message body is empty")

	// ErrTooLong is returned when a chat message exceeds the rune cap.
	ErrTooLong = errors.New("message body too long")

	// ErrNotEligible is returned when the actor may not act on an order.
	ErrNotEligible = errors.New("not a participant of this order")

	// ErrAlreadyAssigned is returned when a technician tries to claim an
	// order another technician holds.
	ErrAlreadyAssigned = errors.New("order is assigned to another technician")
)

func validationErr(detail string, cause error) error {
	return &Error{Kind: KindValidation, Detail: detail, Err: cause}
}

func notFoundErr(detail string) error {
	return &Error{Kind: KindNotFound, Detail: detail}
}

func forbiddenErr(detail string, cause error) error {
	return &Error{Kind: KindAuthorization, Detail: detail, Err: cause}
}

func conflictErr(detail string, cause error) error {
	return &Error{Kind: KindConflict, Detail: detail, Err: cause}
}

// storageErr wraps a persistence failure and logs it; the detail shown to
// callers stays generic.
func storageErr(op string, cause error) error {
	log.Error().Err(cause).Str("op", op).Msg("storage failure")
	return &Error{Kind: KindStorage, Detail: "storage failure", Err: cause}
}

// KindOf returns the kind of err, or 0 when err is not a service error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	var s kindSentinel
	if errors.As(err, &s) {
		return s.kind
	}
	return 0
}

// DetailOf returns the caller-facing detail of err, or fallback.
func DetailOf(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) && e.Detail != "" {
		return e.Detail
	}
	return fallback
}
