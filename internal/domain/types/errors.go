package types

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Error kinds. Every error returned by the lifecycle wraps exactly one of them.
var (
	ErrValidation     = errors.New("validation failed")
	ErrGuardViolation = errors.New("transition not allowed")
	ErrNotFound       = errors.New("requested item not found")
	ErrTransient      = errors.New("temporary failure, try again")
	ErrConflictLost   = errors.New("someone else took this ride")
)

// Not found
var (
	ErrRideNotFound    = fmt.Errorf("%w: ride not found", ErrNotFound)
	ErrProfileNotFound = fmt.Errorf("%w: profile not found", ErrNotFound)
	ErrContactNotFound = fmt.Errorf("%w: contact not found", ErrNotFound)
	ErrPlaceNotFound   = fmt.Errorf("%w: no place matches the query", ErrNotFound)
	ErrRouteNotFound   = fmt.Errorf("%w: no route between the points", ErrNotFound)
)

// Guard violations
var (
	ErrNotYourRide          = fmt.Errorf("%w: not your ride", ErrGuardViolation)
	ErrNoOffer              = fmt.Errorf("%w: no offer to act on", ErrGuardViolation)
	ErrDriverHasActiveRide  = fmt.Errorf("%w: driver already has an active ride", ErrGuardViolation)
	ErrPassengerHasOpenRide = fmt.Errorf("%w: passenger already has an open ride", ErrGuardViolation)
	ErrRideTerminal         = fmt.Errorf("%w: ride already finished", ErrGuardViolation)
	ErrIllegalTransition    = fmt.Errorf("%w: action not allowed in the current ride status", ErrGuardViolation)
	ErrWrongRole            = fmt.Errorf("%w: action not allowed for the active role", ErrGuardViolation)
	ErrProfileIncomplete    = fmt.Errorf("%w: driver profile must carry vehicle type and code", ErrGuardViolation)
	ErrRideNotActive        = fmt.Errorf("%w: ride is not active", ErrGuardViolation)
	ErrContactHidden        = fmt.Errorf("%w: contact is visible only after a match", ErrGuardViolation)
)

// Conflicts
var (
	ErrRideTaken       = fmt.Errorf("%w: ride was taken by another driver", ErrConflictLost)
	ErrStaleRide error = kindError{kind: ErrConflictLost, msg: "ride changed, reload and try again"}
)

// Validation
var (
	ErrInvalidPhone      = fmt.Errorf("%w: phone must be 11 digits starting with 01", ErrValidation)
	ErrInvalidPrice      = fmt.Errorf("%w: price out of range", ErrValidation)
	ErrInvalidPosition   = fmt.Errorf("%w: position out of range", ErrValidation)
	ErrUnknownVehicle    = fmt.Errorf("%w: unknown vehicle class", ErrValidation)
	ErrInvalidRole       = fmt.Errorf("%w: unknown role", ErrValidation)
	ErrMissingAttributes = fmt.Errorf("%w: role attributes must be provided", ErrValidation)
)

// Transient
var (
	ErrDatabaseFailed  = fmt.Errorf("%w: database failure", ErrTransient)
	ErrExternalTimeout = fmt.Errorf("%w: external service timed out", ErrTransient)
	ErrExternalFailed  = fmt.Errorf("%w: external service failed", ErrTransient)
	ErrPublishFailed   = fmt.Errorf("%w: failed to publish ride event", ErrTransient)
)

// Kind names, stable for clients and metrics.
const (
	KindValidation = "validation_failure"
	KindGuard      = "guard_violation"
	KindNotFound   = "not_found"
	KindTransient  = "transient_io"
	KindConflict   = "conflict_lost"
	KindInternal   = "internal"
)

// KindOf classifies err. Errors that match no kind are internal.
func KindOf(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConflictLost):
		return KindConflict
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrGuardViolation):
		return KindGuard
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrTransient):
		return KindTransient
	default:
		return KindInternal
	}
}

// FieldErrors reports per-field validation messages. It is a ValidationFailure.
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(ErrValidation.Error())
	for i, k := range keys {
		if i == 0 {
			b.WriteString(": ")
		} else {
			b.WriteString(", ")
		}
		b.WriteString(k)
		b.WriteString(" ")
		b.WriteString(e[k])
	}
	return b.String()
}

func (e FieldErrors) Unwrap() error {
	return ErrValidation
}

// kindError belongs to kind but keeps its own message.
type kindError struct {
	kind error
	msg  string
}

func (e kindError) Error() string { return e.msg }

func (e kindError) Unwrap() error { return e.kind }
