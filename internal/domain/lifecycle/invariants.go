package lifecycle

import (
	"errors"
	"fmt"
	"time"

	"github.com/Temutjin2k/ride-lifecycle/internal/domain/models"
	"github.com/Temutjin2k/ride-lifecycle/internal/domain/types"
)

// ErrBrokenRecord marks a stored ride that no sequence of transitions could produce.
var ErrBrokenRecord = errors.New("ride record violates lifecycle invariants")

// CheckInvariants verifies the shape of a ride against its status.
func CheckInvariants(r models.Ride) error {
	broken := func(format string, args ...any) error {
		return fmt.Errorf("%w: ride %s: %s", ErrBrokenRecord, r.ID, fmt.Sprintf(format, args...))
	}

	hasDriver := r.DriverID != nil
	switch {
	case r.Status.HasDriver() && !hasDriver:
		return broken("status %s without driver", r.Status)
	case !r.Status.HasDriver() && hasDriver:
		return broken("status %s with driver", r.Status)
	}
	if r.FormerDriverID != nil && r.Status != types.StatusCancelled {
		return broken("former driver in status %s", r.Status)
	}

	reachedAccepted := r.AcceptedAt != nil
	if (r.FinalPrice != nil) != reachedAccepted {
		return broken("final price and accepted_at disagree")
	}
	if r.Status.HasDriver() && !reachedAccepted {
		return broken("status %s without final price", r.Status)
	}

	if (r.Offer != nil) != (r.Status == types.StatusOfferSent) {
		return broken("offer present in status %s", r.Status)
	}
	if (r.CompletedAt != nil) != (r.Status == types.StatusCompleted) {
		return broken("completed_at in status %s", r.Status)
	}
	if (r.CancelledAt != nil) != (r.Status == types.StatusCancelled) || (r.Cancel != nil) != (r.Status == types.StatusCancelled) {
		return broken("cancel metadata in status %s", r.Status)
	}
	if r.StartedAt != nil && r.AcceptedAt == nil {
		return broken("started without being accepted")
	}

	if !ordered(&r.CreatedAt, r.AcceptedAt, r.StartedAt, r.CompletedAt) || !ordered(&r.CreatedAt, r.CancelledAt) {
		return broken("timestamps out of order")
	}
	if r.Version < 1 {
		return broken("version %d", r.Version)
	}
	return nil
}

// ordered reports whether the set timestamps never go backwards.
func ordered(ts ...*time.Time) bool {
	var last time.Time
	for _, t := range ts {
		if t == nil {
			continue
		}
		if t.Before(last) {
			return false
		}
		last = *t
	}
	return true
}
