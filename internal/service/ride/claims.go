package ride

import (
	"context"
	"errors"
	"fmt"

	"github.com/Temutjin2k/ride-lifecycle/internal/domain/models"
	"github.com/Temutjin2k/ride-lifecycle/internal/domain/types"
	wrap "github.com/Temutjin2k/ride-lifecycle/pkg/logger/wrapper"
)

// live reports whether a ride still justifies the pointer of role.
func live(ride models.Ride, role types.UserRole) bool {
	if role == types.RoleDriver {
		return ride.Status.IsActive()
	}
	return ride.Status.IsOpen()
}

func busyError(role types.UserRole) error {
	if role == types.RoleDriver {
		return types.ErrDriverHasActiveRide
	}
	return types.ErrPassengerHasOpenRide
}

// ensureFree fails when userID holds a pointer to a live ride. Stale pointers are
// cleared on the way.
func (s *Service) ensureFree(ctx context.Context, userID string, role types.UserRole) error {
	heldID, ok, err := s.repos.locks.HeldRide(ctx, userID, role)
	if err != nil {
		return wrap.Error(ctx, fmt.Errorf("failed to read actor pointer: %w", err))
	}
	if !ok {
		return nil
	}

	held, err := s.repos.ride.Get(ctx, heldID)
	switch {
	case errors.Is(err, types.ErrRideNotFound):
	case err != nil:
		return wrap.Error(ctx, fmt.Errorf("failed to get held ride: %w", err))
	case live(held, role):
		return wrap.Error(ctx, busyError(role))
	}

	s.releaseStale(ctx, userID, role, heldID)
	return nil
}

// claim points userID at rideID, failing when a live ride already holds the pointer.
func (s *Service) claim(ctx context.Context, userID string, role types.UserRole, rideID string) error {
	if err := s.ensureFree(ctx, userID, role); err != nil {
		return err
	}
	if err := s.repos.locks.Hold(ctx, userID, role, rideID); err != nil {
		if errors.Is(err, types.ErrGuardViolation) {
			return wrap.Error(ctx, err)
		}
		return wrap.Error(ctx, fmt.Errorf("failed to hold actor pointer: %w", err))
	}
	return nil
}

func (s *Service) release(ctx context.Context, userID string, role types.UserRole, rideID string) error {
	if err := s.repos.locks.Release(ctx, userID, role, rideID); err != nil {
		return wrap.Error(ctx, fmt.Errorf("failed to release actor pointer: %w", err))
	}
	return nil
}

// releaseStale drops a pointer to a finished ride. Failure only leaves the
// stale pointer behind for the next claim to retry.
func (s *Service) releaseStale(ctx context.Context, userID string, role types.UserRole, rideID string) {
	if err := s.repos.locks.Release(ctx, userID, role, rideID); err != nil {
		s.l.Warn(wrap.WithAction(ctx, types.ActionStalePointerCleanup), "failed to release stale pointer",
			"user_id", userID, "role", role, "held_ride_id", rideID, "error", err.Error())
	}
}

func (s *Service) putContact(ctx context.Context, ride models.Ride, role types.UserRole, p models.UserProfile) error {
	phone := p.Phone(role)
	if phone == "" {
		return nil
	}

	err := s.repos.contact.Put(ctx, models.PrivateContact{
		RideID:    ride.ID,
		Role:      role,
		Phone:     phone,
		UpdatedAt: ride.UpdatedAt,
	})
	if err != nil {
		return wrap.Error(ctx, fmt.Errorf("failed to store contact: %w", err))
	}
	return nil
}
