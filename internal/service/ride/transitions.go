package ride

import (
	"context"
	"fmt"

	"github.com/Temutjin2k/ride-lifecycle/internal/domain/lifecycle"
	"github.com/Temutjin2k/ride-lifecycle/internal/domain/models"
	"github.com/Temutjin2k/ride-lifecycle/internal/domain/types"
	wrap "github.com/Temutjin2k/ride-lifecycle/pkg/logger/wrapper"
)

// SendOffer lets a free driver propose a price for a pending ride.
func (s *Service) SendOffer(ctx context.Context, driverID, rideID string, price float64) (models.Ride, error) {
	return s.transition(ctx, driverID, rideID, lifecycle.Command{Event: types.EventSendOffer, Price: price})
}

// AcceptDirect assigns a free driver at the listed price.
func (s *Service) AcceptDirect(ctx context.Context, driverID, rideID string) (models.Ride, error) {
	return s.transition(ctx, driverID, rideID, lifecycle.Command{Event: types.EventAcceptDirect})
}

// AcceptOffer lets the owner take the pending offer.
func (s *Service) AcceptOffer(ctx context.Context, passengerID, rideID string) (models.Ride, error) {
	return s.transition(ctx, passengerID, rideID, lifecycle.Command{Event: types.EventAcceptOffer})
}

// RejectOffer returns the ride to the queue.
func (s *Service) RejectOffer(ctx context.Context, passengerID, rideID string) (models.Ride, error) {
	return s.transition(ctx, passengerID, rideID, lifecycle.Command{Event: types.EventRejectOffer})
}

func (s *Service) StartTrip(ctx context.Context, driverID, rideID string) (models.Ride, error) {
	return s.transition(ctx, driverID, rideID, lifecycle.Command{Event: types.EventStartTrip})
}

func (s *Service) Complete(ctx context.Context, userID, rideID string) (models.Ride, error) {
	return s.transition(ctx, userID, rideID, lifecycle.Command{Event: types.EventComplete})
}

func (s *Service) Cancel(ctx context.Context, userID, rideID, reason string) (models.Ride, error) {
	return s.transition(ctx, userID, rideID, lifecycle.Command{Event: types.EventCancel, Reason: reason})
}

// transition reads a snapshot, applies cmd and commits the result with a
// check-and-set on the snapshot version.
func (s *Service) transition(ctx context.Context, userID, rideID string, cmd lifecycle.Command) (models.Ride, error) {
	ctx = wrap.WithRideID(wrap.WithAction(ctx, cmd.Event.String()), rideID)

	actor, profile, err := s.actor(ctx, userID)
	if err != nil {
		return models.Ride{}, wrap.Error(ctx, fmt.Errorf("failed to load profile: %w", err))
	}
	cmd.Actor = actor

	prev, err := s.repos.ride.Get(ctx, rideID)
	if err != nil {
		s.record(cmd.Event, err)
		return models.Ride{}, wrap.Error(ctx, fmt.Errorf("failed to get ride: %w", err))
	}

	next, err := lifecycle.Apply(prev, cmd, s.now().UTC())
	if err != nil {
		s.record(cmd.Event, err)
		return models.Ride{}, wrap.Error(ctx, err)
	}

	err = s.trm.Do(ctx, func(ctx context.Context) error {
		if err := s.sideEffects(ctx, prev, next, cmd.Event, profile); err != nil {
			return err
		}
		if err := s.repos.ride.Swap(ctx, prev.Version, next); err != nil {
			return wrap.Error(ctx, fmt.Errorf("failed to store ride: %w", err))
		}
		return nil
	})
	if err != nil {
		s.record(cmd.Event, err)
		return models.Ride{}, err
	}

	s.afterCommit(ctx, prev.Status, next, cmd.Event, actor)
	s.l.Info(ctx, "ride transitioned", "from", prev.Status, "to", next.Status, "version", next.Version)
	return next, nil
}

// sideEffects claims or releases actor pointers and writes contacts. It runs
// in the same transaction as the ride swap.
func (s *Service) sideEffects(ctx context.Context, prev, next models.Ride, event types.RideEvent, actor models.UserProfile) error {
	switch event {
	case types.EventSendOffer:
		if err := s.ensureFree(ctx, actor.ID, types.RoleDriver); err != nil {
			return err
		}
		return s.putContact(ctx, next, types.RoleDriver, actor)

	case types.EventAcceptDirect:
		if err := s.claim(ctx, actor.ID, types.RoleDriver, next.ID); err != nil {
			return err
		}
		return s.putContact(ctx, next, types.RoleDriver, actor)

	case types.EventAcceptOffer:
		// the driver contact was stored with the offer
		return s.claim(ctx, *next.DriverID, types.RoleDriver, next.ID)

	case types.EventComplete, types.EventCancel:
		if err := s.release(ctx, next.PassengerID, types.RolePassenger, next.ID); err != nil {
			return err
		}
		if prev.DriverID != nil {
			return s.release(ctx, *prev.DriverID, types.RoleDriver, next.ID)
		}
	}
	return nil
}
