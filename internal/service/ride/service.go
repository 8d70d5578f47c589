package ride

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Temutjin2k/ride-lifecycle/internal/domain/lifecycle"
	"github.com/Temutjin2k/ride-lifecycle/internal/domain/models"
	"github.com/Temutjin2k/ride-lifecycle/internal/domain/types"
	"github.com/Temutjin2k/ride-lifecycle/pkg/logger"
	wrap "github.com/Temutjin2k/ride-lifecycle/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-lifecycle/pkg/metrics"
	"github.com/Temutjin2k/ride-lifecycle/pkg/trm"
)

/*
Service is the single authority over the ride lifecycle. Guards run in the
pure lifecycle package, the resulting record is committed together with the
actor pointers and contacts in one transaction.
*/
type Service struct {
	repos     repos
	profiles  ProfileProvider
	publisher Publisher
	trm       trm.TxManager
	now       func() time.Time
	newID     func() string
	name      string
	l         logger.Logger
}

type repos struct {
	ride    RideRepo
	locks   ActorLocks
	contact ContactRepo
	events  RideEventRepo
}

// New returns the ride service with all dependencies injected.
func New(rideRepo RideRepo, locks ActorLocks, contactRepo ContactRepo, eventRepo RideEventRepo, profiles ProfileProvider, publisher Publisher, trm trm.TxManager, l logger.Logger) *Service {
	return &Service{
		repos: repos{
			ride:    rideRepo,
			locks:   locks,
			contact: contactRepo,
			events:  eventRepo,
		},
		profiles:  profiles,
		publisher: publisher,
		trm:       trm,
		now:       time.Now,
		newID:     uuid.NewString,
		name:      string(types.RideService),
		l:         l,
	}
}

// actor loads the caller profile and turns it into a lifecycle actor.
func (s *Service) actor(ctx context.Context, userID string) (lifecycle.Actor, models.UserProfile, error) {
	p, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return lifecycle.Actor{}, models.UserProfile{}, err
	}
	return lifecycle.Actor{
		ID:      p.ID,
		Role:    p.ActiveRole,
		Summary: p.Summary(p.ActiveRole),
	}, p, nil
}

// Create validates the request, claims the passenger pointer and stores a pending ride.
func (s *Service) Create(ctx context.Context, userID string, req lifecycle.CreateRequest) (models.Ride, error) {
	req.ID = s.newID()
	ctx = wrap.WithRideID(wrap.WithAction(ctx, "create_ride"), req.ID)

	if err := req.Validate(); err != nil {
		s.record(types.EventCreate, err)
		return models.Ride{}, wrap.Error(ctx, err)
	}

	actor, profile, err := s.actor(ctx, userID)
	if err != nil {
		return models.Ride{}, wrap.Error(ctx, fmt.Errorf("failed to load profile: %w", err))
	}

	ride, err := lifecycle.New(req, actor, s.now().UTC())
	if err != nil {
		s.record(types.EventCreate, err)
		return models.Ride{}, wrap.Error(ctx, err)
	}

	err = s.trm.Do(ctx, func(ctx context.Context) error {
		if err := s.claim(ctx, userID, types.RolePassenger, ride.ID); err != nil {
			return err
		}
		if err := s.putContact(ctx, ride, types.RolePassenger, profile); err != nil {
			return err
		}
		if err := s.repos.ride.Create(ctx, ride); err != nil {
			return wrap.Error(ctx, fmt.Errorf("failed to create ride: %w", err))
		}
		return nil
	})
	if err != nil {
		s.record(types.EventCreate, err)
		return models.Ride{}, err
	}

	s.afterCommit(ctx, "", ride, types.EventCreate, actor)
	s.l.Info(ctx, "ride created", "region", ride.Region, "vehicle_class", ride.VehicleClass)
	return ride, nil
}

// Get returns a ride visible to userID: its passenger, the assigned or offering
// driver, or any driver while the ride waits in the queue.
func (s *Service) Get(ctx context.Context, userID, rideID string) (models.Ride, error) {
	ctx = wrap.WithRideID(ctx, rideID)

	ride, err := s.repos.ride.Get(ctx, rideID)
	if err != nil {
		return models.Ride{}, wrap.Error(ctx, fmt.Errorf("failed to get ride: %w", err))
	}
	if _, ok := lifecycle.Relation(ride, userID); ok {
		return ride, nil
	}

	if ride.Status == types.StatusPending {
		p, err := s.profiles.Get(ctx, userID)
		if err != nil {
			return models.Ride{}, wrap.Error(ctx, fmt.Errorf("failed to load profile: %w", err))
		}
		if p.ActiveRole == types.RoleDriver {
			return ride, nil
		}
	}

	return models.Ride{}, wrap.Error(ctx, types.ErrNotYourRide)
}

// MyOpenRide returns the non-terminal ride of a passenger, or the active ride of a driver,
// depending on the active role. It returns ErrRideNotFound when there is none.
func (s *Service) MyOpenRide(ctx context.Context, userID string) (models.Ride, error) {
	ctx = wrap.WithAction(ctx, "my_open_ride")

	p, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return models.Ride{}, wrap.Error(ctx, fmt.Errorf("failed to load profile: %w", err))
	}

	rideID, ok, err := s.repos.locks.HeldRide(ctx, userID, p.ActiveRole)
	if err != nil {
		return models.Ride{}, wrap.Error(ctx, fmt.Errorf("failed to read actor pointer: %w", err))
	}
	if !ok {
		return models.Ride{}, wrap.Error(ctx, types.ErrRideNotFound)
	}

	ride, err := s.repos.ride.Get(ctx, rideID)
	if errors.Is(err, types.ErrRideNotFound) || (err == nil && !live(ride, p.ActiveRole)) {
		s.releaseStale(ctx, userID, p.ActiveRole, rideID)
		return models.Ride{}, wrap.Error(ctx, types.ErrRideNotFound)
	}
	if err != nil {
		return models.Ride{}, wrap.Error(ctx, fmt.Errorf("failed to get ride: %w", err))
	}

	return ride, nil
}

// ListPending returns the matching queue for a driver with a complete profile.
func (s *Service) ListPending(ctx context.Context, userID string, filter models.PendingFilter) ([]models.Ride, error) {
	ctx = wrap.WithAction(ctx, "list_pending")

	if err := s.CanWatchQueue(ctx, userID); err != nil {
		return nil, err
	}
	if filter.Limit <= 0 || filter.Limit > models.DefaultQueueLimit {
		filter.Limit = models.DefaultQueueLimit
	}

	rides, err := s.repos.ride.ListPending(ctx, filter)
	if err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("failed to list pending rides: %w", err))
	}
	return rides, nil
}

// CanWatchQueue reports whether userID may read the matching queue.
func (s *Service) CanWatchQueue(ctx context.Context, userID string) error {
	p, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return wrap.Error(ctx, fmt.Errorf("failed to load profile: %w", err))
	}
	if p.ActiveRole != types.RoleDriver {
		return wrap.Error(ctx, types.ErrWrongRole)
	}
	if !p.CanListPendingWork() {
		return wrap.Error(ctx, types.ErrProfileIncomplete)
	}
	return nil
}

// Contact returns the phone of the given side of a matched ride to the other side.
func (s *Service) Contact(ctx context.Context, userID, rideID string, role types.UserRole) (models.PrivateContact, error) {
	ctx = wrap.WithRideID(wrap.WithAction(ctx, "read_contact"), rideID)

	if !role.Valid() {
		return models.PrivateContact{}, wrap.Error(ctx, types.ErrInvalidRole)
	}

	ride, err := s.repos.ride.Get(ctx, rideID)
	if err != nil {
		return models.PrivateContact{}, wrap.Error(ctx, fmt.Errorf("failed to get ride: %w", err))
	}
	if ride.PassengerID != userID && !ride.IsDriver(userID) {
		return models.PrivateContact{}, wrap.Error(ctx, types.ErrNotYourRide)
	}
	if !ride.Status.HasDriver() {
		return models.PrivateContact{}, wrap.Error(ctx, types.ErrContactHidden)
	}

	c, err := s.repos.contact.Get(ctx, rideID, role)
	if err != nil {
		return models.PrivateContact{}, wrap.Error(ctx, fmt.Errorf("failed to get contact: %w", err))
	}
	return c, nil
}

// History returns the audit trail of a ride to its parties.
func (s *Service) History(ctx context.Context, userID, rideID string) ([]models.RideEventMessage, error) {
	ctx = wrap.WithRideID(wrap.WithAction(ctx, "ride_history"), rideID)

	ride, err := s.repos.ride.Get(ctx, rideID)
	if err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("failed to get ride: %w", err))
	}
	if _, ok := lifecycle.Relation(ride, userID); !ok {
		return nil, wrap.Error(ctx, types.ErrNotYourRide)
	}

	events, err := s.repos.events.List(ctx, rideID)
	if err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("failed to list ride events: %w", err))
	}
	return events, nil
}

// afterCommit runs the best-effort steps. None of them can fail the call.
func (s *Service) afterCommit(ctx context.Context, prevStatus types.RideStatus, ride models.Ride, event types.RideEvent, actor lifecycle.Actor) {
	msg := models.RideEventMessage{
		RideID:         ride.ID,
		Event:          event,
		Status:         ride.Status,
		PreviousStatus: prevStatus,
		Version:        ride.Version,
		ActorID:        actor.ID,
		ActorRole:      actor.Role,
		Ride:           ride,
		Timestamp:      ride.UpdatedAt,
		CorrelationID:  wrap.GetRequestID(ctx),
	}

	if err := s.repos.events.Append(ctx, msg); err != nil {
		s.l.Warn(wrap.ErrorCtx(ctx, err), "failed to append ride event", "error", err.Error())
	}
	if err := s.publisher.PublishRideEvent(ctx, msg); err != nil {
		s.l.Warn(wrap.ErrorCtx(ctx, err), "failed to publish ride event", "error", err.Error())
	}

	s.record(event, nil)
	metrics.RidesTotal.WithLabelValues(s.name, ride.Status.String()).Inc()
	switch {
	case prevStatus == "":
		metrics.ActiveRidesGauge.WithLabelValues(s.name).Inc()
	case ride.Status.IsTerminal():
		metrics.ActiveRidesGauge.WithLabelValues(s.name).Dec()
	}
}

func (s *Service) record(event types.RideEvent, err error) {
	result := "ok"
	if err != nil {
		result = types.KindOf(err)
	}
	metrics.RecordTransition(s.name, event.String(), result)
}
