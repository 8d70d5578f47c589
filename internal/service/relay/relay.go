package relay

import (
	"context"
	"fmt"
	"time"

	"github.com/Temutjin2k/ride-lifecycle/internal/domain/models"
	"github.com/Temutjin2k/ride-lifecycle/internal/domain/types"
	"github.com/Temutjin2k/ride-lifecycle/pkg/logger"
	wrap "github.com/Temutjin2k/ride-lifecycle/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-lifecycle/pkg/metrics"
	"github.com/Temutjin2k/ride-lifecycle/pkg/validator"
)

// DefaultInterval is the minimum gap between two stored positions of one ride.
const DefaultInterval = time.Second

/*
Relay carries the assigned driver's position to the matched passenger while the
ride is active. Only the latest position is kept.
*/
type Relay struct {
	rides    RideReader
	store    PositionStore
	events   EventSource
	throttle *throttle
	now      func() time.Time
	name     string
	l        logger.Logger
}

func New(rides RideReader, store PositionStore, events EventSource, interval time.Duration, l logger.Logger) *Relay {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Relay{
		rides:    rides,
		store:    store,
		events:   events,
		throttle: newThrottle(interval),
		now:      time.Now,
		name:     string(types.LocationService),
		l:        l,
	}
}

// PositionInput is a raw driver fix.
type PositionInput struct {
	Latitude  float64
	Longitude float64
	Heading   float64
	Speed     float64
}

func (p PositionInput) Validate() error {
	v := validator.New()
	v.Check(validator.InRange(p.Latitude, -90, 90), "latitude", "must be between -90 and 90")
	v.Check(validator.InRange(p.Longitude, -180, 180), "longitude", "must be between -180 and 180")
	v.Check(validator.InRange(p.Heading, 0, 360), "heading", "must be between 0 and 360")
	v.Check(p.Speed >= 0, "speed", "must not be negative")

	if !v.Valid() {
		return fmt.Errorf("%w: %w", types.ErrInvalidPosition, types.FieldErrors(v.Errors))
	}
	return nil
}

// PublishResult tells the driver whether the write was stored or throttled.
type PublishResult struct {
	Accepted bool                `json:"accepted"`
	Position models.LivePosition `json:"position"`
}

// Publish stores pos as the latest position of rideID. A throttled write is
// not an error and reports Accepted=false.
func (r *Relay) Publish(ctx context.Context, driverID, rideID string, in PositionInput) (PublishResult, error) {
	ctx = wrap.WithRideID(wrap.WithAction(ctx, "publish_position"), rideID)

	if err := in.Validate(); err != nil {
		r.record(err)
		return PublishResult{}, wrap.Error(ctx, err)
	}

	ride, err := r.rides.Get(ctx, rideID)
	if err != nil {
		r.record(err)
		return PublishResult{}, wrap.Error(ctx, fmt.Errorf("failed to get ride: %w", err))
	}
	if ride.Status.IsTerminal() {
		r.record(types.ErrRideTerminal)
		return PublishResult{}, wrap.Error(ctx, types.ErrRideTerminal)
	}
	if !ride.IsDriver(driverID) {
		r.record(types.ErrNotYourRide)
		return PublishResult{}, wrap.Error(ctx, types.ErrNotYourRide)
	}
	if !ride.Status.IsActive() {
		r.record(types.ErrRideNotActive)
		return PublishResult{}, wrap.Error(ctx, types.ErrRideNotActive)
	}

	now := r.now().UTC()
	if !r.throttle.Allow(rideID, now) {
		metrics.PositionUpdatesTotal.WithLabelValues(r.name, "throttled").Inc()
		return PublishResult{Accepted: false}, nil
	}

	pos := models.LivePosition{
		RideID:    rideID,
		DriverID:  driverID,
		Latitude:  in.Latitude,
		Longitude: in.Longitude,
		Heading:   in.Heading,
		Speed:     in.Speed,
		UpdatedAt: now,
	}
	if err := r.store.Set(ctx, pos); err != nil {
		// let the driver retry right away
		r.throttle.Forget(rideID)
		r.record(err)
		return PublishResult{}, wrap.Error(ctx, fmt.Errorf("%w: failed to store position: %w", types.ErrDatabaseFailed, err))
	}

	metrics.PositionUpdatesTotal.WithLabelValues(r.name, "accepted").Inc()
	return PublishResult{Accepted: true, Position: pos}, nil
}

// Watch streams positions of rideID to its passenger or assigned driver,
// starting with the last known one. The channel closes when the ride ends.
func (r *Relay) Watch(ctx context.Context, viewerID, rideID string) (<-chan models.LivePosition, error) {
	ctx = wrap.WithRideID(wrap.WithAction(ctx, "watch_position"), rideID)

	ride, err := r.rides.Get(ctx, rideID)
	if err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("failed to get ride: %w", err))
	}
	if ride.PassengerID != viewerID && !ride.IsDriver(viewerID) {
		return nil, wrap.Error(ctx, types.ErrNotYourRide)
	}
	if ride.Status.IsTerminal() {
		return nil, wrap.Error(ctx, types.ErrRideTerminal)
	}

	subCtx, cancel := context.WithCancel(ctx)
	positions, err := r.store.Subscribe(subCtx, rideID)
	if err != nil {
		cancel()
		return nil, wrap.Error(ctx, fmt.Errorf("%w: failed to subscribe to positions: %w", types.ErrDatabaseFailed, err))
	}
	ended := r.events.Subscribe(subCtx, func(msg models.RideEventMessage) bool {
		return msg.RideID == rideID && msg.Status.IsTerminal()
	})

	out := make(chan models.LivePosition, 1)
	go func() {
		defer close(out)
		defer cancel()

		var last time.Time
		if pos, ok, err := r.store.Latest(ctx, rideID); err != nil {
			r.l.Warn(ctx, "failed to read latest position", "error", err.Error())
		} else if ok {
			last = pos.UpdatedAt
			if !send(ctx, out, pos) {
				return
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case <-ended:
				return
			case pos, ok := <-positions:
				if !ok {
					return
				}
				if !pos.UpdatedAt.After(last) {
					continue
				}
				last = pos.UpdatedAt
				if !send(ctx, out, pos) {
					return
				}
			}
		}
	}()

	return out, nil
}

// Forget drops everything the relay keeps for rideID.
func (r *Relay) Forget(ctx context.Context, rideID string) error {
	r.throttle.Forget(rideID)
	if err := r.store.Delete(ctx, rideID); err != nil {
		return wrap.Error(ctx, fmt.Errorf("failed to delete position: %w", err))
	}
	return nil
}

// Run forgets finished rides as their terminal events arrive, until ctx is done.
// Events missed while the subscription was closed for lagging are not replayed:
// Publish and Watch refuse terminal rides and the store expires the position.
func (r *Relay) Run(ctx context.Context) {
	ctx = wrap.WithAction(ctx, "relay_cleanup")

	for ctx.Err() == nil {
		ended := r.events.Subscribe(ctx, func(msg models.RideEventMessage) bool {
			return msg.Status.IsTerminal()
		})
		for msg := range ended {
			if err := r.Forget(wrap.WithRideID(ctx, msg.RideID), msg.RideID); err != nil {
				r.l.Warn(wrap.ErrorCtx(ctx, err), "failed to forget finished ride", "error", err.Error())
			}
		}
	}
}

func (r *Relay) record(err error) {
	metrics.PositionUpdatesTotal.WithLabelValues(r.name, types.KindOf(err)).Inc()
}

func send[T any](ctx context.Context, out chan<- T, v T) bool {
	select {
	case out <- v:
		return true
	case <-ctx.Done():
		return false
	}
}
