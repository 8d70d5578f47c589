package watch

import (
	"context"
	"errors"
	"fmt"

	"github.com/Temutjin2k/ride-lifecycle/internal/domain/lifecycle"
	"github.com/Temutjin2k/ride-lifecycle/internal/domain/models"
	"github.com/Temutjin2k/ride-lifecycle/internal/domain/types"
	"github.com/Temutjin2k/ride-lifecycle/pkg/logger"
	wrap "github.com/Temutjin2k/ride-lifecycle/pkg/logger/wrapper"
)

// RideQuery is the authorized read side of the ride service.
type RideQuery interface {
	Get(ctx context.Context, userID, rideID string) (models.Ride, error)
	ListPending(ctx context.Context, userID string, filter models.PendingFilter) ([]models.Ride, error)
}

// Watcher turns the event feed into per-ride and per-queue streams.
type Watcher struct {
	feed  *Feed
	rides RideQuery
	l     logger.Logger
}

func NewWatcher(feed *Feed, rides RideQuery, l logger.Logger) *Watcher {
	return &Watcher{
		feed:  feed,
		rides: rides,
		l:     l,
	}
}

// WatchRide emits the current ride and then every newer version. The channel
// closes after a terminal version, when the ride is no longer visible to
// userID, or when ctx is done.
func (w *Watcher) WatchRide(ctx context.Context, userID, rideID string) (<-chan models.Ride, error) {
	ctx = wrap.WithRideID(wrap.WithAction(ctx, "watch_ride"), rideID)
	match := func(msg models.RideEventMessage) bool {
		return msg.RideID == rideID
	}

	// subscribe before the first read so nothing between them is lost
	subCtx, cancel := context.WithCancel(ctx)
	events := w.feed.Subscribe(subCtx, match)

	current, err := w.rides.Get(ctx, userID, rideID)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to read ride: %w", err)
	}

	out := make(chan models.Ride, 1)
	go func() {
		defer close(out)
		defer cancel()

		last := current.Version
		if !send(ctx, out, current) || current.Status.IsTerminal() {
			return
		}

		for {
			for msg := range events {
				if msg.Version <= last {
					continue
				}
				last = msg.Version

				if !visibleTo(msg.Ride, userID) {
					return
				}
				if !send(ctx, out, msg.Ride) || msg.Ride.Status.IsTerminal() {
					return
				}
			}
			if ctx.Err() != nil {
				return
			}

			// the feed closed a lagging subscription, catch up from the store
			events = w.feed.Subscribe(subCtx, match)
			ride, err := w.rides.Get(ctx, userID, rideID)
			if err != nil {
				if ctx.Err() == nil && !errors.Is(err, types.ErrNotYourRide) {
					w.l.Warn(ctx, "failed to re-read watched ride", "error", err.Error())
				}
				return
			}
			if ride.Version <= last {
				continue
			}
			last = ride.Version
			if !send(ctx, out, ride) || ride.Status.IsTerminal() {
				return
			}
		}
	}()

	return out, nil
}

// visibleTo mirrors the read rule of the ride service: the parties always see
// the ride, other drivers only while it waits in the queue.
func visibleTo(r models.Ride, userID string) bool {
	if _, ok := lifecycle.Relation(r, userID); ok {
		return true
	}
	return r.Status == types.StatusPending
}

// WatchQueue emits the pending list for filter, then a fresh list after every
// event that can change it.
func (w *Watcher) WatchQueue(ctx context.Context, userID string, filter models.PendingFilter) (<-chan []models.Ride, error) {
	ctx = wrap.WithAction(ctx, "watch_queue")
	match := func(msg models.RideEventMessage) bool {
		return affectsQueue(msg, filter)
	}

	subCtx, cancel := context.WithCancel(ctx)
	events := w.feed.Subscribe(subCtx, match)

	current, err := w.rides.ListPending(ctx, userID, filter)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to list pending rides: %w", err)
	}

	out := make(chan []models.Ride, 1)
	go func() {
		defer close(out)
		defer cancel()

		if !send(ctx, out, current) {
			return
		}

		seen := make(queueVersions)
		for {
			for msg := range events {
				if !seen.fresh(msg) {
					continue
				}
				if !w.refreshQueue(ctx, userID, filter, out) {
					return
				}
			}
			if ctx.Err() != nil {
				return
			}

			// the feed closed a lagging subscription, resubscribe and reload
			events = w.feed.Subscribe(subCtx, match)
			if !w.refreshQueue(ctx, userID, filter, out) {
				return
			}
		}
	}()

	return out, nil
}

// refreshQueue sends the current pending list. It returns false once the
// stream should stop.
func (w *Watcher) refreshQueue(ctx context.Context, userID string, filter models.PendingFilter, out chan<- []models.Ride) bool {
	list, err := w.rides.ListPending(ctx, userID, filter)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		w.l.Warn(ctx, "failed to refresh pending rides", "error", err.Error())
		return true
	}
	return send(ctx, out, list)
}

// queueVersions remembers the last version of rides that are still pending.
type queueVersions map[string]int64

// fresh reports whether msg is newer than anything seen for its ride. Rides
// that leave the queue are forgotten.
func (q queueVersions) fresh(msg models.RideEventMessage) bool {
	if q[msg.RideID] >= msg.Version {
		return false
	}
	if msg.Status == types.StatusPending {
		q[msg.RideID] = msg.Version
	} else {
		delete(q, msg.RideID)
	}
	return true
}

// affectsQueue reports whether msg moves a ride into or out of the filtered queue.
func affectsQueue(msg models.RideEventMessage, filter models.PendingFilter) bool {
	r := msg.Ride
	if r.Region != filter.Region || r.Subregion != filter.Subregion || r.VehicleClass != filter.VehicleClass {
		return false
	}
	return msg.Status == types.StatusPending || msg.PreviousStatus == types.StatusPending
}

func send[T any](ctx context.Context, out chan<- T, v T) bool {
	select {
	case out <- v:
		return true
	case <-ctx.Done():
		return false
	}
}
