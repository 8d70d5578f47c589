package watch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Temutjin2k/ride-lifecycle/internal/domain/models"
	"github.com/Temutjin2k/ride-lifecycle/internal/domain/types"
	"github.com/Temutjin2k/ride-lifecycle/pkg/logger"
)

type fakeRides struct {
	mu      sync.Mutex
	ride    models.Ride
	pending []models.Ride
	lists   int
}

func (f *fakeRides) Get(_ context.Context, _, _ string) (models.Ride, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ride, nil
}

func (f *fakeRides) ListPending(_ context.Context, _ string, _ models.PendingFilter) ([]models.Ride, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	return append([]models.Ride(nil), f.pending...), nil
}

func recv[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v, ok := <-ch:
		if !ok {
			t.Fatal("channel closed")
		}
		return v
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for value")
	}
	var zero T
	return zero
}

func event(r models.Ride, prev types.RideStatus) models.RideEventMessage {
	return models.RideEventMessage{RideID: r.ID, Status: r.Status, PreviousStatus: prev, Version: r.Version, Ride: r}
}

func TestWatchRide_OrdersByVersion(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	feed := NewFeed(logger.Nop())
	rides := &fakeRides{ride: models.Ride{ID: "r1", PassengerID: "p1", Status: types.StatusPending, Version: 1}}
	w := NewWatcher(feed, rides, logger.Nop())

	ch, err := w.WatchRide(ctx, "p1", "r1")
	if err != nil {
		t.Fatal(err)
	}
	if got := recv(t, ch); got.Version != 1 {
		t.Fatalf("first = v%d", got.Version)
	}

	offered := models.Ride{ID: "r1", PassengerID: "p1", Status: types.StatusOfferSent, Version: 2}
	accepted := models.Ride{ID: "r1", PassengerID: "p1", Status: types.StatusAccepted, Version: 3}
	other := models.Ride{ID: "r2", Status: types.StatusAccepted, Version: 9}

	_ = feed.PublishRideEvent(ctx, event(offered, types.StatusPending))
	_ = feed.PublishRideEvent(ctx, event(offered, types.StatusPending)) // redelivered by the broker
	_ = feed.PublishRideEvent(ctx, event(other, types.StatusPending))
	_ = feed.PublishRideEvent(ctx, event(accepted, types.StatusOfferSent))

	if got := recv(t, ch); got.Version != 2 {
		t.Fatalf("second = v%d", got.Version)
	}
	if got := recv(t, ch); got.Version != 3 || got.Status != types.StatusAccepted {
		t.Fatalf("third = %+v", got)
	}
}

func TestWatchRide_ClosesOnTerminal(t *testing.T) {
	ctx := context.Background()
	feed := NewFeed(logger.Nop())
	w := NewWatcher(feed, &fakeRides{ride: models.Ride{ID: "r1", PassengerID: "p1", Status: types.StatusInTrip, Version: 4}}, logger.Nop())

	ch, err := w.WatchRide(ctx, "p1", "r1")
	if err != nil {
		t.Fatal(err)
	}
	recv(t, ch)

	_ = feed.PublishRideEvent(ctx, event(models.Ride{ID: "r1", PassengerID: "p1", Status: types.StatusCompleted, Version: 5}, types.StatusInTrip))
	if got := recv(t, ch); got.Status != types.StatusCompleted {
		t.Fatalf("got %+v", got)
	}

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("value after terminal status")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after terminal status")
	}

	deadline := time.Now().Add(time.Second)
	for feed.Subscribers() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscription leaked")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestWatchRide_StopsWhenRideLeavesView(t *testing.T) {
	ctx := context.Background()
	feed := NewFeed(logger.Nop())
	pending := models.Ride{ID: "r1", PassengerID: "p1", Status: types.StatusPending, Version: 1}
	w := NewWatcher(feed, &fakeRides{ride: pending}, logger.Nop())

	other, err := w.WatchRide(ctx, "d2", "r1")
	if err != nil {
		t.Fatal(err)
	}
	owner, err := w.WatchRide(ctx, "p1", "r1")
	if err != nil {
		t.Fatal(err)
	}
	recv(t, other)
	recv(t, owner)

	d1 := "d1"
	taken := models.Ride{ID: "r1", PassengerID: "p1", DriverID: &d1, Status: types.StatusAccepted, Version: 2}
	_ = feed.PublishRideEvent(ctx, event(taken, types.StatusPending))

	select {
	case r, ok := <-other:
		if ok {
			t.Fatalf("unrelated driver received %+v", r)
		}
	case <-time.After(time.Second):
		t.Fatal("stream of unrelated driver not closed")
	}

	if got := recv(t, owner); got.Status != types.StatusAccepted {
		t.Fatalf("owner got %+v", got)
	}
}

func TestWatchRide_CatchesUpAfterLagging(t *testing.T) {
	ctx := context.Background()
	feed := NewFeed(logger.Nop())
	rides := &fakeRides{ride: models.Ride{ID: "r1", PassengerID: "p1", Status: types.StatusInTrip, Version: 1}}
	w := NewWatcher(feed, rides, logger.Nop())

	ch, err := w.WatchRide(ctx, "p1", "r1")
	if err != nil {
		t.Fatal(err)
	}
	recv(t, ch)

	// nobody reads, so the subscription overflows and is closed
	for v := int64(2); v < 2+3*subscriberBuffer; v++ {
		_ = feed.PublishRideEvent(ctx, event(models.Ride{ID: "r1", PassengerID: "p1", Status: types.StatusInTrip, Version: v}, types.StatusInTrip))
	}

	done := models.Ride{ID: "r1", PassengerID: "p1", Status: types.StatusCompleted, Version: 100}
	rides.mu.Lock()
	rides.ride = done
	rides.mu.Unlock()
	_ = feed.PublishRideEvent(ctx, event(done, types.StatusInTrip))

	var last models.Ride
	timeout := time.After(2 * time.Second)
	for {
		select {
		case r, ok := <-ch:
			if !ok {
				if last.Status != types.StatusCompleted || last.Version != 100 {
					t.Fatalf("last delivered = %+v, want completed v100", last)
				}
				return
			}
			if r.Version <= last.Version {
				t.Fatalf("version %d after %d", r.Version, last.Version)
			}
			last = r
		case <-timeout:
			t.Fatalf("stream not closed, last = %+v", last)
		}
	}
}

func TestWatchQueue(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	feed := NewFeed(logger.Nop())
	pending := models.Ride{ID: "r1", Status: types.StatusPending, Region: "Cairo", Subregion: "Maadi", VehicleClass: types.VehicleCar, Version: 1}
	rides := &fakeRides{pending: []models.Ride{pending}}
	w := NewWatcher(feed, rides, logger.Nop())

	filter := models.PendingFilter{Region: "Cairo", Subregion: "Maadi", VehicleClass: types.VehicleCar}
	ch, err := w.WatchQueue(ctx, "d1", filter)
	if err != nil {
		t.Fatal(err)
	}
	if got := recv(t, ch); len(got) != 1 {
		t.Fatalf("initial list = %v", got)
	}

	// other vehicle class is ignored
	_ = feed.PublishRideEvent(ctx, event(models.Ride{ID: "r9", Status: types.StatusPending, Region: "Cairo", Subregion: "Maadi", VehicleClass: types.VehicleTuktuk, Version: 1}, ""))

	taken := pending
	taken.Status = types.StatusAccepted
	taken.Version = 2
	rides.mu.Lock()
	rides.pending = nil
	rides.mu.Unlock()
	_ = feed.PublishRideEvent(ctx, event(taken, types.StatusPending))

	if got := recv(t, ch); len(got) != 0 {
		t.Fatalf("list after accept = %v", got)
	}

	rides.mu.Lock()
	lists := rides.lists
	rides.mu.Unlock()
	if lists != 2 {
		t.Errorf("list queries = %d, want 2", lists)
	}

	cancel()
	for range ch {
	}
}

func TestQueueVersions(t *testing.T) {
	q := make(queueVersions)
	pending := models.RideEventMessage{RideID: "r1", Status: types.StatusPending, Version: 1}

	if !q.fresh(pending) {
		t.Fatal("first pending event not fresh")
	}
	if q.fresh(pending) {
		t.Fatal("redelivered event is fresh")
	}
	if !q.fresh(models.RideEventMessage{RideID: "r1", Status: types.StatusAccepted, PreviousStatus: types.StatusPending, Version: 2}) {
		t.Fatal("accept event not fresh")
	}
	if len(q) != 0 {
		t.Fatalf("ride that left the queue is still tracked: %v", q)
	}
}

func TestAffectsQueue(t *testing.T) {
	filter := models.PendingFilter{Region: "Giza", Subregion: "Haram", VehicleClass: types.VehicleTuktuk}
	base := models.Ride{Region: "Giza", Subregion: "Haram", VehicleClass: types.VehicleTuktuk}

	tests := []struct {
		name string
		msg  models.RideEventMessage
		want bool
	}{
		{"created", models.RideEventMessage{Status: types.StatusPending, Ride: base}, true},
		{"left queue", models.RideEventMessage{Status: types.StatusOfferSent, PreviousStatus: types.StatusPending, Ride: base}, true},
		{"trip started", models.RideEventMessage{Status: types.StatusInTrip, PreviousStatus: types.StatusAccepted, Ride: base}, false},
		{"other region", models.RideEventMessage{Status: types.StatusPending, Ride: models.Ride{Region: "Cairo", Subregion: "Haram", VehicleClass: types.VehicleTuktuk}}, false},
	}
	for _, tt := range tests {
		if got := affectsQueue(tt.msg, filter); got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.name, got, tt.want)
		}
	}
}
