package ride

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Temutjin2k/ride-lifecycle/internal/adapter/memory"
	"github.com/Temutjin2k/ride-lifecycle/internal/domain/lifecycle"
	"github.com/Temutjin2k/ride-lifecycle/internal/domain/models"
	"github.com/Temutjin2k/ride-lifecycle/internal/domain/types"
	"github.com/Temutjin2k/ride-lifecycle/internal/service/profile"
	"github.com/Temutjin2k/ride-lifecycle/pkg/logger"
)

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []models.RideEventMessage
	err  error
}

func (p *recordingPublisher) PublishRideEvent(_ context.Context, msg models.RideEventMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
	return p.err
}

func (p *recordingPublisher) events() []models.RideEventMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.RideEventMessage(nil), p.msgs...)
}

type fixture struct {
	svc      *Service
	profiles *profile.Service
	locks    *memory.ActorLocks
	rides    *memory.RideRepo
	pub      *recordingPublisher
	clock    time.Time
	seq      int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := memory.New()
	l := logger.Nop()
	f := &fixture{
		profiles: profile.New(memory.NewProfileRepo(db), db, l),
		locks:    memory.NewActorLocks(db),
		rides:    memory.NewRideRepo(db),
		pub:      &recordingPublisher{},
		clock:    time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC),
	}
	f.svc = New(f.rides, f.locks, memory.NewContactRepo(db), memory.NewRideEventRepo(db), f.profiles, f.pub, db, l)

	var mu sync.Mutex
	f.svc.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		f.clock = f.clock.Add(time.Second)
		return f.clock
	}
	f.svc.newID = func() string {
		mu.Lock()
		defer mu.Unlock()
		f.seq++
		return fmt.Sprintf("ride-%d", f.seq)
	}
	return f
}

func (f *fixture) passenger(t *testing.T, id string) {
	t.Helper()
	ctx := context.Background()
	if _, err := f.profiles.EnsureProfile(ctx, id); err != nil {
		t.Fatal(err)
	}
	_, err := f.profiles.UpdateAttributes(ctx, id, profile.UpdateAttributesRequest{
		Passenger: &models.PassengerAttributes{DisplayName: "P " + id, Phone: "01000000001", Region: "Cairo", Subregion: "Maadi"},
	})
	if err != nil {
		t.Fatal(err)
	}
}

func (f *fixture) driver(t *testing.T, id string) {
	t.Helper()
	ctx := context.Background()
	if _, err := f.profiles.EnsureProfile(ctx, id); err != nil {
		t.Fatal(err)
	}
	_, err := f.profiles.UpdateAttributes(ctx, id, profile.UpdateAttributesRequest{
		Driver: &models.DriverAttributes{
			DisplayName: "D " + id,
			Phone:       "01200000002",
			Region:      "Cairo",
			Subregion:   "Maadi",
			VehicleType: types.VehicleCar,
			VehicleCode: "CAR-" + id,
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.profiles.SwitchRole(ctx, id, types.RoleDriver); err != nil {
		t.Fatal(err)
	}
}

func (f *fixture) create(t *testing.T, passengerID string) models.Ride {
	t.Helper()
	r, err := f.svc.Create(context.Background(), passengerID, request())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return r
}

func request() lifecycle.CreateRequest {
	return lifecycle.CreateRequest{
		Origin:        models.Place{Latitude: 29.96, Longitude: 31.25, Label: "Maadi"},
		Destination:   models.Place{Latitude: 30.04, Longitude: 31.23, Label: "Tahrir"},
		Region:        "Cairo",
		Subregion:     "Maadi",
		VehicleClass:  types.VehicleCar,
		ProposedPrice: 70,
	}
}

func TestCreateThenGet(t *testing.T) {
	f := newFixture(t)
	f.passenger(t, "p1")

	created := f.create(t, "p1")

	got, err := f.svc.Get(context.Background(), "p1", created.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != types.StatusPending || got.DriverID != nil || got.FinalPrice != nil {
		t.Fatalf("got %+v", got)
	}

	evs := f.pub.events()
	if len(evs) != 1 || evs[0].Event != types.EventCreate || evs[0].Version != 1 {
		t.Errorf("published = %+v", evs)
	}
}

func TestGetVisibility(t *testing.T) {
	f := newFixture(t)
	f.passenger(t, "p1")
	f.passenger(t, "p2")
	f.driver(t, "d1")
	f.driver(t, "d2")
	ctx := context.Background()

	r := f.create(t, "p1")

	if _, err := f.svc.Get(ctx, "p2", r.ID); !errors.Is(err, types.ErrNotYourRide) {
		t.Errorf("other passenger err = %v", err)
	}
	if _, err := f.svc.Get(ctx, "d2", r.ID); err != nil {
		t.Errorf("driver on pending ride err = %v", err)
	}

	if _, err := f.svc.AcceptDirect(ctx, "d1", r.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Get(ctx, "d2", r.ID); !errors.Is(err, types.ErrNotYourRide) {
		t.Errorf("unrelated driver on accepted ride err = %v", err)
	}
	if _, err := f.svc.Get(ctx, "d1", r.ID); err != nil {
		t.Errorf("assigned driver err = %v", err)
	}
}

func TestConcurrentAcceptDirect(t *testing.T) {
	for round := range 20 {
		f := newFixture(t)
		f.passenger(t, "p1")
		f.driver(t, "d1")
		f.driver(t, "d2")
		r := f.create(t, "p1")

		start := make(chan struct{})
		errs := make(map[string]error)
		var (
			mu sync.Mutex
			wg sync.WaitGroup
		)
		for _, d := range []string{"d1", "d2"} {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				_, err := f.svc.AcceptDirect(context.Background(), d, r.ID)
				mu.Lock()
				errs[d] = err
				mu.Unlock()
			}()
		}
		close(start)
		wg.Wait()

		var winners, losers []string
		for d, err := range errs {
			switch {
			case err == nil:
				winners = append(winners, d)
			case errors.Is(err, types.ErrConflictLost):
				losers = append(losers, d)
			default:
				t.Fatalf("round %d: %s got unexpected err %v", round, d, err)
			}
		}
		if len(winners) != 1 || len(losers) != 1 {
			t.Fatalf("round %d: winners=%v losers=%v", round, winners, losers)
		}

		got, _ := f.rides.Get(context.Background(), r.ID)
		if got.DriverID == nil || *got.DriverID != winners[0] {
			t.Fatalf("round %d: driver = %v, want %s", round, got.DriverID, winners[0])
		}
		if _, held, _ := f.locks.HeldRide(context.Background(), losers[0], types.RoleDriver); held {
			t.Fatalf("round %d: loser kept an active ride pointer", round)
		}
	}
}

func TestOfferRejectFlow(t *testing.T) {
	f := newFixture(t)
	f.passenger(t, "p1")
	f.driver(t, "d1")
	ctx := context.Background()
	r := f.create(t, "p1")

	offered, err := f.svc.SendOffer(ctx, "d1", r.ID, 40)
	if err != nil {
		t.Fatal(err)
	}
	if offered.Status != types.StatusOfferSent || offered.Offer.Price != 40 {
		t.Fatalf("offered = %+v", offered)
	}

	rejected, err := f.svc.RejectOffer(ctx, "p1", r.ID)
	if err != nil {
		t.Fatal(err)
	}
	if rejected.Status != types.StatusPending || rejected.Offer != nil || rejected.DriverID != nil {
		t.Fatalf("rejected = %+v", rejected)
	}

	// the same driver may offer again
	if _, err := f.svc.SendOffer(ctx, "d1", r.ID, 55); err != nil {
		t.Fatalf("re-offer: %v", err)
	}
	accepted, err := f.svc.AcceptOffer(ctx, "p1", r.ID)
	if err != nil {
		t.Fatal(err)
	}
	if *accepted.FinalPrice != 55 || *accepted.DriverID != "d1" {
		t.Fatalf("accepted = %+v", accepted)
	}
	if held, ok, _ := f.locks.HeldRide(ctx, "d1", types.RoleDriver); !ok || held != r.ID {
		t.Fatal("accepted offer did not claim the driver pointer")
	}
}

func TestCancelCompletedRide(t *testing.T) {
	f := newFixture(t)
	f.passenger(t, "p1")
	f.driver(t, "d1")
	ctx := context.Background()
	r := f.create(t, "p1")

	if _, err := f.svc.AcceptDirect(ctx, "d1", r.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.StartTrip(ctx, "d1", r.ID); err != nil {
		t.Fatal(err)
	}
	done, err := f.svc.Complete(ctx, "p1", r.ID)
	if err != nil {
		t.Fatal(err)
	}

	_, err = f.svc.Cancel(ctx, "p1", r.ID, "too late")
	if !errors.Is(err, types.ErrGuardViolation) {
		t.Fatalf("cancel completed err = %v, want guard violation", err)
	}

	got, _ := f.rides.Get(ctx, r.ID)
	if got.Status != types.StatusCompleted || got.Version != done.Version {
		t.Fatalf("ride changed: %+v", got)
	}

	// both pointers are free after completion
	if _, ok, _ := f.locks.HeldRide(ctx, "p1", types.RolePassenger); ok {
		t.Error("passenger pointer kept after complete")
	}
	if _, ok, _ := f.locks.HeldRide(ctx, "d1", types.RoleDriver); ok {
		t.Error("driver pointer kept after complete")
	}
}

func TestSecondOpenRide(t *testing.T) {
	f := newFixture(t)
	f.passenger(t, "p1")
	ctx := context.Background()
	a := f.create(t, "p1")

	_, err := f.svc.Create(ctx, "p1", request())
	if !errors.Is(err, types.ErrPassengerHasOpenRide) || !errors.Is(err, types.ErrGuardViolation) {
		t.Fatalf("second create err = %v", err)
	}

	got, _ := f.rides.Get(ctx, a.ID)
	if got.Status != types.StatusPending || got.Version != a.Version {
		t.Fatalf("ride A changed: %+v", got)
	}

	// cancelling A frees the passenger
	if _, err := f.svc.Cancel(ctx, "p1", a.ID, ""); err != nil {
		t.Fatal(err)
	}
	f.create(t, "p1")
}

func TestDriverWithActiveRide(t *testing.T) {
	f := newFixture(t)
	f.passenger(t, "p1")
	f.passenger(t, "p2")
	f.driver(t, "d1")
	ctx := context.Background()

	a := f.create(t, "p1")
	b := f.create(t, "p2")

	if _, err := f.svc.AcceptDirect(ctx, "d1", a.ID); err != nil {
		t.Fatal(err)
	}

	if _, err := f.svc.AcceptDirect(ctx, "d1", b.ID); !errors.Is(err, types.ErrDriverHasActiveRide) {
		t.Errorf("accept second err = %v", err)
	}
	if _, err := f.svc.SendOffer(ctx, "d1", b.ID, 50); !errors.Is(err, types.ErrDriverHasActiveRide) {
		t.Errorf("offer second err = %v", err)
	}

	got, _ := f.rides.Get(ctx, b.ID)
	if got.Status != types.StatusPending {
		t.Fatalf("ride B changed: %+v", got)
	}
}

func TestStalePointerIsCleared(t *testing.T) {
	f := newFixture(t)
	f.passenger(t, "p1")
	ctx := context.Background()

	// a pointer left behind by a ride that finished elsewhere
	if err := f.rides.Create(ctx, models.Ride{ID: "old", PassengerID: "p1", Status: types.StatusCancelled, Version: 3}); err != nil {
		t.Fatal(err)
	}
	if err := f.locks.Hold(ctx, "p1", types.RolePassenger, "old"); err != nil {
		t.Fatal(err)
	}

	r := f.create(t, "p1")
	if held, _, _ := f.locks.HeldRide(ctx, "p1", types.RolePassenger); held != r.ID {
		t.Fatalf("pointer = %q, want %q", held, r.ID)
	}
}

func TestContactVisibility(t *testing.T) {
	f := newFixture(t)
	f.passenger(t, "p1")
	f.driver(t, "d1")
	ctx := context.Background()
	r := f.create(t, "p1")

	if _, err := f.svc.SendOffer(ctx, "d1", r.ID, 45); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Contact(ctx, "p1", r.ID, types.RoleDriver); !errors.Is(err, types.ErrContactHidden) {
		t.Fatalf("contact before match err = %v", err)
	}

	if _, err := f.svc.AcceptOffer(ctx, "p1", r.ID); err != nil {
		t.Fatal(err)
	}
	c, err := f.svc.Contact(ctx, "p1", r.ID, types.RoleDriver)
	if err != nil {
		t.Fatal(err)
	}
	if c.Phone != "01200000002" {
		t.Errorf("driver phone = %q", c.Phone)
	}
	c, err = f.svc.Contact(ctx, "d1", r.ID, types.RolePassenger)
	if err != nil || c.Phone != "01000000001" {
		t.Errorf("passenger contact = %+v, err = %v", c, err)
	}
}

func TestListPending(t *testing.T) {
	f := newFixture(t)
	f.passenger(t, "p1")
	f.driver(t, "d1")
	ctx := context.Background()
	r := f.create(t, "p1")

	rides, err := f.svc.ListPending(ctx, "d1", models.PendingFilter{Region: "Cairo", Subregion: "Maadi", VehicleClass: types.VehicleCar})
	if err != nil {
		t.Fatal(err)
	}
	if len(rides) != 1 || rides[0].ID != r.ID {
		t.Fatalf("pending = %+v", rides)
	}

	if _, err := f.svc.ListPending(ctx, "p1", models.PendingFilter{}); !errors.Is(err, types.ErrWrongRole) {
		t.Errorf("passenger list err = %v", err)
	}

	// driver without vehicle data
	if _, err := f.profiles.EnsureProfile(ctx, "d9"); err != nil {
		t.Fatal(err)
	}
	raw := models.RawProfile{ID: "d9", ActiveRole: types.RoleDriver, Driver: &models.DriverAttributes{DisplayName: "x"}}
	if err := memory.NewProfileRepo(memoryOf(t, f)).Save(ctx, raw); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.ListPending(ctx, "d9", models.PendingFilter{}); !errors.Is(err, types.ErrProfileIncomplete) {
		t.Errorf("incomplete driver err = %v", err)
	}
}

func TestMyOpenRideAndHistory(t *testing.T) {
	f := newFixture(t)
	f.passenger(t, "p1")
	f.driver(t, "d1")
	ctx := context.Background()

	if _, err := f.svc.MyOpenRide(ctx, "p1"); !errors.Is(err, types.ErrRideNotFound) {
		t.Fatalf("no ride err = %v", err)
	}

	r := f.create(t, "p1")
	if _, err := f.svc.AcceptDirect(ctx, "d1", r.ID); err != nil {
		t.Fatal(err)
	}

	mine, err := f.svc.MyOpenRide(ctx, "d1")
	if err != nil || mine.ID != r.ID {
		t.Fatalf("driver open ride = %+v, err = %v", mine, err)
	}

	history, err := f.svc.History(ctx, "p1", r.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 2 || history[0].Version != 1 || history[1].Version != 2 {
		t.Fatalf("history = %+v", history)
	}
}

func TestPublishFailureDoesNotFailTransition(t *testing.T) {
	f := newFixture(t)
	f.passenger(t, "p1")
	f.pub.err = errors.New("broker down")

	r := f.create(t, "p1")
	if r.Status != types.StatusPending {
		t.Fatalf("create with broker down = %+v", r)
	}
}

// memoryOf exposes the fixture's store for direct seeding.
func memoryOf(t *testing.T, f *fixture) *memory.DB {
	t.Helper()
	db, ok := f.svc.trm.(*memory.DB)
	if !ok {
		t.Fatalf("tx manager is %T", f.svc.trm)
	}
	return db
}
