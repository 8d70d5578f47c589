package geo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/twpayne/go-geom"

	"github.com/Temutjin2k/ride-lifecycle/internal/domain/models"
	"github.com/Temutjin2k/ride-lifecycle/internal/domain/types"
	"github.com/Temutjin2k/ride-lifecycle/pkg/logger"
)

type countingRouter struct {
	calls int
	err   error
}

func (r *countingRouter) Route(_ context.Context, from, to models.Point) (models.Route, error) {
	r.calls++
	if r.err != nil {
		return models.Route{}, r.err
	}
	path := geom.NewLineStringFlat(geom.XY, []float64{from.Longitude, from.Latitude, to.Longitude, to.Latitude})
	return models.Route{DistanceMeters: 12500, DurationSeconds: 900, Path: path}, nil
}

type stubGeocoder struct{}

func (stubGeocoder) Search(_ context.Context, q string, _ *models.Point) (models.Place, error) {
	return models.Place{Latitude: 30, Longitude: 31, Label: q}, nil
}

func (stubGeocoder) Reverse(context.Context, float64, float64) (string, error) {
	return "somewhere", nil
}

func TestPrice(t *testing.T) {
	tests := []struct {
		class types.VehicleClass
		km    float64
		want  float64
	}{
		{types.VehicleTuktuk, 2.5, 20},
		{types.VehicleMotorDelivery, 0, 12},
		{types.VehicleCar, 12.5, 93},
		{types.VehicleMicrobus, 10, 105},
		{types.VehicleTamanya, 3.3, 45},
		{types.VehicleCaboot, 1.04, 40},
		{"unknown", 2, 25},
	}
	for _, tt := range tests {
		if got := Price(tt.class, tt.km); got != tt.want {
			t.Errorf("Price(%s, %v) = %v, want %v", tt.class, tt.km, got, tt.want)
		}
	}
}

func TestEstimate(t *testing.T) {
	router := &countingRouter{}
	svc := New(stubGeocoder{}, router, time.Minute, logger.Nop())
	ctx := context.Background()
	from := models.Point{Latitude: 30.0444, Longitude: 31.2357}
	to := models.Point{Latitude: 30.0131, Longitude: 31.2089}

	est, err := svc.Estimate(ctx, from, to, types.VehicleCar)
	if err != nil {
		t.Fatal(err)
	}
	if est.Price != 93 || est.Route.DistanceMeters != 12500 {
		t.Fatalf("estimate = %+v", est)
	}

	// same points within rounding hit the cache
	if _, err := svc.Estimate(ctx, models.Point{Latitude: 30.044401, Longitude: 31.235701}, to, types.VehicleTuktuk); err != nil {
		t.Fatal(err)
	}
	if router.calls != 1 {
		t.Errorf("router calls = %d, want 1", router.calls)
	}

	if _, err := svc.Estimate(ctx, from, to, "spaceship"); !errors.Is(err, types.ErrUnknownVehicle) {
		t.Errorf("unknown class err = %v", err)
	}
}

func TestRoute_ErrorsAreNotCached(t *testing.T) {
	router := &countingRouter{err: types.ErrExternalTimeout}
	svc := New(stubGeocoder{}, router, time.Minute, logger.Nop())
	p := models.Point{Latitude: 1, Longitude: 1}

	for range 2 {
		if _, err := svc.Route(context.Background(), p, p); !errors.Is(err, types.ErrTransient) {
			t.Fatalf("err = %v", err)
		}
	}
	if router.calls != 2 {
		t.Errorf("router calls = %d, want 2", router.calls)
	}
}

func TestValidation(t *testing.T) {
	svc := New(stubGeocoder{}, &countingRouter{}, time.Minute, logger.Nop())
	ctx := context.Background()

	if _, err := svc.Search(ctx, "  ", nil); !errors.Is(err, types.ErrValidation) {
		t.Errorf("empty query err = %v", err)
	}
	if _, err := svc.Reverse(ctx, models.Point{Latitude: 100}); !errors.Is(err, types.ErrValidation) {
		t.Errorf("bad reverse err = %v", err)
	}
	if _, err := svc.Route(ctx, models.Point{Longitude: 200}, models.Point{}); !errors.Is(err, types.ErrValidation) {
		t.Errorf("bad route err = %v", err)
	}
}

func TestTTLCache(t *testing.T) {
	now := time.Now()
	c := newTTLCache[string, int](time.Minute, 2)
	c.now = func() time.Time { return now }

	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)
	if len(c.items) > 2 {
		t.Fatalf("cache grew past max: %d", len(c.items))
	}
	if v, ok := c.Get("c"); !ok || v != 3 {
		t.Fatalf("c = %v %v", v, ok)
	}

	now = now.Add(2 * time.Minute)
	if _, ok := c.Get("c"); ok {
		t.Fatal("expired entry returned")
	}
}
