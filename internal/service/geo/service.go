package geo

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/Temutjin2k/ride-lifecycle/internal/domain/models"
	"github.com/Temutjin2k/ride-lifecycle/internal/domain/types"
	"github.com/Temutjin2k/ride-lifecycle/pkg/logger"
	wrap "github.com/Temutjin2k/ride-lifecycle/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-lifecycle/pkg/validator"
)

type Geocoder interface {
	Search(ctx context.Context, query string, near *models.Point) (models.Place, error)
	Reverse(ctx context.Context, lat, lon float64) (string, error)
}

type Router interface {
	Route(ctx context.Context, from, to models.Point) (models.Route, error)
}

const routeCacheSize = 1024

type routeKey struct {
	from, to models.Point
}

// Service proxies geocoding and routing, and prices routes.
type Service struct {
	geocoder Geocoder
	router   Router
	routes   *ttlCache[routeKey, models.Route]
	l        logger.Logger
}

func New(geocoder Geocoder, router Router, routeTTL time.Duration, l logger.Logger) *Service {
	return &Service{
		geocoder: geocoder,
		router:   router,
		routes:   newTTLCache[routeKey, models.Route](routeTTL, routeCacheSize),
		l:        l,
	}
}

func (s *Service) Search(ctx context.Context, query string, near *models.Point) (models.Place, error) {
	query = strings.TrimSpace(query)

	v := validator.New()
	v.Check(query != "", "q", "must be provided")
	if near != nil {
		checkPoint(v, "near", *near)
	}
	if !v.Valid() {
		return models.Place{}, wrap.Error(ctx, types.FieldErrors(v.Errors))
	}

	return s.geocoder.Search(ctx, query, near)
}

func (s *Service) Reverse(ctx context.Context, p models.Point) (string, error) {
	v := validator.New()
	checkPoint(v, "", p)
	if !v.Valid() {
		return "", wrap.Error(ctx, types.FieldErrors(v.Errors))
	}

	return s.geocoder.Reverse(ctx, p.Latitude, p.Longitude)
}

// Route returns a cached route when one between the same points is fresh.
func (s *Service) Route(ctx context.Context, from, to models.Point) (models.Route, error) {
	v := validator.New()
	checkPoint(v, "from", from)
	checkPoint(v, "to", to)
	if !v.Valid() {
		return models.Route{}, wrap.Error(ctx, types.FieldErrors(v.Errors))
	}

	key := routeKey{from: roundPoint(from), to: roundPoint(to)}
	if r, ok := s.routes.Get(key); ok {
		return r, nil
	}

	r, err := s.router.Route(ctx, from, to)
	if err != nil {
		return models.Route{}, err
	}
	s.routes.Set(key, r)
	return r, nil
}

// Estimate prices the route between two points for a vehicle class.
func (s *Service) Estimate(ctx context.Context, from, to models.Point, class types.VehicleClass) (models.Estimate, error) {
	if !class.Valid() {
		return models.Estimate{}, wrap.Error(ctx, types.ErrUnknownVehicle)
	}

	r, err := s.Route(ctx, from, to)
	if err != nil {
		return models.Estimate{}, fmt.Errorf("failed to route: %w", err)
	}

	return models.Estimate{
		Route:        r,
		VehicleClass: class,
		Price:        Price(class, r.DistanceKm()),
	}, nil
}

func checkPoint(v *validator.Validator, prefix string, p models.Point) {
	key := func(name string) string {
		if prefix == "" {
			return name
		}
		return prefix + "." + name
	}
	v.Check(validator.InRange(p.Latitude, -90, 90), key("latitude"), "must be between -90 and 90")
	v.Check(validator.InRange(p.Longitude, -180, 180), key("longitude"), "must be between -180 and 180")
}

// roundPoint snaps to ~1m so near identical requests share a cache entry.
func roundPoint(p models.Point) models.Point {
	const scale = 1e5
	return models.Point{
		Latitude:  math.Round(p.Latitude*scale) / scale,
		Longitude: math.Round(p.Longitude*scale) / scale,
	}
}
