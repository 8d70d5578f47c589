package models

import (
	"encoding/json"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/Temutjin2k/ride-lifecycle/internal/domain/types"
)

// Point is a bare coordinate.
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Route is a driving path between two points.
type Route struct {
	DistanceMeters  float64
	DurationSeconds float64
	Path            *geom.LineString
}

type routeJSON struct {
	DistanceMeters  float64         `json:"distance_m"`
	DurationSeconds float64         `json:"duration_s"`
	Geometry        json.RawMessage `json:"geometry"`
}

// MarshalJSON writes the path as a GeoJSON LineString.
func (r Route) MarshalJSON() ([]byte, error) {
	out := routeJSON{
		DistanceMeters:  r.DistanceMeters,
		DurationSeconds: r.DurationSeconds,
		Geometry:        json.RawMessage("null"),
	}
	if r.Path != nil {
		g, err := geojson.Encode(r.Path)
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(g)
		if err != nil {
			return nil, err
		}
		out.Geometry = raw
	}
	return json.Marshal(out)
}

// DistanceKm is the route length in kilometres.
func (r Route) DistanceKm() float64 {
	return r.DistanceMeters / 1000
}

// Estimate is a priced route.
type Estimate struct {
	Route        Route              `json:"route"`
	VehicleClass types.VehicleClass `json:"vehicle_class"`
	Price        float64            `json:"price"`
}
