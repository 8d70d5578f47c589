package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/Temutjin2k/ride-lifecycle/internal/domain/models"
	"github.com/Temutjin2k/ride-lifecycle/internal/domain/types"
	"github.com/Temutjin2k/ride-lifecycle/pkg/logger"
	wrap "github.com/Temutjin2k/ride-lifecycle/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-lifecycle/pkg/validator"
)

type Geo struct {
	service GeoService
	l       logger.Logger
}

type GeoService interface {
	Search(ctx context.Context, query string, near *models.Point) (models.Place, error)
	Reverse(ctx context.Context, p models.Point) (string, error)
	Route(ctx context.Context, from, to models.Point) (models.Route, error)
	Estimate(ctx context.Context, from, to models.Point, class types.VehicleClass) (models.Estimate, error)
}

func NewGeo(service GeoService, l logger.Logger) *Geo {
	return &Geo{
		service: service,
		l:       l,
	}
}

// Search godoc
// @Summary      Geocode
// @Description  Best match for a free-text query, optionally biased near a point
// @Tags         Geo
// @Produce      json
// @Param        q         query     string   true   "Query"
// @Param        near_lat  query     number   false  "Bias latitude"
// @Param        near_lng  query     number   false  "Bias longitude"
// @Success      200       {object}  models.Place
// @Failure      404       {object}  map[string]string
// @Failure      503       {object}  map[string]string
// @Router       /geo/search [get]
func (h *Geo) Search(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "geo_search")

	v := validator.New()
	var near *models.Point
	if p, ok := optionalPoint(v, r, "near_lat", "near_lng"); ok {
		near = &p
	}
	if !v.Valid() {
		failedValidationResponse(w, v.Errors)
		return
	}

	place, err := h.service.Search(ctx, r.URL.Query().Get("q"), near)
	if err != nil {
		serviceErrorResponse(ctx, w, h.l, "failed to geocode", err)
		return
	}

	h.write(ctx, w, envelope{"place": place})
}

// Reverse godoc
// @Summary      Reverse geocode
// @Tags         Geo
// @Produce      json
// @Param        lat  query     number  true  "Latitude"
// @Param        lng  query     number  true  "Longitude"
// @Success      200  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /geo/reverse [get]
func (h *Geo) Reverse(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "geo_reverse")

	v := validator.New()
	p := requiredPoint(v, r, "lat", "lng")
	if !v.Valid() {
		failedValidationResponse(w, v.Errors)
		return
	}

	label, err := h.service.Reverse(ctx, p)
	if err != nil {
		serviceErrorResponse(ctx, w, h.l, "failed to reverse geocode", err)
		return
	}

	h.write(ctx, w, envelope{"label": label})
}

// Route godoc
// @Summary      Driving route
// @Tags         Geo
// @Produce      json
// @Param        from_lat  query     number  true  "Origin latitude"
// @Param        from_lng  query     number  true  "Origin longitude"
// @Param        to_lat    query     number  true  "Destination latitude"
// @Param        to_lng    query     number  true  "Destination longitude"
// @Success      200       {object}  map[string]any
// @Failure      404       {object}  map[string]string
// @Router       /geo/route [get]
func (h *Geo) Route(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "geo_route")

	v := validator.New()
	from := requiredPoint(v, r, "from_lat", "from_lng")
	to := requiredPoint(v, r, "to_lat", "to_lng")
	if !v.Valid() {
		failedValidationResponse(w, v.Errors)
		return
	}

	route, err := h.service.Route(ctx, from, to)
	if err != nil {
		serviceErrorResponse(ctx, w, h.l, "failed to route", err)
		return
	}

	h.write(ctx, w, envelope{"route": route})
}

// Estimate godoc
// @Summary      Price estimate
// @Description  Route between two points priced for a vehicle class
// @Tags         Geo
// @Produce      json
// @Param        from_lat       query     number  true  "Origin latitude"
// @Param        from_lng       query     number  true  "Origin longitude"
// @Param        to_lat         query     number  true  "Destination latitude"
// @Param        to_lng         query     number  true  "Destination longitude"
// @Param        vehicle_class  query     string  true  "Vehicle class"
// @Success      200            {object}  map[string]any
// @Router       /geo/estimate [get]
func (h *Geo) Estimate(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "geo_estimate")

	v := validator.New()
	from := requiredPoint(v, r, "from_lat", "from_lng")
	to := requiredPoint(v, r, "to_lat", "to_lng")
	class := types.VehicleClass(strings.TrimSpace(r.URL.Query().Get("vehicle_class")))
	v.Check(class.Valid(), "vehicle_class", "must be a known vehicle class")
	if !v.Valid() {
		failedValidationResponse(w, v.Errors)
		return
	}

	est, err := h.service.Estimate(ctx, from, to, class)
	if err != nil {
		serviceErrorResponse(ctx, w, h.l, "failed to estimate", err)
		return
	}

	h.write(ctx, w, envelope{"estimate": est})
}

func (h *Geo) write(ctx context.Context, w http.ResponseWriter, data any) {
	if err := writeJSON(w, http.StatusOK, data, nil); err != nil {
		h.l.Error(ctx, "failed to write response", err)
		internalErrorResponse(w)
	}
}

// requiredPoint reads a coordinate pair, recording missing or malformed values in v.
func requiredPoint(v *validator.Validator, r *http.Request, latKey, lngKey string) models.Point {
	p, ok := optionalPoint(v, r, latKey, lngKey)
	if !ok {
		v.Check(r.URL.Query().Has(latKey), latKey, "must be provided")
		v.Check(r.URL.Query().Has(lngKey), lngKey, "must be provided")
	}
	return p
}

// optionalPoint reads a coordinate pair. ok is false unless both values parse.
func optionalPoint(v *validator.Validator, r *http.Request, latKey, lngKey string) (models.Point, bool) {
	lat, hasLat, err := queryFloat(r, latKey)
	if err != nil {
		v.AddError(latKey, "must be a number")
	}
	lng, hasLng, err := queryFloat(r, lngKey)
	if err != nil {
		v.AddError(lngKey, "must be a number")
	}
	if hasLat != hasLng {
		v.AddError(latKey, "must be given together with "+lngKey)
	}
	if !hasLat || !hasLng {
		return models.Point{}, false
	}
	return models.Point{Latitude: lat, Longitude: lng}, true
}
