package dto

import (
	"strings"

	"github.com/Temutjin2k/ride-lifecycle/internal/domain/lifecycle"
	"github.com/Temutjin2k/ride-lifecycle/internal/domain/models"
	"github.com/Temutjin2k/ride-lifecycle/internal/domain/types"
	"github.com/Temutjin2k/ride-lifecycle/pkg/validator"
)

type PlaceRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Label     string   `json:"label"`
}

func (p *PlaceRequest) validate(v *validator.Validator, key string) {
	if p == nil {
		v.AddError(key, "must be provided")
		return
	}
	v.Check(p.Latitude != nil, key+".latitude", "must be provided")
	v.Check(p.Longitude != nil, key+".longitude", "must be provided")
	v.Check(len(p.Label) <= 255, key+".label", "must not be more than 255 characters long")
}

func (p *PlaceRequest) toModel() models.Place {
	if p == nil || p.Latitude == nil || p.Longitude == nil {
		return models.Place{}
	}
	return models.Place{
		Latitude:  *p.Latitude,
		Longitude: *p.Longitude,
		Label:     strings.TrimSpace(p.Label),
	}
}

type CreateRideRequest struct {
	Origin        *PlaceRequest `json:"origin"`
	Destination   *PlaceRequest `json:"destination"`
	Region        string        `json:"region"`
	Subregion     string        `json:"subregion"`
	VehicleClass  string        `json:"vehicle_class"`
	ProposedPrice *float64      `json:"proposed_price"`
}

// Validate checks presence only. Ranges are checked by the lifecycle.
func (r *CreateRideRequest) Validate(v *validator.Validator) {
	r.Origin.validate(v, "origin")
	r.Destination.validate(v, "destination")
	v.Check(strings.TrimSpace(r.Region) != "", "region", "must be provided")
	v.Check(strings.TrimSpace(r.Subregion) != "", "subregion", "must be provided")
	v.Check(r.VehicleClass != "", "vehicle_class", "must be provided")
	v.Check(r.ProposedPrice != nil, "proposed_price", "must be provided")
}

func (r *CreateRideRequest) ToModel() lifecycle.CreateRequest {
	req := lifecycle.CreateRequest{
		Origin:       r.Origin.toModel(),
		Destination:  r.Destination.toModel(),
		Region:       strings.TrimSpace(r.Region),
		Subregion:    strings.TrimSpace(r.Subregion),
		VehicleClass: types.VehicleClass(r.VehicleClass),
	}
	if r.ProposedPrice != nil {
		req.ProposedPrice = *r.ProposedPrice
	}
	return req
}

type OfferRequest struct {
	Price *float64 `json:"price"`
}

func (r *OfferRequest) Validate(v *validator.Validator) {
	v.Check(r.Price != nil, "price", "must be provided")
}

type CancelRideRequest struct {
	Reason string `json:"reason"`
}

// Reason is optional.
func (r *CancelRideRequest) Validate(v *validator.Validator) {
	v.Check(len(r.Reason) <= 500, "reason", "must not be more than 500 characters long")
}

// PendingQuery is the queue filter read from the query string.
type PendingQuery struct {
	Region       string
	Subregion    string
	VehicleClass string
}

func (q *PendingQuery) Validate(v *validator.Validator) {
	v.Check(q.Region != "", "region", "must be provided")
	v.Check(q.Subregion != "", "subregion", "must be provided")
	v.Check(types.VehicleClass(q.VehicleClass).Valid(), "vehicle_class", "must be a known vehicle class")
}

func (q *PendingQuery) ToModel() models.PendingFilter {
	return models.PendingFilter{
		Region:       q.Region,
		Subregion:    q.Subregion,
		VehicleClass: types.VehicleClass(q.VehicleClass),
		Limit:        models.DefaultQueueLimit,
	}
}

// RideResponse wraps a ride for the client.
type RideResponse struct {
	Ride models.Ride `json:"ride"`
}

type RideListResponse struct {
	Rides []models.Ride `json:"rides"`
}

type HistoryResponse struct {
	Events []models.RideEventMessage `json:"events"`
}
