package dto

import (
	"github.com/Temutjin2k/ride-lifecycle/internal/service/relay"
	"github.com/Temutjin2k/ride-lifecycle/pkg/validator"
)

type PositionRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Heading   float64  `json:"heading"`
	Speed     float64  `json:"speed"`
}

// Validate checks presence only. The relay checks ranges.
func (r *PositionRequest) Validate(v *validator.Validator) {
	v.Check(r.Latitude != nil, "latitude", "must be provided")
	v.Check(r.Longitude != nil, "longitude", "must be provided")
}

func (r *PositionRequest) ToModel() relay.PositionInput {
	in := relay.PositionInput{Heading: r.Heading, Speed: r.Speed}
	if r.Latitude != nil {
		in.Latitude = *r.Latitude
	}
	if r.Longitude != nil {
		in.Longitude = *r.Longitude
	}
	return in
}
