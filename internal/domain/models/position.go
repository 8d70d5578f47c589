package models

import "time"

// LivePosition is the latest known driver position of an active ride.
type LivePosition struct {
	RideID    string    `json:"ride_id"`
	DriverID  string    `json:"driver_id"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Heading   float64   `json:"heading"`
	Speed     float64   `json:"speed"`
	UpdatedAt time.Time `json:"updated_at"`
}
