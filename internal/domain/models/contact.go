package models

import (
	"time"

	"github.com/Temutjin2k/ride-lifecycle/internal/domain/types"
)

// PrivateContact holds the phone of one party of a ride.
// It becomes readable to the counterpart only once a match exists.
type PrivateContact struct {
	RideID    string         `json:"ride_id"`
	Role      types.UserRole `json:"role"`
	Phone     string         `json:"phone"`
	UpdatedAt time.Time      `json:"updated_at"`
}
