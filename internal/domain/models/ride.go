package models

import (
	"time"

	"github.com/Temutjin2k/ride-lifecycle/internal/domain/types"
)

// Place is a point with a human readable label.
type Place struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Label     string  `json:"label"`
}

// PartySummary is a display snapshot copied into the ride at match time.
type PartySummary struct {
	Name        string             `json:"name"`
	VehicleType types.VehicleClass `json:"vehicle_type,omitempty"`
	VehicleCode string             `json:"vehicle_code,omitempty"`
}

// Offer is a driver-proposed price awaiting the passenger.
type Offer struct {
	DriverID  string       `json:"driver_id"`
	Price     float64      `json:"price"`
	Driver    PartySummary `json:"driver"`
	CreatedAt time.Time    `json:"created_at"`
}

// ActorRef names who performed an audited action.
type ActorRef struct {
	ID   string         `json:"id"`
	Role types.UserRole `json:"role"`
}

// CancelMeta is the audit record of a cancellation.
type CancelMeta struct {
	Reason string         `json:"reason,omitempty"`
	ByRole types.UserRole `json:"by_role"`
	ByID   string         `json:"by_id"`
}

// Ride is the single record mutated through the lifecycle.
type Ride struct {
	ID          string           `json:"ride_id"`
	PassengerID string           `json:"passenger_id"`
	DriverID    *string          `json:"driver_id"`
	Status      types.RideStatus `json:"status"`

	Origin      Place `json:"origin"`
	Destination Place `json:"destination"`

	// matching filters
	Region       string             `json:"region"`
	Subregion    string             `json:"subregion"`
	VehicleClass types.VehicleClass `json:"vehicle_class"`

	ProposedPrice float64  `json:"proposed_price"`
	Offer         *Offer   `json:"offer"`
	FinalPrice    *float64 `json:"final_price"`

	PassengerSummary *PartySummary `json:"passenger_summary,omitempty"`
	DriverSummary    *PartySummary `json:"driver_summary,omitempty"`

	Cancel      *CancelMeta `json:"cancel,omitempty"`
	CompletedBy *ActorRef   `json:"completed_by,omitempty"`

	// FormerDriverID is the driver that was assigned when the ride was cancelled.
	FormerDriverID *string `json:"former_driver_id,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	AcceptedAt  *time.Time `json:"accepted_at,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`

	// Version grows by one on every committed transition.
	Version int64 `json:"version"`
}

// Clone returns a deep copy so callers never share pointer fields.
func (r Ride) Clone() Ride {
	out := r
	out.DriverID = clonePtr(r.DriverID)
	out.FormerDriverID = clonePtr(r.FormerDriverID)
	out.FinalPrice = clonePtr(r.FinalPrice)
	out.PassengerSummary = clonePtr(r.PassengerSummary)
	out.DriverSummary = clonePtr(r.DriverSummary)
	out.Cancel = clonePtr(r.Cancel)
	out.CompletedBy = clonePtr(r.CompletedBy)
	out.AcceptedAt = clonePtr(r.AcceptedAt)
	out.StartedAt = clonePtr(r.StartedAt)
	out.CompletedAt = clonePtr(r.CompletedAt)
	out.CancelledAt = clonePtr(r.CancelledAt)
	if r.Offer != nil {
		o := *r.Offer
		out.Offer = &o
	}
	return out
}

// WasDriver reports whether userID was assigned to the ride before it was cancelled.
func (r Ride) WasDriver(userID string) bool {
	return r.FormerDriverID != nil && *r.FormerDriverID == userID
}

// IsDriver reports whether userID is the assigned driver.
func (r Ride) IsDriver(userID string) bool {
	return r.DriverID != nil && *r.DriverID == userID
}

// IsOfferingDriver reports whether userID holds the pending offer.
func (r Ride) IsOfferingDriver(userID string) bool {
	return r.Offer != nil && r.Offer.DriverID == userID
}

// PendingFilter selects the matching queue of a driver.
type PendingFilter struct {
	Region       string
	Subregion    string
	VehicleClass types.VehicleClass
	Limit        int
}

// DefaultQueueLimit bounds the matching queue.
const DefaultQueueLimit = 25

// Matches reports whether a pending ride belongs to the filter.
func (f PendingFilter) Matches(r Ride) bool {
	return r.Status == types.StatusPending &&
		r.Region == f.Region &&
		r.Subregion == f.Subregion &&
		r.VehicleClass == f.VehicleClass
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
