package models

import (
	"time"

	"github.com/Temutjin2k/ride-lifecycle/internal/domain/types"
)

// PassengerAttributes are the passenger half of a profile.
type PassengerAttributes struct {
	DisplayName string `json:"display_name" firestore:"displayName"`
	Phone       string `json:"phone" firestore:"phone"`
	Region      string `json:"region" firestore:"region"`
	Subregion   string `json:"subregion" firestore:"subregion"`
}

// DriverAttributes are the driver half of a profile.
type DriverAttributes struct {
	DisplayName string             `json:"display_name" firestore:"displayName"`
	Phone       string             `json:"phone" firestore:"phone"`
	Region      string             `json:"region" firestore:"region"`
	Subregion   string             `json:"subregion" firestore:"subregion"`
	VehicleType types.VehicleClass `json:"vehicle_type" firestore:"vehicleType"`
	VehicleCode string             `json:"vehicle_code" firestore:"vehicleCode"`
}

// UserProfile is the canonical profile. Only Normalize produces it from storage.
type UserProfile struct {
	ID         string               `json:"id"`
	ActiveRole types.UserRole       `json:"active_role"`
	Passenger  *PassengerAttributes `json:"passenger,omitempty"`
	Driver     *DriverAttributes    `json:"driver,omitempty"`
	CreatedAt  time.Time            `json:"created_at"`
	UpdatedAt  time.Time            `json:"updated_at"`
}

// CanListPendingWork reports whether the driver half is complete enough to match.
func (p UserProfile) CanListPendingWork() bool {
	return p.ActiveRole == types.RoleDriver &&
		p.Driver != nil &&
		p.Driver.VehicleType != "" &&
		p.Driver.VehicleCode != ""
}

// Summary is the snapshot copied into a ride for the given role.
func (p UserProfile) Summary(role types.UserRole) PartySummary {
	switch role {
	case types.RoleDriver:
		if p.Driver == nil {
			return PartySummary{}
		}
		return PartySummary{
			Name:        p.Driver.DisplayName,
			VehicleType: p.Driver.VehicleType,
			VehicleCode: p.Driver.VehicleCode,
		}
	default:
		if p.Passenger == nil {
			return PartySummary{}
		}
		return PartySummary{Name: p.Passenger.DisplayName}
	}
}

// Phone returns the phone of the given role half, or "".
func (p UserProfile) Phone(role types.UserRole) string {
	switch role {
	case types.RoleDriver:
		if p.Driver != nil {
			return p.Driver.Phone
		}
	case types.RolePassenger:
		if p.Passenger != nil {
			return p.Passenger.Phone
		}
	}
	return ""
}

// Raw converts the profile to its stored form. Legacy keys are never written back.
func (p UserProfile) Raw() RawProfile {
	return RawProfile{
		ID:         p.ID,
		ActiveRole: p.ActiveRole,
		Passenger:  clonePtr(p.Passenger),
		Driver:     clonePtr(p.Driver),
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
}

// RawProfile is the persisted profile document. Older clients wrote flat keys
// which are still accepted on read.
type RawProfile struct {
	ID         string               `json:"id" firestore:"id"`
	ActiveRole types.UserRole       `json:"activeRole,omitempty" firestore:"activeRole,omitempty"`
	Passenger  *PassengerAttributes `json:"passenger,omitempty" firestore:"passenger,omitempty"`
	Driver     *DriverAttributes    `json:"driver,omitempty" firestore:"driver,omitempty"`
	CreatedAt  time.Time            `json:"createdAt" firestore:"createdAt"`
	UpdatedAt  time.Time            `json:"updatedAt" firestore:"updatedAt"`

	// legacy flat keys
	Role              types.UserRole     `json:"role,omitempty" firestore:"role,omitempty"`
	DriverVehicleType types.VehicleClass `json:"driverVehicleType,omitempty" firestore:"driverVehicleType,omitempty"`
	VehicleCode       string             `json:"vehicleCode,omitempty" firestore:"vehicleCode,omitempty"`
	Name              string             `json:"name,omitempty" firestore:"name,omitempty"`
	Phone             string             `json:"phone,omitempty" firestore:"phone,omitempty"`
	Governorate       string             `json:"governorate,omitempty" firestore:"governorate,omitempty"`
	Center            string             `json:"center,omitempty" firestore:"center,omitempty"`
}

// Normalize folds legacy keys into the canonical profile.
func (r RawProfile) Normalize() UserProfile {
	p := UserProfile{
		ID:         r.ID,
		ActiveRole: r.ActiveRole,
		Passenger:  clonePtr(r.Passenger),
		Driver:     clonePtr(r.Driver),
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}

	if !p.ActiveRole.Valid() {
		p.ActiveRole = r.Role
	}
	if !p.ActiveRole.Valid() {
		p.ActiveRole = types.RolePassenger
	}

	legacyDriver := r.Role == types.RoleDriver || r.DriverVehicleType != "" || r.VehicleCode != ""

	if p.Driver == nil && legacyDriver {
		p.Driver = &DriverAttributes{
			DisplayName: r.Name,
			Phone:       r.Phone,
			Region:      r.Governorate,
			Subregion:   r.Center,
		}
	}
	if p.Driver != nil {
		if p.Driver.VehicleType == "" {
			p.Driver.VehicleType = r.DriverVehicleType
		}
		if p.Driver.VehicleCode == "" {
			p.Driver.VehicleCode = r.VehicleCode
		}
	}

	if p.Passenger == nil && !legacyDriver && (r.Name != "" || r.Phone != "") {
		p.Passenger = &PassengerAttributes{
			DisplayName: r.Name,
			Phone:       r.Phone,
			Region:      r.Governorate,
			Subregion:   r.Center,
		}
	}

	return p
}
