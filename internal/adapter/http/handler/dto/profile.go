package dto

import (
	"github.com/Temutjin2k/ride-lifecycle/internal/domain/models"
	"github.com/Temutjin2k/ride-lifecycle/internal/domain/types"
	"github.com/Temutjin2k/ride-lifecycle/internal/service/profile"
	"github.com/Temutjin2k/ride-lifecycle/pkg/validator"
)

type UpdateProfileRequest struct {
	Passenger *models.PassengerAttributes `json:"passenger"`
	Driver    *models.DriverAttributes    `json:"driver"`
}

func (r *UpdateProfileRequest) ToModel() profile.UpdateAttributesRequest {
	return profile.UpdateAttributesRequest{
		Passenger: r.Passenger,
		Driver:    r.Driver,
	}
}

type SwitchRoleRequest struct {
	Role string `json:"role"`
}

func (r *SwitchRoleRequest) Validate(v *validator.Validator) {
	v.Check(validator.PermittedValue(r.Role, string(types.RolePassenger), string(types.RoleDriver)), "role", "must be passenger or driver")
}

type ProfileResponse struct {
	Profile models.UserProfile `json:"profile"`
}
