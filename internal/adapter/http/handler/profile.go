package handler

import (
	"context"
	"net/http"

	"github.com/Temutjin2k/ride-lifecycle/internal/adapter/http/handler/dto"
	"github.com/Temutjin2k/ride-lifecycle/internal/domain/models"
	"github.com/Temutjin2k/ride-lifecycle/internal/domain/types"
	"github.com/Temutjin2k/ride-lifecycle/internal/service/profile"
	"github.com/Temutjin2k/ride-lifecycle/pkg/logger"
	wrap "github.com/Temutjin2k/ride-lifecycle/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-lifecycle/pkg/validator"
)

type Profile struct {
	service ProfileService
	l       logger.Logger
}

type ProfileService interface {
	Get(ctx context.Context, userID string) (models.UserProfile, error)
	UpdateAttributes(ctx context.Context, userID string, req profile.UpdateAttributesRequest) (models.UserProfile, error)
	SwitchRole(ctx context.Context, userID string, role types.UserRole) (models.UserProfile, error)
}

func NewProfile(service ProfileService, l logger.Logger) *Profile {
	return &Profile{
		service: service,
		l:       l,
	}
}

// GetMe godoc
// @Summary      Own profile
// @Tags         Profiles
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  dto.ProfileResponse
// @Failure      401  {object}  map[string]string
// @Router       /profiles/me [get]
func (h *Profile) GetMe(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "get_profile")

	p, err := h.service.Get(ctx, models.IdentityFromContext(ctx).UserID)
	if err != nil {
		serviceErrorResponse(ctx, w, h.l, "failed to get profile", err)
		return
	}

	h.writeProfile(ctx, w, p)
}

// UpdateMe godoc
// @Summary      Update profile
// @Description  Replaces the passenger and/or driver attributes
// @Tags         Profiles
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      dto.UpdateProfileRequest  true  "Attributes"
// @Success      200      {object}  dto.ProfileResponse
// @Failure      422      {object}  map[string]any
// @Router       /profiles/me [put]
func (h *Profile) UpdateMe(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "update_profile")

	var req dto.UpdateProfileRequest
	if err := readJSON(w, r, &req); err != nil {
		h.l.Warn(ctx, "failed to read request JSON data", "error", err.Error())
		badRequestResponse(w, err.Error())
		return
	}

	p, err := h.service.UpdateAttributes(ctx, models.IdentityFromContext(ctx).UserID, req.ToModel())
	if err != nil {
		serviceErrorResponse(ctx, w, h.l, "failed to update profile", err)
		return
	}

	h.l.Info(ctx, "profile updated")
	h.writeProfile(ctx, w, p)
}

// SwitchRole godoc
// @Summary      Switch active role
// @Tags         Profiles
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      dto.SwitchRoleRequest  true  "Role"
// @Success      200      {object}  dto.ProfileResponse
// @Failure      422      {object}  map[string]any
// @Router       /profiles/me/role [post]
func (h *Profile) SwitchRole(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "switch_role")

	var req dto.SwitchRoleRequest
	if err := readJSON(w, r, &req); err != nil {
		h.l.Warn(ctx, "failed to read request JSON data", "error", err.Error())
		badRequestResponse(w, err.Error())
		return
	}

	v := validator.New()
	req.Validate(v)
	if !v.Valid() {
		failedValidationResponse(w, v.Errors)
		return
	}

	p, err := h.service.SwitchRole(ctx, models.IdentityFromContext(ctx).UserID, types.UserRole(req.Role))
	if err != nil {
		serviceErrorResponse(ctx, w, h.l, "failed to switch role", err)
		return
	}

	h.l.Info(ctx, "active role switched", "role", p.ActiveRole)
	h.writeProfile(ctx, w, p)
}

func (h *Profile) writeProfile(ctx context.Context, w http.ResponseWriter, p models.UserProfile) {
	if err := writeJSON(w, http.StatusOK, dto.ProfileResponse{Profile: p}, nil); err != nil {
		h.l.Error(ctx, "failed to write response", err)
		internalErrorResponse(w)
	}
}
