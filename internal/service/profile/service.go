package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Temutjin2k/ride-lifecycle/internal/domain/models"
	"github.com/Temutjin2k/ride-lifecycle/internal/domain/types"
	"github.com/Temutjin2k/ride-lifecycle/pkg/logger"
	wrap "github.com/Temutjin2k/ride-lifecycle/pkg/logger/wrapper"
	"github.com/Temutjin2k/ride-lifecycle/pkg/trm"
	"github.com/Temutjin2k/ride-lifecycle/pkg/validator"
)

// Service owns user profiles. Every read passes through Normalize.
type Service struct {
	repo ProfileRepo
	trm  trm.TxManager
	now  func() time.Time
	l    logger.Logger
}

func New(repo ProfileRepo, trm trm.TxManager, l logger.Logger) *Service {
	return &Service{
		repo: repo,
		trm:  trm,
		now:  time.Now,
		l:    l,
	}
}

// Get returns the normalized profile of userID.
func (s *Service) Get(ctx context.Context, userID string) (models.UserProfile, error) {
	raw, err := s.repo.Get(ctx, userID)
	if err != nil {
		return models.UserProfile{}, wrap.Error(ctx, fmt.Errorf("failed to get profile: %w", err))
	}
	return raw.Normalize(), nil
}

// EnsureProfile returns the profile of userID, creating a passenger profile on first sight.
func (s *Service) EnsureProfile(ctx context.Context, userID string) (models.UserProfile, error) {
	ctx = wrap.WithAction(wrap.WithUserID(ctx, userID), "ensure_profile")

	raw, err := s.repo.Get(ctx, userID)
	if err == nil {
		return raw.Normalize(), nil
	}
	if !errors.Is(err, types.ErrProfileNotFound) {
		return models.UserProfile{}, wrap.Error(ctx, fmt.Errorf("failed to get profile: %w", err))
	}

	now := s.now().UTC()
	raw, err = s.repo.CreateIfAbsent(ctx, models.RawProfile{
		ID:         userID,
		ActiveRole: types.RolePassenger,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		return models.UserProfile{}, wrap.Error(ctx, fmt.Errorf("failed to create profile: %w", err))
	}

	s.l.Info(ctx, "profile created")
	return raw.Normalize(), nil
}

// UpdateAttributesRequest replaces the given role halves. Nil halves are left alone.
type UpdateAttributesRequest struct {
	Passenger *models.PassengerAttributes
	Driver    *models.DriverAttributes
}

func (r UpdateAttributesRequest) Validate() error {
	v := validator.New()
	v.Check(r.Passenger != nil || r.Driver != nil, "profile", "passenger or driver attributes must be provided")

	if p := r.Passenger; p != nil {
		v.Check(strings.TrimSpace(p.DisplayName) != "", "passenger.display_name", "must be provided")
		v.Check(p.Phone == "" || validator.Matches(p.Phone, validator.PhoneRX), "passenger.phone", "must be 11 digits starting with 01")
	}
	if d := r.Driver; d != nil {
		v.Check(strings.TrimSpace(d.DisplayName) != "", "driver.display_name", "must be provided")
		v.Check(validator.Matches(d.Phone, validator.PhoneRX), "driver.phone", "must be 11 digits starting with 01")
		v.Check(d.Region != "", "driver.region", "must be provided")
		v.Check(d.Subregion != "", "driver.subregion", "must be provided")
		v.Check(d.VehicleType.Valid(), "driver.vehicle_type", "must be a known vehicle class")
		v.Check(strings.TrimSpace(d.VehicleCode) != "", "driver.vehicle_code", "must be provided")
	}

	if !v.Valid() {
		return types.FieldErrors(v.Errors)
	}
	return nil
}

// UpdateAttributes stores new role attributes for the owner.
func (s *Service) UpdateAttributes(ctx context.Context, userID string, req UpdateAttributesRequest) (models.UserProfile, error) {
	ctx = wrap.WithAction(wrap.WithUserID(ctx, userID), "update_profile")

	if err := req.Validate(); err != nil {
		return models.UserProfile{}, wrap.Error(ctx, err)
	}

	var out models.UserProfile
	err := s.trm.Do(ctx, func(ctx context.Context) error {
		raw, err := s.repo.Get(ctx, userID)
		if err != nil {
			return wrap.Error(ctx, fmt.Errorf("failed to get profile: %w", err))
		}

		p := raw.Normalize()
		if req.Passenger != nil {
			attrs := *req.Passenger
			p.Passenger = &attrs
		}
		if req.Driver != nil {
			attrs := *req.Driver
			p.Driver = &attrs
		}
		p.UpdatedAt = s.now().UTC()

		if err := s.repo.Save(ctx, p.Raw()); err != nil {
			return wrap.Error(ctx, fmt.Errorf("failed to save profile: %w", err))
		}
		out = p
		return nil
	})
	if err != nil {
		return models.UserProfile{}, err
	}

	return out, nil
}

// SwitchRole changes the active role. A driver role needs driver attributes first.
func (s *Service) SwitchRole(ctx context.Context, userID string, role types.UserRole) (models.UserProfile, error) {
	ctx = wrap.WithAction(wrap.WithUserID(ctx, userID), "switch_role")

	if !role.Valid() {
		return models.UserProfile{}, wrap.Error(ctx, types.ErrInvalidRole)
	}

	var out models.UserProfile
	err := s.trm.Do(ctx, func(ctx context.Context) error {
		raw, err := s.repo.Get(ctx, userID)
		if err != nil {
			return wrap.Error(ctx, fmt.Errorf("failed to get profile: %w", err))
		}

		p := raw.Normalize()
		if role == types.RoleDriver && p.Driver == nil {
			return wrap.Error(ctx, types.ErrMissingAttributes)
		}
		if p.ActiveRole == role {
			out = p
			return nil
		}

		p.ActiveRole = role
		p.UpdatedAt = s.now().UTC()
		if err := s.repo.Save(ctx, p.Raw()); err != nil {
			return wrap.Error(ctx, fmt.Errorf("failed to save profile: %w", err))
		}
		out = p
		return nil
	})
	if err != nil {
		return models.UserProfile{}, err
	}

	s.l.Info(ctx, "active role switched", "role", role)
	return out, nil
}
