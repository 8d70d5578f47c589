package auth

import (
	"context"
	"fmt"

	"github.com/Temutjin2k/ride-lifecycle/internal/domain/models"
	"github.com/Temutjin2k/ride-lifecycle/pkg/logger"
	wrap "github.com/Temutjin2k/ride-lifecycle/pkg/logger/wrapper"
)

// AuthService resolves the caller of a request: the token gives the id, the
// profile gives the active role.
type AuthService struct {
	verifier TokenVerifier
	profiles ProfileEnsurer
	log      logger.Logger
}

func NewAuthService(verifier TokenVerifier, profiles ProfileEnsurer, log logger.Logger) *AuthService {
	return &AuthService{
		verifier: verifier,
		profiles: profiles,
		log:      log,
	}
}

// Authenticate verifies token and makes sure the caller has a profile.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.Identity, error) {
	ctx = wrap.WithAction(ctx, "authenticate")

	userID, err := s.verifier.Verify(ctx, token)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}

	profile, err := s.profiles.EnsureProfile(wrap.WithUserID(ctx, userID), userID)
	if err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("failed to ensure profile: %w", err))
	}

	return &models.Identity{UserID: userID, Role: profile.ActiveRole}, nil
}
