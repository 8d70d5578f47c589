package auth

import (
	"context"

	"github.com/Temutjin2k/ride-lifecycle/internal/domain/models"
)

// TokenVerifier turns a bearer token into the opaque id of its subject.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (userID string, err error)
}

type ProfileEnsurer interface {
	EnsureProfile(ctx context.Context, userID string) (models.UserProfile, error)
}
