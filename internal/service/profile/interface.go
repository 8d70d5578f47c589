package profile

import (
	"context"

	"github.com/Temutjin2k/ride-lifecycle/internal/domain/models"
)

/*=================Profile Repository======================*/

type ProfileRepo interface {
	// Get returns types.ErrProfileNotFound when no document exists.
	Get(ctx context.Context, userID string) (models.RawProfile, error)
	// CreateIfAbsent stores raw unless a document exists and returns what is stored.
	CreateIfAbsent(ctx context.Context, raw models.RawProfile) (models.RawProfile, error)
	Save(ctx context.Context, raw models.RawProfile) error
}
