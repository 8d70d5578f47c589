package firestore

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Temutjin2k/ride-lifecycle/internal/domain/models"
	"github.com/Temutjin2k/ride-lifecycle/internal/domain/types"
)

const profilesCollection = "users"

// ProfileRepo reads the raw user documents, legacy flat keys included.
type ProfileRepo struct {
	client *firestore.Client
}

func NewProfileRepo(client *firestore.Client) *ProfileRepo {
	return &ProfileRepo{client: client}
}

func (r *ProfileRepo) ref(userID string) *firestore.DocumentRef {
	return r.client.Collection(profilesCollection).Doc(userID)
}

func (r *ProfileRepo) Get(ctx context.Context, userID string) (models.RawProfile, error) {
	const op = "ProfileRepo.Get"

	var raw models.RawProfile
	found, err := getDoc(ctx, r.ref(userID), &raw)
	if err != nil {
		return models.RawProfile{}, fmt.Errorf("%s: %w", op, err)
	}
	if !found {
		return models.RawProfile{}, types.ErrProfileNotFound
	}
	if raw.ID == "" {
		raw.ID = userID
	}
	return raw, nil
}

// CreateIfAbsent relies on Create failing with AlreadyExists when called
// outside a transaction.
func (r *ProfileRepo) CreateIfAbsent(ctx context.Context, raw models.RawProfile) (models.RawProfile, error) {
	const op = "ProfileRepo.CreateIfAbsent"

	if _, inTx := ctx.Value(txKey{}).(*txState); inTx {
		existing, err := r.Get(ctx, raw.ID)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, types.ErrProfileNotFound) {
			return models.RawProfile{}, err
		}
		return raw, r.Save(ctx, raw)
	}

	if _, err := r.ref(raw.ID).Create(ctx, raw); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return r.Get(ctx, raw.ID)
		}
		return models.RawProfile{}, fmt.Errorf("%s: %w", op, mapError(err))
	}
	return raw, nil
}

func (r *ProfileRepo) Save(ctx context.Context, raw models.RawProfile) error {
	const op = "ProfileRepo.Save"

	if err := setDoc(ctx, r.ref(raw.ID), raw); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
