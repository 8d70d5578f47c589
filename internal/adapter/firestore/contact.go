package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/Temutjin2k/ride-lifecycle/internal/domain/models"
	"github.com/Temutjin2k/ride-lifecycle/internal/domain/types"
)

type contactDoc struct {
	Phone     string    `firestore:"phone"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

// ContactRepo keeps private phones under rides/{id}/private/{role}.
type ContactRepo struct {
	client *firestore.Client
}

func NewContactRepo(client *firestore.Client) *ContactRepo {
	return &ContactRepo{client: client}
}

func (r *ContactRepo) ref(rideID string, role types.UserRole) *firestore.DocumentRef {
	return r.client.Collection(ridesCollection).Doc(rideID).Collection("private").Doc(role.String())
}

func (r *ContactRepo) Put(ctx context.Context, c models.PrivateContact) error {
	const op = "ContactRepo.Put"

	if err := setDoc(ctx, r.ref(c.RideID, c.Role), contactDoc{Phone: c.Phone, UpdatedAt: c.UpdatedAt}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (r *ContactRepo) Get(ctx context.Context, rideID string, role types.UserRole) (models.PrivateContact, error) {
	const op = "ContactRepo.Get"

	var doc contactDoc
	found, err := getDoc(ctx, r.ref(rideID, role), &doc)
	if err != nil {
		return models.PrivateContact{}, fmt.Errorf("%s: %w", op, err)
	}
	if !found {
		return models.PrivateContact{}, types.ErrContactNotFound
	}
	return models.PrivateContact{RideID: rideID, Role: role, Phone: doc.Phone, UpdatedAt: doc.UpdatedAt}, nil
}
