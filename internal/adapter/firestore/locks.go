package firestore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"

	"github.com/Temutjin2k/ride-lifecycle/internal/domain/types"
)

type lockDoc struct {
	RideID string `firestore:"rideId"`
}

// ActorLocks stores one pointer document per (role, user).
type ActorLocks struct {
	client *firestore.Client
}

func NewActorLocks(client *firestore.Client) *ActorLocks {
	return &ActorLocks{client: client}
}

func (l *ActorLocks) ref(userID string, role types.UserRole) *firestore.DocumentRef {
	return l.client.Collection(lockCollection).Doc(role.String() + "_" + userID)
}

func (l *ActorLocks) HeldRide(ctx context.Context, userID string, role types.UserRole) (string, bool, error) {
	const op = "ActorLocks.HeldRide"

	var doc lockDoc
	found, err := getDoc(ctx, l.ref(userID, role), &doc)
	if err != nil {
		return "", false, fmt.Errorf("%s: %w", op, err)
	}
	if !found || doc.RideID == "" {
		return "", false, nil
	}
	return doc.RideID, true, nil
}

func (l *ActorLocks) Hold(ctx context.Context, userID string, role types.UserRole, rideID string) error {
	held, ok, err := l.HeldRide(ctx, userID, role)
	if err != nil {
		return err
	}
	if ok && held != rideID {
		if role == types.RoleDriver {
			return types.ErrDriverHasActiveRide
		}
		return types.ErrPassengerHasOpenRide
	}
	return setDoc(ctx, l.ref(userID, role), lockDoc{RideID: rideID})
}

func (l *ActorLocks) Release(ctx context.Context, userID string, role types.UserRole, rideID string) error {
	held, ok, err := l.HeldRide(ctx, userID, role)
	if err != nil {
		return err
	}
	if !ok || held != rideID {
		return nil
	}
	return deleteDoc(ctx, l.ref(userID, role))
}
