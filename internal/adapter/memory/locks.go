package memory

import (
	"context"

	"github.com/Temutjin2k/ride-lifecycle/internal/domain/types"
)

// ActorLocks keeps one ride pointer per (user, role).
type ActorLocks struct {
	db *DB
}

func NewActorLocks(db *DB) *ActorLocks {
	return &ActorLocks{db: db}
}

func (l *ActorLocks) HeldRide(ctx context.Context, userID string, role types.UserRole) (string, bool, error) {
	var (
		rideID string
		ok     bool
	)
	err := l.db.read(ctx, func(st *state) error {
		rideID, ok = st.actors[actorKey{userID, role}]
		return nil
	})
	return rideID, ok, err
}

// Hold claims the pointer. It fails when the pointer refers to another ride.
func (l *ActorLocks) Hold(ctx context.Context, userID string, role types.UserRole, rideID string) error {
	return l.db.write(ctx, func(st *state) error {
		key := actorKey{userID, role}
		if held, ok := st.actors[key]; ok && held != rideID {
			return heldError(role)
		}
		st.actors[key] = rideID
		return nil
	})
}

// Release drops the pointer only while it still refers to rideID.
func (l *ActorLocks) Release(ctx context.Context, userID string, role types.UserRole, rideID string) error {
	return l.db.write(ctx, func(st *state) error {
		key := actorKey{userID, role}
		if st.actors[key] == rideID {
			delete(st.actors, key)
		}
		return nil
	})
}

func heldError(role types.UserRole) error {
	if role == types.RoleDriver {
		return types.ErrDriverHasActiveRide
	}
	return types.ErrPassengerHasOpenRide
}
