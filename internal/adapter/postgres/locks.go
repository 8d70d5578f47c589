package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Temutjin2k/ride-lifecycle/internal/domain/types"
)

// ActorLocks keeps one row per (user, role) pointing at the ride that blocks the actor.
type ActorLocks struct {
	db *pgxpool.Pool
}

func NewActorLocks(db *pgxpool.Pool) *ActorLocks {
	return &ActorLocks{db: db}
}

func (l *ActorLocks) HeldRide(ctx context.Context, userID string, role types.UserRole) (string, bool, error) {
	const op = "ActorLocks.HeldRide"

	var rideID string
	err := TxorDB(ctx, l.db).QueryRow(ctx,
		`SELECT ride_id FROM actor_locks WHERE user_id = $1 AND role = $2;`, userID, role,
	).Scan(&rideID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("%s: %w: %v", op, types.ErrDatabaseFailed, err)
	}
	return rideID, true, nil
}

// Hold claims the pointer. The conditional upsert keeps an existing pointer
// to another ride, which returns no row.
func (l *ActorLocks) Hold(ctx context.Context, userID string, role types.UserRole, rideID string) error {
	const op = "ActorLocks.Hold"

	query := `
		INSERT INTO actor_locks (user_id, role, ride_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, role) DO UPDATE
			SET ride_id = EXCLUDED.ride_id
			WHERE actor_locks.ride_id = EXCLUDED.ride_id
		RETURNING ride_id;`

	var held string
	err := TxorDB(ctx, l.db).QueryRow(ctx, query, userID, role, rideID).Scan(&held)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return heldError(role)
		}
		return fmt.Errorf("%s: %w: %v", op, types.ErrDatabaseFailed, err)
	}
	return nil
}

// Release drops the pointer only while it still refers to rideID.
func (l *ActorLocks) Release(ctx context.Context, userID string, role types.UserRole, rideID string) error {
	const op = "ActorLocks.Release"

	_, err := TxorDB(ctx, l.db).Exec(ctx,
		`DELETE FROM actor_locks WHERE user_id = $1 AND role = $2 AND ride_id = $3;`, userID, role, rideID,
	)
	if err != nil {
		return fmt.Errorf("%s: %w: %v", op, types.ErrDatabaseFailed, err)
	}
	return nil
}

func heldError(role types.UserRole) error {
	if role == types.RoleDriver {
		return types.ErrDriverHasActiveRide
	}
	return types.ErrPassengerHasOpenRide
}
