package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Temutjin2k/ride-lifecycle/internal/domain/models"
	"github.com/Temutjin2k/ride-lifecycle/internal/domain/types"
)

type ContactRepo struct {
	db *pgxpool.Pool
}

func NewContactRepo(db *pgxpool.Pool) *ContactRepo {
	return &ContactRepo{db: db}
}

func (r *ContactRepo) Put(ctx context.Context, c models.PrivateContact) error {
	const op = "ContactRepo.Put"

	query := `
		INSERT INTO ride_contacts (ride_id, role, phone, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (ride_id, role) DO UPDATE SET phone = EXCLUDED.phone, updated_at = EXCLUDED.updated_at;`

	if _, err := TxorDB(ctx, r.db).Exec(ctx, query, c.RideID, c.Role, c.Phone, c.UpdatedAt); err != nil {
		return fmt.Errorf("%s: %w: %v", op, types.ErrDatabaseFailed, err)
	}
	return nil
}

func (r *ContactRepo) Get(ctx context.Context, rideID string, role types.UserRole) (models.PrivateContact, error) {
	const op = "ContactRepo.Get"

	c := models.PrivateContact{RideID: rideID, Role: role}
	err := TxorDB(ctx, r.db).QueryRow(ctx,
		`SELECT phone, updated_at FROM ride_contacts WHERE ride_id = $1 AND role = $2;`, rideID, role,
	).Scan(&c.Phone, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.PrivateContact{}, types.ErrContactNotFound
		}
		return models.PrivateContact{}, fmt.Errorf("%s: %w: %v", op, types.ErrDatabaseFailed, err)
	}
	return c, nil
}
