package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Temutjin2k/ride-lifecycle/internal/domain/models"
	"github.com/Temutjin2k/ride-lifecycle/internal/domain/types"
	"github.com/Temutjin2k/ride-lifecycle/pkg/postgres"
)

// RideRepo stores the ride snapshot as jsonb next to the columns used for
// matching and the compare-and-swap version.
type RideRepo struct {
	db *pgxpool.Pool
}

func NewRideRepo(db *pgxpool.Pool) *RideRepo {
	return &RideRepo{db: db}
}

func (r *RideRepo) Create(ctx context.Context, ride models.Ride) error {
	const op = "RideRepo.Create"

	doc, err := json.Marshal(ride)
	if err != nil {
		return fmt.Errorf("%s: marshal: %w", op, err)
	}

	query := `
		INSERT INTO rides (id, passenger_id, driver_id, status, region, subregion, vehicle_class, version, created_at, updated_at, doc)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11);`

	_, err = TxorDB(ctx, r.db).Exec(ctx, query,
		ride.ID, ride.PassengerID, ride.DriverID, ride.Status, ride.Region, ride.Subregion,
		ride.VehicleClass, ride.Version, ride.CreatedAt, ride.UpdatedAt, doc,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return fmt.Errorf("%s: ride %s already exists", op, ride.ID)
		}
		return fmt.Errorf("%s: %w: %v", op, types.ErrDatabaseFailed, err)
	}
	return nil
}

func (r *RideRepo) Get(ctx context.Context, rideID string) (models.Ride, error) {
	const op = "RideRepo.Get"

	var doc []byte
	err := TxorDB(ctx, r.db).QueryRow(ctx, `SELECT doc FROM rides WHERE id = $1;`, rideID).Scan(&doc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Ride{}, types.ErrRideNotFound
		}
		return models.Ride{}, fmt.Errorf("%s: %w: %v", op, types.ErrDatabaseFailed, err)
	}

	var ride models.Ride
	if err := json.Unmarshal(doc, &ride); err != nil {
		return models.Ride{}, fmt.Errorf("%s: unmarshal: %w", op, err)
	}
	return ride, nil
}

// Swap updates the row only while its version equals prevVersion.
func (r *RideRepo) Swap(ctx context.Context, prevVersion int64, next models.Ride) error {
	const op = "RideRepo.Swap"

	doc, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("%s: marshal: %w", op, err)
	}

	query := `
		UPDATE rides
		SET driver_id = $3,
			status = $4,
			version = $5,
			updated_at = $6,
			doc = $7
		WHERE id = $1 AND version = $2;`

	tag, err := TxorDB(ctx, r.db).Exec(ctx, query,
		next.ID, prevVersion, next.DriverID, next.Status, next.Version, next.UpdatedAt, doc,
	)
	if err != nil {
		return fmt.Errorf("%s: %w: %v", op, types.ErrDatabaseFailed, err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.Get(ctx, next.ID); err != nil {
			return err
		}
		return types.ErrStaleRide
	}
	return nil
}

// ListPending returns matching pending rides, newest first.
func (r *RideRepo) ListPending(ctx context.Context, filter models.PendingFilter) ([]models.Ride, error) {
	const op = "RideRepo.ListPending"

	limit := filter.Limit
	if limit <= 0 {
		limit = models.DefaultQueueLimit
	}

	query := `
		SELECT doc FROM rides
		WHERE status = $1 AND region = $2 AND subregion = $3 AND vehicle_class = $4
		ORDER BY created_at DESC, id DESC
		LIMIT $5;`

	rows, err := TxorDB(ctx, r.db).Query(ctx, query,
		types.StatusPending, filter.Region, filter.Subregion, filter.VehicleClass, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", op, types.ErrDatabaseFailed, err)
	}
	defer rows.Close()

	var out []models.Ride
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		var ride models.Ride
		if err := json.Unmarshal(doc, &ride); err != nil {
			return nil, fmt.Errorf("%s: unmarshal: %w", op, err)
		}
		out = append(out, ride)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", op, types.ErrDatabaseFailed, err)
	}
	return out, nil
}
