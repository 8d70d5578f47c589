package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Temutjin2k/ride-lifecycle/internal/domain/models"
	"github.com/Temutjin2k/ride-lifecycle/internal/domain/types"
)

// RideEventRepo is the append-only audit trail of committed transitions.
type RideEventRepo struct {
	db *pgxpool.Pool
}

func NewRideEventRepo(db *pgxpool.Pool) *RideEventRepo {
	return &RideEventRepo{db: db}
}

func (r *RideEventRepo) Append(ctx context.Context, msg models.RideEventMessage) error {
	const op = "RideEventRepo.Append"

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("%s: marshal: %w", op, err)
	}

	query := `INSERT INTO ride_events (ride_id, event_type, version, event_data, created_at)
			  VALUES ($1, $2, $3, $4, $5);`

	if _, err := TxorDB(ctx, r.db).Exec(ctx, query, msg.RideID, msg.Event.String(), msg.Version, data, msg.Timestamp); err != nil {
		return fmt.Errorf("%s: %w: %v", op, types.ErrDatabaseFailed, err)
	}
	return nil
}

// List returns the trail of one ride in append order.
func (r *RideEventRepo) List(ctx context.Context, rideID string) ([]models.RideEventMessage, error) {
	const op = "RideEventRepo.List"

	rows, err := TxorDB(ctx, r.db).Query(ctx,
		`SELECT event_data FROM ride_events WHERE ride_id = $1 ORDER BY id;`, rideID,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", op, types.ErrDatabaseFailed, err)
	}
	defer rows.Close()

	var out []models.RideEventMessage
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		var msg models.RideEventMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("%s: unmarshal: %w", op, err)
		}
		out = append(out, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", op, types.ErrDatabaseFailed, err)
	}
	return out, nil
}
