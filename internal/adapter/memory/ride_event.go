package memory

import (
	"context"

	"github.com/Temutjin2k/ride-lifecycle/internal/domain/models"
)

// RideEventRepo is the append-only audit trail.
type RideEventRepo struct {
	db *DB
}

func NewRideEventRepo(db *DB) *RideEventRepo {
	return &RideEventRepo{db: db}
}

func (r *RideEventRepo) Append(ctx context.Context, msg models.RideEventMessage) error {
	return r.db.write(ctx, func(st *state) error {
		st.events = append(st.events, msg)
		return nil
	})
}

// List returns the audit trail of one ride in append order.
func (r *RideEventRepo) List(ctx context.Context, rideID string) ([]models.RideEventMessage, error) {
	var out []models.RideEventMessage
	err := r.db.read(ctx, func(st *state) error {
		for _, e := range st.events {
			if e.RideID == rideID {
				out = append(out, e)
			}
		}
		return nil
	})
	return out, err
}
