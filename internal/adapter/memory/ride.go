package memory

import (
	"context"
	"fmt"
	"slices"

	"github.com/Temutjin2k/ride-lifecycle/internal/domain/models"
	"github.com/Temutjin2k/ride-lifecycle/internal/domain/types"
)

type RideRepo struct {
	db *DB
}

func NewRideRepo(db *DB) *RideRepo {
	return &RideRepo{db: db}
}

func (r *RideRepo) Create(ctx context.Context, ride models.Ride) error {
	const op = "RideRepo.Create"

	return r.db.write(ctx, func(st *state) error {
		if _, ok := st.rides[ride.ID]; ok {
			return fmt.Errorf("%s: ride %s already exists", op, ride.ID)
		}
		st.rides[ride.ID] = ride.Clone()
		return nil
	})
}

func (r *RideRepo) Get(ctx context.Context, rideID string) (models.Ride, error) {
	var out models.Ride
	err := r.db.read(ctx, func(st *state) error {
		ride, ok := st.rides[rideID]
		if !ok {
			return types.ErrRideNotFound
		}
		out = ride.Clone()
		return nil
	})
	return out, err
}

// Swap replaces the ride only if the stored version still equals prevVersion.
func (r *RideRepo) Swap(ctx context.Context, prevVersion int64, next models.Ride) error {
	return r.db.write(ctx, func(st *state) error {
		cur, ok := st.rides[next.ID]
		if !ok {
			return types.ErrRideNotFound
		}
		if cur.Version != prevVersion {
			return types.ErrStaleRide
		}
		st.rides[next.ID] = next.Clone()
		return nil
	})
}

// ListPending returns matching pending rides, newest first.
func (r *RideRepo) ListPending(ctx context.Context, filter models.PendingFilter) ([]models.Ride, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = models.DefaultQueueLimit
	}

	var out []models.Ride
	err := r.db.read(ctx, func(st *state) error {
		for _, ride := range st.rides {
			if filter.Matches(ride) {
				out = append(out, ride.Clone())
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(out, func(a, b models.Ride) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return compareStrings(b.ID, a.ID)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func compareStrings(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
