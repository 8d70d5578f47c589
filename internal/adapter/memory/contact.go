package memory

import (
	"context"

	"github.com/Temutjin2k/ride-lifecycle/internal/domain/models"
	"github.com/Temutjin2k/ride-lifecycle/internal/domain/types"
)

type ContactRepo struct {
	db *DB
}

func NewContactRepo(db *DB) *ContactRepo {
	return &ContactRepo{db: db}
}

func (r *ContactRepo) Put(ctx context.Context, c models.PrivateContact) error {
	return r.db.write(ctx, func(st *state) error {
		st.contacts[contactKey{c.RideID, c.Role}] = c
		return nil
	})
}

func (r *ContactRepo) Get(ctx context.Context, rideID string, role types.UserRole) (models.PrivateContact, error) {
	var out models.PrivateContact
	err := r.db.read(ctx, func(st *state) error {
		c, ok := st.contacts[contactKey{rideID, role}]
		if !ok {
			return types.ErrContactNotFound
		}
		out = c
		return nil
	})
	return out, err
}
