package memory

import (
	"context"

	"github.com/Temutjin2k/ride-lifecycle/internal/domain/models"
	"github.com/Temutjin2k/ride-lifecycle/internal/domain/types"
)

type ProfileRepo struct {
	db *DB
}

func NewProfileRepo(db *DB) *ProfileRepo {
	return &ProfileRepo{db: db}
}

func (r *ProfileRepo) Get(ctx context.Context, userID string) (models.RawProfile, error) {
	var out models.RawProfile
	err := r.db.read(ctx, func(st *state) error {
		raw, ok := st.profiles[userID]
		if !ok {
			return types.ErrProfileNotFound
		}
		out = raw
		return nil
	})
	return out, err
}

func (r *ProfileRepo) CreateIfAbsent(ctx context.Context, raw models.RawProfile) (models.RawProfile, error) {
	out := raw
	err := r.db.write(ctx, func(st *state) error {
		if existing, ok := st.profiles[raw.ID]; ok {
			out = existing
			return nil
		}
		st.profiles[raw.ID] = raw
		return nil
	})
	return out, err
}

func (r *ProfileRepo) Save(ctx context.Context, raw models.RawProfile) error {
	return r.db.write(ctx, func(st *state) error {
		st.profiles[raw.ID] = raw
		return nil
	})
}
