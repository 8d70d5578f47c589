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
)

// ProfileRepo keeps the raw profile document as jsonb so legacy keys survive
// until the profile is next saved.
type ProfileRepo struct {
	db *pgxpool.Pool
}

func NewProfileRepo(db *pgxpool.Pool) *ProfileRepo {
	return &ProfileRepo{db: db}
}

func (r *ProfileRepo) Get(ctx context.Context, userID string) (models.RawProfile, error) {
	const op = "ProfileRepo.Get"

	var doc []byte
	err := TxorDB(ctx, r.db).QueryRow(ctx, `SELECT doc FROM profiles WHERE id = $1;`, userID).Scan(&doc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.RawProfile{}, types.ErrProfileNotFound
		}
		return models.RawProfile{}, fmt.Errorf("%s: %w: %v", op, types.ErrDatabaseFailed, err)
	}
	return decodeProfile(op, userID, doc)
}

// CreateIfAbsent inserts raw unless a row exists and returns the stored document.
func (r *ProfileRepo) CreateIfAbsent(ctx context.Context, raw models.RawProfile) (models.RawProfile, error) {
	const op = "ProfileRepo.CreateIfAbsent"

	doc, err := json.Marshal(raw)
	if err != nil {
		return models.RawProfile{}, fmt.Errorf("%s: marshal: %w", op, err)
	}

	query := `
		WITH ins AS (
			INSERT INTO profiles (id, doc, created_at, updated_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO NOTHING
			RETURNING doc
		)
		SELECT doc FROM ins
		UNION ALL
		SELECT doc FROM profiles WHERE id = $1
		LIMIT 1;`

	var stored []byte
	err = TxorDB(ctx, r.db).QueryRow(ctx, query, raw.ID, doc, raw.CreatedAt, raw.UpdatedAt).Scan(&stored)
	if err != nil {
		return models.RawProfile{}, fmt.Errorf("%s: %w: %v", op, types.ErrDatabaseFailed, err)
	}
	return decodeProfile(op, raw.ID, stored)
}

func (r *ProfileRepo) Save(ctx context.Context, raw models.RawProfile) error {
	const op = "ProfileRepo.Save"

	doc, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("%s: marshal: %w", op, err)
	}

	query := `
		INSERT INTO profiles (id, doc, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET doc = EXCLUDED.doc, updated_at = EXCLUDED.updated_at;`

	if _, err := TxorDB(ctx, r.db).Exec(ctx, query, raw.ID, doc, raw.CreatedAt, raw.UpdatedAt); err != nil {
		return fmt.Errorf("%s: %w: %v", op, types.ErrDatabaseFailed, err)
	}
	return nil
}

func decodeProfile(op, userID string, doc []byte) (models.RawProfile, error) {
	var raw models.RawProfile
	if err := json.Unmarshal(doc, &raw); err != nil {
		return models.RawProfile{}, fmt.Errorf("%s: unmarshal: %w", op, err)
	}
	if raw.ID == "" {
		raw.ID = userID
	}
	return raw, nil
}
