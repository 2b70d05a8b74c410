package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"gitlab.com/tozd/go/errors"

	"cartilla/internal/model"
)

const upsertProvider = `
	INSERT INTO cartilla_provider
	(location_id, run_id, name, address, email, phone, locality, province, latitude, longitude, neighborhood, plans, specialties, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, now())
	ON CONFLICT (location_id) DO UPDATE
	SET run_id = EXCLUDED.run_id, plans = EXCLUDED.plans, specialties = EXCLUDED.specialties, updated_at = now()
`

// ProviderRepository stores merged provider locations, one row per
// location id, overwritten by each run.
type ProviderRepository struct {
	DB *pgxpool.Pool
}

func (r *ProviderRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.DB.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS cartilla_provider (
			location_id  UUID PRIMARY KEY,
			run_id       UUID        NOT NULL,
			name         TEXT        NOT NULL,
			address      TEXT        NOT NULL,
			email        TEXT        NOT NULL,
			phone        TEXT        NOT NULL,
			locality     TEXT        NOT NULL,
			province     TEXT        NOT NULL,
			latitude     TEXT        NOT NULL,
			longitude    TEXT        NOT NULL,
			neighborhood TEXT        NOT NULL,
			plans        TEXT        NOT NULL,
			specialties  TEXT        NOT NULL,
			updated_at   TIMESTAMPTZ NOT NULL
		)
	`)
	if err != nil {
		return errors.Errorf("creating cartilla_provider: %w", err)
	}
	return nil
}

// SaveMerged upserts every row in one transaction.
func (r *ProviderRepository) SaveMerged(ctx context.Context, runID string, rows []model.MergedRow) error {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return errors.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(upsertProvider, providerArgs(runID, row)...)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return errors.Errorf("upserting %d providers: %w", len(rows), err)
	}
	if err := tx.Commit(ctx); err != nil {
		return errors.Errorf("commit: %w", err)
	}
	return nil
}

func providerArgs(runID string, m model.MergedRow) []any {
	return []any{
		model.LocationID(m.Identity).String(),
		runID,
		m.Name,
		m.Address,
		m.Email,
		m.Phone,
		m.Locality,
		m.Province,
		m.Latitude,
		m.Longitude,
		m.Neighborhood,
		m.Plans,
		m.Specialties,
	}
}
