package repository

import (
	"context"
	"database/sql"

	"gitlab.com/tozd/go/errors"

	"cartilla/internal/model"
)

// FetchLogRepository keeps one row per queried combination and run.
type FetchLogRepository struct {
	DB *sql.DB
}

func (r *FetchLogRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.DB.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS cartilla_fetch_log (
			run_id     UUID        NOT NULL,
			plan_id    TEXT        NOT NULL,
			plan       TEXT        NOT NULL,
			province   TEXT        NOT NULL,
			specialty  TEXT        NOT NULL,
			kind       TEXT        NOT NULL,
			status     INTEGER     NOT NULL,
			attempts   INTEGER     NOT NULL,
			row_count  INTEGER     NOT NULL,
			fetched_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	if err != nil {
		return errors.Errorf("creating cartilla_fetch_log: %w", err)
	}
	return nil
}

const insertFetchLog = `
	INSERT INTO cartilla_fetch_log
	(run_id, plan_id, plan, province, specialty, kind, status, attempts, row_count)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`

const summarizeFetchLog = `
	SELECT kind, count(*)
	FROM cartilla_fetch_log
	WHERE run_id = $1
	GROUP BY kind
`

func fetchLogArgs(o model.FetchOutcome) []any {
	return []any{o.RunID, o.PlanID, o.Plan, o.Province, o.Specialty, o.Kind, o.Status, o.Attempts, o.Rows}
}

func (r *FetchLogRepository) Record(ctx context.Context, o model.FetchOutcome) error {
	_, err := r.DB.ExecContext(ctx, insertFetchLog, fetchLogArgs(o)...)
	if err != nil {
		return errors.Errorf("inserting fetch log: %w", err)
	}
	return nil
}

// Summary counts this run's outcomes by kind.
func (r *FetchLogRepository) Summary(ctx context.Context, runID string) (map[string]int, error) {
	rows, err := r.DB.QueryContext(ctx, summarizeFetchLog, runID)
	if err != nil {
		return nil, errors.Errorf("querying fetch log: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, errors.Errorf("scanning fetch log: %w", err)
		}
		counts[kind] = n
	}
	return counts, rows.Err()
}
