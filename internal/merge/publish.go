package merge

import (
	"context"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"cartilla/internal/csvstore"
	"cartilla/internal/export"
	"cartilla/internal/model"
	"cartilla/internal/observability"
)

// MergedStore receives the merged table after the CSV is written.
type MergedStore interface {
	SaveMerged(ctx context.Context, runID string, rows []model.MergedRow) error
}

// Publisher writes a merged table to the CSV file and to whichever
// optional outputs are configured.
type Publisher struct {
	CSVPath     string
	ParquetPath string
	Store       MergedStore
	RunID       string
}

// Publish writes the CSV first; the CSV is the one output that must
// succeed. An empty table is refused and nothing is written.
func (p *Publisher) Publish(ctx context.Context, rows []model.MergedRow) error {
	logger := zerolog.Ctx(ctx)

	if len(rows) == 0 {
		return ErrNothingLoaded
	}

	if err := csvstore.WriteMerged(p.CSVPath, rows); err != nil {
		return errors.Errorf("writing merged csv: %w", err)
	}
	observability.MergedRows.Set(float64(len(rows)))
	logger.Info().Str("file", p.CSVPath).Int("rows", len(rows)).Msg("merged file written")

	if p.ParquetPath != "" {
		if err := export.WriteParquet(p.ParquetPath, p.RunID, rows); err != nil {
			return errors.Errorf("writing parquet copy: %w", err)
		}
		logger.Info().Str("file", p.ParquetPath).Msg("parquet copy written")
	}

	if p.Store != nil {
		if err := p.Store.SaveMerged(ctx, p.RunID, rows); err != nil {
			return errors.Errorf("saving merged rows: %w", err)
		}
		logger.Info().Int("rows", len(rows)).Msg("merged rows saved to database")
	}
	return nil
}

// FromDir merges every CSV in dir and publishes the result. Nothing is
// written when loading fails.
func FromDir(ctx context.Context, dir string, p *Publisher) ([]model.MergedRow, error) {
	rows, err := LoadDir(ctx, dir, p.CSVPath)
	if err != nil {
		return nil, err
	}
	merged := Merge(rows)
	if err := p.Publish(ctx, merged); err != nil {
		return nil, err
	}
	return merged, nil
}
