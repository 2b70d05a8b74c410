package main

import (
	"context"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"cartilla/internal/config"
	"cartilla/internal/db"
	"cartilla/internal/merge"
	"cartilla/internal/observability"
	"cartilla/internal/repository"
)

// Merges the per-combination files already in OUTPUT_DIR.
// go run cmd/merge/main.go
func main() {
	cfg := config.Load()
	logger := observability.NewLogger(cfg.LogLevel)

	if err := run(cfg, logger); err != nil {
		logger.Error().Err(err).Str("dir", cfg.OutputDir).Msg("merge failed")
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger zerolog.Logger) error {
	ctx := logger.WithContext(context.Background())

	publisher := &merge.Publisher{
		CSVPath:     cfg.MergedPath(time.Now()),
		ParquetPath: cfg.ParquetFile,
		RunID:       uuid.New().String(),
	}

	if cfg.DatabaseURL != "" {
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return errors.Errorf("connecting to postgres: %w", err)
		}
		defer pool.Close()
		providers := &repository.ProviderRepository{DB: pool}
		if err := providers.EnsureSchema(ctx); err != nil {
			return errors.Errorf("preparing provider table: %w", err)
		}
		publisher.Store = providers
	}

	merged, err := merge.FromDir(ctx, cfg.OutputDir, publisher)
	if err != nil {
		return err
	}
	logger.Info().Int("providers", len(merged)).Str("file", publisher.CSVPath).Msg("merge finished")
	return nil
}
