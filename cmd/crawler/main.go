package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"cartilla/internal/checkpoint"
	"cartilla/internal/config"
	"cartilla/internal/crawler"
	"cartilla/internal/csvstore"
	"cartilla/internal/db"
	"cartilla/internal/merge"
	"cartilla/internal/model"
	"cartilla/internal/observability"
	"cartilla/internal/repository"
)

// go run cmd/crawler/main.go
// RESUME=true REDIS_URL=localhost:6379 go run cmd/crawler/main.go
func main() {
	cfg := config.Load()
	logger := observability.NewLogger(cfg.LogLevel)

	if err := run(cfg, logger); err != nil {
		logger.Error().Err(err).Msg("crawler failed")
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx)

	observability.Start(ctx, cfg.MetricsPort)

	runID := uuid.New().String()
	logger.Info().Str("run_id", runID).Str("output_dir", cfg.OutputDir).Msg("crawler starting")

	collector := &crawler.Collector{
		Directory:     crawler.NewDirectory(cfg),
		Specialties:   cfg.Specialties,
		Sink:          &csvstore.Writer{Dir: cfg.OutputDir},
		RunID:         runID,
		Resume:        cfg.Resume,
		ProgressEvery: 50,
	}
	publisher := &merge.Publisher{
		CSVPath:     cfg.MergedPath(time.Now()),
		ParquetPath: cfg.ParquetFile,
		RunID:       runID,
	}

	if cfg.RedisURL != "" {
		store := checkpoint.NewRedisStore(cfg.RedisURL, cfg.CheckpointTTL)
		defer store.Close()
		if err := store.Ping(ctx); err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, running without checkpoints")
		} else {
			collector.Checkpoint = store
		}
	}

	var fetchLog *repository.FetchLogRepository
	if cfg.DatabaseURL != "" {
		sinks := openRepositories(ctx, cfg.DatabaseURL)
		defer sinks.Close()
		fetchLog = sinks.fetchLog
		if fetchLog != nil {
			collector.Recorder = fetchLog
		}
		if sinks.providers != nil {
			publisher.Store = sinks.providers
		}
	}

	collection, err := collector.Run(ctx)
	if err != nil {
		return errors.Errorf("collection failed: %w", err)
	}

	if fetchLog != nil {
		if counts, err := fetchLog.Summary(ctx, runID); err == nil {
			logger.Info().Interface("outcomes", counts).Msg("fetch summary")
		}
	}

	// Rows of skipped combinations were written by an earlier run and
	// only exist on disk.
	var merged []model.MergedRow
	if collection.Skipped > 0 {
		merged, err = merge.FromDir(ctx, cfg.OutputDir, publisher)
	} else {
		merged = merge.Merge(collection.Rows())
		err = publisher.Publish(ctx, merged)
	}
	if err != nil {
		return errors.Errorf("merge failed: %w", err)
	}

	logger.Info().Int("providers", len(merged)).Msg("crawler finished")
	return nil
}

// databaseSinks holds whichever database outputs could be opened.
type databaseSinks struct {
	fetchLog  *repository.FetchLogRepository
	providers *repository.ProviderRepository
	conn      *sql.DB
	pool      *pgxpool.Pool
}

func (s *databaseSinks) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
	if s.conn != nil {
		s.conn.Close()
	}
}

// openRepositories connects both database sinks. A failure disables the
// affected sink and the run continues on CSV output alone.
func openRepositories(ctx context.Context, url string) *databaseSinks {
	logger := zerolog.Ctx(ctx)
	sinks := &databaseSinks{}

	conn, err := db.New(url)
	if err != nil {
		logger.Warn().Err(err).Msg("fetch log disabled")
	} else {
		sinks.conn = conn
		fetchLog := &repository.FetchLogRepository{DB: conn}
		if err := fetchLog.EnsureSchema(ctx); err != nil {
			logger.Warn().Err(err).Msg("fetch log disabled")
		} else {
			sinks.fetchLog = fetchLog
		}
	}

	pool, err := db.NewPool(ctx, url)
	if err != nil {
		logger.Warn().Err(err).Msg("provider table disabled")
		return sinks
	}
	sinks.pool = pool
	providers := &repository.ProviderRepository{DB: pool}
	if err := providers.EnsureSchema(ctx); err != nil {
		logger.Warn().Err(err).Msg("provider table disabled")
		return sinks
	}
	sinks.providers = providers
	return sinks
}
