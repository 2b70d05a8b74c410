package crawler

import (
	"context"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"cartilla/internal/model"
	"cartilla/internal/observability"
)

var (
	ErrNoPlans     = errors.New("no plans found")
	ErrNoProvinces = errors.New("no provinces found")
)

// RowSink persists the rows of one combination as they arrive.
type RowSink interface {
	Append(plan model.Plan, specialty model.Specialty, rows []model.Row) error
}

// Checkpoint remembers combinations that already completed.
type Checkpoint interface {
	Done(ctx context.Context, key string) (bool, error)
	Mark(ctx context.Context, key string) error
}

// OutcomeRecorder keeps a log of every combination's outcome.
type OutcomeRecorder interface {
	Record(ctx context.Context, o model.FetchOutcome) error
}

// Batch holds the rows produced by one combination.
type Batch struct {
	Plan      model.Plan
	Province  model.Province
	Specialty model.Specialty
	Rows      []model.Row
}

// Collection is what a run handed over to the merge stage.
type Collection struct {
	Batches []Batch
	// Skipped counts combinations passed over because a checkpoint
	// marked them done; their rows only exist on disk.
	Skipped int
	Total   int
}

// Rows flattens every batch in enumeration order.
func (c *Collection) Rows() []model.Row {
	var rows []model.Row
	for _, b := range c.Batches {
		rows = append(rows, b.Rows...)
	}
	return rows
}

// Collector walks every plan × province × specialty combination
// sequentially. Sink is required; Checkpoint and Recorder are optional.
type Collector struct {
	Directory   *Directory
	Specialties []model.Specialty
	Sink        RowSink
	Checkpoint  Checkpoint
	Recorder    OutcomeRecorder
	// Resume skips combinations the checkpoint reports as done.
	Resume        bool
	RunID         string
	ProgressEvery int
}

func (c *Collector) Run(ctx context.Context) (*Collection, error) {
	logger := zerolog.Ctx(ctx)

	plans, res := c.Directory.Plans(ctx)
	if len(plans) == 0 {
		return nil, errors.Errorf("%w (%s)", ErrNoPlans, res.Kind)
	}
	provinces, res := c.Directory.Provinces(ctx)
	if len(provinces) == 0 {
		return nil, errors.Errorf("%w (%s)", ErrNoProvinces, res.Kind)
	}

	out := &Collection{Total: len(plans) * len(provinces) * len(c.Specialties)}
	logger.Info().Int("plans", len(plans)).Int("provinces", len(provinces)).Int("specialties", len(c.Specialties)).Int("combinations", out.Total).Msg("starting collection")

	done := 0
	for _, plan := range plans {
		for _, province := range provinces {
			for _, specialty := range c.Specialties {
				if err := ctx.Err(); err != nil {
					return out, errors.Errorf("collection interrupted after %d of %d: %w", done, out.Total, err)
				}

				batch, skipped, err := c.collect(ctx, plan, province, specialty)
				if err != nil {
					return out, err
				}
				if skipped {
					out.Skipped++
				} else if batch != nil {
					out.Batches = append(out.Batches, *batch)
				}

				done++
				if c.ProgressEvery > 0 && done%c.ProgressEvery == 0 {
					logger.Info().Int("done", done).Int("total", out.Total).Float64("percent", 100*float64(done)/float64(out.Total)).Msg("progress")
				}
			}
		}
	}

	logger.Info().Int("batches", len(out.Batches)).Int("skipped", out.Skipped).Msg("collection finished")
	return out, nil
}

// collect handles one combination. Fetch failures never surface as
// errors; only sink failures do.
func (c *Collector) collect(ctx context.Context, plan model.Plan, province model.Province, specialty model.Specialty) (*Batch, bool, error) {
	logger := zerolog.Ctx(ctx)
	key := model.ComboKey(plan, province, specialty)

	if c.Resume && c.Checkpoint != nil {
		ok, err := c.Checkpoint.Done(ctx, key)
		if err != nil {
			logger.Warn().Err(err).Str("key", key).Msg("checkpoint lookup failed")
		} else if ok {
			logger.Debug().Str("key", key).Msg("already collected")
			return nil, true, nil
		}
	}

	providers, res := c.Directory.Providers(ctx, plan, province, specialty)

	var batch *Batch
	if len(providers) > 0 {
		rows := ExpandRows(providers, plan, specialty)
		if err := c.Sink.Append(plan, specialty, rows); err != nil {
			return nil, false, errors.Errorf("writing rows for %s: %w", key, err)
		}
		observability.RowsWrittenTotal.Add(float64(len(rows)))
		batch = &Batch{Plan: plan, Province: province, Specialty: specialty, Rows: rows}
	} else {
		logger.Info().
			Str("province", province.Name).
			Str("province_type", province.Type).
			Str("specialty", specialty.Label).
			Str("plan", plan.Slug()).
			Str("kind", res.Kind.String()).
			Msg("no providers found")
	}

	c.record(ctx, plan, province, specialty, res, batch)

	// Transient failures stay unmarked so a resumed run tries them again.
	if c.Checkpoint != nil && res.Kind != KindTransient {
		if err := c.Checkpoint.Mark(ctx, key); err != nil {
			logger.Warn().Err(err).Str("key", key).Msg("checkpoint update failed")
		}
	}
	return batch, false, nil
}

func (c *Collector) record(ctx context.Context, plan model.Plan, province model.Province, specialty model.Specialty, res Result, batch *Batch) {
	if c.Recorder == nil {
		return
	}
	o := model.FetchOutcome{
		RunID:     c.RunID,
		PlanID:    plan.ID,
		Plan:      plan.Slug(),
		Province:  province.Name,
		Specialty: specialty.Label,
		Kind:      res.Kind.String(),
		Status:    res.Status,
		Attempts:  res.Attempts,
	}
	if batch != nil {
		o.Rows = len(batch.Rows)
	}
	if err := c.Recorder.Record(ctx, o); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("could not record fetch outcome")
	}
}
