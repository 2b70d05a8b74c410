package csvstore

import (
	"encoding/csv"
	"os"
	"path/filepath"

	"gitlab.com/tozd/go/errors"

	"cartilla/internal/model"
)

// FileName is the per-combination file that collects every province's
// rows for one plan and specialty.
func FileName(plan model.Plan, specialty model.Specialty) string {
	return "prestadores_plan_" + plan.Slug() + "_especialidad_" + specialty.Label + ".csv"
}

// Writer appends rows to per-(plan, specialty) files under Dir.
type Writer struct {
	Dir string
}

// Append writes rows to the plan/specialty file, creating it with a
// header row on first use.
func (w *Writer) Append(plan model.Plan, specialty model.Specialty, rows []model.Row) error {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return errors.Errorf("creating %s: %w", w.Dir, err)
	}
	path := filepath.Join(w.Dir, FileName(plan, specialty))

	_, statErr := os.Stat(path)
	fresh := errors.Is(statErr, os.ErrNotExist)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Errorf("opening %s: %w", path, err)
	}

	cw := csv.NewWriter(f)
	if fresh {
		cw.Write(model.Columns)
	}
	for _, r := range rows {
		cw.Write(r.Record())
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		f.Close()
		return errors.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

// WriteMerged writes the merged table to path in one go.
func WriteMerged(path string, rows []model.MergedRow) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Errorf("creating %s: %w", dir, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Errorf("creating %s: %w", path, err)
	}

	cw := csv.NewWriter(f)
	cw.Write(model.Columns)
	for _, r := range rows {
		cw.Write(r.Record())
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		f.Close()
		return errors.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}
