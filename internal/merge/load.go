package merge

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"cartilla/internal/csvstore"
	"cartilla/internal/model"
)

var (
	ErrSourceDirMissing = errors.New("source directory does not exist")
	ErrNoInputFiles     = errors.New("no CSV files to merge")
	ErrNothingLoaded    = errors.New("no provider rows to merge")
)

// LoadDir concatenates the rows of every .csv file in dir, in file name
// order. Files named in skip (base names) are left out. A file that fails
// to load is logged and skipped.
func LoadDir(ctx context.Context, dir string, skip ...string) ([]model.Row, error) {
	logger := zerolog.Ctx(ctx)

	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, errors.Errorf("%s: %w", dir, ErrSourceDirMissing)
	}
	if err != nil {
		return nil, errors.Errorf("listing %s: %w", dir, err)
	}

	excluded := make(map[string]bool, len(skip))
	for _, s := range skip {
		excluded[filepath.Base(s)] = true
	}

	var files []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.EqualFold(filepath.Ext(name), ".csv") || excluded[name] {
			continue
		}
		files = append(files, name)
	}
	if len(files) == 0 {
		return nil, errors.Errorf("%s: %w", dir, ErrNoInputFiles)
	}
	sort.Strings(files)

	var rows []model.Row
	loaded := 0
	for _, name := range files {
		fileRows, err := csvstore.ReadFile(filepath.Join(dir, name))
		if err != nil {
			logger.Error().Err(err).Str("file", name).Msg("skipping unreadable file")
			continue
		}
		loaded++
		rows = append(rows, fileRows...)
	}
	if loaded == 0 {
		return nil, errors.Errorf("%s: %w", dir, ErrNothingLoaded)
	}

	logger.Info().Int("files", loaded).Int("skipped", len(files)-loaded).Int("rows", len(rows)).Msg("loaded csv files")
	return rows, nil
}
