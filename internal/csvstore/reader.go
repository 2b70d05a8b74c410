package csvstore

import (
	"bufio"
	"encoding/csv"
	"io"
	"os"
	"strings"

	"gitlab.com/tozd/go/errors"

	"cartilla/internal/model"
)

// ReadFile loads every row of a per-combination or merged CSV. Columns
// are matched by header name, case-insensitively; a column the file lacks
// reads as "".
func ReadFile(path string) ([]model.Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	if bom, err := br.Peek(3); err == nil && bom[0] == 0xEF && bom[1] == 0xBB && bom[2] == 0xBF {
		br.Discard(3)
	}

	r := csv.NewReader(br)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err == io.EOF {
		return nil, errors.Errorf("%s: no header row", path)
	}
	if err != nil {
		return nil, errors.Errorf("read header of %s: %w", path, err)
	}
	idx := columnIndex(header)
	if len(idx) == 0 {
		return nil, errors.Errorf("%s: none of the expected columns present", path)
	}

	var rows []model.Row
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Errorf("read %s: %w", path, err)
		}
		values := make([]string, len(model.Columns))
		for col, at := range idx {
			if at < len(rec) {
				values[col] = rec[at]
			}
		}
		rows = append(rows, model.RowFromRecord(values))
	}
	return rows, nil
}

// columnIndex maps positions in model.Columns to positions in header.
func columnIndex(header []string) map[int]int {
	byName := make(map[string]int, len(header))
	for i, h := range header {
		byName[strings.ToLower(strings.TrimSpace(h))] = i
	}
	idx := make(map[int]int)
	for col, name := range model.Columns {
		if at, ok := byName[strings.ToLower(name)]; ok {
			idx[col] = at
		}
	}
	return idx
}
