package export

import (
	"os"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"
	"gitlab.com/tozd/go/errors"

	"cartilla/internal/model"
)

// ProviderRow is the Parquet layout of one merged provider location.
// Plans and specialties stay comma-joined as in the CSV.
type ProviderRow struct {
	LocationID   string `parquet:"location_id"`
	RunID        string `parquet:"run_id"`
	Name         string `parquet:"name"`
	Address      string `parquet:"address"`
	Email        string `parquet:"email"`
	Phone        string `parquet:"phone"`
	Locality     string `parquet:"locality"`
	Province     string `parquet:"province"`
	Latitude     string `parquet:"latitude"`
	Longitude    string `parquet:"longitude"`
	Neighborhood string `parquet:"neighborhood"`
	Plans        string `parquet:"plans"`
	Specialties  string `parquet:"specialties"`
}

func toParquetRow(runID string, m model.MergedRow) ProviderRow {
	return ProviderRow{
		LocationID:   model.LocationID(m.Identity).String(),
		RunID:        runID,
		Name:         m.Name,
		Address:      m.Address,
		Email:        m.Email,
		Phone:        m.Phone,
		Locality:     m.Locality,
		Province:     m.Province,
		Latitude:     m.Latitude,
		Longitude:    m.Longitude,
		Neighborhood: m.Neighborhood,
		Plans:        m.Plans,
		Specialties:  m.Specialties,
	}
}

// WriteParquet writes the merged table to a zstd-compressed Parquet file.
func WriteParquet(path, runID string, rows []model.MergedRow) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Errorf("create parquet file: %w", err)
	}

	w := parquet.NewGenericWriter[ProviderRow](f,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedDefault}),
		parquet.CreatedBy("cartilla", "1.0", ""),
	)

	batch := make([]ProviderRow, 0, len(rows))
	for _, r := range rows {
		batch = append(batch, toParquetRow(runID, r))
	}
	if _, err := w.Write(batch); err != nil {
		w.Close()
		f.Close()
		return errors.Errorf("write parquet rows: %w", err)
	}
	if err := w.Close(); err != nil {
		f.Close()
		return errors.Errorf("close parquet writer: %w", err)
	}
	return f.Close()
}
