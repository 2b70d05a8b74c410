package export

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cartilla/internal/model"
)

func readParquet(t *testing.T, path string) []ProviderRow {
	t.Helper()

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	reader := parquet.NewGenericReader[ProviderRow](f)
	defer reader.Close()

	rows := make([]ProviderRow, reader.NumRows())
	n, err := reader.Read(rows)
	if err != nil && err != io.EOF {
		t.Fatalf("read parquet: %v", err)
	}
	return rows[:n]
}

func TestWriteParquet(t *testing.T) {
	id := model.Identity{Name: "Juan Perez", Address: "Av. Siempreviva 123", Latitude: "-34.6", Longitude: "-58.4"}
	merged := []model.MergedRow{
		{Identity: id, Plans: "210, 220", Specialties: "PSICOLOGÍA ADULTOS"},
		{Identity: model.Identity{Name: "Ana Gomez"}, Plans: "310", Specialties: "PSICOPEDAGOGÍA"},
	}
	path := filepath.Join(t.TempDir(), "merged.parquet")

	require.NoError(t, WriteParquet(path, "run-1", merged))

	rows := readParquet(t, path)
	require.Len(t, rows, 2)
	assert.Equal(t, "Juan Perez", rows[0].Name)
	assert.Equal(t, "210, 220", rows[0].Plans)
	assert.Equal(t, "run-1", rows[0].RunID)
	assert.Equal(t, model.LocationID(id).String(), rows[0].LocationID)
	assert.NotEqual(t, rows[0].LocationID, rows[1].LocationID)
	assert.Equal(t, "PSICOPEDAGOGÍA", rows[1].Specialties)
}
