package csvstore

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cartilla/internal/model"
)

var (
	plan210   = model.Plan{ID: "1", Name: "210"}
	planJoven = model.Plan{ID: "2", Name: "Plan Joven"}
	adults    = model.Specialty{ID: "810", Label: "PSICOLOGÍA ADULTOS"}
)

func row(name, plan string) model.Row {
	return model.Row{
		Identity: model.Identity{
			Name: name, Address: "Av. Siempreviva 123", Email: "a@b.com", Phone: "1",
			Locality: "CABA", Province: "Capital Federal", Latitude: "-34.6", Longitude: "-58.4", Neighborhood: "Palermo",
		},
		Plan:      plan,
		Specialty: adults.Label,
	}
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "prestadores_plan_Plan_Joven_especialidad_PSICOLOGÍA ADULTOS.csv", FileName(planJoven, adults))
}

func TestAppendWritesHeaderOnce(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "prestadores")
	w := &Writer{Dir: dir}

	require.NoError(t, w.Append(plan210, adults, []model.Row{row("Juan Perez", "210")}))
	require.NoError(t, w.Append(plan210, adults, []model.Row{row("Ana Gomez", "210"), row("Luis, Hijo", "210")}))

	path := filepath.Join(dir, FileName(plan210, adults))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(raw), "Name,Address,Email"))

	rows, err := ReadFile(path)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Juan Perez", "Ana Gomez", "Luis, Hijo"}, []string{rows[0].Name, rows[1].Name, rows[2].Name})
	assert.Equal(t, row("Luis, Hijo", "210"), rows[2])
}

func TestReadFileMissingColumnsAreEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.csv")
	content := "\ufeffname,ADDRESS,Plan\nJuan Perez,Av. Siempreviva 123,310\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	rows, err := ReadFile(path)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Juan Perez", rows[0].Name)
	assert.Equal(t, "Av. Siempreviva 123", rows[0].Address)
	assert.Equal(t, "310", rows[0].Plan)
	assert.Equal(t, "", rows[0].Email)
	assert.Equal(t, "", rows[0].Specialty)
}

func TestReadFileErrors(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"empty.csv":     "",
		"foreign.csv":   "a,b,c\n1,2,3\n",
		"malformed.csv": "Name,Plan\n\"Juan \"Perez\",210\n",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}

	for name := range files {
		t.Run(name, func(t *testing.T) {
			_, err := ReadFile(filepath.Join(dir, name))
			assert.Error(t, err)
		})
	}

	_, err := ReadFile(filepath.Join(dir, "missing.csv"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestWriteMerged(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "prestadores_merged.csv")
	merged := []model.MergedRow{{Identity: row("Juan Perez", "").Identity, Plans: "210, 220", Specialties: adults.Label}}

	require.NoError(t, WriteMerged(path, merged))

	rows, err := ReadFile(path)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "210, 220", rows[0].Plan)
	assert.Equal(t, merged[0].Identity, rows[0].Identity)
}
