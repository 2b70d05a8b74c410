package crawler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cartilla/internal/checkpoint"
	"cartilla/internal/config"
	"cartilla/internal/csvstore"
	"cartilla/internal/merge"
	"cartilla/internal/model"
)

var testSpecialties = []model.Specialty{
	{ID: "810", Label: "PSICOLOGÍA ADULTOS"},
	{ID: "870", Label: "PSICOLOGÍA NIÑOS Y ADOLESCENTES"},
}

const juanPerez = `{"nombre": "Juan Perez", "consultorios": [{
	"direccion": "Av. Siempreviva 123", "email": "juan@example.com", "telefono": "4444-1111",
	"localidad": "CABA", "provincia": "Capital Federal", "barrio": "Palermo",
	"geolocalizacion": {"latitud": -34.5889, "longitud": -58.43}}]}`

type directoryFixture struct {
	plans         string
	providerCalls atomic.Int32
}

func (f *directoryFixture) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/plans", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, f.plans)
	})
	mux.HandleFunc("/provinces", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"id": 1, "nombre": "Capital Federal", "tipo": "P"}, {"id": 7, "nombre": "Córdoba", "tipo": "P"}]`)
	})
	mux.HandleFunc("/providers", func(w http.ResponseWriter, r *http.Request) {
		f.providerCalls.Add(1)
		q := r.URL.Query()
		if q.Get("metodo") != providersMethod || q.Get("filialId") != "1" || q.Get("modalidadAtencion") != "2" || q.Get("localidadId") != "0" {
			http.Error(w, "bad query", http.StatusBadRequest)
			return
		}
		switch q.Get("planId") + "/" + q.Get("provinciaId") + "/" + q.Get("especialidadId") {
		case "1/1/810", "2/1/810":
			fmt.Fprintf(w, `{"ListaPrestador": [%s]}`, juanPerez)
		case "1/7/810":
			http.NotFound(w, r)
		case "2/7/870":
			fmt.Fprint(w, `{"ListaPrestador": [{"nombre": "Centro Sin Sede", "consultorios": []}]}`)
		default:
			fmt.Fprint(w, `{"ListaPrestador": []}`)
		}
	})
	return mux
}

type outcomeLog struct {
	outcomes []model.FetchOutcome
}

func (l *outcomeLog) Record(_ context.Context, o model.FetchOutcome) error {
	l.outcomes = append(l.outcomes, o)
	return nil
}

func (l *outcomeLog) kinds() map[string]int {
	counts := map[string]int{}
	for _, o := range l.outcomes {
		counts[o.Kind]++
	}
	return counts
}

func newTestCollector(t *testing.T, srvURL, dir string) *Collector {
	t.Helper()
	cfg := &config.Config{
		PlansURL:       srvURL + "/plans",
		ProvincesURL:   srvURL + "/provinces",
		ProvidersURL:   srvURL + "/providers",
		UserAgent:      "cartilla-test",
		RequestTimeout: time.Second,
		MaxAttempts:    3,
		RetryDelay:     time.Millisecond,
	}
	return &Collector{
		Directory:   NewDirectory(cfg),
		Specialties: testSpecialties,
		Sink:        &csvstore.Writer{Dir: dir},
		RunID:       "run-1",
	}
}

func TestCollectorRun(t *testing.T) {
	fixture := &directoryFixture{plans: `[{"id": 1, "nombre": "210"}, {"id": 2, "nombre": "Plan Joven"}]`}
	srv := httptest.NewServer(fixture.handler())
	defer srv.Close()

	dir := t.TempDir()
	log := &outcomeLog{}
	store := checkpoint.NewMemoryStore()
	c := newTestCollector(t, srv.URL, dir)
	c.Recorder = log
	c.Checkpoint = store

	var buf bytes.Buffer
	ctx := zerolog.New(&buf).WithContext(context.Background())

	got, err := c.Run(ctx)
	require.NoError(t, err)

	skips := noProviderEntries(t, buf.Bytes())
	assert.Len(t, skips, 5)
	assert.Contains(t, skips, map[string]string{
		"province":      "Córdoba",
		"province_type": "P",
		"specialty":     "PSICOLOGÍA ADULTOS",
		"plan":          "210",
		"kind":          "permanent",
	})

	assert.Equal(t, 8, got.Total)
	assert.Equal(t, 0, got.Skipped)
	assert.Equal(t, int32(8), fixture.providerCalls.Load())
	require.Len(t, got.Batches, 3)
	assert.Equal(t, "Capital Federal", got.Batches[0].Province.Name)
	assert.Equal(t, map[string]int{"ok": 3, "empty": 4, "permanent": 1}, log.kinds())
	assert.Equal(t, 8, store.Len())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{
		"prestadores_plan_210_especialidad_PSICOLOGÍA ADULTOS.csv",
		"prestadores_plan_Plan_Joven_especialidad_PSICOLOGÍA ADULTOS.csv",
		"prestadores_plan_Plan_Joven_especialidad_PSICOLOGÍA NIÑOS Y ADOLESCENTES.csv",
	}, names)

	sinSede, err := csvstore.ReadFile(filepath.Join(dir, "prestadores_plan_Plan_Joven_especialidad_PSICOLOGÍA NIÑOS Y ADOLESCENTES.csv"))
	require.NoError(t, err)
	require.Len(t, sinSede, 1)
	assert.Equal(t, NoAddress, sinSede[0].Address)

	inMemory := merge.Merge(got.Rows())
	onDisk, err := merge.LoadDir(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, inMemory, merge.Merge(onDisk))

	require.Len(t, inMemory, 2)
	assert.Equal(t, "Centro Sin Sede", inMemory[0].Name)
	assert.Equal(t, "Juan Perez", inMemory[1].Name)
	assert.Equal(t, "210, Plan_Joven", inMemory[1].Plans)
	assert.Equal(t, "-34.5889", inMemory[1].Latitude)
}

// noProviderEntries returns the fields of every "no providers found" line.
func noProviderEntries(t *testing.T, logs []byte) []map[string]string {
	t.Helper()
	var entries []map[string]string
	for _, line := range bytes.Split(bytes.TrimSpace(logs), []byte("\n")) {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(line, &entry))
		if entry["message"] != "no providers found" {
			continue
		}
		fields := map[string]string{}
		for _, k := range []string{"province", "province_type", "specialty", "plan", "kind"} {
			fields[k], _ = entry[k].(string)
		}
		entries = append(entries, fields)
	}
	return entries
}

func TestCollectorResumeSkipsMarkedCombinations(t *testing.T) {
	fixture := &directoryFixture{plans: `[{"id": 1, "nombre": "210"}, {"id": 2, "nombre": "Plan Joven"}]`}
	srv := httptest.NewServer(fixture.handler())
	defer srv.Close()

	store := checkpoint.NewMemoryStore()
	done := model.ComboKey(model.Plan{ID: "1"}, model.Province{ID: "1", Type: "P"}, testSpecialties[0])
	require.NoError(t, store.Mark(context.Background(), done))

	c := newTestCollector(t, srv.URL, t.TempDir())
	c.Checkpoint = store
	c.Resume = true

	got, err := c.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, got.Skipped)
	assert.Equal(t, int32(7), fixture.providerCalls.Load())
	assert.Len(t, got.Batches, 2)
}

func TestCollectorStopsWithoutPlans(t *testing.T) {
	fixture := &directoryFixture{plans: `[]`}
	srv := httptest.NewServer(fixture.handler())
	defer srv.Close()

	_, err := newTestCollector(t, srv.URL, t.TempDir()).Run(context.Background())

	assert.ErrorIs(t, err, ErrNoPlans)
	assert.ErrorContains(t, err, "(empty)")
	assert.Equal(t, int32(0), fixture.providerCalls.Load())
}

func TestCollectorLeavesTransientFailuresUnmarked(t *testing.T) {
	fixture := &directoryFixture{plans: `[{"id": 1, "nombre": "210"}]`}
	mux := http.NewServeMux()
	mux.Handle("/plans", fixture.handler())
	mux.Handle("/provinces", fixture.handler())
	mux.HandleFunc("/providers", hang)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	store := checkpoint.NewMemoryStore()
	c := newTestCollector(t, srv.URL, t.TempDir())
	c.Directory.Client = newTestClient(20 * time.Millisecond)
	c.Checkpoint = store
	c.Specialties = testSpecialties[:1]

	got, err := c.Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, got.Batches)
	assert.Equal(t, 0, store.Len())
}
