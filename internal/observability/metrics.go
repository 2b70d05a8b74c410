package observability

import (
	"context"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	FetchAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cartilla_fetch_attempts_total",
			Help: "HTTP attempts made against the directory API",
		},
		[]string{"endpoint"},
	)
	FetchResultsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cartilla_fetch_results_total",
			Help: "Fetch outcomes by kind",
		},
		[]string{"endpoint", "kind"},
	)
	RowsWrittenTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cartilla_rows_written_total",
			Help: "Provider rows appended to per-combination CSV files",
		},
	)
	MergedRows = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cartilla_merged_rows",
			Help: "Distinct provider locations in the last merge",
		},
	)
)

var registerOnce sync.Once

// Start exposes /metrics on port. An empty port leaves the server off.
func Start(ctx context.Context, port string) {
	registerOnce.Do(func() {
		prometheus.MustRegister(FetchAttemptsTotal, FetchResultsTotal, RowsWrittenTotal, MergedRows)
		http.Handle("/metrics", promhttp.Handler())
	})
	if port == "" {
		return
	}
	logger := zerolog.Ctx(ctx)
	go func() {
		if err := http.ListenAndServe(":"+port, nil); err != nil {
			logger.Error().Err(err).Str("port", port).Msg("metrics server stopped")
		}
	}()
}
