// Package monitoring exposes Prometheus counters for sandbox runs plus a
// small metrics/health HTTP server for long-running batch sessions.
package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sandbox_runs_total",
			Help: "Total number of backtest runs by outcome",
		},
		[]string{"strategy", "outcome"},
	)

	runDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sandbox_run_duration_seconds",
			Help:    "Wall-clock duration of backtest runs",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"strategy"},
	)

	simulationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sandbox_monte_carlo_draws_total",
			Help: "Total Monte Carlo draws by outcome",
		},
		[]string{"outcome"},
	)

	walkForwardFolds = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sandbox_walk_forward_folds_total",
			Help: "Total walk-forward folds by outcome",
		},
		[]string{"outcome"},
	)

	barsLoaded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sandbox_bars_loaded_total",
			Help: "Total bars loaded per data store",
		},
		[]string{"store"},
	)

	errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sandbox_errors_total",
			Help: "Total errors by category",
		},
		[]string{"category"},
	)
)

func init() {
	prometheus.MustRegister(runsTotal)
	prometheus.MustRegister(runDuration)
	prometheus.MustRegister(simulationsTotal)
	prometheus.MustRegister(walkForwardFolds)
	prometheus.MustRegister(barsLoaded)
	prometheus.MustRegister(errorsTotal)
}

// MetricsHandler serves the Prometheus scrape endpoint.
type MetricsHandler struct{}

func NewMetricsHandler() *MetricsHandler { return &MetricsHandler{} }

func (m *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// RecordRun records one completed backtest run.
func RecordRun(strategy, outcome string, seconds float64) {
	runsTotal.WithLabelValues(strategy, outcome).Inc()
	runDuration.WithLabelValues(strategy).Observe(seconds)
}

// RecordDraws records completed and excluded Monte Carlo draws.
func RecordDraws(completed, excluded int) {
	simulationsTotal.WithLabelValues("completed").Add(float64(completed))
	simulationsTotal.WithLabelValues("excluded").Add(float64(excluded))
}

// RecordFold records one walk-forward fold outcome.
func RecordFold(outcome string) {
	walkForwardFolds.WithLabelValues(outcome).Inc()
}

// RecordBarsLoaded records bars served by a data store.
func RecordBarsLoaded(store string, n int) {
	barsLoaded.WithLabelValues(store).Add(float64(n))
}

// RecordError records an error by category label.
func RecordError(category string) {
	errorsTotal.WithLabelValues(category).Inc()
}
