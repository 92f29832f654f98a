package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	simRunner = "simrunner"

	// Run metrics
	runsSubmittedTotal = "runs_submitted_total"
	runDurationSeconds = "run_duration_seconds"

	// Labels
	backendLabel = "backend"
	statusLabel  = "status"
)

/**
* Metrics definition
**/
var runsSubmittedTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: simRunner,
		Name:      runsSubmittedTotal,
		Help:      "number of accepted run submissions",
	},
	[]string{backendLabel},
)

var runDurationSecondsMetric = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Subsystem: simRunner,
		Name:      runDurationSeconds,
		Help:      "time from submission to collected result",
		Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
	},
	[]string{backendLabel, statusLabel},
)

func IncreaseRunsSubmittedTotalMetric(backend string) {
	runsSubmittedTotalMetric.With(prometheus.Labels{backendLabel: backend}).Inc()
}

func ObserveRunDuration(backend, status string, d time.Duration) {
	labels := prometheus.Labels{
		backendLabel: backend,
		statusLabel:  status,
	}
	runDurationSecondsMetric.With(labels).Observe(d.Seconds())
}

func init() {
	registerMetrics()
}

func registerMetrics() {
	prometheus.MustRegister(runsSubmittedTotalMetric)
	prometheus.MustRegister(runDurationSecondsMetric)
}

// NewPrometheusMetricsHandler exposes the default registry over HTTP.
func NewPrometheusMetricsHandler() *PrometheusMetricsHandler {
	return &PrometheusMetricsHandler{}
}

type PrometheusMetricsHandler struct{}

func (h *PrometheusMetricsHandler) Handler() http.Handler {
	return promhttp.Handler()
}
