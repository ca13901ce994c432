// Package metrics exposes Prometheus instrumentation for loads and view queries.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sells-group/census-cli/internal/view"
)

// Query results.
const (
	ResultOK      = "ok"
	ResultEmpty   = "empty"
	ResultInvalid = "invalid"
	ResultError   = "error"
)

var (
	queries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "census",
		Subsystem: "view",
		Name:      "queries_total",
		Help:      "View queries broken down by view and result.",
	}, []string{"view", "result"})

	queryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "census",
		Subsystem: "view",
		Name:      "query_duration_seconds",
		Help:      "Latency distribution for view queries.",
		Buckets: []float64{
			0.0001, 0.0005,
			0.001, 0.005,
			0.01, 0.05,
			0.1, 0.5, 1,
		},
	}, []string{"view"})

	recordsLoaded = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "census",
		Subsystem: "loader",
		Name:      "records",
		Help:      "Records in the currently loaded census table.",
	})

	loadFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "census",
		Subsystem: "loader",
		Name:      "failures_total",
		Help:      "Census loads that fell back to an empty table or aborted.",
	})
)

// ObserveQuery records one view query. Its signature matches
// pipeline.Options.Observe.
func ObserveQuery(req view.Request, rows int, elapsed time.Duration, err error) {
	name := req.View
	if _, perr := view.ParseName(name); perr != nil {
		name = "unknown"
	}
	queries.WithLabelValues(name, resultOf(rows, err)).Inc()
	queryLatency.WithLabelValues(name).Observe(elapsed.Seconds())
}

// ObserveLoad records the outcome of a census load.
func ObserveLoad(records int, err error) {
	recordsLoaded.Set(float64(records))
	if err != nil {
		loadFailures.Inc()
	}
}

// Handler serves the default registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}

func resultOf(rows int, err error) string {
	switch {
	case errors.Is(err, view.ErrInvalidParameter):
		return ResultInvalid
	case err != nil:
		return ResultError
	case rows == 0:
		return ResultEmpty
	}
	return ResultOK
}
