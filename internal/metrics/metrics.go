package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	FetchAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orbit_fetch_attempts_total",
		Help: "HTTP fetch attempts by outcome (ok, network, http_status, timeout)",
	}, []string{"outcome"})

	FetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "orbit_fetch_duration_seconds",
		Help:    "Duration of a single HTTP fetch attempt in seconds",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"outcome"})

	ReportsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orbit_reports_total",
		Help: "Reports produced by endpoint and status",
	}, []string{"endpoint", "status"})

	PublishedEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orbit_published_events_total",
		Help: "Report events handed to publishers by status (published, skipped, failed)",
	}, []string{"status"})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
