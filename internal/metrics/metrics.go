// Package metrics holds the Prometheus collectors shared by the HUD and the
// asset cache service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Provider metrics
	providerRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "locv2",
		Subsystem: "provider",
		Name:      "requests_total",
		Help:      "Total upstream provider requests",
	}, []string{"provider", "outcome"})

	providerDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "locv2",
		Subsystem: "provider",
		Name:      "request_duration_seconds",
		Help:      "Upstream provider latency in seconds",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"provider"})

	// Navigation metrics
	LookupResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "locv2",
		Subsystem: "nav",
		Name:      "lookups_total",
		Help:      "Location lookups by the source that answered",
	}, []string{"source"})

	RouteResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "locv2",
		Subsystem: "nav",
		Name:      "routes_total",
		Help:      "Route computations by mode",
	}, []string{"mode"})

	StaleDiscarded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "locv2",
		Subsystem: "nav",
		Name:      "stale_results_discarded_total",
		Help:      "Completions dropped because a newer request superseded them",
	}, []string{"kind"})

	// Asset cache metrics
	AssetRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "locv2",
		Subsystem: "assetcache",
		Name:      "requests_total",
		Help:      "Intercepted requests by handling strategy",
	}, []string{"result"})

	AssetsPrecached = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "locv2",
		Subsystem: "assetcache",
		Name:      "precached_total",
		Help:      "Assets stored during install",
	})
)

// ObserveProvider records one upstream call.
func ObserveProvider(provider string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	providerRequests.WithLabelValues(provider, outcome).Inc()
	providerDuration.WithLabelValues(provider).Observe(time.Since(start).Seconds())
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
