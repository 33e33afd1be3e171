package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reqanalyzer",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by method, route and status",
	}, []string{"method", "route", "status"})

	requestsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "reqanalyzer",
		Subsystem: "http",
		Name:      "requests_in_flight",
		Help:      "Requests currently being served",
	})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "reqanalyzer",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Request latency by route",
		// analysis requests include LLM retries, so the tail is long
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
	}, []string{"method", "route"})
)

// Metrics tracks request metrics. Routes are labelled by chi pattern to keep
// cardinality bounded.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestsInFlight.Inc()
		defer requestsInFlight.Dec()

		start := time.Now()
		wrapped := wrapWriter(w)
		next.ServeHTTP(wrapped, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		requestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(wrapped.statusCode)).Inc()
		requestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// MetricsHandler exposes the default Prometheus registry
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
