package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry is the dedicated Prometheus registry for the service.
	Registry = prometheus.NewRegistry()

	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "route", "status"},
	)
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "route"},
	)

	// OpDuration is fed by obs.Time for every timed operation.
	OpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "operation_duration_seconds", Help: "Duration of timed internal operations.", Buckets: prometheus.DefBuckets},
		[]string{"op", "outcome"},
	)

	// OptimizerCalls counts optimizer and geocoder calls by endpoint and error kind.
	OptimizerCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "optimizer_calls_total", Help: "Calls to the external route optimizer."},
		[]string{"endpoint", "result"},
	)

	RoutesSaved = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "routes_saved_total", Help: "Routes committed by the reconciler."},
	)
	RoutesReplaced = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "routes_replaced_total", Help: "Existing routes deleted before a new route was saved."},
	)
	RouteSaveFailures = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "route_save_failures_total", Help: "Per-worker route saves rolled back."},
	)
)

var regOnce sync.Once

// RegisterDefault registers all collectors on Registry. Safe to call repeatedly.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(OpDuration)
		Registry.MustRegister(OptimizerCalls)
		Registry.MustRegister(RoutesSaved)
		Registry.MustRegister(RoutesReplaced)
		Registry.MustRegister(RouteSaveFailures)
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

// Handler serves Registry in the Prometheus text format.
func Handler() http.Handler {
	RegisterDefault()
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
