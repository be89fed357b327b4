package observability

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce sync.Once

	dispatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "microrpc",
			Subsystem: "dispatch",
			Name:      "total",
			Help:      "Dispatched messages by service and status.",
		},
		[]string{"service", "status"},
	)
	dispatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "microrpc",
			Subsystem: "dispatch",
			Name:      "duration_seconds",
			Help:      "Dispatch duration in seconds, decode through handler.",
			Buckets:   []float64{.000001, .000005, .00001, .00005, .0001, .0005, .001, .005, .01},
		},
		[]string{"service", "status"},
	)
	registeredServices = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "microrpc",
			Subsystem: "registry",
			Name:      "services",
			Help:      "Services registered in the dispatch registry.",
		},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(dispatchTotal, dispatchDuration, registeredServices)
	})
}

// RecordDispatch counts one dispatch. status is the numeric status code so
// handler-defined codes stay distinguishable.
func RecordDispatch(service string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	dispatchTotal.WithLabelValues(service, statusLabel).Inc()
	dispatchDuration.WithLabelValues(service, statusLabel).Observe(duration.Seconds())
}

func SetRegisteredServices(n int) {
	RegisterMetrics()
	registeredServices.Set(float64(n))
}

// Handler serves the default registry for scraping.
func Handler() http.Handler {
	RegisterMetrics()
	return promhttp.Handler()
}
