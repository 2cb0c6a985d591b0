// Package telemetry exposes Prometheus collectors for the mirror listeners and
// an optional side listener serving /metrics and /healthz.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/matiasleandrokruk/zigmirror/internal/version"
)

// RouteFallback is the route label used for requests no route matched.
const RouteFallback = "fallback"

// Metrics records per-listener request counts, latencies and asset read
// failures. A nil *Metrics is valid and records nothing.
type Metrics struct {
	requests   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	readErrors *prometheus.CounterVec
}

// NewMetrics registers the mirror collectors on registerer, or on the default
// registerer when it is nil.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registerer)

	return &Metrics{
		requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "zigmirror_requests_total",
				Help: "Total number of requests handled, by listener, route and status",
			},
			[]string{"listener", "route", "status"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "zigmirror_request_duration_seconds",
				Help:    "Time spent serving a request, including artifact transfer",
				Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5, 15, 60},
			},
			[]string{"listener", "route"},
		),
		readErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "zigmirror_asset_read_errors_total",
				Help: "Total number of asset files that could not be read at request time",
			},
			[]string{"listener", "asset"},
		),
	}
}

// ObserveRequest records one finished request. status is the numeric HTTP
// status, or "aborted" when the connection was dropped without a response.
func (m *Metrics) ObserveRequest(listener, route, status string, d time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = RouteFallback
	}
	m.requests.WithLabelValues(listener, route, status).Inc()
	m.duration.WithLabelValues(listener, route).Observe(d.Seconds())
}

// ObserveReadError records an asset that failed to open or read.
func (m *Metrics) ObserveReadError(listener, asset string) {
	if m == nil {
		return
	}
	m.readErrors.WithLabelValues(listener, asset).Inc()
}

// RegisterBuildInfo exports zigmirror_build_info, a constant 1 labelled with
// the running build.
func RegisterBuildInfo(registerer prometheus.Registerer, info version.Info) {
	promauto.With(registerer).NewGauge(prometheus.GaugeOpts{
		Name: "zigmirror_build_info",
		Help: "Build information of the running mirror",
		ConstLabels: prometheus.Labels{
			"version":    info.Version,
			"build_time": info.BuildTime,
			"goversion":  info.GoVersion,
		},
	}).Set(1)
}
