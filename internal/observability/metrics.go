package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	ActiveConnections prometheus.Gauge
	Frames            *prometheus.CounterVec
	BridgeErrors      *prometheus.CounterVec
	UpstreamErrors    prometheus.Counter
	SessionEvents     *prometheus.CounterVec
	SessionDuration   prometheus.Histogram
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		ActiveConnections: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_connections",
			Help:      "Number of live reflection bridge connections.",
		}),
		Frames: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_total",
			Help:      "Bridge frames by direction and type.",
		}, []string{"direction", "type"}),
		BridgeErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bridge_errors_total",
			Help:      "Error frames emitted to clients by code.",
		}, []string{"code"}),
		UpstreamErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_errors_total",
			Help:      "Runtime errors reported by the upstream speech API.",
		}),
		SessionEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_events_total",
			Help:      "Reflection session events by type.",
		}, []string{"event"}),
		SessionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_duration_seconds",
			Help:      "Duration of reflection sessions in seconds.",
			Buckets:   []float64{10, 30, 60, 120, 300, 450, 600},
		}),
	}
}

func (m *Metrics) ObserveSessionDuration(d time.Duration) {
	m.SessionDuration.Observe(d.Seconds())
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
