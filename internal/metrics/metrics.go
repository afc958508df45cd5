// Package metrics exposes Prometheus counters for editor gestures and
// backend round trips.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/vk/bracketflow/internal/backend"
	"github.com/vk/bracketflow/internal/flowerr"
)

// Outcome labels.
const (
	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
)

// Metrics holds the collectors of one registry.
type Metrics struct {
	gestures        *prometheus.CounterVec
	backendCalls    *prometheus.CounterVec
	backendDuration *prometheus.HistogramVec
	dirty           prometheus.Gauge
}

// New registers the collectors with reg. Use prometheus.NewRegistry in tests
// so parallel tests do not share counters.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		// Labels: canvas (manual, automatic), gesture (connect, remove, ...),
		// outcome (ok or a flowerr kind)
		gestures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bracketflow",
			Subsystem: "editor",
			Name:      "gestures_total",
			Help:      "Canvas gestures by outcome",
		}, []string{"canvas", "gesture", "outcome"}),
		backendCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bracketflow",
			Subsystem: "backend",
			Name:      "calls_total",
			Help:      "Backend calls by operation and result",
		}, []string{"op", "result"}),
		backendDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "bracketflow",
			Subsystem: "backend",
			Name:      "call_duration_seconds",
			Help:      "Backend call latency in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"op"}),
		dirty: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "bracketflow",
			Subsystem: "editor",
			Name:      "unsaved_changes",
			Help:      "Unsaved changes on the automatic canvas",
		}),
	}
}

// Gesture counts a finished gesture. A nil err counts as ok; classified
// errors are labelled with their kind.
func (m *Metrics) Gesture(canvas, gesture string, err error) {
	if m == nil {
		return
	}
	m.gestures.WithLabelValues(canvas, gesture, outcome(err)).Inc()
}

// BackendCall records one backend round trip.
func (m *Metrics) BackendCall(op backend.Op, took time.Duration, err error) {
	if m == nil {
		return
	}
	result := OutcomeOK
	if err != nil {
		result = OutcomeFailed
	}
	m.backendCalls.WithLabelValues(op.String(), result).Inc()
	m.backendDuration.WithLabelValues(op.String()).Observe(took.Seconds())
}

// UnsavedChanges publishes the dirty tracker's count.
func (m *Metrics) UnsavedChanges(n int) {
	if m == nil {
		return
	}
	m.dirty.Set(float64(n))
}

func outcome(err error) string {
	if err == nil {
		return OutcomeOK
	}
	if kind, ok := flowerr.KindOf(err); ok {
		return kind.String()
	}
	return OutcomeFailed
}
