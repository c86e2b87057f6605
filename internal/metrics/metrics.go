// Package metrics records rotation outcomes for Prometheus scraping.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	rotationsTotal   *prometheus.CounterVec
	rotationDuration *prometheus.HistogramVec

	metricsOnce sync.Once
)

// Outcome labels for the rotation counter.
const (
	OutcomeRotated = "rotated"
	OutcomeSkipped = "skipped"
	OutcomeError   = "error"
)

// Recorder records per-resource rotation outcomes.
type Recorder struct{}

// NewRecorder returns a Recorder. Metrics are registered once on first use.
func NewRecorder() *Recorder {
	metricsOnce.Do(func() {
		rotationsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rotor_rotations_total",
				Help: "Total number of rotation attempts by strategy and outcome",
			},
			[]string{"strategy", "verb", "outcome"},
		)

		rotationDuration = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rotor_rotation_duration_seconds",
				Help:    "Duration of rotation attempts in seconds",
				Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
			},
			[]string{"strategy"},
		)
	})
	return &Recorder{}
}

// Observe records one rotation attempt.
func (r *Recorder) Observe(strategy, verb, outcome string, elapsed time.Duration) {
	rotationsTotal.WithLabelValues(strategy, verb, outcome).Inc()
	rotationDuration.WithLabelValues(strategy).Observe(elapsed.Seconds())
}
