// Package metrics exposes Prometheus counters and histograms for the dialogue agent.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// turnsTotal counts completed turns by the phase the reply was rendered in.
	turnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "simsar",
		Subsystem: "agent",
		Name:      "turns_total",
		Help:      "Total conversation turns by rendered phase",
	}, []string{"phase"})

	// transitionsTotal counts committed phase changes.
	transitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "simsar",
		Subsystem: "agent",
		Name:      "transitions_total",
		Help:      "Total phase transitions by source and target phase",
	}, []string{"from", "to"})

	// overridesTotal counts go-back and confused utterances.
	overridesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "simsar",
		Subsystem: "agent",
		Name:      "overrides_total",
		Help:      "Total universal override utterances by kind",
	}, []string{"kind"})

	// generatorFailuresTotal counts turns whose reply could not be generated.
	generatorFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "simsar",
		Subsystem: "agent",
		Name:      "generator_failures_total",
		Help:      "Total failed fallback text generations",
	})

	// turnDurationSeconds measures end-to-end turn latency, generator included.
	turnDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "simsar",
		Subsystem: "agent",
		Name:      "turn_duration_seconds",
		Help:      "End-to-end latency of one conversation turn",
		Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
	})
)

// Recorder receives agent events. The flow package depends on this interface so tests
// can observe events without touching the global registry.
type Recorder interface {
	Turn(phase string, d time.Duration)
	Transition(from, to string)
	Override(kind string)
	GeneratorFailure()
}

// Prometheus records events into the default registry.
type Prometheus struct{}

// Turn implements Recorder.
func (Prometheus) Turn(phase string, d time.Duration) {
	turnsTotal.WithLabelValues(phase).Inc()
	turnDurationSeconds.Observe(d.Seconds())
}

// Transition implements Recorder.
func (Prometheus) Transition(from, to string) {
	transitionsTotal.WithLabelValues(from, to).Inc()
}

// Override implements Recorder.
func (Prometheus) Override(kind string) {
	overridesTotal.WithLabelValues(kind).Inc()
}

// GeneratorFailure implements Recorder.
func (Prometheus) GeneratorFailure() {
	generatorFailuresTotal.Inc()
}

// Nop discards every event.
type Nop struct{}

func (Nop) Turn(string, time.Duration) {}
func (Nop) Transition(string, string) {}
func (Nop) Override(string) {}
func (Nop) GeneratorFailure() {}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
