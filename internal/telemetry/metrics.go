// Package telemetry exposes the prometheus instrumentation of the realm
// server. A nil *Recorder is a no-op, so telemetry absence or failure never
// affects core correctness.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder owns the realm server metrics on a local registry.
type Recorder struct {
	registry *prometheus.Registry

	movesTotal          *prometheus.CounterVec
	handlerOutcomes     *prometheus.CounterVec
	debounceHits        prometheus.Counter
	deadLetteredEvents  *prometheus.CounterVec
	scannerFindings     *prometheus.CounterVec
	generationDuration  prometheus.Histogram
	generationTokens    prometheus.Counter
	generationFallbacks prometheus.Counter
}

// NewRecorder creates a Recorder with its own registry.
func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	return &Recorder{
		registry: registry,
		movesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "realm_moves_total",
				Help: "Total movement attempts, partitioned by outcome.",
			},
			[]string{"outcome"},
		),
		handlerOutcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "realm_event_handler_outcomes_total",
				Help: "World event handler outcomes, partitioned by event type and outcome.",
			},
			[]string{"event_type", "outcome"},
		),
		debounceHits: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "realm_exit_hint_debounce_hits_total",
				Help: "Exit generation hints suppressed by the debounce window.",
			},
		),
		deadLetteredEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "realm_dead_lettered_events_total",
				Help: "Events routed to the dead-letter sink, partitioned by reason.",
			},
			[]string{"reason"},
		),
		scannerFindings: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "realm_graph_scanner_findings_total",
				Help: "Graph consistency findings, partitioned by class.",
			},
			[]string{"class"},
		),
		generationDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "realm_generation_duration_seconds",
				Help:    "Histogram of description generation request durations.",
				Buckets: prometheus.DefBuckets,
			},
		),
		generationTokens: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "realm_generation_tokens_used_total",
				Help: "Total AI tokens used for description generation.",
			},
		),
		generationFallbacks: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "realm_generation_fallbacks_total",
				Help: "Description generations that fell back to baseline text.",
			},
		),
	}
}

// Registry exposes the underlying registry for the metrics HTTP handler.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return prometheus.NewRegistry()
	}
	return r.registry
}

// RecordMove counts a movement attempt by outcome.
func (r *Recorder) RecordMove(outcome string) {
	if r == nil {
		return
	}
	r.movesTotal.WithLabelValues(outcome).Inc()
}

// RecordHandlerOutcome counts an event handler outcome.
func (r *Recorder) RecordHandlerOutcome(eventType, outcome string) {
	if r == nil {
		return
	}
	r.handlerOutcomes.WithLabelValues(eventType, outcome).Inc()
}

// RecordDebounceHit counts a suppressed exit generation hint.
func (r *Recorder) RecordDebounceHit() {
	if r == nil {
		return
	}
	r.debounceHits.Inc()
}

// RecordDeadLetter counts an event routed to the dead-letter sink.
func (r *Recorder) RecordDeadLetter(reason string) {
	if r == nil {
		return
	}
	r.deadLetteredEvents.WithLabelValues(reason).Inc()
}

// RecordScannerFinding counts one consistency finding of the given class.
func (r *Recorder) RecordScannerFinding(class string, count int) {
	if r == nil || count <= 0 {
		return
	}
	r.scannerFindings.WithLabelValues(class).Add(float64(count))
}

// RecordGeneration observes a generation request.
func (r *Recorder) RecordGeneration(seconds float64, tokens int) {
	if r == nil {
		return
	}
	r.generationDuration.Observe(seconds)
	if tokens > 0 {
		r.generationTokens.Add(float64(tokens))
	}
}

// RecordGenerationFallback counts a fallback to baseline text.
func (r *Recorder) RecordGenerationFallback() {
	if r == nil {
		return
	}
	r.generationFallbacks.Inc()
}
