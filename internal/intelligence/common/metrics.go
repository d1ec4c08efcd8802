package common

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// GenerationMetrics records recommendation generation telemetry. The
// Prometheus, noop and in-memory variants are interchangeable.
type GenerationMetrics interface {
	RecordGeneration(ctx context.Context, params *GenerationMetricParams)
}

// GenerationMetricParams describes one Generate call.
type GenerationMetricParams struct {
	Model          string  `json:"model"`
	Source         string  `json:"source"`
	FallbackReason string  `json:"fallback_reason,omitempty"`
	DurationMs     float64 `json:"duration_ms"`
	Items          int     `json:"items"`
	Language       string  `json:"language"`
}

// ---------------------------------------------------------------------------
// Prometheus implementation
// ---------------------------------------------------------------------------

const metricsPrefix = "aicomply_intelligence_"

var defaultLatencyBuckets = []float64{5, 25, 100, 250, 500, 1000, 2500, 5000, 10000, 15000}

type prometheusGenerationMetrics struct {
	generations *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	fallbacks   *prometheus.CounterVec
}

// NewPrometheusGenerationMetrics registers generation metrics with registerer
// (prometheus.DefaultRegisterer when nil).
func NewPrometheusGenerationMetrics(registerer prometheus.Registerer) (GenerationMetrics, error) {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	m := &prometheusGenerationMetrics{
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metricsPrefix + "recommendation_generations_total",
			Help: "Total number of recommendation generations by source.",
		}, []string{"source", "language"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    metricsPrefix + "recommendation_duration_milliseconds",
			Help:    "Recommendation generation latency in milliseconds.",
			Buckets: defaultLatencyBuckets,
		}, []string{"model", "source"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metricsPrefix + "recommendation_fallbacks_total",
			Help: "Number of generations served by the deterministic fallback, by reason.",
		}, []string{"reason"}),
	}
	for _, c := range []prometheus.Collector{m.generations, m.latency, m.fallbacks} {
		if err := registerer.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *prometheusGenerationMetrics) RecordGeneration(_ context.Context, p *GenerationMetricParams) {
	if p == nil {
		return
	}
	m.generations.WithLabelValues(p.Source, p.Language).Inc()
	m.latency.WithLabelValues(p.Model, p.Source).Observe(p.DurationMs)
	if p.Source == SourceFallback {
		m.fallbacks.WithLabelValues(p.FallbackReason).Inc()
	}
}

// ---------------------------------------------------------------------------
// Noop implementation
// ---------------------------------------------------------------------------

type noopGenerationMetrics struct{}

// NewNoopGenerationMetrics returns metrics that discard everything.
func NewNoopGenerationMetrics() GenerationMetrics { return noopGenerationMetrics{} }

func (noopGenerationMetrics) RecordGeneration(context.Context, *GenerationMetricParams) {}

// ---------------------------------------------------------------------------
// In-memory implementation (tests)
// ---------------------------------------------------------------------------

// InMemoryGenerationMetrics keeps every recorded event.
type InMemoryGenerationMetrics struct {
	mu     sync.Mutex
	events []GenerationMetricParams
}

// NewInMemoryGenerationMetrics returns an empty recorder.
func NewInMemoryGenerationMetrics() *InMemoryGenerationMetrics {
	return &InMemoryGenerationMetrics{}
}

func (m *InMemoryGenerationMetrics) RecordGeneration(_ context.Context, p *GenerationMetricParams) {
	if p == nil {
		return
	}
	m.mu.Lock()
	m.events = append(m.events, *p)
	m.mu.Unlock()
}

// Events returns a copy of the recorded events.
func (m *InMemoryGenerationMetrics) Events() []GenerationMetricParams {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]GenerationMetricParams, len(m.events))
	copy(out, m.events)
	return out
}

// CountBySource returns how many events carried source.
func (m *InMemoryGenerationMetrics) CountBySource(source string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.events {
		if e.Source == source {
			n++
		}
	}
	return n
}
