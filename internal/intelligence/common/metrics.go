package common

import (
	"sync"
	"time"

	"github.com/turtacn/ProbAL-Intelligence/internal/infrastructure/monitoring/prometheus"
)

// ---------------------------------------------------------------------------
// Interfaces
// ---------------------------------------------------------------------------

// EngineMetrics is the telemetry API of the active-learning engines.  The
// implementation (Prometheus, in-memory, noop) can be swapped without touching
// engine code.
type EngineMetrics interface {
	// RecordLabelings counts hypothetical labelings simulated by the gain engine.
	RecordLabelings(n int)

	// RecordGreedyStep records the duration of one selection step.
	RecordGreedyStep(batchMode string, d time.Duration)

	// RecordFanOut records one ParallelMap stage.
	RecordFanOut(stage string, items int, d time.Duration)
}

// ---------------------------------------------------------------------------
// Prometheus implementation
// ---------------------------------------------------------------------------

type prometheusEngineMetrics struct {
	m *prometheus.AppMetrics
}

// NewPrometheusEngineMetrics records engine telemetry into app metrics.
func NewPrometheusEngineMetrics(m *prometheus.AppMetrics) EngineMetrics {
	if m == nil {
		return NewNoopEngineMetrics()
	}
	return &prometheusEngineMetrics{m: m}
}

func (p *prometheusEngineMetrics) RecordLabelings(n int) {
	p.m.LabelingsEvaluatedTotal.WithLabelValues().Add(float64(n))
}

func (p *prometheusEngineMetrics) RecordGreedyStep(batchMode string, d time.Duration) {
	p.m.GreedyStepDuration.WithLabelValues(batchMode).Observe(d.Seconds())
}

func (p *prometheusEngineMetrics) RecordFanOut(stage string, _ int, d time.Duration) {
	p.m.FanOutDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// ---------------------------------------------------------------------------
// Noop implementation
// ---------------------------------------------------------------------------

type noopEngineMetrics struct{}

// NewNoopEngineMetrics returns an EngineMetrics that discards everything.
func NewNoopEngineMetrics() EngineMetrics { return noopEngineMetrics{} }

func (noopEngineMetrics) RecordLabelings(int)                     {}
func (noopEngineMetrics) RecordGreedyStep(string, time.Duration)  {}
func (noopEngineMetrics) RecordFanOut(string, int, time.Duration) {}

// ---------------------------------------------------------------------------
// In-memory implementation (tests)
// ---------------------------------------------------------------------------

// InMemoryEngineMetrics keeps counters in memory so tests can assert on them.
type InMemoryEngineMetrics struct {
	mu          sync.Mutex
	labelings   int64
	greedySteps map[string]int
	fanOutItems map[string]int
}

// NewInMemoryEngineMetrics creates an empty InMemoryEngineMetrics.
func NewInMemoryEngineMetrics() *InMemoryEngineMetrics {
	return &InMemoryEngineMetrics{
		greedySteps: make(map[string]int),
		fanOutItems: make(map[string]int),
	}
}

func (m *InMemoryEngineMetrics) RecordLabelings(n int) {
	m.mu.Lock()
	m.labelings += int64(n)
	m.mu.Unlock()
}

func (m *InMemoryEngineMetrics) RecordGreedyStep(batchMode string, _ time.Duration) {
	m.mu.Lock()
	m.greedySteps[batchMode]++
	m.mu.Unlock()
}

func (m *InMemoryEngineMetrics) RecordFanOut(stage string, items int, _ time.Duration) {
	m.mu.Lock()
	m.fanOutItems[stage] += items
	m.mu.Unlock()
}

// Labelings returns the total number of simulated labelings.
func (m *InMemoryEngineMetrics) Labelings() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.labelings
}

// GreedySteps returns the number of steps recorded for batchMode.
func (m *InMemoryEngineMetrics) GreedySteps(batchMode string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.greedySteps[batchMode]
}

// FanOutItems returns the number of items evaluated in stage.
func (m *InMemoryEngineMetrics) FanOutItems(stage string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fanOutItems[stage]
}
