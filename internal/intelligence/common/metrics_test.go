package common

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ProbAL-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ProbAL-Intelligence/internal/infrastructure/monitoring/prometheus"
)

func TestNoopEngineMetrics(t *testing.T) {
	m := NewNoopEngineMetrics()
	assert.NotPanics(t, func() {
		m.RecordLabelings(3)
		m.RecordGreedyStep("greedy", time.Millisecond)
		m.RecordFanOut("gain", 4, time.Millisecond)
	})
}

func TestInMemoryEngineMetrics(t *testing.T) {
	m := NewInMemoryEngineMetrics()
	m.RecordLabelings(3)
	m.RecordLabelings(4)
	m.RecordGreedyStep("greedy", time.Millisecond)
	m.RecordGreedyStep("greedy", time.Millisecond)
	m.RecordFanOut("gain", 5, time.Millisecond)

	assert.Equal(t, int64(7), m.Labelings())
	assert.Equal(t, 2, m.GreedySteps("greedy"))
	assert.Equal(t, 0, m.GreedySteps("full"))
	assert.Equal(t, 5, m.FanOutItems("gain"))
}

func TestPrometheusEngineMetrics(t *testing.T) {
	c, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{Namespace: "probal"}, logging.NewNopLogger())
	require.NoError(t, err)
	m := NewPrometheusEngineMetrics(prometheus.NewAppMetrics(c))

	m.RecordLabelings(6)
	m.RecordGreedyStep("full", 10*time.Millisecond)
	m.RecordFanOut("gain", 2, time.Millisecond)

	w := httptest.NewRecorder()
	c.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	out := w.Body.String()
	assert.Contains(t, out, "probal_labelings_evaluated_total 6")
	assert.Contains(t, out, `probal_greedy_step_duration_seconds_count{batch_mode="full"} 1`)
	assert.Contains(t, out, `probal_fanout_duration_seconds_count{stage="gain"} 1`)
}

func TestNewPrometheusEngineMetrics_NilFallsBackToNoop(t *testing.T) {
	assert.Equal(t, NewNoopEngineMetrics(), NewPrometheusEngineMetrics(nil))
}
