package query

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ProbAL-Intelligence/internal/config"
	"github.com/turtacn/ProbAL-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ProbAL-Intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/ProbAL-Intelligence/internal/intelligence/kernel"
	"github.com/turtacn/ProbAL-Intelligence/internal/testutil"
	"github.com/turtacn/ProbAL-Intelligence/pkg/errors"
	qtypes "github.com/turtacn/ProbAL-Intelligence/pkg/types/query"
)

// ----------------------------------------------------------------------------
// Helpers
// ----------------------------------------------------------------------------

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Kernel.Gamma = 1
	cfg.Strategy.RandomSeed = 42
	cfg.Engine.MaxConcurrency = 2
	return cfg
}

func newTestService(t *testing.T) (QueryService, prometheus.MetricsCollector, *testutil.MockLogger) {
	t.Helper()
	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{Namespace: "test", Subsystem: "svc"}, logging.NewNopLogger())
	require.NoError(t, err)
	logger := testutil.NewMockLogger()
	return NewQueryService(testConfig(), logger, prometheus.NewAppMetrics(collector)), collector, logger
}

func scrape(t *testing.T, c prometheus.MetricsCollector) string {
	t.Helper()
	w := httptest.NewRecorder()
	c.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	return w.Body.String()
}

func request(s qtypes.Strategy) *qtypes.Request {
	d := testutil.TwoClusters()
	return &qtypes.Request{
		Strategy:   s,
		Candidates: d.Candidates,
		X:          d.X,
		Y:          d.Y,
	}
}

// precomputedKernel returns the RBF(gamma 1) similarity matrix over the
// TwoClusters instances followed by its candidates, with both sets rewritten
// as index vectors.
func precomputedKernel() (*qtypes.KernelSpec, [][]float64, [][]float64) {
	d := testutil.TwoClusters()
	points := append(append([][]float64{}, d.X...), d.Candidates...)
	idx := make([][]float64, len(points))
	for i := range points {
		idx[i] = kernel.Index(i)
	}
	ks := &qtypes.KernelSpec{
		Metric: kernel.MetricPrecomputed,
		Matrix: kernel.RBF{Gamma: 1}.Similarity(points, points),
	}
	return ks, idx[:len(d.X)], idx[len(d.X):]
}

// ----------------------------------------------------------------------------
// Tests
// ----------------------------------------------------------------------------

func TestQueryService_Strategies(t *testing.T) {
	t.Parallel()

	tests := []struct {
		strategy qtypes.Strategy
		want     []int
	}{
		{qtypes.StrategyMcPAL, []int{1}},
		{qtypes.StrategyXPAL, []int{1}},
		{qtypes.StrategyRandom, nil},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(string(tt.strategy), func(t *testing.T) {
			t.Parallel()
			svc, collector, logger := newTestService(t)

			resp, err := svc.Query(context.Background(), request(tt.strategy))
			require.NoError(t, err)

			_, err = uuid.Parse(resp.QueryID)
			assert.NoError(t, err)
			assert.Equal(t, tt.strategy, resp.Strategy)
			require.Len(t, resp.Indices, 1)
			if tt.want != nil {
				assert.Equal(t, tt.want, resp.Indices)
			}
			require.Len(t, resp.Utilities, 1)
			assert.Len(t, resp.Utilities[0], 3)
			assert.Empty(t, resp.Advisories)

			assert.True(t, logger.HasMessage("info", "query completed"))
			assert.Contains(t, scrape(t, collector),
				`test_svc_query_total{status="ok",strategy="`+string(tt.strategy)+`"} 1`)
		})
	}
}

func TestQueryService_SeedIsReproducible(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(t)
	seed := int64(3)
	req := &qtypes.Request{
		Strategy:   qtypes.StrategyRandom,
		Candidates: [][]float64{{1}, {2}, {3}, {4}, {5}},
		BatchSize:  3,
		Seed:       &seed,
	}
	first, err := svc.Query(context.Background(), req)
	require.NoError(t, err)
	second, err := svc.Query(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, first.Indices, second.Indices)
	assert.NotEqual(t, first.QueryID, second.QueryID)
}

func TestQueryService_AdvisoriesAreCounted(t *testing.T) {
	t.Parallel()

	svc, collector, logger := newTestService(t)
	req := request(qtypes.StrategyRandom)
	req.BatchSize = 5

	resp, err := svc.Query(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, resp.Advisories, 1)
	assert.Equal(t, string(errors.CodeBatchClamped), resp.Advisories[0].Code)
	assert.Len(t, resp.Indices, 3)

	assert.Contains(t, scrape(t, collector), `test_svc_advisories_total{code="QRY_006"} 1`)
	assert.Equal(t, 1, logger.CountLevel("warn"))
}

func TestQueryService_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(r *qtypes.Request)
		code   errors.ErrorCode
		status string
	}{
		{"unknown strategy", func(r *qtypes.Request) { r.Strategy = "uncertainty" }, errors.CodeInvalidArgument, `status="QRY_001",strategy="unknown"`},
		{"unknown metric", func(r *qtypes.Request) { r.Metric = "kappa" }, errors.CodeUnsupportedMetric, `status="QRY_004",strategy="xpal"`},
		{"full with lookahead", func(r *qtypes.Request) {
			r.BatchMode = "full"
			r.Lookahead = 2
		}, errors.CodeUnsupportedMode, `status="QRY_003",strategy="xpal"`},
		{"unknown kernel", func(r *qtypes.Request) { r.Kernel = &qtypes.KernelSpec{Metric: "cosine"} }, errors.CodeInvalidArgument, `status="QRY_001",strategy="xpal"`},
		{"no labels", func(r *qtypes.Request) { r.Y = []int{-1, -1, -1, -1} }, errors.CodeInvalidArgument, `status="QRY_001",strategy="xpal"`},
		{"precomputed with feature vectors", func(r *qtypes.Request) {
			r.Kernel = &qtypes.KernelSpec{Metric: "precomputed", Matrix: [][]float64{{1, 0}, {0, 1}}}
		}, errors.CodeInvalidArgument, `status="QRY_001",strategy="xpal"`},
		{"precomputed eval index out of range", func(r *qtypes.Request) {
			r.Kernel, r.X, r.Candidates = precomputedKernel()
			r.Eval = [][]float64{kernel.Index(7)}
		}, errors.CodeInvalidArgument, `status="QRY_001",strategy="xpal"`},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc, collector, logger := newTestService(t)
			req := request(qtypes.StrategyXPAL)
			tt.mutate(req)

			_, err := svc.Query(context.Background(), req)
			require.Error(t, err)
			assert.Equal(t, tt.code, errors.GetCode(err))
			assert.Contains(t, scrape(t, collector), `test_svc_query_total{`+tt.status+`} 1`)
			assert.True(t, logger.HasMessage("warn", "query rejected"))
		})
	}
}

func TestQueryService_PrecomputedKernel(t *testing.T) {
	t.Parallel()

	for _, strategy := range []qtypes.Strategy{qtypes.StrategyMcPAL, qtypes.StrategyXPAL} {
		strategy := strategy
		t.Run(string(strategy), func(t *testing.T) {
			t.Parallel()
			svc, _, _ := newTestService(t)
			req := request(strategy)
			req.Kernel, req.X, req.Candidates = precomputedKernel()

			resp, err := svc.Query(context.Background(), req)
			require.NoError(t, err)
			assert.Equal(t, []int{1}, resp.Indices)
		})
	}
}

func TestQueryService_CancelledContext(t *testing.T) {
	t.Parallel()

	svc, _, logger := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Query(ctx, request(qtypes.StrategyXPAL))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeCancelled))
	assert.True(t, logger.HasMessage("warn", "query rejected"))
}

func TestQueryService_UpdateConfig(t *testing.T) {
	t.Parallel()

	svc, _, logger := newTestService(t)
	cfg := testConfig()
	cfg.Strategy.BatchSize = 2
	svc.UpdateConfig(cfg)
	svc.UpdateConfig(nil)
	assert.True(t, logger.HasMessage("info", "configuration reloaded"))

	resp, err := svc.Query(context.Background(), request(qtypes.StrategyRandom))
	require.NoError(t, err)
	assert.Len(t, resp.Indices, 2)
}

func TestQueryService_NilDependencies(t *testing.T) {
	t.Parallel()

	svc := NewQueryService(nil, nil, nil)
	resp, err := svc.Query(context.Background(), request(qtypes.StrategyRandom))
	require.NoError(t, err)
	assert.Len(t, resp.Indices, 1)
}

func TestInferClasses(t *testing.T) {
	t.Parallel()

	n, err := inferClasses(&qtypes.Request{Y: []int{0, 2, -1}})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = inferClasses(&qtypes.Request{NClasses: 5, Y: []int{0}})
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	_, err = inferClasses(&qtypes.Request{Y: []int{-1}})
	assert.True(t, errors.IsCode(err, errors.CodeInvalidArgument))
}
