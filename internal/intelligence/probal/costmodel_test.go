package probal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ProbAL-Intelligence/pkg/errors"
)

func TestTransformMetric(t *testing.T) {
	t.Parallel()

	customPerf := func([][]float64) float64 { return 1 }

	tests := []struct {
		name     string
		metric   MetricSpec
		n        int
		wantCode errors.ErrorCode
		wantC    [][]float64
		wantPerf bool
	}{
		{
			name:   "error",
			metric: MetricSpec{Name: MetricError},
			n:      3,
			wantC:  [][]float64{{0, 1, 1}, {1, 0, 1}, {1, 1, 0}},
		},
		{
			name:   "cost vector",
			metric: MetricSpec{Name: MetricCostVector, CostVector: []float64{2, 5}},
			n:      2,
			wantC:  [][]float64{{0, 2}, {5, 0}},
		},
		{
			name:     "cost vector missing",
			metric:   MetricSpec{Name: MetricCostVector},
			n:        2,
			wantCode: errors.CodeInvalidArgument,
		},
		{
			name:     "cost vector wrong length",
			metric:   MetricSpec{Name: MetricCostVector, CostVector: []float64{1, 2, 3}},
			n:        2,
			wantCode: errors.CodeShapeMismatch,
		},
		{
			name:   "misclassification loss",
			metric: MetricSpec{Name: MetricMisclassificationLoss, CostMatrix: [][]float64{{0, 3}, {1, 0}}},
			n:      2,
			wantC:  [][]float64{{0, 3}, {1, 0}},
		},
		{
			name:     "misclassification loss missing matrix",
			metric:   MetricSpec{Name: MetricMisclassificationLoss},
			n:        2,
			wantCode: errors.CodeInvalidArgument,
		},
		{
			name:     "misclassification loss not square",
			metric:   MetricSpec{Name: MetricMisclassificationLoss, CostMatrix: [][]float64{{0, 1, 1}, {1, 0, 1}}},
			n:        2,
			wantCode: errors.CodeShapeMismatch,
		},
		{
			name:     "misclassification loss negative",
			metric:   MetricSpec{Name: MetricMisclassificationLoss, CostMatrix: [][]float64{{0, -1}, {1, 0}}},
			n:        2,
			wantCode: errors.CodeInvalidArgument,
		},
		{
			name:   "mean abs error",
			metric: MetricSpec{Name: MetricMeanAbsError},
			n:      3,
			wantC:  [][]float64{{0, 1, 2}, {1, 0, 1}, {2, 1, 0}},
		},
		{name: "macro accuracy", metric: MetricSpec{Name: MetricMacroAccuracy}, n: 2, wantPerf: true},
		{name: "f1", metric: MetricSpec{Name: MetricF1Score}, n: 2, wantPerf: true},
		{name: "custom", metric: MetricSpec{Name: MetricCustom, Perf: customPerf}, n: 2, wantPerf: true},
		{
			name:     "custom without function",
			metric:   MetricSpec{Name: MetricCustom},
			n:        2,
			wantCode: errors.CodeInvalidArgument,
		},
		{
			name:     "unknown",
			metric:   MetricSpec{Name: "cohens-kappa"},
			n:        2,
			wantCode: errors.CodeUnsupportedMetric,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cm, err := TransformMetric(tt.metric, tt.n)
			if tt.wantCode != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, errors.GetCode(err))
				return
			}
			require.NoError(t, err)
			if tt.wantPerf {
				assert.Equal(t, MetricCustom, cm.Metric)
				assert.False(t, cm.Decomposable())
				assert.NotNil(t, cm.Perf)
				assert.Nil(t, cm.CostMatrix)
				return
			}
			assert.Equal(t, MetricMisclassificationLoss, cm.Metric)
			assert.True(t, cm.Decomposable())
			assert.Equal(t, tt.wantC, cm.CostMatrix)
		})
	}
}

func TestTransformMetric_CopiesCallerMatrix(t *testing.T) {
	t.Parallel()

	C := [][]float64{{0, 1}, {1, 0}}
	cm, err := TransformMetric(MetricSpec{Name: MetricMisclassificationLoss, CostMatrix: C}, 2)
	require.NoError(t, err)
	C[0][1] = 9
	assert.Equal(t, 1.0, cm.CostMatrix[0][1])
}

func TestMacroAccuracy(t *testing.T) {
	t.Parallel()

	conf := [][]float64{{3, 1}, {2, 2}}
	assert.InDelta(t, (0.75+0.5)/2, MacroAccuracy(conf), 1e-12)

	// A class without support is left out.
	assert.InDelta(t, 0.75, MacroAccuracy([][]float64{{3, 1}, {0, 0}}), 1e-12)
	assert.Equal(t, 0.0, MacroAccuracy([][]float64{{0, 0}, {0, 0}}))
}

func TestF1Score(t *testing.T) {
	t.Parallel()

	conf := [][]float64{{5, 1}, {2, 4}}
	recall := 4.0 / 6
	precision := 4.0 / 5
	assert.InDelta(t, 2*recall*precision/(recall+precision), F1Score(conf), 1e-12)

	assert.Equal(t, 0.0, F1Score([][]float64{{5, 0}, {3, 0}}))
	assert.Equal(t, 0.0, F1Score(nil))
}

func TestCalculateOptimalPrior(t *testing.T) {
	t.Parallel()

	t.Run("error metric is uniform", func(t *testing.T) {
		prior, adv := CalculateOptimalPrior(ErrorCostMatrix(3))
		assert.Nil(t, adv)
		require.Len(t, prior, 3)
		for _, p := range prior {
			assert.InDelta(t, 1.0/3, p, 1e-9)
		}
	})

	t.Run("asymmetric costs sum to one", func(t *testing.T) {
		prior, adv := CalculateOptimalPrior([][]float64{{0, 1}, {4, 0}})
		assert.Nil(t, adv)
		// inv = [[0, 0.25], [1, 0]]; column sums [1, 0.25]
		assert.InDelta(t, 0.8, prior[0], 1e-9)
		assert.InDelta(t, 0.2, prior[1], 1e-9)
	})

	t.Run("negative weights fall back to uniform", func(t *testing.T) {
		// ones · inv(C) = [-4, 1]
		prior, adv := CalculateOptimalPrior([][]float64{{1, 0}, {5, 1}})
		require.NotNil(t, adv)
		assert.Equal(t, errors.CodeNumericDegeneracy, adv.Code)
		assert.Equal(t, UniformPrior(2), prior)
	})

	t.Run("ill conditioned keeps the inverse", func(t *testing.T) {
		// cond(C) = 1e17 exceeds mat.ConditionTolerance, yet C is invertible:
		// inv = diag(1, 1e17).
		prior, adv := CalculateOptimalPrior([][]float64{{1, 0}, {0, 1e-17}})
		assert.Nil(t, adv)
		require.Len(t, prior, 2)
		assert.InDelta(t, 0.0, prior[0], 1e-12)
		assert.InDelta(t, 1.0, prior[1], 1e-12)
	})

	t.Run("singular falls back to uniform", func(t *testing.T) {
		prior, adv := CalculateOptimalPrior([][]float64{{1, 1}, {1, 1}})
		require.NotNil(t, adv)
		assert.Equal(t, errors.CodeNumericDegeneracy, adv.Code)
		assert.Equal(t, UniformPrior(2), prior)
	})
}
