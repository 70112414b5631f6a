package probal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ProbAL-Intelligence/pkg/errors"
)

func TestBayesianKernelEstimator(t *testing.T) {
	t.Parallel()

	est := NewBayesianKernelEstimator([]float64{0.5, 0.5}, 2)
	require.NoError(t, est.Fit([]int{0, 1, MissingLabel}, []float64{1, 2, 1}))

	rows := [][]float64{{1, 0.5, 9}, {0, 0, 9}}

	freq, err := est.PredictFrequency(rows)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1.5, 1.5}, {0.5, 0.5}}, freq)

	proba, err := est.PredictProbability(rows)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{0.5, 0.5}, {0.5, 0.5}}, proba)
}

func TestBayesianKernelEstimator_Errors(t *testing.T) {
	t.Parallel()

	t.Run("prior length", func(t *testing.T) {
		err := NewBayesianKernelEstimator([]float64{1}, 2).Fit([]int{0}, nil)
		assert.True(t, errors.IsCode(err, errors.CodeShapeMismatch))
	})

	t.Run("weights length", func(t *testing.T) {
		err := NewBayesianKernelEstimator([]float64{1, 1}, 2).Fit([]int{0}, []float64{1, 1})
		assert.True(t, errors.IsCode(err, errors.CodeInvalidArgument))
	})

	t.Run("label range", func(t *testing.T) {
		err := NewBayesianKernelEstimator([]float64{1, 1}, 2).Fit([]int{2}, nil)
		assert.True(t, errors.IsCode(err, errors.CodeInvalidArgument))
	})

	t.Run("unfitted", func(t *testing.T) {
		_, err := NewBayesianKernelEstimator([]float64{1, 1}, 2).PredictFrequency([][]float64{{1}})
		assert.True(t, errors.IsCode(err, errors.CodeInternal))
	})

	t.Run("row width", func(t *testing.T) {
		est := NewBayesianKernelEstimator([]float64{1, 1}, 2)
		require.NoError(t, est.Fit([]int{0, 1}, nil))
		_, err := est.PredictFrequency([][]float64{{1}})
		assert.True(t, errors.IsCode(err, errors.CodeShapeMismatch))
	})
}

func TestIndependentJointProbability(t *testing.T) {
	t.Parallel()

	// Candidate 0 sits on the class-0 instance, candidate 1 on the class-1 one.
	kCL := [][]float64{{1, 0}, {0, 1}}
	j, err := NewIndependentJointProbability(kCL, []int{0, 1}, nil, []float64{1, 1}, 2)
	require.NoError(t, err)

	probs, err := j.Probabilities([]int{0, 1}, [][]int{{0, 1}, {1, 0}, {0, 0}, {1, 1}})
	require.NoError(t, err)
	// marginals: cand0 = [2/3, 1/3], cand1 = [1/3, 2/3]
	assert.InDelta(t, 4.0/9, probs[0], 1e-12)
	assert.InDelta(t, 1.0/9, probs[1], 1e-12)
	assert.InDelta(t, 2.0/9, probs[2], 1e-12)
	assert.InDelta(t, 2.0/9, probs[3], 1e-12)

	var sum float64
	for _, p := range probs {
		sum += p
	}
	assert.InDelta(t, 1.0, sum, 1e-12)
}

func TestDependentJointProbability(t *testing.T) {
	t.Parallel()

	kCL := [][]float64{{1, 0}, {0, 1}}
	kCC := [][]float64{{1, 1}, {1, 1}}
	j, err := NewDependentJointProbability(kCL, kCC, []int{0, 1}, nil, []float64{1, 1}, 2)
	require.NoError(t, err)

	probs, err := j.Probabilities([]int{0, 1}, [][]int{{0, 0}, {0, 1}, {1, 0}, {1, 1}})
	require.NoError(t, err)

	// P(y0) from [2,1]; P(y1 | y0) from [1,2] plus one vote for y0.
	assert.InDelta(t, 2.0/3*2.0/4, probs[0], 1e-12)
	assert.InDelta(t, 2.0/3*2.0/4, probs[1], 1e-12)
	assert.InDelta(t, 1.0/3*1.0/4, probs[2], 1e-12)
	assert.InDelta(t, 1.0/3*3.0/4, probs[3], 1e-12)

	var sum float64
	for _, p := range probs {
		sum += p
	}
	assert.InDelta(t, 1.0, sum, 1e-12)
}

func TestDependentJointProbability_SingleCandidateMatchesIndependent(t *testing.T) {
	t.Parallel()

	kCL := [][]float64{{0.3, 0.9, 0.1}, {0.5, 0.2, 0.7}}
	kCC := [][]float64{{1, 0.4}, {0.4, 1}}
	labels := []int{0, 1, 2}
	prior := []float64{0.2, 0.3, 0.5}

	ind, err := NewIndependentJointProbability(kCL, labels, nil, prior, 3)
	require.NoError(t, err)
	dep, err := NewDependentJointProbability(kCL, kCC, labels, nil, prior, 3)
	require.NoError(t, err)

	labelings := [][]int{{0}, {1}, {2}}
	pi, err := ind.Probabilities([]int{1}, labelings)
	require.NoError(t, err)
	pd, err := dep.Probabilities([]int{1}, labelings)
	require.NoError(t, err)
	assert.InDeltaSlice(t, pi, pd, 1e-12)
}

func TestJointProbability_Validation(t *testing.T) {
	t.Parallel()

	j, err := NewIndependentJointProbability([][]float64{{1}}, []int{0}, nil, []float64{1, 1}, 2)
	require.NoError(t, err)

	_, err = j.Probabilities([]int{3}, [][]int{{0}})
	assert.True(t, errors.IsCode(err, errors.CodeInvalidArgument))

	_, err = j.Probabilities([]int{0}, [][]int{{0, 1}})
	assert.True(t, errors.IsCode(err, errors.CodeShapeMismatch))

	_, err = NewDependentJointProbability([][]float64{{1}}, nil, []int{0}, nil, []float64{1, 1}, 2)
	assert.True(t, errors.IsCode(err, errors.CodeShapeMismatch))
}
