package probal

import (
	"gonum.org/v1/gonum/floats"

	"github.com/turtacn/ProbAL-Intelligence/pkg/errors"
)

// BayesianKernelEstimator turns kernel similarities to a labeled training set
// into Dirichlet pseudo-counts: the weighted kernel vote of every class plus
// a fixed prior.  It does not own instances; callers pass kernel rows whose
// columns are aligned with the labels given to Fit.
type BayesianKernelEstimator struct {
	Prior    []float64
	NClasses int

	labels  []int
	weights []float64
	fitted  bool
}

// NewBayesianKernelEstimator creates an unfitted estimator.
func NewBayesianKernelEstimator(prior []float64, nClasses int) *BayesianKernelEstimator {
	return &BayesianKernelEstimator{Prior: prior, NClasses: nClasses}
}

// Fit stores the training labels and weights.  Labels equal to MissingLabel
// contribute nothing.  A nil weights slice means unit weights.
func (e *BayesianKernelEstimator) Fit(labels []int, weights []float64) error {
	if len(e.Prior) != e.NClasses {
		return errors.ShapeMismatch("prior length does not match class count").
			WithDetailf("len(prior)=%d, n_classes=%d", len(e.Prior), e.NClasses)
	}
	if weights == nil {
		weights = onesVector(len(labels))
	}
	if len(weights) != len(labels) {
		return errors.InvalidArgument("labels and weights differ in length").
			WithDetailf("len(labels)=%d, len(weights)=%d", len(labels), len(weights))
	}
	for i, y := range labels {
		if y != MissingLabel && (y < 0 || y >= e.NClasses) {
			return errors.InvalidArgument("label out of range").
				WithDetailf("labels[%d]=%d, n_classes=%d", i, y, e.NClasses)
		}
	}
	e.labels = labels
	e.weights = weights
	e.fitted = true
	return nil
}

// PredictFrequency returns Σ_t K[r][t]·w_t·onehot(y_t) + prior for every row.
func (e *BayesianKernelEstimator) PredictFrequency(kernelRows [][]float64) ([][]float64, error) {
	if !e.fitted {
		return nil, errors.Internal("estimator used before Fit")
	}
	out := make([][]float64, len(kernelRows))
	for r, row := range kernelRows {
		if len(row) != len(e.labels) {
			return nil, errors.ShapeMismatch("kernel row does not match training set").
				WithDetailf("row %d has %d columns, %d training labels", r, len(row), len(e.labels))
		}
		freq := append([]float64(nil), e.Prior...)
		for t, y := range e.labels {
			if y == MissingLabel {
				continue
			}
			freq[y] += row[t] * e.weights[t]
		}
		out[r] = freq
	}
	return out, nil
}

// PredictProbability returns the row-normalized frequencies.
func (e *BayesianKernelEstimator) PredictProbability(kernelRows [][]float64) ([][]float64, error) {
	freq, err := e.PredictFrequency(kernelRows)
	if err != nil {
		return nil, err
	}
	for _, row := range freq {
		normalize(row)
	}
	return freq, nil
}

// normalize scales row to sum to one; an all-zero row becomes uniform.
func normalize(row []float64) {
	sum := floats.Sum(row)
	if sum > 0 {
		floats.Scale(1/sum, row)
		return
	}
	for i := range row {
		row[i] = 1 / float64(len(row))
	}
}
