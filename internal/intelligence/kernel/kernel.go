// Package kernel provides the similarity functions used by the
// active-learning strategies: an RBF kernel with a closed-form bandwidth
// estimate, a linear kernel and a pass-through over a precomputed matrix.
package kernel

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/turtacn/ProbAL-Intelligence/pkg/errors"
)

// Kernel computes the similarity of every row of a to every row of b.
type Kernel interface {
	Similarity(a, b [][]float64) [][]float64
}

// Metric names accepted by New.
const (
	MetricRBF         = "rbf"
	MetricLinear      = "linear"
	MetricPrecomputed = "precomputed"
)

// New builds the kernel named by metric.  For MetricRBF a zero gamma is
// estimated from the shape of reference; for MetricPrecomputed matrix is
// required.
func New(metric string, gamma float64, reference [][]float64, matrix [][]float64) (Kernel, error) {
	switch metric {
	case MetricRBF:
		if gamma < 0 {
			return nil, errors.Newf(errors.CodeInvalidArgument, "kernel: gamma must be ≥ 0, got %g", gamma)
		}
		if gamma == 0 {
			return NewRBFForData(reference), nil
		}
		return RBF{Gamma: gamma}, nil
	case MetricLinear:
		return Linear{}, nil
	case MetricPrecomputed:
		k, err := NewPrecomputed(matrix)
		if err != nil {
			return nil, err
		}
		return k, nil
	default:
		return nil, errors.Newf(errors.CodeInvalidArgument, "kernel: unknown metric %q", metric)
	}
}

// ---------------------------------------------------------------------------
// RBF
// ---------------------------------------------------------------------------

// RBF is exp(−Gamma·‖a−b‖²).
type RBF struct {
	Gamma float64
}

// NewRBFForData returns an RBF whose gamma is 1/EstimateBandwidth of X.
func NewRBFForData(X [][]float64) RBF {
	nFeatures := 0
	if len(X) > 0 {
		nFeatures = len(X[0])
	}
	return RBF{Gamma: 1 / EstimateBandwidth(len(X), nFeatures)}
}

// Similarity implements Kernel.
func (k RBF) Similarity(a, b [][]float64) [][]float64 {
	out := make([][]float64, len(a))
	for i, x := range a {
		out[i] = make([]float64, len(b))
		for j, y := range b {
			d := floats.Distance(x, y, 2)
			out[i][j] = math.Exp(-k.Gamma * d * d)
		}
	}
	return out
}

// EstimateBandwidth is the closed-form kernel bandwidth for nSamples
// instances in nFeatures dimensions.  Degenerate shapes yield 1.
func EstimateBandwidth(nSamples, nFeatures int) float64 {
	if nSamples < 2 || nFeatures < 1 {
		return 1
	}
	n := float64(nSamples)
	numerator := 2 * n * float64(nFeatures)
	eps := math.Sqrt2 * 1e-6
	denominator := (n - 1) * math.Log((n-1)/(eps*eps))
	return math.Sqrt(numerator / denominator)
}

// ---------------------------------------------------------------------------
// Linear
// ---------------------------------------------------------------------------

// Linear is the dot product.
type Linear struct{}

// Similarity implements Kernel.
func (Linear) Similarity(a, b [][]float64) [][]float64 {
	out := make([][]float64, len(a))
	for i, x := range a {
		out[i] = make([]float64, len(b))
		for j, y := range b {
			out[i][j] = floats.Dot(x, y)
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Precomputed
// ---------------------------------------------------------------------------

// Precomputed looks similarities up in a fixed square matrix.  Instances are
// one-element vectors holding their row index into Matrix.
type Precomputed struct {
	Matrix [][]float64
}

// NewPrecomputed validates that matrix is square.
func NewPrecomputed(matrix [][]float64) (Precomputed, error) {
	if len(matrix) == 0 {
		return Precomputed{}, errors.Newf(errors.CodeInvalidArgument, "kernel: precomputed matrix is empty")
	}
	for i, row := range matrix {
		if len(row) != len(matrix) {
			return Precomputed{}, errors.Newf(errors.CodeInvalidArgument, "kernel: precomputed matrix row %d has %d columns, expected %d", i, len(row), len(matrix))
		}
	}
	return Precomputed{Matrix: matrix}, nil
}

// CheckIndices returns InvalidArgument unless every instance of xs is an
// index vector into Matrix.  name labels the instance set in the error.
func (k Precomputed) CheckIndices(name string, xs [][]float64) error {
	for i, x := range xs {
		if _, ok := k.index(x); !ok {
			return errors.Newf(errors.CodeInvalidArgument,
				"kernel: %s[%d]=%v is not an index into the %d×%d precomputed matrix", name, i, x, len(k.Matrix), len(k.Matrix))
		}
	}
	return nil
}

// Similarity implements Kernel.  Indices outside Matrix yield 0; callers
// reject them up front with CheckIndices.
func (k Precomputed) Similarity(a, b [][]float64) [][]float64 {
	out := make([][]float64, len(a))
	for i, x := range a {
		out[i] = make([]float64, len(b))
		r, ok := k.index(x)
		if !ok {
			continue
		}
		for j, y := range b {
			if c, ok := k.index(y); ok {
				out[i][j] = k.Matrix[r][c]
			}
		}
	}
	return out
}

// Index returns the instance vector referring to row i.
func Index(i int) []float64 { return []float64{float64(i)} }

func (k Precomputed) index(x []float64) (int, bool) {
	if len(x) != 1 {
		return 0, false
	}
	i := int(x[0])
	if float64(i) != x[0] || i < 0 || i >= len(k.Matrix) {
		return 0, false
	}
	return i, true
}
