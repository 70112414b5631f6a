package probal

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/turtacn/ProbAL-Intelligence/pkg/errors"
)

// ---------------------------------------------------------------------------
// Metric names
// ---------------------------------------------------------------------------

// MetricName identifies a performance measure.
type MetricName string

const (
	MetricError                 MetricName = "error"
	MetricCostVector            MetricName = "cost-vector"
	MetricMisclassificationLoss MetricName = "misclassification-loss"
	MetricMeanAbsError          MetricName = "mean-abs-error"
	MetricMacroAccuracy         MetricName = "macro-accuracy"
	MetricF1Score               MetricName = "f1-score"
	MetricCustom                MetricName = "custom"
)

// AllMetricNames returns every metric accepted by TransformMetric.
func AllMetricNames() []MetricName {
	return []MetricName{
		MetricError,
		MetricCostVector,
		MetricMisclassificationLoss,
		MetricMeanAbsError,
		MetricMacroAccuracy,
		MetricF1Score,
		MetricCustom,
	}
}

func (m MetricName) String() string { return string(m) }

// PerformanceFunc scores a confusion matrix whose rows are true classes and
// columns predicted classes.  Higher is better.
type PerformanceFunc func(conf [][]float64) float64

// MetricSpec is the caller's description of the measure to optimize.
type MetricSpec struct {
	Name       MetricName
	CostVector []float64
	CostMatrix [][]float64
	// Perf is required by MetricCustom and ignored otherwise.
	Perf PerformanceFunc
}

// CostModel is a resolved metric.  Cost-matrix metrics resolve to
// MetricMisclassificationLoss with a nil Perf; confusion-matrix metrics
// resolve to MetricCustom with a nil CostMatrix.
type CostModel struct {
	Metric     MetricName
	CostMatrix [][]float64
	Perf       PerformanceFunc
}

// Decomposable reports whether the performance delta can be computed per
// instance from cost-matrix differences.
func (c *CostModel) Decomposable() bool {
	return c.Metric == MetricMisclassificationLoss
}

// ---------------------------------------------------------------------------
// TransformMetric
// ---------------------------------------------------------------------------

// TransformMetric resolves metric for nClasses classes.
func TransformMetric(metric MetricSpec, nClasses int) (*CostModel, error) {
	if nClasses < 1 {
		return nil, errors.InvalidArgument("n_classes must be ≥ 1").WithDetailf("n_classes=%d", nClasses)
	}

	switch metric.Name {
	case MetricError:
		return costModel(ErrorCostMatrix(nClasses)), nil

	case MetricCostVector:
		if metric.CostVector == nil {
			return nil, errors.InvalidArgument("metric cost-vector requires a cost vector")
		}
		if len(metric.CostVector) != nClasses {
			return nil, errors.ShapeMismatch("cost vector length does not match class count").
				WithDetailf("len(cost_vector)=%d, n_classes=%d", len(metric.CostVector), nClasses)
		}
		C := make([][]float64, nClasses)
		for i := range C {
			C[i] = make([]float64, nClasses)
			for j := range C[i] {
				if i != j {
					C[i][j] = metric.CostVector[i]
				}
			}
		}
		if err := ValidateCostMatrix(C, nClasses); err != nil {
			return nil, err
		}
		return costModel(C), nil

	case MetricMisclassificationLoss:
		if metric.CostMatrix == nil {
			return nil, errors.InvalidArgument("metric misclassification-loss requires a cost matrix")
		}
		if err := ValidateCostMatrix(metric.CostMatrix, nClasses); err != nil {
			return nil, err
		}
		return costModel(cloneMatrix(metric.CostMatrix)), nil

	case MetricMeanAbsError:
		C := make([][]float64, nClasses)
		for i := range C {
			C[i] = make([]float64, nClasses)
			for j := range C[i] {
				C[i][j] = math.Abs(float64(i - j))
			}
		}
		return costModel(C), nil

	case MetricMacroAccuracy:
		return &CostModel{Metric: MetricCustom, Perf: MacroAccuracy}, nil

	case MetricF1Score:
		return &CostModel{Metric: MetricCustom, Perf: F1Score}, nil

	case MetricCustom:
		if metric.Perf == nil {
			return nil, errors.InvalidArgument("metric custom requires a performance function")
		}
		return &CostModel{Metric: MetricCustom, Perf: metric.Perf}, nil
	}

	return nil, errors.UnsupportedMetric("unknown metric").WithDetailf("metric=%q", string(metric.Name))
}

func costModel(C [][]float64) *CostModel {
	return &CostModel{Metric: MetricMisclassificationLoss, CostMatrix: C}
}

// ErrorCostMatrix returns 1 − I.
func ErrorCostMatrix(nClasses int) [][]float64 {
	C := make([][]float64, nClasses)
	for i := range C {
		C[i] = make([]float64, nClasses)
		for j := range C[i] {
			if i != j {
				C[i][j] = 1
			}
		}
	}
	return C
}

// ValidateCostMatrix checks that C is a finite, non-negative nClasses×nClasses
// matrix.
func ValidateCostMatrix(C [][]float64, nClasses int) error {
	if len(C) != nClasses {
		return errors.ShapeMismatch("cost matrix does not match class count").
			WithDetailf("rows=%d, n_classes=%d", len(C), nClasses)
	}
	for i, row := range C {
		if len(row) != nClasses {
			return errors.ShapeMismatch("cost matrix is not square").
				WithDetailf("row %d has %d columns, n_classes=%d", i, len(row), nClasses)
		}
		for j, v := range row {
			if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
				return errors.InvalidArgument("cost matrix entries must be finite and ≥ 0").
					WithDetailf("C[%d][%d]=%g", i, j, v)
			}
		}
	}
	return nil
}

func cloneMatrix(m [][]float64) [][]float64 {
	out := make([][]float64, len(m))
	for i, row := range m {
		out[i] = append([]float64(nil), row...)
	}
	return out
}

// ---------------------------------------------------------------------------
// Confusion-matrix performance functions
// ---------------------------------------------------------------------------

// MacroAccuracy is the mean per-class recall.  Classes without support are
// left out of the mean.
func MacroAccuracy(conf [][]float64) float64 {
	var acc float64
	var n int
	for i, row := range conf {
		support := floats.Sum(row)
		if support <= 0 {
			continue
		}
		acc += row[i] / support
		n++
	}
	if n == 0 {
		return 0
	}
	return acc / float64(n)
}

// F1Score is the F1 measure of the last class.
func F1Score(conf [][]float64) float64 {
	n := len(conf)
	if n == 0 {
		return 0
	}
	tp := conf[n-1][n-1]
	rowSum := floats.Sum(conf[n-1])
	var colSum float64
	for i := range conf {
		colSum += conf[i][n-1]
	}

	var recall, precision float64
	if rowSum > 0 {
		recall = tp / rowSum
	}
	if colSum > 0 {
		precision = tp / colSum
	}
	if recall+precision == 0 {
		return 0
	}
	return 2 * recall * precision / (recall + precision)
}

// ---------------------------------------------------------------------------
// Optimal prior
// ---------------------------------------------------------------------------

// UniformPrior returns [1/n, ..., 1/n].
func UniformPrior(nClasses int) []float64 {
	out := make([]float64, nClasses)
	for i := range out {
		out[i] = 1 / float64(nClasses)
	}
	return out
}

// CalculateOptimalPrior returns the normalized column sums of inv(C).  When C
// is singular or the inverse produces a negative or non-finite weight the
// uniform prior is returned with a NumericDegeneracy advisory.
func CalculateOptimalPrior(C [][]float64) ([]float64, *Advisory) {
	n := len(C)
	if n == 0 {
		return nil, nil
	}
	uniform := UniformPrior(n)

	flat := make([]float64, 0, n*n)
	for _, row := range C {
		flat = append(flat, row...)
	}
	var inv mat.Dense
	if err := inv.Inverse(mat.NewDense(n, n, flat)); err != nil {
		// An ill-conditioned C still yields a usable inverse; only an
		// infinite condition number means C is singular.
		if cond, ok := err.(mat.Condition); !ok || math.IsInf(float64(cond), 1) {
			return uniform, &Advisory{
				Code:    errors.CodeNumericDegeneracy,
				Message: fmt.Sprintf("cost matrix is not invertible (%v); using uniform prior", err),
			}
		}
	}

	prior := make([]float64, n)
	for j := 0; j < n; j++ {
		prior[j] = floats.Sum(mat.Col(nil, j, &inv))
	}
	sum := floats.Sum(prior)
	if floats.Min(prior) < 0 || !(sum > 0) || math.IsInf(sum, 0) {
		return uniform, &Advisory{
			Code:    errors.CodeNumericDegeneracy,
			Message: "optimal prior has negative weights; using uniform prior",
		}
	}
	floats.Scale(1/sum, prior)
	return prior, nil
}
