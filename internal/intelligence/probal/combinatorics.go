package probal

import (
	"math"

	"gonum.org/v1/gonum/stat/combin"

	"github.com/turtacn/ProbAL-Intelligence/pkg/errors"
)

// ---------------------------------------------------------------------------
// Beta and multinomial functions
// ---------------------------------------------------------------------------

// LogEulerBeta returns log B(a) = Σ lgamma(a_i) − lgamma(Σ a_i).
func LogEulerBeta(a []float64) float64 {
	var sum, acc float64
	for _, v := range a {
		lg, _ := math.Lgamma(v)
		acc += lg
		sum += v
	}
	lg, _ := math.Lgamma(sum)
	return acc - lg
}

// EulerBeta evaluates the multivariate Beta function for every row.
func EulerBeta(vectors [][]float64) []float64 {
	out := make([]float64, len(vectors))
	for i, a := range vectors {
		out[i] = math.Exp(LogEulerBeta(a))
	}
	return out
}

// LogMultinomial returns log( (Σ l)! / Π l_i! ).
func LogMultinomial(l []int) float64 {
	var m int
	var acc float64
	for _, v := range l {
		lg, _ := math.Lgamma(float64(v) + 1)
		acc -= lg
		m += v
	}
	lg, _ := math.Lgamma(float64(m) + 1)
	return acc + lg
}

// MultinomialCoefficient evaluates the multinomial coefficient for every row.
func MultinomialCoefficient(vectors [][]int) []float64 {
	out := make([]float64, len(vectors))
	for i, l := range vectors {
		out[i] = math.Round(math.Exp(LogMultinomial(l)))
	}
	return out
}

// ---------------------------------------------------------------------------
// Label vectors
// ---------------------------------------------------------------------------

// LabelVectorCount is the number of non-negative integer vectors of length
// nClasses summing to m.
func LabelVectorCount(m, nClasses int) int {
	if m < 0 || nClasses < 1 {
		return 0
	}
	return combin.Binomial(m+nClasses-1, nClasses-1)
}

// EnumerateLabelVectors lists every label vector of length nClasses summing
// to m in lexicographic order (first coordinate ascending).
func EnumerateLabelVectors(m, nClasses int) ([][]int, error) {
	if nClasses < 1 {
		return nil, errors.InvalidArgument("n_classes must be ≥ 1").WithDetailf("n_classes=%d", nClasses)
	}
	if m < 0 {
		return nil, errors.InvalidArgument("label count must be ≥ 0").WithDetailf("m=%d", m)
	}

	out := make([][]int, 0, LabelVectorCount(m, nClasses))
	free := nClasses - 1
	v := make([]int, nClasses)
	v[free] = m
	out = append(out, append([]int(nil), v...))

	// Odometer over the first n−1 coordinates; the last one absorbs the rest.
	sum := 0
	for {
		j := free - 1
		for ; j >= 0; j-- {
			if sum < m {
				v[j]++
				sum++
				break
			}
			sum -= v[j]
			v[j] = 0
		}
		if j < 0 {
			break
		}
		v[free] = m - sum
		out = append(out, append([]int(nil), v...))
	}
	return out, nil
}

// labelVectorTable holds the label vectors for m = 0..mMax with their log
// multinomial coefficients.  It is built once per query and read concurrently.
type labelVectorTable struct {
	vectors [][]int
	m       []int
	logMult []float64
}

func newLabelVectorTable(mMax, nClasses int) (*labelVectorTable, error) {
	t := &labelVectorTable{}
	for m := 0; m <= mMax; m++ {
		vs, err := EnumerateLabelVectors(m, nClasses)
		if err != nil {
			return nil, err
		}
		for _, l := range vs {
			t.vectors = append(t.vectors, l)
			t.m = append(t.m, m)
			t.logMult = append(t.logMult, LogMultinomial(l))
		}
	}
	return t, nil
}
