package probal

import (
	"context"
	"math"

	"github.com/turtacn/ProbAL-Intelligence/internal/intelligence/common"
	"github.com/turtacn/ProbAL-Intelligence/pkg/errors"
)

const stageCostReduction = "cost_reduction"

// CostReductionEngine computes the McPAL expected cost reduction in closed
// form under a Dirichlet posterior.  Candidates are evaluated concurrently.
type CostReductionEngine struct {
	opts *engineOptions
}

// NewCostReductionEngine creates an engine.
func NewCostReductionEngine(opts ...Option) *CostReductionEngine {
	return &CostReductionEngine{opts: buildOptions(opts)}
}

// ExpectedCostReduction is CostReductionEngine.Compute with default options.
func ExpectedCostReduction(K, C [][]float64, mMax int, prior Prior) ([]float64, error) {
	return NewCostReductionEngine().Compute(context.Background(), K, C, mMax, prior)
}

// Compute returns, for every class-frequency row of K, the maximum over
// m = 1..mMax of the expected cost reduction per acquired label when m more
// labels are observed.  A nil C selects the error metric.
func (e *CostReductionEngine) Compute(ctx context.Context, K, C [][]float64, mMax int, prior Prior) ([]float64, error) {
	if mMax < 1 {
		return nil, errors.InvalidArgument("m_max must be ≥ 1").WithDetailf("m_max=%d", mMax)
	}
	if len(K) == 0 {
		return []float64{}, nil
	}
	nClasses := len(K[0])
	if nClasses < 1 {
		return nil, errors.InvalidArgument("frequency vectors must have at least one class")
	}
	for i, k := range K {
		if len(k) != nClasses {
			return nil, errors.ShapeMismatch("ragged frequency matrix").
				WithDetailf("K[%d] has %d classes, expected %d", i, len(k), nClasses)
		}
		for c, v := range k {
			if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, errors.InvalidArgument("class frequencies must be finite and ≥ 0").
					WithDetailf("K[%d][%d]=%g", i, c, v)
			}
		}
	}
	if C == nil {
		C = ErrorCostMatrix(nClasses)
	} else if err := ValidateCostMatrix(C, nClasses); err != nil {
		return nil, err
	}
	alpha, err := prior.Expand(nClasses)
	if err != nil {
		return nil, err
	}
	table, err := newLabelVectorTable(mMax, nClasses)
	if err != nil {
		return nil, err
	}

	return common.ParallelMap(ctx, K, func(_ context.Context, _ int, k []float64) (float64, error) {
		return costReduction(k, C, alpha, mMax, table), nil
	}, e.opts.batchOptions(stageCostReduction)...)
}

// costReduction evaluates one candidate.
func costReduction(k []float64, C [][]float64, alpha []float64, mMax int, table *labelVectorTable) float64 {
	n := len(k)
	kPost := make([]float64, n)
	for i := range k {
		kPost[i] = k[i] + alpha[i]
	}
	logBk := LogEulerBeta(kPost)

	expectedCost := make([]float64, mMax+1)
	kl := make([]float64, n)
	a := make([]float64, n)
	for idx, l := range table.vectors {
		for i := range k {
			kl[i] = k[i] + float64(l[i])
		}
		yHat := bayesDecision(kl, C)

		for i := range a {
			a[i] = kPost[i] + float64(l[i])
		}
		var s float64
		for j := 0; j < n; j++ {
			if C[j][yHat] == 0 {
				continue
			}
			a[j]++
			s += C[j][yHat] * math.Exp(table.logMult[idx]+LogEulerBeta(a)-logBk)
			a[j]--
		}
		expectedCost[table.m[idx]] += s
	}

	best := math.Inf(-1)
	for m := 1; m <= mMax; m++ {
		gain := (expectedCost[0] - expectedCost[m]) / float64(m)
		if gain > best {
			best = gain
		}
	}
	return best
}

// bayesDecision returns argmin_j Σ_i k_i C[i][j]; ties go to the lowest index.
func bayesDecision(k []float64, C [][]float64) int {
	best, bestCost := 0, math.Inf(1)
	for j := range C {
		var cost float64
		for i := range k {
			cost += k[i] * C[i][j]
		}
		if cost < bestCost {
			best, bestCost = j, cost
		}
	}
	return best
}
