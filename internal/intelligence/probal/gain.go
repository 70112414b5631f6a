package probal

import (
	"context"
	"math"

	"gonum.org/v1/gonum/stat/combin"

	"github.com/turtacn/ProbAL-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ProbAL-Intelligence/internal/intelligence/common"
	"github.com/turtacn/ProbAL-Intelligence/pkg/errors"
)

const stageGain = "gain"

// ---------------------------------------------------------------------------
// GainMode
// ---------------------------------------------------------------------------

// GainMode selects how an index set is scored.
type GainMode int

const (
	// GainModeNonmyopic scores every prefix of the set, divided by its length.
	GainModeNonmyopic GainMode = iota
	// GainModeBatch scores the whole set as one joint acquisition.
	GainModeBatch
)

func (m GainMode) String() string {
	switch m {
	case GainModeNonmyopic:
		return "nonmyopic"
	case GainModeBatch:
		return "batch"
	default:
		return "unknown"
	}
}

// ---------------------------------------------------------------------------
// GainProblem
// ---------------------------------------------------------------------------

// GainProblem holds the read-only inputs shared by every evaluated index set.
// Kernel matrices are indexed [row set][column set]; KEvalLabeled and
// KEvalCand are required only when Eval is set.
type GainProblem struct {
	Classifier Classifier

	Candidates [][]float64
	Labeled    [][]float64
	Labels     []int
	Weights    []float64
	// Eval is the evaluation set; nil evaluates on the simulated candidates.
	Eval [][]float64

	KCandLabeled [][]float64
	KCandCand    [][]float64
	KEvalLabeled [][]float64
	KEvalCand    [][]float64

	NClasses  int
	Cost      *CostModel
	PriorEval []float64
	Joint     JointLabelProbabilityEstimator

	// AllSimLabelsEqual restricts simulated labelings to one label broadcast
	// across the set.
	AllSimLabelsEqual bool
}

func (p *GainProblem) validate() error {
	if p.Classifier == nil {
		return errors.InvalidArgument("classifier is required")
	}
	if p.Joint == nil {
		return errors.InvalidArgument("joint probability estimator is required")
	}
	if p.Cost == nil {
		return errors.InvalidArgument("cost model is required")
	}
	if p.NClasses < 1 {
		return errors.InvalidArgument("n_classes must be ≥ 1").WithDetailf("n_classes=%d", p.NClasses)
	}
	if len(p.PriorEval) != p.NClasses {
		return errors.ShapeMismatch("evaluation prior does not match class count").
			WithDetailf("len(prior)=%d, n_classes=%d", len(p.PriorEval), p.NClasses)
	}
	if len(p.Labels) != len(p.Labeled) {
		return errors.ShapeMismatch("labels do not match labeled instances").
			WithDetailf("len(y)=%d, len(X)=%d", len(p.Labels), len(p.Labeled))
	}
	if p.Weights != nil && len(p.Weights) != len(p.Labeled) {
		return errors.ShapeMismatch("weights do not match labeled instances").
			WithDetailf("len(w)=%d, len(X)=%d", len(p.Weights), len(p.Labeled))
	}
	nCand, nLabeled := len(p.Candidates), len(p.Labeled)
	if err := checkKernel("K(cand,lbld)", p.KCandLabeled, nCand, nLabeled); err != nil {
		return err
	}
	if err := checkKernel("K(cand,cand)", p.KCandCand, nCand, nCand); err != nil {
		return err
	}
	if p.Eval != nil {
		if err := checkKernel("K(eval,lbld)", p.KEvalLabeled, len(p.Eval), nLabeled); err != nil {
			return err
		}
		if err := checkKernel("K(eval,cand)", p.KEvalCand, len(p.Eval), nCand); err != nil {
			return err
		}
	}
	if p.Cost.Decomposable() {
		return ValidateCostMatrix(p.Cost.CostMatrix, p.NClasses)
	}
	if p.Cost.Perf == nil {
		return errors.InvalidArgument("non-decomposable cost model requires a performance function")
	}
	return nil
}

func checkKernel(name string, K [][]float64, rows, cols int) error {
	if len(K) != rows {
		return errors.ShapeMismatch("kernel matrix has wrong row count").
			WithDetailf("%s has %d rows, expected %d", name, len(K), rows)
	}
	for i, row := range K {
		if len(row) != cols {
			return errors.ShapeMismatch("kernel matrix has wrong column count").
				WithDetailf("%s[%d] has %d columns, expected %d", name, i, len(row), cols)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// GainEngine
// ---------------------------------------------------------------------------

// GainEngine scores candidate index sets by the expected performance gain of
// retraining on their hypothetical labels.
type GainEngine struct {
	p       GainProblem
	opts    *engineOptions
	logger  logging.Logger
	predOld []int
}

// NewGainEngine validates p and computes the baseline predictions of the
// classifier trained on the labeled set.
func NewGainEngine(p GainProblem, opts ...Option) (*GainEngine, error) {
	return newGainEngine(p, buildOptions(opts))
}

func newGainEngine(p GainProblem, o *engineOptions) (*GainEngine, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	clf := p.Classifier.Clone()
	if err := clf.Fit(p.Labeled, p.Labels, p.Weights); err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "baseline fit failed")
	}
	target := p.Eval
	if target == nil {
		target = p.Candidates
	}
	predOld, err := clf.Predict(target)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "baseline predict failed")
	}
	if len(predOld) != len(target) {
		return nil, errors.Internal("classifier returned wrong number of predictions")
	}

	return &GainEngine{
		p:       p,
		opts:    o,
		logger:  o.logger.Named("gain"),
		predOld: predOld,
	}, nil
}

// Evaluate scores every set.  In GainModeNonmyopic row t holds one utility
// per prefix length of sets[t]; in GainModeBatch it holds a single value.
func (g *GainEngine) Evaluate(ctx context.Context, sets [][]int, mode GainMode) ([][]float64, error) {
	return g.evaluate(ctx, sets, mode, 1)
}

// EvaluateFrom is Evaluate in GainModeNonmyopic restricted to prefixes of at
// least minDepth candidates; shorter prefixes are reported as NaN.
func (g *GainEngine) EvaluateFrom(ctx context.Context, sets [][]int, minDepth int) ([][]float64, error) {
	if minDepth < 1 {
		minDepth = 1
	}
	return g.evaluate(ctx, sets, GainModeNonmyopic, minDepth)
}

func (g *GainEngine) evaluate(ctx context.Context, sets [][]int, mode GainMode, minDepth int) ([][]float64, error) {
	if mode != GainModeNonmyopic && mode != GainModeBatch {
		return nil, errors.UnsupportedMode("unknown gain mode").WithDetailf("mode=%d", int(mode))
	}
	maxLen := 0
	for t, set := range sets {
		if len(set) == 0 {
			return nil, errors.InvalidArgument("empty candidate index set").WithDetailf("sets[%d]", t)
		}
		for _, c := range set {
			if c < 0 || c >= len(g.p.Candidates) {
				return nil, errors.InvalidArgument("candidate index out of range").
					WithDetailf("sets[%d] contains %d, n_candidates=%d", t, c, len(g.p.Candidates))
			}
		}
		if len(set) > maxLen {
			maxLen = len(set)
		}
	}

	labelings := make([][][]int, maxLen+1)
	for d := 1; d <= maxLen; d++ {
		if g.opts.maxLabelings > 0 {
			if n := g.labelingCount(d); n > g.opts.maxLabelings {
				return nil, errors.InvalidArgument("too many hypothetical labelings").
					WithDetailf("depth %d needs %d labelings, limit is %d", d, n, g.opts.maxLabelings)
			}
		}
		labelings[d] = g.simLabelings(d)
	}

	g.logger.Debug("evaluating index sets",
		logging.Int("sets", len(sets)),
		logging.Int("max_depth", maxLen),
		logging.String("mode", mode.String()))

	return common.ParallelMap(ctx, sets, func(ctx context.Context, _ int, set []int) ([]float64, error) {
		return g.evaluateSet(ctx, set, mode, minDepth, labelings)
	}, g.opts.batchOptions(stageGain)...)
}

func (g *GainEngine) evaluateSet(ctx context.Context, set []int, mode GainMode, minDepth int, labelings [][][]int) ([]float64, error) {
	clf := g.p.Classifier.Clone()

	if mode == GainModeBatch {
		u, err := g.subsetGain(ctx, clf, set, labelings[len(set)])
		if err != nil {
			return nil, err
		}
		return []float64{u}, nil
	}

	out := make([]float64, len(set))
	for i := range out {
		d := i + 1
		if d < minDepth {
			out[i] = math.NaN()
			continue
		}
		u, err := g.subsetGain(ctx, clf, set[:d], labelings[d])
		if err != nil {
			return nil, err
		}
		out[i] = u / float64(d)
	}
	return out, nil
}

// subsetGain returns Σ_y P(y) · Δperf(y) over the labelings of sub.
func (g *GainEngine) subsetGain(ctx context.Context, clf Classifier, sub []int, ySims [][]int) (float64, error) {
	probs, err := g.p.Joint.Probabilities(sub, ySims)
	if err != nil {
		return 0, err
	}

	// Augmented training set: the simulated candidates first, then the
	// labeled instances.
	xNew := append(selectRows(g.p.Candidates, sub), g.p.Labeled...)
	wNew := onesVector(len(sub))
	if g.p.Weights != nil {
		wNew = append(wNew, g.p.Weights...)
	} else {
		wNew = append(wNew, onesVector(len(g.p.Labeled))...)
	}

	var evalX, kernelRows [][]float64
	var predOld []int
	if g.p.Eval == nil {
		evalX = selectRows(g.p.Candidates, sub)
		predOld = selectRows(g.predOld, sub)
		kernelRows = augmentedRows(selectRows(g.p.KCandCand, sub), selectRows(g.p.KCandLabeled, sub), sub)
	} else {
		evalX = g.p.Eval
		predOld = g.predOld
		kernelRows = augmentedRows(g.p.KEvalCand, g.p.KEvalLabeled, sub)
	}

	yNew := make([]int, len(sub), len(sub)+len(g.p.Labels))
	var gain float64
	for t, ySim := range ySims {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		if probs[t] == 0 {
			continue
		}
		copy(yNew, ySim)
		yNew = append(yNew[:len(sub)], g.p.Labels...)

		est := NewBayesianKernelEstimator(g.p.PriorEval, g.p.NClasses)
		if err := est.Fit(yNew, wNew); err != nil {
			return 0, err
		}
		evalProba, err := est.PredictProbability(kernelRows)
		if err != nil {
			return 0, err
		}

		if err := clf.Fit(xNew, yNew, wNew); err != nil {
			return 0, errors.Wrap(err, errors.CodeInternal, "classifier refit failed")
		}
		predNew, err := clf.Predict(evalX)
		if err != nil {
			return 0, errors.Wrap(err, errors.CodeInternal, "classifier predict failed")
		}
		if len(predNew) != len(predOld) {
			return 0, errors.Internal("classifier returned wrong number of predictions")
		}

		gain += probs[t] * g.dperf(evalProba, predOld, predNew)
	}
	g.opts.metrics.RecordLabelings(len(ySims))
	return gain, nil
}

// augmentedRows builds kernel rows aligned with [sub candidates | labeled].
func augmentedRows(kCand, kLabeled [][]float64, sub []int) [][]float64 {
	out := make([][]float64, len(kCand))
	for r := range kCand {
		row := make([]float64, 0, len(sub)+len(kLabeled[r]))
		for _, c := range sub {
			row = append(row, kCand[r][c])
		}
		out[r] = append(row, kLabeled[r]...)
	}
	return out
}

// dperf is the expected performance gain of switching from predOld to
// predNew given class probabilities of the evaluation instances.
func (g *GainEngine) dperf(probs [][]float64, predOld, predNew []int) float64 {
	if len(probs) == 0 {
		return 0
	}
	if g.p.Cost.Decomposable() {
		C := g.p.Cost.CostMatrix
		var sum float64
		for r, p := range probs {
			o, n := predOld[r], predNew[r]
			if o == n {
				continue
			}
			for c, pc := range p {
				sum += pc * (C[c][o] - C[c][n])
			}
		}
		return sum / float64(len(probs))
	}

	confOld := make([][]float64, g.p.NClasses)
	confNew := make([][]float64, g.p.NClasses)
	for i := range confOld {
		confOld[i] = make([]float64, g.p.NClasses)
		confNew[i] = make([]float64, g.p.NClasses)
	}
	for r, p := range probs {
		for c, pc := range p {
			confOld[c][predOld[r]] += pc
			confNew[c][predNew[r]] += pc
		}
	}
	return g.p.Cost.Perf(confNew) - g.p.Cost.Perf(confOld)
}

// simLabelings lists the labelings simulated for a set of d candidates.
func (g *GainEngine) simLabelings(d int) [][]int {
	n := g.p.NClasses
	if g.p.AllSimLabelsEqual {
		out := make([][]int, n)
		for c := range out {
			out[c] = make([]int, d)
			for i := range out[c] {
				out[c][i] = c
			}
		}
		return out
	}
	lens := make([]int, d)
	for i := range lens {
		lens[i] = n
	}
	return combin.Cartesian(lens)
}

// labelingCount is the number of labelings simulated at depth d, saturating
// at math.MaxInt.
func (g *GainEngine) labelingCount(d int) int {
	if g.p.AllSimLabelsEqual {
		return g.p.NClasses
	}
	count := 1
	for i := 0; i < d; i++ {
		if count > math.MaxInt/g.p.NClasses {
			return math.MaxInt
		}
		count *= g.p.NClasses
	}
	return count
}

// BaselinePredictions returns the predictions of the classifier trained on
// the labeled set over the evaluation target.
func (g *GainEngine) BaselinePredictions() []int {
	return append([]int(nil), g.predOld...)
}
