package probal

import (
	"context"
	"fmt"
	"time"

	"github.com/turtacn/ProbAL-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ProbAL-Intelligence/pkg/errors"
)

// XPALRequest is the input of XPAL.Query.
type XPALRequest struct {
	Candidates [][]float64
	// X and Y are the training instances; Y[i] == MissingLabel marks an
	// unlabeled instance.
	X [][]float64
	Y []int
	// Eval is an optional evaluation set; nil evaluates on the candidates.
	Eval [][]float64
	// SampleWeights weights the training instances; nil means unit weights.
	SampleWeights []float64
	// NClasses is inferred as max(Y)+1 when zero.
	NClasses int

	BatchSize int
	Metric    MetricSpec
	// PriorCand and PriorEval scale the optimal prior of the candidate and
	// evaluation probability estimators.
	PriorCand float64
	PriorEval float64

	BatchMode         BatchMode
	Lookahead         int
	Neighbors         NeighborMode
	Independence      bool
	AllSimLabelsEqual bool
}

// XPAL is the generalized probabilistic gain strategy: it simulates retraining
// the classifier on hypothetical labels of candidate sets and scores the
// expected change of the chosen performance measure.
type XPAL struct {
	clf    Classifier
	kernel Kernel
	opts   *engineOptions
	logger logging.Logger
}

// NewXPAL creates the strategy.
func NewXPAL(clf Classifier, kernel Kernel, opts ...Option) (*XPAL, error) {
	if clf == nil {
		return nil, errors.InvalidArgument("classifier is required")
	}
	if kernel == nil {
		return nil, errors.InvalidArgument("kernel is required")
	}
	o := buildOptions(opts)
	return &XPAL{clf: clf, kernel: kernel, opts: o, logger: o.logger.Named("xpal")}, nil
}

// Query selects BatchSize candidates.  Every argument is validated before any
// kernel or classifier is evaluated.
func (s *XPAL) Query(ctx context.Context, req XPALRequest) (*QueryResult, error) {
	start := time.Now()
	nClasses, cost, err := req.validate()
	if err != nil {
		return nil, err
	}

	result := &QueryResult{}
	sel := SelectorConfig{
		BatchSize: req.BatchSize,
		BatchMode: req.BatchMode,
		Lookahead: req.Lookahead,
		Neighbors: req.Neighbors,
	}
	if sel.BatchSize > len(req.Candidates) {
		msg := fmt.Sprintf("batch_size %d exceeds %d candidates; clamped", sel.BatchSize, len(req.Candidates))
		result.advise(errors.CodeBatchClamped, msg)
		s.logger.Warn(msg, logging.Int("batch_size", sel.BatchSize), logging.Int("n_candidates", len(req.Candidates)))
		sel.BatchSize = len(req.Candidates)
	}

	prior := UniformPrior(nClasses)
	if cost.CostMatrix != nil {
		var adv *Advisory
		prior, adv = CalculateOptimalPrior(cost.CostMatrix)
		if adv != nil {
			result.Advisories = append(result.Advisories, *adv)
			s.logger.Warn(adv.Message, logging.String("code", string(adv.Code)))
		}
	}
	priorCand := scaled(prior, req.PriorCand)
	priorEval := scaled(prior, req.PriorEval)

	labeled := make([]int, 0, len(req.Y))
	for i, y := range req.Y {
		if y != MissingLabel {
			labeled = append(labeled, i)
		}
	}
	if len(labeled) == 0 {
		// Nothing is labeled yet: keep the first instance so that kernel
		// matrices keep a non-empty labeled axis; its missing label carries
		// no vote.
		labeled = append(labeled, 0)
		s.logger.Debug("no labeled instances; estimating from priors only")
	}
	xLbld := selectRows(req.X, labeled)
	yLbld := selectRows(req.Y, labeled)
	var wLbld []float64
	if req.SampleWeights != nil {
		wLbld = selectRows(req.SampleWeights, labeled)
	}

	kCandLabeled := s.kernel.Similarity(req.Candidates, xLbld)
	kCandCand := s.kernel.Similarity(req.Candidates, req.Candidates)
	var kEvalLabeled, kEvalCand [][]float64
	if req.Eval != nil {
		kEvalLabeled = s.kernel.Similarity(req.Eval, xLbld)
		kEvalCand = s.kernel.Similarity(req.Eval, req.Candidates)
	}
	if err := checkKernel("K(cand,lbld)", kCandLabeled, len(req.Candidates), len(xLbld)); err != nil {
		return nil, err
	}

	var joint JointLabelProbabilityEstimator
	if req.Independence {
		joint, err = NewIndependentJointProbability(kCandLabeled, yLbld, wLbld, priorCand, nClasses)
	} else {
		joint, err = NewDependentJointProbability(kCandLabeled, kCandCand, yLbld, wLbld, priorCand, nClasses)
	}
	if err != nil {
		return nil, err
	}

	engine, err := newGainEngine(GainProblem{
		Classifier:        s.clf,
		Candidates:        req.Candidates,
		Labeled:           xLbld,
		Labels:            yLbld,
		Weights:           wLbld,
		Eval:              req.Eval,
		KCandLabeled:      kCandLabeled,
		KCandCand:         kCandCand,
		KEvalLabeled:      kEvalLabeled,
		KEvalCand:         kEvalCand,
		NClasses:          nClasses,
		Cost:              cost,
		PriorEval:         priorEval,
		Joint:             joint,
		AllSimLabelsEqual: req.AllSimLabelsEqual,
	}, s.opts)
	if err != nil {
		return nil, err
	}
	selector, err := newCandidateSelector(engine, sel, s.opts)
	if err != nil {
		return nil, err
	}
	result.Indices, result.Utilities, err = selector.Select(ctx, kCandCand)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("candidates scored",
		logging.Int("n_candidates", len(req.Candidates)),
		logging.Int("n_labeled", len(labeled)),
		logging.String("batch_mode", string(sel.BatchMode)),
		logging.Ints("selected", result.Indices),
		logging.Duration("elapsed", time.Since(start)))
	return result, nil
}

// validate checks the request and resolves the class count and cost model.
func (r *XPALRequest) validate() (int, *CostModel, error) {
	sel := SelectorConfig{BatchSize: r.BatchSize, BatchMode: r.BatchMode, Lookahead: r.Lookahead, Neighbors: r.Neighbors}
	if err := sel.Validate(); err != nil {
		return 0, nil, err
	}
	if len(r.Candidates) == 0 {
		return 0, nil, errors.InvalidArgument("at least one candidate is required")
	}
	if len(r.X) == 0 {
		return 0, nil, errors.InvalidArgument("at least one training instance is required")
	}
	if len(r.X) != len(r.Y) {
		return 0, nil, errors.ShapeMismatch("X and y differ in length").
			WithDetailf("len(X)=%d, len(y)=%d", len(r.X), len(r.Y))
	}
	if r.SampleWeights != nil && len(r.SampleWeights) != len(r.X) {
		return 0, nil, errors.ShapeMismatch("sample weights do not match X").
			WithDetailf("len(weights)=%d, len(X)=%d", len(r.SampleWeights), len(r.X))
	}
	dc, err := featureDim("candidates", r.Candidates)
	if err != nil {
		return 0, nil, err
	}
	dx, err := featureDim("X", r.X)
	if err != nil {
		return 0, nil, err
	}
	if dx != dc {
		return 0, nil, errors.ShapeMismatch("candidates and X differ in feature count").
			WithDetailf("candidates=%d, X=%d", dc, dx)
	}
	if r.Eval != nil {
		de, err := featureDim("eval", r.Eval)
		if err != nil {
			return 0, nil, err
		}
		if len(r.Eval) == 0 || de != dc {
			return 0, nil, errors.ShapeMismatch("evaluation set does not match candidates").
				WithDetailf("n_eval=%d, eval features=%d, candidate features=%d", len(r.Eval), de, dc)
		}
	}
	if !(r.PriorCand > 0) || !(r.PriorEval > 0) {
		return 0, nil, errors.InvalidArgument("prior_cand and prior_eval must be > 0").
			WithDetailf("prior_cand=%g, prior_eval=%g", r.PriorCand, r.PriorEval)
	}

	nClasses := r.NClasses
	maxLabel := MissingLabel
	for i, y := range r.Y {
		if y < MissingLabel || (r.NClasses > 0 && y >= r.NClasses) {
			return 0, nil, errors.InvalidArgument("label out of range").
				WithDetailf("y[%d]=%d, n_classes=%d", i, y, r.NClasses)
		}
		if y > maxLabel {
			maxLabel = y
		}
	}
	if nClasses == 0 {
		if maxLabel == MissingLabel {
			return 0, nil, errors.InvalidArgument("n_classes is required when no instance is labeled")
		}
		nClasses = maxLabel + 1
	}
	if nClasses < 1 {
		return 0, nil, errors.InvalidArgument("n_classes must be ≥ 1").WithDetailf("n_classes=%d", nClasses)
	}

	cost, err := TransformMetric(r.Metric, nClasses)
	if err != nil {
		return 0, nil, err
	}
	return nClasses, cost, nil
}

func scaled(v []float64, f float64) []float64 {
	out := make([]float64, len(v))
	for i := range v {
		out[i] = v[i] * f
	}
	return out
}
