package probal

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/turtacn/ProbAL-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ProbAL-Intelligence/pkg/errors"
)

// McPALRequest is the input of McPAL.Query.
type McPALRequest struct {
	// Candidates are the unlabeled instances eligible for querying.
	Candidates [][]float64
	// X and Y are the training instances; Y[i] == MissingLabel marks an
	// unlabeled instance.
	X [][]float64
	Y []int
	// SampleWeights scales each candidate's utility, typically by density.
	// Nil means unit weights.
	SampleWeights []float64
	BatchSize     int
	Prior         Prior
	MMax          int
	// CostMatrix defaults to the error metric when nil.
	CostMatrix [][]float64
}

// McPAL is multi-class probabilistic active learning: candidates are ranked by
// the closed-form expected cost reduction of their kernel frequency estimate.
type McPAL struct {
	clf    Classifier
	engine *CostReductionEngine
	opts   *engineOptions
	logger logging.Logger
}

// NewMcPAL creates the strategy.  clf must expose class frequencies.
func NewMcPAL(clf Classifier, opts ...Option) (*McPAL, error) {
	if clf == nil {
		return nil, errors.InvalidArgument("classifier is required")
	}
	o := buildOptions(opts)
	return &McPAL{
		clf:    clf,
		engine: &CostReductionEngine{opts: o},
		opts:   o,
		logger: o.logger.Named("mcpal"),
	}, nil
}

// Query selects BatchSize candidates.
func (s *McPAL) Query(ctx context.Context, req McPALRequest) (*QueryResult, error) {
	start := time.Now()
	if err := req.validate(classCount(s.clf, req.Y)); err != nil {
		return nil, err
	}

	result := &QueryResult{}
	batchSize := req.BatchSize
	if batchSize > len(req.Candidates) {
		msg := fmt.Sprintf("batch_size %d exceeds %d candidates; clamped", batchSize, len(req.Candidates))
		result.advise(errors.CodeBatchClamped, msg)
		s.logger.Warn(msg, logging.Int("batch_size", batchSize), logging.Int("n_candidates", len(req.Candidates)))
		batchSize = len(req.Candidates)
	}

	clf := s.clf.Clone()
	if err := clf.Fit(req.X, req.Y, nil); err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "classifier fit failed")
	}
	K, err := clf.PredictFrequency(req.Candidates)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "classifier frequency estimate failed")
	}

	gains, err := s.engine.Compute(ctx, K, req.CostMatrix, req.MMax, req.Prior)
	if err != nil {
		return nil, err
	}
	if req.SampleWeights != nil {
		for i := range gains {
			gains[i] *= req.SampleWeights[i]
		}
	}

	result.Indices, result.Utilities = simpleBatch(gains, batchSize, s.opts)
	s.logger.Debug("candidates scored",
		logging.Int("n_candidates", len(req.Candidates)),
		logging.Ints("selected", result.Indices),
		logging.Duration("elapsed", time.Since(start)))
	return result, nil
}

// classCount is the class count of clf when it reports one, else max(y)+1.
func classCount(clf Classifier, y []int) int {
	if c, ok := clf.(ClassCounter); ok {
		return c.NClasses()
	}
	n := 0
	for _, label := range y {
		if label+1 > n {
			n = label + 1
		}
	}
	return n
}

// validate checks the request shape, and the prior and cost matrix against
// nClasses when it is known.
func (r *McPALRequest) validate(nClasses int) error {
	if len(r.Candidates) == 0 {
		return errors.InvalidArgument("at least one candidate is required")
	}
	if r.BatchSize < 1 {
		return errors.InvalidArgument("batch_size must be ≥ 1").WithDetailf("batch_size=%d", r.BatchSize)
	}
	if r.MMax < 1 {
		return errors.InvalidArgument("m_max must be ≥ 1").WithDetailf("m_max=%d", r.MMax)
	}
	if len(r.X) != len(r.Y) {
		return errors.ShapeMismatch("X and y differ in length").
			WithDetailf("len(X)=%d, len(y)=%d", len(r.X), len(r.Y))
	}
	if r.SampleWeights != nil && len(r.SampleWeights) != len(r.Candidates) {
		return errors.ShapeMismatch("sample weights do not match candidates").
			WithDetailf("len(weights)=%d, n_candidates=%d", len(r.SampleWeights), len(r.Candidates))
	}
	dc, err := featureDim("candidates", r.Candidates)
	if err != nil {
		return err
	}
	dx, err := featureDim("X", r.X)
	if err != nil {
		return err
	}
	if dx >= 0 && dx != dc {
		return errors.ShapeMismatch("candidates and X differ in feature count").
			WithDetailf("candidates=%d, X=%d", dc, dx)
	}
	if nClasses < 1 {
		return nil
	}
	if _, err := r.Prior.Expand(nClasses); err != nil {
		return err
	}
	if r.CostMatrix != nil {
		return ValidateCostMatrix(r.CostMatrix, nClasses)
	}
	return nil
}

// simpleBatch picks batchSize entries in order of utility.  Row i of the
// returned matrix is the utility vector with the first i picks set to NaN.
func simpleBatch(utilities []float64, batchSize int, o *engineOptions) ([]int, [][]float64) {
	rows := nanMatrix(batchSize, len(utilities))
	picked := make([]int, 0, batchSize)
	for i := 0; i < batchSize; i++ {
		copy(rows[i], utilities)
		for _, p := range picked {
			rows[i][p] = math.NaN()
		}
		best := RandArgmax(rows[i], o.rng)
		if best < 0 {
			break
		}
		picked = append(picked, best)
	}
	return picked, rows
}
