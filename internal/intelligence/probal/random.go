package probal

import (
	"context"
	"fmt"

	"github.com/turtacn/ProbAL-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ProbAL-Intelligence/pkg/errors"
)

// RandomSampler is the uninformed baseline: every candidate receives a
// uniformly random utility.
type RandomSampler struct {
	opts   *engineOptions
	logger logging.Logger
}

// NewRandomSampler creates the baseline strategy.
func NewRandomSampler(opts ...Option) *RandomSampler {
	o := buildOptions(opts)
	return &RandomSampler{opts: o, logger: o.logger.Named("random")}
}

// Query selects batchSize of nCandidates candidates at random.
func (s *RandomSampler) Query(ctx context.Context, nCandidates, batchSize int) (*QueryResult, error) {
	if nCandidates < 1 {
		return nil, errors.InvalidArgument("at least one candidate is required")
	}
	if batchSize < 1 {
		return nil, errors.InvalidArgument("batch_size must be ≥ 1").WithDetailf("batch_size=%d", batchSize)
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeCancelled, "query aborted")
	}

	result := &QueryResult{}
	if batchSize > nCandidates {
		msg := fmt.Sprintf("batch_size %d exceeds %d candidates; clamped", batchSize, nCandidates)
		result.advise(errors.CodeBatchClamped, msg)
		s.logger.Warn(msg, logging.Int("batch_size", batchSize), logging.Int("n_candidates", nCandidates))
		batchSize = nCandidates
	}

	utilities := make([]float64, nCandidates)
	for i := range utilities {
		utilities[i] = s.opts.rng.Float64()
	}
	result.Indices, result.Utilities = simpleBatch(utilities, batchSize, s.opts)
	return result, nil
}
