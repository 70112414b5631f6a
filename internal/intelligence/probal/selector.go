package probal

import (
	"context"
	"math"
	"math/rand"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat/combin"

	"github.com/turtacn/ProbAL-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ProbAL-Intelligence/pkg/errors"
)

// ---------------------------------------------------------------------------
// Modes
// ---------------------------------------------------------------------------

// BatchMode selects how a batch is assembled.
type BatchMode string

const (
	BatchModeGreedy BatchMode = "greedy"
	BatchModeFull   BatchMode = "full"
)

// NeighborMode selects the lookahead set built around each candidate in
// greedy mode.
type NeighborMode string

const (
	// NeighborsSame repeats the candidate itself.
	NeighborsSame NeighborMode = "same"
	// NeighborsNearest follows the candidate with its most similar
	// unselected candidates.
	NeighborsNearest NeighborMode = "nearest"
)

// SelectorConfig configures a CandidateSelector.
type SelectorConfig struct {
	BatchSize int
	BatchMode BatchMode
	Lookahead int
	Neighbors NeighborMode
}

// Validate rejects unsupported mode combinations.
func (c SelectorConfig) Validate() error {
	if c.BatchSize < 1 {
		return errors.InvalidArgument("batch_size must be ≥ 1").WithDetailf("batch_size=%d", c.BatchSize)
	}
	if c.Lookahead < 1 {
		return errors.InvalidArgument("lookahead must be ≥ 1").WithDetailf("lookahead=%d", c.Lookahead)
	}
	switch c.BatchMode {
	case BatchModeGreedy:
		switch c.Neighbors {
		case NeighborsSame, NeighborsNearest:
		default:
			return errors.UnsupportedMode("unknown neighbor mode").WithDetailf("neighbors=%q", string(c.Neighbors))
		}
	case BatchModeFull:
		if c.Lookahead > 1 {
			return errors.UnsupportedMode("full batch mode supports lookahead 1 only").
				WithDetailf("lookahead=%d", c.Lookahead)
		}
	default:
		return errors.UnsupportedMode("unknown batch mode").WithDetailf("batch_mode=%q", string(c.BatchMode))
	}
	return nil
}

// ---------------------------------------------------------------------------
// Tie-break
// ---------------------------------------------------------------------------

// RandArgmax returns the index of the maximum of values, choosing uniformly
// among exact ties with rng.  NaN entries are ignored; -1 is returned when
// every entry is NaN.
func RandArgmax(values []float64, rng *rand.Rand) int {
	best := math.Inf(-1)
	var ties []int
	for i, v := range values {
		switch {
		case math.IsNaN(v):
		case v > best || (len(ties) == 0 && v == best):
			best = v
			ties = append(ties[:0], i)
		case v == best:
			ties = append(ties, i)
		}
	}
	if len(ties) == 0 {
		return -1
	}
	if len(ties) == 1 {
		return ties[0]
	}
	return ties[rng.Intn(len(ties))]
}

// nanMax returns the largest non-NaN entry, or NaN when there is none.
func nanMax(values []float64) float64 {
	out := math.NaN()
	for _, v := range values {
		if !math.IsNaN(v) && (math.IsNaN(out) || v > out) {
			out = v
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// CandidateSelector
// ---------------------------------------------------------------------------

// CandidateSelector drives a GainEngine to assemble a batch.
type CandidateSelector struct {
	engine *GainEngine
	cfg    SelectorConfig
	opts   *engineOptions
	logger logging.Logger
}

// NewCandidateSelector creates a selector over engine.
func NewCandidateSelector(engine *GainEngine, cfg SelectorConfig, opts ...Option) (*CandidateSelector, error) {
	return newCandidateSelector(engine, cfg, buildOptions(opts))
}

func newCandidateSelector(engine *GainEngine, cfg SelectorConfig, o *engineOptions) (*CandidateSelector, error) {
	if engine == nil {
		return nil, errors.InvalidArgument("gain engine is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &CandidateSelector{
		engine: engine,
		cfg:    cfg,
		opts:   o,
		logger: o.logger.Named("selector"),
	}, nil
}

// Select returns the selected candidate indices and the batch_size ×
// n_candidates utility matrix.  simCand is K(cand, cand) and is consulted by
// NeighborsNearest only.
func (s *CandidateSelector) Select(ctx context.Context, simCand [][]float64) ([]int, [][]float64, error) {
	nCand := len(s.engine.p.Candidates)
	if s.cfg.BatchSize > nCand {
		return nil, nil, errors.InvalidArgument("batch_size exceeds candidate count").
			WithDetailf("batch_size=%d, n_candidates=%d", s.cfg.BatchSize, nCand)
	}
	if s.cfg.BatchMode == BatchModeFull {
		return s.selectFull(ctx, nCand)
	}
	return s.selectGreedy(ctx, nCand, simCand)
}

func (s *CandidateSelector) selectGreedy(ctx context.Context, nCand int, simCand [][]float64) ([]int, [][]float64, error) {
	utilities := nanMatrix(s.cfg.BatchSize, nCand)
	selected := make([]int, 0, s.cfg.BatchSize)
	isSelected := make([]bool, nCand)

	for step := 0; step < s.cfg.BatchSize; step++ {
		start := time.Now()

		unselected := make([]int, 0, nCand-step)
		for c := 0; c < nCand; c++ {
			if !isSelected[c] {
				unselected = append(unselected, c)
			}
		}

		sets := make([][]int, len(unselected))
		for i, c := range unselected {
			set := append([]int(nil), selected...)
			sets[i] = append(set, s.lookaheadSet(c, unselected, simCand)...)
		}

		// Only prefixes that contain the new candidate are scored.
		gains, err := s.engine.EvaluateFrom(ctx, sets, step+1)
		if err != nil {
			return nil, nil, err
		}
		for i, c := range unselected {
			utilities[step][c] = nanMax(gains[i])
		}

		best := RandArgmax(utilities[step], s.opts.rng)
		if best < 0 {
			return nil, nil, errors.Internal("no candidate could be scored").WithDetailf("step=%d", step)
		}
		selected = append(selected, best)
		isSelected[best] = true

		s.opts.metrics.RecordGreedyStep(string(BatchModeGreedy), time.Since(start))
		s.logger.Debug("greedy step completed",
			logging.Int("step", step),
			logging.Int("selected", best),
			logging.Float64("utility", utilities[step][best]))
	}
	return selected, utilities, nil
}

// lookaheadSet returns the M-element set scored for candidate c.
func (s *CandidateSelector) lookaheadSet(c int, unselected []int, simCand [][]float64) []int {
	m := s.cfg.Lookahead
	if s.cfg.Neighbors == NeighborsSame {
		set := make([]int, m)
		for i := range set {
			set[i] = c
		}
		return set
	}

	others := make([]int, 0, len(unselected)-1)
	for _, o := range unselected {
		if o != c {
			others = append(others, o)
		}
	}
	sort.SliceStable(others, func(a, b int) bool {
		return simCand[c][others[a]] > simCand[c][others[b]]
	})
	if len(others) > m-1 {
		others = others[:m-1]
	}
	return append([]int{c}, others...)
}

func (s *CandidateSelector) selectFull(ctx context.Context, nCand int) ([]int, [][]float64, error) {
	start := time.Now()
	perms := combin.Permutations(nCand, s.cfg.BatchSize)

	gains, err := s.engine.Evaluate(ctx, perms, GainModeBatch)
	if err != nil {
		return nil, nil, err
	}
	values := make([]float64, len(perms))
	for i, g := range gains {
		values[i] = g[0]
	}
	best := RandArgmax(values, s.opts.rng)
	if best < 0 {
		return nil, nil, errors.Internal("no permutation could be scored")
	}

	// Row i holds, per candidate, the best batch utility among permutations
	// placing that candidate at position i.
	utilities := nanMatrix(s.cfg.BatchSize, nCand)
	for p, perm := range perms {
		for i, c := range perm {
			if math.IsNaN(utilities[i][c]) || values[p] > utilities[i][c] {
				utilities[i][c] = values[p]
			}
		}
	}

	s.opts.metrics.RecordGreedyStep(string(BatchModeFull), time.Since(start))
	s.logger.Debug("full batch search completed",
		logging.Int("permutations", len(perms)),
		logging.Ints("selected", perms[best]),
		logging.Float64("utility", values[best]))
	return append([]int(nil), perms[best]...), utilities, nil
}
