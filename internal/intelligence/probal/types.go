// Package probal implements probabilistic active learning: the closed-form
// expected cost reduction of McPAL and the retraining-based, optionally
// non-myopic and batch-aware gain engine of XPAL, together with the candidate
// selection loop that turns per-candidate utilities into a queried batch.
//
// Classifiers, kernels and the random source are collaborators received
// through interfaces; concrete adapters live in the kernel and classifier
// packages.
package probal

import (
	"math"
	"math/rand"
	"time"

	"github.com/turtacn/ProbAL-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ProbAL-Intelligence/internal/intelligence/common"
	"github.com/turtacn/ProbAL-Intelligence/pkg/errors"
)

// MissingLabel marks an instance of the training set whose label is unknown.
const MissingLabel = -1

// ---------------------------------------------------------------------------
// Collaborators
// ---------------------------------------------------------------------------

// Classifier is the probabilistic classifier capability the strategies drive.
// Instances whose label equals MissingLabel must be ignored by Fit.
type Classifier interface {
	Fit(X [][]float64, y []int, weights []float64) error
	Predict(X [][]float64) ([]int, error)
	// PredictFrequency returns the unnormalized class-frequency estimate of
	// every row of X (n_samples × n_classes).
	PredictFrequency(X [][]float64) ([][]float64, error)
	// Clone returns an unfitted copy carrying the same hyper-parameters.
	Clone() Classifier
}

// ClassCounter is implemented by classifiers built for a fixed number of
// classes.
type ClassCounter interface {
	NClasses() int
}

// Kernel computes pairwise similarities.  Similarity(a, a) must be symmetric.
type Kernel interface {
	Similarity(a, b [][]float64) [][]float64
}

// ---------------------------------------------------------------------------
// Results
// ---------------------------------------------------------------------------

// Advisory is a non-fatal diagnostic returned next to a query result.
type Advisory struct {
	Code    errors.ErrorCode `json:"code"`
	Message string           `json:"message"`
}

// QueryResult is the outcome of one query.
type QueryResult struct {
	// Indices are the selected candidate positions in selection order.
	Indices []int `json:"indices"`
	// Utilities is batch_size × n_candidates; NaN marks entries that were
	// not evaluated at that step.
	Utilities  [][]float64 `json:"utilities"`
	Advisories []Advisory  `json:"advisories,omitempty"`
}

func (r *QueryResult) advise(code errors.ErrorCode, msg string) {
	r.Advisories = append(r.Advisories, Advisory{Code: code, Message: msg})
}

// ---------------------------------------------------------------------------
// Prior
// ---------------------------------------------------------------------------

// Prior is a Dirichlet pseudo-count, either one scalar shared by every class
// or one value per class.
type Prior struct {
	scalar float64
	vector []float64
}

// ScalarPrior returns a prior adding v to every class.
func ScalarPrior(v float64) Prior { return Prior{scalar: v} }

// VectorPrior returns a per-class prior.
func VectorPrior(v []float64) Prior {
	return Prior{vector: append([]float64(nil), v...)}
}

// IsVector reports whether the prior carries per-class values.
func (p Prior) IsVector() bool { return p.vector != nil }

// Expand returns the prior as a vector of length nClasses.
func (p Prior) Expand(nClasses int) ([]float64, error) {
	out := make([]float64, nClasses)
	if p.vector != nil {
		if len(p.vector) != nClasses {
			return nil, errors.ShapeMismatch("prior length does not match class count").
				WithDetailf("len(prior)=%d, n_classes=%d", len(p.vector), nClasses)
		}
		copy(out, p.vector)
	} else {
		for i := range out {
			out[i] = p.scalar
		}
	}
	for i, v := range out {
		if !(v > 0) || math.IsInf(v, 0) {
			return nil, errors.InvalidArgument("prior must be finite and > 0").
				WithDetailf("prior[%d]=%g", i, v)
		}
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Engine options
// ---------------------------------------------------------------------------

type engineOptions struct {
	logger         logging.Logger
	metrics        common.EngineMetrics
	maxConcurrency int
	rng            *rand.Rand
	maxLabelings   int
}

func defaultEngineOptions() *engineOptions {
	return &engineOptions{
		logger:  logging.NewNopLogger(),
		metrics: common.NewNoopEngineMetrics(),
	}
}

// Option configures a strategy or engine.
type Option func(*engineOptions)

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(o *engineOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics sets the telemetry sink.
func WithMetrics(m common.EngineMetrics) Option {
	return func(o *engineOptions) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithMaxConcurrency bounds the worker pool used for per-candidate and
// per-set evaluation.  Non-positive values keep runtime.NumCPU().
func WithMaxConcurrency(n int) Option {
	return func(o *engineOptions) { o.maxConcurrency = n }
}

// WithRandom sets the tie-break source.  Strategies sharing a source must not
// be queried concurrently.
func WithRandom(rng *rand.Rand) Option {
	return func(o *engineOptions) {
		if rng != nil {
			o.rng = rng
		}
	}
}

// WithSeed is WithRandom over a fresh source seeded with seed.
func WithSeed(seed int64) Option {
	return func(o *engineOptions) { o.rng = rand.New(rand.NewSource(seed)) }
}

// WithMaxLabelings rejects gain evaluations that would simulate more than n
// hypothetical labelings per index set.  Zero disables the cap.
func WithMaxLabelings(n int) Option {
	return func(o *engineOptions) { o.maxLabelings = n }
}

func buildOptions(opts []Option) *engineOptions {
	o := defaultEngineOptions()
	for _, opt := range opts {
		opt(o)
	}
	if o.rng == nil {
		o.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return o
}

func (o *engineOptions) batchOptions(stage string) []common.BatchOption {
	return []common.BatchOption{
		common.WithMaxConcurrency(o.maxConcurrency),
		common.WithBatchMetrics(o.metrics, stage),
	}
}

// ---------------------------------------------------------------------------
// Shape helpers
// ---------------------------------------------------------------------------

func nanMatrix(rows, cols int) [][]float64 {
	out := make([][]float64, rows)
	for i := range out {
		out[i] = make([]float64, cols)
		for j := range out[i] {
			out[i][j] = math.NaN()
		}
	}
	return out
}

// featureDim returns the common row length of X, or -1 for an empty X.
func featureDim(name string, X [][]float64) (int, error) {
	if len(X) == 0 {
		return -1, nil
	}
	d := len(X[0])
	for i, row := range X {
		if len(row) != d {
			return 0, errors.ShapeMismatch("ragged feature matrix").
				WithDetailf("%s[%d] has %d features, expected %d", name, i, len(row), d)
		}
	}
	return d, nil
}

func selectRows[T any](rows []T, idx []int) []T {
	out := make([]T, len(idx))
	for i, r := range idx {
		out[i] = rows[r]
	}
	return out
}

func onesVector(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 1
	}
	return out
}
