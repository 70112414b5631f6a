// Package classifier provides the Parzen-window classifier that backs the
// query strategies when no external model is plugged in.
package classifier

import (
	"math"
	"sync"

	"gonum.org/v1/gonum/floats"

	"github.com/turtacn/ProbAL-Intelligence/internal/intelligence/kernel"
	"github.com/turtacn/ProbAL-Intelligence/internal/intelligence/probal"
	"github.com/turtacn/ProbAL-Intelligence/pkg/errors"
)

// ---------------------------------------------------------------------------
// Options
// ---------------------------------------------------------------------------

// Option configures a Parzen classifier.
type Option func(*Parzen)

// WithCostMatrix makes Predict return the cost-minimizing class instead of
// the most probable one.
func WithCostMatrix(C [][]float64) Option {
	return func(p *Parzen) { p.costMatrix = C }
}

// WithClassPrior adds a pseudo-count to every class before normalizing.
func WithClassPrior(prior float64) Option {
	return func(p *Parzen) { p.classPrior = prior }
}

// ---------------------------------------------------------------------------
// Parzen
// ---------------------------------------------------------------------------

// Parzen is a Parzen-window classifier: the frequency of class c at x is the
// weighted kernel similarity of x to the training instances labeled c.
// Instances labeled probal.MissingLabel are kept but cast no vote.
type Parzen struct {
	kernel     kernel.Kernel
	nClasses   int
	costMatrix [][]float64
	classPrior float64

	mu      sync.RWMutex
	X       [][]float64
	y       []int
	weights []float64
	fitted  bool
}

var _ probal.Classifier = (*Parzen)(nil)

// NewParzen creates an unfitted classifier over nClasses classes.
func NewParzen(k kernel.Kernel, nClasses int, opts ...Option) (*Parzen, error) {
	if k == nil {
		return nil, errors.InvalidArgument("kernel is required")
	}
	if nClasses < 1 {
		return nil, errors.InvalidArgument("n_classes must be ≥ 1").WithDetailf("n_classes=%d", nClasses)
	}
	p := &Parzen{kernel: k, nClasses: nClasses}
	for _, opt := range opts {
		opt(p)
	}
	if p.classPrior < 0 {
		return nil, errors.InvalidArgument("class prior must be ≥ 0").WithDetailf("class_prior=%g", p.classPrior)
	}
	if p.costMatrix != nil {
		if err := probal.ValidateCostMatrix(p.costMatrix, nClasses); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// NClasses returns the number of classes.
func (p *Parzen) NClasses() int { return p.nClasses }

// Fit stores a copy of the training set.  A nil weights slice means unit
// weights.
func (p *Parzen) Fit(X [][]float64, y []int, weights []float64) error {
	if len(X) != len(y) {
		return errors.ShapeMismatch("X and y differ in length").
			WithDetailf("len(X)=%d, len(y)=%d", len(X), len(y))
	}
	if weights == nil {
		weights = make([]float64, len(y))
		for i := range weights {
			weights[i] = 1
		}
	}
	if len(weights) != len(y) {
		return errors.ShapeMismatch("weights and y differ in length").
			WithDetailf("len(weights)=%d, len(y)=%d", len(weights), len(y))
	}
	for i, label := range y {
		if label != probal.MissingLabel && (label < 0 || label >= p.nClasses) {
			return errors.InvalidArgument("label out of range").
				WithDetailf("y[%d]=%d, n_classes=%d", i, label, p.nClasses)
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.X = append([][]float64(nil), X...)
	p.y = append([]int(nil), y...)
	p.weights = append([]float64(nil), weights...)
	p.fitted = true
	return nil
}

// PredictFrequency implements probal.Classifier.
func (p *Parzen) PredictFrequency(X [][]float64) ([][]float64, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.fitted {
		return nil, errors.Internal("classifier used before Fit")
	}

	out := make([][]float64, len(X))
	if len(p.X) == 0 {
		for i := range out {
			out[i] = make([]float64, p.nClasses)
		}
		return out, nil
	}
	K := p.kernel.Similarity(X, p.X)
	for i, row := range K {
		freq := make([]float64, p.nClasses)
		for t, label := range p.y {
			if label == probal.MissingLabel {
				continue
			}
			freq[label] += row[t] * p.weights[t]
		}
		out[i] = freq
	}
	return out, nil
}

// PredictProbability returns the normalized frequencies plus the class
// prior; rows without any evidence are uniform.
func (p *Parzen) PredictProbability(X [][]float64) ([][]float64, error) {
	freq, err := p.PredictFrequency(X)
	if err != nil {
		return nil, err
	}
	for _, row := range freq {
		floats.AddConst(p.classPrior, row)
		sum := floats.Sum(row)
		if sum > 0 {
			floats.Scale(1/sum, row)
			continue
		}
		for c := range row {
			row[c] = 1 / float64(len(row))
		}
	}
	return freq, nil
}

// Predict implements probal.Classifier.  Ties go to the lowest class index.
func (p *Parzen) Predict(X [][]float64) ([]int, error) {
	proba, err := p.PredictProbability(X)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(proba))
	for i, row := range proba {
		if p.costMatrix == nil {
			out[i] = floats.MaxIdx(row)
			continue
		}
		best, bestCost := 0, math.Inf(1)
		for j := 0; j < p.nClasses; j++ {
			var cost float64
			for c, pc := range row {
				cost += pc * p.costMatrix[c][j]
			}
			if cost < bestCost {
				best, bestCost = j, cost
			}
		}
		out[i] = best
	}
	return out, nil
}

// Clone implements probal.Classifier.
func (p *Parzen) Clone() probal.Classifier {
	return &Parzen{
		kernel:     p.kernel,
		nClasses:   p.nClasses,
		costMatrix: p.costMatrix,
		classPrior: p.classPrior,
	}
}
