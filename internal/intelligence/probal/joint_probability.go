package probal

import (
	"github.com/turtacn/ProbAL-Intelligence/pkg/errors"
)

// JointLabelProbabilityEstimator assigns a probability to every hypothetical
// labeling of an ordered candidate index set.
type JointLabelProbabilityEstimator interface {
	// Probabilities returns P(labelings[t]) for the candidates in set;
	// labelings[t][i] is the label simulated for set[i].
	Probabilities(set []int, labelings [][]int) ([]float64, error)
}

// ---------------------------------------------------------------------------
// Independent
// ---------------------------------------------------------------------------

// IndependentJointProbability multiplies per-candidate marginals estimated
// from the labeled set alone.
type IndependentJointProbability struct {
	proba [][]float64
}

// NewIndependentJointProbability fits the estimator once on the labeled set.
// kCandLabeled is n_candidates × n_labeled.
func NewIndependentJointProbability(kCandLabeled [][]float64, labels []int, weights, prior []float64, nClasses int) (*IndependentJointProbability, error) {
	est := NewBayesianKernelEstimator(prior, nClasses)
	if err := est.Fit(labels, weights); err != nil {
		return nil, err
	}
	proba, err := est.PredictProbability(kCandLabeled)
	if err != nil {
		return nil, err
	}
	return &IndependentJointProbability{proba: proba}, nil
}

// Probabilities implements JointLabelProbabilityEstimator.
func (j *IndependentJointProbability) Probabilities(set []int, labelings [][]int) ([]float64, error) {
	if err := checkLabelings(set, labelings, len(j.proba)); err != nil {
		return nil, err
	}
	out := make([]float64, len(labelings))
	for t, ySim := range labelings {
		p := 1.0
		for i, c := range set {
			p *= j.proba[c][ySim[i]]
		}
		out[t] = p
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Dependent
// ---------------------------------------------------------------------------

// DependentJointProbability applies the chain rule over the set in index
// order: the probability of the i-th label is estimated from the labeled set
// augmented with the i−1 preceding hypothetical labels at unit weight.
type DependentJointProbability struct {
	kCandLabeled [][]float64
	kCandCand    [][]float64
	labels       []int
	weights      []float64
	prior        []float64
	nClasses     int
}

// NewDependentJointProbability creates the estimator.  kCandCand is
// n_candidates × n_candidates.
func NewDependentJointProbability(kCandLabeled, kCandCand [][]float64, labels []int, weights, prior []float64, nClasses int) (*DependentJointProbability, error) {
	if weights == nil {
		weights = onesVector(len(labels))
	}
	if len(weights) != len(labels) {
		return nil, errors.InvalidArgument("labels and weights differ in length")
	}
	if len(kCandCand) != len(kCandLabeled) {
		return nil, errors.ShapeMismatch("candidate kernel matrices differ in row count").
			WithDetailf("K(cand,lbld)=%d, K(cand,cand)=%d", len(kCandLabeled), len(kCandCand))
	}
	return &DependentJointProbability{
		kCandLabeled: kCandLabeled,
		kCandCand:    kCandCand,
		labels:       labels,
		weights:      weights,
		prior:        prior,
		nClasses:     nClasses,
	}, nil
}

// Probabilities implements JointLabelProbabilityEstimator.
func (j *DependentJointProbability) Probabilities(set []int, labelings [][]int) ([]float64, error) {
	if err := checkLabelings(set, labelings, len(j.kCandLabeled)); err != nil {
		return nil, err
	}
	nLabeled := len(j.labels)
	labels := make([]int, nLabeled, nLabeled+len(set))
	copy(labels, j.labels)
	weights := make([]float64, nLabeled, nLabeled+len(set))
	copy(weights, j.weights)

	out := make([]float64, len(labelings))
	for t, ySim := range labelings {
		p := 1.0
		for i, c := range set {
			labels = append(labels[:nLabeled], ySim[:i]...)
			weights = weights[:nLabeled]
			for range set[:i] {
				weights = append(weights, 1)
			}

			row := make([]float64, 0, nLabeled+i)
			row = append(row, j.kCandLabeled[c]...)
			for _, prev := range set[:i] {
				row = append(row, j.kCandCand[c][prev])
			}

			est := NewBayesianKernelEstimator(j.prior, j.nClasses)
			if err := est.Fit(labels, weights); err != nil {
				return nil, err
			}
			proba, err := est.PredictProbability([][]float64{row})
			if err != nil {
				return nil, err
			}
			p *= proba[0][ySim[i]]
		}
		out[t] = p
	}
	return out, nil
}

func checkLabelings(set []int, labelings [][]int, nCand int) error {
	for _, c := range set {
		if c < 0 || c >= nCand {
			return errors.InvalidArgument("candidate index out of range").
				WithDetailf("index=%d, n_candidates=%d", c, nCand)
		}
	}
	for t, y := range labelings {
		if len(y) != len(set) {
			return errors.ShapeMismatch("labeling does not match index set").
				WithDetailf("labelings[%d] has %d labels, set has %d candidates", t, len(y), len(set))
		}
	}
	return nil
}
