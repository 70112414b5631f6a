// Package query defines the request and response payloads of the
// active-learning query API.  The same types are decoded from CLI request
// files (YAML or JSON) and from HTTP request bodies.
package query

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"time"

	"github.com/turtacn/ProbAL-Intelligence/pkg/errors"
)

// Strategy names a query strategy.
type Strategy string

const (
	StrategyMcPAL  Strategy = "mcpal"
	StrategyXPAL   Strategy = "xpal"
	StrategyRandom Strategy = "random"
)

// Valid reports whether s names a known strategy.
func (s Strategy) Valid() bool {
	switch s {
	case StrategyMcPAL, StrategyXPAL, StrategyRandom:
		return true
	}
	return false
}

// KernelSpec overrides the configured kernel for one request.
type KernelSpec struct {
	Metric string  `json:"metric" yaml:"metric"`
	Gamma  float64 `json:"gamma,omitempty" yaml:"gamma,omitempty"`
	// Matrix is the similarity matrix of MetricPrecomputed; instances are
	// then one-element index vectors into it.
	Matrix [][]float64 `json:"matrix,omitempty" yaml:"matrix,omitempty"`
}

// Request is one active-learning query.  Zero-valued tuning fields fall back
// to the server configuration.
type Request struct {
	Strategy Strategy `json:"strategy,omitempty" yaml:"strategy,omitempty"`

	Candidates    [][]float64 `json:"candidates" yaml:"candidates"`
	X             [][]float64 `json:"x,omitempty" yaml:"x,omitempty"`
	Y             []int       `json:"y,omitempty" yaml:"y,omitempty"`
	Eval          [][]float64 `json:"eval,omitempty" yaml:"eval,omitempty"`
	SampleWeights []float64   `json:"sample_weights,omitempty" yaml:"sample_weights,omitempty"`
	NClasses      int         `json:"n_classes,omitempty" yaml:"n_classes,omitempty"`

	BatchSize int `json:"batch_size,omitempty" yaml:"batch_size,omitempty"`

	// McPAL
	Prior      float64     `json:"prior,omitempty" yaml:"prior,omitempty"`
	PriorVec   []float64   `json:"prior_vector,omitempty" yaml:"prior_vector,omitempty"`
	MMax       int         `json:"m_max,omitempty" yaml:"m_max,omitempty"`
	CostMatrix [][]float64 `json:"cost_matrix,omitempty" yaml:"cost_matrix,omitempty"`

	// XPAL
	Metric            string    `json:"metric,omitempty" yaml:"metric,omitempty"`
	CostVector        []float64 `json:"cost_vector,omitempty" yaml:"cost_vector,omitempty"`
	PriorCand         float64   `json:"prior_cand,omitempty" yaml:"prior_cand,omitempty"`
	PriorEval         float64   `json:"prior_eval,omitempty" yaml:"prior_eval,omitempty"`
	BatchMode         string    `json:"batch_mode,omitempty" yaml:"batch_mode,omitempty"`
	Lookahead         int       `json:"lookahead,omitempty" yaml:"lookahead,omitempty"`
	Neighbors         string    `json:"neighbors,omitempty" yaml:"neighbors,omitempty"`
	Independence      *bool     `json:"independence,omitempty" yaml:"independence,omitempty"`
	AllSimLabelsEqual *bool     `json:"all_sim_labels_equal,omitempty" yaml:"all_sim_labels_equal,omitempty"`

	Kernel *KernelSpec `json:"kernel,omitempty" yaml:"kernel,omitempty"`
	// Seed fixes the tie-break source; nil uses the configured seed.
	Seed *int64 `json:"seed,omitempty" yaml:"seed,omitempty"`
}

// Validate checks the fields every strategy needs.  Strategy-specific checks
// are left to the engines.
func (r *Request) Validate() error {
	if r == nil {
		return errors.InvalidArgument("request is required")
	}
	if !r.Strategy.Valid() {
		return errors.InvalidArgument("unknown strategy").
			WithDetailf("strategy=%q, expected mcpal|xpal|random", string(r.Strategy))
	}
	if len(r.Candidates) == 0 {
		return errors.InvalidArgument("at least one candidate is required")
	}
	if r.BatchSize < 0 {
		return errors.InvalidArgument("batch_size must be ≥ 1").WithDetailf("batch_size=%d", r.BatchSize)
	}
	return nil
}

// Advisory is a non-fatal condition attached to a response.
type Advisory struct {
	Code    string `json:"code" yaml:"code"`
	Message string `json:"message" yaml:"message"`
}

// Utilities is a batch_size × n_candidates matrix.  NaN marks an entry that
// was not evaluated and is encoded as JSON null.
type Utilities [][]float64

// MarshalJSON implements json.Marshaler.
func (u Utilities) MarshalJSON() ([]byte, error) {
	if u == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, row := range u {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('[')
		for j, v := range row {
			if j > 0 {
				buf.WriteByte(',')
			}
			switch {
			case math.IsNaN(v):
				buf.WriteString("null")
			case math.IsInf(v, 1):
				buf.WriteString(strconv.FormatFloat(math.MaxFloat64, 'g', -1, 64))
			case math.IsInf(v, -1):
				buf.WriteString(strconv.FormatFloat(-math.MaxFloat64, 'g', -1, 64))
			default:
				buf.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
			}
		}
		buf.WriteByte(']')
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (u *Utilities) UnmarshalJSON(data []byte) error {
	var raw [][]*float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		*u = nil
		return nil
	}
	out := make(Utilities, len(raw))
	for i, row := range raw {
		out[i] = make([]float64, len(row))
		for j, v := range row {
			if v == nil {
				out[i][j] = math.NaN()
				continue
			}
			out[i][j] = *v
		}
	}
	*u = out
	return nil
}

// Response is the result of one query.
type Response struct {
	QueryID    string     `json:"query_id" yaml:"query_id"`
	Strategy   Strategy   `json:"strategy" yaml:"strategy"`
	Indices    []int      `json:"indices" yaml:"indices"`
	Utilities  Utilities  `json:"utilities" yaml:"utilities"`
	Advisories []Advisory `json:"advisories,omitempty" yaml:"advisories,omitempty"`
	Duration   Duration   `json:"duration_ms" yaml:"duration_ms"`
}

// Duration is a time.Duration encoded as fractional milliseconds.
type Duration time.Duration

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatFloat(float64(time.Duration(d).Microseconds())/1000, 'f', 3, 64)), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(data []byte) error {
	ms, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return err
	}
	*d = Duration(time.Duration(ms * float64(time.Millisecond)))
	return nil
}

// ErrorResponse is the body returned for failed requests.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}
