// Package query is the application service behind every query surface: it
// resolves per-request overrides against the configuration, builds the
// kernel, classifier and strategy, and records metrics and logs for each
// served query.
package query

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/ProbAL-Intelligence/internal/config"
	"github.com/turtacn/ProbAL-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ProbAL-Intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/ProbAL-Intelligence/internal/intelligence/classifier"
	"github.com/turtacn/ProbAL-Intelligence/internal/intelligence/common"
	"github.com/turtacn/ProbAL-Intelligence/internal/intelligence/kernel"
	"github.com/turtacn/ProbAL-Intelligence/internal/intelligence/probal"
	"github.com/turtacn/ProbAL-Intelligence/pkg/errors"
	qtypes "github.com/turtacn/ProbAL-Intelligence/pkg/types/query"
)

// ============================================================================
// QueryService Interface & Implementation
// ============================================================================

// QueryService serves active-learning queries.
type QueryService interface {
	Query(ctx context.Context, req *qtypes.Request) (*qtypes.Response, error)
	// UpdateConfig swaps the configuration used by subsequent queries.
	UpdateConfig(cfg *config.Config)
}

type queryServiceImpl struct {
	mu            sync.RWMutex
	cfg           *config.Config
	logger        logging.Logger
	metrics       *prometheus.AppMetrics
	engineMetrics common.EngineMetrics
}

// NewQueryService creates the service.  A nil cfg uses config.DefaultConfig;
// nil metrics record nothing.
func NewQueryService(cfg *config.Config, logger logging.Logger, metrics *prometheus.AppMetrics) QueryService {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if metrics == nil {
		metrics = prometheus.NewAppMetrics(prometheus.NewNoopCollector())
	}
	return &queryServiceImpl{
		cfg:           cfg,
		logger:        logger.Named("query"),
		metrics:       metrics,
		engineMetrics: common.NewPrometheusEngineMetrics(metrics),
	}
}

func (s *queryServiceImpl) UpdateConfig(cfg *config.Config) {
	if cfg == nil {
		return
	}
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
	s.logger.Info("configuration reloaded",
		logging.String("batch_mode", cfg.Strategy.BatchMode),
		logging.String("metric", cfg.Strategy.Metric),
		logging.String("kernel", cfg.Kernel.Metric))
}

func (s *queryServiceImpl) config() *config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// ----------------------------------------------------------------------------
// Core Pipeline: Query
// ----------------------------------------------------------------------------

func (s *queryServiceImpl) Query(ctx context.Context, req *qtypes.Request) (*qtypes.Response, error) {
	start := time.Now()

	label := "unknown"
	if req != nil && req.Strategy.Valid() {
		label = string(req.Strategy)
	}
	if err := req.Validate(); err != nil {
		s.metrics.RecordQuery(label, string(errors.GetCode(err)), 0, time.Since(start))
		s.logger.Warn("query rejected", logging.Strategy(label), logging.Err(err))
		return nil, err
	}

	id := uuid.NewString()
	ctx = logging.ContextWithQueryID(ctx, id)
	log := s.logger.WithContext(ctx).With(logging.Strategy(label))
	cfg := s.config()

	inFlight := s.metrics.QueriesInFlight.WithLabelValues(label)
	inFlight.Inc()
	defer inFlight.Dec()

	res, err := s.dispatch(ctx, req, cfg, log)
	elapsed := time.Since(start)
	if err != nil {
		code := errors.GetCode(err)
		s.metrics.RecordQuery(label, string(code), 0, elapsed)
		switch code {
		case errors.CodeInternal, errors.CodeUnknown:
			log.Error("query failed", logging.String("code", string(code)), logging.Err(err))
		default:
			log.Warn("query rejected", logging.String("code", string(code)), logging.Err(err))
		}
		return nil, err
	}

	resp := &qtypes.Response{
		QueryID:   id,
		Strategy:  req.Strategy,
		Indices:   res.Indices,
		Utilities: qtypes.Utilities(res.Utilities),
		Duration:  qtypes.Duration(elapsed),
	}
	for _, a := range res.Advisories {
		resp.Advisories = append(resp.Advisories, qtypes.Advisory{Code: string(a.Code), Message: a.Message})
		s.metrics.RecordAdvisory(string(a.Code))
	}
	s.metrics.RecordQuery(label, "ok", len(req.Candidates), elapsed)
	logging.LogQueryDuration(log, label, start,
		logging.Int("n_candidates", len(req.Candidates)),
		logging.Ints("selected", res.Indices),
		logging.Int("advisories", len(res.Advisories)))
	return resp, nil
}

func (s *queryServiceImpl) dispatch(ctx context.Context, req *qtypes.Request, cfg *config.Config, log logging.Logger) (*probal.QueryResult, error) {
	opts := s.engineOptions(req, cfg, log)
	batchSize := firstInt(req.BatchSize, cfg.Strategy.BatchSize)

	switch req.Strategy {
	case qtypes.StrategyRandom:
		return probal.NewRandomSampler(opts...).Query(ctx, len(req.Candidates), batchSize)

	case qtypes.StrategyMcPAL:
		nClasses, err := inferClasses(req)
		if err != nil {
			return nil, err
		}
		k, err := buildKernel(req, cfg)
		if err != nil {
			return nil, err
		}
		clf, err := classifier.NewParzen(k, nClasses)
		if err != nil {
			return nil, err
		}
		strategy, err := probal.NewMcPAL(clf, opts...)
		if err != nil {
			return nil, err
		}
		prior := probal.ScalarPrior(firstFloat(req.Prior, cfg.Strategy.Prior))
		if req.PriorVec != nil {
			prior = probal.VectorPrior(req.PriorVec)
		}
		costMatrix := req.CostMatrix
		if costMatrix == nil {
			costMatrix = cfg.Strategy.CostMatrix
		}
		return strategy.Query(ctx, probal.McPALRequest{
			Candidates:    req.Candidates,
			X:             req.X,
			Y:             req.Y,
			SampleWeights: req.SampleWeights,
			BatchSize:     batchSize,
			Prior:         prior,
			MMax:          firstInt(req.MMax, cfg.Strategy.MMax),
			CostMatrix:    costMatrix,
		})

	case qtypes.StrategyXPAL:
		nClasses, err := inferClasses(req)
		if err != nil {
			return nil, err
		}
		metric := probal.MetricSpec{
			Name:       probal.MetricName(firstString(req.Metric, cfg.Strategy.Metric)),
			CostVector: req.CostVector,
			CostMatrix: req.CostMatrix,
		}
		if metric.CostVector == nil {
			metric.CostVector = cfg.Strategy.CostVector
		}
		if metric.CostMatrix == nil {
			metric.CostMatrix = cfg.Strategy.CostMatrix
		}
		cost, err := probal.TransformMetric(metric, nClasses)
		if err != nil {
			return nil, err
		}
		k, err := buildKernel(req, cfg)
		if err != nil {
			return nil, err
		}
		var clfOpts []classifier.Option
		if cost.Decomposable() {
			clfOpts = append(clfOpts, classifier.WithCostMatrix(cost.CostMatrix))
		}
		clf, err := classifier.NewParzen(k, nClasses, clfOpts...)
		if err != nil {
			return nil, err
		}
		strategy, err := probal.NewXPAL(clf, k, opts...)
		if err != nil {
			return nil, err
		}
		return strategy.Query(ctx, probal.XPALRequest{
			Candidates:        req.Candidates,
			X:                 req.X,
			Y:                 req.Y,
			Eval:              req.Eval,
			SampleWeights:     req.SampleWeights,
			NClasses:          nClasses,
			BatchSize:         batchSize,
			Metric:            metric,
			PriorCand:         firstFloat(req.PriorCand, cfg.Strategy.PriorCand),
			PriorEval:         firstFloat(req.PriorEval, cfg.Strategy.PriorEval),
			BatchMode:         probal.BatchMode(firstString(req.BatchMode, cfg.Strategy.BatchMode)),
			Lookahead:         firstInt(req.Lookahead, cfg.Strategy.Lookahead),
			Neighbors:         probal.NeighborMode(firstString(req.Neighbors, cfg.Strategy.Neighbors)),
			Independence:      firstBool(req.Independence, cfg.Strategy.Independence),
			AllSimLabelsEqual: firstBool(req.AllSimLabelsEqual, cfg.Strategy.AllSimLabelsEqual),
		})
	}
	return nil, errors.InvalidArgument("unknown strategy").WithDetailf("strategy=%q", string(req.Strategy))
}

// ----------------------------------------------------------------------------
// Helpers
// ----------------------------------------------------------------------------

func (s *queryServiceImpl) engineOptions(req *qtypes.Request, cfg *config.Config, log logging.Logger) []probal.Option {
	opts := []probal.Option{
		probal.WithLogger(log),
		probal.WithMetrics(s.engineMetrics),
		probal.WithMaxConcurrency(cfg.Engine.MaxConcurrency),
		probal.WithMaxLabelings(cfg.Engine.MaxLabelings),
	}
	switch {
	case req.Seed != nil:
		opts = append(opts, probal.WithSeed(*req.Seed))
	case cfg.Strategy.RandomSeed != 0:
		opts = append(opts, probal.WithSeed(cfg.Strategy.RandomSeed))
	}
	return opts
}

// buildKernel resolves the request kernel against the configured one.  A
// zero RBF gamma is estimated from the shape of X.  A precomputed kernel
// requires every instance to be an index into its matrix.
func buildKernel(req *qtypes.Request, cfg *config.Config) (kernel.Kernel, error) {
	metric, gamma := cfg.Kernel.Metric, cfg.Kernel.Gamma
	var matrix [][]float64
	if req.Kernel != nil {
		metric = firstString(req.Kernel.Metric, metric)
		gamma = firstFloat(req.Kernel.Gamma, gamma)
		matrix = req.Kernel.Matrix
	}
	k, err := kernel.New(metric, gamma, req.X, matrix)
	if err != nil {
		return nil, err
	}
	if p, ok := k.(kernel.Precomputed); ok {
		for _, set := range []struct {
			name string
			xs   [][]float64
		}{{"candidates", req.Candidates}, {"X", req.X}, {"eval", req.Eval}} {
			if err := p.CheckIndices(set.name, set.xs); err != nil {
				return nil, err
			}
		}
	}
	return k, nil
}

// inferClasses returns the request class count, or max(y)+1 when unset.
func inferClasses(req *qtypes.Request) (int, error) {
	if req.NClasses > 0 {
		return req.NClasses, nil
	}
	n := 0
	for _, y := range req.Y {
		if y+1 > n {
			n = y + 1
		}
	}
	if n == 0 {
		return 0, errors.InvalidArgument("n_classes is required when no instance is labeled")
	}
	return n, nil
}

func firstInt(v, fallback int) int {
	if v != 0 {
		return v
	}
	return fallback
}

func firstFloat(v, fallback float64) float64 {
	if v != 0 {
		return v
	}
	return fallback
}

func firstString(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}

func firstBool(v *bool, fallback bool) bool {
	if v != nil {
		return *v
	}
	return fallback
}
