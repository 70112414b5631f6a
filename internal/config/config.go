// Package config defines all configuration structures for ProbAL-Intelligence.
// No I/O or parsing logic lives here, only plain data types and validation.
package config

import (
	"fmt"
	"time"

	"github.com/turtacn/ProbAL-Intelligence/internal/infrastructure/monitoring/logging"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // "debug" | "release" | "test"
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	MaxBodySize     int64         `mapstructure:"max_body_size"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// StrategyConfig holds the query-strategy parameters shared by McPAL and
// XPAL.  Request payloads may override any of them per query.
type StrategyConfig struct {
	// Prior is the scalar Dirichlet pseudo-count McPAL adds to every class.
	Prior float64 `mapstructure:"prior"`
	// MMax is the maximum number of hypothetically acquired labels (McPAL).
	MMax int `mapstructure:"m_max"`

	// PriorCand and PriorEval scale the optimal prior for the candidate and
	// evaluation probability estimators (XPAL).
	PriorCand float64 `mapstructure:"prior_cand"`
	PriorEval float64 `mapstructure:"prior_eval"`

	Metric     string      `mapstructure:"metric"`
	CostVector []float64   `mapstructure:"cost_vector"`
	CostMatrix [][]float64 `mapstructure:"cost_matrix"`

	BatchSize int    `mapstructure:"batch_size"`
	BatchMode string `mapstructure:"batch_mode"` // "greedy" | "full"
	Lookahead int    `mapstructure:"lookahead"`
	Neighbors string `mapstructure:"neighbors"` // "same" | "nearest"

	Independence      bool `mapstructure:"independence"`
	AllSimLabelsEqual bool `mapstructure:"all_sim_labels_equal"`

	// RandomSeed seeds the tie-break source.  Zero selects a time-based seed.
	RandomSeed int64 `mapstructure:"random_seed"`
}

// KernelConfig selects the similarity function between instances.
type KernelConfig struct {
	Metric string `mapstructure:"metric"` // "rbf" | "linear" | "precomputed"
	// Gamma is the RBF width.  Zero estimates it from the labeled set.
	Gamma float64 `mapstructure:"gamma"`
}

// EngineConfig bounds the worker pool the engines fan out over.
type EngineConfig struct {
	MaxConcurrency int `mapstructure:"max_concurrency"`
	// MaxLabelings caps the number of hypothetical labelings a single query
	// may enumerate; zero disables the cap.
	MaxLabelings int `mapstructure:"max_labelings"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level       string   `mapstructure:"level"`
	Format      string   `mapstructure:"format"` // "json" | "console"
	OutputPaths []string `mapstructure:"output_paths"`
}

// ToLogging converts the section into the logging package's own config type.
func (c LogConfig) ToLogging() logging.LogConfig {
	return logging.LogConfig{
		Level:       c.Level,
		Format:      c.Format,
		OutputPaths: c.OutputPaths,
	}
}

// MetricsConfig controls the Prometheus registry.
type MetricsConfig struct {
	Enabled                bool   `mapstructure:"enabled"`
	Namespace              string `mapstructure:"namespace"`
	Subsystem              string `mapstructure:"subsystem"`
	Path                   string `mapstructure:"path"`
	EnableGoCollector      bool   `mapstructure:"enable_go_collector"`
	EnableProcessCollector bool   `mapstructure:"enable_process_collector"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root configuration
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration object.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Strategy StrategyConfig `mapstructure:"strategy"`
	Kernel   KernelConfig   `mapstructure:"kernel"`
	Engine   EngineConfig   `mapstructure:"engine"`
	Log      LogConfig      `mapstructure:"log"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

// Validate performs semantic validation of the fully-populated Config.
// It returns the first error encountered.  Metric names and cost shapes are
// checked later by the engine, which knows the class count.
func (c *Config) Validate() error {
	// Server
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d is out of range [1, 65535]", c.Server.Port)
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("config: server.mode %q is invalid; expected debug|release|test", c.Server.Mode)
	}

	// Strategy
	s := c.Strategy
	if s.Prior <= 0 {
		return fmt.Errorf("config: strategy.prior must be > 0, got %g", s.Prior)
	}
	if s.MMax < 1 {
		return fmt.Errorf("config: strategy.m_max must be ≥ 1, got %d", s.MMax)
	}
	if s.PriorCand <= 0 || s.PriorEval <= 0 {
		return fmt.Errorf("config: strategy.prior_cand and strategy.prior_eval must be > 0")
	}
	if s.BatchSize < 1 {
		return fmt.Errorf("config: strategy.batch_size must be ≥ 1, got %d", s.BatchSize)
	}
	if s.Lookahead < 1 {
		return fmt.Errorf("config: strategy.lookahead must be ≥ 1, got %d", s.Lookahead)
	}
	switch s.BatchMode {
	case "greedy", "full":
	default:
		return fmt.Errorf("config: strategy.batch_mode %q is invalid; expected greedy|full", s.BatchMode)
	}
	switch s.Neighbors {
	case "same", "nearest":
	default:
		return fmt.Errorf("config: strategy.neighbors %q is invalid; expected same|nearest", s.Neighbors)
	}

	// Kernel
	switch c.Kernel.Metric {
	case "rbf", "linear", "precomputed":
	default:
		return fmt.Errorf("config: kernel.metric %q is invalid; expected rbf|linear|precomputed", c.Kernel.Metric)
	}
	if c.Kernel.Gamma < 0 {
		return fmt.Errorf("config: kernel.gamma must be ≥ 0, got %g", c.Kernel.Gamma)
	}

	// Engine
	if c.Engine.MaxConcurrency < 1 {
		return fmt.Errorf("config: engine.max_concurrency must be ≥ 1, got %d", c.Engine.MaxConcurrency)
	}
	if c.Engine.MaxLabelings < 0 {
		return fmt.Errorf("config: engine.max_labelings must be ≥ 0, got %d", c.Engine.MaxLabelings)
	}

	// Log
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|console", c.Log.Format)
	}

	return nil
}
