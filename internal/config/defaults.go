package config

import (
	"runtime"
	"time"

	"github.com/spf13/viper"
)

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultServerPort            = 8080
	DefaultServerMode            = "release"
	DefaultServerReadTimeout     = 30 * time.Second
	DefaultServerWriteTimeout    = 120 * time.Second
	DefaultServerMaxBodySize     = 32 << 20
	DefaultServerShutdownTimeout = 15 * time.Second

	DefaultPrior     = 1.0
	DefaultMMax      = 1
	DefaultPriorCand = 1e-3
	DefaultPriorEval = 1e-3
	DefaultMetric    = "error"
	DefaultBatchSize = 1
	DefaultBatchMode = "greedy"
	DefaultLookahead = 1
	DefaultNeighbors = "nearest"

	DefaultKernelMetric = "rbf"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultMetricsNamespace = "probal"
	DefaultMetricsPath      = "/metrics"
)

// ApplyDefaults fills every zero-value field in cfg with its default.  Fields
// that have already been set (non-zero values) are left unchanged so that
// explicit configuration always wins.  Boolean switches whose default is true
// are seeded through viper (see setViperDefaults) or DefaultConfig instead.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Server ────────────────────────────────────────────────────────────────
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = DefaultServerMode
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultServerReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultServerWriteTimeout
	}
	if cfg.Server.MaxBodySize == 0 {
		cfg.Server.MaxBodySize = DefaultServerMaxBodySize
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultServerShutdownTimeout
	}

	// ── Strategy ──────────────────────────────────────────────────────────────
	if cfg.Strategy.Prior == 0 {
		cfg.Strategy.Prior = DefaultPrior
	}
	if cfg.Strategy.MMax == 0 {
		cfg.Strategy.MMax = DefaultMMax
	}
	if cfg.Strategy.PriorCand == 0 {
		cfg.Strategy.PriorCand = DefaultPriorCand
	}
	if cfg.Strategy.PriorEval == 0 {
		cfg.Strategy.PriorEval = DefaultPriorEval
	}
	if cfg.Strategy.Metric == "" {
		cfg.Strategy.Metric = DefaultMetric
	}
	if cfg.Strategy.BatchSize == 0 {
		cfg.Strategy.BatchSize = DefaultBatchSize
	}
	if cfg.Strategy.BatchMode == "" {
		cfg.Strategy.BatchMode = DefaultBatchMode
	}
	if cfg.Strategy.Lookahead == 0 {
		cfg.Strategy.Lookahead = DefaultLookahead
	}
	if cfg.Strategy.Neighbors == "" {
		cfg.Strategy.Neighbors = DefaultNeighbors
	}

	// ── Kernel ────────────────────────────────────────────────────────────────
	if cfg.Kernel.Metric == "" {
		cfg.Kernel.Metric = DefaultKernelMetric
	}

	// ── Engine ────────────────────────────────────────────────────────────────
	if cfg.Engine.MaxConcurrency == 0 {
		cfg.Engine.MaxConcurrency = runtime.NumCPU()
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}

	// ── Metrics ───────────────────────────────────────────────────────────────
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}
}

// DefaultConfig returns a fully defaulted Config, including the switches
// that default to true.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Strategy.Independence = true
	cfg.Strategy.AllSimLabelsEqual = true
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableGoCollector = true
	cfg.Metrics.EnableProcessCollector = true
	ApplyDefaults(cfg)
	return cfg
}

// setViperDefaults registers every key with viper so that AutomaticEnv can
// resolve PROBAL_* variables even when no config file mentions the key.
func setViperDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.mode", d.Server.Mode)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.max_body_size", d.Server.MaxBodySize)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)

	v.SetDefault("strategy.prior", d.Strategy.Prior)
	v.SetDefault("strategy.m_max", d.Strategy.MMax)
	v.SetDefault("strategy.prior_cand", d.Strategy.PriorCand)
	v.SetDefault("strategy.prior_eval", d.Strategy.PriorEval)
	v.SetDefault("strategy.metric", d.Strategy.Metric)
	v.SetDefault("strategy.batch_size", d.Strategy.BatchSize)
	v.SetDefault("strategy.batch_mode", d.Strategy.BatchMode)
	v.SetDefault("strategy.lookahead", d.Strategy.Lookahead)
	v.SetDefault("strategy.neighbors", d.Strategy.Neighbors)
	v.SetDefault("strategy.independence", d.Strategy.Independence)
	v.SetDefault("strategy.all_sim_labels_equal", d.Strategy.AllSimLabelsEqual)
	v.SetDefault("strategy.random_seed", d.Strategy.RandomSeed)

	v.SetDefault("kernel.metric", d.Kernel.Metric)
	v.SetDefault("kernel.gamma", d.Kernel.Gamma)

	v.SetDefault("engine.max_concurrency", d.Engine.MaxConcurrency)
	v.SetDefault("engine.max_labelings", d.Engine.MaxLabelings)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)

	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.namespace", d.Metrics.Namespace)
	v.SetDefault("metrics.subsystem", d.Metrics.Subsystem)
	v.SetDefault("metrics.path", d.Metrics.Path)
	v.SetDefault("metrics.enable_go_collector", d.Metrics.EnableGoCollector)
	v.SetDefault("metrics.enable_process_collector", d.Metrics.EnableProcessCollector)
}
