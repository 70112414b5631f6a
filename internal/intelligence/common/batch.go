// Package common holds the concurrency and telemetry plumbing shared by the
// active-learning engines: a bounded fan-out over independent work items and
// the EngineMetrics recording interface.
package common

import (
	"context"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/turtacn/ProbAL-Intelligence/pkg/errors"
)

// ---------------------------------------------------------------------------
// Generic types
// ---------------------------------------------------------------------------

// ProcessFunc evaluates the item at position index.
type ProcessFunc[T, R any] func(ctx context.Context, index int, item T) (R, error)

// ---------------------------------------------------------------------------
// Options
// ---------------------------------------------------------------------------

type batchConfig struct {
	maxConcurrency int
	metrics        EngineMetrics
	stage          string
}

func defaultBatchConfig() *batchConfig {
	return &batchConfig{
		maxConcurrency: runtime.NumCPU(),
		metrics:        NewNoopEngineMetrics(),
	}
}

// BatchOption configures ParallelMap.
type BatchOption func(*batchConfig)

// WithMaxConcurrency sets the maximum number of items evaluated concurrently.
// Non-positive values keep the default (runtime.NumCPU()).
func WithMaxConcurrency(n int) BatchOption {
	return func(c *batchConfig) {
		if n > 0 {
			c.maxConcurrency = n
		}
	}
}

// WithBatchMetrics records the fan-out duration under stage.
func WithBatchMetrics(m EngineMetrics, stage string) BatchOption {
	return func(c *batchConfig) {
		if m != nil {
			c.metrics = m
			c.stage = stage
		}
	}
}

// ---------------------------------------------------------------------------
// ParallelMap
// ---------------------------------------------------------------------------

// ParallelMap evaluates fn for every item on a bounded errgroup and returns the
// results in input order.  Each result slot is written by exactly one
// goroutine, so no locking is needed.  The first error cancels the shared
// context and is returned; a cancelled parent context surfaces as
// CodeCancelled.
func ParallelMap[T, R any](ctx context.Context, items []T, fn ProcessFunc[T, R], opts ...BatchOption) ([]R, error) {
	cfg := defaultBatchConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	results := make([]R, len(items))
	if len(items) == 0 {
		return results, nil
	}

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.maxConcurrency)

	for i := range items {
		i := i
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r, err := fn(gctx, i, items[i])
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}

	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.Wrap(ctx.Err(), errors.CodeCancelled, "evaluation aborted")
		}
		return nil, err
	}

	if cfg.stage != "" {
		cfg.metrics.RecordFanOut(cfg.stage, len(items), time.Since(start))
	}
	return results, nil
}
