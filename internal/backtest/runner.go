// Package backtest drives many independent (call, policy) simulations.
// The engine itself is strictly sequential within one pair and shares no
// state between pairs, so the runner parallelizes freely up to a worker
// limit.
package backtest

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"exit-policy-lab/internal/domain"
	"exit-policy-lab/internal/engine"
	"exit-policy-lab/internal/lookup"
	"exit-policy-lab/internal/observability"
	"exit-policy-lab/internal/storage"
)

// Pair is one unit of batch work.
type Pair struct {
	CallID string
	Config domain.PolicyConfig
}

// PairResult couples a pair with its outcome. Err is set when the pair
// failed (bad config, missing call, storage failure); the batch continues
// regardless - one bad pair never aborts a run.
type PairResult struct {
	Pair   Pair
	Result *domain.TradeResult
	Err    error
}

// Runner executes batches of simulations against stored calls and candles.
type Runner struct {
	callStore        storage.CallStore
	candleStore      storage.CandleStore
	tradeResultStore storage.TradeResultStore // optional; nil disables persistence
	metrics          *observability.Metrics   // optional
	intervalSeconds  int64
	asOfMs           int64
	workers          int
}

// RunnerOptions contains configuration for creating a Runner.
type RunnerOptions struct {
	CallStore        storage.CallStore
	CandleStore      storage.CandleStore
	TradeResultStore storage.TradeResultStore
	Metrics          *observability.Metrics
	IntervalSeconds  int64
	AsOfMs           int64 // > 0 hides every bar closing after this time
	Workers          int   // <= 0 means sequential
}

// NewRunner creates a batch runner.
func NewRunner(opts RunnerOptions) *Runner {
	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}
	return &Runner{
		callStore:        opts.CallStore,
		candleStore:      opts.CandleStore,
		tradeResultStore: opts.TradeResultStore,
		metrics:          opts.Metrics,
		intervalSeconds:  opts.IntervalSeconds,
		asOfMs:           opts.AsOfMs,
		workers:          workers,
	}
}

// RunPair executes a single (call, policy) simulation: load the call, load
// its candle series, simulate, optionally persist.
func (r *Runner) RunPair(ctx context.Context, pair Pair, cost domain.CostModel) (*domain.TradeResult, error) {
	call, err := r.callStore.GetByID(ctx, pair.CallID)
	if err != nil {
		return nil, fmt.Errorf("load call %s: %w", pair.CallID, err)
	}

	candles, err := r.candleStore.GetSeries(ctx, call.InstrumentID, r.intervalSeconds)
	if err != nil {
		return nil, fmt.Errorf("load candles for %s: %w", call.InstrumentID, err)
	}
	if err := lookup.CheckOrdered(candles); err != nil && err != lookup.ErrNoCandleData {
		return nil, fmt.Errorf("candle series for %s: %w", call.InstrumentID, err)
	}
	if r.asOfMs > 0 {
		// Bars closing after the as-of time never reach the engine, so a
		// run "as of" time t cannot be influenced by anything past t.
		candles = lookup.CausalPrefix(candles, r.asOfMs)
	}

	start := time.Now()
	result, err := engine.Simulate(call, candles, pair.Config, cost)
	if err != nil {
		return nil, err
	}
	r.observe(result, time.Since(start))

	if r.tradeResultStore != nil {
		if err := r.tradeResultStore.Insert(ctx, result); err != nil {
			return nil, fmt.Errorf("persist trade result: %w", err)
		}
	}
	return result, nil
}

// RunBatch executes all pairs with bounded parallelism. The returned slice
// is index-aligned with pairs; failed pairs carry their error and do not
// affect the others.
func (r *Runner) RunBatch(ctx context.Context, pairs []Pair, cost domain.CostModel) []PairResult {
	results := make([]PairResult, len(pairs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	for i, pair := range pairs {
		g.Go(func() error {
			result, err := r.RunPair(gctx, pair, cost)
			results[i] = PairResult{Pair: pair, Result: result, Err: err}
			// Pair failures are isolated; never fail the group.
			return nil
		})
	}

	// Workers never return errors; Wait only joins them.
	_ = g.Wait()

	if r.metrics != nil {
		r.metrics.BatchesRun.Inc()
		for _, res := range results {
			if res.Err != nil {
				r.metrics.PairFailures.Inc()
			}
		}
	}
	return results
}

func (r *Runner) observe(result *domain.TradeResult, elapsed time.Duration) {
	if r.metrics == nil {
		return
	}
	r.metrics.SimulationsRun.Inc()
	r.metrics.SimulationDuration.Observe(elapsed.Seconds())
	r.metrics.ExitReasons.WithLabelValues(result.ExitReason).Inc()
	if result.ExitReason == domain.ExitReasonNoEntry {
		r.metrics.NoEntryTotal.Inc()
	}
}
