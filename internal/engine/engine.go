// Package engine runs one (call, policy) simulation: entry resolution, a
// single synchronous fold over the candle sequence driving the policy state
// machine, and trade result assembly. Each invocation owns all of its state;
// concurrent simulations never share anything mutable.
package engine

import (
	"exit-policy-lab/internal/domain"
	"exit-policy-lab/internal/lookup"
	"exit-policy-lab/internal/metrics"
	"exit-policy-lab/internal/policy"
)

// Simulate executes one (call, policy-config) pair over an ordered candle
// sequence and returns the immutable trade result.
//
// The only error path is config validation, rejected before any simulation
// work. Every data condition (empty candles, alert after all data, bad entry
// price) yields a well-formed no-entry result instead of an error, so a
// single problematic pair never aborts a batch.
//
// Callers must supply candles ordered ascending by timestamp and already
// filtered to their as-of time; the fold itself only ever reads the current
// bar, so no decision at bar i can depend on bars past i.
func Simulate(call *domain.Call, candles []domain.Candle, cfg domain.PolicyConfig, cost domain.CostModel) (*domain.TradeResult, error) {
	pol, err := policy.FromConfig(cfg)
	if err != nil {
		return nil, err
	}

	// Duplicate timestamps are a data-quality defect; first bar wins,
	// deterministically, until upstream deduplication catches it.
	candles = lookup.DedupeFirst(candles)

	entry := ResolveEntry(call.AlertTimestampMs, candles)
	if !entry.OK {
		return noEntryResult(call, pol, cost), nil
	}

	pol.Open(entry.Price, entry.TimestampMs)
	tracker := metrics.NewTracker(entry.Price)

	remaining := 1.0
	var partials []domain.PartialExit
	var final *policy.Fill

	for i := entry.Index; i < len(candles); i++ {
		c := candles[i]
		tracker.Observe(c)

		for _, f := range pol.Step(c) {
			if f.Final {
				ff := f
				final = &ff
				break
			}
			frac := f.Fraction
			if frac > remaining {
				frac = remaining
			}
			partials = append(partials, domain.PartialExit{
				TimestampMs: f.TimestampMs,
				Price:       f.Price,
				Fraction:    frac,
				Level:       f.Level,
			})
			remaining -= frac
		}
		if final != nil {
			break
		}
	}

	if final == nil {
		f := pol.Close(candles[len(candles)-1])
		final = &f
	}

	return buildTradeResult(call, pol, cost, entry, tracker, partials, remaining, *final), nil
}

// noEntryResult is the defined sentinel for pairs that never enter:
// zero return, no stop-out, zero exposure.
func noEntryResult(call *domain.Call, pol policy.Policy, cost domain.CostModel) *domain.TradeResult {
	return &domain.TradeResult{
		TradeID:    tradeID(call, pol, cost, 0),
		CallID:     call.CallID,
		PolicyID:   pol.ID(),
		CostID:     cost.CostID,
		ExitReason: domain.ExitReasonNoEntry,
	}
}
