// Package metrics derives risk and performance figures from simulations:
// the per-run excursion tracker in tracker.go and the batch aggregator
// below, which condenses many trade results into one PolicyAggregate.
package metrics

import (
	"context"
	"errors"

	"exit-policy-lab/internal/domain"
	"exit-policy-lab/internal/storage"
)

// ErrNoTrades is returned when no trades are available for aggregation.
var ErrNoTrades = errors.New("no trades available for aggregation")

// Aggregator computes policy aggregates from stored trade results.
type Aggregator struct {
	tradeResultStore storage.TradeResultStore
}

// NewAggregator creates a new metrics aggregator.
func NewAggregator(tradeStore storage.TradeResultStore) *Aggregator {
	return &Aggregator{tradeResultStore: tradeStore}
}

// ComputeAggregate computes the aggregate for one (policy_id, cost_id)
// pair. No-entry results are counted but excluded from the distribution.
// Returns ErrNoTrades when nothing matches.
func (a *Aggregator) ComputeAggregate(ctx context.Context, policyID, costID string) (*domain.PolicyAggregate, error) {
	trades, err := a.tradeResultStore.GetByPolicyCost(ctx, policyID, costID)
	if err != nil {
		return nil, err
	}
	if len(trades) == 0 {
		return nil, ErrNoTrades
	}

	agg := ComputeFromTrades(trades)
	agg.PolicyID = policyID
	agg.CostID = costID
	return agg, nil
}

// ComputeFromTrades calculates all metrics from a slice of trade results
// sharing one (policy, cost) pair. Trades are sorted by EntryTimestampMs
// ASC, TradeID ASC before computing order-dependent metrics (MaxDrawdownBps,
// MaxConsecutiveLosses), so the output is independent of input order.
func ComputeFromTrades(trades []*domain.TradeResult) *domain.PolicyAggregate {
	entered, noEntry := splitNoEntry(trades)
	n := len(entered)
	if n == 0 {
		return &domain.PolicyAggregate{NoEntry: noEntry}
	}

	sorted := sortedByEntry(entered)

	wins := 0
	stopOuts := 0
	for _, t := range sorted {
		if t.RealizedReturnBps > 0 {
			wins++
		}
		if t.StopOut {
			stopOuts++
		}
	}

	// Returns in chronological order for order-dependent calculations
	returns := make([]float64, n)
	for i, t := range sorted {
		returns[i] = t.RealizedReturnBps
	}

	sortedReturns := make([]float64, n)
	copy(sortedReturns, returns)
	sortFloats(sortedReturns)

	mean := computeMean(returns)
	totalCalls, callWinRate := computeCallWinRate(sorted)

	return &domain.PolicyAggregate{
		TotalTrades: n,
		TotalCalls:  totalCalls,
		NoEntry:     noEntry,
		Wins:        wins,
		Losses:      n - wins,
		WinRate:     float64(wins) / float64(n),
		CallWinRate: callWinRate,
		StopOutRate: float64(stopOuts) / float64(n),

		ReturnMean:   mean,
		ReturnMedian: computePercentile(sortedReturns, 0.50),
		ReturnP10:    computePercentile(sortedReturns, 0.10),
		ReturnP25:    computePercentile(sortedReturns, 0.25),
		ReturnP75:    computePercentile(sortedReturns, 0.75),
		ReturnP90:    computePercentile(sortedReturns, 0.90),
		ReturnMin:    sortedReturns[0],
		ReturnMax:    sortedReturns[n-1],
		ReturnStddev: computeStddev(returns, mean),

		MaxDrawdownBps:       computeMaxDrawdown(returns),
		MaxConsecutiveLosses: computeMaxConsecutiveLosses(returns),
		MeanTailCapture:      computeMeanTailCapture(sorted),
	}
}

// splitNoEntry separates entered trades from no-entry sentinels.
func splitNoEntry(trades []*domain.TradeResult) ([]*domain.TradeResult, int) {
	entered := make([]*domain.TradeResult, 0, len(trades))
	noEntry := 0
	for _, t := range trades {
		if t.ExitReason == domain.ExitReasonNoEntry {
			noEntry++
			continue
		}
		entered = append(entered, t)
	}
	return entered, noEntry
}

// computeCallWinRate groups trades by CallID; a call counts as winning when
// at least one of its trades has a positive realized return.
func computeCallWinRate(trades []*domain.TradeResult) (int, float64) {
	if len(trades) == 0 {
		return 0, 0
	}

	callReturns := make(map[string][]float64)
	for _, t := range trades {
		callReturns[t.CallID] = append(callReturns[t.CallID], t.RealizedReturnBps)
	}

	totalCalls := len(callReturns)
	winningCalls := 0
	for _, returns := range callReturns {
		for _, r := range returns {
			if r > 0 {
				winningCalls++
				break
			}
		}
	}

	return totalCalls, float64(winningCalls) / float64(totalCalls)
}

// computeMeanTailCapture averages tail capture over trades where it is
// defined. Nil when no trade defines it.
func computeMeanTailCapture(trades []*domain.TradeResult) *float64 {
	sum := 0.0
	count := 0
	for _, t := range trades {
		if t.TailCapture != nil {
			sum += *t.TailCapture
			count++
		}
	}
	if count == 0 {
		return nil
	}
	mean := sum / float64(count)
	return &mean
}

// computeMaxConsecutiveLosses finds the longest streak of realized return
// <= 0. Returns must be in chronological order.
func computeMaxConsecutiveLosses(returns []float64) int {
	maxStreak := 0
	currentStreak := 0

	for _, r := range returns {
		if r <= 0 {
			currentStreak++
			if currentStreak > maxStreak {
				maxStreak = currentStreak
			}
		} else {
			currentStreak = 0
		}
	}
	return maxStreak
}
