package metrics

import (
	"math"
	"sort"

	"exit-policy-lab/internal/domain"
)

// sortedByEntry returns a copy sorted deterministically by EntryTimestampMs
// ASC, TradeID ASC.
func sortedByEntry(trades []*domain.TradeResult) []*domain.TradeResult {
	out := make([]*domain.TradeResult, len(trades))
	copy(out, trades)
	sort.Slice(out, func(i, j int) bool {
		if out[i].EntryTimestampMs != out[j].EntryTimestampMs {
			return out[i].EntryTimestampMs < out[j].EntryTimestampMs
		}
		return out[i].TradeID < out[j].TradeID
	})
	return out
}

func sortFloats(vals []float64) {
	sort.Float64s(vals)
}

// computeMean calculates the arithmetic mean.
func computeMean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

// computeStddev calculates sample standard deviation (n-1 denominator).
func computeStddev(vals []float64, mean float64) float64 {
	n := len(vals)
	if n < 2 {
		return 0 // Need at least 2 samples for sample stddev
	}
	sumSq := 0.0
	for _, v := range vals {
		diff := v - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(n-1))
}

// computePercentile uses linear interpolation.
// sorted must be pre-sorted ASC.
// p is percentile (0.10 = 10th percentile).
func computePercentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}

	// Index for percentile (0-based, continuous)
	idx := p * float64(n-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= n {
		return sorted[n-1]
	}

	// Linear interpolation
	frac := idx - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

// computeMaxDrawdown calculates worst peak-to-trough on cumulative returns.
// Returns must be in chronological order.
func computeMaxDrawdown(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}

	cumulative := 0.0
	peak := 0.0
	maxDrawdown := 0.0

	for _, r := range returns {
		cumulative += r
		if cumulative > peak {
			peak = cumulative
		}
		drawdown := peak - cumulative
		if drawdown > maxDrawdown {
			maxDrawdown = drawdown
		}
	}
	return maxDrawdown
}
