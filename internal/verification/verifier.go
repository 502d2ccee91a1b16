// Package verification checks the engine's determinism contract: stored
// trade results must match a re-run of the same simulation field for field,
// and no decision may depend on candle data from after its own time.
package verification

import (
	"context"
	"fmt"
	"math"

	"exit-policy-lab/internal/domain"
	"exit-policy-lab/internal/engine"
	"exit-policy-lab/internal/storage"
)

// FloatTolerance is the tolerance for float64 comparisons between stored
// and replayed values. Bps figures are rounded to 4 places by the builder,
// so any divergence beyond this is a real mismatch.
const FloatTolerance = 1e-7

// FieldDivergence represents a mismatch between stored and replayed values.
type FieldDivergence struct {
	Field    string      // field name
	Expected interface{} // stored value
	Actual   interface{} // replayed value
}

// VerificationResult contains the result of verifying a single trade.
type VerificationResult struct {
	TradeID        string            // verified trade ID
	Match          bool              // true if all fields match
	Divergences    []FieldDivergence // list of divergent fields
	StoredReturn   float64           // realized return from stored trade
	ReplayedReturn float64           // realized return from replayed simulation
}

// VerificationReport contains results for batch verification.
type VerificationReport struct {
	TotalTrades     int                  // total trades verified
	MatchedTrades   int                  // trades that matched exactly
	DivergentTrades int                  // trades with divergences
	Results         []VerificationResult // individual results
}

// Verifier replays stored trades through the engine and compares.
type Verifier struct {
	callStore        storage.CallStore
	candleStore      storage.CandleStore
	tradeResultStore storage.TradeResultStore
	intervalSeconds  int64
}

// NewVerifier creates a replay verifier reading candles at intervalSeconds.
func NewVerifier(calls storage.CallStore, candles storage.CandleStore, trades storage.TradeResultStore, intervalSeconds int64) *Verifier {
	return &Verifier{
		callStore:        calls,
		candleStore:      candles,
		tradeResultStore: trades,
		intervalSeconds:  intervalSeconds,
	}
}

// VerifyTrade re-simulates one stored trade with the supplied policy and
// cost configuration and compares every output field. The configuration is
// caller-supplied because trade results carry the derived policy ID, not
// the parameters themselves.
func (v *Verifier) VerifyTrade(ctx context.Context, tradeID string, cfg domain.PolicyConfig, cost domain.CostModel) (*VerificationResult, error) {
	stored, err := v.tradeResultStore.GetByID(ctx, tradeID)
	if err != nil {
		return nil, fmt.Errorf("load stored trade: %w", err)
	}

	call, err := v.callStore.GetByID(ctx, stored.CallID)
	if err != nil {
		return nil, fmt.Errorf("load call: %w", err)
	}

	candles, err := v.candleStore.GetSeries(ctx, call.InstrumentID, v.intervalSeconds)
	if err != nil {
		return nil, fmt.Errorf("load candles: %w", err)
	}

	replayed, err := engine.Simulate(call, candles, cfg, cost)
	if err != nil {
		return nil, fmt.Errorf("replay simulation: %w", err)
	}

	divergences := CompareTradeResults(stored, replayed)
	return &VerificationResult{
		TradeID:        tradeID,
		Match:          len(divergences) == 0,
		Divergences:    divergences,
		StoredReturn:   stored.RealizedReturnBps,
		ReplayedReturn: replayed.RealizedReturnBps,
	}, nil
}

// VerifyAll replays every stored trade belonging to a (policy, cost) pair.
func (v *Verifier) VerifyAll(ctx context.Context, cfg domain.PolicyConfig, cost domain.CostModel, policyID string) (*VerificationReport, error) {
	trades, err := v.tradeResultStore.GetByPolicyCost(ctx, policyID, cost.CostID)
	if err != nil {
		return nil, fmt.Errorf("load trades: %w", err)
	}

	report := &VerificationReport{TotalTrades: len(trades)}
	for _, t := range trades {
		result, err := v.VerifyTrade(ctx, t.TradeID, cfg, cost)
		if err != nil {
			return nil, err
		}
		if result.Match {
			report.MatchedTrades++
		} else {
			report.DivergentTrades++
		}
		report.Results = append(report.Results, *result)
	}
	return report, nil
}

// CompareTradeResults compares two trade results and returns divergences.
// Uses FloatTolerance for float64 comparisons.
func CompareTradeResults(stored, replayed *domain.TradeResult) []FieldDivergence {
	var divergences []FieldDivergence

	diverge := func(field string, expected, actual interface{}) {
		divergences = append(divergences, FieldDivergence{Field: field, Expected: expected, Actual: actual})
	}

	if stored.TradeID != replayed.TradeID {
		diverge("TradeID", stored.TradeID, replayed.TradeID)
	}
	if stored.CallID != replayed.CallID {
		diverge("CallID", stored.CallID, replayed.CallID)
	}
	if stored.PolicyID != replayed.PolicyID {
		diverge("PolicyID", stored.PolicyID, replayed.PolicyID)
	}
	if stored.CostID != replayed.CostID {
		diverge("CostID", stored.CostID, replayed.CostID)
	}

	if stored.EntryTimestampMs != replayed.EntryTimestampMs {
		diverge("EntryTimestampMs", stored.EntryTimestampMs, replayed.EntryTimestampMs)
	}
	if !floatEquals(stored.EntryPrice, replayed.EntryPrice) {
		diverge("EntryPrice", stored.EntryPrice, replayed.EntryPrice)
	}

	if stored.ExitTimestampMs != replayed.ExitTimestampMs {
		diverge("ExitTimestampMs", stored.ExitTimestampMs, replayed.ExitTimestampMs)
	}
	if !floatEquals(stored.ExitPrice, replayed.ExitPrice) {
		diverge("ExitPrice", stored.ExitPrice, replayed.ExitPrice)
	}
	if stored.ExitReason != replayed.ExitReason {
		diverge("ExitReason", stored.ExitReason, replayed.ExitReason)
	}
	if stored.ExitSubPolicy != replayed.ExitSubPolicy {
		diverge("ExitSubPolicy", stored.ExitSubPolicy, replayed.ExitSubPolicy)
	}

	if !floatEquals(stored.GrossReturnBps, replayed.GrossReturnBps) {
		diverge("GrossReturnBps", stored.GrossReturnBps, replayed.GrossReturnBps)
	}
	if !floatEquals(stored.RealizedReturnBps, replayed.RealizedReturnBps) {
		diverge("RealizedReturnBps", stored.RealizedReturnBps, replayed.RealizedReturnBps)
	}
	if stored.StopOut != replayed.StopOut {
		diverge("StopOut", stored.StopOut, replayed.StopOut)
	}

	if !floatEquals(stored.MaxAdverseExcursionBps, replayed.MaxAdverseExcursionBps) {
		diverge("MaxAdverseExcursionBps", stored.MaxAdverseExcursionBps, replayed.MaxAdverseExcursionBps)
	}
	if !floatEquals(stored.PeakReturnBps, replayed.PeakReturnBps) {
		diverge("PeakReturnBps", stored.PeakReturnBps, replayed.PeakReturnBps)
	}
	if !floatPtrEquals(stored.TailCapture, replayed.TailCapture) {
		diverge("TailCapture", stored.TailCapture, replayed.TailCapture)
	}

	if stored.TimeExposedMs != replayed.TimeExposedMs {
		diverge("TimeExposedMs", stored.TimeExposedMs, replayed.TimeExposedMs)
	}

	if len(stored.PartialExits) != len(replayed.PartialExits) {
		diverge("PartialExits", len(stored.PartialExits), len(replayed.PartialExits))
	} else {
		for i := range stored.PartialExits {
			s, r := stored.PartialExits[i], replayed.PartialExits[i]
			if s.TimestampMs != r.TimestampMs || s.Level != r.Level ||
				!floatEquals(s.Price, r.Price) || !floatEquals(s.Fraction, r.Fraction) {
				diverge(fmt.Sprintf("PartialExits[%d]", i), s, r)
			}
		}
	}

	return divergences
}

func floatEquals(a, b float64) bool {
	return math.Abs(a-b) <= FloatTolerance
}

func floatPtrEquals(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return floatEquals(*a, *b)
}
