package engine

import (
	"github.com/shopspring/decimal"

	"exit-policy-lab/internal/domain"
	"exit-policy-lab/internal/idhash"
	"exit-policy-lab/internal/metrics"
	"exit-policy-lab/internal/policy"
)

// bpsScale and the fixed rounding below keep return arithmetic identical
// across platforms: every bps figure goes through decimal math and is
// rounded to 4 places before leaving the builder.
var (
	bpsScale   = decimal.NewFromInt(10000)
	decimalOne = decimal.NewFromInt(1)
	decimalTwo = decimal.NewFromInt(2)
)

const bpsPrecision = 4

// buildTradeResult assembles the terminal state of a simulation. Called
// exactly once per run; the result is never mutated afterwards.
func buildTradeResult(
	call *domain.Call,
	pol policy.Policy,
	cost domain.CostModel,
	entry EntryResolution,
	tracker *metrics.Tracker,
	partials []domain.PartialExit,
	remaining float64,
	final policy.Fill,
) *domain.TradeResult {
	grossBps := grossReturnBps(entry.Price, partials, remaining, final.Price)
	netBps := netReturnBps(grossBps, cost)

	grossF, _ := grossBps.Float64()
	netF, _ := netBps.Float64()

	return &domain.TradeResult{
		TradeID:  tradeID(call, pol, cost, entry.TimestampMs),
		CallID:   call.CallID,
		PolicyID: pol.ID(),
		CostID:   cost.CostID,

		EntryTimestampMs: entry.TimestampMs,
		EntryPrice:       entry.Price,

		ExitTimestampMs: final.TimestampMs,
		ExitPrice:       final.Price,
		ExitReason:      final.Reason,
		ExitSubPolicy:   final.SubPolicy,

		GrossReturnBps:    grossF,
		RealizedReturnBps: netF,
		StopOut:           domain.StopOutReason(final.Reason),

		MaxAdverseExcursionBps: tracker.MaxAdverseExcursionBps(),
		PeakReturnBps:          tracker.PeakReturnBps(),
		TailCapture:            metrics.TailCapture(netF, tracker.PeakReturnBps()),

		TimeExposedMs: final.TimestampMs - entry.TimestampMs,
		PartialExits:  partials,
	}
}

// grossReturnBps computes the position-weighted return before costs:
// ladder fills at their target prices plus the remaining fraction at the
// final fill price, relative to entry.
func grossReturnBps(entryPrice float64, partials []domain.PartialExit, remaining float64, finalPrice float64) decimal.Decimal {
	weighted := decimal.NewFromFloat(remaining).Mul(decimal.NewFromFloat(finalPrice))
	for _, pe := range partials {
		weighted = weighted.Add(decimal.NewFromFloat(pe.Fraction).Mul(decimal.NewFromFloat(pe.Price)))
	}
	return weighted.
		Div(decimal.NewFromFloat(entryPrice)).
		Sub(decimalOne).
		Mul(bpsScale).
		Round(bpsPrecision)
}

// netReturnBps applies the cost model once at final exit: taker fee on
// entry and exit plus one slippage charge, never compounded per fill.
func netReturnBps(grossBps decimal.Decimal, cost domain.CostModel) decimal.Decimal {
	return grossBps.
		Sub(decimal.NewFromFloat(cost.TakerFeeBps).Mul(decimalTwo)).
		Sub(decimal.NewFromFloat(cost.SlippageBps)).
		Round(bpsPrecision)
}

func tradeID(call *domain.Call, pol policy.Policy, cost domain.CostModel, entryTsMs int64) string {
	return idhash.ComputeTradeID(call.CallID, pol.ID(), cost.CostID, entryTsMs)
}
