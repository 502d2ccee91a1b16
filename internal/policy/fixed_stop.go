package policy

import (
	"fmt"

	"exit-policy-lab/internal/domain"
)

// FixedStop exits at a fixed stop-loss below entry and, optionally, a fixed
// take-profit above it. Both levels are armed from the entry bar onward;
// triggers on the entry bar itself exit on that same bar.
type FixedStop struct {
	StopPct       float64
	TakeProfitPct *float64

	entryPrice      float64
	entryTsMs       int64
	stopPrice       float64
	takeProfitPrice float64 // 0 when take-profit is not configured
	exited          bool
}

// NewFixedStop creates a FixedStop policy. takeProfitPct may be nil.
func NewFixedStop(stopPct float64, takeProfitPct *float64) *FixedStop {
	return &FixedStop{
		StopPct:       stopPct,
		TakeProfitPct: takeProfitPct,
	}
}

// ID returns the policy identifier including parameters. Fractions are
// formatted with %g so distinct configurations never share an identifier;
// the ID feeds the deterministic trade key.
func (p *FixedStop) ID() string {
	if p.TakeProfitPct != nil {
		return fmt.Sprintf("FIXED_STOP_stop%g_tp%g", p.StopPct, *p.TakeProfitPct)
	}
	return fmt.Sprintf("FIXED_STOP_stop%g", p.StopPct)
}

// Kind returns the canonical policy kind.
func (p *FixedStop) Kind() string {
	return domain.PolicyKindFixedStop
}

// Open binds the policy to the resolved entry and arms both price levels.
func (p *FixedStop) Open(entryPrice float64, entryTsMs int64) {
	p.entryPrice = entryPrice
	p.entryTsMs = entryTsMs
	p.stopPrice = entryPrice * (1 - p.StopPct)
	if p.TakeProfitPct != nil {
		p.takeProfitPrice = entryPrice * (1 + *p.TakeProfitPct)
	}
}

// Step evaluates one bar in the documented check order.
func (p *FixedStop) Step(c domain.Candle) []Fill {
	if p.exited {
		return nil
	}
	for _, chk := range fixedStopChecks {
		if f := chk.eval(p, c); f != nil {
			p.exited = true
			return []Fill{*f}
		}
	}
	return nil
}

// Close force-closes at the last bar's close when data ends.
func (p *FixedStop) Close(last domain.Candle) Fill {
	return Fill{
		TimestampMs: last.TimestampMs(),
		Price:       last.Close,
		Reason:      domain.ExitReasonEndOfData,
		Level:       -1,
		Final:       true,
	}
}

// checkStopLoss fills at the configured stop price, not the bar low, even
// when price gaps through the level.
func (p *FixedStop) checkStopLoss(c domain.Candle) *Fill {
	if c.Low <= p.stopPrice {
		return &Fill{
			TimestampMs: c.TimestampMs(),
			Price:       p.stopPrice,
			Reason:      domain.ExitReasonStopLoss,
			Level:       -1,
			Final:       true,
		}
	}
	return nil
}

// checkTakeProfit fills at the configured take-profit price, not the bar high.
func (p *FixedStop) checkTakeProfit(c domain.Candle) *Fill {
	if p.TakeProfitPct == nil {
		return nil
	}
	if c.High >= p.takeProfitPrice {
		return &Fill{
			TimestampMs: c.TimestampMs(),
			Price:       p.takeProfitPrice,
			Reason:      domain.ExitReasonTakeProfit,
			Level:       -1,
			Final:       true,
		}
	}
	return nil
}

// Ensure FixedStop implements Policy.
var _ Policy = (*FixedStop)(nil)
