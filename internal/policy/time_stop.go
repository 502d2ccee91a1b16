package policy

import (
	"fmt"

	"exit-policy-lab/internal/domain"
)

// TimeStop exits after a maximum hold duration at the triggering bar's
// close, with an optional take-profit that is checked first on every bar.
// Note the precedence is the reverse of FixedStop: a bar that both reaches
// the take-profit and exceeds the hold duration exits as take_profit.
type TimeStop struct {
	MaxHoldMs     int64
	TakeProfitPct *float64

	entryPrice      float64
	entryTsMs       int64
	takeProfitPrice float64 // 0 when take-profit is not configured
	exited          bool
}

// NewTimeStop creates a TimeStop policy. takeProfitPct may be nil.
func NewTimeStop(maxHoldMs int64, takeProfitPct *float64) *TimeStop {
	return &TimeStop{
		MaxHoldMs:     maxHoldMs,
		TakeProfitPct: takeProfitPct,
	}
}

// ID returns the policy identifier including parameters.
func (p *TimeStop) ID() string {
	if p.TakeProfitPct != nil {
		return fmt.Sprintf("TIME_STOP_%dms_tp%g", p.MaxHoldMs, *p.TakeProfitPct)
	}
	return fmt.Sprintf("TIME_STOP_%dms", p.MaxHoldMs)
}

// Kind returns the canonical policy kind.
func (p *TimeStop) Kind() string {
	return domain.PolicyKindTimeStop
}

// Open binds the policy to the resolved entry.
func (p *TimeStop) Open(entryPrice float64, entryTsMs int64) {
	p.entryPrice = entryPrice
	p.entryTsMs = entryTsMs
	if p.TakeProfitPct != nil {
		p.takeProfitPrice = entryPrice * (1 + *p.TakeProfitPct)
	}
}

// Step evaluates one bar in the documented check order.
func (p *TimeStop) Step(c domain.Candle) []Fill {
	if p.exited {
		return nil
	}
	for _, chk := range timeStopChecks {
		if f := chk.eval(p, c); f != nil {
			p.exited = true
			return []Fill{*f}
		}
	}
	return nil
}

// Close force-closes at the last bar's close when data ends.
func (p *TimeStop) Close(last domain.Candle) Fill {
	return Fill{
		TimestampMs: last.TimestampMs(),
		Price:       last.Close,
		Reason:      domain.ExitReasonEndOfData,
		Level:       -1,
		Final:       true,
	}
}

// checkTakeProfit fills at the configured take-profit price.
func (p *TimeStop) checkTakeProfit(c domain.Candle) *Fill {
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

// checkTime exits at the bar's close once the hold duration has elapsed.
func (p *TimeStop) checkTime(c domain.Candle) *Fill {
	if c.TimestampMs() >= p.entryTsMs+p.MaxHoldMs {
		return &Fill{
			TimestampMs: c.TimestampMs(),
			Price:       c.Close,
			Reason:      domain.ExitReasonTimeStop,
			Level:       -1,
			Final:       true,
		}
	}
	return nil
}

// Ensure TimeStop implements Policy.
var _ Policy = (*TimeStop)(nil)
