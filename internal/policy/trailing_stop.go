package policy

import (
	"fmt"

	"exit-policy-lab/internal/domain"
)

// TrailingStop arms a trail below the running peak once price has risen
// activationPct above entry. Activation is a one-way transition. An optional
// hard stop below entry can fire from either state and is checked first.
// Without a hard stop the trade cannot exit via this policy until activation
// occurs or data ends.
type TrailingStop struct {
	ActivationPct float64
	TrailPct      float64
	HardStopPct   *float64

	entryPrice      float64
	entryTsMs       int64
	activationPrice float64
	hardStopPrice   float64 // 0 when hard stop is not configured
	activated       bool
	trailPeak       float64 // monotonic non-decreasing once activated
	exited          bool
}

// NewTrailingStop creates a TrailingStop policy. hardStopPct may be nil.
func NewTrailingStop(activationPct, trailPct float64, hardStopPct *float64) *TrailingStop {
	return &TrailingStop{
		ActivationPct: activationPct,
		TrailPct:      trailPct,
		HardStopPct:   hardStopPct,
	}
}

// ID returns the policy identifier including parameters.
func (p *TrailingStop) ID() string {
	if p.HardStopPct != nil {
		return fmt.Sprintf("TRAILING_STOP_act%g_trail%g_hard%g",
			p.ActivationPct, p.TrailPct, *p.HardStopPct)
	}
	return fmt.Sprintf("TRAILING_STOP_act%g_trail%g", p.ActivationPct, p.TrailPct)
}

// Kind returns the canonical policy kind.
func (p *TrailingStop) Kind() string {
	return domain.PolicyKindTrailingStop
}

// Open binds the policy to the resolved entry.
func (p *TrailingStop) Open(entryPrice float64, entryTsMs int64) {
	p.entryPrice = entryPrice
	p.entryTsMs = entryTsMs
	p.activationPrice = entryPrice * (1 + p.ActivationPct)
	if p.HardStopPct != nil {
		p.hardStopPrice = entryPrice * (1 - *p.HardStopPct)
	}
}

// Step evaluates one bar in the documented check order.
func (p *TrailingStop) Step(c domain.Candle) []Fill {
	if p.exited {
		return nil
	}
	for _, chk := range trailingStopChecks {
		if f := chk.eval(p, c); f != nil {
			p.exited = true
			return []Fill{*f}
		}
	}
	return nil
}

// Close force-closes at the last bar's close when data ends.
func (p *TrailingStop) Close(last domain.Candle) Fill {
	return Fill{
		TimestampMs: last.TimestampMs(),
		Price:       last.Close,
		Reason:      domain.ExitReasonEndOfData,
		Level:       -1,
		Final:       true,
	}
}

// checkHardStop fires from either state, before activation/trailing logic.
func (p *TrailingStop) checkHardStop(c domain.Candle) *Fill {
	if p.HardStopPct == nil {
		return nil
	}
	if c.Low <= p.hardStopPrice {
		return &Fill{
			TimestampMs: c.TimestampMs(),
			Price:       p.hardStopPrice,
			Reason:      domain.ExitReasonHardStop,
			Level:       -1,
			Final:       true,
		}
	}
	return nil
}

// checkTrail handles the activation transition and the trailing exit.
// Per-bar order is: activate if the high reaches the activation level,
// then raise the peak, then recompute the trail threshold, then test the
// low. A bar can therefore activate, set the peak, and exit on the new
// threshold all at once.
func (p *TrailingStop) checkTrail(c domain.Candle) *Fill {
	if !p.activated {
		if c.High < p.activationPrice {
			return nil
		}
		p.activated = true
		p.trailPeak = c.High
	}

	if c.High > p.trailPeak {
		p.trailPeak = c.High
	}
	trailStopPrice := p.trailPeak * (1 - p.TrailPct)

	if c.Low <= trailStopPrice {
		return &Fill{
			TimestampMs: c.TimestampMs(),
			Price:       trailStopPrice,
			Reason:      domain.ExitReasonTrailingStop,
			Level:       -1,
			Final:       true,
		}
	}
	return nil
}

// Ensure TrailingStop implements Policy.
var _ Policy = (*TrailingStop)(nil)
