package policy

import (
	"fmt"
	"strings"

	"exit-policy-lab/internal/domain"
)

// remainingEpsilon treats a residual fraction at or below this as fully
// closed (floating-point dust from fraction arithmetic).
const remainingEpsilon = 1e-9

// Ladder sells fixed fractions of the original position as price reaches
// ascending multiples of entry. Each level fires once, and at most one level
// fires per bar: a bar that gaps past several levels fills only the first
// untested one; the rest become eligible on later bars. An optional
// stop-loss closes the remaining fraction and is checked after the level
// checks on the same bar.
type Ladder struct {
	Levels  []domain.LadderLevel
	StopPct *float64

	entryPrice float64
	entryTsMs  int64
	stopPrice  float64 // 0 when stop is not configured
	triggered  []bool  // single-fire tracking per level
	remaining  float64 // fraction of the original position still open
	exited     bool
}

// NewLadder creates a Ladder policy. stopPct may be nil. Levels must already
// be validated (ascending multiples, fractions summing to at most 1).
func NewLadder(levels []domain.LadderLevel, stopPct *float64) *Ladder {
	return &Ladder{
		Levels:  levels,
		StopPct: stopPct,
	}
}

// ID returns the policy identifier including parameters.
func (p *Ladder) ID() string {
	parts := make([]string, len(p.Levels))
	for i, lvl := range p.Levels {
		parts[i] = fmt.Sprintf("x%g-%g", lvl.Multiple, lvl.Fraction)
	}
	id := "LADDER_" + strings.Join(parts, "_")
	if p.StopPct != nil {
		id += fmt.Sprintf("_stop%g", *p.StopPct)
	}
	return id
}

// Kind returns the canonical policy kind.
func (p *Ladder) Kind() string {
	return domain.PolicyKindLadder
}

// Open binds the policy to the resolved entry and resets fire tracking.
func (p *Ladder) Open(entryPrice float64, entryTsMs int64) {
	p.entryPrice = entryPrice
	p.entryTsMs = entryTsMs
	p.triggered = make([]bool, len(p.Levels))
	p.remaining = 1.0
	if p.StopPct != nil {
		p.stopPrice = entryPrice * (1 - *p.StopPct)
	}
}

// Step evaluates one bar: level checks first, then the stop-loss on the
// remaining fraction. Both can fill on the same bar, level first.
func (p *Ladder) Step(c domain.Candle) []Fill {
	if p.exited {
		return nil
	}
	var fills []Fill
	for _, chk := range ladderChecks {
		fills = append(fills, chk.eval(p, c)...)
		if p.exited {
			break
		}
	}
	return fills
}

// Close force-closes the residual fraction when data ends. The reason is
// end_of_data while levels remain untriggered, ladder_complete when every
// level fired but rounding left a residual.
func (p *Ladder) Close(last domain.Candle) Fill {
	return Fill{
		TimestampMs: last.TimestampMs(),
		Price:       last.Close,
		Reason:      p.closeReason(),
		Level:       -1,
		Final:       true,
	}
}

func (p *Ladder) closeReason() string {
	for _, fired := range p.triggered {
		if !fired {
			return domain.ExitReasonEndOfData
		}
	}
	return domain.ExitReasonLadderComplete
}

// checkLevels fires the first untested level reached by the bar's high.
// Fills at the level's target price, not the bar high. When the fill brings
// the remaining fraction to zero the ladder is complete and a final fill at
// the same price closes the trade.
func (p *Ladder) checkLevels(c domain.Candle) []Fill {
	for i, lvl := range p.Levels {
		if p.triggered[i] {
			continue
		}
		target := p.entryPrice * lvl.Multiple
		if c.High < target {
			// Levels are ascending: nothing above this one can fire either.
			return nil
		}

		p.triggered[i] = true
		p.remaining -= lvl.Fraction

		fills := []Fill{{
			TimestampMs: c.TimestampMs(),
			Price:       target,
			Fraction:    lvl.Fraction,
			Reason:      domain.ExitReasonTakeProfit,
			Level:       i,
		}}

		if p.remaining <= remainingEpsilon {
			p.exited = true
			fills = append(fills, Fill{
				TimestampMs: c.TimestampMs(),
				Price:       target,
				Reason:      domain.ExitReasonLadderComplete,
				Level:       -1,
				Final:       true,
			})
		}

		// One level per bar: the next untested level waits for a later bar.
		return fills
	}
	return nil
}

// checkStop closes the remaining fraction at the stop price.
func (p *Ladder) checkStop(c domain.Candle) []Fill {
	if p.StopPct == nil || p.remaining <= remainingEpsilon {
		return nil
	}
	if c.Low <= p.stopPrice {
		p.exited = true
		return []Fill{{
			TimestampMs: c.TimestampMs(),
			Price:       p.stopPrice,
			Reason:      domain.ExitReasonStopLoss,
			Level:       -1,
			Final:       true,
		}}
	}
	return nil
}

// Ensure Ladder implements Policy.
var _ Policy = (*Ladder)(nil)
