package policy

import (
	"strings"

	"exit-policy-lab/internal/domain"
)

// Combo coordinates independent sub-policies against the same candle
// stream. It is not a state machine of its own: on each bar sub-policies
// are evaluated in list order and the first one whose own precedence rules
// produce a fill wins the bar for the whole combo. Sub-policy order is
// caller-supplied configuration and is semantically load-bearing; swapping
// it can change the outcome when two sub-policies would fire on one bar.
//
// Evaluation short-circuits at the winner: sub-policies after it do not
// observe that bar. This keeps every sub-policy's internal state consistent
// with the fills actually applied.
type Combo struct {
	subs   []Policy
	exited bool
}

// NewCombo creates a Combo over ordered sub-policies.
func NewCombo(subs []Policy) *Combo {
	return &Combo{subs: subs}
}

// ID returns the combo identifier built from the sub-policy IDs in order.
func (p *Combo) ID() string {
	ids := make([]string, len(p.subs))
	for i, s := range p.subs {
		ids[i] = s.ID()
	}
	return "COMBO[" + strings.Join(ids, "+") + "]"
}

// Kind returns the canonical policy kind.
func (p *Combo) Kind() string {
	return domain.PolicyKindCombo
}

// Open binds every sub-policy to the same resolved entry.
func (p *Combo) Open(entryPrice float64, entryTsMs int64) {
	for _, s := range p.subs {
		s.Open(entryPrice, entryTsMs)
	}
}

// Step evaluates sub-policies in list order; the first producing fills wins
// the bar. Fills are tagged with the winning sub-policy's ID.
func (p *Combo) Step(c domain.Candle) []Fill {
	if p.exited {
		return nil
	}
	for _, s := range p.subs {
		fills := s.Step(c)
		if len(fills) == 0 {
			continue
		}
		for i := range fills {
			fills[i].SubPolicy = s.ID()
			if fills[i].Final {
				p.exited = true
			}
		}
		return fills
	}
	return nil
}

// Close force-closes at the last bar's close when data ends.
func (p *Combo) Close(last domain.Candle) Fill {
	return Fill{
		TimestampMs: last.TimestampMs(),
		Price:       last.Close,
		Reason:      domain.ExitReasonEndOfData,
		Level:       -1,
		Final:       true,
	}
}

// Ensure Combo implements Policy.
var _ Policy = (*Combo)(nil)
