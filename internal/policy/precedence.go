package policy

import (
	"exit-policy-lab/internal/domain"
)

// Precedence between exit conditions that trigger on the same bar is data,
// not source read-order: each policy kind walks its check list top to bottom
// and the first check producing a fill wins the bar. Tests enumerate these
// lists; changing an order here is a semantic change.

// fixedStopCheck is one ordered condition of the Fixed Stop policy.
type fixedStopCheck struct {
	name string
	eval func(p *FixedStop, c domain.Candle) *Fill
}

// fixedStopChecks: stop-loss is checked before take-profit on every bar,
// even though both are always armed.
var fixedStopChecks = []fixedStopCheck{
	{domain.ExitReasonStopLoss, (*FixedStop).checkStopLoss},
	{domain.ExitReasonTakeProfit, (*FixedStop).checkTakeProfit},
}

// timeStopCheck is one ordered condition of the Time Stop policy.
type timeStopCheck struct {
	name string
	eval func(p *TimeStop, c domain.Candle) *Fill
}

// timeStopChecks: take-profit wins over the time-based exit. This is the
// reverse of the Fixed Stop order and is intentional.
var timeStopChecks = []timeStopCheck{
	{domain.ExitReasonTakeProfit, (*TimeStop).checkTakeProfit},
	{domain.ExitReasonTimeStop, (*TimeStop).checkTime},
}

// trailingStopCheck is one ordered condition of the Trailing Stop policy.
type trailingStopCheck struct {
	name string
	eval func(p *TrailingStop, c domain.Candle) *Fill
}

// trailingStopChecks: the hard stop fires from any state and is checked
// before activation and trailing logic.
var trailingStopChecks = []trailingStopCheck{
	{domain.ExitReasonHardStop, (*TrailingStop).checkHardStop},
	{domain.ExitReasonTrailingStop, (*TrailingStop).checkTrail},
}

// ladderCheck is one ordered condition of the Ladder policy.
type ladderCheck struct {
	name string
	eval func(p *Ladder, c domain.Candle) []Fill
}

// ladderChecks: level fills are evaluated before the stop-loss on the same
// bar, so a bar that tags a level and then the stop records both fills.
var ladderChecks = []ladderCheck{
	{"ladder_level", (*Ladder).checkLevels},
	{domain.ExitReasonStopLoss, (*Ladder).checkStop},
}

// PrecedenceOrder returns the documented check order for a policy kind.
// Combo has no checks of its own: it delegates to sub-policies in list order.
func PrecedenceOrder(kind string) []string {
	switch kind {
	case domain.PolicyKindFixedStop:
		return checkNames(fixedStopChecks, func(c fixedStopCheck) string { return c.name })
	case domain.PolicyKindTimeStop:
		return checkNames(timeStopChecks, func(c timeStopCheck) string { return c.name })
	case domain.PolicyKindTrailingStop:
		return checkNames(trailingStopChecks, func(c trailingStopCheck) string { return c.name })
	case domain.PolicyKindLadder:
		return checkNames(ladderChecks, func(c ladderCheck) string { return c.name })
	default:
		return nil
	}
}

func checkNames[T any](checks []T, name func(T) string) []string {
	out := make([]string, len(checks))
	for i, c := range checks {
		out[i] = name(c)
	}
	return out
}
