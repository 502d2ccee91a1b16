// Package policy implements the per-kind exit state machines. Each policy
// consumes candles one at a time from the entry bar forward and emits fill
// decisions; the precedence between simultaneously triggered conditions is
// captured as ordered check lists in precedence.go, not as implicit control
// flow.
package policy

import (
	"exit-policy-lab/internal/domain"
)

// Fill is one exit decision emitted by a policy for a single bar.
// Final fills close whatever fraction of the position remains; the engine
// supplies the remaining fraction, so Final fills leave Fraction at 0.
// Partial fills (ladder levels) carry the fraction of the original position
// being sold and the level index that fired.
type Fill struct {
	TimestampMs int64
	Price       float64
	Fraction    float64 // of the original position; 0 on final fills
	Reason      string
	Level       int    // ladder level index; -1 otherwise
	Final       bool   // closes the remaining position
	SubPolicy   string // set by Combo to the sub-policy that fired
}

// Policy is a deterministic exit state machine for one simulation run.
// A Policy instance is single-use: Open binds it to an entry, Step advances
// it one bar at a time, Close force-closes at end of data. Instances are
// never shared between simulations.
type Policy interface {
	// ID returns the policy identifier including parameters.
	ID() string

	// Kind returns the canonical policy kind constant.
	Kind() string

	// Open binds the policy to the resolved entry.
	Open(entryPrice float64, entryTsMs int64)

	// Step evaluates one bar. Returned fills are in fire order; a Final
	// fill, when present, is always last. Nil means no trigger this bar.
	Step(c domain.Candle) []Fill

	// Close produces the forced exit when data ends with an open position.
	Close(last domain.Candle) Fill
}
