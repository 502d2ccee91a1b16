package engine

import (
	"math"

	"exit-policy-lab/internal/domain"
	"exit-policy-lab/internal/lookup"
)

// EntryResolution is the outcome of mapping an alert onto the candle
// sequence. When OK is false the simulation yields a no-entry result.
type EntryResolution struct {
	Index       int     // index of the entry bar
	Price       float64 // entry bar close
	TimestampMs int64   // entry bar period start (ms)
	OK          bool
}

// ResolveEntry finds the entry bar for an alert: the first candle whose
// period start is at or after the alert timestamp. An alert before the
// first candle enters at the first candle. Fails closed (OK=false, never an
// error) when the sequence is empty, the alert lands after all data, or the
// resolved entry price is not a finite positive number. Pure function of
// its inputs.
func ResolveEntry(alertTsMs int64, candles []domain.Candle) EntryResolution {
	idx := lookup.FirstAtOrAfter(candles, alertTsMs)
	if idx < 0 {
		return EntryResolution{}
	}

	entry := candles[idx]
	if entry.Close <= 0 || math.IsNaN(entry.Close) || math.IsInf(entry.Close, 0) {
		return EntryResolution{}
	}

	return EntryResolution{
		Index:       idx,
		Price:       entry.Close,
		TimestampMs: entry.TimestampMs(),
		OK:          true,
	}
}
