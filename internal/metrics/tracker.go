package metrics

import (
	"exit-policy-lab/internal/domain"
)

// Tracker accumulates excursion metrics incrementally alongside every
// policy, one bar at a time from the entry bar onward. It is independent of
// which policy is active and owns no shared state: one Tracker per
// simulation run.
type Tracker struct {
	entryPrice float64
	peakHigh   float64 // monotonic non-decreasing from entry price
	maeBps     float64 // monotonic non-increasing, always <= 0
}

// NewTracker creates a tracker anchored at the entry price.
func NewTracker(entryPrice float64) *Tracker {
	return &Tracker{
		entryPrice: entryPrice,
		peakHigh:   entryPrice,
	}
}

// Observe folds one bar into the peak and MAE accumulators.
func (t *Tracker) Observe(c domain.Candle) {
	if c.High > t.peakHigh {
		t.peakHigh = c.High
	}
	lowBps := (c.Low/t.entryPrice - 1) * 10000
	if lowBps < t.maeBps {
		t.maeBps = lowBps
	}
}

// PeakHigh returns the highest price seen since entry.
func (t *Tracker) PeakHigh() float64 {
	return t.peakHigh
}

// PeakReturnBps returns the best unrealized gain versus entry in bps.
func (t *Tracker) PeakReturnBps() float64 {
	return (t.peakHigh/t.entryPrice - 1) * 10000
}

// MaxAdverseExcursionBps returns the worst drawdown versus entry in bps.
// Zero when price never dipped below entry.
func (t *Tracker) MaxAdverseExcursionBps() float64 {
	return t.maeBps
}

// TailCapture returns realized/peak return clamped to [0, 1], or nil when
// no gain occurred (peak return <= 0) and capture is meaningless. A trade
// that gave back its whole peak and more scores 0, not a negative value.
func TailCapture(realizedBps, peakBps float64) *float64 {
	if peakBps <= 0 {
		return nil
	}
	capture := realizedBps / peakBps
	if capture > 1.0 {
		capture = 1.0
	}
	if capture < 0 {
		capture = 0
	}
	return &capture
}
