package domain

import "math"

// Candle is one immutable OHLCV bar. Timestamp is the period start in Unix
// seconds; the bar covers [Timestamp, Timestamp+IntervalSeconds).
type Candle struct {
	InstrumentID    string  `json:"instrument_id"`
	Timestamp       int64   `json:"timestamp"` // period start, Unix seconds
	Open            float64 `json:"open"`
	High            float64 `json:"high"`
	Low             float64 `json:"low"`
	Close           float64 `json:"close"`
	Volume          float64 `json:"volume"`
	IntervalSeconds int64   `json:"interval_seconds"`
}

// CloseTime returns the period end in Unix seconds.
func (c Candle) CloseTime() int64 {
	return c.Timestamp + c.IntervalSeconds
}

// TimestampMs returns the period start in milliseconds.
func (c Candle) TimestampMs() int64 {
	return c.Timestamp * 1000
}

// CloseTimeMs returns the period end in milliseconds.
func (c Candle) CloseTimeMs() int64 {
	return c.CloseTime() * 1000
}

// Valid reports whether all price fields are finite positive numbers and
// the high/low bounds are consistent.
func (c Candle) Valid() bool {
	for _, v := range []float64{c.Open, c.High, c.Low, c.Close} {
		if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return c.High >= c.Low && c.IntervalSeconds > 0
}
