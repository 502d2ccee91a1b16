package lookup

import (
	"errors"

	"exit-policy-lab/internal/domain"
)

// Errors returned by lookup functions.
var (
	ErrNoCandleData = errors.New("no candle data available")
	ErrUnordered    = errors.New("candles are not ordered ascending by timestamp")
)

// CausalPrefix returns the prefix of candles whose close time does not
// exceed asOfMs. Candles must be ordered ascending by timestamp. This is
// the no-look-ahead boundary: nothing past the prefix may influence a
// decision made at or before asOfMs.
func CausalPrefix(candles []domain.Candle, asOfMs int64) []domain.Candle {
	for i, c := range candles {
		if c.CloseTimeMs() > asOfMs {
			return candles[:i]
		}
	}
	return candles
}

// FirstAtOrAfter returns the index of the first candle whose period start
// is at or after targetMs, or -1 when every candle starts before it.
func FirstAtOrAfter(candles []domain.Candle, targetMs int64) int {
	for i, c := range candles {
		if c.TimestampMs() >= targetMs {
			return i
		}
	}
	return -1
}

// DedupeFirst drops candles that repeat an already-seen timestamp, keeping
// the first-encountered bar. Duplicate timestamps are a data-quality defect
// that upstream deduplication is expected to prevent; this fallback only
// makes the engine's behavior on defective input deterministic.
// The input slice is never modified.
func DedupeFirst(candles []domain.Candle) []domain.Candle {
	if len(candles) < 2 {
		return candles
	}

	clean := true
	for i := 1; i < len(candles); i++ {
		if candles[i].Timestamp == candles[i-1].Timestamp {
			clean = false
			break
		}
	}
	if clean {
		return candles
	}

	out := make([]domain.Candle, 0, len(candles))
	out = append(out, candles[0])
	for i := 1; i < len(candles); i++ {
		if candles[i].Timestamp == candles[i-1].Timestamp {
			continue
		}
		out = append(out, candles[i])
	}
	return out
}

// CheckOrdered verifies ascending timestamp order. Returns ErrUnordered on
// the first violation, ErrNoCandleData on an empty slice. Duplicates do not
// violate ordering; they are handled by DedupeFirst.
func CheckOrdered(candles []domain.Candle) error {
	if len(candles) == 0 {
		return ErrNoCandleData
	}
	for i := 1; i < len(candles); i++ {
		if candles[i].Timestamp < candles[i-1].Timestamp {
			return ErrUnordered
		}
	}
	return nil
}

// CloseAt returns the close of the last candle whose period start is at or
// before targetMs. If every candle starts after targetMs, the first close
// is returned. Returns ErrNoCandleData on an empty slice.
func CloseAt(targetMs int64, candles []domain.Candle) (float64, error) {
	if len(candles) == 0 {
		return 0, ErrNoCandleData
	}

	for i := len(candles) - 1; i >= 0; i-- {
		if candles[i].TimestampMs() <= targetMs {
			return candles[i].Close, nil
		}
	}

	return candles[0].Close, nil
}
