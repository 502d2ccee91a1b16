package memory

import (
	"context"
	"sort"
	"sync"

	"exit-policy-lab/internal/domain"
	"exit-policy-lab/internal/storage"
)

// candleKey uniquely identifies a bar.
type candleKey struct {
	instrumentID    string
	timestamp       int64
	intervalSeconds int64
}

// CandleStore is an in-memory implementation of storage.CandleStore.
type CandleStore struct {
	mu   sync.RWMutex
	data map[candleKey]domain.Candle
}

// NewCandleStore creates a new in-memory candle store.
func NewCandleStore() *CandleStore {
	return &CandleStore{
		data: make(map[candleKey]domain.Candle),
	}
}

// Compile-time interface check.
var _ storage.CandleStore = (*CandleStore)(nil)

// InsertBulk adds multiple candles. Fails entire batch on duplicate
// (instrument_id, timestamp, interval_seconds).
func (s *CandleStore) InsertBulk(_ context.Context, candles []domain.Candle) error {
	if len(candles) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Track keys in this batch to detect intra-batch duplicates
	batchKeys := make(map[candleKey]struct{}, len(candles))
	for _, c := range candles {
		if c.InstrumentID == "" || c.IntervalSeconds <= 0 {
			return storage.ErrInvalidInput
		}
		k := candleKey{c.InstrumentID, c.Timestamp, c.IntervalSeconds}
		if _, exists := s.data[k]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[k]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[k] = struct{}{}
	}

	for _, c := range candles {
		k := candleKey{c.InstrumentID, c.Timestamp, c.IntervalSeconds}
		s.data[k] = c
	}
	return nil
}

// GetSeries retrieves all candles for an instrument at an interval, ordered
// by timestamp ASC.
func (s *CandleStore) GetSeries(_ context.Context, instrumentID string, intervalSeconds int64) ([]domain.Candle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Candle
	for k, c := range s.data {
		if k.instrumentID == instrumentID && k.intervalSeconds == intervalSeconds {
			out = append(out, c)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out, nil
}

// GetSeriesAsOf retrieves candles whose close time does not exceed asOfMs,
// ordered by timestamp ASC.
func (s *CandleStore) GetSeriesAsOf(ctx context.Context, instrumentID string, intervalSeconds, asOfMs int64) ([]domain.Candle, error) {
	all, err := s.GetSeries(ctx, instrumentID, intervalSeconds)
	if err != nil {
		return nil, err
	}

	var out []domain.Candle
	for _, c := range all {
		if c.CloseTimeMs() <= asOfMs {
			out = append(out, c)
		}
	}
	return out, nil
}
