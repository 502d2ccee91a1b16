package clickhouse

import (
	"context"
	"fmt"
	"time"

	"exit-policy-lab/internal/domain"
	"exit-policy-lab/internal/observability"
	"exit-policy-lab/internal/storage"
)

// CandleStore implements storage.CandleStore using ClickHouse.
// The as-of filter is pushed into the query so a caller declaring an as-of
// time never even receives a bar that closes after it.
type CandleStore struct {
	conn    *Conn
	metrics *observability.Metrics
}

// NewCandleStore creates a new CandleStore.
func NewCandleStore(conn *Conn) *CandleStore {
	return &CandleStore{conn: conn}
}

// WithMetrics attaches query instrumentation and returns the store.
func (s *CandleStore) WithMetrics(m *observability.Metrics) *CandleStore {
	s.metrics = m
	return s
}

// Compile-time interface check.
var _ storage.CandleStore = (*CandleStore)(nil)

// InsertBulk adds multiple candles. Fails entire batch on duplicate
// (instrument_id, timestamp, interval_seconds).
func (s *CandleStore) InsertBulk(ctx context.Context, candles []domain.Candle) (err error) {
	if len(candles) == 0 {
		return nil
	}

	start := time.Now()
	defer func() { s.metrics.RecordDBQuery("clickhouse", "candles_insert_bulk", start, err) }()

	// Check for intra-batch duplicates
	type key struct {
		instrumentID    string
		timestamp       int64
		intervalSeconds int64
	}
	seen := make(map[key]struct{}, len(candles))
	for _, c := range candles {
		k := key{c.InstrumentID, c.Timestamp, c.IntervalSeconds}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	// Check for duplicates against existing rows
	for _, c := range candles {
		exists, err := s.exists(ctx, c.InstrumentID, c.Timestamp, c.IntervalSeconds)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO candles (
			instrument_id, timestamp, open, high, low, close, volume, interval_seconds
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, c := range candles {
		if err := batch.Append(
			c.InstrumentID, c.Timestamp, c.Open, c.High, c.Low, c.Close, c.Volume, c.IntervalSeconds,
		); err != nil {
			return fmt.Errorf("append candle: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetSeries retrieves all candles for an instrument at an interval, ordered
// by timestamp ASC.
func (s *CandleStore) GetSeries(ctx context.Context, instrumentID string, intervalSeconds int64) (series []domain.Candle, err error) {
	start := time.Now()
	defer func() { s.metrics.RecordDBQuery("clickhouse", "candles_get_series", start, err) }()

	query := `
		SELECT instrument_id, timestamp, open, high, low, close, volume, interval_seconds
		FROM candles
		WHERE instrument_id = ? AND interval_seconds = ?
		ORDER BY timestamp ASC
	`

	rows, err := s.conn.Query(ctx, query, instrumentID, intervalSeconds)
	if err != nil {
		return nil, fmt.Errorf("query candles: %w", err)
	}
	defer rows.Close()

	var out []domain.Candle
	for rows.Next() {
		var c domain.Candle
		if err := rows.Scan(
			&c.InstrumentID, &c.Timestamp, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume, &c.IntervalSeconds,
		); err != nil {
			return nil, fmt.Errorf("scan candle: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candles: %w", err)
	}
	return out, nil
}

// GetSeriesAsOf retrieves candles whose close time does not exceed asOfMs,
// ordered by timestamp ASC.
func (s *CandleStore) GetSeriesAsOf(ctx context.Context, instrumentID string, intervalSeconds, asOfMs int64) (series []domain.Candle, err error) {
	start := time.Now()
	defer func() { s.metrics.RecordDBQuery("clickhouse", "candles_get_series_as_of", start, err) }()

	query := `
		SELECT instrument_id, timestamp, open, high, low, close, volume, interval_seconds
		FROM candles
		WHERE instrument_id = ? AND interval_seconds = ?
		  AND (timestamp + interval_seconds) * 1000 <= ?
		ORDER BY timestamp ASC
	`

	rows, err := s.conn.Query(ctx, query, instrumentID, intervalSeconds, asOfMs)
	if err != nil {
		return nil, fmt.Errorf("query candles as-of: %w", err)
	}
	defer rows.Close()

	var out []domain.Candle
	for rows.Next() {
		var c domain.Candle
		if err := rows.Scan(
			&c.InstrumentID, &c.Timestamp, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume, &c.IntervalSeconds,
		); err != nil {
			return nil, fmt.Errorf("scan candle: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candles: %w", err)
	}
	return out, nil
}

// exists checks whether a bar is already stored.
func (s *CandleStore) exists(ctx context.Context, instrumentID string, timestamp, intervalSeconds int64) (bool, error) {
	query := `
		SELECT count() FROM candles
		WHERE instrument_id = ? AND timestamp = ? AND interval_seconds = ?
	`

	var count uint64
	if err := s.conn.QueryRow(ctx, query, instrumentID, timestamp, intervalSeconds).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}
