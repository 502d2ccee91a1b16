package postgres

import (
	"context"
	"fmt"
	"time"

	"exit-policy-lab/internal/domain"
	"exit-policy-lab/internal/observability"
	"exit-policy-lab/internal/storage"
)

// CallStore implements storage.CallStore using PostgreSQL.
type CallStore struct {
	pool    *Pool
	metrics *observability.Metrics
}

// NewCallStore creates a new CallStore.
func NewCallStore(pool *Pool) *CallStore {
	return &CallStore{pool: pool}
}

// WithMetrics attaches query instrumentation and returns the store.
func (s *CallStore) WithMetrics(m *observability.Metrics) *CallStore {
	s.metrics = m
	return s
}

// Compile-time interface check.
var _ storage.CallStore = (*CallStore)(nil)

// Insert adds a new call. Returns ErrDuplicateKey if call_id exists.
func (s *CallStore) Insert(ctx context.Context, c *domain.Call) (err error) {
	start := time.Now()
	defer func() { s.metrics.RecordDBQuery("postgres", "calls_insert", start, err) }()

	query := `
		INSERT INTO calls (
			call_id, instrument_id, alert_timestamp_ms, source, created_at_ms
		) VALUES (
			$1, $2, $3, $4, $5
		)
	`

	_, err = s.pool.Exec(ctx, query,
		c.CallID, c.InstrumentID, c.AlertTimestampMs, c.Source, c.CreatedAtMs,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert call: %w", err)
	}
	return nil
}

// GetByID retrieves a call by its ID. Returns ErrNotFound if not exists.
func (s *CallStore) GetByID(ctx context.Context, callID string) (call *domain.Call, err error) {
	start := time.Now()
	defer func() { s.metrics.RecordDBQuery("postgres", "calls_get_by_id", start, err) }()

	query := `
		SELECT call_id, instrument_id, alert_timestamp_ms, source, created_at_ms
		FROM calls
		WHERE call_id = $1
	`

	var c domain.Call
	err = s.pool.QueryRow(ctx, query, callID).Scan(
		&c.CallID, &c.InstrumentID, &c.AlertTimestampMs, &c.Source, &c.CreatedAtMs,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get call by id: %w", err)
	}
	return &c, nil
}

// GetByInstrument retrieves all calls for an instrument, ordered by alert time ASC.
func (s *CallStore) GetByInstrument(ctx context.Context, instrumentID string) (calls []*domain.Call, err error) {
	start := time.Now()
	defer func() { s.metrics.RecordDBQuery("postgres", "calls_get_by_instrument", start, err) }()

	query := `
		SELECT call_id, instrument_id, alert_timestamp_ms, source, created_at_ms
		FROM calls
		WHERE instrument_id = $1
		ORDER BY alert_timestamp_ms ASC, call_id ASC
	`

	rows, err := s.pool.Query(ctx, query, instrumentID)
	if err != nil {
		return nil, fmt.Errorf("get calls by instrument: %w", err)
	}
	defer rows.Close()

	return scanCalls(rows)
}

// GetByTimeRange retrieves calls with alert time within [start, end] (inclusive, ms).
func (s *CallStore) GetByTimeRange(ctx context.Context, startMs, endMs int64) (calls []*domain.Call, err error) {
	start := time.Now()
	defer func() { s.metrics.RecordDBQuery("postgres", "calls_get_by_time_range", start, err) }()

	query := `
		SELECT call_id, instrument_id, alert_timestamp_ms, source, created_at_ms
		FROM calls
		WHERE alert_timestamp_ms >= $1 AND alert_timestamp_ms <= $2
		ORDER BY alert_timestamp_ms ASC, call_id ASC
	`

	rows, err := s.pool.Query(ctx, query, startMs, endMs)
	if err != nil {
		return nil, fmt.Errorf("get calls by time range: %w", err)
	}
	defer rows.Close()

	return scanCalls(rows)
}

type pgxRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanCalls(rows pgxRows) ([]*domain.Call, error) {
	var out []*domain.Call
	for rows.Next() {
		var c domain.Call
		if err := rows.Scan(&c.CallID, &c.InstrumentID, &c.AlertTimestampMs, &c.Source, &c.CreatedAtMs); err != nil {
			return nil, fmt.Errorf("scan call: %w", err)
		}
		out = append(out, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate calls: %w", err)
	}
	return out, nil
}
