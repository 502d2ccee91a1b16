package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"exit-policy-lab/internal/domain"
	"exit-policy-lab/internal/observability"
	"exit-policy-lab/internal/storage"
)

// TradeResultStore implements storage.TradeResultStore using PostgreSQL.
// Partial exits are stored as a JSONB column: they are an ordered list read
// back whole, never queried by field.
type TradeResultStore struct {
	pool    *Pool
	metrics *observability.Metrics
}

// NewTradeResultStore creates a new TradeResultStore.
func NewTradeResultStore(pool *Pool) *TradeResultStore {
	return &TradeResultStore{pool: pool}
}

// WithMetrics attaches query instrumentation and returns the store.
func (s *TradeResultStore) WithMetrics(m *observability.Metrics) *TradeResultStore {
	s.metrics = m
	return s
}

// Compile-time interface check.
var _ storage.TradeResultStore = (*TradeResultStore)(nil)

const tradeResultInsert = `
	INSERT INTO trade_results (
		trade_id, call_id, policy_id, cost_id,
		entry_timestamp_ms, entry_price,
		exit_timestamp_ms, exit_price, exit_reason, exit_sub_policy,
		gross_return_bps, realized_return_bps, stop_out,
		max_adverse_excursion_bps, peak_return_bps, tail_capture,
		time_exposed_ms, partial_exits
	) VALUES (
		$1, $2, $3, $4,
		$5, $6,
		$7, $8, $9, $10,
		$11, $12, $13,
		$14, $15, $16,
		$17, $18
	)
`

const tradeResultSelect = `
	SELECT trade_id, call_id, policy_id, cost_id,
		entry_timestamp_ms, entry_price,
		exit_timestamp_ms, exit_price, exit_reason, exit_sub_policy,
		gross_return_bps, realized_return_bps, stop_out,
		max_adverse_excursion_bps, peak_return_bps, tail_capture,
		time_exposed_ms, partial_exits
	FROM trade_results
`

// Insert adds a new trade result. Returns ErrDuplicateKey if trade_id exists.
func (s *TradeResultStore) Insert(ctx context.Context, t *domain.TradeResult) (err error) {
	start := time.Now()
	defer func() { s.metrics.RecordDBQuery("postgres", "trade_results_insert", start, err) }()

	args, err := insertArgs(t)
	if err != nil {
		return err
	}

	if _, err := s.pool.Exec(ctx, tradeResultInsert, args...); err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert trade result: %w", err)
	}
	return nil
}

// InsertBulk adds multiple results atomically. Fails entire batch on any duplicate.
func (s *TradeResultStore) InsertBulk(ctx context.Context, results []*domain.TradeResult) (err error) {
	if len(results) == 0 {
		return nil
	}

	start := time.Now()
	defer func() { s.metrics.RecordDBQuery("postgres", "trade_results_insert_bulk", start, err) }()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, t := range results {
		args, err := insertArgs(t)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, tradeResultInsert, args...); err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert trade result: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByID retrieves a result by trade_id. Returns ErrNotFound if not exists.
func (s *TradeResultStore) GetByID(ctx context.Context, tradeID string) (result *domain.TradeResult, err error) {
	start := time.Now()
	defer func() { s.metrics.RecordDBQuery("postgres", "trade_results_get_by_id", start, err) }()

	row := s.pool.QueryRow(ctx, tradeResultSelect+` WHERE trade_id = $1`, tradeID)

	t, err := scanTradeResult(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get trade result by id: %w", err)
	}
	return t, nil
}

// GetByPolicyCost retrieves all results for a (policy_id, cost_id) pair,
// ordered by entry timestamp ASC, trade_id ASC.
func (s *TradeResultStore) GetByPolicyCost(ctx context.Context, policyID, costID string) (results []*domain.TradeResult, err error) {
	start := time.Now()
	defer func() { s.metrics.RecordDBQuery("postgres", "trade_results_get_by_policy_cost", start, err) }()

	rows, err := s.pool.Query(ctx,
		tradeResultSelect+` WHERE policy_id = $1 AND cost_id = $2 ORDER BY entry_timestamp_ms ASC, trade_id ASC`,
		policyID, costID,
	)
	if err != nil {
		return nil, fmt.Errorf("get trade results by policy/cost: %w", err)
	}
	defer rows.Close()

	return scanTradeResults(rows)
}

// GetByCallID retrieves all results for a call, ordered by policy_id ASC.
func (s *TradeResultStore) GetByCallID(ctx context.Context, callID string) (results []*domain.TradeResult, err error) {
	start := time.Now()
	defer func() { s.metrics.RecordDBQuery("postgres", "trade_results_get_by_call", start, err) }()

	rows, err := s.pool.Query(ctx,
		tradeResultSelect+` WHERE call_id = $1 ORDER BY policy_id ASC, trade_id ASC`,
		callID,
	)
	if err != nil {
		return nil, fmt.Errorf("get trade results by call: %w", err)
	}
	defer rows.Close()

	return scanTradeResults(rows)
}

// ListAll retrieves every stored result, ordered by entry timestamp ASC,
// trade_id ASC.
func (s *TradeResultStore) ListAll(ctx context.Context) (results []*domain.TradeResult, err error) {
	start := time.Now()
	defer func() { s.metrics.RecordDBQuery("postgres", "trade_results_list_all", start, err) }()

	rows, err := s.pool.Query(ctx, tradeResultSelect+` ORDER BY entry_timestamp_ms ASC, trade_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list trade results: %w", err)
	}
	defer rows.Close()

	return scanTradeResults(rows)
}

func insertArgs(t *domain.TradeResult) ([]any, error) {
	if t == nil || t.TradeID == "" {
		return nil, storage.ErrInvalidInput
	}

	var partials []byte
	if t.PartialExits != nil {
		var err error
		partials, err = json.Marshal(t.PartialExits)
		if err != nil {
			return nil, fmt.Errorf("marshal partial exits: %w", err)
		}
	}

	return []any{
		t.TradeID, t.CallID, t.PolicyID, t.CostID,
		t.EntryTimestampMs, t.EntryPrice,
		t.ExitTimestampMs, t.ExitPrice, t.ExitReason, t.ExitSubPolicy,
		t.GrossReturnBps, t.RealizedReturnBps, t.StopOut,
		t.MaxAdverseExcursionBps, t.PeakReturnBps, t.TailCapture,
		t.TimeExposedMs, partials,
	}, nil
}

// row is the subset of pgx.Row/pgx.Rows used by the scanners.
type row interface {
	Scan(dest ...any) error
}

func scanTradeResult(r row) (*domain.TradeResult, error) {
	var t domain.TradeResult
	var partials []byte

	err := r.Scan(
		&t.TradeID, &t.CallID, &t.PolicyID, &t.CostID,
		&t.EntryTimestampMs, &t.EntryPrice,
		&t.ExitTimestampMs, &t.ExitPrice, &t.ExitReason, &t.ExitSubPolicy,
		&t.GrossReturnBps, &t.RealizedReturnBps, &t.StopOut,
		&t.MaxAdverseExcursionBps, &t.PeakReturnBps, &t.TailCapture,
		&t.TimeExposedMs, &partials,
	)
	if err != nil {
		return nil, err
	}

	if len(partials) > 0 {
		if err := json.Unmarshal(partials, &t.PartialExits); err != nil {
			return nil, fmt.Errorf("unmarshal partial exits: %w", err)
		}
	}
	return &t, nil
}

func scanTradeResults(rows pgxRows) ([]*domain.TradeResult, error) {
	var out []*domain.TradeResult
	for rows.Next() {
		t, err := scanTradeResult(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trade result: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade results: %w", err)
	}
	return out, nil
}
