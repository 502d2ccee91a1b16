package storage

import (
	"context"

	"exit-policy-lab/internal/domain"
)

// CallStore provides access to calls (alert signals) storage.
type CallStore interface {
	// Insert adds a new call. Returns ErrDuplicateKey if call_id exists.
	Insert(ctx context.Context, c *domain.Call) error

	// GetByID retrieves a call by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, callID string) (*domain.Call, error)

	// GetByInstrument retrieves all calls for an instrument, ordered by alert time ASC.
	GetByInstrument(ctx context.Context, instrumentID string) ([]*domain.Call, error)

	// GetByTimeRange retrieves calls with alert time within [start, end] (inclusive, ms).
	GetByTimeRange(ctx context.Context, startMs, endMs int64) ([]*domain.Call, error)
}

// CandleStore provides access to candle time-series storage.
// Implementations must return bars ordered ascending by timestamp.
type CandleStore interface {
	// InsertBulk adds multiple candles. Fails entire batch on duplicate
	// (instrument_id, timestamp, interval_seconds).
	InsertBulk(ctx context.Context, candles []domain.Candle) error

	// GetSeries retrieves all candles for an instrument at an interval,
	// ordered by timestamp ASC.
	GetSeries(ctx context.Context, instrumentID string, intervalSeconds int64) ([]domain.Candle, error)

	// GetSeriesAsOf retrieves candles for an instrument at an interval whose
	// close time does not exceed asOfMs, ordered by timestamp ASC. This is
	// the causal boundary: a caller declaring an as-of time never sees a bar
	// that closes after it.
	GetSeriesAsOf(ctx context.Context, instrumentID string, intervalSeconds, asOfMs int64) ([]domain.Candle, error)
}

// TradeResultStore provides access to simulated trade outcome storage.
type TradeResultStore interface {
	// Insert adds a new trade result. Returns ErrDuplicateKey if trade_id exists.
	Insert(ctx context.Context, t *domain.TradeResult) error

	// InsertBulk adds multiple results atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, results []*domain.TradeResult) error

	// GetByID retrieves a result by trade_id. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, tradeID string) (*domain.TradeResult, error)

	// GetByPolicyCost retrieves all results for a (policy_id, cost_id) pair,
	// ordered by entry timestamp ASC, trade_id ASC.
	GetByPolicyCost(ctx context.Context, policyID, costID string) ([]*domain.TradeResult, error)

	// GetByCallID retrieves all results for a call, ordered by policy_id ASC.
	GetByCallID(ctx context.Context, callID string) ([]*domain.TradeResult, error)

	// ListAll retrieves every stored result, ordered by entry timestamp ASC,
	// trade_id ASC. Intended for reporting and verification sweeps.
	ListAll(ctx context.Context) ([]*domain.TradeResult, error)
}
