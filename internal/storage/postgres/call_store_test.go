package postgres_test

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"exit-policy-lab/internal/domain"
	"exit-policy-lab/internal/observability"
	"exit-policy-lab/internal/storage"
	"exit-policy-lab/internal/storage/postgres"
)

func createTestCall(callID, instrumentID string, alertMs int64) *domain.Call {
	return &domain.Call{
		CallID:           callID,
		InstrumentID:     instrumentID,
		AlertTimestampMs: alertMs,
		Source:           "telegram",
		CreatedAtMs:      alertMs,
	}
}

func TestCallStore_InsertAndGetByID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := postgres.NewCallStore(pool)

	call := createTestCall("call-001", "inst-1", 1000_000)

	err := store.Insert(ctx, call)
	require.NoError(t, err)

	got, err := store.GetByID(ctx, "call-001")
	require.NoError(t, err)
	assert.Equal(t, call.InstrumentID, got.InstrumentID)
	assert.Equal(t, call.AlertTimestampMs, got.AlertTimestampMs)
	assert.Equal(t, call.Source, got.Source)

	// Duplicate call_id
	err = store.Insert(ctx, call)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	// Missing call_id
	_, err = store.GetByID(ctx, "does-not-exist")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCallStore_GetByInstrument(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := postgres.NewCallStore(pool)

	require.NoError(t, store.Insert(ctx, createTestCall("call-002", "inst-1", 2000_000)))
	require.NoError(t, store.Insert(ctx, createTestCall("call-001", "inst-1", 1000_000)))
	require.NoError(t, store.Insert(ctx, createTestCall("call-003", "inst-2", 1500_000)))

	got, err := store.GetByInstrument(ctx, "inst-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "call-001", got[0].CallID, "expected alert-time order")
	assert.Equal(t, "call-002", got[1].CallID)

	empty, err := store.GetByInstrument(ctx, "inst-9")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestCallStore_GetByTimeRange(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := postgres.NewCallStore(pool)

	require.NoError(t, store.Insert(ctx, createTestCall("call-001", "inst-1", 1000_000)))
	require.NoError(t, store.Insert(ctx, createTestCall("call-002", "inst-1", 2000_000)))
	require.NoError(t, store.Insert(ctx, createTestCall("call-003", "inst-2", 3000_000)))

	// Inclusive on both ends.
	got, err := store.GetByTimeRange(ctx, 1000_000, 2000_000)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = store.GetByTimeRange(ctx, 2000_001, 2500_000)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCallStore_RecordsQueryMetrics(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	metrics := observability.NewMetrics("test_call_store")
	store := postgres.NewCallStore(pool).WithMetrics(metrics)

	require.NoError(t, store.Insert(ctx, createTestCall("call-001", "inst-1", 1000_000)))
	require.ErrorIs(t, store.Insert(ctx, createTestCall("call-001", "inst-1", 1000_000)), storage.ErrDuplicateKey)

	// One clean insert and one duplicate: two observations, one error.
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.DBQueryErrors.WithLabelValues("postgres", "calls_insert")))
	assert.NotZero(t, testutil.CollectAndCount(metrics.DBQueryDuration))
}
