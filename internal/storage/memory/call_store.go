package memory

import (
	"context"
	"sort"
	"sync"

	"exit-policy-lab/internal/domain"
	"exit-policy-lab/internal/storage"
)

// CallStore is an in-memory implementation of storage.CallStore.
type CallStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Call // keyed by call_id
}

// NewCallStore creates a new in-memory call store.
func NewCallStore() *CallStore {
	return &CallStore{
		data: make(map[string]*domain.Call),
	}
}

// Compile-time interface check.
var _ storage.CallStore = (*CallStore)(nil)

// Insert adds a new call. Returns ErrDuplicateKey if call_id exists.
func (s *CallStore) Insert(_ context.Context, c *domain.Call) error {
	if c == nil || c.CallID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[c.CallID]; exists {
		return storage.ErrDuplicateKey
	}

	cp := *c
	s.data[c.CallID] = &cp
	return nil
}

// GetByID retrieves a call by its ID. Returns ErrNotFound if not exists.
func (s *CallStore) GetByID(_ context.Context, callID string) (*domain.Call, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.data[callID]
	if !ok {
		return nil, storage.ErrNotFound
	}

	cp := *c
	return &cp, nil
}

// GetByInstrument retrieves all calls for an instrument, ordered by alert time ASC.
func (s *CallStore) GetByInstrument(_ context.Context, instrumentID string) ([]*domain.Call, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Call
	for _, c := range s.data {
		if c.InstrumentID == instrumentID {
			cp := *c
			out = append(out, &cp)
		}
	}

	sortCalls(out)
	return out, nil
}

// GetByTimeRange retrieves calls with alert time within [start, end] (inclusive, ms).
func (s *CallStore) GetByTimeRange(_ context.Context, startMs, endMs int64) ([]*domain.Call, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Call
	for _, c := range s.data {
		if c.AlertTimestampMs >= startMs && c.AlertTimestampMs <= endMs {
			cp := *c
			out = append(out, &cp)
		}
	}

	sortCalls(out)
	return out, nil
}

func sortCalls(calls []*domain.Call) {
	sort.Slice(calls, func(i, j int) bool {
		if calls[i].AlertTimestampMs != calls[j].AlertTimestampMs {
			return calls[i].AlertTimestampMs < calls[j].AlertTimestampMs
		}
		return calls[i].CallID < calls[j].CallID
	})
}
