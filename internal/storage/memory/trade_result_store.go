package memory

import (
	"context"
	"sort"
	"sync"

	"exit-policy-lab/internal/domain"
	"exit-policy-lab/internal/storage"
)

// TradeResultStore is an in-memory implementation of storage.TradeResultStore.
type TradeResultStore struct {
	mu   sync.RWMutex
	data map[string]*domain.TradeResult // keyed by trade_id
}

// NewTradeResultStore creates a new in-memory trade result store.
func NewTradeResultStore() *TradeResultStore {
	return &TradeResultStore{
		data: make(map[string]*domain.TradeResult),
	}
}

// Compile-time interface check.
var _ storage.TradeResultStore = (*TradeResultStore)(nil)

// Insert adds a new trade result. Returns ErrDuplicateKey if trade_id exists.
func (s *TradeResultStore) Insert(_ context.Context, t *domain.TradeResult) error {
	if t == nil || t.TradeID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[t.TradeID]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[t.TradeID] = copyResult(t)
	return nil
}

// InsertBulk adds multiple results atomically. Fails entire batch on any duplicate.
func (s *TradeResultStore) InsertBulk(_ context.Context, results []*domain.TradeResult) error {
	if len(results) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Track keys in this batch to detect intra-batch duplicates
	batchKeys := make(map[string]struct{}, len(results))
	for _, t := range results {
		if t == nil || t.TradeID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[t.TradeID]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[t.TradeID]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[t.TradeID] = struct{}{}
	}

	for _, t := range results {
		s.data[t.TradeID] = copyResult(t)
	}
	return nil
}

// GetByID retrieves a result by trade_id. Returns ErrNotFound if not exists.
func (s *TradeResultStore) GetByID(_ context.Context, tradeID string) (*domain.TradeResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.data[tradeID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copyResult(t), nil
}

// GetByPolicyCost retrieves all results for a (policy_id, cost_id) pair,
// ordered by entry timestamp ASC, trade_id ASC.
func (s *TradeResultStore) GetByPolicyCost(_ context.Context, policyID, costID string) ([]*domain.TradeResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.TradeResult
	for _, t := range s.data {
		if t.PolicyID == policyID && t.CostID == costID {
			out = append(out, copyResult(t))
		}
	}

	sortResults(out)
	return out, nil
}

// GetByCallID retrieves all results for a call, ordered by policy_id ASC.
func (s *TradeResultStore) GetByCallID(_ context.Context, callID string) ([]*domain.TradeResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.TradeResult
	for _, t := range s.data {
		if t.CallID == callID {
			out = append(out, copyResult(t))
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].PolicyID != out[j].PolicyID {
			return out[i].PolicyID < out[j].PolicyID
		}
		return out[i].TradeID < out[j].TradeID
	})
	return out, nil
}

// ListAll retrieves every stored result, ordered by entry timestamp ASC,
// trade_id ASC.
func (s *TradeResultStore) ListAll(_ context.Context) ([]*domain.TradeResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.TradeResult, 0, len(s.data))
	for _, t := range s.data {
		out = append(out, copyResult(t))
	}

	sortResults(out)
	return out, nil
}

// copyResult deep-copies a result so callers never share the stored slice.
func copyResult(t *domain.TradeResult) *domain.TradeResult {
	cp := *t
	if t.TailCapture != nil {
		tc := *t.TailCapture
		cp.TailCapture = &tc
	}
	if t.PartialExits != nil {
		cp.PartialExits = make([]domain.PartialExit, len(t.PartialExits))
		copy(cp.PartialExits, t.PartialExits)
	}
	return &cp
}

func sortResults(results []*domain.TradeResult) {
	sort.Slice(results, func(i, j int) bool {
		if results[i].EntryTimestampMs != results[j].EntryTimestampMs {
			return results[i].EntryTimestampMs < results[j].EntryTimestampMs
		}
		return results[i].TradeID < results[j].TradeID
	})
}
