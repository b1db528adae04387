package memory

import (
	"context"
	"sync"

	"solana-mev-decoder/internal/domain"
	"solana-mev-decoder/internal/metrics"
	"solana-mev-decoder/internal/storage"
)

// DefaultCapacity is the number of records kept before the oldest are evicted.
const DefaultCapacity = 1000

// TransactionStore is an in-memory implementation of storage.TransactionStore.
// Records are kept newest first; inserting past capacity evicts the oldest.
type TransactionStore struct {
	mu       sync.RWMutex
	capacity int
	ordered  []*domain.MEVTransaction // newest first
	bySig    map[string]*domain.MEVTransaction
}

// NewTransactionStore creates a new in-memory transaction store.
// A non-positive capacity selects DefaultCapacity.
func NewTransactionStore(capacity int) *TransactionStore {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &TransactionStore{
		capacity: capacity,
		bySig:    make(map[string]*domain.MEVTransaction),
	}
}

// Insert prepends a record. Returns ErrDuplicateKey if the signature exists.
func (s *TransactionStore) Insert(_ context.Context, tx *domain.MEVTransaction) error {
	if tx == nil || tx.Signature == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.bySig[tx.Signature]; exists {
		return storage.ErrDuplicateKey
	}

	stored := tx.Clone()
	s.ordered = append(s.ordered, nil)
	copy(s.ordered[1:], s.ordered)
	s.ordered[0] = stored
	s.bySig[stored.Signature] = stored

	for len(s.ordered) > s.capacity {
		last := s.ordered[len(s.ordered)-1]
		delete(s.bySig, last.Signature)
		s.ordered[len(s.ordered)-1] = nil
		s.ordered = s.ordered[:len(s.ordered)-1]
	}
	return nil
}

// GetBySignature retrieves a record. Returns ErrNotFound if not exists.
func (s *TransactionStore) GetBySignature(_ context.Context, signature string) (*domain.MEVTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, exists := s.bySig[signature]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return tx.Clone(), nil
}

// Exists reports whether the signature is stored.
func (s *TransactionStore) Exists(_ context.Context, signature string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.bySig[signature]
	return exists, nil
}

// List returns matching records, newest first.
func (s *TransactionStore) List(_ context.Context, filter storage.TransactionFilter) ([]*domain.MEVTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.MEVTransaction, 0)
	for _, tx := range s.ordered {
		if filter.Limit > 0 && len(result) >= filter.Limit {
			break
		}
		if filter.Match(tx) {
			result = append(result, tx.Clone())
		}
	}
	return result, nil
}

// Count returns the number of stored records.
func (s *TransactionStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.ordered), nil
}

// Stats summarizes every stored record.
func (s *TransactionStore) Stats(_ context.Context) (*domain.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return metrics.ComputeStats(s.ordered), nil
}

// Compile-time interface check.
var _ storage.TransactionStore = (*TransactionStore)(nil)
