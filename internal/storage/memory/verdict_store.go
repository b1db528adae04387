package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"solana-mev-decoder/internal/domain"
	"solana-mev-decoder/internal/storage"
)

// VerdictStore is an in-memory implementation of storage.VerdictStore.
type VerdictStore struct {
	mu   sync.RWMutex
	data map[string]*domain.MEVTransaction // keyed by signature
}

// NewVerdictStore creates a new in-memory verdict store.
func NewVerdictStore() *VerdictStore {
	return &VerdictStore{
		data: make(map[string]*domain.MEVTransaction),
	}
}

// Insert records a verdict. Returns ErrDuplicateKey if the signature exists.
func (s *VerdictStore) Insert(_ context.Context, tx *domain.MEVTransaction) error {
	if tx == nil || tx.Signature == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[tx.Signature]; exists {
		return storage.ErrDuplicateKey
	}
	s.data[tx.Signature] = tx.Clone()
	return nil
}

// PatternBreakdown aggregates MEV verdicts with timestamp >= since.
func (s *VerdictStore) PatternBreakdown(_ context.Context, since time.Time) ([]storage.PatternSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type acc struct {
		count      int
		profit     float64
		confidence float64
	}
	byPattern := make(map[domain.MEVPattern]*acc)
	for _, tx := range s.data {
		if !tx.IsMEV || tx.Timestamp.Before(since) {
			continue
		}
		a, ok := byPattern[tx.Pattern]
		if !ok {
			a = &acc{}
			byPattern[tx.Pattern] = a
		}
		a.count++
		a.profit += tx.ProfitUSDC
		a.confidence += tx.Confidence
	}

	result := make([]storage.PatternSummary, 0, len(byPattern))
	for p, a := range byPattern {
		result = append(result, storage.PatternSummary{
			Pattern:       p,
			Count:         a.count,
			TotalProfit:   a.profit,
			AvgConfidence: a.confidence / float64(a.count),
		})
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Pattern < result[j].Pattern
	})
	return result, nil
}

// Compile-time interface check.
var _ storage.VerdictStore = (*VerdictStore)(nil)
