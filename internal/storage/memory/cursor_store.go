package memory

import (
	"context"
	"sync"
	"time"

	"solana-mev-decoder/internal/storage"
)

// CursorStore is an in-memory implementation of storage.CursorStore.
type CursorStore struct {
	mu      sync.RWMutex
	cursors map[string]storage.MonitorCursor // keyed by program id
}

// NewCursorStore creates a new in-memory cursor store.
func NewCursorStore() *CursorStore {
	return &CursorStore{
		cursors: make(map[string]storage.MonitorCursor),
	}
}

// Get returns the cursor for a program.
func (s *CursorStore) Get(_ context.Context, program string) (*storage.MonitorCursor, error) {
	if program == "" {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.cursors[program]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &c, nil
}

// Set saves or replaces the cursor for c.Program.
func (s *CursorStore) Set(_ context.Context, c *storage.MonitorCursor) error {
	if c == nil || c.Program == "" || c.Signature == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *c
	if stored.UpdatedAt.IsZero() {
		stored.UpdatedAt = time.Now().UTC()
	}
	s.cursors[c.Program] = stored
	return nil
}

// Compile-time interface check.
var _ storage.CursorStore = (*CursorStore)(nil)
