package postgres

import (
	"context"
	"fmt"

	"solana-mev-decoder/internal/storage"
)

// CursorStore is a PostgreSQL implementation of storage.CursorStore.
// One row per monitored program in monitor_cursors.
type CursorStore struct {
	pool *Pool
}

// NewCursorStore creates a new PostgreSQL cursor store.
func NewCursorStore(pool *Pool) *CursorStore {
	return &CursorStore{pool: pool}
}

// Compile-time interface check.
var _ storage.CursorStore = (*CursorStore)(nil)

// Get returns the cursor for a program.
func (s *CursorStore) Get(ctx context.Context, program string) (*storage.MonitorCursor, error) {
	if program == "" {
		return nil, storage.ErrInvalidInput
	}

	row := s.pool.QueryRow(ctx, `
		SELECT program, signature, slot, updated_at
		FROM monitor_cursors
		WHERE program = $1
	`, program)

	var c storage.MonitorCursor
	if err := row.Scan(&c.Program, &c.Signature, &c.Slot, &c.UpdatedAt); err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get cursor: %w", err)
	}
	c.UpdatedAt = c.UpdatedAt.UTC()
	return &c, nil
}

// Set saves or replaces the cursor for c.Program.
// Uses upsert to handle initial insert and subsequent updates.
func (s *CursorStore) Set(ctx context.Context, c *storage.MonitorCursor) error {
	if c == nil || c.Program == "" || c.Signature == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO monitor_cursors (program, signature, slot, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (program) DO UPDATE
		SET signature = EXCLUDED.signature,
		    slot = EXCLUDED.slot,
		    updated_at = NOW()
	`, c.Program, c.Signature, c.Slot)
	if err != nil {
		return fmt.Errorf("set cursor: %w", err)
	}
	return nil
}
