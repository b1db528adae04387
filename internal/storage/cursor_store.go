package storage

import (
	"context"
	"time"
)

// MonitorCursor is the newest signature already handled for one monitored program.
type MonitorCursor struct {
	Program   string
	Signature string
	Slot      int64
	UpdatedAt time.Time
}

// CursorStore persists monitor progress so polling resumes after restarts
// without re-fetching signatures that were already analyzed.
type CursorStore interface {
	// Get returns the cursor for a program. Returns ErrNotFound if none was saved yet.
	Get(ctx context.Context, program string) (*MonitorCursor, error)

	// Set saves or replaces the cursor for c.Program.
	Set(ctx context.Context, c *MonitorCursor) error
}
