package storage

import (
	"context"
	"time"

	"solana-mev-decoder/internal/domain"
)

// TransactionFilter narrows List results. Zero values mean "no constraint".
type TransactionFilter struct {
	Limit     int               // <= 0 returns every match
	IsMEV     *bool             // nil matches both
	Pattern   domain.MEVPattern // exact match when non-empty
	MinProfit *float64          // inclusive lower bound on ProfitUSDC
	Wallet    string            // exact fee payer match when non-empty
}

// Match reports whether tx satisfies every constraint except Limit.
func (f TransactionFilter) Match(tx *domain.MEVTransaction) bool {
	if f.IsMEV != nil && tx.IsMEV != *f.IsMEV {
		return false
	}
	if f.Pattern != domain.PatternNone && tx.Pattern != f.Pattern {
		return false
	}
	if f.MinProfit != nil && tx.ProfitUSDC < *f.MinProfit {
		return false
	}
	if f.Wallet != "" && tx.Wallet != f.Wallet {
		return false
	}
	return true
}

// TransactionStore provides access to analyzed transaction history.
type TransactionStore interface {
	// Insert adds a new record. Returns ErrDuplicateKey if the signature exists.
	Insert(ctx context.Context, tx *domain.MEVTransaction) error

	// GetBySignature retrieves one record. Returns ErrNotFound if not exists.
	GetBySignature(ctx context.Context, signature string) (*domain.MEVTransaction, error)

	// Exists reports whether a signature has already been analyzed.
	Exists(ctx context.Context, signature string) (bool, error)

	// List returns matching records, most recently inserted first.
	List(ctx context.Context, filter TransactionFilter) ([]*domain.MEVTransaction, error)

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)

	// Stats summarizes every stored record.
	Stats(ctx context.Context) (*domain.Stats, error)
}

// PatternSummary is one row of a pattern breakdown.
type PatternSummary struct {
	Pattern       domain.MEVPattern
	Count         int
	TotalProfit   float64
	AvgConfidence float64
}

// VerdictStore is the append-only analytics sink for MEV verdicts.
type VerdictStore interface {
	// Insert records the verdict of an analyzed transaction. Returns ErrDuplicateKey if the signature exists.
	Insert(ctx context.Context, tx *domain.MEVTransaction) error

	// PatternBreakdown aggregates MEV verdicts with block time >= since,
	// ordered by count DESC then pattern ASC.
	PatternBreakdown(ctx context.Context, since time.Time) ([]PatternSummary, error)
}
