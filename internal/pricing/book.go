// Package pricing maintains the USD price table handed to MEV analysis.
//
// The table is layered: registry defaults, then live quotes, then operator
// overrides from configuration. Readers get an immutable snapshot.
package pricing

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"solana-mev-decoder/internal/domain"
	"solana-mev-decoder/internal/observability"
)

// Tables is the subset of registry.Tables the book needs.
type Tables interface {
	Prices() domain.PriceTable
	KnownMints() []string
	Symbol(mint string) string
}

// Book holds the current price table.
type Book struct {
	tables Tables
	quoter Quoter
	log    logrus.FieldLogger

	mu        sync.Mutex
	quotes    map[string]float64 // symbol -> live price
	overrides map[string]float64 // symbol -> configured price

	current atomic.Pointer[domain.PriceTable]
}

// NewBook creates a book seeded with the registry defaults. quoter may be nil,
// in which case Refresh is a no-op.
func NewBook(tables Tables, quoter Quoter, log logrus.FieldLogger) *Book {
	if log == nil {
		log = logrus.StandardLogger()
	}
	b := &Book{
		tables:    tables,
		quoter:    quoter,
		log:       log.WithField("component", "pricing"),
		quotes:    make(map[string]float64),
		overrides: make(map[string]float64),
	}
	b.rebuildLocked()
	return b
}

// Snapshot returns the current table. The returned map must not be modified.
func (b *Book) Snapshot() domain.PriceTable {
	return *b.current.Load()
}

// SetOverrides replaces the configured per-symbol prices.
func (b *Book) SetOverrides(overrides map[string]float64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.overrides = make(map[string]float64, len(overrides))
	for symbol, price := range overrides {
		if price < 0 {
			b.log.WithField("symbol", symbol).Warn("ignoring negative price override")
			continue
		}
		b.overrides[symbol] = price
	}
	b.rebuildLocked()
}

// Refresh pulls live quotes for every known mint. On error the previous quotes stay in effect.
func (b *Book) Refresh(ctx context.Context) error {
	if b.quoter == nil {
		return nil
	}

	byMint, err := b.quoter.Prices(ctx, b.tables.KnownMints())
	observability.RecordPriceRefresh(err)
	if err != nil {
		return fmt.Errorf("refresh prices: %w", err)
	}

	quotes := make(map[string]float64, len(byMint))
	for mint, price := range byMint {
		quotes[b.tables.Symbol(mint)] = price
	}

	b.mu.Lock()
	b.quotes = quotes
	b.rebuildLocked()
	b.mu.Unlock()

	b.log.WithField("quotes", len(quotes)).Debug("price table refreshed")
	return nil
}

// Run refreshes immediately and then every interval until ctx is done.
func (b *Book) Run(ctx context.Context, interval time.Duration) {
	if b.quoter == nil || interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := b.Refresh(ctx); err != nil && ctx.Err() == nil {
			b.log.WithError(err).Warn("price refresh failed, keeping previous quotes")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// rebuildLocked publishes defaults <- quotes <- overrides. Caller holds b.mu
// (or is the constructor).
func (b *Book) rebuildLocked() {
	table := b.tables.Prices()
	for symbol, price := range b.quotes {
		table[symbol] = price
	}
	for symbol, price := range b.overrides {
		table[symbol] = price
	}
	b.current.Store(&table)
}
