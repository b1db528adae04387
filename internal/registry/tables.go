// Package registry holds the static lookup tables used by the decoder:
// mint address to token symbol, program id to venue name, and default USD prices.
package registry

import (
	"fmt"

	"solana-mev-decoder/internal/domain"
	"solana-mev-decoder/internal/solana"
)

// Well-known program ids watched by the monitor.
const (
	JupiterV6  = "JUP6LkbZbjS1jKKwapdHNy74zcZ3tLUZoi5QNyVTaV4"
	RaydiumAMM = "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8"
)

// DefaultMints maps token mint addresses to symbols.
var DefaultMints = map[string]string{
	"So11111111111111111111111111111111111111112":  "SOL",
	"EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v": "USDC",
	"Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB": "USDT",
	"mSoLzYCxHdYgdzU16g5QSh3i5K3z3KZK7ytfqcJm7So":  "mSOL",
	"7dHbWXmci3dT8UFYWYZweBLXgycu7Y3iL6trKn1Y7ARj": "stSOL",
	"DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263": "BONK",
	"5oVNBeEEQvYi1cX3ir8Dx5n1P7pdxydbGF2X4TxVusJm": "INF",
	"J1toso1uCk3RLmjorhTtrVwY9HJ7X8V9yYac6Y7kGCPn": "jitoSOL",
}

// DefaultPrograms maps DEX program ids to venue display names.
var DefaultPrograms = map[string]string{
	"JUP4Fb2cqiRUcaTHdrPC8h2gNsA2ETXiPDD33WcGuJB":  "Jupiter V4",
	"JUP6LkbZbjS1jKKwapdHNy74zcZ3tLUZoi5QNyVTaV4":  "Jupiter V6",
	"675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8": "Raydium AMM",
	"9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM": "Raydium CPMM",
	"MERLuDFBMmsHnsBPZw2sDQZHvXFMwp8EdjudcU2HKky":  "Meteora",
	"PhoeNiX7VavoDXL4ZMD4fDbBGEz7dhc8EJQ1J4TjTaE":  "Phoenix",
	"opnb2LAfJYbRMAHHvqjCwQxanZn7ReEHp1k81EohpZb":  "Openbook",
	"TSWAPaqyCSx2KABk68Shruf4rp7CxcNi8hAsbdwmHbN":  "Tensor",
}

// DefaultPrices are the fallback USD prices per symbol.
var DefaultPrices = domain.PriceTable{
	"SOL":     100.0,
	"USDC":    1.0,
	"USDT":    1.0,
	"mSOL":    110.0,
	"stSOL":   105.0,
	"BONK":    0.000015,
	"jitoSOL": 105.0,
}

// DefaultMonitoredPrograms are polled for new signatures, most active first.
var DefaultMonitoredPrograms = []string{JupiterV6, RaydiumAMM}

// Tables is an immutable snapshot of the lookup tables.
// It is safe for concurrent reads from any number of goroutines.
type Tables struct {
	mints     map[string]string
	programs  map[string]string
	prices    domain.PriceTable
	monitored []string
}

// Option customizes the tables before they are frozen.
type Option func(*Tables)

// WithMints adds or overrides mint symbols.
func WithMints(m map[string]string) Option {
	return func(t *Tables) {
		for k, v := range m {
			t.mints[k] = v
		}
	}
}

// WithPrograms adds or overrides program venue names.
func WithPrograms(m map[string]string) Option {
	return func(t *Tables) {
		for k, v := range m {
			t.programs[k] = v
		}
	}
}

// WithPrices adds or overrides default prices.
func WithPrices(p map[string]float64) Option {
	return func(t *Tables) {
		for k, v := range p {
			t.prices[k] = v
		}
	}
}

// WithMonitoredPrograms replaces the list of programs polled by the monitor.
func WithMonitoredPrograms(ids []string) Option {
	return func(t *Tables) {
		if len(ids) > 0 {
			t.monitored = append([]string(nil), ids...)
		}
	}
}

// New builds validated tables from the defaults plus options.
func New(opts ...Option) (*Tables, error) {
	t := &Tables{
		mints:     make(map[string]string, len(DefaultMints)),
		programs:  make(map[string]string, len(DefaultPrograms)),
		prices:    DefaultPrices.Clone(),
		monitored: append([]string(nil), DefaultMonitoredPrograms...),
	}
	for k, v := range DefaultMints {
		t.mints[k] = v
	}
	for k, v := range DefaultPrograms {
		t.programs[k] = v
	}
	for _, opt := range opts {
		opt(t)
	}

	if err := t.validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// MustDefault returns the default tables and panics if they are invalid.
func MustDefault() *Tables {
	t, err := New()
	if err != nil {
		panic(err)
	}
	return t
}

func (t *Tables) validate() error {
	for mint, symbol := range t.mints {
		if err := solana.ValidateAddress(mint); err != nil {
			return fmt.Errorf("mint table: %w", err)
		}
		if symbol == "" {
			return fmt.Errorf("mint table: empty symbol for %s", mint)
		}
	}
	for id, venue := range t.programs {
		if err := solana.ValidateAddress(id); err != nil {
			return fmt.Errorf("program table: %w", err)
		}
		if venue == "" {
			return fmt.Errorf("program table: empty venue for %s", id)
		}
	}
	for _, id := range t.monitored {
		if err := solana.ValidateAddress(id); err != nil {
			return fmt.Errorf("monitored programs: %w", err)
		}
	}
	for symbol, price := range t.prices {
		if price < 0 {
			return fmt.Errorf("price table: negative price %v for %s", price, symbol)
		}
	}
	return nil
}

// Symbol resolves a mint to its symbol, falling back to the first 8 characters of the mint.
func (t *Tables) Symbol(mint string) string {
	if s, ok := t.mints[mint]; ok {
		return s
	}
	if len(mint) > 8 {
		return mint[:8]
	}
	return mint
}

// Venue resolves a program id to its venue name.
func (t *Tables) Venue(programID string) (string, bool) {
	v, ok := t.programs[programID]
	return v, ok
}

// Prices returns a copy of the default price table.
func (t *Tables) Prices() domain.PriceTable {
	return t.prices.Clone()
}

// MonitoredPrograms returns the program ids polled by the monitor.
func (t *Tables) MonitoredPrograms() []string {
	return append([]string(nil), t.monitored...)
}

// KnownMints returns every mint address in the table.
func (t *Tables) KnownMints() []string {
	out := make([]string, 0, len(t.mints))
	for m := range t.mints {
		out = append(out, m)
	}
	return out
}
