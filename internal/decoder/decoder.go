// Package decoder turns raw jsonParsed transactions into normalized trade views.
// All functions are pure and safe for concurrent use.
package decoder

import (
	"encoding/json"
	"fmt"
	"math"

	"solana-mev-decoder/internal/domain"
	"solana-mev-decoder/internal/solana"
)

// SymbolResolver resolves a mint address to a display symbol.
type SymbolResolver interface {
	Symbol(mint string) string
}

// VenueResolver resolves a program id to a venue name.
type VenueResolver interface {
	Venue(programID string) (string, bool)
}

// Tables is the lookup surface the decoder needs. *registry.Tables satisfies it.
type Tables interface {
	SymbolResolver
	VenueResolver
}

// Decoder decodes raw transactions against a fixed set of lookup tables.
type Decoder struct {
	tables Tables
}

// New creates a decoder. The tables must not change after this call.
func New(tables Tables) *Decoder {
	return &Decoder{tables: tables}
}

// ParseRaw unmarshals a getTransaction result.
func ParseRaw(data []byte) (*solana.ParsedTransaction, error) {
	var raw solana.ParsedTransaction
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse transaction: %w", err)
	}
	return &raw, nil
}

// Decode builds the normalized view of raw. It returns false when raw has no
// transaction section; every other missing field falls back to an empty value.
func (d *Decoder) Decode(raw *solana.ParsedTransaction) (*domain.DecodedTransaction, bool) {
	if raw == nil || raw.Transaction == nil {
		return nil, false
	}

	var (
		wallet       string
		instructions []solana.Instruction
	)
	if msg := raw.Transaction.Message; msg != nil {
		if len(msg.AccountKeys) > 0 {
			wallet = msg.AccountKeys[0].Pubkey
		}
		instructions = msg.Instructions
	}

	meta := raw.Meta
	if meta == nil {
		meta = &solana.TransactionMeta{}
	}

	transfers := ExtractTransfers(meta.PreTokenBalances, meta.PostTokenBalances, d.tables)

	decoded := &domain.DecodedTransaction{
		Wallet:            wallet,
		Path:              BuildPath(transfers),
		Platforms:         IdentifyPlatforms(instructions, meta.InnerInstructions, meta.LogMessages, d.tables),
		Instructions:      cloned(instructions),
		InnerInstructions: cloned(meta.InnerInstructions),
		Logs:              cloned(meta.LogMessages),
		TokenTransfers:    cloned(transfers),
	}
	if decoded.Platforms == nil {
		decoded.Platforms = domain.PlatformSet{}
	}

	for _, t := range transfers {
		if t.IsInput() {
			decoded.InputToken = t.Symbol
			decoded.InputAmount = math.Abs(t.AmountChange)
			break
		}
	}
	for _, t := range transfers {
		if t.IsOutput() {
			decoded.OutputToken = t.Symbol
			decoded.OutputAmount = t.AmountChange
			break
		}
	}

	return decoded, true
}

// cloned copies s so callers can't alias the raw record. Never nil.
func cloned[T any](s []T) []T {
	return append([]T{}, s...)
}
