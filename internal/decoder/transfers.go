package decoder

import (
	"solana-mev-decoder/internal/domain"
	"solana-mev-decoder/internal/solana"
)

type balanceKey struct {
	account int
	mint    string
}

// ExtractTransfers reconciles pre and post token balances into signed deltas.
// Only post entries are walked, so an account that exists only in pre is not reported.
// Zero deltas are dropped. Output order follows post order.
func ExtractTransfers(pre, post []solana.TokenBalance, tables SymbolResolver) []domain.TokenTransfer {
	preLookup := make(map[balanceKey]float64, len(pre))
	for _, b := range pre {
		preLookup[balanceKey{b.AccountIndex, b.Mint}] = b.UITokenAmount.Value()
	}

	var transfers []domain.TokenTransfer
	for _, b := range post {
		postAmount := b.UITokenAmount.Value()
		preAmount := preLookup[balanceKey{b.AccountIndex, b.Mint}]
		change := postAmount - preAmount
		if change == 0 {
			continue
		}
		transfers = append(transfers, domain.TokenTransfer{
			Account:      b.AccountIndex,
			Mint:         b.Mint,
			Symbol:       tables.Symbol(b.Mint),
			AmountChange: change,
			PreAmount:    preAmount,
			PostAmount:   postAmount,
		})
	}
	return transfers
}
