package metrics

import (
	"github.com/shopspring/decimal"

	"solana-mev-decoder/internal/domain"
)

// statsPrecision is the number of decimals kept for profit totals and averages.
const statsPrecision = 4

// ComputeStats summarizes transactions.
// Profit totals and pattern counts only cover transactions flagged as MEV.
func ComputeStats(txs []*domain.MEVTransaction) *domain.Stats {
	total := 0
	mev := 0
	profit := decimal.Zero
	patterns := make(map[domain.MEVPattern]int)

	for _, tx := range txs {
		if tx == nil {
			continue
		}
		total++
		if !tx.IsMEV {
			continue
		}
		mev++
		profit = profit.Add(decimal.NewFromFloat(tx.ProfitUSDC))
		if tx.Pattern != domain.PatternNone {
			patterns[tx.Pattern]++
		}
	}

	return FinalizeStats(total, mev, profit, patterns)
}

// FinalizeStats derives the percentage and rounded profit figures from raw counts.
// Used by stores that aggregate in the database.
func FinalizeStats(total, mev int, totalProfit decimal.Decimal, patterns map[domain.MEVPattern]int) *domain.Stats {
	if patterns == nil {
		patterns = make(map[domain.MEVPattern]int)
	}
	stats := &domain.Stats{
		TotalTransactions: total,
		MEVTransactions:   mev,
		Patterns:          patterns,
	}
	if total == 0 {
		return stats
	}

	stats.MEVPercentage = float64(mev) / float64(total) * 100
	stats.TotalProfit = totalProfit.Round(statsPrecision).InexactFloat64()

	// Average divides by at least one so an all-benign history reports 0.
	divisor := decimal.NewFromInt(int64(max(mev, 1)))
	stats.AvgProfit = totalProfit.Div(divisor).Round(statsPrecision).InexactFloat64()

	return stats
}

// computeShare returns part as a percentage of whole, 0 when whole is 0.
func computeShare(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}
