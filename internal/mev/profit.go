package mev

import (
	"github.com/shopspring/decimal"

	"solana-mev-decoder/internal/domain"
)

// profitPlaces is the rounding precision of profit estimates.
const profitPlaces = 6

// EstimateProfit values every balance delta in USD and returns the net change,
// rounded to six decimal places. Symbols without a price are valued at 1.0.
func EstimateProfit(transfers []domain.TokenTransfer, prices domain.PriceTable) float64 {
	if len(transfers) == 0 {
		return 0
	}

	total := decimal.Zero
	for _, t := range transfers {
		amount := decimal.NewFromFloat(t.AmountChange)
		price := decimal.NewFromFloat(prices.Price(t.Symbol))
		total = total.Add(amount.Mul(price))
	}

	profit, _ := total.Round(profitPlaces).Float64()
	return profit
}
