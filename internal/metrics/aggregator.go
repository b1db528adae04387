package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"solana-mev-decoder/internal/domain"
	"solana-mev-decoder/internal/storage"
)

// PatternShare is one pattern's slice of the MEV verdicts in a window.
type PatternShare struct {
	Pattern       domain.MEVPattern `json:"pattern"`
	Count         int               `json:"count"`
	Share         float64           `json:"share"` // percent of MEV verdicts in the window
	TotalProfit   float64           `json:"total_profit"`
	AvgConfidence float64           `json:"avg_confidence"`
}

// PatternReport is the pattern breakdown served by the analytics endpoint.
type PatternReport struct {
	Since       time.Time      `json:"since"`
	MEVVerdicts int            `json:"mev_verdicts"`
	TotalProfit float64        `json:"total_profit"`
	Patterns    []PatternShare `json:"patterns"`
}

// Aggregator builds pattern reports from the verdict store.
type Aggregator struct {
	verdicts storage.VerdictStore
}

// NewAggregator creates a new pattern aggregator.
func NewAggregator(verdicts storage.VerdictStore) *Aggregator {
	return &Aggregator{verdicts: verdicts}
}

// PatternReport aggregates MEV verdicts with block time >= since.
// Row order follows the store: count DESC, pattern ASC.
func (a *Aggregator) PatternReport(ctx context.Context, since time.Time) (*PatternReport, error) {
	rows, err := a.verdicts.PatternBreakdown(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("pattern breakdown: %w", err)
	}

	total := 0
	profit := decimal.Zero
	for _, r := range rows {
		total += r.Count
		profit = profit.Add(decimal.NewFromFloat(r.TotalProfit))
	}

	report := &PatternReport{
		Since:       since.UTC(),
		MEVVerdicts: total,
		TotalProfit: profit.Round(statsPrecision).InexactFloat64(),
		Patterns:    make([]PatternShare, 0, len(rows)),
	}
	for _, r := range rows {
		report.Patterns = append(report.Patterns, PatternShare{
			Pattern:       r.Pattern,
			Count:         r.Count,
			Share:         computeShare(r.Count, total),
			TotalProfit:   decimal.NewFromFloat(r.TotalProfit).Round(statsPrecision).InexactFloat64(),
			AvgConfidence: r.AvgConfidence,
		})
	}
	return report, nil
}
