package mev

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-mev-decoder/internal/domain"
	"solana-mev-decoder/internal/registry"
)

func TestAnalyze(t *testing.T) {
	a := NewAnalyzer()

	decoded := &domain.DecodedTransaction{
		Path:      "SOL → USDC",
		Platforms: domain.PlatformSet{"Jupiter V6", "Raydium AMM"},
		TokenTransfers: []domain.TokenTransfer{
			{Symbol: "SOL", AmountChange: -1},
			{Symbol: "USDC", AmountChange: 100.5},
		},
	}

	result := a.Analyze(decoded, registry.DefaultPrices)

	assert.Equal(t, domain.AnalysisResult{
		ProfitUSDC:  0.5,
		IsMEV:       true,
		Pattern:     domain.PatternArbitrage,
		Confidence:  0.8,
		Explanation: "Multi-platform arbitrage detected across Jupiter V6, Raydium AMM with $0.5000 profit",
	}, result)
}

func TestAnalyze_NoTransfers(t *testing.T) {
	result := NewAnalyzer().Analyze(&domain.DecodedTransaction{}, nil)

	assert.Equal(t, 0.0, result.ProfitUSDC)
	assert.False(t, result.IsMEV)
	assert.Equal(t, domain.PatternNone, result.Pattern)
	assert.Equal(t, "No MEV pattern detected", result.Explanation)
}

func TestAnalyze_PricesChangeOutcome(t *testing.T) {
	a := NewAnalyzer()
	decoded := &domain.DecodedTransaction{
		Path: "SOL → USDC",
		TokenTransfers: []domain.TokenTransfer{
			{Symbol: "SOL", AmountChange: -1},
			{Symbol: "USDC", AmountChange: 100.5},
		},
	}

	low := a.Analyze(decoded, domain.PriceTable{"SOL": 100.49})
	require.False(t, low.IsMEV)
	assert.Equal(t, 0.01, low.ProfitUSDC)

	high := a.Analyze(decoded, domain.PriceTable{"SOL": 90})
	assert.Equal(t, domain.PatternSandwich, high.Pattern)
	assert.Equal(t, 10.5, high.ProfitUSDC)
}

func TestAnalyze_ConcurrentUse(t *testing.T) {
	a := NewAnalyzer()
	decoded := &domain.DecodedTransaction{
		Platforms:      domain.PlatformSet{"Raydium AMM"},
		Path:           "SOL → USDC",
		Logs:           []string{"Program log: exactOut"},
		TokenTransfers: []domain.TokenTransfer{{Symbol: "USDC", AmountChange: 0.05}},
	}

	var wg sync.WaitGroup
	results := make([]domain.AnalysisResult, 32)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = a.Analyze(decoded, registry.DefaultPrices)
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, domain.PatternBackrun, r.Pattern)
		assert.Equal(t, results[0], r)
	}
}
