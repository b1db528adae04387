package mev

import (
	"fmt"
	"strings"

	"solana-mev-decoder/internal/decoder"
	"solana-mev-decoder/internal/domain"
)

// Profit thresholds in USD.
const (
	MinProfitThreshold   = 0.01
	ArbitrageMinProfit   = 0.05
	InternalArbMinProfit = 0.02
	SandwichMinProfit    = 0.1
	HighProfitThreshold  = 1.0
)

// Fixed per-rule confidences.
const (
	ArbitrageConfidence  = 0.8
	BackrunConfidence    = 0.6
	SandwichConfidence   = 0.7
	HighProfitConfidence = 0.5
	LowProfitConfidence  = 0.3
)

// NoMEVExplanation is the explanation when no rule matches.
const NoMEVExplanation = "No MEV pattern detected"

var (
	// backrunMarkers are matched case-sensitively against raw log lines.
	backrunMarkers = []string{"swap", "exactIn", "exactOut"}
	// sandwichMarkers are matched against lowercased log lines.
	sandwichMarkers = []string{"front", "sandwich", "back"}
)

// facts is what every rule sees.
type facts struct {
	tx     *domain.DecodedTransaction
	profit float64
	hops   int
}

type rule struct {
	name       string
	pattern    domain.MEVPattern
	confidence float64
	match      func(f facts) bool
	explain    func(f facts) string
}

// Classifier evaluates an ordered rule list; the first matching rule decides.
// It holds no mutable state and is safe for concurrent use.
type Classifier struct {
	rules []rule
}

// NewClassifier returns the classifier with the standard rule order:
// arbitrage, backrun, sandwich, high profit, low profit.
func NewClassifier() *Classifier {
	return &Classifier{rules: []rule{
		{
			name:       "arbitrage",
			pattern:    domain.PatternArbitrage,
			confidence: ArbitrageConfidence,
			match:      isArbitrage,
			explain: func(f facts) string {
				return fmt.Sprintf("Multi-platform arbitrage detected across %s with $%.4f profit", f.tx.Platforms, f.profit)
			},
		},
		{
			name:       "backrun",
			pattern:    domain.PatternBackrun,
			confidence: BackrunConfidence,
			match:      isBackrun,
			explain: func(f facts) string {
				return fmt.Sprintf("Likely backrun trade with $%.4f profit", f.profit)
			},
		},
		{
			name:       "sandwich",
			pattern:    domain.PatternSandwich,
			confidence: SandwichConfidence,
			match:      isSandwich,
			explain: func(f facts) string {
				return fmt.Sprintf("Potential sandwich attack with $%.4f profit", f.profit)
			},
		},
		{
			name:       "high-profit",
			pattern:    domain.PatternUnknown,
			confidence: HighProfitConfidence,
			match:      func(f facts) bool { return f.profit > HighProfitThreshold },
			explain: func(f facts) string {
				return fmt.Sprintf("High-profit trade ($%.4f) - likely MEV", f.profit)
			},
		},
		{
			name:       "low-profit",
			pattern:    domain.PatternUnknown,
			confidence: LowProfitConfidence,
			match:      func(f facts) bool { return f.profit > MinProfitThreshold },
			explain: func(f facts) string {
				return fmt.Sprintf("Small profitable trade ($%.4f) - possible MEV", f.profit)
			},
		},
	}}
}

// Classify returns the verdict of the first matching rule.
func (c *Classifier) Classify(tx *domain.DecodedTransaction, profitUSDC float64) domain.Verdict {
	if tx == nil {
		tx = &domain.DecodedTransaction{}
	}
	f := facts{tx: tx, profit: profitUSDC, hops: decoder.CountHops(tx.Path)}

	for _, r := range c.rules {
		if r.match(f) {
			return domain.Verdict{
				IsMEV:       true,
				Pattern:     r.pattern,
				Confidence:  r.confidence,
				Explanation: r.explain(f),
			}
		}
	}

	return domain.Verdict{Explanation: NoMEVExplanation}
}

// RuleNames lists the rules in evaluation order.
func (c *Classifier) RuleNames() []string {
	names := make([]string, len(c.rules))
	for i, r := range c.rules {
		names[i] = r.name
	}
	return names
}

func isArbitrage(f facts) bool {
	venues := len(f.tx.Platforms)
	if venues >= 2 && f.profit > ArbitrageMinProfit {
		return true
	}
	// Single venue with a multi-hop route.
	return venues == 1 && f.hops >= 2 && f.profit > InternalArbMinProfit
}

func isBackrun(f facts) bool {
	if f.profit <= MinProfitThreshold || len(f.tx.Platforms) != 1 {
		return false
	}
	for _, marker := range backrunMarkers {
		for _, line := range f.tx.Logs {
			if strings.Contains(line, marker) {
				return true
			}
		}
	}
	return false
}

func isSandwich(f facts) bool {
	if f.profit > SandwichMinProfit && f.hops == 1 {
		return true
	}
	for _, line := range f.tx.Logs {
		lower := strings.ToLower(line)
		for _, marker := range sandwichMarkers {
			if strings.Contains(lower, marker) {
				return true
			}
		}
	}
	return false
}
