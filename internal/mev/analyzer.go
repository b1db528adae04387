// Package mev estimates trade profit and classifies decoded transactions
// into MEV patterns. Everything here is pure and safe for concurrent use.
package mev

import "solana-mev-decoder/internal/domain"

// Analyzer composes profit estimation and pattern classification.
type Analyzer struct {
	classifier *Classifier
}

// NewAnalyzer creates an analyzer with the standard classifier.
func NewAnalyzer() *Analyzer {
	return &Analyzer{classifier: NewClassifier()}
}

// Analyze values the transfers of tx with prices and classifies the result.
func (a *Analyzer) Analyze(tx *domain.DecodedTransaction, prices domain.PriceTable) domain.AnalysisResult {
	var transfers []domain.TokenTransfer
	if tx != nil {
		transfers = tx.TokenTransfers
	}

	profit := EstimateProfit(transfers, prices)
	verdict := a.classifier.Classify(tx, profit)

	return domain.AnalysisResult{
		ProfitUSDC:  profit,
		IsMEV:       verdict.IsMEV,
		Pattern:     verdict.Pattern,
		Confidence:  verdict.Confidence,
		Explanation: verdict.Explanation,
	}
}
