package domain

// Verdict is the outcome of the pattern classifier.
type Verdict struct {
	IsMEV       bool
	Pattern     MEVPattern
	Confidence  float64 // fixed per rule, in [0,1]
	Explanation string
}

// AnalysisResult combines the profit estimate with the verdict.
type AnalysisResult struct {
	ProfitUSDC  float64    `json:"profitUsdc"`
	IsMEV       bool       `json:"isMev"`
	Pattern     MEVPattern `json:"pattern"`
	Confidence  float64    `json:"confidence"`
	Explanation string     `json:"explanation"`
}
