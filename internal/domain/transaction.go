package domain

import "time"

// MEVTransaction is the stored and served record of one analyzed transaction.
// Corresponds to mev_transactions table in PostgreSQL.
type MEVTransaction struct {
	Signature    string      `json:"signature"`
	Timestamp    time.Time   `json:"timestamp"` // block time, or analysis time when unknown
	Wallet       string      `json:"wallet"`    // fee payer
	TradePath    string      `json:"tradePath"`
	Platforms    PlatformSet `json:"platforms"`
	InputToken   string      `json:"inputToken"`
	OutputToken  string      `json:"outputToken"`
	InputAmount  float64     `json:"inputAmount"`
	OutputAmount float64     `json:"outputAmount"`
	ProfitUSDC   float64     `json:"profitUsdc"`
	IsMEV        bool        `json:"isMev"`
	Pattern      MEVPattern  `json:"pattern"`
	Confidence   float64     `json:"confidence"`
	Explanation  string      `json:"explanation"`
	GasUsed      int64       `json:"gasUsed"` // meta.fee in lamports
	Slot         int64       `json:"slot"`
}

// Stats summarizes a set of analyzed transactions.
type Stats struct {
	TotalTransactions int                `json:"total_transactions"`
	MEVTransactions   int                `json:"mev_transactions"`
	MEVPercentage     float64            `json:"mev_percentage"`
	TotalProfit       float64            `json:"total_profit"` // sum over MEV transactions
	AvgProfit         float64            `json:"avg_profit"`
	Patterns          map[MEVPattern]int `json:"patterns"`
}

// Clone returns a deep copy of tx.
func (tx *MEVTransaction) Clone() *MEVTransaction {
	if tx == nil {
		return nil
	}
	c := *tx
	if tx.Platforms != nil {
		c.Platforms = append(PlatformSet(nil), tx.Platforms...)
	}
	return &c
}
