package domain

// TokenTransfer is the signed balance change of one account for one mint.
// AmountChange always equals PostAmount - PreAmount and is never zero.
type TokenTransfer struct {
	Account      int     `json:"account"`      // index into message.accountKeys
	Mint         string  `json:"mint"`         // token mint address
	Symbol       string  `json:"symbol"`       // known symbol or mint prefix
	AmountChange float64 `json:"amountChange"` // negative when spent, positive when received
	PreAmount    float64 `json:"preAmount"`
	PostAmount   float64 `json:"postAmount"`
}

// IsInput reports whether the account spent tokens.
func (t TokenTransfer) IsInput() bool {
	return t.AmountChange < 0
}

// IsOutput reports whether the account received tokens.
func (t TokenTransfer) IsOutput() bool {
	return t.AmountChange > 0
}
