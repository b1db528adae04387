package solana

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// SignatureInfo from getSignaturesForAddress.
type SignatureInfo struct {
	Signature string
	Slot      int64
	BlockTime *int64
	Err       interface{}
}

// SignaturesOpts defines optional pagination parameters for getSignaturesForAddress.
type SignaturesOpts struct {
	Before string // Start searching backwards from this signature
	Until  string // Search until this signature
	Limit  int    // Maximum number of signatures to return
}

// ParsedTransaction is the getTransaction result in jsonParsed encoding.
// Every field is optional; consumers must tolerate missing sections.
type ParsedTransaction struct {
	Slot        int64                `json:"slot"`
	BlockTime   *int64               `json:"blockTime"`
	Transaction *TransactionEnvelope `json:"transaction"`
	Meta        *TransactionMeta     `json:"meta"`
}

// TransactionEnvelope holds the signed message.
type TransactionEnvelope struct {
	Signatures []string `json:"signatures,omitempty"`
	Message    *Message `json:"message"`
}

// Message is the parsed transaction message.
type Message struct {
	AccountKeys  []AccountKey  `json:"accountKeys"`
	Instructions []Instruction `json:"instructions"`
}

// AccountKey is an entry of message.accountKeys. The node returns either a bare
// base58 string or an object with a pubkey field depending on encoding.
type AccountKey struct {
	Pubkey   string `json:"pubkey"`
	Signer   bool   `json:"signer,omitempty"`
	Writable bool   `json:"writable,omitempty"`
	Source   string `json:"source,omitempty"`
}

// UnmarshalJSON accepts both account key shapes. Anything else decodes to an empty key.
func (k *AccountKey) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}
	switch data[0] {
	case '"':
		return json.Unmarshal(data, &k.Pubkey)
	case '{':
		type plain AccountKey
		var p plain
		if err := json.Unmarshal(data, &p); err != nil {
			return nil
		}
		*k = AccountKey(p)
	}
	return nil
}

// Instruction is a parsed or partially decoded instruction.
type Instruction struct {
	ProgramID   string          `json:"programId"`
	Program     string          `json:"program,omitempty"`
	Accounts    json.RawMessage `json:"accounts,omitempty"`
	Data        string          `json:"data,omitempty"`
	Parsed      json.RawMessage `json:"parsed,omitempty"`
	StackHeight *int            `json:"stackHeight,omitempty"`
}

// InnerInstructionGroup holds the CPIs issued by one top-level instruction.
type InnerInstructionGroup struct {
	Index        int           `json:"index"`
	Instructions []Instruction `json:"instructions"`
}

// TransactionMeta contains transaction status metadata.
type TransactionMeta struct {
	Err               interface{}             `json:"err"`
	Fee               int64                   `json:"fee"`
	LogMessages       []string                `json:"logMessages"`
	InnerInstructions []InnerInstructionGroup `json:"innerInstructions"`
	PreTokenBalances  []TokenBalance          `json:"preTokenBalances"`
	PostTokenBalances []TokenBalance          `json:"postTokenBalances"`
}

// TokenBalance is one account's balance of one mint before or after execution.
type TokenBalance struct {
	AccountIndex  int            `json:"accountIndex"`
	Mint          string         `json:"mint"`
	Owner         string         `json:"owner,omitempty"`
	ProgramID     string         `json:"programId,omitempty"`
	UITokenAmount *UITokenAmount `json:"uiTokenAmount"`
}

// UITokenAmount is the decimal-adjusted token amount.
type UITokenAmount struct {
	Amount         string   `json:"amount,omitempty"`
	Decimals       int      `json:"decimals"`
	UIAmount       *float64 `json:"uiAmount"`
	UIAmountString string   `json:"uiAmountString,omitempty"`
}

// Value returns the UI amount. Nodes report a zero balance as a null uiAmount,
// in which case uiAmountString is used when present. Missing data reads as 0.
func (a *UITokenAmount) Value() float64 {
	if a == nil {
		return 0
	}
	if a.UIAmount != nil {
		return *a.UIAmount
	}
	if a.UIAmountString != "" {
		if v, err := strconv.ParseFloat(a.UIAmountString, 64); err == nil {
			return v
		}
	}
	return 0
}
