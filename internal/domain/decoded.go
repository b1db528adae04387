package domain

import (
	"strings"

	"solana-mev-decoder/internal/solana"
)

// PlatformSet is an insertion-ordered set of venue names.
// Names are compared exactly, so "Jupiter V6" and "Jupiter" are distinct members.
type PlatformSet []string

// Add appends name unless it is already present.
func (s *PlatformSet) Add(name string) {
	if !s.Contains(name) {
		*s = append(*s, name)
	}
}

// Contains reports whether name is a member.
func (s PlatformSet) Contains(name string) bool {
	for _, n := range s {
		if n == name {
			return true
		}
	}
	return false
}

// String joins the members with ", ".
func (s PlatformSet) String() string {
	return strings.Join(s, ", ")
}

// DecodedTransaction is the normalized trade view of one raw transaction.
type DecodedTransaction struct {
	Wallet            string                         `json:"wallet"`
	Path              string                         `json:"path"`
	Platforms         PlatformSet                    `json:"platforms"`
	InputToken        string                         `json:"inputToken"`
	OutputToken       string                         `json:"outputToken"`
	InputAmount       float64                        `json:"inputAmount"`  // absolute amount of the first input
	OutputAmount      float64                        `json:"outputAmount"` // signed amount of the first output
	Instructions      []solana.Instruction           `json:"instructions"`
	InnerInstructions []solana.InnerInstructionGroup `json:"innerInstructions"`
	Logs              []string                       `json:"logs"`
	TokenTransfers    []TokenTransfer                `json:"tokenTransfers"`
}
