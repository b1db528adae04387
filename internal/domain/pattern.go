package domain

import (
	"encoding/json"
	"fmt"
)

// MEVPattern is the closed set of MEV pattern kinds.
// Liquidation and Frontrun are reserved: no classification rule produces them yet.
type MEVPattern string

// MEV pattern constants
const (
	PatternNone        MEVPattern = ""
	PatternArbitrage   MEVPattern = "arbitrage"
	PatternBackrun     MEVPattern = "backrun"
	PatternSandwich    MEVPattern = "sandwich"
	PatternLiquidation MEVPattern = "liquidation"
	PatternFrontrun    MEVPattern = "frontrun"
	PatternUnknown     MEVPattern = "unknown"
)

// AllPatterns lists every pattern value in declaration order.
var AllPatterns = []MEVPattern{
	PatternArbitrage,
	PatternBackrun,
	PatternSandwich,
	PatternLiquidation,
	PatternFrontrun,
	PatternUnknown,
}

// ParsePattern converts a lowercase pattern name. The empty string parses to PatternNone.
func ParsePattern(s string) (MEVPattern, error) {
	if s == "" {
		return PatternNone, nil
	}
	for _, p := range AllPatterns {
		if string(p) == s {
			return p, nil
		}
	}
	return PatternNone, fmt.Errorf("unknown MEV pattern %q", s)
}

// MarshalJSON encodes PatternNone as null.
func (p MEVPattern) MarshalJSON() ([]byte, error) {
	if p == PatternNone {
		return []byte("null"), nil
	}
	return json.Marshal(string(p))
}

// UnmarshalJSON accepts null or a known pattern name.
func (p *MEVPattern) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*p = PatternNone
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParsePattern(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
