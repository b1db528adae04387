package decoder

import (
	"strings"

	"solana-mev-decoder/internal/domain"
)

// PathSeparator joins symbols in a trade path.
const PathSeparator = " → "

// BuildPath renders spent symbols followed by received symbols, each group in input order.
func BuildPath(transfers []domain.TokenTransfer) string {
	if len(transfers) == 0 {
		return ""
	}

	var inputs, outputs []string
	for _, t := range transfers {
		switch {
		case t.IsInput():
			inputs = append(inputs, t.Symbol)
		case t.IsOutput():
			outputs = append(outputs, t.Symbol)
		}
	}

	return strings.Join(append(inputs, outputs...), PathSeparator)
}

// CountHops returns how many separators a path contains.
func CountHops(path string) int {
	return strings.Count(path, strings.TrimSpace(PathSeparator))
}
