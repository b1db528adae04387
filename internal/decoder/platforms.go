package decoder

import (
	"strings"

	"solana-mev-decoder/internal/domain"
	"solana-mev-decoder/internal/solana"
)

// logVenue maps a lowercase log fragment to the venue name it implies.
type logVenue struct {
	fragment string
	venue    string
}

// logVenues is checked in order; a line contributes at most one venue.
var logVenues = []logVenue{
	{"jupiter", "Jupiter"},
	{"raydium", "Raydium"},
	{"meteora", "Meteora"},
}

// IdentifyPlatforms collects the venues touched by a transaction from top-level
// instruction program ids, inner instruction program ids, and log lines.
// Log-derived names are not merged with program-table names for the same venue.
func IdentifyPlatforms(instructions []solana.Instruction, inner []solana.InnerInstructionGroup, logs []string, tables VenueResolver) domain.PlatformSet {
	var platforms domain.PlatformSet

	for _, ix := range instructions {
		if venue, ok := tables.Venue(ix.ProgramID); ok {
			platforms.Add(venue)
		}
	}

	for _, group := range inner {
		for _, ix := range group.Instructions {
			if venue, ok := tables.Venue(ix.ProgramID); ok {
				platforms.Add(venue)
			}
		}
	}

	for _, line := range logs {
		lower := strings.ToLower(line)
		for _, lv := range logVenues {
			if strings.Contains(lower, lv.fragment) {
				platforms.Add(lv.venue)
				break
			}
		}
	}

	return platforms
}
