package registry

import "solana-mev-decoder/internal/config"

// FromConfig builds tables from the defaults extended by the registry section.
func FromConfig(cfg config.RegistryConfig) (*Tables, error) {
	mints := make(map[string]string, len(cfg.Mints))
	for _, m := range cfg.Mints {
		mints[m.Mint] = m.Symbol
	}
	programs := make(map[string]string, len(cfg.Programs))
	for _, p := range cfg.Programs {
		programs[p.ID] = p.Venue
	}
	return New(
		WithMints(mints),
		WithPrograms(programs),
		WithMonitoredPrograms(cfg.MonitoredPrograms),
	)
}
