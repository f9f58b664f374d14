package preflight

import (
	"context"

	"cardsort/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
// Hardware checks are skipped in mock mode since nothing is attached.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckDirectoryAccess("Data directory", cfg.Paths.DataDir))
	results = append(results, CheckDirectoryAccess("CSV directory", cfg.Paths.CSVDir))
	results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	results = append(results, CheckCardIndex(cfg.Paths.CardIndex))

	if !cfg.Sorting.MockMode {
		results = append(results, CheckCameraDevice(cfg.Capture.Device))
		results = append(results, CheckSerialPort(cfg.Actuator.SerialPort))
		results = append(results, CheckScryfall(ctx, cfg.Scryfall.BaseURL))
	}

	return results
}
