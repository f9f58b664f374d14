// Package testsupport provides shared helpers for package tests.
package testsupport

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"cardsort/internal/cards"
	"cardsort/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a mock-mode config seeded with unique temp directories
// per test. It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Sorting.MockMode = true
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.CSVDir = filepath.Join(base, "csv")
	cfgVal.Paths.StateFile = filepath.Join(base, "data", "state.json")
	cfgVal.Paths.CardIndex = filepath.Join(base, "card_index.json")
	cfgVal.Paths.Socket = filepath.Join(base, "cardsortd.sock")
	cfgVal.Notifications.NtfyTopic = ""
	cfgVal.Pricing.Fallback = "scryfall"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}

	return builder.cfg
}

// WithCardIndex writes the given records to the config's card index path.
func WithCardIndex(records ...cards.Metadata) ConfigOption {
	return func(b *configBuilder) {
		data, err := json.Marshal(records)
		if err != nil {
			b.t.Fatalf("marshal card index: %v", err)
		}
		if err := os.WriteFile(b.cfg.Paths.CardIndex, data, 0o644); err != nil {
			b.t.Fatalf("write card index: %v", err)
		}
	}
}

// WithNtfyTopic points notifications at the given endpoint.
func WithNtfyTopic(topic string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.NtfyTopic = topic
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
