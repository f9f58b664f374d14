package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and file location configuration.
type Paths struct {
	DataDir   string `toml:"data_dir"`
	LogDir    string `toml:"log_dir"`
	CSVDir    string `toml:"csv_dir"`
	StateFile string `toml:"state_file"`
	CardIndex string `toml:"card_index"`
	Socket    string `toml:"socket"`
}

// Sorting contains the runtime sorting policy defaults. Mode, threshold and
// price sources are overridden by persisted state once a session has run.
type Sorting struct {
	Mode              string  `toml:"mode"`
	PriceThresholdUSD float64 `toml:"price_threshold_usd"`
	MockMode          bool    `toml:"mock_mode"`
}

// Recognition contains the identifier policy constants. The confidence
// floor and tier values are defaults, not invariants, so operators can
// tune them.
type Recognition struct {
	ExactMatchConfidence  float64 `toml:"exact_match_confidence"`
	RemoteMatchConfidence float64 `toml:"remote_match_confidence"`
	OCROnlyConfidence     float64 `toml:"ocr_only_confidence"`
	SimilarityCutoff      float64 `toml:"similarity_cutoff"`
	ConfidenceFloor       float64 `toml:"confidence_floor"`
}

// Pricing contains provider selection and cache behavior.
type Pricing struct {
	Primary        string `toml:"primary"`
	Fallback       string `toml:"fallback"`
	CacheTTLHours  int    `toml:"cache_ttl_hours"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Scryfall contains configuration for the Scryfall API.
type Scryfall struct {
	BaseURL string `toml:"base_url"`
}

// TCGplayer contains credentials and endpoints for the TCGplayer API.
type TCGplayer struct {
	PublicKey string `toml:"public_key"`
	SecretKey string `toml:"secret_key"`
	BaseURL   string `toml:"base_url"`
	TokenURL  string `toml:"token_url"`
}

// Capture contains the frame capture command configuration.
type Capture struct {
	Command string   `toml:"command"`
	Args    []string `toml:"args"`
	Device  string   `toml:"device"`
	Timeout int      `toml:"timeout"`
}

// OCR contains the text extraction tool configuration.
type OCR struct {
	Binary   string `toml:"binary"`
	Language string `toml:"language"`
	PSM      int    `toml:"psm"`
	Timeout  int    `toml:"timeout"`
}

// Actuator contains servo hardware configuration. The servos sit on a
// PCA9685 behind an Arduino running Firmata on a serial port.
type Actuator struct {
	SerialPort   string         `toml:"serial_port"`
	Baud         int            `toml:"baud"`
	BoardAddress int            `toml:"board_address"`
	ChannelMap   map[string]int `toml:"channel_map"`
	OpenAngle    int            `toml:"open_angle"`
	ClosedAngle  int            `toml:"closed_angle"`
	DwellMillis  int            `toml:"dwell_ms"`
}

// Notifications contains ntfy push notification settings.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Errors         bool   `toml:"errors"`
	Session        bool   `toml:"session"`
	MilestoneEvery int    `toml:"milestone_every"`
}

// Workflow contains loop timing and shutdown behavior.
type Workflow struct {
	CycleDelayMillis   int  `toml:"cycle_delay_ms"`
	StopTimeoutSeconds int  `toml:"stop_timeout_seconds"`
	CameraMonitor      bool `toml:"camera_monitor"`
}

// Logging contains log output configuration.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for the sorter.
//
// Sections by subsystem:
//   - Paths: data/log/CSV directories, state file, card index, socket
//   - Sorting: mode, price threshold, mock mode
//   - Recognition: identifier confidence tiers and fuzzy-match cutoff
//   - Pricing: provider order, cache TTL, request timeout
//   - Scryfall / TCGplayer: price provider endpoints and credentials
//   - Capture / OCR: external frame grab and text extraction tools
//   - Actuator: servo channel map and motion parameters
//   - Notifications: ntfy topic and event toggles
//   - Workflow: cycle pacing and stop timeout
//   - Logging: format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Sorting       Sorting       `toml:"sorting"`
	Recognition   Recognition   `toml:"recognition"`
	Pricing       Pricing       `toml:"pricing"`
	Scryfall      Scryfall      `toml:"scryfall"`
	TCGplayer     TCGplayer     `toml:"tcgplayer"`
	Capture       Capture       `toml:"capture"`
	OCR           OCR           `toml:"ocr"`
	Actuator      Actuator      `toml:"actuator"`
	Notifications Notifications `toml:"notifications"`
	Workflow      Workflow      `toml:"workflow"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/cardsort/config.toml")
}

// SampleConfig returns the embedded sample configuration file contents.
func SampleConfig() string {
	return sampleConfig
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("cardsort.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir, c.Paths.CSVDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if dir := filepath.Dir(c.Paths.StateFile); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create state directory %q: %w", dir, err)
		}
	}
	return nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}
