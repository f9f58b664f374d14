package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeSorting()
	c.normalizePricing()
	c.normalizeTCGplayer()
	c.normalizeTools()
	c.normalizeWorkflow()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.CSVDir, err = expandPath(c.Paths.CSVDir); err != nil {
		return fmt.Errorf("paths.csv_dir: %w", err)
	}
	if c.Paths.StateFile, err = expandPath(c.Paths.StateFile); err != nil {
		return fmt.Errorf("paths.state_file: %w", err)
	}
	if c.Paths.CardIndex, err = expandPath(c.Paths.CardIndex); err != nil {
		return fmt.Errorf("paths.card_index: %w", err)
	}
	c.Paths.Socket = strings.TrimSpace(c.Paths.Socket)
	if c.Paths.Socket == "" {
		c.Paths.Socket = filepath.Join(c.Paths.DataDir, "cardsortd.sock")
	} else if c.Paths.Socket, err = expandPath(c.Paths.Socket); err != nil {
		return fmt.Errorf("paths.socket: %w", err)
	}
	return nil
}

func (c *Config) normalizeSorting() {
	c.Sorting.Mode = strings.ToLower(strings.TrimSpace(c.Sorting.Mode))
	if c.Sorting.Mode == "" {
		c.Sorting.Mode = defaultMode
	}
}

func (c *Config) normalizePricing() {
	c.Pricing.Primary = strings.ToLower(strings.TrimSpace(c.Pricing.Primary))
	c.Pricing.Fallback = strings.ToLower(strings.TrimSpace(c.Pricing.Fallback))
	if c.Pricing.Primary == "" {
		c.Pricing.Primary = defaultPricePrimary
	}
	if c.Pricing.Fallback == "" {
		c.Pricing.Fallback = defaultPriceFallback
	}
	if c.Pricing.CacheTTLHours <= 0 {
		c.Pricing.CacheTTLHours = defaultCacheTTLHours
	}
	if c.Pricing.RequestTimeout <= 0 {
		c.Pricing.RequestTimeout = defaultPricingRequestTimeout
	}
	c.Scryfall.BaseURL = strings.TrimRight(strings.TrimSpace(c.Scryfall.BaseURL), "/")
	if c.Scryfall.BaseURL == "" {
		c.Scryfall.BaseURL = defaultScryfallBaseURL
	}
}

func (c *Config) normalizeTCGplayer() {
	if c.TCGplayer.PublicKey == "" {
		if value, ok := os.LookupEnv("TCGPLAYER_PUBLIC_KEY"); ok {
			c.TCGplayer.PublicKey = value
		}
	}
	if c.TCGplayer.SecretKey == "" {
		if value, ok := os.LookupEnv("TCGPLAYER_SECRET_KEY"); ok {
			c.TCGplayer.SecretKey = value
		}
	}
	c.TCGplayer.BaseURL = strings.TrimRight(strings.TrimSpace(c.TCGplayer.BaseURL), "/")
	if c.TCGplayer.BaseURL == "" {
		c.TCGplayer.BaseURL = defaultTCGplayerBaseURL
	}
	c.TCGplayer.TokenURL = strings.TrimSpace(c.TCGplayer.TokenURL)
	if c.TCGplayer.TokenURL == "" {
		c.TCGplayer.TokenURL = c.TCGplayer.BaseURL + "/token"
	}
}

func (c *Config) normalizeTools() {
	c.Capture.Command = strings.TrimSpace(c.Capture.Command)
	if c.Capture.Timeout <= 0 {
		c.Capture.Timeout = defaultCaptureTimeout
	}
	c.OCR.Binary = strings.TrimSpace(c.OCR.Binary)
	if c.OCR.Binary == "" {
		c.OCR.Binary = defaultOCRBinary
	}
	if c.OCR.Language == "" {
		c.OCR.Language = defaultOCRLanguage
	}
	if c.OCR.PSM <= 0 {
		c.OCR.PSM = defaultOCRPSM
	}
	if c.OCR.Timeout <= 0 {
		c.OCR.Timeout = defaultOCRTimeout
	}
	if c.Actuator.Baud <= 0 {
		c.Actuator.Baud = defaultSerialBaud
	}
	if c.Actuator.DwellMillis <= 0 {
		c.Actuator.DwellMillis = defaultDwellMillis
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.CycleDelayMillis <= 0 {
		c.Workflow.CycleDelayMillis = defaultCycleDelayMillis
	}
	if c.Workflow.StopTimeoutSeconds <= 0 {
		c.Workflow.StopTimeoutSeconds = defaultStopTimeoutSeconds
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
