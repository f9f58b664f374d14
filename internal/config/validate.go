package config

import (
	"errors"
	"fmt"
)

var validModes = map[string]struct{}{
	"price": {},
	"color": {},
	"mixed": {},
}

var validSources = map[string]struct{}{
	"scryfall":  {},
	"tcgplayer": {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateSorting(); err != nil {
		return err
	}
	if err := c.validateRecognition(); err != nil {
		return err
	}
	if err := c.validatePricing(); err != nil {
		return err
	}
	if err := c.validateCapture(); err != nil {
		return err
	}
	if err := c.validateActuator(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateSorting() error {
	if _, ok := validModes[c.Sorting.Mode]; !ok {
		return fmt.Errorf("sorting.mode must be one of price, color, mixed (got %q)", c.Sorting.Mode)
	}
	if c.Sorting.PriceThresholdUSD < 0 {
		return errors.New("sorting.price_threshold_usd must not be negative")
	}
	return nil
}

func (c *Config) validateRecognition() error {
	values := map[string]float64{
		"recognition.exact_match_confidence":  c.Recognition.ExactMatchConfidence,
		"recognition.remote_match_confidence": c.Recognition.RemoteMatchConfidence,
		"recognition.ocr_only_confidence":     c.Recognition.OCROnlyConfidence,
		"recognition.similarity_cutoff":       c.Recognition.SimilarityCutoff,
		"recognition.confidence_floor":        c.Recognition.ConfidenceFloor,
	}
	for key, value := range values {
		if value < 0 || value > 1 {
			return fmt.Errorf("%s must be between 0 and 1 (got %v)", key, value)
		}
	}
	return nil
}

func (c *Config) validatePricing() error {
	if _, ok := validSources[c.Pricing.Primary]; !ok {
		return fmt.Errorf("pricing.primary must be one of scryfall, tcgplayer (got %q)", c.Pricing.Primary)
	}
	if _, ok := validSources[c.Pricing.Fallback]; !ok {
		return fmt.Errorf("pricing.fallback must be one of scryfall, tcgplayer (got %q)", c.Pricing.Fallback)
	}
	// A credential-less tcgplayer fallback is tolerated: the daemon drops
	// the fallback at wiring time. The primary source must actually work.
	if c.Pricing.Primary == "tcgplayer" && (c.TCGplayer.PublicKey == "" || c.TCGplayer.SecretKey == "") {
		return errors.New("tcgplayer.public_key and tcgplayer.secret_key are required when tcgplayer is the primary price source. Set TCGPLAYER_PUBLIC_KEY/TCGPLAYER_SECRET_KEY env vars or edit the config file")
	}
	return nil
}

func (c *Config) validateCapture() error {
	if c.Sorting.MockMode {
		return nil
	}
	if c.Capture.Command == "" {
		return errors.New("capture.command must be set (or enable sorting.mock_mode)")
	}
	return nil
}

func (c *Config) validateActuator() error {
	if c.Sorting.MockMode {
		return nil
	}
	if c.Actuator.SerialPort == "" {
		return errors.New("actuator.serial_port must be set (or enable sorting.mock_mode)")
	}
	if len(c.Actuator.ChannelMap) == 0 {
		return errors.New("actuator.channel_map must map at least one bin to a servo channel")
	}
	for bin, channel := range c.Actuator.ChannelMap {
		if channel < 0 || channel > 15 {
			return fmt.Errorf("actuator.channel_map[%s] must be a PCA9685 channel between 0 and 15 (got %d)", bin, channel)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
		return nil
	default:
		return fmt.Errorf("logging.format must be console or json (got %q)", c.Logging.Format)
	}
}
