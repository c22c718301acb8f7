package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateParser(); err != nil {
		return err
	}
	if err := c.validateGrading(); err != nil {
		return err
	}
	if err := c.validateMatching(); err != nil {
		return err
	}
	if err := c.validateLedger(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must be set")
	}
	if strings.TrimSpace(c.Paths.BlobDir) == "" {
		return errors.New("paths.blob_dir must be set")
	}
	return nil
}

func (c *Config) validateParser() error {
	switch c.Parser.Provider {
	case "stub", "csv":
	default:
		return fmt.Errorf("parser.provider must be one of stub, csv; got %q", c.Parser.Provider)
	}
	if c.Parser.StubConfidence < 0 || c.Parser.StubConfidence > 1 {
		return errors.New("parser.stub_confidence must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateGrading() error {
	if c.Grading.ConfidenceThreshold < 0 || c.Grading.ConfidenceThreshold > 1 {
		return errors.New("grading.confidence_threshold must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateMatching() error {
	if c.Matching.WindowDays < 0 {
		return errors.New("matching.window_days must not be negative")
	}
	if c.Matching.AmountTolerance < 0 || c.Matching.AmountTolerance >= 1 {
		return errors.New("matching.amount_tolerance must be in [0, 1)")
	}
	return nil
}

func (c *Config) validateLedger() error {
	if strings.TrimSpace(c.Ledger.ClearingAssetID) == "" {
		return errors.New("ledger.clearing_asset_id must be set")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json; got %q", c.Logging.Format)
	}
	return nil
}
