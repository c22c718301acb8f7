package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"airlock/internal/config"
)

func TestLoadDefaultsAndExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "airlock", "data")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.Paths.APIBind != "127.0.0.1:7319" {
		t.Fatalf("unexpected api bind: %q", cfg.Paths.APIBind)
	}
	if cfg.Parser.Provider != "stub" {
		t.Fatalf("unexpected parser provider: %q", cfg.Parser.Provider)
	}
	if cfg.Grading.ConfidenceThreshold != 0.90 {
		t.Fatalf("unexpected confidence threshold: %v", cfg.Grading.ConfidenceThreshold)
	}
	if cfg.Matching.WindowDays != 7 || cfg.Matching.AmountTolerance != 0.05 {
		t.Fatalf("unexpected matching tolerances: %+v", cfg.Matching)
	}
	if cfg.Workflow.WorkerCount != 4 {
		t.Fatalf("unexpected worker count: %d", cfg.Workflow.WorkerCount)
	}
	if got := cfg.DatabasePath(); got != filepath.Join(wantData, "airlock.db") {
		t.Fatalf("unexpected db path: %q", got)
	}
}

func TestLoadParsesFileOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := strings.Join([]string{
		`[paths]`,
		`data_dir = "` + filepath.Join(dir, "data") + `"`,
		`blob_dir = "` + filepath.Join(dir, "blobs") + `"`,
		`[parser]`,
		`provider = "csv"`,
		`[matching]`,
		`window_days = 3`,
		`[logging]`,
		`format = "json"`,
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to exist")
	}
	if cfg.Parser.Provider != "csv" {
		t.Fatalf("unexpected provider: %q", cfg.Parser.Provider)
	}
	if cfg.Matching.WindowDays != 3 {
		t.Fatalf("unexpected window days: %d", cfg.Matching.WindowDays)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("unexpected log format: %q", cfg.Logging.Format)
	}
	// Untouched sections keep defaults.
	if cfg.Matching.AmountTolerance != 0.05 {
		t.Fatalf("unexpected amount tolerance: %v", cfg.Matching.AmountTolerance)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"bad provider", func(c *config.Config) { c.Parser.Provider = "llm" }},
		{"threshold above one", func(c *config.Config) { c.Grading.ConfidenceThreshold = 1.5 }},
		{"negative window", func(c *config.Config) { c.Matching.WindowDays = -1 }},
		{"tolerance out of range", func(c *config.Config) { c.Matching.AmountTolerance = 1.0 }},
		{"missing clearing asset", func(c *config.Config) { c.Ledger.ClearingAssetID = " " }},
		{"bad log format", func(c *config.Config) { c.Logging.Format = "yaml" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestCreateSampleRefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	if err := config.CreateSample(path); err == nil {
		t.Fatal("expected error when sample already exists")
	}
}
