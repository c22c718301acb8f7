package testsupport

import (
	"path/filepath"
	"testing"

	"airlock/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.BlobDir = filepath.Join(base, "blobs")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithClearingAsset overrides the clearing asset on the test config.
func WithClearingAsset(assetID string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Ledger.ClearingAssetID = assetID
	}
}

// WithStubConfidence overrides the stub parser confidence on the test config.
func WithStubConfidence(confidence float64) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Parser.StubConfidence = confidence
	}
}

// WithNtfyTopic points notifications at a test server topic URL.
func WithNtfyTopic(topic string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.NtfyTopic = topic
	}
}
