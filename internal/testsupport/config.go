package testsupport

import (
	"path/filepath"
	"testing"

	"rulecast/internal/config"
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
	cfgVal.Paths.ManifestDir = filepath.Join(base, "manifests")
	cfgVal.Paths.StoryboardDir = filepath.Join(base, "storyboards")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.API.Bind = "127.0.0.1:0"

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

// WithContractPath points the config at a contract file.
func WithContractPath(path string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.ContractPath = path
	}
}

// WithOCR overrides the OCR fallback policy.
func WithOCR(enabled bool, minDensity int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.OCR.Enabled = enabled
		b.cfg.OCR.MinTextDensity = minDensity
	}
}

// WithS3 selects the object-store backend.
func WithS3(bucket, prefix string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Storage.Backend = config.StorageS3
		b.cfg.Storage.S3.Bucket = bucket
		b.cfg.Storage.S3.Prefix = prefix
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
