package testsupport

import (
	"path/filepath"
	"testing"

	"loom/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.Pipeline.BaseURL = "http://127.0.0.1:0"
	cfg.Media.BaseURL = "http://127.0.0.1:0"

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithPipelineURL overrides the pipeline endpoint on the test config.
func WithPipelineURL(url string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Pipeline.BaseURL = url
	}
}

// WithMediaURL overrides the media enrichment endpoint on the test config.
func WithMediaURL(url string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Media.BaseURL = url
	}
}
