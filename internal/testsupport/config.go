package testsupport

import (
	"path/filepath"
	"testing"

	"tunecrawl/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Storage defaults to the in-memory backend and simulated source delays are
// disabled.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Storage.Backend = config.BackendMemory
	cfgVal.Storage.CatalogFile = filepath.Join(base, "data", "music-catalog.json")
	cfgVal.Storage.SQLitePath = filepath.Join(base, "data", "catalog.db")
	cfgVal.Storage.BadgerDir = ""
	cfgVal.Discovery.WebDelayMS = 0
	cfgVal.Discovery.FreshDelayMS = 0
	cfgVal.Logging.RetentionDays = 0

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

// WithBackend selects the storage backend.
func WithBackend(backend string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Storage.Backend = backend
	}
}

// WithSources replaces the discovery source list.
func WithSources(names ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Discovery.Sources = append([]string(nil), names...)
	}
}

// WithNtfyTopic points notifications at the given endpoint.
func WithNtfyTopic(topic string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.NtfyTopic = topic
		b.cfg.Notifications.Aggregation = true
		b.cfg.Notifications.Errors = true
	}
}

// WithMutation applies an arbitrary edit to the config.
func WithMutation(fn func(*config.Config)) ConfigOption {
	return func(b *configBuilder) {
		fn(b.cfg)
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
