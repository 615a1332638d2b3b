package testsupport

import (
	"path/filepath"
	"testing"

	"layersmith/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults to the sandbox engine and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.OutputDir = filepath.Join(base, "output")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Engine.Origin = "engine://sandbox"
	cfgVal.Fetch.AuthToken = ""

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

// WithAuthToken sets the default fetch token on the test config.
func WithAuthToken(token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Fetch.AuthToken = token
	}
}

// WithProcessEngine selects the process engine with the given argv.
func WithProcessEngine(command ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Engine.Kind = config.EngineProcess
		b.cfg.Engine.Command = command
		b.cfg.Engine.Origin = "engine://process"
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.OutputDir)
}
