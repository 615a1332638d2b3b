package config

const (
	defaultOutputDir         = "~/Pictures/layersmith"
	defaultLogDir            = "~/.local/share/layersmith/logs"
	defaultEngineKind        = EngineSandbox
	defaultEngineOrigin      = "engine://sandbox"
	defaultFetchTimeout      = 30
	defaultFetchMaxBytes     = 50 << 20
	defaultFetchUserAgent    = "layersmith/dev"
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	defaultProcessOrigin     = "engine://process"
	authTokenEnv             = "LAYERSMITH_AUTH_TOKEN"
	defaultConfigPathPattern = "~/.config/layersmith/config.toml"
	projectConfigName        = "layersmith.toml"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
		},
		Engine: Engine{
			Kind: defaultEngineKind,
		},
		Fetch: Fetch{
			RequestTimeout: defaultFetchTimeout,
			MaxBytes:       defaultFetchMaxBytes,
			UserAgent:      defaultFetchUserAgent,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
