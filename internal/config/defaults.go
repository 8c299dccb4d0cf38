package config

const (
	defaultDataDir          = "~/.local/share/docflow"
	defaultLogDir           = "~/.local/share/docflow/logs"
	defaultAPIBind          = "127.0.0.1:7497"
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultOperationTimeout = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Engine: Engine{
			OperationTimeout: defaultOperationTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
