package config

const (
	defaultDataDir                = "~/.local/share/loom"
	defaultLogDir                 = "~/.local/share/loom/logs"
	defaultAPIBind                = "127.0.0.1:7512"
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
	defaultPipelineTimeoutSeconds = 900
	defaultMediaTimeoutSeconds    = 300
	defaultDispatchPollInterval   = 5
	defaultErrorRetryInterval     = 15
	defaultDispatchMaxAttempts    = 3
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Pipeline: Pipeline{
			TimeoutSeconds: defaultPipelineTimeoutSeconds,
			ForcePublish:   true,
		},
		Media: Media{
			Enabled:        true,
			TimeoutSeconds: defaultMediaTimeoutSeconds,
		},
		Engine: Engine{
			DispatchPollInterval: defaultDispatchPollInterval,
			ErrorRetryInterval:   defaultErrorRetryInterval,
			DispatchMaxAttempts:  defaultDispatchMaxAttempts,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
