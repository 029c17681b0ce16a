package logger

// Config controls log output. It is embedded in the global configuration
// under the log_config section.
type Config struct {
	LogLevel      string `json:"log_level,omitempty" yaml:"log_level,omitempty" validate:"omitempty,loglevel"`
	LogFormat     string `json:"log_format,omitempty" yaml:"log_format,omitempty" validate:"omitempty,logformat"`
	EnableConsole bool   `json:"enable_console" yaml:"enable_console"`
	LogFile       string `json:"log_file,omitempty" yaml:"log_file,omitempty"`
	MaxLogSizeMB  int    `json:"max_log_size_mb,omitempty" yaml:"max_log_size_mb,omitempty" validate:"omitempty,min=1"`
	MaxLogBackups int    `json:"max_log_backups,omitempty" yaml:"max_log_backups,omitempty" validate:"omitempty,min=0"`
}

// NewDefaultConfig returns console-only info-level logging.
func NewDefaultConfig() Config {
	return Config{
		LogLevel:      "info",
		LogFormat:     "console",
		EnableConsole: true,
		MaxLogSizeMB:  100,
		MaxLogBackups: 3,
	}
}
