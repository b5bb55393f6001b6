package logger

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	DefaultLevel string            `yaml:"default_level" json:"default_level" mapstructure:"defaultlevel"` // default log level for all modules
	Timezone     string            `yaml:"timezone" json:"timezone" mapstructure:"timezone"`               // "Local", "UTC", or IANA timezone name
	Console      *ConsoleOutput    `yaml:"console" json:"console" mapstructure:"console"`                  // console output configuration
	FileOutput   *FileOutput       `yaml:"file_output" json:"file_output" mapstructure:"fileoutput"`       // file output configuration
	ModuleLevels map[string]string `yaml:"module_levels" json:"module_levels" mapstructure:"modulelevels"` // per-module log levels
}

// ConsoleOutput represents console logging configuration.
// Console output is text without timestamps; the supervisor adds them.
type ConsoleOutput struct {
	Enabled bool   `yaml:"enabled" json:"enabled" mapstructure:"enabled"`
	Level   string `yaml:"level" json:"level" mapstructure:"level"`
}

// FileOutput represents file logging configuration.
// File output is JSON with RFC3339 timestamps.
type FileOutput struct {
	Enabled bool   `yaml:"enabled" json:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" json:"path" mapstructure:"path"`
	Level   string `yaml:"level" json:"level" mapstructure:"level"`
}

// Default values for logging configuration.
const (
	DefaultLogLevel       = "info"
	DefaultLogPath        = "logs/rmsmeter.log"
	DefaultConsoleEnabled = true
)

// applyConfigDefaults fills nil sections with defaults. File output stays
// disabled unless configured.
func applyConfigDefaults(cfg *LoggingConfig) {
	if cfg == nil {
		return
	}

	if cfg.DefaultLevel == "" {
		cfg.DefaultLevel = DefaultLogLevel
	}

	if cfg.Console == nil {
		cfg.Console = &ConsoleOutput{
			Enabled: DefaultConsoleEnabled,
			Level:   cfg.DefaultLevel,
		}
	}
	if cfg.Console.Level == "" {
		cfg.Console.Level = cfg.DefaultLevel
	}

	if cfg.FileOutput != nil && cfg.FileOutput.Enabled {
		if cfg.FileOutput.Path == "" {
			cfg.FileOutput.Path = DefaultLogPath
		}
		if cfg.FileOutput.Level == "" {
			cfg.FileOutput.Level = cfg.DefaultLevel
		}
	}

	if cfg.ModuleLevels == nil {
		cfg.ModuleLevels = make(map[string]string)
	}
}
