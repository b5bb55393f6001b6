// Package conf loads, validates and prints rmsmeter settings.
package conf

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/pifon/rmsmeter/internal/errors"
	"github.com/pifon/rmsmeter/internal/logger"
)

const (
	// ConfigName is the base name of the config file searched in ConfigPaths
	ConfigName = "rmsmeter"

	// FullScale is the magnitude of the most negative 16-bit sample
	FullScale = 32768

	// BytesPerSample is the width of one signed 16-bit sample
	BytesPerSample = 2

	// MaxBufferBytes bounds the block buffer allocated at startup
	MaxBufferBytes = 64 << 20
)

// MeterSettings configures the RMS meter.
type MeterSettings struct {
	SampleRate int  `yaml:"samplerate" mapstructure:"samplerate"` // Hz
	Interval   int  `yaml:"interval" mapstructure:"interval"`     // ms, block duration and pacing target
	BlockSize  int  `yaml:"blocksize" mapstructure:"blocksize"`   // frames, 0 derives it from Interval
	Scale      int  `yaml:"scale" mapstructure:"scale"`           // output ceiling
	Channels   int  `yaml:"channels" mapstructure:"channels"`     // interleaved channels, only the first is measured
	ZeroRange  int  `yaml:"zerorange" mapstructure:"zerorange"`   // dead-zone half-width, 0 disables the gate
	WaitAbove  int  `yaml:"waitabove" mapstructure:"waitabove"`   // ms, negative disables pacing sleeps
	ShowDelta  bool `yaml:"showdelta" mapstructure:"showdelta"`   // prefix each line with the block delta
	Verbose    bool `yaml:"verbose" mapstructure:"verbose"`       // per-block diagnostics on stderr
	NonBlock   bool `yaml:"nonblock" mapstructure:"nonblock"`     // put stdin into O_NONBLOCK mode
}

// FrameCount returns the configured block size, or the number of frames
// in one interval when no block size is set.
func (m *MeterSettings) FrameCount() int {
	if m.BlockSize != 0 {
		return m.BlockSize
	}
	return m.SampleRate * m.Interval / 1000
}

// BufferBytes returns the byte size of one block.
func (m *MeterSettings) BufferBytes() int {
	return m.FrameCount() * BytesPerSample * m.Channels
}

// IntervalDuration returns Interval as a time.Duration.
func (m *MeterSettings) IntervalDuration() time.Duration {
	return time.Duration(m.Interval) * time.Millisecond
}

// DetectorSettings configures the loudness state machine of the detect command.
type DetectorSettings struct {
	ALevel  int           `yaml:"alevel" mapstructure:"alevel"`   // level to reach during attack
	SLevel  int           `yaml:"slevel" mapstructure:"slevel"`   // level to stay below during sustain
	Attack  time.Duration `yaml:"attack" mapstructure:"attack"`   // loudness required before active
	Sustain time.Duration `yaml:"sustain" mapstructure:"sustain"` // silence required before respite
	Respite time.Duration `yaml:"respite" mapstructure:"respite"` // pause before returning to idle
	Update  time.Duration `yaml:"update" mapstructure:"update"`   // peak evaluation period
	Trace   bool          `yaml:"trace" mapstructure:"trace"`     // emit level lines while idle
}

// MarshalYAML renders durations as strings ("5s") instead of nanoseconds.
func (d DetectorSettings) MarshalYAML() (any, error) {
	return struct {
		ALevel  int    `yaml:"alevel"`
		SLevel  int    `yaml:"slevel"`
		Attack  string `yaml:"attack"`
		Sustain string `yaml:"sustain"`
		Respite string `yaml:"respite"`
		Update  string `yaml:"update"`
		Trace   bool   `yaml:"trace"`
	}{
		ALevel:  d.ALevel,
		SLevel:  d.SLevel,
		Attack:  d.Attack.String(),
		Sustain: d.Sustain.String(),
		Respite: d.Respite.String(),
		Update:  d.Update.String(),
		Trace:   d.Trace,
	}, nil
}

// TelemetrySettings configures the Prometheus endpoint.
type TelemetrySettings struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Listen  string `yaml:"listen" mapstructure:"listen"` // host:port for /metrics
}

// SentrySettings configures error reporting.
type SentrySettings struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	DSN     string `yaml:"dsn" mapstructure:"dsn"`
}

// Settings is the complete rmsmeter configuration. It is immutable after Load.
type Settings struct {
	Meter     MeterSettings        `yaml:"meter" mapstructure:"meter"`
	Detector  DetectorSettings     `yaml:"detector" mapstructure:"detector"`
	Logging   logger.LoggingConfig `yaml:"logging" mapstructure:"logging"`
	Telemetry TelemetrySettings    `yaml:"telemetry" mapstructure:"telemetry"`
	Sentry    SentrySettings       `yaml:"sentry" mapstructure:"sentry"`
}

// ConfigPaths returns the directories searched for rmsmeter.yaml, in order.
func ConfigPaths() []string {
	paths := []string{"."}
	if homeDir, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(homeDir, ".config", ConfigName))
	}
	return append(paths, filepath.Join("/etc", ConfigName))
}

// NewViper returns a viper instance with defaults and environment bindings.
// Callers bind their command-line flags to it before calling Load.
func NewViper() (*viper.Viper, error) {
	v := viper.New()
	setDefaultConfig(v)
	if err := bindEnvVars(v); err != nil {
		return nil, errors.New(err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("operation", "bind-env").
			Build()
	}
	return v, nil
}

// Load reads the optional config file, unmarshals and validates the settings.
// An empty configFile searches ConfigPaths; a missing file there is not an error.
func Load(v *viper.Viper, configFile string) (*Settings, error) {
	if err := readConfigFile(v, configFile); err != nil {
		return nil, err
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, errors.New(err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("operation", "unmarshal").
			Build()
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, errors.New(err).
			Component("conf").
			Category(errors.CategoryValidation).
			Build()
	}

	if used := v.ConfigFileUsed(); used != "" {
		GetLogger().Debug("loaded config file", logger.String("path", used))
	}

	return settings, nil
}

func readConfigFile(v *viper.Viper, configFile string) error {
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(ConfigName)
		v.SetConfigType("yaml")
		for _, path := range ConfigPaths() {
			v.AddConfigPath(path)
		}
	}

	err := v.ReadInConfig()
	if err == nil {
		return nil
	}

	var notFound viper.ConfigFileNotFoundError
	if configFile == "" && errors.As(err, &notFound) {
		return nil
	}

	return errors.New(err).
		Component("conf").
		Category(errors.CategoryConfiguration).
		Context("operation", "read-config").
		Context("config_file", configFile).
		Build()
}

// WriteYAML prints settings as YAML.
func WriteYAML(w io.Writer, settings *Settings) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(settings); err != nil {
		return fmt.Errorf("error marshaling settings to YAML: %w", err)
	}
	return enc.Close()
}
