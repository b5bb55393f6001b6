package conf

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSettings() *Settings {
	return &Settings{
		Meter: MeterSettings{
			SampleRate: 44100,
			Interval:   250,
			Scale:      100,
			Channels:   1,
			WaitAbove:  -1,
		},
		Detector: DetectorSettings{
			ALevel:  1,
			SLevel:  1,
			Sustain: 5 * time.Second,
			Respite: 10 * time.Second,
			Update:  500 * time.Millisecond,
		},
		Telemetry: TelemetrySettings{Listen: "127.0.0.1:8090"},
	}
}

func TestValidateSettings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(s *Settings)
		wantErr string
	}{
		{"defaults are valid", func(*Settings) {}, ""},
		{"explicit block size ignores interval derivation", func(s *Settings) {
			s.Meter.SampleRate = 1
			s.Meter.BlockSize = 1024
		}, ""},
		{"zero sample rate", func(s *Settings) { s.Meter.SampleRate = 0 }, "sample rate"},
		{"zero interval", func(s *Settings) { s.Meter.Interval = 0 }, "interval"},
		{"negative block size", func(s *Settings) { s.Meter.BlockSize = -1 }, "block size must not be negative"},
		{"zero channels", func(s *Settings) { s.Meter.Channels = 0 }, "channels"},
		{"zero scale", func(s *Settings) { s.Meter.Scale = 0 }, "scale"},
		{"negative zero range", func(s *Settings) { s.Meter.ZeroRange = -1 }, "zero range"},
		{"zero range at full scale", func(s *Settings) { s.Meter.ZeroRange = FullScale }, "zero range"},
		{"zero range just below full scale", func(s *Settings) { s.Meter.ZeroRange = FullScale - 1 }, ""},
		{"derived block size of zero", func(s *Settings) {
			s.Meter.SampleRate = 3
			s.Meter.Interval = 100
		}, "resolves to 0 frames"},
		{"buffer too large", func(s *Settings) {
			s.Meter.BlockSize = MaxBufferBytes
			s.Meter.Channels = 2
		}, "buffer limit"},
		{"negative wait above disables pacing", func(s *Settings) { s.Meter.WaitAbove = -5 }, ""},
		{"detector update zero", func(s *Settings) { s.Detector.Update = 0 }, "update period"},
		{"detector level zero", func(s *Settings) { s.Detector.ALevel = 0 }, "attack level"},
		{"bad telemetry listen", func(s *Settings) {
			s.Telemetry.Enabled = true
			s.Telemetry.Listen = "8090"
		}, "host:port"},
		{"sentry without dsn", func(s *Settings) { s.Sentry.Enabled = true }, "DSN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := validSettings()
			tt.mutate(s)
			err := ValidateSettings(s)

			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateSettingsCollectsAllErrors(t *testing.T) {
	t.Parallel()

	s := validSettings()
	s.Meter.SampleRate = 0
	s.Meter.Channels = 0
	s.Meter.Scale = 0

	err := ValidateSettings(s)
	require.Error(t, err)

	var ve ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Errors, 3)
}

func TestValidateEnvHelpers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		fn      func(string) error
		value   string
		wantErr bool
	}{
		{"bool true", validateEnvBool, "true", false},
		{"bool spaced", validateEnvBool, " 1 ", false},
		{"bool yes", validateEnvBool, "yes", true},
		{"int negative", validateEnvInt, "-1", false},
		{"int text", validateEnvInt, "ten", true},
		{"positive zero", validateEnvPositiveInt, "0", true},
		{"positive ok", validateEnvPositiveInt, "44100", false},
		{"non-negative zero", validateEnvNonNegativeInt, "0", false},
		{"non-negative negative", validateEnvNonNegativeInt, "-2", true},
		{"zero range max", validateEnvZeroRange, "32767", false},
		{"zero range full scale", validateEnvZeroRange, "32768", true},
		{"duration ok", validateEnvDuration, "750ms", false},
		{"duration bare number", validateEnvDuration, "5", true},
		{"duration negative", validateEnvDuration, "-1s", true},
		{"log level", validateEnvLogLevel, "DEBUG", false},
		{"log level bogus", validateEnvLogLevel, "loud", true},
		{"listen ok", validateEnvListen, ":9100", false},
		{"listen missing port", validateEnvListen, "localhost", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.fn(tt.value)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
