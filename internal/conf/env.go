// env.go - Environment variable configuration and validation
package conf

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// envBinding holds metadata for environment variable bindings (internal use)
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVar    string             // Environment variable name
	Validate  func(string) error // Optional validation function
}

// getEnvBindings returns all environment variable bindings with validation
func getEnvBindings() []envBinding {
	return []envBinding{
		// Meter
		{"meter.samplerate", "RMSMETER_SAMPLERATE", validateEnvPositiveInt},
		{"meter.interval", "RMSMETER_INTERVAL", validateEnvPositiveInt},
		{"meter.blocksize", "RMSMETER_BLOCKSIZE", validateEnvNonNegativeInt},
		{"meter.scale", "RMSMETER_SCALE", validateEnvPositiveInt},
		{"meter.channels", "RMSMETER_CHANNELS", validateEnvPositiveInt},
		{"meter.zerorange", "RMSMETER_ZERORANGE", validateEnvZeroRange},
		{"meter.waitabove", "RMSMETER_WAITABOVE", validateEnvInt},
		{"meter.showdelta", "RMSMETER_SHOWDELTA", validateEnvBool},
		{"meter.verbose", "RMSMETER_VERBOSE", validateEnvBool},
		{"meter.nonblock", "RMSMETER_NONBLOCK", validateEnvBool},

		// Detector
		{"detector.alevel", "RMSMETER_DETECTOR_ALEVEL", validateEnvPositiveInt},
		{"detector.slevel", "RMSMETER_DETECTOR_SLEVEL", validateEnvPositiveInt},
		{"detector.attack", "RMSMETER_DETECTOR_ATTACK", validateEnvDuration},
		{"detector.sustain", "RMSMETER_DETECTOR_SUSTAIN", validateEnvDuration},
		{"detector.respite", "RMSMETER_DETECTOR_RESPITE", validateEnvDuration},
		{"detector.update", "RMSMETER_DETECTOR_UPDATE", validateEnvDuration},
		{"detector.trace", "RMSMETER_DETECTOR_TRACE", validateEnvBool},

		// Logging
		{"logging.defaultlevel", "RMSMETER_LOG_LEVEL", validateEnvLogLevel},
		{"logging.fileoutput.enabled", "RMSMETER_LOG_FILE_ENABLED", validateEnvBool},
		{"logging.fileoutput.path", "RMSMETER_LOG_FILE_PATH", nil},

		// Telemetry
		{"telemetry.enabled", "RMSMETER_TELEMETRY_ENABLED", validateEnvBool},
		{"telemetry.listen", "RMSMETER_TELEMETRY_LISTEN", validateEnvListen},
		{"sentry.enabled", "RMSMETER_SENTRY_ENABLED", validateEnvBool},
		{"sentry.dsn", "RMSMETER_SENTRY_DSN", nil},
	}
}

// bindEnvVars sets up environment variable bindings with validation (internal)
func bindEnvVars(v *viper.Viper) error {
	var warnings []string

	for _, binding := range getEnvBindings() {
		if err := v.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("Failed to bind %s: %v", binding.EnvVar, err))
			continue
		}

		if binding.Validate == nil {
			continue
		}
		if envValue, ok := os.LookupEnv(binding.EnvVar); ok {
			if err := binding.Validate(envValue); err != nil {
				warnings = append(warnings, fmt.Sprintf("Invalid %s value '%s': %v", binding.EnvVar, envValue, err))
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}

	return nil
}

// Environment variable validation functions

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(strings.TrimSpace(value)); err != nil {
		return fmt.Errorf("invalid boolean value '%s': must be true/false, 1/0, t/f", value)
	}
	return nil
}

func validateEnvInt(value string) error {
	if _, err := strconv.Atoi(strings.TrimSpace(value)); err != nil {
		return fmt.Errorf("invalid integer value '%s'", value)
	}
	return nil
}

func validateEnvPositiveInt(value string) error {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("invalid integer value '%s'", value)
	}
	if n <= 0 {
		return fmt.Errorf("must be greater than 0, got %d", n)
	}
	return nil
}

func validateEnvNonNegativeInt(value string) error {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("invalid integer value '%s'", value)
	}
	if n < 0 {
		return fmt.Errorf("must not be negative, got %d", n)
	}
	return nil
}

func validateEnvZeroRange(value string) error {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("invalid integer value '%s'", value)
	}
	if n < 0 || n >= FullScale {
		return fmt.Errorf("must be between 0 and %d, got %d", FullScale-1, n)
	}
	return nil
}

func validateEnvDuration(value string) error {
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("invalid duration '%s': use units like 500ms or 5s", value)
	}
	if d < 0 {
		return fmt.Errorf("must not be negative, got %s", d)
	}
	return nil
}

func validateEnvLogLevel(value string) error {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "trace", "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("log level must be one of trace, debug, info, warn, error, got '%s'", value)
	}
}

func validateEnvListen(value string) error {
	if _, _, err := net.SplitHostPort(value); err != nil {
		return fmt.Errorf("listen address must be host:port: %w", err)
	}
	return nil
}
