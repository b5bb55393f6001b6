// conf/validate.go

package conf

import (
	"fmt"
	"math"
	"net"
	"strings"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("validation errors: %s", strings.Join(ve.Errors, "; "))
}

// ValidateSettings validates the entire Settings struct. All problems are
// collected so that a single run reports every bad option.
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	ve.Errors = append(ve.Errors, validateMeterSettings(&settings.Meter)...)
	ve.Errors = append(ve.Errors, validateDetectorSettings(&settings.Detector)...)

	if settings.Telemetry.Enabled {
		if _, _, err := net.SplitHostPort(settings.Telemetry.Listen); err != nil {
			ve.Errors = append(ve.Errors, fmt.Sprintf("telemetry listen address %q must be host:port", settings.Telemetry.Listen))
		}
	}

	if settings.Sentry.Enabled && settings.Sentry.DSN == "" {
		ve.Errors = append(ve.Errors, "sentry is enabled but no DSN is configured")
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

// validateMeterSettings rejects settings that would make the loudness
// computation divide by zero or normalize by a non-positive ceiling.
func validateMeterSettings(m *MeterSettings) []string {
	var errs []string

	if m.SampleRate <= 0 {
		errs = append(errs, fmt.Sprintf("sample rate must be greater than 0, got %d", m.SampleRate))
	}
	if m.Interval <= 0 {
		errs = append(errs, fmt.Sprintf("interval must be greater than 0 ms, got %d", m.Interval))
	}
	if m.BlockSize < 0 {
		errs = append(errs, fmt.Sprintf("block size must not be negative, got %d", m.BlockSize))
	}
	if m.Channels < 1 {
		errs = append(errs, fmt.Sprintf("channels must be at least 1, got %d", m.Channels))
	}
	if m.Scale < 1 || m.Scale > math.MaxInt32 {
		errs = append(errs, fmt.Sprintf("scale must be between 1 and %d, got %d", math.MaxInt32, m.Scale))
	}
	if m.ZeroRange < 0 || m.ZeroRange >= FullScale {
		errs = append(errs, fmt.Sprintf("zero range must be between 0 and %d, got %d", FullScale-1, m.ZeroRange))
	}

	// Derived sizes only make sense once the inputs are sane
	if len(errs) > 0 {
		return errs
	}

	frames := m.FrameCount()
	if frames < 1 {
		errs = append(errs, fmt.Sprintf("block size resolves to %d frames (rate %d Hz, interval %d ms), need at least 1",
			frames, m.SampleRate, m.Interval))
		return errs
	}
	if int64(frames)*BytesPerSample*int64(m.Channels) > MaxBufferBytes {
		errs = append(errs, fmt.Sprintf("block of %d frames x %d channels exceeds the %d byte buffer limit",
			frames, m.Channels, MaxBufferBytes))
	}

	return errs
}

func validateDetectorSettings(d *DetectorSettings) []string {
	var errs []string

	if d.ALevel < 1 {
		errs = append(errs, fmt.Sprintf("detector attack level must be at least 1, got %d", d.ALevel))
	}
	if d.SLevel < 1 {
		errs = append(errs, fmt.Sprintf("detector sustain level must be at least 1, got %d", d.SLevel))
	}
	if d.Attack < 0 || d.Sustain < 0 || d.Respite < 0 {
		errs = append(errs, "detector attack, sustain and respite must not be negative")
	}
	if d.Update <= 0 {
		errs = append(errs, fmt.Sprintf("detector update period must be positive, got %s", d.Update))
	}

	return errs
}
