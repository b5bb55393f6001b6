package observability

import "github.com/pifon/rmsmeter/internal/logger"

// GetLogger returns the telemetry logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("telemetry")
}
