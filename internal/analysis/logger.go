package analysis

import "github.com/pifon/rmsmeter/internal/logger"

// GetLogger returns the meter loop logger. Verbose mode raises this module
// to debug.
func GetLogger() logger.Logger {
	return logger.Global().Module("meter")
}
