package detector

import "github.com/pifon/rmsmeter/internal/logger"

// GetLogger returns the detector logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("detector")
}
