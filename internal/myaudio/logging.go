package myaudio

import "github.com/pifon/rmsmeter/internal/logger"

// GetLogger returns the myaudio logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("meter")
}
