package conf

import "github.com/pifon/rmsmeter/internal/logger"

// GetLogger returns the config package logger scoped to the config module.
// It is fetched from the global logger each call so that a logger installed
// after package init is picked up.
func GetLogger() logger.Logger {
	return logger.Global().Module("config")
}
