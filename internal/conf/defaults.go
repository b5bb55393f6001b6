// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig(v *viper.Viper) {
	v.SetDefault("meter.samplerate", 44100)
	v.SetDefault("meter.interval", 250)
	v.SetDefault("meter.blocksize", 0)
	v.SetDefault("meter.scale", 100)
	v.SetDefault("meter.channels", 1)
	v.SetDefault("meter.zerorange", 0)
	v.SetDefault("meter.waitabove", -1)
	v.SetDefault("meter.showdelta", false)
	v.SetDefault("meter.verbose", false)
	v.SetDefault("meter.nonblock", false)

	v.SetDefault("detector.alevel", 1)
	v.SetDefault("detector.slevel", 1)
	v.SetDefault("detector.attack", time.Duration(0))
	v.SetDefault("detector.sustain", 5*time.Second)
	v.SetDefault("detector.respite", 10*time.Second)
	v.SetDefault("detector.update", 500*time.Millisecond)
	v.SetDefault("detector.trace", false)

	v.SetDefault("logging.defaultlevel", "info")
	v.SetDefault("logging.timezone", "Local")
	v.SetDefault("logging.console.enabled", true)
	v.SetDefault("logging.console.level", "info")
	v.SetDefault("logging.fileoutput.enabled", false)
	v.SetDefault("logging.fileoutput.path", "logs/rmsmeter.log")
	v.SetDefault("logging.fileoutput.level", "info")

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.listen", "127.0.0.1:8090")

	v.SetDefault("sentry.enabled", false)
	v.SetDefault("sentry.dsn", "")
}
