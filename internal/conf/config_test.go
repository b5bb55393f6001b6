package conf

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/pifon/rmsmeter/internal/errors"
)

// loadFrom loads settings with the search path pinned to an empty temp dir
func loadFrom(t *testing.T, configFile string) (*Settings, error) {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	v, err := NewViper()
	require.NoError(t, err)
	return Load(v, configFile)
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rmsmeter.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	settings, err := loadFrom(t, "")
	require.NoError(t, err)

	m := settings.Meter
	assert.Equal(t, 44100, m.SampleRate)
	assert.Equal(t, 250, m.Interval)
	assert.Equal(t, 0, m.BlockSize)
	assert.Equal(t, 100, m.Scale)
	assert.Equal(t, 1, m.Channels)
	assert.Equal(t, 0, m.ZeroRange)
	assert.Equal(t, -1, m.WaitAbove)
	assert.False(t, m.ShowDelta)
	assert.False(t, m.Verbose)

	assert.Equal(t, 11025, m.FrameCount())
	assert.Equal(t, 22050, m.BufferBytes())
	assert.Equal(t, 250*time.Millisecond, m.IntervalDuration())

	d := settings.Detector
	assert.Equal(t, 1, d.ALevel)
	assert.Equal(t, 5*time.Second, d.Sustain)
	assert.Equal(t, 10*time.Second, d.Respite)
	assert.Equal(t, 500*time.Millisecond, d.Update)

	require.NotNil(t, settings.Logging.Console)
	assert.True(t, settings.Logging.Console.Enabled)
	assert.False(t, settings.Telemetry.Enabled)
}

func TestLoadConfigFile(t *testing.T) {
	path := writeConfig(t, `
meter:
  samplerate: 8000
  interval: 100
  channels: 2
  zerorange: 64
detector:
  sustain: 2s
`)

	settings, err := loadFrom(t, path)
	require.NoError(t, err)

	assert.Equal(t, 8000, settings.Meter.SampleRate)
	assert.Equal(t, 800, settings.Meter.FrameCount())
	assert.Equal(t, 800*2*2, settings.Meter.BufferBytes())
	assert.Equal(t, 64, settings.Meter.ZeroRange)
	assert.Equal(t, 2*time.Second, settings.Detector.Sustain)
	assert.Equal(t, 100, settings.Meter.Scale, "unset keys keep defaults")
}

func TestLoadMissingExplicitFileFails(t *testing.T) {
	_, err := loadFrom(t, filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}

func TestPrecedenceFlagOverEnvOverFile(t *testing.T) {
	path := writeConfig(t, `
meter:
  scale: 50
  interval: 500
  channels: 2
`)
	t.Setenv("RMSMETER_SCALE", "200")
	t.Setenv("RMSMETER_INTERVAL", "125")
	t.Chdir(t.TempDir())

	v, err := NewViper()
	require.NoError(t, err)

	flags := pflag.NewFlagSet("meter", pflag.ContinueOnError)
	flags.Int("scale", 0, "")
	require.NoError(t, v.BindPFlag("meter.scale", flags.Lookup("scale")))
	require.NoError(t, flags.Parse([]string{"--scale=1000"}))

	settings, err := Load(v, path)
	require.NoError(t, err)

	assert.Equal(t, 1000, settings.Meter.Scale, "flag wins")
	assert.Equal(t, 125, settings.Meter.Interval, "env beats file")
	assert.Equal(t, 2, settings.Meter.Channels, "file beats default")
}

func TestInvalidEnvValueIsReported(t *testing.T) {
	t.Setenv("RMSMETER_CHANNELS", "zero")

	_, err := NewViper()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RMSMETER_CHANNELS")
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	path := writeConfig(t, `
meter:
  channels: 0
  zerorange: 32768
`)

	_, err := loadFrom(t, path)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))

	var ve ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Errors, 2)
}

func TestWriteYAML(t *testing.T) {
	settings, err := loadFrom(t, "")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteYAML(&buf, settings))

	var doc map[string]map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, 44100, doc["meter"]["samplerate"])
	assert.Equal(t, "5s", doc["detector"]["sustain"])
	assert.Equal(t, "500ms", doc["detector"]["update"])
}
