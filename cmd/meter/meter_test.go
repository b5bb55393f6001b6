package meter

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pifon/rmsmeter/internal/conf"
)

func testSettings() *conf.Settings {
	return &conf.Settings{
		Meter: conf.MeterSettings{
			SampleRate: 8000,
			Interval:   1,
			Scale:      100,
			Channels:   1,
			WaitAbove:  -1,
		},
		Telemetry: conf.TelemetrySettings{Listen: "127.0.0.1:0"},
	}
}

func TestRunPrintsOneLinePerBlock(t *testing.T) {
	settings := testSettings()
	// 8 frames per block, three blocks of silence
	in := bytes.NewReader(make([]byte, 3*8*2))
	var out bytes.Buffer

	require.NoError(t, Run(t.Context(), settings, in, &out))
	assert.Equal(t, "0\n0\n0\n", out.String())
}

func TestRunWithTelemetryStopsEndpoint(t *testing.T) {
	settings := testSettings()
	settings.Telemetry.Enabled = true
	in := bytes.NewReader(make([]byte, 2*8*2))
	var out bytes.Buffer

	require.NoError(t, Run(t.Context(), settings, in, &out))
	assert.Equal(t, 2, strings.Count(out.String(), "\n"))
}

func TestRunFailsOnBadListenAddress(t *testing.T) {
	settings := testSettings()
	settings.Telemetry.Enabled = true
	settings.Telemetry.Listen = "not-an-address"
	var out bytes.Buffer

	err := Run(t.Context(), settings, bytes.NewReader(nil), &out)
	require.Error(t, err)
}

func TestFlagsBindToSettingsKeys(t *testing.T) {
	ctx, err := conf.NewContext()
	require.NoError(t, err)

	cmd := Command(ctx)
	set := func(c *cobra.Command, name, value string) {
		t.Helper()
		require.NoError(t, c.Flags().Set(name, value))
	}
	set(cmd, "rate", "16000")
	set(cmd, "interval", "100")
	set(cmd, "waitabove", "5")
	set(cmd, "showdelta", "true")

	assert.Equal(t, 16000, ctx.Viper.GetInt("meter.samplerate"))
	assert.Equal(t, 100, ctx.Viper.GetInt("meter.interval"))
	assert.Equal(t, 5, ctx.Viper.GetInt("meter.waitabove"))
	assert.True(t, ctx.Viper.GetBool("meter.showdelta"))
	assert.Equal(t, 100, ctx.Viper.GetInt("meter.scale"), "unset flags fall through to defaults")
}

func TestShortFlagsMatchMeterOptions(t *testing.T) {
	ctx, err := conf.NewContext()
	require.NoError(t, err)
	cmd := Command(ctx)

	for short, long := range map[string]string{
		"r": "rate", "i": "interval", "b": "blocksize", "s": "scale", "c": "channels",
		"v": "verbose", "z": "zerorange", "w": "waitabove", "d": "showdelta",
	} {
		f := cmd.Flags().ShorthandLookup(short)
		require.NotNil(t, f, short)
		assert.Equal(t, long, f.Name)
	}
}
