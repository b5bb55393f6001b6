package analysis

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/pifon/rmsmeter/internal/conf"
	"github.com/pifon/rmsmeter/internal/errors"
	"github.com/pifon/rmsmeter/internal/logger"
	"github.com/pifon/rmsmeter/internal/myaudio"
	"github.com/pifon/rmsmeter/internal/observability/metrics"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// stepClock only moves when advanced or slept on
type stepClock struct {
	now    time.Time
	perNow time.Duration
}

func (c *stepClock) Now() time.Time {
	c.now = c.now.Add(c.perNow)
	return c.now
}

func (c *stepClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.now = c.now.Add(d)
	return nil
}

func defaultSettings() conf.MeterSettings {
	return conf.MeterSettings{
		SampleRate: 44100,
		Interval:   250,
		Scale:      100,
		Channels:   1,
		WaitAbove:  -1,
	}
}

func pcmBlock(n int, pattern ...int16) []byte {
	buf := make([]byte, 2*n)
	for i := range n {
		binary.LittleEndian.PutUint16(buf[2*i:], uint16(pattern[i%len(pattern)])) //nolint:gosec // reinterpret as unsigned
	}
	return buf
}

func runMeter(t *testing.T, settings conf.MeterSettings, in io.Reader, opts ...Option) (string, error) {
	t.Helper()
	var out bytes.Buffer
	opts = append([]Option{
		WithClock(&stepClock{now: time.Unix(1_700_000_000, 0)}),
		WithLogger(logger.NewSlogLogger(io.Discard, logger.LogLevelInfo, nil)),
	}, opts...)

	m, err := NewMeter(&settings, in, &out, opts...)
	require.NoError(t, err)
	err = m.Run(t.Context())
	return out.String(), err
}

func TestSilentBlockReportsZero(t *testing.T) {
	settings := defaultSettings()
	require.Equal(t, 11025, settings.FrameCount())

	out, err := runMeter(t, settings, bytes.NewReader(pcmBlock(11025, 0)))
	require.NoError(t, err, "end of input ends the run cleanly")
	assert.Equal(t, "0\n", out)
}

func TestFullScaleAlternatingBlock(t *testing.T) {
	out, err := runMeter(t, defaultSettings(), bytes.NewReader(pcmBlock(11025, 32767, -32768)))
	require.NoError(t, err)

	v, err := strconv.Atoi(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.InDelta(t, 100, v, 1)
}

func TestBackToBackBlocksArePacedToInterval(t *testing.T) {
	settings := defaultSettings()
	settings.ShowDelta = true
	settings.WaitAbove = 2

	in := bytes.NewReader(append(pcmBlock(11025, 0), pcmBlock(11025, 0)...))
	out, err := runMeter(t, settings, in)
	require.NoError(t, err)
	assert.Equal(t, "250 0\n250 0\n", out)
}

func TestUnpacedDeltaIsRawElapsedTime(t *testing.T) {
	settings := defaultSettings()
	settings.ShowDelta = true
	settings.BlockSize = 4

	// every Now call moves 3ms
	clock := &stepClock{now: time.Unix(0, 0), perNow: 3 * time.Millisecond}
	in := bytes.NewReader(pcmBlock(8, 0))
	out, err := runMeter(t, settings, in, WithClock(clock))
	require.NoError(t, err)
	assert.Equal(t, "3 0\n3 0\n", out)
}

func TestTrailingPartialBlockIsDiscarded(t *testing.T) {
	settings := defaultSettings()
	settings.BlockSize = 4

	var logBuf bytes.Buffer
	in := bytes.NewReader(append(pcmBlock(4, 16384, -16384), 1, 2, 3))
	out, err := runMeter(t, settings, in, WithLogger(logger.NewSlogLogger(&logBuf, logger.LogLevelInfo, nil)))
	require.NoError(t, err)
	assert.Equal(t, "50\n", out)
	assert.Contains(t, logBuf.String(), "discarding partial block")
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, io.ErrUnexpectedEOF }

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, io.ErrShortWrite }

func TestFatalErrorsStopTheLoop(t *testing.T) {
	settings := defaultSettings()
	settings.BlockSize = 4

	t.Run("read", func(t *testing.T) {
		registry := prometheus.NewRegistry()
		mm, err := metrics.NewMeterMetrics(registry)
		require.NoError(t, err)

		_, err = runMeter(t, settings, failingReader{}, WithRecorder(mm))
		require.ErrorIs(t, err, io.ErrUnexpectedEOF)
		assert.True(t, errors.IsCategory(err, errors.CategoryAudioSource))

		count, err := testutil.GatherAndCount(registry, "rmsmeter_errors_total")
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("write", func(t *testing.T) {
		m, err := NewMeter(&settings, bytes.NewReader(pcmBlock(4, 0)), failingWriter{},
			WithLogger(logger.NewSlogLogger(io.Discard, logger.LogLevelInfo, nil)))
		require.NoError(t, err)

		err = m.Run(t.Context())
		require.ErrorIs(t, err, io.ErrShortWrite)
		assert.True(t, errors.IsCategory(err, errors.CategoryFileIO))
		assert.Zero(t, m.Blocks())
	})
}

var errTryAgain = errors.NewStd("try again")

// idleReader never has data
type idleReader struct {
	reads  int
	cancel context.CancelFunc
}

func (r *idleReader) Read([]byte) (int, error) {
	r.reads++
	if r.reads == 1000 {
		r.cancel()
	}
	return 0, errTryAgain
}

func TestCancellationStopsWouldBlockSpin(t *testing.T) {
	settings := defaultSettings()

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	in := &idleReader{cancel: cancel}

	m, err := NewMeter(&settings, in, io.Discard,
		WithLogger(logger.NewSlogLogger(io.Discard, logger.LogLevelInfo, nil)),
		WithReaderOptions(myaudio.WithTransientClassifier(func(err error) bool {
			return errors.Is(err, errTryAgain)
		})))
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("meter did not stop")
	}
	assert.Equal(t, 1000, in.reads)
}

func TestCancellationDuringPacingSleep(t *testing.T) {
	settings := defaultSettings()
	settings.BlockSize = 4
	settings.WaitAbove = 0
	settings.Interval = 60_000

	pr, pw := io.Pipe()
	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	m, err := NewMeter(&settings, pr, io.Discard,
		WithLogger(logger.NewSlogLogger(io.Discard, logger.LogLevelInfo, nil)))
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	_, err = pw.Write(pcmBlock(4, 0))
	require.NoError(t, err)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("meter did not stop during the pacing sleep")
	}
	require.NoError(t, pw.Close())
}

func TestVerboseLogsPerBlockStatistics(t *testing.T) {
	settings := defaultSettings()
	settings.BlockSize = 4
	settings.ZeroRange = 10

	var logBuf bytes.Buffer
	_, err := runMeter(t, settings, bytes.NewReader(pcmBlock(4, 5, -200, 3000, 0)),
		WithLogger(logger.NewSlogLogger(&logBuf, logger.LogLevelDebug, nil)))
	require.NoError(t, err)

	logs := logBuf.String()
	var blockLine string
	sc := bufio.NewScanner(strings.NewReader(logs))
	for sc.Scan() {
		if strings.Contains(sc.Text(), "msg=block") {
			blockLine = sc.Text()
		}
	}
	require.NotEmpty(t, blockLine)
	assert.Contains(t, blockLine, "min=-200")
	assert.Contains(t, blockLine, "max=3000")
	assert.Contains(t, blockLine, "num_zero=2")
	assert.Contains(t, logs, "meter configuration")
	assert.Contains(t, logs, "block_size=4")
}

func TestRecorderSeesEveryBlock(t *testing.T) {
	settings := defaultSettings()
	settings.BlockSize = 2

	registry := prometheus.NewRegistry()
	mm, err := metrics.NewMeterMetrics(registry)
	require.NoError(t, err)

	out, err := runMeter(t, settings, bytes.NewReader(pcmBlock(6, 0)), WithRecorder(mm))
	require.NoError(t, err)
	assert.Equal(t, "0\n0\n0\n", out)

	expected := `
# HELP rmsmeter_blocks_total Total number of measured blocks
# TYPE rmsmeter_blocks_total counter
rmsmeter_blocks_total 3
# HELP rmsmeter_read_bytes_total Total bytes read from the input stream
# TYPE rmsmeter_read_bytes_total counter
rmsmeter_read_bytes_total 12
# HELP rmsmeter_zero_samples_total Analyzed samples suppressed by the dead zone
# TYPE rmsmeter_zero_samples_total counter
rmsmeter_zero_samples_total 6
`
	require.NoError(t, testutil.GatherAndCompare(registry, strings.NewReader(expected),
		"rmsmeter_blocks_total", "rmsmeter_read_bytes_total", "rmsmeter_zero_samples_total"))
}

func TestNewMeterRejectsBadLayout(t *testing.T) {
	settings := defaultSettings()
	settings.ZeroRange = 40000

	_, err := NewMeter(&settings, bytes.NewReader(nil), io.Discard)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
}
