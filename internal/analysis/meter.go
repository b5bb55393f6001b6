// Package analysis runs the meter loop: read a block, estimate its loudness,
// pace, report.
package analysis

import (
	"context"
	"io"
	"time"

	"github.com/pifon/rmsmeter/internal/conf"
	"github.com/pifon/rmsmeter/internal/errors"
	"github.com/pifon/rmsmeter/internal/logger"
	"github.com/pifon/rmsmeter/internal/myaudio"
	"github.com/pifon/rmsmeter/internal/observability/metrics"
)

// Recorder receives per-block statistics. *metrics.MeterMetrics implements it.
type Recorder interface {
	RecordBlock(loudness int32, zeroSamples int)
	RecordRead(bytes, retries int)
	RecordPacing(delta, slept time.Duration)
	RecordError(stage string)
}

type noopRecorder struct{}

func (noopRecorder) RecordBlock(int32, int)                    {}
func (noopRecorder) RecordRead(int, int)                       {}
func (noopRecorder) RecordPacing(time.Duration, time.Duration) {}
func (noopRecorder) RecordError(string)                        {}

// Meter owns the block buffer, the pacing state and the stages of the loop.
type Meter struct {
	settings  conf.MeterSettings
	reader    *myaudio.BlockReader
	estimator *myaudio.Estimator
	pacer     *myaudio.PacingController
	reporter  *myaudio.Reporter
	recorder  Recorder
	log       logger.Logger
	block     []byte
	blocks    uint64
}

type meterOptions struct {
	clock      myaudio.Clock
	recorder   Recorder
	log        logger.Logger
	readerOpts []myaudio.BlockReaderOption
}

// Option configures a Meter
type Option func(*meterOptions)

// WithClock replaces the wall clock used for pacing.
func WithClock(c myaudio.Clock) Option {
	return func(o *meterOptions) { o.clock = c }
}

// WithRecorder sends per-block statistics to r.
func WithRecorder(r Recorder) Option {
	return func(o *meterOptions) { o.recorder = r }
}

// WithLogger replaces the meter logger.
func WithLogger(l logger.Logger) Option {
	return func(o *meterOptions) { o.log = l }
}

// WithReaderOptions passes options through to the block reader.
func WithReaderOptions(opts ...myaudio.BlockReaderOption) Option {
	return func(o *meterOptions) { o.readerOpts = append(o.readerOpts, opts...) }
}

// NewMeter builds a meter reading PCM from in and writing lines to out.
// settings must have passed conf.ValidateSettings.
func NewMeter(settings *conf.MeterSettings, in io.Reader, out io.Writer, opts ...Option) (*Meter, error) {
	o := meterOptions{
		clock:    myaudio.SystemClock(),
		recorder: noopRecorder{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = GetLogger()
	}

	estimator, err := myaudio.NewEstimator(settings.FrameCount(), settings.Channels, settings.ZeroRange, settings.Scale)
	if err != nil {
		return nil, err
	}

	readerOpts := append([]myaudio.BlockReaderOption{myaudio.WithReaderLogger(o.log.Module("reader"))}, o.readerOpts...)

	return &Meter{
		settings:  *settings,
		reader:    myaudio.NewBlockReader(in, readerOpts...),
		estimator: estimator,
		pacer:     myaudio.NewPacingController(settings.Interval, settings.WaitAbove, o.clock),
		reporter:  myaudio.NewReporter(out, settings.ShowDelta),
		recorder:  o.recorder,
		log:       o.log,
		block:     make([]byte, estimator.BlockBytes()),
	}, nil
}

// Blocks returns the number of blocks reported so far.
func (m *Meter) Blocks() uint64 {
	return m.blocks
}

// Run loops until the input ends, ctx is cancelled or a stage fails.
//
// The end of input, a trailing partial block and cancellation all return
// nil. Read and write errors are returned as they are.
func (m *Meter) Run(ctx context.Context) error {
	m.log.Debug("meter configuration",
		logger.Int("sample_rate", m.settings.SampleRate),
		logger.Int("interval_ms", m.settings.Interval),
		logger.Int("block_size", m.settings.FrameCount()),
		logger.Int("block_bytes", len(m.block)),
		logger.Int("channels", m.settings.Channels),
		logger.Int("scale", m.settings.Scale),
		logger.Int("zero_range", m.settings.ZeroRange),
		logger.Int("wait_above_ms", m.settings.WaitAbove),
		logger.Bool("show_delta", m.settings.ShowDelta))

	var state myaudio.PacingState
	m.pacer.Start(&state)

	for {
		stats, err := m.reader.Fill(ctx, m.block)
		m.recorder.RecordRead(stats.Bytes, stats.Retries)
		if err != nil {
			return m.stop(err, metrics.StageRead)
		}

		meas := m.estimator.Estimate(m.block)
		m.recorder.RecordBlock(meas.Loudness, meas.NumZero)

		pace, err := m.pacer.Pace(ctx, &state)
		if err != nil {
			return m.stop(err, metrics.StagePace)
		}
		m.recorder.RecordPacing(time.Duration(pace.DeltaMs)*time.Millisecond, pace.Slept)

		if m.log.Enabled(logger.LogLevelDebug) {
			m.log.Debug("block",
				logger.Int64("delta_ms", pace.DeltaMs),
				logger.Int64("wait_ms", pace.WaitMs),
				logger.Duration("slept", pace.Slept),
				logger.Int("loudness", int(meas.Loudness)),
				logger.Int("min", int(meas.Min)),
				logger.Int("max", int(meas.Max)),
				logger.Int("num_zero", meas.NumZero),
				logger.Int("read_retries", stats.Retries))
		}

		if err := m.reporter.Report(pace.DeltaMs, meas.Loudness); err != nil {
			return m.stop(err, metrics.StageReport)
		}
		m.blocks++
	}
}

// stop turns a loop-ending error into Run's result
func (m *Meter) stop(err error, stage string) error {
	switch {
	case errors.Is(err, myaudio.ErrEndOfStream):
		m.log.Info("end of input", logger.Uint64("blocks", m.blocks))
		return nil
	case errors.Is(err, myaudio.ErrShortBlock):
		m.log.Warn("discarding partial block at end of input",
			logger.Error(err),
			logger.Uint64("blocks", m.blocks))
		return nil
	case errors.IsCategory(err, errors.CategoryCancellation):
		m.log.Info("meter stopped", logger.Uint64("blocks", m.blocks))
		return nil
	default:
		m.recorder.RecordError(stage)
		return err
	}
}
