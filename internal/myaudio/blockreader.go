package myaudio

import (
	"context"
	"fmt"
	"io"
	"time"

	"golang.org/x/time/rate"

	"github.com/pifon/rmsmeter/internal/errors"
	"github.com/pifon/rmsmeter/internal/logger"
)

// defaultStallLogInterval bounds "waiting for input" diagnostics during a
// would-block spin
const defaultStallLogInterval = time.Second

// ReadOutcome classifies the result of one read call.
type ReadOutcome int

const (
	// ReadData means bytes were delivered, or a zero-byte read without error.
	ReadData ReadOutcome = iota
	// ReadWouldBlock means no data is available right now; retry immediately.
	ReadWouldBlock
	// ReadEOF means the stream ended.
	ReadEOF
	// ReadFatal means any other error.
	ReadFatal
)

// String returns the outcome name used in logs.
func (o ReadOutcome) String() string {
	switch o {
	case ReadData:
		return "data"
	case ReadWouldBlock:
		return "would_block"
	case ReadEOF:
		return "eof"
	case ReadFatal:
		return "fatal"
	default:
		return fmt.Sprintf("ReadOutcome(%d)", int(o))
	}
}

// ClassifyRead maps an io.Reader result to a ReadOutcome. isTransient decides
// which errors are retried; everything else that is not io.EOF is fatal.
func ClassifyRead(err error, isTransient func(error) bool) ReadOutcome {
	switch {
	case err == nil:
		return ReadData
	case errors.Is(err, io.EOF):
		return ReadEOF
	case isTransient != nil && isTransient(err):
		return ReadWouldBlock
	default:
		return ReadFatal
	}
}

// FillStats describes the work done for one block.
type FillStats struct {
	Reads   int // read calls issued
	Retries int // would-block and zero-byte reads
	Bytes   int // bytes stored into the block
}

// BlockReader fills fixed-size blocks from a byte stream.
type BlockReader struct {
	r           io.Reader
	isTransient func(error) bool
	stallLog    *rate.Limiter
	log         logger.Logger
}

// BlockReaderOption configures a BlockReader
type BlockReaderOption func(*BlockReader)

// WithTransientClassifier replaces IsWouldBlock as the retry test.
func WithTransientClassifier(fn func(error) bool) BlockReaderOption {
	return func(br *BlockReader) {
		br.isTransient = fn
	}
}

// WithStallLogInterval sets the minimum spacing of stall diagnostics.
func WithStallLogInterval(d time.Duration) BlockReaderOption {
	return func(br *BlockReader) {
		br.stallLog = rate.NewLimiter(rate.Every(d), 1)
	}
}

// WithReaderLogger sets the logger used for stall diagnostics.
func WithReaderLogger(l logger.Logger) BlockReaderOption {
	return func(br *BlockReader) {
		br.log = l
	}
}

// NewBlockReader creates a BlockReader over r.
func NewBlockReader(r io.Reader, opts ...BlockReaderOption) *BlockReader {
	br := &BlockReader{
		r:           r,
		isTransient: IsWouldBlock,
		stallLog:    rate.NewLimiter(rate.Every(defaultStallLogInterval), 1),
	}
	for _, opt := range opts {
		opt(br)
	}
	if br.log == nil {
		br.log = GetLogger().Module("reader")
	}
	return br
}

// Fill reads exactly len(block) bytes into block.
//
// Would-block errors and zero-byte reads are retried at once without
// sleeping, so a non-blocking input with no data spins. ctx is checked
// before every read. A clean end of input returns ErrEndOfStream when it
// falls on a block boundary and ErrShortBlock otherwise. Any other read
// error is returned as an audio-source error.
func (br *BlockReader) Fill(ctx context.Context, block []byte) (FillStats, error) {
	var stats FillStats
	off := 0

	for off < len(block) {
		if err := ctx.Err(); err != nil {
			return stats, errors.New(err).
				Component("myaudio").
				Category(errors.CategoryCancellation).
				Context("operation", "fill_block").
				Context("filled_bytes", off).
				Build()
		}

		n, err := br.r.Read(block[off:])
		stats.Reads++
		if n > 0 {
			off += n
			stats.Bytes += n
		}

		switch ClassifyRead(err, br.isTransient) {
		case ReadData:
			if n == 0 {
				stats.Retries++
				br.noteStall(stats, off, len(block))
			}
		case ReadWouldBlock:
			stats.Retries++
			br.noteStall(stats, off, len(block))
		case ReadEOF:
			switch off {
			case len(block):
				return stats, nil
			case 0:
				return stats, ErrEndOfStream
			default:
				return stats, fmt.Errorf("%w: got %d of %d bytes", ErrShortBlock, off, len(block))
			}
		case ReadFatal:
			return stats, errors.New(fmt.Errorf("read failed: %w", err)).
				Component("myaudio").
				Category(errors.CategoryAudioSource).
				Priority(errors.PriorityHigh).
				Context("operation", "fill_block").
				Context("filled_bytes", off).
				Context("block_bytes", len(block)).
				Build()
		}
	}

	return stats, nil
}

func (br *BlockReader) noteStall(stats FillStats, filled, total int) {
	if !br.stallLog.Allow() {
		return
	}
	br.log.Debug("waiting for input",
		logger.Int("retries", stats.Retries),
		logger.Int("filled_bytes", filled),
		logger.Int("block_bytes", total))
}
