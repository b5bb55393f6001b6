package myaudio

import (
	"bufio"
	"io"
	"strconv"

	"github.com/pifon/rmsmeter/internal/errors"
)

// Reporter writes one measurement line per block and flushes it.
type Reporter struct {
	w         *bufio.Writer
	showDelta bool
	line      []byte
}

// NewReporter creates a Reporter. With showDelta lines are
// "<delta_ms> <loudness>", otherwise "<loudness>".
func NewReporter(w io.Writer, showDelta bool) *Reporter {
	return &Reporter{
		w:         bufio.NewWriter(w),
		showDelta: showDelta,
		line:      make([]byte, 0, 32),
	}
}

// Report writes and flushes one line. Write errors are returned as file-io
// errors; the caller treats them as fatal.
func (r *Reporter) Report(deltaMs int64, loudness int32) error {
	r.line = AppendLine(r.line[:0], r.showDelta, deltaMs, loudness)

	if _, err := r.w.Write(r.line); err != nil {
		return r.writeError(err)
	}
	if err := r.w.Flush(); err != nil {
		return r.writeError(err)
	}
	return nil
}

// AppendLine appends one formatted measurement line to dst.
func AppendLine(dst []byte, showDelta bool, deltaMs int64, loudness int32) []byte {
	if showDelta {
		dst = strconv.AppendInt(dst, deltaMs, 10)
		dst = append(dst, ' ')
	}
	dst = strconv.AppendInt(dst, int64(loudness), 10)
	return append(dst, '\n')
}

func (r *Reporter) writeError(err error) error {
	return errors.New(err).
		Component("myaudio").
		Category(errors.CategoryFileIO).
		Priority(errors.PriorityHigh).
		Context("operation", "report_line").
		Build()
}
