package detector

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/pifon/rmsmeter/internal/errors"
	"github.com/pifon/rmsmeter/internal/logger"
)

// ParseLevel extracts the loudness from a meter line, either "<level>" or
// "<delta_ms> <level>".
func ParseLevel(line string) (int, error) {
	fields := strings.Fields(line)
	var field string
	switch len(fields) {
	case 1:
		field = fields[0]
	case 2:
		field = fields[1]
	default:
		return 0, fmt.Errorf("expected 1 or 2 fields, got %d", len(fields))
	}

	level, err := strconv.Atoi(field)
	if err != nil {
		return 0, fmt.Errorf("invalid level %q: %w", field, err)
	}
	return level, nil
}

// Runner feeds meter lines from a reader into a Detector and writes the
// resulting events, one flushed line each.
type Runner struct {
	detector *Detector
	now      func() time.Time
	out      *bufio.Writer
	log      logger.Logger
	line     []byte
}

// NewRunner creates a Runner. A nil now uses time.Now.
func NewRunner(d *Detector, out io.Writer, now func() time.Time) *Runner {
	if now == nil {
		now = time.Now
	}
	return &Runner{
		detector: d,
		now:      now,
		out:      bufio.NewWriter(out),
		log:      GetLogger(),
	}
}

// Run processes lines until EOF or ctx is done. Malformed lines are
// skipped. EOF and cancellation return nil.
func (r *Runner) Run(ctx context.Context, in io.Reader) error {
	sc := bufio.NewScanner(in)
	lineNo := 0
	for sc.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		lineNo++

		level, err := ParseLevel(sc.Text())
		if err != nil {
			r.log.Debug("skipping malformed line", logger.Int("line", lineNo), logger.Error(err))
			continue
		}

		for _, ev := range r.detector.HandleLevel(r.now(), level) {
			if err := r.write(ev); err != nil {
				return err
			}
		}
	}

	if err := sc.Err(); err != nil {
		return errors.New(err).
			Component("detector").
			Category(errors.CategoryAudioSource).
			Context("operation", "read_levels").
			Context("line", lineNo).
			Build()
	}
	return nil
}

func (r *Runner) write(ev Event) error {
	r.line = append(ev.AppendText(r.line[:0]), '\n')
	if _, err := r.out.Write(r.line); err != nil {
		return r.writeError(err)
	}
	if err := r.out.Flush(); err != nil {
		return r.writeError(err)
	}
	return nil
}

func (r *Runner) writeError(err error) error {
	return errors.New(err).
		Component("detector").
		Category(errors.CategoryFileIO).
		Context("operation", "write_event").
		Build()
}
