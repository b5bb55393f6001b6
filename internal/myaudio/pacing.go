package myaudio

import (
	"context"
	"time"

	"github.com/pifon/rmsmeter/internal/errors"
)

// Clock supplies wall-clock time and sleeping to the pacing controller.
type Clock interface {
	Now() time.Time
	// Sleep blocks for d or until ctx is done, whichever comes first.
	Sleep(ctx context.Context, d time.Duration) error
}

// SystemClock returns the real wall clock.
func SystemClock() Clock {
	return systemClock{}
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PacingState is the timestamp of the previous block. The driver loop owns
// it and passes it to every Pace call.
type PacingState struct {
	LastTS time.Time
}

// PaceResult reports what one Pace call measured and did.
type PaceResult struct {
	DeltaMs int64         // elapsed ms since the previous block, after any sleep
	WaitMs  int64         // shortfall against the interval, 0 when late
	Slept   time.Duration // corrective sleep, 0 when none
}

// PacingController keeps one block per interval when input outruns real time.
type PacingController struct {
	intervalMs  int64
	waitAboveMs int64
	clock       Clock
}

// NewPacingController creates a controller. A negative waitAboveMs disables
// sleeping; deltas are still measured.
func NewPacingController(intervalMs, waitAboveMs int, clock Clock) *PacingController {
	if clock == nil {
		clock = SystemClock()
	}
	return &PacingController{
		intervalMs:  int64(intervalMs),
		waitAboveMs: int64(waitAboveMs),
		clock:       clock,
	}
}

// Start initializes state with the current time.
func (pc *PacingController) Start(state *PacingState) {
	state.LastTS = pc.clock.Now()
}

// Pace measures the time since state.LastTS and sleeps out the rest of the
// interval when the block came early by at least waitAbove ms. The delta is
// re-measured after a sleep against the same LastTS, so it includes the
// sleep. state.LastTS is then set to the final timestamp.
func (pc *PacingController) Pace(ctx context.Context, state *PacingState) (PaceResult, error) {
	now := pc.clock.Now()
	res := PaceResult{DeltaMs: deltaMillis(state.LastTS, now)}

	if res.DeltaMs < pc.intervalMs {
		res.WaitMs = pc.intervalMs - res.DeltaMs
		if pc.waitAboveMs >= 0 && res.WaitMs >= pc.waitAboveMs {
			wait := time.Duration(res.WaitMs) * time.Millisecond
			if err := pc.clock.Sleep(ctx, wait); err != nil {
				state.LastTS = pc.clock.Now()
				return res, errors.New(err).
					Component("myaudio").
					Category(errors.CategoryCancellation).
					Context("operation", "pacing_sleep").
					Context("wait_ms", res.WaitMs).
					Build()
			}
			res.Slept = wait
			now = pc.clock.Now()
			res.DeltaMs = deltaMillis(state.LastTS, now)
		}
	}

	state.LastTS = now
	return res, nil
}

// deltaMillis rounds the elapsed time half-up to whole milliseconds.
func deltaMillis(from, to time.Time) int64 {
	return (to.Sub(from).Microseconds() + 500) / 1000
}
