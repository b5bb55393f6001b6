package myaudio

import (
	"context"
	"encoding/binary"
	"io"
	"time"
)

// readStep is one scripted Read result
type readStep struct {
	data []byte
	err  error
}

// scriptedReader replays steps, then returns io.EOF
type scriptedReader struct {
	steps []readStep
	calls int
}

func (r *scriptedReader) Read(p []byte) (int, error) {
	r.calls++
	if len(r.steps) == 0 {
		return 0, io.EOF
	}
	step := &r.steps[0]
	n := copy(p, step.data)
	step.data = step.data[n:]
	if len(step.data) > 0 {
		// deliver the rest on the next call
		return n, nil
	}
	err := step.err
	r.steps = r.steps[1:]
	return n, err
}

// fakeClock advances only when told to or when slept on
type fakeClock struct {
	now    time.Time
	jitter time.Duration
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d + c.jitter)
	return nil
}

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// pcm encodes samples as little-endian int16
func pcm(samples ...int16) []byte {
	buf := make([]byte, 2*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[2*i:], uint16(s)) //nolint:gosec // reinterpret as unsigned
	}
	return buf
}

// repeat returns n copies of the pattern samples, cycling
func repeat(n int, pattern ...int16) []int16 {
	out := make([]int16, n)
	for i := range out {
		out[i] = pattern[i%len(pattern)]
	}
	return out
}
