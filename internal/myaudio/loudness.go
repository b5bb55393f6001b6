package myaudio

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/pifon/rmsmeter/internal/errors"
)

// fullScale is the magnitude of the most negative 16-bit sample
const fullScale = 32768

// Measurement is the result of one block.
type Measurement struct {
	Loudness int32 // scaled RMS in [0, scale]
	Min      int16 // smallest analyzed raw sample
	Max      int16 // largest analyzed raw sample
	NumZero  int   // analyzed samples inside the dead zone
	Samples  int   // analyzed samples
}

// Estimator computes scaled RMS loudness of blocks with a fixed layout.
//
// Only the first channel of each frame is read, stepping through the first
// blockSize interleaved samples, and the mean square is always taken over
// blockSize. With more than one channel this measures fewer samples than
// the block holds and reads lower than the true RMS of channel 0.
type Estimator struct {
	blockSize int
	channels  int
	zeroRange int32
	scale     float64
	ceiling   float64 // squared post-gate full scale
}

// NewEstimator validates the block layout and gate parameters.
func NewEstimator(blockSize, channels, zeroRange, scale int) (*Estimator, error) {
	var problems []string
	if blockSize < 1 {
		problems = append(problems, fmt.Sprintf("block size %d < 1", blockSize))
	}
	if channels < 1 {
		problems = append(problems, fmt.Sprintf("channels %d < 1", channels))
	}
	if zeroRange < 0 || zeroRange >= fullScale {
		problems = append(problems, fmt.Sprintf("zero range %d outside [0, %d)", zeroRange, fullScale))
	}
	if scale < 1 || scale > math.MaxInt32 {
		problems = append(problems, fmt.Sprintf("scale %d outside [1, %d]", scale, math.MaxInt32))
	}
	if len(problems) > 0 {
		return nil, errors.Newf("invalid estimator parameters: %v", problems).
			Component("myaudio").
			Category(errors.CategoryValidation).
			Context("operation", "new_estimator").
			Build()
	}

	maxVal := float64(fullScale - zeroRange)
	return &Estimator{
		blockSize: blockSize,
		channels:  channels,
		zeroRange: int32(zeroRange), //nolint:gosec // bounded by fullScale above
		scale:     float64(scale),
		ceiling:   maxVal * maxVal,
	}, nil
}

// BlockBytes returns the byte size of a block for this layout.
func (e *Estimator) BlockBytes() int {
	return e.blockSize * 2 * e.channels
}

// Estimate measures one block of little-endian int16 samples. block must
// hold at least BlockBytes bytes.
func (e *Estimator) Estimate(block []byte) Measurement {
	var (
		sum  int64
		m    Measurement
		dmin int32 = math.MaxInt16
		dmax int32 = math.MinInt16
	)

	limit := min(e.blockSize, len(block)/2)
	for i := 0; i < limit; i += e.channels {
		d := int32(int16(binary.LittleEndian.Uint16(block[2*i:]))) //nolint:gosec // reinterpret as signed

		dmin = min(dmin, d)
		dmax = max(dmax, d)

		switch {
		case d >= -e.zeroRange && d <= e.zeroRange:
			d = 0
			m.NumZero++
		case d > 0:
			d -= e.zeroRange
		default:
			d += e.zeroRange
		}

		sum += int64(d) * int64(d)
		m.Samples++
	}

	if m.Samples > 0 {
		m.Min = int16(dmin) //nolint:gosec // dmin came from an int16
		m.Max = int16(dmax) //nolint:gosec // dmax came from an int16
	}

	mean := sum / int64(e.blockSize)
	normalized := float64(mean) / e.ceiling
	m.Loudness = int32(math.Sqrt(normalized) * e.scale)

	return m
}
