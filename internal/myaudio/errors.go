package myaudio

import (
	"github.com/pifon/rmsmeter/internal/errors"
)

// Error sentinel values for the meter input
var (
	// ErrEndOfStream is returned by BlockReader.Fill when the input ends on a
	// block boundary.
	ErrEndOfStream = errors.NewStd("end of input stream")

	// ErrShortBlock is returned by BlockReader.Fill when the input ends in the
	// middle of a block. The partial block is not measured.
	ErrShortBlock = errors.NewStd("input ended inside a block")
)
