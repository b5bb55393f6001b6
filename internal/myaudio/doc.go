// Package myaudio implements the streaming parts of the RMS meter.
//
// A BlockReader fills one fixed-size block of interleaved signed 16-bit
// little-endian PCM from a byte stream, retrying transient "try again"
// reads. An Estimator turns a filled block into a scaled RMS loudness with
// an optional dead-zone noise gate. A PacingController keeps one block per
// interval when input arrives faster than real time, and a Reporter writes
// one flushed line per block.
//
// None of the types are safe for concurrent use; the driver loop owns them.
package myaudio
