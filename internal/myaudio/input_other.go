//go:build !unix

package myaudio

import (
	"os"

	"github.com/pifon/rmsmeter/internal/errors"
)

// IsWouldBlock always reports false; non-blocking input is unix only.
func IsWouldBlock(error) bool {
	return false
}

// SetNonblock is not supported on this platform.
func SetNonblock(f *os.File) (restore func() error, err error) {
	return nil, errors.Newf("non-blocking input is not supported on this platform").
		Component("myaudio").
		Category(errors.CategorySystem).
		Context("operation", "set_nonblock").
		Context("file", f.Name()).
		Build()
}
