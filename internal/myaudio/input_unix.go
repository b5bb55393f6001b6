//go:build unix

package myaudio

import (
	"os"

	"golang.org/x/sys/unix"

	"github.com/pifon/rmsmeter/internal/errors"
)

// IsWouldBlock reports whether err is the transient EAGAIN/EWOULDBLOCK
// condition of a non-blocking descriptor with no data available.
func IsWouldBlock(err error) bool {
	return errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK)
}

// SetNonblock switches f into O_NONBLOCK mode. Reads on f then return
// EAGAIN instead of blocking, which BlockReader retries. f must not be
// managed by the runtime poller, which holds for os.Stdin when it starts
// out blocking. The returned function restores blocking mode.
func SetNonblock(f *os.File) (restore func() error, err error) {
	fd := int(f.Fd()) //nolint:gosec // descriptor numbers fit in int
	if err := unix.SetNonblock(fd, true); err != nil {
		return nil, errors.New(err).
			Component("myaudio").
			Category(errors.CategorySystem).
			Context("operation", "set_nonblock").
			Context("file", f.Name()).
			Build()
	}
	return func() error {
		return unix.SetNonblock(fd, false)
	}, nil
}
