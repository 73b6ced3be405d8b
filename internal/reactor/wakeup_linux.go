//go:build linux

package reactor

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/sys/unix"
)

// notifier is the event-fd wakeup source used to interrupt a blocked poll
// whenever Submit is called from another goroutine.
type notifier struct {
	fd int
}

func newNotifier() (*notifier, error) {
	fd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("reactor: eventfd: %w", err)
	}
	return &notifier{fd: fd}, nil
}

func (n *notifier) fdNum() int { return n.fd }

// signal wakes a thread blocked in the poller's wait.
func (n *notifier) signal() {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], 1)
	_, _ = unix.Write(n.fd, buf[:])
}

// drain clears the eventfd's counter after a wakeup so the next wait call
// blocks normally instead of immediately returning again.
func (n *notifier) drain() {
	var buf [8]byte
	for {
		_, err := unix.Read(n.fd, buf[:])
		if err != nil {
			return
		}
	}
}

func (n *notifier) close() error {
	return unix.Close(n.fd)
}
