//go:build darwin

package reactor

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// notifier on Darwin uses a self-pipe, since eventfd is Linux-only; kqueue
// watches the read end like any other descriptor.
type notifier struct {
	readFD, writeFD int
}

func newNotifier() (*notifier, error) {
	var p [2]int
	if err := unix.Pipe(p[:]); err != nil {
		return nil, fmt.Errorf("reactor: pipe: %w", err)
	}
	if err := unix.SetNonblock(p[0], true); err != nil {
		_ = unix.Close(p[0])
		_ = unix.Close(p[1])
		return nil, fmt.Errorf("reactor: set nonblock: %w", err)
	}
	if err := unix.SetNonblock(p[1], true); err != nil {
		_ = unix.Close(p[0])
		_ = unix.Close(p[1])
		return nil, fmt.Errorf("reactor: set nonblock: %w", err)
	}
	return &notifier{readFD: p[0], writeFD: p[1]}, nil
}

func (n *notifier) fdNum() int { return n.readFD }

func (n *notifier) signal() {
	_, _ = unix.Write(n.writeFD, []byte{1})
}

func (n *notifier) drain() {
	var buf [64]byte
	for {
		_, err := unix.Read(n.readFD, buf[:])
		if err != nil {
			return
		}
	}
}

func (n *notifier) close() error {
	_ = unix.Close(n.writeFD)
	return unix.Close(n.readFD)
}
