// Package reactor implements a single-threaded cooperative event loop: one
// reactor per worker goroutine, a pending-task queue fed from other
// goroutines, and a timing wheel for recurring work. Each iteration has a
// fixed order: drain pending tasks, poll I/O, then fire due timing tasks.
package reactor

import "github.com/polaris-contrib/polaris-go-core/internal/model"

// poller is the OS-specific I/O multiplexer backing one Reactor. Linux uses
// epoll (poller_linux.go); Darwin uses kqueue (poller_darwin.go). Windows
// and other platforms are out of scope (DESIGN.md).
type poller interface {
	// add registers fd for the given event mask, associating handler for
	// dispatch.
	add(fd int, events model.IOEvents, handler model.EventBase) error
	// modify changes the event mask registered for fd.
	modify(fd int, events model.IOEvents) error
	// remove unregisters fd.
	remove(fd int) error
	// wait blocks up to timeoutMs (0 = non-blocking, <0 = forever) and
	// dispatches ready handlers' Read/Write/CloseHandler callbacks
	// in-line. Returns the number of ready descriptors.
	wait(timeoutMs int) (int, error)
	// close releases the poller's own descriptor (epoll/kqueue fd).
	close() error
}
