//go:build darwin

package reactor

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/polaris-contrib/polaris-go-core/internal/model"
)

// kqueuePoller mirrors epollPoller's shape for the BSD/Darwin platform,
// built on golang.org/x/sys/unix's kqueue primitives in the same idiom
// poller_linux.go uses for epoll.
type kqueuePoller struct {
	kq int

	mu       sync.Mutex
	handlers map[int]model.EventBase
	// registered tracks which of read/write filters are currently armed
	// per fd, since kqueue registers read and write interest as separate
	// kevent filters rather than one combined mask.
	registered map[int]model.IOEvents

	eventBuf []unix.Kevent_t
}

func newPoller() (poller, error) {
	kq, err := unix.Kqueue()
	if err != nil {
		return nil, fmt.Errorf("reactor: kqueue: %w", err)
	}
	return &kqueuePoller{
		kq:         kq,
		handlers:   make(map[int]model.EventBase),
		registered: make(map[int]model.IOEvents),
		eventBuf:   make([]unix.Kevent_t, 64),
	}, nil
}

func (p *kqueuePoller) changeList(fd int, events model.IOEvents, add bool) []unix.Kevent_t {
	flags := uint16(unix.EV_ADD | unix.EV_CLEAR)
	if !add {
		flags = unix.EV_DELETE
	}
	var changes []unix.Kevent_t
	if events&model.EventRead != 0 || !add {
		changes = append(changes, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: flags})
	}
	if events&model.EventWrite != 0 || !add {
		changes = append(changes, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_WRITE, Flags: flags})
	}
	return changes
}

func (p *kqueuePoller) add(fd int, events model.IOEvents, handler model.EventBase) error {
	p.mu.Lock()
	p.handlers[fd] = handler
	p.registered[fd] = events
	p.mu.Unlock()
	changes := p.changeList(fd, events, true)
	if len(changes) == 0 {
		return nil
	}
	if _, err := unix.Kevent(p.kq, changes, nil, nil); err != nil {
		p.mu.Lock()
		delete(p.handlers, fd)
		delete(p.registered, fd)
		p.mu.Unlock()
		return fmt.Errorf("reactor: kevent add fd=%d: %w", fd, err)
	}
	return nil
}

func (p *kqueuePoller) modify(fd int, events model.IOEvents) error {
	p.mu.Lock()
	prev := p.registered[fd]
	p.registered[fd] = events
	p.mu.Unlock()

	var changes []unix.Kevent_t
	if prev&model.EventRead != 0 && events&model.EventRead == 0 {
		changes = append(changes, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: unix.EV_DELETE})
	} else if prev&model.EventRead == 0 && events&model.EventRead != 0 {
		changes = append(changes, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: unix.EV_ADD | unix.EV_CLEAR})
	}
	if prev&model.EventWrite != 0 && events&model.EventWrite == 0 {
		changes = append(changes, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_WRITE, Flags: unix.EV_DELETE})
	} else if prev&model.EventWrite == 0 && events&model.EventWrite != 0 {
		changes = append(changes, unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_WRITE, Flags: unix.EV_ADD | unix.EV_CLEAR})
	}
	if len(changes) == 0 {
		return nil
	}
	_, err := unix.Kevent(p.kq, changes, nil, nil)
	return err
}

func (p *kqueuePoller) remove(fd int) error {
	p.mu.Lock()
	events := p.registered[fd]
	delete(p.handlers, fd)
	delete(p.registered, fd)
	p.mu.Unlock()
	changes := p.changeList(fd, events, false)
	if len(changes) == 0 {
		return nil
	}
	_, err := unix.Kevent(p.kq, changes, nil, nil)
	return err
}

func (p *kqueuePoller) wait(timeoutMs int) (int, error) {
	var ts *unix.Timespec
	if timeoutMs >= 0 {
		t := unix.NsecToTimespec(int64(timeoutMs) * 1_000_000)
		ts = &t
	}
	n, err := unix.Kevent(p.kq, nil, p.eventBuf, ts)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, fmt.Errorf("reactor: kevent wait: %w", err)
	}
	for i := 0; i < n; i++ {
		fd := int(p.eventBuf[i].Ident)
		p.mu.Lock()
		handler := p.handlers[fd]
		p.mu.Unlock()
		if handler == nil {
			continue
		}
		ev := kqueueToEvents(p.eventBuf[i])
		dispatch(handler, ev)
	}
	return n, nil
}

func kqueueToEvents(e unix.Kevent_t) model.IOEvents {
	var ev model.IOEvents
	switch e.Filter {
	case unix.EVFILT_READ:
		ev |= model.EventRead
	case unix.EVFILT_WRITE:
		ev |= model.EventWrite
	}
	if e.Flags&unix.EV_EOF != 0 {
		ev |= model.EventHangup
	}
	if e.Flags&unix.EV_ERROR != 0 {
		ev |= model.EventError
	}
	return ev
}

func (p *kqueuePoller) close() error {
	return unix.Close(p.kq)
}

func dispatch(h model.EventBase, ev model.IOEvents) {
	if ev&model.EventRead != 0 {
		h.ReadHandler()
	}
	if ev&model.EventWrite != 0 {
		h.WriteHandler()
	}
	if ev&(model.EventError|model.EventHangup) != 0 {
		h.CloseHandler()
	}
}
