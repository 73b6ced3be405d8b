//go:build linux

package reactor

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/polaris-contrib/polaris-go-core/internal/model"
)

// epollPoller uses a single registry map protected by a plain mutex rather
// than a fixed-size array plus atomic version counter, since this
// reactor's descriptor set is bounded by the number of health-check
// sockets a worker owns, not by a high registration churn rate.
type epollPoller struct {
	epfd int

	mu       sync.Mutex
	handlers map[int]model.EventBase

	eventBuf []unix.EpollEvent
}

func newPoller() (poller, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("reactor: epoll_create1: %w", err)
	}
	return &epollPoller{
		epfd:     epfd,
		handlers: make(map[int]model.EventBase),
		eventBuf: make([]unix.EpollEvent, 64),
	}, nil
}

// eventsToEpoll registers level-triggered, not edge-triggered (EPOLLET is
// never set): handlers here do a single bounded read/write per dispatch
// rather than looping until EAGAIN, so an edge-triggered registration could
// miss readiness that arrives between two dispatches of the same fd. Level
// triggering costs an extra wakeup per partially-drained fd but never loses
// one.
func eventsToEpoll(ev model.IOEvents) uint32 {
	var mask uint32
	if ev&model.EventRead != 0 {
		mask |= unix.EPOLLIN
	}
	if ev&model.EventWrite != 0 {
		mask |= unix.EPOLLOUT
	}
	// error/hangup are always reported by the kernel regardless of the
	// requested mask; no bit is needed for them here.
	return mask
}

func epollToEvents(mask uint32) model.IOEvents {
	var ev model.IOEvents
	if mask&unix.EPOLLIN != 0 {
		ev |= model.EventRead
	}
	if mask&unix.EPOLLOUT != 0 {
		ev |= model.EventWrite
	}
	if mask&unix.EPOLLERR != 0 {
		ev |= model.EventError
	}
	if mask&(unix.EPOLLHUP|unix.EPOLLRDHUP) != 0 {
		ev |= model.EventHangup
	}
	return ev
}

func (p *epollPoller) add(fd int, events model.IOEvents, handler model.EventBase) error {
	p.mu.Lock()
	p.handlers[fd] = handler
	p.mu.Unlock()
	e := unix.EpollEvent{Fd: int32(fd), Events: eventsToEpoll(events)}
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &e); err != nil {
		p.mu.Lock()
		delete(p.handlers, fd)
		p.mu.Unlock()
		return fmt.Errorf("reactor: epoll_ctl add fd=%d: %w", fd, err)
	}
	return nil
}

func (p *epollPoller) modify(fd int, events model.IOEvents) error {
	e := unix.EpollEvent{Fd: int32(fd), Events: eventsToEpoll(events)}
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, fd, &e); err != nil {
		return fmt.Errorf("reactor: epoll_ctl mod fd=%d: %w", fd, err)
	}
	return nil
}

func (p *epollPoller) remove(fd int) error {
	p.mu.Lock()
	delete(p.handlers, fd)
	p.mu.Unlock()
	// EPOLL_CTL_DEL's event argument is ignored on modern kernels but
	// older ones require a non-nil pointer.
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, &unix.EpollEvent{}); err != nil {
		return fmt.Errorf("reactor: epoll_ctl del fd=%d: %w", fd, err)
	}
	return nil
}

func (p *epollPoller) wait(timeoutMs int) (int, error) {
	n, err := unix.EpollWait(p.epfd, p.eventBuf, timeoutMs)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, fmt.Errorf("reactor: epoll_wait: %w", err)
	}
	for i := 0; i < n; i++ {
		fd := int(p.eventBuf[i].Fd)
		p.mu.Lock()
		handler := p.handlers[fd]
		p.mu.Unlock()
		if handler == nil {
			continue
		}
		ev := epollToEvents(p.eventBuf[i].Events)
		dispatch(handler, ev)
	}
	return n, nil
}

func (p *epollPoller) close() error {
	return unix.Close(p.epfd)
}

// dispatch fans a readiness mask out to a handler's callbacks in a fixed
// order: read/write first, hangup/error last, so a drained read still
// happens before the handler is told its peer went away.
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
