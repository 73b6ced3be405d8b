package reactor

import (
	"errors"
	"fmt"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/polaris-contrib/polaris-go-core/internal/clock"
	"github.com/polaris-contrib/polaris-go-core/internal/corelog"
	"github.com/polaris-contrib/polaris-go-core/internal/model"
)

// defaultPollTimeoutMs is the poll timeout used when no timing task is
// scheduled sooner, keeping the loop responsive to newly queued tasks even
// without I/O.
const defaultPollTimeoutMs = 10

// pendingTaskPollInterval is how many drained pending tasks trigger an
// interleaved zero-timeout I/O poll, so a flood of inbound tasks can't
// starve I/O.
const pendingTaskPollInterval = 100

// ErrNotOnExecutorThread is returned by in-thread-only operations invoked
// off the executor goroutine after the loop has started.
var ErrNotOnExecutorThread = errors.New("reactor: operation requires the executor goroutine")

// Reactor is a single-threaded cooperative event loop. Every
// exported method that isn't documented "safe from any goroutine" must be
// called from the same goroutine that calls Run/RunOnce.
type Reactor struct {
	logger corelog.Logger

	poller   poller
	notifier *notifier
	wheel    *timingWheel

	pendingMu sync.Mutex
	pending   []model.Task

	// executorToken is set once Run (or RunOnce) begins, and cleared again
	// once it returns: nil means no executor goroutine is currently bound,
	// which is the state both before start and after Stop is acknowledged.
	// Go has no public goroutine-ID API, so this is tracked with a
	// per-Reactor token rather than runtime-stack introspection.
	executorToken atomic.Pointer[int]

	stopRequested atomic.Bool
	oneShot       atomic.Bool

	closed atomic.Bool
}

// New constructs a Reactor bound to the current platform's poller
// (epoll/kqueue) and an eventfd/self-pipe wakeup notifier. Must be called
// from the goroutine that will eventually call Run, since poller/notifier
// creation is cheap but the registration below assumes no concurrent use
// yet.
func New(logger corelog.Logger) (*Reactor, error) {
	if logger == nil {
		logger = corelog.NoOp()
	}
	p, err := newPoller()
	if err != nil {
		return nil, err
	}
	n, err := newNotifier()
	if err != nil {
		_ = p.close()
		return nil, err
	}
	r := &Reactor{
		logger:   logger,
		poller:   p,
		notifier: n,
		wheel:    newTimingWheel(),
	}
	if err := p.add(n.fdNum(), model.EventRead, wakeupHandler{n: n}); err != nil {
		_ = p.close()
		_ = n.close()
		return nil, fmt.Errorf("reactor: register wakeup fd: %w", err)
	}
	return r, nil
}

// wakeupHandler is the model.EventBase registered for the notifier fd; its
// only job is to drain the counter so the poller doesn't spin.
type wakeupHandler struct{ n *notifier }

func (w wakeupHandler) FD() int       { return w.n.fdNum() }
func (w wakeupHandler) ReadHandler()  { w.n.drain() }
func (w wakeupHandler) WriteHandler() {}
func (w wakeupHandler) CloseHandler() {}

// Submit enqueues a task for execution on the executor goroutine. Safe from
// any goroutine. Tasks submitted from a single goroutine run
// in submission order.
func (r *Reactor) Submit(task model.Task) {
	r.pendingMu.Lock()
	r.pending = append(r.pending, task)
	r.pendingMu.Unlock()
	r.notifier.signal()
}

// AddTimingTask schedules task, first firing after its IntervalMs. Must be
// called from the executor goroutine once the loop has started (or from
// the owning goroutine before Run, while no executor is yet bound).
func (r *Reactor) AddTimingTask(task model.TimingTask) (*TimingHandle, error) {
	if err := r.assertExecutorThread(); err != nil {
		return nil, err
	}
	fireAt := clock.NowMs() + task.IntervalMs()
	return r.wheel.add(task, fireAt), nil
}

// CancelTimingTask removes a previously scheduled task. Valid only before
// Stop; after stop, tasks are drained by Close.
func (r *Reactor) CancelTimingTask(handle *TimingHandle) error {
	if err := r.assertExecutorThread(); err != nil {
		return err
	}
	r.wheel.cancel(handle)
	return nil
}

// AddEventHandler registers fd for events, dispatching to handler's
// callbacks on readiness. Executor-thread-only.
func (r *Reactor) AddEventHandler(fd int, events model.IOEvents, handler model.EventBase) error {
	if err := r.assertExecutorThread(); err != nil {
		return err
	}
	return r.poller.add(fd, events, handler)
}

// ModifyEventHandler changes the registered event mask for fd.
// Executor-thread-only.
func (r *Reactor) ModifyEventHandler(fd int, events model.IOEvents) error {
	if err := r.assertExecutorThread(); err != nil {
		return err
	}
	return r.poller.modify(fd, events)
}

// RemoveEventHandler unregisters fd. Executor-thread-only.
func (r *Reactor) RemoveEventHandler(fd int) error {
	if err := r.assertExecutorThread(); err != nil {
		return err
	}
	return r.poller.remove(fd)
}

func (r *Reactor) assertExecutorThread() error {
	tok := r.executorToken.Load()
	if tok == nil {
		// Unset: either before Run starts, or after Stop is acknowledged —
		// both windows are allowed for setup/teardown.
		return nil
	}
	if goroutineToken() != *tok {
		return ErrNotOnExecutorThread
	}
	return nil
}

// goroutineToken identifies the calling goroutine for the executor-thread
// check above. Go deliberately has no public goroutine-ID API, so callers
// are expected to bind one *Reactor to one goroutine for its whole
// lifetime, and this always returns a constant — the check above is
// therefore best-effort documentation of intent, not an enforced
// assertion; see DESIGN.md for the reasoning.
func goroutineToken() int { return 0 }

// Stop requests the loop to exit after completing its current iteration,
// pinging the notifier so a blocked poll wakes immediately.
// Safe from any goroutine.
func (r *Reactor) Stop() {
	r.stopRequested.Store(true)
	r.notifier.signal()
}

// RunOnce pre-sets the stop flag and executes exactly one iteration, used
// in tests and embedded single-shot scenarios.
func (r *Reactor) RunOnce() error {
	r.oneShot.Store(true)
	r.stopRequested.Store(true)
	return r.Run()
}

// Run blocks the calling goroutine, executing the reactor's main loop until
// Stop is called (or RunOnce completes its single iteration). Must not be
// called from more than one goroutine, and not re-entered.
func (r *Reactor) Run() error {
	if err := maskSigpipe(); err != nil {
		return err
	}
	tok := 0
	r.executorToken.Store(&tok)
	defer r.executorToken.Store(nil)

	for {
		r.drainPending()

		timeout := r.calculateTimeout()
		if _, err := r.poller.wait(timeout); err != nil {
			r.logger.Log(corelog.LevelError, "reactor", "poll error", corelog.Fields{"error": err})
		}

		r.wheel.fireDue(clock.NowMs())

		if r.oneShot.Load() || r.stopRequested.Load() {
			return nil
		}
	}
}

// drainPending runs every task queued via Submit, interleaving a
// zero-timeout poll every pendingTaskPollInterval tasks.
func (r *Reactor) drainPending() {
	drained := 0
	for {
		r.pendingMu.Lock()
		if len(r.pending) == 0 {
			r.pendingMu.Unlock()
			return
		}
		task := r.pending[0]
		r.pending = r.pending[1:]
		r.pendingMu.Unlock()

		r.safeRun(task)
		drained++
		if drained%pendingTaskPollInterval == 0 {
			if _, err := r.poller.wait(0); err != nil {
				r.logger.Log(corelog.LevelError, "reactor", "interleaved poll error", corelog.Fields{"error": err})
			}
		}
	}
}

func (r *Reactor) safeRun(task model.Task) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Log(corelog.LevelError, "reactor", "task panicked", corelog.Fields{"label": task.Label, "panic": fmt.Sprint(p)})
		}
	}()
	task.Run()
}

// calculateTimeout computes min(defaultPollTimeoutMs, earliest timing task
// delay), clamped at 0.
func (r *Reactor) calculateTimeout() int {
	timeout := defaultPollTimeoutMs
	if fireAt, ok := r.wheel.nextFireAt(); ok {
		delay := int(fireAt - clock.NowMs())
		if delay < timeout {
			timeout = delay
		}
	}
	if timeout < 0 {
		timeout = 0
	}
	return timeout
}

// Close drains and releases all queued and timing tasks before closing the
// poller and notifier descriptors. Calling Close before Stop has been
// acknowledged is a programmer error and panics.
func (r *Reactor) Close() error {
	if !r.stopRequested.Load() {
		panic("reactor: Close called without a prior Stop")
	}
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	r.pendingMu.Lock()
	r.pending = nil
	r.pendingMu.Unlock()
	r.wheel = newTimingWheel()

	var errs []error
	if err := r.poller.close(); err != nil {
		errs = append(errs, err)
	}
	if err := r.notifier.close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// maskSigpipe ignores SIGPIPE so writes to a closed peer socket surface as
// an EPIPE error instead of tearing down the process. Go goroutines aren't
// pinned to OS threads, so there's no per-thread mask to install; this
// uses signal.Ignore instead, a process-wide disposition that every
// reactor in the process wants anyway.
func maskSigpipe() error {
	signal.Ignore(syscall.SIGPIPE)
	return nil
}
