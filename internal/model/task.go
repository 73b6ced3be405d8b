package model

// Task is a one-shot closure submitted from any goroutine, owned by the
// reactor once queued and discarded after Run returns. It is a thin
// wrapper rather than a bare func() so the reactor can log a task's origin
// without reflection.
type Task struct {
	// Label is optional, used only for logging/metrics.
	Label string
	Run   func()
}

// TimingTask is the abstract recurring task owned by the reactor's timing
// wheel. A concrete TimingTask is destroyed when Run returns
// zero as its next-fire hint (NextRunTime returning <= 0), or when
// cancelled via the handle returned by Reactor.AddTimingTask.
type TimingTask interface {
	// IntervalMs is the task's nominal period; it is only advisory — the
	// task itself decides re-arming via NextRunTime.
	IntervalMs() int64
	// Run executes one firing of the task.
	Run()
	// NextRunTime returns the absolute epoch-ms time (per the clock's
	// fake/real monotonic counter) the task should next fire, or <= 0 if
	// the task should be removed from the wheel.
	NextRunTime(nowMs int64) int64
}

// IOEvents is the readiness bitmask delivered to an EventBase's handlers.
type IOEvents uint32

const (
	EventRead IOEvents = 1 << iota
	EventWrite
	EventError
	EventHangup
)

// EventBase is the abstract handler bound to a file descriptor. It is owned externally; the reactor holds only a weak association
// via its descriptor registry.
type EventBase interface {
	FD() int
	ReadHandler()
	WriteHandler()
	CloseHandler()
}
