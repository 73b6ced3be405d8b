package reactor

import "container/heap"

// timingWheel is the reactor's recurring-task schedule: a min-heap ordered
// by next fire time. Each iteration pops the earliest task, runs it, and
// re-pushes it if it wants another run. Cancellation works by handle
// identity rather than by generation counter, since CancelTimingTask below
// removes directly from the heap.
type timingWheel struct {
	h wheelHeap
}

// TimingHandle identifies one scheduled TimingTask for cancellation.
type TimingHandle struct {
	removed bool
}

// TimingTaskEntry pairs a model.TimingTask with its next scheduled fire
// time, the unit the heap actually orders.
type TimingTaskEntry struct {
	task    timingTaskLike
	fireAt  int64
	handle  *TimingHandle
	heapIdx int
}

// timingTaskLike is model.TimingTask, aliased locally so this file doesn't
// need to import internal/model just for one type name in the heap
// element.
type timingTaskLike interface {
	IntervalMs() int64
	Run()
	NextRunTime(nowMs int64) int64
}

type wheelHeap []*TimingTaskEntry

func (w wheelHeap) Len() int            { return len(w) }
func (w wheelHeap) Less(i, j int) bool  { return w[i].fireAt < w[j].fireAt }
func (w wheelHeap) Swap(i, j int)       { w[i], w[j] = w[j], w[i]; w[i].heapIdx = i; w[j].heapIdx = j }
func (w *wheelHeap) Push(x any) {
	e := x.(*TimingTaskEntry)
	e.heapIdx = len(*w)
	*w = append(*w, e)
}
func (w *wheelHeap) Pop() any {
	old := *w
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*w = old[:n-1]
	return e
}

func newTimingWheel() *timingWheel {
	tw := &timingWheel{}
	heap.Init(&tw.h)
	return tw
}

// add schedules task to first fire at fireAt, returning a cancellable
// handle.
func (tw *timingWheel) add(task timingTaskLike, fireAt int64) *TimingHandle {
	handle := &TimingHandle{}
	e := &TimingTaskEntry{task: task, fireAt: fireAt, handle: handle}
	heap.Push(&tw.h, e)
	return handle
}

// cancel removes a previously-scheduled task. A no-op if already fired or
// already cancelled.
func (tw *timingWheel) cancel(handle *TimingHandle) {
	if handle == nil || handle.removed {
		return
	}
	for i, e := range tw.h {
		if e.handle == handle {
			heap.Remove(&tw.h, i)
			handle.removed = true
			return
		}
	}
}

// nextFireAt returns the earliest scheduled fire time, and whether any task
// is scheduled at all.
func (tw *timingWheel) nextFireAt() (int64, bool) {
	if tw.h.Len() == 0 {
		return 0, false
	}
	return tw.h[0].fireAt, true
}

// fireDue pops and runs every task due at or before nowMs, reinserting each
// one whose NextRunTime returns a positive value.
func (tw *timingWheel) fireDue(nowMs int64) {
	for tw.h.Len() > 0 && tw.h[0].fireAt <= nowMs {
		e := heap.Pop(&tw.h).(*TimingTaskEntry)
		if e.handle.removed {
			continue
		}
		e.task.Run()
		next := e.task.NextRunTime(nowMs)
		if next <= 0 {
			e.handle.removed = true
			continue
		}
		e.fireAt = next
		heap.Push(&tw.h, e)
	}
}
