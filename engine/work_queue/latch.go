package work_queue

import (
	"runtime"
	"sync/atomic"
)

// Latch is a countdown counter whose last CountDown triggers the next stage of work.
// The zero value is a released latch.
type Latch struct {
	count atomic.Int64
}

// Reset sets the count to n.
func (l *Latch) Reset(n int) {
	l.count.Store(int64(n))
}

// Add increases the count by n. Call it before handing the matching work to another goroutine.
func (l *Latch) Add(n int) {
	l.count.Add(int64(n))
}

// CountDown decrements the count and reports whether this call released the latch.
func (l *Latch) CountDown() bool {
	return l.count.Add(-1) == 0
}

// Count returns the current count.
func (l *Latch) Count() int {
	return int(l.count.Load())
}

// Released reports whether the count has reached zero.
func (l *Latch) Released() bool {
	return l.count.Load() <= 0
}

// Await blocks until the latch is released, executing queued tasks from q on the
// calling goroutine while it waits.
//
// Parameters:
//   - q: the queue whose tasks will release the latch
func (l *Latch) Await(q WorkQueue) {
	for !l.Released() {
		if !q.TryComplete() {
			runtime.Gosched()
		}
	}
}
