package work_queue

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func forEachWorkerCount(t *testing.T, fn func(t *testing.T, q WorkQueue)) {
	for _, workers := range []int{0, 4} {
		t.Run(map[int]string{0: "sync", 4: "workers"}[workers], func(t *testing.T) {
			q := NewWorkQueue(WithWorkers(workers))
			defer q.Close()
			fn(t, q)
		})
	}
}

func TestDependentRunsAfterDependencies(t *testing.T) {
	forEachWorkerCount(t, func(t *testing.T, q WorkQueue) {
		var mu sync.Mutex
		var order []string
		record := func(name string) *FuncTask {
			return NewFuncTask(func(int) {
				mu.Lock()
				order = append(order, name)
				mu.Unlock()
			})
		}

		a, b, d := record("a"), record("b"), record("d")
		q.AddDependency(d, a)
		q.AddDependency(d, b)
		assert.Equal(t, 2, d.NumDependencies())

		q.QueueTasks([]Task{a, b})
		q.Complete()

		require.Len(t, order, 3)
		assert.Equal(t, "d", order[2])
		assert.ElementsMatch(t, []string{"a", "b"}, order[:2])
		assert.Zero(t, q.NumPendingTasks())
	})
}

func TestDiamondGraphRunsEachTaskOnce(t *testing.T) {
	forEachWorkerCount(t, func(t *testing.T, q WorkQueue) {
		const n = 64
		var counts [n]atomic.Int32
		tasks := make([]*FuncTask, n)
		for i := range tasks {
			tasks[i] = NewFuncTask(func(int) { counts[i].Add(1) })
		}
		// task i depends on every task j < i with j dividing i
		var roots []Task
		for i := 1; i < n; i++ {
			for j := 1; j < i; j++ {
				if i%j == 0 {
					q.AddDependency(tasks[i], tasks[j])
				}
			}
		}
		for i := 1; i < n; i++ {
			if tasks[i].NumDependencies() == 0 {
				roots = append(roots, tasks[i])
			}
		}
		roots = append(roots, tasks[0])

		q.QueueTasks(roots)
		q.Complete()

		for i := range counts {
			assert.Equal(t, int32(1), counts[i].Load(), "task %d", i)
		}
	})
}

func TestQueueTaskWithDependenciesPanics(t *testing.T) {
	q := NewWorkQueue(WithWorkers(0))
	a, b := NewFuncTask(func(int) {}), NewFuncTask(func(int) {})
	q.AddDependency(b, a)
	assert.Panics(t, func() { q.QueueTask(b) })
}

func TestSynchronousModeUsesThreadZero(t *testing.T) {
	q := NewWorkQueue(WithWorkers(0))
	assert.Equal(t, 0, q.NumWorkers())
	assert.Equal(t, 1, q.NumThreads())

	idx := -1
	q.QueueTask(NewFuncTask(func(threadIndex int) { idx = threadIndex }))
	assert.Equal(t, 0, idx)
	assert.False(t, q.TryComplete())
}

func TestThreadIndicesAreInRange(t *testing.T) {
	q := NewWorkQueue(WithWorkers(4))
	defer q.Close()

	var bad atomic.Int32
	tasks := make([]Task, 256)
	for i := range tasks {
		tasks[i] = NewFuncTask(func(threadIndex int) {
			if threadIndex < 0 || threadIndex >= q.NumThreads() {
				bad.Add(1)
			}
		})
	}
	q.QueueTasks(tasks)
	q.Complete()
	assert.Zero(t, bad.Load())
}

func TestCreateWorkerThreadsResizes(t *testing.T) {
	q := NewWorkQueue(WithWorkers(1))
	defer q.Close()

	q.CreateWorkerThreads(100)
	assert.LessOrEqual(t, q.NumWorkers(), MaxWorkers)
	assert.GreaterOrEqual(t, q.NumWorkers(), 1)

	var ran atomic.Int32
	q.QueueTask(NewFuncTask(func(int) { ran.Add(1) }))
	q.Complete()
	assert.Equal(t, int32(1), ran.Load())

	q.CreateWorkerThreads(0)
	assert.Equal(t, 0, q.NumWorkers())
}

func TestTaskReuseAcrossFrames(t *testing.T) {
	forEachWorkerCount(t, func(t *testing.T, q WorkQueue) {
		var runs atomic.Int32
		a := NewFuncTask(func(int) {})
		d := NewFuncTask(func(int) { runs.Add(1) })
		for range 3 {
			q.AddDependency(d, a)
			q.QueueTask(a)
			q.Complete()
		}
		assert.Equal(t, int32(3), runs.Load())
	})
}

func TestLatchAwait(t *testing.T) {
	forEachWorkerCount(t, func(t *testing.T, q WorkQueue) {
		var l Latch
		l.Reset(8)
		var stageRan atomic.Bool
		for range 8 {
			q.QueueTask(NewFuncTask(func(int) {
				if l.CountDown() {
					stageRan.Store(true)
				}
			}))
		}
		l.Await(q)
		assert.True(t, l.Released())
		assert.True(t, stageRan.Load())
		q.Complete()
	})
}
