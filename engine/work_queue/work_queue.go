package work_queue

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-render/engine/logger"
)

// MaxWorkers caps the number of worker goroutines.
const MaxWorkers = 8

// WorkQueue is a fixed pool of worker goroutines executing Tasks from one shared FIFO.
// Tasks with dependencies queue themselves when their last dependency completes.
// With no workers every queued task runs synchronously on the caller.
type WorkQueue interface {
	// CreateWorkerThreads stops any running workers and starts a new set.
	//
	// Parameters:
	//   - n: requested worker count, clamped to runtime.NumCPU() and MaxWorkers
	CreateWorkerThreads(n int)

	// QueueTask enqueues a task that has no remaining dependencies.
	// Panics if the task still has unfinished dependencies; those tasks queue themselves.
	//
	// Parameters:
	//   - task: the task to run
	QueueTask(task Task)

	// QueueTasks enqueues several tasks at once. Same rules as QueueTask.
	//
	// Parameters:
	//   - tasks: the tasks to run
	QueueTasks(tasks []Task)

	// AddDependency makes task wait for dependency. Must be called before dependency
	// is queued, and task must not be queued directly afterwards.
	//
	// Parameters:
	//   - task: the dependent task
	//   - dependency: the task that must finish first
	AddDependency(task, dependency Task)

	// Complete runs queued tasks on the calling goroutine and waits until every pending
	// task has finished. Call only from the orchestrating goroutine, and only when all
	// tasks with dependencies are guaranteed to be queued eventually, otherwise it never returns.
	Complete()

	// TryComplete runs at most one queued task on the calling goroutine.
	//
	// Returns:
	//   - bool: true if a task was executed
	TryComplete() bool

	// NumPendingTasks returns the number of queued or running tasks.
	//
	// Returns:
	//   - int: the pending task count
	NumPendingTasks() int

	// NumWorkers returns the number of worker goroutines.
	//
	// Returns:
	//   - int: the worker count, 0 in synchronous mode
	NumWorkers() int

	// NumThreads returns the number of distinct thread indices tasks may receive.
	// Size per-thread scratch buffers with it.
	//
	// Returns:
	//   - int: NumWorkers() + 1
	NumThreads() int

	// Close stops all workers. Pending tasks are not awaited.
	Close()
}

type workQueueImpl struct {
	mu         sync.Mutex
	cond       *sync.Cond
	tasks      []Task
	head       int
	shouldExit bool

	pending          atomic.Int64
	numWorkers       atomic.Int32
	requestedWorkers int
	workers          sync.WaitGroup

	log *logger.Logger
}

var _ WorkQueue = &workQueueImpl{}

// NewWorkQueue creates a WorkQueue and starts its workers.
// Without WithWorkers the worker count defaults to NumCPU-1.
//
// Parameters:
//   - options: builder options
//
// Returns:
//   - WorkQueue: the running queue
func NewWorkQueue(options ...WorkQueueBuilderOption) WorkQueue {
	q := &workQueueImpl{
		requestedWorkers: max(runtime.NumCPU()-1, 1),
	}
	q.cond = sync.NewCond(&q.mu)

	for _, opt := range options {
		opt(q)
	}

	q.CreateWorkerThreads(q.requestedWorkers)
	return q
}

func (q *workQueueImpl) CreateWorkerThreads(n int) {
	q.stopWorkers()

	n = min(n, runtime.NumCPU(), MaxWorkers)
	n = max(n, 0)

	q.mu.Lock()
	q.shouldExit = false
	q.numWorkers.Store(int32(n))
	q.mu.Unlock()

	for i := range n {
		q.workers.Add(1)
		go q.workerLoop(i + 1)
	}
	q.log.Debug("work queue started", "workers", n)
}

func (q *workQueueImpl) stopWorkers() {
	q.mu.Lock()
	if q.numWorkers.Load() == 0 {
		q.mu.Unlock()
		return
	}
	q.shouldExit = true
	q.cond.Broadcast()
	q.mu.Unlock()

	q.workers.Wait()

	q.numWorkers.Store(0)
	q.log.Debug("work queue workers stopped")
}

func (q *workQueueImpl) workerLoop(threadIndex int) {
	defer q.workers.Done()
	for {
		q.mu.Lock()
		for q.head == len(q.tasks) && !q.shouldExit {
			q.cond.Wait()
		}
		if q.shouldExit {
			q.mu.Unlock()
			return
		}
		task := q.popLocked()
		q.mu.Unlock()

		q.completeTask(task, threadIndex)
	}
}

func (q *workQueueImpl) popLocked() Task {
	task := q.tasks[q.head]
	q.tasks[q.head] = nil
	q.head++
	if q.head == len(q.tasks) {
		q.tasks = q.tasks[:0]
		q.head = 0
	}
	return task
}

func (q *workQueueImpl) completeTask(task Task, threadIndex int) {
	task.Complete(threadIndex)

	base := task.taskBase()
	dependents := base.dependents
	base.dependents = base.dependents[:0]
	for _, dep := range dependents {
		if dep.taskBase().numDependencies.Add(-1) == 0 {
			q.QueueTask(dep)
		}
	}

	q.pending.Add(-1)
}

func (q *workQueueImpl) QueueTask(task Task) {
	if task.taskBase().numDependencies.Load() != 0 {
		panic("work_queue: queued a task with unfinished dependencies")
	}

	q.pending.Add(1)
	if q.NumWorkers() == 0 {
		q.completeTask(task, 0)
		return
	}

	q.mu.Lock()
	q.tasks = append(q.tasks, task)
	q.mu.Unlock()
	q.cond.Signal()
}

func (q *workQueueImpl) QueueTasks(tasks []Task) {
	if q.NumWorkers() == 0 {
		for _, task := range tasks {
			q.QueueTask(task)
		}
		return
	}

	for _, task := range tasks {
		if task.taskBase().numDependencies.Load() != 0 {
			panic("work_queue: queued a task with unfinished dependencies")
		}
	}

	q.pending.Add(int64(len(tasks)))
	q.mu.Lock()
	q.tasks = append(q.tasks, tasks...)
	q.mu.Unlock()
	q.cond.Broadcast()
}

func (q *workQueueImpl) AddDependency(task, dependency Task) {
	task.taskBase().numDependencies.Add(1)
	base := dependency.taskBase()
	base.dependents = append(base.dependents, task)
}

func (q *workQueueImpl) Complete() {
	if q.NumWorkers() == 0 {
		return
	}
	for q.pending.Load() > 0 {
		if !q.TryComplete() {
			runtime.Gosched()
		}
	}
}

func (q *workQueueImpl) TryComplete() bool {
	q.mu.Lock()
	if q.head == len(q.tasks) {
		q.mu.Unlock()
		return false
	}
	task := q.popLocked()
	q.mu.Unlock()

	q.completeTask(task, 0)
	return true
}

func (q *workQueueImpl) NumPendingTasks() int {
	return int(q.pending.Load())
}

func (q *workQueueImpl) NumWorkers() int {
	return int(q.numWorkers.Load())
}

func (q *workQueueImpl) NumThreads() int {
	return q.NumWorkers() + 1
}

func (q *workQueueImpl) Close() {
	q.stopWorkers()
}
