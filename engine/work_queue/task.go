package work_queue

import "sync/atomic"

// Task is a unit of work run by a WorkQueue. Implementations embed TaskBase,
// which carries the dependency counter and the list of dependent tasks.
type Task interface {
	// Complete executes the task.
	//
	// Parameters:
	//   - threadIndex: 0 for the orchestrating goroutine, 1..N for workers
	Complete(threadIndex int)

	taskBase() *TaskBase
}

// TaskBase holds the scheduling state shared by all tasks.
type TaskBase struct {
	numDependencies atomic.Int32
	dependents      []Task
}

func (b *TaskBase) taskBase() *TaskBase { return b }

// NumDependencies returns the number of unfinished tasks this task waits on.
func (b *TaskBase) NumDependencies() int {
	return int(b.numDependencies.Load())
}

// FuncTask adapts a function to the Task interface.
type FuncTask struct {
	TaskBase
	fn func(threadIndex int)
}

var _ Task = &FuncTask{}

// NewFuncTask wraps fn in a Task.
//
// Parameters:
//   - fn: the work to run, receiving the executing thread index
//
// Returns:
//   - *FuncTask: the task, ready to queue or to receive dependencies
func NewFuncTask(fn func(threadIndex int)) *FuncTask {
	return &FuncTask{fn: fn}
}

func (t *FuncTask) Complete(threadIndex int) {
	t.fn(threadIndex)
}
