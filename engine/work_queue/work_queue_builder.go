package work_queue

import "github.com/Carmen-Shannon/oxy-render/engine/logger"

// WorkQueueBuilderOption is a function that configures a WorkQueue during construction.
type WorkQueueBuilderOption func(*workQueueImpl)

// WithWorkers sets the number of worker goroutines. Zero selects synchronous execution.
//
// Parameters:
//   - n: the requested worker count
//
// Returns:
//   - WorkQueueBuilderOption: option to apply
func WithWorkers(n int) WorkQueueBuilderOption {
	return func(q *workQueueImpl) {
		q.requestedWorkers = n
	}
}

// WithLogger sets the logger used for worker lifecycle messages.
//
// Parameters:
//   - l: the logger, may be nil
//
// Returns:
//   - WorkQueueBuilderOption: option to apply
func WithLogger(l *logger.Logger) WorkQueueBuilderOption {
	return func(q *workQueueImpl) {
		q.log = l
	}
}
