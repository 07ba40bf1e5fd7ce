package batch

import "github.com/Carmen-Shannon/oxy-render/common"

// DefaultInstanceCapacity is the default number of transforms an InstanceBuffer holds.
const DefaultInstanceCapacity = 65536

// InstanceBuffer collects the world transforms of instanced batches for one frame.
// Runs that do not fit are left as individual static batches.
type InstanceBuffer struct {
	transforms []common.Mat4
	capacity   int
	dropped    int
}

// NewInstanceBuffer creates an instance buffer.
//
// Parameters:
//   - capacity: maximum number of transforms per frame, DefaultInstanceCapacity if not positive
//
// Returns:
//   - *InstanceBuffer: the buffer
func NewInstanceBuffer(capacity int) *InstanceBuffer {
	if capacity <= 0 {
		capacity = DefaultInstanceCapacity
	}
	return &InstanceBuffer{
		transforms: make([]common.Mat4, 0, min(capacity, 1024)),
		capacity:   capacity,
	}
}

// Reset empties the buffer for a new frame.
func (b *InstanceBuffer) Reset() {
	b.transforms = b.transforms[:0]
	b.dropped = 0
}

// Transforms returns the transforms written this frame.
func (b *InstanceBuffer) Transforms() []common.Mat4 {
	return b.transforms
}

// Len returns the number of transforms written this frame.
func (b *InstanceBuffer) Len() int {
	return len(b.transforms)
}

// Capacity returns the maximum number of transforms per frame.
func (b *InstanceBuffer) Capacity() int {
	return b.capacity
}

// Dropped returns the number of batches that could not be instanced this frame for lack of room.
func (b *InstanceBuffer) Dropped() int {
	return b.dropped
}

// SetCapacity changes the per-frame capacity. It takes effect for the next appends.
func (b *InstanceBuffer) SetCapacity(capacity int) {
	if capacity > 0 {
		b.capacity = capacity
	}
}

func (b *InstanceBuffer) reserve(n int) (int, bool) {
	if len(b.transforms)+n > b.capacity {
		b.dropped += n
		return 0, false
	}
	return len(b.transforms), true
}
