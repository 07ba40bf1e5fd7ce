package material

import (
	"math"
	"sync/atomic"
)

// SortKeyTracker records the smallest camera distance at which an object was seen during
// the current frame. Batch sorting uses it as a cheap, frame-coherent substitute for a
// per-batch distance. Safe for concurrent use from worker tasks.
type SortKeyTracker struct {
	key atomic.Uint64 // frame<<32 | float32 bits of distance
}

// Record stores distance if it is the first record of frameNumber or closer than the current one.
//
// Parameters:
//   - frameNumber: the current frame
//   - distance: non-negative camera distance
func (t *SortKeyTracker) Record(frameNumber uint32, distance float32) {
	if distance < 0 {
		distance = 0
	}
	next := uint64(frameNumber)<<32 | uint64(math.Float32bits(distance))
	for {
		cur := t.key.Load()
		if uint32(cur>>32) == frameNumber && uint32(cur) <= uint32(next) {
			return
		}
		if t.key.CompareAndSwap(cur, next) {
			return
		}
	}
}

// Distance returns the recorded distance as an order-preserving integer.
//
// Returns:
//   - uint32: the float32 bits of the last recorded distance
func (t *SortKeyTracker) Distance() uint32 {
	return uint32(t.key.Load())
}

// Frame returns the frame of the last record.
//
// Returns:
//   - uint32: the frame number
func (t *SortKeyTracker) Frame() uint32 {
	return uint32(t.key.Load() >> 32)
}
