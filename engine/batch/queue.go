package batch

import (
	"cmp"
	"slices"
)

// SortMode selects how Queue.Sort orders batches.
type SortMode int

const (
	// SortState groups batches by pass, geometry and light mask.
	SortState SortMode = iota
	// SortStateDistance orders state groups front to back using the closest distance at which
	// each pass and geometry was seen this frame, then groups by state.
	SortStateDistance
	// SortDistance orders batches back to front.
	SortDistance
)

func (m SortMode) String() string {
	switch m {
	case SortState:
		return "state"
	case SortStateDistance:
		return "state-distance"
	case SortDistance:
		return "distance"
	default:
		return "unknown"
	}
}

// Queue is a growable list of batches. After Sort with an instance buffer, runs of static
// batches sharing state are collapsed: the first batch of the run becomes Instanced and
// the rest stay in place but are skipped by Each.
type Queue struct {
	Batches []Batch
}

// Clear empties the queue and keeps its storage.
func (q *Queue) Clear() {
	clear(q.Batches)
	q.Batches = q.Batches[:0]
}

// Add appends one batch.
func (q *Queue) Add(b Batch) {
	q.Batches = append(q.Batches, b)
}

// Append appends batches.
func (q *Queue) Append(batches []Batch) {
	q.Batches = append(q.Batches, batches...)
}

// Len returns the number of stored batches including collapsed ones.
func (q *Queue) Len() int {
	return len(q.Batches)
}

// Empty reports whether the queue holds no batches.
func (q *Queue) Empty() bool {
	return len(q.Batches) == 0
}

// Sort orders the queue and, when instances is non-nil, converts runs of adjacent static
// batches with equal pass, geometry and light mask into instanced batches whose transforms
// are appended to instances. SortDistance queues are never instanced.
//
// Parameters:
//   - mode: the sort order
//   - instances: destination for instance transforms, or nil to skip instancing
func (q *Queue) Sort(mode SortMode, instances *InstanceBuffer) {
	switch mode {
	case SortState:
		slices.SortStableFunc(q.Batches, compareState)
	case SortStateDistance:
		slices.SortStableFunc(q.Batches, compareStateDistance)
	case SortDistance:
		slices.SortStableFunc(q.Batches, func(a, b Batch) int {
			return cmp.Compare(b.Distance, a.Distance)
		})
		return
	}
	if instances != nil {
		q.convertToInstanced(instances)
	}
}

func compareState(a, b Batch) int {
	if c := cmp.Compare(a.Pass.ID, b.Pass.ID); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Geometry.ID, b.Geometry.ID); c != 0 {
		return c
	}
	return cmp.Compare(a.LightMask, b.LightMask)
}

func compareStateDistance(a, b Batch) int {
	if c := cmp.Compare(a.Pass.SortKey.Distance(), b.Pass.SortKey.Distance()); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Pass.ID, b.Pass.ID); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Geometry.SortKey.Distance(), b.Geometry.SortKey.Distance()); c != 0 {
		return c
	}
	if c := compareState(a, b); c != 0 {
		return c
	}
	return cmp.Compare(a.Distance, b.Distance)
}

func (q *Queue) convertToInstanced(instances *InstanceBuffer) {
	for i := 0; i < len(q.Batches); {
		first := &q.Batches[i]
		if !first.IsStatic() {
			i++
			continue
		}
		end := i + 1
		for end < len(q.Batches) && q.Batches[end].IsStatic() && first.sameState(&q.Batches[end]) {
			end++
		}
		count := end - i
		if count > 1 {
			if start, ok := instances.reserve(count); ok {
				for j := i; j < end; j++ {
					instances.transforms = append(instances.transforms, *q.Batches[j].Payload.(Static).Transform)
				}
				first.Payload = Instanced{Start: start, Count: count}
			}
		}
		i = end
	}
}

// Each calls fn for every batch that issues a draw call, skipping the batches collapsed
// into a preceding instanced batch.
//
// Parameters:
//   - fn: receives the index and a pointer to the batch
func (q *Queue) Each(fn func(index int, b *Batch)) {
	for i := 0; i < len(q.Batches); {
		b := &q.Batches[i]
		fn(i, b)
		i += b.InstanceCount()
	}
}

// NumDraws returns the number of draw calls the queue issues.
func (q *Queue) NumDraws() int {
	n := 0
	q.Each(func(int, *Batch) { n++ })
	return n
}
