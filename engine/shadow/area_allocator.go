package shadow

import (
	"slices"

	"github.com/Carmen-Shannon/oxy-render/common"
)

// AreaAllocator packs rectangles into a fixed area. It keeps the list of maximal free
// rectangles: every allocation splits the free rectangles it overlaps into the parts
// outside it, and free rectangles contained in others are pruned.
type AreaAllocator struct {
	width   int
	height  int
	free    []common.Rect
	scratch []common.Rect
}

// NewAreaAllocator creates an allocator covering width × height texels.
//
// Parameters:
//   - width: area width
//   - height: area height
//
// Returns:
//   - *AreaAllocator: the allocator
func NewAreaAllocator(width, height int) *AreaAllocator {
	a := &AreaAllocator{}
	a.Reset(width, height)
	return a
}

// Reset frees the whole area and changes its size.
func (a *AreaAllocator) Reset(width, height int) {
	a.width = width
	a.height = height
	a.free = append(a.free[:0], common.NewRect(0, 0, width, height))
}

// Width returns the area width.
func (a *AreaAllocator) Width() int { return a.width }

// Height returns the area height.
func (a *AreaAllocator) Height() int { return a.height }

// Allocate reserves a width × height rectangle in the best fitting free rectangle,
// preferring the one that leaves the smallest leftover area.
//
// Parameters:
//   - width: requested width
//   - height: requested height
//
// Returns:
//   - common.Rect: the reserved rectangle
//   - bool: false if nothing fits
func (a *AreaAllocator) Allocate(width, height int) (common.Rect, bool) {
	if width <= 0 || height <= 0 {
		return common.Rect{}, false
	}
	best := -1
	bestWaste := 0
	for i, f := range a.free {
		if f.Width() < width || f.Height() < height {
			continue
		}
		waste := f.Area() - width*height
		if best < 0 || waste < bestWaste || (waste == bestWaste && (f.Top < a.free[best].Top || (f.Top == a.free[best].Top && f.Left < a.free[best].Left))) {
			best = i
			bestWaste = waste
		}
	}
	if best < 0 {
		return common.Rect{}, false
	}
	rect := common.NewRect(a.free[best].Left, a.free[best].Top, width, height)
	a.reserve(rect)
	return rect, true
}

// AllocateSpecific reserves exactly rect if it lies in free space.
//
// Parameters:
//   - rect: the wanted rectangle
//
// Returns:
//   - bool: false if any part of rect is outside the area or already reserved
func (a *AreaAllocator) AllocateSpecific(rect common.Rect) bool {
	if rect.Area() == 0 {
		return false
	}
	for _, f := range a.free {
		if f.Contains(rect) {
			a.reserve(rect)
			return true
		}
	}
	return false
}

func (a *AreaAllocator) reserve(used common.Rect) {
	next := a.scratch[:0]
	for _, f := range a.free {
		if !f.Overlaps(used) {
			next = append(next, f)
			continue
		}
		if used.Left > f.Left {
			next = append(next, common.Rect{Left: f.Left, Top: f.Top, Right: used.Left, Bottom: f.Bottom})
		}
		if used.Right < f.Right {
			next = append(next, common.Rect{Left: used.Right, Top: f.Top, Right: f.Right, Bottom: f.Bottom})
		}
		if used.Top > f.Top {
			next = append(next, common.Rect{Left: f.Left, Top: f.Top, Right: f.Right, Bottom: used.Top})
		}
		if used.Bottom < f.Bottom {
			next = append(next, common.Rect{Left: f.Left, Top: used.Bottom, Right: f.Right, Bottom: f.Bottom})
		}
	}
	a.scratch = a.free
	a.free = next
	a.prune()
}

func (a *AreaAllocator) prune() {
	for i := 0; i < len(a.free); i++ {
		for j := 0; j < len(a.free); j++ {
			if i == j || !a.free[j].Contains(a.free[i]) {
				continue
			}
			if a.free[i] == a.free[j] && i < j {
				continue
			}
			a.free = slices.Delete(a.free, i, i+1)
			i--
			break
		}
	}
}
