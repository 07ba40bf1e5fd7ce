package common

// Rect is an integer rectangle in texel space. Right and Bottom are exclusive.
// The zero Rect means "no area" and is used to mark skipped shadow views.
type Rect struct {
	Left, Top, Right, Bottom int
}

// NewRect builds a Rect from a position and a size.
//
// Parameters:
//   - x, y: top-left corner
//   - width, height: extent of the rectangle
//
// Returns:
//   - Rect: the rectangle covering [x, x+width) × [y, y+height)
func NewRect(x, y, width, height int) Rect {
	return Rect{Left: x, Top: y, Right: x + width, Bottom: y + height}
}

func (r Rect) Width() int  { return r.Right - r.Left }
func (r Rect) Height() int { return r.Bottom - r.Top }

// IsZero reports whether r is the zero rectangle.
func (r Rect) IsZero() bool {
	return r == Rect{}
}

// Area returns width × height, or 0 for degenerate rectangles.
func (r Rect) Area() int {
	if r.Right <= r.Left || r.Bottom <= r.Top {
		return 0
	}
	return r.Width() * r.Height()
}

// Contains reports whether o lies fully inside r.
func (r Rect) Contains(o Rect) bool {
	return o.Left >= r.Left && o.Top >= r.Top && o.Right <= r.Right && o.Bottom <= r.Bottom
}

// Overlaps reports whether r and o share any area.
func (r Rect) Overlaps(o Rect) bool {
	return o.Left < r.Right && o.Right > r.Left && o.Top < r.Bottom && o.Bottom > r.Top
}
