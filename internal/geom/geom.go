// Package geom provides the rectangle math used throughout the translation
// pipeline: intersection, union, containment ratios, and conversion between
// the layout detector's pixel space and the document's point space.
//
// All rectangles are axis-aligned with the origin at the top-left corner,
// matching both the rendered page image and the PDF text extraction output.
package geom

// Rect is an axis-aligned rectangle. X0/Y0 is the top-left corner,
// X1/Y1 the bottom-right. A Rect with X1 <= X0 or Y1 <= Y0 is empty.
type Rect struct {
	X0, Y0, X1, Y1 float64
}

// NewRect returns a normalized rectangle with corners ordered.
func NewRect(x0, y0, x1, y1 float64) Rect {
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	return Rect{X0: x0, Y0: y0, X1: x1, Y1: y1}
}

// Width returns the horizontal extent of the rectangle.
func (r Rect) Width() float64 { return r.X1 - r.X0 }

// Height returns the vertical extent of the rectangle.
func (r Rect) Height() float64 { return r.Y1 - r.Y0 }

// Area returns the area of the rectangle, zero if it is empty.
func (r Rect) Area() float64 {
	if r.IsEmpty() {
		return 0
	}
	return r.Width() * r.Height()
}

// IsEmpty reports whether the rectangle encloses no area.
func (r Rect) IsEmpty() bool {
	return r.X1 <= r.X0 || r.Y1 <= r.Y0
}

// Intersect returns the overlapping region of r and o.
// The result is empty when the rectangles do not overlap.
func (r Rect) Intersect(o Rect) Rect {
	out := Rect{
		X0: max(r.X0, o.X0),
		Y0: max(r.Y0, o.Y0),
		X1: min(r.X1, o.X1),
		Y1: min(r.Y1, o.Y1),
	}
	if out.IsEmpty() {
		return Rect{}
	}
	return out
}

// Intersects reports whether r and o share any area.
func (r Rect) Intersects(o Rect) bool {
	return !r.Intersect(o).IsEmpty()
}

// Union returns the smallest rectangle enclosing both r and o.
// An empty rectangle is the identity element.
func (r Rect) Union(o Rect) Rect {
	if r.IsEmpty() {
		return o
	}
	if o.IsEmpty() {
		return r
	}
	return Rect{
		X0: min(r.X0, o.X0),
		Y0: min(r.Y0, o.Y0),
		X1: max(r.X1, o.X1),
		Y1: max(r.Y1, o.Y1),
	}
}

// Contains reports whether o lies entirely within r.
func (r Rect) Contains(o Rect) bool {
	if r.IsEmpty() || o.IsEmpty() {
		return false
	}
	return o.X0 >= r.X0 && o.Y0 >= r.Y0 && o.X1 <= r.X1 && o.Y1 <= r.Y1
}

// Expand grows the rectangle by margin on every side.
func (r Rect) Expand(margin float64) Rect {
	return Rect{
		X0: r.X0 - margin,
		Y0: r.Y0 - margin,
		X1: r.X1 + margin,
		Y1: r.Y1 + margin,
	}
}

// OverlapRatio returns intersection area over the smaller of the two areas.
// This is the overlap-over-smaller-area metric used by non-maximum
// suppression: 1.0 means the smaller rectangle is fully covered.
func OverlapRatio(a, b Rect) float64 {
	inter := a.Intersect(b).Area()
	if inter == 0 {
		return 0
	}
	smaller := min(a.Area(), b.Area())
	if smaller == 0 {
		return 0
	}
	return inter / smaller
}

// CoverageOf returns the fraction of a's area covered by b.
func CoverageOf(a, b Rect) float64 {
	area := a.Area()
	if area == 0 {
		return 0
	}
	return a.Intersect(b).Area() / area
}

// FromPixels converts a rectangle from detector pixel space to document
// point space using the page's render zoom factor.
func FromPixels(r Rect, zoom float64) Rect {
	if zoom == 0 {
		return r
	}
	return Rect{X0: r.X0 / zoom, Y0: r.Y0 / zoom, X1: r.X1 / zoom, Y1: r.Y1 / zoom}
}

// ToPixels converts a rectangle from document point space to detector
// pixel space using the page's render zoom factor.
func ToPixels(r Rect, zoom float64) Rect {
	return Rect{X0: r.X0 * zoom, Y0: r.Y0 * zoom, X1: r.X1 * zoom, Y1: r.Y1 * zoom}
}

// UnionCoverage returns the fraction of base covered by the union of the
// given rectangles. The union area is computed exactly on the coordinate
// grid induced by the clipped rectangles, so overlapping covers are not
// double counted.
func UnionCoverage(base Rect, covers []Rect) float64 {
	baseArea := base.Area()
	if baseArea == 0 || len(covers) == 0 {
		return 0
	}

	clipped := make([]Rect, 0, len(covers))
	xs := make([]float64, 0, 2*len(covers))
	ys := make([]float64, 0, 2*len(covers))
	for _, c := range covers {
		ci := base.Intersect(c)
		if ci.IsEmpty() {
			continue
		}
		clipped = append(clipped, ci)
		xs = append(xs, ci.X0, ci.X1)
		ys = append(ys, ci.Y0, ci.Y1)
	}
	if len(clipped) == 0 {
		return 0
	}

	xs = sortedUnique(xs)
	ys = sortedUnique(ys)

	covered := 0.0
	for i := 0; i+1 < len(xs); i++ {
		for j := 0; j+1 < len(ys); j++ {
			cell := Rect{X0: xs[i], Y0: ys[j], X1: xs[i+1], Y1: ys[j+1]}
			for _, c := range clipped {
				if c.Contains(cell) {
					covered += cell.Area()
					break
				}
			}
		}
	}
	return covered / baseArea
}

func sortedUnique(vals []float64) []float64 {
	// Insertion sort keeps this allocation-free; the slices here are tiny
	// (two coordinates per overlapping box).
	for i := 1; i < len(vals); i++ {
		for j := i; j > 0 && vals[j] < vals[j-1]; j-- {
			vals[j], vals[j-1] = vals[j-1], vals[j]
		}
	}
	out := vals[:0]
	for i, v := range vals {
		if i == 0 || v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}
