// Package draw defines the flat primitives the layout pass hands to a
// renderer. Coordinates are in logical units; the renderer applies the
// device scale factor.
package draw

import "sort"

// Color is an sRGB color with straight alpha.
type Color struct {
	R, G, B, A uint8
}

// RGB returns an opaque color.
func RGB(r, g, b uint8) Color { return Color{r, g, b, 0xff} }

// Brush fills a rect. Only solid fills for now.
type Brush struct {
	Color Color
}

// Solid returns a solid-color brush.
func Solid(c Color) Brush { return Brush{Color: c} }

// Box is an axis-aligned rectangle.
type Box struct {
	X, Y, W, H float64
}

// Contains reports whether the point is inside the box.
func (b Box) Contains(x, y float64) bool {
	return x >= b.X && x < b.X+b.W && y >= b.Y && y < b.Y+b.H
}

// Radii are rounded-corner radii, clockwise from top-left. Zero means
// sharp corners.
type Radii struct {
	TL, TR, BR, BL float64
}

// Uniform returns equal radii for all corners.
func Uniform(r float64) Radii { return Radii{r, r, r, r} }

// Rect is a filled rectangle primitive.
type Rect struct {
	Rect  Box
	Brush Brush
	Radii Radii
	Clip  *Box
	Z     int
}

// Text is a text-run primitive. Size is the font size in logical units and
// Pos is the baseline origin.
type Text struct {
	String string
	Size   float64
	Color  Color
	X, Y   float64
	Clip   *Box
	Z      int
}

// List accumulates one frame's primitives.
type List struct {
	rects []Rect
	texts []Text
	seq   []item
}

type item struct {
	z    int
	ord  int
	rect bool
	idx  int
}

// Reset empties the list for the next frame.
func (l *List) Reset() {
	l.rects = l.rects[:0]
	l.texts = l.texts[:0]
	l.seq = l.seq[:0]
}

// AddRect appends a rect primitive.
func (l *List) AddRect(r Rect) {
	l.seq = append(l.seq, item{z: r.Z, ord: len(l.seq), rect: true, idx: len(l.rects)})
	l.rects = append(l.rects, r)
}

// AddText appends a text primitive.
func (l *List) AddText(t Text) {
	l.seq = append(l.seq, item{z: t.Z, ord: len(l.seq), idx: len(l.texts)})
	l.texts = append(l.texts, t)
}

// Len returns the number of primitives.
func (l *List) Len() int { return len(l.seq) }

// Walk visits the primitives in paint order: ascending z, insertion order
// within a z level. Exactly one of the arguments is non-nil per call.
func (l *List) Walk(f func(r *Rect, t *Text)) {
	seq := append([]item(nil), l.seq...)
	sort.SliceStable(seq, func(i, j int) bool { return seq[i].z < seq[j].z })
	for _, it := range seq {
		if it.rect {
			f(&l.rects[it.idx], nil)
		} else {
			f(nil, &l.texts[it.idx])
		}
	}
}
