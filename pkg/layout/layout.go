// Package layout measures and places a tree of layout nodes: a two-pass
// protocol where a parent measures each child's outer coordinator within
// constraints, then places it, with layout-capable modifier nodes wrapping
// the node's own measure policy.
package layout

import "math"

// Inf marks an unbounded constraint axis.
var Inf = math.Inf(1)

// Size is a measured extent in logical units.
type Size struct {
	W, H float64
}

// Point is a position relative to the parent node.
type Point struct {
	X, Y float64
}

// Constraints bound a measurement. Max axes may be Inf.
type Constraints struct {
	MinW, MaxW float64
	MinH, MaxH float64
}

// Tight returns constraints admitting exactly one size.
func Tight(w, h float64) Constraints {
	return Constraints{MinW: w, MaxW: w, MinH: h, MaxH: h}
}

// Loose returns constraints from zero up to the given size.
func Loose(w, h float64) Constraints {
	return Constraints{MaxW: w, MaxH: h}
}

// Unbounded returns constraints with no upper limits.
func Unbounded() Constraints {
	return Constraints{MaxW: Inf, MaxH: Inf}
}

// Loosen drops the minimums.
func (c Constraints) Loosen() Constraints {
	c.MinW, c.MinH = 0, 0
	return c
}

// Constrain clamps s into the constraints.
func (c Constraints) Constrain(s Size) Size {
	return Size{
		W: clamp(s.W, c.MinW, c.MaxW),
		H: clamp(s.H, c.MinH, c.MaxH),
	}
}

// BoundedW reports whether the width axis has a finite maximum.
func (c Constraints) BoundedW() bool { return !math.IsInf(c.MaxW, 1) }

// BoundedH reports whether the height axis has a finite maximum.
func (c Constraints) BoundedH() bool { return !math.IsInf(c.MaxH, 1) }

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Axis selects the main axis of a flex container.
type Axis int

const (
	Horizontal Axis = iota
	Vertical
)

// main and cross pull the axis components out of a size.
func (a Axis) main(s Size) float64 {
	if a == Horizontal {
		return s.W
	}
	return s.H
}

func (a Axis) cross(s Size) float64 {
	if a == Horizontal {
		return s.H
	}
	return s.W
}

func (a Axis) size(main, cross float64) Size {
	if a == Horizontal {
		return Size{W: main, H: cross}
	}
	return Size{W: cross, H: main}
}

// Alignment positions a child inside leftover space on one axis.
type Alignment int

const (
	AlignStart Alignment = iota
	AlignCenter
	AlignEnd
)

func (a Alignment) offset(space float64) float64 {
	switch a {
	case AlignCenter:
		return space / 2
	case AlignEnd:
		return space
	}
	return 0
}

// Arrangement positions flex children along the main axis.
type Arrangement int

const (
	ArrangeStart Arrangement = iota
	ArrangeCenter
	ArrangeEnd
)
