package layout

// Child is what a measure policy sees: a measurable plus the child's
// layout parameters.
type Child interface {
	Measurable
	Weight() float64
}

// Placement is an intended child position, relative to the measuring node.
type Placement struct {
	Index int
	X, Y  float64
}

// MeasureResult is a policy's measurement: the node's size and where its
// children go. Placements execute during the place pass.
type MeasureResult struct {
	Size       Size
	Placements []Placement
}

// MeasurePolicy sizes a node and positions its children. Each child is
// measured exactly once per Measure call.
type MeasurePolicy interface {
	Measure(children []Child, c Constraints) MeasureResult
	MinIntrinsicWidth(children []Child, h float64) float64
	MaxIntrinsicWidth(children []Child, h float64) float64
	MinIntrinsicHeight(children []Child, w float64) float64
	MaxIntrinsicHeight(children []Child, w float64) float64
}

// Box overlays its children, sized to the largest, each positioned by the
// alignment pair.
type Box struct {
	AlignX, AlignY Alignment
}

func (b Box) Measure(children []Child, c Constraints) MeasureResult {
	loose := c.Loosen()
	sizes := make([]Size, len(children))
	var maxW, maxH float64
	for i, ch := range children {
		s := ch.Measure(loose)
		sizes[i] = s
		maxW = max(maxW, s.W)
		maxH = max(maxH, s.H)
	}
	size := c.Constrain(Size{W: maxW, H: maxH})
	placements := make([]Placement, len(children))
	for i, s := range sizes {
		placements[i] = Placement{
			Index: i,
			X:     b.AlignX.offset(size.W - s.W),
			Y:     b.AlignY.offset(size.H - s.H),
		}
	}
	return MeasureResult{Size: size, Placements: placements}
}

func (Box) MinIntrinsicWidth(children []Child, h float64) float64 {
	v := 0.0
	for _, ch := range children {
		v = max(v, ch.MinIntrinsicWidth(h))
	}
	return v
}

func (Box) MaxIntrinsicWidth(children []Child, h float64) float64 {
	v := 0.0
	for _, ch := range children {
		v = max(v, ch.MaxIntrinsicWidth(h))
	}
	return v
}

func (Box) MinIntrinsicHeight(children []Child, w float64) float64 {
	v := 0.0
	for _, ch := range children {
		v = max(v, ch.MinIntrinsicHeight(w))
	}
	return v
}

func (Box) MaxIntrinsicHeight(children []Child, w float64) float64 {
	v := 0.0
	for _, ch := range children {
		v = max(v, ch.MaxIntrinsicHeight(w))
	}
	return v
}

// Flex lays children along one axis: unweighted children measure first,
// then leftover main-axis space is split among weighted children in
// proportion to weight. Weights are ignored when the main axis is
// unbounded; overflow falls back to the Start arrangement.
type Flex struct {
	Axis        Axis
	Spacing     float64 // SpacedBy distance between adjacent children
	Arrangement Arrangement
	CrossAlign  Alignment
}

// Row is a horizontal Flex.
func Row() Flex { return Flex{Axis: Horizontal} }

// Column is a vertical Flex.
func Column() Flex { return Flex{Axis: Vertical} }

// SpacedBy returns a copy with the given spacing.
func (f Flex) SpacedBy(d float64) Flex {
	f.Spacing = d
	return f
}

func (f Flex) Measure(children []Child, c Constraints) MeasureResult {
	n := len(children)
	if n == 0 {
		return MeasureResult{Size: c.Constrain(Size{})}
	}
	mainMax, crossMax := f.mainMax(c), f.crossMax(c)
	bounded := mainMax != Inf
	spacing := f.Spacing * float64(n-1)

	sizes := make([]Size, n)
	var totalWeight, fixedMain float64
	for i, ch := range children {
		if w := ch.Weight(); w > 0 && bounded {
			totalWeight += w
			continue
		}
		avail := Inf
		if bounded {
			avail = max(0, mainMax-spacing-fixedMain)
		}
		s := ch.Measure(f.childConstraints(0, avail, crossMax))
		sizes[i] = s
		fixedMain += f.Axis.main(s)
	}
	if totalWeight > 0 {
		remaining := max(0, mainMax-spacing-fixedMain)
		for i, ch := range children {
			w := ch.Weight()
			if w <= 0 {
				continue
			}
			share := remaining * w / totalWeight
			s := ch.Measure(f.childConstraints(share, share, crossMax))
			sizes[i] = s
		}
	}

	contentMain := spacing
	crossSize := 0.0
	for _, s := range sizes {
		contentMain += f.Axis.main(s)
		crossSize = max(crossSize, f.Axis.cross(s))
	}

	mainSize := contentMain
	if totalWeight > 0 {
		// Weighted children fill the available main axis.
		mainSize = mainMax
	}
	size := c.Constrain(f.Axis.size(mainSize, crossSize))
	mainSize, crossSize = f.Axis.main(size), f.Axis.cross(size)

	arr := f.Arrangement
	if contentMain > mainSize {
		arr = ArrangeStart
	}
	run := 0.0
	switch arr {
	case ArrangeCenter:
		run = (mainSize - contentMain) / 2
	case ArrangeEnd:
		run = mainSize - contentMain
	}

	placements := make([]Placement, n)
	for i, s := range sizes {
		crossOff := f.CrossAlign.offset(crossSize - f.Axis.cross(s))
		if f.Axis == Horizontal {
			placements[i] = Placement{Index: i, X: run, Y: crossOff}
		} else {
			placements[i] = Placement{Index: i, X: crossOff, Y: run}
		}
		run += f.Axis.main(s) + f.Spacing
	}
	return MeasureResult{Size: size, Placements: placements}
}

func (f Flex) mainMax(c Constraints) float64 {
	if f.Axis == Horizontal {
		return c.MaxW
	}
	return c.MaxH
}

func (f Flex) crossMax(c Constraints) float64 {
	if f.Axis == Horizontal {
		return c.MaxH
	}
	return c.MaxW
}

func (f Flex) childConstraints(mainMin, mainMax, crossMax float64) Constraints {
	if f.Axis == Horizontal {
		return Constraints{MinW: mainMin, MaxW: mainMax, MaxH: crossMax}
	}
	return Constraints{MinH: mainMin, MaxH: mainMax, MaxW: crossMax}
}

// Flex intrinsics sum along the main axis plus spacing and max along the
// cross axis.
func (f Flex) MinIntrinsicWidth(children []Child, h float64) float64 {
	return f.intrinsic(children, Horizontal, func(ch Child) float64 { return ch.MinIntrinsicWidth(h) })
}

func (f Flex) MaxIntrinsicWidth(children []Child, h float64) float64 {
	return f.intrinsic(children, Horizontal, func(ch Child) float64 { return ch.MaxIntrinsicWidth(h) })
}

func (f Flex) MinIntrinsicHeight(children []Child, w float64) float64 {
	return f.intrinsic(children, Vertical, func(ch Child) float64 { return ch.MinIntrinsicHeight(w) })
}

func (f Flex) MaxIntrinsicHeight(children []Child, w float64) float64 {
	return f.intrinsic(children, Vertical, func(ch Child) float64 { return ch.MaxIntrinsicHeight(w) })
}

func (f Flex) intrinsic(children []Child, axis Axis, get func(Child) float64) float64 {
	if len(children) == 0 {
		return 0
	}
	if axis == f.Axis {
		sum := f.Spacing * float64(len(children)-1)
		for _, ch := range children {
			sum += get(ch)
		}
		return sum
	}
	v := 0.0
	for _, ch := range children {
		v = max(v, get(ch))
	}
	return v
}

// Leaf has no children and an intrinsic size clamped into constraints.
type Leaf struct {
	W, H float64
}

func (l Leaf) Measure(_ []Child, c Constraints) MeasureResult {
	return MeasureResult{Size: c.Constrain(Size{W: l.W, H: l.H})}
}

func (l Leaf) MinIntrinsicWidth([]Child, float64) float64  { return l.W }
func (l Leaf) MaxIntrinsicWidth([]Child, float64) float64  { return l.W }
func (l Leaf) MinIntrinsicHeight([]Child, float64) float64 { return l.H }
func (l Leaf) MaxIntrinsicHeight([]Child, float64) float64 { return l.H }

// Empty defers all sizing to the modifier chain; on its own it collapses
// to the minimum allowed size.
type Empty struct{}

func (Empty) Measure(_ []Child, c Constraints) MeasureResult {
	return MeasureResult{Size: c.Constrain(Size{})}
}

func (Empty) MinIntrinsicWidth([]Child, float64) float64  { return 0 }
func (Empty) MaxIntrinsicWidth([]Child, float64) float64  { return 0 }
func (Empty) MinIntrinsicHeight([]Child, float64) float64 { return 0 }
func (Empty) MaxIntrinsicHeight([]Child, float64) float64 { return 0 }
