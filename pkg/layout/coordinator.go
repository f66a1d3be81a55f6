package layout

// Measurable is what a parent measures: a child's outer coordinator or a
// wrapped inner during modifier measurement.
type Measurable interface {
	Measure(c Constraints) Size
	MinIntrinsicWidth(h float64) float64
	MaxIntrinsicWidth(h float64) float64
	MinIntrinsicHeight(w float64) float64
	MaxIntrinsicHeight(w float64) float64
}

// coordinator is one link of a node's measure/place chain. Each caches its
// measured size and parent-relative position.
type coordinator interface {
	Measurable
	PlaceAt(x, y float64)
	Size() Size
	Position() Point
}

// LayoutModifier is implemented by modifier nodes with CapLayout. The
// modifier measures the wrapped measurable and reports its own size plus
// the offset at which the wrapped content is placed.
type LayoutModifier interface {
	MeasureLayout(inner Measurable, c Constraints) LayoutResult
}

// LayoutResult is a layout modifier's measurement.
type LayoutResult struct {
	Size        Size
	InnerOffset Point
}

// modCoordinator wraps the next coordinator with one layout modifier.
type modCoordinator struct {
	mod   LayoutModifier
	inner coordinator

	size Size
	pos  Point
	off  Point
}

func (m *modCoordinator) Measure(c Constraints) Size {
	res := m.mod.MeasureLayout(m.inner, c)
	m.size = res.Size
	m.off = res.InnerOffset
	return m.size
}

func (m *modCoordinator) PlaceAt(x, y float64) {
	m.pos = Point{X: x, Y: y}
	m.inner.PlaceAt(x+m.off.X, y+m.off.Y)
}

func (m *modCoordinator) Size() Size      { return m.size }
func (m *modCoordinator) Position() Point { return m.pos }

func (m *modCoordinator) MinIntrinsicWidth(h float64) float64  { return m.inner.MinIntrinsicWidth(h) }
func (m *modCoordinator) MaxIntrinsicWidth(h float64) float64  { return m.inner.MaxIntrinsicWidth(h) }
func (m *modCoordinator) MinIntrinsicHeight(w float64) float64 { return m.inner.MinIntrinsicHeight(w) }
func (m *modCoordinator) MaxIntrinsicHeight(w float64) float64 { return m.inner.MaxIntrinsicHeight(w) }

// innerCoordinator hosts the node's own measure policy.
type innerCoordinator struct {
	node *Node

	size       Size
	pos        Point
	placements []Placement
}

func (ic *innerCoordinator) children() []Child {
	out := make([]Child, len(ic.node.Children))
	for i, c := range ic.node.Children {
		out[i] = child{node: c}
	}
	return out
}

func (ic *innerCoordinator) Measure(c Constraints) Size {
	res := ic.node.Policy.Measure(ic.children(), c)
	ic.size = c.Constrain(res.Size)
	ic.placements = res.Placements
	return ic.size
}

// PlaceAt records the node's parent-relative position and executes the
// placements the policy intended, recursively placing children.
func (ic *innerCoordinator) PlaceAt(x, y float64) {
	ic.pos = Point{X: x, Y: y}
	ic.node.pos = ic.pos
	ic.node.size = ic.size
	for _, p := range ic.placements {
		ic.node.Children[p.Index].outer.PlaceAt(p.X, p.Y)
	}
}

func (ic *innerCoordinator) Size() Size      { return ic.size }
func (ic *innerCoordinator) Position() Point { return ic.pos }

func (ic *innerCoordinator) MinIntrinsicWidth(h float64) float64 {
	return ic.node.Policy.MinIntrinsicWidth(ic.children(), h)
}

func (ic *innerCoordinator) MaxIntrinsicWidth(h float64) float64 {
	return ic.node.Policy.MaxIntrinsicWidth(ic.children(), h)
}

func (ic *innerCoordinator) MinIntrinsicHeight(w float64) float64 {
	return ic.node.Policy.MinIntrinsicHeight(ic.children(), w)
}

func (ic *innerCoordinator) MaxIntrinsicHeight(w float64) float64 {
	return ic.node.Policy.MaxIntrinsicHeight(ic.children(), w)
}
