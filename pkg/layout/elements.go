package layout

import "github.com/weftui/weft/pkg/modifier"

// Padding insets content on all four sides.
type Padding struct {
	L, T, R, B float64
}

// Pad returns uniform padding.
func Pad(d float64) Padding { return Padding{L: d, T: d, R: d, B: d} }

func (p Padding) Create() modifier.Node { return &paddingNode{pad: p} }

func (p Padding) Update(n modifier.Node) {
	pn := n.(*paddingNode)
	pn.pad = p
	pn.Ctx().Invalidate(modifier.InvalidateLayout)
}

func (p Padding) Equal(o modifier.Element) bool { q, ok := o.(Padding); return ok && q == p }

func (Padding) Caps() modifier.Caps { return modifier.CapLayout }

type paddingNode struct {
	modifier.Base
	pad Padding
}

func (n *paddingNode) MeasureLayout(inner Measurable, c Constraints) LayoutResult {
	h := n.pad.L + n.pad.R
	v := n.pad.T + n.pad.B
	ic := Constraints{
		MinW: max(0, c.MinW-h),
		MinH: max(0, c.MinH-v),
		MaxW: max(0, c.MaxW-h),
		MaxH: max(0, c.MaxH-v),
	}
	s := inner.Measure(ic)
	return LayoutResult{
		Size:        c.Constrain(Size{W: s.W + h, H: s.H + v}),
		InnerOffset: Point{X: n.pad.L, Y: n.pad.T},
	}
}

// Exact forces a size, clamped into the incoming constraints.
type Exact struct {
	W, H float64
}

func (e Exact) Create() modifier.Node { return &exactNode{size: e} }

func (e Exact) Update(n modifier.Node) {
	en := n.(*exactNode)
	en.size = e
	en.Ctx().Invalidate(modifier.InvalidateLayout)
}

func (e Exact) Equal(o modifier.Element) bool { q, ok := o.(Exact); return ok && q == e }

func (Exact) Caps() modifier.Caps { return modifier.CapLayout }

type exactNode struct {
	modifier.Base
	size Exact
}

func (n *exactNode) MeasureLayout(inner Measurable, c Constraints) LayoutResult {
	s := c.Constrain(Size{W: n.size.W, H: n.size.H})
	inner.Measure(Tight(s.W, s.H))
	return LayoutResult{Size: s}
}
