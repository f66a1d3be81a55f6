package layout

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/weftui/weft/pkg/modifier"
	"github.com/weftui/weft/pkg/slots"
)

const eps = 0.01

func leaf(id slots.NodeID, w, h float64) *Node {
	return NewNode(id, Leaf{W: w, H: h})
}

// Row(300) { Box(100), weight 1, weight 2 }: the fixed child keeps its
// size, the weighted ones split the remaining 200 one to two.
func TestFlexWeightDistribution(t *testing.T) {
	fixed := leaf(1, 100, 10)
	w1 := leaf(2, 0, 10)
	w1.Weight = 1
	w2 := leaf(3, 0, 10)
	w2.Weight = 2

	row := NewNode(4, Row())
	row.Children = []*Node{fixed, w1, w2}

	size := Compute(row, Constraints{MinW: 300, MaxW: 300, MaxH: 100})
	require.InDelta(t, 300, size.W, eps)

	require.InDelta(t, 100, fixed.Size().W, eps)
	require.InDelta(t, 200.0/3, w1.Size().W, eps)
	require.InDelta(t, 400.0/3, w2.Size().W, eps)

	require.InDelta(t, 0, fixed.Pos().X, eps)
	require.InDelta(t, 100, w1.Pos().X, eps)
	require.InDelta(t, 100+200.0/3, w2.Pos().X, eps)
}

func TestFlexChildSizesSumToContainer(t *testing.T) {
	a := leaf(1, 80, 10)
	b := leaf(2, 0, 10)
	b.Weight = 1
	row := NewNode(3, Row().SpacedBy(10))
	row.Children = []*Node{a, b}

	size := Compute(row, Constraints{MaxW: 200, MaxH: 50})
	require.InDelta(t, 200, size.W, eps)
	require.InDelta(t, 80+10+110, a.Size().W+10+b.Size().W, eps)
}

func TestFlexUnboundedIgnoresWeights(t *testing.T) {
	a := leaf(1, 40, 10)
	a.Weight = 5
	b := leaf(2, 60, 10)
	row := NewNode(3, Row())
	row.Children = []*Node{a, b}

	size := Compute(row, Constraints{MaxW: Inf, MaxH: 50})
	// Weighted child falls back to its own size.
	require.InDelta(t, 40, a.Size().W, eps)
	require.InDelta(t, 100, size.W, eps)
}

func TestFlexOverflowForcesStart(t *testing.T) {
	a := leaf(1, 80, 10)
	b := leaf(2, 80, 10)
	row := NewNode(3, Flex{Axis: Horizontal, Arrangement: ArrangeEnd})
	row.Children = []*Node{a, b}

	size := Compute(row, Constraints{MaxW: 100, MaxH: 50})
	require.InDelta(t, 100, size.W, eps)
	// End arrangement would push positions negative; overflow pins the
	// first child to the start instead.
	require.InDelta(t, 0, a.Pos().X, eps)
	require.InDelta(t, 80, b.Pos().X, eps)
}

func TestFlexEdgeCounts(t *testing.T) {
	empty := NewNode(1, Column())
	size := Compute(empty, Constraints{MaxW: 100, MaxH: 100})
	require.Equal(t, Size{}, size)

	one := leaf(2, 30, 20)
	col := NewNode(3, Column())
	col.Children = []*Node{one}
	size = Compute(col, Constraints{MaxW: 100, MaxH: 100})
	require.InDelta(t, 20, size.H, eps)
	require.InDelta(t, 30, size.W, eps)

	// All weighted: the whole main axis is partitioned.
	wa := leaf(4, 0, 5)
	wa.Weight = 1
	wb := leaf(5, 0, 5)
	wb.Weight = 3
	col2 := NewNode(6, Column())
	col2.Children = []*Node{wa, wb}
	size = Compute(col2, Constraints{MaxW: 100, MaxH: 100})
	require.InDelta(t, 100, size.H, eps)
	require.InDelta(t, 25, wa.Size().H, eps)
	require.InDelta(t, 75, wb.Size().H, eps)

	// Main axis exactly equal to content size: no overflow adjustment.
	ea := leaf(7, 50, 10)
	eb := leaf(8, 50, 10)
	row := NewNode(9, Flex{Axis: Horizontal, Arrangement: ArrangeCenter})
	row.Children = []*Node{ea, eb}
	size = Compute(row, Constraints{MaxW: 100, MaxH: 50})
	require.InDelta(t, 0, ea.Pos().X, eps)
	require.InDelta(t, 50, eb.Pos().X, eps)
}

func TestBoxOverlaysAndAligns(t *testing.T) {
	big := leaf(1, 100, 50)
	small := leaf(2, 20, 10)
	box := NewNode(3, Box{AlignX: AlignCenter, AlignY: AlignEnd})
	box.Children = []*Node{big, small}

	size := Compute(box, Constraints{MaxW: 200, MaxH: 200})
	require.Equal(t, Size{W: 100, H: 50}, size)
	require.InDelta(t, 40, small.Pos().X, eps)
	require.InDelta(t, 40, small.Pos().Y, eps)
	require.InDelta(t, 0, big.Pos().X, eps)
}

func TestLeafClampsToConstraints(t *testing.T) {
	n := leaf(1, 500, 5)
	size := Compute(n, Constraints{MinH: 10, MaxW: 100, MaxH: 100})
	require.Equal(t, Size{W: 100, H: 10}, size)
}

func TestIntrinsics(t *testing.T) {
	a := leaf(1, 30, 10)
	b := leaf(2, 50, 20)
	row := NewNode(3, Row().SpacedBy(5))
	row.Children = []*Node{a, b}

	require.InDelta(t, 85, row.Outer().MinIntrinsicWidth(Inf), eps)
	require.InDelta(t, 85, row.Outer().MaxIntrinsicWidth(Inf), eps)
	require.InDelta(t, 20, row.Outer().MinIntrinsicHeight(Inf), eps)

	box := NewNode(4, Box{})
	box.Children = []*Node{a, b}
	require.InDelta(t, 50, box.Outer().MinIntrinsicWidth(Inf), eps)
	require.InDelta(t, 20, box.Outer().MaxIntrinsicHeight(Inf), eps)
}

func TestPaddingModifierWrapsMeasure(t *testing.T) {
	n := leaf(1, 50, 20)
	n.SetModifiers(modifier.New().Then(Pad(8)))

	size := Compute(n, Constraints{MaxW: 100, MaxH: 100})
	require.Equal(t, Size{W: 66, H: 36}, size)
	// The content inside the padding lands at the padded offset.
	require.Equal(t, Point{X: 8, Y: 8}, n.inner.Position())
}

func TestExactModifierForcesSize(t *testing.T) {
	n := leaf(1, 5, 5)
	n.SetModifiers(modifier.New().Then(Exact{W: 40, H: 30}))
	size := Compute(n, Constraints{MaxW: 100, MaxH: 100})
	require.Equal(t, Size{W: 40, H: 30}, size)

	// Constraints still win over the forced size.
	size = Compute(n, Constraints{MaxW: 20, MaxH: 100})
	require.Equal(t, Size{W: 20, H: 30}, size)
}

func TestPaddingUpdateRequestsLayoutInvalidation(t *testing.T) {
	n := leaf(1, 10, 10)
	n.SetModifiers(modifier.New().Then(Pad(4)))
	n.Chain().TakePending()
	n.SetModifiers(modifier.New().Then(Pad(8)))
	require.Equal(t, modifier.InvalidateLayout, n.Chain().TakePending()&modifier.InvalidateLayout)
}
