package input

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/weftui/weft/pkg/layout"
	"github.com/weftui/weft/pkg/modifier"
)

// Two leaves side by side in a 100x50 row; the right leaf sits at x=60.
func clickFixture(t *testing.T) (root, left, right *layout.Node, clicks *[]string) {
	t.Helper()
	clicks = new([]string)
	left = layout.NewNode(2, layout.Leaf{W: 60, H: 50})
	right = layout.NewNode(3, layout.Leaf{W: 40, H: 50})
	left.SetModifiers([]modifier.Element{Clickable{OnClick: func() { *clicks = append(*clicks, "left") }}})
	right.SetModifiers([]modifier.Element{Clickable{OnClick: func() { *clicks = append(*clicks, "right") }}})

	root = layout.NewNode(1, layout.Row())
	root.Children = append(root.Children, left, right)
	layout.Compute(root, layout.Tight(100, 50))
	return root, left, right, clicks
}

func click(root *layout.Node, x, y float64) bool {
	down := DispatchPointer(root, PointerEvent{X: x, Y: y, Kind: PointerDown})
	up := DispatchPointer(root, PointerEvent{X: x, Y: y, Kind: PointerUp})
	return down && up
}

func TestPointerHitsDeepestNode(t *testing.T) {
	root, _, _, clicks := clickFixture(t)
	require.True(t, click(root, 10, 10))
	require.True(t, click(root, 70, 10))
	require.Equal(t, []string{"left", "right"}, *clicks)
}

func TestPointerOutsideMisses(t *testing.T) {
	root, _, _, clicks := clickFixture(t)
	require.False(t, click(root, 150, 10))
	require.Empty(t, *clicks)
}

func TestPointerCancelClearsPress(t *testing.T) {
	root, _, _, clicks := clickFixture(t)
	DispatchPointer(root, PointerEvent{X: 10, Y: 10, Kind: PointerDown})
	DispatchPointer(root, PointerEvent{X: 10, Y: 10, Kind: PointerCancel})
	DispatchPointer(root, PointerEvent{X: 10, Y: 10, Kind: PointerUp})
	require.Empty(t, *clicks)
}

type keyElem struct {
	handle func(KeyEvent) bool
}

func (e keyElem) Create() modifier.Node       { return &keyNode{handle: e.handle} }
func (e keyElem) Update(n modifier.Node)      { n.(*keyNode).handle = e.handle }
func (e keyElem) Equal(modifier.Element) bool { return false }
func (e keyElem) Caps() modifier.Caps         { return modifier.CapFocus }

type keyNode struct {
	modifier.Base
	handle func(KeyEvent) bool
}

func (n *keyNode) HandleKey(ev KeyEvent) bool { return n.handle(ev) }

func TestKeyDispatchDeepestFirstWithBubbling(t *testing.T) {
	var got []string
	child := layout.NewNode(2, layout.Leaf{W: 10, H: 10})
	child.SetModifiers([]modifier.Element{keyElem{handle: func(ev KeyEvent) bool {
		got = append(got, "child")
		return ev.Rune == KeyEnter
	}}})
	root := layout.NewNode(1, layout.Row())
	root.Children = append(root.Children, child)
	root.SetModifiers([]modifier.Element{keyElem{handle: func(KeyEvent) bool {
		got = append(got, "root")
		return true
	}}})
	layout.Compute(root, layout.Tight(10, 10))

	require.True(t, DispatchKey(root, KeyEvent{Rune: KeyEnter}))
	require.Equal(t, []string{"child"}, got)

	got = nil
	require.True(t, DispatchKey(root, KeyEvent{Rune: 'x'}))
	require.Equal(t, []string{"child", "root"}, got)
}
