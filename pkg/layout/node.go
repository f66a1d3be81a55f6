package layout

import (
	"github.com/weftui/weft/pkg/applier"
	"github.com/weftui/weft/pkg/modifier"
)

// Node is a layout node: a measure policy, a modifier chain, and children.
// The runtime keeps one per applier tree node that participates in layout.
type Node struct {
	ID       applier.NodeID
	Policy   MeasurePolicy
	Children []*Node

	// Weight is the node's flex weight under a Flex parent; zero means
	// not weighted.
	Weight float64

	chain *modifier.Chain
	outer coordinator
	inner *innerCoordinator

	size Size
	pos  Point
}

// NewNode returns a node with the given policy and an empty modifier chain.
func NewNode(id applier.NodeID, policy MeasurePolicy) *Node {
	n := &Node{ID: id, Policy: policy}
	n.chain = modifier.NewChain(nil)
	n.inner = &innerCoordinator{node: n}
	n.outer = n.inner
	return n
}

// SetOwner routes the chain's invalidation requests.
func (n *Node) SetOwner(o modifier.Owner) {
	n.chain = modifier.NewChain(o)
	n.rebuild()
}

// Chain returns the node's modifier chain.
func (n *Node) Chain() *modifier.Chain { return n.chain }

// SetModifiers reconciles the chain against elems and rebuilds the
// coordinator chain to mirror the layout-capable nodes.
func (n *Node) SetModifiers(elems []modifier.Element) {
	n.chain.Update(elems)
	n.rebuild()
}

// rebuild wraps the inner coordinator with one modifier coordinator per
// layout-capable node, outermost first.
func (n *Node) rebuild() {
	var mods []LayoutModifier
	n.chain.ForEach(modifier.CapLayout, func(mn modifier.Node) bool {
		if lm, ok := mn.(LayoutModifier); ok {
			mods = append(mods, lm)
		}
		return true
	})
	n.outer = n.inner
	for i := len(mods) - 1; i >= 0; i-- {
		n.outer = &modCoordinator{mod: mods[i], inner: n.outer}
	}
}

// Size returns the node's measured size after the last layout.
func (n *Node) Size() Size { return n.outer.Size() }

// Pos returns the node's position relative to its parent.
func (n *Node) Pos() Point { return n.outer.Position() }

// Outer returns the outermost coordinator, what a parent measures.
func (n *Node) Outer() Measurable { return n.outer }

// Compute measures the tree rooted at n within c and places it at the
// origin, returning the root's size.
func Compute(n *Node, c Constraints) Size {
	s := n.outer.Measure(c)
	n.outer.PlaceAt(0, 0)
	return s
}

// child adapts a Node for policy measurement.
type child struct {
	node *Node
}

// Weight returns the child's flex weight.
func (ch child) Weight() float64 { return ch.node.Weight }

func (ch child) Measure(c Constraints) Size { return ch.node.outer.Measure(c) }

func (ch child) MinIntrinsicWidth(h float64) float64  { return ch.node.outer.MinIntrinsicWidth(h) }
func (ch child) MaxIntrinsicWidth(h float64) float64  { return ch.node.outer.MaxIntrinsicWidth(h) }
func (ch child) MinIntrinsicHeight(w float64) float64 { return ch.node.outer.MinIntrinsicHeight(w) }
func (ch child) MaxIntrinsicHeight(w float64) float64 { return ch.node.outer.MaxIntrinsicHeight(w) }
