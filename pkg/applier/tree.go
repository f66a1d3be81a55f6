package applier

import "fmt"

// Node is one retained tree node. Kind names the node's role (the demo uses
// "text", "column" and so on); Attrs holds reconciled attributes; Payload is
// for the layout layer's bookkeeping and is opaque here.
type Node struct {
	ID       NodeID
	Kind     string
	Attrs    map[string]any
	Children []NodeID
	Parent   NodeID
	Payload  any
}

// Tree is the reference Applier: a retained parent/child tree addressed by
// node ID. Node 0 is reserved; the root is created by NewTree.
type Tree struct {
	nodes  map[NodeID]*Node
	root   NodeID
	nextID NodeID
}

// NewTree returns a tree holding only a root node of the given kind.
func NewTree(rootKind string) *Tree {
	t := &Tree{nodes: make(map[NodeID]*Node), nextID: 1}
	t.root = t.NewNode(rootKind)
	return t
}

// Root returns the root node's ID.
func (t *Tree) Root() NodeID { return t.root }

// NewNode allocates a detached node. It joins the tree when an Insert
// command names it.
func (t *Tree) NewNode(kind string) NodeID {
	id := t.nextID
	t.nextID++
	t.nodes[id] = &Node{ID: id, Kind: kind, Attrs: make(map[string]any)}
	return id
}

// Get returns the node for id, or nil for unknown IDs.
func (t *Tree) Get(id NodeID) *Node { return t.nodes[id] }

// Release drops a detached node. Removing a subtree detaches it; the
// composition layer calls Release once a detached node can no longer be
// restored.
func (t *Tree) Release(id NodeID) {
	n := t.nodes[id]
	if n == nil {
		return
	}
	for _, c := range n.Children {
		t.Release(c)
	}
	delete(t.nodes, id)
}

// Len returns the number of nodes known to the tree, detached included.
func (t *Tree) Len() int { return len(t.nodes) }

func (t *Tree) Insert(parent NodeID, index int, node NodeID) {
	p := t.mustGet(parent)
	n := t.mustGet(node)
	if n.Parent != 0 {
		panic(fmt.Sprintf("applier: insert of attached node %d", node))
	}
	if index < 0 || index > len(p.Children) {
		panic(fmt.Sprintf("applier: insert index %d out of range for node %d", index, parent))
	}
	p.Children = append(p.Children, 0)
	copy(p.Children[index+1:], p.Children[index:])
	p.Children[index] = node
	n.Parent = parent
}

func (t *Tree) Remove(parent NodeID, index, count int) {
	p := t.mustGet(parent)
	if index < 0 || count < 0 || index+count > len(p.Children) {
		panic(fmt.Sprintf("applier: remove [%d,%d) out of range for node %d", index, index+count, parent))
	}
	for _, id := range p.Children[index : index+count] {
		t.mustGet(id).Parent = 0
	}
	p.Children = append(p.Children[:index], p.Children[index+count:]...)
}

// Move relocates count children starting at from so that the block's first
// element ends up at index to of the resulting list.
func (t *Tree) Move(parent NodeID, from, to, count int) {
	p := t.mustGet(parent)
	if from < 0 || count < 0 || from+count > len(p.Children) {
		panic(fmt.Sprintf("applier: move [%d,%d) out of range for node %d", from, from+count, parent))
	}
	if from == to || count == 0 {
		return
	}
	moved := make([]NodeID, count)
	copy(moved, p.Children[from:from+count])
	rest := append(p.Children[:from:from], p.Children[from+count:]...)
	if to < 0 || to > len(rest) {
		panic(fmt.Sprintf("applier: move destination %d out of range for node %d", to, parent))
	}
	p.Children = make([]NodeID, 0, len(rest)+count)
	p.Children = append(p.Children, rest[:to]...)
	p.Children = append(p.Children, moved...)
	p.Children = append(p.Children, rest[to:]...)
}

func (t *Tree) Clear(parent NodeID) {
	p := t.mustGet(parent)
	for _, id := range p.Children {
		t.mustGet(id).Parent = 0
	}
	p.Children = nil
}

func (t *Tree) SetAttr(node NodeID, attr string, value any) {
	t.mustGet(node).Attrs[attr] = value
}

// IndexOf returns node's position under parent, or -1 when detached.
func (t *Tree) IndexOf(parent, node NodeID) int {
	p := t.nodes[parent]
	if p == nil {
		return -1
	}
	for i, c := range p.Children {
		if c == node {
			return i
		}
	}
	return -1
}

// Walk visits the subtree rooted at id depth-first, parents before children.
func (t *Tree) Walk(id NodeID, visit func(*Node) bool) {
	n := t.nodes[id]
	if n == nil || !visit(n) {
		return
	}
	for _, c := range n.Children {
		t.Walk(c, visit)
	}
}

// Mirror replays flushed commands into Dst, registering nodes it has not
// seen yet with the kind recorded in Src. It stands in for an external
// renderer's node store in the demo and in tests.
type Mirror struct {
	Src, Dst *Tree
}

func (m *Mirror) ensure(id NodeID) {
	if m.Dst.nodes[id] != nil {
		return
	}
	kind := ""
	if n := m.Src.Get(id); n != nil {
		kind = n.Kind
	}
	m.Dst.nodes[id] = &Node{ID: id, Kind: kind, Attrs: make(map[string]any)}
	if m.Dst.nextID <= id {
		m.Dst.nextID = id + 1
	}
}

func (m *Mirror) Insert(parent NodeID, index int, node NodeID) {
	m.ensure(node)
	m.Dst.Insert(parent, index, node)
}

func (m *Mirror) Remove(parent NodeID, index, count int) {
	m.Dst.Remove(parent, index, count)
}

func (m *Mirror) Move(parent NodeID, from, to, count int) {
	m.Dst.Move(parent, from, to, count)
}

func (m *Mirror) Clear(parent NodeID) { m.Dst.Clear(parent) }

func (m *Mirror) SetAttr(node NodeID, attr string, value any) {
	m.ensure(node)
	m.Dst.SetAttr(node, attr, value)
}

func (t *Tree) mustGet(id NodeID) *Node {
	n := t.nodes[id]
	if n == nil {
		panic(fmt.Sprintf("applier: unknown node %d", id))
	}
	return n
}
