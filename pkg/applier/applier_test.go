package applier

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func children(t *testing.T, tr *Tree, id NodeID) []NodeID {
	t.Helper()
	n := tr.Get(id)
	require.NotNil(t, n)
	return n.Children
}

func TestTreeInsertRemove(t *testing.T) {
	tr := NewTree("root")
	a := tr.NewNode("a")
	b := tr.NewNode("b")
	c := tr.NewNode("c")
	tr.Insert(tr.Root(), 0, a)
	tr.Insert(tr.Root(), 1, c)
	tr.Insert(tr.Root(), 1, b)
	require.Equal(t, []NodeID{a, b, c}, children(t, tr, tr.Root()))

	tr.Remove(tr.Root(), 1, 1)
	require.Equal(t, []NodeID{a, c}, children(t, tr, tr.Root()))
	require.Equal(t, NodeID(0), tr.Get(b).Parent)

	// A detached node can be re-inserted, preserving its identity.
	tr.Insert(tr.Root(), 2, b)
	require.Equal(t, []NodeID{a, c, b}, children(t, tr, tr.Root()))
}

func TestTreeMove(t *testing.T) {
	tr := NewTree("root")
	var ids []NodeID
	for i := 0; i < 5; i++ {
		id := tr.NewNode("n")
		tr.Insert(tr.Root(), i, id)
		ids = append(ids, id)
	}
	tr.Move(tr.Root(), 0, 3, 2)
	require.Equal(t, []NodeID{ids[2], ids[3], ids[4], ids[0], ids[1]},
		children(t, tr, tr.Root()))
	tr.Move(tr.Root(), 4, 0, 1)
	require.Equal(t, []NodeID{ids[1], ids[2], ids[3], ids[4], ids[0]},
		children(t, tr, tr.Root()))
}

func TestTreeClearAndRelease(t *testing.T) {
	tr := NewTree("root")
	a := tr.NewNode("a")
	b := tr.NewNode("b")
	tr.Insert(tr.Root(), 0, a)
	tr.Insert(a, 0, b)
	tr.Clear(tr.Root())
	require.Empty(t, children(t, tr, tr.Root()))
	require.NotNil(t, tr.Get(a))

	tr.Release(a)
	require.Nil(t, tr.Get(a))
	require.Nil(t, tr.Get(b))
}

func TestTreeAttrs(t *testing.T) {
	tr := NewTree("root")
	a := tr.NewNode("text")
	tr.SetAttr(a, "text", "0")
	tr.SetAttr(a, "text", "1")
	require.Equal(t, "1", tr.Get(a).Attrs["text"])
}

func TestQueueFlushOrderAndDrop(t *testing.T) {
	tr := NewTree("root")
	a := tr.NewNode("a")
	b := tr.NewNode("b")

	var q Queue
	q.Insert(tr.Root(), 0, a)
	q.Insert(tr.Root(), 1, b)
	q.SetAttr(b, "text", "hi")
	require.Equal(t, 3, q.Len())
	// Nothing reaches the tree until the flush point.
	require.Empty(t, children(t, tr, tr.Root()))

	q.Flush(tr)
	require.Equal(t, 0, q.Len())
	require.Equal(t, []NodeID{a, b}, children(t, tr, tr.Root()))
	require.Equal(t, "hi", tr.Get(b).Attrs["text"])

	q.Remove(tr.Root(), 0, 2)
	q.Drop()
	q.Flush(tr)
	require.Equal(t, []NodeID{a, b}, children(t, tr, tr.Root()))
}

func TestInsertAttachedPanics(t *testing.T) {
	tr := NewTree("root")
	a := tr.NewNode("a")
	tr.Insert(tr.Root(), 0, a)
	require.Panics(t, func() { tr.Insert(tr.Root(), 1, a) })
}
