package subcompose

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/weftui/weft/pkg/applier"
	"github.com/weftui/weft/pkg/comp"
)

type fixture struct {
	tree  *applier.Tree
	queue *applier.Queue
	host  *Host
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{tree: applier.NewTree("root"), queue: &applier.Queue{}}
	f.host = NewHost(f.tree, f.queue, f.tree.Root())
	return f
}

func item(label string) comp.Content {
	return func(c *comp.Composer) {
		id := c.Node("item", func(*comp.Composer) {})
		c.SetAttr(id, "label", label)
	}
}

func TestSlotKeyTags(t *testing.T) {
	require.NotEqual(t, IndexKey(7), UserKey(7))
	require.Equal(t, UserKey(7), UserKey(7))
	require.True(t, UserKey("row").IsUser())
	require.False(t, IndexKey(3).IsUser())
	// A full-width value is folded into the 62-bit value space.
	require.Equal(t, tagUser, UserKey(uint64(1)<<63)&(tagIndex|tagUser))
}

func TestExactSlotReuse(t *testing.T) {
	f := newFixture(t)
	for pass := 0; pass < 3; pass++ {
		f.host.BeginPass()
		f.host.Subcompose(UserKey("a"), 1, item("a"))
		require.Empty(t, f.host.FinishPass())
	}
	st := f.host.Stats()
	require.Equal(t, 1, st.Fresh)
	require.Equal(t, 2, st.ExactReuse)
	require.Equal(t, 1, f.host.ActiveCount())
}

func TestRetiredSlotReusedByContentType(t *testing.T) {
	f := newFixture(t)
	f.host.BeginPass()
	first := f.host.Subcompose(UserKey("a"), 1, item("a"))
	f.host.FinishPass()

	// "a" drops out and retires into the type-1 pool.
	f.host.BeginPass()
	require.Empty(t, f.host.FinishPass())
	require.Equal(t, 1, f.host.PooledCount())

	// "b" of the same type adopts its composition.
	f.host.BeginPass()
	second := f.host.Subcompose(UserKey("b"), 1, item("b"))
	require.Empty(t, f.host.FinishPass())

	require.Equal(t, first, second)
	require.Equal(t, "b", f.tree.Get(f.tree.Get(second).Children[0]).Attrs["label"])
	st := f.host.Stats()
	require.Equal(t, 1, st.Fresh)
	require.Equal(t, 1, st.TypeReuse)
}

// Retirement follows activation order, so with a tight pool the oldest
// activations are evicted first, every run alike.
func TestRetirementOrderFollowsActivation(t *testing.T) {
	f := newFixture(t)
	f.host.MaxPerType = 1

	f.host.BeginPass()
	f.host.Subcompose(UserKey("a"), 1, item("a"))
	f.host.Subcompose(UserKey("b"), 1, item("b"))
	f.host.Subcompose(UserKey("c"), 1, item("c"))
	require.Empty(t, f.host.FinishPass())

	// All three retire in activation order; the pool holds one, so "a"
	// and then "b" are evicted and only "c" survives for adoption.
	f.host.BeginPass()
	disposed := f.host.FinishPass()
	require.Equal(t, []SlotID{UserKey("a"), UserKey("b")}, disposed)
	require.Equal(t, 1, f.host.PooledCount())

	f.host.BeginPass()
	f.host.Subcompose(UserKey("d"), 1, item("d"))
	f.host.FinishPass()
	st := f.host.Stats()
	require.Equal(t, 3, st.Fresh)
	require.Equal(t, 1, st.TypeReuse)
	require.Equal(t, 2, st.Disposed)
}

func TestUntypedFallbackHonorsPredicate(t *testing.T) {
	f := newFixture(t)
	f.host.Compatible = func(poolType, wantType ContentType) bool {
		return wantType == 2
	}

	f.host.BeginPass()
	first := f.host.Subcompose(UserKey("a"), NoType, item("a"))
	f.host.FinishPass()

	// Retire "a" into the untyped pool.
	f.host.BeginPass()
	f.host.FinishPass()

	// Type 3 is rejected by the predicate and composes fresh.
	f.host.BeginPass()
	other := f.host.Subcompose(UserKey("b"), 3, item("b"))
	f.host.FinishPass()
	require.NotEqual(t, first, other)

	// Type 2 adopts the untyped pooled composition.
	f.host.BeginPass()
	reused := f.host.Subcompose(UserKey("c"), 2, item("c"))
	f.host.FinishPass()
	require.Equal(t, first, reused)
	require.Equal(t, 1, f.host.Stats().UntypedReuse)
}

func TestPoolEvictsOldestAtCapacity(t *testing.T) {
	f := newFixture(t)
	f.host.MaxPerType = 2

	f.host.BeginPass()
	containers := make(map[SlotID]applier.NodeID)
	for i := 0; i < 3; i++ {
		s := IndexKey(i)
		containers[s] = f.host.Subcompose(s, 1, item(fmt.Sprint(i)))
	}
	f.host.FinishPass()

	// Retiring all three overflows the pool by one; the oldest entry is
	// disposed and reported.
	f.host.BeginPass()
	disposed := f.host.FinishPass()
	require.Len(t, disposed, 1)
	require.Equal(t, 2, f.host.PooledCount())
	require.Equal(t, 1, f.host.Stats().Disposed)
	require.Nil(t, f.tree.Get(containers[disposed[0]]))
}

func TestRetiredContainersLeaveTheTree(t *testing.T) {
	f := newFixture(t)
	f.host.BeginPass()
	ctr := f.host.Subcompose(IndexKey(0), 1, item("x"))
	f.host.FinishPass()
	require.Equal(t, f.tree.Root(), f.tree.Get(ctr).Parent)

	f.host.BeginPass()
	f.host.FinishPass()
	require.Zero(t, f.tree.Get(ctr).Parent)

	// Reuse re-attaches the same container.
	f.host.BeginPass()
	again := f.host.Subcompose(IndexKey(9), 1, item("y"))
	f.host.FinishPass()
	require.Equal(t, ctr, again)
	require.Equal(t, f.tree.Root(), f.tree.Get(ctr).Parent)
}

func TestTypeRegistrationsPruned(t *testing.T) {
	f := newFixture(t)
	f.host.MaxPerType = 0

	f.host.BeginPass()
	f.host.Subcompose(IndexKey(0), 5, item("x"))
	f.host.FinishPass()
	require.Contains(t, f.host.typed, ContentType(5))

	// With a zero-size pool the retired slot is disposed outright and the
	// type registration goes away with it.
	f.host.BeginPass()
	disposed := f.host.FinishPass()
	require.Len(t, disposed, 1)
	require.NotContains(t, f.host.typed, ContentType(5))
}

func TestDoubleActivationPanics(t *testing.T) {
	f := newFixture(t)
	f.host.BeginPass()
	f.host.Subcompose(IndexKey(0), 1, item("x"))
	require.Panics(t, func() {
		f.host.Subcompose(IndexKey(0), 1, item("x"))
	})
}

// Simulates scrolling a virtualized list of 1000 rows with two alternating
// content types and a viewport of 10. In steady state every window shift
// composes from the pools, nothing is disposed, and no composition migrates
// across content types through the untyped fallback.
func TestLazyListScrollRecyclesByType(t *testing.T) {
	f := newFixture(t)
	f.host.MaxPerType = 5
	f.host.Compatible = func(poolType, wantType ContentType) bool {
		t.Fatalf("untyped fallback consulted for type %d", wantType)
		return false
	}

	const items, viewport = 1000, 10
	typeOf := func(i int) ContentType { return ContentType(1 + i%2) }

	for first := 0; first+viewport <= items; first += 2 {
		f.host.BeginPass()
		for i := first; i < first+viewport; i++ {
			f.host.Subcompose(IndexKey(i), typeOf(i), item(fmt.Sprint(i)))
		}
		f.host.FinishPass()
	}

	st := f.host.Stats()
	require.Zero(t, st.Disposed)
	require.Zero(t, st.UntypedReuse)
	// The window never outruns the pools, so fresh compositions stop once
	// the viewport plus both pools are populated.
	require.LessOrEqual(t, st.Fresh, viewport+2*f.host.MaxPerType)
	require.Greater(t, st.TypeReuse, items/2)
	require.Equal(t, viewport, f.host.ActiveCount())
}

func TestContainersReportActivationOrder(t *testing.T) {
	f := newFixture(t)
	f.host.BeginPass()
	a := f.host.Subcompose(IndexKey(2), 1, item("a"))
	b := f.host.Subcompose(IndexKey(1), 1, item("b"))
	require.Equal(t, []applier.NodeID{a, b}, f.host.Containers())
	f.host.FinishPass()
}
