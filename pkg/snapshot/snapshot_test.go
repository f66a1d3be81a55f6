package snapshot

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadSeesGlobalValue(t *testing.T) {
	requireT := require.New(t)
	x := New(7)
	requireT.Equal(7, x.Get())

	x.Set(8)
	requireT.Equal(8, x.Get())
}

func TestMutableIsolation(t *testing.T) {
	requireT := require.New(t)
	x := New("before")

	m := TakeMutable(nil, nil)
	m.Enter(func() {
		x.Set("after")
		requireT.Equal("after", x.Get())
	})
	// Not applied yet: the global reader still sees the old value.
	requireT.Equal("before", x.Get())

	requireT.Equal(Applied, m.Apply())
	requireT.Equal("after", x.Get())
}

func TestApplyMakesAllWritesVisible(t *testing.T) {
	requireT := require.New(t)
	x, y, z := New(1), New(2), New(3)

	m := TakeMutable(nil, nil)
	m.Enter(func() {
		x.Set(10)
		y.Set(20)
	})
	requireT.True(m.Apply().Succeeded())

	requireT.Equal(10, x.Get())
	requireT.Equal(20, y.Get())
	// Objects outside the modified set are unchanged.
	requireT.Equal(3, z.Get())
}

func TestEarlierReaderNeverSeesLaterApply(t *testing.T) {
	requireT := require.New(t)
	x := New(1)

	reader := Take(nil)
	m := TakeMutable(nil, nil)
	m.Enter(func() { x.Set(2) })
	requireT.True(m.Apply().Succeeded())

	// The writer's ID is in the reader's invalid set, so its record stays
	// invisible even though its ID is at or below later global IDs.
	var got int
	reader.Enter(func() { got = x.Get() })
	requireT.Equal(1, got)
	requireT.Equal(2, x.Get())
}

func TestSiblingConflict(t *testing.T) {
	requireT := require.New(t)
	x := New(0)

	m1 := TakeMutable(nil, nil)
	m2 := TakeMutable(nil, nil)
	m1.Enter(func() { x.Set(1) })
	m2.Enter(func() { x.Set(2) })

	requireT.Equal(Applied, m1.Apply())
	requireT.Equal(Conflict, m2.Apply())
	requireT.Equal(1, x.Get())
}

func TestSiblingMerge(t *testing.T) {
	requireT := require.New(t)
	// Additive counter: concurrent applies merge by summing deltas.
	x := NewWithMerger(0, func(base, current, applied int) (int, bool) {
		return current + (applied - base), true
	})

	m1 := TakeMutable(nil, nil)
	m2 := TakeMutable(nil, nil)
	m1.Enter(func() { x.Set(x.Get() + 3) })
	m2.Enter(func() { x.Set(x.Get() + 4) })

	requireT.Equal(Applied, m1.Apply())
	requireT.Equal(Applied, m2.Apply())
	requireT.Equal(7, x.Get())
}

func TestApplyOnDisposedFails(t *testing.T) {
	requireT := require.New(t)
	x := New(0)

	m := TakeMutable(nil, nil)
	m.Enter(func() { x.Set(1) })
	m.Dispose()
	requireT.Equal(Disposed, m.Apply())
	requireT.Equal(0, x.Get())

	m2 := TakeMutable(nil, nil)
	m2.Enter(func() { x.Set(2) })
	requireT.Equal(Applied, m2.Apply())
	requireT.Equal(Disposed, m2.Apply())
}

func TestWriteAfterApplyPanics(t *testing.T) {
	requireT := require.New(t)
	x := New(0)

	m := TakeMutable(nil, nil)
	m.Enter(func() { x.Set(1) })
	requireT.True(m.Apply().Succeeded())

	requireT.Panics(func() {
		m.Enter(func() { x.Set(2) })
	})
}

func TestNestedApply(t *testing.T) {
	requireT := require.New(t)
	x := New("root")

	m := TakeMutable(nil, nil)
	var inner *Mutable
	m.Enter(func() {
		inner = m.TakeNested(nil, nil)
		inner.Enter(func() {
			x.Set("nested")
		})
	})

	// Nested applies into the parent, not the global snapshot.
	requireT.Equal(Applied, inner.Apply())
	var inParent string
	m.Enter(func() { inParent = x.Get() })
	requireT.Equal("nested", inParent)
	requireT.Equal("root", x.Get())

	requireT.Equal(Applied, m.Apply())
	requireT.Equal("nested", x.Get())
}

func TestNestedSeesParentWrites(t *testing.T) {
	requireT := require.New(t)
	x := New(1)

	m := TakeMutable(nil, nil)
	m.Enter(func() {
		x.Set(2)
		inner := m.TakeNested(nil, nil)
		var got int
		inner.Enter(func() { got = x.Get() })
		requireT.Equal(2, got)
		inner.Dispose()
	})
	m.Dispose()
}

func TestNestedConflictByKey(t *testing.T) {
	requireT := require.New(t)
	x := New(0)

	m := TakeMutable(nil, nil)
	var inner *Mutable
	m.Enter(func() {
		x.Set(1)
		inner = m.TakeNested(nil, nil)
	})
	inner.Enter(func() { x.Set(2) })

	// Both parent and child wrote x; without a merger the child fails.
	requireT.Equal(Conflict, inner.Apply())
	requireT.Equal(Applied, m.Apply())
	requireT.Equal(1, x.Get())
}

func TestWriteObserverFiresOncePerObject(t *testing.T) {
	requireT := require.New(t)
	x := New(0)

	var writes []Object
	m := TakeMutable(nil, func(obj Object) { writes = append(writes, obj) })
	m.Enter(func() {
		x.Set(1)
		x.Set(1)
		x.Set(2)
	})
	requireT.Len(writes, 1)
	requireT.Same(any(x), any(writes[0]))
	requireT.True(m.Apply().Succeeded())
}

func TestReadObservers(t *testing.T) {
	requireT := require.New(t)
	x, y := New(1), New(2)

	var reads []Object
	s := Take(func(obj Object) { reads = append(reads, obj) })
	s.Enter(func() {
		x.Get()
		y.Get()
	})
	requireT.Len(reads, 2)

	reads = nil
	ObserveReads(func(obj Object) { reads = append(reads, obj) }, func() {
		x.Get()
	})
	requireT.Len(reads, 1)
	x.Get()
	requireT.Len(reads, 1)
}

func TestObserveApplied(t *testing.T) {
	requireT := require.New(t)
	x := New(0)

	var changed []Object
	remove := ObserveApplied(func(objs []Object) { changed = append(changed, objs...) })
	defer remove()

	m := TakeMutable(nil, nil)
	m.Enter(func() { x.Set(1) })
	requireT.True(m.Apply().Succeeded())
	requireT.Len(changed, 1)
	requireT.Same(any(x), any(changed[0]))

	remove()
	changed = nil
	m2 := TakeMutable(nil, nil)
	m2.Enter(func() { x.Set(2) })
	requireT.True(m2.Apply().Succeeded())
	requireT.Empty(changed)
}

func TestReclamationKeepsReadableRecords(t *testing.T) {
	requireT := require.New(t)
	x := New(0)

	// Pile up record versions, advancing after each; reclamation must leave
	// exactly the latest visible value.
	for i := 1; i <= 10; i++ {
		x.Set(i)
	}
	Advance()
	requireT.Equal(10, x.Get())

	// An open snapshot pins its base: applying a sibling and advancing must
	// not reclaim the record the open snapshot still reads.
	reader := TakeMutable(nil, nil)
	m := TakeMutable(nil, nil)
	m.Enter(func() { x.Set(11) })
	requireT.True(m.Apply().Succeeded())
	Advance()
	var got int
	reader.Enter(func() { got = x.Get() })
	requireT.Equal(10, got)
	reader.Dispose()
}

func TestObjectCreatedInsideMutable(t *testing.T) {
	requireT := require.New(t)

	m := TakeMutable(nil, nil)
	var x *Value[int]
	m.Enter(func() {
		x = New(42)
		requireT.Equal(42, x.Get())
	})
	requireT.True(m.Apply().Succeeded())
	requireT.Equal(42, x.Get())
}

func TestWithMutable(t *testing.T) {
	requireT := require.New(t)
	x := New(0)
	WithMutable(func() {
		x.Set(5)
		requireT.Equal(5, x.Get())
	})
	requireT.Equal(5, x.Get())
}
