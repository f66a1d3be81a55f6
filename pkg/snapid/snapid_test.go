package snapid

import (
	"testing"

	"github.com/weftui/weft/pkg/tt"
)

func setOf(ids ...uint64) Set {
	s := Empty
	for _, id := range ids {
		s = s.Set(id)
	}
	return s
}

func elems(s Set) []uint64 {
	var ids []uint64
	s.Iterate(func(id uint64) bool {
		ids = append(ids, id)
		return true
	})
	return ids
}

func TestGet(t *testing.T) {
	tt.Test(t, "Get", Set.Get, tt.Table{
		tt.Args(Empty, uint64(0)).Rets(false),
		tt.Args(setOf(0), uint64(0)).Rets(true),
		tt.Args(setOf(0), uint64(1)).Rets(false),
		tt.Args(setOf(63), uint64(63)).Rets(true),
		tt.Args(setOf(64), uint64(64)).Rets(true),
		tt.Args(setOf(127), uint64(127)).Rets(true),
		tt.Args(setOf(128), uint64(128)).Rets(true),
		// Setting an ID beyond the window slides the window; earlier IDs
		// stay visible via the outlier slice.
		tt.Args(setOf(1, 300), uint64(1)).Rets(true),
		tt.Args(setOf(1, 300), uint64(300)).Rets(true),
		tt.Args(setOf(1, 300), uint64(2)).Rets(false),
	})
}

func TestSetClearRoundTrip(t *testing.T) {
	tt.Test(t, "elems", func(ids []uint64, clear uint64) []uint64 {
		return elems(setOf(ids...).Clear(clear))
	}, tt.Table{
		tt.Args([]uint64{5}, uint64(5)).Rets([]uint64(nil)),
		tt.Args([]uint64{5, 6}, uint64(5)).Rets([]uint64{6}),
		tt.Args([]uint64{63, 64, 128}, uint64(64)).Rets([]uint64{63, 128}),
		// Clearing an absent ID is a no-op.
		tt.Args([]uint64{10}, uint64(11)).Rets([]uint64{10}),
		// Clearing an outlier below base.
		tt.Args([]uint64{1, 2, 300}, uint64(1)).Rets([]uint64{2, 300}),
	})
}

func TestSetIsImmutable(t *testing.T) {
	s := setOf(1, 2, 3)
	_ = s.Set(100).Clear(2).Or(setOf(7)).AndNot(setOf(1))
	if got := elems(s); len(got) != 3 || got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Errorf("original set mutated: %v", got)
	}
}

func TestWordBoundaries(t *testing.T) {
	// All boundary IDs around multiples of 64 and 128 survive a round trip
	// through the window-sliding path.
	ids := []uint64{0, 1, 63, 64, 65, 127, 128, 129, 191, 192, 1000}
	s := setOf(ids...)
	for _, id := range ids {
		if !s.Get(id) {
			t.Errorf("Get(%d) = false, want true", id)
		}
	}
	if got := elems(s); len(got) != len(ids) {
		t.Errorf("got %d elements %v, want %d", len(got), got, len(ids))
	}
}

func TestInsertBelowBase(t *testing.T) {
	// Forming the set at a high ID first forces later low IDs into the
	// outlier slice, which must stay sorted.
	s := setOf(500, 20, 10, 30)
	if got := elems(s); !(len(got) == 4 && got[0] == 10 && got[1] == 20 && got[2] == 30 && got[3] == 500) {
		t.Errorf("elems = %v, want [10 20 30 500]", got)
	}
}

func TestOrAndNot(t *testing.T) {
	tt.Test(t, "Or", func(a, b Set) []uint64 { return elems(a.Or(b)) }, tt.Table{
		tt.Args(Empty, Empty).Rets([]uint64(nil)),
		tt.Args(setOf(1), Empty).Rets([]uint64{1}),
		tt.Args(Empty, setOf(1)).Rets([]uint64{1}),
		tt.Args(setOf(1, 64), setOf(2, 300)).Rets([]uint64{1, 2, 64, 300}),
	})
	tt.Test(t, "AndNot", func(a, b Set) []uint64 { return elems(a.AndNot(b)) }, tt.Table{
		tt.Args(setOf(1, 2, 3), setOf(2)).Rets([]uint64{1, 3}),
		tt.Args(setOf(1, 2, 3), Empty).Rets([]uint64{1, 2, 3}),
		tt.Args(setOf(1, 300), setOf(300, 301)).Rets([]uint64{1}),
	})
}

func TestLowest(t *testing.T) {
	tt.Test(t, "Lowest", Set.Lowest, tt.Table{
		tt.Args(Empty, uint64(42)).Rets(uint64(42)),
		tt.Args(setOf(9), uint64(42)).Rets(uint64(9)),
		tt.Args(setOf(64), uint64(42)).Rets(uint64(64)),
		tt.Args(setOf(70, 65, 126), uint64(42)).Rets(uint64(65)),
		// Outlier-only: slide the window past the only member.
		tt.Args(setOf(5, 500).Clear(500), uint64(42)).Rets(uint64(5)),
		tt.Args(setOf(5, 500), uint64(42)).Rets(uint64(5)),
	})
}

func TestIterateStopsEarly(t *testing.T) {
	s := setOf(1, 2, 3, 4)
	var seen []uint64
	s.Iterate(func(id uint64) bool {
		seen = append(seen, id)
		return len(seen) < 2
	})
	if len(seen) != 2 {
		t.Errorf("saw %v, want 2 elements", seen)
	}
}
