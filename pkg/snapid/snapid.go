// Package snapid implements the set of snapshot IDs used by the snapshot
// system to track open and invalid snapshots.
//
// Snapshot IDs are allocated monotonically, so at any point in time the IDs
// of interest cluster near the most recently allocated one. The set is laid
// out to exploit this: two 64-bit words cover the 128 IDs at and above a
// moving base, and a small sorted slice holds the stragglers below it. All
// operations are copy-on-write; a Set value is immutable and may be shared
// freely.
package snapid

import "math/bits"

// Set is an immutable set of snapshot IDs. The zero value is an empty set.
type Set struct {
	// lower covers [base, base+64), upper covers [base+64, base+128).
	lower, upper uint64
	base         uint64
	// belowBase holds IDs smaller than base, sorted ascending.
	belowBase []uint64
}

// Empty is the empty set.
var Empty = Set{}

// Get reports whether id is in the set.
func (s Set) Get(id uint64) bool {
	switch {
	case id >= s.base+64 && id < s.base+128:
		return s.upper&(1<<(id-s.base-64)) != 0
	case id >= s.base && id < s.base+64:
		return s.lower&(1<<(id-s.base)) != 0
	case id < s.base:
		_, found := search(s.belowBase, id)
		return found
	default:
		return false
	}
}

// Set returns a set that additionally contains id.
func (s Set) Set(id uint64) Set {
	switch {
	case id >= s.base+64 && id < s.base+128:
		b := uint64(1) << (id - s.base - 64)
		if s.upper&b != 0 {
			return s
		}
		s.upper |= b
		return s
	case id >= s.base && id < s.base+64:
		b := uint64(1) << (id - s.base)
		if s.lower&b != 0 {
			return s
		}
		s.lower |= b
		return s
	case id < s.base:
		i, found := search(s.belowBase, id)
		if found {
			return s
		}
		below := make([]uint64, 0, len(s.belowBase)+1)
		below = append(below, s.belowBase[:i]...)
		below = append(below, id)
		below = append(below, s.belowBase[i:]...)
		s.belowBase = below
		return s
	default:
		// id >= base+128: slide the window up until id fits.
		if s.lower == 0 && s.upper == 0 && len(s.belowBase) == 0 {
			return Set{base: id &^ 63, lower: 1 << (id & 63)}
		}
		below := s.belowBase
		lower, upper, base := s.lower, s.upper, s.base
		for id >= base+128 {
			if lower == 0 && upper == 0 {
				base = id &^ 63
				break
			}
			if lower != 0 {
				below = appendWordBits(below, lower, base)
			}
			lower = upper
			upper = 0
			base += 64
		}
		out := Set{lower: lower, upper: upper, base: base, belowBase: below}
		return out.Set(id)
	}
}

// Clear returns a set that does not contain id.
func (s Set) Clear(id uint64) Set {
	switch {
	case id >= s.base+64 && id < s.base+128:
		b := uint64(1) << (id - s.base - 64)
		if s.upper&b == 0 {
			return s
		}
		s.upper &^= b
		return s
	case id >= s.base && id < s.base+64:
		b := uint64(1) << (id - s.base)
		if s.lower&b == 0 {
			return s
		}
		s.lower &^= b
		return s
	case id < s.base:
		i, found := search(s.belowBase, id)
		if !found {
			return s
		}
		below := make([]uint64, 0, len(s.belowBase)-1)
		below = append(below, s.belowBase[:i]...)
		below = append(below, s.belowBase[i+1:]...)
		if len(below) == 0 {
			below = nil
		}
		s.belowBase = below
		return s
	default:
		return s
	}
}

// Or returns the union of s and t.
func (s Set) Or(t Set) Set {
	if t.IsEmpty() {
		return s
	}
	if s.IsEmpty() {
		return t
	}
	out := s
	t.Iterate(func(id uint64) bool {
		out = out.Set(id)
		return true
	})
	return out
}

// AndNot returns the set difference s \ t.
func (s Set) AndNot(t Set) Set {
	if t.IsEmpty() || s.IsEmpty() {
		return s
	}
	out := s
	t.Iterate(func(id uint64) bool {
		out = out.Clear(id)
		return true
	})
	return out
}

// IsEmpty reports whether the set contains no IDs.
func (s Set) IsEmpty() bool {
	return s.lower == 0 && s.upper == 0 && len(s.belowBase) == 0
}

// Iterate calls f for each ID in the set in ascending order, stopping early
// if f returns false.
func (s Set) Iterate(f func(id uint64) bool) {
	for _, id := range s.belowBase {
		if !f(id) {
			return
		}
	}
	if !iterateWord(s.lower, s.base, f) {
		return
	}
	iterateWord(s.upper, s.base+64, f)
}

// Lowest returns the smallest ID in the set, or def if the set is empty.
func (s Set) Lowest(def uint64) uint64 {
	if len(s.belowBase) > 0 {
		return s.belowBase[0]
	}
	if s.lower != 0 {
		return s.base + uint64(bits.TrailingZeros64(s.lower))
	}
	if s.upper != 0 {
		return s.base + 64 + uint64(bits.TrailingZeros64(s.upper))
	}
	return def
}

func iterateWord(word, base uint64, f func(uint64) bool) bool {
	for word != 0 {
		tz := uint64(bits.TrailingZeros64(word))
		if !f(base + tz) {
			return false
		}
		word &^= 1 << tz
	}
	return true
}

func appendWordBits(below []uint64, word, base uint64) []uint64 {
	// The word being retired always holds IDs larger than everything
	// already in below, so appending keeps the slice sorted.
	out := make([]uint64, len(below), len(below)+bits.OnesCount64(word))
	copy(out, below)
	for word != 0 {
		tz := uint64(bits.TrailingZeros64(word))
		out = append(out, base+tz)
		word &^= 1 << tz
	}
	return out
}

// search returns the insertion index for id in the sorted slice and whether
// id is present.
func search(ids []uint64, id uint64) (int, bool) {
	lo, hi := 0, len(ids)
	for lo < hi {
		mid := (lo + hi) / 2
		if ids[mid] < id {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo, lo < len(ids) && ids[lo] == id
}
