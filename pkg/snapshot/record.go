package snapshot

import "github.com/weftui/weft/pkg/snapid"

// invalidID marks a record that has been abandoned (its snapshot was
// disposed, or its apply failed). Valid snapshot IDs start at 1.
const invalidID ID = 0

// record is one version of a state object's value. Records form a singly
// linked list per object, newest first.
type record struct {
	id   ID
	dead bool
	val  any
	next *record
}

// readable returns the newest record visible to a reader at the given
// snapshot ID with the given invalid set, or nil if no record is visible.
func readable(r *record, id ID, invalid snapid.Set) *record {
	var best *record
	for ; r != nil; r = r.next {
		if valid(r, id, invalid) && (best == nil || best.id < r.id) {
			best = r
		}
	}
	return best
}

func valid(r *record, id ID, invalid snapid.Set) bool {
	return !r.dead && r.id != invalidID && r.id <= id && !invalid.Get(r.id)
}

// oldestLive returns the oldest non-dead record, used as a last resort when
// an object was created in a snapshot the reader cannot see yet.
func oldestLive(r *record) *record {
	var last *record
	for ; r != nil; r = r.next {
		if !r.dead && r.id != invalidID {
			last = r
		}
	}
	return last
}

// prune relinks the record list, dropping records that no present or future
// reader can observe: the newest record with id <= keep survives as the
// baseline, along with every record newer than keep that is not dead (which
// includes the uncommitted records of still-open snapshots). Record nodes are
// kept, not copied, so pointer identity observed by pending applies is
// preserved. Returns the new head and the number of records kept.
func prune(head *record, keep ID) (*record, int) {
	baseline := readable(head, keep, snapid.Empty)
	var kept []*record
	for r := head; r != nil; r = r.next {
		if r == baseline || (r.id > keep && !r.dead && r.id != invalidID) {
			kept = append(kept, r)
		}
	}
	for i, r := range kept {
		if i+1 < len(kept) {
			r.next = kept[i+1]
		} else {
			r.next = nil
		}
	}
	if len(kept) == 0 {
		return nil, 0
	}
	return kept[0], len(kept)
}
