package slots

import (
	"fmt"
	"reflect"
)

// Reset starts a full composition pass from the top of the table.
func (t *Table) Reset() {
	if len(t.stack) != 0 {
		panic("slots: Reset with open groups")
	}
	t.cursor = 0
}

// BeginGroup enters the group with the given key at the cursor, creating it
// if necessary. The second return value reports a gap restore: the region
// was preserved from an earlier pass and its content, node identities
// included, is live again.
//
// A live group with a different key at the cursor is preserved as a cold gap
// and skipped; a gap with a different key is discarded.
func (t *Table) BeginGroup(key Key) (GroupRef, bool) {
	for {
		if t.cursor >= t.frameEnd() {
			return t.insertGroup(key), false
		}
		s := t.store.at(t.cursor)
		switch s.kind {
		case kindGroup:
			if s.key == key {
				t.pushReenter(t.cursor)
				return s.anchor, false
			}
			t.gapRegion(t.cursor, false)
			t.cursor = t.regionEnd(t.cursor)
		case kindGap:
			if s.key == key {
				return t.restoreGap(t.cursor), true
			}
			t.discardRegion(t.cursor)
		default:
			// A value or node slot where a group was expected: the
			// stale slots become unread tail, dealt with at EndGroup.
			return t.insertGroup(key), false
		}
	}
}

// EndGroup closes the current group. Unread slots at the tail are preserved:
// group regions become cold gaps (their nodes leave the tree but can be
// restored), dangling value and node slots are dropped.
func (t *Table) EndGroup() {
	if len(t.stack) == 0 {
		panic("slots: unbalanced EndGroup")
	}
	i := len(t.stack) - 1
	if !t.stack[i].fresh && t.cursor < t.stack[i].end {
		t.gapTail(t.cursor)
	}
	end := t.stack[i].end
	t.stack = t.stack[:i]
	t.cursor = end
}

// AbortPass closes every open group after a panic unwound composition.
// Unread content of each open group survives as warm gaps through the
// finalize path, so the next pass reconciles it positionally.
func (t *Table) AbortPass() {
	for len(t.stack) > 0 {
		t.FinalizeCurrentGroup()
		t.EndGroup()
	}
}

// FinalizeCurrentGroup consumes the rest of the current group without
// reading it, used when a composable skips. Sub-groups become warm gaps:
// their content, nodes included, stays live and is reused verbatim.
func (t *Table) FinalizeCurrentGroup() {
	if len(t.stack) == 0 {
		panic("slots: FinalizeCurrentGroup outside a group")
	}
	fr := t.stack[len(t.stack)-1]
	if fr.fresh {
		return
	}
	for i := t.cursor; i < fr.end; {
		s := t.store.at(i)
		if s.kind == kindGroup {
			t.gapRegion(i, true)
		}
		i = t.regionEnd(i)
	}
	t.cursor = fr.end
}

// AllocValueSlot returns the value slot at the cursor. A type-stable
// re-entry reuses the stored value without calling init; a mismatched type
// drops the stored value and replaces it with init's.
func (t *Table) AllocValueSlot(typ reflect.Type, init func() any) (ValueSlotID, any) {
	if t.cursor < t.frameEnd() {
		s := t.store.at(t.cursor)
		if s.kind == kindValue {
			if s.typ == typ {
				t.cursor++
				return s.anchor, s.val
			}
			v := init()
			s.val, s.typ = v, typ
			t.cursor++
			return s.anchor, v
		}
	}
	pos := t.cursor
	t.insertSlots(pos, 1)
	s := t.store.at(pos)
	s.kind = kindValue
	s.anchor = t.allocAnchor(pos)
	v := init()
	s.val, s.typ = v, typ
	t.cursor++
	return s.anchor, v
}

// ReadValue returns the value stored in a value slot. Reading through a
// stale ID is a programmer error.
func (t *Table) ReadValue(id ValueSlotID) any {
	pos, ok := t.anchors[id]
	if !ok {
		panic(fmt.Sprintf("slots: ReadValue on dead slot %d", id))
	}
	s := t.store.at(pos)
	if s.kind != kindValue {
		panic(fmt.Sprintf("slots: ReadValue on non-value slot %d", id))
	}
	return s.val
}

// WriteValue replaces the value stored in a value slot.
func (t *Table) WriteValue(id ValueSlotID, v any) {
	pos, ok := t.anchors[id]
	if !ok {
		panic(fmt.Sprintf("slots: WriteValue on dead slot %d", id))
	}
	s := t.store.at(pos)
	if s.kind != kindValue {
		panic(fmt.Sprintf("slots: WriteValue on non-value slot %d", id))
	}
	s.val = v
	if v != nil {
		s.typ = reflect.TypeOf(v)
	}
}

// UseNode returns the node recorded at the cursor, calling create to make a
// fresh one when the position holds none. The second return value reports
// whether create ran.
func (t *Table) UseNode(create func() NodeID) (NodeID, bool) {
	if t.cursor < t.frameEnd() {
		s := t.store.at(t.cursor)
		if s.kind == kindNode {
			t.cursor++
			return s.node, false
		}
	}
	pos := t.cursor
	t.insertSlots(pos, 1)
	s := t.store.at(pos)
	s.kind = kindNode
	s.anchor = t.allocAnchor(pos)
	id := create()
	s.node = id
	t.cursor++
	return id, true
}

// RecordNode appends or matches a node slot holding id.
func (t *Table) RecordNode(id NodeID) {
	t.UseNode(func() NodeID { return id })
}

// SetGroupScope binds a recompose scope to a group.
func (t *Table) SetGroupScope(group GroupRef, scope ScopeID) {
	pos, ok := t.anchors[group]
	if !ok {
		panic(fmt.Sprintf("slots: SetGroupScope on dead group %d", group))
	}
	t.store.at(pos).scope = scope
	t.scopes[scope] = group
}

// BeginRecomposeAtScope navigates directly to the group bound to scope and
// re-enters it, bypassing everything before it. It returns false when the
// scope is unknown or its group is hidden inside a cold gap; warm gaps on
// the path are quietly reopened.
func (t *Table) BeginRecomposeAtScope(scope ScopeID) (GroupRef, bool) {
	if len(t.stack) != 0 {
		panic("slots: BeginRecomposeAtScope inside an open group")
	}
	a, ok := t.scopes[scope]
	if !ok {
		return 0, false
	}
	pos, ok := t.anchors[a]
	if !ok {
		delete(t.scopes, scope)
		return 0, false
	}
	for p := a; p != 0; {
		s := t.slotAt(p)
		if s.kind == kindGap {
			if !s.warm {
				return 0, false
			}
			s.kind = kindGroup
			s.warm = false
		}
		p = s.parent
	}
	t.pushReenter(pos)
	return a, true
}

// GroupNodes returns the live nodes inside a group's region, in order.
func (t *Table) GroupNodes(group GroupRef) []NodeID {
	pos, ok := t.anchors[group]
	if !ok {
		return nil
	}
	return t.liveNodes(pos+1, t.regionEnd(pos))
}

func (t *Table) frameEnd() int {
	if len(t.stack) == 0 {
		return t.store.len()
	}
	return t.stack[len(t.stack)-1].end
}

func (t *Table) currentAnchor() Anchor {
	if len(t.stack) == 0 {
		return 0
	}
	return t.stack[len(t.stack)-1].anchor
}

func (t *Table) slotAt(a Anchor) *slot {
	return t.store.at(t.anchors[a])
}

// regionEnd returns the exclusive end of the region headed at pos: group and
// gap slots span 1+length slots, everything else one.
func (t *Table) regionEnd(pos int) int {
	s := t.store.at(pos)
	if s.kind == kindGroup || s.kind == kindGap {
		return pos + 1 + s.length
	}
	return pos + 1
}

func (t *Table) pushReenter(pos int) {
	s := t.store.at(pos)
	t.stack = append(t.stack, frame{
		anchor: s.anchor,
		start:  pos,
		end:    pos + 1 + s.length,
	})
	t.cursor = pos + 1
}

func (t *Table) insertGroup(key Key) GroupRef {
	pos := t.cursor
	parent := t.currentAnchor()
	t.insertSlots(pos, 1)
	s := t.store.at(pos)
	s.kind = kindGroup
	s.anchor = t.allocAnchor(pos)
	s.key = key
	s.parent = parent
	t.stack = append(t.stack, frame{anchor: s.anchor, start: pos, end: pos + 1, fresh: true})
	t.cursor = pos + 1
	return s.anchor
}

// gapRegion converts the region headed at pos into a gap. A cold gap hides
// its nodes from the tree; a warm gap (finalize/skip) keeps them live.
func (t *Table) gapRegion(pos int, warm bool) {
	s := t.store.at(pos)
	if s.kind == kindGap {
		return
	}
	nodes := t.liveNodes(pos+1, t.regionEnd(pos))
	s.kind = kindGap
	s.warm = warm
	if !warm && len(nodes) > 0 {
		t.obs.NodesHidden(nodes)
	}
}

// restoreGap flips the gap at pos back into a live group and re-enters it.
func (t *Table) restoreGap(pos int) GroupRef {
	s := t.store.at(pos)
	cold := !s.warm
	s.kind = kindGroup
	s.warm = false
	if cold {
		end := t.regionEnd(pos)
		if nodes := t.liveNodes(pos+1, end); len(nodes) > 0 {
			t.obs.NodesRestored(nodes)
		}
		if scopes := t.liveScopes(pos, end); len(scopes) > 0 {
			t.obs.ScopesRestored(scopes)
		}
	}
	t.pushReenter(pos)
	return s.anchor
}

// discardRegion reclaims the gap region headed at pos for good.
func (t *Table) discardRegion(pos int) {
	s := t.store.at(pos)
	live := s.warm
	end := t.regionEnd(pos)
	var nodes []NodeID
	for i := pos; i < end; i++ {
		if s := t.store.at(i); s.kind == kindNode {
			nodes = append(nodes, s.node)
		}
	}
	if len(nodes) > 0 {
		t.obs.NodesDiscarded(nodes, live)
	}
	t.removeSlots(pos, end-pos)
}

// gapTail preserves the unread tail of the closing group: group regions
// become cold gaps, existing gaps stay, dangling value and node slots are
// dropped.
func (t *Table) gapTail(from int) {
	i := from
	for i < t.frameEnd() {
		s := t.store.at(i)
		switch s.kind {
		case kindGroup:
			t.gapRegion(i, false)
			i = t.regionEnd(i)
		case kindGap:
			i = t.regionEnd(i)
		default:
			if s.kind == kindNode {
				t.obs.NodesDiscarded([]NodeID{s.node}, true)
			}
			t.removeSlots(i, 1)
		}
	}
}

// liveNodes collects the node slots in [from, to) that are not hidden under
// a cold gap.
func (t *Table) liveNodes(from, to int) []NodeID {
	var out []NodeID
	for i := from; i < to; {
		s := t.store.at(i)
		switch {
		case s.kind == kindGap && !s.warm:
			i = t.regionEnd(i)
		case s.kind == kindNode:
			out = append(out, s.node)
			i++
		default:
			i++
		}
	}
	return out
}

// liveScopes collects scope bindings in [from, to) that are not hidden
// under a nested cold gap.
func (t *Table) liveScopes(from, to int) []ScopeID {
	var out []ScopeID
	for i := from; i < to; {
		s := t.store.at(i)
		switch {
		case s.kind == kindGap && !s.warm && i != from:
			i = t.regionEnd(i)
		default:
			if (s.kind == kindGroup || s.kind == kindGap) && s.scope != 0 {
				out = append(out, s.scope)
			}
			i++
		}
	}
	return out
}

// insertSlots makes room for n slots at pos, updating anchors, enclosing
// group lengths, and open frames.
func (t *Table) insertSlots(pos, n int) {
	t.store.insert(pos, n)
	t.shiftAnchors(pos, n)
	t.bumpLengths(t.currentAnchor(), n)
	for i := range t.stack {
		if t.stack[i].end >= pos {
			t.stack[i].end += n
		}
	}
}

// removeSlots drops n slots at pos, releasing their anchors and scope
// bindings and shrinking enclosing group lengths and open frames.
func (t *Table) removeSlots(pos, n int) {
	var deadScopes []ScopeID
	for i := pos; i < pos+n; i++ {
		s := t.store.at(i)
		if (s.kind == kindGroup || s.kind == kindGap) && s.scope != 0 {
			deadScopes = append(deadScopes, s.scope)
			delete(t.scopes, s.scope)
		}
		delete(t.anchors, s.anchor)
	}
	t.store.remove(pos, n)
	t.shiftAnchors(pos, -n)
	t.bumpLengths(t.currentAnchor(), -n)
	for i := range t.stack {
		if t.stack[i].end >= pos+n {
			t.stack[i].end -= n
		}
	}
	if len(deadScopes) > 0 {
		t.obs.ScopesDiscarded(deadScopes)
	}
}

// bumpLengths adds n to the length of the group at anchor a and all of its
// ancestors, on or off the open stack.
func (t *Table) bumpLengths(a Anchor, n int) {
	for a != 0 {
		s := t.slotAt(a)
		s.length += n
		a = s.parent
	}
}
