// Package slots implements the slot table that backs positional
// memoization.
//
// A slot table is a flat vector of slots navigated by a cursor during
// composition. Groups are regions of the vector identified by a composite
// key; within a group, slots appear in composition order, and positional
// stability at the group level is what enables reuse across recompositions.
// A region whose content was omitted in a later pass is not reclaimed
// eagerly: it is converted to a gap, which preserves the region so that a
// later pass requesting the same key restores it, node identities included.
//
// The package provides two interchangeable backends over the same cursor
// logic: a dense vector (the reference) and a chunked store. Both must
// produce identical observable histories for any composition; the
// conformance suite in the tests enforces this.
package slots

import "reflect"

// NodeID identifies a node in the applier's tree. The table only records
// node references; payloads are the applier's concern.
type NodeID uint64

// ScopeID identifies a recompose scope bound to a group.
type ScopeID uint64

// Anchor is a stable identity for a slot. Anchors survive the shifting that
// insertions and removals cause; positions do not.
type Anchor uint64

// ValueSlotID identifies a value slot.
type ValueSlotID = Anchor

// GroupRef identifies a group.
type GroupRef = Anchor

// Key identifies a group: a source-location hash plus an optional explicit
// user key.
type Key struct {
	Loc     uint64
	User    uint64
	HasUser bool
}

// Observer receives structural notifications from the table. The
// composition layer translates these into applier commands and scope
// lifecycle changes.
type Observer interface {
	// NodesHidden reports nodes whose region became a cold gap: they leave
	// the tree but are preserved for a later restore.
	NodesHidden(nodes []NodeID)
	// NodesRestored reports nodes of a restored cold gap, in region order.
	NodesRestored(nodes []NodeID)
	// NodesDiscarded reports nodes of a reclaimed region. live is true if
	// the nodes were still in the tree (the region was live or a warm gap).
	NodesDiscarded(nodes []NodeID, live bool)
	// ScopesDiscarded reports scopes whose groups were reclaimed.
	ScopesDiscarded(scopes []ScopeID)
	// ScopesRestored reports scopes inside a restored cold gap. The
	// restored content is reused verbatim, so the composition layer
	// re-marks these dirty to pick up state changes that happened while
	// the region was hidden.
	ScopesRestored(scopes []ScopeID)
}

// nopObserver is used when no observer is set.
type nopObserver struct{}

func (nopObserver) NodesHidden([]NodeID)          {}
func (nopObserver) NodesRestored([]NodeID)        {}
func (nopObserver) NodesDiscarded([]NodeID, bool) {}
func (nopObserver) ScopesDiscarded([]ScopeID)     {}
func (nopObserver) ScopesRestored([]ScopeID)      {}

type slotKind uint8

const (
	kindGroup slotKind = iota
	kindGap
	kindValue
	kindNode
)

// slot is one cell of the table. Group and gap slots head a region of
// 1+length slots; value and node slots carry payloads.
type slot struct {
	kind   slotKind
	anchor Anchor
	// group, gap
	key    Key
	parent Anchor // enclosing group's anchor; 0 at the root
	length int    // content slots in the region, excluding the header
	scope  ScopeID
	warm   bool // gap only: content is still live (skip), not hidden
	// value
	val any
	typ reflect.Type
	// node
	node NodeID
}

// store abstracts the physical slot storage so that backends share the
// cursor logic.
type store interface {
	len() int
	at(i int) *slot
	insert(i, n int)
	remove(i, n int)
}

// frame is one level of the group stack during composition.
type frame struct {
	anchor Anchor
	start  int
	end    int  // exclusive; start+1+length when re-entering
	fresh  bool // group created in this pass
}

// Table is a slot table. Use New or NewChunked to create one.
type Table struct {
	store store
	obs   Observer

	stack  []frame
	cursor int

	nextAnchor Anchor
	// anchors maps anchor to current position. Rebuilt incrementally as
	// insertions and removals shift slots.
	anchors map[Anchor]int
	// scopes maps a scope to the anchor of the group that bounds it.
	scopes map[ScopeID]Anchor
}

// New returns a Table on the dense-vector reference backend.
func New() *Table {
	return &Table{
		store:      &denseStore{},
		obs:        nopObserver{},
		nextAnchor: 1,
		anchors:    make(map[Anchor]int),
		scopes:     make(map[ScopeID]Anchor),
	}
}

// NewChunked returns a Table on the chunked backend.
func NewChunked() *Table {
	return &Table{
		store:      &chunkedStore{},
		obs:        nopObserver{},
		nextAnchor: 1,
		anchors:    make(map[Anchor]int),
		scopes:     make(map[ScopeID]Anchor),
	}
}

// SetObserver installs the observer receiving structural notifications.
func (t *Table) SetObserver(obs Observer) {
	if obs == nil {
		t.obs = nopObserver{}
	} else {
		t.obs = obs
	}
}

// Len returns the number of slots in the table, gaps included.
func (t *Table) Len() int { return t.store.len() }

// InGroup reports whether a group is currently open.
func (t *Table) InGroup() bool { return len(t.stack) > 0 }

// Depth returns the current group nesting depth.
func (t *Table) Depth() int { return len(t.stack) }

func (t *Table) allocAnchor(pos int) Anchor {
	a := t.nextAnchor
	t.nextAnchor++
	t.anchors[a] = pos
	return a
}

// shiftAnchors adjusts anchor positions after inserting (n>0) or removing
// (n<0) slots at pos.
func (t *Table) shiftAnchors(pos, n int) {
	for a, idx := range t.anchors {
		if idx >= pos {
			t.anchors[a] = idx + n
		}
	}
}
