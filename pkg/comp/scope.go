package comp

import (
	"github.com/weftui/weft/pkg/applier"
	"github.com/weftui/weft/pkg/slots"
	"github.com/weftui/weft/pkg/snapshot"
)

// Scope is a recompose scope: the unit of targeted recomposition. One is
// bound to every composable's group; when a state object the scope read is
// changed by an applied snapshot, the scope is marked dirty and queued.
type Scope struct {
	id       slots.ScopeID
	group    slots.GroupRef
	body     Content
	dirty    bool
	disposed bool

	// Last parameters of a skippable composable and its memoized result.
	params []any
	result any

	// Where the scope's first node lands in the applier tree, so a
	// targeted recompose can seed node indexing without composing the
	// ancestors.
	nodeParent applier.NodeID
	nodeIndex  int

	deps map[snapshot.Object]struct{}
}

// ID returns the scope's identity.
func (s *Scope) ID() slots.ScopeID { return s.id }

// Dirty reports whether the scope is marked for recomposition.
func (s *Scope) Dirty() bool { return s.dirty }

func (c *Composer) newScope() *Scope {
	s := &Scope{
		id:   c.nextScope,
		deps: make(map[snapshot.Object]struct{}),
	}
	c.nextScope++
	c.scopes[s.id] = s
	return s
}

// Invalidate marks the scope dirty and queues it for the next frame.
// Queueing dedups by scope ID and preserves first-invalidation order.
func (c *Composer) Invalidate(s *Scope) {
	if s == nil || s.disposed {
		return
	}
	s.dirty = true
	if _, ok := c.queued[s.id]; ok {
		return
	}
	c.queued[s.id] = struct{}{}
	c.pending = append(c.pending, s)
	if c.onInvalidate != nil {
		c.onInvalidate()
	}
}

// CurrentScope returns the innermost scope being composed, or nil outside
// composition.
func (c *Composer) CurrentScope() *Scope {
	if len(c.scopeStack) == 0 {
		return nil
	}
	return c.scopeStack[len(c.scopeStack)-1]
}

func (c *Composer) recordRead(obj snapshot.Object) {
	s := c.CurrentScope()
	if s == nil {
		return
	}
	set := c.reads[obj]
	if set == nil {
		set = make(map[*Scope]struct{})
		c.reads[obj] = set
	}
	set[s] = struct{}{}
	s.deps[obj] = struct{}{}
}

func (c *Composer) clearDeps(s *Scope) {
	for obj := range s.deps {
		if set := c.reads[obj]; set != nil {
			delete(set, s)
			if len(set) == 0 {
				delete(c.reads, obj)
			}
		}
		delete(s.deps, obj)
	}
}

func (c *Composer) onApplied(changed []snapshot.Object) {
	for _, obj := range changed {
		for s := range c.reads[obj] {
			c.Invalidate(s)
		}
	}
}

// InvalidateReaders queues every scope that read one of the given objects.
// The runtime uses it when a frame's composition snapshot is abandoned, so
// scopes that observed the discarded writes recompose against the
// surviving state.
func (c *Composer) InvalidateReaders(objs []snapshot.Object) {
	c.onApplied(objs)
}
