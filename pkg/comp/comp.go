// Package comp implements the composition layer: positional groups over a
// slot table, recompose scopes with dependency tracking against snapshot
// state, parameter-equality skipping, and node emission into an applier
// command queue.
package comp

import (
	"github.com/weftui/weft/pkg/applier"
	"github.com/weftui/weft/pkg/logutil"
	"github.com/weftui/weft/pkg/slots"
	"github.com/weftui/weft/pkg/snapshot"
)

var logger = logutil.GetLogger("[comp] ")

// Content is a composable body. Composables are plain functions taking the
// composer; each opens its own positional group via the Compose helpers.
type Content func(*Composer)

type nodeFrame struct {
	id   applier.NodeID
	next int
}

// Composer drives composition over a slot table and emits node commands
// into a queue, mirrored eagerly into its retained tree so that node
// indices stay computable mid-pass.
type Composer struct {
	table *slots.Table
	tree  *applier.Tree
	queue *applier.Queue

	nodeStack  []nodeFrame
	scopeStack []*Scope

	scopes    map[slots.ScopeID]*Scope
	nextScope slots.ScopeID

	// reads maps a state object to the scopes that read it. The reverse
	// direction lives on each Scope for cheap clearing.
	reads map[snapshot.Object]map[*Scope]struct{}

	pending []*Scope
	queued  map[slots.ScopeID]struct{}

	onInvalidate func()
	removeObs    func()

	rootKey slots.Key
}

// New returns a Composer emitting into queue and mirroring into tree. It
// registers with the snapshot layer for apply notifications; Close
// unregisters.
func New(tree *applier.Tree, queue *applier.Queue) *Composer {
	c := &Composer{
		table:     slots.New(),
		tree:      tree,
		queue:     queue,
		scopes:    make(map[slots.ScopeID]*Scope),
		nextScope: 1,
		reads:     make(map[snapshot.Object]map[*Scope]struct{}),
		queued:    make(map[slots.ScopeID]struct{}),
		rootKey:   slots.Key{Loc: 1},
	}
	c.table.SetObserver(c)
	c.removeObs = snapshot.ObserveApplied(c.onApplied)
	return c
}

// Close detaches the composer from the snapshot layer.
func (c *Composer) Close() {
	if c.removeObs != nil {
		c.removeObs()
		c.removeObs = nil
	}
}

// SetInvalidateFunc installs the wakeup called when a scope first enters
// the invalidation queue. The runtime points this at its frame scheduler.
func (c *Composer) SetInvalidateFunc(f func()) { c.onInvalidate = f }

// Table exposes the slot table, mainly for tests.
func (c *Composer) Table() *slots.Table { return c.table }

// Tree returns the composer's retained node tree.
func (c *Composer) Tree() *applier.Tree { return c.tree }

// ComposeRoot runs a full composition pass from the top.
func (c *Composer) ComposeRoot(body Content) {
	c.ComposeRootInto(c.tree.Root(), body)
}

// ComposeRootInto runs a full pass with nodes parented under the given
// tree node; subcomposition hosts root slot content in detached containers
// this way.
func (c *Composer) ComposeRootInto(parent applier.NodeID, body Content) {
	c.table.Reset()
	c.nodeStack = append(c.nodeStack[:0], nodeFrame{id: parent})
	completed := false
	defer func() {
		if !completed {
			c.Abort()
		}
	}()
	group, _ := c.table.BeginGroup(c.rootKey)
	c.composeBody(group, body)
	c.table.EndGroup()
	c.nodeStack = c.nodeStack[:0]
	completed = true
}

// Compose runs body inside a positional group with its own recompose scope.
func (c *Composer) Compose(key slots.Key, body Content) {
	group, _ := c.table.BeginGroup(key)
	c.composeBody(group, body)
	c.table.EndGroup()
}

// Skippable composes body inside a group that skips when the scope is clean
// and params compare equal to the previous pass. Value parameters compare
// by value; callbacks should be wrapped with Callback so they compare by
// stable identity.
func (c *Composer) Skippable(key slots.Key, params []any, body Content) {
	c.skippable(key, params, func(cc *Composer, _ *Scope) { body(cc) })
}

func (c *Composer) skippable(key slots.Key, params []any, inner func(*Composer, *Scope)) *Scope {
	group, restored := c.table.BeginGroup(key)
	created := false
	_, v := c.table.AllocValueSlot(scopeType, func() any {
		created = true
		return c.newScope()
	})
	s := v.(*Scope)
	s.group = group
	s.body = func(cc *Composer) { inner(cc, s) }
	c.table.SetGroupScope(group, s.id)
	fr := c.topFrame()
	s.nodeParent, s.nodeIndex = fr.id, fr.next

	if !created && !restored && !s.dirty && paramsEqual(s.params, params) {
		c.table.FinalizeCurrentGroup()
		c.table.EndGroup()
		// The skipped content stays in place under the parent; the sibling
		// cursor steps over its top-level nodes.
		for _, n := range c.table.GroupNodes(group) {
			if nd := c.tree.Get(n); nd != nil && nd.Parent == fr.id {
				fr.next++
			}
		}
		return s
	}
	s.params = append([]any(nil), params...)
	c.runScope(s)
	c.table.EndGroup()
	return s
}

// composeBody replays the fixed slot prologue of a composable group (the
// scope cell) and runs the body under the scope. Targeted recomposition
// re-enters through here too, so the slot sequence must match exactly.
func (c *Composer) composeBody(group slots.GroupRef, body Content) {
	_, v := c.table.AllocValueSlot(scopeType, func() any { return c.newScope() })
	s := v.(*Scope)
	s.group = group
	s.body = body
	c.table.SetGroupScope(group, s.id)
	fr := c.topFrame()
	s.nodeParent, s.nodeIndex = fr.id, fr.next
	c.runScope(s)
}

func (c *Composer) runScope(s *Scope) {
	s.dirty = false
	c.clearDeps(s)
	c.scopeStack = append(c.scopeStack, s)
	snapshot.ObserveReads(c.recordRead, func() { s.body(c) })
	c.scopeStack = c.scopeStack[:len(c.scopeStack)-1]
}

// RecomposePending drains the invalidation queue, recomposing each
// still-dirty scope exactly once in first-invalidation order. It returns
// the number of scopes recomposed.
func (c *Composer) RecomposePending() int {
	n := 0
	for len(c.pending) > 0 {
		s := c.pending[0]
		c.pending = c.pending[1:]
		delete(c.queued, s.id)
		if s.disposed || !s.dirty {
			continue
		}
		if c.recomposeScope(s) {
			n++
		}
	}
	return n
}

// HasPending reports whether any scope awaits recomposition.
func (c *Composer) HasPending() bool { return len(c.pending) > 0 }

// Abort restores the composer to a resumable state after a panic unwound a
// compose pass: open groups are closed through the finalize path and the
// scopes that were mid-composition are re-queued. Passes arrange for it
// themselves; calling it with nothing open is a no-op.
func (c *Composer) Abort() {
	for _, s := range c.scopeStack {
		c.Invalidate(s)
	}
	c.scopeStack = c.scopeStack[:0]
	c.nodeStack = c.nodeStack[:0]
	c.table.AbortPass()
}

func (c *Composer) recomposeScope(s *Scope) bool {
	group, ok := c.table.BeginRecomposeAtScope(s.id)
	if !ok {
		logger.Println("dropping recompose of unreachable scope", s.id)
		s.dirty = false
		return false
	}
	parent, idx := s.nodeParent, s.nodeIndex
	if nodes := c.table.GroupNodes(group); len(nodes) > 0 {
		if i := c.tree.IndexOf(parent, nodes[0]); i >= 0 {
			idx = i
		}
	}
	c.nodeStack = append(c.nodeStack[:0], nodeFrame{id: parent, next: idx})
	completed := false
	defer func() {
		if !completed {
			c.Abort()
		}
	}()
	c.composeBody(group, s.body)
	c.table.EndGroup()
	c.nodeStack = c.nodeStack[:0]
	completed = true
	return true
}

// Node emits or reuses the node at the current position, then composes
// content with the node as the current parent. kind is the applier-level
// node role.
func (c *Composer) Node(kind string, content Content) applier.NodeID {
	id, created := c.table.UseNode(func() slots.NodeID { return c.tree.NewNode(kind) })
	fr := c.topFrame()
	if created {
		c.emitInsert(fr.id, fr.next, id)
	} else if idx := c.tree.IndexOf(fr.id, id); idx < 0 {
		c.emitInsert(fr.id, fr.next, id)
	} else if idx != fr.next {
		c.emitMove(fr.id, idx, fr.next, 1)
	}
	fr.next++
	c.nodeStack = append(c.nodeStack, nodeFrame{id: id})
	if content != nil {
		content(c)
	}
	c.nodeStack = c.nodeStack[:len(c.nodeStack)-1]
	return id
}

// SetAttr records an attribute change for a node, eliding writes that do
// not change the reconciled value.
func (c *Composer) SetAttr(id applier.NodeID, attr string, v any) {
	if n := c.tree.Get(id); n != nil {
		if cur, ok := n.Attrs[attr]; ok && valueEqual(cur, v) {
			return
		}
	}
	c.tree.SetAttr(id, attr, v)
	c.queue.SetAttr(id, attr, v)
}

func (c *Composer) topFrame() *nodeFrame {
	if len(c.nodeStack) == 0 {
		panic("comp: node emission outside composition")
	}
	return &c.nodeStack[len(c.nodeStack)-1]
}

func (c *Composer) emitInsert(parent applier.NodeID, index int, id applier.NodeID) {
	c.tree.Insert(parent, index, id)
	c.queue.Insert(parent, index, id)
}

func (c *Composer) emitMove(parent applier.NodeID, from, to, count int) {
	c.tree.Move(parent, from, to, count)
	c.queue.Move(parent, from, to, count)
}

func (c *Composer) emitRemove(parent applier.NodeID, index, count int) {
	c.tree.Remove(parent, index, count)
	c.queue.Remove(parent, index, count)
}

func (c *Composer) isAttached(id applier.NodeID) bool {
	for id != 0 {
		if id == c.tree.Root() {
			return true
		}
		n := c.tree.Get(id)
		if n == nil {
			return false
		}
		id = n.Parent
	}
	return false
}

// NodesHidden implements slots.Observer: a region became a cold gap, so its
// nodes leave the tree but stay restorable.
func (c *Composer) NodesHidden(ns []slots.NodeID) {
	for _, n := range ns {
		node := c.tree.Get(n)
		if node == nil || node.Parent == 0 || !c.isAttached(n) {
			continue
		}
		idx := c.tree.IndexOf(node.Parent, n)
		c.emitRemove(node.Parent, idx, 1)
	}
}

// NodesRestored implements slots.Observer: a cold gap was re-activated. Top
// level nodes are reattached at the current position; re-running the body
// then claims them in place. Nodes nested inside a restored subtree are
// still linked and need nothing.
func (c *Composer) NodesRestored(ns []slots.NodeID) {
	fr := c.topFrame()
	off := 0
	for _, n := range ns {
		node := c.tree.Get(n)
		if node == nil || node.Parent != 0 {
			continue
		}
		c.emitInsert(fr.id, fr.next+off, n)
		off++
	}
}

// NodesDiscarded implements slots.Observer: a region is gone for good.
func (c *Composer) NodesDiscarded(ns []slots.NodeID, _ bool) {
	for _, n := range ns {
		node := c.tree.Get(n)
		if node == nil || node.Parent == 0 {
			continue
		}
		if c.isAttached(n) {
			c.emitRemove(node.Parent, c.tree.IndexOf(node.Parent, n), 1)
		}
	}
	for _, n := range ns {
		if node := c.tree.Get(n); node != nil && node.Parent == 0 {
			c.tree.Release(n)
		}
	}
}

// ScopesDiscarded implements slots.Observer.
func (c *Composer) ScopesDiscarded(ss []slots.ScopeID) {
	for _, id := range ss {
		s := c.scopes[id]
		if s == nil {
			continue
		}
		s.disposed = true
		c.clearDeps(s)
		delete(c.scopes, id)
	}
}

// ScopesRestored implements slots.Observer. Restored content is reused
// verbatim, so the scopes are re-marked dirty to pick up state changes that
// happened while hidden.
func (c *Composer) ScopesRestored(ss []slots.ScopeID) {
	for _, id := range ss {
		if s := c.scopes[id]; s != nil {
			c.Invalidate(s)
		}
	}
}
