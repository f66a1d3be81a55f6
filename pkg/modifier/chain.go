package modifier

import "reflect"

// entry is one link of the chain. Sentinels carry no element or node.
type entry struct {
	prev, next *entry
	elem       Element
	node       Node
	ctx        *NodeContext
	caps       Caps // element caps plus delegate caps
	aggregate  Caps // caps of this entry and all entries after it
	attached   bool
}

// Chain holds a layout node's reconciled modifier nodes between head and
// tail sentinels, outermost first.
type Chain struct {
	head, tail entry
	owner      Owner
	pending    Invalidation
}

// NewChain returns an empty chain reporting invalidations to owner, which
// may be nil.
func NewChain(owner Owner) *Chain {
	c := &Chain{owner: owner}
	c.head.next = &c.tail
	c.tail.prev = &c.head
	return c
}

// Len returns the number of real nodes in the chain.
func (c *Chain) Len() int {
	n := 0
	for e := c.head.next; e != &c.tail; e = e.next {
		n++
	}
	return n
}

// Aggregate returns the capability mask of the whole chain, delegates
// included.
func (c *Chain) Aggregate() Caps {
	if c.head.next == &c.tail {
		return 0
	}
	return c.head.next.aggregate
}

func (c *Chain) invalidate(kind Invalidation) {
	fresh := kind &^ c.pending
	c.pending |= kind
	if fresh != 0 && c.owner != nil {
		c.owner.InvalidateFromChain(fresh)
	}
}

// TakePending returns and clears the coalesced invalidation kinds.
func (c *Chain) TakePending() Invalidation {
	p := c.pending
	c.pending = 0
	return p
}

// Update reconciles the chain against a new element list. Position by
// position, an exactly equal element keeps its node untouched; a same-type
// element keeps the node and adopts the new data through Update; anything
// else detaches the old node and creates a fresh one. Exact matches are
// resolved in a first pass over all positions so that reordered siblings
// reuse their nodes instead of churning through type-only updates.
func (c *Chain) Update(elems []Element) {
	old := make([]*entry, 0, 8)
	for e := c.head.next; e != &c.tail; e = e.next {
		old = append(old, e)
	}
	used := make([]bool, len(old))
	result := make([]*entry, len(elems))

	// Pass 1: exact equality, same position preferred.
	for i, el := range elems {
		if i < len(old) && !used[i] && exactMatch(old[i].elem, el) {
			result[i] = old[i]
			used[i] = true
			continue
		}
		for j, oe := range old {
			if !used[j] && exactMatch(oe.elem, el) {
				result[i] = oe
				used[j] = true
				break
			}
		}
	}

	// Pass 2: same element type adopts the new data, node preserved.
	for i, el := range elems {
		if result[i] != nil {
			continue
		}
		if i < len(old) && !used[i] && typeMatch(old[i].elem, el) {
			result[i] = c.adopt(old[i], el)
			used[i] = true
			continue
		}
		for j, oe := range old {
			if !used[j] && typeMatch(oe.elem, el) {
				result[i] = c.adopt(oe, el)
				used[j] = true
				break
			}
		}
	}

	// Unmatched old nodes go away; unmatched new elements get fresh nodes.
	for j, oe := range old {
		if !used[j] {
			c.detach(oe)
		}
	}
	for i, el := range elems {
		if result[i] == nil {
			result[i] = &entry{elem: el}
		}
	}

	// Relink in declaration order, then attach newcomers and recompute
	// masks.
	prev := &c.head
	for _, e := range result {
		prev.next = e
		e.prev = prev
		prev = e
	}
	prev.next = &c.tail
	c.tail.prev = prev

	for _, e := range result {
		if !e.attached {
			e.node = e.elem.Create()
			e.ctx = &NodeContext{chain: c}
			e.attached = true
			e.node.OnAttach(e.ctx)
		}
	}
	c.recomputeCaps()
}

func (c *Chain) adopt(e *entry, el Element) *entry {
	e.elem = el
	if e.attached {
		el.Update(e.node)
	}
	return e
}

func (c *Chain) detach(e *entry) {
	e.prev.next = e.next
	e.next.prev = e.prev
	if e.attached {
		e.node.OnDetach()
		e.attached = false
	}
	e.ctx = nil
}

func (c *Chain) recomputeCaps() {
	for e := c.head.next; e != &c.tail; e = e.next {
		e.caps = e.elem.Caps()
		if host, ok := e.node.(DelegateHost); ok {
			for _, d := range host.Delegates() {
				e.caps |= d.Caps
			}
		}
	}
	agg := Caps(0)
	for e := c.tail.prev; e != &c.head; e = e.prev {
		agg |= e.caps
		e.aggregate = agg
	}
}

// ForEach visits nodes advertising any capability in caps, head to tail,
// stopping early if visit returns false. A host's delegates are visited
// right after the host, breadth-first, filtered by their own caps.
func (c *Chain) ForEach(caps Caps, visit func(Node) bool) {
	for e := c.head.next; e != &c.tail; e = e.next {
		if e.aggregate&caps == 0 {
			return
		}
		if e.caps&caps != 0 {
			if e.elem.Caps()&caps != 0 && !visit(e.node) {
				return
			}
			if host, ok := e.node.(DelegateHost); ok {
				for _, d := range host.Delegates() {
					if d.Caps&caps != 0 && !visit(d.Node) {
						return
					}
				}
			}
		}
	}
}

// ForEachReversed visits like ForEach but tail to head, as hit testing
// does to find the topmost handler first.
func (c *Chain) ForEachReversed(caps Caps, visit func(Node) bool) {
	for e := c.tail.prev; e != &c.head; e = e.prev {
		if e.caps&caps != 0 {
			if host, ok := e.node.(DelegateHost); ok {
				for i := len(host.Delegates()) - 1; i >= 0; i-- {
					d := host.Delegates()[i]
					if d.Caps&caps != 0 && !visit(d.Node) {
						return
					}
				}
			}
			if e.elem.Caps()&caps != 0 && !visit(e.node) {
				return
			}
		}
	}
}

// Reset prepares the chain for reuse in a recycled slot: every node gets
// OnReset, state and links stay.
func (c *Chain) Reset() {
	for e := c.head.next; e != &c.tail; e = e.next {
		e.node.OnReset()
	}
}

// Clear detaches every node.
func (c *Chain) Clear() {
	for e := c.head.next; e != &c.tail; {
		next := e.next
		c.detach(e)
		e = next
	}
}

func exactMatch(a, b Element) bool {
	return keysCompatible(a, b) && a.Equal(b)
}

func typeMatch(a, b Element) bool {
	return keysCompatible(a, b) && reflect.TypeOf(a) == reflect.TypeOf(b)
}
