// Package modifier implements the per-layout-node behavior chain: small
// value-comparable elements that create and update stateful nodes, a
// sentinel-bounded doubly-linked chain, and reconciliation that preserves
// node instances wherever the element list allows.
package modifier

// Caps advertises what a node participates in. The chain aggregates masks
// so traversals touch only candidate nodes.
type Caps uint32

const (
	CapLayout Caps = 1 << iota
	CapDraw
	CapPointerInput
	CapSemantics
	CapFocus
	CapModifierLocal
	CapDelegating
)

// Invalidation kinds a node can request on its owning layout node.
// Requests coalesce per kind until the owner drains them.
type Invalidation uint8

const (
	InvalidateLayout Invalidation = 1 << iota
	InvalidateDraw
	InvalidateSemantics
	InvalidatePointer
	InvalidateUpdate
)

// Element describes a behavior. Elements are compared by value during
// reconciliation; nodes carry the state.
type Element interface {
	// Create builds the node for a fresh attachment.
	Create() Node
	// Update adopts the element's data into an existing node of the same
	// element type.
	Update(Node)
	// Equal reports value equality with another element.
	Equal(Element) bool
	// Caps reports the capabilities the node will advertise.
	Caps() Caps
}

// KeyedElement optionally pins identity across data changes.
type KeyedElement interface {
	Element
	Key() any
}

// Node is the stateful half of a modifier. Lifecycle: OnAttach once per
// lifetime, OnReset when the chain is reset for reuse, OnDetach exactly
// once.
type Node interface {
	OnAttach(*NodeContext)
	OnDetach()
	OnReset()
}

// Delegate is a node exposed by a host to chain traversal.
type Delegate struct {
	Node Node
	Caps Caps
}

// DelegateHost is implemented by nodes that expose delegates. Delegate
// capabilities join the host's aggregate; traversal visits the host first,
// then its delegates in order.
type DelegateHost interface {
	Delegates() []Delegate
}

// Base is a convenience embedding providing no-op lifecycle methods and
// access to the node's context after attach.
type Base struct {
	ctx *NodeContext
}

func (b *Base) OnAttach(ctx *NodeContext) { b.ctx = ctx }
func (b *Base) OnDetach()                 { b.ctx = nil }
func (b *Base) OnReset()                  {}

// Ctx returns the node's context, nil when detached.
func (b *Base) Ctx() *NodeContext { return b.ctx }

// Owner receives the first invalidation request of each kind between
// drains; the layout node behind the chain implements it.
type Owner interface {
	InvalidateFromChain(kind Invalidation)
}

// NodeContext is handed to a node at attach and stays valid until detach.
type NodeContext struct {
	chain *Chain
}

// Invalidate requests an invalidation of the owning layout node.
func (ctx *NodeContext) Invalidate(kind Invalidation) {
	if ctx == nil || ctx.chain == nil {
		return
	}
	ctx.chain.invalidate(kind)
}

// Modifier is an ordered element list built fluently:
// modifier.New().Then(Padding{8}).Then(Background{Red}).
type Modifier []Element

// New returns the empty modifier.
func New() Modifier { return nil }

// Then appends elements, declaration order outermost first.
func (m Modifier) Then(elems ...Element) Modifier {
	return append(m, elems...)
}

func elementKey(e Element) (any, bool) {
	if k, ok := e.(KeyedElement); ok {
		return k.Key(), true
	}
	return nil, false
}

func keysCompatible(a, b Element) bool {
	ka, oka := elementKey(a)
	kb, okb := elementKey(b)
	if oka != okb {
		return false
	}
	return !oka || ka == kb
}
