// Package subcompose composes content during the hosting node's measure
// pass, so virtualized containers compose only what they need, and recycles
// retired sub-compositions through typed FIFO pools.
package subcompose

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/cespare/xxhash"
	"github.com/samber/lo"

	"github.com/weftui/weft/pkg/applier"
	"github.com/weftui/weft/pkg/comp"
	"github.com/weftui/weft/pkg/logutil"
)

var logger = logutil.GetLogger("[subcompose] ")

// SlotID identifies a subcomposed slot: 2 tag bits over 62 value bits, so
// a user key and an index key with the same value never collide.
type SlotID uint64

const (
	valueBits        = 62
	valueMask SlotID = 1<<valueBits - 1
	tagIndex  SlotID = 1 << valueBits
	tagUser   SlotID = 2 << valueBits
)

// IndexKey returns the slot ID for a positional (index-based) key.
func IndexKey(i int) SlotID {
	return tagIndex | (SlotID(uint64(i)) & valueMask)
}

// UserKey returns the slot ID for an explicit data key. Values wider than
// 62 bits are hashed down into the value space.
func UserKey(v any) SlotID {
	var raw uint64
	switch k := v.(type) {
	case int:
		raw = uint64(k)
	case int64:
		raw = uint64(k)
	case uint64:
		raw = k
	case string:
		raw = xxhash.Sum64String(k)
	default:
		raw = xxhash.Sum64String(fmt.Sprint(k))
	}
	if raw > uint64(valueMask) {
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], raw)
		raw = xxhash.Sum64(b[:])
	}
	return tagUser | (SlotID(raw) & valueMask)
}

// IsUser reports whether the slot carries a user-provided key.
func (id SlotID) IsUser() bool { return id&tagUser != 0 }

// ContentType tags a slot's content so retired compositions can be reused
// across slots of the same kind. NoType slots recycle only through the
// untyped fallback pool.
type ContentType uint32

const NoType ContentType = 0

// Stats counts how Subcompose resolved its calls since the host was
// created.
type Stats struct {
	Fresh        int
	ExactReuse   int
	TypeReuse    int
	UntypedReuse int
	Disposed     int
}

// slotComp is one sub-composition: its own composer and slot table, rooted
// at a container node under the host.
type slotComp struct {
	slot      SlotID
	ctype     ContentType
	container applier.NodeID
	composer  *comp.Composer
	seq       uint64 // last activation, orders retirement
}

// Host manages the sub-compositions of one measuring node.
type Host struct {
	tree  *applier.Tree
	queue *applier.Queue
	node  applier.NodeID

	active    map[SlotID]*slotComp
	activated map[SlotID]bool
	order     []applier.NodeID

	typed   map[ContentType][]*slotComp
	untyped []*slotComp

	// MaxPerType bounds each typed pool; MaxUntyped bounds the fallback.
	MaxPerType int
	MaxUntyped int

	// Compatible decides whether an untyped pooled composition of poolType
	// can be adopted for wantType content. Nil accepts everything.
	Compatible func(poolType, wantType ContentType) bool

	// OnInvalidate runs when state read by any slot's content changes, so
	// the hosting node can request remeasurement.
	OnInvalidate func()

	stats  Stats
	inPass bool
	seq    uint64
}

// NewHost returns a host composing slots under node.
func NewHost(tree *applier.Tree, queue *applier.Queue, node applier.NodeID) *Host {
	return &Host{
		tree:       tree,
		queue:      queue,
		node:       node,
		active:     make(map[SlotID]*slotComp),
		activated:  make(map[SlotID]bool),
		typed:      make(map[ContentType][]*slotComp),
		MaxPerType: 7,
		MaxUntyped: 10,
	}
}

// Stats returns resolution counters.
func (h *Host) Stats() Stats { return h.stats }

// ActiveCount returns the number of live (non-pooled) slots.
func (h *Host) ActiveCount() int { return len(h.active) }

// PooledCount returns the number of reusable compositions across pools.
func (h *Host) PooledCount() int {
	n := len(h.untyped)
	for _, p := range h.typed {
		n += len(p)
	}
	return n
}

// BeginPass starts a measure pass; every slot the pass needs must go
// through Subcompose before FinishPass.
func (h *Host) BeginPass() {
	if h.inPass {
		panic("subcompose: BeginPass without FinishPass")
	}
	h.inPass = true
	h.order = h.order[:0]
	for k := range h.activated {
		delete(h.activated, k)
	}
}

// Subcompose composes content into the slot, reusing an active slot by
// exact ID, then a pooled composition by content type, then a compatible
// untyped pooled composition, before composing fresh. It returns the
// slot's container node for the caller to measure.
func (h *Host) Subcompose(slot SlotID, ctype ContentType, content comp.Content) applier.NodeID {
	if !h.inPass {
		panic("subcompose: Subcompose outside a pass")
	}
	if h.activated[slot] {
		panic(fmt.Sprintf("subcompose: slot %d activated twice in one pass", slot))
	}

	sc := h.active[slot]
	if sc != nil {
		h.stats.ExactReuse++
	} else {
		sc = h.fromPools(ctype)
		if sc == nil {
			sc = &slotComp{
				container: h.tree.NewNode("slot"),
				composer:  comp.New(h.tree, h.queue),
			}
			sc.composer.SetInvalidateFunc(func() {
				if h.OnInvalidate != nil {
					h.OnInvalidate()
				}
			})
			h.stats.Fresh++
		}
		sc.slot = slot
		sc.ctype = ctype
		h.active[slot] = sc
	}

	h.activated[slot] = true
	h.seq++
	sc.seq = h.seq
	h.order = append(h.order, sc.container)
	h.attach(sc.container)
	sc.composer.ComposeRootInto(sc.container, content)
	return sc.container
}

// FinishPass retires slots not activated in this pass into the recycle
// pools, disposing what the pools cannot hold, and returns the disposed
// slot IDs. Retirement walks the slots in activation order, so the pools
// stay FIFO and eviction picks the same entry on every run.
func (h *Host) FinishPass() []SlotID {
	if !h.inPass {
		panic("subcompose: FinishPass without BeginPass")
	}
	h.inPass = false

	var retired []*slotComp
	for slot, sc := range h.active {
		if !h.activated[slot] {
			retired = append(retired, sc)
		}
	}
	sort.Slice(retired, func(i, j int) bool { return retired[i].seq < retired[j].seq })

	var disposed []SlotID
	for _, sc := range retired {
		delete(h.active, sc.slot)
		h.detach(sc.container)
		if evicted := h.pool(sc); evicted != nil {
			disposed = append(disposed, evicted.slot)
			h.dispose(evicted)
		}
	}
	h.pruneTypes()
	return disposed
}

// fromPools pops a reusable composition: typed pool first, then the
// untyped fallback through the compatibility predicate.
func (h *Host) fromPools(ctype ContentType) *slotComp {
	if ctype != NoType {
		if p := h.typed[ctype]; len(p) > 0 {
			sc := p[0]
			h.typed[ctype] = p[1:]
			h.stats.TypeReuse++
			return sc
		}
	}
	sc, i, ok := lo.FindIndexOf(h.untyped, func(sc *slotComp) bool {
		return h.Compatible == nil || h.Compatible(sc.ctype, ctype)
	})
	if !ok {
		return nil
	}
	h.untyped = append(h.untyped[:i], h.untyped[i+1:]...)
	h.stats.UntypedReuse++
	return sc
}

// pool files a retired composition. A full pool evicts its oldest entry;
// the eviction is returned for disposal.
func (h *Host) pool(sc *slotComp) (evicted *slotComp) {
	if sc.ctype == NoType {
		h.untyped = append(h.untyped, sc)
		if len(h.untyped) > h.MaxUntyped {
			evicted = h.untyped[0]
			h.untyped = h.untyped[1:]
		}
		return evicted
	}
	p := append(h.typed[sc.ctype], sc)
	if len(p) > h.MaxPerType {
		evicted = p[0]
		p = p[1:]
	}
	h.typed[sc.ctype] = p
	return evicted
}

func (h *Host) dispose(sc *slotComp) {
	logger.Println("disposing subcomposition for slot", sc.slot)
	h.stats.Disposed++
	sc.composer.Close()
	h.tree.Release(sc.container)
}

// pruneTypes drops content-type registrations that have neither active nor
// reusable slots.
func (h *Host) pruneTypes() {
	inUse := lo.Associate(lo.Values(h.active), func(sc *slotComp) (ContentType, bool) {
		return sc.ctype, true
	})
	for typ, p := range h.typed {
		if len(p) == 0 && !inUse[typ] {
			delete(h.typed, typ)
		}
	}
}

// Containers returns the active containers in this pass's activation
// order, what the measure policy lays out.
func (h *Host) Containers() []applier.NodeID {
	return h.order
}

func (h *Host) attach(container applier.NodeID) {
	if h.tree.Get(container).Parent != 0 {
		return
	}
	idx := len(h.tree.Get(h.node).Children)
	h.tree.Insert(h.node, idx, container)
	h.queue.Insert(h.node, idx, container)
}

func (h *Host) detach(container applier.NodeID) {
	n := h.tree.Get(container)
	if n == nil || n.Parent == 0 {
		return
	}
	idx := h.tree.IndexOf(n.Parent, container)
	h.tree.Remove(n.Parent, idx, 1)
	h.queue.Remove(n.Parent, idx, 1)
}
