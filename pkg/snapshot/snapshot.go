// Package snapshot implements snapshot-isolated reactive state with
// multi-version concurrency control.
//
// All reactive state lives in state objects (see [Value]). Readers observe a
// consistent view of every object at a point in time, identified by a
// snapshot ID; writers mutate in isolation inside a [Mutable] snapshot and
// publish atomically with [Mutable.Apply]. Each object keeps a list of
// versioned records; a reader walks the list for the newest record whose ID
// is at or below its own and not in its invalid set.
//
// Composition runs against the global snapshot, which advances monotonically
// as mutable snapshots apply. Record reclamation happens only on global
// advance, so records that pending sibling applies still need are never
// invalidated under them.
package snapshot

import (
	"sync"

	"github.com/weftui/weft/pkg/snapid"
)

// ID identifies a snapshot. IDs are allocated monotonically and never
// reused.
type ID = uint64

// ApplyResult is the result of [Mutable.Apply].
type ApplyResult int

const (
	// Applied means the snapshot's writes are now visible in the parent.
	Applied ApplyResult = iota
	// Conflict means another snapshot applied a change to the same object
	// first and no merge was possible. The snapshot is dead; retry against
	// a fresh one.
	Conflict
	// Disposed means the snapshot was disposed or already applied.
	Disposed
)

// Succeeded reports whether the apply took effect.
func (r ApplyResult) Succeeded() bool { return r == Applied }

func (r ApplyResult) String() string {
	switch r {
	case Applied:
		return "applied"
	case Conflict:
		return "conflict"
	case Disposed:
		return "disposed"
	default:
		return "unknown"
	}
}

// Snapshot is a read-only view of all state objects at a point in time.
type Snapshot struct {
	id       ID
	invalid  snapid.Set
	readObs  func(Object)
	disposed bool
}

// Mutable is a snapshot that additionally permits writes. It is created by
// [TakeMutable] or [Mutable.TakeNested].
type Mutable struct {
	Snapshot
	writeObs func(Object)
	// parent is nil for snapshots taken from the global snapshot.
	parent   *Mutable
	modified map[Object]*record
	applied  bool
}

var (
	mu     sync.Mutex
	nextID ID = 1
	// open holds the IDs of all mutable snapshots that are neither applied
	// nor disposed.
	open snapid.Set
	// global is the snapshot composition reads from by default.
	global = &Snapshot{id: allocID()}

	applyObs []*applyObserver
	// pinned holds objects with more than one record, candidates for
	// reclamation at the next advance.
	pinned map[Object]struct{}
)

type applyObserver struct{ f func(changed []Object) }

func allocID() ID {
	id := nextID
	nextID++
	return id
}

// GlobalID returns the ID of the current global snapshot.
func GlobalID() ID {
	mu.Lock()
	defer mu.Unlock()
	return global.id
}

// Take returns a read-only snapshot of the current global state. readObs, if
// non-nil, is called for every object read through the snapshot.
func Take(readObs func(Object)) *Snapshot {
	mu.Lock()
	defer mu.Unlock()
	return &Snapshot{id: global.id, invalid: global.invalid, readObs: readObs}
}

// TakeMutable returns a mutable snapshot of the current global state.
func TakeMutable(readObs, writeObs func(Object)) *Mutable {
	mu.Lock()
	defer mu.Unlock()
	return takeMutableLocked(nil, readObs, writeObs)
}

// TakeNested returns a mutable snapshot nested under m. It sees m's
// uncommitted writes and applies into m rather than into the global
// snapshot.
func (m *Mutable) TakeNested(readObs, writeObs func(Object)) *Mutable {
	mu.Lock()
	defer mu.Unlock()
	return takeMutableLocked(m, readObs, writeObs)
}

func takeMutableLocked(parent *Mutable, readObs, writeObs func(Object)) *Mutable {
	id := allocID()
	// Invalid set: everything not yet committed, except the snapshot's own
	// ancestors, whose uncommitted writes it must see.
	invalid := global.invalid.Or(open)
	for p := parent; p != nil; p = p.parent {
		invalid = invalid.Clear(p.id)
	}
	open = open.Set(id)
	return &Mutable{
		Snapshot: Snapshot{id: id, invalid: invalid, readObs: readObs},
		writeObs: writeObs,
		parent:   parent,
		modified: make(map[Object]*record),
	}
}

// ID returns the snapshot's ID.
func (s *Snapshot) ID() ID { return s.id }

// Modified returns the objects the snapshot has written, in no particular
// order. It remains valid after Apply or Dispose.
func (m *Mutable) Modified() []Object {
	objs := make([]Object, 0, len(m.modified))
	for obj := range m.modified {
		objs = append(objs, obj)
	}
	return objs
}

// Dispose abandons the snapshot. Disposing an unapplied mutable snapshot
// kills its records. Dispose is idempotent.
func (s *Snapshot) Dispose() {
	if s.disposed {
		return
	}
	s.disposed = true
}

// Dispose abandons the snapshot and any writes it holds.
func (m *Mutable) Dispose() {
	if m.disposed {
		return
	}
	m.disposed = true
	mu.Lock()
	defer mu.Unlock()
	if !m.applied {
		for _, rec := range m.modified {
			rec.dead = true
		}
		open = open.Clear(m.id)
	}
}

// Apply atomically publishes the snapshot's writes to its parent: the global
// snapshot, or the enclosing mutable snapshot for nested ones. Apply on a
// disposed or already-applied snapshot returns Disposed; a write conflict
// with no merge returns Conflict and kills the snapshot.
func (m *Mutable) Apply() ApplyResult {
	mu.Lock()
	if m.applied || m.disposed {
		mu.Unlock()
		return Disposed
	}
	if m.parent != nil {
		res := m.applyNestedLocked()
		mu.Unlock()
		return res
	}
	changed, res := m.applyGlobalLocked()
	mu.Unlock()
	if res == Applied && len(changed) > 0 {
		notifyApplied(changed)
	}
	return res
}

func (m *Mutable) applyGlobalLocked() ([]Object, ApplyResult) {
	// Validate everything before committing anything.
	type commit struct {
		obj Object
		rec *record
		val any
	}
	commits := make([]commit, 0, len(m.modified))
	for obj, rec := range m.modified {
		base := m.baseRecord(obj)
		current := readable(obj.firstRecord(), global.id, global.invalid)
		if current == base {
			commits = append(commits, commit{obj, rec, rec.val})
			continue
		}
		var baseVal, curVal any
		if base != nil {
			baseVal = base.val
		}
		if current != nil {
			curVal = current.val
		}
		merged, ok := obj.mergeRecords(baseVal, curVal, rec.val)
		if !ok {
			m.killLocked()
			return nil, Conflict
		}
		commits = append(commits, commit{obj, rec, merged})
	}
	changed := make([]Object, 0, len(commits))
	for _, c := range commits {
		c.rec.val = c.val
		changed = append(changed, c.obj)
	}
	m.applied = true
	open = open.Clear(m.id)
	advanceLocked()
	return changed, Applied
}

func (m *Mutable) applyNestedLocked() ApplyResult {
	p := m.parent
	if p.applied || p.disposed {
		m.killLocked()
		return Disposed
	}
	// Conflicts with the parent are detected by key: both snapshots wrote
	// the same object.
	type commit struct {
		obj Object
		rec *record
		val any
	}
	commits := make([]commit, 0, len(m.modified))
	for obj, rec := range m.modified {
		if prev, both := p.modified[obj]; both {
			base := m.baseRecord(obj)
			var baseVal any
			if base != nil {
				baseVal = base.val
			}
			merged, ok := obj.mergeRecords(baseVal, prev.val, rec.val)
			if !ok {
				m.killLocked()
				return Conflict
			}
			commits = append(commits, commit{obj, rec, merged})
			continue
		}
		commits = append(commits, commit{obj, rec, rec.val})
	}
	for _, c := range commits {
		if prev, both := p.modified[c.obj]; both {
			prev.val = c.val
			c.rec.dead = true
		} else {
			// Restamp the record so the parent (and its own nested
			// children) can read it.
			c.rec.id = p.id
			p.modified[c.obj] = c.rec
		}
	}
	m.applied = true
	open = open.Clear(m.id)
	return Applied
}

// baseRecord returns the record that was readable when the snapshot was
// taken, ignoring the snapshot's own write.
func (m *Mutable) baseRecord(obj Object) *record {
	return readable(obj.firstRecord(), m.id, m.invalid.Set(m.id))
}

func (m *Mutable) killLocked() {
	for _, rec := range m.modified {
		rec.dead = true
	}
	m.disposed = true
	open = open.Clear(m.id)
}

// Advance advances the global snapshot, making any applied writes visible to
// snapshots taken afterwards and reclaiming unreachable records. The runtime
// calls this at frame boundaries; [Mutable.Apply] advances implicitly.
func Advance() {
	mu.Lock()
	defer mu.Unlock()
	advanceLocked()
}

func advanceLocked() {
	global = &Snapshot{id: allocID(), invalid: open}
	reclaimLocked()
}

// reclaimLocked drops records no reader can observe. Only run on global
// advance: pending sibling applies compare record pointers against the live
// list, and pruning between their take and apply must not drop records they
// can still see.
func reclaimLocked() {
	if len(pinned) == 0 {
		return
	}
	keep := global.id
	if lowest := open.Lowest(0); lowest != 0 {
		keep = lowest - 1
	}
	for obj := range pinned {
		head, n := prune(obj.firstRecord(), keep)
		obj.setFirstRecord(head)
		if n <= 1 {
			delete(pinned, obj)
		}
	}
}

func pinLocked(obj Object) {
	if pinned == nil {
		pinned = make(map[Object]struct{})
	}
	pinned[obj] = struct{}{}
}

// ObserveApplied registers f to be called after every successful global
// apply with the objects that changed. The returned function unregisters.
func ObserveApplied(f func(changed []Object)) (remove func()) {
	obs := &applyObserver{f}
	mu.Lock()
	applyObs = append(applyObs, obs)
	mu.Unlock()
	return func() {
		mu.Lock()
		defer mu.Unlock()
		for i, o := range applyObs {
			if o == obs {
				applyObs = append(applyObs[:i], applyObs[i+1:]...)
				return
			}
		}
	}
}

func notifyApplied(changed []Object) {
	mu.Lock()
	obs := make([]*applyObserver, len(applyObs))
	copy(obs, applyObs)
	mu.Unlock()
	for _, o := range obs {
		o.f(changed)
	}
}
