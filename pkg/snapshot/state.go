package snapshot

// Object is a snapshot-aware state object. The composition layer identifies
// read dependencies by Object identity; the only implementation is [Value].
type Object interface {
	firstRecord() *record
	setFirstRecord(*record)
	// mergeRecords resolves a three-way apply conflict, returning the
	// merged value and whether a merge was possible.
	mergeRecords(base, current, applied any) (any, bool)
}

// Value is a state object holding a single value of type T. Reads and writes
// go through the current snapshot, so a Value must only be accessed on the
// UI thread (asserted via [SetAffinityCheck] in debug setups).
type Value[T any] struct {
	first  *record
	merger func(base, current, applied T) (T, bool)
}

// New returns a state object with the given initial value. When created
// inside a mutable snapshot, the object becomes visible to others only when
// that snapshot applies.
func New[T any](v T) *Value[T] { return NewWithMerger[T](v, nil) }

// NewWithMerger is like [New], but the object resolves apply conflicts with
// merger instead of failing the apply.
func NewWithMerger[T any](v T, merger func(base, current, applied T) (T, bool)) *Value[T] {
	obj := &Value[T]{merger: merger}
	if m := curMut; m != nil {
		rec := &record{id: m.id, val: v}
		obj.first = rec
		m.modified[obj] = rec
		return obj
	}
	mu.Lock()
	obj.first = &record{id: global.id, val: v}
	mu.Unlock()
	return obj
}

// Convenience constructors for common state types.

func NewInt(v int) *Value[int]           { return New(v) }
func NewFloat(v float64) *Value[float64] { return New(v) }
func NewString(v string) *Value[string]  { return New(v) }

// Get returns the value visible in the current snapshot and records the read
// with the active read observers.
func (v *Value[T]) Get() T {
	checkAffinity()
	s := currentReader()
	notifyRead(s, v)
	r := readable(v.first, s.id, s.invalid)
	if r == nil {
		// The object was created in a snapshot this reader cannot see
		// yet; fall back to the oldest live record.
		r = oldestLive(v.first)
	}
	if r == nil {
		var zero T
		return zero
	}
	return r.val.(T)
}

// Peek returns the value visible in the current snapshot without recording a
// read dependency.
func (v *Value[T]) Peek() T {
	checkAffinity()
	s := currentReader()
	r := readable(v.first, s.id, s.invalid)
	if r == nil {
		r = oldestLive(v.first)
	}
	if r == nil {
		var zero T
		return zero
	}
	return r.val.(T)
}

// Set writes the value. Inside a mutable snapshot the write stays isolated
// until the snapshot applies; outside one, the write goes through a one-shot
// mutable snapshot that applies immediately.
func (v *Value[T]) Set(x T) {
	checkAffinity()
	if m := curMut; m != nil {
		v.setIn(m, x)
		return
	}
	for {
		m := TakeMutable(nil, nil)
		m.Enter(func() { v.setIn(m, x) })
		if m.Apply() != Conflict {
			return
		}
	}
}

func (v *Value[T]) setIn(m *Mutable, x T) {
	if m.applied || m.disposed {
		panic("snapshot: write on an applied or disposed snapshot")
	}
	m.writableRecord(v).val = x
}

func (v *Value[T]) firstRecord() *record     { return v.first }
func (v *Value[T]) setFirstRecord(r *record) { v.first = r }

func (v *Value[T]) mergeRecords(base, current, applied any) (any, bool) {
	if v.merger == nil {
		return nil, false
	}
	var b, c T
	if base != nil {
		b = base.(T)
	}
	if current != nil {
		c = current.(T)
	}
	merged, ok := v.merger(b, c, applied.(T))
	return merged, ok
}

// writableRecord returns the record the snapshot writes for obj, creating it
// on the first write. The write observer fires once per snapshot per object.
func (m *Mutable) writableRecord(obj Object) *record {
	if rec, ok := m.modified[obj]; ok {
		return rec
	}
	mu.Lock()
	base := readable(obj.firstRecord(), m.id, m.invalid)
	rec := &record{id: m.id, next: obj.firstRecord()}
	if base != nil {
		rec.val = base.val
	}
	obj.setFirstRecord(rec)
	pinLocked(obj)
	mu.Unlock()
	m.modified[obj] = rec
	if m.writeObs != nil {
		m.writeObs(obj)
	}
	return rec
}

// The snapshot the running goroutine has entered. Composition is single
// threaded, so plain variables suffice; cross-thread access is a defect.
var (
	curSnap *Snapshot
	curMut  *Mutable
)

// Enter installs the snapshot as current for the duration of f.
func (s *Snapshot) Enter(f func()) {
	prevS, prevM := curSnap, curMut
	curSnap, curMut = s, nil
	defer func() { curSnap, curMut = prevS, prevM }()
	f()
}

// Enter installs the mutable snapshot as current for the duration of f;
// state writes inside f are buffered in the snapshot.
func (m *Mutable) Enter(f func()) {
	prevS, prevM := curSnap, curMut
	curSnap, curMut = &m.Snapshot, m
	defer func() { curSnap, curMut = prevS, prevM }()
	f()
}

// WithMutable runs f inside a fresh mutable snapshot and applies it,
// retrying on conflict.
func WithMutable(f func()) {
	for {
		m := TakeMutable(nil, nil)
		m.Enter(f)
		if m.Apply() != Conflict {
			return
		}
	}
}

func currentReader() *Snapshot {
	if curSnap != nil {
		return curSnap
	}
	mu.Lock()
	defer mu.Unlock()
	return global
}

// readObsStack holds read observers layered on top of the current snapshot's
// own observer, innermost last.
var readObsStack []func(Object)

// ObserveReads runs f with obs receiving every state object read.
func ObserveReads(obs func(Object), f func()) {
	readObsStack = append(readObsStack, obs)
	defer func() { readObsStack = readObsStack[:len(readObsStack)-1] }()
	f()
}

func notifyRead(s *Snapshot, obj Object) {
	if s.readObs != nil {
		s.readObs(obj)
	}
	for _, obs := range readObsStack {
		obs(obj)
	}
}

// affinityCheck, when set, is called on every state access; the runtime
// installs one that panics off the UI thread in debug builds.
var affinityCheck func()

// SetAffinityCheck installs f to be called on every state read and write.
func SetAffinityCheck(f func()) { affinityCheck = f }

func checkAffinity() {
	if affinityCheck != nil {
		affinityCheck()
	}
}
