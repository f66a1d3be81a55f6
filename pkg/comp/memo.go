package comp

import (
	"reflect"

	"github.com/weftui/weft/pkg/slots"
	"github.com/weftui/weft/pkg/snapshot"
)

var scopeType = reflect.TypeOf((*Scope)(nil))

// Remember returns the value memoized in the value slot at the current
// position, calling init only when the slot is fresh or its type changed.
func Remember[T any](c *Composer, init func() T) T {
	_, v := c.table.AllocValueSlot(reflect.TypeOf((*T)(nil)).Elem(), func() any { return init() })
	return v.(T)
}

// State returns a remembered snapshot state object seeded with init. Reads
// through the returned value register the current scope as a dependent.
func State[T any](c *Composer, init T) *snapshot.Value[T] {
	return Remember(c, func() *snapshot.Value[T] { return snapshot.New(init) })
}

// StateWith is State with a lazily computed seed.
func StateWith[T any](c *Composer, init func() T) *snapshot.Value[T] {
	return Remember(c, func() *snapshot.Value[T] { return snapshot.New(init()) })
}

// Fn wraps a callback in a stable identity. The wrapper survives
// recomposition while the wrapped function is swapped in place, so a
// freshly captured closure with unchanged meaning compares equal as a
// skippable parameter.
type Fn struct {
	f func(any)
}

// Invoke calls the wrapped callback.
func (f *Fn) Invoke(arg any) {
	if f != nil && f.f != nil {
		f.f(arg)
	}
}

// Callback remembers a stable Fn wrapper and points it at f.
func Callback(c *Composer, f func(any)) *Fn {
	fn := Remember(c, func() *Fn { return &Fn{} })
	fn.f = f
	return fn
}

// Callback0 is Callback for argument-less handlers.
func Callback0(c *Composer, f func()) *Fn {
	return Callback(c, func(any) { f() })
}

// Memo composes body inside a skippable group and returns its result. A
// skipped pass returns the previously memoized result without running body.
func Memo[T any](c *Composer, key slots.Key, params []any, body func(*Composer) T) T {
	s := c.skippable(key, params, func(cc *Composer, s *Scope) { s.result = body(cc) })
	if s.result == nil {
		var zero T
		return zero
	}
	return s.result.(T)
}

func paramsEqual(a, b []any) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !valueEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

// valueEqual compares parameter values with ==, treating uncomparable
// values as unequal rather than panicking.
func valueEqual(a, b any) (eq bool) {
	defer func() {
		if recover() != nil {
			eq = false
		}
	}()
	return a == b
}
