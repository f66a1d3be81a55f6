// Package input delivers pointer and key events into the layout tree.
// Events arrive as UI tasks; dispatch hit-tests the laid-out nodes and
// walks their pointer-capable modifier nodes topmost first.
package input

import (
	"github.com/weftui/weft/pkg/layout"
	"github.com/weftui/weft/pkg/modifier"
)

// PointerKind classifies a pointer event.
type PointerKind uint8

const (
	PointerDown PointerKind = iota
	PointerMove
	PointerUp
	PointerCancel
)

func (k PointerKind) String() string {
	switch k {
	case PointerDown:
		return "down"
	case PointerMove:
		return "move"
	case PointerUp:
		return "up"
	case PointerCancel:
		return "cancel"
	}
	return "unknown"
}

// PointerEvent is a pointer event in logical units, relative to the root
// layout node.
type PointerEvent struct {
	X, Y float64
	Kind PointerKind
}

// KeyEvent is a key press. Rune is the printable character, or one of the
// function-key runes below.
type KeyEvent struct {
	Rune  rune
	Ctrl  bool
	Alt   bool
	Shift bool
}

// Function-key runes, outside the Unicode range.
const (
	KeyEnter rune = -(iota + 1)
	KeyBackspace
	KeyTab
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
)

// PointerHandler is implemented by modifier nodes that consume pointer
// events. Returning true stops propagation.
type PointerHandler interface {
	HandlePointer(ev PointerEvent) bool
}

// KeyHandler is implemented by modifier nodes that consume key events.
type KeyHandler interface {
	HandleKey(ev KeyEvent) bool
}

// DispatchPointer delivers ev to the deepest layout node containing the
// point, walking its modifier chain's pointer-capable nodes topmost first,
// then bubbling to ancestors until a handler consumes the event. It
// reports whether anyone did.
func DispatchPointer(root *layout.Node, ev PointerEvent) bool {
	path := hitPath(nil, root, ev.X, ev.Y)
	for i := len(path) - 1; i >= 0; i-- {
		consumed := false
		path[i].Chain().ForEachReversed(modifier.CapPointerInput, func(n modifier.Node) bool {
			h, ok := n.(PointerHandler)
			if ok && h.HandlePointer(ev) {
				consumed = true
				return false
			}
			return true
		})
		if consumed {
			return true
		}
	}
	return false
}

// DispatchKey delivers ev to focus-capable then any key-handling modifier
// nodes, deepest node first.
func DispatchKey(root *layout.Node, ev KeyEvent) bool {
	return dispatchKey(root, ev)
}

func dispatchKey(n *layout.Node, ev KeyEvent) bool {
	for i := len(n.Children) - 1; i >= 0; i-- {
		if dispatchKey(n.Children[i], ev) {
			return true
		}
	}
	consumed := false
	n.Chain().ForEachReversed(modifier.CapFocus|modifier.CapPointerInput, func(mn modifier.Node) bool {
		h, ok := mn.(KeyHandler)
		if ok && h.HandleKey(ev) {
			consumed = true
			return false
		}
		return true
	})
	return consumed
}

// hitPath appends the chain of nodes containing the point, outermost
// first. Coordinates are relative to n's parent.
func hitPath(path []*layout.Node, n *layout.Node, x, y float64) []*layout.Node {
	pos, size := n.Pos(), n.Size()
	x -= pos.X
	y -= pos.Y
	if x < 0 || y < 0 || x >= size.W || y >= size.H {
		return path
	}
	path = append(path, n)
	// Later children paint on top, so they win ties.
	for i := len(n.Children) - 1; i >= 0; i-- {
		if sub := hitPath(path, n.Children[i], x, y); len(sub) > len(path) {
			return sub
		}
	}
	return path
}
