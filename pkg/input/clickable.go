package input

import "github.com/weftui/weft/pkg/modifier"

// Clickable makes its layout node respond to pointer presses. OnClick
// fires on a pointer up that follows a down inside the node.
type Clickable struct {
	OnClick func()
}

func (c Clickable) Create() modifier.Node { return &clickNode{onClick: c.OnClick} }

func (c Clickable) Update(n modifier.Node) { n.(*clickNode).onClick = c.OnClick }

// Callbacks have no useful equality; the node is always updated in place.
func (c Clickable) Equal(modifier.Element) bool { return false }

func (c Clickable) Caps() modifier.Caps { return modifier.CapPointerInput }

type clickNode struct {
	modifier.Base
	onClick func()
	pressed bool
}

func (n *clickNode) HandlePointer(ev PointerEvent) bool {
	switch ev.Kind {
	case PointerDown:
		n.pressed = true
		return true
	case PointerUp:
		if !n.pressed {
			return false
		}
		n.pressed = false
		if n.onClick != nil {
			n.onClick()
		}
		return true
	case PointerCancel:
		n.pressed = false
	}
	return false
}

func (n *clickNode) OnReset() { n.pressed = false }
