// Package applier defines the contract between the composition core and the
// node-backing store, plus a retained reference tree used by layout, the
// demo renderer, and tests.
//
// Commands are recorded into a Queue during composition and flushed to an
// Applier between recomposition and layout, so a failed frame never leaves
// the tree half-mutated.
package applier

import (
	"fmt"

	"github.com/weftui/weft/pkg/slots"
)

// NodeID identifies a node. The composition layer records these in node
// slots; the applier owns the payloads.
type NodeID = slots.NodeID

// Applier is the node-backing store driven by the runtime.
type Applier interface {
	Insert(parent NodeID, index int, node NodeID)
	Remove(parent NodeID, index, count int)
	Move(parent NodeID, from, to, count int)
	Clear(parent NodeID)
	SetAttr(node NodeID, attr string, value any)
}

// Op enumerates queued command kinds.
type Op uint8

const (
	OpInsert Op = iota
	OpRemove
	OpMove
	OpClear
	OpSetAttr
)

// Command is one queued tree mutation.
type Command struct {
	Op     Op
	Parent NodeID
	Node   NodeID
	Index  int
	To     int
	Count  int
	Attr   string
	Value  any
}

func (c Command) String() string {
	switch c.Op {
	case OpInsert:
		return fmt.Sprintf("insert(%d, %d, %d)", c.Parent, c.Index, c.Node)
	case OpRemove:
		return fmt.Sprintf("remove(%d, %d, %d)", c.Parent, c.Index, c.Count)
	case OpMove:
		return fmt.Sprintf("move(%d, %d, %d, %d)", c.Parent, c.Index, c.To, c.Count)
	case OpClear:
		return fmt.Sprintf("clear(%d)", c.Parent)
	case OpSetAttr:
		return fmt.Sprintf("setattr(%d, %s, %v)", c.Node, c.Attr, c.Value)
	}
	return "unknown"
}

// Queue records commands during composition. It implements Applier so the
// composition layer can stay oblivious to the queueing.
type Queue struct {
	cmds []Command
}

func (q *Queue) Insert(parent NodeID, index int, node NodeID) {
	q.cmds = append(q.cmds, Command{Op: OpInsert, Parent: parent, Index: index, Node: node})
}

func (q *Queue) Remove(parent NodeID, index, count int) {
	q.cmds = append(q.cmds, Command{Op: OpRemove, Parent: parent, Index: index, Count: count})
}

func (q *Queue) Move(parent NodeID, from, to, count int) {
	q.cmds = append(q.cmds, Command{Op: OpMove, Parent: parent, Index: from, To: to, Count: count})
}

func (q *Queue) Clear(parent NodeID) {
	q.cmds = append(q.cmds, Command{Op: OpClear, Parent: parent})
}

func (q *Queue) SetAttr(node NodeID, attr string, value any) {
	q.cmds = append(q.cmds, Command{Op: OpSetAttr, Node: node, Attr: attr, Value: value})
}

// Len returns the number of pending commands.
func (q *Queue) Len() int { return len(q.cmds) }

// Pending returns the queued commands without consuming them.
func (q *Queue) Pending() []Command { return q.cmds }

// Flush replays the queued commands into a and empties the queue.
func (q *Queue) Flush(a Applier) {
	for _, c := range q.cmds {
		switch c.Op {
		case OpInsert:
			a.Insert(c.Parent, c.Index, c.Node)
		case OpRemove:
			a.Remove(c.Parent, c.Index, c.Count)
		case OpMove:
			a.Move(c.Parent, c.Index, c.To, c.Count)
		case OpClear:
			a.Clear(c.Parent)
		case OpSetAttr:
			a.SetAttr(c.Node, c.Attr, c.Value)
		}
	}
	q.cmds = q.cmds[:0]
}

// Drop discards queued commands without applying them, used when a frame
// fails mid-composition.
func (q *Queue) Drop() { q.cmds = q.cmds[:0] }
