/*
 * Copyright 2022 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package circuit

import (
	"fmt"
)

// GateId is the stable identity of a gate inside its circuit.
type GateId uint32

// Meta describes the operation and input shape of a single gate.
type Meta struct {
	Op     Opcode
	State  int
	Depend int
	Value  int
	Root   bool
	Static uint64
}

// NewMeta creates a Meta for op with the given variable input counts; the
// fixed groups are taken from the opcode contract.
func NewMeta(op Opcode, static uint64, counts ...int) Meta {
	st, dp, vv, rt := op.Contract()
	ret := Meta{Op: op, State: st, Depend: dp, Value: vv, Root: rt, Static: static}
	ptr := []*int{&ret.State, &ret.Depend, &ret.Value}

	/* fill variadic groups in order */
	for _, p := range ptr {
		if *p == Variadic {
			if len(counts) == 0 {
				panic("circuit: missing input count for variadic opcode " + op.String())
			}
			*p, counts = counts[0], counts[1:]
		}
	}

	/* extra counts are programmer errors */
	if len(counts) != 0 {
		panic("circuit: too many input counts for opcode " + op.String())
	}
	return ret
}

// NumIns is the total number of input slots.
func (self Meta) NumIns() int {
	if self.Root {
		return self.State + self.Depend + self.Value + 1
	} else {
		return self.State + self.Depend + self.Value
	}
}

// EdgeKind returns the kind of the i-th input slot.
func (self Meta) EdgeKind(i int) EdgeKind {
	switch {
	case i < 0 || i >= self.NumIns():
		panic(fmt.Sprintf("circuit: input index %d out of range for %s", i, self.Op))
	case i < self.State:
		return StateEdge
	case i < self.State+self.Depend:
		return DependEdge
	case i < self.State+self.Depend+self.Value:
		return ValueEdge
	default:
		return RootEdge
	}
}

func (self *Meta) grow() EdgeKind {
	switch {
	case self.Root:
		panic("circuit: cannot grow a gate with a root input")
	case self.Value > 0:
		self.Value++
		return ValueEdge
	case self.Depend > 0:
		self.Depend++
		return DependEdge
	default:
		self.State++
		return StateEdge
	}
}

func (self *Meta) shrink(kind EdgeKind) {
	switch kind {
	case StateEdge:
		self.State--
	case DependEdge:
		self.Depend--
	case ValueEdge:
		self.Value--
	default:
		panic("circuit: cannot remove a root input")
	}
}

// Edge is an input slot of a gate. Every slot that refers to a real gate is
// also linked into that gate's use list.
type Edge struct {
	user  *Gate
	def   *Gate
	index int
	prev  *Edge
	next  *Edge
}

// User is the gate owning this input slot.
func (self *Edge) User() *Gate { return self.user }

// Index is the position of this slot among the user's inputs.
func (self *Edge) Index() int { return self.index }

// Def is the gate referenced by this slot.
func (self *Edge) Def() *Gate { return self.def }

// Kind is the edge kind of the slot.
func (self *Edge) Kind() EdgeKind { return self.user.meta.EdgeKind(self.index) }

// Gate is a single node of a circuit.
type Gate struct {
	Id   GateId
	meta Meta
	mt   MachineType
	gt   GateType
	ins  []*Edge
	uses *Edge
	nuse int
	gone bool
}

// Unset is the placeholder input of a gate under two-phase construction. It
// is never linked into any use list and never belongs to a circuit.
var Unset = &Gate{Id: ^GateId(0), meta: Meta{Op: OP_unset}}

func (self *Gate) Op() Opcode               { return self.meta.Op }
func (self *Gate) Meta() Meta               { return self.meta }
func (self *Gate) Static() uint64           { return self.meta.Static }
func (self *Gate) MachineType() MachineType { return self.mt }
func (self *Gate) GateType() GateType       { return self.gt }
func (self *Gate) SetGateType(gt GateType)  { self.gt = gt }
func (self *Gate) NumIns() int              { return len(self.ins) }
func (self *Gate) NumUses() int             { return self.nuse }
func (self *Gate) In(i int) *Gate           { return self.ins[i].def }
func (self *Gate) InEdge(i int) *Edge       { return self.ins[i] }
func (self *Gate) IsState() bool            { return self.meta.Op.IsState() }
func (self *Gate) IsFixed() bool            { return self.meta.Op.IsFixed() }
func (self *Gate) IsSelector() bool         { return self.meta.Op.IsSelector() }
func (self *Gate) HasValue() bool           { return self.mt != NoValue }

// IsFloating reports gates that are neither control nor pinned to control.
func (self *Gate) IsFloating() bool {
	return !self.meta.Op.IsState() && !self.meta.Op.IsFixed() && !self.meta.Op.IsRoot() && !self.meta.Op.IsTerminal()
}

// HasDepend reports gates that produce a dependency token.
func (self *Gate) HasDepend() bool {
	return self.meta.Op.IsDepend()
}

// Ins returns a snapshot of the input gates.
func (self *Gate) Ins() []*Gate {
	ret := make([]*Gate, len(self.ins))
	for i, e := range self.ins {
		ret[i] = e.def
	}
	return ret
}

// HasUnset reports whether any input still refers to Unset.
func (self *Gate) HasUnset() bool {
	for _, e := range self.ins {
		if e.def == Unset {
			return true
		}
	}
	return false
}

// ReplaceIn points the i-th input to g, keeping both use lists in sync.
func (self *Gate) ReplaceIn(i int, g *Gate) {
	e := self.ins[i]
	if e.def == g {
		return
	}
	e.unlink()
	e.def = g
	e.link()
}

// AppendIn adds one input to a variadic gate. The new slot belongs to the
// last non-empty input group.
func (self *Gate) AppendIn(g *Gate) {
	if !self.meta.Op.IsVariadic() {
		panic("circuit: cannot append input to " + self.meta.Op.String())
	}
	self.meta.grow()
	e := &Edge{user: self, def: g, index: len(self.ins)}
	self.ins = append(self.ins, e)
	e.link()
}

// RemoveIn drops the i-th input of a variadic gate and shifts the rest.
func (self *Gate) RemoveIn(i int) {
	if !self.meta.Op.IsVariadic() {
		panic("circuit: cannot remove input from " + self.meta.Op.String())
	}
	kind := self.meta.EdgeKind(i)
	self.ins[i].unlink()
	copy(self.ins[i:], self.ins[i+1:])
	self.ins = self.ins[:len(self.ins)-1]
	self.meta.shrink(kind)

	/* renumber the shifted slots */
	for j := i; j < len(self.ins); j++ {
		self.ins[j].index = j
	}
}

// Uses returns a lazy iterator over the use list. The iterator captures the
// next edge before yielding the current one, so the yielded edge may be
// removed or redirected by the caller.
func (self *Gate) Uses() *UseIterator {
	return &UseIterator{next: self.uses}
}

// Users returns a snapshot of the gates using self, one entry per edge.
func (self *Gate) Users() []*Gate {
	ret := make([]*Gate, 0, self.nuse)
	for e := self.uses; e != nil; e = e.next {
		ret = append(ret, e.user)
	}
	return ret
}

func (self *Gate) String() string {
	if self == Unset {
		return "<unset>"
	} else {
		return fmt.Sprintf("%%%d(%s)", self.Id, self.meta.Op)
	}
}

func (self *Edge) link() {
	if d := self.def; d != nil && d != Unset {
		self.prev = nil
		self.next = d.uses
		if d.uses != nil {
			d.uses.prev = self
		}
		d.uses = self
		d.nuse++
	}
}

func (self *Edge) unlink() {
	d := self.def
	if d == nil || d == Unset {
		return
	}
	if self.prev != nil {
		self.prev.next = self.next
	} else {
		d.uses = self.next
	}
	if self.next != nil {
		self.next.prev = self.prev
	}
	self.prev = nil
	self.next = nil
	d.nuse--
}

// UseIterator walks the use list of a gate.
type UseIterator struct {
	cur  *Edge
	next *Edge
}

// Next advances the iterator, returning false at the end of the list.
func (self *UseIterator) Next() bool {
	if self.cur = self.next; self.cur == nil {
		return false
	} else {
		self.next = self.cur.next
		return true
	}
}

func (self *UseIterator) Edge() *Edge    { return self.cur }
func (self *UseIterator) User() *Gate    { return self.cur.user }
func (self *UseIterator) Index() int     { return self.cur.index }
func (self *UseIterator) Kind() EdgeKind { return self.cur.Kind() }
