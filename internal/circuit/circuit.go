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

type _ConstKey struct {
	mt   MachineType
	gt   GateType
	bits uint64
}

// Circuit owns every gate of one function under compilation.
type Circuit struct {
	Name    string
	gates   []*Gate
	live    int
	root    *Gate
	entry   *Gate
	depend  *Gate
	retlist *Gate
	arglist *Gate
	args    []*Gate
	dead    *Gate
	consts  map[_ConstKey]*Gate
}

// New creates an empty circuit with its skeleton gates. The first argument
// is always the thread handle ("glue"), followed by one argument per param.
func New(name string, params ...MachineType) *Circuit {
	c := &Circuit{
		Name:   name,
		consts: make(map[_ConstKey]*Gate),
	}

	/* skeleton gates */
	c.root = c.NewGate(NewMeta(OP_circuit_root, 0), NoValue, EmptyType)
	c.entry = c.NewGate(NewMeta(OP_state_entry, 0), NoValue, EmptyType, c.root)
	c.depend = c.NewGate(NewMeta(OP_depend_entry, 0), NoValue, EmptyType, c.root)
	c.retlist = c.NewGate(NewMeta(OP_return_list, 0), NoValue, EmptyType, c.root)
	c.arglist = c.NewGate(NewMeta(OP_arg_list, 0), NoValue, EmptyType, c.root)

	/* the glue argument always comes first */
	c.args = append(c.args, c.NewGate(NewMeta(OP_arg, 0), ArchWord, NJSValueType, c.arglist))
	for i, mt := range params {
		c.args = append(c.args, c.NewGate(NewMeta(OP_arg, uint64(i+1)), mt, AnyType, c.arglist))
	}
	return c
}

func (self *Circuit) Root() *Gate        { return self.root }
func (self *Circuit) StateEntry() *Gate  { return self.entry }
func (self *Circuit) DependEntry() *Gate { return self.depend }
func (self *Circuit) ReturnList() *Gate  { return self.retlist }
func (self *Circuit) ArgList() *Gate     { return self.arglist }
func (self *Circuit) Glue() *Gate        { return self.args[0] }
func (self *Circuit) NumParams() int     { return len(self.args) - 1 }
func (self *Circuit) Param(i int) *Gate  { return self.args[i+1] }

// Len is the number of live gates.
func (self *Circuit) Len() int {
	return self.live
}

// NewGate creates a gate and links all of its inputs. Inputs may be Unset,
// in which case the slot stays unlinked until replaced.
func (self *Circuit) NewGate(meta Meta, mt MachineType, gt GateType, ins ...*Gate) *Gate {
	if len(ins) != meta.NumIns() {
		panic(fmt.Sprintf("circuit: %s expects %d inputs, got %d", meta.Op, meta.NumIns(), len(ins)))
	}
	g := &Gate{
		Id:   GateId(len(self.gates)),
		meta: meta,
		mt:   mt,
		gt:   gt,
		ins:  make([]*Edge, len(ins)),
	}
	for i, v := range ins {
		if v == nil {
			panic(fmt.Sprintf("circuit: nil input %d for %s", i, meta.Op))
		}
		g.ins[i] = &Edge{user: g, def: v, index: i}
		g.ins[i].link()
	}
	self.gates = append(self.gates, g)
	self.live++
	return g
}

// NewGateUnset creates a gate whose inputs are all Unset.
func (self *Circuit) NewGateUnset(meta Meta, mt MachineType, gt GateType) *Gate {
	ins := make([]*Gate, meta.NumIns())
	for i := range ins {
		ins[i] = Unset
	}
	return self.NewGate(meta, mt, gt, ins...)
}

// CheckLinked panics if any of the gates still has an Unset input.
func (self *Circuit) CheckLinked(gates []*Gate) {
	for _, g := range gates {
		if g.HasUnset() {
			panic(fmt.Sprintf("circuit: gate %s has unset inputs after construction", g))
		}
	}
}

// Constant returns the unique constant gate with the given type and bits.
func (self *Circuit) Constant(mt MachineType, gt GateType, bits uint64) *Gate {
	key := _ConstKey{mt, gt, bits}
	if g, ok := self.consts[key]; ok && !g.gone {
		return g
	}
	g := self.NewGate(NewMeta(OP_constant, bits), mt, gt)
	self.consts[key] = g
	return g
}

// Dead returns the dead sentinel of this circuit, creating it on first use.
func (self *Circuit) Dead() *Gate {
	if self.dead == nil {
		self.dead = self.NewGate(NewMeta(OP_dead, 0), AnyValue, EmptyType)
	}
	return self.dead
}

// HasDead reports whether the dead sentinel exists.
func (self *Circuit) HasDead() bool {
	return self.dead != nil
}

// Lookup returns the live gate with the given id, or nil.
func (self *Circuit) Lookup(id GateId) *Gate {
	if int(id) >= len(self.gates) || self.gates[id] == nil {
		return nil
	} else {
		return self.gates[id]
	}
}

// Alive reports whether g is a live gate of this circuit.
func (self *Circuit) Alive(g *Gate) bool {
	return g != nil && !g.gone && int(g.Id) < len(self.gates) && self.gates[g.Id] == g
}

// Delete removes g from the circuit. Every input must be linked; users of g
// are left untouched, so the caller is responsible for redirecting them.
func (self *Circuit) Delete(g *Gate) {
	if g.gone {
		return
	}
	if g.HasUnset() {
		panic(fmt.Sprintf("circuit: deleting gate %s with unset inputs", g))
	}
	for _, e := range g.ins {
		e.unlink()
	}
	if g.meta.Op == OP_constant {
		delete(self.consts, _ConstKey{g.mt, g.gt, g.meta.Static})
	}
	if g == self.dead {
		self.dead = nil
	}
	g.gone = true
	self.gates[g.Id] = nil
	self.live--
}

// ReplaceAllUses redirects every use of old to new.
func (self *Circuit) ReplaceAllUses(old *Gate, new *Gate) {
	for it := old.Uses(); it.Next(); {
		if u := it.User(); u != new {
			u.ReplaceIn(it.Index(), new)
		}
	}
}

// Gates returns a snapshot of the live gates in id order.
func (self *Circuit) Gates() []*Gate {
	ret := make([]*Gate, 0, self.live)
	for _, g := range self.gates {
		if g != nil {
			ret = append(ret, g)
		}
	}
	return ret
}

// ForEach calls fn for every live gate in id order. Gates created by fn are
// not visited.
func (self *Circuit) ForEach(fn func(g *Gate)) {
	n := len(self.gates)
	for i := 0; i < n; i++ {
		if g := self.gates[i]; g != nil {
			fn(g)
		}
	}
}

// Returns lists the return gates of the circuit.
func (self *Circuit) Returns() []*Gate {
	return self.retlist.Users()
}

// IsSkeleton reports gates that always stay in the circuit.
func (self *Circuit) IsSkeleton(g *Gate) bool {
	switch g.meta.Op {
	case OP_circuit_root, OP_state_entry, OP_depend_entry, OP_return_list, OP_arg_list, OP_arg, OP_dead:
		return true
	default:
		return false
	}
}
