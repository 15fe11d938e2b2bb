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
package opt

import (
	"fmt"
	"sort"

	"github.com/oleiade/lane"

	"github.com/cloudwego/gatec/internal/circuit"
)

// Loop describes one natural loop of a circuit.
//
// Body holds every gate executed inside the loop other than the header, the
// back edges and the exits: control gates, gates pinned to them, and the
// floating gates computed from them. Header selectors are part of Body.
type Loop struct {
	Header *circuit.Gate
	Body   []*circuit.Gate
	Backs  []*circuit.Gate
	Exits  []*circuit.Gate
}

func (self *Loop) String() string {
	return fmt.Sprintf("loop %s: %d gates, %d back edges, %d exits", self.Header, len(self.Body), len(self.Backs), len(self.Exits))
}

// Size is the number of gates a peel of this loop would copy.
func (self *Loop) Size() int {
	return len(self.Body)
}

// Selectors returns the selectors pinned on the loop header.
func (self *Loop) Selectors() []*circuit.Gate {
	var ret []*circuit.Gate
	for it := self.Header.Uses(); it.Next(); {
		if u := it.User(); u.IsSelector() && it.Kind() == circuit.StateEdge {
			ret = append(ret, u)
		}
	}
	sortGates(ret)
	return ret
}

func sortGates(v []*circuit.Gate) {
	sort.Slice(v, func(i int, j int) bool { return v[i].Id < v[j].Id })
}

type _GateSet map[*circuit.Gate]struct{}

func (self _GateSet) add(g *circuit.Gate) bool {
	if _, ok := self[g]; ok {
		return false
	} else {
		self[g] = struct{}{}
		return true
	}
}

func (self _GateSet) has(g *circuit.Gate) bool {
	_, ok := self[g]
	return ok
}

func (self _GateSet) slice() []*circuit.Gate {
	ret := make([]*circuit.Gate, 0, len(self))
	for g := range self {
		ret = append(ret, g)
	}
	sortGates(ret)
	return ret
}

// FindLoops computes a descriptor for every LOOP_BEGIN of c, inner loops
// first.
func FindLoops(c *circuit.Circuit) []*Loop {
	var ret []*Loop
	c.ForEach(func(g *circuit.Gate) {
		if g.Op() == circuit.OP_loop_begin {
			ret = append(ret, FindLoop(g))
		}
	})

	/* inner loops are strictly smaller than the loops enclosing them */
	sort.SliceStable(ret, func(i int, j int) bool { return len(ret[i].Body) < len(ret[j].Body) })
	return ret
}

// FindLoop computes the descriptor of the loop headed by hdr.
func FindLoop(hdr *circuit.Gate) *Loop {
	if hdr.Op() != circuit.OP_loop_begin {
		panic("opt: not a loop header: " + hdr.String())
	}

	st := lane.NewStack()
	body := make(_GateSet)
	loop := &Loop{Header: hdr}

	/* Phase 1: walk the control backwards from every back edge */
	for i := 1; i < circuit.NumStateIn(hdr); i++ {
		back := circuit.StateIn(hdr, i)
		loop.Backs = append(loop.Backs, back)
		st.Push(back)
	}
	for !st.Empty() {
		g := st.Pop().(*circuit.Gate)
		for i := 0; i < circuit.NumStateIn(g); i++ {
			if p := circuit.StateIn(g, i); p != hdr && body.add(p) {
				st.Push(p)
			}
		}
	}

	/* Phase 2: add the control paths that never return to the header */
	exits := make(_GateSet)
	st.Push(hdr)
	for g := range body {
		st.Push(g)
	}
	for !st.Empty() {
		g := st.Pop().(*circuit.Gate)
		for it := g.Uses(); it.Next(); {
			u := it.User()
			if it.Kind() != circuit.StateEdge || u.IsFixed() || u == hdr || isBack(loop, u) {
				continue
			}
			if u.Op() == circuit.OP_loop_exit && !body.has(u) {
				exits.add(u)
			} else if body.add(u) {
				st.Push(u)
			}
		}
	}

	/* Phase 3: gates pinned to the loop control, header selectors included */
	ctrl := body.slice()
	for _, g := range append(ctrl, hdr) {
		for it := g.Uses(); it.Next(); {
			if u := it.User(); u.IsFixed() && it.Kind() == circuit.StateEdge {
				body.add(u)
			}
		}
	}

	/* Phase 4: floating values computed inside the loop */
	for g := range body {
		st.Push(g)
	}
	for !st.Empty() {
		g := st.Pop().(*circuit.Gate)
		for it := g.Uses(); it.Next(); {
			if u := it.User(); u.IsFloating() && body.add(u) {
				st.Push(u)
			}
		}
	}

	loop.Body = body.slice()
	loop.Exits = exits.slice()
	return loop
}

func isBack(loop *Loop, g *circuit.Gate) bool {
	for _, b := range loop.Backs {
		if b == g {
			return true
		}
	}
	return false
}
