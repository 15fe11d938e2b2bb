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
	"tlog.app/go/tlog"

	"github.com/cloudwego/gatec/internal/circuit"
	"github.com/cloudwego/gatec/internal/opts"
	"github.com/cloudwego/gatec/internal/stats"
)

// LoopPeeling moves the first iteration of every loop in front of it.
type LoopPeeling struct {
	Options opts.Options
}

func (self LoopPeeling) Apply(c *circuit.Circuit) {
	var hdrs []*circuit.Gate
	c.ForEach(func(g *circuit.Gate) {
		if g.Op() == circuit.OP_loop_begin {
			hdrs = append(hdrs, g)
		}
	})

	/* descriptors are recomputed after each peel, since a peel grows the
	 * bodies of the loops enclosing it */
	for _, h := range hdrs {
		loop := FindLoop(h)
		if !self.Options.CanPeel(loop.Size()) {
			tlog.V("peel").Printw("loop too large to peel", "header", h.Id, "size", loop.Size())
			continue
		}
		Peel(c, loop)
		stats.Add(&stats.LoopsPeeled, 1)
		tlog.V("peel").Printw("peeled loop", "header", h.Id, "size", loop.Size(), "backs", len(loop.Backs), "exits", len(loop.Exits))
	}
}

type _Peeler struct {
	c    *circuit.Circuit
	b    *circuit.Builder
	loop *Loop
	sels []*circuit.Gate
	copy map[*circuit.Gate]*circuit.Gate
}

// Peel copies the first iteration of loop in front of the loop header. The
// copy falls through into the loop through its back edges, and leaves the
// loop through merges joined with the original exits.
func Peel(c *circuit.Circuit, loop *Loop) {
	p := &_Peeler{
		c:    c,
		b:    circuit.NewBuilder(c),
		loop: loop,
		sels: loop.Selectors(),
		copy: make(map[*circuit.Gate]*circuit.Gate, len(loop.Body)+1),
	}
	p.clone()
	p.exits()
	p.header()
}

func (self *_Peeler) of(g *circuit.Gate) *circuit.Gate {
	if v, ok := self.copy[g]; ok {
		return v
	} else {
		return g
	}
}

func (self *_Peeler) clone() {
	var gates []*circuit.Gate
	var copies []*circuit.Gate
	hdr := self.loop.Header

	/* the first iteration enters the header from its forward edge */
	self.copy[hdr] = circuit.StateIn(hdr, 0)
	for _, s := range self.sels {
		self.copy[s] = s.In(1)
	}

	/* Phase 1: allocate every copy with its inputs unset */
	for _, g := range self.loop.Body {
		if _, ok := self.copy[g]; !ok {
			v := self.c.NewGateUnset(g.Meta(), g.MachineType(), g.GateType())
			self.copy[g] = v
			gates = append(gates, g)
			copies = append(copies, v)
		}
	}

	/* Phase 2: link the copies through the copy map */
	for _, g := range gates {
		v := self.copy[g]
		for i, in := range g.Ins() {
			v.ReplaceIn(i, self.of(in))
		}
	}

	/* every copy must be fully linked now */
	self.c.CheckLinked(copies)
}

// exits joins every original exit with the matching exit of the copy.
func (self *_Peeler) exits() {
	for _, x := range self.loop.Exits {
		var vals []*circuit.Gate
		var deps []*circuit.Gate
		var rest []*circuit.Edge

		/* classify the users before adding any new one */
		for it := x.Uses(); it.Next(); {
			switch u := it.User(); u.Op() {
			case circuit.OP_loop_exit_value:
				vals = append(vals, u)
			case circuit.OP_loop_exit_depend:
				deps = append(deps, u)
			default:
				rest = append(rest, it.Edge())
			}
		}

		/* the copy leaves from the copy of the exiting control */
		m := self.b.Merge(x, self.of(circuit.StateIn(x, 0)))
		for _, e := range rest {
			e.User().ReplaceIn(e.Index(), m)
		}

		/* values and dependencies crossing the exit */
		for _, v := range vals {
			sel := self.b.ValueSelector(v.MachineType(), v.GateType(), m, v, self.of(circuit.ValueIn(v, 0)))
			self.c.ReplaceAllUses(v, sel)
		}
		for _, d := range deps {
			sel := self.b.DependSelector(m, d, self.of(circuit.DependIn(d, 0)))
			self.c.ReplaceAllUses(d, sel)
		}
	}
}

// header makes the copy the new forward entry of the loop.
func (self *_Peeler) header() {
	hdr := self.loop.Header
	backs := self.loop.Backs

	/* a single back edge enters the loop directly */
	if len(backs) == 1 {
		hdr.ReplaceIn(0, self.of(circuit.StateIn(backs[0], 0)))
		for _, s := range self.sels {
			s.ReplaceIn(1, self.of(s.In(2)))
		}
		return
	}

	/* several back edges are merged first */
	ins := make([]*circuit.Gate, len(backs))
	for i, b := range backs {
		ins[i] = self.of(circuit.StateIn(b, 0))
	}

	/* every header selector gets a matching selector on the merge */
	m := self.b.Merge(ins...)
	for _, s := range self.sels {
		vals := make([]*circuit.Gate, len(backs))
		for i := range backs {
			vals[i] = self.of(s.In(2 + i))
		}
		if s.Op() == circuit.OP_value_selector {
			s.ReplaceIn(1, self.b.ValueSelector(s.MachineType(), s.GateType(), m, vals...))
		} else {
			s.ReplaceIn(1, self.b.DependSelector(m, vals...))
		}
	}
	hdr.ReplaceIn(0, m)
}
