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
	"github.com/oleiade/lane"
	"tlog.app/go/tlog"

	"github.com/cloudwego/gatec/internal/circuit"
	"github.com/cloudwego/gatec/internal/stats"
)

// UselessElim removes every gate that no reachable return and no reachable
// loop header depends on. Control hanging off the dead sentinel, such as an
// exception handler whose call can no longer throw, is not reachable.
type UselessElim struct{}

// reachable returns the control gates reachable from the state entry.
func reachable(c *circuit.Circuit) _GateSet {
	s := lane.NewStack()
	ret := make(_GateSet)

	/* depth-first over control successors */
	for s.Push(c.StateEntry()); !s.Empty(); {
		g := s.Pop().(*circuit.Gate)
		if !ret.add(g) {
			continue
		}
		for it := g.Uses(); it.Next(); {
			if u := it.User(); it.Kind() == circuit.StateEdge && (u.IsState() || u.Op().IsTerminal()) {
				s.Push(u)
			}
		}
	}
	return ret
}

func (UselessElim) Apply(c *circuit.Circuit) {
	q := lane.NewQueue()
	live := make(_GateSet)
	ctrl := reachable(c)

	/* Phase 1: seed with the roots, the reachable returns and loop headers */
	c.ForEach(func(g *circuit.Gate) {
		if c.IsSkeleton(g) || (g.Op() == circuit.OP_loop_begin && ctrl.has(g)) {
			live.add(g)
			q.Enqueue(g)
		}
	})
	for _, r := range c.Returns() {
		if ctrl.has(r) && live.add(r) {
			q.Enqueue(r)
		}
	}

	/* Phase 2: everything an already live gate reads is live */
	for !q.Empty() {
		g := q.Dequeue().(*circuit.Gate)
		for _, in := range g.Ins() {
			if live.add(in) {
				q.Enqueue(in)
			}
		}
	}

	/* Phase 3: find the dead gates */
	var dead []*circuit.Gate
	c.ForEach(func(g *circuit.Gate) {
		if !live.has(g) {
			dead = append(dead, g)
		}
	})

	/* nothing to remove */
	if len(dead) == 0 {
		return
	}

	/* Phase 4: redirect live users to the sentinel, then delete */
	for _, g := range dead {
		for it := g.Uses(); it.Next(); {
			if u := it.User(); live.has(u) {
				u.ReplaceIn(it.Index(), c.Dead())
			}
		}
	}
	for _, g := range dead {
		c.Delete(g)
	}
	stats.Add(&stats.GatesRemoved, len(dead))
	tlog.V("useless").Printw("removed useless gates", "circuit", c.Name, "count", len(dead))
}
