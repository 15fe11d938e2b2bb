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
package verifier

import (
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/flow"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
	"tlog.app/go/tlog"

	"github.com/cloudwego/gatec/internal/circuit"
)

// Verify runs every stage over c. The circuit is never modified.
func Verify(c *circuit.Circuit) Report {
	rep := Report{Circuit: c.Name}
	for _, fn := range _Stages {
		r := fn(c)
		rep.Results = append(rep.Results, r)
		if !r.Ok {
			tlog.V("verify").Printw("stage failed", "circuit", c.Name, "stage", r.Stage, "gates", r.Gates, "msg", r.Message)
		}
	}
	return rep
}

var _Stages = [...]func(c *circuit.Circuit) StageResult{
	CheckDataIntegrity,
	CheckStateWellFormed,
	CheckCFGSoundness,
	CheckReducibility,
	CheckFixedDominance,
	CheckFlowCycles,
}

// linked reports whether g is a real input: neither unset nor deleted.
func linked(c *circuit.Circuit, g *circuit.Gate) bool {
	return g != nil && g != circuit.Unset && c.Alive(g)
}

func isControl(g *circuit.Gate) bool {
	return g.IsState() || g.Op().IsTerminal()
}

/** Stage 1: data integrity **/

// CheckDataIntegrity checks that every input refers to a live gate of the
// kind the slot expects.
func CheckDataIntegrity(c *circuit.Circuit) StageResult {
	var bad []*circuit.Gate
	var msg string

	/* the dead sentinel stands in for anything */
	c.ForEach(func(g *circuit.Gate) {
		meta := g.Meta()
		for i, in := range g.Ins() {
			var why string
			switch {
			case !linked(c, in):
				why = "dangling input"
			case in.Op() == circuit.OP_dead:
				continue
			case meta.EdgeKind(i) == circuit.StateEdge && !in.IsState():
				why = "state input is not a control gate"
			case meta.EdgeKind(i) == circuit.DependEdge && !in.HasDepend():
				why = "depend input produces no dependency"
			case meta.EdgeKind(i) == circuit.ValueEdge && !in.HasValue() && in.Op() != circuit.OP_frame_state:
				why = "value input produces no value"
			case meta.EdgeKind(i) == circuit.RootEdge && !in.Op().IsRoot():
				why = "root input is not a root gate"
			default:
				continue
			}
			if bad = append(bad, g); msg == "" {
				msg = why + " in " + g.String()
			}
			break
		}
	})

	if len(bad) != 0 {
		return fail(DataIntegrity, bad, "%s", msg)
	} else {
		return pass(DataIntegrity)
	}
}

/** Stage 2: state well-formedness **/

func controlSuccessors(g *circuit.Gate) []*circuit.Gate {
	var ret []*circuit.Gate
	for it := g.Uses(); it.Next(); {
		if u := it.User(); it.Kind() == circuit.StateEdge && isControl(u) {
			ret = append(ret, u)
		}
	}
	return ret
}

func checkControl(c *circuit.Circuit, g *circuit.Gate) string {
	ns := circuit.NumStateIn(g)
	pred := func(i int) *circuit.Gate {
		if p := circuit.StateIn(g, i); linked(c, p) {
			return p
		} else {
			return nil
		}
	}

	/* predecessors */
	switch op := g.Op(); op {
	case circuit.OP_merge:
		if ns < 2 {
			return "merge with less than 2 predecessors"
		}
	case circuit.OP_loop_begin:
		if ns < 2 {
			return "loop without back edges"
		}
		for i := 1; i < ns; i++ {
			if p := pred(i); p != nil && p.Op() != circuit.OP_loop_back {
				return "loop back edge is not a loop_back"
			}
		}
	case circuit.OP_if_true, circuit.OP_if_false:
		if p := pred(0); p != nil && p.Op() != circuit.OP_if_branch {
			return op.String() + " does not follow a branch"
		}
	case circuit.OP_if_success, circuit.OP_if_exception:
		if p := pred(0); p != nil && !p.Op().IsCall() {
			return op.String() + " does not follow a call"
		}
	}

	/* successors */
	if !g.IsState() {
		return ""
	}
	succ := controlSuccessors(g)
	switch g.Op() {
	case circuit.OP_if_branch:
		var t, f int
		for _, s := range succ {
			switch s.Op() {
			case circuit.OP_if_true:
				t++
			case circuit.OP_if_false:
				f++
			default:
				return "branch with a successor other than its arms"
			}
		}
		if t != 1 || f != 1 {
			return "branch without exactly one arm per outcome"
		}
	case circuit.OP_js_bytecode:
		var n int
		for _, s := range succ {
			if op := s.Op(); op != circuit.OP_if_success && op != circuit.OP_if_exception {
				n++
			}
		}
		if n > 1 || (n == 1 && len(succ) != 1) {
			return "call with ambiguous successors"
		}
	default:
		if len(succ) > 1 {
			return "control gate with more than one successor"
		}
	}
	return ""
}

func checkPinned(c *circuit.Circuit, g *circuit.Gate) string {
	s := circuit.StateIn(g, 0)
	if !linked(c, s) || s.Op() == circuit.OP_dead {
		return ""
	}
	switch g.Op() {
	case circuit.OP_value_selector, circuit.OP_depend_selector:
		if !s.Op().IsMergeLike() {
			return "selector not pinned on a merge"
		}
		if n := circuit.NumValueIn(g) + circuit.NumDependIn(g); n != circuit.NumStateIn(s) {
			return "selector inputs do not match its merge"
		}
	case circuit.OP_loop_exit_value, circuit.OP_loop_exit_depend:
		if s.Op() != circuit.OP_loop_exit {
			return "loop exit value not pinned on a loop exit"
		}
	}
	return ""
}

// CheckStateWellFormed checks the control predecessors and successors of
// every control gate, and the control pins of selectors and exit values.
func CheckStateWellFormed(c *circuit.Circuit) StageResult {
	var bad []*circuit.Gate
	var msg string

	c.ForEach(func(g *circuit.Gate) {
		var why string
		switch {
		case isControl(g):
			why = checkControl(c, g)
		case g.IsFixed():
			why = checkPinned(c, g)
		}
		if why != "" {
			if bad = append(bad, g); msg == "" {
				msg = why + ": " + g.String()
			}
		}
	})

	if len(bad) != 0 {
		return fail(StateWellFormed, bad, "%s", msg)
	} else {
		return pass(StateWellFormed)
	}
}

/** Control flow graph **/

type _CFG struct {
	c     *circuit.Circuit
	g     *simple.DirectedGraph
	loops []*circuit.Gate
	selfs []*circuit.Gate
}

// buildCFG builds the control graph of c. Loop back edges are only kept
// when backs is set.
func buildCFG(c *circuit.Circuit, backs bool) *_CFG {
	cfg := &_CFG{c: c, g: simple.NewDirectedGraph()}
	c.ForEach(func(g *circuit.Gate) {
		if isControl(g) {
			cfg.g.AddNode(simple.Node(g.Id))
		}
		if g.Op() == circuit.OP_loop_begin {
			cfg.loops = append(cfg.loops, g)
		}
	})

	/* one edge per control input */
	c.ForEach(func(g *circuit.Gate) {
		if !isControl(g) {
			return
		}
		for i := 0; i < circuit.NumStateIn(g); i++ {
			p := circuit.StateIn(g, i)
			switch {
			case !linked(c, p) || !isControl(p):
				continue
			case !backs && g.Op() == circuit.OP_loop_begin && i > 0:
				continue
			case p == g:
				cfg.selfs = append(cfg.selfs, g)
			default:
				cfg.g.SetEdge(cfg.g.NewEdge(simple.Node(p.Id), simple.Node(g.Id)))
			}
		}
	})
	return cfg
}

func (self *_CFG) gate(n graph.Node) *circuit.Gate {
	return self.c.Lookup(circuit.GateId(n.ID()))
}

func (self *_CFG) gates(nodes []graph.Node) []*circuit.Gate {
	ret := make([]*circuit.Gate, 0, len(nodes))
	for _, n := range nodes {
		ret = append(ret, self.gate(n))
	}
	sort.Slice(ret, func(i int, j int) bool { return ret[i].Id < ret[j].Id })
	return ret
}

func (self *_CFG) dominators() flow.DominatorTree {
	return flow.Dominators(simple.Node(self.c.StateEntry().Id), self.g)
}

// dominates reports whether a dominates b. Gates unreachable from the entry
// are dominated by everything.
func dominates(dt flow.DominatorTree, a *circuit.Gate, b *circuit.Gate) bool {
	root := dt.Root().ID()
	for id := int64(b.Id); ; {
		if id == int64(a.Id) {
			return true
		}
		if id == root {
			return false
		}
		if p := dt.DominatorOf(id); p == nil {
			return id == int64(b.Id)
		} else {
			id = p.ID()
		}
	}
}

/** Stage 3: CFG soundness **/

// CheckCFGSoundness checks that the control graph without its loop back
// edges is acyclic.
func CheckCFGSoundness(c *circuit.Circuit) StageResult {
	cfg := buildCFG(c, false)
	if len(cfg.selfs) != 0 {
		return fail(CFGSoundness, cfg.selfs, "control gate is its own predecessor")
	}

	/* any cycle left is not a loop */
	if _, err := topo.Sort(cfg.g); err != nil {
		var bad []graph.Node
		if u, ok := err.(topo.Unorderable); ok {
			for _, scc := range u {
				bad = append(bad, scc...)
			}
		}
		return fail(CFGSoundness, cfg.gates(bad), "control cycle without a loop header")
	}
	return pass(CFGSoundness)
}

/** Stage 4: reducibility **/

// CheckReducibility checks that every control cycle is entered only
// through its loop header, and that the header dominates its back edges.
func CheckReducibility(c *circuit.Circuit) StageResult {
	cfg := buildCFG(c, true)
	dt := cfg.dominators()

	/* every strongly connected region has exactly one entry: its header */
	for _, scc := range topo.TarjanSCC(cfg.g) {
		if len(scc) < 2 {
			continue
		}
		in := make(map[int64]bool, len(scc))
		for _, n := range scc {
			in[n.ID()] = true
		}
		var entries []graph.Node
		for _, n := range scc {
			for it := cfg.g.To(n.ID()); it.Next(); {
				if !in[it.Node().ID()] {
					entries = append(entries, n)
					break
				}
			}
		}
		if len(entries) != 1 || cfg.gate(entries[0]).Op() != circuit.OP_loop_begin {
			if len(entries) == 0 {
				entries = scc
			}
			return fail(Reducibility, cfg.gates(entries), "loop region with %d entries", len(entries))
		}
	}

	/* headers dominate their back edges */
	for _, h := range cfg.loops {
		for i := 1; i < circuit.NumStateIn(h); i++ {
			if b := circuit.StateIn(h, i); linked(c, b) && !dominates(dt, h, b) {
				return fail(Reducibility, []*circuit.Gate{h, b}, "loop header does not dominate its back edge")
			}
		}
	}
	return pass(Reducibility)
}

/** Stage 5: fixed-gate dominance **/

// CheckFixedDominance checks that every fixed input of a fixed gate is
// pinned on a control gate dominating the position it is read at. Selector
// inputs are read at the matching merge predecessor.
func CheckFixedDominance(c *circuit.Circuit) StageResult {
	var bad []*circuit.Gate
	var msg string
	dt := buildCFG(c, true).dominators()

	c.ForEach(func(g *circuit.Gate) {
		if !g.IsFixed() {
			return
		}
		pin := circuit.StateIn(g, 0)
		if !linked(c, pin) || !pin.IsState() {
			return
		}
		for i, in := range g.Ins() {
			if i == 0 || !linked(c, in) || !in.IsFixed() {
				continue
			}
			at := pin
			if g.IsSelector() && pin.Op().IsMergeLike() && i-1 < circuit.NumStateIn(pin) {
				at = circuit.StateIn(pin, i-1)
			}
			def := circuit.StateIn(in, 0)
			if linked(c, def) && linked(c, at) && !dominates(dt, def, at) {
				if bad = append(bad, g); msg == "" {
					msg = in.String() + " does not dominate its use in " + g.String()
				}
				return
			}
		}
	})

	if len(bad) != 0 {
		return fail(FixedDominance, bad, "%s", msg)
	} else {
		return pass(FixedDominance)
	}
}

/** Stage 6: flow cycles **/

// CheckFlowCycles checks that the floating gates form no cycle. Cycles
// through selectors are loop-carried and allowed.
func CheckFlowCycles(c *circuit.Circuit) StageResult {
	var self []*circuit.Gate
	g := simple.NewDirectedGraph()

	/* edges between floating gates only */
	c.ForEach(func(v *circuit.Gate) {
		if !v.IsFloating() {
			return
		}
		if g.Node(int64(v.Id)) == nil {
			g.AddNode(simple.Node(v.Id))
		}
		for _, in := range v.Ins() {
			switch {
			case !linked(c, in) || !in.IsFloating():
				continue
			case in == v:
				self = append(self, v)
			default:
				g.SetEdge(g.NewEdge(simple.Node(in.Id), simple.Node(v.Id)))
			}
		}
	})

	if len(self) != 0 {
		return fail(FlowCycles, self, "floating gate reads itself")
	}
	for _, scc := range topo.TarjanSCC(g) {
		if len(scc) > 1 {
			bad := make([]*circuit.Gate, len(scc))
			for i, n := range scc {
				bad[i] = c.Lookup(circuit.GateId(n.ID()))
			}
			sort.Slice(bad, func(i int, j int) bool { return bad[i].Id < bad[j].Id })
			return fail(FlowCycles, bad, "cycle of %d floating gates", len(scc))
		}
	}
	return pass(FlowCycles)
}
