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
	"math"
	"strings"

	"github.com/oleiade/lane"
)

// Describe renders a single gate as one listing line.
func Describe(g *Gate) string {
	var ins []string
	for i, e := range g.ins {
		switch g.meta.EdgeKind(i) {
		case StateEdge:
			ins = append(ins, "S"+ref(e.def))
		case DependEdge:
			ins = append(ins, "D"+ref(e.def))
		case ValueEdge:
			ins = append(ins, ref(e.def))
		}
	}
	return fmt.Sprintf("%%%-4d = %-22s %-4s [%s]%s", g.Id, g.meta.Op, g.mt, strings.Join(ins, ", "), static(g))
}

func ref(g *Gate) string {
	if g == Unset {
		return "?"
	} else {
		return fmt.Sprintf("%%%d", g.Id)
	}
}

func static(g *Gate) string {
	switch g.meta.Op {
	case OP_constant:
		if g.mt.IsFloat() {
			return fmt.Sprintf(" %g", math.Float64frombits(g.meta.Static))
		} else {
			return fmt.Sprintf(" %#x", g.meta.Static)
		}
	case OP_icmp, OP_fcmp:
		return " " + Cond(g.meta.Static).String()
	case OP_type_test:
		return " " + TypeKind(g.meta.Static).String()
	case OP_load_field:
		return " " + Field(g.meta.Static).String()
	case OP_deopt_check:
		return " " + DeoptReason(g.meta.Static).String()
	case OP_arg, OP_frame_state, OP_js_bytecode, OP_call, OP_runtime_call, OP_nogc_runtime_call, OP_builtins_call, OP_builtins_call_with_argv, OP_builtin_op, OP_call_target_test:
		return fmt.Sprintf(" #%d", g.meta.Static)
	default:
		return ""
	}
}

// Listing renders every live gate of the circuit in id order.
func Listing(c *Circuit) string {
	buf := []string{fmt.Sprintf("circuit %s (%d gates)", c.Name, c.Len())}
	c.ForEach(func(g *Gate) {
		buf = append(buf, "    "+Describe(g))
	})
	return strings.Join(buf, "\n")
}

// Dot renders the control skeleton reachable from the state entry as a
// Graphviz digraph. Fixed gates are listed inside their control gate.
func Dot(c *Circuit) string {
	q := lane.NewQueue()
	n := make(map[GateId]bool)
	buf := []string{
		"digraph Circuit {",
		`    graph [ fontname = "Fira Code" ]`,
		`    node [ fontname = "Fira Code" fontsize = "14" shape = "box" ]`,
		`    edge [ fontname = "Fira Code" ]`,
	}

	/* breadth-first over control successors */
	for q.Enqueue(c.StateEntry()); !q.Empty(); {
		p := q.Dequeue().(*Gate)
		if n[p.Id] {
			continue
		}
		n[p.Id] = true
		label := []string{Describe(p)}
		for it := p.Uses(); it.Next(); {
			if u := it.User(); u.IsFixed() && it.Kind() == StateEdge {
				label = append(label, Describe(u))
			}
		}
		buf = append(buf, fmt.Sprintf(`    g_%d [ label = %q ]`, p.Id, strings.Join(label, "\\l")+"\\l"))
		for it := p.Uses(); it.Next(); {
			u := it.User()
			if it.Kind() != StateEdge || u.IsFixed() {
				continue
			}
			if u.meta.Op == OP_loop_begin && it.Index() > 0 {
				buf = append(buf, fmt.Sprintf(`    g_%d -> g_%d [ style = "dashed" ]`, p.Id, u.Id))
			} else {
				buf = append(buf, fmt.Sprintf(`    g_%d -> g_%d`, p.Id, u.Id))
			}
			if !n[u.Id] {
				q.Enqueue(u)
			}
		}
	}
	buf = append(buf, "}")
	return strings.Join(buf, "\n")
}
