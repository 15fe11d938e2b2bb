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

// StateIn returns the i-th state input.
func StateIn(g *Gate, i int) *Gate {
	if i >= g.meta.State {
		panic("circuit: state input out of range on " + g.String())
	}
	return g.ins[i].def
}

// DependIn returns the i-th dependency input.
func DependIn(g *Gate, i int) *Gate {
	if i >= g.meta.Depend {
		panic("circuit: depend input out of range on " + g.String())
	}
	return g.ins[g.meta.State+i].def
}

// ValueIn returns the i-th value input.
func ValueIn(g *Gate, i int) *Gate {
	if i >= g.meta.Value {
		panic("circuit: value input out of range on " + g.String())
	}
	return g.ins[g.meta.State+g.meta.Depend+i].def
}

func NumStateIn(g *Gate) int  { return g.meta.State }
func NumDependIn(g *Gate) int { return g.meta.Depend }
func NumValueIn(g *Gate) int  { return g.meta.Value }

// ValueIndex converts a value input position into an input slot index.
func ValueIndex(g *Gate, i int) int {
	return g.meta.State + g.meta.Depend + i
}

// DependIndex converts a depend input position into an input slot index.
func DependIndex(g *Gate, i int) int {
	return g.meta.State + i
}

// FrameStateOf returns the frame state carried by a call site or guard.
func FrameStateOf(g *Gate) *Gate {
	if g.meta.Value == 0 {
		return nil
	}
	if v := ValueIn(g, g.meta.Value-1); v.meta.Op == OP_frame_state {
		return v
	} else {
		return nil
	}
}

// StateUses returns the control successors of g.
func StateUses(g *Gate) []*Gate {
	var ret []*Gate
	for it := g.Uses(); it.Next(); {
		if it.Kind() == StateEdge && it.User().IsState() {
			ret = append(ret, it.User())
		}
	}
	return ret
}

// FindUse returns the first user of g with the given opcode through a state
// edge, or nil.
func FindUse(g *Gate, op Opcode) *Gate {
	for it := g.Uses(); it.Next(); {
		if it.Kind() == StateEdge && it.User().meta.Op == op {
			return it.User()
		}
	}
	return nil
}

// StateOf returns the control position of a gate: itself for control gates,
// its state input for fixed gates, and nil otherwise.
func StateOf(g *Gate) *Gate {
	switch {
	case g.IsState():
		return g
	case g.IsFixed():
		return StateIn(g, 0)
	default:
		return nil
	}
}

// Outcome is the control and dependency pair a rewritten call continues with.
type Outcome struct {
	State  *Gate
	Depend *Gate
}

// ReplaceHirAndDeleteIfException replaces a high-level call that can no
// longer throw. Its success successor is bypassed, its exception successor
// is handed to the dead sentinel, and the call itself is deleted.
func ReplaceHirAndDeleteIfException(c *Circuit, hir *Gate, ok Outcome, value *Gate) {
	var del []*Gate
	for it := hir.Uses(); it.Next(); {
		u := it.User()
		switch it.Kind() {
		case StateEdge:
			switch u.meta.Op {
			case OP_if_success:
				c.ReplaceAllUses(u, ok.State)
				del = append(del, u)
			case OP_if_exception:
				c.ReplaceAllUses(u, c.Dead())
				del = append(del, u)
			default:
				u.ReplaceIn(it.Index(), ok.State)
			}
		case DependEdge:
			u.ReplaceIn(it.Index(), ok.Depend)
		case ValueEdge:
			u.ReplaceIn(it.Index(), value)
		}
	}
	for _, g := range del {
		c.Delete(g)
	}
	c.Delete(hir)
}

// ReplaceHirWithIfBranch replaces a high-level call whose replacement keeps
// an explicit exception path. Dependency users pinned below the exception
// successor continue from the exception side.
func ReplaceHirWithIfBranch(c *Circuit, hir *Gate, ok Outcome, exc Outcome, value *Gate) {
	var del []*Gate
	ifexc := FindUse(hir, OP_if_exception)

	/* control first, so pinned users can still be classified */
	for it := hir.Uses(); it.Next(); {
		u := it.User()
		if it.Kind() != DependEdge || ifexc == nil {
			continue
		}
		if u.meta.State > 0 && StateIn(u, 0) == ifexc {
			u.ReplaceIn(it.Index(), exc.Depend)
		}
	}
	for it := hir.Uses(); it.Next(); {
		u := it.User()
		switch it.Kind() {
		case StateEdge:
			switch u.meta.Op {
			case OP_if_success:
				c.ReplaceAllUses(u, ok.State)
				del = append(del, u)
			case OP_if_exception:
				c.ReplaceAllUses(u, exc.State)
				del = append(del, u)
			default:
				u.ReplaceIn(it.Index(), ok.State)
			}
		case DependEdge:
			u.ReplaceIn(it.Index(), ok.Depend)
		case ValueEdge:
			u.ReplaceIn(it.Index(), value)
		}
	}
	for _, g := range del {
		c.Delete(g)
	}
	c.Delete(hir)
}

// ReplaceHirWithExceptionCheck tests the pending exception slot at the
// builder's position and replaces hir with value on the clean path. The
// exception path goes to hir's exception successor, or returns the
// exception marker when hir has none.
func ReplaceHirWithExceptionCheck(b *Builder, hir *Gate, value *Gate) {
	d := b.Depend()
	t, f := b.Branch(b.HasPendingException())
	exc := Outcome{State: t, Depend: b.DependRelay(t, d)}
	ok := Outcome{State: f, Depend: b.DependRelay(f, d)}

	if FindUse(hir, OP_if_exception) != nil {
		ReplaceHirWithIfBranch(b.c, hir, ok, exc, value)
		return
	}

	/* no handler in this function */
	b.SetEnv(exc.State, exc.Depend)
	b.Return(b.Exception())
	ReplaceHirAndDeleteIfException(b.c, hir, ok, value)
}
