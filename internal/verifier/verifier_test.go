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
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudwego/gatec/internal/circuit"
)

// counter loops until its selector reaches n.
func counter() *circuit.Circuit {
	c := circuit.New("counter", circuit.I64)
	b := circuit.NewBuilder(c)
	h := b.LoopBegin(c.StateEntry())
	i := b.ValueSelector(circuit.I64, circuit.IntType, h, b.Int64(0), circuit.Unset)
	d := b.DependSelector(h, c.DependEntry(), circuit.Unset)
	b.SetEnv(h, d)
	t, f := b.Branch(b.ICmp(circuit.CondSlt, i, c.Param(0)))
	h.AppendIn(b.LoopBack(t))
	i.ReplaceIn(2, b.Add(i, b.Int64(1)))
	d.ReplaceIn(2, b.DependRelay(t, d))
	x := b.LoopExit(f)
	b.SetEnv(x, b.LoopExitDepend(x, d))
	b.Return(b.LoopExitValue(x, i))
	return c
}

func requireOnly(t *testing.T, rep Report, want ...Stage) {
	var got []Stage
	for _, r := range rep.Failed() {
		got = append(got, r.Stage)
	}
	require.Equal(t, want, got, spew.Sdump(rep))
}

func TestVerify_WellFormed(t *testing.T) {
	rep := Verify(counter())
	require.True(t, rep.Ok(), spew.Sdump(rep))
	assert.Len(t, rep.Results, 6)
	assert.NoError(t, rep.Err())
}

func TestVerify_DanglingInput(t *testing.T) {
	c := counter()
	g := c.NewGateUnset(circuit.NewMeta(circuit.OP_add, 0), circuit.I64, circuit.IntType)
	rep := Verify(c)
	requireOnly(t, rep, DataIntegrity)

	r, ok := rep.Result(DataIntegrity)
	require.True(t, ok)
	assert.Equal(t, []circuit.GateId{g.Id}, r.Gates)

	/* a deleted gate that is still read */
	c = counter()
	b := circuit.NewBuilder(c)
	v := b.Add(c.Param(0), c.Param(0))
	w := b.Mul(v, v)
	c.Delete(v)
	r = CheckDataIntegrity(c)
	assert.False(t, r.Ok)
	assert.Equal(t, []circuit.GateId{w.Id}, r.Gates)
}

func TestVerify_WrongEdgeKind(t *testing.T) {
	c := circuit.New("kinds", circuit.I64)
	b := circuit.NewBuilder(c)
	b.SetEnv(c.StateEntry(), c.DependEntry())
	ret := b.Return(c.Param(0))
	ret.ReplaceIn(1, c.Param(0))
	r := CheckDataIntegrity(c)
	assert.False(t, r.Ok)
	assert.Equal(t, []circuit.GateId{ret.Id}, r.Gates)
}

func TestVerify_MergeWithOnePredecessor(t *testing.T) {
	c := circuit.New("merge")
	b := circuit.NewBuilder(c)
	m := b.Merge(c.StateEntry())
	b.SetEnv(m, c.DependEntry())
	b.ReturnVoid()
	requireOnly(t, Verify(c), StateWellFormed)
}

func TestVerify_BranchWithoutArm(t *testing.T) {
	c := circuit.New("branch", circuit.I1)
	b := circuit.NewBuilder(c)
	tt, ff := b.Branch(c.Param(0))
	b.SetEnv(tt, c.DependEntry())
	b.ReturnVoid()
	c.Delete(ff)
	r := CheckStateWellFormed(c)
	assert.False(t, r.Ok)
	assert.Equal(t, circuit.OP_if_branch, c.Lookup(r.Gates[0]).Op())
}

func TestVerify_ControlCycle(t *testing.T) {
	c := circuit.New("cycle")
	b := circuit.NewBuilder(c)
	m := b.Merge(c.StateEntry(), circuit.Unset)
	blk := c.NewGate(circuit.NewMeta(circuit.OP_ordinary_block, 0), circuit.NoValue, circuit.EmptyType, m)
	m.ReplaceIn(1, blk)

	r := CheckCFGSoundness(c)
	assert.False(t, r.Ok)
	assert.ElementsMatch(t, []circuit.GateId{m.Id, blk.Id}, r.Gates)
}

func TestVerify_Irreducible(t *testing.T) {
	c := circuit.New("irreducible", circuit.I1)
	b := circuit.NewBuilder(c)
	tt, ff := b.Branch(c.Param(0))

	/* the body is entered both through the header and from the false arm */
	h := b.LoopBegin(tt)
	body := b.Merge(h, ff)
	h.AppendIn(b.LoopBack(body))

	rep := Verify(c)
	r, ok := rep.Result(Reducibility)
	require.True(t, ok)
	assert.False(t, r.Ok, spew.Sdump(rep))
	assert.ElementsMatch(t, []circuit.GateId{h.Id, body.Id}, r.Gates)

	/* the graph is still acyclic without its back edges */
	assert.True(t, CheckCFGSoundness(c).Ok)

	/* failures are reported as errors */
	err := rep.Err()
	require.Error(t, err)
	assert.IsType(t, (*Error)(nil), err)
}

func TestVerify_FixedDominance(t *testing.T) {
	c := circuit.New("dominance", circuit.I1, circuit.I1)
	b := circuit.NewBuilder(c)
	tt, ff := b.Branch(c.Param(0))

	/* a selector on a merge inside the true arm */
	b.SetEnv(tt, c.DependEntry())
	t2, f2 := b.Branch(c.Param(1))
	m := b.Merge(t2, f2)
	sel := b.ValueSelector(circuit.I1, circuit.BooleanType, m, b.Boolean(true), b.Boolean(false))
	b.SetEnv(m, b.DependSelector(m, c.DependEntry(), c.DependEntry()))
	b.ReturnVoid()

	/* read by a guard on the false arm */
	b.SetEnv(ff, c.DependEntry())
	chk := b.DeoptCheck(sel, b.FrameState(0), circuit.DeoptNotNumber)
	b.ReturnVoid()

	rep := Verify(c)
	requireOnly(t, rep, FixedDominance)
	r, _ := rep.Result(FixedDominance)
	assert.Equal(t, []circuit.GateId{chk.Id}, r.Gates)
}

func TestVerify_FlowCycle(t *testing.T) {
	c := circuit.New("flow", circuit.I64)
	b := circuit.NewBuilder(c)
	x := b.Add(c.Param(0), c.Param(0))
	y := b.Add(x, c.Param(0))
	x.ReplaceIn(1, y)
	b.Return(y)

	rep := Verify(c)
	requireOnly(t, rep, FlowCycles)
	r, _ := rep.Result(FlowCycles)
	assert.Equal(t, []circuit.GateId{x.Id, y.Id}, r.Gates)

	/* loop-carried cycles go through selectors */
	assert.True(t, CheckFlowCycles(counter()).Ok)
}

func TestStage_String(t *testing.T) {
	assert.Equal(t, "reducibility", Reducibility.String())
	assert.Equal(t, "stage_0", Stage(0).String())
	assert.Contains(t, (&Error{Circuit: "f", Failed: []StageResult{{Stage: FlowCycles, Message: "cycle"}}}).Error(), "flow-cycles: cycle")
}
