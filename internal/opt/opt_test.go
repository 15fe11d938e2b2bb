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
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudwego/gatec/internal/callmode"
	"github.com/cloudwego/gatec/internal/catalog"
	"github.com/cloudwego/gatec/internal/circuit"
	"github.com/cloudwego/gatec/internal/emu"
	"github.com/cloudwego/gatec/internal/inline"
	"github.com/cloudwego/gatec/internal/opts"
)

// sumLoop returns the sum of every i below n.
func sumLoop() *circuit.Circuit {
	c := circuit.New("sum", circuit.I64)
	b := circuit.NewBuilder(c)
	n := c.Param(0)

	/* loop header */
	h := b.LoopBegin(c.StateEntry())
	i := b.ValueSelector(circuit.I64, circuit.IntType, h, b.Int64(0), circuit.Unset)
	s := b.ValueSelector(circuit.I64, circuit.IntType, h, b.Int64(0), circuit.Unset)
	d := b.DependSelector(h, c.DependEntry(), circuit.Unset)
	b.SetEnv(h, d)

	/* body */
	t, f := b.Branch(b.ICmp(circuit.CondSlt, i, n))
	h.AppendIn(b.LoopBack(t))
	i.ReplaceIn(2, b.Add(i, b.Int64(1)))
	s.ReplaceIn(2, b.Add(s, i))
	d.ReplaceIn(2, b.DependRelay(t, d))

	/* exit */
	x := b.LoopExit(f)
	b.SetEnv(x, b.LoopExitDepend(x, d))
	b.Return(b.LoopExitValue(x, s))
	return c
}

// evenLoop returns the sum of every even i below n, with one back edge per
// parity.
func evenLoop() *circuit.Circuit {
	c := circuit.New("even", circuit.I64)
	b := circuit.NewBuilder(c)
	n := c.Param(0)

	/* loop header */
	h := b.LoopBegin(c.StateEntry())
	i := b.ValueSelector(circuit.I64, circuit.IntType, h, b.Int64(0), circuit.Unset, circuit.Unset)
	s := b.ValueSelector(circuit.I64, circuit.IntType, h, b.Int64(0), circuit.Unset, circuit.Unset)
	d := b.DependSelector(h, c.DependEntry(), circuit.Unset, circuit.Unset)
	b.SetEnv(h, d)

	/* body */
	t, f := b.Branch(b.ICmp(circuit.CondSlt, i, n))
	b.SetEnv(t, d)
	even, odd := b.Branch(b.ICmp(circuit.CondEq, b.Binary(circuit.OP_and, circuit.I64, i, b.Int64(1)), b.Int64(0)))
	h.AppendIn(b.LoopBack(even))
	h.AppendIn(b.LoopBack(odd))
	next := b.Add(i, b.Int64(1))
	i.ReplaceIn(2, next)
	i.ReplaceIn(3, next)
	s.ReplaceIn(2, b.Add(s, i))
	s.ReplaceIn(3, s)
	d.ReplaceIn(2, b.DependRelay(even, d))
	d.ReplaceIn(3, b.DependRelay(odd, d))

	/* exit */
	x := b.LoopExit(f)
	b.SetEnv(x, b.LoopExitDepend(x, d))
	b.Return(b.LoopExitValue(x, s))
	return c
}

func header(c *circuit.Circuit) *circuit.Gate {
	var ret *circuit.Gate
	c.ForEach(func(g *circuit.Gate) {
		if g.Op() == circuit.OP_loop_begin {
			ret = g
		}
	})
	return ret
}

func requireLinked(t *testing.T, c *circuit.Circuit) {
	c.ForEach(func(g *circuit.Gate) {
		require.False(t, g.HasUnset(), "%v", g)
		for _, in := range g.Ins() {
			require.True(t, c.Alive(in), "%v -> %v", g, in)
		}
	})
}

func run(t *testing.T, c *circuit.Circuit, n int64) int64 {
	v, err := emu.Run(c, emu.Int(n))
	require.NoError(t, err, "n = %d", n)
	return v.Int()
}

func TestFindLoop_Descriptor(t *testing.T) {
	c := sumLoop()
	loop := FindLoop(header(c))
	assert.Len(t, loop.Backs, 1)
	assert.Len(t, loop.Exits, 1)
	assert.Len(t, loop.Selectors(), 3)

	/* branch, both arms, 3 selectors, the relay, the compare and 2 adds */
	assert.Equal(t, 10, loop.Size(), spew.Sdump(loop.Body))
	for _, g := range loop.Body {
		assert.NotEqual(t, circuit.OP_constant, g.Op())
		assert.NotEqual(t, circuit.OP_loop_exit_value, g.Op())
	}

	loops := FindLoops(evenLoop())
	require.Len(t, loops, 1)
	assert.Len(t, loops[0].Backs, 2)
}

func TestFindLoop_NotAHeader(t *testing.T) {
	c := sumLoop()
	assert.Panics(t, func() { FindLoop(c.StateEntry()) })
}

func TestPeel_SingleBackEdge(t *testing.T) {
	c := sumLoop()
	h := header(c)
	Peel(c, FindLoop(h))
	requireLinked(t, c)

	/* the copy now enters the loop */
	assert.Equal(t, circuit.OP_if_true, circuit.StateIn(h, 0).Op())
	for n := int64(0); n < 8; n++ {
		assert.Equal(t, n*(n-1)/2, run(t, c, n), "n = %d", n)
	}
}

func TestPeel_MultipleBackEdges(t *testing.T) {
	c := evenLoop()
	h := header(c)
	Peel(c, FindLoop(h))
	requireLinked(t, c)

	/* the copies of both back edges are merged in front of the header */
	assert.Equal(t, circuit.OP_merge, circuit.StateIn(h, 0).Op())
	for _, s := range FindLoop(h).Selectors() {
		if s.Op() == circuit.OP_value_selector {
			assert.Equal(t, circuit.OP_value_selector, s.In(1).Op())
		} else {
			assert.Equal(t, circuit.OP_depend_selector, s.In(1).Op())
		}
	}

	/* same results as the loop before peeling */
	ref := evenLoop()
	for n := int64(0); n < 10; n++ {
		assert.Equal(t, run(t, ref, n), run(t, c, n), "n = %d", n)
	}
}

func TestLoopPeeling_SizeLimit(t *testing.T) {
	c := sumLoop()
	n := c.Len()
	LoopPeeling{Options: opts.Options{LoopPeeling: true, MaxPeelSize: 4}}.Apply(c)
	assert.Equal(t, n, c.Len())

	LoopPeeling{Options: opts.Options{LoopPeeling: true}}.Apply(c)
	assert.Greater(t, c.Len(), n)
	assert.Equal(t, int64(21), run(t, c, 7))

	/* a body as large as the limit is still peeled */
	c = sumLoop()
	size := FindLoop(header(c)).Size()
	LoopPeeling{Options: opts.Options{LoopPeeling: true, MaxPeelSize: size - 1}}.Apply(c)
	assert.Equal(t, n, c.Len())
	LoopPeeling{Options: opts.Options{LoopPeeling: true, MaxPeelSize: size}}.Apply(c)
	assert.Greater(t, c.Len(), n)
}

func TestUselessElim(t *testing.T) {
	c := sumLoop()
	b := circuit.NewBuilder(c)

	/* an unused computation and an unused constant */
	unused := b.Mul(b.Add(c.Param(0), b.Int64(1234)), c.Param(0))
	n := c.Len()
	UselessElim{}.Apply(c)
	assert.False(t, c.Alive(unused))
	assert.Equal(t, n-3, c.Len())
	requireLinked(t, c)

	/* the second run finds nothing */
	UselessElim{}.Apply(c)
	assert.Equal(t, n-3, c.Len())
	assert.Equal(t, int64(10), run(t, c, 5))
}

func TestUselessElim_KeepsLoopHeaders(t *testing.T) {
	c := circuit.New("orphan")
	b := circuit.NewBuilder(c)
	h := b.LoopBegin(c.StateEntry())
	b.SetEnv(c.StateEntry(), c.DependEntry())
	b.ReturnVoid()

	UselessElim{}.Apply(c)
	assert.True(t, c.Alive(h))
}

func TestUselessElim_AfterPeeling(t *testing.T) {
	c := sumLoop()
	LoopPeeling{Options: opts.Options{LoopPeeling: true}}.Apply(c)
	UselessElim{}.Apply(c)
	requireLinked(t, c)
	for n := int64(0); n < 6; n++ {
		assert.Equal(t, n*(n-1)/2, run(t, c, n))
	}
}

// sqrtCall inlines a Math.sqrt call on its first parameter, optionally with
// an exception handler returning -1.
func sqrtCall(handler bool) (*circuit.Circuit, *circuit.Gate) {
	var ret *circuit.Gate
	c := circuit.New("sqrt", circuit.AnyValue, circuit.AnyValue)
	b := circuit.NewBuilder(c)
	g := b.JSBytecode(uint64(callmode.CALLARG1), c.Param(0), c.Param(1), b.FrameState(0))

	/* both successors return */
	if !handler {
		b.Return(g)
	} else {
		ok := b.IfSuccess(g)
		exc := b.IfException(g)
		b.SetEnv(ok, g)
		b.Return(g)
		b.SetEnv(exc, g)
		ret = b.Return(b.Int64(-1))
	}

	/* inline the call */
	inline.NativeInline{Feedback: catalog.StaticFeedback{g.Id: catalog.MathSqrt}}.Apply(c)
	return c, ret
}

func census(c *circuit.Circuit) map[string]int {
	ret := make(map[string]int)
	c.ForEach(func(g *circuit.Gate) { ret[g.Op().String()]++ })
	return ret
}

func TestUselessElim_DropsExceptionRegion(t *testing.T) {
	c, thrown := sqrtCall(true)
	require.True(t, c.Alive(thrown))
	require.Len(t, c.Returns(), 2)
	require.Zero(t, census(c)["js_bytecode"])

	/* the handler was re-rooted on the sentinel by the inliner */
	assert.Same(t, c.Dead(), circuit.StateIn(thrown, 0))

	/* the plain call tells how much the inliner itself leaves behind */
	p, _ := sqrtCall(false)
	np := p.Len()
	UselessElim{}.Apply(p)

	/* the handler adds its return and its constant */
	n := c.Len()
	UselessElim{}.Apply(c)
	assert.False(t, c.Alive(thrown))
	assert.Len(t, c.Returns(), 1)
	assert.Equal(t, np-p.Len()+2, n-c.Len(), spew.Sdump(census(c), census(p)))
	requireLinked(t, c)

	/* the second run finds nothing */
	m := c.Len()
	UselessElim{}.Apply(c)
	assert.Equal(t, m, c.Len())
}
