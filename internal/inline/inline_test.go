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
package inline

import (
	"math"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudwego/gatec/internal/callmode"
	"github.com/cloudwego/gatec/internal/catalog"
	"github.com/cloudwego/gatec/internal/circuit"
	"github.com/cloudwego/gatec/internal/opts"
)

func callSite(op callmode.Bytecode, nvals int) (*circuit.Circuit, *circuit.Gate) {
	params := make([]circuit.MachineType, nvals)
	for i := range params {
		params[i] = circuit.AnyValue
	}
	c := circuit.New(op.String(), params...)
	b := circuit.NewBuilder(c)
	vals := make([]*circuit.Gate, 0, nvals+1)
	for i := 0; i < nvals; i++ {
		vals = append(vals, c.Param(i))
	}
	vals = append(vals, b.FrameState(0))
	g := b.JSBytecode(uint64(op), vals...)
	b.Return(g)
	return c, g
}

func census(c *circuit.Circuit) map[string]int {
	ret := make(map[string]int)
	c.ForEach(func(g *circuit.Gate) {
		switch g.Op() {
		case circuit.OP_runtime_call:
			ret[catalog.StubID(g.Static()).String()]++
		default:
			ret[g.Op().String()]++
		}
	})
	return ret
}

func findOp(c *circuit.Circuit, op circuit.Opcode) []*circuit.Gate {
	var ret []*circuit.Gate
	c.ForEach(func(g *circuit.Gate) {
		if g.Op() == op {
			ret = append(ret, g)
		}
	})
	return ret
}

func inline(c *circuit.Circuit, g *circuit.Gate, id catalog.BuiltinID, o opts.Options) {
	NativeInline{Feedback: catalog.StaticFeedback{g.Id: id}, Options: o}.Apply(c)
}

func returned(t *testing.T, c *circuit.Circuit) *circuit.Gate {
	rets := c.Returns()
	require.Len(t, rets, 1)
	return circuit.ValueIn(rets[0], 0)
}

func TestNativeInline_Folds(t *testing.T) {
	tests := []struct {
		id   catalog.BuiltinID
		op   callmode.Bytecode
		n    int
		want *circuit.Gate
	}{
		{catalog.MathMin, callmode.CALLARG0, 1, nil},
		{catalog.MathMax, callmode.CALLARG0, 1, nil},
		{catalog.MathSin, callmode.CALLARG0, 1, nil},
		{catalog.MathClz32, callmode.CALLARG0, 1, nil},
		{catalog.GlobalIsNan, callmode.CALLARG0, 1, nil},
		{catalog.GlobalIsFinite, callmode.CALLARG0, 1, nil},
		{catalog.MathImul, callmode.CALLARG1, 2, nil},
		{catalog.MathPow, callmode.CALLARG1, 2, nil},
	}
	for _, tc := range tests {
		c, g := callSite(tc.op, tc.n)
		b := circuit.NewBuilder(c)
		want := map[catalog.BuiltinID]*circuit.Gate{
			catalog.MathMin:        b.Double(math.Inf(1)),
			catalog.MathMax:        b.Double(math.Inf(-1)),
			catalog.MathSin:        b.NaN(),
			catalog.MathClz32:      b.Int32(32),
			catalog.GlobalIsNan:    b.Boolean(true),
			catalog.GlobalIsFinite: b.Boolean(false),
			catalog.MathImul:       b.Int32(0),
			catalog.MathPow:        b.NaN(),
		}[tc.id]

		inline(c, g, tc.id, opts.Options{})
		n := census(c)
		assert.Zero(t, n["js_bytecode"], "%v", tc.id)
		assert.Zero(t, n["deopt_check"], "%v", tc.id)
		assert.Zero(t, n["call_target_test"], "%v", tc.id)
		assert.Zero(t, n["builtin_op"], "%v", tc.id)
		assert.Same(t, want, returned(t, c), "%v: %s", tc.id, spew.Sdump(n))
	}
}

func TestNativeInline_Unary(t *testing.T) {
	c, g := callSite(callmode.CALLARG1, 2)
	inline(c, g, catalog.MathSqrt, opts.Options{})

	n := census(c)
	assert.Zero(t, n["js_bytecode"])
	assert.Equal(t, 2, n["deopt_check"])
	assert.Equal(t, 1, n["call_target_test"])

	v := returned(t, c)
	require.Equal(t, circuit.OP_builtin_op, v.Op())
	assert.Equal(t, uint64(catalog.MathSqrt)|catalog.MachineOp, v.Static())
	assert.Equal(t, circuit.F64, v.MachineType())
	assert.Equal(t, circuit.DoubleType, v.GateType())
	assert.Same(t, c.Param(0), circuit.ValueIn(v, 0))

	/* guards come first in the dependency chain */
	d := circuit.DependIn(v, 0)
	require.Equal(t, circuit.OP_deopt_check, d.Op())
	assert.Equal(t, uint64(circuit.DeoptNotNumber), d.Static())
	assert.Equal(t, uint64(circuit.DeoptNotCallTarget), circuit.DependIn(d, 0).Static())
}

func TestNativeInline_Unchecked(t *testing.T) {
	c, g := callSite(callmode.CALLARG1, 2)
	inline(c, g, catalog.MathCos, opts.Options{UncheckedInline: true})

	n := census(c)
	assert.Equal(t, 1, n["deopt_check"])
	assert.Zero(t, n["call_target_test"])
	assert.Equal(t, uint64(catalog.MathCos), returned(t, c).Static())
}

func TestNativeInline_MinMax(t *testing.T) {
	c, g := callSite(callmode.CALLARGS3, 4)
	inline(c, g, catalog.MathMax, opts.Options{})

	n := census(c)
	assert.Equal(t, 2, n["builtin_op"])
	assert.Equal(t, 4, n["deopt_check"])

	v := returned(t, c)
	require.Equal(t, circuit.OP_builtin_op, v.Op())
	assert.Equal(t, circuit.NumberType, v.GateType())
	assert.Equal(t, circuit.OP_builtin_op, circuit.ValueIn(v, 0).Op())
	assert.Same(t, c.Param(2), circuit.ValueIn(v, 1))

	/* a single argument is its own result */
	c, g = callSite(callmode.CALLARG1, 2)
	inline(c, g, catalog.MathMin, opts.Options{})
	assert.Same(t, c.Param(0), returned(t, c))
	assert.Zero(t, census(c)["builtin_op"])
}

func TestNativeInline_MapDelete(t *testing.T) {
	c, g := callSite(callmode.CALLTHIS1, 3)
	inline(c, g, catalog.MapDelete, opts.Options{})

	n := census(c)
	assert.Zero(t, n["js_bytecode"])
	assert.Equal(t, 1, n["has_pending_exception"])
	assert.Equal(t, 2, n["return"])

	var kinds []circuit.TypeKind
	for _, tt := range findOp(c, circuit.OP_type_test) {
		kinds = append(kinds, circuit.TypeKind(tt.Static()))
	}
	assert.Equal(t, []circuit.TypeKind{circuit.IsMap}, kinds)

	ops := findOp(c, circuit.OP_builtin_op)
	require.Len(t, ops, 1)
	assert.Same(t, c.Param(0), circuit.ValueIn(ops[0], 0))
	assert.Same(t, c.Param(1), circuit.ValueIn(ops[0], 1))
	assert.Equal(t, circuit.BooleanType, ops[0].GateType())
}

func TestNativeInline_Rejected(t *testing.T) {
	c, g := callSite(callmode.CALLTHIS1, 3)
	inline(c, g, catalog.ArrayPush, opts.Options{})
	assert.Equal(t, 1, census(c)["js_bytecode"])

	/* fromCharCode is only inlined for a single code unit */
	c, g = callSite(callmode.CALLARGS2, 3)
	inline(c, g, catalog.StringFromCharCode, opts.Options{})
	assert.Equal(t, 1, census(c)["js_bytecode"])

	/* prototype methods need a receiver */
	c, g = callSite(callmode.CALLARG1, 2)
	inline(c, g, catalog.MapGet, opts.Options{})
	assert.Equal(t, 1, census(c)["js_bytecode"])

	/* no feedback */
	c, _ = callSite(callmode.CALLARG1, 2)
	NativeInline{Feedback: catalog.NoFeedback{}}.Apply(c)
	assert.Equal(t, 1, census(c)["js_bytecode"])
}

func TestNativeInline_Trace(t *testing.T) {
	c, g := callSite(callmode.CALLARG1, 2)
	inline(c, g, catalog.MathFloor, opts.Options{TraceInline: true})

	traces := findOp(c, circuit.OP_runtime_call)
	require.Len(t, traces, 1)
	assert.Equal(t, uint64(catalog.AotInlineBuiltinTrace), traces[0].Static())
	assert.Same(t, c.Glue(), circuit.ValueIn(traces[0], 0))
	assert.Same(t, c.Param(1), circuit.ValueIn(traces[0], 1))
}

func TestNativeInline_CharCodeAt(t *testing.T) {
	c, g := callSite(callmode.CALLTHIS0, 2)
	inline(c, g, catalog.StringCharCodeAt, opts.Options{})

	v := returned(t, c)
	require.Equal(t, circuit.OP_builtin_op, v.Op())
	assert.Same(t, c.Param(0), circuit.ValueIn(v, 0))
	assert.Equal(t, circuit.OP_constant, circuit.ValueIn(v, 1).Op())
	assert.Len(t, findOp(c, circuit.OP_type_test), 1)
}

func TestNativeInline_SignatureMismatch(t *testing.T) {
	/* Math.atan2 takes two arguments, any more and the call stays generic */
	c, g := callSite(callmode.CALLARGS3, 4)
	inline(c, g, catalog.MathAtan2, opts.Options{})
	n := census(c)
	assert.Equal(t, 1, n["js_bytecode"], spew.Sdump(n))
	assert.Zero(t, n["builtin_op"])
	assert.Zero(t, n["deopt_check"])
	assert.Same(t, g, returned(t, c))

	/* same with Math.sqrt and two arguments */
	c, g = callSite(callmode.CALLARGS2, 3)
	inline(c, g, catalog.MathSqrt, opts.Options{})
	assert.Equal(t, 1, census(c)["js_bytecode"])
	assert.Same(t, g, returned(t, c))
}

func TestNativeInline_OperandTypes(t *testing.T) {
	for _, tc := range []struct {
		mt      circuit.MachineType
		inlined bool
	}{
		{circuit.I64, true},
		{circuit.AnyValue, true},
		{circuit.F64, false},
		{circuit.I32, false},
	} {
		c := circuit.New("sqrt", tc.mt, circuit.AnyValue)
		b := circuit.NewBuilder(c)
		g := b.JSBytecode(uint64(callmode.CALLARG1), c.Param(0), c.Param(1), b.FrameState(0))
		b.Return(g)

		inline(c, g, catalog.MathSqrt, opts.Options{})
		n := census(c)
		if tc.inlined {
			assert.Zero(t, n["js_bytecode"], "%v", tc.mt)
			assert.Equal(t, 1, n["builtin_op"], "%v", tc.mt)
		} else {
			assert.Equal(t, 1, n["js_bytecode"], "%v", tc.mt)
			assert.Zero(t, n["builtin_op"], "%v", tc.mt)
			assert.True(t, c.Alive(g), "%v", tc.mt)
		}
	}
}
