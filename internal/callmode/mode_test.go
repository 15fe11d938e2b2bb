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

package callmode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudwego/gatec/internal/circuit"
)

func callSite(op Bytecode, nvals int) (*circuit.Builder, *circuit.Gate, []*circuit.Gate) {
	params := make([]circuit.MachineType, nvals)
	for i := range params {
		params[i] = circuit.I64
	}
	c := circuit.New(op.String(), params...)
	b := circuit.NewBuilder(c)
	vals := make([]*circuit.Gate, 0, nvals+1)
	for i := 0; i < nvals; i++ {
		vals = append(vals, c.Param(i))
	}
	vals = append(vals, b.FrameState(0))
	return b, b.JSBytecode(uint64(op), vals...), vals
}

func TestCallMode_FixedArgs(t *testing.T) {
	tests := []struct {
		op   Bytecode
		n    int
		kind Kind
	}{
		{CALLARG0, 1, CALL_ARG0},
		{CALLARG1, 2, CALL_ARG1},
		{CALLARGS2, 3, CALL_ARG2},
		{CALLARGS3, 4, CALL_ARG3},
		{CALLTHIS0, 2, CALL_THIS_ARG0},
		{CALLTHIS1, 3, CALL_THIS_ARG1},
		{CALLTHIS2, 4, CALL_THIS_ARG2},
		{CALLTHIS3, 5, CALL_THIS_ARG3},
		{DEPRECATED_CALLARG0, 1, DEPRECATED_CALL_ARG0},
		{DEPRECATED_CALLARGS3, 4, DEPRECATED_CALL_ARG3},
		{CALLGETTER, 2, CALL_GETTER},
		{CALLSETTER, 3, CALL_SETTER},
		{CALLCONTAINER2, 4, CALL_THIS_ARG2_WITH_RETURN},
		{CALLCONTAINER3, 5, CALL_THIS_ARG3_WITH_RETURN},
	}
	for _, tc := range tests {
		b, g, vals := callSite(tc.op, tc.n)
		m := FromGate(b, g)
		require.Equal(t, tc.kind, m.Kind(), tc.op.String())
		assert.Equal(t, vals[tc.n-1], Callee(g), tc.op.String())
		argc, this := CallInfoOf(g)
		assert.Equal(t, Info(tc.op).Argc, argc)
		assert.Equal(t, Info(tc.op).HasThis, this)
	}
}

func TestCallMode_Range(t *testing.T) {
	b, g, vals := callSite(CALLTHISRANGE, 6)
	argc, this := CallInfoOf(g)
	assert.Equal(t, 4, argc)
	assert.True(t, this)
	assert.Equal(t, vals[5], Callee(g))
	assert.Equal(t, vals[0], Receiver(g))
	assert.Equal(t, vals[1:5], Args(g))
	m := FromGate(b, g)
	require.IsType(t, &CallThisArgv{}, m)
	av := m.(*CallThisArgv).Argv
	assert.Equal(t, circuit.OP_pack_argv, av.Op())
	assert.Equal(t, vals[1:5], av.Ins())
	assert.Equal(t, uint64(4), m.(*CallThisArgv).Argc.Static())
}

func TestCallMode_Super(t *testing.T) {
	b, g, vals := callSite(SUPERCALLTHISRANGE, 5)
	argc, _ := CallInfoOf(g)
	require.Equal(t, 2, argc)
	assert.Equal(t, vals[2], Callee(g))
	m := FromGate(b, g).(*SuperCall)
	assert.Equal(t, vals[3], m.ThisFunc)
	assert.Equal(t, vals[4], m.NewTarget)

	b, g, vals = callSite(SUPERCALLSPREAD, 4)
	s := FromGate(b, g).(*SuperCallSpread)
	assert.Equal(t, vals[1], Callee(g))
	assert.Equal(t, vals[0], s.Array)
	assert.Equal(t, circuit.OP_load_field, s.Argc.Op())
	assert.True(t, NeedsArgvCopy(s))
}

func TestCallMode_Traits(t *testing.T) {
	pgo := map[Kind]bool{
		CALL_ARG0:                             true,
		CALL_ARG3:                             true,
		CALL_WITH_ARGV:                        true,
		CALL_THIS_ARG2:                        true,
		CALL_THIS_WITH_ARGV:                   true,
		CALL_CONSTRUCTOR_WITH_ARGV:            true,
		SUPER_CALL_WITH_ARGV:                  true,
		SUPER_CALL_SPREAD_WITH_ARGV:           true,
		CALL_GETTER:                           true,
		CALL_SETTER:                           true,
		DEPRECATED_CALL_ARG1:                  false,
		DEPRECATED_CALL_WITH_ARGV:             false,
		DEPRECATED_CALL_CONSTRUCTOR_WITH_ARGV: false,
		CALL_THIS_ARG2_WITH_RETURN:            false,
		CALL_THIS_ARG3_WITH_RETURN:            false,
		CALL_THIS_ARGV_WITH_RETURN:            false,
	}
	for _, m := range sampleModes() {
		if want, ok := pgo[m.Kind()]; ok {
			assert.Equal(t, want, SupportsPGO(m), m.Kind().String())
		}
	}
	assert.True(t, IsCallNew(&CallConstructor{}))
	assert.True(t, IsCallNew(&SuperCallSpread{}))
	assert.False(t, IsCallNew(&CallThisArgs{}))
	assert.True(t, IsGetterSetter(&CallSetter{}))
	assert.True(t, SupportsFastBuiltin(&CallThisArg2WithReturn{}))
	assert.False(t, SupportsFastBuiltin(&CallThisArg3WithReturn{}))
	assert.True(t, TraitsOf(&CallThisArgs{}).CheckBuiltinID)
	assert.False(t, TraitsOf(&CallConstructor{}).CheckBuiltinID)
	assert.True(t, NeedsArgvCopy(&CallThisArgvWithReturn{}))
	assert.False(t, NeedsArgvCopy(&CallThisArgv{}))
}

func TestCallMode_TooManyArgs(t *testing.T) {
	m := &CallArgs{Args: make([]*circuit.Gate, 4)}
	require.Panics(t, func() { m.Kind() })
}

func sampleModes() []Mode {
	return []Mode{
		&CallArgs{}, &CallArgs{Args: make([]*circuit.Gate, 3)}, &CallArgs{Args: make([]*circuit.Gate, 1), Deprecated: true},
		&CallThisArgs{Args: make([]*circuit.Gate, 2)},
		&CallArgv{}, &CallArgv{Deprecated: true}, &CallThisArgv{},
		&CallConstructor{}, &CallConstructor{Deprecated: true},
		&SuperCall{}, &SuperCallSpread{}, &CallGetter{}, &CallSetter{},
		&CallThisArg2WithReturn{}, &CallThisArg3WithReturn{}, &CallThisArgvWithReturn{},
	}
}

type _Namer struct{}

func (_Namer) CallArgs(*CallArgs) string                             { return "args" }
func (_Namer) CallThisArgs(*CallThisArgs) string                     { return "this" }
func (_Namer) CallArgv(*CallArgv) string                             { return "argv" }
func (_Namer) CallThisArgv(*CallThisArgv) string                     { return "this_argv" }
func (_Namer) CallConstructor(*CallConstructor) string               { return "new" }
func (_Namer) SuperCall(*SuperCall) string                           { return "super" }
func (_Namer) SuperCallSpread(*SuperCallSpread) string               { return "super_spread" }
func (_Namer) CallGetter(*CallGetter) string                         { return "getter" }
func (_Namer) CallSetter(*CallSetter) string                         { return "setter" }
func (_Namer) CallThisArg2WithReturn(*CallThisArg2WithReturn) string { return "ret2" }
func (_Namer) CallThisArg3WithReturn(*CallThisArg3WithReturn) string { return "ret3" }
func (_Namer) CallThisArgvWithReturn(*CallThisArgvWithReturn) string { return "ret_argv" }

func TestCallMode_Visit(t *testing.T) {
	seen := make(map[string]bool)
	for _, m := range sampleModes() {
		seen[Visit[string](m, _Namer{})] = true
	}
	assert.Len(t, seen, 12)
}
