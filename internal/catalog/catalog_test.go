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

package catalog

import (
	"strings"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/davecgh/go-spew/spew"
	"github.com/klauspost/cpuid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudwego/gatec/internal/circuit"
)

func TestCatalog_NamesRoundTrip(t *testing.T) {
	for i := 0; i < NumBuiltins(); i++ {
		id := BuiltinID(i)
		name := NameOf(id)
		require.NotEmpty(t, name)
		require.Equal(t, id, IDFromName(name), name)
	}
}

func TestCatalog_NameOfIsTotal(t *testing.T) {
	assert.Equal(t, "unnamed-builtin-4000", NameOf(4000))
	assert.Equal(t, "unnamed-builtin-65535", NameOf(BuiltinNone))
	assert.Equal(t, "MathMin", MathMin.String())
}

func TestCatalog_UnknownNames(t *testing.T) {
	f := gofakeit.New(42)
	for i := 0; i < 200; i++ {
		name := f.Word() + "_" + f.LetterN(6)
		assert.Equal(t, BuiltinNone, IDFromName(name), name)
	}
	assert.Equal(t, BuiltinNone, IDFromName(""))
	assert.Equal(t, BuiltinNone, IDFromName(strings.ToLower("MathMin")))
}

func TestCatalog_Traits(t *testing.T) {
	assert.True(t, IsInlineable(MathMin))
	assert.False(t, IsSideEffecting(MathMin))
	assert.True(t, IsSideEffecting(NumberParseFloat))
	assert.True(t, IsInlineable(NumberParseFloat))
	assert.True(t, IsFastBuiltin(MapGet))
	assert.True(t, HasReceiver(StringCharCodeAt))
	assert.False(t, HasReceiver(MathAbs))
	assert.True(t, IsConstructorEligible(ArrayConstructor))
	assert.False(t, IsConstructorEligible(BigIntConstructor))
	assert.False(t, IsConstructorEligible(MathAbs))
	assert.True(t, IsBelowConstructorStubs(JSONStringify))
	assert.False(t, IsBelowConstructorStubs(BooleanConstructor))
	for i := 0; i < NumBuiltins(); i++ {
		id := BuiltinID(i)
		if IsConstructorEligible(id) {
			require.GreaterOrEqual(t, id, ConstructorStubFirst, NameOf(id))
		}
	}
}

func TestCatalog_OutOfRangePanics(t *testing.T) {
	require.Panics(t, func() { IsFastBuiltin(BuiltinNone) })
	require.Panics(t, func() { SignatureOf(_BuiltinCount) })
	require.Panics(t, func() { StubNameOf(_StubCount) })
	require.Panics(t, func() { LowersToMachineOp(BuiltinNone, HostFeatures()) })
}

func TestCatalog_Signatures(t *testing.T) {
	s := SignatureOf(StringCharCodeAt)
	require.Len(t, s.Args, 2)
	require.NoError(t, s.Check([]circuit.MachineType{circuit.I64, circuit.I64}))
	require.Error(t, s.Check([]circuit.MachineType{circuit.I64}))
	require.Error(t, s.Check([]circuit.MachineType{circuit.I64, circuit.NoValue}))
	v := SignatureOf(MathMax)
	require.True(t, v.Variadic)
	require.NoError(t, v.Check(nil))
	require.NoError(t, v.Check([]circuit.MachineType{circuit.I64, circuit.AnyValue, circuit.I64}))
	require.Error(t, v.Check([]circuit.MachineType{circuit.F64, circuit.I64, circuit.I64}))
	require.Error(t, SignatureOf(MathAtan2).Check([]circuit.MachineType{circuit.I64, circuit.I64, circuit.I64}))
	require.NoError(t, StubSignatureOf(CopyCallTarget).Check([]circuit.MachineType{circuit.ArchWord, circuit.I64}))
	require.Error(t, StubSignatureOf(CopyCallTarget).Check([]circuit.MachineType{circuit.ArchWord}))
}

func TestCatalog_TypedAndArity(t *testing.T) {
	for _, tc := range []struct {
		id    BuiltinID
		typed bool
		arity int
	}{
		{MathSqrt, true, 1},
		{MathAtan2, true, 2},
		{MathMin, true, 0},
		{StringCharCodeAt, true, 1},
		{StringCharAt, true, 1},
		{ObjectIs, true, 2},
		{MapGet, false, 1},
		{ArrayPush, false, 0},
		{ArrayPop, false, 0},
		{JSONStringify, false, 3},
	} {
		assert.Equal(t, tc.typed, IsTypedBuiltin(tc.id), "%v", tc.id)
		assert.Equal(t, tc.arity, Arity(tc.id), "%v", tc.id)
		assert.Equal(t, tc.arity+btoi(HasReceiver(tc.id)), len(SignatureOf(tc.id).Args), "%v", tc.id)
	}
}

func btoi(v bool) int {
	if v {
		return 1
	} else {
		return 0
	}
}

func TestCatalog_CheckCall(t *testing.T) {
	c := circuit.New("call", circuit.I64, circuit.I64, circuit.I64, circuit.F64, circuit.AnyValue)
	i0, i1, i2, f, a := c.Param(0), c.Param(1), c.Param(2), c.Param(3), c.Param(4)

	/* arity */
	require.NoError(t, CheckCall(MathAtan2, nil, []*circuit.Gate{i0, i1}))
	require.NoError(t, CheckCall(MathAtan2, nil, []*circuit.Gate{i0}))
	require.Error(t, CheckCall(MathAtan2, nil, []*circuit.Gate{i0, i1, i2}))
	require.NoError(t, CheckCall(MathMax, nil, []*circuit.Gate{i0, i1, i2, a}))

	/* operand types */
	require.Error(t, CheckCall(MathSqrt, nil, []*circuit.Gate{f}))
	require.Error(t, CheckCall(MathMax, nil, []*circuit.Gate{i0, i1, f}))
	require.NoError(t, CheckCall(MathSqrt, nil, []*circuit.Gate{a}))

	/* receivers */
	require.Error(t, CheckCall(StringCharCodeAt, nil, []*circuit.Gate{i0}))
	require.NoError(t, CheckCall(StringCharCodeAt, a, nil))
	require.Error(t, CheckCall(StringCharCodeAt, f, []*circuit.Gate{i0}))

	/* the error names the builtin */
	err := CheckCall(ArrayPop, a, []*circuit.Gate{i0})
	require.Error(t, err)
	assert.Contains(t, err.Error(), NameOf(ArrayPop))
}

func TestStaticFeedback(t *testing.T) {
	id := BuiltinID(gofakeit.Number(0, NumBuiltins()-1))
	c := circuit.New("feedback")
	b := circuit.NewBuilder(c)
	g := b.Int64(1)
	h := b.Int64(2)
	fb := StaticFeedback{g.Id: id, h.Id: BuiltinNone}

	got, ok := fb.BuiltinOf(g)
	assert.True(t, ok)
	assert.Equal(t, id, got)

	_, ok = fb.BuiltinOf(h)
	assert.False(t, ok)
	_, ok = NoFeedback{}.BuiltinOf(g)
	assert.False(t, ok)
}

func TestCatalog_Stubs(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < NumStubs(); i++ {
		id := StubID(i)
		name := StubNameOf(id)
		require.NotEmpty(t, name)
		require.False(t, seen[name], name)
		seen[name] = true
	}
	assert.Equal(t, Trampoline, StubKindOf(CallGetterToBaseline))
	assert.Equal(t, RuntimeStub, StubKindOf(SuperCallSpread))
	assert.Equal(t, NoGCStub, StubKindOf(PushCallArgsAndDispatchNative))
}

func TestCatalog_HostFeatures(t *testing.T) {
	f := HostFeatures()
	spew.Dump(f)
	assert.Equal(t, f.Round, LowersToMachineOp(MathFloor, f))
	assert.Equal(t, f.Lzcnt, LowersToMachineOp(MathClz32, f))
	assert.True(t, LowersToMachineOp(MathSqrt, Features{}))
	assert.False(t, LowersToMachineOp(MapGet, Features{Round: true, Lzcnt: true}))
}

func TestCatalog_DetectFeatures(t *testing.T) {
	only := func(ids ...cpuid.FeatureID) func(...cpuid.FeatureID) bool {
		return func(want ...cpuid.FeatureID) bool {
			for _, w := range want {
				found := false
				for _, id := range ids {
					found = found || id == w
				}
				if !found {
					return false
				}
			}
			return true
		}
	}
	for _, tc := range []struct {
		arch string
		has  []cpuid.FeatureID
		want Features
	}{
		{"amd64", nil, Features{}},
		{"amd64", []cpuid.FeatureID{cpuid.SSE4}, Features{Round: true}},
		{"amd64", []cpuid.FeatureID{cpuid.LZCNT}, Features{Lzcnt: true}},
		{"amd64", []cpuid.FeatureID{cpuid.ASIMD}, Features{}},
		{"arm64", nil, Features{Lzcnt: true}},
		{"arm64", []cpuid.FeatureID{cpuid.FP, cpuid.ASIMD}, Features{Round: true, Lzcnt: true}},
		{"arm64", []cpuid.FeatureID{cpuid.SSE4, cpuid.LZCNT}, Features{Lzcnt: true}},
		{"riscv64", []cpuid.FeatureID{cpuid.FP, cpuid.SSE4, cpuid.LZCNT}, Features{}},
	} {
		assert.Equal(t, tc.want, detectFor(tc.arch, only(tc.has...)), "%s %v", tc.arch, tc.has)
	}

	/* every feature gates at least one builtin */
	assert.False(t, LowersToMachineOp(MathFloor, Features{Lzcnt: true}))
	assert.True(t, LowersToMachineOp(MathRound, Features{Round: true}))
	assert.False(t, LowersToMachineOp(MathClz32, Features{Round: true}))
	assert.True(t, LowersToMachineOp(MathClz32, Features{Lzcnt: true}))
}
