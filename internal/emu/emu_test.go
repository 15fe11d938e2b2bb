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
package emu

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudwego/gatec/internal/catalog"
	"github.com/cloudwego/gatec/internal/circuit"
)

func TestEmu_Arithmetic(t *testing.T) {
	c := circuit.New("arith", circuit.I32, circuit.I32)
	b := circuit.NewBuilder(c)
	x, y := c.Param(0), c.Param(1)
	b.Return(b.Sub(b.Mul(x, y), b.Int32(1)))

	v, err := Run(c, Int(6), Int(7))
	require.NoError(t, err)
	assert.Equal(t, int64(41), v.Int())

	/* i32 arithmetic wraps */
	v, err = Run(c, Int(0), Int(0))
	require.NoError(t, err)
	assert.Equal(t, Value(0xffffffff), v)
}

func TestEmu_Branch(t *testing.T) {
	c := circuit.New("max", circuit.I64, circuit.I64)
	b := circuit.NewBuilder(c)
	x, y := c.Param(0), c.Param(1)
	tt, ff := b.Branch(b.ICmp(circuit.CondSgt, x, y))
	m := b.Merge(tt, ff)
	b.SetEnv(m, b.DependSelector(m, c.DependEntry(), c.DependEntry()))
	b.Return(b.ValueSelector(circuit.I64, circuit.IntType, m, x, y))

	for _, tc := range [][3]int64{{1, 2, 2}, {5, -3, 5}, {-7, -8, -7}} {
		v, err := Run(c, Int(tc[0]), Int(tc[1]))
		require.NoError(t, err)
		assert.Equal(t, tc[2], v.Int())
	}
}

func TestEmu_BuiltinOp(t *testing.T) {
	c := circuit.New("math", circuit.F64, circuit.F64)
	b := circuit.NewBuilder(c)
	x, y := c.Param(0), c.Param(1)
	sq := b.BuiltinOp(uint64(catalog.MathSqrt)|catalog.MachineOp, circuit.F64, circuit.DoubleType, x)
	b.Return(b.BuiltinOp(uint64(catalog.MathMax), circuit.F64, circuit.NumberType, sq, y))

	v, err := Run(c, Float(16), Float(3))
	require.NoError(t, err)
	assert.Equal(t, 4.0, v.Float())

	v, err = Run(c, Float(-1), Float(3))
	require.NoError(t, err)
	assert.True(t, math.IsNaN(v.Float()))
}

func TestEmu_Clz32(t *testing.T) {
	c := circuit.New("clz", circuit.I32)
	b := circuit.NewBuilder(c)
	b.Return(b.BuiltinOp(uint64(catalog.MathClz32), circuit.I32, circuit.IntType, c.Param(0)))

	v, err := Run(c, Int(1))
	require.NoError(t, err)
	assert.Equal(t, int64(31), v.Int())
}

func TestEmu_Errors(t *testing.T) {
	c := circuit.New("call", circuit.AnyValue)
	b := circuit.NewBuilder(c)
	b.Return(b.LoadField(circuit.FieldMethod, c.Param(0)))

	_, err := Run(c)
	assert.Error(t, err)
	_, err = Run(c, Int(1))
	assert.Error(t, err)
}

func TestEmu_StepLimit(t *testing.T) {
	c := circuit.New("spin")
	b := circuit.NewBuilder(c)
	h := b.LoopBegin(c.StateEntry())
	h.AppendIn(b.LoopBack(h))

	old := MaxSteps
	MaxSteps = 100
	defer func() { MaxSteps = old }()
	_, err := Run(c)
	assert.Error(t, err)
}
