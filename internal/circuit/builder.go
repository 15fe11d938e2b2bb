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
	"math"
)

// Tagged value encodings shared by the lowering passes.
const (
	TaggedHole      = uint64(0x00)
	TaggedNull      = uint64(0x02)
	TaggedFalse     = uint64(0x06)
	TaggedTrue      = uint64(0x07)
	TaggedUndefined = uint64(0x0a)
	TaggedException = uint64(0x12)
	TaggedIntMark   = uint64(0xffff) << 48
)

// Builder emits gates into a circuit while tracking the current control and
// dependency position.
type Builder struct {
	c      *Circuit
	state  *Gate
	depend *Gate
}

// NewBuilder creates a builder positioned at the circuit entry.
func NewBuilder(c *Circuit) *Builder {
	return &Builder{c: c, state: c.StateEntry(), depend: c.DependEntry()}
}

func (self *Builder) Circuit() *Circuit { return self.c }
func (self *Builder) State() *Gate      { return self.state }
func (self *Builder) Depend() *Gate     { return self.depend }
func (self *Builder) Env() Outcome      { return Outcome{State: self.state, Depend: self.depend} }

// SetEnv moves the builder to a new control and dependency position.
func (self *Builder) SetEnv(state *Gate, depend *Gate) {
	self.state = state
	self.depend = depend
}

// Enter moves the builder into a branch arm, relaying the dependency chain.
func (self *Builder) Enter(arm *Gate) {
	self.depend = self.DependRelay(arm, self.depend)
	self.state = arm
}

/** Constants **/

func (self *Builder) Int32(v int32) *Gate {
	return self.c.Constant(I32, IntType, uint64(uint32(v)))
}

func (self *Builder) Int64(v int64) *Gate {
	return self.c.Constant(I64, IntType, uint64(v))
}

func (self *Builder) IntPtr(v int64) *Gate {
	return self.c.Constant(ArchWord, NJSValueType, uint64(v))
}

func (self *Builder) Double(v float64) *Gate {
	return self.c.Constant(F64, DoubleType, math.Float64bits(v))
}

func (self *Builder) NaN() *Gate {
	return self.Double(math.NaN())
}

func (self *Builder) Boolean(v bool) *Gate {
	if v {
		return self.c.Constant(I1, BooleanType, 1)
	} else {
		return self.c.Constant(I1, BooleanType, 0)
	}
}

func (self *Builder) Tagged(bits uint64) *Gate {
	return self.c.Constant(I64, TaggedValueType, bits)
}

func (self *Builder) Undefined() *Gate { return self.Tagged(TaggedUndefined) }
func (self *Builder) Hole() *Gate      { return self.Tagged(TaggedHole) }
func (self *Builder) Exception() *Gate { return self.Tagged(TaggedException) }

// TaggedInt returns the tagged representation of a small integer constant.
func (self *Builder) TaggedInt(v int32) *Gate {
	return self.Tagged(TaggedIntMark | uint64(uint32(v)))
}

/** Control **/

// Branch splits the current control into its true and false arms.
func (self *Builder) Branch(cond *Gate) (*Gate, *Gate) {
	br := self.c.NewGate(NewMeta(OP_if_branch, 0), NoValue, EmptyType, self.state, cond)
	t := self.c.NewGate(NewMeta(OP_if_true, 0), NoValue, EmptyType, br)
	f := self.c.NewGate(NewMeta(OP_if_false, 0), NoValue, EmptyType, br)
	return t, f
}

func (self *Builder) Merge(states ...*Gate) *Gate {
	return self.c.NewGate(NewMeta(OP_merge, 0, len(states)), NoValue, EmptyType, states...)
}

// LoopBegin opens a loop with its forward entry; back edges are appended
// later with AppendIn.
func (self *Builder) LoopBegin(entry *Gate) *Gate {
	return self.c.NewGate(NewMeta(OP_loop_begin, 0, 1), NoValue, EmptyType, entry)
}

func (self *Builder) LoopBack(state *Gate) *Gate {
	return self.c.NewGate(NewMeta(OP_loop_back, 0), NoValue, EmptyType, state)
}

func (self *Builder) LoopExit(state *Gate) *Gate {
	return self.c.NewGate(NewMeta(OP_loop_exit, 0), NoValue, EmptyType, state)
}

func (self *Builder) LoopExitValue(exit *Gate, v *Gate) *Gate {
	return self.c.NewGate(NewMeta(OP_loop_exit_value, 0), v.mt, v.gt, exit, v)
}

func (self *Builder) LoopExitDepend(exit *Gate, d *Gate) *Gate {
	return self.c.NewGate(NewMeta(OP_loop_exit_depend, 0), NoValue, EmptyType, exit, d)
}

func (self *Builder) IfSuccess(call *Gate) *Gate {
	return self.c.NewGate(NewMeta(OP_if_success, 0), NoValue, EmptyType, call)
}

func (self *Builder) IfException(call *Gate) *Gate {
	return self.c.NewGate(NewMeta(OP_if_exception, 0), NoValue, EmptyType, call)
}

// Return terminates the current control path with v.
func (self *Builder) Return(v *Gate) *Gate {
	return self.c.NewGate(NewMeta(OP_return, 0), NoValue, EmptyType, self.state, self.depend, v, self.c.ReturnList())
}

func (self *Builder) ReturnVoid() *Gate {
	return self.c.NewGate(NewMeta(OP_return_void, 0), NoValue, EmptyType, self.state, self.depend, self.c.ReturnList())
}

/** Dependency **/

func (self *Builder) DependRelay(state *Gate, depend *Gate) *Gate {
	return self.c.NewGate(NewMeta(OP_depend_relay, 0), NoValue, EmptyType, state, depend)
}

func (self *Builder) DependSelector(merge *Gate, deps ...*Gate) *Gate {
	ins := append([]*Gate{merge}, deps...)
	return self.c.NewGate(NewMeta(OP_depend_selector, 0, len(deps)), NoValue, EmptyType, ins...)
}

func (self *Builder) ValueSelector(mt MachineType, gt GateType, merge *Gate, vals ...*Gate) *Gate {
	ins := append([]*Gate{merge}, vals...)
	return self.c.NewGate(NewMeta(OP_value_selector, 0, len(vals)), mt, gt, ins...)
}

// Join merges several branch outcomes into the builder's position, returning
// the merge gate.
func (self *Builder) Join(arms ...Outcome) *Gate {
	if len(arms) == 1 {
		self.SetEnv(arms[0].State, arms[0].Depend)
		return arms[0].State
	}
	states := make([]*Gate, len(arms))
	depends := make([]*Gate, len(arms))
	for i, a := range arms {
		states[i], depends[i] = a.State, a.Depend
	}
	m := self.Merge(states...)
	self.SetEnv(m, self.DependSelector(m, depends...))
	return m
}

/** Values **/

func (self *Builder) Binary(op Opcode, mt MachineType, a *Gate, b *Gate) *Gate {
	return self.c.NewGate(NewMeta(op, 0), mt, a.gt, a, b)
}

func (self *Builder) Add(a *Gate, b *Gate) *Gate { return self.Binary(OP_add, a.mt, a, b) }
func (self *Builder) Sub(a *Gate, b *Gate) *Gate { return self.Binary(OP_sub, a.mt, a, b) }
func (self *Builder) Mul(a *Gate, b *Gate) *Gate { return self.Binary(OP_mul, a.mt, a, b) }

func (self *Builder) ICmp(cond Cond, a *Gate, b *Gate) *Gate {
	return self.c.NewGate(NewMeta(OP_icmp, uint64(cond)), I1, BooleanType, a, b)
}

func (self *Builder) FCmp(cond Cond, a *Gate, b *Gate) *Gate {
	return self.c.NewGate(NewMeta(OP_fcmp, uint64(cond)), I1, BooleanType, a, b)
}

func (self *Builder) ZExt(mt MachineType, v *Gate) *Gate {
	return self.c.NewGate(NewMeta(OP_zext, 0), mt, v.gt, v)
}

func (self *Builder) Trunc(mt MachineType, v *Gate) *Gate {
	return self.c.NewGate(NewMeta(OP_trunc, 0), mt, v.gt, v)
}

// LoadField reads a property of a function object.
func (self *Builder) LoadField(f Field, fn *Gate) *Gate {
	switch f {
	case FieldExpectedArgc, FieldBuiltinID, FieldArrayLength:
		return self.c.NewGate(NewMeta(OP_load_field, uint64(f)), I64, IntType, fn)
	case FieldIsNative, FieldIsFastBuiltin, FieldHasAotFastCall, FieldHasAot, FieldIsClassConstructor, FieldGCState:
		return self.c.NewGate(NewMeta(OP_load_field, uint64(f)), I1, BooleanType, fn)
	case FieldMethod, FieldCallField, FieldNativeCode, FieldCodeEntry, FieldArrayData, FieldFrameSP:
		return self.c.NewGate(NewMeta(OP_load_field, uint64(f)), ArchWord, NJSValueType, fn)
	default:
		return self.c.NewGate(NewMeta(OP_load_field, uint64(f)), I64, TaggedValueType, fn)
	}
}

func (self *Builder) TypeTest(kind TypeKind, v *Gate) *Gate {
	return self.c.NewGate(NewMeta(OP_type_test, uint64(kind)), I1, BooleanType, v)
}

func (self *Builder) CallTargetTest(id uint64, fn *Gate) *Gate {
	return self.c.NewGate(NewMeta(OP_call_target_test, id), I1, BooleanType, fn)
}

// HasPendingException tests the thread's pending exception slot after the
// current dependency.
func (self *Builder) HasPendingException() *Gate {
	return self.c.NewGate(NewMeta(OP_has_pending_exception, 0), I1, BooleanType, self.depend, self.c.Glue())
}

func (self *Builder) PackArgv(vals ...*Gate) *Gate {
	return self.c.NewGate(NewMeta(OP_pack_argv, 0, len(vals)), ArchWord, NJSValueType, vals...)
}

func (self *Builder) FrameState(pc uint64, vals ...*Gate) *Gate {
	return self.c.NewGate(NewMeta(OP_frame_state, pc, len(vals)), NoValue, EmptyType, vals...)
}

/** Calls and guards **/

// Call emits a lowered call chained on the current dependency.
func (self *Builder) Call(op Opcode, static uint64, mt MachineType, gt GateType, args ...*Gate) *Gate {
	ins := append([]*Gate{self.depend}, args...)
	ret := self.c.NewGate(NewMeta(op, static, len(args)), mt, gt, ins...)
	self.depend = ret
	return ret
}

// BuiltinOp emits an inlined builtin operation chained on the current
// dependency. The static operand carries the builtin id and feature bits.
func (self *Builder) BuiltinOp(static uint64, mt MachineType, gt GateType, args ...*Gate) *Gate {
	return self.Call(OP_builtin_op, static, mt, gt, args...)
}

// DeoptCheck guards the current position with cond; a false condition
// deoptimizes to frameState.
func (self *Builder) DeoptCheck(cond *Gate, frameState *Gate, reason DeoptReason) *Gate {
	ret := self.c.NewGate(NewMeta(OP_deopt_check, uint64(reason)), NoValue, EmptyType, self.state, self.depend, cond, frameState)
	self.depend = ret
	return ret
}

// JSBytecode emits a high-level call site at the current position. The last
// argument must be its frame state.
func (self *Builder) JSBytecode(op uint64, args ...*Gate) *Gate {
	ins := append([]*Gate{self.state, self.depend}, args...)
	ret := self.c.NewGate(NewMeta(OP_js_bytecode, op, len(args)), I64, AnyType, ins...)
	self.state = ret
	self.depend = ret
	return ret
}
