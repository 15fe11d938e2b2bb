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
package lowering

import (
	"fmt"

	"github.com/cloudwego/gatec/internal/callmode"
	"github.com/cloudwego/gatec/internal/circuit"
)

// _Fields are the mode operands a layout may refer to. Fixed arity modes
// leave argc and argv nil.
type _Fields struct {
	args      []*circuit.Gate
	receiver  *circuit.Gate
	thisObj   *circuit.Gate
	thisFunc  *circuit.Gate
	array     *circuit.Gate
	argc      *circuit.Gate
	argv      *circuit.Gate
	newTarget *circuit.Gate
	value     *circuit.Gate
	key       *circuit.Gate
	argHandle *circuit.Gate
}

type _FieldsOf struct{}

func (_FieldsOf) CallArgs(m *callmode.CallArgs) _Fields {
	return _Fields{args: m.Args}
}

func (_FieldsOf) CallThisArgs(m *callmode.CallThisArgs) _Fields {
	return _Fields{args: m.Args, receiver: m.This}
}

func (_FieldsOf) CallArgv(m *callmode.CallArgv) _Fields {
	return _Fields{argc: m.Argc, argv: m.Argv}
}

func (_FieldsOf) CallThisArgv(m *callmode.CallThisArgv) _Fields {
	return _Fields{receiver: m.This, argc: m.Argc, argv: m.Argv}
}

func (_FieldsOf) CallConstructor(m *callmode.CallConstructor) _Fields {
	return _Fields{thisObj: m.ThisObj, argc: m.Argc, argv: m.Argv}
}

func (_FieldsOf) SuperCall(m *callmode.SuperCall) _Fields {
	return _Fields{
		thisFunc:  m.ThisFunc,
		array:     m.Array,
		argc:      m.Argc,
		argv:      m.Argv,
		thisObj:   m.ThisObj,
		newTarget: m.NewTarget,
	}
}

func (_FieldsOf) SuperCallSpread(m *callmode.SuperCallSpread) _Fields {
	return _Fields{
		thisFunc:  m.ThisFunc,
		array:     m.Array,
		argc:      m.Argc,
		argv:      m.Argv,
		thisObj:   m.ThisObj,
		newTarget: m.NewTarget,
	}
}

func (_FieldsOf) CallGetter(m *callmode.CallGetter) _Fields {
	return _Fields{receiver: m.Receiver}
}

func (_FieldsOf) CallSetter(m *callmode.CallSetter) _Fields {
	return _Fields{receiver: m.Receiver, value: m.Value}
}

func (_FieldsOf) CallThisArg2WithReturn(m *callmode.CallThisArg2WithReturn) _Fields {
	return _Fields{receiver: m.This, args: []*circuit.Gate{m.Arg0, m.Arg1}}
}

func (_FieldsOf) CallThisArg3WithReturn(m *callmode.CallThisArg3WithReturn) _Fields {
	return _Fields{argHandle: m.ArgHandle, value: m.Value, key: m.Key, receiver: m.This}
}

func (_FieldsOf) CallThisArgvWithReturn(m *callmode.CallThisArgvWithReturn) _Fields {
	return _Fields{receiver: m.This, argc: m.Argc, argv: m.Argv}
}

// _Operands maps layout slots of one call site to gates. Loads of callee
// properties are floating and shared by every path of the dispatch.
type _Operands struct {
	b      *circuit.Builder
	mode   callmode.Mode
	fn     *circuit.Gate
	fields _Fields
	native *circuit.Gate
	expect *circuit.Gate
	loads  map[_LoadKey]*circuit.Gate
}

type _LoadKey struct {
	field circuit.Field
	base  *circuit.Gate
}

func newOperands(b *circuit.Builder, m callmode.Mode, fn *circuit.Gate) *_Operands {
	return &_Operands{
		b:      b,
		mode:   m,
		fn:     fn,
		fields: callmode.Visit[_Fields](m, _FieldsOf{}),
		loads:  make(map[_LoadKey]*circuit.Gate),
	}
}

func (self *_Operands) load(f circuit.Field, v *circuit.Gate) *circuit.Gate {
	k := _LoadKey{f, v}
	if g, ok := self.loads[k]; ok {
		return g
	}
	g := self.b.LoadField(f, v)
	self.loads[k] = g
	return g
}

func (self *_Operands) argc() *circuit.Gate {
	if self.fields.argc != nil {
		return self.fields.argc
	} else {
		return self.b.Int64(int64(len(self.fields.args)))
	}
}

// numArgs is the argument count including the implicit slots.
func (self *_Operands) numArgs() *circuit.Gate {
	if self.fields.argc != nil {
		return self.b.Add(self.fields.argc, self.b.Int64(ImplicitArgs))
	} else {
		return self.b.Int64(int64(len(self.fields.args) + ImplicitArgs))
	}
}

func (self *_Operands) must(g *circuit.Gate, s Slot) *circuit.Gate {
	if g == nil {
		panic(fmt.Sprintf("lowering: slot %v is not available in %v", s, self.mode.Kind()))
	}
	return g
}

func (self *_Operands) arg(i int, s Slot) *circuit.Gate {
	if i >= len(self.fields.args) {
		panic(fmt.Sprintf("lowering: slot %v is not available in %v", s, self.mode.Kind()))
	}
	return self.fields.args[i]
}

// Slot materializes a single slot.
func (self *_Operands) Slot(s Slot) *circuit.Gate {
	c := self.b.Circuit()
	switch s {
	case SlotGlue:
		return c.Glue()
	case SlotFunc:
		return self.fn
	case SlotNewTarget, SlotUndefined:
		return self.b.Undefined()
	case SlotSuperNewTarget:
		return self.must(self.fields.newTarget, s)
	case SlotReceiver:
		return self.must(self.fields.receiver, s)
	case SlotThisObj:
		return self.must(self.fields.thisObj, s)
	case SlotThisFunc:
		return self.must(self.fields.thisFunc, s)
	case SlotArray:
		return self.must(self.fields.array, s)
	case SlotArgc:
		return self.argc()
	case SlotArgcTagged:
		return self.b.Binary(circuit.OP_or, circuit.I64, self.argc(), c.Constant(circuit.I64, circuit.IntType, circuit.TaggedIntMark))
	case SlotNumArgs:
		return self.numArgs()
	case SlotArgv:
		return self.must(self.fields.argv, s)
	case SlotArg0:
		return self.arg(0, s)
	case SlotArg1:
		return self.arg(1, s)
	case SlotArg2:
		return self.arg(2, s)
	case SlotValue:
		return self.must(self.fields.value, s)
	case SlotKey:
		return self.must(self.fields.key, s)
	case SlotArgHandle:
		return self.must(self.fields.argHandle, s)
	case SlotZeroPtr:
		return self.b.IntPtr(0)
	case SlotNativeCode:
		return self.must(self.native, s)
	case SlotExpectedNum:
		return self.must(self.expect, s)
	case SlotSP:
		return self.load(circuit.FieldFrameSP, c.Glue())
	case SlotMethod:
		return self.load(circuit.FieldMethod, self.fn)
	case SlotCallField:
		return self.load(circuit.FieldCallField, self.fn)
	default:
		panic(fmt.Sprintf("lowering: invalid slot %d", uint8(s)))
	}
}

// Materialize maps every slot of a layout to its gate.
func (self *_Operands) Materialize(layout []Slot) []*circuit.Gate {
	ret := make([]*circuit.Gate, len(layout))
	for i, s := range layout {
		ret[i] = self.Slot(s)
	}
	return ret
}
