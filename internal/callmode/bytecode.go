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
	"fmt"

	"github.com/cloudwego/gatec/internal/circuit"
)

// Bytecode is a call-site opcode of the upstream bytecode, carried as the
// static operand of a JS_BYTECODE gate.
type Bytecode uint16

const (
	CALLARG0 Bytecode = iota
	CALLARG1
	CALLARGS2
	CALLARGS3
	CALLTHIS0
	CALLTHIS1
	CALLTHIS2
	CALLTHIS3
	CALLRANGE
	WIDE_CALLRANGE
	CALLTHISRANGE
	WIDE_CALLTHISRANGE
	NEWOBJRANGE
	WIDE_NEWOBJRANGE
	SUPERCALLTHISRANGE
	WIDE_SUPERCALLTHISRANGE
	SUPERCALLARROWRANGE
	SUPERCALLSPREAD
	DEPRECATED_CALLARG0
	DEPRECATED_CALLARG1
	DEPRECATED_CALLARGS2
	DEPRECATED_CALLARGS3
	DEPRECATED_CALLRANGE
	DEPRECATED_CALLTHISRANGE
	DEPRECATED_NEWOBJRANGE
	CALLGETTER
	CALLSETTER
	CALLCONTAINER2
	CALLCONTAINER3
	CALLRETURNWITHARGV

	_BytecodeCount
)

type _Shape uint8

const (
	s_args _Shape = iota
	s_this_args
	s_range
	s_this_range
	s_new
	s_super
	s_super_spread
	s_getter
	s_setter
	s_container2
	s_container3
	s_return_argv
)

// CallInfo is the static classification of a call bytecode.
type CallInfo struct {
	Name       string
	Argc       int  // fixed argument count, -1 when derived from the operands
	HasThis    bool // the first value input is the receiver
	Extra      int  // operands between the callee and the frame state
	Deprecated bool
	shape      _Shape
}

var _CallInfos = [_BytecodeCount]CallInfo{
	CALLARG0:                 {Name: "CALLARG0", Argc: 0, shape: s_args},
	CALLARG1:                 {Name: "CALLARG1", Argc: 1, shape: s_args},
	CALLARGS2:                {Name: "CALLARGS2", Argc: 2, shape: s_args},
	CALLARGS3:                {Name: "CALLARGS3", Argc: 3, shape: s_args},
	CALLTHIS0:                {Name: "CALLTHIS0", Argc: 0, HasThis: true, shape: s_this_args},
	CALLTHIS1:                {Name: "CALLTHIS1", Argc: 1, HasThis: true, shape: s_this_args},
	CALLTHIS2:                {Name: "CALLTHIS2", Argc: 2, HasThis: true, shape: s_this_args},
	CALLTHIS3:                {Name: "CALLTHIS3", Argc: 3, HasThis: true, shape: s_this_args},
	CALLRANGE:                {Name: "CALLRANGE", Argc: -1, shape: s_range},
	WIDE_CALLRANGE:           {Name: "WIDE_CALLRANGE", Argc: -1, shape: s_range},
	CALLTHISRANGE:            {Name: "CALLTHISRANGE", Argc: -1, HasThis: true, shape: s_this_range},
	WIDE_CALLTHISRANGE:       {Name: "WIDE_CALLTHISRANGE", Argc: -1, HasThis: true, shape: s_this_range},
	NEWOBJRANGE:              {Name: "NEWOBJRANGE", Argc: -1, shape: s_new},
	WIDE_NEWOBJRANGE:         {Name: "WIDE_NEWOBJRANGE", Argc: -1, shape: s_new},
	SUPERCALLTHISRANGE:       {Name: "SUPERCALLTHISRANGE", Argc: -1, Extra: 2, shape: s_super},
	WIDE_SUPERCALLTHISRANGE:  {Name: "WIDE_SUPERCALLTHISRANGE", Argc: -1, Extra: 2, shape: s_super},
	SUPERCALLARROWRANGE:      {Name: "SUPERCALLARROWRANGE", Argc: -1, Extra: 2, shape: s_super},
	SUPERCALLSPREAD:          {Name: "SUPERCALLSPREAD", Argc: 1, Extra: 2, shape: s_super_spread},
	DEPRECATED_CALLARG0:      {Name: "DEPRECATED_CALLARG0", Argc: 0, Deprecated: true, shape: s_args},
	DEPRECATED_CALLARG1:      {Name: "DEPRECATED_CALLARG1", Argc: 1, Deprecated: true, shape: s_args},
	DEPRECATED_CALLARGS2:     {Name: "DEPRECATED_CALLARGS2", Argc: 2, Deprecated: true, shape: s_args},
	DEPRECATED_CALLARGS3:     {Name: "DEPRECATED_CALLARGS3", Argc: 3, Deprecated: true, shape: s_args},
	DEPRECATED_CALLRANGE:     {Name: "DEPRECATED_CALLRANGE", Argc: -1, Deprecated: true, shape: s_range},
	DEPRECATED_CALLTHISRANGE: {Name: "DEPRECATED_CALLTHISRANGE", Argc: -1, HasThis: true, Deprecated: true, shape: s_this_range},
	DEPRECATED_NEWOBJRANGE:   {Name: "DEPRECATED_NEWOBJRANGE", Argc: -1, Deprecated: true, shape: s_new},
	CALLGETTER:               {Name: "CALLGETTER", Argc: 0, HasThis: true, shape: s_getter},
	CALLSETTER:               {Name: "CALLSETTER", Argc: 1, HasThis: true, shape: s_setter},
	CALLCONTAINER2:           {Name: "CALLCONTAINER2", Argc: 2, HasThis: true, shape: s_container2},
	CALLCONTAINER3:           {Name: "CALLCONTAINER3", Argc: 3, HasThis: true, shape: s_container3},
	CALLRETURNWITHARGV:       {Name: "CALLRETURNWITHARGV", Argc: -1, HasThis: true, shape: s_return_argv},
}

func (self Bytecode) String() string {
	if self < _BytecodeCount {
		return _CallInfos[self].Name
	} else {
		return fmt.Sprintf("bytecode_%d", uint16(self))
	}
}

// Info returns the classification of a call bytecode.
func Info(op Bytecode) CallInfo {
	if op >= _BytecodeCount {
		panic(fmt.Sprintf("callmode: bytecode %d is not a call", uint16(op)))
	}
	return _CallInfos[op]
}

// IsCall reports whether op is a call bytecode.
func IsCall(op Bytecode) bool {
	return op < _BytecodeCount
}

// IsPlainCall reports call bytecodes that pass their arguments positionally
// to an ordinary function: no constructor, super, accessor or container
// semantics.
func IsPlainCall(op Bytecode) bool {
	if !IsCall(op) {
		return false
	}
	switch _CallInfos[op].shape {
	case s_args, s_this_args, s_range, s_this_range:
		return true
	default:
		return false
	}
}

// Layout of a JS_BYTECODE call gate's value inputs:
//
//	[this?] [args...] callee [extra...] frame_state
//
// where super calls carry (thisFunc, newTarget) as extra operands and a
// spread super call passes the spread array as its single argument.

// CallInfoOf returns the argument count and receiver presence of a call
// gate, resolving operand-derived counts.
func CallInfoOf(g *circuit.Gate) (argc int, hasThis bool) {
	info := Info(Bytecode(g.Static()))
	if argc = info.Argc; argc < 0 {
		argc = circuit.NumValueIn(g) - 2 - info.Extra
		if info.HasThis {
			argc--
		}
	}
	return argc, info.HasThis
}

// Callee returns the function value a call gate invokes.
func Callee(g *circuit.Gate) *circuit.Gate {
	argc, this := CallInfoOf(g)
	if this {
		return circuit.ValueIn(g, argc+1)
	} else {
		return circuit.ValueIn(g, argc)
	}
}

// Args returns the explicit arguments of a call gate, excluding the
// receiver.
func Args(g *circuit.Gate) []*circuit.Gate {
	argc, this := CallInfoOf(g)
	first := 0
	if this {
		first = 1
	}
	ret := make([]*circuit.Gate, argc)
	for i := range ret {
		ret[i] = circuit.ValueIn(g, first+i)
	}
	return ret
}

// Receiver returns the receiver of a call gate, or nil.
func Receiver(g *circuit.Gate) *circuit.Gate {
	if _, this := CallInfoOf(g); this {
		return circuit.ValueIn(g, 0)
	} else {
		return nil
	}
}

func extra(g *circuit.Gate, i int) *circuit.Gate {
	argc, this := CallInfoOf(g)
	if this {
		argc++
	}
	return circuit.ValueIn(g, argc+1+i)
}

// FromGate classifies a JS_BYTECODE gate. Argument arrays and constants
// are emitted through b.
func FromGate(b *circuit.Builder, g *circuit.Gate) Mode {
	if g.Op() != circuit.OP_js_bytecode {
		panic("callmode: not a call site: " + g.String())
	}
	info := Info(Bytecode(g.Static()))
	args := Args(g)
	this := Receiver(g)

	/* argument arrays for the argv based modes */
	argv := func() (*circuit.Gate, *circuit.Gate) {
		return b.Int64(int64(len(args))), b.PackArgv(args...)
	}

	switch info.shape {
	case s_args:
		return &CallArgs{Args: args, Deprecated: info.Deprecated}
	case s_this_args:
		return &CallThisArgs{This: this, Args: args}
	case s_range:
		argc, av := argv()
		return &CallArgv{Argc: argc, Argv: av, Deprecated: info.Deprecated}
	case s_this_range:
		argc, av := argv()
		return &CallThisArgv{This: this, Argc: argc, Argv: av, Deprecated: info.Deprecated}
	case s_new:
		argc, av := argv()
		return &CallConstructor{ThisObj: b.Undefined(), Argc: argc, Argv: av, Deprecated: info.Deprecated}
	case s_super:
		argc, av := argv()
		return &SuperCall{ThisFunc: extra(g, 0), Array: av, Argc: argc, Argv: av, ThisObj: b.Undefined(), NewTarget: extra(g, 1)}
	case s_super_spread:
		arr := args[0]
		argc := b.LoadField(circuit.FieldArrayLength, arr)
		data := b.LoadField(circuit.FieldArrayData, arr)
		return &SuperCallSpread{ThisFunc: extra(g, 0), Array: arr, Argc: argc, Argv: data, ThisObj: b.Undefined(), NewTarget: extra(g, 1)}
	case s_getter:
		return &CallGetter{Receiver: this}
	case s_setter:
		return &CallSetter{Receiver: this, Value: args[0]}
	case s_container2:
		return &CallThisArg2WithReturn{This: this, Arg0: args[0], Arg1: args[1]}
	case s_container3:
		return &CallThisArg3WithReturn{ArgHandle: args[0], Value: args[1], Key: args[2], This: this}
	case s_return_argv:
		argc, av := argv()
		return &CallThisArgvWithReturn{This: this, Argc: argc, Argv: av}
	default:
		panic("unreachable")
	}
}
