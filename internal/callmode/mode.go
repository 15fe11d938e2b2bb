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

// Kind names every call mode the runtime understands.
type Kind uint8

const (
	CALL_ARG0 Kind = iota
	CALL_ARG1
	CALL_ARG2
	CALL_ARG3
	CALL_THIS_ARG0
	CALL_THIS_ARG1
	CALL_THIS_ARG2
	CALL_THIS_ARG3
	CALL_WITH_ARGV
	CALL_THIS_WITH_ARGV
	CALL_CONSTRUCTOR_WITH_ARGV
	SUPER_CALL_WITH_ARGV
	SUPER_CALL_SPREAD_WITH_ARGV
	CALL_GETTER
	CALL_SETTER
	CALL_THIS_ARG2_WITH_RETURN
	CALL_THIS_ARG3_WITH_RETURN
	CALL_THIS_ARGV_WITH_RETURN
	DEPRECATED_CALL_ARG0
	DEPRECATED_CALL_ARG1
	DEPRECATED_CALL_ARG2
	DEPRECATED_CALL_ARG3
	DEPRECATED_CALL_WITH_ARGV
	DEPRECATED_CALL_THIS_WITH_ARGV
	DEPRECATED_CALL_CONSTRUCTOR_WITH_ARGV

	_KindCount
)

var _KindNames = [_KindCount]string{
	CALL_ARG0:                             "CALL_ARG0",
	CALL_ARG1:                             "CALL_ARG1",
	CALL_ARG2:                             "CALL_ARG2",
	CALL_ARG3:                             "CALL_ARG3",
	CALL_THIS_ARG0:                        "CALL_THIS_ARG0",
	CALL_THIS_ARG1:                        "CALL_THIS_ARG1",
	CALL_THIS_ARG2:                        "CALL_THIS_ARG2",
	CALL_THIS_ARG3:                        "CALL_THIS_ARG3",
	CALL_WITH_ARGV:                        "CALL_WITH_ARGV",
	CALL_THIS_WITH_ARGV:                   "CALL_THIS_WITH_ARGV",
	CALL_CONSTRUCTOR_WITH_ARGV:            "CALL_CONSTRUCTOR_WITH_ARGV",
	SUPER_CALL_WITH_ARGV:                  "SUPER_CALL_WITH_ARGV",
	SUPER_CALL_SPREAD_WITH_ARGV:           "SUPER_CALL_SPREAD_WITH_ARGV",
	CALL_GETTER:                           "CALL_GETTER",
	CALL_SETTER:                           "CALL_SETTER",
	CALL_THIS_ARG2_WITH_RETURN:            "CALL_THIS_ARG2_WITH_RETURN",
	CALL_THIS_ARG3_WITH_RETURN:            "CALL_THIS_ARG3_WITH_RETURN",
	CALL_THIS_ARGV_WITH_RETURN:            "CALL_THIS_ARGV_WITH_RETURN",
	DEPRECATED_CALL_ARG0:                  "DEPRECATED_CALL_ARG0",
	DEPRECATED_CALL_ARG1:                  "DEPRECATED_CALL_ARG1",
	DEPRECATED_CALL_ARG2:                  "DEPRECATED_CALL_ARG2",
	DEPRECATED_CALL_ARG3:                  "DEPRECATED_CALL_ARG3",
	DEPRECATED_CALL_WITH_ARGV:             "DEPRECATED_CALL_WITH_ARGV",
	DEPRECATED_CALL_THIS_WITH_ARGV:        "DEPRECATED_CALL_THIS_WITH_ARGV",
	DEPRECATED_CALL_CONSTRUCTOR_WITH_ARGV: "DEPRECATED_CALL_CONSTRUCTOR_WITH_ARGV",
}

func (self Kind) String() string {
	if self < _KindCount {
		return _KindNames[self]
	} else {
		return fmt.Sprintf("callmode_%d", uint8(self))
	}
}

// Mode is a classified call site together with the operands its calling
// convention needs. The set of variants is closed; consumers match on it
// through Visitor.
type Mode interface {
	Kind() Kind
	mode()
}

// CallArgs passes 0 to 3 arguments with an undefined receiver.
type CallArgs struct {
	Args       []*circuit.Gate
	Deprecated bool
}

// CallThisArgs passes a receiver and 0 to 3 arguments.
type CallThisArgs struct {
	This *circuit.Gate
	Args []*circuit.Gate
}

// CallArgv passes an argument array with an undefined receiver.
type CallArgv struct {
	Argc       *circuit.Gate
	Argv       *circuit.Gate
	Deprecated bool
}

// CallThisArgv passes a receiver and an argument array.
type CallThisArgv struct {
	This       *circuit.Gate
	Argc       *circuit.Gate
	Argv       *circuit.Gate
	Deprecated bool
}

// CallConstructor invokes a function with `new`.
type CallConstructor struct {
	ThisObj    *circuit.Gate
	Argc       *circuit.Gate
	Argv       *circuit.Gate
	Deprecated bool
}

// SuperCall invokes the parent constructor with an argument array.
type SuperCall struct {
	ThisFunc  *circuit.Gate
	Array     *circuit.Gate
	Argc      *circuit.Gate
	Argv      *circuit.Gate
	ThisObj   *circuit.Gate
	NewTarget *circuit.Gate
}

// SuperCallSpread invokes the parent constructor with a spread array.
type SuperCallSpread struct {
	ThisFunc  *circuit.Gate
	Array     *circuit.Gate
	Argc      *circuit.Gate
	Argv      *circuit.Gate
	ThisObj   *circuit.Gate
	NewTarget *circuit.Gate
}

// CallGetter invokes an accessor getter.
type CallGetter struct {
	Receiver *circuit.Gate
}

// CallSetter invokes an accessor setter.
type CallSetter struct {
	Receiver *circuit.Gate
	Value    *circuit.Gate
}

// CallThisArg2WithReturn is a container helper call with two arguments
// whose result is returned to the helper's caller.
type CallThisArg2WithReturn struct {
	This *circuit.Gate
	Arg0 *circuit.Gate
	Arg1 *circuit.Gate
}

// CallThisArg3WithReturn is a container helper call carrying an argument
// handle, a value and a key.
type CallThisArg3WithReturn struct {
	ArgHandle *circuit.Gate
	Value     *circuit.Gate
	Key       *circuit.Gate
	This      *circuit.Gate
}

// CallThisArgvWithReturn is a helper call with an argument array whose
// result is returned to the helper's caller.
type CallThisArgvWithReturn struct {
	This *circuit.Gate
	Argc *circuit.Gate
	Argv *circuit.Gate
}

func (*CallArgs) mode()               {}
func (*CallThisArgs) mode()           {}
func (*CallArgv) mode()               {}
func (*CallThisArgv) mode()           {}
func (*CallConstructor) mode()        {}
func (*SuperCall) mode()              {}
func (*SuperCallSpread) mode()        {}
func (*CallGetter) mode()             {}
func (*CallSetter) mode()             {}
func (*CallThisArg2WithReturn) mode() {}
func (*CallThisArg3WithReturn) mode() {}
func (*CallThisArgvWithReturn) mode() {}

func (self *CallArgs) Kind() Kind {
	checkFixed(len(self.Args))
	if self.Deprecated {
		return DEPRECATED_CALL_ARG0 + Kind(len(self.Args))
	} else {
		return CALL_ARG0 + Kind(len(self.Args))
	}
}

func (self *CallThisArgs) Kind() Kind {
	checkFixed(len(self.Args))
	return CALL_THIS_ARG0 + Kind(len(self.Args))
}

func (self *CallArgv) Kind() Kind {
	if self.Deprecated {
		return DEPRECATED_CALL_WITH_ARGV
	} else {
		return CALL_WITH_ARGV
	}
}

func (self *CallThisArgv) Kind() Kind {
	if self.Deprecated {
		return DEPRECATED_CALL_THIS_WITH_ARGV
	} else {
		return CALL_THIS_WITH_ARGV
	}
}

func (self *CallConstructor) Kind() Kind {
	if self.Deprecated {
		return DEPRECATED_CALL_CONSTRUCTOR_WITH_ARGV
	} else {
		return CALL_CONSTRUCTOR_WITH_ARGV
	}
}

func (*SuperCall) Kind() Kind              { return SUPER_CALL_WITH_ARGV }
func (*SuperCallSpread) Kind() Kind        { return SUPER_CALL_SPREAD_WITH_ARGV }
func (*CallGetter) Kind() Kind             { return CALL_GETTER }
func (*CallSetter) Kind() Kind             { return CALL_SETTER }
func (*CallThisArg2WithReturn) Kind() Kind { return CALL_THIS_ARG2_WITH_RETURN }
func (*CallThisArg3WithReturn) Kind() Kind { return CALL_THIS_ARG3_WITH_RETURN }
func (*CallThisArgvWithReturn) Kind() Kind { return CALL_THIS_ARGV_WITH_RETURN }

func checkFixed(n int) {
	if n > 3 {
		panic(fmt.Sprintf("callmode: %d fixed arguments, at most 3 allowed", n))
	}
}

// Visitor has one method per call mode variant. Adding a variant adds a
// method here, which breaks every consumer until it handles the new mode.
type Visitor[T any] interface {
	CallArgs(m *CallArgs) T
	CallThisArgs(m *CallThisArgs) T
	CallArgv(m *CallArgv) T
	CallThisArgv(m *CallThisArgv) T
	CallConstructor(m *CallConstructor) T
	SuperCall(m *SuperCall) T
	SuperCallSpread(m *SuperCallSpread) T
	CallGetter(m *CallGetter) T
	CallSetter(m *CallSetter) T
	CallThisArg2WithReturn(m *CallThisArg2WithReturn) T
	CallThisArg3WithReturn(m *CallThisArg3WithReturn) T
	CallThisArgvWithReturn(m *CallThisArgvWithReturn) T
}

// Visit dispatches m to the matching method of v.
func Visit[T any](m Mode, v Visitor[T]) T {
	switch m := m.(type) {
	case *CallArgs:
		return v.CallArgs(m)
	case *CallThisArgs:
		return v.CallThisArgs(m)
	case *CallArgv:
		return v.CallArgv(m)
	case *CallThisArgv:
		return v.CallThisArgv(m)
	case *CallConstructor:
		return v.CallConstructor(m)
	case *SuperCall:
		return v.SuperCall(m)
	case *SuperCallSpread:
		return v.SuperCallSpread(m)
	case *CallGetter:
		return v.CallGetter(m)
	case *CallSetter:
		return v.CallSetter(m)
	case *CallThisArg2WithReturn:
		return v.CallThisArg2WithReturn(m)
	case *CallThisArg3WithReturn:
		return v.CallThisArg3WithReturn(m)
	case *CallThisArgvWithReturn:
		return v.CallThisArgvWithReturn(m)
	default:
		panic(fmt.Sprintf("callmode: unknown call mode %T", m))
	}
}
