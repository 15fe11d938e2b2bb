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
)

func cat(parts ...[]Slot) []Slot {
	var ret []Slot
	for _, p := range parts {
		ret = append(ret, p...)
	}
	return ret
}

func fixedArgs(n int) []Slot {
	return []Slot{SlotArg0, SlotArg1, SlotArg2}[:n]
}

/** Native Dispatch **/

var _NativeHead = []Slot{SlotNativeCode, SlotGlue, SlotNumArgs, SlotFunc, SlotNewTarget}

type _NativeLayout struct{}

func (_NativeLayout) CallArgs(m *callmode.CallArgs) []Slot {
	return cat(_NativeHead, []Slot{SlotUndefined}, fixedArgs(len(m.Args)))
}

func (_NativeLayout) CallThisArgs(m *callmode.CallThisArgs) []Slot {
	return cat(_NativeHead, []Slot{SlotReceiver}, fixedArgs(len(m.Args)))
}

func (_NativeLayout) CallArgv(*callmode.CallArgv) []Slot {
	return []Slot{SlotGlue, SlotNativeCode, SlotFunc, SlotUndefined, SlotArgc, SlotArgv}
}

func (_NativeLayout) CallThisArgv(*callmode.CallThisArgv) []Slot {
	return []Slot{SlotGlue, SlotNativeCode, SlotFunc, SlotReceiver, SlotArgc, SlotArgv}
}

func (_NativeLayout) CallConstructor(*callmode.CallConstructor) []Slot {
	return []Slot{SlotGlue, SlotNativeCode, SlotFunc, SlotThisObj, SlotArgc, SlotArgv}
}

func (_NativeLayout) SuperCall(*callmode.SuperCall) []Slot {
	return []Slot{SlotGlue, SlotThisFunc, SlotArray, SlotArgcTagged}
}

func (_NativeLayout) SuperCallSpread(*callmode.SuperCallSpread) []Slot {
	return []Slot{SlotGlue, SlotThisFunc, SlotArray}
}

func (_NativeLayout) CallGetter(*callmode.CallGetter) []Slot {
	return cat(_NativeHead, []Slot{SlotReceiver})
}

func (_NativeLayout) CallSetter(*callmode.CallSetter) []Slot {
	return cat(_NativeHead, []Slot{SlotReceiver, SlotValue})
}

func (_NativeLayout) CallThisArg2WithReturn(*callmode.CallThisArg2WithReturn) []Slot {
	return cat(_NativeHead, []Slot{SlotReceiver, SlotArg0, SlotArg1})
}

func (_NativeLayout) CallThisArg3WithReturn(*callmode.CallThisArg3WithReturn) []Slot {
	return cat(_NativeHead, []Slot{SlotArgHandle, SlotValue, SlotKey, SlotReceiver})
}

func (_NativeLayout) CallThisArgvWithReturn(*callmode.CallThisArgvWithReturn) []Slot {
	return []Slot{SlotGlue, SlotNativeCode, SlotFunc, SlotReceiver, SlotArgc, SlotArgv}
}

/** AOT Entries **/

// _AotLayout lays out calls into compiled code. Fast-call entries take the
// callee and receiver first; standard entries are preceded by the argument
// count, a null stack pointer and new.target. Bridges to fast-call entries
// additionally carry the callee's declared argument count.
type _AotLayout struct {
	s Strategy
}

func (self _AotLayout) fixed(recv []Slot, args []Slot) []Slot {
	var head []Slot
	if self.s.isFastCall() {
		head = []Slot{SlotGlue, SlotFunc}
	} else {
		head = []Slot{SlotGlue, SlotNumArgs, SlotZeroPtr, SlotFunc, SlotNewTarget}
	}
	return self.tail(cat(head, recv, args))
}

func (self _AotLayout) argv(recv Slot, newTarget Slot) []Slot {
	if self.s.isFastCall() {
		return self.tail([]Slot{SlotGlue, SlotFunc, recv, SlotArgc, SlotArgv})
	} else {
		return self.tail([]Slot{SlotGlue, SlotArgc, SlotFunc, newTarget, recv, SlotArgv})
	}
}

func (self _AotLayout) tail(ret []Slot) []Slot {
	if self.s == FastBridge {
		ret = append(ret, SlotExpectedNum)
	}
	return ret
}

func (self _AotLayout) CallArgs(m *callmode.CallArgs) []Slot {
	return self.fixed([]Slot{SlotUndefined}, fixedArgs(len(m.Args)))
}

func (self _AotLayout) CallThisArgs(m *callmode.CallThisArgs) []Slot {
	return self.fixed([]Slot{SlotReceiver}, fixedArgs(len(m.Args)))
}

func (self _AotLayout) CallArgv(*callmode.CallArgv) []Slot {
	return self.argv(SlotUndefined, SlotNewTarget)
}

func (self _AotLayout) CallThisArgv(*callmode.CallThisArgv) []Slot {
	return self.argv(SlotReceiver, SlotNewTarget)
}

func (self _AotLayout) CallConstructor(*callmode.CallConstructor) []Slot {
	return self.argv(SlotThisObj, SlotFunc)
}

func (self _AotLayout) SuperCall(*callmode.SuperCall) []Slot {
	return self.argv(SlotThisObj, SlotSuperNewTarget)
}

func (self _AotLayout) SuperCallSpread(*callmode.SuperCallSpread) []Slot {
	return self.argv(SlotThisObj, SlotSuperNewTarget)
}

func (self _AotLayout) CallGetter(*callmode.CallGetter) []Slot {
	return self.fixed([]Slot{SlotReceiver}, nil)
}

func (self _AotLayout) CallSetter(*callmode.CallSetter) []Slot {
	return self.fixed([]Slot{SlotReceiver}, []Slot{SlotValue})
}

func (self _AotLayout) CallThisArg2WithReturn(*callmode.CallThisArg2WithReturn) []Slot {
	return self.fixed([]Slot{SlotReceiver}, []Slot{SlotArg0, SlotArg1})
}

func (self _AotLayout) CallThisArg3WithReturn(*callmode.CallThisArg3WithReturn) []Slot {
	return self.fixed(nil, []Slot{SlotArgHandle, SlotValue, SlotKey, SlotReceiver})
}

func (self _AotLayout) CallThisArgvWithReturn(*callmode.CallThisArgvWithReturn) []Slot {
	return self.argv(SlotReceiver, SlotNewTarget)
}

/** Interpreter Entries **/

var (
	_InterpHead     = []Slot{SlotGlue, SlotSP, SlotFunc, SlotMethod, SlotCallField}
	_InterpHeadNoSP = []Slot{SlotGlue, SlotFunc, SlotMethod, SlotCallField}
)

// _InterpLayout lays out interpreter trampolines. The receiver goes after
// the arguments.
type _InterpLayout struct{}

func (_InterpLayout) CallArgs(m *callmode.CallArgs) []Slot {
	return cat(_InterpHead, fixedArgs(len(m.Args)))
}

func (_InterpLayout) CallThisArgs(m *callmode.CallThisArgs) []Slot {
	return cat(_InterpHead, fixedArgs(len(m.Args)), []Slot{SlotReceiver})
}

func (_InterpLayout) CallArgv(*callmode.CallArgv) []Slot {
	return cat(_InterpHead, []Slot{SlotArgc, SlotArgv})
}

func (_InterpLayout) CallThisArgv(*callmode.CallThisArgv) []Slot {
	return cat(_InterpHead, []Slot{SlotArgc, SlotArgv, SlotReceiver})
}

func (_InterpLayout) CallConstructor(*callmode.CallConstructor) []Slot {
	return cat(_InterpHead, []Slot{SlotArgc, SlotArgv, SlotThisObj})
}

func (_InterpLayout) SuperCall(*callmode.SuperCall) []Slot {
	return cat(_InterpHead, []Slot{SlotArgc, SlotArgv, SlotThisObj, SlotSuperNewTarget})
}

func (_InterpLayout) SuperCallSpread(*callmode.SuperCallSpread) []Slot {
	return cat(_InterpHead, []Slot{SlotArgc, SlotArgv, SlotThisObj, SlotSuperNewTarget})
}

func (_InterpLayout) CallGetter(*callmode.CallGetter) []Slot {
	return cat(_InterpHeadNoSP, []Slot{SlotReceiver})
}

func (_InterpLayout) CallSetter(*callmode.CallSetter) []Slot {
	return cat(_InterpHeadNoSP, []Slot{SlotValue, SlotReceiver})
}

func (_InterpLayout) CallThisArg2WithReturn(*callmode.CallThisArg2WithReturn) []Slot {
	return cat(_InterpHeadNoSP, []Slot{SlotArg0, SlotArg1, SlotReceiver})
}

func (_InterpLayout) CallThisArg3WithReturn(*callmode.CallThisArg3WithReturn) []Slot {
	return cat(_InterpHeadNoSP, []Slot{SlotValue, SlotKey, SlotReceiver, SlotArgHandle})
}

func (_InterpLayout) CallThisArgvWithReturn(*callmode.CallThisArgvWithReturn) []Slot {
	return cat(_InterpHeadNoSP, []Slot{SlotArgc, SlotArgv, SlotReceiver})
}

/** Fast Builtins **/

// _BuiltinLayout lays out typed fast builtin stubs. Receiver modes always
// pass three argument slots, padded with undefined. Modes without a fast
// builtin path have no layout.
type _BuiltinLayout struct{}

func builtinArgs(args []Slot) []Slot {
	ret := []Slot{SlotGlue, SlotNativeCode, SlotFunc, SlotUndefined, SlotReceiver, SlotArgc}
	ret = append(ret, args...)
	for len(ret) < 9 {
		ret = append(ret, SlotUndefined)
	}
	return ret
}

func (_BuiltinLayout) CallArgs(*callmode.CallArgs) []Slot { return nil }

func (_BuiltinLayout) CallThisArgs(m *callmode.CallThisArgs) []Slot {
	return builtinArgs(fixedArgs(len(m.Args)))
}

func (_BuiltinLayout) CallArgv(*callmode.CallArgv) []Slot         { return nil }
func (_BuiltinLayout) CallThisArgv(*callmode.CallThisArgv) []Slot { return nil }

func (_BuiltinLayout) CallConstructor(*callmode.CallConstructor) []Slot {
	return []Slot{SlotGlue, SlotNativeCode, SlotFunc, SlotFunc, SlotUndefined, SlotArgc, SlotArgv}
}

func (_BuiltinLayout) SuperCall(*callmode.SuperCall) []Slot             { return nil }
func (_BuiltinLayout) SuperCallSpread(*callmode.SuperCallSpread) []Slot { return nil }
func (_BuiltinLayout) CallGetter(*callmode.CallGetter) []Slot           { return nil }
func (_BuiltinLayout) CallSetter(*callmode.CallSetter) []Slot           { return nil }

func (_BuiltinLayout) CallThisArg2WithReturn(*callmode.CallThisArg2WithReturn) []Slot {
	return builtinArgs([]Slot{SlotArg0, SlotArg1})
}

func (_BuiltinLayout) CallThisArg3WithReturn(*callmode.CallThisArg3WithReturn) []Slot { return nil }
func (_BuiltinLayout) CallThisArgvWithReturn(*callmode.CallThisArgvWithReturn) []Slot { return nil }

// ArgLayout returns the argument slots of a call in mode m reaching its
// callee through strategy s. The layout depends only on the mode variant,
// its fixed arity and the strategy.
func ArgLayout(m callmode.Mode, s Strategy) []Slot {
	var ret []Slot
	switch s {
	case Fast, FastBridge, Slow, SlowBridge:
		ret = callmode.Visit[[]Slot](m, _AotLayout{s})
	case Interpreter, Baseline:
		ret = callmode.Visit[[]Slot](m, _InterpLayout{})
	case Native:
		ret = callmode.Visit[[]Slot](m, _NativeLayout{})
	case FastBuiltin:
		ret = callmode.Visit[[]Slot](m, _BuiltinLayout{})
	default:
		panic(fmt.Sprintf("lowering: invalid strategy %d", uint8(s)))
	}
	if ret == nil {
		panic(fmt.Sprintf("lowering: %v has no %v layout", m.Kind(), s))
	}
	return ret
}
