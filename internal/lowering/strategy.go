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
)

// Strategy is the way a lowered call reaches its callee.
type Strategy uint8

const (
	Fast        Strategy = iota // AOT fast-call entry, arity matches
	FastBridge                  // AOT fast-call entry behind an arity adapting bridge
	Slow                        // AOT standard entry, arity matches
	SlowBridge                  // AOT standard entry behind an arity adapting bridge
	Interpreter                 // interpreter trampoline
	Baseline                    // interpreter trampoline that may enter baseline code
	Native                      // native function dispatch
	FastBuiltin                 // typed fast builtin stub

	_StrategyCount
)

var _StrategyNames = [_StrategyCount]string{
	Fast:        "fast",
	FastBridge:  "fast_bridge",
	Slow:        "slow",
	SlowBridge:  "slow_bridge",
	Interpreter: "interpreter",
	Baseline:    "baseline",
	Native:      "native",
	FastBuiltin: "fast_builtin",
}

func (self Strategy) String() string {
	if self < _StrategyCount {
		return _StrategyNames[self]
	} else {
		return fmt.Sprintf("strategy_%d", uint8(self))
	}
}

func (self Strategy) isAot() bool {
	return self <= SlowBridge
}

func (self Strategy) isFastCall() bool {
	return self == Fast || self == FastBridge
}

// Slot is a symbolic argument position of a lowered call. A layout is a
// list of slots; each call site maps slots to concrete gates.
//
// SlotNewTarget is undefined outside of super calls, which pass their own
// new.target through SlotSuperNewTarget. SlotArgc is the actual argument
// count and SlotNumArgs adds the implicit slots to it.
type Slot uint8

const (
	SlotGlue Slot = iota
	SlotFunc
	SlotNewTarget
	SlotSuperNewTarget
	SlotUndefined
	SlotReceiver
	SlotThisObj
	SlotThisFunc
	SlotArray
	SlotArgc
	SlotArgcTagged
	SlotNumArgs
	SlotArgv
	SlotArg0
	SlotArg1
	SlotArg2
	SlotValue
	SlotKey
	SlotArgHandle
	SlotZeroPtr
	SlotNativeCode
	SlotExpectedNum
	SlotSP
	SlotMethod
	SlotCallField

	_SlotCount
)

var _SlotNames = [_SlotCount]string{
	SlotGlue:           "glue",
	SlotFunc:           "func",
	SlotNewTarget:      "new_target",
	SlotSuperNewTarget: "super_new_target",
	SlotUndefined:      "undefined",
	SlotReceiver:       "this",
	SlotThisObj:        "this_obj",
	SlotThisFunc:       "this_func",
	SlotArray:          "array",
	SlotArgc:           "argc",
	SlotArgcTagged:     "argc_tagged",
	SlotNumArgs:        "num_args",
	SlotArgv:           "argv",
	SlotArg0:           "arg0",
	SlotArg1:           "arg1",
	SlotArg2:           "arg2",
	SlotValue:          "value",
	SlotKey:            "key",
	SlotArgHandle:      "arg_handle",
	SlotZeroPtr:        "null_ptr",
	SlotNativeCode:     "native_code",
	SlotExpectedNum:    "expected_num",
	SlotSP:             "sp",
	SlotMethod:         "method",
	SlotCallField:      "call_field",
}

func (self Slot) String() string {
	if self < _SlotCount {
		return _SlotNames[self]
	} else {
		return fmt.Sprintf("slot_%d", uint8(self))
	}
}

// ImplicitArgs is the number of implicit slots (callee, new.target and
// receiver) counted in SlotNumArgs.
const ImplicitArgs = 3
