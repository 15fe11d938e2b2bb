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
	"github.com/cloudwego/gatec/internal/catalog"
	"github.com/cloudwego/gatec/internal/circuit"
)

// NoStub marks targets that call compiled code directly.
const NoStub = ^catalog.StubID(0)

// Target is the opcode and stub of a lowered call.
type Target struct {
	Op   circuit.Opcode
	Stub catalog.StubID
}

func (self Target) String() string {
	if self.Stub == NoStub {
		return self.Op.String()
	} else {
		return fmt.Sprintf("%s(%s)", self.Op, self.Stub)
	}
}

func stubTarget(id catalog.StubID) Target {
	switch catalog.StubKindOf(id) {
	case catalog.RuntimeStub:
		return Target{Op: circuit.OP_runtime_call, Stub: id}
	case catalog.NoGCStub:
		return Target{Op: circuit.OP_nogc_runtime_call, Stub: id}
	case catalog.Trampoline:
		return Target{Op: circuit.OP_call, Stub: id}
	case catalog.BuiltinsStub:
		return Target{Op: circuit.OP_builtins_call, Stub: id}
	default:
		panic("unreachable")
	}
}

var _InterpStubs = [...]catalog.StubID{
	callmode.CALL_ARG0:                             catalog.PushCallArg0AndDispatch,
	callmode.CALL_ARG1:                             catalog.PushCallArg1AndDispatch,
	callmode.CALL_ARG2:                             catalog.PushCallArgs2AndDispatch,
	callmode.CALL_ARG3:                             catalog.PushCallArgs3AndDispatch,
	callmode.CALL_THIS_ARG0:                        catalog.PushCallThisArg0AndDispatch,
	callmode.CALL_THIS_ARG1:                        catalog.PushCallThisArg1AndDispatch,
	callmode.CALL_THIS_ARG2:                        catalog.PushCallThisArgs2AndDispatch,
	callmode.CALL_THIS_ARG3:                        catalog.PushCallThisArgs3AndDispatch,
	callmode.CALL_WITH_ARGV:                        catalog.PushCallRangeAndDispatch,
	callmode.CALL_THIS_WITH_ARGV:                   catalog.PushCallThisRangeAndDispatch,
	callmode.CALL_CONSTRUCTOR_WITH_ARGV:            catalog.PushCallNewAndDispatch,
	callmode.SUPER_CALL_WITH_ARGV:                  catalog.PushSuperCallAndDispatch,
	callmode.SUPER_CALL_SPREAD_WITH_ARGV:           catalog.PushSuperCallAndDispatch,
	callmode.CALL_GETTER:                           catalog.CallGetter,
	callmode.CALL_SETTER:                           catalog.CallSetter,
	callmode.CALL_THIS_ARG2_WITH_RETURN:            catalog.CallContainersArgs2,
	callmode.CALL_THIS_ARG3_WITH_RETURN:            catalog.CallContainersArgs3,
	callmode.CALL_THIS_ARGV_WITH_RETURN:            catalog.CallReturnWithArgv,
	callmode.DEPRECATED_CALL_ARG0:                  catalog.PushCallArg0AndDispatch,
	callmode.DEPRECATED_CALL_ARG1:                  catalog.PushCallArg1AndDispatch,
	callmode.DEPRECATED_CALL_ARG2:                  catalog.PushCallArgs2AndDispatch,
	callmode.DEPRECATED_CALL_ARG3:                  catalog.PushCallArgs3AndDispatch,
	callmode.DEPRECATED_CALL_WITH_ARGV:             catalog.PushCallRangeAndDispatch,
	callmode.DEPRECATED_CALL_THIS_WITH_ARGV:        catalog.PushCallThisRangeAndDispatch,
	callmode.DEPRECATED_CALL_CONSTRUCTOR_WITH_ARGV: catalog.PushCallNewAndDispatch,
}

var _BaselineStubs = [...]catalog.StubID{
	callmode.CALL_ARG0:                             catalog.CallArg0AndCheckToBaseline,
	callmode.CALL_ARG1:                             catalog.CallArg1AndCheckToBaseline,
	callmode.CALL_ARG2:                             catalog.CallArgs2AndCheckToBaseline,
	callmode.CALL_ARG3:                             catalog.CallArgs3AndCheckToBaseline,
	callmode.CALL_THIS_ARG0:                        catalog.CallThisArg0AndCheckToBaseline,
	callmode.CALL_THIS_ARG1:                        catalog.CallThisArg1AndCheckToBaseline,
	callmode.CALL_THIS_ARG2:                        catalog.CallThisArgs2AndCheckToBaseline,
	callmode.CALL_THIS_ARG3:                        catalog.CallThisArgs3AndCheckToBaseline,
	callmode.CALL_WITH_ARGV:                        catalog.CallRangeAndCheckToBaseline,
	callmode.CALL_THIS_WITH_ARGV:                   catalog.CallThisRangeAndCheckToBaseline,
	callmode.CALL_CONSTRUCTOR_WITH_ARGV:            catalog.CallNewAndCheckToBaseline,
	callmode.SUPER_CALL_WITH_ARGV:                  catalog.SuperCallAndCheckToBaseline,
	callmode.SUPER_CALL_SPREAD_WITH_ARGV:           catalog.SuperCallAndCheckToBaseline,
	callmode.CALL_GETTER:                           catalog.CallGetterToBaseline,
	callmode.CALL_SETTER:                           catalog.CallSetterToBaseline,
	callmode.CALL_THIS_ARG2_WITH_RETURN:            catalog.CallContainersArgs2ToBaseline,
	callmode.CALL_THIS_ARG3_WITH_RETURN:            catalog.CallContainersArgs3ToBaseline,
	callmode.CALL_THIS_ARGV_WITH_RETURN:            catalog.CallReturnWithArgvToBaseline,
	callmode.DEPRECATED_CALL_ARG0:                  catalog.CallArg0AndCheckToBaseline,
	callmode.DEPRECATED_CALL_ARG1:                  catalog.CallArg1AndCheckToBaseline,
	callmode.DEPRECATED_CALL_ARG2:                  catalog.CallArgs2AndCheckToBaseline,
	callmode.DEPRECATED_CALL_ARG3:                  catalog.CallArgs3AndCheckToBaseline,
	callmode.DEPRECATED_CALL_WITH_ARGV:             catalog.CallRangeAndCheckToBaseline,
	callmode.DEPRECATED_CALL_THIS_WITH_ARGV:        catalog.CallThisRangeAndCheckToBaseline,
	callmode.DEPRECATED_CALL_CONSTRUCTOR_WITH_ARGV: catalog.CallNewAndCheckToBaseline,
}

func nativeStub(k callmode.Kind) catalog.StubID {
	switch k {
	case callmode.SUPER_CALL_WITH_ARGV:
		return catalog.SuperCall
	case callmode.SUPER_CALL_SPREAD_WITH_ARGV:
		return catalog.SuperCallSpread
	case callmode.CALL_CONSTRUCTOR_WITH_ARGV, callmode.DEPRECATED_CALL_CONSTRUCTOR_WITH_ARGV:
		return catalog.PushCallNewAndDispatchNative
	case callmode.CALL_WITH_ARGV, callmode.CALL_THIS_WITH_ARGV, callmode.CALL_THIS_ARGV_WITH_RETURN:
		return catalog.PushCallRangeAndDispatchNative
	case callmode.DEPRECATED_CALL_WITH_ARGV, callmode.DEPRECATED_CALL_THIS_WITH_ARGV:
		return catalog.PushCallRangeAndDispatchNative
	default:
		return catalog.PushCallArgsAndDispatchNative
	}
}

func aotTarget(argv bool, s Strategy) Target {
	if !argv {
		switch s {
		case Fast:
			return Target{Op: circuit.OP_fast_call_optimized, Stub: NoStub}
		case Slow:
			return Target{Op: circuit.OP_call_optimized, Stub: NoStub}
		case FastBridge:
			return stubTarget(catalog.OptimizedFastCallAndPushArgv)
		default:
			return stubTarget(catalog.OptimizedCallAndPushArgv)
		}
	}
	switch s {
	case Fast:
		return stubTarget(catalog.JSFastCallWithArgV)
	case FastBridge:
		return stubTarget(catalog.JSFastCallWithArgVAndPushArgv)
	case Slow:
		return stubTarget(catalog.JSCallWithArgV)
	default:
		return stubTarget(catalog.JSCallWithArgVAndPushArgv)
	}
}

// StubFor selects the call opcode and stub for a call in mode m reaching
// its callee through strategy s.
func StubFor(m callmode.Mode, s Strategy) Target {
	switch s {
	case Fast, FastBridge, Slow, SlowBridge:
		return aotTarget(callmode.IsArgv(m), s)
	case Interpreter:
		return stubTarget(_InterpStubs[m.Kind()])
	case Baseline:
		return stubTarget(_BaselineStubs[m.Kind()])
	case Native:
		return stubTarget(nativeStub(m.Kind()))
	case FastBuiltin:
		break
	default:
		panic(fmt.Sprintf("lowering: invalid strategy %d", uint8(s)))
	}

	/* fast builtins only exist for receiver and constructor modes */
	if !callmode.SupportsFastBuiltin(m) {
		panic(fmt.Sprintf("lowering: %v has no fast builtin dispatch", m.Kind()))
	} else if callmode.IsCallNew(m) {
		return Target{Op: circuit.OP_builtins_call_with_argv, Stub: catalog.DispatchBuiltinsWithArgv}
	} else {
		return Target{Op: circuit.OP_builtins_call, Stub: catalog.DispatchBuiltins}
	}
}
