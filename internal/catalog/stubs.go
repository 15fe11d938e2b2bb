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
	"fmt"

	"github.com/cloudwego/gatec/internal/circuit"
)

// StubID identifies a runtime routine or trampoline a lowered call targets.
type StubID uint16

// StubKind is the calling discipline of a stub.
type StubKind uint8

const (
	RuntimeStub    StubKind = iota // may trigger GC
	NoGCStub                       // never triggers GC
	Trampoline                     // interpreter entry
	BuiltinsStub                   // fast builtin dispatch
)

func (self StubKind) String() string {
	switch self {
	case RuntimeStub:
		return "runtime"
	case NoGCStub:
		return "nogc"
	case Trampoline:
		return "trampoline"
	case BuiltinsStub:
		return "builtins"
	default:
		return fmt.Sprintf("stubkind_%d", uint8(self))
	}
}

const (
	/* runtime */
	ThrowNotCallableException StubID = iota
	ThrowCallConstructorException
	SuperCall
	SuperCallSpread
	NewThisObject
	AotInlineBuiltinTrace
	ProfileCall
	ProfileGetterSetterCall
	ProfileNativeCall

	/* no-gc runtime */
	CopyCallTarget
	CopyArgvArray
	StartCallTimer
	EndCallTimer
	ConstructorCheck
	PushCallArgsAndDispatchNative
	PushCallRangeAndDispatchNative
	PushCallNewAndDispatchNative
	OptimizedFastCallAndPushArgv
	OptimizedCallAndPushArgv
	JSFastCallWithArgV
	JSFastCallWithArgVAndPushArgv
	JSCallWithArgV
	JSCallWithArgVAndPushArgv

	/* interpreter entries */
	PushCallArg0AndDispatch
	PushCallArg1AndDispatch
	PushCallArgs2AndDispatch
	PushCallArgs3AndDispatch
	PushCallThisArg0AndDispatch
	PushCallThisArg1AndDispatch
	PushCallThisArgs2AndDispatch
	PushCallThisArgs3AndDispatch
	PushCallRangeAndDispatch
	PushCallThisRangeAndDispatch
	PushCallNewAndDispatch
	PushSuperCallAndDispatch
	CallGetter
	CallSetter
	CallContainersArgs2
	CallContainersArgs3
	CallReturnWithArgv

	/* interpreter entries that may tier up to baseline code */
	CallArg0AndCheckToBaseline
	CallArg1AndCheckToBaseline
	CallArgs2AndCheckToBaseline
	CallArgs3AndCheckToBaseline
	CallThisArg0AndCheckToBaseline
	CallThisArg1AndCheckToBaseline
	CallThisArgs2AndCheckToBaseline
	CallThisArgs3AndCheckToBaseline
	CallRangeAndCheckToBaseline
	CallThisRangeAndCheckToBaseline
	CallNewAndCheckToBaseline
	SuperCallAndCheckToBaseline
	CallGetterToBaseline
	CallSetterToBaseline
	CallContainersArgs2ToBaseline
	CallContainersArgs3ToBaseline
	CallReturnWithArgvToBaseline

	/* fast builtins */
	DispatchBuiltins
	DispatchBuiltinsWithArgv

	_StubCount
)

type _Stub struct {
	name string
	kind StubKind
	sig  Signature
}

var (
	glue   = circuit.ArchWord
	ptr    = circuit.ArchWord
	tagged = circuit.AnyValue
	count  = circuit.I64
)

func sig(variadic bool, args ...circuit.MachineType) Signature {
	return Signature{Args: args, Variadic: variadic}
}

// Stub signatures cover every value input of the lowered call, glue included.
var _Stubs = [_StubCount]_Stub{
	ThrowNotCallableException:     {"ThrowNotCallableException", RuntimeStub, sig(false, glue)},
	ThrowCallConstructorException: {"ThrowCallConstructorException", RuntimeStub, sig(false, glue)},
	SuperCall:                     {"SuperCall", RuntimeStub, sig(false, glue, tagged, tagged, tagged)},
	SuperCallSpread:               {"SuperCallSpread", RuntimeStub, sig(false, glue, tagged, tagged)},
	NewThisObject:                 {"NewThisObject", RuntimeStub, sig(false, glue, tagged)},
	AotInlineBuiltinTrace:         {"AotInlineBuiltinTrace", RuntimeStub, sig(false, glue, tagged, tagged)},
	ProfileCall:                   {"ProfileCall", RuntimeStub, sig(false, glue, tagged)},
	ProfileGetterSetterCall:       {"ProfileGetterSetterCall", RuntimeStub, sig(false, glue, tagged)},
	ProfileNativeCall:             {"ProfileNativeCall", RuntimeStub, sig(false, glue, tagged)},

	CopyCallTarget:                 {"CopyCallTarget", NoGCStub, sig(false, glue, tagged)},
	CopyArgvArray:                  {"CopyArgvArray", NoGCStub, sig(false, glue, ptr, count)},
	StartCallTimer:                 {"StartCallTimer", NoGCStub, sig(false, glue, tagged, circuit.I1)},
	EndCallTimer:                   {"EndCallTimer", NoGCStub, sig(false, glue, tagged)},
	ConstructorCheck:               {"ConstructorCheck", NoGCStub, sig(false, glue, tagged, tagged, tagged)},
	PushCallArgsAndDispatchNative:  {"PushCallArgsAndDispatchNative", NoGCStub, sig(true, ptr, glue, count, tagged, tagged)},
	PushCallRangeAndDispatchNative: {"PushCallRangeAndDispatchNative", NoGCStub, sig(true, glue, ptr, tagged)},
	PushCallNewAndDispatchNative:   {"PushCallNewAndDispatchNative", NoGCStub, sig(true, glue, ptr, tagged)},
	OptimizedFastCallAndPushArgv:   {"OptimizedFastCallAndPushArgv", NoGCStub, sig(true, glue, tagged)},
	OptimizedCallAndPushArgv:       {"OptimizedCallAndPushArgv", NoGCStub, sig(true, glue, count, ptr, tagged, tagged)},
	JSFastCallWithArgV:             {"JSFastCallWithArgV", NoGCStub, sig(true, glue, tagged)},
	JSFastCallWithArgVAndPushArgv:  {"JSFastCallWithArgVAndPushArgv", NoGCStub, sig(true, glue, tagged)},
	JSCallWithArgV:                 {"JSCallWithArgV", NoGCStub, sig(true, glue, count, tagged)},
	JSCallWithArgVAndPushArgv:      {"JSCallWithArgVAndPushArgv", NoGCStub, sig(true, glue, count, tagged)},

	PushCallArg0AndDispatch:      {"PushCallArg0AndDispatch", Trampoline, sig(true, glue)},
	PushCallArg1AndDispatch:      {"PushCallArg1AndDispatch", Trampoline, sig(true, glue)},
	PushCallArgs2AndDispatch:     {"PushCallArgs2AndDispatch", Trampoline, sig(true, glue)},
	PushCallArgs3AndDispatch:     {"PushCallArgs3AndDispatch", Trampoline, sig(true, glue)},
	PushCallThisArg0AndDispatch:  {"PushCallThisArg0AndDispatch", Trampoline, sig(true, glue)},
	PushCallThisArg1AndDispatch:  {"PushCallThisArg1AndDispatch", Trampoline, sig(true, glue)},
	PushCallThisArgs2AndDispatch: {"PushCallThisArgs2AndDispatch", Trampoline, sig(true, glue)},
	PushCallThisArgs3AndDispatch: {"PushCallThisArgs3AndDispatch", Trampoline, sig(true, glue)},
	PushCallRangeAndDispatch:     {"PushCallRangeAndDispatch", Trampoline, sig(true, glue)},
	PushCallThisRangeAndDispatch: {"PushCallThisRangeAndDispatch", Trampoline, sig(true, glue)},
	PushCallNewAndDispatch:       {"PushCallNewAndDispatch", Trampoline, sig(true, glue)},
	PushSuperCallAndDispatch:     {"PushSuperCallAndDispatch", Trampoline, sig(true, glue)},
	CallGetter:                   {"CallGetter", Trampoline, sig(true, glue)},
	CallSetter:                   {"CallSetter", Trampoline, sig(true, glue)},
	CallContainersArgs2:          {"CallContainersArgs2", Trampoline, sig(true, glue)},
	CallContainersArgs3:          {"CallContainersArgs3", Trampoline, sig(true, glue)},
	CallReturnWithArgv:           {"CallReturnWithArgv", Trampoline, sig(true, glue)},

	CallArg0AndCheckToBaseline:      {"CallArg0AndCheckToBaseline", Trampoline, sig(true, glue)},
	CallArg1AndCheckToBaseline:      {"CallArg1AndCheckToBaseline", Trampoline, sig(true, glue)},
	CallArgs2AndCheckToBaseline:     {"CallArgs2AndCheckToBaseline", Trampoline, sig(true, glue)},
	CallArgs3AndCheckToBaseline:     {"CallArgs3AndCheckToBaseline", Trampoline, sig(true, glue)},
	CallThisArg0AndCheckToBaseline:  {"CallThisArg0AndCheckToBaseline", Trampoline, sig(true, glue)},
	CallThisArg1AndCheckToBaseline:  {"CallThisArg1AndCheckToBaseline", Trampoline, sig(true, glue)},
	CallThisArgs2AndCheckToBaseline: {"CallThisArgs2AndCheckToBaseline", Trampoline, sig(true, glue)},
	CallThisArgs3AndCheckToBaseline: {"CallThisArgs3AndCheckToBaseline", Trampoline, sig(true, glue)},
	CallRangeAndCheckToBaseline:     {"CallRangeAndCheckToBaseline", Trampoline, sig(true, glue)},
	CallThisRangeAndCheckToBaseline: {"CallThisRangeAndCheckToBaseline", Trampoline, sig(true, glue)},
	CallNewAndCheckToBaseline:       {"CallNewAndCheckToBaseline", Trampoline, sig(true, glue)},
	SuperCallAndCheckToBaseline:     {"SuperCallAndCheckToBaseline", Trampoline, sig(true, glue)},
	CallGetterToBaseline:            {"CallGetterToBaseline", Trampoline, sig(true, glue)},
	CallSetterToBaseline:            {"CallSetterToBaseline", Trampoline, sig(true, glue)},
	CallContainersArgs2ToBaseline:   {"CallContainersArgs2ToBaseline", Trampoline, sig(true, glue)},
	CallContainersArgs3ToBaseline:   {"CallContainersArgs3ToBaseline", Trampoline, sig(true, glue)},
	CallReturnWithArgvToBaseline:    {"CallReturnWithArgvToBaseline", Trampoline, sig(true, glue)},

	DispatchBuiltins:         {"DispatchBuiltins", BuiltinsStub, sig(true, glue, ptr, tagged)},
	DispatchBuiltinsWithArgv: {"DispatchBuiltinsWithArgv", BuiltinsStub, sig(true, glue, ptr, tagged)},
}

func stub(id StubID) *_Stub {
	if id >= _StubCount {
		panic(fmt.Sprintf("catalog: stub id %d out of range", uint16(id)))
	}
	return &_Stubs[id]
}

func (self StubID) String() string {
	if self < _StubCount {
		return _Stubs[self].name
	} else {
		return fmt.Sprintf("unnamed-stub-%d", uint16(self))
	}
}

// NumStubs is the number of valid stub ids.
func NumStubs() int {
	return int(_StubCount)
}

func StubNameOf(id StubID) string         { return stub(id).name }
func StubKindOf(id StubID) StubKind       { return stub(id).kind }
func StubSignatureOf(id StubID) Signature { return stub(id).sig }
