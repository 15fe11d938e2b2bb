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

	"tlog.app/go/errors"

	"github.com/cloudwego/gatec/internal/circuit"
)

// BuiltinID is the dense identifier of a native builtin function.
type BuiltinID uint16

// BuiltinNone is returned by lookups that match no builtin.
const BuiltinNone BuiltinID = 0xffff

const (
	MathAcos BuiltinID = iota
	MathAcosh
	MathAsin
	MathAsinh
	MathAtan
	MathAtanh
	MathAtan2
	MathCos
	MathCosh
	MathSin
	MathSinh
	MathTan
	MathTanh
	MathLog
	MathLog2
	MathLog10
	MathLog1p
	MathExp
	MathExpm1
	MathCbrt
	MathSqrt
	MathSign
	MathTrunc
	MathRound
	MathFRound
	MathCeil
	MathFloor
	MathAbs
	MathPow
	MathClz32
	MathImul
	MathMin
	MathMax
	GlobalIsFinite
	GlobalIsNan
	NumberIsFinite
	NumberIsInteger
	NumberIsNaN
	NumberIsSafeInteger
	NumberParseFloat
	NumberParseInt
	StringFromCharCode
	StringCharCodeAt
	StringCharAt
	StringSubstring
	StringIndexOf
	StringLocaleCompare
	ArrayPush
	ArrayPop
	ArrayIndexOf
	ArrayIncludes
	ArrayForEach
	ArraySlice
	MapGet
	MapHas
	MapDelete
	MapClear
	MapKeys
	MapValues
	MapEntries
	MapForEach
	SetHas
	SetAdd
	SetDelete
	SetClear
	SetValues
	SetEntries
	SetForEach
	DateNow
	DateGetTime
	ObjectIs
	ObjectKeys
	ObjectGetPrototypeOf
	JSONStringify

	/* constructor stubs start here */
	BooleanConstructor
	NumberConstructor
	DateConstructor
	ArrayConstructor
	MapConstructor
	SetConstructor
	ObjectConstructor
	ErrorConstructor
	BigIntConstructor

	_BuiltinCount
)

// ConstructorStubFirst is the first id whose stub expects constructor
// arguments. Receiver-passing fast dispatch is only valid below it.
const ConstructorStubFirst = BooleanConstructor

// Traits is a bit set of independent builtin properties.
type Traits uint8

const (
	Fast        Traits = 1 << iota // direct builtin stub dispatch
	Typed                          // has a typed lowering
	SideEffect                     // may write heap state or raise
	Constructor                    // may be dispatched as a constructor
	Inlineable                     // has a native inline specialisation
	HasThis                        // reads its receiver
)

// Signature describes the machine types of a builtin's JS-level arguments,
// receiver first when the builtin reads one. Arguments past Args are only
// allowed when Variadic, and must then be accepted by Rest unless Rest is
// NoValue.
type Signature struct {
	Args     []circuit.MachineType
	Rest     circuit.MachineType
	Variadic bool
}

type _Builtin struct {
	name   string
	arity  int
	vararg bool
	traits Traits
}

const (
	_Math     = Typed | Inlineable
	_Pure     = Fast | Typed | Inlineable
	_Proto    = Fast | HasThis
	_Mutating = Fast | HasThis | SideEffect
	_Ctor     = Fast | Constructor | SideEffect
)

var _Builtins = [_BuiltinCount]_Builtin{
	MathAcos:             {"MathAcos", 1, false, _Math},
	MathAcosh:            {"MathAcosh", 1, false, _Math},
	MathAsin:             {"MathAsin", 1, false, _Math},
	MathAsinh:            {"MathAsinh", 1, false, _Math},
	MathAtan:             {"MathAtan", 1, false, _Math},
	MathAtanh:            {"MathAtanh", 1, false, _Math},
	MathAtan2:            {"MathAtan2", 2, false, _Math},
	MathCos:              {"MathCos", 1, false, _Math},
	MathCosh:             {"MathCosh", 1, false, _Math},
	MathSin:              {"MathSin", 1, false, _Math},
	MathSinh:             {"MathSinh", 1, false, _Math},
	MathTan:              {"MathTan", 1, false, _Math},
	MathTanh:             {"MathTanh", 1, false, _Math},
	MathLog:              {"MathLog", 1, false, _Math},
	MathLog2:             {"MathLog2", 1, false, _Math},
	MathLog10:            {"MathLog10", 1, false, _Math},
	MathLog1p:            {"MathLog1p", 1, false, _Math},
	MathExp:              {"MathExp", 1, false, _Math},
	MathExpm1:            {"MathExpm1", 1, false, _Math},
	MathCbrt:             {"MathCbrt", 1, false, _Math},
	MathSqrt:             {"MathSqrt", 1, false, _Math},
	MathSign:             {"MathSign", 1, false, _Math},
	MathTrunc:            {"MathTrunc", 1, false, _Math},
	MathRound:            {"MathRound", 1, false, _Math},
	MathFRound:           {"MathFRound", 1, false, _Math},
	MathCeil:             {"MathCeil", 1, false, _Math},
	MathFloor:            {"MathFloor", 1, false, _Math},
	MathAbs:              {"MathAbs", 1, false, _Math},
	MathPow:              {"MathPow", 2, false, _Math},
	MathClz32:            {"MathClz32", 1, false, _Math},
	MathImul:             {"MathImul", 2, false, _Math},
	MathMin:              {"MathMin", 0, true, _Math},
	MathMax:              {"MathMax", 0, true, _Math},
	GlobalIsFinite:       {"GlobalIsFinite", 1, false, _Math},
	GlobalIsNan:          {"GlobalIsNan", 1, false, _Math},
	NumberIsFinite:       {"NumberIsFinite", 1, false, _Pure},
	NumberIsInteger:      {"NumberIsInteger", 1, false, _Pure},
	NumberIsNaN:          {"NumberIsNaN", 1, false, _Pure},
	NumberIsSafeInteger:  {"NumberIsSafeInteger", 1, false, _Pure},
	NumberParseFloat:     {"NumberParseFloat", 1, false, _Pure | SideEffect},
	NumberParseInt:       {"NumberParseInt", 2, false, Fast | SideEffect},
	StringFromCharCode:   {"StringFromCharCode", 0, true, _Pure},
	StringCharCodeAt:     {"StringCharCodeAt", 1, false, _Proto | Typed | Inlineable},
	StringCharAt:         {"StringCharAt", 1, false, _Proto | Typed},
	StringSubstring:      {"StringSubstring", 2, false, _Proto},
	StringIndexOf:        {"StringIndexOf", 2, false, _Proto},
	StringLocaleCompare:  {"StringLocaleCompare", 1, false, _Proto | SideEffect},
	ArrayPush:            {"ArrayPush", 0, true, _Mutating},
	ArrayPop:             {"ArrayPop", 0, false, _Mutating},
	ArrayIndexOf:         {"ArrayIndexOf", 2, false, _Proto},
	ArrayIncludes:        {"ArrayIncludes", 2, false, _Proto},
	ArrayForEach:         {"ArrayForEach", 2, false, _Mutating},
	ArraySlice:           {"ArraySlice", 2, false, _Proto},
	MapGet:               {"MapGet", 1, false, _Proto | Inlineable},
	MapHas:               {"MapHas", 1, false, _Proto | Inlineable},
	MapDelete:            {"MapDelete", 1, false, _Mutating | Inlineable},
	MapClear:             {"MapClear", 0, false, _Mutating},
	MapKeys:              {"MapKeys", 0, false, _Proto | Inlineable},
	MapValues:            {"MapValues", 0, false, _Proto | Inlineable},
	MapEntries:           {"MapEntries", 0, false, _Proto | Inlineable},
	MapForEach:           {"MapForEach", 2, false, _Mutating},
	SetHas:               {"SetHas", 1, false, _Proto | Inlineable},
	SetAdd:               {"SetAdd", 1, false, _Mutating | Inlineable},
	SetDelete:            {"SetDelete", 1, false, _Mutating | Inlineable},
	SetClear:             {"SetClear", 0, false, _Mutating},
	SetValues:            {"SetValues", 0, false, _Proto | Inlineable},
	SetEntries:           {"SetEntries", 0, false, _Proto | Inlineable},
	SetForEach:           {"SetForEach", 2, false, _Mutating},
	DateNow:              {"DateNow", 0, false, Fast | Inlineable},
	DateGetTime:          {"DateGetTime", 0, false, _Proto | Typed},
	ObjectIs:             {"ObjectIs", 2, false, Fast | Typed | Inlineable},
	ObjectKeys:           {"ObjectKeys", 1, false, Fast | SideEffect},
	ObjectGetPrototypeOf: {"ObjectGetPrototypeOf", 1, false, Fast | SideEffect},
	JSONStringify:        {"JSONStringify", 3, false, Fast | SideEffect},
	BooleanConstructor:   {"BooleanConstructor", 1, false, _Ctor},
	NumberConstructor:    {"NumberConstructor", 1, false, _Ctor},
	DateConstructor:      {"DateConstructor", 0, true, _Ctor},
	ArrayConstructor:     {"ArrayConstructor", 0, true, _Ctor},
	MapConstructor:       {"MapConstructor", 1, false, _Ctor},
	SetConstructor:       {"SetConstructor", 1, false, _Ctor},
	ObjectConstructor:    {"ObjectConstructor", 1, false, _Ctor},
	ErrorConstructor:     {"ErrorConstructor", 2, false, _Ctor},
	BigIntConstructor:    {"BigIntConstructor", 1, false, Fast | SideEffect},
}

var _BuiltinNames = make(map[string]BuiltinID, _BuiltinCount)

func init() {
	for i := range _Builtins {
		_BuiltinNames[_Builtins[i].name] = BuiltinID(i)
	}
}

// NumBuiltins is the number of valid builtin ids.
func NumBuiltins() int {
	return int(_BuiltinCount)
}

// Valid reports whether id names a builtin.
func (self BuiltinID) Valid() bool {
	return self < _BuiltinCount
}

func (self BuiltinID) String() string {
	return NameOf(self)
}

func builtin(id BuiltinID) *_Builtin {
	if id >= _BuiltinCount {
		panic(fmt.Sprintf("catalog: builtin id %d out of range", uint16(id)))
	}
	return &_Builtins[id]
}

func IsFastBuiltin(id BuiltinID) bool         { return builtin(id).traits&Fast != 0 }
func IsTypedBuiltin(id BuiltinID) bool        { return builtin(id).traits&Typed != 0 }
func IsSideEffecting(id BuiltinID) bool       { return builtin(id).traits&SideEffect != 0 }
func IsConstructorEligible(id BuiltinID) bool { return builtin(id).traits&Constructor != 0 }
func IsInlineable(id BuiltinID) bool          { return builtin(id).traits&Inlineable != 0 }
func HasReceiver(id BuiltinID) bool           { return builtin(id).traits&HasThis != 0 }

// TraitsOf returns the full trait set of id.
func TraitsOf(id BuiltinID) Traits {
	return builtin(id).traits
}

// IsBelowConstructorStubs reports whether id may be dispatched through the
// receiver-passing fast builtin stubs.
func IsBelowConstructorStubs(id BuiltinID) bool {
	builtin(id)
	return id < ConstructorStubFirst
}

// NameOf returns the name of id. It never fails: ids without a name get a
// synthesized one.
func NameOf(id BuiltinID) string {
	if id < _BuiltinCount && _Builtins[id].name != "" {
		return _Builtins[id].name
	} else {
		return fmt.Sprintf("unnamed-builtin-%d", uint16(id))
	}
}

// IDFromName returns the builtin named name, or BuiltinNone.
func IDFromName(name string) BuiltinID {
	if id, ok := _BuiltinNames[name]; ok {
		return id
	} else {
		return BuiltinNone
	}
}

// SignatureOf returns the argument signature of id.
func SignatureOf(id BuiltinID) Signature {
	n := Arity(id)
	if HasReceiver(id) {
		n++
	}
	args := make([]circuit.MachineType, n)
	for i := range args {
		args[i] = circuit.I64
	}
	if builtin(id).vararg {
		return Signature{Args: args, Rest: circuit.I64, Variadic: true}
	} else {
		return Signature{Args: args}
	}
}

// Arity is the declared JS-level argument count of id, excluding receiver.
func Arity(id BuiltinID) int {
	return builtin(id).arity
}

// Check validates an argument list against the signature.
func (self Signature) Check(args []circuit.MachineType) error {
	if len(args) < len(self.Args) || (!self.Variadic && len(args) != len(self.Args)) {
		return errors.New("expected %d arguments, got %d", len(self.Args), len(args))
	}
	for i, v := range args {
		mt := self.Rest
		if i < len(self.Args) {
			mt = self.Args[i]
		} else if mt == circuit.NoValue {
			break
		}
		if !mt.Accepts(v) {
			return errors.New("argument %d: expected %s, got %s", i, mt, v)
		}
	}
	return nil
}

// CheckCall validates the operands of a call site against the signature of
// id. Missing trailing arguments are undefined, which every argument slot
// accepts.
func CheckCall(id BuiltinID, this *circuit.Gate, args []*circuit.Gate) error {
	var mts []circuit.MachineType
	sig := SignatureOf(id)

	/* the receiver comes first */
	if HasReceiver(id) {
		if this == nil {
			return errors.New("%v: missing receiver", id)
		}
		mts = append(mts, this.MachineType())
	}

	/* pad with undefined */
	for _, v := range args {
		mts = append(mts, v.MachineType())
	}
	for len(mts) < len(sig.Args) {
		mts = append(mts, circuit.I64)
	}

	if err := sig.Check(mts); err != nil {
		return errors.Wrap(err, "%v", id)
	} else {
		return nil
	}
}
