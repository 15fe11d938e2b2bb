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
	"fmt"
)

// MachineType is the representation of the value a gate produces.
type MachineType uint8

const (
	NoValue MachineType = iota
	AnyValue
	ArchWord
	I1
	I8
	I16
	I32
	I64
	F32
	F64
)

var _MachineTypeNames = [...]string{
	NoValue:  "novalue",
	AnyValue: "anyvalue",
	ArchWord: "arch",
	I1:       "i1",
	I8:       "i8",
	I16:      "i16",
	I32:      "i32",
	I64:      "i64",
	F32:      "f32",
	F64:      "f64",
}

func (self MachineType) String() string {
	if int(self) < len(_MachineTypeNames) {
		return _MachineTypeNames[self]
	} else {
		return fmt.Sprintf("mt_%d", uint8(self))
	}
}

func (self MachineType) IsFloat() bool {
	return self == F32 || self == F64
}

// Accepts reports whether a value of type v can be passed where self is
// expected.
func (self MachineType) Accepts(v MachineType) bool {
	switch {
	case self == v:
		return true
	case self == AnyValue:
		return v != NoValue
	case v == AnyValue:
		return self != NoValue
	case self == ArchWord:
		return v == I64
	case self == I64:
		return v == ArchWord
	default:
		return false
	}
}

// GateType is the semantic type attached to a gate.
type GateType uint8

const (
	AnyType GateType = iota
	NumberType
	IntType
	DoubleType
	BooleanType
	StringType
	ObjectType
	UndefinedType
	TaggedValueType
	TaggedPointerType
	NJSValueType
	EmptyType
)

var _GateTypeNames = [...]string{
	AnyType:           "any",
	NumberType:        "number",
	IntType:           "int",
	DoubleType:        "double",
	BooleanType:       "boolean",
	StringType:        "string",
	ObjectType:        "object",
	UndefinedType:     "undefined",
	TaggedValueType:   "tagged",
	TaggedPointerType: "tagged_pointer",
	NJSValueType:      "njs",
	EmptyType:         "empty",
}

func (self GateType) String() string {
	if int(self) < len(_GateTypeNames) {
		return _GateTypeNames[self]
	} else {
		return fmt.Sprintf("gt_%d", uint8(self))
	}
}

// EdgeKind is the kind of an input slot.
type EdgeKind uint8

const (
	StateEdge EdgeKind = iota
	DependEdge
	ValueEdge
	RootEdge
)

func (self EdgeKind) String() string {
	switch self {
	case StateEdge:
		return "state"
	case DependEdge:
		return "depend"
	case ValueEdge:
		return "value"
	case RootEdge:
		return "root"
	default:
		return fmt.Sprintf("edge_%d", uint8(self))
	}
}

// Cond is the predicate of a comparison gate.
type Cond uint8

const (
	CondEq Cond = iota
	CondNe
	CondSlt
	CondSle
	CondSgt
	CondSge
	CondUlt
	CondUle
	CondUgt
	CondUge
	CondUno
)

var _CondNames = [...]string{"eq", "ne", "slt", "sle", "sgt", "sge", "ult", "ule", "ugt", "uge", "uno"}

func (self Cond) String() string {
	if int(self) < len(_CondNames) {
		return _CondNames[self]
	} else {
		return fmt.Sprintf("cond_%d", uint8(self))
	}
}

// TypeKind selects the predicate of a TYPE_TEST gate.
type TypeKind uint8

const (
	IsNumber TypeKind = iota
	IsInt32
	IsFiniteNumber
	IsString
	IsHeapObject
	IsCallable
	IsJSProxy
	IsMap
	IsSet
	IsUndefined
)

var _TypeKindNames = [...]string{
	IsNumber:       "number",
	IsInt32:        "int32",
	IsFiniteNumber: "finite",
	IsString:       "string",
	IsHeapObject:   "heap_object",
	IsCallable:     "callable",
	IsJSProxy:      "js_proxy",
	IsMap:          "map",
	IsSet:          "set",
	IsUndefined:    "undefined",
}

func (self TypeKind) String() string {
	if int(self) < len(_TypeKindNames) {
		return _TypeKindNames[self]
	} else {
		return fmt.Sprintf("type_%d", uint8(self))
	}
}

// Field selects what a LOAD_FIELD gate reads from a function object. The
// frame fields are read from the thread glue.
type Field uint8

const (
	FieldMethod Field = iota
	FieldCallField
	FieldNativeCode
	FieldCodeEntry
	FieldBaselineCode
	FieldBuiltinID
	FieldExpectedArgc
	FieldIsNative
	FieldIsFastBuiltin
	FieldHasAotFastCall
	FieldHasAot
	FieldIsClassConstructor
	FieldGCState
	FieldArrayLength
	FieldArrayData
	FieldFrameSP
)

var _FieldNames = [...]string{
	FieldMethod:             "method",
	FieldCallField:          "call_field",
	FieldNativeCode:         "native_code",
	FieldCodeEntry:          "code_entry",
	FieldBaselineCode:       "baseline_code",
	FieldBuiltinID:          "builtin_id",
	FieldExpectedArgc:       "expected_argc",
	FieldIsNative:           "is_native",
	FieldIsFastBuiltin:      "is_fast_builtin",
	FieldHasAotFastCall:     "has_aot_fastcall",
	FieldHasAot:             "has_aot",
	FieldIsClassConstructor: "is_class_constructor",
	FieldGCState:            "gc_state",
	FieldArrayLength:        "array_length",
	FieldArrayData:          "array_data",
	FieldFrameSP:            "frame_sp",
}

func (self Field) String() string {
	if int(self) < len(_FieldNames) {
		return _FieldNames[self]
	} else {
		return fmt.Sprintf("field_%d", uint8(self))
	}
}

// DeoptReason is recorded on every DEOPT_CHECK gate.
type DeoptReason uint8

const (
	DeoptNotCallTarget DeoptReason = iota
	DeoptNotNumber
	DeoptNotInt
	DeoptNotString
	DeoptNotMap
	DeoptNotSet
)

var _DeoptNames = [...]string{
	DeoptNotCallTarget: "NOTCALLTGT",
	DeoptNotNumber:     "NOTNUMBER",
	DeoptNotInt:        "NOTINT",
	DeoptNotString:     "NOTSTRING",
	DeoptNotMap:        "NOTMAP",
	DeoptNotSet:        "NOTSET",
}

func (self DeoptReason) String() string {
	if int(self) < len(_DeoptNames) {
		return _DeoptNames[self]
	} else {
		return fmt.Sprintf("deopt_%d", uint8(self))
	}
}
