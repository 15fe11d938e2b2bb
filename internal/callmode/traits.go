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

// Traits are the per-mode properties the lowering passes consult.
type Traits struct {
	CallNew        bool // constructs an object
	GetterSetter   bool // accessor invocation
	WithReturn     bool // result goes back to a runtime helper
	SupportPGO     bool // call sites feed the profiler
	FastBuiltin    bool // native calls may try the fast builtin stubs
	CheckBuiltinID bool // fast builtin dispatch needs the receiver-stub id guard
	CopyArgv       bool // argv must be copied under a read barrier
	Argv           bool // arguments travel as argc/argv
	Deprecated     bool
	Fixed          int // fixed argument count, -1 for argv modes
}

type _Traits struct{}

func (_Traits) CallArgs(m *CallArgs) Traits {
	return Traits{SupportPGO: !m.Deprecated, Deprecated: m.Deprecated, Fixed: len(m.Args)}
}

func (_Traits) CallThisArgs(m *CallThisArgs) Traits {
	return Traits{SupportPGO: true, FastBuiltin: true, CheckBuiltinID: true, Fixed: len(m.Args)}
}

func (_Traits) CallArgv(m *CallArgv) Traits {
	return Traits{SupportPGO: !m.Deprecated, Argv: true, Deprecated: m.Deprecated, Fixed: -1}
}

func (_Traits) CallThisArgv(m *CallThisArgv) Traits {
	return Traits{SupportPGO: !m.Deprecated, Argv: true, Deprecated: m.Deprecated, Fixed: -1}
}

func (_Traits) CallConstructor(m *CallConstructor) Traits {
	return Traits{CallNew: true, SupportPGO: !m.Deprecated, FastBuiltin: true, Argv: true, Deprecated: m.Deprecated, Fixed: -1}
}

func (_Traits) SuperCall(*SuperCall) Traits {
	return Traits{CallNew: true, SupportPGO: true, Argv: true, Fixed: -1}
}

func (_Traits) SuperCallSpread(*SuperCallSpread) Traits {
	return Traits{CallNew: true, SupportPGO: true, CopyArgv: true, Argv: true, Fixed: -1}
}

func (_Traits) CallGetter(*CallGetter) Traits {
	return Traits{GetterSetter: true, SupportPGO: true, Fixed: 0}
}

func (_Traits) CallSetter(*CallSetter) Traits {
	return Traits{GetterSetter: true, SupportPGO: true, Fixed: 1}
}

func (_Traits) CallThisArg2WithReturn(*CallThisArg2WithReturn) Traits {
	return Traits{WithReturn: true, FastBuiltin: true, CheckBuiltinID: true, Fixed: 2}
}

func (_Traits) CallThisArg3WithReturn(*CallThisArg3WithReturn) Traits {
	return Traits{WithReturn: true, Fixed: 3}
}

func (_Traits) CallThisArgvWithReturn(*CallThisArgvWithReturn) Traits {
	return Traits{WithReturn: true, CopyArgv: true, Argv: true, Fixed: -1}
}

// TraitsOf returns the traits of m.
func TraitsOf(m Mode) Traits {
	return Visit[Traits](m, _Traits{})
}

func IsCallNew(m Mode) bool           { return TraitsOf(m).CallNew }
func IsGetterSetter(m Mode) bool      { return TraitsOf(m).GetterSetter }
func IsWithReturn(m Mode) bool        { return TraitsOf(m).WithReturn }
func SupportsPGO(m Mode) bool         { return TraitsOf(m).SupportPGO }
func SupportsFastBuiltin(m Mode) bool { return TraitsOf(m).FastBuiltin }
func NeedsArgvCopy(m Mode) bool       { return TraitsOf(m).CopyArgv }
func IsArgv(m Mode) bool              { return TraitsOf(m).Argv }
