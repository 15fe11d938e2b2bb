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

// Opcode identifies the operation of a gate.
type Opcode uint8

const (
	OP_nop Opcode = iota
	OP_unset
	OP_dead

	/* roots */
	OP_circuit_root
	OP_state_entry
	OP_depend_entry
	OP_return_list
	OP_arg_list
	OP_arg

	/* control */
	OP_return
	OP_return_void
	OP_if_branch
	OP_if_true
	OP_if_false
	OP_if_success
	OP_if_exception
	OP_merge
	OP_loop_begin
	OP_loop_back
	OP_loop_exit
	OP_ordinary_block

	/* dependency */
	OP_depend_selector
	OP_depend_relay
	OP_loop_exit_depend

	/* values */
	OP_value_selector
	OP_loop_exit_value
	OP_constant
	OP_add
	OP_sub
	OP_mul
	OP_and
	OP_or
	OP_xor
	OP_shl
	OP_lsr
	OP_icmp
	OP_fcmp
	OP_zext
	OP_trunc
	OP_frame_state
	OP_pack_argv
	OP_load_field
	OP_type_test
	OP_call_target_test
	OP_has_pending_exception

	/* calls */
	OP_js_bytecode
	OP_call
	OP_runtime_call
	OP_nogc_runtime_call
	OP_fast_call_optimized
	OP_call_optimized
	OP_builtins_call
	OP_builtins_call_with_argv

	/* inlining */
	OP_builtin_op
	OP_deopt_check

	_OP_count
)

type _OpFlags uint16

const (
	f_state    _OpFlags = 1 << iota // produces control
	f_depend                        // produces a dependency token
	f_fixed                         // pinned by its state input
	f_root                          // belongs to the circuit skeleton
	f_selector                      // merges one input per predecessor
	f_call                          // lowered or high-level call
	f_term                          // terminates a control path
	f_variadic                      // last input group may grow
)

// Variadic marks an input count that is only known per gate.
const Variadic = -1

type _OpInfo struct {
	name   string
	flags  _OpFlags
	state  int
	depend int
	value  int
	root   bool
}

var _OpTab = [_OP_count]_OpInfo{
	OP_nop:   {name: "nop"},
	OP_unset: {name: "unset"},
	OP_dead:  {name: "dead", flags: f_root},

	OP_circuit_root: {name: "circuit_root", flags: f_root},
	OP_state_entry:  {name: "state_entry", flags: f_root | f_state, root: true},
	OP_depend_entry: {name: "depend_entry", flags: f_root | f_depend, root: true},
	OP_return_list:  {name: "return_list", flags: f_root, root: true},
	OP_arg_list:     {name: "arg_list", flags: f_root, root: true},
	OP_arg:          {name: "arg", flags: f_root, root: true},

	OP_return:         {name: "return", flags: f_term, state: 1, depend: 1, value: 1, root: true},
	OP_return_void:    {name: "return_void", flags: f_term, state: 1, depend: 1, root: true},
	OP_if_branch:      {name: "if_branch", flags: f_state, state: 1, value: 1},
	OP_if_true:        {name: "if_true", flags: f_state, state: 1},
	OP_if_false:       {name: "if_false", flags: f_state, state: 1},
	OP_if_success:     {name: "if_success", flags: f_state, state: 1},
	OP_if_exception:   {name: "if_exception", flags: f_state, state: 1},
	OP_merge:          {name: "merge", flags: f_state | f_variadic, state: Variadic},
	OP_loop_begin:     {name: "loop_begin", flags: f_state | f_variadic, state: Variadic},
	OP_loop_back:      {name: "loop_back", flags: f_state, state: 1},
	OP_loop_exit:      {name: "loop_exit", flags: f_state, state: 1},
	OP_ordinary_block: {name: "ordinary_block", flags: f_state, state: 1},

	OP_depend_selector:  {name: "depend_selector", flags: f_depend | f_fixed | f_selector | f_variadic, state: 1, depend: Variadic},
	OP_depend_relay:     {name: "depend_relay", flags: f_depend | f_fixed, state: 1, depend: 1},
	OP_loop_exit_depend: {name: "loop_exit_depend", flags: f_depend | f_fixed, state: 1, depend: 1},

	OP_value_selector:        {name: "value_selector", flags: f_fixed | f_selector | f_variadic, state: 1, value: Variadic},
	OP_loop_exit_value:       {name: "loop_exit_value", flags: f_fixed, state: 1, value: 1},
	OP_constant:              {name: "constant"},
	OP_add:                   {name: "add", value: 2},
	OP_sub:                   {name: "sub", value: 2},
	OP_mul:                   {name: "mul", value: 2},
	OP_and:                   {name: "and", value: 2},
	OP_or:                    {name: "or", value: 2},
	OP_xor:                   {name: "xor", value: 2},
	OP_shl:                   {name: "shl", value: 2},
	OP_lsr:                   {name: "lsr", value: 2},
	OP_icmp:                  {name: "icmp", value: 2},
	OP_fcmp:                  {name: "fcmp", value: 2},
	OP_zext:                  {name: "zext", value: 1},
	OP_trunc:                 {name: "trunc", value: 1},
	OP_frame_state:           {name: "frame_state", flags: f_variadic, value: Variadic},
	OP_pack_argv:             {name: "pack_argv", flags: f_variadic, value: Variadic},
	OP_load_field:            {name: "load_field", value: 1},
	OP_type_test:             {name: "type_test", value: 1},
	OP_call_target_test:      {name: "call_target_test", value: 1},
	OP_has_pending_exception: {name: "has_pending_exception", depend: 1, value: 1},

	OP_js_bytecode:             {name: "js_bytecode", flags: f_state | f_depend | f_call, state: 1, depend: 1, value: Variadic},
	OP_call:                    {name: "call", flags: f_depend | f_call, depend: 1, value: Variadic},
	OP_runtime_call:            {name: "runtime_call", flags: f_depend | f_call, depend: 1, value: Variadic},
	OP_nogc_runtime_call:       {name: "nogc_runtime_call", flags: f_depend | f_call, depend: 1, value: Variadic},
	OP_fast_call_optimized:     {name: "fast_call_optimized", flags: f_depend | f_call, depend: 1, value: Variadic},
	OP_call_optimized:          {name: "call_optimized", flags: f_depend | f_call, depend: 1, value: Variadic},
	OP_builtins_call:           {name: "builtins_call", flags: f_depend | f_call, depend: 1, value: Variadic},
	OP_builtins_call_with_argv: {name: "builtins_call_with_argv", flags: f_depend | f_call, depend: 1, value: Variadic},
	OP_builtin_op:              {name: "builtin_op", flags: f_depend, depend: 1, value: Variadic},
	OP_deopt_check:             {name: "deopt_check", flags: f_depend | f_fixed, state: 1, depend: 1, value: 2},
}

func (self Opcode) String() string {
	if self < _OP_count && _OpTab[self].name != "" {
		return _OpTab[self].name
	} else {
		return fmt.Sprintf("op_%d", uint8(self))
	}
}

// Contract returns the declared input counts of the opcode, Variadic for
// groups whose size is per gate.
func (self Opcode) Contract() (state int, depend int, value int, root bool) {
	p := &_OpTab[self]
	return p.state, p.depend, p.value, p.root
}

func (self Opcode) has(f _OpFlags) bool {
	return self < _OP_count && _OpTab[self].flags&f != 0
}

func (self Opcode) IsState() bool    { return self.has(f_state) }
func (self Opcode) IsDepend() bool   { return self.has(f_depend) }
func (self Opcode) IsFixed() bool    { return self.has(f_fixed) }
func (self Opcode) IsRoot() bool     { return self.has(f_root) }
func (self Opcode) IsSelector() bool { return self.has(f_selector) }
func (self Opcode) IsCall() bool     { return self.has(f_call) }
func (self Opcode) IsTerminal() bool { return self.has(f_term) }
func (self Opcode) IsVariadic() bool { return self.has(f_variadic) }

// IsMergeLike reports control gates that join several predecessors.
func (self Opcode) IsMergeLike() bool {
	return self == OP_merge || self == OP_loop_begin
}

// IsControlCase reports control gates that start a branch arm.
func (self Opcode) IsControlCase() bool {
	switch self {
	case OP_if_true, OP_if_false, OP_if_success, OP_if_exception:
		return true
	default:
		return false
	}
}
