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

package gatec

import (
	"fmt"

	"github.com/cloudwego/gatec/internal/opts"
)

// Option is the property setter function for opts.Options.
type Option func(*opts.Options)

// WithCallTimer wraps every lowered call in call-timer start and end stubs.
func WithCallTimer(v bool) Option {
	return func(o *opts.Options) { o.CallTimer = v }
}

// WithPGOProfiler records the caller and callee of every lowered call with
// the profile-guided optimisation stub.
func WithPGOProfiler(v bool) Option {
	return func(o *opts.Options) { o.PGOProfiler = v }
}

// WithReadBarrier copies the callee and the argument array through the
// read-barrier stubs before a lowered call reads them.
func WithReadBarrier(v bool) Option {
	return func(o *opts.Options) { o.ReadBarrier = v }
}

// WithNativeInline enables or disables the native builtin inlining pass.
//
// The default value of this option is "true".
func WithNativeInline(v bool) Option {
	return func(o *opts.Options) { o.NativeInline = v }
}

// WithUncheckedInline omits the call-target guard in front of an inlined
// builtin. Only safe when the feedback is known to be exact.
func WithUncheckedInline(v bool) Option {
	return func(o *opts.Options) { o.UncheckedInline = v }
}

// WithTraceInline emits a trace runtime call in front of every inlined
// builtin.
func WithTraceInline(v bool) Option {
	return func(o *opts.Options) { o.TraceInline = v }
}

// WithLoopPeeling enables or disables the loop peeling pass.
//
// The default value of this option is "true".
func WithLoopPeeling(v bool) Option {
	return func(o *opts.Options) { o.LoopPeeling = v }
}

// WithCheckCallable makes lowered calls check that the callee is callable
// before dispatching on its kind.
//
// The default value of this option is "true".
func WithCheckCallable(v bool) Option {
	return func(o *opts.Options) { o.CheckCallable = v }
}

// WithBaseline makes lowered calls enter the baseline code of a callee that
// has some, before falling back to the interpreter.
func WithBaseline(v bool) Option {
	return func(o *opts.Options) { o.Baseline = v }
}

// WithVerify runs the verifier over the compiled circuit.
//
// The default value of this option is "true".
func WithVerify(v bool) Option {
	return func(o *opts.Options) { o.Verify = v }
}

// WithDump prints the opcode listing of the compiled circuit.
func WithDump(v bool) Option {
	return func(o *opts.Options) { o.Dump = v }
}

// WithMaxPeelSize sets the largest loop body, in gates, that is still
// peeled.
//
// Set this option to "0" disables this limit, which means peeling every loop.
//
// The default value of this option is "256".
func WithMaxPeelSize(size int) Option {
	if size < 0 {
		panic(fmt.Sprintf("gatec: invalid peel size: %d", size))
	} else {
		return func(o *opts.Options) { o.MaxPeelSize = size }
	}
}

// SetDefaultNativeInline sets whether native inlining is enabled for all
// circuits compiled from now on.
//
// This value can also be configured with the `GATEC_ENABLE_NATIVE_INLINE`
// environment variable.
//
// Returns the old opts.EnableNativeInline value.
func SetDefaultNativeInline(v bool) bool {
	v, opts.EnableNativeInline = opts.EnableNativeInline, v
	return v
}

// SetDefaultLoopPeeling sets whether loop peeling is enabled for all circuits
// compiled from now on.
//
// This value can also be configured with the `GATEC_ENABLE_LOOP_PEELING`
// environment variable.
//
// Returns the old opts.EnableLoopPeeling value.
func SetDefaultLoopPeeling(v bool) bool {
	v, opts.EnableLoopPeeling = opts.EnableLoopPeeling, v
	return v
}

// SetDefaultVerify sets whether compiled circuits are verified from now on.
//
// This value can also be configured with the `GATEC_VERIFY` environment
// variable.
//
// Returns the old opts.EnableVerify value.
func SetDefaultVerify(v bool) bool {
	v, opts.EnableVerify = opts.EnableVerify, v
	return v
}

// SetDefaultCheckCallable sets whether lowered calls check the callee before
// dispatching, for all circuits compiled from now on.
//
// This value can also be configured with the `GATEC_CHECK_CALLABLE`
// environment variable.
//
// Returns the old opts.CheckCallable value.
func SetDefaultCheckCallable(v bool) bool {
	v, opts.CheckCallable = opts.CheckCallable, v
	return v
}

// SetDefaultMaxPeelSize sets the default peel size limit for all circuits
// compiled from now on.
//
// This value can also be configured with the `GATEC_MAX_PEEL_SIZE`
// environment variable.
//
// Returns the old opts.MaxPeelSize value.
func SetDefaultMaxPeelSize(size int) int {
	size, opts.MaxPeelSize = opts.MaxPeelSize, size
	return size
}
