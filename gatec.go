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
	"context"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/cloudwego/gatec/internal/catalog"
	"github.com/cloudwego/gatec/internal/circuit"
	"github.com/cloudwego/gatec/internal/inline"
	"github.com/cloudwego/gatec/internal/lowering"
	"github.com/cloudwego/gatec/internal/opt"
	"github.com/cloudwego/gatec/internal/opts"
	"github.com/cloudwego/gatec/internal/stats"
	"github.com/cloudwego/gatec/internal/verifier"
)

// Pass rewrites a circuit in place.
type Pass interface {
	Apply(*circuit.Circuit)
}

// PassDescriptor is one entry of the pipeline.
type PassDescriptor struct {
	Name    string
	New     func(o *opts.Options, fb catalog.Feedback) Pass
	Enabled func(o *opts.Options) bool
}

// Passes is the pipeline, in the order the passes run.
var Passes = [...]PassDescriptor{
	{Name: "Native Inlining", New: newNativeInline, Enabled: func(o *opts.Options) bool { return o.NativeInline }},
	{Name: "Call Lowering", New: newCallLowering, Enabled: always},
	{Name: "Loop Peeling", New: newLoopPeeling, Enabled: func(o *opts.Options) bool { return o.LoopPeeling }},
	{Name: "Useless-Node Elimination", New: newUselessElim, Enabled: always},
}

func always(*opts.Options) bool { return true }

func newNativeInline(o *opts.Options, fb catalog.Feedback) Pass { return &inline.NativeInline{Feedback: fb, Options: *o} }
func newCallLowering(o *opts.Options, fb catalog.Feedback) Pass { return &lowering.CallLowering{Options: *o, Feedback: fb} }
func newLoopPeeling(o *opts.Options, _ catalog.Feedback) Pass   { return &opt.LoopPeeling{Options: *o} }
func newUselessElim(_ *opts.Options, _ catalog.Feedback) Pass   { return new(opt.UselessElim) }

// Result is a compiled circuit together with what happened to it.
type Result struct {
	Circuit *circuit.Circuit
	Report  verifier.Report
	Passes  []string
}

// Compile runs the pass pipeline over c, which is rewritten in place. A nil
// feedback disables native inlining for every call site.
//
// A circuit rejected by the verifier yields a *CompileError; the caller is
// expected to keep running the function in the interpreter.
func Compile(ctx context.Context, c *circuit.Circuit, fb catalog.Feedback, options ...Option) (res *Result, err error) {
	o := opts.GetDefaultOptions()
	res = &Result{Circuit: c}

	/* apply all the options */
	for _, fn := range options {
		fn(&o)
	}

	/* no feedback, nothing to inline */
	if fb == nil {
		fb = catalog.NoFeedback{}
	}

	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "compile", "circuit", c.Name)
	defer tr.Finish("err", &err)

	for _, p := range Passes {
		if p.Enabled(&o) {
			runPass(ctx, c, p.Name, p.New(&o, fb))
			res.Passes = append(res.Passes, p.Name)
		}
	}

	/* dump the final circuit if requested */
	if o.Dump || tr.If("dump") {
		tr.Printw("circuit", "name", c.Name, "gates", c.Len(), "listing", circuit.Listing(c))
	}
	if tr.If("dump_dot") {
		tr.Printw("circuit graph", "name", c.Name, "dot", circuit.Dot(c))
	}

	/* verification is optional, but a rejected circuit never escapes */
	if o.Verify {
		res.Report = verifier.Verify(c)
		if e := res.Report.Err(); e != nil {
			stats.Add(&stats.Rejected, 1)
			return nil, &CompileError{Circuit: c.Name, Report: res.Report, Err: errors.Wrap(e, "verify %v", c.Name)}
		}
	}

	stats.Add(&stats.Compiled, 1)
	return res, nil
}

func runPass(ctx context.Context, c *circuit.Circuit, name string, p Pass) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "pass", "name", name)
	defer tr.Finish()

	n := c.Len()
	p.Apply(c)
	tr.Printw("pass done", "gates_before", n, "gates_after", c.Len())

	if tr.If("dump") {
		tr.Printw("after pass", "name", name, "listing", circuit.Listing(c))
	}
}
