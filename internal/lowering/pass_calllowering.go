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
	"tlog.app/go/tlog"

	"github.com/cloudwego/gatec/internal/callmode"
	"github.com/cloudwego/gatec/internal/catalog"
	"github.com/cloudwego/gatec/internal/circuit"
	"github.com/cloudwego/gatec/internal/opts"
	"github.com/cloudwego/gatec/internal/stats"
)

// CallLowering rewrites every high-level call site into a dispatch on the
// kind of the callee, reaching native code, compiled code or the
// interpreter with the calling convention each of them expects.
//
// Feedback is optional. A call site whose observed builtin does not accept
// its operands skips the fast builtin stubs.
type CallLowering struct {
	Options  opts.Options
	Feedback catalog.Feedback
}

func (self CallLowering) Apply(c *circuit.Circuit) {
	var calls []*circuit.Gate

	/* collect first, lowering adds gates */
	c.ForEach(func(g *circuit.Gate) {
		if g.Op() == circuit.OP_js_bytecode && callmode.IsCall(callmode.Bytecode(g.Static())) {
			calls = append(calls, g)
		}
	})

	/* lower every call site */
	for _, g := range calls {
		newLowerer(c, &self.Options, self.Feedback, g).lower()
	}
	stats.Add(&stats.CallsLowered, len(calls))
}

type _Arm struct {
	circuit.Outcome
	value *circuit.Gate
}

type _Lowerer struct {
	c    *circuit.Circuit
	b    *circuit.Builder
	opts *opts.Options
	fb   catalog.Feedback
	hir  *circuit.Gate
	fn   *circuit.Gate
	mode callmode.Mode
	ops  *_Operands
	arms []_Arm
}

func newLowerer(c *circuit.Circuit, o *opts.Options, fb catalog.Feedback, hir *circuit.Gate) *_Lowerer {
	b := circuit.NewBuilder(c)
	b.SetEnv(circuit.StateIn(hir, 0), circuit.DependIn(hir, 0))
	fn := callmode.Callee(hir)
	mode := callmode.FromGate(b, hir)
	return &_Lowerer{
		c:    c,
		b:    b,
		opts: o,
		fb:   fb,
		hir:  hir,
		fn:   fn,
		mode: mode,
		ops:  newOperands(b, mode, fn),
	}
}

func (self *_Lowerer) glue() *circuit.Gate {
	return self.c.Glue()
}

func (self *_Lowerer) call(t Target, args ...*circuit.Gate) *circuit.Gate {
	return self.b.Call(t.Op, uint64(t.Stub), circuit.I64, circuit.AnyType, args...)
}

func (self *_Lowerer) stub(id catalog.StubID, args ...*circuit.Gate) *circuit.Gate {
	return self.call(stubTarget(id), args...)
}

func (self *_Lowerer) branch(cond *circuit.Gate) (circuit.Outcome, circuit.Outcome) {
	d := self.b.Depend()
	t, f := self.b.Branch(cond)
	return circuit.Outcome{State: t, Depend: self.b.DependRelay(t, d)},
		circuit.Outcome{State: f, Depend: self.b.DependRelay(f, d)}
}

func (self *_Lowerer) enter(o circuit.Outcome) {
	self.b.SetEnv(o.State, o.Depend)
}

func (self *_Lowerer) done(v *circuit.Gate) {
	self.arms = append(self.arms, _Arm{Outcome: self.b.Env(), value: v})
}

// throw ends the current path with a runtime exception.
func (self *_Lowerer) throw(id catalog.StubID) {
	self.stub(id, self.glue())
	self.done(self.b.Exception())
}

func (self *_Lowerer) lower() {
	if self.opts.CallTimer {
		self.stub(catalog.StartCallTimer, self.glue(), self.fn, self.b.Boolean(true))
	}

	/* the callee and copied arguments must be read through the barrier */
	if self.opts.ReadBarrier {
		self.stub(catalog.CopyCallTarget, self.glue(), self.fn)
		if callmode.NeedsArgvCopy(self.mode) {
			self.stub(catalog.CopyArgvArray, self.glue(), self.ops.Slot(SlotArgv), self.ops.Slot(SlotArgc))
		}
	}

	/* only heap objects that are callable */
	if self.opts.CheckCallable {
		ok, bad := self.branch(self.b.TypeTest(circuit.IsCallable, self.fn))
		self.enter(bad)
		self.throw(catalog.ThrowNotCallableException)
		self.enter(ok)
	}

	/* native functions and JS functions take different conventions */
	native, js := self.branch(self.ops.load(circuit.FieldIsNative, self.fn))
	self.enter(native)
	self.lowerNative()
	self.enter(js)
	self.lowerJS()
	self.finish()
}

func (self *_Lowerer) lowerNative() {
	if self.opts.PGOProfiler && callmode.SupportsPGO(self.mode) && !callmode.IsGetterSetter(self.mode) {
		self.stub(catalog.ProfileNativeCall, self.glue(), self.fn)
	}

	/* proxies keep their native entry in the method */
	proxy, plain := self.branch(self.b.TypeTest(circuit.IsJSProxy, self.fn))
	self.enter(proxy)
	self.dispatch(Native, self.ops.load(circuit.FieldNativeCode, self.ops.load(circuit.FieldMethod, self.fn)))
	self.enter(plain)

	/* typed builtins skip the native frame entirely */
	code := self.ops.load(circuit.FieldCodeEntry, self.fn)
	if callmode.SupportsFastBuiltin(self.mode) && self.fastBuiltinMatches() {
		self.tryFastBuiltin(code)
	}
	self.dispatch(Native, code)
}

// fastBuiltinMatches reports whether the builtin observed at this call site,
// if there is one, accepts the operands the fast stubs would pass to it.
func (self *_Lowerer) fastBuiltinMatches() bool {
	if self.fb == nil {
		return true
	}
	id, ok := self.fb.BuiltinOf(self.hir)
	if !ok || !catalog.IsFastBuiltin(id) {
		return true
	}
	if err := catalog.CheckCall(id, callmode.Receiver(self.hir), callmode.Args(self.hir)); err != nil {
		tlog.V("lowering").Printw("fast builtin skipped", "call", self.hir.Id, "err", err)
		return false
	}
	return true
}

// tryFastBuiltin emits the fast builtin path and leaves the builder on the
// path where the callee is not a fast builtin.
func (self *_Lowerer) tryFastBuiltin(code *circuit.Gate) {
	fast, slow := self.branch(self.ops.load(circuit.FieldIsFastBuiltin, self.fn))
	self.enter(fast)

	/* receiver modes cannot reach the constructor stubs */
	if !callmode.TraitsOf(self.mode).CheckBuiltinID {
		self.dispatch(FastBuiltin, code)
		self.enter(slow)
		return
	}

	id := self.ops.load(circuit.FieldBuiltinID, self.fn)
	ok, ctor := self.branch(self.b.ICmp(circuit.CondUlt, id, self.b.Int64(int64(catalog.ConstructorStubFirst))))
	self.enter(ok)
	self.dispatch(FastBuiltin, code)
	self.b.Join(slow, ctor)
}

func (self *_Lowerer) lowerJS() {
	if !callmode.IsCallNew(self.mode) {
		cls, ok := self.branch(self.ops.load(circuit.FieldIsClassConstructor, self.fn))
		self.enter(cls)
		self.throw(catalog.ThrowCallConstructorException)
		self.enter(ok)
	}

	/* base constructors allocate the receiver before entering the callee */
	if _, ok := self.mode.(*callmode.CallConstructor); ok {
		self.ops.fields.thisObj = self.stub(catalog.NewThisObject, self.glue(), self.fn)
	}

	/* call profiling */
	if self.opts.PGOProfiler && callmode.SupportsPGO(self.mode) {
		if callmode.IsGetterSetter(self.mode) {
			self.stub(catalog.ProfileGetterSetterCall, self.glue(), self.fn)
		} else {
			self.stub(catalog.ProfileCall, self.glue(), self.fn)
		}
	}

	/* proxies always go through the interpreter */
	proxy, plain := self.branch(self.b.TypeTest(circuit.IsJSProxy, self.fn))
	self.enter(proxy)
	self.dispatch(Interpreter, nil)
	self.enter(plain)

	/* compiled code with a fast-call entry */
	fc, nofc := self.branch(self.ops.load(circuit.FieldHasAotFastCall, self.fn))
	self.enter(fc)
	self.lowerAot(Fast, FastBridge)
	self.enter(nofc)

	/* compiled code with the standard entry */
	aot, interp := self.branch(self.ops.load(circuit.FieldHasAot, self.fn))
	self.enter(aot)
	self.lowerAot(Slow, SlowBridge)
	self.enter(interp)

	/* baseline code exists unless the slot holds undefined or a hole */
	if self.opts.Baseline {
		bc := self.ops.load(circuit.FieldBaselineCode, self.fn)
		ne := self.b.ICmp(circuit.CondNe, bc, self.b.Undefined())
		nh := self.b.ICmp(circuit.CondNe, bc, self.b.Hole())
		base, plain := self.branch(self.b.Binary(circuit.OP_and, circuit.I1, ne, nh))
		self.enter(base)
		self.dispatch(Baseline, nil)
		self.enter(plain)
	}

	/* plain interpreter */
	self.dispatch(Interpreter, nil)
}

// lowerAot calls compiled code directly when the declared argument count
// matches the call site, and through a bridge otherwise.
func (self *_Lowerer) lowerAot(exact Strategy, bridge Strategy) {
	expected := self.ops.load(circuit.FieldExpectedArgc, self.fn)
	declared := self.b.Add(expected, self.b.Int64(ImplicitArgs))
	match, mismatch := self.branch(self.b.ICmp(circuit.CondEq, declared, self.ops.numArgs()))
	code := self.ops.load(circuit.FieldCodeEntry, self.fn)
	self.ops.expect = expected
	self.enter(match)
	self.dispatch(exact, code)
	self.enter(mismatch)
	self.dispatch(bridge, code)
}

// dispatch emits the call for one strategy at the current position and
// records the resulting arm.
func (self *_Lowerer) dispatch(s Strategy, code *circuit.Gate) {
	t := StubFor(self.mode, s)
	self.ops.native = code
	args := self.ops.Materialize(ArgLayout(self.mode, s))

	/* direct calls into compiled code take the entry first */
	if t.Stub == NoStub {
		args = append([]*circuit.Gate{code}, args...)
	}

	/* constructors verify what the callee returned */
	ret := self.call(t, args...)
	if s.isAot() && callmode.IsCallNew(self.mode) {
		ret = self.stub(catalog.ConstructorCheck, self.glue(), self.fn, ret, self.ops.Slot(SlotThisObj))
	}

	tlog.V("lowering").Printw("dispatch", "call", self.hir.Id, "mode", self.mode.Kind(), "strategy", s, "target", t)
	self.done(ret)
}

// finish joins every arm, checks for a pending exception and replaces the
// call site.
func (self *_Lowerer) finish() {
	var value *circuit.Gate
	outs := make([]circuit.Outcome, len(self.arms))
	vals := make([]*circuit.Gate, len(self.arms))

	/* merge all the paths */
	for i, a := range self.arms {
		outs[i], vals[i] = a.Outcome, a.value
	}
	if m := self.b.Join(outs...); len(vals) == 1 {
		value = vals[0]
	} else {
		value = self.b.ValueSelector(circuit.I64, circuit.AnyType, m, vals...)
	}

	if self.opts.CallTimer {
		self.stub(catalog.EndCallTimer, self.glue(), self.fn)
	}

	/* route pending exceptions to the handler, or return them */
	tlog.V("lowering").Printw("lowered call", "call", self.hir.Id, "mode", self.mode.Kind(), "paths", len(self.arms))
	circuit.ReplaceHirWithExceptionCheck(self.b, self.hir, value)
}
