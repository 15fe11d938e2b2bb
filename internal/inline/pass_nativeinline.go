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
package inline

import (
	"math"

	"tlog.app/go/tlog"

	"github.com/cloudwego/gatec/internal/callmode"
	"github.com/cloudwego/gatec/internal/catalog"
	"github.com/cloudwego/gatec/internal/circuit"
	"github.com/cloudwego/gatec/internal/opts"
	"github.com/cloudwego/gatec/internal/stats"
)

// NativeInline replaces calls to well-known native builtins with guarded
// inline operations.
type NativeInline struct {
	Feedback catalog.Feedback
	Options  opts.Options
}

type _Site struct {
	g  *circuit.Gate
	id catalog.BuiltinID
}

func (self NativeInline) Apply(c *circuit.Circuit) {
	var sites []_Site
	fb := self.Feedback

	/* nothing to inline without feedback */
	if fb == nil {
		return
	}

	/* find all the candidates */
	c.ForEach(func(g *circuit.Gate) {
		if g.Op() != circuit.OP_js_bytecode || !callmode.IsPlainCall(callmode.Bytecode(g.Static())) {
			return
		}
		if id, ok := fb.BuiltinOf(g); ok && catalog.IsInlineable(id) {
			sites = append(sites, _Site{g, id})
		}
	})

	/* inline every one of them */
	for _, s := range sites {
		if newInliner(c, &self.Options, s).inline() {
			stats.Add(&stats.BuiltinsInlined, 1)
			tlog.V("inline").Printw("inlined builtin", "call", s.g.Id, "builtin", catalog.NameOf(s.id))
		} else {
			tlog.V("inline").Printw("builtin not inlined", "call", s.g.Id, "builtin", catalog.NameOf(s.id))
		}
	}
}

type _Inliner struct {
	c       *circuit.Circuit
	b       *circuit.Builder
	opts    *opts.Options
	hir     *circuit.Gate
	id      catalog.BuiltinID
	fn      *circuit.Gate
	this    *circuit.Gate
	args    []*circuit.Gate
	fs      *circuit.Gate
	checked bool
}

func newInliner(c *circuit.Circuit, o *opts.Options, s _Site) *_Inliner {
	b := circuit.NewBuilder(c)
	b.SetEnv(circuit.StateIn(s.g, 0), circuit.DependIn(s.g, 0))
	return &_Inliner{
		c:    c,
		b:    b,
		opts: o,
		hir:  s.g,
		id:   s.id,
		fn:   callmode.Callee(s.g),
		this: callmode.Receiver(s.g),
		args: callmode.Args(s.g),
		fs:   circuit.FrameStateOf(s.g),
	}
}

func (self *_Inliner) argc() int {
	return len(self.args)
}

// fold replaces the call with a constant. Folds need no guards.
func (self *_Inliner) fold(v *circuit.Gate) bool {
	circuit.ReplaceHirAndDeleteIfException(self.c, self.hir, self.b.Env(), v)
	return true
}

func (self *_Inliner) deopt(cond *circuit.Gate, reason circuit.DeoptReason) {
	self.b.DeoptCheck(cond, self.fs, reason)
}

// target guards that the callee still is the expected builtin.
func (self *_Inliner) target() {
	if !self.checked {
		self.checked = true
		if !self.opts.UncheckedInline {
			self.deopt(self.b.CallTargetTest(uint64(self.id), self.fn), circuit.DeoptNotCallTarget)
		}
	}
}

func (self *_Inliner) typed(v *circuit.Gate, kind circuit.TypeKind, reason circuit.DeoptReason) *circuit.Gate {
	self.target()
	self.deopt(self.b.TypeTest(kind, v), reason)
	return v
}

func (self *_Inliner) number(i int) *circuit.Gate {
	return self.typed(self.args[i], circuit.IsNumber, circuit.DeoptNotNumber)
}

func (self *_Inliner) receiver(kind circuit.TypeKind, reason circuit.DeoptReason) *circuit.Gate {
	return self.typed(self.this, kind, reason)
}

// argOr returns the i-th argument, or undefined when it is missing.
func (self *_Inliner) argOr(i int) *circuit.Gate {
	if i < len(self.args) {
		return self.args[i]
	} else {
		return self.b.Undefined()
	}
}

func (self *_Inliner) static() uint64 {
	if catalog.LowersToMachineOp(self.id, catalog.HostFeatures()) {
		return uint64(self.id) | catalog.MachineOp
	} else {
		return uint64(self.id)
	}
}

// op emits the inlined operation after the guards.
func (self *_Inliner) op(mt circuit.MachineType, gt circuit.GateType, args ...*circuit.Gate) *circuit.Gate {
	self.target()
	if self.opts.TraceInline {
		self.b.Call(circuit.OP_runtime_call, uint64(catalog.AotInlineBuiltinTrace), circuit.I64, circuit.AnyType,
			self.c.Glue(), self.fn, self.b.TaggedInt(int32(self.id)))
	}
	return self.b.BuiltinOp(self.static(), mt, gt, args...)
}

// done replaces the call with the inlined value.
func (self *_Inliner) done(v *circuit.Gate) bool {
	if catalog.IsSideEffecting(self.id) {
		circuit.ReplaceHirWithExceptionCheck(self.b, self.hir, v)
	} else {
		circuit.ReplaceHirAndDeleteIfException(self.c, self.hir, self.b.Env(), v)
	}
	return true
}

func isUnaryMath(id catalog.BuiltinID) bool {
	switch id {
	case catalog.MathAcos, catalog.MathAcosh, catalog.MathAsin, catalog.MathAsinh, catalog.MathAtan, catalog.MathAtanh:
		return true
	case catalog.MathCos, catalog.MathCosh, catalog.MathSin, catalog.MathSinh, catalog.MathTan, catalog.MathTanh:
		return true
	case catalog.MathLog, catalog.MathLog2, catalog.MathLog10, catalog.MathLog1p, catalog.MathExp, catalog.MathExpm1:
		return true
	case catalog.MathCbrt, catalog.MathSqrt, catalog.MathSign, catalog.MathAbs:
		return true
	case catalog.MathTrunc, catalog.MathRound, catalog.MathFRound, catalog.MathCeil, catalog.MathFloor:
		return true
	default:
		return false
	}
}

func (self *_Inliner) inline() bool {
	id := self.id

	/* receivers must be present for the prototype methods */
	if catalog.HasReceiver(id) && self.this == nil {
		return false
	}

	/* calls without a frame state can only be folded */
	if self.fs == nil && !self.foldable() {
		return false
	}

	/* anything else stays a generic native call */
	if err := catalog.CheckCall(id, self.this, self.args); err != nil {
		tlog.V("inline").Printw("signature mismatch", "call", self.hir.Id, "err", err)
		return false
	}

	switch {
	case isUnaryMath(id):
		return self.unary()
	case id == catalog.MathAtan2 || id == catalog.MathPow:
		return self.binary()
	case id == catalog.MathMin || id == catalog.MathMax:
		return self.minmax()
	}

	switch id {
	case catalog.MathClz32:
		if self.argc() == 0 {
			return self.fold(self.b.Int32(32))
		}
		return self.done(self.op(circuit.I32, circuit.IntType, self.number(0)))
	case catalog.MathImul:
		if self.argc() < 2 {
			return self.fold(self.b.Int32(0))
		}
		return self.done(self.op(circuit.I32, circuit.IntType, self.number(0), self.number(1)))
	case catalog.GlobalIsFinite:
		if self.argc() == 0 {
			return self.fold(self.b.Boolean(false))
		}
		return self.done(self.op(circuit.I1, circuit.BooleanType, self.number(0)))
	case catalog.GlobalIsNan:
		if self.argc() == 0 {
			return self.fold(self.b.Boolean(true))
		}
		return self.done(self.op(circuit.I1, circuit.BooleanType, self.number(0)))
	case catalog.NumberIsFinite, catalog.NumberIsInteger, catalog.NumberIsNaN, catalog.NumberIsSafeInteger:
		if self.argc() == 0 {
			return self.fold(self.b.Boolean(false))
		}
		return self.done(self.op(circuit.I1, circuit.BooleanType, self.args[0]))
	case catalog.NumberParseFloat:
		if self.argc() == 0 {
			return self.fold(self.b.NaN())
		}
		return self.done(self.op(circuit.F64, circuit.DoubleType, self.typed(self.args[0], circuit.IsString, circuit.DeoptNotString)))
	case catalog.StringFromCharCode:
		if self.argc() != 1 {
			return false
		}
		return self.done(self.op(circuit.I64, circuit.StringType, self.number(0)))
	case catalog.StringCharCodeAt:
		return self.charCodeAt()
	case catalog.MapGet:
		return self.done(self.op(circuit.I64, circuit.AnyType, self.receiver(circuit.IsMap, circuit.DeoptNotMap), self.argOr(0)))
	case catalog.MapHas, catalog.MapDelete:
		return self.done(self.op(circuit.I1, circuit.BooleanType, self.receiver(circuit.IsMap, circuit.DeoptNotMap), self.argOr(0)))
	case catalog.MapKeys, catalog.MapValues, catalog.MapEntries:
		return self.done(self.op(circuit.I64, circuit.ObjectType, self.receiver(circuit.IsMap, circuit.DeoptNotMap)))
	case catalog.SetHas, catalog.SetDelete:
		return self.done(self.op(circuit.I1, circuit.BooleanType, self.receiver(circuit.IsSet, circuit.DeoptNotSet), self.argOr(0)))
	case catalog.SetAdd:
		return self.done(self.op(circuit.I64, circuit.ObjectType, self.receiver(circuit.IsSet, circuit.DeoptNotSet), self.argOr(0)))
	case catalog.SetValues, catalog.SetEntries:
		return self.done(self.op(circuit.I64, circuit.ObjectType, self.receiver(circuit.IsSet, circuit.DeoptNotSet)))
	case catalog.DateNow:
		return self.done(self.op(circuit.F64, circuit.DoubleType))
	case catalog.ObjectIs:
		return self.done(self.op(circuit.I1, circuit.BooleanType, self.argOr(0), self.argOr(1)))
	default:
		return false
	}
}

// foldable reports call sites that fold to a constant.
func (self *_Inliner) foldable() bool {
	switch id := self.id; {
	case isUnaryMath(id), id == catalog.MathClz32, id == catalog.GlobalIsFinite, id == catalog.GlobalIsNan:
		return self.argc() == 0
	case id == catalog.MathMin, id == catalog.MathMax, id == catalog.NumberParseFloat:
		return self.argc() == 0
	case id == catalog.NumberIsFinite, id == catalog.NumberIsInteger, id == catalog.NumberIsNaN, id == catalog.NumberIsSafeInteger:
		return self.argc() == 0
	case id == catalog.MathAtan2, id == catalog.MathPow, id == catalog.MathImul:
		return self.argc() < 2
	default:
		return false
	}
}

func (self *_Inliner) unary() bool {
	if self.argc() == 0 {
		return self.fold(self.b.NaN())
	}
	return self.done(self.op(circuit.F64, circuit.DoubleType, self.number(0)))
}

func (self *_Inliner) binary() bool {
	if self.argc() < 2 {
		return self.fold(self.b.NaN())
	}
	return self.done(self.op(circuit.F64, circuit.DoubleType, self.number(0), self.number(1)))
}

// minmax folds the arguments pairwise. A single argument is returned as is
// once it is known to be a number.
func (self *_Inliner) minmax() bool {
	switch self.argc() {
	case 0:
		if self.id == catalog.MathMin {
			return self.fold(self.b.Double(math.Inf(1)))
		} else {
			return self.fold(self.b.Double(math.Inf(-1)))
		}
	case 1:
		return self.done(self.number(0))
	}

	/* guard everything before computing anything */
	for i := range self.args {
		self.number(i)
	}

	/* fold from the left */
	acc := self.op(circuit.F64, circuit.NumberType, self.args[0], self.args[1])
	for _, v := range self.args[2:] {
		acc = self.op(circuit.F64, circuit.NumberType, acc, v)
	}
	return self.done(acc)
}

// charCodeAt reads a code unit; a missing position reads the first one.
func (self *_Inliner) charCodeAt() bool {
	str := self.receiver(circuit.IsString, circuit.DeoptNotString)
	pos := self.b.Int32(0)
	if self.argc() > 0 {
		pos = self.typed(self.args[0], circuit.IsInt32, circuit.DeoptNotInt)
	}
	return self.done(self.op(circuit.F64, circuit.NumberType, str, pos))
}
