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
package emu

import (
	"math"
	"math/bits"

	"tlog.app/go/errors"

	"github.com/cloudwego/gatec/internal/catalog"
	"github.com/cloudwego/gatec/internal/circuit"
)

// MaxSteps bounds the number of control transfers of a single run.
var MaxSteps = 1 << 20

// Value is the raw bit pattern of a gate value. Integers narrower than 64
// bits are kept zero-extended.
type Value uint64

func Int(v int64) Value     { return Value(v) }
func Float(v float64) Value { return Value(math.Float64bits(v)) }

func Bool(v bool) Value {
	if v {
		return 1
	} else {
		return 0
	}
}

func (self Value) Int() int64     { return int64(self) }
func (self Value) Float() float64 { return math.Float64frombits(uint64(self)) }
func (self Value) Bool() bool     { return self&1 != 0 }

// Emulator evaluates a circuit by walking its control chain.
type Emulator struct {
	c     *circuit.Circuit
	args  []Value
	fixed map[*circuit.Gate]Value
	memo  map[*circuit.Gate]Value
	steps int
}

// Run evaluates c with one value per parameter, glue excluded.
func Run(c *circuit.Circuit, args ...Value) (Value, error) {
	if len(args) != c.NumParams() {
		return 0, errors.New("emu: %s expects %d arguments, got %d", c.Name, c.NumParams(), len(args))
	}
	e := &Emulator{
		c:     c,
		args:  args,
		fixed: make(map[*circuit.Gate]Value),
		memo:  make(map[*circuit.Gate]Value),
	}
	return e.run()
}

func (self *Emulator) run() (Value, error) {
	cur := self.c.StateEntry()
	for {
		if self.steps++; self.steps > MaxSteps {
			return 0, errors.New("emu: step limit exceeded in %s", self.c.Name)
		}

		/* find where the control goes next */
		next, err := self.successor(cur)
		if err != nil {
			return 0, err
		}

		/* entering a gate may assign fixed values */
		switch next.Op() {
		case circuit.OP_return:
			return self.eval(circuit.ValueIn(next, 0))
		case circuit.OP_return_void:
			return 0, nil
		case circuit.OP_merge, circuit.OP_loop_begin:
			if err = self.enter(next, cur); err != nil {
				return 0, err
			}
		case circuit.OP_loop_exit:
			if err = self.exit(next); err != nil {
				return 0, err
			}
		}
		cur = next
	}
}

func (self *Emulator) successor(g *circuit.Gate) (*circuit.Gate, error) {
	var succ []*circuit.Gate
	for it := g.Uses(); it.Next(); {
		if u := it.User(); it.Kind() == circuit.StateEdge && (u.IsState() || u.Op().IsTerminal()) {
			succ = append(succ, u)
		}
	}

	/* branches pick one of their arms */
	if g.Op() == circuit.OP_if_branch {
		cond, err := self.eval(circuit.ValueIn(g, 0))
		if err != nil {
			return nil, err
		}
		want := circuit.OP_if_false
		if cond.Bool() {
			want = circuit.OP_if_true
		}
		for _, s := range succ {
			if s.Op() == want {
				return s, nil
			}
		}
		return nil, errors.New("emu: branch %v has no %v arm", g, want)
	}

	/* everything else falls through */
	if len(succ) != 1 {
		return nil, errors.New("emu: %v has %d control successors", g, len(succ))
	}
	if op := succ[0].Op(); op.IsCall() || op == circuit.OP_if_success || op == circuit.OP_if_exception {
		return nil, errors.New("emu: unsupported control gate %v", succ[0])
	}
	return succ[0], nil
}

// enter assigns the selectors of m as if all of them were copied at once.
func (self *Emulator) enter(m *circuit.Gate, pred *circuit.Gate) error {
	idx := -1
	for i := 0; i < circuit.NumStateIn(m); i++ {
		if circuit.StateIn(m, i) == pred {
			idx = i
			break
		}
	}
	if idx < 0 {
		return errors.New("emu: %v is not a predecessor of %v", pred, m)
	}

	/* read everything before writing anything */
	var sels []*circuit.Gate
	var vals []Value
	for it := m.Uses(); it.Next(); {
		if u := it.User(); u.Op() == circuit.OP_value_selector && it.Kind() == circuit.StateEdge {
			v, err := self.eval(circuit.ValueIn(u, idx))
			if err != nil {
				return err
			}
			sels = append(sels, u)
			vals = append(vals, v)
		}
	}
	for i, s := range sels {
		self.fixed[s] = vals[i]
	}
	self.memo = make(map[*circuit.Gate]Value)
	return nil
}

func (self *Emulator) exit(x *circuit.Gate) error {
	for it := x.Uses(); it.Next(); {
		if u := it.User(); u.Op() == circuit.OP_loop_exit_value {
			v, err := self.eval(circuit.ValueIn(u, 0))
			if err != nil {
				return err
			}
			self.fixed[u] = v
		}
	}
	self.memo = make(map[*circuit.Gate]Value)
	return nil
}

func (self *Emulator) eval(g *circuit.Gate) (Value, error) {
	if v, ok := self.memo[g]; ok {
		return v, nil
	}
	if g.Op() == circuit.OP_value_selector || g.Op() == circuit.OP_loop_exit_value {
		if v, ok := self.fixed[g]; ok {
			return v, nil
		} else {
			return 0, errors.New("emu: %v is read before its control is reached", g)
		}
	}

	/* everything else goes through the dispatch table */
	if dispatchTab[g.Op()] == nil {
		return 0, errors.New("emu: unsupported gate %v", g)
	}
	v, err := dispatchTab[g.Op()](self, g)
	if err != nil {
		return 0, err
	}
	self.memo[g] = v
	return v, nil
}

func (self *Emulator) operands(g *circuit.Gate) ([]Value, error) {
	n := circuit.NumValueIn(g)
	ret := make([]Value, n)
	for i := 0; i < n; i++ {
		v, err := self.eval(circuit.ValueIn(g, i))
		if err != nil {
			return nil, err
		}
		ret[i] = v
	}
	return ret, nil
}

// dispatchTab is filled at init time, since the handlers reach back into it
// through eval.
var dispatchTab [256]func(e *Emulator, g *circuit.Gate) (Value, error)

func init() {
	dispatchTab[circuit.OP_constant] = (*Emulator).emu_OP_constant
	dispatchTab[circuit.OP_arg] = (*Emulator).emu_OP_arg
	dispatchTab[circuit.OP_add] = (*Emulator).emu_OP_binary
	dispatchTab[circuit.OP_sub] = (*Emulator).emu_OP_binary
	dispatchTab[circuit.OP_mul] = (*Emulator).emu_OP_binary
	dispatchTab[circuit.OP_and] = (*Emulator).emu_OP_binary
	dispatchTab[circuit.OP_or] = (*Emulator).emu_OP_binary
	dispatchTab[circuit.OP_xor] = (*Emulator).emu_OP_binary
	dispatchTab[circuit.OP_shl] = (*Emulator).emu_OP_binary
	dispatchTab[circuit.OP_lsr] = (*Emulator).emu_OP_binary
	dispatchTab[circuit.OP_icmp] = (*Emulator).emu_OP_icmp
	dispatchTab[circuit.OP_fcmp] = (*Emulator).emu_OP_fcmp
	dispatchTab[circuit.OP_zext] = (*Emulator).emu_OP_zext
	dispatchTab[circuit.OP_trunc] = (*Emulator).emu_OP_trunc
	dispatchTab[circuit.OP_builtin_op] = (*Emulator).emu_OP_builtin_op
}

func width(mt circuit.MachineType) uint {
	switch mt {
	case circuit.I1:
		return 1
	case circuit.I8:
		return 8
	case circuit.I16:
		return 16
	case circuit.I32, circuit.F32:
		return 32
	default:
		return 64
	}
}

func mask(mt circuit.MachineType, v uint64) Value {
	if w := width(mt); w == 64 {
		return Value(v)
	} else {
		return Value(v & (1<<w - 1))
	}
}

func sext(mt circuit.MachineType, v Value) int64 {
	s := 64 - width(mt)
	return int64(v) << s >> s
}

func toFloat(g *circuit.Gate, v Value) float64 {
	if g.MachineType().IsFloat() {
		return v.Float()
	} else {
		return float64(sext(g.MachineType(), v))
	}
}

func (self *Emulator) emu_OP_constant(g *circuit.Gate) (Value, error) {
	return Value(g.Static()), nil
}

func (self *Emulator) emu_OP_arg(g *circuit.Gate) (Value, error) {
	if i := g.Static(); i == 0 {
		return 0, nil
	} else {
		return self.args[i-1], nil
	}
}

func (self *Emulator) emu_OP_binary(g *circuit.Gate) (Value, error) {
	v, err := self.operands(g)
	if err != nil {
		return 0, err
	}

	/* floating point arithmetic */
	if mt := g.MachineType(); mt.IsFloat() {
		x, y := v[0].Float(), v[1].Float()
		switch g.Op() {
		case circuit.OP_add:
			return Float(x + y), nil
		case circuit.OP_sub:
			return Float(x - y), nil
		case circuit.OP_mul:
			return Float(x * y), nil
		default:
			return 0, errors.New("emu: %v on %v", g, mt)
		}
	}

	/* integer arithmetic wraps at the machine width */
	x, y := uint64(v[0]), uint64(v[1])
	switch g.Op() {
	case circuit.OP_add:
		return mask(g.MachineType(), x+y), nil
	case circuit.OP_sub:
		return mask(g.MachineType(), x-y), nil
	case circuit.OP_mul:
		return mask(g.MachineType(), x*y), nil
	case circuit.OP_and:
		return mask(g.MachineType(), x&y), nil
	case circuit.OP_or:
		return mask(g.MachineType(), x|y), nil
	case circuit.OP_xor:
		return mask(g.MachineType(), x^y), nil
	case circuit.OP_shl:
		return mask(g.MachineType(), x<<(y%uint64(width(g.MachineType())))), nil
	default:
		return mask(g.MachineType(), x>>(y%uint64(width(g.MachineType())))), nil
	}
}

func (self *Emulator) emu_OP_icmp(g *circuit.Gate) (Value, error) {
	v, err := self.operands(g)
	if err != nil {
		return 0, err
	}
	mt := circuit.ValueIn(g, 0).MachineType()
	x, y := uint64(v[0]), uint64(v[1])
	sx, sy := sext(mt, v[0]), sext(mt, v[1])

	/* signed and unsigned predicates */
	switch circuit.Cond(g.Static()) {
	case circuit.CondEq:
		return Bool(x == y), nil
	case circuit.CondNe:
		return Bool(x != y), nil
	case circuit.CondSlt:
		return Bool(sx < sy), nil
	case circuit.CondSle:
		return Bool(sx <= sy), nil
	case circuit.CondSgt:
		return Bool(sx > sy), nil
	case circuit.CondSge:
		return Bool(sx >= sy), nil
	case circuit.CondUlt:
		return Bool(x < y), nil
	case circuit.CondUle:
		return Bool(x <= y), nil
	case circuit.CondUgt:
		return Bool(x > y), nil
	case circuit.CondUge:
		return Bool(x >= y), nil
	default:
		return 0, errors.New("emu: invalid integer predicate in %v", g)
	}
}

func (self *Emulator) emu_OP_fcmp(g *circuit.Gate) (Value, error) {
	v, err := self.operands(g)
	if err != nil {
		return 0, err
	}
	x, y := v[0].Float(), v[1].Float()

	/* ordered predicates, signedness is ignored */
	switch circuit.Cond(g.Static()) {
	case circuit.CondEq:
		return Bool(x == y), nil
	case circuit.CondNe:
		return Bool(x != y), nil
	case circuit.CondSlt, circuit.CondUlt:
		return Bool(x < y), nil
	case circuit.CondSle, circuit.CondUle:
		return Bool(x <= y), nil
	case circuit.CondSgt, circuit.CondUgt:
		return Bool(x > y), nil
	case circuit.CondSge, circuit.CondUge:
		return Bool(x >= y), nil
	default:
		return Bool(math.IsNaN(x) || math.IsNaN(y)), nil
	}
}

func (self *Emulator) emu_OP_zext(g *circuit.Gate) (Value, error) {
	return self.eval(circuit.ValueIn(g, 0))
}

func (self *Emulator) emu_OP_trunc(g *circuit.Gate) (Value, error) {
	v, err := self.eval(circuit.ValueIn(g, 0))
	return mask(g.MachineType(), uint64(v)), err
}

var _Unary = map[catalog.BuiltinID]func(float64) float64{
	catalog.MathAcos:   math.Acos,
	catalog.MathAcosh:  math.Acosh,
	catalog.MathAsin:   math.Asin,
	catalog.MathAsinh:  math.Asinh,
	catalog.MathAtan:   math.Atan,
	catalog.MathAtanh:  math.Atanh,
	catalog.MathCos:    math.Cos,
	catalog.MathCosh:   math.Cosh,
	catalog.MathSin:    math.Sin,
	catalog.MathSinh:   math.Sinh,
	catalog.MathTan:    math.Tan,
	catalog.MathTanh:   math.Tanh,
	catalog.MathLog:    math.Log,
	catalog.MathLog2:   math.Log2,
	catalog.MathLog10:  math.Log10,
	catalog.MathLog1p:  math.Log1p,
	catalog.MathExp:    math.Exp,
	catalog.MathExpm1:  math.Expm1,
	catalog.MathCbrt:   math.Cbrt,
	catalog.MathSqrt:   math.Sqrt,
	catalog.MathTrunc:  math.Trunc,
	catalog.MathCeil:   math.Ceil,
	catalog.MathFloor:  math.Floor,
	catalog.MathAbs:    math.Abs,
	catalog.MathSign:   sign,
	catalog.MathRound:  round,
	catalog.MathFRound: fround,
}

var _Binary = map[catalog.BuiltinID]func(float64, float64) float64{
	catalog.MathAtan2: math.Atan2,
	catalog.MathPow:   math.Pow,
	catalog.MathMin:   math.Min,
	catalog.MathMax:   math.Max,
}

func sign(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return x
	}
}

// round rounds half-way cases towards +Inf.
func round(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) || x == 0 {
		return x
	}
	if r := math.Floor(x + 0.5); r == 0 && x < 0 {
		return math.Copysign(0, -1)
	} else {
		return r
	}
}

func fround(x float64) float64 {
	return float64(float32(x))
}

func toInt32(x float64) uint32 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	return uint32(int64(math.Mod(math.Trunc(x), 1<<32)))
}

func (self *Emulator) emu_OP_builtin_op(g *circuit.Gate) (Value, error) {
	v, err := self.operands(g)
	if err != nil {
		return 0, err
	}

	/* everything here works on numbers */
	id := catalog.BuiltinID(g.Static() &^ catalog.MachineOp)
	x := make([]float64, len(v))
	for i := range v {
		x[i] = toFloat(circuit.ValueIn(g, i), v[i])
	}

	/* math builtins */
	if fn, ok := _Unary[id]; ok && len(x) == 1 {
		return Float(fn(x[0])), nil
	}
	if fn, ok := _Binary[id]; ok && len(x) == 2 {
		return Float(fn(x[0], x[1])), nil
	}

	/* integer and predicate builtins */
	switch {
	case id == catalog.MathClz32 && len(x) == 1:
		return Value(bits.LeadingZeros32(toInt32(x[0]))), nil
	case id == catalog.MathImul && len(x) == 2:
		return Value(toInt32(x[0]) * toInt32(x[1])), nil
	case (id == catalog.GlobalIsFinite || id == catalog.NumberIsFinite) && len(x) == 1:
		return Bool(!math.IsNaN(x[0]) && !math.IsInf(x[0], 0)), nil
	case (id == catalog.GlobalIsNan || id == catalog.NumberIsNaN) && len(x) == 1:
		return Bool(math.IsNaN(x[0])), nil
	case id == catalog.NumberIsInteger && len(x) == 1:
		return Bool(!math.IsInf(x[0], 0) && math.Trunc(x[0]) == x[0]), nil
	case id == catalog.NumberIsSafeInteger && len(x) == 1:
		return Bool(math.Trunc(x[0]) == x[0] && math.Abs(x[0]) <= 1<<53-1), nil
	default:
		return 0, errors.New("emu: unsupported builtin %v with %d operands", id, len(x))
	}
}
