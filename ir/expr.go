// Copyright 2026 shmemdist Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ir

import "fmt"

// Expr is a compile-time index expression. Expressions are built by the
// lowering pipeline to describe tile offsets and loop bounds in terms of
// constants, worker-grid coordinates and loop induction variables.
//
// Expressions are immutable; constructors fold constants eagerly so that a
// fully static expression is always a single *Const node.
type Expr interface {
	// Eval evaluates the expression under the given environment.
	Eval(env *Env) int64

	// String returns a compact printable form, e.g. "tid.x*4 + i0".
	String() string

	isExpr()
}

// Env binds worker-grid coordinates and loop induction variables for
// expression evaluation. Evaluation is only used for verification and
// testing; the pipeline itself manipulates expressions symbolically.
type Env struct {
	// Worker holds the (x, y, z) coordinate of the worker being evaluated.
	Worker [3]int64

	// Vars maps induction variable names to their current values.
	Vars map[string]int64
}

// Bind returns env with name bound to v, copying the variable map so the
// caller's environment is unchanged.
func (env *Env) Bind(name string, v int64) *Env {
	next := &Env{Worker: env.Worker, Vars: make(map[string]int64, len(env.Vars)+1)}
	for k, val := range env.Vars {
		next.Vars[k] = val
	}
	next.Vars[name] = v
	return next
}

// GridDim identifies one axis of the worker grid.
type GridDim int

const (
	DimX GridDim = iota
	DimY
	DimZ
)

// String returns the axis name ("x", "y" or "z").
func (d GridDim) String() string {
	switch d {
	case DimX:
		return "x"
	case DimY:
		return "y"
	case DimZ:
		return "z"
	default:
		return fmt.Sprintf("dim(%d)", int(d))
	}
}

// Const is an integer constant expression.
type Const struct {
	Value int64
}

// WorkerID refers to the worker's coordinate along one grid axis.
type WorkerID struct {
	Dim GridDim
}

// Var refers to a loop induction variable by name.
type Var struct {
	Name string
}

// BinOp enumerates the binary operators the index language supports.
type BinOp int

const (
	OpAdd BinOp = iota
	OpMul
	OpMod
	OpFloorDiv
)

// String returns the operator's symbol.
func (op BinOp) String() string {
	switch op {
	case OpAdd:
		return "+"
	case OpMul:
		return "*"
	case OpMod:
		return "%"
	case OpFloorDiv:
		return "/"
	default:
		return fmt.Sprintf("op(%d)", int(op))
	}
}

// Bin is a binary expression over two sub-expressions.
type Bin struct {
	Op  BinOp
	LHS Expr
	RHS Expr
}

func (*Const) isExpr()    {}
func (*WorkerID) isExpr() {}
func (*Var) isExpr()      {}
func (*Bin) isExpr()      {}

// Eval returns the constant value.
func (e *Const) Eval(*Env) int64 { return e.Value }

// Eval returns the worker coordinate along the axis.
func (e *WorkerID) Eval(env *Env) int64 { return env.Worker[e.Dim] }

// Eval returns the bound value of the induction variable. An unbound
// variable evaluates to 0, which only happens if a caller evaluates an
// expression outside its defining loop.
func (e *Var) Eval(env *Env) int64 {
	if env.Vars == nil {
		return 0
	}
	return env.Vars[e.Name]
}

// Eval applies the operator to the evaluated operands.
func (e *Bin) Eval(env *Env) int64 {
	l, r := e.LHS.Eval(env), e.RHS.Eval(env)
	switch e.Op {
	case OpAdd:
		return l + r
	case OpMul:
		return l * r
	case OpMod:
		return l % r
	case OpFloorDiv:
		return l / r
	default:
		panic(fmt.Sprintf("ir: unknown binary op %d", int(e.Op)))
	}
}

func (e *Const) String() string    { return fmt.Sprintf("%d", e.Value) }
func (e *WorkerID) String() string { return "tid." + e.Dim.String() }
func (e *Var) String() string      { return e.Name }

func (e *Bin) String() string {
	l, r := e.LHS.String(), e.RHS.String()
	if sub, ok := e.LHS.(*Bin); ok && precedence(sub.Op) < precedence(e.Op) {
		l = "(" + l + ")"
	}
	if sub, ok := e.RHS.(*Bin); ok && precedence(sub.Op) <= precedence(e.Op) {
		r = "(" + r + ")"
	}
	op := e.Op.String()
	if e.Op == OpAdd {
		op = " + "
	}
	return l + op + r
}

func precedence(op BinOp) int {
	if op == OpAdd {
		return 1
	}
	return 2
}

// NewConst returns a constant expression.
func NewConst(v int64) Expr { return &Const{Value: v} }

// NewWorkerID returns an expression for the worker coordinate along dim.
func NewWorkerID(dim GridDim) Expr { return &WorkerID{Dim: dim} }

// NewVar returns a reference to the named induction variable.
func NewVar(name string) Expr { return &Var{Name: name} }

// Add returns a + b, folding constants and dropping zero terms.
func Add(a, b Expr) Expr {
	ca, aok := ConstValue(a)
	cb, bok := ConstValue(b)
	if aok && bok {
		return NewConst(ca + cb)
	}
	if aok && ca == 0 {
		return b
	}
	if bok && cb == 0 {
		return a
	}
	return &Bin{Op: OpAdd, LHS: a, RHS: b}
}

// Mul returns a * b, folding constants and simplifying 0 and 1 factors.
func Mul(a, b Expr) Expr {
	ca, aok := ConstValue(a)
	cb, bok := ConstValue(b)
	if aok && bok {
		return NewConst(ca * cb)
	}
	if aok {
		if ca == 0 {
			return NewConst(0)
		}
		if ca == 1 {
			return b
		}
	}
	if bok {
		if cb == 0 {
			return NewConst(0)
		}
		if cb == 1 {
			return a
		}
	}
	return &Bin{Op: OpMul, LHS: a, RHS: b}
}

// Mod returns a mod b. A modulus of 1 folds to 0.
func Mod(a, b Expr) Expr {
	ca, aok := ConstValue(a)
	cb, bok := ConstValue(b)
	if bok && cb == 1 {
		return NewConst(0)
	}
	if aok && bok {
		return NewConst(ca % cb)
	}
	return &Bin{Op: OpMod, LHS: a, RHS: b}
}

// FloorDiv returns a / b rounded toward negative infinity. All expressions
// produced by the pipeline are non-negative, so truncated division is used.
// A divisor of 1 folds to a.
func FloorDiv(a, b Expr) Expr {
	ca, aok := ConstValue(a)
	cb, bok := ConstValue(b)
	if bok && cb == 1 {
		return a
	}
	if aok && bok {
		return NewConst(ca / cb)
	}
	return &Bin{Op: OpFloorDiv, LHS: a, RHS: b}
}

// ConstValue reports whether e is a constant, returning its value.
func ConstValue(e Expr) (int64, bool) {
	if c, ok := e.(*Const); ok {
		return c.Value, true
	}
	return 0, false
}

// Substitute returns e with every reference to the named induction variable
// replaced by repl. Unaffected subtrees are shared, not copied.
func Substitute(e Expr, name string, repl Expr) Expr {
	switch v := e.(type) {
	case *Var:
		if v.Name == name {
			return repl
		}
		return e
	case *Bin:
		l := Substitute(v.LHS, name, repl)
		r := Substitute(v.RHS, name, repl)
		if l == v.LHS && r == v.RHS {
			return e
		}
		switch v.Op {
		case OpAdd:
			return Add(l, r)
		case OpMul:
			return Mul(l, r)
		case OpMod:
			return Mod(l, r)
		default:
			return FloorDiv(l, r)
		}
	default:
		return e
	}
}
