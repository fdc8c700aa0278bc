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

import "testing"

// TestConstFolding verifies that constructors fold constant operands.
func TestConstFolding(t *testing.T) {
	tests := []struct {
		name string
		expr Expr
		want int64
	}{
		{"add", Add(NewConst(3), NewConst(4)), 7},
		{"mul", Mul(NewConst(3), NewConst(4)), 12},
		{"mod", Mod(NewConst(13), NewConst(4)), 1},
		{"floordiv", FloorDiv(NewConst(13), NewConst(4)), 3},
		{"add zero left", Add(NewConst(0), NewConst(9)), 9},
		{"mul one", Mul(NewConst(1), NewConst(9)), 9},
		{"mod one", Mod(NewConst(9), NewConst(1)), 0},
		{"div one", FloorDiv(NewConst(9), NewConst(1)), 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ConstValue(tt.expr)
			if !ok {
				t.Fatalf("expected %v to fold to a constant", tt.expr)
			}
			if got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

// TestIdentitySimplification verifies that identity operands return the
// other operand unchanged instead of wrapping it.
func TestIdentitySimplification(t *testing.T) {
	x := NewWorkerID(DimX)

	if got := Add(NewConst(0), x); got != x {
		t.Errorf("0 + x = %v, want x", got)
	}
	if got := Add(x, NewConst(0)); got != x {
		t.Errorf("x + 0 = %v, want x", got)
	}
	if got := Mul(NewConst(1), x); got != x {
		t.Errorf("1 * x = %v, want x", got)
	}
	if got := FloorDiv(x, NewConst(1)); got != x {
		t.Errorf("x / 1 = %v, want x", got)
	}
	if got, ok := ConstValue(Mul(NewConst(0), x)); !ok || got != 0 {
		t.Errorf("0 * x = %v, want 0", got)
	}
	if got, ok := ConstValue(Mod(x, NewConst(1))); !ok || got != 0 {
		t.Errorf("x %% 1 = %v, want 0", got)
	}
}

// TestEval verifies evaluation against worker coordinates and variables.
func TestEval(t *testing.T) {
	env := &Env{Worker: [3]int64{3, 5, 7}, Vars: map[string]int64{"i0": 11}}

	// tid.x + 8*tid.y + 64*tid.z
	flat := Add(NewWorkerID(DimX),
		Add(Mul(NewConst(8), NewWorkerID(DimY)),
			Mul(NewConst(64), NewWorkerID(DimZ))))
	if got := flat.Eval(env); got != 3+8*5+64*7 {
		t.Errorf("flat id = %d, want %d", got, 3+8*5+64*7)
	}

	e := Add(Mul(NewVar("i0"), NewConst(2)), NewConst(1))
	if got := e.Eval(env); got != 23 {
		t.Errorf("2*i0+1 = %d, want 23", got)
	}

	// mod/div chain over the flat id
	id := NewVar("id")
	idEnv := &Env{Vars: map[string]int64{"id": 45}}
	if got := Mod(id, NewConst(32)).Eval(idEnv); got != 13 {
		t.Errorf("id %% 32 = %d, want 13", got)
	}
	if got := FloorDiv(id, NewConst(32)).Eval(idEnv); got != 1 {
		t.Errorf("id / 32 = %d, want 1", got)
	}
}

// TestBindDoesNotMutate verifies Env.Bind copies the variable map.
func TestBindDoesNotMutate(t *testing.T) {
	env := &Env{Vars: map[string]int64{"i0": 1}}
	child := env.Bind("i1", 2)

	if _, ok := env.Vars["i1"]; ok {
		t.Error("Bind mutated the parent environment")
	}
	if child.Vars["i0"] != 1 || child.Vars["i1"] != 2 {
		t.Errorf("child env = %v, want i0:1 i1:2", child.Vars)
	}
}

// TestSubstitute verifies induction variable substitution with folding.
func TestSubstitute(t *testing.T) {
	// i0*4 + tid.x
	e := Add(Mul(NewVar("i0"), NewConst(4)), NewWorkerID(DimX))

	got := Substitute(e, "i0", NewConst(3))
	env := &Env{Worker: [3]int64{5, 0, 0}}
	if v := got.Eval(env); v != 17 {
		t.Errorf("substituted expr = %d, want 17", v)
	}

	// Substituting an unrelated name leaves the expression untouched.
	if got := Substitute(e, "i1", NewConst(9)); got != e {
		t.Errorf("substitute of unbound var rebuilt the expression")
	}

	// Substitution by another expression, not just a constant.
	got = Substitute(NewVar("i0"), "i0", Mul(NewWorkerID(DimY), NewConst(2)))
	if v := got.Eval(&Env{Worker: [3]int64{0, 6, 0}}); v != 12 {
		t.Errorf("expr substitution = %d, want 12", v)
	}
}

// TestExprString spot-checks the printable forms.
func TestExprString(t *testing.T) {
	tests := []struct {
		name string
		expr Expr
		want string
	}{
		{"const", NewConst(42), "42"},
		{"worker", NewWorkerID(DimY), "tid.y"},
		{"var", NewVar("i0"), "i0"},
		{"mul", Mul(NewWorkerID(DimX), NewConst(4)), "tid.x*4"},
		{"add mul", Add(Mul(NewWorkerID(DimX), NewConst(4)), NewVar("i0")), "tid.x*4 + i0"},
		{"mod", Mod(NewVar("id"), NewConst(32)), "id%32"},
		{"div of add", Mul(Add(NewVar("a"), NewVar("b")), NewConst(2)), "(a + b)*2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.expr.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}
