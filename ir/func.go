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

// Func is a kernel function: a worker grid declared by its entry point and
// an owned, ordered task list. Tasks are allocated through the Func so that
// ids stay unique within it.
type Func struct {
	// Name identifies the function in diagnostics.
	Name string

	// Grid is the fixed (x, y, z) worker count the kernel launches with.
	// Missing trailing dimensions are 1.
	Grid [3]int64

	// Body is the top-level task list in program order.
	Body []*Task

	nextID  int
	nextVar int
}

// NewFunc creates a function with the given worker grid. Grid entries of
// zero are treated as 1, mirroring how an execution configuration with
// fewer than three dimensions is padded.
func NewFunc(name string, grid [3]int64) (*Func, error) {
	for i, g := range grid {
		if g < 0 {
			return nil, fmt.Errorf("ir: grid dimension %d is negative (%d)", i, g)
		}
		if g == 0 {
			grid[i] = 1
		}
	}
	return &Func{Name: name, Grid: grid}, nil
}

// FlatWorkers returns the total worker count of the grid.
func (f *Func) FlatWorkers() int64 {
	return f.Grid[0] * f.Grid[1] * f.Grid[2]
}

// newTask allocates a task with a fresh id. The task is not inserted
// anywhere; callers place it in a body themselves.
func (f *Func) newTask(kind TaskKind) *Task {
	t := &Task{ID: f.nextID, Kind: kind}
	f.nextID++
	return t
}

// NewCopy creates a copy task over the given shape. The copy starts with
// zero offsets and no marker.
func (f *Func) NewCopy(src, dst string, shape []int64, elemBits int) *Task {
	t := f.newTask(TaskCopy)
	t.Src = src
	t.Dst = dst
	t.Shape = append([]int64(nil), shape...)
	t.ElemBits = elemBits
	return t
}

// NewLoop creates a loop task over [lower, upper) with the given step.
func (f *Func) NewLoop(indVar string, lower, upper, step Expr) *Task {
	t := f.newTask(TaskLoop)
	t.IndVar = indVar
	t.Lower = lower
	t.Upper = upper
	t.Step = step
	return t
}

// NewBarrier creates a synchronization barrier task.
func (f *Func) NewBarrier() *Task {
	return f.newTask(TaskBarrier)
}

// NewAlloc creates a buffer allocation task.
func (f *Func) NewAlloc(result string, operands ...string) *Task {
	t := f.newTask(TaskAlloc)
	t.Result = result
	t.Operands = operands
	return t
}

// FreshVar returns an induction variable name unused in this function.
func (f *Func) FreshVar() string {
	name := fmt.Sprintf("i%d", f.nextVar)
	f.nextVar++
	return name
}

// Walk visits every task in program order, recursing into loop bodies.
func (f *Func) Walk(visit func(*Task)) {
	walkTasks(f.Body, visit)
}

func walkTasks(tasks []*Task, visit func(*Task)) {
	for _, t := range tasks {
		visit(t)
		if t.Kind == TaskLoop {
			walkTasks(t.Body, visit)
		}
	}
}

// ReplaceTask substitutes the task with the given id by the replacement
// sequence, searching the whole function. It reports whether the task was
// found.
func (f *Func) ReplaceTask(id int, repl ...*Task) bool {
	body, ok := replaceInBlock(f.Body, id, repl)
	if ok {
		f.Body = body
	}
	return ok
}

func replaceInBlock(tasks []*Task, id int, repl []*Task) ([]*Task, bool) {
	for i, t := range tasks {
		if t.ID == id {
			out := make([]*Task, 0, len(tasks)-1+len(repl))
			out = append(out, tasks[:i]...)
			out = append(out, repl...)
			out = append(out, tasks[i+1:]...)
			return out, true
		}
		if t.Kind == TaskLoop {
			if body, ok := replaceInBlock(t.Body, id, repl); ok {
				t.Body = body
				return tasks, true
			}
		}
	}
	return tasks, false
}

// Clone returns a deep copy of the task with fresh ids throughout.
// Expressions are immutable and shared rather than copied.
func (f *Func) Clone(t *Task) *Task {
	c := f.newTask(t.Kind)
	c.Marker = t.Marker
	c.Shape = append([]int64(nil), t.Shape...)
	c.ElemBits = t.ElemBits
	c.Src = t.Src
	c.Dst = t.Dst
	if t.Offsets != nil {
		c.Offsets = append([]Expr(nil), t.Offsets...)
	}
	c.Vector = t.Vector
	c.VectorBits = t.VectorBits
	c.IndVar = t.IndVar
	c.Lower = t.Lower
	c.Upper = t.Upper
	c.Step = t.Step
	for _, child := range t.Body {
		c.Body = append(c.Body, f.Clone(child))
	}
	c.Result = t.Result
	c.Operands = append([]string(nil), t.Operands...)
	return c
}

// SubstituteVar rewrites every expression in the task (and its body) that
// references the named induction variable, replacing it with repl.
func SubstituteVar(t *Task, name string, repl Expr) {
	for i, off := range t.Offsets {
		if off != nil {
			t.Offsets[i] = Substitute(off, name, repl)
		}
	}
	if t.Kind == TaskLoop {
		t.Lower = Substitute(t.Lower, name, repl)
		t.Upper = Substitute(t.Upper, name, repl)
		t.Step = Substitute(t.Step, name, repl)
		for _, child := range t.Body {
			SubstituteVar(child, name, repl)
		}
	}
}
