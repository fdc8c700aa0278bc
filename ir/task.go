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

// Package ir models the task graph the distribution pipeline rewrites: a
// kernel function owning a list of tasks drawn from a closed variant set
// (copy, loop, barrier, allocation), with symbolic index expressions for
// tile offsets and loop bounds.
package ir

import "fmt"

// TaskKind categorizes a task. The variant set is closed; the pipeline
// never needs to represent anything outside it.
type TaskKind int

const (
	// TaskCopy moves a multi-dimensional block of elements between two
	// buffers, one element per iteration point unless Vector is set.
	TaskCopy TaskKind = iota

	// TaskLoop is a counted serial loop containing a body of tasks.
	TaskLoop

	// TaskBarrier is a full-grid rendezvous: every worker must arrive
	// before any worker proceeds.
	TaskBarrier

	// TaskAlloc allocates a shared buffer. Allocations with no operands
	// are eligible for hoisting to the start of the function.
	TaskAlloc
)

// String returns a human-readable name for the TaskKind.
func (k TaskKind) String() string {
	switch k {
	case TaskCopy:
		return "Copy"
	case TaskLoop:
		return "Loop"
	case TaskBarrier:
		return "Barrier"
	case TaskAlloc:
		return "Alloc"
	default:
		return fmt.Sprintf("TaskKind(%d)", int(k))
	}
}

// Marker tracks a copy task's position in the staged rewrite. Only copy
// tasks carry markers; the pipeline drives every transition and erases the
// marker when distribution completes.
type Marker int

const (
	// MarkerNone is the resting state: either the task was never selected
	// for distribution, or the pipeline has finished with it.
	MarkerNone Marker = iota

	// MarkerCopyToShared is the entry marker attached upstream to copies
	// that must be distributed across the worker grid.
	MarkerCopyToShared

	// MarkerPendingDistribution is set once serial tiling has shrunk the
	// copy to a shape the flat worker count divides exactly.
	MarkerPendingDistribution

	// MarkerDistributed is set once the copy describes a single worker's
	// tile, addressed by that worker's decomposed flat id.
	MarkerDistributed
)

// String returns a human-readable name for the Marker.
func (m Marker) String() string {
	switch m {
	case MarkerNone:
		return "none"
	case MarkerCopyToShared:
		return "copy_to_shared"
	case MarkerPendingDistribution:
		return "pending_distribution"
	case MarkerDistributed:
		return "distributed"
	default:
		return fmt.Sprintf("Marker(%d)", int(m))
	}
}

// markerTransitions is the legal transition relation of the marker state
// machine. The fallback path skips the pending stage: its thread-level
// tiling distributes in a single step.
var markerTransitions = map[Marker][]Marker{
	MarkerCopyToShared:        {MarkerPendingDistribution, MarkerDistributed},
	MarkerPendingDistribution: {MarkerDistributed},
	MarkerDistributed:         {MarkerNone},
}

// Task is one node of the task graph. Fields are grouped by the kind that
// uses them; unused groups stay zero.
type Task struct {
	// ID is unique within the owning Func.
	ID int

	// Kind selects the variant.
	Kind TaskKind

	// Marker is the rewrite state for copy tasks.
	Marker Marker

	// ---- Copy tasks ----

	// Shape is the iteration extent per dimension.
	Shape []int64

	// ElemBits is the element bit-width.
	ElemBits int

	// Src and Dst name the buffers the copy reads and writes.
	Src string
	Dst string

	// Offsets holds the per-dimension starting index, one expression per
	// dimension of Shape. A nil entry means offset zero.
	Offsets []Expr

	// Vector marks the copy as lowered to a single wide transfer of
	// VectorBits bits covering the whole (now per-worker) shape.
	Vector     bool
	VectorBits int

	// ---- Loop tasks ----

	// IndVar is the induction variable name, referenced by Var expressions
	// in the loop body.
	IndVar string

	// Lower, Upper and Step bound the iteration space [Lower, Upper) with
	// stride Step.
	Lower Expr
	Upper Expr
	Step  Expr

	// Body holds the loop's tasks.
	Body []*Task

	// ---- Alloc tasks ----

	// Result names the buffer the allocation defines.
	Result string

	// Operands names values the allocation size depends on. An allocation
	// with no operands can be scheduled anywhere in the function.
	Operands []string
}

// AdvanceMarker moves the task to the given marker state, validating the
// transition. An illegal transition is an internal invariant violation in
// the pipeline, never an expected condition.
func (t *Task) AdvanceMarker(to Marker) error {
	for _, next := range markerTransitions[t.Marker] {
		if next == to {
			t.Marker = to
			return nil
		}
	}
	return fmt.Errorf("ir: illegal marker transition %v -> %v on task %d", t.Marker, to, t.ID)
}

// Elements returns the total number of iteration points of a copy task.
func (t *Task) Elements() int64 {
	n := int64(1)
	for _, d := range t.Shape {
		n *= d
	}
	return n
}

// Offset returns the offset expression for dimension d, treating nil as a
// zero constant.
func (t *Task) Offset(d int) Expr {
	if t.Offsets == nil || t.Offsets[d] == nil {
		return NewConst(0)
	}
	return t.Offsets[d]
}

// AddOffset adds e to the copy's offset along dimension d.
func (t *Task) AddOffset(d int, e Expr) {
	if t.Offsets == nil {
		t.Offsets = make([]Expr, len(t.Shape))
	}
	t.Offsets[d] = Add(t.Offset(d), e)
}

// String returns a one-line debug form of the task.
func (t *Task) String() string {
	switch t.Kind {
	case TaskCopy:
		s := fmt.Sprintf("Copy{ID:%d %s->%s shape:%v bits:%d", t.ID, t.Src, t.Dst, t.Shape, t.ElemBits)
		if t.Marker != MarkerNone {
			s += fmt.Sprintf(" marker:%v", t.Marker)
		}
		if t.Vector {
			s += fmt.Sprintf(" vector:%d", t.VectorBits)
		}
		return s + "}"
	case TaskLoop:
		return fmt.Sprintf("Loop{ID:%d %s=[%v,%v) step %v body:%d}",
			t.ID, t.IndVar, t.Lower, t.Upper, t.Step, len(t.Body))
	case TaskBarrier:
		return fmt.Sprintf("Barrier{ID:%d}", t.ID)
	case TaskAlloc:
		return fmt.Sprintf("Alloc{ID:%d %s deps:%v}", t.ID, t.Result, t.Operands)
	default:
		return fmt.Sprintf("Task{ID:%d kind:%v}", t.ID, t.Kind)
	}
}
