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

package dist

import "github.com/gpukit/shmemdist/ir"

// hoistAllocs moves every buffer allocation with no operand dependencies to
// the start of the function body, preserving their relative order. Only the
// scheduling position changes; lifetimes are untouched. Clearing the body
// of interleaved allocations gives the distribution and vectorization steps
// free rein over the surrounding tasks.
func hoistAllocs(f *ir.Func) {
	var hoisted []*ir.Task
	var strip func(tasks []*ir.Task) []*ir.Task
	strip = func(tasks []*ir.Task) []*ir.Task {
		out := tasks[:0]
		for _, t := range tasks {
			if t.Kind == ir.TaskAlloc && len(t.Operands) == 0 {
				hoisted = append(hoisted, t)
				continue
			}
			if t.Kind == ir.TaskLoop {
				t.Body = strip(t.Body)
			}
			out = append(out, t)
		}
		return out
	}
	rest := strip(f.Body)
	f.Body = append(hoisted, rest...)
}

// removeRedundantBarriers deletes barrier runs that are obviously not
// needed: barriers are inserted conservatively around every marked copy, so
// a contiguous run of barriers sitting directly between two copies that
// both carry the entry marker re-establishes an ordering the first copy's
// own barrier already provides. The scan is strictly local — backward from
// each marked copy, within its block — and a barrier without a
// marker-bearing task directly across it is never touched.
func removeRedundantBarriers(f *ir.Func) {
	f.Body = dedupBlock(f.Body)
}

func dedupBlock(tasks []*ir.Task) []*ir.Task {
	redundant := make(map[int]bool)
	for i, t := range tasks {
		if t.Kind == ir.TaskLoop {
			t.Body = dedupBlock(t.Body)
		}
		if t.Kind != ir.TaskCopy || t.Marker != ir.MarkerCopyToShared {
			continue
		}
		j := i - 1
		for j >= 0 && tasks[j].Kind == ir.TaskBarrier {
			j--
		}
		if j < 0 || j == i-1 {
			continue
		}
		prev := tasks[j]
		if prev.Kind == ir.TaskCopy && prev.Marker == ir.MarkerCopyToShared {
			for k := j + 1; k < i; k++ {
				redundant[tasks[k].ID] = true
			}
		}
	}
	if len(redundant) == 0 {
		return tasks
	}
	out := tasks[:0]
	for _, t := range tasks {
		if !redundant[t.ID] {
			out = append(out, t)
		}
	}
	return out
}

// foldSingleIterationLoops replaces loops with a static trip count of one
// by their body, substituting the lower bound for the induction variable.
// The fallback path runs this as its canonicalization step; strided loops
// that happen to span their extent in one stride reduce to plain offsets.
func foldSingleIterationLoops(f *ir.Func) {
	f.Body = foldBlock(f, f.Body)
}

func foldBlock(f *ir.Func, tasks []*ir.Task) []*ir.Task {
	var out []*ir.Task
	for _, t := range tasks {
		if t.Kind != ir.TaskLoop {
			out = append(out, t)
			continue
		}
		t.Body = foldBlock(f, t.Body)
		if tripCount(t) != 1 {
			out = append(out, t)
			continue
		}
		for _, child := range t.Body {
			ir.SubstituteVar(child, t.IndVar, t.Lower)
			out = append(out, child)
		}
	}
	return out
}
