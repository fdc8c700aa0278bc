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

// alignedForGrid decides whether a copy of the given shape can be carried
// out with every worker issuing full-width vector transfers: the innermost
// extent must divide into vector lanes, and distributing each dimension
// (innermost first, lanes elements per worker there, one elsewhere) must
// consume the flat worker pool exactly, with every split dividing evenly.
//
// A false result is expected divergence, not an error: the pipeline falls
// back to thread-level tiling. The decision is pure: it depends only on
// the shape, element width and worker count.
func alignedForGrid(shape []int64, elemBits int, flatWorkers int64) bool {
	lanes := vectorLanes(elemBits)
	if lanes == 0 || len(shape) == 0 {
		return false
	}
	if shape[len(shape)-1]%lanes != 0 {
		return false
	}
	available := flatWorkers
	for i := len(shape) - 1; i >= 0; i-- {
		perWorker := int64(1)
		if i == len(shape)-1 {
			perWorker = lanes
		}
		workers := shape[i] / perWorker
		if workers == 0 {
			return false
		}
		if workers > available {
			// The dimension holds more chunks than workers remain; the
			// serial tiling step absorbs the excess, but only if the
			// chunks split evenly over the remaining workers.
			if workers%available != 0 {
				return false
			}
			workers = available
		}
		if available%workers != 0 {
			return false
		}
		available /= workers
		if available == 1 {
			break
		}
	}
	return available == 1
}

// markedCopies returns every copy task carrying the entry marker, in
// program order.
func markedCopies(f *ir.Func) []*ir.Task {
	var copies []*ir.Task
	f.Walk(func(t *ir.Task) {
		if t.Kind == ir.TaskCopy && t.Marker == ir.MarkerCopyToShared {
			copies = append(copies, t)
		}
	})
	return copies
}

// allAligned reports whether every marked copy passes the alignment check
// for the function's worker grid. One misaligned copy sends the whole
// function down the fallback path so the two phases stay consistent.
func allAligned(f *ir.Func, copies []*ir.Task) bool {
	flat := f.FlatWorkers()
	for _, c := range copies {
		if !alignedForGrid(c.Shape, c.ElemBits, flat) {
			return false
		}
	}
	return true
}
