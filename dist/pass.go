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

// Package dist rewrites marked shared-memory copy tasks into a
// thread-distributed, vectorized lowering for a fixed worker grid.
//
// The pipeline first hoists dependency-free allocations and removes
// redundant barriers, then decides per function between two regimes. When
// every marked copy's shape lets all workers issue full-width transfers,
// the aligned path tiles each copy to one vector chunk per worker: a serial
// tiling step absorbs iterations beyond one tile per worker, a cyclic
// distribution assigns each worker its tile by decomposing a flat worker
// id, the per-worker copies become single wide transfers, and the loops the
// tiling introduced are fully unrolled. Otherwise the fallback path applies
// thread-level tiling over the physical grid, producing grid-strided loops
// that are correct for any shape at lower transfer efficiency.
package dist

import (
	"fmt"
	"os"

	"github.com/gpukit/shmemdist/ir"
)

// debugDist enables debug output for the distribution pipeline.
var debugDist = os.Getenv("DEBUG_DIST") != ""

func debugPrint(format string, args ...any) {
	if debugDist {
		fmt.Printf("[dist] "+format+"\n", args...)
	}
}

// Pipeline configures a run of the distribution pass. The zero value is
// ready to use.
type Pipeline struct {
	// VerifyCoverage re-checks, after the rewrite, that every destination
	// buffer of a marked copy is covered with no gaps (and no overlaps on
	// the aligned path) by enumerating the whole worker grid. Intended for
	// tests and debugging; the rewrite is deterministic, so a shape that
	// verifies once verifies always. Destinations written by more than one
	// marked copy are skipped: per-element attribution is ambiguous there,
	// so the option does not vouch for those buffers.
	VerifyCoverage bool
}

// Result reports what a run did to a function.
type Result struct {
	// Aligned is true when the vectorized fast path was taken.
	Aligned bool

	// Rewritten is the number of marked copies that were lowered.
	Rewritten int
}

// Run applies the pass with default options.
func Run(f *ir.Func) (*Result, error) {
	return (&Pipeline{}).Run(f)
}

// Run rewrites every copy task in f that carries the entry marker. A
// function with no marked copies is returned untouched. Errors indicate
// internal invariant violations — the rewrite of the function must be
// considered failed and its task list inconsistent; expected misalignment
// is not an error and takes the fallback path instead.
func (p *Pipeline) Run(f *ir.Func) (*Result, error) {
	copies := markedCopies(f)
	if len(copies) == 0 {
		return &Result{}, nil
	}

	// Record the original workloads before the rewrite dismantles them.
	type workload struct {
		dst   string
		shape []int64
		n     int
	}
	workloads := make(map[string]*workload)
	for _, c := range copies {
		if w, ok := workloads[c.Dst]; ok {
			w.n++
		} else {
			workloads[c.Dst] = &workload{dst: c.Dst, shape: append([]int64(nil), c.Shape...), n: 1}
		}
	}

	// Loops present before this pass belong to the caller: the unroller
	// leaves them alone and the coverage check evaluates them once, since
	// they repeat the staged copies identically per iteration.
	preexisting := make(map[int]bool)
	f.Walk(func(t *ir.Task) {
		if t.Kind == ir.TaskLoop {
			preexisting[t.ID] = true
		}
	})

	// Clean up the task list first.
	hoistAllocs(f)
	removeRedundantBarriers(f)

	aligned := allAligned(f, copies)
	debugPrint("func %s: %d marked copies, aligned=%v", f.Name, len(copies), aligned)

	if aligned {
		if err := p.runAligned(f, copies, preexisting); err != nil {
			return nil, fmt.Errorf("dist: func %s: %w", f.Name, err)
		}
	} else {
		if err := p.runFallback(f, copies); err != nil {
			return nil, fmt.Errorf("dist: func %s: %w", f.Name, err)
		}
	}

	if p.VerifyCoverage {
		for _, w := range workloads {
			if w.n != 1 {
				// Several marked copies share this destination; per-element
				// attribution is ambiguous, so skip it.
				debugPrint("func %s: skipping coverage check of %s, written by %d marked copies",
					f.Name, w.dst, w.n)
				continue
			}
			if err := verifyCoverage(f, w.dst, w.shape, aligned, preexisting); err != nil {
				return nil, fmt.Errorf("dist: func %s: %w", f.Name, err)
			}
		}
	}
	return &Result{Aligned: aligned, Rewritten: len(copies)}, nil
}

// runAligned lowers marked copies on the vectorized fast path. preexisting
// holds the ids of the caller's loops, which must not be unrolled.
func (p *Pipeline) runAligned(f *ir.Func, copies []*ir.Task, preexisting map[int]bool) error {
	flat := f.FlatWorkers()
	flatID := flatWorkerID(f.Grid)

	for _, c := range copies {
		// Tile with serial loops to a shape holding one vector chunk per
		// worker.
		tile, err := distributableTileSizes(c.Shape, c.ElemBits, flat)
		if err != nil {
			return err
		}
		repl, inner := tileSerial(f, c, tile)
		if err := inner.AdvanceMarker(ir.MarkerPendingDistribution); err != nil {
			return err
		}
		if !f.ReplaceTask(c.ID, repl...) {
			return fmt.Errorf("marked copy %d vanished from the task list", c.ID)
		}
		debugPrint("copy %d: serial tile %v -> task %d", c.ID, tile, inner.ID)

		// Distribute the tiled copy onto the workers.
		native := nativeTransferShape(inner.Shape, inner.ElemBits)
		if err := distributeToWorkers(f, inner, native, flatID); err != nil {
			return err
		}
		if err := inner.AdvanceMarker(ir.MarkerDistributed); err != nil {
			return err
		}
	}

	// Turn each per-worker copy into one wide transfer, then unroll the
	// loops the serial tiling introduced.
	if err := vectorizeCopies(f); err != nil {
		return err
	}
	unrollLoops(f, preexisting)
	return nil
}

// runFallback lowers marked copies with thread-level tiling over the
// physical grid. Correct for any shape; transfers are element-sized unless
// the innermost extent happens to divide into full vector lanes.
func (p *Pipeline) runFallback(f *ir.Func, copies []*ir.Task) error {
	for _, c := range copies {
		tile := threadLevelTileSizes(c.Shape, c.ElemBits)
		repl, inner := tileToWorkersStrided(f, c, tile)
		if err := inner.AdvanceMarker(ir.MarkerDistributed); err != nil {
			return err
		}
		if !f.ReplaceTask(c.ID, repl...) {
			return fmt.Errorf("marked copy %d vanished from the task list", c.ID)
		}
		debugPrint("copy %d: thread-level tile %v -> task %d", c.ID, tile, inner.ID)
	}

	foldSingleIterationLoops(f)

	// Erase markers; the lowering is terminal.
	var err error
	f.Walk(func(t *ir.Task) {
		if err == nil && t.Kind == ir.TaskCopy && t.Marker == ir.MarkerDistributed {
			err = t.AdvanceMarker(ir.MarkerNone)
		}
	})
	return err
}
