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

import (
	"fmt"

	"github.com/gpukit/shmemdist/ir"
)

// coverageCounts enumerates every worker in the grid, evaluates the lowered
// task list, and tallies how many times each element of the workload is
// written by copies into dst. The result is indexed by the row-major
// linearization of the workload shape.
//
// Loops whose ids appear in once existed before the pass ran; they belong
// to the caller and repeat the staged copy identically, so their bodies are
// evaluated a single time (at the lower bound) rather than per iteration.
// Coverage is a per-execution property; iterating a caller loop would count
// every repetition against the same elements.
//
// This is the verification half of the distribution contract: the rewrite
// itself never consults it.
func coverageCounts(f *ir.Func, dst string, workload []int64, once map[int]bool) ([]int64, error) {
	total := int64(1)
	for _, d := range workload {
		total *= d
	}
	counts := make([]int64, total)
	for z := int64(0); z < f.Grid[2]; z++ {
		for y := int64(0); y < f.Grid[1]; y++ {
			for x := int64(0); x < f.Grid[0]; x++ {
				env := &ir.Env{Worker: [3]int64{x, y, z}}
				if err := tallyBlock(f.Body, env, dst, workload, counts, once); err != nil {
					return nil, err
				}
			}
		}
	}
	return counts, nil
}

func tallyBlock(tasks []*ir.Task, env *ir.Env, dst string, workload []int64, counts []int64, once map[int]bool) error {
	for _, t := range tasks {
		switch t.Kind {
		case ir.TaskLoop:
			lower := t.Lower.Eval(env)
			if once[t.ID] {
				if err := tallyBlock(t.Body, env.Bind(t.IndVar, lower), dst, workload, counts, once); err != nil {
					return err
				}
				continue
			}
			upper := t.Upper.Eval(env)
			step := t.Step.Eval(env)
			if step <= 0 {
				return fmt.Errorf("dist: loop %d has non-positive step %d", t.ID, step)
			}
			for iv := lower; iv < upper; iv += step {
				if err := tallyBlock(t.Body, env.Bind(t.IndVar, iv), dst, workload, counts, once); err != nil {
					return err
				}
			}
		case ir.TaskCopy:
			if t.Dst != dst {
				continue
			}
			if len(t.Shape) != len(workload) {
				return fmt.Errorf("dist: copy %d has rank %d, workload has rank %d", t.ID, len(t.Shape), len(workload))
			}
			if err := tallyCopy(t, env, workload, counts); err != nil {
				return err
			}
		}
	}
	return nil
}

func tallyCopy(t *ir.Task, env *ir.Env, workload []int64, counts []int64) error {
	rank := len(workload)
	point := make([]int64, rank)
	for {
		linear := int64(0)
		for d := 0; d < rank; d++ {
			idx := t.Offset(d).Eval(env) + point[d]
			if idx < 0 || idx >= workload[d] {
				return fmt.Errorf("dist: copy %d writes out of bounds at dim %d index %d (extent %d)",
					t.ID, d, idx, workload[d])
			}
			linear = linear*workload[d] + idx
		}
		counts[linear]++
		// Advance the iteration point, innermost dimension fastest.
		d := rank - 1
		for d >= 0 {
			point[d]++
			if point[d] < t.Shape[d] {
				break
			}
			point[d] = 0
			d--
		}
		if d < 0 {
			return nil
		}
	}
}

// verifyCoverage checks that the union of per-worker tiles covers the
// workload with no gaps, and with no overlaps when exact is set. The
// aligned path owes exact coverage by construction; the fallback path may
// write elements more than once when the grid has more dimensions than the
// workload, which is benign for an idempotent copy. Loops in once are the
// caller's; see coverageCounts.
func verifyCoverage(f *ir.Func, dst string, workload []int64, exact bool, once map[int]bool) error {
	counts, err := coverageCounts(f, dst, workload, once)
	if err != nil {
		return err
	}
	for i, c := range counts {
		if c == 0 {
			return fmt.Errorf("dist: element %d of %s is never written", i, dst)
		}
		if exact && c != 1 {
			return fmt.Errorf("dist: element %d of %s written %d times", i, dst, c)
		}
	}
	return nil
}
