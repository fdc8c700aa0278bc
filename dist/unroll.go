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

// tripCount returns the static iteration count of a loop, or 0 when any
// bound is non-constant or negative, meaning the loop must be skipped.
func tripCount(loop *ir.Task) int64 {
	lower, lok := ir.ConstValue(loop.Lower)
	upper, uok := ir.ConstValue(loop.Upper)
	step, sok := ir.ConstValue(loop.Step)
	if !lok || !uok || !sok || lower < 0 || upper < 0 || step <= 0 {
		return 0
	}
	if upper <= lower {
		return 0
	}
	return (upper - lower + step - 1) / step
}

// unrollLoops fully unrolls every constant-trip loop in the function except
// those whose ids appear in ignore — the loops that existed before the
// pass ran belong to the caller and keep their shape. Bodies are processed
// before their enclosing loop so nests unroll from the inside out.
func unrollLoops(f *ir.Func, ignore map[int]bool) {
	f.Body = unrollBlock(f, f.Body, ignore)
}

func unrollBlock(f *ir.Func, tasks []*ir.Task, ignore map[int]bool) []*ir.Task {
	var out []*ir.Task
	for _, t := range tasks {
		if t.Kind != ir.TaskLoop {
			out = append(out, t)
			continue
		}
		t.Body = unrollBlock(f, t.Body, ignore)
		if ignore[t.ID] {
			out = append(out, t)
			continue
		}
		n := tripCount(t)
		if n == 0 {
			out = append(out, t)
			continue
		}
		lower, _ := ir.ConstValue(t.Lower)
		step, _ := ir.ConstValue(t.Step)
		for k := int64(0); k < n; k++ {
			iv := ir.NewConst(lower + k*step)
			for _, child := range t.Body {
				c := f.Clone(child)
				ir.SubstituteVar(c, t.IndVar, iv)
				out = append(out, c)
			}
		}
	}
	return out
}
