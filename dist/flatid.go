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

// DistributionMethod describes how tiles map onto workers.
type DistributionMethod int

const (
	// CyclicNumProcsEqNumTiles assigns exactly one tile per worker: the
	// tile count equals the worker count, so no residual loop is needed.
	CyclicNumProcsEqNumTiles DistributionMethod = iota
)

// ProcInfo carries, for one workload dimension, the expression computing
// the owning worker's index along it, the worker count along it, and the
// distribution discipline.
type ProcInfo struct {
	Index  ir.Expr
	Count  int64
	Method DistributionMethod
}

// flatWorkerID builds the single linear worker index
// tid.x + Sx*tid.y + Sx*Sy*tid.z. Unit grid dimensions fold away.
func flatWorkerID(grid [3]int64) ir.Expr {
	id := ir.NewWorkerID(ir.DimX)
	if grid[1] > 1 {
		id = ir.Add(id, ir.Mul(ir.NewConst(grid[0]), ir.NewWorkerID(ir.DimY)))
	}
	if grid[2] > 1 {
		id = ir.Add(id, ir.Mul(ir.NewConst(grid[0]*grid[1]), ir.NewWorkerID(ir.DimZ)))
	}
	return id
}

// decomposeFlatID breaks a flat worker id over the given per-dimension
// worker counts (ordered like the workload's dimensions, outermost first).
// Working from the innermost dimension outward, each dimension takes
// id mod count and passes id div count up; the outermost slot keeps the
// residual id without a mod. Every dimension receives an entry, including
// those with a count of 1.
func decomposeFlatID(id ir.Expr, counts []int64) []ProcInfo {
	infos := make([]ProcInfo, 0, len(counts))
	for i := len(counts) - 1; i >= 0; i-- {
		index := id
		if len(infos) != len(counts)-1 {
			index = ir.Mod(id, ir.NewConst(counts[i]))
		}
		infos = append(infos, ProcInfo{
			Index:  index,
			Count:  counts[i],
			Method: CyclicNumProcsEqNumTiles,
		})
		id = ir.FloorDiv(id, ir.NewConst(counts[i]))
	}
	// Restore original dimension order.
	for i, j := 0, len(infos)-1; i < j; i, j = i+1, j-1 {
		infos[i], infos[j] = infos[j], infos[i]
	}
	return infos
}
