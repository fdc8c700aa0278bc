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

import "fmt"

// TargetTransferBits is the preferred width of a single memory transfer.
// Each worker should move this many bits per copy for full bandwidth.
const TargetTransferBits = 128

// gridDims is the dimensionality of the worker grid.
const gridDims = 3

// vectorLanes returns how many elements of the given bit-width fit in one
// target-width transfer, or 0 when the width does not divide the target
// (such element types are unsupported by the fast path).
func vectorLanes(elemBits int) int64 {
	if elemBits <= 0 || TargetTransferBits%elemBits != 0 {
		return 0
	}
	return int64(TargetTransferBits / elemBits)
}

// distributableTileSizes computes the per-dimension tile sizes that shrink
// a copy to a shape holding exactly one vector-width chunk per worker.
// Walking from the innermost dimension outward, each worker takes lanes
// elements of the innermost dimension and one element of every other, and
// each dimension absorbs as many of the remaining workers as its extent
// allows. Dimensions past the point where workers run out keep tile size 1.
//
// The caller must have passed the shape through alignedForGrid; a worker
// pool that does not collapse to exactly 1 here is an internal invariant
// violation, not an input condition.
func distributableTileSizes(shape []int64, elemBits int, flatWorkers int64) ([]int64, error) {
	lanes := vectorLanes(elemBits)
	if lanes == 0 {
		return nil, fmt.Errorf("dist: element width %d does not divide the %d-bit transfer", elemBits, TargetTransferBits)
	}
	inner := shape[len(shape)-1]
	if inner%lanes != 0 {
		return nil, fmt.Errorf("dist: innermost extent %d not divisible by %d lanes", inner, lanes)
	}
	tile := make([]int64, len(shape))
	for i := range tile {
		tile[i] = 1
	}
	available := flatWorkers
	for i := len(shape) - 1; i >= 0; i-- {
		perWorker := int64(1)
		if i == len(shape)-1 {
			perWorker = lanes
		}
		workers := shape[i] / perWorker
		if workers > available {
			workers = available
		}
		if available%workers != 0 {
			return nil, fmt.Errorf("dist: %d workers left cannot be split %d ways on dim %d", available, workers, i)
		}
		tile[i] = workers * perWorker
		available /= workers
		if available == 1 {
			break
		}
	}
	if available != 1 {
		return nil, fmt.Errorf("dist: %d workers left unassigned after tiling shape %v", available, shape)
	}
	return tile, nil
}

// nativeTransferShape returns the per-worker copy shape that vectorizes to
// a single target-width transfer: lanes along the innermost dimension, one
// element along every other. Dimensions of extent 1 get the 0 sentinel,
// meaning no further tiling, which keeps them out of the distribution.
func nativeTransferShape(shape []int64, elemBits int) []int64 {
	lanes := vectorLanes(elemBits)
	tile := make([]int64, len(shape))
	for i, d := range shape {
		if d == 1 {
			tile[i] = 0
		} else {
			tile[i] = 1
		}
	}
	tile[len(tile)-1] = lanes
	return tile
}

// threadLevelTileSizes returns the fallback tile plan: one element per
// worker along each dimension that maps onto the physical grid, the 0
// sentinel beyond the grid's dimensionality, and a vector-width chunk on
// the innermost dimension when it divides evenly. With no way to express a
// partial boundary tile statically, a non-dividing innermost extent drops
// to single-element tiles; the strided loops then still cover exactly.
func threadLevelTileSizes(shape []int64, elemBits int) []int64 {
	rank := len(shape)
	tile := make([]int64, rank)
	for i := 0; i < rank-1; i++ {
		if rank-i <= gridDims {
			tile[i] = 1
		} else {
			tile[i] = 0
		}
	}
	inner := int64(1)
	if lanes := vectorLanes(elemBits); lanes > 0 && shape[rank-1]%lanes == 0 {
		inner = lanes
	}
	tile[rank-1] = inner
	return tile
}
