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

// tileSerial shrinks a copy to the given tile sizes by wrapping it in
// ordinary serial loops, one per dimension whose tile is smaller than its
// extent. Leftover iterations beyond one tile per worker are absorbed here,
// before the parallel distribution, so the distributed shape always divides
// exactly. Returns the replacement task sequence (loops outermost first)
// and the inner copy.
func tileSerial(f *ir.Func, c *ir.Task, tile []int64) ([]*ir.Task, *ir.Task) {
	inner := f.Clone(c)
	var outermost, parent *ir.Task
	for d, t := range tile {
		if t >= c.Shape[d] {
			continue
		}
		iv := f.FreshVar()
		loop := f.NewLoop(iv, ir.NewConst(0), ir.NewConst(c.Shape[d]), ir.NewConst(t))
		inner.Shape[d] = t
		inner.AddOffset(d, ir.NewVar(iv))
		if parent == nil {
			outermost = loop
		} else {
			parent.Body = []*ir.Task{loop}
		}
		parent = loop
	}
	if parent == nil {
		return []*ir.Task{inner}, inner
	}
	parent.Body = []*ir.Task{inner}
	return []*ir.Task{outermost}, inner
}

// distributeToWorkers rewrites a copy in place into the single tile owned
// by each worker, under the cyclic one-tile-per-worker discipline: along
// every tiled dimension the worker's offset is its decomposed index times
// the tile size. Dimensions carrying the 0 sentinel are left untiled.
//
// The tile counts must multiply to exactly the flat worker count; anything
// else means the alignment decision and the tile plan disagree.
func distributeToWorkers(f *ir.Func, c *ir.Task, tile []int64, flatID ir.Expr) error {
	var dims []int
	var counts []int64
	total := int64(1)
	for d, t := range tile {
		if t == 0 {
			continue
		}
		if c.Shape[d]%t != 0 {
			return fmt.Errorf("dist: tile %d does not divide extent %d on dim %d of task %d",
				t, c.Shape[d], d, c.ID)
		}
		dims = append(dims, d)
		counts = append(counts, c.Shape[d]/t)
		total *= c.Shape[d] / t
	}
	if total != f.FlatWorkers() {
		return fmt.Errorf("dist: task %d has %d tiles for %d workers", c.ID, total, f.FlatWorkers())
	}
	infos := decomposeFlatID(flatID, counts)
	for i, d := range dims {
		c.AddOffset(d, ir.Mul(infos[i].Index, ir.NewConst(tile[d])))
		c.Shape[d] = tile[d]
	}
	return nil
}

// tileToWorkersStrided rewrites a copy for the fallback path: each
// dimension that maps onto the physical grid becomes a grid-strided loop,
// worker p covering offsets p*tile, p*tile + count*tile, ... below the
// extent. The innermost dimension maps to grid x, the next to y, then z;
// dimensions beyond the grid (0 sentinel in the plan) stay untiled inside
// the copy. When one stride spans the whole extent the loop would run
// exactly once per worker, so the offset is applied directly instead — the
// canonical form the aligned path's distribution produces.
func tileToWorkersStrided(f *ir.Func, c *ir.Task, tile []int64) ([]*ir.Task, *ir.Task) {
	inner := f.Clone(c)
	rank := len(tile)
	var outermost, parent *ir.Task
	attach := func(t *ir.Task) {
		if parent == nil {
			outermost = t
		} else {
			parent.Body = []*ir.Task{t}
		}
	}
	for d := 0; d < rank; d++ {
		t := tile[d]
		if t == 0 {
			continue
		}
		axis := ir.GridDim(rank - 1 - d)
		count := f.Grid[axis]
		index := ir.NewWorkerID(axis)
		extent := c.Shape[d]
		inner.Shape[d] = t
		if count*t == extent {
			inner.AddOffset(d, ir.Mul(index, ir.NewConst(t)))
			continue
		}
		iv := f.FreshVar()
		loop := f.NewLoop(iv,
			ir.Mul(index, ir.NewConst(t)),
			ir.NewConst(extent),
			ir.NewConst(count*t))
		inner.AddOffset(d, ir.NewVar(iv))
		attach(loop)
		parent = loop
	}
	if parent == nil {
		return []*ir.Task{inner}, inner
	}
	parent.Body = []*ir.Task{inner}
	return []*ir.Task{outermost}, inner
}
