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
	"testing"

	"github.com/gpukit/shmemdist/ir"
)

// TestFlatWorkerID verifies the flat id expression over the 3-D grid.
func TestFlatWorkerID(t *testing.T) {
	id := flatWorkerID([3]int64{8, 8, 2})
	seen := make(map[int64]bool)
	for z := int64(0); z < 2; z++ {
		for y := int64(0); y < 8; y++ {
			for x := int64(0); x < 8; x++ {
				got := id.Eval(&ir.Env{Worker: [3]int64{x, y, z}})
				want := x + 8*y + 64*z
				if got != want {
					t.Fatalf("flat id at (%d,%d,%d) = %d, want %d", x, y, z, got, want)
				}
				if seen[got] {
					t.Fatalf("flat id %d assigned twice", got)
				}
				seen[got] = true
			}
		}
	}
	if len(seen) != 128 {
		t.Errorf("flat ids cover %d workers, want 128", len(seen))
	}
}

// TestFlatWorkerIDUnitDims verifies unit grid dimensions fold away.
func TestFlatWorkerIDUnitDims(t *testing.T) {
	id := flatWorkerID([3]int64{64, 1, 1})
	if _, ok := id.(*ir.WorkerID); !ok {
		t.Errorf("flat id for 1-D grid = %v, want bare tid.x", id)
	}
}

// TestDecomposeRoundTrip verifies that decomposing a flat id into
// per-dimension indices and recombining them (sum of index*stride, strides
// from the innermost dimension outward) reproduces the id, for every id in
// [0, FlatWorkers).
func TestDecomposeRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		counts []int64
	}{
		{"2x32", []int64{2, 32}},
		{"4x4x4", []int64{4, 4, 4}},
		{"unit dims", []int64{1, 8, 1}},
		{"single", []int64{64}},
		{"all units", []int64{1, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flat := int64(1)
			for _, c := range tt.counts {
				flat *= c
			}
			infos := decomposeFlatID(ir.NewVar("id"), tt.counts)
			if len(infos) != len(tt.counts) {
				t.Fatalf("got %d ProcInfos, want one per dimension (%d)", len(infos), len(tt.counts))
			}
			for i, info := range infos {
				if info.Count != tt.counts[i] {
					t.Errorf("info[%d].Count = %d, want %d", i, info.Count, tt.counts[i])
				}
				if info.Method != CyclicNumProcsEqNumTiles {
					t.Errorf("info[%d].Method = %v, want cyclic", i, info.Method)
				}
			}
			for id := int64(0); id < flat; id++ {
				env := &ir.Env{Vars: map[string]int64{"id": id}}
				recombined := int64(0)
				stride := int64(1)
				for i := len(infos) - 1; i >= 0; i-- {
					idx := infos[i].Index.Eval(env)
					if idx < 0 || idx >= infos[i].Count {
						t.Fatalf("id %d: index %d out of range on dim %d (count %d)",
							id, idx, i, infos[i].Count)
					}
					recombined += idx * stride
					stride *= infos[i].Count
				}
				if recombined != id {
					t.Fatalf("id %d recombined to %d", id, recombined)
				}
			}
		})
	}
}

// TestDecomposeUnitCountDim verifies a dimension with a single worker still
// receives a ProcInfo entry rather than being skipped.
func TestDecomposeUnitCountDim(t *testing.T) {
	infos := decomposeFlatID(ir.NewVar("id"), []int64{1, 4})
	if len(infos) != 2 {
		t.Fatalf("got %d ProcInfos, want 2", len(infos))
	}
	// The outermost slot holds the residual id; with four workers below it
	// the residual is id/4, which is 0 for all valid ids.
	env := &ir.Env{Vars: map[string]int64{"id": 3}}
	if got := infos[0].Index.Eval(env); got != 0 {
		t.Errorf("outermost index for id 3 = %d, want 0", got)
	}
	if got := infos[1].Index.Eval(env); got != 3 {
		t.Errorf("innermost index for id 3 = %d, want 3", got)
	}
}
