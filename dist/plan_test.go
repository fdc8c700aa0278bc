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
	"reflect"
	"testing"
)

// TestVectorLanes verifies lane derivation from the element width.
func TestVectorLanes(t *testing.T) {
	tests := []struct {
		bits int
		want int64
	}{
		{8, 16},
		{16, 8},
		{32, 4},
		{64, 2},
		{128, 1},
		{17, 0},
		{24, 0},
		{0, 0},
		{-8, 0},
	}

	for _, tt := range tests {
		if got := vectorLanes(tt.bits); got != tt.want {
			t.Errorf("vectorLanes(%d) = %d, want %d", tt.bits, got, tt.want)
		}
	}
}

// TestDistributableTileSizes verifies the unroll-to-distributable plan.
func TestDistributableTileSizes(t *testing.T) {
	tests := []struct {
		name    string
		shape   []int64
		bits    int
		workers int64
		want    []int64
	}{
		// 64 workers, 4 lanes: 32 workers take the inner dim, 2 take the
		// outer, tile [2,128] leaves a serial factor of 2 on dim 0.
		{"4x128 on 64", []int64{4, 128}, 32, 64, []int64{2, 128}},
		// Single worker: one vector chunk, outer dims fall back to 1.
		{"2x4 on 1", []int64{2, 4}, 32, 1, []int64{1, 4}},
		// Exact fit: every worker takes one chunk of the only dimension.
		{"256 on 64", []int64{256}, 32, 64, []int64{256}},
		// Workers left over after the inner dim spill onto the outer.
		{"8x8 on 16", []int64{8, 8}, 32, 16, []int64{8, 8}},
		// Worker pool exhausted early: outermost dim keeps tile 1.
		{"2x2x16 on 8", []int64{2, 2, 16}, 32, 8, []int64{1, 2, 16}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := distributableTileSizes(tt.shape, tt.bits, tt.workers)
			if err != nil {
				t.Fatalf("distributableTileSizes: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("tile = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestDistributableTileSizesInvariant verifies the planner fails loudly
// when the worker pool cannot collapse to exactly 1 — an inconsistency with
// the alignment decision, not an input condition.
func TestDistributableTileSizesInvariant(t *testing.T) {
	// 16 workers for 8 vector chunks: half the pool is left unassigned.
	if _, err := distributableTileSizes([]int64{2, 16}, 32, 16); err == nil {
		t.Error("expected invariant failure for undersized workload")
	}
	// Innermost extent not divisible by the lanes.
	if _, err := distributableTileSizes([]int64{4, 6}, 32, 2); err == nil {
		t.Error("expected failure for non-divisible innermost extent")
	}
	// Unsupported element width.
	if _, err := distributableTileSizes([]int64{4, 128}, 17, 64); err == nil {
		t.Error("expected failure for 17-bit elements")
	}
}

// TestNativeTransferShape verifies the per-worker vectorization shape.
func TestNativeTransferShape(t *testing.T) {
	tests := []struct {
		name  string
		shape []int64
		bits  int
		want  []int64
	}{
		{"2x128", []int64{2, 128}, 32, []int64{1, 4}},
		{"unit dim untiled", []int64{1, 4}, 32, []int64{0, 4}},
		{"rank 3", []int64{2, 2, 16}, 32, []int64{1, 1, 4}},
		{"64-bit lanes", []int64{4, 8}, 64, []int64{1, 2}},
		{"1d", []int64{256}, 32, []int64{4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := nativeTransferShape(tt.shape, tt.bits)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("native shape = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestThreadLevelTileSizes verifies the fallback plan.
func TestThreadLevelTileSizes(t *testing.T) {
	tests := []struct {
		name  string
		shape []int64
		bits  int
		want  []int64
	}{
		// Innermost divides into lanes: keep the vector chunk.
		{"2d divisible", []int64{4, 128}, 32, []int64{1, 4}},
		// Innermost does not divide: single elements.
		{"2d ragged", []int64{4, 7}, 32, []int64{1, 1}},
		// Unsupported width: single elements.
		{"17-bit", []int64{4, 128}, 17, []int64{1, 1}},
		// Dimensions beyond the 3-D grid carry the 0 sentinel.
		{"rank 4", []int64{2, 3, 4, 8}, 32, []int64{0, 1, 1, 4}},
		{"rank 1", []int64{64}, 32, []int64{4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := threadLevelTileSizes(tt.shape, tt.bits)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("tile = %v, want %v", got, tt.want)
			}
		})
	}
}
