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

// Command shmemdist lowers a shared-memory copy for a given workload shape
// and worker grid, and prints the task listing before and after.
//
// Usage:
//
//	shmemdist -shape 4x128 -bits 32 -grid 8x8x1
//	shmemdist -shape 33x7 -bits 17 -grid 8x8 -verify
//
// The tool builds a representative kernel — a shared-buffer allocation, a
// marked copy into it, and the conservative barriers a frontend would
// insert — then runs the distribution pipeline and reports which path
// (vectorized or fallback) was taken.
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/gpukit/shmemdist/dist"
	"github.com/gpukit/shmemdist/ir"
)

var (
	shapeFlag = flag.String("shape", "", "Workload shape, e.g. 4x128 (required)")
	bitsFlag  = flag.Int("bits", 32, "Element width in bits")
	gridFlag  = flag.String("grid", "8x8x1", "Worker grid, e.g. 8x8x1 (up to three dimensions)")
	verify    = flag.Bool("verify", false, "Verify full coverage by enumerating every worker")
	quiet     = flag.Bool("q", false, "Only print the path taken, not the listings")
)

func main() {
	flag.Parse()

	if *shapeFlag == "" {
		fmt.Fprintf(os.Stderr, "Error: -shape flag is required\n\n")
		flag.Usage()
		os.Exit(1)
	}

	shape, grid, err := parseConfig(*shapeFlag, *bitsFlag, *gridFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	f, err := ir.NewFunc("kernel", grid)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// A frontend would emit this sequence around every staging copy: the
	// shared allocation, the copy itself, and a conservative barrier.
	alloc := f.NewAlloc("smem")
	cp := f.NewCopy("in", "smem", shape, *bitsFlag)
	cp.Marker = ir.MarkerCopyToShared
	f.Body = []*ir.Task{alloc, cp, f.NewBarrier()}

	if !*quiet {
		fmt.Println("before:")
		fmt.Print(f.Dump())
	}

	p := &dist.Pipeline{VerifyCoverage: *verify}
	result, err := p.Run(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if !*quiet {
		fmt.Println("after:")
		fmt.Print(f.Dump())
	}
	path := "fallback"
	if result.Aligned {
		path = "vectorized"
	}
	fmt.Printf("path=%s copies=%d workers=%d\n", path, result.Rewritten, f.FlatWorkers())
}

// parseConfig validates the flag values and returns the workload shape and
// the worker grid, padded to three dimensions.
func parseConfig(shapeStr string, bits int, gridStr string) ([]int64, [3]int64, error) {
	var grid [3]int64
	shape, err := parseDims(shapeStr)
	if err != nil {
		return nil, grid, fmt.Errorf("bad -shape: %w", err)
	}
	if bits <= 0 {
		return nil, grid, fmt.Errorf("bad -bits: %d is not positive", bits)
	}
	gridDims, err := parseDims(gridStr)
	if err != nil {
		return nil, grid, fmt.Errorf("bad -grid: %w", err)
	}
	if len(gridDims) > 3 {
		return nil, grid, fmt.Errorf("bad -grid: %d dimensions, at most 3", len(gridDims))
	}
	copy(grid[:], gridDims)
	for i := len(gridDims); i < 3; i++ {
		grid[i] = 1
	}
	return shape, grid, nil
}

func parseDims(s string) ([]int64, error) {
	parts := strings.Split(s, "x")
	dims := make([]int64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return nil, err
		}
		if v <= 0 {
			return nil, fmt.Errorf("dimension %d is not positive", v)
		}
		dims = append(dims, v)
	}
	if len(dims) == 0 {
		return nil, fmt.Errorf("empty dimension list")
	}
	return dims, nil
}
