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

// vectorizeCopies rewrites every copy still carrying the post-distribution
// marker into a single wide transfer and erases the marker, the terminal
// state. By this point the distribution has shaped each such copy to one
// vector-width chunk per worker; that is assumed, not re-verified — a
// violation is a defect in the earlier stages.
func vectorizeCopies(f *ir.Func) error {
	var err error
	f.Walk(func(t *ir.Task) {
		if err != nil || t.Kind != ir.TaskCopy || t.Marker != ir.MarkerDistributed {
			return
		}
		t.Vector = true
		t.VectorBits = TargetTransferBits
		err = t.AdvanceMarker(ir.MarkerNone)
	})
	return err
}
