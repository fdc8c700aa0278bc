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

package ir

import (
	"fmt"
	"strings"
)

// Dump renders the function as an indented textual listing, one task per
// line. The format is for humans and tests; it is not a parseable surface.
func (f *Func) Dump() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "func %s grid=(%d,%d,%d) {\n", f.Name, f.Grid[0], f.Grid[1], f.Grid[2])
	dumpTasks(&sb, f.Body, 1)
	sb.WriteString("}\n")
	return sb.String()
}

func dumpTasks(sb *strings.Builder, tasks []*Task, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, t := range tasks {
		switch t.Kind {
		case TaskCopy:
			fmt.Fprintf(sb, "%scopy %s -> %s %s b%d", indent, t.Src, t.Dst, shapeString(t.Shape), t.ElemBits)
			if hasOffset(t) {
				fmt.Fprintf(sb, " at (%s)", offsetString(t))
			}
			if t.Vector {
				fmt.Fprintf(sb, " vector<%d>", t.VectorBits)
			}
			if t.Marker != MarkerNone {
				fmt.Fprintf(sb, " {%v}", t.Marker)
			}
			sb.WriteString("\n")
		case TaskLoop:
			fmt.Fprintf(sb, "%sfor %s = %v to %v step %v {\n", indent, t.IndVar, t.Lower, t.Upper, t.Step)
			dumpTasks(sb, t.Body, depth+1)
			fmt.Fprintf(sb, "%s}\n", indent)
		case TaskBarrier:
			fmt.Fprintf(sb, "%sbarrier\n", indent)
		case TaskAlloc:
			fmt.Fprintf(sb, "%salloc %%%s", indent, t.Result)
			if len(t.Operands) > 0 {
				fmt.Fprintf(sb, " (%s)", strings.Join(t.Operands, ", "))
			}
			sb.WriteString("\n")
		}
	}
}

func shapeString(shape []int64) string {
	parts := make([]string, len(shape))
	for i, d := range shape {
		parts[i] = fmt.Sprintf("%d", d)
	}
	return "[" + strings.Join(parts, "x") + "]"
}

func hasOffset(t *Task) bool {
	for i := range t.Shape {
		if v, ok := ConstValue(t.Offset(i)); !ok || v != 0 {
			return true
		}
	}
	return false
}

func offsetString(t *Task) string {
	parts := make([]string, len(t.Shape))
	for i := range t.Shape {
		parts[i] = t.Offset(i).String()
	}
	return strings.Join(parts, ", ")
}
