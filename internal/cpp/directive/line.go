// Copyright 2026 The ccpp Authors. All rights reserved.
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

package directive

// LineOverride records the effect of a #line directive: the reported line
// number and, optionally, a reported filename, to apply to every subsequent
// physical line until another #line is seen or the enclosing file ends.
// An override never survives a file/include boundary: entering an
// included file clears it, and the including file's override is restored
// on return.
type LineOverride struct {
	Active       bool
	ReportedLine int
	// PhysicalBase is the physical line number of the line the #line
	// directive itself appeared on, so later lines can compute their
	// reported number as ReportedLine + (physical - PhysicalBase - 1).
	PhysicalBase int
	File         string
}

// Apply computes the position a diagnostic/emission should report for
// physical line phys, given this override (if Active).
func (o LineOverride) Apply(phys int, actualFile string) (line int, file string) {
	if !o.Active {
		return phys, actualFile
	}
	file = actualFile
	if o.File != "" {
		file = o.File
	}
	return o.ReportedLine + (phys - o.PhysicalBase - 1), file
}
