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

package diag

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ccpp-dev/ccpp/internal/cpp/source"
)

func TestCollector(t *testing.T) {
	c := NewCollector()
	assert.False(t, c.HasErrors())
	assert.False(t, c.Fatal())

	c.Report(Diagnostic{Severity: Warning, Message: "w"})
	assert.False(t, c.HasErrors())

	c.Report(Diagnostic{Severity: Error, Message: "e"})
	assert.True(t, c.HasErrors())
	assert.False(t, c.Fatal())

	c.Report(Diagnostic{Severity: Fatal, Message: "f"})
	assert.True(t, c.Fatal())
	assert.Len(t, c.Diagnostics, 3)
}

func TestPromoteWarnings(t *testing.T) {
	c := NewCollector()
	p := PromoteWarnings{Sink: c}

	p.Report(Diagnostic{Severity: Warning, Message: "w"})
	assert.True(t, c.HasErrors())
	assert.Equal(t, Error, c.Diagnostics[0].Severity)

	p.Report(Diagnostic{Severity: Fatal, Message: "f"})
	assert.Equal(t, Fatal, c.Diagnostics[1].Severity)
}

func TestDiagnosticStringIncludesStack(t *testing.T) {
	d := Diagnostic{
		Severity: Error,
		Message:  "arity mismatch",
		Pos:      source.Pos{Path: "a.c", Line: 3, Column: 2},
		Stack: source.Stack{
			{Kind: source.FrameFile, Pos: source.Pos{Path: "a.c", Line: 1, Column: 1}},
			{Kind: source.FrameMacro, MacroName: "FOO", DefinedAt: source.Pos{Path: "a.c", Line: 1, Column: 9}},
		},
	}
	s := d.String()
	assert.Contains(t, s, "a.c:3:2: error: arity mismatch")
	assert.Contains(t, s, `in expansion of macro "FOO"`)
}
