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

// Package macro holds macro definitions as immutable values: a Macro once
// recorded in a Table is never mutated in place, only replaced wholesale by
// a later #define that passes the redefinition compatibility check.
package macro

import (
	"github.com/ccpp-dev/ccpp/internal/cpp/lexer"
	"github.com/ccpp-dev/ccpp/internal/cpp/source"
)

// Macro is a single object-like or function-like macro definition.
// Self-exclusion during rescan is tracked by the expander through
// source.Stack, not on the Macro value.
type Macro struct {
	Name        string
	IsFunction  bool
	Params      []string
	Variadic    bool
	Replacement []lexer.Token
	DefinedAt   source.Pos
}

// sameTokenSequence implements the "identical spelling and identical
// whitespace separation" half of the redefinition compatibility check
// (C11 6.10.3p2).
func sameTokenSequence(a, b []lexer.Token) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Data != b[i].Data || a[i].Kind != b[i].Kind {
			return false
		}
		if i < len(a)-1 && a[i].HasWhitespace != b[i].HasWhitespace {
			return false
		}
	}
	return true
}

// Compatible reports whether redefining an existing macro as `next` is
// benign: same function/object-like-ness, same parameter list, same
// variadic-ness, and token-for-token identical replacement including
// whitespace. An incompatible redefinition is a diagnostic, not a panic; the
// caller decides severity.
func (m Macro) Compatible(next Macro) bool {
	if m.IsFunction != next.IsFunction {
		return false
	}
	if m.Variadic != next.Variadic {
		return false
	}
	if len(m.Params) != len(next.Params) {
		return false
	}
	for i := range m.Params {
		if m.Params[i] != next.Params[i] {
			return false
		}
	}
	return sameTokenSequence(m.Replacement, next.Replacement)
}

// Table is the set of currently-defined macros, keyed by name. Table itself
// holds no position/diagnostic state; callers decide what a failed
// Define/Undef means for their diagnostics.
type Table struct {
	macros map[string]Macro
}

func NewTable() *Table {
	return &Table{macros: make(map[string]Macro)}
}

// Lookup returns the macro named name and whether it is defined.
func (t *Table) Lookup(name string) (Macro, bool) {
	m, ok := t.macros[name]
	if !ok {
		return Macro{}, false
	}
	return m, true
}

// Defined reports whether name has any definition, active or not; this is
// the predicate `defined` and `#ifdef` query (excludes expander suppression,
// which is a runtime-only concept tracked via source.Stack, not Table).
func (t *Table) Defined(name string) bool {
	_, ok := t.macros[name]
	return ok
}

// Define installs next, returning the previous definition (if any) and
// whether the redefinition was compatible. A brand new name always reports
// compatible=true since there is nothing to conflict with. An incompatible
// redefinition keeps the existing definition; the caller reports it.
func (t *Table) Define(next Macro) (previous Macro, hadPrevious bool, compatible bool) {
	previous, hadPrevious = t.macros[next.Name]
	compatible = !hadPrevious || previous.Compatible(next)
	if compatible {
		t.macros[next.Name] = next
	}
	return previous, hadPrevious, compatible
}

// Undef removes a macro definition, reporting whether one existed.
func (t *Table) Undef(name string) bool {
	_, ok := t.macros[name]
	delete(t.macros, name)
	return ok
}
