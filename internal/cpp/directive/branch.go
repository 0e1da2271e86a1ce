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

// Package directive dispatches '#'-lines: conditional inclusion, macro
// definition lifecycle, source inclusion, line control, and diagnostics.
package directive

import "github.com/ccpp-dev/ccpp/internal/cpp/source"

// BranchFrame is one level of #if/#ifdef/#ifndef nesting.
type BranchFrame struct {
	// Taken is true once some branch in this #if..#endif chain has already
	// been included; further #elif/#else branches in the same chain are
	// skipped even if their own condition would be true.
	Taken bool
	// Active is true when the CURRENT branch of this frame is being
	// included, independent of whether an enclosing frame is active.
	Active bool
	// HasElse records whether #else has already appeared in this chain, so
	// a second #else or any #elif after it is a diagnostic.
	HasElse bool
	At      source.Pos
}

// BranchStack tracks nested conditional-inclusion state. Skipping text is
// "any frame on the stack is not Active"; a flat, value-typed stack keeps
// nested #endif matching trivial even inside skipped regions.
type BranchStack struct {
	frames []BranchFrame
}

func NewBranchStack() *BranchStack { return &BranchStack{} }

// Skipping reports whether lines should currently be discarded rather than
// preprocessed: true as soon as any enclosing frame is inactive.
func (b *BranchStack) Skipping() bool {
	for _, f := range b.frames {
		if !f.Active {
			return true
		}
	}
	return false
}

func (b *BranchStack) Depth() int { return len(b.frames) }

// PushIf opens a new #if/#ifdef/#ifndef frame. cond is the already-evaluated
// truth of the first branch; it is ignored (frame starts inactive) when an
// enclosing frame is already skipping, since a nested directive's condition
// must not be evaluated while skipped: macro-undefined names and
// division by zero inside a skipped #if are not errors.
func (b *BranchStack) PushIf(cond bool, at source.Pos) {
	if b.Skipping() {
		b.frames = append(b.frames, BranchFrame{Taken: false, Active: false, At: at})
		return
	}
	b.frames = append(b.frames, BranchFrame{Taken: cond, Active: cond, At: at})
}

// Elif transitions the top frame to a new #elif branch. ok is false when
// there is no open #if to match (a bare #elif) or #elif follows #else.
func (b *BranchStack) Elif(cond bool, parentSkipping bool) (ok bool) {
	if len(b.frames) == 0 {
		return false
	}
	top := &b.frames[len(b.frames)-1]
	if top.HasElse {
		return false
	}
	if parentSkipping {
		top.Active = false
		return true
	}
	if top.Taken {
		top.Active = false
		return true
	}
	top.Active = cond
	top.Taken = cond
	return true
}

// Else transitions the top frame to its #else branch.
func (b *BranchStack) Else(parentSkipping bool) (ok bool) {
	if len(b.frames) == 0 {
		return false
	}
	top := &b.frames[len(b.frames)-1]
	if top.HasElse {
		return false
	}
	top.HasElse = true
	if parentSkipping {
		top.Active = false
		return true
	}
	top.Active = !top.Taken
	top.Taken = true
	return true
}

// Endif closes the innermost frame. ok is false when the stack is empty.
func (b *BranchStack) Endif() (ok bool) {
	if len(b.frames) == 0 {
		return false
	}
	b.frames = b.frames[:len(b.frames)-1]
	return true
}

// ParentSkipping reports whether any frame enclosing the top frame is
// inactive, used so Elif/Else can tell "this frame's own condition doesn't
// matter, an ancestor already hides it" apart from "this frame's condition
// genuinely evaluates false".
func (b *BranchStack) ParentSkipping() bool {
	if len(b.frames) == 0 {
		return false
	}
	for _, f := range b.frames[:len(b.frames)-1] {
		if !f.Active {
			return true
		}
	}
	return false
}
