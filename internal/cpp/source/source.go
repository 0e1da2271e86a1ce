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

// Package source owns the byte buffers of every file touched while
// preprocessing one translation unit and the small position/provenance
// types attached to every emitted token.
package source

import (
	"fmt"
	"os"
	"path/filepath"
)

// FileSystem is the external collaborator that resolves #include search
// paths and supplies file contents. The core never calls os.* directly so
// tests can substitute an in-memory filesystem.
type FileSystem interface {
	// ReadFile returns the bytes for an absolute path.
	ReadFile(absPath string) ([]byte, error)
	// Resolve turns a quote- or angle-form include spelling into an absolute
	// path. fromDir is the directory of the file containing the #include
	// (used for the quote-form search); searchDirs is the system include
	// list. ok is false when no candidate exists.
	Resolve(spelling string, fromDir string, searchDirs []string) (absPath string, ok bool)
}

// OSFileSystem resolves paths against the real filesystem, trying the
// including file's directory first (quote form only), then each search
// directory in order.
type OSFileSystem struct{}

func (OSFileSystem) ReadFile(absPath string) ([]byte, error) {
	return os.ReadFile(absPath)
}

func (OSFileSystem) Resolve(spelling string, fromDir string, searchDirs []string) (string, bool) {
	candidates := make([]string, 0, 1+len(searchDirs))
	if fromDir != "" {
		candidates = append(candidates, filepath.Join(fromDir, spelling))
	}
	for _, dir := range searchDirs {
		candidates = append(candidates, filepath.Join(dir, spelling))
	}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			abs, err := filepath.Abs(c)
			if err != nil {
				abs = c
			}
			return abs, true
		}
	}
	return "", false
}

// Handle is an opaque reference into a Cache; loading the same path again
// returns the same Handle.
type Handle int

// File is an immutable byte buffer read once and kept for the lifetime of
// one translation unit's preprocessing.
type File struct {
	Path string
	Data []byte
}

// Cache owns every File loaded while preprocessing a translation unit,
// keyed by absolute path. It intentionally has no package-level state: each
// call to the preprocessor constructs its own Cache so tests and concurrent
// translation units never share mutable file state.
type Cache struct {
	fs      FileSystem
	files   []File
	byPath  map[string]Handle
	interns map[string]string
}

func NewCache(fs FileSystem) *Cache {
	return &Cache{
		fs:      fs,
		byPath:  make(map[string]Handle),
		interns: make(map[string]string),
	}
}

// Intern returns a canonical copy of path, so that repeated SourcePos values
// for the same file share one backing string.
func (c *Cache) Intern(path string) string {
	if interned, ok := c.interns[path]; ok {
		return interned
	}
	c.interns[path] = path
	return path
}

// Load reads absPath if it has not been seen before and returns a stable
// Handle to its contents.
func (c *Cache) Load(absPath string) (Handle, error) {
	absPath = c.Intern(absPath)
	if h, ok := c.byPath[absPath]; ok {
		return h, nil
	}
	data, err := c.fs.ReadFile(absPath)
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", absPath, err)
	}
	h := Handle(len(c.files))
	c.files = append(c.files, File{Path: absPath, Data: data})
	c.byPath[absPath] = h
	return h, nil
}

// Resolve delegates to the underlying FileSystem and, on success, loads the
// resolved file into the cache.
func (c *Cache) Resolve(spelling string, fromDir string, searchDirs []string) (Handle, string, error) {
	abs, ok := c.fs.Resolve(spelling, fromDir, searchDirs)
	if !ok {
		return 0, "", fmt.Errorf("%s: no such file or directory in quote or system search path", spelling)
	}
	h, err := c.Load(abs)
	return h, abs, err
}

func (c *Cache) File(h Handle) *File {
	return &c.files[h]
}

// Pos is a point in a translation unit's original source coordinates.
// Line and Column are 1-based.
type Pos struct {
	Path   string
	Line   int
	Column int
}

func (p Pos) String() string {
	if p == (Pos{}) {
		return "<unknown>"
	}
	return fmt.Sprintf("%s:%d:%d", p.Path, p.Line, p.Column)
}

// FrameKind discriminates the three ways a token can be attributed to its
// origin.
type FrameKind int

const (
	// FrameFile is the bottom of every stack: the originating translation unit.
	FrameFile FrameKind = iota
	// FrameInclude marks entry into a file via #include.
	FrameInclude
	// FrameMacro marks entry into a macro's replacement list during expansion.
	FrameMacro
)

func (k FrameKind) String() string {
	switch k {
	case FrameFile:
		return "file"
	case FrameInclude:
		return "include"
	case FrameMacro:
		return "macro"
	default:
		return "unknown"
	}
}

// Frame is one entry of a token's provenance stack.
type Frame struct {
	Kind FrameKind
	// Pos is the include or file position for FrameFile/FrameInclude, and
	// the call-site position for FrameMacro.
	Pos Pos
	// MacroName and DefinedAt are set only for FrameMacro.
	MacroName string
	DefinedAt Pos
}

func (f Frame) String() string {
	switch f.Kind {
	case FrameMacro:
		return fmt.Sprintf("in expansion of macro %q (defined at %s)", f.MacroName, f.DefinedAt)
	default:
		return fmt.Sprintf("%s at %s", f.Kind, f.Pos)
	}
}

// Stack is an ordered list of Frames, oldest (origin file) first. Stacks are
// immutable value types: Push/Pop return new slices, so a token that copies
// a Stack by value never observes later mutation of the frame that produced
// it.
type Stack []Frame

func (s Stack) Push(f Frame) Stack {
	grown := make(Stack, len(s)+1)
	copy(grown, s)
	grown[len(s)] = f
	return grown
}

func (s Stack) Pop() Stack {
	if len(s) == 0 {
		return s
	}
	return s[:len(s)-1]
}

// Contains reports whether a macro with the given name is already active
// somewhere on the stack, which is exactly the self-exclusion test the
// macro expander needs during rescan.
func (s Stack) Contains(macroName string) bool {
	for _, f := range s {
		if f.Kind == FrameMacro && f.MacroName == macroName {
			return true
		}
	}
	return false
}

func (s Stack) Depth() int { return len(s) }
