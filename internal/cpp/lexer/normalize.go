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

package lexer

import (
	"strings"

	"github.com/ccpp-dev/ccpp/internal/cpp/diag"
)

// trigraphs maps the third character of a "??x" sequence to its replacement.
var trigraphs = map[byte]byte{
	'(': '[', ')': ']', '<': '{', '>': '}', '=': '#', '/': '\\', '\'': '^', '!': '|', '-': '~',
}

// Normalizer implements C11 translation phases 1-2: trigraph replacement
// (6.4.1) followed by line splicing (5.1.1.2p1-2). It hands the directive
// engine and tokenizer one logical line at a time so a spliced multi-line
// #define still looks like a single line.
type Normalizer struct {
	path     string
	data     []byte
	pos      int
	cur      Cursor
	reporter diag.Sink
}

func NewNormalizer(path string, data []byte, reporter diag.Sink) *Normalizer {
	return &Normalizer{path: path, data: data, cur: CursorInit, reporter: reporter}
}

// Line is one logical line plus its start/end position in the original file.
type Line struct {
	Text  string
	Start Pos
	End   Pos
}

func (n *Normalizer) toPos(c Cursor) Pos {
	return Pos{Path: n.path, Line: c.Line, Column: c.Column}
}

// AtEOF reports whether all bytes have been consumed.
func (n *Normalizer) AtEOF() bool { return n.pos >= len(n.data) }

// peekAt returns the byte off positions past the next unconsumed one, or 0
// and false past EOF.
func (n *Normalizer) peekAt(off int) (byte, bool) {
	if n.pos+off >= len(n.data) {
		return 0, false
	}
	return n.data[n.pos+off], true
}

// trigraphAt reports whether a trigraph sequence "??x" starts at n.pos,
// returning its replacement byte.
func (n *Normalizer) trigraphAt() (byte, bool) {
	if b0, ok := n.peekAt(0); !ok || b0 != '?' {
		return 0, false
	}
	if b1, ok := n.peekAt(1); !ok || b1 != '?' {
		return 0, false
	}
	b2, ok := n.peekAt(2)
	if !ok {
		return 0, false
	}
	repl, known := trigraphs[b2]
	return repl, known
}

// NextLine produces the next logical line, folding trigraphs and spliced
// continuations. ok is false once all input has been consumed.
func (n *Normalizer) NextLine() (line Line, ok bool) {
	if n.AtEOF() {
		return Line{}, false
	}

	var buf strings.Builder
	start := n.cur

	for {
		if n.AtEOF() {
			break
		}

		// Carriage-return normalization: a lone \r or \r\n both end a
		// physical line the same as \n.
		if b, _ := n.peekAt(0); b == '\r' {
			n.advanceRaw(1)
			if b2, has := n.peekAt(0); has && b2 == '\n' {
				n.advanceRaw(1)
			}
			break
		}
		if b, _ := n.peekAt(0); b == '\n' {
			n.advanceRaw(1)
			break
		}

		// Trigraph replacement happens before splice detection, except
		// that a "??/" producing a bare backslash must still be allowed to
		// splice if a newline (optionally via \r) follows it.
		if repl, isTrigraph := n.trigraphAt(); isTrigraph {
			if repl == '\\' {
				if spliced := n.trySplice(3); spliced {
					continue
				}
			}
			buf.WriteByte(repl)
			n.advanceRaw(3)
			continue
		}

		if b, _ := n.peekAt(0); b == '\\' {
			if n.trySplice(1) {
				continue
			}
		}

		// trySplice consumes a backslash that runs into EOF, so re-check.
		b, has := n.peekAt(0)
		if !has {
			break
		}
		buf.WriteByte(b)
		n.advanceRaw(1)
	}

	end := n.cur
	return Line{Text: buf.String(), Start: n.toPos(start), End: n.toPos(end)}, true
}

// trySplice checks for a backslash (already known present, logically
// trigraph-substituted or literal) followed by optional '\r' and a
// mandatory '\n', consuming prefixLen bytes of the backslash spelling plus
// the line terminator when the splice succeeds. It reports true when a
// splice was consumed.
func (n *Normalizer) trySplice(prefixLen int) bool {
	off := prefixLen
	for {
		b, has := n.peekAt(off)
		if !has {
			if n.pos+off >= len(n.data) {
				// Backslash runs straight into EOF: warn and stop the
				// logical line at the bare backslash.
				n.reporter.Report(diag.Diagnostic{
					Severity: diag.Warning,
					Kind:     diag.Lexical,
					Message:  "backslash at end of file with no following newline",
					Pos:      n.toPos(n.cur),
				})
				n.advanceRaw(off)
				return false
			}
			return false
		}
		switch b {
		case '\r':
			if b2, has2 := n.peekAt(off + 1); has2 && b2 == '\n' {
				n.advanceRaw(off + 2)
				return true
			}
			return false
		case '\n':
			n.advanceRaw(off + 1)
			return true
		default:
			return false
		}
	}
}

// advanceRaw moves the cursor forward by count raw bytes, tracking
// line/column the same way lexer.Cursor does for already-extracted tokens.
func (n *Normalizer) advanceRaw(count int) {
	raw := string(n.data[n.pos : n.pos+count])
	n.cur = n.cur.AdvancedBy(raw)
	n.pos += count
}
