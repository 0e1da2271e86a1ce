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

// Package expand implements C11 6.10.3's macro replacement algorithm:
// argument collection, argument pre-expansion, '#' stringization, '##'
// concatenation with placemarker semantics, and rescan with self-exclusion.
package expand

import (
	"fmt"
	"strings"

	"github.com/ccpp-dev/ccpp/internal/cpp/diag"
	"github.com/ccpp-dev/ccpp/internal/cpp/lexer"
	"github.com/ccpp-dev/ccpp/internal/cpp/macro"
	"github.com/ccpp-dev/ccpp/internal/cpp/source"
)

// DefaultRecursionLimit bounds nested macro expansion depth; a legitimate
// macro stack this deep is vanishingly unlikely and the limit exists only
// to turn a would-be stack overflow into a diagnostic.
const DefaultRecursionLimit = 200

// More is called by the expander when a function-like macro invocation's
// argument list may continue onto a following logical line (the invoking
// '(' was seen but its matching ')' was not yet found on the current line).
// It returns the next line's tokens, or ok=false if no more input exists
// (an unterminated invocation at end of file).
type More func() (tokens []lexer.Token, ok bool)

// Expander walks a token sequence, replacing macro invocations in place and
// rescanning their output, using source.Stack.Contains for self-exclusion
// instead of a parallel "currently expanding" set: the stack a token
// carries IS the exclusion set.
type Expander struct {
	table    *macro.Table
	reporter diag.Sink
	limit    int
}

func NewExpander(table *macro.Table, reporter diag.Sink) *Expander {
	return &Expander{table: table, reporter: reporter, limit: DefaultRecursionLimit}
}

// Expand fully macro-expands tokens, which all share provenance stack base.
// fetchMore supplies additional lines if a function-like invocation's
// argument list is still open at the end of tokens.
func (e *Expander) Expand(tokens []lexer.Token, base source.Stack, fetchMore More) []lexer.Token {
	return e.expandDepth(tokens, base, fetchMore, 0)
}

func (e *Expander) expandDepth(tokens []lexer.Token, stack source.Stack, fetchMore More, depth int) []lexer.Token {
	if depth > e.limit {
		e.reporter.Report(diag.Diagnostic{
			Severity: diag.Error, Kind: diag.MacroSemantics,
			Message: "macro expansion recursion limit exceeded", Stack: stack,
		})
		return tokens
	}

	var out []lexer.Token
	i := 0
	for i < len(tokens) {
		t := tokens[i]
		if t.Kind != lexer.Identifier {
			out = append(out, t)
			i++
			continue
		}
		m, ok := e.table.Lookup(t.Data)
		if !ok || stack.Contains(t.Data) {
			out = append(out, t)
			i++
			continue
		}

		if !m.IsFunction {
			callStack := stack.Push(source.Frame{Kind: source.FrameMacro, Pos: t.Pos, MacroName: m.Name, DefinedAt: m.DefinedAt})
			body := e.substitute(m, boundArgs{}, callStack)
			expanded := e.expandDepth(body, callStack, fetchMore, depth+1)
			out = append(out, stamp(carryWhitespace(expanded, t.HasWhitespace), callStack)...)
			i++
			continue
		}

		// Function-like macro: the next token must be '('
		// for this to be an invocation at all (6.10.3p10); otherwise the
		// identifier passes through untouched.
		j := i + 1
		if j >= len(tokens) || tokens[j].Kind != lexer.LParen {
			if j >= len(tokens) && fetchMore != nil {
				more, hasMore := fetchMore()
				if hasMore {
					tokens = append(tokens[:j], append(more, tokens[j:]...)...)
				}
			}
			if j >= len(tokens) || tokens[j].Kind != lexer.LParen {
				out = append(out, t)
				i++
				continue
			}
		}

		argTokens, consumed, ok := collectArgList(tokens, j, fetchMore)
		if !ok {
			e.reporter.Report(diag.Diagnostic{
				Severity: diag.Error, Kind: diag.MacroSemantics,
				Message: fmt.Sprintf("unterminated argument list invoking macro %q", m.Name), Pos: t.Pos, Stack: stack,
			})
			out = append(out, t)
			i++
			continue
		}
		tokens = consumed.tokens
		split := macro.SplitArgs(argTokens)
		args, ok := macro.Bind(m, split)
		if !ok {
			e.reporter.Report(diag.Diagnostic{
				Severity: diag.Error, Kind: diag.MacroSemantics,
				Message: fmt.Sprintf("macro %q requires %d argument(s)", m.Name, len(m.Params)), Pos: t.Pos, Stack: stack,
			})
			out = append(out, t)
			i = consumed.next
			continue
		}

		callStack := stack.Push(source.Frame{Kind: source.FrameMacro, Pos: t.Pos, MacroName: m.Name, DefinedAt: m.DefinedAt})
		preExpanded := e.preExpandArgs(m, args, stack, fetchMore, depth)
		body := e.substitute(m, preExpanded, callStack)
		expanded := e.expandDepth(body, callStack, fetchMore, depth+1)
		out = append(out, stamp(carryWhitespace(expanded, t.HasWhitespace), callStack)...)
		i = consumed.next
	}
	return removePlacemarkers(out)
}

// stamp records the provenance stack on every token that does not already
// carry one (tokens re-expanded by an inner macro keep the deeper stack
// stamped there).
func stamp(toks []lexer.Token, stack source.Stack) []lexer.Token {
	for i := range toks {
		if toks[i].Stack == nil {
			toks[i].Stack = stack
		}
	}
	return toks
}

func carryWhitespace(toks []lexer.Token, hasWs bool) []lexer.Token {
	if len(toks) == 0 {
		return toks
	}
	toks[0].HasWhitespace = toks[0].HasWhitespace || hasWs
	return toks
}

// boundArgs carries both spellings of each argument: raw (exactly as
// collected, consumed by '#' and '##' operands per 6.10.3.1p1) and
// pre-expanded (consumed by every other parameter occurrence).
type boundArgs struct {
	raw         [][]lexer.Token
	positional  [][]lexer.Token
	rawVariadic []lexer.Token
	variadic    []lexer.Token
	hasVar      bool
}

// preExpandArgs fully macro-expands each argument independently (6.10.3.1p1)
// before substitution, retaining the raw token sequence alongside for the
// '#' and '##' operand cases where expansion must not happen.
func (e *Expander) preExpandArgs(m macro.Macro, a macro.Args, stack source.Stack, fetchMore More, depth int) boundArgs {
	b := boundArgs{hasVar: a.HasVariadic, raw: a.Positional, rawVariadic: a.Variadic}
	for _, arg := range a.Positional {
		b.positional = append(b.positional, e.expandDepth(arg, stack, fetchMore, depth+1))
	}
	if a.HasVariadic {
		b.variadic = e.expandDepth(a.Variadic, stack, fetchMore, depth+1)
	}
	return b
}

type consumedArgs struct {
	tokens []lexer.Token
	next   int
}

// collectArgList scans tokens starting at the index of the invocation's '('
// through its matching ')', tracking paren depth so nested calls in an
// argument don't terminate early. It pulls more lines via fetchMore if the
// call is not closed within the tokens given.
func collectArgList(tokens []lexer.Token, openParen int, fetchMore More) (args []lexer.Token, consumed consumedArgs, ok bool) {
	depth := 0
	i := openParen
	for {
		for i < len(tokens) {
			switch tokens[i].Kind {
			case lexer.LParen:
				depth++
			case lexer.RParen:
				depth--
				if depth == 0 {
					return tokens[openParen+1 : i], consumedArgs{tokens: tokens, next: i + 1}, true
				}
			}
			i++
		}
		if fetchMore == nil {
			return nil, consumedArgs{}, false
		}
		more, hasMore := fetchMore()
		if !hasMore {
			return nil, consumedArgs{}, false
		}
		if len(tokens) > 0 {
			tokens[len(tokens)-1].HasWhitespace = true
		}
		tokens = append(tokens, more...)
	}
}

// substitute builds a macro body's replacement tokens with parameters
// replaced by their arguments (raw for # / ## operands, pre-expanded
// otherwise), '#' applied to produce a single string-literal token, and
// '##' applied left-to-right with placemarker semantics (6.10.3.3).
func (e *Expander) substitute(m macro.Macro, args boundArgs, stack source.Stack) []lexer.Token {
	paramIndex := func(name string) (int, bool) {
		for i, p := range m.Params {
			if p == name {
				return i, true
			}
		}
		return 0, false
	}
	expandedFor := func(idx int) []lexer.Token {
		if idx < len(args.positional) {
			return args.positional[idx]
		}
		return nil
	}
	rawFor := func(idx int) []lexer.Token {
		if idx < len(args.raw) {
			return args.raw[idx]
		}
		return nil
	}

	var body []lexer.Token
	repl := m.Replacement
	// A parameter adjacent to '##' substitutes its raw argument; everywhere
	// else the pre-expanded one (6.10.3.1p1).
	nextToHashHash := func(i int) bool {
		if i > 0 && repl[i-1].Kind == lexer.HashHash {
			return true
		}
		return i+1 < len(repl) && repl[i+1].Kind == lexer.HashHash
	}
	for i := 0; i < len(repl); i++ {
		tok := repl[i]

		if tok.Kind == lexer.Hash && m.IsFunction && i+1 < len(repl) {
			next := repl[i+1]
			if idx, isParam := paramIndex(next.Data); isParam && next.Kind == lexer.Identifier {
				str := stringize(rawFor(idx))
				str.HasWhitespace = tok.HasWhitespace
				body = append(body, str)
				i++
				continue
			}
			if m.Variadic && next.Data == "__VA_ARGS__" {
				str := stringize(args.rawVariadic)
				str.HasWhitespace = tok.HasWhitespace
				body = append(body, str)
				i++
				continue
			}
		}

		if tok.Kind == lexer.Identifier {
			if m.Variadic && tok.Data == "__VA_ARGS__" {
				arg := args.variadic
				if nextToHashHash(i) {
					arg = args.rawVariadic
				}
				body = append(body, withLeadingWhitespace(arg, tok.HasWhitespace)...)
				continue
			}
			if idx, isParam := paramIndex(tok.Data); isParam {
				arg := expandedFor(idx)
				if nextToHashHash(i) {
					arg = rawFor(idx)
				}
				body = append(body, withLeadingWhitespace(arg, tok.HasWhitespace)...)
				continue
			}
		}

		body = append(body, tok)
	}

	return applyHashHash(body)
}

func withLeadingWhitespace(toks []lexer.Token, ws bool) []lexer.Token {
	if len(toks) == 0 {
		return []lexer.Token{lexer.Placemark(lexer.Pos{})}
	}
	cp := make([]lexer.Token, len(toks))
	copy(cp, toks)
	cp[0].HasWhitespace = cp[0].HasWhitespace || ws
	return cp
}

// applyHashHash resolves every '##' left-to-right, pasting the spelling of
// its neighbors into one token and re-lexing the result as a single
// pp-token's worth of text (6.10.3.3p3). A placemarker on either side
// vanishes, yielding the other side unchanged; '##' between two
// placemarkers yields one placemarker.
func applyHashHash(toks []lexer.Token) []lexer.Token {
	var out []lexer.Token
	for i := 0; i < len(toks); i++ {
		if toks[i].Kind == lexer.HashHash && len(out) > 0 && i+1 < len(toks) {
			left := out[len(out)-1]
			right := toks[i+1]
			out = out[:len(out)-1]
			out = append(out, paste(left, right))
			i++
			continue
		}
		out = append(out, toks[i])
	}
	return out
}

func paste(left, right lexer.Token) lexer.Token {
	if left.Kind == lexer.Placemarker {
		return right
	}
	if right.Kind == lexer.Placemarker {
		return left
	}
	merged := left.Data + right.Data
	kind := reclassify(merged, left, right)
	return lexer.Token{Kind: kind, Data: merged, Pos: left.Pos, HasWhitespace: right.HasWhitespace}
}

// reclassify re-lexes the pasted text to find its kind; pasted text that
// doesn't form one valid pp-token (6.10.3.3p3's undefined-behavior case) is
// kept as Other rather than rejected outright.
func reclassify(merged string, left, right lexer.Token) lexer.Kind {
	if left.Kind == lexer.Hash && right.Kind == lexer.Hash {
		return lexer.ConcatDoubleHash
	}
	collector := diag.NewCollector()
	toks := lexer.NewTokenizer(collector).Tokenize(lexer.Line{Text: merged})
	if len(toks) == 1 && toks[0].Data == merged && len(collector.Diagnostics) == 0 {
		return toks[0].Kind
	}
	return lexer.Other
}

func isIdentHead(s string) bool {
	if s == "" {
		return false
	}
	c := s[0]
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
func isDigitHead(s string) bool { return s != "" && s[0] >= '0' && s[0] <= '9' }

// stringize implements '#' (6.10.3.2): the argument's spelling, with
// internal whitespace runs collapsed to one space, each internal '"' and
// '\' in string/char literal tokens escaped, and no leading/trailing space.
func stringize(toks []lexer.Token) lexer.Token {
	var b strings.Builder
	b.WriteByte('"')
	for i, t := range toks {
		if i > 0 && t.Kind != lexer.Placemarker && toks[i-1].HasWhitespace {
			b.WriteByte(' ')
		}
		if t.Kind == lexer.Placemarker {
			continue
		}
		if t.Kind == lexer.StringLiteral || t.Kind == lexer.CharConst {
			for _, c := range t.Data {
				if c == '"' || c == '\\' {
					b.WriteByte('\\')
				}
				b.WriteRune(c)
			}
		} else {
			b.WriteString(t.Data)
		}
	}
	b.WriteByte('"')
	return lexer.Token{Kind: lexer.StringLiteral, Data: b.String()}
}

// removePlacemarkers strips any placemarker tokens that survived to the end
// of substitution (e.g. from an empty argument never consumed by ##), since
// a placemarker must never reach the classifier.
func removePlacemarkers(toks []lexer.Token) []lexer.Token {
	out := toks[:0]
	for _, t := range toks {
		if t.Kind == lexer.Placemarker {
			continue
		}
		out = append(out, t)
	}
	return out
}
