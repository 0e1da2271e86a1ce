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

// Package preprocessor wires the lexer, directive, macro, expand, and
// classify packages into the end-to-end pipeline: read a translation unit,
// split it into logical lines, dispatch '#'-lines, macro-expand everything
// else, and classify the result into a final Token stream.
package preprocessor

import (
	"fmt"
	"path/filepath"

	"github.com/ccpp-dev/ccpp/internal/cpp/classify"
	"github.com/ccpp-dev/ccpp/internal/cpp/diag"
	"github.com/ccpp-dev/ccpp/internal/cpp/directive"
	"github.com/ccpp-dev/ccpp/internal/cpp/expand"
	"github.com/ccpp-dev/ccpp/internal/cpp/expr"
	"github.com/ccpp-dev/ccpp/internal/cpp/lexer"
	"github.com/ccpp-dev/ccpp/internal/cpp/macro"
	"github.com/ccpp-dev/ccpp/internal/cpp/source"
)

// MaxIncludeDepth bounds #include nesting; exceeding it almost always means
// a self-including header rather than a legitimately deep include graph.
const MaxIncludeDepth = 64

// Options configures one run of the Driver.
type Options struct {
	SearchDirs       []string
	PredefinedMacros []macro.Macro
	// PromoteWarnings turns every warning into an error (-Werror).
	PromoteWarnings bool
}

// Driver runs the pipeline for a single translation unit. It is not safe
// for concurrent use by multiple goroutines; the CLI runs one Driver per
// translation unit and parallelizes across Drivers instead (each
// translation unit's own preprocessing stays strictly sequential).
type Driver struct {
	opts         Options
	cache        *source.Cache
	table        *macro.Table
	reporter     diag.Sink
	collector    *diag.Collector
	branches     *directive.BranchStack
	lineOverride directive.LineOverride
	includeDepth int
}

// New constructs a Driver backed by fs for file resolution. The returned
// Collector accumulates every diagnostic raised during Run.
func New(fs source.FileSystem, opts Options) (*Driver, *diag.Collector) {
	collector := diag.NewCollector()
	var sink diag.Sink = collector
	if opts.PromoteWarnings {
		sink = diag.PromoteWarnings{Sink: collector}
	}
	table := macro.NewTable()
	for _, m := range opts.PredefinedMacros {
		table.Define(m)
	}
	return &Driver{
		opts:     opts,
		cache:    source.NewCache(fs),
		table:    table,
		reporter: sink,
		collector: collector,
		branches: directive.NewBranchStack(),
	}, collector
}

// Run preprocesses the file at path and returns its classified token
// stream. It stops early (possibly with a partial stream) if a Fatal
// diagnostic was reported.
func (d *Driver) Run(path string) ([]classify.Token, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	handle, err := d.cache.Load(abs)
	if err != nil {
		return nil, err
	}
	base := source.Stack{{Kind: source.FrameFile, Pos: source.Pos{Path: abs, Line: 1, Column: 1}}}
	return d.runFile(handle, abs, base)
}

// runFile drives one file's logical lines through directive dispatch and
// macro expansion, returning its classified tokens.
func (d *Driver) runFile(handle source.Handle, path string, stack source.Stack) ([]classify.Token, error) {
	file := d.cache.File(handle)
	norm := lexer.NewNormalizer(path, file.Data, d.reporter)
	tok := lexer.NewTokenizer(d.reporter)
	expander := expand.NewExpander(d.table, d.reporter)

	var out []classify.Token
	for {
		if d.collector.Fatal() {
			return out, nil
		}
		line, ok := norm.NextLine()
		if !ok {
			break
		}
		ppToks := tok.Tokenize(line)
		if len(ppToks) == 0 {
			continue
		}

		reportedLine, reportedFile := d.lineOverride.Apply(line.Start.Line, path)
		pos := source.Pos{Path: reportedFile, Line: reportedLine, Column: line.Start.Column}

		if ppToks[0].Kind == lexer.Hash {
			if err := d.handleDirective(ppToks[1:], pos, line.Start.Line, path, stack, expander, &out); err != nil {
				d.reporter.Report(diag.Diagnostic{Severity: diag.Error, Kind: diag.DirectiveSyntax, Message: err.Error(), Pos: pos, Stack: stack})
			}
			continue
		}

		if d.branches.Skipping() {
			continue
		}

		more := func() (tokens []lexer.Token, ok bool) {
			l, ok := norm.NextLine()
			if !ok {
				return nil, false
			}
			return tok.Tokenize(l), true
		}
		expanded := expander.Expand(ppToks, stack, more)
		for _, et := range expanded {
			// Tokens with no final-stream representation are rejected here,
			// non-fatally, so the classifier's internal-error check stays a
			// genuine invariant.
			switch et.Kind {
			case lexer.Other:
				d.reporter.Report(diag.Diagnostic{Severity: diag.Error, Kind: diag.Lexical, Message: fmt.Sprintf("stray %q in program", et.Data), Pos: et.Pos, Stack: stack})
				continue
			case lexer.Hash, lexer.HashHash, lexer.ConcatDoubleHash:
				d.reporter.Report(diag.Diagnostic{Severity: diag.Error, Kind: diag.DirectiveSyntax, Message: fmt.Sprintf("stray %q outside a directive", et.Data), Pos: et.Pos, Stack: stack})
				continue
			}
			classified, err := classify.Classify(et, d.reporter)
			if err != nil {
				return out, err
			}
			if classified.Stack == nil {
				classified.Stack = stack
			}
			// Tokens spliced in from a macro body carry their definition
			// site in Pos; for reporting they belong to the line the
			// invocation physically sits on. An expander-stamped Stack is
			// exactly the "came from an expansion" signal.
			physLine := classified.Pos.Line
			if et.Stack != nil || classified.Pos.Path != path {
				physLine = line.Start.Line
			}
			repLine, repFile := d.lineOverride.Apply(physLine, path)
			classified.Reported = source.Pos{Path: repFile, Line: repLine, Column: classified.Pos.Column}
			out = append(out, classified)
		}
	}
	if tok.InMultilineComment() {
		d.reporter.Report(diag.Diagnostic{Severity: diag.Error, Kind: diag.Lexical, Message: "unterminated comment", Pos: tok.CommentStart(), Stack: stack})
	}
	if d.branches.Depth() > 0 {
		d.reporter.Report(diag.Diagnostic{Severity: diag.Error, Kind: diag.DirectiveSyntax, Message: "unterminated #if at end of file", Pos: source.Pos{Path: path}, Stack: stack})
	}
	return out, nil
}

// handleDirective parses and applies one '#'-line. Its tokens are the
// pp-tokens after '#'; on #include it recurses into runFile and appends the
// included file's classified tokens directly into *out.
func (d *Driver) handleDirective(tokens []lexer.Token, pos source.Pos, physLine int, path string, stack source.Stack, expander *expand.Expander, out *[]classify.Token) error {
	skipping := d.branches.Skipping()
	kind := directive.Classify(tokens)

	// Conditional-inclusion directives are processed even while skipping
	// (they manage the BranchStack itself); every other directive is inert
	// while skipping.
	switch kind {
	case directive.If, directive.Ifdef, directive.Ifndef, directive.Elif, directive.Else, directive.Endif:
	default:
		if skipping {
			return nil
		}
	}

	dir, err := directive.Parse(tokens)
	if err != nil {
		return err
	}

	switch dir.Kind {
	case directive.Null:
		return nil

	case directive.Define:
		_, had, compatible := d.table.Define(dir.Macro)
		if had && !compatible {
			// The existing definition stays; the new one is dropped.
			d.reporter.Report(diag.Diagnostic{Severity: diag.Error, Kind: diag.MacroSemantics, Message: fmt.Sprintf("incompatible redefinition of macro %q", dir.Macro.Name), Pos: pos, Stack: stack})
		}
		return nil

	case directive.Undef:
		d.table.Undef(dir.Name)
		return nil

	case directive.If:
		cond := false
		if !skipping {
			v, err := d.evalCondition(dir.Condition, stack)
			if err != nil {
				d.reporter.Report(diag.Diagnostic{Severity: diag.Error, Kind: diag.Evaluation, Message: err.Error(), Pos: pos, Stack: stack})
			} else {
				cond = v
			}
		}
		d.branches.PushIf(cond, pos)
		return nil

	case directive.Ifdef:
		d.branches.PushIf(!skipping && d.table.Defined(dir.Name), pos)
		return nil

	case directive.Ifndef:
		d.branches.PushIf(!skipping && !d.table.Defined(dir.Name), pos)
		return nil

	case directive.Elif:
		parentSkip := d.branches.ParentSkipping()
		cond := false
		if !parentSkip {
			v, err := d.evalCondition(dir.Condition, stack)
			if err != nil {
				d.reporter.Report(diag.Diagnostic{Severity: diag.Error, Kind: diag.Evaluation, Message: err.Error(), Pos: pos, Stack: stack})
			} else {
				cond = v
			}
		}
		if !d.branches.Elif(cond, parentSkip) {
			return fmt.Errorf("#elif without matching #if")
		}
		return nil

	case directive.Else:
		d.warnExtraTokens(dir.Rest, "#else", pos, stack)
		if !d.branches.Else(d.branches.ParentSkipping()) {
			return fmt.Errorf("#else without matching #if, or after a previous #else")
		}
		return nil

	case directive.Endif:
		d.warnExtraTokens(dir.Rest, "#endif", pos, stack)
		if !d.branches.Endif() {
			return fmt.Errorf("#endif without matching #if")
		}
		return nil

	case directive.Include:
		if skipping {
			return nil
		}
		return d.handleInclude(dir, pos, path, stack, expander, out)

	case directive.Line:
		if skipping {
			return nil
		}
		// #line N without a filename keeps the filename that a previous
		// #line set; only a file change resets it.
		file := dir.LineFile
		if file == "" {
			file = d.lineOverride.File
		}
		d.lineOverride = directive.LineOverride{Active: true, ReportedLine: dir.LineNumber, PhysicalBase: physLine, File: file}
		return nil

	case directive.Error:
		d.reporter.Report(diag.Diagnostic{Severity: diag.Error, Kind: diag.DirectiveSyntax, Message: "#error " + spell(dir.Rest), Pos: pos, Stack: stack})
		return nil

	case directive.Pragma:
		return nil

	default:
		return fmt.Errorf("invalid preprocessing directive")
	}
}

// warnExtraTokens reports trailing tokens on a directive line that takes no
// operand; the rest of the line is discarded and the directive still applies.
func (d *Driver) warnExtraTokens(rest []lexer.Token, name string, pos source.Pos, stack source.Stack) {
	if len(rest) == 0 {
		return
	}
	d.reporter.Report(diag.Diagnostic{Severity: diag.Warning, Kind: diag.DirectiveSyntax, Message: fmt.Sprintf("extra tokens after %s", name), Pos: pos, Stack: stack})
}

func (d *Driver) evalCondition(tokens []lexer.Token, stack source.Stack) (bool, error) {
	v, err := expr.Eval(tokens, conditionLookup{d: d, stack: stack})
	if err != nil {
		return false, err
	}
	return v.Bits != 0, nil
}

// conditionLookup bridges expr.Lookup to the Driver's macro table and
// expander so #if/#elif expressions go through the same expansion as
// ordinary text, function-like invocations included. The condition is
// confined to its own logical line, so no fetchMore is supplied.
type conditionLookup struct {
	d     *Driver
	stack source.Stack
}

func (c conditionLookup) Defined(name string) bool { return c.d.table.Defined(name) }

func (c conditionLookup) ExpandTokens(tokens []lexer.Token) []lexer.Token {
	expander := expand.NewExpander(c.d.table, c.d.reporter)
	return expander.Expand(tokens, c.stack, nil)
}

func (d *Driver) handleInclude(dir directive.Directive, pos source.Pos, path string, stack source.Stack, expander *expand.Expander, out *[]classify.Token) error {
	spelling := dir.IncludeSpelling
	angled := dir.IncludeAngled
	if dir.IncludeMacroTokens != nil {
		expanded := expander.Expand(dir.IncludeMacroTokens, stack, nil)
		s, a, err := headerNameFromTokens(expanded)
		if err != nil {
			return err
		}
		spelling, angled = s, a
	}

	if d.includeDepth >= MaxIncludeDepth {
		d.reporter.Report(diag.Diagnostic{
			Severity: diag.Fatal, Kind: diag.Inclusion,
			Message: fmt.Sprintf("#include nested too deeply (possible include cycle involving %q)", spelling),
			Pos:     pos, Stack: stack,
		})
		return nil
	}

	fromDir := filepath.Dir(path)
	if angled {
		fromDir = ""
	}
	handle, abs, err := d.cache.Resolve(spelling, fromDir, d.opts.SearchDirs)
	if err != nil {
		// A missing header is an ordinary error; preprocessing continues so
		// later problems still surface in the same run.
		d.reporter.Report(diag.Diagnostic{Severity: diag.Error, Kind: diag.Inclusion, Message: err.Error(), Pos: pos, Stack: stack})
		return nil
	}
	return d.descendInclude(handle, abs, pos, stack, out)
}

func (d *Driver) descendInclude(handle source.Handle, abs string, pos source.Pos, stack source.Stack, out *[]classify.Token) error {
	d.includeDepth++
	defer func() { d.includeDepth-- }()

	savedOverride := d.lineOverride
	savedBranches := d.branches
	d.lineOverride = directive.LineOverride{}
	d.branches = directive.NewBranchStack()

	childStack := stack.Push(source.Frame{Kind: source.FrameInclude, Pos: pos})
	included, err := d.runFile(handle, abs, childStack)

	d.lineOverride = savedOverride
	d.branches = savedBranches
	if err != nil {
		return err
	}
	*out = append(*out, included...)
	return nil
}

func headerNameFromTokens(tokens []lexer.Token) (spelling string, angled bool, err error) {
	if len(tokens) == 1 && tokens[0].Kind == lexer.HeaderName {
		data := tokens[0].Data
		return data[1 : len(data)-1], data[0] == '<', nil
	}
	var b []byte
	for _, t := range tokens {
		b = append(b, t.Data...)
	}
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1], false, nil
	}
	if len(s) >= 2 && s[0] == '<' && s[len(s)-1] == '>' {
		return s[1 : len(s)-1], true, nil
	}
	return "", false, fmt.Errorf("#include expects \"FILENAME\" or <FILENAME>, got %q", s)
}

func spell(tokens []lexer.Token) string {
	var b []byte
	for i, t := range tokens {
		if i > 0 && t.HasWhitespace {
			b = append(b, ' ')
		}
		b = append(b, t.Data...)
	}
	return string(b)
}
