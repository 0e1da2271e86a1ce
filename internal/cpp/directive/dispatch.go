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

import (
	"fmt"

	"github.com/ccpp-dev/ccpp/internal/collections"
	"github.com/ccpp-dev/ccpp/internal/cpp/lexer"
	"github.com/ccpp-dev/ccpp/internal/cpp/macro"
)

// Kind identifies which directive a '#'-line spells.
type Kind int

const (
	Null Kind = iota
	Define
	Undef
	If
	Ifdef
	Ifndef
	Elif
	Else
	Endif
	Include
	Line
	Error
	Pragma
	Unknown
)

var keywordKinds = map[string]Kind{
	"define": Define, "undef": Undef, "if": If, "ifdef": Ifdef, "ifndef": Ifndef,
	"elif": Elif, "else": Else, "endif": Endif, "include": Include,
	"line": Line, "error": Error, "pragma": Pragma,
}

// Directive is a parsed '#'-line. Which fields are meaningful depends on
// Kind: e.g. only Define populates Macro, only Include populates
// IncludeSpelling/IncludeAngled.
type Directive struct {
	Kind Kind

	// Define
	Macro macro.Macro

	// Undef / Ifdef / Ifndef
	Name string

	// If / Elif
	Condition []lexer.Token

	// Include
	IncludeSpelling string
	IncludeAngled   bool
	// IncludeMacroTokens is set instead of IncludeSpelling/IncludeAngled
	// when the operand did not parse directly as a header-name and must be
	// macro-expanded and re-tokenized by the caller (C11 6.10.2p4).
	IncludeMacroTokens []lexer.Token

	// Line
	LineNumber int
	LineFile   string

	// Else / Endif / Error / Pragma / Unknown
	Rest []lexer.Token
}

// Classify identifies which directive a line spells from its first token
// (the identifier immediately after '#'). An empty/whitespace-only line
// after '#' is the null directive and always legal.
func Classify(tokens []lexer.Token) Kind {
	if len(tokens) == 0 {
		return Null
	}
	if tokens[0].Kind != lexer.Identifier {
		return Unknown
	}
	if k, ok := keywordKinds[tokens[0].Data]; ok {
		return k
	}
	return Unknown
}

// Parse interprets tokens (the directive line's tokens, NOT including the
// leading '#') into a Directive. Macro expansion of the directive's operand
// tokens (needed for #if/#elif/#include-via-macro) is the caller's
// responsibility; Parse only handles syntax.
func Parse(tokens []lexer.Token) (Directive, error) {
	kind := Classify(tokens)
	if kind == Null {
		return Directive{Kind: Null}, nil
	}
	rest := tokens[1:]

	switch kind {
	case Define:
		return parseDefine(rest)
	case Undef, Ifdef, Ifndef:
		if len(rest) == 0 || rest[0].Kind != lexer.Identifier {
			return Directive{}, fmt.Errorf("expected identifier after #%s", tokens[0].Data)
		}
		return Directive{Kind: kind, Name: rest[0].Data}, nil
	case If, Elif:
		if len(rest) == 0 {
			return Directive{}, fmt.Errorf("#%s with no expression", tokens[0].Data)
		}
		return Directive{Kind: kind, Condition: rest}, nil
	case Else, Endif:
		// Extra tokens are kept so the caller can warn about them; the
		// directive still takes effect either way.
		return Directive{Kind: kind, Rest: rest}, nil
	case Include:
		return parseInclude(rest)
	case Line:
		return parseLine(rest)
	case Error, Pragma:
		return Directive{Kind: kind, Rest: rest}, nil
	default:
		return Directive{Kind: Unknown, Rest: tokens}, nil
	}
}

func parseDefine(rest []lexer.Token) (Directive, error) {
	if len(rest) == 0 || rest[0].Kind != lexer.Identifier {
		return Directive{}, fmt.Errorf("macro names must be identifiers")
	}
	name := rest[0].Data
	m := macro.Macro{Name: name}

	if len(rest) > 1 && rest[1].Kind == lexer.LParen && !rest[0].HasWhitespace {
		// Function-like: '(' immediately follows the name, no space.
		m.IsFunction = true
		i := 2
		for i < len(rest) && rest[i].Kind != lexer.RParen {
			switch rest[i].Kind {
			case lexer.Identifier:
				if m.Variadic {
					return Directive{}, fmt.Errorf("parameter after '...' in #define %s", name)
				}
				m.Params = append(m.Params, rest[i].Data)
				i++
			case lexer.Ellipsis:
				// The three dots must already be one token: '. . .' lexes
				// as three Dot tokens and is rejected below.
				m.Variadic = true
				i++
			case lexer.Comma:
				i++
			default:
				return Directive{}, fmt.Errorf("malformed parameter list in #define %s", name)
			}
		}
		if i >= len(rest) {
			return Directive{}, fmt.Errorf("missing ')' in macro parameter list for %s", name)
		}
		if dups := collections.FindDuplicates(m.Params); len(dups) > 0 {
			return Directive{}, fmt.Errorf("duplicate macro parameter %q in #define %s", dups[0], name)
		}
		i++ // consume ')'
		m.Replacement = rest[i:]
	} else {
		m.Replacement = rest[1:]
	}
	if err := validateReplacement(m); err != nil {
		return Directive{}, err
	}
	return Directive{Kind: Define, Macro: m}, nil
}

// validateReplacement enforces the structural constraints on a replacement
// list (C11 6.10.3.2p1, 6.10.3.3p1): '##' cannot begin or end it, every '#'
// in a function-like macro must name a parameter, and __VA_ARGS__ only
// appears in variadic macros.
func validateReplacement(m macro.Macro) error {
	repl := m.Replacement
	if len(repl) > 0 {
		if repl[0].Kind == lexer.HashHash {
			return fmt.Errorf("'##' cannot appear at the start of the replacement list of %s", m.Name)
		}
		if repl[len(repl)-1].Kind == lexer.HashHash {
			return fmt.Errorf("'##' cannot appear at the end of the replacement list of %s", m.Name)
		}
	}
	params := collections.ToSet(m.Params)
	for i, t := range repl {
		if t.Kind == lexer.Identifier && t.Data == "__VA_ARGS__" && !m.Variadic {
			return fmt.Errorf("__VA_ARGS__ used in non-variadic macro %s", m.Name)
		}
		if t.Kind == lexer.Hash && m.IsFunction {
			if i+1 >= len(repl) || repl[i+1].Kind != lexer.Identifier {
				return fmt.Errorf("'#' is not followed by a macro parameter in %s", m.Name)
			}
			next := repl[i+1].Data
			if !params.Contains(next) && !(m.Variadic && next == "__VA_ARGS__") {
				return fmt.Errorf("'#' is not followed by a macro parameter in %s", m.Name)
			}
		}
	}
	return nil
}

func parseInclude(rest []lexer.Token) (Directive, error) {
	if len(rest) == 1 && rest[0].Kind == lexer.HeaderName {
		data := rest[0].Data
		if len(data) >= 2 && data[0] == '"' {
			return Directive{Kind: Include, IncludeSpelling: data[1 : len(data)-1], IncludeAngled: false}, nil
		}
		if len(data) >= 2 && data[0] == '<' {
			return Directive{Kind: Include, IncludeSpelling: data[1 : len(data)-1], IncludeAngled: true}, nil
		}
	}
	if len(rest) == 0 {
		return Directive{}, fmt.Errorf("#include expects \"FILENAME\" or <FILENAME>")
	}
	return Directive{Kind: Include, IncludeMacroTokens: rest}, nil
}

func parseLine(rest []lexer.Token) (Directive, error) {
	if len(rest) == 0 || rest[0].Kind != lexer.Number {
		return Directive{}, fmt.Errorf("#line expects a line number")
	}
	n := 0
	for _, c := range rest[0].Data {
		if c < '0' || c > '9' {
			return Directive{}, fmt.Errorf("#line number must be digits")
		}
		n = n*10 + int(c-'0')
	}
	d := Directive{Kind: Line, LineNumber: n}
	if len(rest) > 1 {
		if rest[1].Kind != lexer.StringLiteral {
			return Directive{}, fmt.Errorf("#line filename must be a string literal")
		}
		data := rest[1].Data
		d.LineFile = data[1 : len(data)-1]
	}
	return d, nil
}
