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

// punctuators is tried longest-spelling-first so maximal munch falls out of
// a simple linear scan over the full C11 punctuator set.
var punctuators = []struct {
	spelling string
	kind     Kind
}{
	{"...", Ellipsis}, {"<<=", ShlEq}, {">>=", ShrEq}, {"%:%:", HashHash},
	{"->", Arrow}, {"++", Incr}, {"--", Decr}, {"<<", Shl}, {">>", Shr},
	{"<=", Le}, {">=", Ge}, {"==", EqEq}, {"!=", NotEq}, {"&&", AmpAmp}, {"||", PipePipe},
	{"*=", StarEq}, {"/=", SlashEq}, {"%=", PercentEq}, {"+=", PlusEq}, {"-=", MinusEq},
	{"&=", AmpEq}, {"^=", CaretEq}, {"|=", PipeEq}, {"##", HashHash},
	{"<:", LBracket}, {":>", RBracket}, {"<%", LBrace}, {"%>", RBrace}, {"%:", Hash},
	{"[", LBracket}, {"]", RBracket}, {"(", LParen}, {")", RParen}, {"{", LBrace}, {"}", RBrace},
	{".", Dot}, {"&", Amp}, {"*", Star}, {"+", Plus}, {"-", Minus}, {"~", Tilde}, {"!", Bang},
	{"/", Slash}, {"%", Percent}, {"<", Lt}, {">", Gt}, {"^", Caret}, {"|", Pipe},
	{"?", Question}, {":", Colon}, {";", Semi}, {"=", Assign}, {",", Comma}, {"#", Hash},
}

func isIdentStart(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
func isIdentCont(b byte) bool { return isIdentStart(b) || (b >= '0' && b <= '9') }
func isDigit(b byte) bool     { return b >= '0' && b <= '9' }

var literalPrefixes = []string{"u8", "u", "U", "L"}

// Tokenizer converts logical lines (already trigraph- and splice-folded by
// Normalizer) into pp-tokens. It carries exactly two pieces of state across
// calls: whether a /* */ comment is still open, and where it started (for
// the unterminated-comment diagnostic).
type Tokenizer struct {
	reporter     diag.Sink
	inComment    bool
	commentStart Pos
}

func NewTokenizer(reporter diag.Sink) *Tokenizer {
	return &Tokenizer{reporter: reporter}
}

// InMultilineComment reports whether the most recent call to Tokenize ended
// while still inside an unterminated /* comment, matching the
// in_multiline_comment state the tokenizer resumes with on the next line.
func (t *Tokenizer) InMultilineComment() bool { return t.inComment }

// CommentStart is the position of the '/*' that opened the still-unclosed
// comment; only meaningful while InMultilineComment reports true.
func (t *Tokenizer) CommentStart() Pos { return t.commentStart }

// Tokenize scans one logical line into pp-tokens.
func (t *Tokenizer) Tokenize(line Line) []Token {
	text := line.Text
	cur := Cursor{Line: line.Start.Line, Column: line.Start.Column}
	path := line.Start.Path

	var tokens []Token
	i := 0

	markWhitespace := func() {
		if n := len(tokens); n > 0 {
			tokens[n-1].HasWhitespace = true
		}
	}
	advance := func(n int) {
		cur = cur.AdvancedBy(text[i : i+n])
		i += n
	}
	// emit is called before advance, so cur still points at the token start.
	emit := func(kind Kind, start int, end int) {
		tokens = append(tokens, Token{
			Kind: kind,
			Data: text[start:end],
			Pos:  Pos{Path: path, Line: cur.Line, Column: cur.Column},
		})
	}

	// Header-name latch: becomes true once we see '#' then 'include' as the
	// first two non-whitespace tokens of the line; consumed by the very
	// next non-whitespace token regardless of whether it matches.
	latch := false

	if t.inComment {
		if end := strings.Index(text, "*/"); end >= 0 {
			advance(end + 2)
			t.inComment = false
		} else {
			// whole line remains inside the comment
			return nil
		}
	}

	for i < len(text) {
		b := text[i]

		switch {
		case b == ' ', b == '\t', b == '\v', b == '\f':
			j := i
			for j < len(text) && (text[j] == ' ' || text[j] == '\t' || text[j] == '\v' || text[j] == '\f') {
				j++
			}
			markWhitespace()
			advance(j - i)

		case strings.HasPrefix(text[i:], "//"):
			markWhitespace()
			advance(len(text) - i)

		case strings.HasPrefix(text[i:], "/*"):
			markWhitespace()
			if end := strings.Index(text[i+2:], "*/"); end >= 0 {
				advance(2 + end + 2)
			} else {
				t.inComment = true
				t.commentStart = Pos{Path: path, Line: cur.Line, Column: cur.Column}
				return tokens
			}

		case latch && (b == '"' || b == '<'):
			closer := byte('"')
			if b == '<' {
				closer = '>'
			}
			j := i + 1
			for j < len(text) && text[j] != closer {
				j++
			}
			if j >= len(text) {
				t.reporter.Report(diag.Diagnostic{
					Severity: diag.Warning, Kind: diag.Lexical,
					Message: "unterminated header-name", Pos: Pos{Path: path, Line: cur.Line, Column: cur.Column},
				})
				emit(Other, i, len(text))
				advance(len(text) - i)
			} else {
				emit(HeaderName, i, j+1)
				advance(j + 1 - i)
			}
			latch = false

		case isPrefixedLiteralStart(text, i):
			prefixLen, quote := prefixedLiteralInfo(text, i)
			end, ok := t.scanLiteral(text, i+prefixLen, quote)
			kind := StringLiteral
			if quote == '\'' {
				kind = CharConst
			}
			if !ok {
				t.reporter.Report(diag.Diagnostic{
					Severity: diag.Warning, Kind: diag.Lexical,
					Message: "unterminated " + kind.String(), Pos: Pos{Path: path, Line: cur.Line, Column: cur.Column},
				})
			}
			emit(kind, i, end)
			advance(end - i)
			latch = false

		case b == '"' || b == '\'':
			kind := StringLiteral
			if b == '\'' {
				kind = CharConst
			}
			end, ok := t.scanLiteral(text, i, b)
			if !ok {
				t.reporter.Report(diag.Diagnostic{
					Severity: diag.Warning, Kind: diag.Lexical,
					Message: "unterminated " + kind.String(), Pos: Pos{Path: path, Line: cur.Line, Column: cur.Column},
				})
			}
			emit(kind, i, end)
			advance(end - i)
			latch = false

		case isDigit(b) || (b == '.' && i+1 < len(text) && isDigit(text[i+1])):
			end := scanPpNumber(text, i)
			emit(Number, i, end)
			advance(end - i)
			latch = false

		case isIdentStart(b):
			j := i + 1
			for j < len(text) && isIdentCont(text[j]) {
				j++
			}
			emit(Identifier, i, j)
			advance(j - i)

			last := tokens[len(tokens)-1]
			if len(tokens) == 2 && tokens[0].Kind == Hash && last.Data == "include" {
				latch = true
			} else {
				latch = false
			}

		default:
			matched := false
			for _, p := range punctuators {
				if strings.HasPrefix(text[i:], p.spelling) {
					emit(p.kind, i, i+len(p.spelling))
					advance(len(p.spelling))
					matched = true
					latch = false
					break
				}
			}
			if !matched {
				emit(Other, i, i+1)
				advance(1)
				latch = false
			}
		}
	}

	return tokens
}

func isPrefixedLiteralStart(text string, i int) bool {
	_, _, ok := matchLiteralPrefix(text, i)
	return ok
}

func prefixedLiteralInfo(text string, i int) (prefixLen int, quote byte) {
	prefixLen, quote, _ = matchLiteralPrefix(text, i)
	return
}

func matchLiteralPrefix(text string, i int) (int, byte, bool) {
	for _, p := range literalPrefixes {
		if strings.HasPrefix(text[i:], p) {
			after := i + len(p)
			if after < len(text) && (text[after] == '"' || text[after] == '\'') {
				return len(p), text[after], true
			}
		}
	}
	return 0, 0, false
}

// scanLiteral scans a string/char literal starting at the opening quote
// (index i) up to and including its closing quote. end==len(text) with
// ok==false means the literal ran off the end of the logical line.
func (t *Tokenizer) scanLiteral(text string, i int, quote byte) (end int, ok bool) {
	j := i + 1
	for j < len(text) {
		if text[j] == '\\' && j+1 < len(text) {
			j += 2
			continue
		}
		if text[j] == quote {
			return j + 1, true
		}
		j++
	}
	return len(text), false
}

// scanPpNumber implements the permissive pp-number grammar (6.4.8):
// classification into int/float/suffix is left to a later consumer.
func scanPpNumber(text string, i int) int {
	j := i + 1
	for j < len(text) {
		c := text[j]
		// The exponent check must run before the identifier-character one:
		// 'e' alone is an identifier character, but "e+" / "p-" must pull
		// the sign into the pp-number as well.
		if (c == 'e' || c == 'E' || c == 'p' || c == 'P') && j+1 < len(text) && (text[j+1] == '+' || text[j+1] == '-') {
			j += 2
			continue
		}
		if isIdentCont(c) || c == '.' {
			j++
			continue
		}
		break
	}
	return j
}
