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

// Package classify performs the final step of the token pipeline: turning
// a fully macro-expanded pp-token into a Token tagged with its
// keyword/identifier/punctuator/literal classification (C11 6.4.1's
// keyword list and 6.4.6's digraph equivalence).
package classify

import (
	"fmt"

	"github.com/ccpp-dev/ccpp/internal/collections"
	"github.com/ccpp-dev/ccpp/internal/cpp/diag"
	"github.com/ccpp-dev/ccpp/internal/cpp/lexer"
	"github.com/ccpp-dev/ccpp/internal/cpp/source"
)

// Class is the final classification attached to each Token.
type Class int

const (
	ClassIdentifier Class = iota
	ClassKeyword
	ClassNumber
	ClassCharConst
	ClassStringLiteral
	ClassPunctuator
	ClassOther
)

func (c Class) String() string {
	switch c {
	case ClassIdentifier:
		return "identifier"
	case ClassKeyword:
		return "keyword"
	case ClassNumber:
		return "number"
	case ClassCharConst:
		return "char-const"
	case ClassStringLiteral:
		return "string-literal"
	case ClassPunctuator:
		return "punctuator"
	default:
		return "other"
	}
}

// keywords is the complete C11 reserved-word list (6.4.1p1).
var keywords = collections.SetOf(
	"auto", "break", "case", "char", "const", "continue", "default", "do",
	"double", "else", "enum", "extern", "float", "for", "goto", "if",
	"inline", "int", "long", "register", "restrict", "return", "short",
	"signed", "sizeof", "static", "struct", "switch", "typedef", "union",
	"unsigned", "void", "volatile", "while",
	"_Alignas", "_Alignof", "_Atomic", "_Bool", "_Complex", "_Generic",
	"_Imaginary", "_Noreturn", "_Static_assert", "_Thread_local",
)

// Token is the classified, final-form token this package produces from a
// lexer.Token. Spelling is normalized for digraphs (Data keeps what was
// actually typed; Spelling is the canonical punctuator text).
type Token struct {
	Class    Class
	Spelling string
	Data     string
	// Pos is the token's true location in original source coordinates.
	Pos lexer.Pos
	// Reported is Pos with any active #line override applied; it is what
	// diagnostics and __FILE__/__LINE__-style consumers should print. The
	// driver fills it in after classification.
	Reported lexer.Pos
	// Stack is the provenance snapshot (file, include sites, macro
	// expansions) active when the token was emitted, oldest frame first.
	Stack source.Stack
	// HasWhitespace mirrors the pp-token flag: whitespace followed this
	// token in the source (or in the expansion that produced it).
	HasWhitespace bool
}

// Classify converts one fully-expanded pp-token. It is an internal error —
// not a user diagnostic — for a HeaderName, bare Hash/HashHash outside
// directive processing, Placemarker, or ConcatDoubleHash to reach this
// stage: those kinds only ever exist before/during directive handling and
// macro expansion and must have been consumed earlier in the pipeline.
func Classify(t lexer.Token, reporter diag.Sink) (Token, error) {
	switch t.Kind {
	case lexer.Placemarker:
		err := internalErr(t, "placemarker token reached the classifier", reporter)
		return Token{}, err
	case lexer.HeaderName:
		err := internalErr(t, "header-name token reached the classifier outside #include processing", reporter)
		return Token{}, err
	case lexer.ConcatDoubleHash:
		err := internalErr(t, "non-operator '##' token reached the classifier", reporter)
		return Token{}, err
	case lexer.Hash, lexer.HashHash:
		err := internalErr(t, fmt.Sprintf("%q token reached the classifier outside directive processing", t.Data), reporter)
		return Token{}, err
	case lexer.Other:
		err := internalErr(t, fmt.Sprintf("unclassifiable byte %q reached the classifier", t.Data), reporter)
		return Token{}, err
	case lexer.Identifier:
		if keywords.Contains(t.Data) {
			return finalToken(ClassKeyword, t.Data, t), nil
		}
		return finalToken(ClassIdentifier, t.Data, t), nil
	case lexer.Number:
		return finalToken(ClassNumber, t.Data, t), nil
	case lexer.CharConst:
		return finalToken(ClassCharConst, t.Data, t), nil
	case lexer.StringLiteral:
		return finalToken(ClassStringLiteral, t.Data, t), nil
	default:
		if t.Kind.IsPunctuator() {
			return finalToken(ClassPunctuator, t.Kind.String(), t), nil
		}
		return Token{}, internalErr(t, fmt.Sprintf("unclassifiable token kind %v", t.Kind), reporter)
	}
}

func finalToken(class Class, spelling string, t lexer.Token) Token {
	return Token{
		Class:         class,
		Spelling:      spelling,
		Data:          t.Data,
		Pos:           t.Pos,
		Stack:         t.Stack,
		HasWhitespace: t.HasWhitespace,
	}
}

func internalErr(t lexer.Token, msg string, reporter diag.Sink) error {
	d := diag.Diagnostic{Severity: diag.Fatal, Kind: diag.Internal, Message: msg, Pos: t.Pos}
	if reporter != nil {
		reporter.Report(d)
	}
	return fmt.Errorf("%s", msg)
}
