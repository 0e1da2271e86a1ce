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

package macro

import "github.com/ccpp-dev/ccpp/internal/cpp/lexer"

// Args is one function-like macro invocation's arguments, split on
// top-level commas (commas nested inside parentheses do not separate
// arguments, C11 6.10.3p11). The variadic trailing arguments, if any, are
// held in Variadic rather than in Positional.
type Args struct {
	Positional  [][]lexer.Token
	Variadic    []lexer.Token
	HasVariadic bool
}

// SplitArgs scans tokens strictly between a macro invocation's outer
// parentheses (parens already stripped by the caller) into top-level
// comma-separated argument slices. An invocation with zero arguments between
// empty parens, e.g. F(), yields a single empty argument, matching 6.10.3p4's
// "if there is one argument and it consists of no preprocessing tokens"
// special case rather than zero arguments.
func SplitArgs(tokens []lexer.Token) [][]lexer.Token {
	if len(tokens) == 0 {
		return [][]lexer.Token{{}}
	}
	var args [][]lexer.Token
	depth := 0
	start := 0
	for i, tok := range tokens {
		switch tok.Kind {
		case lexer.LParen:
			depth++
		case lexer.RParen:
			depth--
		case lexer.Comma:
			if depth == 0 {
				args = append(args, tokens[start:i])
				start = i + 1
			}
		}
	}
	args = append(args, tokens[start:])
	return args
}

// Bind matches a call's split argument list against a macro's formal
// parameters, folding any trailing arguments into __VA_ARGS__ for a
// variadic macro. ok is false on arity mismatch.
//
// SplitArgs cannot distinguish F() from a one-empty-argument call, so the
// single-empty-argument split binds to a macro declared with zero
// parameters as zero arguments (6.10.3p4).
func Bind(m Macro, split [][]lexer.Token) (Args, bool) {
	if len(m.Params) == 0 && len(split) == 1 && len(split[0]) == 0 {
		split = nil
	}
	if !m.Variadic {
		if len(split) != len(m.Params) {
			return Args{}, false
		}
		return Args{Positional: split}, true
	}

	fixed := len(m.Params)
	if len(split) < fixed {
		return Args{}, false
	}
	a := Args{Positional: split[:fixed]}
	if len(split) > fixed {
		var variadic []lexer.Token
		for i := fixed; i < len(split); i++ {
			if i > fixed {
				variadic = append(variadic, lexer.Token{Kind: lexer.Comma, Data: ","})
			}
			variadic = append(variadic, split[i]...)
		}
		a.Variadic = variadic
		a.HasVariadic = true
	}
	return a, true
}
