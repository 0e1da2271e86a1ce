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

package preprocessor

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ccpp-dev/ccpp/internal/cpp/classify"
	"github.com/ccpp-dev/ccpp/internal/cpp/diag"
	"github.com/ccpp-dev/ccpp/internal/cpp/lexer"
	"github.com/ccpp-dev/ccpp/internal/cpp/macro"
	"github.com/ccpp-dev/ccpp/internal/cpp/source"
)

// memFS is an in-memory FileSystem keyed by absolute paths.
type memFS map[string]string

func (m memFS) ReadFile(absPath string) ([]byte, error) {
	content, ok := m[absPath]
	if !ok {
		return nil, fmt.Errorf("no such file: %s", absPath)
	}
	return []byte(content), nil
}

func (m memFS) Resolve(spelling string, fromDir string, searchDirs []string) (string, bool) {
	candidates := make([]string, 0, 1+len(searchDirs))
	if fromDir != "" {
		candidates = append(candidates, filepath.Join(fromDir, spelling))
	}
	for _, dir := range searchDirs {
		candidates = append(candidates, filepath.Join(dir, spelling))
	}
	for _, c := range candidates {
		if _, ok := m[c]; ok {
			return c, true
		}
	}
	return "", false
}

func runMain(t *testing.T, fs memFS, opts Options) ([]classify.Token, *diag.Collector) {
	t.Helper()
	driver, collector := New(fs, opts)
	tokens, err := driver.Run("/src/main.c")
	require.NoError(t, err)
	return tokens, collector
}

func datasOf(tokens []classify.Token) []string {
	out := make([]string, len(tokens))
	for i, tok := range tokens {
		out[i] = tok.Data
	}
	return out
}

func TestPreprocess(t *testing.T) {
	testCases := []struct {
		name       string
		main       string
		expected   []string
		wantErrors bool
	}{
		{
			name:     "object-like substitution with rescan",
			main:     "#define A B\n#define B 42\nA\n",
			expected: []string{"42"},
		},
		{
			name:     "stringify and concat",
			main:     "#define S(x) #x\n#define C(a,b) a##b\nS(hello world) C(foo, 42)\n",
			expected: []string{`"hello world"`, "foo42"},
		},
		{
			name:     "self-reference blocked",
			main:     "#define X X + 1\nX\n",
			expected: []string{"X", "+", "1"},
		},
		{
			name:     "variadic",
			main:     "#define LOG(fmt, ...) printf(fmt, __VA_ARGS__)\nLOG(\"%d %d\", 1, 2)\n",
			expected: []string{"printf", "(", `"%d %d"`, ",", "1", ",", "2", ")"},
		},
		{
			name:     "conditional with elif",
			main:     "#define V 2\n#if V==1\nA\n#elif V==2\nB\n#else\nC\n#endif\n",
			expected: []string{"B"},
		},
		{
			name:     "placemarkers from empty arguments",
			main:     "#define P(x,y) x##y\nP(foo,) P(,bar) P(,)\n",
			expected: []string{"foo", "bar"},
		},
		{
			name:     "ifdef and ifndef",
			main:     "#define YES\n#ifdef YES\na\n#endif\n#ifndef YES\nb\n#endif\n#ifdef NO\nc\n#endif\n",
			expected: []string{"a"},
		},
		{
			name:     "undef then redefine is clean",
			main:     "#define X 1\n#undef X\n#define X 2\nX\n",
			expected: []string{"2"},
		},
		{
			name:       "incompatible redefinition keeps the old definition",
			main:       "#define X 1\n#define X 2\nX\n",
			expected:   []string{"1"},
			wantErrors: true,
		},
		{
			name:     "compatible redefinition is silent",
			main:     "#define X a + b\n#define X a + b\nX\n",
			expected: []string{"a", "+", "b"},
		},
		{
			name:     "skipped region ignores non-conditional directives",
			main:     "#if 0\n#define X 1\n#error never reached\n#include \"missing.h\"\n#endif\nX\n",
			expected: []string{"X"},
		},
		{
			name:     "nested conditionals counted while skipping",
			main:     "#if 0\n#if 1\na\n#endif\nb\n#endif\nc\n",
			expected: []string{"c"},
		},
		{
			name:     "skipped branch division by zero is not evaluated",
			main:     "#define D 0\n#if D != 0 && 10 / D > 1\na\n#endif\nb\n",
			expected: []string{"b"},
		},
		{
			name:     "function-like macro in condition",
			main:     "#define INC(x) ((x) + 1)\n#if INC(1) == 2\nyes\n#else\nno\n#endif\n",
			expected: []string{"yes"},
		},
		{
			name:     "defined guards a function-like invocation",
			main:     "#define MAX(a,b) ((a) > (b) ? (a) : (b))\n#if defined(MAX) && MAX(3, 5) == 5\nyes\n#endif\n",
			expected: []string{"yes"},
		},
		{
			name:     "function-like name without invocation is zero",
			main:     "#define F(x) x\n#if F\na\n#else\nb\n#endif\n",
			expected: []string{"b"},
		},
		{
			name:     "function-like macro call spanning lines",
			main:     "#define JOIN(a,b) a b\nJOIN(1,\n2)\n",
			expected: []string{"1", "2"},
		},
		{
			name:     "spliced directive",
			main:     "#define MANY \\\n 7\nMANY\n",
			expected: []string{"7"},
		},
		{
			name:       "error directive reports",
			main:       "#error unsupported platform\nafter\n",
			expected:   []string{"after"},
			wantErrors: true,
		},
		{
			name:     "pragma ignored",
			main:     "#pragma once\nx\n",
			expected: []string{"x"},
		},
		{
			name:       "unknown directive is an error",
			main:       "#frobnicate\nx\n",
			expected:   []string{"x"},
			wantErrors: true,
		},
		{
			name:       "unterminated conditional reported",
			main:       "#if 1\nx\n",
			expected:   []string{"x"},
			wantErrors: true,
		},
		{
			name:       "stray punctuation reported",
			main:       "a @ b\n",
			expected:   []string{"a", "b"},
			wantErrors: true,
		},
		{
			name:     "comment spanning logical lines",
			main:     "a /* one\ntwo\nthree */ b\n",
			expected: []string{"a", "b"},
		},
		{
			name:       "unterminated comment at end of file",
			main:       "a /* never closed\n",
			expected:   []string{"a"},
			wantErrors: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tokens, collector := runMain(t, memFS{"/src/main.c": tc.main}, Options{})
			assert.Equal(t, tc.expected, datasOf(tokens))
			assert.Equal(t, tc.wantErrors, collector.HasErrors(), "diagnostics: %v", collector.Diagnostics)
		})
	}
}

func TestPreprocessIfdefMatchesIfDefined(t *testing.T) {
	for _, defined := range []bool{true, false} {
		prelude := ""
		if defined {
			prelude = "#define X\n"
		}
		a, _ := runMain(t, memFS{"/src/main.c": prelude + "#ifdef X\nyes\n#endif\n"}, Options{})
		b, _ := runMain(t, memFS{"/src/main.c": prelude + "#if defined(X)\nyes\n#endif\n"}, Options{})
		assert.Equal(t, datasOf(a), datasOf(b), "defined=%v", defined)
	}
}

func TestPreprocessInclude(t *testing.T) {
	fs := memFS{
		"/src/main.c":     "#include \"h.h\"\nafter\n",
		"/src/h.h":        "inside\n",
		"/sys/angle.h":    "sys_token\n",
		"/src/angleuse.c": "#include <angle.h>\nx\n",
	}

	t.Run("quote form relative to including file", func(t *testing.T) {
		tokens, collector := runMain(t, fs, Options{})
		assert.Equal(t, []string{"inside", "after"}, datasOf(tokens))
		assert.False(t, collector.HasErrors())

		// The included token carries an Include frame; the one after does not.
		require.Equal(t, 2, tokens[0].Stack.Depth())
		assert.Equal(t, source.FrameInclude, tokens[0].Stack[1].Kind)
		assert.Equal(t, 1, tokens[1].Stack.Depth())
	})

	t.Run("angle form searches the system list", func(t *testing.T) {
		driver, collector := New(fs, Options{SearchDirs: []string{"/sys"}})
		tokens, err := driver.Run("/src/angleuse.c")
		require.NoError(t, err)
		assert.Equal(t, []string{"sys_token", "x"}, datasOf(tokens))
		assert.False(t, collector.HasErrors())
	})

	t.Run("not found is a non-fatal error", func(t *testing.T) {
		tokens, collector := runMain(t, memFS{"/src/main.c": "#include \"nope.h\"\nx\n"}, Options{})
		assert.Equal(t, []string{"x"}, datasOf(tokens))
		assert.True(t, collector.HasErrors())
		assert.False(t, collector.Fatal())
	})

	t.Run("computed include via macro", func(t *testing.T) {
		computed := memFS{
			"/src/main.c": "#define HDR \"h.h\"\n#include HDR\nafter\n",
			"/src/h.h":    "inside\n",
		}
		tokens, collector := runMain(t, computed, Options{})
		assert.Equal(t, []string{"inside", "after"}, datasOf(tokens))
		assert.False(t, collector.HasErrors())
	})

	t.Run("include cycle hits the depth cap", func(t *testing.T) {
		cyclic := memFS{
			"/src/main.c": "#include \"loop.h\"\n",
			"/src/loop.h": "#include \"loop.h\"\n",
		}
		_, collector := runMain(t, cyclic, Options{})
		assert.True(t, collector.Fatal())
		var sawDepth bool
		for _, d := range collector.Diagnostics {
			if strings.Contains(d.Message, "nested too deeply") {
				sawDepth = true
			}
		}
		assert.True(t, sawDepth)
	})
}

func TestPreprocessLineOverride(t *testing.T) {
	fs := memFS{
		"/src/main.c": "#include \"h.h\"\nafter\n",
		"/src/h.h":    "#line 100 \"virtual\"\nvhere\n",
	}
	tokens, collector := runMain(t, fs, Options{})
	require.Equal(t, []string{"vhere", "after"}, datasOf(tokens))
	assert.False(t, collector.HasErrors())

	assert.Equal(t, "virtual", tokens[0].Reported.Path)
	assert.Equal(t, 100, tokens[0].Reported.Line)

	// The override dies with the included file.
	assert.Equal(t, "/src/main.c", tokens[1].Reported.Path)
	assert.Equal(t, 2, tokens[1].Reported.Line)
}

func TestPreprocessLineOverrideCounting(t *testing.T) {
	main := "#line 10\none\ntwo\n#line 50 \"gen.c\"\nthree\n"
	tokens, _ := runMain(t, memFS{"/src/main.c": main}, Options{})
	require.Len(t, tokens, 3)
	assert.Equal(t, 10, tokens[0].Reported.Line)
	assert.Equal(t, 11, tokens[1].Reported.Line)
	assert.Equal(t, "/src/main.c", tokens[0].Reported.Path)
	assert.Equal(t, 50, tokens[2].Reported.Line)
	assert.Equal(t, "gen.c", tokens[2].Reported.Path)
}

func TestPreprocessPredefinedMacros(t *testing.T) {
	opts := Options{PredefinedMacros: []macro.Macro{{
		Name:        "VERSION",
		Replacement: []lexer.Token{{Kind: lexer.Number, Data: "3"}},
	}}}
	tokens, collector := runMain(t, memFS{"/src/main.c": "VERSION\n#undef VERSION\nVERSION\n"}, opts)
	assert.Equal(t, []string{"3", "VERSION"}, datasOf(tokens))
	assert.False(t, collector.HasErrors())
}

func TestPreprocessKeywordClassification(t *testing.T) {
	tokens, _ := runMain(t, memFS{"/src/main.c": "while (x) return;\n"}, Options{})
	require.Len(t, tokens, 6)
	assert.Equal(t, classify.ClassKeyword, tokens[0].Class)
	assert.Equal(t, classify.ClassPunctuator, tokens[1].Class)
	assert.Equal(t, classify.ClassIdentifier, tokens[2].Class)
	assert.Equal(t, classify.ClassKeyword, tokens[4].Class)
}

func TestPreprocessMacroProvenanceOnTokens(t *testing.T) {
	tokens, _ := runMain(t, memFS{"/src/main.c": "#define TWO 2\nTWO\n"}, Options{})
	require.Len(t, tokens, 1)
	require.NotNil(t, tokens[0].Stack)
	assert.True(t, tokens[0].Stack.Contains("TWO"))
	assert.Equal(t, source.FrameFile, tokens[0].Stack[0].Kind)
}

func TestPreprocessWerror(t *testing.T) {
	// A bare backslash at EOF is normally a warning; -Werror promotes it.
	main := "x\\"
	_, collector := runMain(t, memFS{"/src/main.c": main}, Options{})
	assert.False(t, collector.HasErrors())

	_, collector = runMain(t, memFS{"/src/main.c": main}, Options{PromoteWarnings: true})
	assert.True(t, collector.HasErrors())
}

func TestPreprocessRetokenizationRoundTrip(t *testing.T) {
	// Emitting the token stream as text and re-preprocessing it yields the
	// same spellings (idempotence within phase-3 semantics).
	main := "#define M(x) x + 1\nM(2) * 3; \"lit\" 'c' arr[i] a->b\n"
	first, collector := runMain(t, memFS{"/src/main.c": main}, Options{})
	require.False(t, collector.HasErrors())

	var b strings.Builder
	for i, tok := range first {
		if i > 0 && first[i-1].HasWhitespace {
			b.WriteByte(' ')
		}
		b.WriteString(tok.Data)
	}
	second, collector := runMain(t, memFS{"/src/main.c": b.String() + "\n"}, Options{})
	require.False(t, collector.HasErrors())
	assert.Equal(t, datasOf(first), datasOf(second))
}
