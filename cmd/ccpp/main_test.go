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

package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestPreprocessOneTokenMode(t *testing.T) {
	dir := t.TempDir()
	main := writeFile(t, dir, "main.c", "#define N 3\nint x = N;\n")

	out, hadErrors := preprocessOne(main, nil, nil, false, false)
	assert.False(t, hadErrors)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 5)
	assert.Contains(t, lines[0], "keyword")
	assert.Contains(t, lines[0], `"int"`)
	assert.Contains(t, lines[3], `"3"`)
}

func TestPreprocessOneTextMode(t *testing.T) {
	dir := t.TempDir()
	main := writeFile(t, dir, "main.c", "#define GREET \"hi\"\nsay(GREET);\nnext;\n")

	out, hadErrors := preprocessOne(main, nil, nil, false, true)
	assert.False(t, hadErrors)
	assert.Equal(t, "say(\"hi\");\nnext;\n", out)
}

func TestPreprocessOneIncludeSearch(t *testing.T) {
	dir := t.TempDir()
	sys := filepath.Join(dir, "sys")
	require.NoError(t, os.Mkdir(sys, 0o755))
	writeFile(t, sys, "dep.h", "from_dep\n")
	main := writeFile(t, dir, "main.c", "#include <dep.h>\nlocal\n")

	out, hadErrors := preprocessOne(main, []string{sys}, nil, false, true)
	assert.False(t, hadErrors)
	assert.Equal(t, "from_dep\nlocal\n", out)
}

func TestPreprocessOneReportsErrors(t *testing.T) {
	dir := t.TempDir()
	main := writeFile(t, dir, "main.c", "#error boom\n")

	out, hadErrors := preprocessOne(main, nil, nil, false, true)
	assert.True(t, hadErrors)
	assert.Contains(t, out, "#error boom")
}

func TestExpandInputs(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.c", "")
	writeFile(t, dir, "b.c", "")
	writeFile(t, dir, "ignore.h", "")

	t.Run("literal path deduplicated", func(t *testing.T) {
		got, err := expandInputs([]string{a, a})
		require.NoError(t, err)
		assert.Equal(t, []string{a}, got)
	})

	t.Run("glob", func(t *testing.T) {
		got, err := expandInputs([]string{filepath.Join(dir, "*.c")})
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})
}

func TestBuildPredefinedMacros(t *testing.T) {
	t.Run("values and flags", func(t *testing.T) {
		macros, err := buildPredefinedMacros(stringList{"A=7", "B", "C=text"}, nil, "")
		require.NoError(t, err)
		require.Len(t, macros, 3)
		assert.Equal(t, "7", macros[0].Replacement[0].Data)
		assert.Equal(t, "1", macros[1].Replacement[0].Data)
		assert.Equal(t, "text", macros[2].Replacement[0].Data)
	})

	t.Run("undef filters", func(t *testing.T) {
		macros, err := buildPredefinedMacros(stringList{"A=1", "B=2"}, stringList{"A"}, "")
		require.NoError(t, err)
		require.Len(t, macros, 1)
		assert.Equal(t, "B", macros[0].Name)
	})

	t.Run("target seeds platform macros", func(t *testing.T) {
		macros, err := buildPredefinedMacros(nil, nil, "linux/amd64")
		require.NoError(t, err)
		names := make(map[string]bool, len(macros))
		for _, m := range macros {
			names[m.Name] = true
		}
		assert.True(t, names["__linux__"])
	})

	t.Run("bad target", func(t *testing.T) {
		_, err := buildPredefinedMacros(nil, nil, "plan9")
		assert.Error(t, err)
	})
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "ccpp.yaml", "include_dirs:\n  - /usr/include\ndefines:\n  - DEBUG=1\n")

	c, err := loadConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"/usr/include"}, c.IncludeDirs)
	assert.Equal(t, []string{"DEBUG=1"}, c.Defines)

	_, err = loadConfig(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	bad := writeFile(t, dir, "bad.yaml", "include_dirs: {nope\n")
	_, err = loadConfig(bad)
	assert.Error(t, err)
}
