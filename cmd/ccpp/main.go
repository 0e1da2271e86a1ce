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

// Command ccpp preprocesses one or more C translation units, printing the
// classified preprocessing token stream (or, with -E, reconstructed text)
// for each.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/ccpp-dev/ccpp/internal/collections"
	"github.com/ccpp-dev/ccpp/internal/cpp/classify"
	"github.com/ccpp-dev/ccpp/internal/cpp/diag"
	"github.com/ccpp-dev/ccpp/internal/cpp/lexer"
	"github.com/ccpp-dev/ccpp/internal/cpp/macro"
	"github.com/ccpp-dev/ccpp/internal/cpp/platform"
	"github.com/ccpp-dev/ccpp/internal/cpp/preprocessor"
	"github.com/ccpp-dev/ccpp/internal/cpp/source"
)

// config is the optional -config YAML file shape, letting a project pin its
// include path and predefined macros instead of repeating long -I/-D lists.
type config struct {
	IncludeDirs []string `yaml:"include_dirs"`
	Defines     []string `yaml:"defines"`
}

type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }
func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("ccpp", flag.ContinueOnError)
	var includeDirs, defines, undefs stringList
	fs.Var(&includeDirs, "I", "add a directory to the #include search path (repeatable)")
	fs.Var(&defines, "D", "predefine a macro, NAME or NAME=VALUE (repeatable)")
	fs.Var(&undefs, "U", "remove a predefined macro (repeatable)")
	target := fs.String("target", "", "target platform (os/arch) whose predefined macros to seed, e.g. linux/amd64")
	configPath := fs.String("config", "", "YAML file with include_dirs/defines, merged before -I/-D")
	warningsAsErrors := fs.Bool("Werror", false, "treat warnings as errors")
	emitText := fs.Bool("E", false, "emit reconstructed text instead of one token per line")
	jobs := fs.Int("j", 4, "maximum translation units to preprocess concurrently")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *configPath != "" {
		cfg, err := loadConfig(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "ccpp:", err)
			return 2
		}
		includeDirs = append(append(stringList{}, cfg.IncludeDirs...), includeDirs...)
		defines = append(append(stringList{}, cfg.Defines...), defines...)
	}

	inputs, err := expandInputs(fs.Args())
	if err != nil {
		fmt.Fprintln(os.Stderr, "ccpp:", err)
		return 2
	}
	if len(inputs) == 0 {
		fmt.Fprintln(os.Stderr, "ccpp: no input files")
		return 2
	}

	predefined, err := buildPredefinedMacros(defines, undefs, *target)
	if err != nil {
		fmt.Fprintln(os.Stderr, "ccpp:", err)
		return 2
	}

	stdout := bufio.NewWriter(os.Stdout)
	defer stdout.Flush()

	var g errgroup.Group
	g.SetLimit(*jobs)
	results := make([]string, len(inputs))
	hadErrors := make([]bool, len(inputs))

	for i, path := range inputs {
		i, path := i, path
		g.Go(func() error {
			out, errored := preprocessOne(path, includeDirs, predefined, *warningsAsErrors, *emitText)
			results[i] = out
			hadErrors[i] = errored
			return nil
		})
	}
	_ = g.Wait()

	exit := 0
	for i := range inputs {
		fmt.Fprint(stdout, results[i])
		if hadErrors[i] {
			exit = 1
		}
	}
	return exit
}

func loadConfig(path string) (config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return config{}, err
	}
	var c config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return config{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	return c, nil
}

// expandInputs resolves glob patterns (including "**") in the positional
// arguments into a deduplicated file list, in the order the patterns
// produce them.
func expandInputs(patterns []string) ([]string, error) {
	seen := make(collections.Set[string])
	var out []string
	add := func(path string) {
		if !seen.Contains(path) {
			seen.Add(path)
			out = append(out, path)
		}
	}
	for _, p := range patterns {
		if !strings.ContainsAny(p, "*?[") {
			add(p)
			continue
		}
		matches, err := doublestar.FilepathGlob(p)
		if err != nil {
			return nil, fmt.Errorf("bad glob %q: %w", p, err)
		}
		for _, m := range matches {
			add(m)
		}
	}
	return out, nil
}

func buildPredefinedMacros(defines, undefs stringList, target string) ([]macro.Macro, error) {
	var macros []macro.Macro
	if target != "" {
		p, err := platform.Parse(target)
		if err != nil {
			return nil, err
		}
		table := macro.NewTable()
		platform.DefineAll(table, p)
		for name := range platform.KnownPlatformEnv[p] {
			m, _ := table.Lookup(name)
			macros = append(macros, m)
		}
	}
	for _, d := range defines {
		name, value, hasValue := strings.Cut(d, "=")
		m := macro.Macro{Name: name}
		if hasValue {
			m.Replacement = []lexer.Token{{Kind: lexer.Number, Data: value}}
			if _, err := strconv.Atoi(value); err != nil {
				m.Replacement = []lexer.Token{{Kind: lexer.Identifier, Data: value}}
			}
		} else {
			m.Replacement = []lexer.Token{{Kind: lexer.Number, Data: "1"}}
		}
		macros = append(macros, m)
	}
	undefSet := collections.ToSet([]string(undefs))
	if len(undefSet) == 0 {
		return macros, nil
	}
	return collections.FilterSlice(macros, func(m macro.Macro) bool {
		return !undefSet.Contains(m.Name)
	}), nil
}

func preprocessOne(path string, includeDirs []string, predefined []macro.Macro, werror, emitText bool) (string, bool) {
	fromDir := filepath.Dir(path)
	searchDirs := append([]string{fromDir}, includeDirs...)

	driver, collector := preprocessor.New(source.OSFileSystem{}, preprocessor.Options{
		SearchDirs:       searchDirs,
		PredefinedMacros: predefined,
		PromoteWarnings:  werror,
	})

	tokens, err := driver.Run(path)
	var b strings.Builder
	if err != nil {
		fmt.Fprintf(&b, "ccpp: %s: %v\n", path, err)
	}
	for _, d := range collector.Diagnostics {
		fmt.Fprintln(&b, d.String())
	}

	if emitText {
		b.WriteString(renderText(tokens))
	} else {
		for _, t := range tokens {
			fmt.Fprintf(&b, "%s\t%s\t%q\n", t.Reported, t.Class, t.Data)
		}
	}

	return b.String(), err != nil || collector.HasErrors()
}

// renderText reconstructs a plausible single-line-per-logical-line text
// form of the classified stream, separating tokens by a single space
// wherever the original had intervening whitespace.
func renderText(tokens []classify.Token) string {
	var b strings.Builder
	lastLine := 0
	for i, t := range tokens {
		if i > 0 {
			if t.Reported.Line != lastLine {
				b.WriteByte('\n')
			} else if tokens[i-1].HasWhitespace {
				b.WriteByte(' ')
			}
		}
		b.WriteString(t.Data)
		lastLine = t.Reported.Line
	}
	if tokens != nil {
		b.WriteByte('\n')
	}
	return b.String()
}

var _ diag.Sink = (*diag.Collector)(nil)
