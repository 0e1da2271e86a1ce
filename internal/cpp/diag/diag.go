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

// Package diag defines the diagnostic records the core pipeline produces
// and the Sink collaborator interface that decides how to render them. The
// core never writes directly to stdout/stderr.
package diag

import (
	"fmt"

	"github.com/ccpp-dev/ccpp/internal/cpp/source"
)

// Severity classifies how a Diagnostic affects the run.
type Severity int

const (
	Warning Severity = iota
	Error
	Fatal
)

func (s Severity) String() string {
	switch s {
	case Warning:
		return "warning"
	case Error:
		return "error"
	case Fatal:
		return "fatal error"
	default:
		return "diagnostic"
	}
}

// Kind groups a Diagnostic by the subsystem that raised it.
type Kind int

const (
	Lexical Kind = iota
	DirectiveSyntax
	MacroSemantics
	Inclusion
	Evaluation
	Internal
)

// Diagnostic is a single error/warning record. Stack carries the full
// provenance (file / include / macro) active when the diagnostic fired, so
// a token born inside a macro inside an included file reports every level.
type Diagnostic struct {
	Severity Severity
	Kind     Kind
	Message  string
	Pos      source.Pos
	Stack    source.Stack
}

func (d Diagnostic) String() string {
	s := fmt.Sprintf("%s: %s: %s", d.Pos, d.Severity, d.Message)
	for i := len(d.Stack) - 1; i >= 0; i-- {
		s += fmt.Sprintf("\n  %s", d.Stack[i])
	}
	return s
}

// Sink is the external collaborator that receives diagnostics and decides
// how to render them. The core only produces Diagnostics.
type Sink interface {
	Report(Diagnostic)
}

// Collector is a Sink that accumulates every diagnostic it receives and
// tracks whether a Fatal one has been seen, which the driver polls between
// lines so a fatal error terminates the run cooperatively.
type Collector struct {
	Diagnostics []Diagnostic
	fatal       bool
}

func NewCollector() *Collector { return &Collector{} }

func (c *Collector) Report(d Diagnostic) {
	c.Diagnostics = append(c.Diagnostics, d)
	if d.Severity == Fatal {
		c.fatal = true
	}
}

func (c *Collector) Fatal() bool { return c.fatal }

func (c *Collector) HasErrors() bool {
	for _, d := range c.Diagnostics {
		if d.Severity >= Error {
			return true
		}
	}
	return false
}

// PromoteWarnings turns every Warning into an Error before it reaches the
// underlying sink (the -Werror mode flag).
type PromoteWarnings struct {
	Sink Sink
}

func (p PromoteWarnings) Report(d Diagnostic) {
	if d.Severity == Warning {
		d.Severity = Error
	}
	p.Sink.Report(d)
}
