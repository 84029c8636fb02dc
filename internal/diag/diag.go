// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package diag carries the ambient logging/error-reporting conventions
// shared by every CLI tool in this module: a log-level gate (spec §6's
// "a log-level variable may control diagnostic verbosity") plus a single
// structured fatal-diagnostic printer (spec §7: "all fatal errors print a
// single structured diagnostic and terminate with a non-zero exit
// code"). It intentionally wraps the standard library's log package
// rather than a third-party logging framework, matching every cmd/*
// tool in the teacher repo this module was grounded on.
package diag

import (
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"
)

// Level is a diagnostic verbosity level.
type Level int

const (
	LevelDebug Level = iota
	LevelLog
	LevelWarning
	LevelError
)

func ParseLevel(s string) (Level, bool) {
	switch s {
	case "debug":
		return LevelDebug, true
	case "log":
		return LevelLog, true
	case "warning":
		return LevelWarning, true
	case "error":
		return LevelError, true
	}
	return LevelLog, false
}

// current is process-wide verbosity, set from the VIGOR_LOG_LEVEL
// environment variable at init.
var current = LevelLog

func init() {
	if v, ok := ParseLevel(os.Getenv("VIGOR_LOG_LEVEL")); ok {
		current = v
	}
}

// SetLevel overrides the process-wide verbosity, for callers that load
// a log level from a config file (config.Config.LogLevel) rather than
// the VIGOR_LOG_LEVEL environment variable.
func SetLevel(l Level) { current = l }

// RunID tags one invocation of a CLI tool (e.g. one synapse run across
// multiple targets) so its log lines can be told apart from a concurrent
// invocation's when logs are aggregated externally.
func RunID() string {
	return uuid.NewString()
}

func logf(level Level, format string, args ...any) {
	if level < current {
		return
	}
	log.Printf(format, args...)
}

func Debugf(format string, args ...any)   { logf(LevelDebug, "debug: "+format, args...) }
func Logf(format string, args ...any)     { logf(LevelLog, format, args...) }
func Warningf(format string, args ...any) { logf(LevelWarning, "warning: "+format, args...) }

// Kind identifies one of spec §7's fatal error categories.
type Kind string

const (
	KindParse              Kind = "parse_error"
	KindInvariantViolation Kind = "invariant_violation"
	KindSolverUnavailable  Kind = "solver_unavailable"
	KindUnsplittable       Kind = "unsplittable_call_paths"
	KindNoPlan             Kind = "no_plan"
	KindUnhandledCall      Kind = "unhandled_call"
)

// Fatal is the structured diagnostic every fatal error prints (spec §7).
type Fatal struct {
	Kind    Kind
	Message string
	// Fields carries kind-specific context: node id / function name /
	// argument name for invariant violations, filenames for unsplittable
	// call paths, target + deepest-common-prefix for no-plan, etc.
	Fields map[string]string
}

func (f *Fatal) Error() string {
	s := fmt.Sprintf("%s: %s", f.Kind, f.Message)
	for k, v := range f.Fields {
		s += fmt.Sprintf(" %s=%q", k, v)
	}
	return s
}

// Exit prints err as a structured diagnostic to stderr and terminates
// the process with a non-zero status. It is the one place in this
// module a fatal error becomes os.Exit — library code always returns
// errors, never calls Exit itself.
func Exit(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
