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

// Package synapse implements the execution-plan synthesizer (spec
// §4.5): a best-first search that lowers a bdd.BDD into a target-
// specific ExecutionPlan by repeatedly matching "modules" — one
// lowering rule per libVig call family — against the plan's pending
// leaves.
package synapse

import "fmt"

// Target names one lowering backend (spec §4.5: "x86 | Tofino |
// BMv2SimpleSwitchgRPC"). original_source's module.h also lists
// Netronome and FPGA targets that this repo's spec never asks for;
// they're left out rather than carried as unused enum values.
type Target int

const (
	X86 Target = iota
	Tofino
	BMv2SimpleSwitchgRPC
)

func (t Target) String() string {
	switch t {
	case X86:
		return "x86"
	case Tofino:
		return "tofino"
	case BMv2SimpleSwitchgRPC:
		return "bmv2"
	}
	return "unknown"
}

// ParseTarget maps the CLI's --target flag values (spec §6) to a
// Target.
func ParseTarget(s string) (Target, error) {
	switch s {
	case "x86":
		return X86, nil
	case "tofino":
		return Tofino, nil
	case "bmv2":
		return BMv2SimpleSwitchgRPC, nil
	}
	return 0, fmt.Errorf("synapse: unknown target %q", s)
}

// NoPlanError reports that the frontier emptied before a complete plan
// was found (spec §7: "No plan... fatal, reported with the target and
// the deepest common prefix reached").
type NoPlanError struct {
	Target        Target
	DeepestPrefix int
}

func (e *NoPlanError) Error() string {
	return fmt.Sprintf("synapse: no plan for target %s (deepest common prefix: %d nodes)", e.Target, e.DeepestPrefix)
}

// UnhandledCallError reports a call name that no module of the
// selected target recognizes (spec §7: "Unhandled call").
type UnhandledCallError struct {
	Function string
	Target   Target
}

func (e *UnhandledCallError) Error() string {
	return fmt.Sprintf("synapse: no %s module handles call %q", e.Target, e.Function)
}
