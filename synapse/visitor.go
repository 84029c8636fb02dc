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

package synapse

// Visitor drives a code-gen traversal of an ExecutionPlan (spec §4.5's
// "visit(visitor)" hook). It is a stub: the textual/C and P4 code
// emitters downstream of an ExecutionPlan are explicitly out of scope
// (spec's Non-goals list "the textual/C code emitters"); this
// interface exists so Module.Visit has somewhere to dispatch, the same
// way original_source's ExecutionPlanVisitor does for its own (also
// out-of-repo) code generators.
type Visitor interface {
	// VisitModule is called once per module, in execution-plan order,
	// with the module's display name and the function name of the BDD
	// call it consumed ("" for control-flow/terminal modules that
	// consume no call).
	VisitModule(name, sourceFunction string)
}

// DumpVisitor is a minimal Visitor that records each visited module's
// name, useful for tests and for --xml's plaintext fallback without a
// real emitter behind it.
type DumpVisitor struct {
	Modules []string
}

func (v *DumpVisitor) VisitModule(name, sourceFunction string) {
	v.Modules = append(v.Modules, name)
}
