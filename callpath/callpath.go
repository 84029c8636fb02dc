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

// Package callpath holds the data model a symbolic execution of a
// network function produces (spec §3): a Call Path is one fully
// executed trace, recorded as a path condition plus an ordered list of
// library calls. The grouper (group), BDD constructor (bdd) and
// synthesizer (synapse) packages all consume this model; none of them
// re-derive it from text.
//
// Parsing the upstream symbolic executor's own call-path grammar is
// out of scope (spec §1 lists "the file loader... assume a parser that
// yields the data model of §3" among the external collaborators); Load
// in this package is a convenience reader for this repo's own
// simplified serialization of that model only, documented in load.go.
package callpath

import "github.com/pmdm56/vigor-klee-sub000/expr"

// Arg is one call argument (spec §3: "Arg is { expr, in?, out?,
// fn_ptr_name? }"). Expr is the argument's value, and is nil for an
// argument recorded only through In/Out (Load's "in"/"out" lines set
// no Expr); In and Out are the in-place
// before/after symbolic values of a pointer argument (nil when the
// argument isn't an in-place pointer); FnPtrName marks a function
// pointer argument by the name of the function it resolves to.
type Arg struct {
	Expr      *expr.Expr
	In        *expr.Expr
	Out       *expr.Expr
	FnPtrName string
	HasFnPtr  bool
}

// NamedArg pairs an argument name with its value, preserving the
// argument order the call was recorded in (spec §3: "ordered map of
// argument name -> Arg").
type NamedArg struct {
	Name string
	Arg  Arg
}

// ExtraVar is one extra variable the callee's frame exported, as a
// before/after pair (spec §3).
type ExtraVar struct {
	Name   string
	Before *expr.Expr
	After  *expr.Expr
}

// Call is one library call recorded along a call path (spec §3).
// Return is nil for a call with no return value.
type Call struct {
	Function string
	Args     []NamedArg
	Extra    []ExtraVar
	Return   *expr.Expr
}

// Arg looks up a named argument, preserving the ordered-map semantics
// of spec §3 without requiring callers to scan Args by hand.
func (c *Call) Arg(name string) (Arg, bool) {
	for _, na := range c.Args {
		if na.Name == name {
			return na.Arg, true
		}
	}
	return Arg{}, false
}

// Extra looks up a named extra variable.
func (c *Call) Extra(name string) (ExtraVar, bool) {
	for _, e := range c.Extra {
		if e.Name == name {
			return e, true
		}
	}
	return ExtraVar{}, false
}

// CallPath is one fully-executed symbolic trace (spec §3): a filename
// (for diagnostics and for the BDD serializer's per-file kQuery
// block), the path's constraints, and its ordered calls.
type CallPath struct {
	Filename    string
	Constraints []*expr.Expr
	Calls       []*Call
}

// Symbol is a named fresh symbol produced by a callee (spec §3). Two
// Symbols are equal iff Label, LabelBase and Expr (and Addr, when both
// have one) are semantically equal; use Equal, not ==, to compare
// them, since Expr equality is a solver query, not a pointer or value
// comparison.
type Symbol struct {
	Label     string
	LabelBase string
	Expr      *expr.Expr
	Addr      *expr.Expr
	HasAddr   bool
}
