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

import (
	"github.com/pmdm56/vigor-klee-sub000/bdd"
	"github.com/pmdm56/vigor-klee-sub000/expr"
	"github.com/pmdm56/vigor-klee-sub000/solver"
)

// defaultSolver is the process-wide solver resource spec §5 describes
// ("the solver cache... [is a] process-wide singleton initialized once
// at startup"), shared by every module's must_be_*-style check.
var defaultSolver = solver.NewContext()

// byteMod is one byte-offset/value pair in a build_modifications diff.
type byteMod struct {
	Byte int
	Expr *expr.Expr
}

// buildModifications implements spec §4.5's "build_modifications(prev,
// curr) that iterates byte offsets and emits {byte, expr} for every
// byte where the per-byte equality fails", applied to a
// packet_return_chunk Call node's the_chunk argument: curr is the
// value written back (Arg.Out); prev is the value borrowed (Arg.In) —
// the upstream symbolic executor already folds the pre-image of an
// in-place pointer write into In, so this repo compares In against Out
// directly rather than re-deriving prev from the matching
// packet_borrow_next_chunk call. A the_chunk with no Out set was never
// written and has an empty diff (the Ignore case).
func buildModifications(plan *ExecutionPlan, bddNode *bdd.Node) []byteMod {
	arg, ok := bddNode.Call.Arg("the_chunk")
	if !ok || arg.In == nil || arg.Out == nil {
		return nil
	}
	width := arg.In.Width()
	if arg.Out.Width() != width || width%8 != 0 {
		return nil
	}

	var mods []byteMod
	for i := 0; i < width/8; i++ {
		prevByte := expr.Extract(arg.In.Arena(), arg.In, i*8, 8)
		currByte := expr.Extract(arg.Out.Arena(), arg.Out, i*8, 8)
		if !alwaysEqualBytes(prevByte, currByte) {
			mods = append(mods, byteMod{Byte: i, Expr: currByte})
		}
	}
	return mods
}

// flattenConstraints merges a bdd.Node's per-call-path constraint
// lists into one conjunction, since every per-file list held at a
// single node is required by construction to agree on any must_be_*
// query reachable at that node (spec §4's split invariant).
func flattenConstraints(cs [][]*expr.Expr) []*expr.Expr {
	var out []*expr.Expr
	for _, c := range cs {
		out = append(out, c...)
	}
	return out
}

// alwaysEqualBytes reports whether two single-byte exprs are
// semantically identical: an Id match short-circuits the common case
// (the hash-cons arena already canonicalized them), falling back to
// the solver for any pair it doesn't.
func alwaysEqualBytes(a, b *expr.Expr) bool {
	if a.Id() == b.Id() {
		return true
	}
	eq := expr.Eq(a.Arena(), a, b)
	return defaultSolver.MustBeTrue(nil, eq)
}
