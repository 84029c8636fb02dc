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

package solver

import "github.com/pmdm56/vigor-klee-sub000/expr"

// AreExprsAlwaysEqual is the solver toolbox's workhorse (spec §4.2).
//
// With no constraint contexts given, e1 and e2 must belong to the same
// arena, and the query reduces to must_be_true(nil, Eq(e1, e2)) — no
// constraints means "always", i.e. the check is purely structural/
// constant-folding.
//
// With c1 and c2 both given, e1 and e2 are taken to originate in two
// different symbolic contexts (e.g. two different call paths' "out"
// expressions) and the check is done in both directions: e2's reads that
// structurally match one of e1's reads are rewritten to e1's own nodes
// (keeping the left side fixed) and checked under c1; symmetrically for
// e1 rewritten against e2's reads, checked under c2. The result is the
// conjunction, which protects against two expressions that share a read
// array name but were produced by unrelated updates (different widths
// or domains) and are therefore not actually the same symbol.
func AreExprsAlwaysEqual(sc *Context, e1, e2 *expr.Expr, c1, c2 []*expr.Expr) bool {
	if c1 == nil && c2 == nil {
		if e1.Arena() != e2.Arena() {
			panic("solver: AreExprsAlwaysEqual: same-context call with expressions from different arenas")
		}
		return sc.MustBeTrue(nil, expr.Eq(e1.Arena(), e1, e2))
	}
	if e1.Width() != e2.Width() {
		return false
	}

	r1 := expr.RetrieveReads(e1)
	e2in1 := NewReplaceSymbols(e1.Arena(), r1, r1).Apply(e2)
	leftOK := sc.MustBeTrue(c1, expr.Eq(e1.Arena(), e1, e2in1))

	r2 := expr.RetrieveReads(e2)
	e1in2 := NewReplaceSymbols(e2.Arena(), r2, r2).Apply(e1)
	rightOK := sc.MustBeTrue(c2, expr.Eq(e2.Arena(), e1in2, e2))

	return leftOK && rightOK
}
