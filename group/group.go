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

// Package group implements the call-path grouper (spec §4.3): given N
// call paths at a shared prefix depth, partition them into an on-true
// group that agrees on the next call and an on-false group that
// doesn't, and, when the split is non-trivial, find a single boolean
// expression every on-true path entails and every on-false path
// refutes. The BDD constructor (bdd) repeatedly applies Split to grow
// the tree one level at a time.
package group

import (
	"fmt"

	"github.com/pmdm56/vigor-klee-sub000/callpath"
	"github.com/pmdm56/vigor-klee-sub000/expr"
	"github.com/pmdm56/vigor-klee-sub000/solver"
)

// Options controls which split strategy Split falls back to when no
// discriminating constraint is found against any witness call path.
type Options struct {
	// Combinatorial, when true, additionally tries the legacy
	// subset-enumeration fallback (SplitCombinatorial) before giving
	// up. It is never invoked implicitly (spec §9's Open Question:
	// "implementers must pick one and document it, rather than
	// silently reproducing both").
	Combinatorial bool
}

// Result is the outcome of one Split call. Discriminant is nil iff the
// split was trivial (every path in the input agreed on its next
// call, or every path had no remaining calls), in which case OnTrue is
// the whole input and OnFalse is empty.
type Result struct {
	Discriminant *expr.Expr
	OnTrue       []*callpath.CallPath
	OnFalse      []*callpath.CallPath
}

// UnconstructableError reports that no discriminating constraint could
// be found against any candidate witness call path (spec §4.3:
// "construction aborts, the BDD is declared unconstructable").
type UnconstructableError struct {
	Reason string
}

func (e *UnconstructableError) Error() string {
	return fmt.Sprintf("group: call paths are unconstructable: %s", e.Reason)
}

// Split partitions paths by the equality-with-relaxation of each
// path's next remaining call (spec §4.3's three-step split algorithm).
// All expressions reachable from paths must belong to a single shared
// expr.Arena; Split never rewrites expressions across arenas (unlike
// the general-purpose solver.AreExprsAlwaysEqual), since callpath.Load
// is designed to parse every call path of one BDD-construction run
// into one arena.
func Split(sc *solver.Context, paths []*callpath.CallPath, opts Options) (*Result, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("group: Split: no call paths given")
	}

	anyRemaining := false
	for _, p := range paths {
		if len(p.Calls) > 0 {
			anyRemaining = true
			break
		}
	}
	if !anyRemaining {
		return &Result{OnTrue: paths}, nil
	}

	for _, witness := range paths {
		if len(witness.Calls) == 0 {
			continue
		}
		call := witness.Calls[0]

		var onTrue, onFalse []*callpath.CallPath
		for _, p := range paths {
			if len(p.Calls) > 0 && AreCallsEqual(sc, call, p.Calls[0]) {
				onTrue = append(onTrue, p)
			} else {
				onFalse = append(onFalse, p)
			}
		}
		if len(onFalse) == 0 {
			return &Result{OnTrue: onTrue}, nil
		}

		if c, refinedTrue, refinedFalse, ok := findDiscriminant(sc, onTrue, onFalse); ok {
			return &Result{Discriminant: c, OnTrue: refinedTrue, OnFalse: refinedFalse}, nil
		}
	}

	if opts.Combinatorial {
		return SplitCombinatorial(sc, paths)
	}
	return nil, &UnconstructableError{Reason: "no discriminating constraint found against any witness call path"}
}

// findDiscriminant implements spec §4.3 step 2/3: scan on_true[0]'s
// path constraints for one every on_true path entails; for each
// candidate, promote any on_false path the candidate also entails into
// on_true, then check that every remaining on_false path refutes it.
func findDiscriminant(sc *solver.Context, onTrue, onFalse []*callpath.CallPath) (*expr.Expr, []*callpath.CallPath, []*callpath.CallPath, bool) {
	for _, c := range onTrue[0].Constraints {
		if !allEntail(sc, onTrue, c) {
			continue
		}

		newTrue := append([]*callpath.CallPath(nil), onTrue...)
		var newFalse []*callpath.CallPath
		for _, p := range onFalse {
			if entails(sc, p, c) {
				newTrue = append(newTrue, p)
			} else {
				newFalse = append(newFalse, p)
			}
		}
		if len(newFalse) == 0 {
			continue
		}
		if allRefute(sc, newFalse, c) {
			return c, newTrue, newFalse, true
		}
	}
	return nil, nil, nil, false
}

func entails(sc *solver.Context, p *callpath.CallPath, c *expr.Expr) bool {
	return sc.MustBeTrue(p.Constraints, c)
}

func refutes(sc *solver.Context, p *callpath.CallPath, c *expr.Expr) bool {
	return sc.MustBeTrue(p.Constraints, expr.Not1(c.Arena(), c))
}

func allEntail(sc *solver.Context, paths []*callpath.CallPath, c *expr.Expr) bool {
	for _, p := range paths {
		if !entails(sc, p, c) {
			return false
		}
	}
	return true
}

func allRefute(sc *solver.Context, paths []*callpath.CallPath, c *expr.Expr) bool {
	for _, p := range paths {
		if !refutes(sc, p, c) {
			return false
		}
	}
	return true
}
