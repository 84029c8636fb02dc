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

import (
	"sort"

	"github.com/dchest/siphash"
	"github.com/pmdm56/vigor-klee-sub000/expr"
)

// MustBeTrue reports whether e is entailed by constraints: every
// assignment satisfying constraints also makes e evaluate to a non-zero
// width-1 value. It is sound: it only ever returns true when that is
// actually the case.
func (c *Context) MustBeTrue(constraints []*expr.Expr, e *expr.Expr) bool {
	return c.query(qMustBeTrue, constraints, e)
}

// MustBeFalse reports whether constraints entails ¬e.
func (c *Context) MustBeFalse(constraints []*expr.Expr, e *expr.Expr) bool {
	return c.query(qMustBeFalse, constraints, e)
}

func (c *Context) query(kind queryKind, constraints []*expr.Expr, e *expr.Expr) bool {
	relevant := c.relevantConstraints(constraints, e)
	sig := signature(relevant)
	rk := resultKey{kind: kind, constraintSig: sig, targetID: e.Id()}
	if v, ok := c.results[rk]; ok {
		c.stats.ResultHits++
		return v
	}
	c.stats.ResultMisses++

	var negated *expr.Expr
	if kind == qMustBeTrue {
		negated = expr.Not1(e.Arena(), e)
	} else {
		negated = e
	}
	// constraints ∧ negated unsatisfiable  <=>  constraints entails the
	// positive query.
	sat := c.satisfiable(append(append([]*expr.Expr{}, relevant...), negated), sig^uint64(negated.Id()))
	result := !sat
	c.results[rk] = result
	return result
}

// relevantConstraints implements the "independence cache": a constraint
// that reads none of the symbolic arrays e reads (compared by array
// name) cannot affect whether e is entailed, so it is dropped before
// the (expensive) satisfiability search, and the
// narrowed set is memoized per (original constraint signature, e).
func (c *Context) relevantConstraints(constraints []*expr.Expr, e *expr.Expr) []*expr.Expr {
	fullSig := signature(constraints)
	ik := independenceKey{constraintSig: fullSig, targetID: e.Id()}
	if v, ok := c.independence[ik]; ok {
		c.stats.IndependenceHits++
		return v
	}
	c.stats.IndependenceMisses++

	targetSyms := make(map[string]bool)
	for _, s := range collectSymbols(e) {
		targetSyms[s.array] = true
	}
	var out []*expr.Expr
	for _, cons := range constraints {
		for _, s := range collectSymbols(cons) {
			if targetSyms[s.array] {
				out = append(out, cons)
				break
			}
		}
	}
	c.independence[ik] = out
	return out
}

// satisfiable reports whether there is an assignment of byte symbols
// under which every formula in conj evaluates to a non-zero width-1
// value. sig is a signature for the cex cache; the cache's remembered
// witness (if any) is tried first.
func (c *Context) satisfiable(conj []*expr.Expr, sig uint64) bool {
	syms := collectSymbols(conj...)

	if len(syms) == 0 {
		return evalConjunction(conj, nil)
	}

	if cex, ok := c.cex[sig]; ok {
		c.stats.CexHits++
		if evalConjunction(conj, cex) {
			return true
		}
	} else {
		c.stats.CexMisses++
	}

	if len(syms) > MaxEnumeratedSymbols {
		// Conservative, sound default: cannot prove unsatisfiable, so
		// report satisfiable. This never produces a false MustBeTrue/
		// MustBeFalse — it only ever makes them more cautious.
		return true
	}

	assign := make(Assignment, len(syms))
	if ok := enumerate(conj, syms, 0, assign); ok {
		c.cex[sig] = cloneAssignment(assign)
		return true
	}
	return false
}

func enumerate(conj []*expr.Expr, syms []symRef, i int, assign Assignment) bool {
	if i == len(syms) {
		return evalConjunction(conj, assign)
	}
	for v := 0; v < 256; v++ {
		assign[syms[i]] = uint64(v)
		if enumerate(conj, syms, i+1, assign) {
			return true
		}
	}
	delete(assign, syms[i])
	return false
}

func evalConjunction(conj []*expr.Expr, assign Assignment) bool {
	for _, f := range conj {
		if eval(f, assign) == 0 {
			return false
		}
	}
	return true
}

func cloneAssignment(a Assignment) Assignment {
	out := make(Assignment, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// signature computes an order-independent content signature for a
// constraint set, used to key the cache layers. Order-independence
// matters because the same logical constraint set can arrive in
// different call-path enumeration orders.
func signature(exprs []*expr.Expr) uint64 {
	ids := make([]uint64, len(exprs))
	for i, e := range exprs {
		ids[i] = uint64(e.Id())
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	buf := make([]byte, 8*len(ids))
	for i, id := range ids {
		for b := 0; b < 8; b++ {
			buf[i*8+b] = byte(id >> (8 * b))
		}
	}
	return siphash.Hash(arenaSigKey0, arenaSigKey1, buf)
}

const (
	arenaSigKey0 = uint64(0xc0ffee1234567890)
	arenaSigKey1 = uint64(0x0ddba11f00dcafe)
)

// GetValue returns a constant witness for e under constraints: some
// value e can take in a model satisfying constraints. Per spec §4.2 this
// is a concretization query, not an exhaustive model enumeration — it
// returns the first witness the enumeration order finds, and constants
// fold immediately without search.
func (c *Context) GetValue(constraints []*expr.Expr, e *expr.Expr) (*expr.Expr, error) {
	if e.Kind() == expr.KConstant {
		return e, nil
	}
	syms := collectSymbols(append(append([]*expr.Expr{}, constraints...), e)...)
	if len(syms) > MaxEnumeratedSymbols {
		return nil, &UnavailableError{Reason: "GetValue: too many free symbols to concretize"}
	}
	assign := make(Assignment, len(syms))
	if !findWitness(constraints, syms, 0, assign) {
		return nil, &UnavailableError{Reason: "GetValue: constraints are unsatisfiable"}
	}
	v := eval(e, assign)
	return expr.Const(e.Arena(), v, e.Width()), nil
}

func findWitness(constraints []*expr.Expr, syms []symRef, i int, assign Assignment) bool {
	if i == len(syms) {
		return evalConjunction(constraints, assign)
	}
	for v := 0; v < 256; v++ {
		assign[syms[i]] = uint64(v)
		if findWitness(constraints, syms, i+1, assign) {
			return true
		}
	}
	delete(assign, syms[i])
	return false
}
