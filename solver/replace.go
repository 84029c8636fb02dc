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
	"fmt"

	"github.com/pmdm56/vigor-klee-sub000/expr"
)

// ReplaceSymbols rebuilds an expression into a target arena, substituting
// any Read node that structurally matches one of a fixed set of "source"
// reads with a caller-supplied replacement (itself a node of the target
// arena). This is the visitor spec §4.2 describes for cross-context
// equality: retarget e2's reads that match e1's reads into e1's own
// nodes, so the result can be compared against e1 under e1's constraint
// context.
//
// Matching is structural (array name + the index expression's printed
// form) rather than by arena Id, since the two expressions being
// compared generally come from different arenas entirely.
type ReplaceSymbols struct {
	target  *expr.Arena
	replace map[string]*expr.Expr
	memo    map[expr.Id]*expr.Expr
}

// readKey is the structural match key used throughout this package for
// "the same symbolic byte" across two different expression contexts.
func readKey(array string, index *expr.Expr) string {
	return array + "@" + index.String()
}

// NewReplaceSymbols builds a ReplaceSymbols visitor that rewrites, into
// target, any Read matching (by readKey) an entry of froms with the
// corresponding entry of tos. froms and tos must be parallel slices of
// equal length; tos must already belong to target.
func NewReplaceSymbols(target *expr.Arena, froms, tos []*expr.Expr) *ReplaceSymbols {
	m := make(map[string]*expr.Expr, len(froms))
	for i, f := range froms {
		if f.Kind() != expr.KRead {
			continue
		}
		m[readKey(f.Array(), f.Index())] = tos[i]
	}
	return &ReplaceSymbols{target: target, replace: m, memo: make(map[expr.Id]*expr.Expr)}
}

// Apply rebuilds e into r.target, substituting matched reads.
func (r *ReplaceSymbols) Apply(e *expr.Expr) *expr.Expr {
	if v, ok := r.memo[e.Id()]; ok {
		return v
	}
	var out *expr.Expr
	if e.Kind() == expr.KRead {
		idx := r.Apply(e.Index())
		if rep, ok := r.replace[readKey(e.Array(), e.Index())]; ok {
			out = rep
		} else {
			out = expr.Read(r.target, e.Array(), idx)
		}
	} else {
		out = rebuildOther(r.target, e, r.Apply)
	}
	r.memo[e.Id()] = out
	return out
}

// rebuildOther reconstructs every non-Read node kind into target,
// recursively transforming children with recur (which is either
// ReplaceSymbols.Apply, RenameSymbols.Apply or SwapPacketEndianness.Apply
// — all three visitors share this traversal shape per spec §9's note
// that the visitor pattern is "a post-order walk with per-node
// substitution, memoized").
func rebuildOther(target *expr.Arena, e *expr.Expr, recur func(*expr.Expr) *expr.Expr) *expr.Expr {
	switch e.Kind() {
	case expr.KConstant:
		return expr.Const(target, e.Value(), e.Width())
	case expr.KRead:
		return expr.Read(target, e.Array(), recur(e.Index()))
	case expr.KExtract:
		return expr.Extract(target, recur(e.Src()), e.Offset(), e.Width())
	case expr.KZExt:
		return expr.ZExt(target, recur(e.Src()), e.Width())
	case expr.KSExt:
		return expr.SExt(target, recur(e.Src()), e.Width())
	case expr.KNot:
		return expr.Not(target, recur(e.Src()))
	case expr.KSelect:
		cond, then, els := e.Select()
		return expr.Select(target, recur(cond), recur(then), recur(els))
	default:
		a, b := e.Operands()
		ra, rb := recur(a), recur(b)
		return applyBinary(target, e.Kind(), ra, rb)
	}
}

func applyBinary(target *expr.Arena, k expr.Kind, a, b *expr.Expr) *expr.Expr {
	switch k {
	case expr.KConcat:
		return expr.Concat(target, a, b)
	case expr.KAdd:
		return expr.Add(target, a, b)
	case expr.KSub:
		return expr.Sub(target, a, b)
	case expr.KMul:
		return expr.Mul(target, a, b)
	case expr.KUDiv:
		return expr.UDiv(target, a, b)
	case expr.KSDiv:
		return expr.SDiv(target, a, b)
	case expr.KURem:
		return expr.URem(target, a, b)
	case expr.KSRem:
		return expr.SRem(target, a, b)
	case expr.KAnd:
		return expr.And(target, a, b)
	case expr.KOr:
		return expr.Or(target, a, b)
	case expr.KXor:
		return expr.Xor(target, a, b)
	case expr.KShl:
		return expr.Shl(target, a, b)
	case expr.KLShr:
		return expr.LShr(target, a, b)
	case expr.KAShr:
		return expr.AShr(target, a, b)
	case expr.KEq:
		return expr.Eq(target, a, b)
	case expr.KNe:
		return expr.Ne(target, a, b)
	case expr.KUlt:
		return expr.Ult(target, a, b)
	case expr.KUle:
		return expr.Ule(target, a, b)
	case expr.KUgt:
		return expr.Ugt(target, a, b)
	case expr.KUge:
		return expr.Uge(target, a, b)
	case expr.KSlt:
		return expr.Slt(target, a, b)
	case expr.KSle:
		return expr.Sle(target, a, b)
	case expr.KSgt:
		return expr.Sgt(target, a, b)
	case expr.KSge:
		return expr.Sge(target, a, b)
	}
	panic(fmt.Sprintf("solver: rebuild: unhandled kind %s", k))
}
