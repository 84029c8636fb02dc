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
	"github.com/pmdm56/vigor-klee-sub000/expr"
)

// symRef identifies one free byte symbol: a named array read at a
// structurally distinct index expression.
type symRef struct {
	array string
	index expr.Id
}

// Assignment is a concrete valuation of byte symbols, used both as the
// enumeration engine's working state and as the GetValue witness result.
type Assignment map[symRef]uint64

// collectSymbols gathers the distinct byte symbols referenced across a
// set of formulas, in first-appearance order (for deterministic
// enumeration order, and therefore deterministic witness selection).
func collectSymbols(exprs ...*expr.Expr) []symRef {
	seen := make(map[symRef]bool)
	var out []symRef
	for _, e := range exprs {
		if e == nil {
			continue
		}
		expr.WalkFunc(e, func(n *expr.Expr) bool {
			if n.Kind() == expr.KRead {
				ref := symRef{array: n.Array(), index: n.Index().Id()}
				if !seen[ref] {
					seen[ref] = true
					out = append(out, ref)
				}
			}
			return true
		})
	}
	return out
}

// eval concretely evaluates e under assignment. A Read whose symbol is
// not present in assignment evaluates to 0 (the enumeration engine only
// ever calls eval with a complete assignment over every symbol
// collectSymbols found, so this only matters for indices that are
// themselves symbolic and not among the enumerated bytes — which cannot
// happen for the bounded queries this engine actually attempts).
func eval(e *expr.Expr, assign Assignment) uint64 {
	switch e.Kind() {
	case expr.KConstant:
		return e.Value()
	case expr.KRead:
		ref := symRef{array: e.Array(), index: e.Index().Id()}
		return assign[ref]
	case expr.KConcat:
		hi, lo := e.Operands()
		return (eval(hi, assign) << uint(lo.Width())) | eval(lo, assign)
	case expr.KExtract:
		v := eval(e.Src(), assign)
		return maskTo(v>>uint(e.Offset()), e.Width())
	case expr.KZExt:
		return eval(e.Src(), assign)
	case expr.KSExt:
		src := e.Src()
		v := signedVal(eval(src, assign), src.Width())
		return maskTo(uint64(v), e.Width())
	case expr.KNot:
		return maskTo(^eval(e.Src(), assign), e.Width())
	case expr.KSelect:
		cond, then, els := e.Select()
		if eval(cond, assign) != 0 {
			return eval(then, assign)
		}
		return eval(els, assign)
	}
	a, b := e.Operands()
	av, bv := eval(a, assign), eval(b, assign)
	w := a.Width()
	switch e.Kind() {
	case expr.KAdd:
		return maskTo(av+bv, w)
	case expr.KSub:
		return maskTo(av-bv, w)
	case expr.KMul:
		return maskTo(av*bv, w)
	case expr.KUDiv:
		if bv == 0 {
			return 0
		}
		return maskTo(av/bv, w)
	case expr.KSDiv:
		if bv == 0 {
			return 0
		}
		return maskTo(uint64(signedVal(av, w)/signedVal(bv, w)), w)
	case expr.KURem:
		if bv == 0 {
			return av
		}
		return maskTo(av%bv, w)
	case expr.KSRem:
		if bv == 0 {
			return av
		}
		return maskTo(uint64(signedVal(av, w)%signedVal(bv, w)), w)
	case expr.KAnd:
		return av & bv
	case expr.KOr:
		return maskTo(av|bv, w)
	case expr.KXor:
		return maskTo(av^bv, w)
	case expr.KShl:
		if bv >= uint64(w) {
			return 0
		}
		return maskTo(av<<uint(bv), w)
	case expr.KLShr:
		if bv >= uint64(w) {
			return 0
		}
		return av >> uint(bv)
	case expr.KAShr:
		n := bv
		if n >= uint64(w) {
			n = uint64(w - 1)
		}
		return maskTo(uint64(signedVal(av, w)>>uint(n)), w)
	case expr.KEq:
		return boolTo(av == bv)
	case expr.KNe:
		return boolTo(av != bv)
	case expr.KUlt:
		return boolTo(av < bv)
	case expr.KUle:
		return boolTo(av <= bv)
	case expr.KUgt:
		return boolTo(av > bv)
	case expr.KUge:
		return boolTo(av >= bv)
	case expr.KSlt:
		return boolTo(signedVal(av, w) < signedVal(bv, w))
	case expr.KSle:
		return boolTo(signedVal(av, w) <= signedVal(bv, w))
	case expr.KSgt:
		return boolTo(signedVal(av, w) > signedVal(bv, w))
	case expr.KSge:
		return boolTo(signedVal(av, w) >= signedVal(bv, w))
	}
	panic("solver: eval: unhandled kind " + e.Kind().String())
}

func maskTo(v uint64, width int) uint64 {
	if width >= 64 {
		return v
	}
	return v & ((uint64(1) << uint(width)) - 1)
}

func signedVal(v uint64, width int) int64 {
	if width >= 64 {
		return int64(v)
	}
	signBit := uint64(1) << uint(width-1)
	if v&signBit != 0 {
		return int64(v) - int64(uint64(1)<<uint(width))
	}
	return int64(v)
}

func boolTo(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}
