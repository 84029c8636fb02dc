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

package expr

import "golang.org/x/exp/slices"

// RetrieveSymbols returns the sorted, de-duplicated set of symbolic array
// names read anywhere within e.
func RetrieveSymbols(e *Expr) []string {
	seen := make(map[string]bool)
	var out []string
	WalkFunc(e, func(n *Expr) bool {
		if n.kind == KRead && !seen[n.array] {
			seen[n.array] = true
			out = append(out, n.array)
		}
		return true
	})
	slices.Sort(out)
	return out
}

// RetrieveReads returns every distinct KRead sub-expression of e, in
// first-appearance (post-order) order. Used by the solver toolbox to
// build a ReplaceSymbols visitor that retargets e's reads into another
// symbolic context (spec §4.2, "cross-context equality").
func RetrieveReads(e *Expr) []*Expr {
	seen := make(map[Id]bool)
	var out []*Expr
	WalkFunc(e, func(n *Expr) bool {
		if n.kind == KRead && !seen[n.id] {
			seen[n.id] = true
			out = append(out, n)
		}
		return true
	})
	return out
}

// IsReadLSBComplete reports whether e is exactly the canonical shape
// ReadLSB builds: a byte-ascending Concat cascade of single-byte Reads
// into one array, covering indices [base, base+width/8) where base is
// the constant (or structurally identical) index of the lowest byte.
//
// This is spec §8's "Read-LSB canonicalization" invariant: any
// simplification that preserves an expression's semantics must preserve
// this property for genuine multi-byte little-endian reads.
func IsReadLSBComplete(e *Expr) bool {
	if e.width%8 != 0 || e.width == 0 {
		return false
	}
	n := e.width / 8
	bytes := make([]*Expr, 0, n)
	cur := e
	for {
		if cur.kind == KConcat {
			hi, lo := cur.a, cur.b
			if lo.kind != KRead || lo.width != 8 {
				return false
			}
			bytes = append(bytes, lo)
			cur = hi
			continue
		}
		if cur.kind == KRead && cur.width == 8 {
			bytes = append(bytes, cur)
			break
		}
		return false
	}
	if len(bytes) != n {
		return false
	}
	array := bytes[0].array
	for i, b := range bytes {
		if b.array != array {
			return false
		}
		if !indexAscendsBy(bytes[0].op, b.op, i) {
			return false
		}
	}
	return true
}

// indexAscendsBy reports whether idx equals base+delta, recognizing the
// shapes ReadLSB produces: base itself (delta==0), Add(base,
// Const(delta)), or, for a constant base, the folded Const(base+delta).
func indexAscendsBy(base, idx *Expr, delta int) bool {
	if delta == 0 {
		return base.id == idx.id
	}
	if base.kind == KConstant && idx.kind == KConstant {
		return idx.width == base.width && idx.value == base.value+uint64(delta)
	}
	if idx.kind != KAdd {
		return false
	}
	a, b := idx.a, idx.b
	if a.id == base.id && b.kind == KConstant && b.value == uint64(delta) {
		return true
	}
	if b.id == base.id && a.kind == KConstant && a.value == uint64(delta) {
		return true
	}
	return false
}
