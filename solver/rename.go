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

// RenameSymbols rebuilds an expression, renaming any Read into an array
// named in its translation table to the translated name, preserving the
// read's index and width (spec §4.2: "preserving size/domain/range/
// constant-values"). It is memoized by source Id so that shared
// subtrees are only rebuilt once (spec §9).
type RenameSymbols struct {
	target      *expr.Arena
	translation map[string]string
	memo        map[expr.Id]*expr.Expr
}

// NewRenameSymbols builds a RenameSymbols visitor targeting target
// (which may be the same arena the input expression already belongs to,
// or a different one — the visitor always rebuilds).
func NewRenameSymbols(target *expr.Arena, translation map[string]string) *RenameSymbols {
	return &RenameSymbols{target: target, translation: translation, memo: make(map[expr.Id]*expr.Expr)}
}

// Apply rebuilds e with array names translated.
func (r *RenameSymbols) Apply(e *expr.Expr) *expr.Expr {
	if v, ok := r.memo[e.Id()]; ok {
		return v
	}
	var out *expr.Expr
	if e.Kind() == expr.KRead {
		name := e.Array()
		if to, ok := r.translation[name]; ok {
			name = to
		}
		out = expr.Read(r.target, name, r.Apply(e.Index()))
	} else {
		out = rebuildOther(r.target, e, r.Apply)
	}
	r.memo[e.Id()] = out
	return out
}
