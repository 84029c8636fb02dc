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

package callpath

import (
	"github.com/pmdm56/vigor-klee-sub000/expr"
	"github.com/pmdm56/vigor-klee-sub000/solver"
)

// Equal reports whether s and o are the same symbol (spec §3): equal
// labels and label bases, and semantically equal Expr (and Addr, when
// both carry one) under sc. c1 and c2 are the path constraints s and o
// were produced under, respectively — pass nil for both only when s
// and o are known to share an arena (see solver.AreExprsAlwaysEqual).
func (s Symbol) Equal(sc *solver.Context, o Symbol, c1, c2 []*expr.Expr) bool {
	if s.Label != o.Label || s.LabelBase != o.LabelBase {
		return false
	}
	if s.HasAddr != o.HasAddr {
		return false
	}
	if !solver.AreExprsAlwaysEqual(sc, s.Expr, o.Expr, c1, c2) {
		return false
	}
	if s.HasAddr && !solver.AreExprsAlwaysEqual(sc, s.Addr, o.Addr, c1, c2) {
		return false
	}
	return true
}
