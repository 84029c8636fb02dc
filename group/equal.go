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

package group

import (
	"github.com/pmdm56/vigor-klee-sub000/callpath"
	"github.com/pmdm56/vigor-klee-sub000/expr"
	"github.com/pmdm56/vigor-klee-sub000/solver"
)

// ignoredArgs lists the argument names spec §4.3 excludes from
// equality entirely, regardless of function: "p" (packet_borrow_next_
// chunk's packet pointer) and "src_devices" (port-ingress hints).
var ignoredArgs = map[string]bool{
	"p":           true,
	"src_devices": true,
}

// AreCallsEqual implements spec §4.3's "call equality under
// relaxation": function names must match; for every non-ignored
// argument, the expr fields must be always-equal under sc, except
// output-pointer arguments (never compared — the callee writes them)
// and packet_return_chunk's the_chunk argument, for which the in field
// is compared instead of expr (packet mutations must match).
func AreCallsEqual(sc *solver.Context, c1, c2 *callpath.Call) bool {
	if c1.Function != c2.Function {
		return false
	}

	for _, na := range c1.Args {
		name := na.Name
		if ignoredArgs[name] {
			continue
		}
		a1 := na.Arg
		a2, ok := c2.Arg(name)
		if !ok {
			return false
		}
		if a1.Out != nil {
			continue
		}

		if c1.Function == "packet_return_chunk" && name == "the_chunk" {
			if !alwaysEqual(sc, a1.In, a2.In) {
				return false
			}
			continue
		}
		if !alwaysEqual(sc, a1.Expr, a2.Expr) {
			return false
		}
	}

	return true
}

// alwaysEqual treats two nil expressions as equal (spec's original
// "isNull() == isNull()" base case) and otherwise defers to the
// solver, assuming both expressions share one arena (see Split's
// doc comment).
func alwaysEqual(sc *solver.Context, e1, e2 *expr.Expr) bool {
	if e1 == nil || e2 == nil {
		return e1 == nil && e2 == nil
	}
	return solver.AreExprsAlwaysEqual(sc, e1, e2, nil, nil)
}
