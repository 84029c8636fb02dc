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

// maxCombinatorialConjuncts bounds how many of on_true[0]'s constraints
// SplitCombinatorial will AND together when searching for a
// discriminant. spec §9's Open Question leaves the legacy variant's
// exact search unspecified beyond "exhaustively explore subsets via
// combinatorial enumeration"; a single-constraint candidate is already
// tried by the ordinary Split, so this fallback starts at pairs and
// stops at this bound to keep the search from growing exponentially
// on a pathological number of constraints.
const maxCombinatorialConjuncts = 3

// SplitCombinatorial is the legacy fallback Split consults only when
// Options.Combinatorial is set: where Split tries each single path
// constraint as a candidate discriminant, SplitCombinatorial also
// tries conjunctions of up to maxCombinatorialConjuncts of them. It is
// never invoked implicitly, so that a caller who hits it is informed
// explicitly (via the Options field) that the ordinary algorithm gave
// up, per spec §9's instruction not to silently reproduce both split
// behaviors.
func SplitCombinatorial(sc *solver.Context, paths []*callpath.CallPath) (*Result, error) {
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

		if c, refinedTrue, refinedFalse, ok := findCombinatorialDiscriminant(sc, onTrue, onFalse); ok {
			return &Result{Discriminant: c, OnTrue: refinedTrue, OnFalse: refinedFalse}, nil
		}
	}
	return nil, &UnconstructableError{Reason: "no discriminating constraint found by combinatorial enumeration"}
}

func findCombinatorialDiscriminant(sc *solver.Context, onTrue, onFalse []*callpath.CallPath) (*expr.Expr, []*callpath.CallPath, []*callpath.CallPath, bool) {
	cs := onTrue[0].Constraints
	n := len(cs)
	if n == 0 {
		return nil, nil, nil, false
	}
	ar := cs[0].Arena()

	for k := 2; k <= maxCombinatorialConjuncts && k <= n; k++ {
		idx := make([]int, k)
		for i := range idx {
			idx[i] = i
		}
		for {
			conj := cs[idx[0]]
			for _, i := range idx[1:] {
				conj = expr.And(ar, conj, cs[i])
			}
			if allEntail(sc, onTrue, conj) {
				newTrue := append([]*callpath.CallPath(nil), onTrue...)
				var newFalse []*callpath.CallPath
				for _, p := range onFalse {
					if entails(sc, p, conj) {
						newTrue = append(newTrue, p)
					} else {
						newFalse = append(newFalse, p)
					}
				}
				if len(newFalse) > 0 && allRefute(sc, newFalse, conj) {
					return conj, newTrue, newFalse, true
				}
			}
			if !nextCombination(idx, n) {
				break
			}
		}
	}
	return nil, nil, nil, false
}

// nextCombination advances idx (a strictly increasing k-subset of
// [0,n)) to the next combination in lexicographic order, returning
// false once the subsets are exhausted.
func nextCombination(idx []int, n int) bool {
	k := len(idx)
	i := k - 1
	for i >= 0 && idx[i] == n-k+i {
		i--
	}
	if i < 0 {
		return false
	}
	idx[i]++
	for j := i + 1; j < k; j++ {
		idx[j] = idx[j-1] + 1
	}
	return true
}
