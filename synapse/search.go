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

package synapse

import "github.com/pmdm56/vigor-klee-sub000/bdd"

// Catalogue maps a target to the prototype modules tried against every
// pending leaf of that target (spec §4.5: "each target has its own
// ordered module catalogue"). Each entry's TryMatch is called with the
// leaf's pending BDD node; a prototype that doesn't apply there returns
// nil and the search moves to the next catalogue entry.
type Catalogue map[Target][]Module

// Synthesize runs spec §4.5's best-first search: starting from a
// single leaf at root, repeatedly pop the most promising plan off the
// frontier (per h), try every module in that leaf's target catalogue
// against the leaf's pending BDD node, and push every resulting
// successor plan back onto the frontier. The first Complete plan
// popped is returned. If the frontier empties first, a *NoPlanError is
// returned reporting the target and the largest number of modules any
// expanded plan had matched (spec §7's "deepest common prefix").
func Synthesize(b *bdd.BDD, root bdd.NodeId, target Target, cat Catalogue, h Heuristic) (*ExecutionPlan, error) {
	q := newFrontierQueue(h)
	q.push(NewExecutionPlan(b, root, target))

	deepest := 0
	for q.Len() > 0 {
		plan := q.pop()
		if plan.Complete() {
			return plan, nil
		}

		leafIdx := pickLeaf(plan)
		leaf := plan.Frontier[leafIdx]
		if consumed := countConsumed(plan); consumed > deepest {
			deepest = consumed
		}

		node := plan.BDD.Node(leaf.NextBDDNode)
		for _, proto := range cat[leaf.Target] {
			successors := proto.TryMatch(plan, node)
			for _, s := range successors {
				q.push(s)
			}
		}
	}

	return nil, &NoPlanError{Target: target, DeepestPrefix: deepest}
}

// pickLeaf chooses which pending leaf to expand next. Leaves are
// explored left to right: always the first one in Frontier, matching
// original_source's single-worklist-entry search order (it never
// interleaves leaves of the same plan out of order).
func pickLeaf(p *ExecutionPlan) int { return 0 }

// countConsumed approximates how many BDD nodes a plan has already
// matched, used only to report NoPlanError's diagnostic depth.
func countConsumed(p *ExecutionPlan) int {
	count := 0
	var walk func(n *EpNode)
	walk = func(n *EpNode) {
		if n == nil {
			return
		}
		count++
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(p.Root)
	return count
}
