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

import "container/heap"

// Heuristic orders the search frontier (spec §4.5: "a total order on
// plans (a Heuristic interface with a single ordering relation)").
// original_source's heuristic.h models the same thing as a
// std::set-with-comparator; this repo follows it with a
// container/heap-backed priority queue instead, since Go's stdlib
// offers a heap rather than an ordered-set container. Less must be
// a strict weak order: Less(a, b) true means a should be explored
// before b. A heuristic must be pure — swapping heuristics changes
// only which complete plan is found first, never correctness (spec:
// "the heuristic is pure and side-effect-free").
type Heuristic interface {
	Less(a, b *ExecutionPlan) bool
}

// P4AbsorptionHeuristic ranks plans by how many BDD nodes have been
// pushed into a Tofino/BMv2 module so far (spec §4.5: "maximizing the
// number of BDD nodes absorbed by P4 modules"), breaking ties by
// preferring a shorter frontier (closer to complete).
type P4AbsorptionHeuristic struct{}

func (P4AbsorptionHeuristic) Less(a, b *ExecutionPlan) bool {
	na, nb := countP4Absorbed(a.Root), countP4Absorbed(b.Root)
	if na != nb {
		return na > nb
	}
	return len(a.Frontier) < len(b.Frontier)
}

func countP4Absorbed(n *EpNode) int {
	if n == nil {
		return 0
	}
	count := 0
	if t := n.Module.Target(); t == Tofino || t == BMv2SimpleSwitchgRPC {
		count++
	}
	for _, c := range n.Children {
		count += countP4Absorbed(c)
	}
	return count
}

// frontierQueue is a container/heap.Interface over pending plans,
// ordered by a Heuristic. Pushing/popping a *ExecutionPlan is O(log n);
// the search loop in search.go relies on this to implement spec's
// "heuristic_picks plan from frontier."
type frontierQueue struct {
	plans []*ExecutionPlan
	less  Heuristic
}

func newFrontierQueue(h Heuristic) *frontierQueue {
	q := &frontierQueue{less: h}
	heap.Init(q)
	return q
}

func (q *frontierQueue) Len() int { return len(q.plans) }
func (q *frontierQueue) Less(i, j int) bool {
	return q.less.Less(q.plans[i], q.plans[j])
}
func (q *frontierQueue) Swap(i, j int) { q.plans[i], q.plans[j] = q.plans[j], q.plans[i] }

func (q *frontierQueue) Push(x any) { q.plans = append(q.plans, x.(*ExecutionPlan)) }

func (q *frontierQueue) Pop() any {
	old := q.plans
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	q.plans = old[:n-1]
	return item
}

func (q *frontierQueue) push(p *ExecutionPlan) { heap.Push(q, p) }
func (q *frontierQueue) pop() *ExecutionPlan   { return heap.Pop(q).(*ExecutionPlan) }
