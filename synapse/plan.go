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

// EpNode wraps one matched module in the execution-plan tree (spec
// §3.2: "the execution plan is a tree that mirrors the BDD's branching
// shape but whose nodes are modules"). Children are added only when a
// later match attaches under this node — a Branch module like If may
// sit with zero children for a while, with its two pending leaves
// tracked purely in the owning ExecutionPlan's Frontier.
type EpNode struct {
	Module   Module
	Children []*EpNode
}

// Leaf is one place in an ExecutionPlan that still needs to grow (spec
// §3.2's "leaf frontier"): Parent names the EpNode the next matched
// module attaches under (nil only for the plan's very first leaf,
// before any module has been matched — that match becomes the plan's
// Root), NextBDDNode is the BDD node that leaf must consume next, and
// Target is which target's modules apply here — inherited from the
// leaf that spawned it, unless the module attached there declared a
// NextTarget (spec's Tofino/BMv2 → x86 SendToController edge).
type Leaf struct {
	Parent      *EpNode
	NextBDDNode bdd.NodeId
	Target      Target
}

// ExecutionPlan is one candidate lowering of a BDD (spec §3.2): a root
// EpNode (nil until the first module matches), the ordered leaf
// frontier, the BDD it lowers, and an opaque memo keyed by bdd.NodeId
// that modules use to carry state from one match to a later one (the
// chunk-consume modules store each layer's borrowed chunk under a
// reserved key above any real node id). Built monotonically: Extend never mutates
// an existing ExecutionPlan or any EpNode reachable from it, so two
// successor plans returned for the same leaf never alias each other's
// trees (spec §5: "plans must not alias").
type ExecutionPlan struct {
	Root     *EpNode
	Frontier []Leaf
	BDD      *bdd.BDD
	Memo     map[bdd.NodeId]any
}

// NewExecutionPlan starts a plan with a single pending leaf at root,
// targeting the given backend (spec §4.5's search pseudocode:
// "initial_plan with a single leaf at BDD.init_root (or
// process_root)").
func NewExecutionPlan(b *bdd.BDD, root bdd.NodeId, target Target) *ExecutionPlan {
	return &ExecutionPlan{
		BDD:      b,
		Frontier: []Leaf{{NextBDDNode: root, Target: target}},
		Memo:     make(map[bdd.NodeId]any),
	}
}

// nextTargetFor picks the Target a new leaf spawned from leaf, via
// module m, should carry: m's own NextTarget when it declares one
// (spec's Tofino/BMv2 → x86 SendToController edge), else leaf's.
func nextTargetFor(leaf Leaf, m Module) Target {
	if nt := m.NextTarget(); nt != nil {
		return *nt
	}
	return leaf.Target
}

// Complete reports whether every leaf has been consumed (spec §8's
// execution-plan completeness invariant).
func (p *ExecutionPlan) Complete() bool { return len(p.Frontier) == 0 }

// attach creates a new EpNode wrapping m, attached under parent (nil
// meaning "becomes the plan's root" — valid only the first time, while
// p.Root is still nil), and returns the updated plan alongside the
// newly created node so the caller can attach further children under
// it (see ExtendBranch). It never touches the Frontier.
func (p *ExecutionPlan) attach(parent *EpNode, m Module) (*ExecutionPlan, *EpNode) {
	newNode := &EpNode{Module: m}
	newRoot := newNode
	if parent != nil {
		newRoot = attachUnder(p.Root, parent, newNode)
	}
	return &ExecutionPlan{Root: newRoot, Frontier: p.Frontier, BDD: p.BDD, Memo: p.Memo}, newNode
}

func cloneFrontierWithout(frontier []Leaf, leafIdx int) []Leaf {
	out := make([]Leaf, 0, len(frontier)-1)
	for i, l := range frontier {
		if i != leafIdx {
			out = append(out, l)
		}
	}
	return out
}

func cloneMemo(m map[bdd.NodeId]any) map[bdd.NodeId]any {
	out := make(map[bdd.NodeId]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Extend returns a new ExecutionPlan with the leaf at index leafIdx
// replaced by module m attached at that leaf's position, and zero or
// more new pending leaves (nextBDDNodes) added under m. The returned
// plan shares no mutable state with p.
func (p *ExecutionPlan) Extend(leafIdx int, m Module, nextBDDNodes []bdd.NodeId) *ExecutionPlan {
	leaf := p.Frontier[leafIdx]
	next, newNode := p.attach(leaf.Parent, m)

	nextTarget := nextTargetFor(leaf, m)
	frontier := cloneFrontierWithout(p.Frontier, leafIdx)
	for _, nb := range nextBDDNodes {
		frontier = append(frontier, Leaf{Parent: newNode, NextBDDNode: nb, Target: nextTarget})
	}

	return &ExecutionPlan{Root: next.Root, Frontier: frontier, BDD: p.BDD, Memo: cloneMemo(p.Memo)}
}

// ExtendBranch atomically attaches a Branch-shaped module pair (spec's
// If/Then/Else, matched together as one transformation of the plan):
// branch becomes the new node at the matched leaf's position, with
// trueChild and falseChild attached as its two direct children, each
// carrying its own pending leaf (trueNext/falseNext). Then/Else are
// purely structural — they consume no BDD node of their own, which is
// why this takes the two next BDD node ids directly rather than
// threading them through a second TryMatch round.
func (p *ExecutionPlan) ExtendBranch(leafIdx int, branch, trueChild, falseChild Module, trueNext, falseNext bdd.NodeId) *ExecutionPlan {
	leaf := p.Frontier[leafIdx]
	p1, branchNode := p.attach(leaf.Parent, branch)
	// branchNode was just created by attach and no other plan shares
	// it yet, so its two children are set in place.
	trueNode := &EpNode{Module: trueChild}
	falseNode := &EpNode{Module: falseChild}
	branchNode.Children = []*EpNode{trueNode, falseNode}

	frontier := cloneFrontierWithout(p.Frontier, leafIdx)
	frontier = append(frontier,
		Leaf{Parent: trueNode, NextBDDNode: trueNext, Target: nextTargetFor(leaf, trueChild)},
		Leaf{Parent: falseNode, NextBDDNode: falseNext, Target: nextTargetFor(leaf, falseChild)},
	)

	return &ExecutionPlan{Root: p1.Root, Frontier: frontier, BDD: p.BDD, Memo: cloneMemo(p.Memo)}
}

// WithMemo returns a copy of p with key recorded in the memo — used by
// the chunk-consume modules to record a borrowed chunk — without
// mutating p itself.
func (p *ExecutionPlan) WithMemo(key bdd.NodeId, value any) *ExecutionPlan {
	memo := make(map[bdd.NodeId]any, len(p.Memo)+1)
	for k, v := range p.Memo {
		memo[k] = v
	}
	memo[key] = value
	return &ExecutionPlan{Root: p.Root, Frontier: p.Frontier, BDD: p.BDD, Memo: memo}
}

// attachUnder rebuilds the path from n down to the node pointer-equal
// to target, copying every EpNode along the way (and only those) so
// the original tree referenced by any other ExecutionPlan is
// untouched, then appends newChild under the rebuilt copy of target.
func attachUnder(n, target, newChild *EpNode) *EpNode {
	if n == target {
		cp := &EpNode{Module: n.Module, Children: append([]*EpNode(nil), n.Children...)}
		cp.Children = append(cp.Children, newChild)
		return cp
	}
	for i, c := range n.Children {
		if sub := attachUnder(c, target, newChild); sub != c {
			cp := &EpNode{Module: n.Module, Children: append([]*EpNode(nil), n.Children...)}
			cp.Children[i] = sub
			return cp
		}
	}
	return n
}

// Visit walks the plan's tree in child order, invoking v for every
// module (spec's "visit(visitor)" hook, driven from the plan level).
func (p *ExecutionPlan) Visit(v Visitor) {
	var walk func(n *EpNode)
	walk = func(n *EpNode) {
		if n == nil {
			return
		}
		n.Module.Visit(v)
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(p.Root)
}
