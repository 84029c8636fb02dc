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

package bdd

import "sort"

// CloneWithRenumbering returns a deep copy of b with every node given
// a fresh, densely-packed id starting at 0 (spec §3: "the BDD is
// immutable after construction except for one operation,
// clone_with_renumbering... used by the synthesizer when a module
// rewrites a subtree"). Node content (Call, Condition, etc.) is shared
// by reference — only the id space and the edges that reference it
// are copied.
func (b *BDD) CloneWithRenumbering() *BDD {
	old := make([]NodeId, 0, len(b.nodes))
	for id := range b.nodes {
		old = append(old, id)
	}
	sort.Slice(old, func(i, j int) bool { return old[i] < old[j] })

	remap := make(map[NodeId]NodeId, len(old))
	for i, id := range old {
		remap[id] = NodeId(i)
	}
	remapId := func(id NodeId) NodeId {
		if id == NoNode {
			return NoNode
		}
		return remap[id]
	}

	out := &BDD{nodes: make(map[NodeId]*Node, len(old)), nextId: NodeId(len(old))}
	for _, id := range old {
		n := *b.nodes[id]
		n.Id = remapId(id)
		switch n.Kind {
		case KCall:
			n.Next = remapId(n.Next)
		case KBranch:
			n.OnTrue = remapId(n.OnTrue)
			n.OnFalse = remapId(n.OnFalse)
		}
		out.nodes[n.Id] = &n
	}
	out.InitRoot = remapId(b.InitRoot)
	out.ProcessRoot = remapId(b.ProcessRoot)
	return out
}
