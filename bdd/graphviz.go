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

import (
	"fmt"
	"io"
	"sort"
)

// Graphviz dumps b as dot(1)-compatible text (spec §6's --gv debugging
// dump), with both the init and process sub-BDDs as separate clusters.
func Graphviz(b *BDD, dst io.Writer) error {
	if _, err := io.WriteString(dst, "digraph bdd {\n"); err != nil {
		return err
	}
	if err := gvCluster(b, dst, "init", b.InitRoot); err != nil {
		return err
	}
	if err := gvCluster(b, dst, "process", b.ProcessRoot); err != nil {
		return err
	}
	_, err := io.WriteString(dst, "}\n")
	return err
}

func gvCluster(b *BDD, dst io.Writer, label string, root NodeId) error {
	fmt.Fprintf(dst, "subgraph cluster_%s {\nlabel=%q;\ncolor=lightgrey;\n", label, label)

	seen := make(map[NodeId]bool)
	var ids []NodeId
	var walk func(id NodeId)
	walk = func(id NodeId) {
		if id == NoNode || seen[id] {
			return
		}
		seen[id] = true
		ids = append(ids, id)
		n := b.nodes[id]
		switch n.Kind {
		case KCall:
			walk(n.Next)
		case KBranch:
			walk(n.OnTrue)
			walk(n.OnFalse)
		}
	}
	walk(root)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		n := b.nodes[id]
		fmt.Fprintf(dst, "%s_%d [label=%q];\n", label, id, gvLabel(n))
		switch n.Kind {
		case KCall:
			if n.Next != NoNode {
				fmt.Fprintf(dst, "%s_%d -> %s_%d;\n", label, id, label, n.Next)
			}
		case KBranch:
			fmt.Fprintf(dst, "%s_%d -> %s_%d [label=\"true\"];\n", label, id, label, n.OnTrue)
			fmt.Fprintf(dst, "%s_%d -> %s_%d [label=\"false\"];\n", label, id, label, n.OnFalse)
		}
	}

	_, err := io.WriteString(dst, "}\n")
	return err
}

func gvLabel(n *Node) string {
	switch n.Kind {
	case KCall:
		return fmt.Sprintf("%d:%s", n.Id, n.Call.Function)
	case KBranch:
		return fmt.Sprintf("%d:%s", n.Id, n.Condition.String())
	case KReturnInit:
		return fmt.Sprintf("%d:return %s", n.Id, n.InitValue.String())
	case KReturnProcess:
		return fmt.Sprintf("%d:%s", n.Id, n.Op.String())
	}
	return fmt.Sprintf("%d:?", n.Id)
}
