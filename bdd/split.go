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
	"github.com/pmdm56/vigor-klee-sub000/callpath"
	"github.com/pmdm56/vigor-klee-sub000/expr"
)

// populateInit walks the raw tree and copies everything up to (but
// not including) the first start_time call into the init sub-BDD,
// emitting a ReturnInit leaf there (spec §4.4).
func populateInit(b *BDD, raw *rawNode) NodeId {
	var root, leaf NodeId = NoNode, NoNode
	appendNode := func(n *Node) {
		id := b.allocate(n)
		if root == NoNode {
			root = id
			leaf = id
		} else {
			b.nodes[leaf].Next = id
			leaf = id
		}
	}

	for raw != nil {
		switch raw.kind {
		case rawCall:
			if raw.call.Function == startTimeMarker {
				appendNode(&Node{
					Kind:        KReturnInit,
					InitValue:   Success,
					Filenames:   raw.filenames,
					Constraints: raw.constraints,
				})
				raw = nil
				continue
			}
			if !skipFunctions[raw.call.Function] {
				appendNode(&Node{
					Kind:             KCall,
					Call:             raw.call,
					GeneratedSymbols: raw.generatedSymbols,
					Next:             NoNode,
					Filenames:        raw.filenames,
					Constraints:      raw.constraints,
					MissingCalls:     raw.missingCalls,
				})
			}
			raw = raw.next

		case rawBranch:
			onTrue := populateInit(b, raw.onTrue)
			onFalse := populateInit(b, raw.onFalse)
			appendNode(&Node{
				Kind:        KBranch,
				Condition:   raw.condition,
				OnTrue:      onTrue,
				OnFalse:     onFalse,
				Filenames:   raw.filenames,
				Constraints: raw.constraints,
			})
			raw = nil

		case rawReturn:
			appendNode(&Node{
				Kind:         KReturnInit,
				InitValue:    inferReturnInit(),
				Filenames:    raw.filenames,
				Constraints:  raw.constraints,
				MissingCalls: raw.missingCalls,
			})
			raw = nil
		}
	}

	if root == NoNode {
		root = b.allocate(&Node{Kind: KReturnInit, InitValue: Success, Next: NoNode})
	}
	return root
}

// populateProcess walks the raw tree after the first start_time call,
// emitting a ReturnProcess leaf where the raw tree ends (spec §4.4).
// store tracks whether start_time has been seen yet on this branch of
// the walk; it becomes true the first time a start_time call is
// encountered and is threaded through recursive calls on Branch nodes
// exactly as the upstream construction does. seen accumulates every
// call walked since start_time (including ones skipFunctions drops
// from the emitted tree, such as packet_receive) — a terminal
// ReturnProcess leaf classifies Fwd/Drop/Broadcast/Err by counting
// packet_send/packet_receive over this walked history, not over calls
// that never happened on this path.
func populateProcess(b *BDD, raw *rawNode, store bool, seen []*callpath.Call) (NodeId, bool) {
	var root, leaf NodeId = NoNode, NoNode
	appendNode := func(n *Node) {
		id := b.allocate(n)
		if root == NoNode {
			root = id
			leaf = id
		} else {
			b.nodes[leaf].Next = id
			leaf = id
		}
	}

	for raw != nil {
		switch raw.kind {
		case rawCall:
			if raw.call.Function == startTimeMarker {
				store = true
				raw = raw.next
				continue
			}
			if store {
				seen = append(seen, raw.call)
				if !skipFunctions[raw.call.Function] {
					appendNode(&Node{
						Kind:             KCall,
						Call:             raw.call,
						GeneratedSymbols: raw.generatedSymbols,
						Next:             NoNode,
						Filenames:        raw.filenames,
						Constraints:      raw.constraints,
						MissingCalls:     raw.missingCalls,
					})
				}
			}
			raw = raw.next

		case rawBranch:
			onTrueId, _ := populateProcess(b, raw.onTrue, store, append([]*callpath.Call(nil), seen...))
			onFalseId, _ := populateProcess(b, raw.onFalse, store, append([]*callpath.Call(nil), seen...))
			onTrueNode, onFalseNode := b.nodes[onTrueId], b.nodes[onFalseId]

			skip := isSkipCondition(raw.condition)
			equal := sameReturnProcess(onTrueNode, onFalseNode)

			switch {
			case store && equal:
				if root == NoNode {
					root = onTrueId
				} else {
					b.nodes[leaf].Next = onTrueId
				}
				delete(b.nodes, onFalseId)
				return finish(b, root, leaf), store
			case store && !skip:
				appendNode(&Node{
					Kind:        KBranch,
					Condition:   raw.condition,
					OnTrue:      onTrueId,
					OnFalse:     onFalseId,
					Filenames:   raw.filenames,
					Constraints: raw.constraints,
				})
				raw = nil
			default:
				onFalseEmpty := isEmptyProcessLeaf(onFalseNode)
				var keep NodeId
				if onFalseEmpty {
					keep = onTrueId
				} else {
					keep = onFalseId
				}
				dropped := onFalseId
				if keep == onFalseId {
					dropped = onTrueId
				}
				delete(b.nodes, dropped)
				if root == NoNode {
					root = keep
				} else {
					b.nodes[leaf].Next = keep
				}
				return finish(b, root, leaf), store
			}

		case rawReturn:
			op, port := classifyReturnProcess(seen)
			appendNode(&Node{
				Kind:         KReturnProcess,
				Op:           op,
				Port:         port,
				Filenames:    raw.filenames,
				Constraints:  raw.constraints,
				MissingCalls: raw.missingCalls,
			})
			raw = nil
		}
	}

	return finish(b, root, leaf), store
}

func finish(b *BDD, root, leaf NodeId) NodeId {
	_ = leaf
	if root == NoNode {
		return b.allocate(&Node{Kind: KReturnProcess, Op: OpErr, Port: -1})
	}
	return root
}

func isEmptyProcessLeaf(n *Node) bool {
	if n.Kind == KReturnInit {
		return true
	}
	if n.Kind == KReturnProcess {
		return n.Op == OpErr
	}
	return false
}

func sameReturnProcess(a, b *Node) bool {
	return a.Kind == KReturnProcess && b.Kind == KReturnProcess && a.Op == b.Op && a.Port == b.Port
}

func isSkipCondition(cond *expr.Expr) bool {
	if cond == nil {
		return false
	}
	for _, sym := range expr.RetrieveSymbols(cond) {
		if skipConditionSymbols[sym] {
			return true
		}
	}
	return false
}
