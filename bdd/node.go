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

// Package bdd builds and serializes the network function's BDD (spec
// §4.4): a tree of Branch/Call/ReturnInit/ReturnProcess nodes obtained
// by repeatedly applying the grouper (group.Split) to a set of call
// paths, then split into an init sub-BDD and a process sub-BDD at the
// first occurrence of the marker call "start_time".
package bdd

import (
	"github.com/pmdm56/vigor-klee-sub000/callpath"
	"github.com/pmdm56/vigor-klee-sub000/expr"
)

// NodeId identifies a node within one BDD. Ids are assigned
// monotonically as nodes are created and are never reused within a
// single construction (spec §3's "ids are unique and monotonically
// assigned").
type NodeId uint64

// NoNode is the "no successor" sentinel, distinct from any real id
// (ids start at 0, so the zero value can't serve as the sentinel).
const NoNode NodeId = ^NodeId(0)

// Kind discriminates a finalized BDD node's variant (spec §3). The
// internal-only ReturnRaw variant the spec documents never survives
// into a *BDD value — it exists only inside the raw tree Build
// constructs before the init/process split.
type Kind int

const (
	KBranch Kind = iota
	KCall
	KReturnInit
	KReturnProcess
)

func (k Kind) String() string {
	switch k {
	case KBranch:
		return "Branch"
	case KCall:
		return "Call"
	case KReturnInit:
		return "ReturnInit"
	case KReturnProcess:
		return "ReturnProcess"
	}
	return "Unknown"
}

// InitResult is ReturnInit's leaf value (spec §3).
type InitResult int

const (
	Success InitResult = iota
	Failure
)

func (r InitResult) String() string {
	if r == Success {
		return "SUCCESS"
	}
	return "FAILURE"
}

// ReturnOp is ReturnProcess's leaf operation (spec §3).
type ReturnOp int

const (
	OpFwd ReturnOp = iota
	OpDrop
	OpBroadcast
	OpErr
)

func (op ReturnOp) String() string {
	switch op {
	case OpFwd:
		return "FORWARD"
	case OpDrop:
		return "DROP"
	case OpBroadcast:
		return "BROADCAST"
	case OpErr:
		return "ERR"
	}
	return "UNKNOWN"
}

// Node is one BDD node (spec §3). Only the fields relevant to Kind are
// populated; the rest are zero.
type Node struct {
	Id   NodeId
	Kind Kind

	// Branch
	Condition *expr.Expr
	OnTrue    NodeId
	OnFalse   NodeId

	// Call
	Call             *callpath.Call
	GeneratedSymbols []callpath.Symbol
	Next             NodeId

	// ReturnInit
	InitValue InitResult

	// ReturnProcess
	Op   ReturnOp
	Port int // valid for OpFwd (dst device) and OpDrop (src device)

	// Provenance (spec §3: "every node also carries the provenance
	// list of source call-path filenames it came from, the per-call-
	// path constraint manager that held at that node, and the
	// remaining un-consumed calls of each call path").
	Filenames    []string
	Constraints  [][]*expr.Expr
	MissingCalls [][]*callpath.Call
}

// BDD is one constructed, immutable (apart from CloneWithRenumbering)
// binary decision diagram: a node table plus the two distinguished
// roots split by the marker call "start_time" (spec §3).
type BDD struct {
	nodes       map[NodeId]*Node
	nextId      NodeId
	InitRoot    NodeId
	ProcessRoot NodeId
}

// Node looks up a node by id. It panics on an unknown id, since every
// NodeId reachable from InitRoot/ProcessRoot is guaranteed present by
// construction — a caller holding a stale NodeId from a different BDD
// is a programmer error.
func (b *BDD) Node(id NodeId) *Node {
	n, ok := b.nodes[id]
	if !ok {
		panic("bdd: unknown node id")
	}
	return n
}

// Len reports how many nodes the BDD holds (both sub-BDDs combined).
func (b *BDD) Len() int { return len(b.nodes) }

func (b *BDD) allocate(n *Node) NodeId {
	id := b.nextId
	b.nextId++
	n.Id = id
	b.nodes[id] = n
	return id
}
