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

// Module is one target-specific lowering rule (spec §4.5's "polymorphic
// object in one of the backend-specific families"): a type tag, a
// target, a display name, and a reference to the BDD node(s) it
// consumed (Node). TryMatch/Visit/Equals are its three behavioral
// hooks (spec §3.2's "Module").
type Module interface {
	// Name is the module's display name, e.g. "PacketBorrowNextChunk".
	Name() string
	// Target is the backend this module instance was matched for.
	Target() Target
	// Node is the BDD node this module consumed (nil for a module that
	// consumed none, e.g. a merged TableLookup that only appended a
	// key to a prior module).
	Node() *bdd.Node
	// NextTarget is set when this module hands the remainder of the
	// plan to a different target (synapse/modules/module.h's
	// next_target field), e.g. Tofino's SendToController handing off
	// to x86. nil means "stay on the current target."
	NextTarget() *Target
	// TryMatch inspects bddNode against plan's accumulated state and
	// returns the successor plans this match produces, or nil if the
	// module doesn't apply here.
	TryMatch(plan *ExecutionPlan, bddNode *bdd.Node) []*ExecutionPlan
	// Visit drives a code-gen traversal (spec's "visit(visitor)").
	Visit(v Visitor)
	// Equals reports whether other is a module of the same kind
	// consuming the same BDD node, for execution-plan deduplication
	// (spec §8's "module.equals(module.clone()) = true").
	Equals(other Module) bool
}

// base is embedded by every concrete module to avoid repeating the
// Name/Target/Node/NextTarget accessors (original_source's __Module
// base class plays the same role for the C++ module hierarchy).
type base struct {
	name       string
	target     Target
	node       *bdd.Node
	nextTarget *Target
}

func (b *base) Name() string        { return b.name }
func (b *base) Target() Target      { return b.target }
func (b *base) Node() *bdd.Node     { return b.node }
func (b *base) NextTarget() *Target { return b.nextTarget }
