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

// TryMatch is always invoked by Synthesize against frontier index 0
// (search.go's pickLeaf always returns 0 — leaves of one plan are
// explored left to right, never interleaved); every module below
// extends leaf index 0 for that reason.
const matchedLeaf = 0

// callModule is the pass-through matcher shared by every module that
// consumes exactly one Call node unconditionally and advances straight
// to that node's Next successor — spec §4.5's "essentially one module
// per LibVig call" rule, for the calls with no additional
// preconditions (CurrentTime, PacketBorrowNextChunk, MapGet, ...).
type callModule struct {
	base
	function string
}

func newCallModule(function, name string, target Target) *callModule {
	return &callModule{base: base{name: name, target: target}, function: function}
}

func (m *callModule) TryMatch(plan *ExecutionPlan, bddNode *bdd.Node) []*ExecutionPlan {
	if bddNode.Kind != bdd.KCall || bddNode.Call.Function != m.function {
		return nil
	}
	inst := &callModule{base: base{name: m.name, target: m.target, node: bddNode}, function: m.function}
	return []*ExecutionPlan{plan.Extend(matchedLeaf, inst, []bdd.NodeId{bddNode.Next})}
}

func (m *callModule) Visit(v Visitor) { v.VisitModule(m.name, m.function) }

func (m *callModule) Equals(other Module) bool {
	o, ok := other.(*callModule)
	return ok && o.function == m.function && o.node == m.node
}

// returnModule matches a terminal bdd.KReturnProcess node whose Op is
// op, producing a plan leaf with no successors (the match is the end
// of that branch of the plan). Forward/Drop/Broadcast all share this
// shape; Forward/Drop additionally surface the BDD's Port.
type returnModule struct {
	base
	op bdd.ReturnOp
}

func newReturnModule(op bdd.ReturnOp, name string, target Target) *returnModule {
	return &returnModule{base: base{name: name, target: target}, op: op}
}

func (m *returnModule) TryMatch(plan *ExecutionPlan, bddNode *bdd.Node) []*ExecutionPlan {
	if bddNode.Kind != bdd.KReturnProcess || bddNode.Op != m.op {
		return nil
	}
	inst := &returnModule{base: base{name: m.name, target: m.target, node: bddNode}, op: m.op}
	return []*ExecutionPlan{plan.Extend(matchedLeaf, inst, nil)}
}

func (m *returnModule) Port() int { return m.node.Port }

func (m *returnModule) Visit(v Visitor) { v.VisitModule(m.name, "") }

func (m *returnModule) Equals(other Module) bool {
	o, ok := other.(*returnModule)
	return ok && o.op == m.op && o.node == m.node
}

// ignoreModule matches a packet_return_chunk Call whose
// build_modifications diff is empty and drops it from the plan without
// recording a module-visible call. It matches no other call.
type ignoreModule struct {
	base
}

func newIgnoreModule(target Target) *ignoreModule {
	return &ignoreModule{base: base{name: "Ignore", target: target}}
}

func (m *ignoreModule) TryMatch(plan *ExecutionPlan, bddNode *bdd.Node) []*ExecutionPlan {
	if bddNode.Kind != bdd.KCall || bddNode.Call.Function != "packet_return_chunk" {
		return nil
	}
	if len(buildModifications(plan, bddNode)) != 0 {
		return nil
	}
	inst := &ignoreModule{base: base{name: "Ignore", target: m.target, node: bddNode}}
	return []*ExecutionPlan{plan.Extend(matchedLeaf, inst, []bdd.NodeId{bddNode.Next})}
}

func (m *ignoreModule) Visit(v Visitor) { v.VisitModule(m.name, "packet_return_chunk") }

func (m *ignoreModule) Equals(other Module) bool {
	o, ok := other.(*ignoreModule)
	return ok && o.node == m.node
}

// branchModule pair matches a bdd.KBranch node, attaching structural
// Then/Else children (spec's "branch modules emit two leaves").
type branchModule struct {
	base
}

func newBranchModule(target Target) *branchModule {
	return &branchModule{base: base{name: "If", target: target}}
}

func (m *branchModule) TryMatch(plan *ExecutionPlan, bddNode *bdd.Node) []*ExecutionPlan {
	if bddNode.Kind != bdd.KBranch {
		return nil
	}
	ifMod := &branchModule{base: base{name: "If", target: m.target, node: bddNode}}
	thenMod := &thenElseModule{base: base{name: "Then", target: m.target}}
	elseMod := &thenElseModule{base: base{name: "Else", target: m.target}}
	return []*ExecutionPlan{plan.ExtendBranch(matchedLeaf, ifMod, thenMod, elseMod, bddNode.OnTrue, bddNode.OnFalse)}
}

func (m *branchModule) Visit(v Visitor) { v.VisitModule(m.name, "") }

func (m *branchModule) Equals(other Module) bool {
	o, ok := other.(*branchModule)
	return ok && o.node == m.node
}

// thenElseModule is the structural child a branchModule match attaches
// under itself (spec: "Then"/"Else" consume no BDD node of their own).
type thenElseModule struct {
	base
}

func (m *thenElseModule) TryMatch(*ExecutionPlan, *bdd.Node) []*ExecutionPlan { return nil }
func (m *thenElseModule) Visit(v Visitor)                                    { v.VisitModule(m.name, "") }
func (m *thenElseModule) Equals(other Module) bool {
	o, ok := other.(*thenElseModule)
	return ok && o.name == m.name
}

// sendToControllerModule is the Tofino/BMv2 → x86 escape hatch (spec:
// "clones the remainder of the BDD into a standalone subgraph and
// attaches it under a new x86 leaf, then terminates the current (P4)
// plan's leaf by emitting a synthetic cpu-port forward"). It matches
// any Call node whose function is not in p4RecognizedCalls. Synthesize
// tries every catalogue entry at each leaf, so its position in the
// catalogue does not limit when it matches.
//
// The BDD is immutable after construction (spec §3), so an explicit
// standalone copy of the remainder buys no independence an in-place
// sub-synthesis over the same *bdd.BDD doesn't already have; this
// module re-synthesizes the x86 continuation eagerly, at match time,
// directly against plan.BDD rather than against a
// CloneWithRenumbering'd copy.
type sendToControllerModule struct {
	base
	subPlan *ExecutionPlan
	subErr  error
}

// p4RecognizedCalls are the LibVig functions SendToController never
// fires on; it fires on every other Call node (the spec §8 S4 case).
// expire_items_single_map is not in the set, so both
// SetupExpirationNotifications and SendToController match it.
var p4RecognizedCalls = map[string]bool{
	"packet_borrow_next_chunk":  true,
	"packet_return_chunk":       true,
	"map_get":                   true,
	"vector_borrow":             true,
	"dchain_allocate_new_index": true,
	"set_ipv4_udp_tcp_checksum": true,
}

func newSendToControllerModule(target Target) *sendToControllerModule {
	x86 := X86
	return &sendToControllerModule{base: base{name: "SendToController", target: target, nextTarget: &x86}}
}

func (m *sendToControllerModule) TryMatch(plan *ExecutionPlan, bddNode *bdd.Node) []*ExecutionPlan {
	if bddNode.Kind != bdd.KCall || p4RecognizedCalls[bddNode.Call.Function] {
		return nil
	}
	sub, err := Synthesize(plan.BDD, bddNode.Id, X86, DefaultCatalogue(), P4AbsorptionHeuristic{})
	inst := &sendToControllerModule{
		base:    base{name: m.name, target: m.target, node: bddNode, nextTarget: m.nextTarget},
		subPlan: sub,
		subErr:  err,
	}
	return []*ExecutionPlan{plan.Extend(matchedLeaf, inst, nil)}
}

func (m *sendToControllerModule) Visit(v Visitor) {
	v.VisitModule(m.name, "")
	if m.subPlan != nil {
		m.subPlan.Visit(v)
	}
}

func (m *sendToControllerModule) Equals(other Module) bool {
	o, ok := other.(*sendToControllerModule)
	return ok && o.node == m.node
}
