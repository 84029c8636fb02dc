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

import (
	"github.com/pmdm56/vigor-klee-sub000/bdd"
	"github.com/pmdm56/vigor-klee-sub000/callpath"
	"github.com/pmdm56/vigor-klee-sub000/expr"
)

// Reserved Memo keys above any real BDD NodeId, one per protocol
// layer's borrowed chunk value, so a later layer's protoCheck can read
// the packet bytes an earlier chunkConsumeModule match borrowed
// without re-walking the plan tree for it.
const (
	memoEthernetChunk bdd.NodeId = 1<<63 + 1
	memoIPv4Chunk     bdd.NodeId = 1<<63 + 2
)

// chunkConsumeModule matches a Tofino/BMv2 header-parser stage (spec
// §4.5's EthernetConsume/IPv4Consume/TcpUdpConsume/IPOptionsConsume):
// a packet_borrow_next_chunk call whose length satisfies lengthOK, on
// a path where the previous layer (if any) has already been consumed
// exactly once and whose protocol field (protoOK, reading the prior
// layer's chunk from Memo) is must-be-true under the node's
// constraints.
type chunkConsumeModule struct {
	base
	layer    int
	memoKey  bdd.NodeId // 0 if this layer has nothing later layers need to read
	prevKey  bdd.NodeId // 0 if there's no previous layer to require
	lengthOK func(arg callpath.Arg) bool
	protoOK  func(prevChunk *expr.Expr, constraints []*expr.Expr) bool
}

func (m *chunkConsumeModule) TryMatch(plan *ExecutionPlan, bddNode *bdd.Node) []*ExecutionPlan {
	if bddNode.Kind != bdd.KCall || bddNode.Call.Function != "packet_borrow_next_chunk" {
		return nil
	}
	if chunkAlreadyConsumed(plan.Root, m.layer) {
		return nil
	}
	if m.prevKey != 0 && !chunkAlreadyConsumed(plan.Root, m.layer-1) {
		return nil
	}
	lenArg, ok := bddNode.Call.Arg("length")
	if !ok || (m.lengthOK != nil && !m.lengthOK(lenArg)) {
		return nil
	}
	if m.protoOK != nil {
		prev, ok := plan.Memo[m.prevKey].(*expr.Expr)
		if !ok || !m.protoOK(prev, flattenConstraints(bddNode.Constraints)) {
			return nil
		}
	}

	inst := &chunkConsumeModule{base: base{name: m.name, target: m.target, node: bddNode}, layer: m.layer}
	next := plan.Extend(matchedLeaf, inst, []bdd.NodeId{bddNode.Next})
	if m.memoKey != 0 {
		if chunkArg, ok := bddNode.Call.Arg("chunk"); ok && chunkArg.Out != nil {
			next = next.WithMemo(m.memoKey, chunkArg.Out)
		}
	}
	return []*ExecutionPlan{next}
}

func (m *chunkConsumeModule) Visit(v Visitor) { v.VisitModule(m.name, "packet_borrow_next_chunk") }

func (m *chunkConsumeModule) Equals(other Module) bool {
	o, ok := other.(*chunkConsumeModule)
	return ok && o.layer == m.layer && o.node == m.node
}

func chunkAlreadyConsumed(n *EpNode, layer int) bool {
	if n == nil {
		return false
	}
	if cm, ok := n.Module.(*chunkConsumeModule); ok && cm.layer == layer {
		return true
	}
	for _, c := range n.Children {
		if chunkAlreadyConsumed(c, layer) {
			return true
		}
	}
	return false
}

func fixedLength(n uint64) func(callpath.Arg) bool {
	return func(a callpath.Arg) bool {
		return a.Expr != nil && a.Expr.Kind() == expr.KConstant && a.Expr.Value() == n
	}
}

func variableLength(a callpath.Arg) bool {
	return a.Expr != nil && a.Expr.Kind() != expr.KConstant
}

// etherTypeIPv4 is spec §4.5's "is-valid-IPv4" test: "the Ethernet
// ether_type field equals 0x0800 under the current constraints",
// little-endian normalized per S2.
func etherTypeIPv4(ethernetChunk *expr.Expr, constraints []*expr.Expr) bool {
	if ethernetChunk == nil {
		return false
	}
	field := expr.Extract(ethernetChunk.Arena(), ethernetChunk, 12*8, 16)
	want := expr.Const(ethernetChunk.Arena(), 0x0008, 16)
	eq := expr.Eq(ethernetChunk.Arena(), field, want)
	return defaultSolver.MustBeTrue(constraints, eq)
}

const (
	ipProtoTCP = 6
	ipProtoUDP = 17
)

// nextProtoTCPOrUDP is spec §4.5's "is-valid-TcpUdp" test: "the IPv4
// next_proto_id byte to be IPPROTO_TCP ∨ IPPROTO_UDP".
func nextProtoTCPOrUDP(ipv4Chunk *expr.Expr, constraints []*expr.Expr) bool {
	if ipv4Chunk == nil {
		return false
	}
	field := expr.Extract(ipv4Chunk.Arena(), ipv4Chunk, 9*8, 8)
	isTCP := expr.Eq(ipv4Chunk.Arena(), field, expr.Const(ipv4Chunk.Arena(), ipProtoTCP, 8))
	isUDP := expr.Eq(ipv4Chunk.Arena(), field, expr.Const(ipv4Chunk.Arena(), ipProtoUDP, 8))
	either := expr.Or(ipv4Chunk.Arena(), isTCP, isUDP)
	return defaultSolver.MustBeTrue(constraints, either)
}

func newEthernetConsume(target Target) *chunkConsumeModule {
	return &chunkConsumeModule{
		base:     base{name: "EthernetConsume", target: target},
		layer:    2,
		memoKey:  memoEthernetChunk,
		lengthOK: fixedLength(14),
	}
}

func newIPv4Consume(target Target) *chunkConsumeModule {
	return &chunkConsumeModule{
		base:     base{name: "IPv4Consume", target: target},
		layer:    3,
		memoKey:  memoIPv4Chunk,
		prevKey:  memoEthernetChunk,
		lengthOK: fixedLength(20),
		protoOK:  etherTypeIPv4,
	}
}

func newTcpUdpConsume(target Target) *chunkConsumeModule {
	return &chunkConsumeModule{
		base:     base{name: "TcpUdpConsume", target: target},
		layer:    4,
		prevKey:  memoIPv4Chunk,
		lengthOK: fixedLength(8),
		protoOK:  nextProtoTCPOrUDP,
	}
}

func newIPOptionsConsume(target Target) *chunkConsumeModule {
	return &chunkConsumeModule{
		base:     base{name: "IPOptionsConsume", target: target},
		layer:    3,
		prevKey:  memoEthernetChunk,
		lengthOK: variableLength,
	}
}

// modifyModule matches a packet_return_chunk whose build_modifications
// diff is non-empty (an empty diff is handled by ignoreModule
// instead), for one of the three protocol-scoped *Modify modules.
type modifyModule struct {
	base
}

func newModifyModule(name string, target Target) *modifyModule {
	return &modifyModule{base: base{name: name, target: target}}
}

func (m *modifyModule) TryMatch(plan *ExecutionPlan, bddNode *bdd.Node) []*ExecutionPlan {
	if bddNode.Kind != bdd.KCall || bddNode.Call.Function != "packet_return_chunk" {
		return nil
	}
	if len(buildModifications(plan, bddNode)) == 0 {
		return nil
	}
	inst := &modifyModule{base: base{name: m.name, target: m.target, node: bddNode}}
	return []*ExecutionPlan{plan.Extend(matchedLeaf, inst, []bdd.NodeId{bddNode.Next})}
}

func (m *modifyModule) Visit(v Visitor) { v.VisitModule(m.name, "packet_return_chunk") }

func (m *modifyModule) Equals(other Module) bool {
	o, ok := other.(*modifyModule)
	return ok && o.name == m.name && o.node == m.node
}

// tableLookupModule matches spec §4.5's TableLookup (BMv2) /
// CachedTableLookup (Tofino): a map_get or vector_borrow lifted into a
// declarative match-action table. It rejects when the same table
// object was already looked up earlier on this plan (spec: "rejects
// when the same map/vector object is touched more than once on the
// same prefix"); it does not implement the optional merge-with-prior-
// lookup plan (tracked as an Open Question in DESIGN.md).
type tableLookupModule struct {
	base
	table *expr.Expr
}

func newTableLookupModule(name string, target Target) *tableLookupModule {
	return &tableLookupModule{base: base{name: name, target: target}}
}

func (m *tableLookupModule) TryMatch(plan *ExecutionPlan, bddNode *bdd.Node) []*ExecutionPlan {
	if bddNode.Kind != bdd.KCall {
		return nil
	}
	var tableArg string
	switch bddNode.Call.Function {
	case "map_get":
		tableArg = "map"
	case "vector_borrow":
		tableArg = "vector"
	default:
		return nil
	}
	arg, ok := bddNode.Call.Arg(tableArg)
	if !ok || arg.Expr == nil {
		return nil
	}
	if tableTouchedTwice(plan.Root, arg.Expr) {
		return nil
	}

	inst := &tableLookupModule{base: base{name: m.name, target: m.target, node: bddNode}, table: arg.Expr}
	return []*ExecutionPlan{plan.Extend(matchedLeaf, inst, []bdd.NodeId{bddNode.Next})}
}

func (m *tableLookupModule) Visit(v Visitor) { v.VisitModule(m.name, m.node.Call.Function) }

func (m *tableLookupModule) Equals(other Module) bool {
	o, ok := other.(*tableLookupModule)
	return ok && o.name == m.name && o.node == m.node
}

func tableTouchedTwice(n *EpNode, table *expr.Expr) bool {
	if n == nil {
		return false
	}
	if tl, ok := n.Module.(*tableLookupModule); ok && tl.table != nil && tl.table.Id() == table.Id() {
		return true
	}
	for _, c := range n.Children {
		if tableTouchedTwice(c, table) {
			return true
		}
	}
	return false
}

// portAllocatorAllocateModule matches spec §4.5's PortAllocatorAllocate
// ("synthesized from dchain_allocate_new_index whose ret is
// known-successful").
type portAllocatorAllocateModule struct {
	base
}

func newPortAllocatorAllocate(target Target) *portAllocatorAllocateModule {
	return &portAllocatorAllocateModule{base: base{name: "PortAllocatorAllocate", target: target}}
}

func (m *portAllocatorAllocateModule) TryMatch(plan *ExecutionPlan, bddNode *bdd.Node) []*ExecutionPlan {
	if bddNode.Kind != bdd.KCall || bddNode.Call.Function != "dchain_allocate_new_index" {
		return nil
	}
	if bddNode.Call.Return == nil {
		return nil
	}
	ok := defaultSolver.MustBeTrue(flattenConstraints(bddNode.Constraints),
		expr.Eq(bddNode.Call.Return.Arena(), bddNode.Call.Return, expr.Const(bddNode.Call.Return.Arena(), 0, bddNode.Call.Return.Width())))
	if !ok {
		return nil
	}
	inst := &portAllocatorAllocateModule{base: base{name: m.name, target: m.target, node: bddNode}}
	return []*ExecutionPlan{plan.Extend(matchedLeaf, inst, []bdd.NodeId{bddNode.Next})}
}

func (m *portAllocatorAllocateModule) Visit(v Visitor) {
	v.VisitModule(m.name, "dchain_allocate_new_index")
}

func (m *portAllocatorAllocateModule) Equals(other Module) bool {
	o, ok := other.(*portAllocatorAllocateModule)
	return ok && o.node == m.node
}

// P4Modules builds the Tofino/BMv2SimpleSwitchgRPC catalogue named in
// spec §4.5: protocol-aware header parsers/modifiers, table lookups,
// the port allocator, checksum update, expiration setup, control flow,
// and SendToController as the last entry. Synthesize tries every entry,
// so the order does not limit which modules match; SendToController is
// kept off the calls listed in p4RecognizedCalls instead.
func P4Modules(target Target) []Module {
	return []Module{
		newEthernetConsume(target),
		newModifyModule("EthernetModify", target),
		newIPv4Consume(target),
		newModifyModule("IPv4Modify", target),
		newIPOptionsConsume(target),
		newModifyModule("IPOptionsModify", target),
		newTcpUdpConsume(target),
		newModifyModule("TcpUdpModify", target),
		newTableLookupModule(tableLookupName(target), target),
		newPortAllocatorAllocate(target),
		newCallModule("set_ipv4_udp_tcp_checksum", "UpdateIpv4TcpUdpChecksum", target),
		newCallModule("expire_items_single_map", "SetupExpirationNotifications", target),
		newBranchModule(target),
		newReturnModule(bdd.OpDrop, "Drop", target),
		newReturnModule(bdd.OpFwd, "Forward", target),
		newIgnoreModule(target),
		newSendToControllerModule(target),
	}
}

func tableLookupName(target Target) string {
	if target == Tofino {
		return "CachedTableLookup"
	}
	return "TableLookup"
}
