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

// X86Modules builds the x86 software-dataplane catalogue named in spec
// §4.5 ("essentially one module per LibVig call, plus control flow"):
// a direct Call/ReturnProcess pass-through for every LibVig function
// the software backend can execute as-is, with no protocol-aware
// lowering (that's Tofino/BMv2's job — see P4Modules).
func X86Modules() []Module {
	return []Module{
		newReturnModule(bdd.OpFwd, "Forward", X86),
		newReturnModule(bdd.OpDrop, "Drop", X86),
		newReturnModule(bdd.OpBroadcast, "Broadcast", X86),
		newBranchModule(X86),
		newIgnoreModule(X86),
		newCallModule("current_time", "CurrentTime", X86),
		newCallModule("packet_borrow_next_chunk", "PacketBorrowNextChunk", X86),
		newCallModule("packet_return_chunk", "PacketReturnChunk", X86),
		newCallModule("packet_get_unread_length", "PacketGetUnreadLength", X86),
		newCallModule("map_get", "MapGet", X86),
		newCallModule("map_put", "MapPut", X86),
		newCallModule("vector_borrow", "VectorBorrow", X86),
		newCallModule("vector_return", "VectorReturn", X86),
		newCallModule("dchain_allocate_new_index", "DchainAllocateNewIndex", X86),
		newCallModule("dchain_is_index_allocated", "DchainIsIndexAllocated", X86),
		newCallModule("dchain_rejuvenate_index", "DchainRejuvenateIndex", X86),
		newCallModule("dchain_free_index", "DchainFreeIndex", X86),
		newCallModule("expire_items_single_map", "ExpireItemsSingleMap", X86),
		newCallModule("rte_ether_addr_hash", "RteEtherAddrHash", X86),
		newCallModule("set_ipv4_udp_tcp_checksum", "SetIpv4UdpTcpChecksum", X86),
	}
}
