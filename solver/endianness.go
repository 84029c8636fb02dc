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

package solver

import "github.com/pmdm56/vigor-klee-sub000/expr"

// PacketChunksArray is the symbolic byte-array name the upstream
// executor uses for the packet buffer (spec §3).
const PacketChunksArray = "packet_chunks"

// swapGroups lists the multi-byte wire-endian fields of the header
// layout the upstream symbolic executor assumes, as byte-offset spans.
// This is exactly the data table spec §9's design note calls for: "the
// byte layout convention assumed by the upstream symbolic executor,"
// tagged by protocol layer, not re-derived from any general rule.
//
//   - Ethernet (offset 0): only EtherType (12-13) is a multi-byte field.
//   - IPv4 (offset 14): total length, identification, flags+frag offset,
//     header checksum, and the two addresses.
//   - L4 (offset 34): source/destination port plus, when the header is
//     TCP, sequence/ack numbers, the flags word, window, checksum and
//     urgent pointer; option bytes beyond the fixed TCP header (54-85)
//     are treated conservatively as a run of 32-bit fields.
var swapGroups = []struct {
	layer string
	start int
	width int // bytes per swapped field
	count int // number of consecutive fields of that width
}{
	{"ethernet", 12, 2, 1},  // EtherType
	{"ipv4", 16, 2, 1},      // Total Length
	{"ipv4", 18, 2, 1},      // Identification
	{"ipv4", 20, 2, 1},      // Flags + Fragment Offset
	{"ipv4", 24, 2, 1},      // Header Checksum
	{"ipv4", 26, 4, 2},      // Source Address, Destination Address
	{"l4", 34, 2, 2},        // Source Port, Destination Port
	{"l4", 38, 4, 2},        // Sequence Number, Ack Number
	{"l4", 46, 2, 4},        // Flags, Window, Checksum, Urgent Pointer
	{"l4-options", 54, 4, 8}, // conservative: treat remaining fixed bytes as u32 words
}

const packetChunkTableLen = 86

// packetChunkPermutation maps byte index i (0..85) to the index it
// should be read from after a wire-to-host endianness swap: within each
// multi-byte field above, byte order is reversed; single bytes outside
// any field (padding between Ethernet addresses and EtherType, IPv4
// per-byte fields like TTL/Protocol, etc.) map to themselves.
var packetChunkPermutation = buildPacketChunkPermutation()

func buildPacketChunkPermutation() [packetChunkTableLen]int {
	var perm [packetChunkTableLen]int
	for i := range perm {
		perm[i] = i
	}
	for _, g := range swapGroups {
		for f := 0; f < g.count; f++ {
			base := g.start + f*g.width
			for b := 0; b < g.width; b++ {
				if base+b >= packetChunkTableLen {
					continue
				}
				perm[base+b] = base + (g.width - 1 - b)
			}
		}
	}
	return perm
}

// SwapPacketEndianness rebuilds e, reordering the constant byte index of
// any Read into PacketChunksArray per the permutation table above. Reads
// at a non-constant index, or on any other array, pass through
// unchanged. It is applied before equality checks when comparing two
// expressions that may reference packet bytes under different
// endianness conventions (spec §4.2, S5).
type SwapPacketEndianness struct {
	target *expr.Arena
	memo   map[expr.Id]*expr.Expr
}

// NewSwapPacketEndianness builds the visitor targeting target.
func NewSwapPacketEndianness(target *expr.Arena) *SwapPacketEndianness {
	return &SwapPacketEndianness{target: target, memo: make(map[expr.Id]*expr.Expr)}
}

// Apply rebuilds e with packet_chunks indices permuted.
func (s *SwapPacketEndianness) Apply(e *expr.Expr) *expr.Expr {
	if v, ok := s.memo[e.Id()]; ok {
		return v
	}
	var out *expr.Expr
	if e.Kind() == expr.KRead && e.Array() == PacketChunksArray && e.Index().Kind() == expr.KConstant {
		i := int(e.Index().Value())
		if i >= 0 && i < packetChunkTableLen {
			i = packetChunkPermutation[i]
		}
		out = expr.Read(s.target, e.Array(), expr.Const(s.target, uint64(i), e.Index().Width()))
	} else if e.Kind() == expr.KRead {
		out = expr.Read(s.target, e.Array(), s.Apply(e.Index()))
	} else {
		out = rebuildOther(s.target, e, s.Apply)
	}
	s.memo[e.Id()] = out
	return out
}
