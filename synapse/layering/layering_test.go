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

package layering

import (
	"testing"

	"github.com/pmdm56/vigor-klee-sub000/callpath"
	"github.com/pmdm56/vigor-klee-sub000/expr"
	"github.com/pmdm56/vigor-klee-sub000/solver"
)

// ethernetIPv4Path borrows an Ethernet chunk whose ether_type field is
// fixed to 0x0008 (IPv4), then borrows an IPv4 chunk — mirroring spec
// §4.6's two-layer resolution example.
func ethernetIPv4Path(ar *expr.Arena) *callpath.CallPath {
	// Bytes 0-11 (dst/src MAC) are irrelevant to the test; bytes 12-13
	// are the ether_type field, set to 0x0008 (IPv4, little-endian
	// normalized per the S2 convention x86.go's peers already use).
	etherType := expr.Const(ar, 0x0008, 16)
	macBytes := expr.Const(ar, 0, 12*8)
	ethernetOut := expr.Concat(ar, etherType, macBytes)
	ipv4Out := expr.Const(ar, 0, 20*8)

	return &callpath.CallPath{
		Filename: "layering.callpath",
		Calls: []*callpath.Call{
			{Function: "packet_borrow_next_chunk", Args: []callpath.NamedArg{
				{Name: "length", Arg: callpath.Arg{Expr: expr.Const(ar, 14, 32)}},
				{Name: "chunk", Arg: callpath.Arg{Out: ethernetOut}},
			}},
			{Function: "packet_return_chunk", Args: []callpath.NamedArg{
				{Name: "the_chunk", Arg: callpath.Arg{In: ethernetOut, Out: ethernetOut}},
			}},
			{Function: "packet_borrow_next_chunk", Args: []callpath.NamedArg{
				{Name: "length", Arg: callpath.Arg{Expr: expr.Const(ar, 20, 32)}},
				{Name: "chunk", Arg: callpath.Arg{Out: ipv4Out}},
			}},
			{Function: "packet_return_chunk", Args: []callpath.NamedArg{
				{Name: "the_chunk", Arg: callpath.Arg{In: ipv4Out, Out: ipv4Out}},
			}},
		},
	}
}

func TestAnalyzeResolvesEthernetToIPv4(t *testing.T) {
	ar := expr.NewArena()
	sc := solver.NewContext()
	path := ethernetIPv4Path(ar)

	res := Analyze(sc, path)

	if _, ok := res.Layers[LayerEthernet]; !ok {
		t.Fatalf("Layers = %v, want an entry for LayerEthernet", res.Layers)
	}
	pairs := res.BorrowTable.Pairs()
	if len(pairs) != 2 {
		t.Fatalf("BorrowTable.Pairs() = %d pairs, want 2", len(pairs))
	}
	if pairs[0].Layer != LayerEthernet || pairs[1].Layer != LayerL3 {
		t.Fatalf("pairs = %+v, want layers [Ethernet, L3]", pairs)
	}
	if len(res.Extents) != 2 {
		t.Fatalf("Extents = %+v, want 2 entries", res.Extents)
	}
	if res.OverlappingExtents() {
		t.Fatalf("OverlappingExtents() = true, want false for sequential non-overlapping chunks")
	}
}

func TestAnalyzeEmptyPath(t *testing.T) {
	sc := solver.NewContext()
	res := Analyze(sc, &callpath.CallPath{Filename: "empty"})
	if len(res.Layers) != 0 {
		t.Fatalf("Layers = %v, want empty", res.Layers)
	}
	if len(res.BorrowTable.Pairs()) != 0 {
		t.Fatalf("BorrowTable.Pairs() = %v, want empty", res.BorrowTable.Pairs())
	}
}
