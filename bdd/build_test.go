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
	"bytes"
	"testing"

	"github.com/pmdm56/vigor-klee-sub000/callpath"
	"github.com/pmdm56/vigor-klee-sub000/expr"
	"github.com/pmdm56/vigor-klee-sub000/group"
	"github.com/pmdm56/vigor-klee-sub000/solver"
)

// ethernetOnlyForward mirrors spec §8's S1 scenario, with an explicit
// start_time marker ahead of the packet-processing calls (the scenario's
// own single-call-path listing omits the per-device init boilerplate).
func ethernetOnlyForward(ar *expr.Arena) *callpath.CallPath {
	return &callpath.CallPath{
		Filename: "s1.callpath",
		Calls: []*callpath.Call{
			{Function: "start_time"},
			{Function: "packet_receive", Args: []callpath.NamedArg{
				{Name: "src_devices", Arg: callpath.Arg{Expr: expr.Const(ar, 0, 32)}},
			}},
			{Function: "packet_borrow_next_chunk", Args: []callpath.NamedArg{
				{Name: "length", Arg: callpath.Arg{Expr: expr.Const(ar, 14, 32)}},
			}},
			{Function: "packet_return_chunk", Args: []callpath.NamedArg{
				{Name: "the_chunk", Arg: callpath.Arg{In: expr.Const(ar, 0, 32)}},
			}},
			{Function: "packet_send", Args: []callpath.NamedArg{
				{Name: "dst_device", Arg: callpath.Arg{Expr: expr.Const(ar, 1, 32)}},
			}},
		},
	}
}

func TestBuildEthernetOnlyForward(t *testing.T) {
	ar := expr.NewArena()
	sc := solver.NewContext()
	paths := []*callpath.CallPath{ethernetOnlyForward(ar)}

	b, err := Build(sc, paths, group.Options{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	initNode := b.Node(b.InitRoot)
	if initNode.Kind != KReturnInit || initNode.InitValue != Success {
		t.Fatalf("init root = %+v, want ReturnInit(Success)", initNode)
	}

	var fnames []string
	id := b.ProcessRoot
	for {
		n := b.Node(id)
		if n.Kind != KCall {
			break
		}
		fnames = append(fnames, n.Call.Function)
		id = n.Next
	}
	leaf := b.Node(id)
	if leaf.Kind != KReturnProcess || leaf.Op != OpFwd || leaf.Port != 1 {
		t.Fatalf("process leaf = %+v, want ReturnProcess(Fwd(1))", leaf)
	}
	want := []string{"packet_borrow_next_chunk", "packet_return_chunk"}
	if len(fnames) != len(want) {
		t.Fatalf("process calls = %v, want %v", fnames, want)
	}
	for i := range want {
		if fnames[i] != want[i] {
			t.Fatalf("process calls = %v, want %v", fnames, want)
		}
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	ar := expr.NewArena()
	sc := solver.NewContext()
	paths := []*callpath.CallPath{ethernetOnlyForward(ar)}
	originalConstraints := paths[0].Constraints

	b, err := Build(sc, paths, group.Options{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	var buf bytes.Buffer
	encodePaths := []*callpath.CallPath{{Filename: "s1.callpath", Constraints: originalConstraints}}
	if err := Encode(&buf, b, encodePaths); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	ar2 := expr.NewArena()
	b2, gotPaths, err := Decode(&buf, ar2)
	if err != nil {
		t.Fatalf("Decode: %v\n---\n%s", err, buf.String())
	}
	if len(gotPaths) != 1 || gotPaths[0].Filename != "s1.callpath" {
		t.Fatalf("decoded paths = %+v", gotPaths)
	}
	if b2.Len() != b.Len() {
		t.Fatalf("decoded node count = %d, want %d", b2.Len(), b.Len())
	}

	init2 := b2.Node(b2.InitRoot)
	if init2.Kind != KReturnInit || init2.InitValue != Success {
		t.Fatalf("decoded init root = %+v", init2)
	}

	id := b2.ProcessRoot
	var fnames []string
	for {
		n := b2.Node(id)
		if n.Kind != KCall {
			break
		}
		fnames = append(fnames, n.Call.Function)
		id = n.Next
	}
	leaf := b2.Node(id)
	if leaf.Kind != KReturnProcess || leaf.Op != OpFwd || leaf.Port != 1 {
		t.Fatalf("decoded process leaf = %+v", leaf)
	}
	if len(fnames) != 2 || fnames[0] != "packet_borrow_next_chunk" || fnames[1] != "packet_return_chunk" {
		t.Fatalf("decoded process calls = %v", fnames)
	}
}

func TestCloneWithRenumbering(t *testing.T) {
	ar := expr.NewArena()
	sc := solver.NewContext()
	paths := []*callpath.CallPath{ethernetOnlyForward(ar)}
	b, err := Build(sc, paths, group.Options{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	clone := b.CloneWithRenumbering()
	if clone.Len() != b.Len() {
		t.Fatalf("clone has %d nodes, want %d", clone.Len(), b.Len())
	}
	for id := 0; id < clone.Len(); id++ {
		if _, ok := clone.nodes[NodeId(id)]; !ok {
			t.Fatalf("clone missing densely-packed id %d", id)
		}
	}
}
