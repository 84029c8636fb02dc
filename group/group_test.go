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

package group

import (
	"testing"

	"github.com/pmdm56/vigor-klee-sub000/callpath"
	"github.com/pmdm56/vigor-klee-sub000/expr"
	"github.com/pmdm56/vigor-klee-sub000/solver"
)

func portRead(ar *expr.Arena) *expr.Expr {
	return expr.Read(ar, "next_proto_id", expr.Const(ar, 0, 32))
}

func byteConst(ar *expr.Arena, v uint64) *expr.Expr {
	return expr.Const(ar, v, 8)
}

func TestSplitTrivialAllAgree(t *testing.T) {
	ar := expr.NewArena()
	sc := solver.NewContext()

	mk := func(name string) *callpath.CallPath {
		return &callpath.CallPath{
			Filename: name,
			Calls: []*callpath.Call{
				{Function: "packet_receive", Args: []callpath.NamedArg{
					{Name: "src_devices", Arg: callpath.Arg{Expr: expr.Const(ar, 0, 32)}},
				}},
			},
		}
	}
	paths := []*callpath.CallPath{mk("a"), mk("b")}

	res, err := Split(sc, paths, Options{})
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if res.Discriminant != nil {
		t.Fatalf("expected trivial split, got a discriminant")
	}
	if len(res.OnTrue) != 2 || len(res.OnFalse) != 0 {
		t.Fatalf("OnTrue=%d OnFalse=%d, want 2/0", len(res.OnTrue), len(res.OnFalse))
	}
}

func TestSplitAllExhausted(t *testing.T) {
	sc := solver.NewContext()
	paths := []*callpath.CallPath{{Filename: "a"}, {Filename: "b"}}
	res, err := Split(sc, paths, Options{})
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(res.OnTrue) != 2 {
		t.Fatalf("expected both exhausted paths in OnTrue")
	}
}

func TestSplitDiscriminates(t *testing.T) {
	ar := expr.NewArena()
	sc := solver.NewContext()

	proto := portRead(ar)
	isTCP := expr.Eq(ar, proto, byteConst(ar, 6))

	tcpPath := &callpath.CallPath{
		Filename:    "tcp",
		Constraints: []*expr.Expr{isTCP},
		Calls: []*callpath.Call{
			{Function: "tcp_consume"},
		},
	}
	udpPath := &callpath.CallPath{
		Filename:    "udp",
		Constraints: []*expr.Expr{expr.Not1(ar, isTCP)},
		Calls: []*callpath.Call{
			{Function: "udp_consume"},
		},
	}

	res, err := Split(sc, []*callpath.CallPath{tcpPath, udpPath}, Options{})
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if res.Discriminant == nil {
		t.Fatal("expected a discriminating constraint")
	}
	if len(res.OnTrue) != 1 || res.OnTrue[0].Filename != "tcp" {
		t.Fatalf("OnTrue = %v", res.OnTrue)
	}
	if len(res.OnFalse) != 1 || res.OnFalse[0].Filename != "udp" {
		t.Fatalf("OnFalse = %v", res.OnFalse)
	}
}

func TestSplitUnconstructable(t *testing.T) {
	ar := expr.NewArena()
	sc := solver.NewContext()

	a := &callpath.CallPath{
		Filename: "a",
		Calls:    []*callpath.Call{{Function: "f"}},
	}
	b := &callpath.CallPath{
		Filename: "b",
		Calls:    []*callpath.Call{{Function: "g"}},
	}
	_ = ar
	_, err := Split(sc, []*callpath.CallPath{a, b}, Options{})
	if err == nil {
		t.Fatal("expected an UnconstructableError with no constraints to discriminate on")
	}
	if _, ok := err.(*UnconstructableError); !ok {
		t.Fatalf("expected *UnconstructableError, got %T", err)
	}
}

func TestAreCallsEqualIgnoresP(t *testing.T) {
	ar := expr.NewArena()
	sc := solver.NewContext()

	c1 := &callpath.Call{Function: "packet_borrow_next_chunk", Args: []callpath.NamedArg{
		{Name: "p", Arg: callpath.Arg{Expr: expr.Const(ar, 1, 32)}},
		{Name: "length", Arg: callpath.Arg{Expr: expr.Const(ar, 14, 32)}},
	}}
	c2 := &callpath.Call{Function: "packet_borrow_next_chunk", Args: []callpath.NamedArg{
		{Name: "p", Arg: callpath.Arg{Expr: expr.Const(ar, 2, 32)}},
		{Name: "length", Arg: callpath.Arg{Expr: expr.Const(ar, 14, 32)}},
	}}
	if !AreCallsEqual(sc, c1, c2) {
		t.Fatal("calls differing only in 'p' should be equal")
	}
}

func TestAreCallsEqualComparesPacketReturnChunkIn(t *testing.T) {
	ar := expr.NewArena()
	sc := solver.NewContext()

	c1 := &callpath.Call{Function: "packet_return_chunk", Args: []callpath.NamedArg{
		{Name: "the_chunk", Arg: callpath.Arg{In: expr.Const(ar, 1, 32)}},
	}}
	c2 := &callpath.Call{Function: "packet_return_chunk", Args: []callpath.NamedArg{
		{Name: "the_chunk", Arg: callpath.Arg{In: expr.Const(ar, 2, 32)}},
	}}
	if AreCallsEqual(sc, c1, c2) {
		t.Fatal("packet_return_chunk calls with different the_chunk.in should not be equal")
	}
}

func TestAreCallsEqualSkipsOutArgs(t *testing.T) {
	ar := expr.NewArena()
	sc := solver.NewContext()

	c1 := &callpath.Call{Function: "vector_borrow", Args: []callpath.NamedArg{
		{Name: "val_out", Arg: callpath.Arg{Out: expr.Const(ar, 1, 32)}},
	}}
	c2 := &callpath.Call{Function: "vector_borrow", Args: []callpath.NamedArg{
		{Name: "val_out", Arg: callpath.Arg{Out: expr.Const(ar, 2, 32)}},
	}}
	if !AreCallsEqual(sc, c1, c2) {
		t.Fatal("output-pointer arguments must not be compared")
	}
}
