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

package callpath

import (
	"strings"
	"testing"

	"github.com/pmdm56/vigor-klee-sub000/expr"
)

const s1CallPath = `
constraints:
(Eq (Read "packet_chunks" (Constant 0 32)) (Constant 0 8))

calls:
call packet_receive
  arg src_devices = (Constant 0 32)
call packet_borrow_next_chunk
  arg p = (Read "packet_chunks" (Constant 0 32))
  arg length = (Constant 14 32)
  return (Constant 1 32)
call packet_return_chunk
  arg the_chunk in = (Read "packet_chunks" (Constant 0 32))
call packet_send
  arg dst_device = (Constant 1 32)
`

func TestLoadBasic(t *testing.T) {
	ar := expr.NewArena()
	cp, err := Load(ar, "s1.callpath", strings.NewReader(s1CallPath))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cp.Filename != "s1.callpath" {
		t.Fatalf("filename = %q", cp.Filename)
	}
	if len(cp.Constraints) != 1 {
		t.Fatalf("constraints = %d, want 1", len(cp.Constraints))
	}
	if len(cp.Calls) != 4 {
		t.Fatalf("calls = %d, want 4", len(cp.Calls))
	}
	if got := cp.Calls[0].Function; got != "packet_receive" {
		t.Fatalf("calls[0].Function = %q", got)
	}
	a, ok := cp.Calls[1].Arg("length")
	if !ok || a.Expr == nil || a.Expr.Value() != 14 {
		t.Fatalf("packet_borrow_next_chunk.length = %+v, ok=%v", a, ok)
	}
	ret := cp.Calls[1].Return
	if ret == nil || ret.Value() != 1 {
		t.Fatalf("packet_borrow_next_chunk return = %v", ret)
	}
	in, ok := cp.Calls[2].Arg("the_chunk")
	if !ok || in.In == nil {
		t.Fatalf("packet_return_chunk.the_chunk.in missing")
	}
}

func TestLoadRejectsLineOutsideSection(t *testing.T) {
	ar := expr.NewArena()
	_, err := Load(ar, "bad.callpath", strings.NewReader("garbage line\n"))
	if err == nil {
		t.Fatal("expected an error for a line outside any section")
	}
}

func TestCallArgExtraLookup(t *testing.T) {
	ar := expr.NewArena()
	c := &Call{Function: "f"}
	e := expr.Const(ar, 7, 32)
	c.Args = append(c.Args, NamedArg{Name: "x", Arg: Arg{Expr: e}})
	c.Extra = append(c.Extra, ExtraVar{Name: "y", Before: e, After: e})

	if _, ok := c.Arg("missing"); ok {
		t.Fatal("Arg(missing) should not be found")
	}
	got, ok := c.Arg("x")
	if !ok || got.Expr != e {
		t.Fatalf("Arg(x) = %+v, ok=%v", got, ok)
	}
	if _, ok := c.Extra("missing"); ok {
		t.Fatal("Extra(missing) should not be found")
	}
	if ev, ok := c.Extra("y"); !ok || ev.Before != e {
		t.Fatalf("Extra(y) = %+v, ok=%v", ev, ok)
	}
}
