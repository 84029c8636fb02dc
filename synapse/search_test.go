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
	"testing"

	"github.com/pmdm56/vigor-klee-sub000/bdd"
	"github.com/pmdm56/vigor-klee-sub000/callpath"
	"github.com/pmdm56/vigor-klee-sub000/expr"
	"github.com/pmdm56/vigor-klee-sub000/group"
	"github.com/pmdm56/vigor-klee-sub000/solver"
)

// ethernetOnlyForward mirrors spec §8's S1 scenario (bdd.ethernetOnlyForward's
// unexported twin — kept local since test helpers aren't exported across
// packages).
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

func buildS1(t *testing.T) *bdd.BDD {
	t.Helper()
	ar := expr.NewArena()
	sc := solver.NewContext()
	b, err := bdd.Build(sc, []*callpath.CallPath{ethernetOnlyForward(ar)}, group.Options{})
	if err != nil {
		t.Fatalf("bdd.Build: %v", err)
	}
	return b
}

func TestSynthesizeX86EthernetOnlyForward(t *testing.T) {
	b := buildS1(t)

	plan, err := Synthesize(b, b.ProcessRoot, X86, DefaultCatalogue(), P4AbsorptionHeuristic{})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if !plan.Complete() {
		t.Fatalf("plan not complete: %d pending leaves", len(plan.Frontier))
	}

	dv := &DumpVisitor{}
	plan.Visit(dv)
	if len(dv.Modules) == 0 || dv.Modules[0] != "PacketBorrowNextChunk" {
		t.Fatalf("modules = %v, want first module PacketBorrowNextChunk", dv.Modules)
	}
	if dv.Modules[len(dv.Modules)-1] != "Forward" {
		t.Fatalf("modules = %v, want last module Forward", dv.Modules)
	}
}

func TestSynthesizeTofinoEthernetOnlyForward(t *testing.T) {
	b := buildS1(t)

	plan, err := Synthesize(b, b.ProcessRoot, Tofino, DefaultCatalogue(), P4AbsorptionHeuristic{})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if !plan.Complete() {
		t.Fatalf("plan not complete: %d pending leaves", len(plan.Frontier))
	}

	dv := &DumpVisitor{}
	plan.Visit(dv)
	if len(dv.Modules) == 0 || dv.Modules[0] != "EthernetConsume" {
		t.Fatalf("modules = %v, want first module EthernetConsume", dv.Modules)
	}
	if dv.Modules[len(dv.Modules)-1] != "Forward" {
		t.Fatalf("modules = %v, want last module Forward", dv.Modules)
	}
}

func TestSynthesizeNoPlanForEmptyCatalogue(t *testing.T) {
	b := buildS1(t)

	_, err := Synthesize(b, b.ProcessRoot, X86, Catalogue{}, P4AbsorptionHeuristic{})
	if err == nil {
		t.Fatal("Synthesize with empty catalogue: want NoPlanError, got nil")
	}
	if _, ok := err.(*NoPlanError); !ok {
		t.Fatalf("Synthesize error = %T, want *NoPlanError", err)
	}
}
