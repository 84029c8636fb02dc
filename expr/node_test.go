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

package expr

import "testing"

// TestWidthSoundness is spec §8.1: every built expression's width matches
// the width mandated by its operator.
func TestWidthSoundness(t *testing.T) {
	ar := NewArena()
	idx := Const(ar, 0, 32)
	r := Read(ar, "packet_chunks", idx)
	if r.Width() != 8 {
		t.Fatalf("Read width = %d, want 8", r.Width())
	}
	c := Concat(ar, r, r)
	if c.Width() != 16 {
		t.Fatalf("Concat width = %d, want 16", c.Width())
	}
	eq := Eq(ar, r, r)
	if eq.Width() != 1 {
		t.Fatalf("Eq width = %d, want 1", eq.Width())
	}
	ex := Extract(ar, c, 0, 8)
	if ex.Width() != 8 {
		t.Fatalf("Extract width = %d, want 8", ex.Width())
	}
	z := ZExt(ar, r, 32)
	if z.Width() != 32 {
		t.Fatalf("ZExt width = %d, want 32", z.Width())
	}
}

// TestHashConsSharing checks that structurally identical expressions
// built independently share one Id (spec §9's arena requirement).
func TestHashConsSharing(t *testing.T) {
	ar := NewArena()
	a1 := Const(ar, 42, 32)
	a2 := Const(ar, 42, 32)
	if a1 != a2 {
		t.Fatalf("two identical constants were not interned to the same node")
	}
	idx := Const(ar, 0, 32)
	r1 := Read(ar, "packet_chunks", idx)
	r2 := Read(ar, "packet_chunks", idx)
	if r1 != r2 {
		t.Fatalf("two identical reads were not interned to the same node")
	}
	add1 := Add(ar, r1, Const(ar, 1, 8))
	add2 := Add(ar, r2, Const(ar, 1, 8))
	if add1 != add2 {
		t.Fatalf("two identical Add expressions were not interned to the same node")
	}
}

// TestConstantFolding exercises the canonical simplifications spec §4.1
// requires of the factory functions.
func TestConstantFolding(t *testing.T) {
	ar := NewArena()
	sum := Add(ar, Const(ar, 2, 8), Const(ar, 3, 8))
	if sum.Kind() != KConstant || sum.Value() != 5 {
		t.Fatalf("constant folding of Add failed: %v", sum)
	}
	andZero := And(ar, Const(ar, 0, 8), Read(ar, "x", Const(ar, 0, 32)))
	if andZero.Kind() != KConstant || andZero.Value() != 0 {
		t.Fatalf("And-with-zero did not fold: %v", andZero)
	}
	eqEq := Eq(ar, Const(ar, 0, 1), Eq(ar, Const(ar, 1, 8), Const(ar, 1, 8)))
	if eqEq.Kind() != KConstant || eqEq.Value() != 0 {
		t.Fatalf("Eq(0, true) should fold to false, got %v", eqEq)
	}
}

// TestExtractOfConcat exercises the "Extract of Concat aligns with a
// component" simplification named in spec §4.1.
func TestExtractOfConcat(t *testing.T) {
	ar := NewArena()
	lo := Read(ar, "x", Const(ar, 0, 32))
	hi := Read(ar, "x", Const(ar, 1, 32))
	c := Concat(ar, hi, lo)
	if got := Extract(ar, c, 0, 8); got != lo {
		t.Fatalf("Extract(concat, 0, 8) = %v, want lo operand %v", got, lo)
	}
	if got := Extract(ar, c, 8, 8); got != hi {
		t.Fatalf("Extract(concat, 8, 8) = %v, want hi operand %v", got, hi)
	}
}
