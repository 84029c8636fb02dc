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

func TestKQueryRoundTrip(t *testing.T) {
	ar := NewArena()
	base := Const(ar, 14, 32)
	exprs := []*Expr{
		Const(ar, 0x0800, 16),
		ReadLSB(ar, "packet_chunks", base, 4),
		Eq(ar, Read(ar, "packet_chunks", base), Const(ar, 6, 8)),
		Select(ar, Eq(ar, Const(ar, 1, 1), Const(ar, 1, 1)), Const(ar, 1, 8), Const(ar, 0, 8)),
	}
	for _, e := range exprs {
		text := ToKQuery(e)
		ar2 := NewArena()
		got, err := Decode(ar2, text)
		if err != nil {
			t.Fatalf("decode %q: %s", text, err)
		}
		if ToKQuery(got) != text {
			t.Fatalf("round-trip mismatch: %q != %q", ToKQuery(got), text)
		}
	}
}

func TestPoolFirstAppearance(t *testing.T) {
	ar := NewArena()
	a := Const(ar, 1, 8)
	b := Const(ar, 2, 8)
	p := NewPool()
	if i := p.Index(a); i != 0 {
		t.Fatalf("first insert index = %d, want 0", i)
	}
	if i := p.Index(b); i != 1 {
		t.Fatalf("second insert index = %d, want 1", i)
	}
	if i := p.Index(a); i != 0 {
		t.Fatalf("re-insert of a changed index to %d", i)
	}
	if p.Len() != 2 {
		t.Fatalf("pool length = %d, want 2", p.Len())
	}
}
