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

import (
	"testing"

	"github.com/pmdm56/vigor-klee-sub000/internal/randx"
)

// genConst builds a random Constant of a width src picks from
// {1, 8, 16, 32, 64}: the widths TestWidthSoundness exercises by hand,
// plus 64.
func genConst(ar *Arena, src *randx.Source) *Expr {
	widths := []int{1, 8, 16, 32, 64}
	w := widths[src.Intn(len(widths))]
	return Const(ar, src.Uint64(), w)
}

// genBinop applies one of the width-preserving binary operators to two
// same-width constants, picked uniformly by src.
func genBinop(ar *Arena, src *randx.Source, a, b *Expr) *Expr {
	switch src.Intn(6) {
	case 0:
		return Add(ar, a, b)
	case 1:
		return Sub(ar, a, b)
	case 2:
		return Mul(ar, a, b)
	case 3:
		return And(ar, a, b)
	case 4:
		return Or(ar, a, b)
	default:
		return Xor(ar, a, b)
	}
}

// TestPropertyConstantFoldingIsWidthSound is a deterministic, seeded
// property test (spec §8's testable properties, AMBIENT STACK's
// fuzz-shaped-property-test-over-expression-width/simplification
// invariants requirement): for 256 random seeds, building a random tree
// of binary operators over same-width random constants must always
// fold all the way down to a single Constant node (every operand is
// itself constant) whose width matches the tree's leaves. A failure
// reproduces byte-for-byte from the logged seed alone, with no other
// entropy source, per internal/randx's contract.
func TestPropertyConstantFoldingIsWidthSound(t *testing.T) {
	for seed := uint64(0); seed < 256; seed++ {
		src := randx.New(seed)
		ar := NewArena()

		widths := []int{1, 8, 16, 32, 64}
		width := widths[src.Intn(len(widths))]
		e := Const(ar, src.Uint64(), width)
		depth := src.Intn(6)
		for i := 0; i < depth; i++ {
			other := Const(ar, src.Uint64(), width)
			if src.Bool() {
				e = genBinop(ar, src, e, other)
			} else {
				e = genBinop(ar, src, other, e)
			}
		}

		if e.Kind() != KConstant {
			t.Fatalf("seed %d: expected constant folding to a Constant, got kind %v", seed, e.Kind())
		}
		if e.Width() != width {
			t.Fatalf("seed %d: folded width = %d, want %d", seed, e.Width(), width)
		}
	}
}

// TestPropertyExtractWidthSoundness is the same seeded-property shape
// applied to Extract: a random sub-range of a random-width Constant
// always folds to a Constant of exactly the requested width.
func TestPropertyExtractWidthSoundness(t *testing.T) {
	for seed := uint64(1000); seed < 1064; seed++ {
		src := randx.New(seed)
		ar := NewArena()

		widths := []int{8, 16, 32, 64}
		width := widths[src.Intn(len(widths))]
		c := Const(ar, src.Uint64(), width)

		extractWidth := 1 + src.Intn(width)
		offset := src.Intn(width - extractWidth + 1)

		ex := Extract(ar, c, offset, extractWidth)
		if ex.Kind() != KConstant {
			t.Fatalf("seed %d: expected Extract of a Constant to fold, got kind %v", seed, ex.Kind())
		}
		if ex.Width() != extractWidth {
			t.Fatalf("seed %d: Extract width = %d, want %d", seed, ex.Width(), extractWidth)
		}
	}
}
