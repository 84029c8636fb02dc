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

import "fmt"

// WidthError is returned by the factory functions when an operand's width
// does not satisfy the operator's bit-vector semantics. It is a programmer
// error per spec §7 (invariant violation) and is never expected to occur
// for expressions built from a well-formed call path.
type WidthError struct {
	Op  Kind
	Msg string
}

func (w *WidthError) Error() string {
	return fmt.Sprintf("expr: %s: %s", w.Op, w.Msg)
}

func widthErr(op Kind, format string, args ...any) *WidthError {
	return &WidthError{Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Const builds a width-bit immediate value. Bits above width are masked
// off so that two constants with the same in-range value always compare
// equal regardless of how the caller computed value.
func Const(ar *Arena, value uint64, width int) *Expr {
	if width <= 0 {
		panic(widthErr(KConstant, "width must be positive, got %d", width))
	}
	value = maskTo(value, width)
	return ar.intern(KConstant, width, value, "", 0, nil, nil, nil, nil)
}

func maskTo(v uint64, width int) uint64 {
	if width >= 64 {
		return v
	}
	return v & ((uint64(1) << uint(width)) - 1)
}

// Read builds a single-byte symbolic read of array at the given index
// expression. Reads are always width 8: multi-byte reads are expressed
// as a Concat cascade of Reads (see ReadLSB).
func Read(ar *Arena, array string, index *Expr) *Expr {
	if array == "" {
		panic(widthErr(KRead, "empty array name"))
	}
	return ar.intern(KRead, 8, 0, array, 0, index, nil, nil, nil)
}

// Concat builds the bit-concatenation hi:lo, with hi occupying the
// high-order bits. Width is the sum of the operand widths.
//
// Concat(a, b) where b is itself a Concat is not re-flattened here —
// callers that need a flat cascade (e.g. ReadLSB) build it directly. The
// only canonicalization applied is folding two Constant operands into
// one Constant; Concat itself checks no widths (every factory already
// rejects a non-positive width).
func Concat(ar *Arena, hi, lo *Expr) *Expr {
	if hi.arena != ar || lo.arena != ar {
		panic("expr: Concat operands from foreign arena")
	}
	width := hi.width + lo.width
	if hi.kind == KConstant && lo.kind == KConstant {
		v := (hi.value << uint(lo.width)) | lo.value
		return Const(ar, v, width)
	}
	return ar.intern(KConcat, width, 0, "", 0, nil, hi, lo, nil)
}

// Extract builds a width-bit slice of src starting at bit offsetBits
// (0 = least-significant bit).
//
// Canonicalizations:
//   - Extract of a Constant folds to a Constant.
//   - Extract that exactly covers one side of a Concat returns that side
//     directly instead of wrapping it in a redundant Extract.
func Extract(ar *Arena, src *Expr, offsetBits, width int) *Expr {
	if width <= 0 {
		panic(widthErr(KExtract, "width must be positive"))
	}
	if offsetBits < 0 || offsetBits+width > src.width {
		panic(widthErr(KExtract, "extract [%d,%d) out of range of width-%d operand", offsetBits, offsetBits+width, src.width))
	}
	if offsetBits == 0 && width == src.width {
		return src
	}
	if src.kind == KConstant {
		v := maskTo(src.value>>uint(offsetBits), width)
		return Const(ar, v, width)
	}
	if src.kind == KConcat {
		hi, lo := src.a, src.b
		if offsetBits == 0 && width == lo.width {
			return lo
		}
		if offsetBits == lo.width && width == hi.width {
			return hi
		}
		if offsetBits >= lo.width {
			return Extract(ar, hi, offsetBits-lo.width, width)
		}
		if offsetBits+width <= lo.width {
			return Extract(ar, lo, offsetBits, width)
		}
	}
	return ar.intern(KExtract, width, 0, "", offsetBits, src, nil, nil, nil)
}

// ZExt zero-extends src to width bits.
func ZExt(ar *Arena, src *Expr, width int) *Expr {
	if width < src.width {
		panic(widthErr(KZExt, "target width %d smaller than source width %d", width, src.width))
	}
	if width == src.width {
		return src
	}
	if src.kind == KConstant {
		return Const(ar, src.value, width)
	}
	return ar.intern(KZExt, width, 0, "", 0, src, nil, nil, nil)
}

// SExt sign-extends src to width bits.
func SExt(ar *Arena, src *Expr, width int) *Expr {
	if width < src.width {
		panic(widthErr(KSExt, "target width %d smaller than source width %d", width, src.width))
	}
	if width == src.width {
		return src
	}
	if src.kind == KConstant {
		v := src.value
		signBit := uint64(1) << uint(src.width-1)
		if v&signBit != 0 {
			for b := src.width; b < width; b++ {
				v |= uint64(1) << uint(b)
			}
		}
		return Const(ar, maskTo(v, width), width)
	}
	return ar.intern(KSExt, width, 0, "", 0, src, nil, nil, nil)
}

func checkSameWidth(op Kind, a, b *Expr) {
	if a.width != b.width {
		panic(widthErr(op, "operand widths differ: %d vs %d", a.width, b.width))
	}
}

// binop builds a binary arithmetic/bitwise operator, folding it when both
// operands are constants.
func binop(ar *Arena, kind Kind, a, b *Expr, fold func(a, b uint64, width int) uint64) *Expr {
	checkSameWidth(kind, a, b)
	if a.kind == KConstant && b.kind == KConstant && fold != nil {
		return Const(ar, fold(a.value, b.value, a.width), a.width)
	}
	return ar.intern(kind, a.width, 0, "", 0, nil, a, b, nil)
}

func Add(ar *Arena, a, b *Expr) *Expr {
	return binop(ar, KAdd, a, b, func(x, y uint64, w int) uint64 { return maskTo(x+y, w) })
}
func Sub(ar *Arena, a, b *Expr) *Expr {
	return binop(ar, KSub, a, b, func(x, y uint64, w int) uint64 { return maskTo(x-y, w) })
}
func Mul(ar *Arena, a, b *Expr) *Expr {
	return binop(ar, KMul, a, b, func(x, y uint64, w int) uint64 { return maskTo(x*y, w) })
}
func UDiv(ar *Arena, a, b *Expr) *Expr {
	return binop(ar, KUDiv, a, b, func(x, y uint64, w int) uint64 {
		if y == 0 {
			return 0
		}
		return maskTo(x/y, w)
	})
}
func SDiv(ar *Arena, a, b *Expr) *Expr { return binop(ar, KSDiv, a, b, nil) }
func URem(ar *Arena, a, b *Expr) *Expr {
	return binop(ar, KURem, a, b, func(x, y uint64, w int) uint64 {
		if y == 0 {
			return x
		}
		return maskTo(x%y, w)
	})
}
func SRem(ar *Arena, a, b *Expr) *Expr { return binop(ar, KSRem, a, b, nil) }

// And builds a bitwise AND. Eq(0, x) simplification for the common
// "mask and compare" pattern is handled at the Eq level, not here.
func And(ar *Arena, a, b *Expr) *Expr {
	if isZero(a) || isZero(b) {
		return Const(ar, 0, a.width)
	}
	return binop(ar, KAnd, a, b, func(x, y uint64, w int) uint64 { return x & y })
}
func Or(ar *Arena, a, b *Expr) *Expr {
	return binop(ar, KOr, a, b, func(x, y uint64, w int) uint64 { return maskTo(x|y, w) })
}
func Xor(ar *Arena, a, b *Expr) *Expr {
	return binop(ar, KXor, a, b, func(x, y uint64, w int) uint64 { return maskTo(x^y, w) })
}

func isZero(e *Expr) bool { return e.kind == KConstant && e.value == 0 }

// Not builds a bitwise complement.
func Not(ar *Arena, a *Expr) *Expr {
	if a.kind == KConstant {
		return Const(ar, ^a.value, a.width)
	}
	if a.kind == KNot {
		return a.a
	}
	return ar.intern(KNot, a.width, 0, "", 0, nil, a, nil, nil)
}

func shiftop(ar *Arena, kind Kind, a, b *Expr, fold func(x uint64, n, w int) uint64) *Expr {
	checkSameWidth(kind, a, b)
	if a.kind == KConstant && b.kind == KConstant {
		return Const(ar, fold(a.value, int(b.value), a.width), a.width)
	}
	return ar.intern(kind, a.width, 0, "", 0, nil, a, b, nil)
}

func Shl(ar *Arena, a, b *Expr) *Expr {
	return shiftop(ar, KShl, a, b, func(x uint64, n, w int) uint64 {
		if n >= w {
			return 0
		}
		return maskTo(x<<uint(n), w)
	})
}
func LShr(ar *Arena, a, b *Expr) *Expr {
	return shiftop(ar, KLShr, a, b, func(x uint64, n, w int) uint64 {
		if n >= w {
			return 0
		}
		return x >> uint(n)
	})
}
func AShr(ar *Arena, a, b *Expr) *Expr { return shiftop(ar, KAShr, a, b, nil) }

// cmp builds a width-1 comparison, folding it when both operands are
// constants and applying the "Eq(0, Eq(...))" double-negative
// simplification from spec §4.1 ("Eq of zero with Eq becomes the inner
// expression").
func cmp(ar *Arena, kind Kind, a, b *Expr, fold func(x, y uint64, w int) bool) *Expr {
	checkSameWidth(kind, a, b)
	if kind == KEq {
		if isZero(a) && b.kind.isComparison() {
			return Not1(ar, b)
		}
		if isZero(b) && a.kind.isComparison() {
			return Not1(ar, a)
		}
	}
	if a.kind == KConstant && b.kind == KConstant && fold != nil {
		if fold(a.value, b.value, a.width) {
			return Const(ar, 1, 1)
		}
		return Const(ar, 0, 1)
	}
	if a.id == b.id {
		switch kind {
		case KEq, KUle, KUge, KSle, KSge:
			return Const(ar, 1, 1)
		case KNe, KUlt, KUgt, KSlt, KSgt:
			return Const(ar, 0, 1)
		}
	}
	return ar.intern(kind, 1, 0, "", 0, nil, a, b, nil)
}

// Not1 complements a width-1 expression, e.g. a Branch condition.
func Not1(ar *Arena, a *Expr) *Expr {
	if a.width != 1 {
		panic(widthErr(KNot, "Not1 on non-boolean width %d", a.width))
	}
	switch a.kind {
	case KEq:
		return cmp(ar, KNe, a.a, a.b, nil)
	case KNe:
		return cmp(ar, KEq, a.a, a.b, nil)
	case KUlt:
		return cmp(ar, KUge, a.a, a.b, nil)
	case KUge:
		return cmp(ar, KUlt, a.a, a.b, nil)
	case KUle:
		return cmp(ar, KUgt, a.a, a.b, nil)
	case KUgt:
		return cmp(ar, KUle, a.a, a.b, nil)
	case KSlt:
		return cmp(ar, KSge, a.a, a.b, nil)
	case KSge:
		return cmp(ar, KSlt, a.a, a.b, nil)
	case KSle:
		return cmp(ar, KSgt, a.a, a.b, nil)
	case KSgt:
		return cmp(ar, KSle, a.a, a.b, nil)
	}
	return Not(ar, a)
}

func Eq(ar *Arena, a, b *Expr) *Expr { return cmp(ar, KEq, a, b, func(x, y uint64, w int) bool { return x == y }) }
func Ne(ar *Arena, a, b *Expr) *Expr { return cmp(ar, KNe, a, b, func(x, y uint64, w int) bool { return x != y }) }
func Ult(ar *Arena, a, b *Expr) *Expr {
	return cmp(ar, KUlt, a, b, func(x, y uint64, w int) bool { return x < y })
}
func Ule(ar *Arena, a, b *Expr) *Expr {
	return cmp(ar, KUle, a, b, func(x, y uint64, w int) bool { return x <= y })
}
func Ugt(ar *Arena, a, b *Expr) *Expr {
	return cmp(ar, KUgt, a, b, func(x, y uint64, w int) bool { return x > y })
}
func Uge(ar *Arena, a, b *Expr) *Expr {
	return cmp(ar, KUge, a, b, func(x, y uint64, w int) bool { return x >= y })
}
func Slt(ar *Arena, a, b *Expr) *Expr { return cmp(ar, KSlt, a, b, signedCmp(func(x, y int64) bool { return x < y })) }
func Sle(ar *Arena, a, b *Expr) *Expr { return cmp(ar, KSle, a, b, signedCmp(func(x, y int64) bool { return x <= y })) }
func Sgt(ar *Arena, a, b *Expr) *Expr { return cmp(ar, KSgt, a, b, signedCmp(func(x, y int64) bool { return x > y })) }
func Sge(ar *Arena, a, b *Expr) *Expr { return cmp(ar, KSge, a, b, signedCmp(func(x, y int64) bool { return x >= y })) }

func signedCmp(f func(x, y int64) bool) func(x, y uint64, w int) bool {
	return func(x, y uint64, w int) bool {
		return f(toSigned(x, w), toSigned(y, w))
	}
}

func toSigned(v uint64, width int) int64 {
	if width >= 64 {
		return int64(v)
	}
	signBit := uint64(1) << uint(width-1)
	if v&signBit != 0 {
		return int64(v) - int64(uint64(1)<<uint(width))
	}
	return int64(v)
}

// Select builds an if-then-else over a width-1 condition. A constant
// condition folds to the chosen branch.
func Select(ar *Arena, cond, then, els *Expr) *Expr {
	if cond.width != 1 {
		panic(widthErr(KSelect, "condition must be width 1, got %d", cond.width))
	}
	checkSameWidth(KSelect, then, els)
	if cond.kind == KConstant {
		if cond.value != 0 {
			return then
		}
		return els
	}
	if then.id == els.id {
		return then
	}
	return ar.intern(KSelect, then.width, 0, "", 0, nil, then, els, cond)
}

// ReadLSB builds the canonical little-endian multi-byte read of array at
// base byte index idx0: a Concat cascade of single-byte Reads at
// descending indices, covering [idx0, idx0+width/8). This is the shape
// is_readLSB_complete recognizes; see symbols.go.
func ReadLSB(ar *Arena, array string, idx0 *Expr, widthBytes int) *Expr {
	if widthBytes <= 0 {
		panic(widthErr(KRead, "ReadLSB width must be positive"))
	}
	// idx0 must be a width-matching integer arena value; index arithmetic
	// uses the index expression's own width.
	bytes := make([]*Expr, widthBytes)
	for i := 0; i < widthBytes; i++ {
		idx := idx0
		if i != 0 {
			idx = Add(ar, idx0, Const(ar, uint64(i), idx0.width))
		}
		bytes[i] = Read(ar, array, idx)
	}
	out := bytes[widthBytes-1]
	for i := widthBytes - 2; i >= 0; i-- {
		out = Concat(ar, out, bytes[i])
	}
	return out
}
