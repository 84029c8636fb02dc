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

// Package expr implements the symbolic bit-vector expression trees that
// call paths and BDD nodes are built from: typed, hash-consed, immutable
// trees over a fixed bit-vector algebra (constants, symbolic byte reads,
// concatenation, extension, arithmetic, and comparisons).
package expr

import "fmt"

// Kind identifies the operator of an Expr node.
type Kind uint8

const (
	KConstant Kind = iota
	KRead
	KConcat
	KExtract
	KZExt
	KSExt
	KAdd
	KSub
	KMul
	KUDiv
	KSDiv
	KURem
	KSRem
	KAnd
	KOr
	KXor
	KNot
	KShl
	KLShr
	KAShr
	KEq
	KNe
	KUlt
	KUle
	KUgt
	KUge
	KSlt
	KSle
	KSgt
	KSge
	KSelect
)

var kindNames = [...]string{
	KConstant: "Constant", KRead: "Read", KConcat: "Concat", KExtract: "Extract",
	KZExt: "ZExt", KSExt: "SExt",
	KAdd: "Add", KSub: "Sub", KMul: "Mul", KUDiv: "UDiv", KSDiv: "SDiv", KURem: "URem", KSRem: "SRem",
	KAnd: "And", KOr: "Or", KXor: "Xor", KNot: "Not", KShl: "Shl", KLShr: "LShr", KAShr: "AShr",
	KEq: "Eq", KNe: "Ne", KUlt: "Ult", KUle: "Ule", KUgt: "Ugt", KUge: "Uge",
	KSlt: "Slt", KSle: "Sle", KSgt: "Sgt", KSge: "Sge",
	KSelect: "Select",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// boolean comparison kinds always produce width-1 results
func (k Kind) isComparison() bool {
	switch k {
	case KEq, KNe, KUlt, KUle, KUgt, KUge, KSlt, KSle, KSgt, KSge:
		return true
	}
	return false
}

// Id is a hash-cons arena handle: two Exprs built from the same arena
// with the same Id are structurally identical.
type Id uint32

// Expr is an immutable, hash-consed symbolic bit-vector expression node.
// Expr values are only ever produced by the factory functions in this
// package (Const, Read, Concat, ...), which intern the result into an
// Arena so that structurally equal expressions share the same Id.
type Expr struct {
	id     Id
	kind   Kind
	width  int
	arena  *Arena
	value  uint64  // KConstant
	array  string  // KRead
	offset int     // KExtract: offset in bits; KRead: nothing (see index)
	op     Operand // KRead: index expr; KExtract/ZExt/SExt: src
	a, b   Operand // binary operators; a alone for unary (Not); a,b for Select's then/else with the condition in cond
	cond   Operand // KSelect condition
}

// Operand is a child reference. Children always belong to the same Arena
// as their parent.
type Operand = *Expr

// Id returns the hash-cons identity of e within its Arena.
func (e *Expr) Id() Id { return e.id }

// Kind reports e's operator.
func (e *Expr) Kind() Kind { return e.kind }

// Width reports the bit-width of the value e denotes.
func (e *Expr) Width() int { return e.width }

// Arena returns the hash-cons arena that owns e.
func (e *Expr) Arena() *Arena { return e.arena }

// Value returns the immediate value of a KConstant node.
// It panics if e is not a KConstant.
func (e *Expr) Value() uint64 {
	if e.kind != KConstant {
		panic("expr: Value() on non-Constant node")
	}
	return e.value
}

// Array returns the symbolic array name of a KRead node.
// It panics if e is not a KRead.
func (e *Expr) Array() string {
	if e.kind != KRead {
		panic("expr: Array() on non-Read node")
	}
	return e.array
}

// Index returns the byte-index expression of a KRead node.
func (e *Expr) Index() *Expr {
	if e.kind != KRead {
		panic("expr: Index() on non-Read node")
	}
	return e.op
}

// Offset returns the bit offset of a KExtract node.
func (e *Expr) Offset() int {
	if e.kind != KExtract {
		panic("expr: Offset() on non-Extract node")
	}
	return e.offset
}

// Src returns the single operand of Extract, ZExt, SExt and Not nodes.
func (e *Expr) Src() *Expr {
	switch e.kind {
	case KExtract, KZExt, KSExt:
		return e.op
	case KNot:
		return e.a
	}
	panic("expr: Src() on node kind " + e.kind.String())
}

// Operands returns the (left, right) children of a binary operator node
// (Concat and all arithmetic/bitwise/shift/comparison kinds).
func (e *Expr) Operands() (*Expr, *Expr) {
	switch e.kind {
	case KConcat, KAdd, KSub, KMul, KUDiv, KSDiv, KURem, KSRem,
		KAnd, KOr, KXor, KShl, KLShr, KAShr,
		KEq, KNe, KUlt, KUle, KUgt, KUge, KSlt, KSle, KSgt, KSge:
		return e.a, e.b
	}
	panic("expr: Operands() on node kind " + e.kind.String())
}

// Select returns the (condition, then, else) operands of a KSelect node.
func (e *Expr) Select() (cond, then, els *Expr) {
	if e.kind != KSelect {
		panic("expr: Select() on non-Select node")
	}
	return e.cond, e.a, e.b
}

// children returns e's direct operands in evaluation order, for walking.
func (e *Expr) children() []*Expr {
	switch e.kind {
	case KConstant:
		return nil
	case KRead:
		return []*Expr{e.op}
	case KExtract, KZExt, KSExt:
		return []*Expr{e.op}
	case KNot:
		return []*Expr{e.a}
	case KSelect:
		return []*Expr{e.cond, e.a, e.b}
	default:
		return []*Expr{e.a, e.b}
	}
}

// Visitor is applied post-order by Walk.
type Visitor interface {
	// Visit is called once per distinct node in post-order, after all of
	// that node's children. Walk ignores the returned value: every
	// distinct node is visited regardless.
	Visit(e *Expr) bool
}

// Walk traverses e and all its distinct sub-expressions exactly once
// (memoized by Id), calling v.Visit(n) for each in post-order.
func Walk(v Visitor, e *Expr) {
	seen := make(map[Id]bool)
	var rec func(*Expr)
	rec = func(n *Expr) {
		if n == nil || seen[n.id] {
			return
		}
		seen[n.id] = true
		for _, c := range n.children() {
			rec(c)
		}
		v.Visit(n)
	}
	rec(e)
}

// visitFunc adapts a plain function to Visitor.
type visitFunc func(*Expr) bool

func (f visitFunc) Visit(e *Expr) bool { return f(e) }

// WalkFunc is a convenience wrapper around Walk for a plain callback.
func WalkFunc(e *Expr, f func(*Expr) bool) {
	Walk(visitFunc(f), e)
}
