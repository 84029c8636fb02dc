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
	"encoding/binary"

	"github.com/dchest/siphash"
)

// arenaKey is the siphash key used to bucket structural hashes in an
// Arena's intern table. It is fixed per-process (not per-Arena) because
// the only property we need is good bucket spread, not unpredictability.
var arenaKey0, arenaKey1 = uint64(0x5ca1ab1ecafed00d), uint64(0xfeedfacedeadbeef)

// Arena is a hash-consing table: every Expr produced by this package's
// factory functions is interned into an Arena so that two structurally
// identical expressions share one *Expr (and therefore one Id). This is
// what lets expressions form a DAG with sharing instead of a tree, and
// what makes Id-keyed memoization in visitors correct.
//
// An Arena is not safe for concurrent use without external locking; the
// toolchain is single-threaded per §5 of the design and so does not
// synchronize it internally.
type Arena struct {
	buckets map[uint64][]*Expr
	nextID  Id
}

// NewArena returns an empty hash-consing arena.
func NewArena() *Arena {
	return &Arena{buckets: make(map[uint64][]*Expr)}
}

// structHash computes a bucket hash over an expression's shape. It is
// deliberately not a cryptographic commitment to the node's meaning: the
// bucket list is still compared structurally by fields below, so hash
// collisions only cost a linear scan of the bucket, never a wrong answer.
func structHash(kind Kind, width int, value uint64, array string, offset int, ids ...Id) uint64 {
	var buf []byte
	buf = append(buf, byte(kind))
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], uint64(width))
	buf = append(buf, tmp[:]...)
	binary.LittleEndian.PutUint64(tmp[:], value)
	buf = append(buf, tmp[:]...)
	binary.LittleEndian.PutUint64(tmp[:], uint64(offset))
	buf = append(buf, tmp[:]...)
	buf = append(buf, array...)
	for _, id := range ids {
		binary.LittleEndian.PutUint32(tmp[:4], uint32(id))
		buf = append(buf, tmp[:4]...)
	}
	return siphash.Hash(arenaKey0, arenaKey1, buf)
}

// same reports whether candidate e already represents the same node as
// the proposed fields; used to resolve hash-bucket collisions.
func same(e *Expr, kind Kind, width int, value uint64, array string, offset int, op, a, b, cond *Expr) bool {
	if e.kind != kind || e.width != width {
		return false
	}
	switch kind {
	case KConstant:
		return e.value == value
	case KRead:
		return e.array == array && e.op == op
	case KExtract, KZExt, KSExt:
		return e.offset == offset && e.op == op
	case KNot:
		return e.a == a
	case KSelect:
		return e.cond == cond && e.a == a && e.b == b
	default:
		return e.a == a && e.b == b
	}
}

// intern returns the canonical *Expr for the given fields, allocating and
// registering a new one only if no structurally-equal node already exists
// in the arena.
func (ar *Arena) intern(kind Kind, width int, value uint64, array string, offset int, op, a, b, cond *Expr) *Expr {
	ids := make([]Id, 0, 4)
	for _, c := range []*Expr{op, a, b, cond} {
		if c != nil {
			ids = append(ids, c.id)
		}
	}
	h := structHash(kind, width, value, array, offset, ids...)
	for _, cand := range ar.buckets[h] {
		if same(cand, kind, width, value, array, offset, op, a, b, cond) {
			return cand
		}
	}
	ar.nextID++
	e := &Expr{
		id: ar.nextID, kind: kind, width: width, arena: ar,
		value: value, array: array, offset: offset,
		op: op, a: a, b: b, cond: cond,
	}
	ar.buckets[h] = append(ar.buckets[h], e)
	return e
}

// Len reports the number of distinct interned nodes in ar.
func (ar *Arena) Len() int {
	n := 0
	for _, b := range ar.buckets {
		n += len(b)
	}
	return n
}
