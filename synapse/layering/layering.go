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

// Package layering implements spec §4.6's packet-layering analyzer: a
// left-to-right dataflow pass over one call path's packet_borrow_next_
// chunk / packet_return_chunk calls that infers each borrowed chunk's
// protocol layer and records field dependencies for downstream synapse
// modules (TableLookup, CachedTableLookup) that need to express a key
// as a header-field reference rather than a raw byte offset.
package layering

import (
	"github.com/pmdm56/vigor-klee-sub000/callpath"
	"github.com/pmdm56/vigor-klee-sub000/expr"
	"github.com/pmdm56/vigor-klee-sub000/ints"
	"github.com/pmdm56/vigor-klee-sub000/solver"
)

// Layer numbers chunk depth starting at Ethernet (spec: "starting at 2
// / Ethernet").
const (
	LayerEthernet = 2
	LayerL3       = 3
	LayerL4       = 4
)

// Chunk is one borrowed-and-not-yet-returned packet chunk.
type Chunk struct {
	Layer      int
	Offset     int // declared byte offset within the packet
	Value      *expr.Expr
	BorrowCall *callpath.Call

	// Extent is [Offset, Offset+length) once length is known; it stays
	// zero-length until the borrow call's length argument resolves.
	Extent ints.Interval

	// Protocol is the resolved layer's protocol code once known
	// (e.g. 0x0008, the IPv4 ether_type 0x0800 in little-endian-normalized
	// form, at LayerEthernet meaning "next chunk is IPv4"), or
	// nil if the path admits more than one candidate (see Forks).
	Protocol *expr.Expr
}

// BorrowReturn pairs one packet_borrow_next_chunk with the
// packet_return_chunk that later released the same chunk (spec §9's
// Open Question, resolved as an explicit side table built during the
// same left-to-right pass, rather than re-derived from BDD parent
// pointers).
type BorrowReturn struct {
	Borrow *callpath.Call
	Return *callpath.Call
	Layer  int
}

// BorrowTable is the side table BorrowReturn pairs accumulate into.
type BorrowTable struct {
	pairs []BorrowReturn
}

func (t *BorrowTable) record(b, r *callpath.Call, layer int) {
	t.pairs = append(t.pairs, BorrowReturn{Borrow: b, Return: r, Layer: layer})
}

// Pairs returns every recorded borrow/return pairing, in call order.
func (t *BorrowTable) Pairs() []BorrowReturn { return append([]BorrowReturn(nil), t.pairs...) }

// FieldDependency records that some libVig call's argument expression
// references bytes of a specific borrowed chunk (spec: "when any
// libVig data-structure argument expression references bytes of
// packet_chunks, the dependency is recorded against the specific
// chunk's byte offset").
type FieldDependency struct {
	Call       *callpath.Call
	ArgName    string
	ChunkLayer int
	ByteOffset int
}

// Fork represents one candidate protocol value for a chunk whose path
// admits more than one (spec: "multiple candidate protocol codes...
// cause the chunk to fork into multiple alternatives").
type Fork struct {
	Layer    int
	Protocol *expr.Expr
}

// Result is the packet-layering analyzer's output for one call path.
type Result struct {
	Layers       map[int]*expr.Expr // layer -> resolved protocol code, once known
	BorrowTable  *BorrowTable
	Dependencies []FieldDependency
	Forks        []Fork

	// Extents accumulates every borrowed chunk's byte range, in borrow
	// order, for OverlappingExtents below.
	Extents ints.Intervals
}

// OverlappingExtents reports whether any two borrowed chunks' byte
// ranges overlap — a call path that borrows the same packet bytes at
// two different layers indicates a malformed or unsupported LibVig
// borrow sequence, which callers should reject rather than synthesize
// a plan for.
func (r *Result) OverlappingExtents() bool {
	for i := range r.Extents {
		for j := i + 1; j < len(r.Extents); j++ {
			if r.Extents[i].Intersect(r.Extents[j]).Len() > 0 {
				return true
			}
		}
	}
	return false
}

// Analyze walks path's calls left to right, tracking a stack of
// currently-unreturned chunks (for borrow/return pairing) alongside the
// most recently borrowed chunk overall (for layer numbering and
// protocol resolution), since LibVig's usual discipline of returning
// each chunk before borrowing the next would otherwise leave the
// unreturned-chunk stack empty right when the next layer needs to
// consult it.
func Analyze(sc *solver.Context, path *callpath.CallPath) *Result {
	res := &Result{
		Layers:      make(map[int]*expr.Expr),
		BorrowTable: &BorrowTable{},
	}
	var unreturned []*Chunk
	var lastChunk *Chunk
	offset := 0

	for _, c := range path.Calls {
		switch c.Function {
		case "packet_borrow_next_chunk":
			chunk := &Chunk{Offset: offset, Extent: ints.Interval{Start: offset, End: offset}, BorrowCall: c}
			if lastChunk == nil {
				chunk.Layer = LayerEthernet
			} else {
				chunk.Layer = lastChunk.Layer + 1
			}
			if arg, ok := c.Arg("chunk"); ok {
				chunk.Value = arg.Out
			}
			resolveProtocol(sc, res, path.Constraints, chunk, lastChunk)
			if lenArg, ok := c.Arg("length"); ok && lenArg.Expr != nil && lenArg.Expr.Kind() == expr.KConstant {
				length := int(lenArg.Expr.Value())
				chunk.Extent.End = offset + length
				offset += length
				res.Extents = append(res.Extents, chunk.Extent)
			}
			unreturned = append(unreturned, chunk)
			lastChunk = chunk

		case "packet_return_chunk":
			if len(unreturned) == 0 {
				continue
			}
			top := unreturned[len(unreturned)-1]
			unreturned = unreturned[:len(unreturned)-1]
			res.BorrowTable.record(top.BorrowCall, c, top.Layer)

		default:
			recordDependencies(res, c, unreturned)
		}
	}
	return res
}

// resolveProtocol infers layer's protocol field from the previous
// chunk's protocol-indicating byte (spec: "byte 12 big-endian for L3
// from L2; byte 9 for L4 from L3"), recording Layers[layer-1] once a
// single value is must-be-true under the path's constraints, or a Fork
// when more than one candidate survives.
func resolveProtocol(sc *solver.Context, res *Result, constraints []*expr.Expr, chunk *Chunk, prev *Chunk) {
	if prev == nil || prev.Value == nil {
		return
	}

	var fieldOffset, width int
	switch chunk.Layer {
	case LayerL3:
		fieldOffset, width = 12*8, 16 // ether_type
	case LayerL4:
		fieldOffset, width = 9*8, 8 // ip next_proto_id
	default:
		return
	}
	if fieldOffset+width > prev.Value.Width() {
		return
	}
	field := expr.Extract(prev.Value.Arena(), prev.Value, fieldOffset, width)

	candidates := protocolCandidates(chunk.Layer)
	var forks []Fork
	for _, code := range candidates {
		want := expr.Const(field.Arena(), code, width)
		if sc.MustBeTrue(constraints, expr.Eq(field.Arena(), field, want)) {
			forks = append(forks, Fork{Layer: prev.Layer, Protocol: want})
		}
	}
	if len(forks) == 1 {
		res.Layers[prev.Layer] = forks[0].Protocol
		prev.Protocol = forks[0].Protocol
	} else {
		res.Forks = append(res.Forks, forks...)
	}
}

func protocolCandidates(layer int) []uint64 {
	switch layer {
	case LayerL3:
		return []uint64{0x0008} // IPv4 ether_type, little-endian normalized
	case LayerL4:
		return []uint64{6, 17} // IPPROTO_TCP, IPPROTO_UDP
	}
	return nil
}

// recordDependencies scans c's arguments for references into any
// currently-borrowed chunk's symbolic array, recording a
// FieldDependency per match (spec: "the dependency is recorded against
// the specific chunk's byte offset").
func recordDependencies(res *Result, c *callpath.Call, stack []*Chunk) {
	for _, na := range c.Args {
		e := na.Arg.Expr
		if e == nil {
			continue
		}
		for _, chunk := range stack {
			if referencesChunk(e, chunk) {
				res.Dependencies = append(res.Dependencies, FieldDependency{
					Call:       c,
					ArgName:    na.Name,
					ChunkLayer: chunk.Layer,
					ByteOffset: chunk.Offset,
				})
			}
		}
	}
}

// referencesChunk reports whether e reads from the same symbolic array
// chunk.Value was built over (a KRead's Array name, reached by a Walk).
func referencesChunk(e *expr.Expr, chunk *Chunk) bool {
	if chunk.Value == nil {
		return false
	}
	arrays := make(map[string]bool)
	for _, a := range expr.RetrieveSymbols(chunk.Value) {
		arrays[a] = true
	}
	found := false
	expr.WalkFunc(e, func(n *expr.Expr) bool {
		if n.Kind() == expr.KRead && arrays[n.Array()] {
			found = true
		}
		return true
	})
	return found
}
